package gpu

// Format mirrors the small set of pixel/vertex formats the graph planner
// and resource layer need to reason about; concrete backends map these onto
// their native format enums.
type Format int

const (
	FormatUndefined Format = iota
	FormatRGBA8UnormSRGB
	FormatRGBA8Unorm
	FormatBGRA8UnormSRGB
	FormatDepth32Float
	FormatDepth24PlusStencil8
	FormatR32Float
)

// UsageFlags is a bitset of how an image or buffer will be used. Usage OR-
// accumulates across every usage edge that touches a virtual resource.
type UsageFlags uint32

const (
	UsageColorAttachment UsageFlags = 1 << iota
	UsageDepthStencilAttachment
	UsageSampled
	UsageStorage
	UsageTransferSrc
	UsageTransferDst
	UsageVertexBuffer
	UsageIndexBuffer
	UsageUniformBuffer
	UsageIndirectBuffer
)

// AspectFlags selects which aspect(s) of an image a view or barrier applies
// to.
type AspectFlags uint32

const (
	AspectColor AspectFlags = 1 << iota
	AspectDepth
	AspectStencil
)

// Layout is a coarse image layout, used by the graph planner's barrier
// synthesis to decide whether a transition is required.
type Layout int

const (
	LayoutUndefined Layout = iota
	LayoutColorAttachment
	LayoutDepthStencilAttachment
	LayoutShaderReadOnly
	LayoutTransferSrc
	LayoutTransferDst
	LayoutPresent
	LayoutGeneral
)

// AccessFlags is a bitset of memory access types, used for barrier
// synthesis.
type AccessFlags uint32

const (
	AccessColorAttachmentRead AccessFlags = 1 << iota
	AccessColorAttachmentWrite
	AccessDepthStencilAttachmentRead
	AccessDepthStencilAttachmentWrite
	AccessShaderRead
	AccessShaderWrite
	AccessTransferRead
	AccessTransferWrite
)

// StageFlags is a bitset of pipeline stages, used for barrier synthesis.
type StageFlags uint32

const (
	StageTop StageFlags = 1 << iota
	StageTransfer
	StageVertexShader
	StageFragmentShader
	StageComputeShader
	StageColorAttachmentOutput
	StageEarlyFragmentTests
	StageLateFragmentTests
	StageBottom
)

// Extent3D describes the dimensions of an image.
type Extent3D struct {
	Width, Height, DepthOrArrayLayers uint32
}

// ImageDesc describes an image to create.
type ImageDesc struct {
	Label       string
	Extent      Extent3D
	Format      Format
	Usage       UsageFlags
	SampleCount uint32
	MipLevels   uint32
}

// Image is an opaque handle to a created image.
type Image struct{ handle any }

// Destroy is implemented so an Image can be retired through a
// resource.DropSink; it requires the owning device, so concrete caches wrap
// it in a type that carries the device (resource.ImageResource) rather than
// relying on this no-op.
func (Image) Destroy() error { return nil }

// ImageViewDesc describes a view into an image.
type ImageViewDesc struct {
	Label  string
	Aspect AspectFlags
	Format Format
}

// ImageView is an opaque handle to a created image view.
type ImageView struct{ handle any }

func (ImageView) Destroy() error { return nil }

// BufferDesc describes a buffer to create.
type BufferDesc struct {
	Label string
	Size  uint64
	Usage UsageFlags
}

// Buffer is an opaque handle to a created buffer.
type Buffer struct{ handle any }

func (Buffer) Destroy() error { return nil }

// SamplerDesc describes a texture sampler to create.
type SamplerDesc struct {
	Label         string
	AddressModeU  AddressMode
	AddressModeV  AddressMode
	AddressModeW  AddressMode
	MagFilter     FilterMode
	MinFilter     FilterMode
	MipmapFilter  FilterMode
	LodMinClamp   float32
	LodMaxClamp   float32
	MaxAnisotropy uint16
}

type AddressMode int

const (
	AddressModeClampToEdge AddressMode = iota
	AddressModeRepeat
	AddressModeMirrorRepeat
)

type FilterMode int

const (
	FilterNearest FilterMode = iota
	FilterLinear
)

// Sampler is an opaque handle to a created sampler.
type Sampler struct{ handle any }

func (Sampler) Destroy() error { return nil }

// ShaderStage identifies which pipeline stage a shader module targets.
type ShaderStage int

const (
	StageVertex ShaderStage = iota
	StageFragment
	StageCompute
)

// ShaderModuleDesc describes a shader module to create. Source is backend
// defined (WGSL source for the default backend); the core never compiles or
// reflects shaders itself, it only hands bytes received from the asset
// loader to the driver.
type ShaderModuleDesc struct {
	Label  string
	Stage  ShaderStage
	Source string
}

// ShaderModule is an opaque handle to a compiled shader module.
type ShaderModule struct{ handle any }

func (ShaderModule) Destroy() error { return nil }

// BindingType identifies what kind of resource a descriptor set binding
// refers to.
type BindingType int

const (
	BindingUniformBuffer BindingType = iota
	BindingStorageBuffer
	BindingSampledImage
	BindingStorageImage
	BindingSampler
)

// DescriptorSetLayoutBinding describes one binding slot within a descriptor
// set layout.
type DescriptorSetLayoutBinding struct {
	Binding    uint32
	Type       BindingType
	Visibility ShaderStage
	Count      uint32
}

// DescriptorSetLayoutDesc describes a descriptor set layout to create.
type DescriptorSetLayoutDesc struct {
	Label    string
	Bindings []DescriptorSetLayoutBinding
}

// DescriptorSetLayout is an opaque handle to a created descriptor set
// layout.
type DescriptorSetLayout struct{ handle any }

func (DescriptorSetLayout) Destroy() error { return nil }

// PipelineLayoutDesc composes one or more descriptor set layouts (by index,
// matching the set index they bind to) into a pipeline layout.
type PipelineLayoutDesc struct {
	Label           string
	SetLayouts      []DescriptorSetLayout
	PushConstantSize uint32
}

// PipelineLayout is an opaque handle to a created pipeline layout.
type PipelineLayout struct{ handle any }

func (PipelineLayout) Destroy() error { return nil }

// Topology selects the primitive assembly mode for a render pipeline.
type Topology int

const (
	TopologyTriangleList Topology = iota
	TopologyLineList
	TopologyPointList
)

// CullMode selects back-face culling behavior.
type CullMode int

const (
	CullNone CullMode = iota
	CullFront
	CullBack
)

// RenderPipelineDesc describes a render pipeline to create.
type RenderPipelineDesc struct {
	Label             string
	Layout            PipelineLayout
	VertexShader      ShaderModule
	FragmentShader    ShaderModule
	Topology          Topology
	CullMode          CullMode
	DepthTestEnabled  bool
	DepthWriteEnabled bool
	SampleCount       uint32
	ColorFormats      []Format
	DepthFormat       Format
}

// ComputePipelineDesc describes a compute pipeline to create.
type ComputePipelineDesc struct {
	Label  string
	Layout PipelineLayout
	Shader ShaderModule
}

// PipelineDesc holds exactly one of Render or Compute.
type PipelineDesc struct {
	Render  *RenderPipelineDesc
	Compute *ComputePipelineDesc
}

// Pipeline is an opaque handle to a created render or compute pipeline.
type Pipeline struct{ handle any }

func (Pipeline) Destroy() error { return nil }

// AttachmentDesc describes one color/depth/resolve attachment slot within a
// render pass.
type AttachmentDesc struct {
	Format     Format
	SampleCount uint32
	LoadClear  bool
	FinalLayout Layout
}

// RenderPassDesc describes a render pass to create from a compatible
// attachment set.
type RenderPassDesc struct {
	Label             string
	ColorAttachments  []AttachmentDesc
	DepthAttachment   *AttachmentDesc
	ResolveAttachment *AttachmentDesc
}

// RenderPass is an opaque handle to a created (or synthesized) render pass.
type RenderPass struct{ handle any }

func (RenderPass) Destroy() error { return nil }

// FramebufferDesc binds concrete image views to the attachment slots of a
// render pass.
type FramebufferDesc struct {
	Label             string
	ColorViews        []ImageView
	DepthView         *ImageView
	ResolveView       *ImageView
	Width, Height     uint32
}

// Framebuffer is an opaque handle to a created framebuffer.
type Framebuffer struct{ handle any }

func (Framebuffer) Destroy() error { return nil }

// DescriptorPoolSizes describes how many descriptors of each binding type a
// descriptor pool should be able to allocate.
type DescriptorPoolSizes struct {
	MaxSets  uint32
	PerType  map[BindingType]uint32
}

// DescriptorPool is an opaque handle to a created descriptor pool.
type DescriptorPool struct{ handle any }

// DescriptorSet is an opaque handle to an allocated descriptor set.
type DescriptorSet struct{ handle any }

// DescriptorWrite describes one binding write into a descriptor set.
type DescriptorWrite struct {
	Binding uint32
	Type    BindingType
	Buffer  *Buffer
	View    *ImageView
	Sampler *Sampler
}

// CommandBuffer is an opaque handle to an allocated command buffer.
type CommandBuffer struct{ handle any }

// Semaphore is an opaque GPU-GPU synchronization primitive.
type Semaphore struct{ handle any }

// Fence is a CPU-GPU synchronization primitive signaled on command buffer
// retirement.
type Fence struct{ handle any }

// Barrier describes a pipeline barrier the graph planner has synthesized
// between a producer and a consumer of an image or buffer version.
type Barrier struct {
	Image        *Image
	Buffer       *Buffer
	OldLayout    Layout
	NewLayout    Layout
	SrcAccess    AccessFlags
	DstAccess    AccessFlags
	SrcStage     StageFlags
	DstStage     StageFlags
	QueueRelease bool
	QueueAcquire bool
}

// ImageCopyRegion describes a buffer-to-image copy region.
type ImageCopyRegion struct {
	Extent Extent3D
	Offset Extent3D
}
