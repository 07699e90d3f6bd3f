// Package gpu defines the driver interface consumed by the resource, graph
// and render packages, plus a default implementation backed by
// github.com/cogentcore/webgpu. The core never talks to a native graphics
// API directly; every GPU object kind it needs is created and destroyed
// through Device.
package gpu

import "context"

// ObjectKind identifies a GPU object kind for capability queries and
// diagnostics.
type ObjectKind int

const (
	ObjectImage ObjectKind = iota
	ObjectImageView
	ObjectBuffer
	ObjectSampler
	ObjectShaderModule
	ObjectDescriptorSetLayout
	ObjectPipelineLayout
	ObjectPipeline
	ObjectRenderPass
	ObjectFramebuffer
)

// Device is the uniform GPU abstraction the core is built on. Implementations
// translate each method to calls against a concrete native API; the core
// never assumes which one. Every Create* method is safe to call concurrently
// with other Create*/Destroy* calls on the same Device; callers must not
// assume ordering between independent resources.
type Device interface {
	// CreateImage allocates a GPU image (texture) from desc.
	CreateImage(desc ImageDesc) (Image, error)
	// DestroyImage releases a previously created image. Called only by a
	// resource.DropSink once the image's frame-bounded lifetime has expired.
	DestroyImage(Image) error

	// CreateImageView creates a view into an existing image.
	CreateImageView(image Image, desc ImageViewDesc) (ImageView, error)
	DestroyImageView(ImageView) error

	// CreateBuffer allocates a GPU buffer from desc.
	CreateBuffer(desc BufferDesc) (Buffer, error)
	DestroyBuffer(Buffer) error

	// CreateSampler creates a texture sampler from desc.
	CreateSampler(desc SamplerDesc) (Sampler, error)
	DestroySampler(Sampler) error

	// CreateShaderModule compiles or loads shader bytecode/source.
	CreateShaderModule(desc ShaderModuleDesc) (ShaderModule, error)
	DestroyShaderModule(ShaderModule) error

	// CreateDescriptorSetLayout declares the binding layout for a descriptor set.
	CreateDescriptorSetLayout(desc DescriptorSetLayoutDesc) (DescriptorSetLayout, error)
	DestroyDescriptorSetLayout(DescriptorSetLayout) error

	// CreatePipelineLayout composes one or more descriptor set layouts into a
	// pipeline layout.
	CreatePipelineLayout(desc PipelineLayoutDesc) (PipelineLayout, error)
	DestroyPipelineLayout(PipelineLayout) error

	// CreatePipeline creates either a render or compute pipeline depending on
	// which half of desc is populated.
	CreatePipeline(desc PipelineDesc) (Pipeline, error)
	DestroyPipeline(Pipeline) error

	// CreateRenderPass creates (or, on a backend without first-class render
	// passes, synthesizes) a render pass object from a compatible attachment
	// description.
	CreateRenderPass(desc RenderPassDesc) (RenderPass, error)
	DestroyRenderPass(RenderPass) error

	// CreateFramebuffer binds a concrete set of image views to a render pass.
	CreateFramebuffer(pass RenderPass, desc FramebufferDesc) (Framebuffer, error)
	DestroyFramebuffer(Framebuffer) error

	// Descriptor pool management, consumed by the descriptor package.
	CreateDescriptorPool(sizes DescriptorPoolSizes) (DescriptorPool, error)
	AllocateDescriptorSet(pool DescriptorPool, layout DescriptorSetLayout) (DescriptorSet, error)
	ResetPool(pool DescriptorPool) error
	UpdateDescriptorSet(set DescriptorSet, writes []DescriptorWrite) error

	// Command buffer lifecycle.
	AllocateCommandBuffer(queue QueueFamily) (CommandBuffer, error)
	Record(cb CommandBuffer, fn func(Recorder) error) error
	Submit(queue QueueFamily, cbs []CommandBuffer, waits, signals []Semaphore, fence *Fence) error
	DeviceWaitIdle(ctx context.Context) error

	// Capabilities exposes static capability queries used by the render
	// graph planner during constraint propagation.
	Capabilities() Capabilities
}

// QueueFamily identifies which hardware queue a command buffer targets.
type QueueFamily int

const (
	QueueGraphics QueueFamily = iota
	QueueCompute
	QueueTransfer
)

// Capabilities reports static, queryable device limits.
type Capabilities struct {
	SupportedFormats      []Format
	MaxBoundDescriptors    uint32
	MaxPushConstantSize    uint32
	SupportedSampleCounts  []uint32
}

// Recorder is handed to the closure passed to Device.Record; it exposes the
// subset of command recording the render graph's write phase needs.
type Recorder interface {
	BeginRenderPass(pass RenderPass, fb Framebuffer, clear []ClearValue) error
	EndRenderPass() error
	BindPipeline(Pipeline) error
	BindDescriptorSet(index uint32, set DescriptorSet) error
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) error
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) error
	Dispatch(x, y, z uint32) error
	PipelineBarrier(b Barrier) error
	CopyBufferToBuffer(src, dst Buffer, srcOffset, dstOffset, size uint64) error
	CopyBufferToImage(src Buffer, srcOffset uint64, dst Image, region ImageCopyRegion) error
}

// ClearValue is a color or depth/stencil clear value for a render pass
// attachment.
type ClearValue struct {
	Color   [4]float32
	Depth   float32
	Stencil uint32
}
