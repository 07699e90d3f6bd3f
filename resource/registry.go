package resource

import "github.com/oxyrender/core/gpu"

// The wrapper types below adapt each gpu object kind to Destroyer so it can
// flow through a Cache/DropSink. Each wrapper is a thin value carrying the
// device needed to actually release the underlying GPU object.

type ImageResource struct {
	Image  gpu.Image
	device gpu.Device
}

func (r *ImageResource) Destroy() error { return r.device.DestroyImage(r.Image) }

type ImageViewResource struct {
	View   gpu.ImageView
	device gpu.Device
}

func (r *ImageViewResource) Destroy() error { return r.device.DestroyImageView(r.View) }

type BufferResource struct {
	Buffer gpu.Buffer
	device gpu.Device
}

func (r *BufferResource) Destroy() error { return r.device.DestroyBuffer(r.Buffer) }

type SamplerResource struct {
	Sampler gpu.Sampler
	device  gpu.Device
}

func (r *SamplerResource) Destroy() error { return r.device.DestroySampler(r.Sampler) }

type ShaderModuleResource struct {
	Module gpu.ShaderModule
	device gpu.Device
}

func (r *ShaderModuleResource) Destroy() error { return r.device.DestroyShaderModule(r.Module) }

type DescriptorSetLayoutResource struct {
	Layout gpu.DescriptorSetLayout
	device gpu.Device
}

func (r *DescriptorSetLayoutResource) Destroy() error {
	return r.device.DestroyDescriptorSetLayout(r.Layout)
}

type PipelineLayoutResource struct {
	Layout gpu.PipelineLayout
	device gpu.Device
}

func (r *PipelineLayoutResource) Destroy() error { return r.device.DestroyPipelineLayout(r.Layout) }

type PipelineResource struct {
	Pipeline gpu.Pipeline
	device   gpu.Device
}

func (r *PipelineResource) Destroy() error { return r.device.DestroyPipeline(r.Pipeline) }

type RenderPassResource struct {
	Pass   gpu.RenderPass
	device gpu.Device
}

func (r *RenderPassResource) Destroy() error { return r.device.DestroyRenderPass(r.Pass) }

type FramebufferResource struct {
	Framebuffer gpu.Framebuffer
	device      gpu.Device
}

func (r *FramebufferResource) Destroy() error { return r.device.DestroyFramebuffer(r.Framebuffer) }

// Registry bundles one Cache per GPU object kind behind a single
// OnFrameComplete/Destroy call, mirroring the teacher's combined drop sink:
// every constituent cache advances in the same fixed order so that, e.g., an
// image view is always released before the image it was created from could
// be considered for destruction within the same sweep.
type Registry struct {
	device gpu.Device

	ImageViews           *Cache[ImageViewKey, *ImageViewResource]
	Images               *Cache[ImageKey, *ImageResource]
	Buffers              *Cache[BufferKey, *BufferResource]
	Pipelines            *Cache[PipelineKey, *PipelineResource]
	RenderPasses         *Cache[RenderPassKey, *RenderPassResource]
	Framebuffers         *Cache[FramebufferKey, *FramebufferResource]
	PipelineLayouts      *Cache[PipelineLayoutKey, *PipelineLayoutResource]
	DescriptorSetLayouts *Cache[DescriptorSetLayoutKey, *DescriptorSetLayoutResource]
	ShaderModules        *Cache[ShaderModuleKey, *ShaderModuleResource]
	Samplers             *Cache[SamplerKey, *SamplerResource]
}

// NewRegistry builds a Registry whose caches all retire resources after
// maxInFlightFrames subsequent OnFrameComplete calls.
func NewRegistry(device gpu.Device, maxInFlightFrames uint32) *Registry {
	return &Registry{
		device:               device,
		ImageViews:           NewCache[ImageViewKey, *ImageViewResource](maxInFlightFrames),
		Images:               NewCache[ImageKey, *ImageResource](maxInFlightFrames),
		Buffers:              NewCache[BufferKey, *BufferResource](maxInFlightFrames),
		Pipelines:            NewCache[PipelineKey, *PipelineResource](maxInFlightFrames),
		RenderPasses:         NewCache[RenderPassKey, *RenderPassResource](maxInFlightFrames),
		Framebuffers:         NewCache[FramebufferKey, *FramebufferResource](maxInFlightFrames),
		PipelineLayouts:      NewCache[PipelineLayoutKey, *PipelineLayoutResource](maxInFlightFrames),
		DescriptorSetLayouts: NewCache[DescriptorSetLayoutKey, *DescriptorSetLayoutResource](maxInFlightFrames),
		ShaderModules:        NewCache[ShaderModuleKey, *ShaderModuleResource](maxInFlightFrames),
		Samplers:             NewCache[SamplerKey, *SamplerResource](maxInFlightFrames),
	}
}

// GetOrCreateImage builds or reuses a cached image for key.
func (reg *Registry) GetOrCreateImage(key ImageKey, desc gpu.ImageDesc) (Arc[*ImageResource], error) {
	return reg.Images.GetOrCreate(key, func() (*ImageResource, error) {
		img, err := reg.device.CreateImage(desc)
		if err != nil {
			return nil, err
		}
		return &ImageResource{Image: img, device: reg.device}, nil
	})
}

// InsertImage inserts an already-created image under key, bypassing the
// builder path. Used for externally-owned images such as swapchain
// back-buffers that the driver created outside the cache.
func (reg *Registry) InsertImage(key ImageKey, img gpu.Image) (Arc[*ImageResource], error) {
	return reg.Images.Create(key, func() (*ImageResource, error) {
		return &ImageResource{Image: img, device: reg.device}, nil
	})
}

// OnFrameComplete advances every constituent cache's drop sink by one frame,
// in the teacher's fixed order: image views, images, buffers, pipelines,
// render passes, framebuffers, pipeline layouts, descriptor set layouts,
// shader modules. Samplers are aged alongside image views since neither
// can outlive the other's typical binding lifetime in this core.
func (reg *Registry) OnFrameComplete() error {
	steps := []func() error{
		reg.ImageViews.OnFrameComplete,
		reg.Samplers.OnFrameComplete,
		reg.Images.OnFrameComplete,
		reg.Buffers.OnFrameComplete,
		reg.Pipelines.OnFrameComplete,
		reg.RenderPasses.OnFrameComplete,
		reg.Framebuffers.OnFrameComplete,
		reg.PipelineLayouts.OnFrameComplete,
		reg.DescriptorSetLayouts.OnFrameComplete,
		reg.ShaderModules.OnFrameComplete,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// Destroy immediately destroys every resource retired in every constituent
// cache, in the same fixed order as OnFrameComplete. The caller must have
// ensured GPU idleness.
func (reg *Registry) Destroy() error {
	steps := []func() error{
		reg.ImageViews.Destroy,
		reg.Samplers.Destroy,
		reg.Images.Destroy,
		reg.Buffers.Destroy,
		reg.Pipelines.Destroy,
		reg.RenderPasses.Destroy,
		reg.Framebuffers.Destroy,
		reg.PipelineLayouts.Destroy,
		reg.DescriptorSetLayouts.Destroy,
		reg.ShaderModules.Destroy,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
