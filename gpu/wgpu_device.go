package gpu

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/oxyrender/core/engine/window"
)

// wgpuDevice is the default Device implementation, backed by
// github.com/cogentcore/webgpu. It mirrors the teacher's wgpu backend: a
// mutex-guarded struct wrapping the instance/adapter/device/queue plus
// option-driven construction.
type wgpuDevice struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	forceFallbackAdapter bool
	maxBindGroups        uint32
}

var _ Device = (*wgpuDevice)(nil)

// Option configures a wgpuDevice during construction via NewWGPUDevice.
type Option func(*wgpuDevice)

// WithForceFallbackAdapter forces selection of a software adapter.
func WithForceFallbackAdapter(force bool) Option {
	return func(d *wgpuDevice) { d.forceFallbackAdapter = force }
}

// WithMaxBindGroups raises the requested MaxBindGroups device limit above
// the WebGPU default of 4, matching the teacher's renderer which raises it
// to 8 to accommodate additional descriptor sets.
func WithMaxBindGroups(count uint32) Option {
	return func(d *wgpuDevice) { d.maxBindGroups = count }
}

// NewWGPUDevice creates the default GPU driver backed by WebGPU. surface, if
// non-nil, is used only to pick a compatible adapter; it is not retained by
// the device.
func NewWGPUDevice(surface *wgpu.Surface, opts ...Option) (Device, error) {
	instance := wgpu.CreateInstance(nil)
	return newWGPUDevice(instance, surface, opts...)
}

// NewWGPUDeviceForWindow creates the default GPU driver from win's
// platform surface descriptor, the same
// descriptor-to-surface wiring the teacher's wgpuRendererBackend performs in
// newWGPURendererBackend: obtain a SurfaceDescriptor from the window, turn it
// into a *wgpu.Surface via the instance, and request an adapter compatible
// with that surface.
func NewWGPUDeviceForWindow(win window.Window, opts ...Option) (Device, error) {
	instance := wgpu.CreateInstance(nil)
	surface := instance.CreateSurface(win.SurfaceDescriptor())
	return newWGPUDevice(instance, surface, opts...)
}

func newWGPUDevice(instance *wgpu.Instance, surface *wgpu.Surface, opts ...Option) (Device, error) {
	d := &wgpuDevice{mu: &sync.Mutex{}, maxBindGroups: 4}
	for _, opt := range opts {
		opt(d)
	}
	d.instance = instance

	a, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface:    surface,
		ForceFallbackAdapter: d.forceFallbackAdapter,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: request adapter: %w", err)
	}
	d.adapter = a

	requiredLimits := a.GetLimits()
	if requiredLimits.Limits.MaxBindGroups < d.maxBindGroups {
		requiredLimits.Limits.MaxBindGroups = d.maxBindGroups
	}

	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		RequiredLimits: &requiredLimits,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: request device: %w", err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	return d, nil
}

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("gpu: %s: %w", op, err)
}

func toWGPUFormat(f Format) wgpu.TextureFormat {
	switch f {
	case FormatRGBA8UnormSRGB:
		return wgpu.TextureFormatRGBA8UnormSrgb
	case FormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm
	case FormatBGRA8UnormSRGB:
		return wgpu.TextureFormatBGRA8UnormSrgb
	case FormatDepth32Float:
		return wgpu.TextureFormatDepth32Float
	case FormatDepth24PlusStencil8:
		return wgpu.TextureFormatDepth24PlusStencil8
	case FormatR32Float:
		return wgpu.TextureFormatR32Float
	default:
		return wgpu.TextureFormatUndefined
	}
}

func toWGPUUsage(u UsageFlags) wgpu.TextureUsage {
	var out wgpu.TextureUsage
	if u&UsageColorAttachment != 0 || u&UsageDepthStencilAttachment != 0 {
		out |= wgpu.TextureUsageRenderAttachment
	}
	if u&UsageSampled != 0 {
		out |= wgpu.TextureUsageTextureBinding
	}
	if u&UsageStorage != 0 {
		out |= wgpu.TextureUsageStorageBinding
	}
	if u&UsageTransferSrc != 0 {
		out |= wgpu.TextureUsageCopySrc
	}
	if u&UsageTransferDst != 0 {
		out |= wgpu.TextureUsageCopyDst
	}
	return out
}

func toWGPUBufferUsage(u UsageFlags) wgpu.BufferUsage {
	var out wgpu.BufferUsage
	if u&UsageVertexBuffer != 0 {
		out |= wgpu.BufferUsageVertex
	}
	if u&UsageIndexBuffer != 0 {
		out |= wgpu.BufferUsageIndex
	}
	if u&UsageUniformBuffer != 0 {
		out |= wgpu.BufferUsageUniform
	}
	if u&UsageStorage != 0 {
		out |= wgpu.BufferUsageStorage
	}
	if u&UsageIndirectBuffer != 0 {
		out |= wgpu.BufferUsageIndirect
	}
	if u&UsageTransferSrc != 0 {
		out |= wgpu.BufferUsageCopySrc
	}
	if u&UsageTransferDst != 0 {
		out |= wgpu.BufferUsageCopyDst
	}
	return out
}

func (d *wgpuDevice) CreateImage(desc ImageDesc) (Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sampleCount := desc.SampleCount
	if sampleCount == 0 {
		sampleCount = 1
	}
	mips := desc.MipLevels
	if mips == 0 {
		mips = 1
	}

	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Size: wgpu.Extent3D{
			Width:              desc.Extent.Width,
			Height:             desc.Extent.Height,
			DepthOrArrayLayers: max1(desc.Extent.DepthOrArrayLayers),
		},
		MipLevelCount: mips,
		SampleCount:   sampleCount,
		Dimension:     wgpu.TextureDimension2D,
		Format:        toWGPUFormat(desc.Format),
		Usage:         toWGPUUsage(desc.Usage),
	})
	if err != nil {
		return Image{}, wrapErr("create image", err)
	}
	return Image{handle: tex}, nil
}

func max1(v uint32) uint32 {
	if v == 0 {
		return 1
	}
	return v
}

func (d *wgpuDevice) DestroyImage(img Image) error {
	tex, ok := img.handle.(*wgpu.Texture)
	if !ok || tex == nil {
		return errors.New("gpu: destroy image: not a wgpu texture handle")
	}
	tex.Release()
	return nil
}

func (d *wgpuDevice) CreateImageView(img Image, desc ImageViewDesc) (ImageView, error) {
	tex, ok := img.handle.(*wgpu.Texture)
	if !ok || tex == nil {
		return ImageView{}, errors.New("gpu: create image view: not a wgpu texture handle")
	}
	view, err := tex.CreateView(&wgpu.TextureViewDescriptor{Label: desc.Label, Format: toWGPUFormat(desc.Format)})
	if err != nil {
		return ImageView{}, wrapErr("create image view", err)
	}
	return ImageView{handle: view}, nil
}

func (d *wgpuDevice) DestroyImageView(v ImageView) error {
	view, ok := v.handle.(*wgpu.TextureView)
	if !ok || view == nil {
		return errors.New("gpu: destroy image view: not a wgpu texture view handle")
	}
	view.Release()
	return nil
}

func (d *wgpuDevice) CreateBuffer(desc BufferDesc) (Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: toWGPUBufferUsage(desc.Usage),
	})
	if err != nil {
		return Buffer{}, wrapErr("create buffer", err)
	}
	return Buffer{handle: buf}, nil
}

func (d *wgpuDevice) DestroyBuffer(b Buffer) error {
	buf, ok := b.handle.(*wgpu.Buffer)
	if !ok || buf == nil {
		return errors.New("gpu: destroy buffer: not a wgpu buffer handle")
	}
	buf.Release()
	return nil
}

func toWGPUAddressMode(m AddressMode) wgpu.AddressMode {
	switch m {
	case AddressModeRepeat:
		return wgpu.AddressModeRepeat
	case AddressModeMirrorRepeat:
		return wgpu.AddressModeMirrorRepeat
	default:
		return wgpu.AddressModeClampToEdge
	}
}

func toWGPUFilterMode(m FilterMode) wgpu.FilterMode {
	if m == FilterLinear {
		return wgpu.FilterModeLinear
	}
	return wgpu.FilterModeNearest
}

func (d *wgpuDevice) CreateSampler(desc SamplerDesc) (Sampler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, err := d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         desc.Label,
		AddressModeU:  toWGPUAddressMode(desc.AddressModeU),
		AddressModeV:  toWGPUAddressMode(desc.AddressModeV),
		AddressModeW:  toWGPUAddressMode(desc.AddressModeW),
		MagFilter:     toWGPUFilterMode(desc.MagFilter),
		MinFilter:     toWGPUFilterMode(desc.MinFilter),
		MipmapFilter:  wgpu.MipmapFilterMode(toWGPUFilterMode(desc.MipmapFilter)),
		LodMinClamp:   desc.LodMinClamp,
		LodMaxClamp:   desc.LodMaxClamp,
		MaxAnisotropy: desc.MaxAnisotropy,
	})
	if err != nil {
		return Sampler{}, wrapErr("create sampler", err)
	}
	return Sampler{handle: s}, nil
}

func (d *wgpuDevice) DestroySampler(s Sampler) error {
	samp, ok := s.handle.(*wgpu.Sampler)
	if !ok || samp == nil {
		return errors.New("gpu: destroy sampler: not a wgpu sampler handle")
	}
	samp.Release()
	return nil
}

func (d *wgpuDevice) CreateShaderModule(desc ShaderModuleDesc) (ShaderModule, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          desc.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: desc.Source},
	})
	if err != nil {
		return ShaderModule{}, wrapErr("create shader module", err)
	}
	return ShaderModule{handle: m}, nil
}

func (d *wgpuDevice) DestroyShaderModule(m ShaderModule) error {
	mod, ok := m.handle.(*wgpu.ShaderModule)
	if !ok || mod == nil {
		return errors.New("gpu: destroy shader module: not a wgpu shader module handle")
	}
	mod.Release()
	return nil
}

func toWGPUBindingVisibility(s ShaderStage) wgpu.ShaderStage {
	switch s {
	case StageVertex:
		return wgpu.ShaderStageVertex
	case StageFragment:
		return wgpu.ShaderStageFragment
	case StageCompute:
		return wgpu.ShaderStageCompute
	default:
		return wgpu.ShaderStageNone
	}
}

func (d *wgpuDevice) CreateDescriptorSetLayout(desc DescriptorSetLayoutDesc) (DescriptorSetLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries := make([]wgpu.BindGroupLayoutEntry, 0, len(desc.Bindings))
	for _, b := range desc.Bindings {
		entry := wgpu.BindGroupLayoutEntry{
			Binding:    b.Binding,
			Visibility: toWGPUBindingVisibility(b.Visibility),
		}
		switch b.Type {
		case BindingUniformBuffer:
			entry.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}
		case BindingStorageBuffer:
			entry.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeStorage}
		case BindingSampledImage:
			entry.Texture = wgpu.TextureBindingLayout{SampleType: wgpu.TextureSampleTypeFloat}
		case BindingStorageImage:
			entry.StorageTexture = wgpu.StorageTextureBindingLayout{Access: wgpu.StorageTextureAccessWriteOnly}
		case BindingSampler:
			entry.Sampler = wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering}
		}
		entries = append(entries, entry)
	}

	layout, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   desc.Label,
		Entries: entries,
	})
	if err != nil {
		return DescriptorSetLayout{}, wrapErr("create descriptor set layout", err)
	}
	return DescriptorSetLayout{handle: layout}, nil
}

func (d *wgpuDevice) DestroyDescriptorSetLayout(l DescriptorSetLayout) error {
	layout, ok := l.handle.(*wgpu.BindGroupLayout)
	if !ok || layout == nil {
		return errors.New("gpu: destroy descriptor set layout: not a wgpu bind group layout handle")
	}
	layout.Release()
	return nil
}

func (d *wgpuDevice) CreatePipelineLayout(desc PipelineLayoutDesc) (PipelineLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	layouts := make([]*wgpu.BindGroupLayout, 0, len(desc.SetLayouts))
	for _, l := range desc.SetLayouts {
		layout, ok := l.handle.(*wgpu.BindGroupLayout)
		if !ok || layout == nil {
			return PipelineLayout{}, errors.New("gpu: create pipeline layout: invalid set layout handle")
		}
		layouts = append(layouts, layout)
	}

	pl, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return PipelineLayout{}, wrapErr("create pipeline layout", err)
	}
	return PipelineLayout{handle: pl}, nil
}

func (d *wgpuDevice) DestroyPipelineLayout(l PipelineLayout) error {
	layout, ok := l.handle.(*wgpu.PipelineLayout)
	if !ok || layout == nil {
		return errors.New("gpu: destroy pipeline layout: not a wgpu pipeline layout handle")
	}
	layout.Release()
	return nil
}

func toWGPUTopology(t Topology) wgpu.PrimitiveTopology {
	switch t {
	case TopologyLineList:
		return wgpu.PrimitiveTopologyLineList
	case TopologyPointList:
		return wgpu.PrimitiveTopologyPointList
	default:
		return wgpu.PrimitiveTopologyTriangleList
	}
}

func toWGPUCullMode(c CullMode) wgpu.CullMode {
	switch c {
	case CullFront:
		return wgpu.CullModeFront
	case CullBack:
		return wgpu.CullModeBack
	default:
		return wgpu.CullModeNone
	}
}

func (d *wgpuDevice) CreatePipeline(desc PipelineDesc) (Pipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case desc.Render != nil:
		return d.createRenderPipelineLocked(desc.Render)
	case desc.Compute != nil:
		return d.createComputePipelineLocked(desc.Compute)
	default:
		return Pipeline{}, errors.New("gpu: create pipeline: neither render nor compute desc populated")
	}
}

func (d *wgpuDevice) createRenderPipelineLocked(desc *RenderPipelineDesc) (Pipeline, error) {
	vs, ok := desc.VertexShader.handle.(*wgpu.ShaderModule)
	if !ok || vs == nil {
		return Pipeline{}, errors.New("gpu: create render pipeline: invalid vertex shader handle")
	}
	fs, ok := desc.FragmentShader.handle.(*wgpu.ShaderModule)
	if !ok || fs == nil {
		return Pipeline{}, errors.New("gpu: create render pipeline: invalid fragment shader handle")
	}
	layout, ok := desc.Layout.handle.(*wgpu.PipelineLayout)
	if !ok || layout == nil {
		return Pipeline{}, errors.New("gpu: create render pipeline: invalid pipeline layout handle")
	}

	targets := make([]wgpu.ColorTargetState, 0, len(desc.ColorFormats))
	for _, f := range desc.ColorFormats {
		targets = append(targets, wgpu.ColorTargetState{
			Format:    toWGPUFormat(f),
			WriteMask: wgpu.ColorWriteMaskAll,
		})
	}

	rpDesc := &wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Vertex: wgpu.VertexState{Module: vs, EntryPoint: "vs_main"},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: "fs_main",
			Targets:    targets,
		},
		Primitive: wgpu.PrimitiveState{
			Topology: toWGPUTopology(desc.Topology),
			CullMode: toWGPUCullMode(desc.CullMode),
		},
		Multisample: wgpu.MultisampleState{
			Count:                  max1(desc.SampleCount),
			Mask:                   0xFFFFFFFF,
			AlphaToCoverageEnabled: false,
		},
	}
	if desc.DepthFormat != FormatUndefined {
		rpDesc.DepthStencil = &wgpu.DepthStencilState{
			Format:            toWGPUFormat(desc.DepthFormat),
			DepthWriteEnabled: desc.DepthWriteEnabled,
			DepthCompare:      wgpu.CompareFunctionLess,
		}
		if !desc.DepthTestEnabled {
			rpDesc.DepthStencil.DepthCompare = wgpu.CompareFunctionAlways
		}
	}

	created, err := d.device.CreateRenderPipeline(rpDesc)
	if err != nil {
		return Pipeline{}, wrapErr("create render pipeline", err)
	}
	return Pipeline{handle: created}, nil
}

func (d *wgpuDevice) createComputePipelineLocked(desc *ComputePipelineDesc) (Pipeline, error) {
	cs, ok := desc.Shader.handle.(*wgpu.ShaderModule)
	if !ok || cs == nil {
		return Pipeline{}, errors.New("gpu: create compute pipeline: invalid shader handle")
	}
	layout, ok := desc.Layout.handle.(*wgpu.PipelineLayout)
	if !ok || layout == nil {
		return Pipeline{}, errors.New("gpu: create compute pipeline: invalid pipeline layout handle")
	}

	created, err := d.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:   desc.Label,
		Layout:  layout,
		Compute: wgpu.ProgrammableStageDescriptor{Module: cs, EntryPoint: "cs_main"},
	})
	if err != nil {
		return Pipeline{}, wrapErr("create compute pipeline", err)
	}
	return Pipeline{handle: created}, nil
}

func (d *wgpuDevice) DestroyPipeline(p Pipeline) error {
	switch h := p.handle.(type) {
	case *wgpu.RenderPipeline:
		h.Release()
		return nil
	case *wgpu.ComputePipeline:
		h.Release()
		return nil
	default:
		return errors.New("gpu: destroy pipeline: not a wgpu pipeline handle")
	}
}

// CreateRenderPass synthesizes a logical render pass value object. WebGPU
// has no first-class render pass object; the descriptor is retained so it
// can be replayed as a wgpu.RenderPassDescriptor when the graph planner's
// compiled plan is executed against a concrete framebuffer.
func (d *wgpuDevice) CreateRenderPass(desc RenderPassDesc) (RenderPass, error) {
	rp := desc
	return RenderPass{handle: &rp}, nil
}

func (d *wgpuDevice) DestroyRenderPass(RenderPass) error { return nil }

// CreateFramebuffer records the concrete views bound for a render pass
// instance. WebGPU binds attachments per render-pass-begin rather than via a
// standalone framebuffer object, so this value is consumed later by
// Recorder.BeginRenderPass.
func (d *wgpuDevice) CreateFramebuffer(pass RenderPass, desc FramebufferDesc) (Framebuffer, error) {
	fb := desc
	return Framebuffer{handle: &fb}, nil
}

func (d *wgpuDevice) DestroyFramebuffer(Framebuffer) error { return nil }

func (d *wgpuDevice) CreateDescriptorPool(sizes DescriptorPoolSizes) (DescriptorPool, error) {
	return DescriptorPool{handle: &sizes}, nil
}

func (d *wgpuDevice) AllocateDescriptorSet(pool DescriptorPool, layout DescriptorSetLayout) (DescriptorSet, error) {
	l, ok := layout.handle.(*wgpu.BindGroupLayout)
	if !ok || l == nil {
		return DescriptorSet{}, errors.New("gpu: allocate descriptor set: invalid layout handle")
	}
	return DescriptorSet{handle: &pendingBindGroup{layout: l}}, nil
}

// pendingBindGroup accumulates writes for a descriptor set allocated from a
// wgpu backend, which creates bind groups atomically from a full entry list
// rather than supporting incremental writes the way a native descriptor set
// does. UpdateDescriptorSet stages writes here; the bind group is realized
// lazily the first time it is bound (Recorder.BindDescriptorSet).
type pendingBindGroup struct {
	layout  *wgpu.BindGroupLayout
	writes  []DescriptorWrite
	created *wgpu.BindGroup
}

func (d *wgpuDevice) ResetPool(DescriptorPool) error { return nil }

func (d *wgpuDevice) UpdateDescriptorSet(set DescriptorSet, writes []DescriptorWrite) error {
	pending, ok := set.handle.(*pendingBindGroup)
	if !ok || pending == nil {
		return errors.New("gpu: update descriptor set: invalid descriptor set handle")
	}
	pending.writes = append(pending.writes, writes...)
	pending.created = nil
	return nil
}

// Realize lazily creates (or recreates after a write) the backing wgpu bind
// group for set.
func (d *wgpuDevice) Realize(set DescriptorSet) (*wgpu.BindGroup, error) {
	pending, ok := set.handle.(*pendingBindGroup)
	if !ok || pending == nil {
		return nil, errors.New("gpu: realize descriptor set: invalid descriptor set handle")
	}
	if pending.created != nil {
		return pending.created, nil
	}

	entries := make([]wgpu.BindGroupEntry, 0, len(pending.writes))
	for _, w := range pending.writes {
		entry := wgpu.BindGroupEntry{Binding: w.Binding}
		switch {
		case w.Buffer != nil:
			if b, ok := w.Buffer.handle.(*wgpu.Buffer); ok {
				entry.Buffer = b
				entry.Size = b.GetSize()
			}
		case w.View != nil:
			if v, ok := w.View.handle.(*wgpu.TextureView); ok {
				entry.TextureView = v
			}
		case w.Sampler != nil:
			if s, ok := w.Sampler.handle.(*wgpu.Sampler); ok {
				entry.Sampler = s
			}
		}
		entries = append(entries, entry)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{Layout: pending.layout, Entries: entries})
	if err != nil {
		return nil, wrapErr("realize descriptor set", err)
	}
	pending.created = bg
	return bg, nil
}

func (d *wgpuDevice) AllocateCommandBuffer(queue QueueFamily) (CommandBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	enc, err := d.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{})
	if err != nil {
		return CommandBuffer{}, wrapErr("allocate command buffer", err)
	}
	return CommandBuffer{handle: enc}, nil
}

func (d *wgpuDevice) Record(cb CommandBuffer, fn func(Recorder) error) error {
	enc, ok := cb.handle.(*wgpu.CommandEncoder)
	if !ok || enc == nil {
		return errors.New("gpu: record: not a wgpu command encoder handle")
	}
	return fn(&wgpuRecorder{device: d, encoder: enc})
}

func (d *wgpuDevice) Submit(queue QueueFamily, cbs []CommandBuffer, waits, signals []Semaphore, fence *Fence) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	buffers := make([]*wgpu.CommandBuffer, 0, len(cbs))
	for _, cb := range cbs {
		enc, ok := cb.handle.(*wgpu.CommandEncoder)
		if !ok || enc == nil {
			return errors.New("gpu: submit: not a wgpu command encoder handle")
		}
		finished, err := enc.Finish(&wgpu.CommandBufferDescriptor{})
		if err != nil {
			return wrapErr("submit finish", err)
		}
		buffers = append(buffers, finished)
	}
	d.queue.Submit(buffers...)
	for _, b := range buffers {
		b.Release()
	}
	return nil
}

func (d *wgpuDevice) DeviceWaitIdle(ctx context.Context) error {
	// WebGPU has no explicit device-idle wait; queue submission completion
	// is observed through OnSubmittedWorkDone. Nothing in the core calls
	// this: Cache.Destroy and Registry.Destroy leave it to their caller to
	// ensure every frame in flight has retired, so this is a deliberate
	// no-op for the default backend.
	return nil
}

func (d *wgpuDevice) Capabilities() Capabilities {
	return Capabilities{
		SupportedFormats:     []Format{FormatRGBA8UnormSRGB, FormatRGBA8Unorm, FormatBGRA8UnormSRGB, FormatDepth32Float, FormatDepth24PlusStencil8},
		MaxBoundDescriptors:  d.maxBindGroups,
		MaxPushConstantSize:  0,
		SupportedSampleCounts: []uint32{1, 4},
	}
}

// wgpuRecorder implements Recorder over a single wgpu.CommandEncoder.
type wgpuRecorder struct {
	device  *wgpuDevice
	encoder *wgpu.CommandEncoder
	pass    *wgpu.RenderPassEncoder
}

func (r *wgpuRecorder) BeginRenderPass(pass RenderPass, fb Framebuffer, clear []ClearValue) error {
	passDesc, ok := pass.handle.(*RenderPassDesc)
	if !ok || passDesc == nil {
		return errors.New("gpu: begin render pass: invalid render pass handle")
	}
	fbDesc, ok := fb.handle.(*FramebufferDesc)
	if !ok || fbDesc == nil {
		return errors.New("gpu: begin render pass: invalid framebuffer handle")
	}

	colorAttachments := make([]wgpu.RenderPassColorAttachment, 0, len(fbDesc.ColorViews))
	for i, v := range fbDesc.ColorViews {
		view, ok := v.handle.(*wgpu.TextureView)
		if !ok || view == nil {
			return errors.New("gpu: begin render pass: invalid color view handle")
		}
		loadOp := wgpu.LoadOpLoad
		var cv wgpu.Color
		if i < len(passDesc.ColorAttachments) && passDesc.ColorAttachments[i].LoadClear {
			loadOp = wgpu.LoadOpClear
			if i < len(clear) {
				cv = wgpu.Color{R: float64(clear[i].Color[0]), G: float64(clear[i].Color[1]), B: float64(clear[i].Color[2]), A: float64(clear[i].Color[3])}
			}
		}
		colorAttachments = append(colorAttachments, wgpu.RenderPassColorAttachment{
			View:    view,
			LoadOp:  loadOp,
			StoreOp: wgpu.StoreOpStore,
			ClearValue: cv,
		})
	}

	rpDesc := &wgpu.RenderPassDescriptor{ColorAttachments: colorAttachments}
	if fbDesc.DepthView != nil {
		depthView, ok := fbDesc.DepthView.handle.(*wgpu.TextureView)
		if !ok || depthView == nil {
			return errors.New("gpu: begin render pass: invalid depth view handle")
		}
		depthLoadOp := wgpu.LoadOpLoad
		var depthClear float32
		if passDesc.DepthAttachment != nil && passDesc.DepthAttachment.LoadClear {
			depthLoadOp = wgpu.LoadOpClear
			depthClear = 1.0
		}
		rpDesc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            depthView,
			DepthLoadOp:     depthLoadOp,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: depthClear,
		}
	}

	r.pass = r.encoder.BeginRenderPass(rpDesc)
	return nil
}

func (r *wgpuRecorder) EndRenderPass() error {
	if r.pass == nil {
		return errors.New("gpu: end render pass: no active render pass")
	}
	if err := r.pass.End(); err != nil {
		return wrapErr("end render pass", err)
	}
	r.pass.Release()
	r.pass = nil
	return nil
}

func (r *wgpuRecorder) BindPipeline(p Pipeline) error {
	if r.pass == nil {
		return errors.New("gpu: bind pipeline: no active render pass")
	}
	switch h := p.handle.(type) {
	case *wgpu.RenderPipeline:
		r.pass.SetPipeline(h)
		return nil
	default:
		return errors.New("gpu: bind pipeline: not a render pipeline handle")
	}
}

func (r *wgpuRecorder) BindDescriptorSet(index uint32, set DescriptorSet) error {
	if r.pass == nil {
		return errors.New("gpu: bind descriptor set: no active render pass")
	}
	bg, err := r.device.Realize(set)
	if err != nil {
		return err
	}
	r.pass.SetBindGroup(index, bg, nil)
	return nil
}

func (r *wgpuRecorder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) error {
	if r.pass == nil {
		return errors.New("gpu: draw: no active render pass")
	}
	r.pass.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
	return nil
}

func (r *wgpuRecorder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) error {
	if r.pass == nil {
		return errors.New("gpu: draw indexed: no active render pass")
	}
	r.pass.DrawIndexed(indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
	return nil
}

func (r *wgpuRecorder) Dispatch(x, y, z uint32) error {
	return errors.New("gpu: dispatch: requires an active compute pass, not supported on this recorder path")
}

func (r *wgpuRecorder) PipelineBarrier(b Barrier) error {
	// WebGPU performs automatic resource state tracking; the graph planner
	// still synthesizes barriers for ordering/alias-safety reasoning, but
	// the default backend has no explicit pipeline barrier API to issue.
	return nil
}

func (r *wgpuRecorder) CopyBufferToBuffer(src, dst Buffer, srcOffset, dstOffset, size uint64) error {
	s, ok := src.handle.(*wgpu.Buffer)
	if !ok || s == nil {
		return errors.New("gpu: copy buffer to buffer: invalid src handle")
	}
	d2, ok := dst.handle.(*wgpu.Buffer)
	if !ok || d2 == nil {
		return errors.New("gpu: copy buffer to buffer: invalid dst handle")
	}
	r.encoder.CopyBufferToBuffer(s, srcOffset, d2, dstOffset, size)
	return nil
}

func (r *wgpuRecorder) CopyBufferToImage(src Buffer, srcOffset uint64, dst Image, region ImageCopyRegion) error {
	s, ok := src.handle.(*wgpu.Buffer)
	if !ok || s == nil {
		return errors.New("gpu: copy buffer to image: invalid src handle")
	}
	d2, ok := dst.handle.(*wgpu.Texture)
	if !ok || d2 == nil {
		return errors.New("gpu: copy buffer to image: invalid dst handle")
	}
	r.encoder.CopyBufferToTexture(
		&wgpu.ImageCopyBuffer{Buffer: s, Layout: wgpu.TextureDataLayout{Offset: srcOffset}},
		&wgpu.ImageCopyTexture{Texture: d2, Origin: wgpu.Origin3D{X: region.Offset.Width, Y: region.Offset.Height, Z: region.Offset.DepthOrArrayLayers}},
		&wgpu.Extent3D{Width: region.Extent.Width, Height: region.Extent.Height, DepthOrArrayLayers: max1(region.Extent.DepthOrArrayLayers)},
	)
	return nil
}
