package graph

import (
	"context"
	"testing"

	"github.com/oxyrender/core/gpu"
)

// fakeDevice is a minimal gpu.Device that records just enough to let the
// planner's tests assert on render pass/framebuffer/image shapes without a
// real GPU.
type fakeDevice struct {
	renderPasses []gpu.RenderPassDesc
	images       []gpu.ImageDesc
}

func (f *fakeDevice) CreateImage(desc gpu.ImageDesc) (gpu.Image, error) {
	f.images = append(f.images, desc)
	return gpu.Image{}, nil
}
func (f *fakeDevice) DestroyImage(gpu.Image) error { return nil }
func (f *fakeDevice) CreateImageView(gpu.Image, gpu.ImageViewDesc) (gpu.ImageView, error) {
	return gpu.ImageView{}, nil
}
func (f *fakeDevice) DestroyImageView(gpu.ImageView) error { return nil }
func (f *fakeDevice) CreateBuffer(gpu.BufferDesc) (gpu.Buffer, error) {
	return gpu.Buffer{}, nil
}
func (f *fakeDevice) DestroyBuffer(gpu.Buffer) error { return nil }
func (f *fakeDevice) CreateSampler(gpu.SamplerDesc) (gpu.Sampler, error) {
	return gpu.Sampler{}, nil
}
func (f *fakeDevice) DestroySampler(gpu.Sampler) error { return nil }
func (f *fakeDevice) CreateShaderModule(gpu.ShaderModuleDesc) (gpu.ShaderModule, error) {
	return gpu.ShaderModule{}, nil
}
func (f *fakeDevice) DestroyShaderModule(gpu.ShaderModule) error { return nil }
func (f *fakeDevice) CreateDescriptorSetLayout(gpu.DescriptorSetLayoutDesc) (gpu.DescriptorSetLayout, error) {
	return gpu.DescriptorSetLayout{}, nil
}
func (f *fakeDevice) DestroyDescriptorSetLayout(gpu.DescriptorSetLayout) error { return nil }
func (f *fakeDevice) CreatePipelineLayout(gpu.PipelineLayoutDesc) (gpu.PipelineLayout, error) {
	return gpu.PipelineLayout{}, nil
}
func (f *fakeDevice) DestroyPipelineLayout(gpu.PipelineLayout) error { return nil }
func (f *fakeDevice) CreatePipeline(gpu.PipelineDesc) (gpu.Pipeline, error) {
	return gpu.Pipeline{}, nil
}
func (f *fakeDevice) DestroyPipeline(gpu.Pipeline) error { return nil }
func (f *fakeDevice) CreateRenderPass(desc gpu.RenderPassDesc) (gpu.RenderPass, error) {
	f.renderPasses = append(f.renderPasses, desc)
	return gpu.RenderPass{}, nil
}
func (f *fakeDevice) DestroyRenderPass(gpu.RenderPass) error { return nil }
func (f *fakeDevice) CreateFramebuffer(gpu.RenderPass, gpu.FramebufferDesc) (gpu.Framebuffer, error) {
	return gpu.Framebuffer{}, nil
}
func (f *fakeDevice) DestroyFramebuffer(gpu.Framebuffer) error { return nil }
func (f *fakeDevice) CreateDescriptorPool(gpu.DescriptorPoolSizes) (gpu.DescriptorPool, error) {
	return gpu.DescriptorPool{}, nil
}
func (f *fakeDevice) AllocateDescriptorSet(gpu.DescriptorPool, gpu.DescriptorSetLayout) (gpu.DescriptorSet, error) {
	return gpu.DescriptorSet{}, nil
}
func (f *fakeDevice) ResetPool(gpu.DescriptorPool) error { return nil }
func (f *fakeDevice) UpdateDescriptorSet(gpu.DescriptorSet, []gpu.DescriptorWrite) error {
	return nil
}
func (f *fakeDevice) AllocateCommandBuffer(gpu.QueueFamily) (gpu.CommandBuffer, error) {
	return gpu.CommandBuffer{}, nil
}
func (f *fakeDevice) Record(gpu.CommandBuffer, func(gpu.Recorder) error) error { return nil }
func (f *fakeDevice) Submit(gpu.QueueFamily, []gpu.CommandBuffer, []gpu.Semaphore, []gpu.Semaphore, *gpu.Fence) error {
	return nil
}
func (f *fakeDevice) DeviceWaitIdle(context.Context) error { return nil }
func (f *fakeDevice) Capabilities() gpu.Capabilities       { return gpu.Capabilities{} }

func TestSinglePassClear(t *testing.T) {
	b := NewBuilder()
	dev := &fakeDevice{}

	n := b.AddNode(gpu.QueueGraphics, func(gpu.Recorder) error { return nil })
	clear := gpu.ClearValue{Color: [4]float32{0.1, 0.2, 0.3, 1.0}}
	usage := b.CreateColorAttachment(n, 0, ImageConstraint{
		Extent: gpu.Extent3D{Width: 64, Height: 64, DepthOrArrayLayers: 1},
		Format: gpu.FormatRGBA8Unorm,
	}, clear, true)
	b.SetOutputImage(usage, gpu.Image{}, gpu.ImageView{}, gpu.LayoutPresent)

	plan, err := b.Build(dev, gpu.Extent3D{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	// One render pass plus a trailing barrier-only entry transitioning the
	// output into its declared present layout.
	if len(plan.Passes) != 2 {
		t.Fatalf("len(Passes) = %d, want 2", len(plan.Passes))
	}
	pass := plan.Passes[0]
	if !pass.HasPass {
		t.Fatalf("expected a render pass")
	}
	if len(pass.ClearValues) != 1 || pass.ClearValues[0] != clear {
		t.Fatalf("ClearValues = %v, want [%v]", pass.ClearValues, clear)
	}
	if len(pass.Barriers) != 1 {
		t.Fatalf("Barriers = %v, want exactly one Undefined->ColorAttachment transition", pass.Barriers)
	}
	if pass.Barriers[0].OldLayout != gpu.LayoutUndefined || pass.Barriers[0].NewLayout != gpu.LayoutColorAttachment {
		t.Fatalf("barrier = %+v, want Undefined -> ColorAttachment", pass.Barriers[0])
	}

	final := plan.Passes[1]
	if final.HasPass {
		t.Fatalf("trailing entry should not be a render pass")
	}
	if len(final.Barriers) != 1 || final.Barriers[0].NewLayout != gpu.LayoutPresent {
		t.Fatalf("final barriers = %v, want one transition to LayoutPresent", final.Barriers)
	}
}

func TestTwoPassesWithAlias(t *testing.T) {
	b := NewBuilder()
	dev := &fakeDevice{}

	nodeA := b.AddNode(gpu.QueueGraphics, func(gpu.Recorder) error { return nil })
	x := b.CreateUnattachedImage(nodeA, ImageConstraint{
		Extent: gpu.Extent3D{Width: 32, Height: 32, DepthOrArrayLayers: 1},
		Format: gpu.FormatRGBA8Unorm,
		Usage:  gpu.UsageColorAttachment | gpu.UsageSampled,
	})

	nodeB := b.AddNode(gpu.QueueGraphics, func(gpu.Recorder) error { return nil })
	xSampled := b.SampleImage(nodeB, x, ImageConstraint{})
	_ = xSampled
	y := b.CreateColorAttachment(nodeB, 0, ImageConstraint{
		Extent: gpu.Extent3D{Width: 32, Height: 32, DepthOrArrayLayers: 1},
		Format: gpu.FormatRGBA8Unorm,
	}, gpu.ClearValue{}, false)
	b.SetOutputImage(y, gpu.Image{}, gpu.ImageView{}, gpu.LayoutPresent)

	plan, err := b.Build(dev, gpu.Extent3D{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	// nodeA (bare recording), nodeB (render pass), plus a trailing entry
	// transitioning Y from ColorAttachment to its declared present layout.
	if len(plan.Passes) != 3 {
		t.Fatalf("len(Passes) = %d, want 3", len(plan.Passes))
	}
	// X is unattached and non-output, so it gets its own alias allocation
	// distinct from Y (the pinned output): exactly one non-output image
	// should have been created through the device.
	if len(dev.images) != 1 {
		t.Fatalf("images created = %d, want 1 (X only; Y is pinned)", len(dev.images))
	}
}

func TestVersionFanOutOrdering(t *testing.T) {
	b := NewBuilder()
	dev := &fakeDevice{}

	nodeA := b.AddNode(gpu.QueueGraphics, func(gpu.Recorder) error { return nil })
	x := b.CreateUnattachedImage(nodeA, ImageConstraint{
		Extent: gpu.Extent3D{Width: 16, Height: 16, DepthOrArrayLayers: 1},
		Format: gpu.FormatRGBA8Unorm,
	})

	nodeB := b.AddNode(gpu.QueueGraphics, func(gpu.Recorder) error { return nil })
	b.SampleImage(nodeB, x, ImageConstraint{})

	nodeC := b.AddNode(gpu.QueueGraphics, func(gpu.Recorder) error { return nil })
	b.SampleImage(nodeC, x, ImageConstraint{})

	nodeD := b.AddNode(gpu.QueueGraphics, func(gpu.Recorder) error { return nil })
	_, xPrime := b.ModifyImage(nodeD, x, ImageConstraint{})
	b.SetOutputImage(xPrime, gpu.Image{}, gpu.ImageView{}, gpu.LayoutGeneral)

	plan, err := b.Build(dev, gpu.Extent3D{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(plan.Passes) != 4 {
		t.Fatalf("len(Passes) = %d, want 4 (A, B, C, D)", len(plan.Passes))
	}
}

func TestCycleDetected(t *testing.T) {
	b := NewBuilder()
	dev := &fakeDevice{}

	nodeA := b.AddNode(gpu.QueueGraphics, func(gpu.Recorder) error { return nil })
	x := b.CreateUnattachedImage(nodeA, ImageConstraint{})

	nodeB := b.AddNode(gpu.QueueGraphics, func(gpu.Recorder) error { return nil })
	read := b.SampleImage(nodeB, x, ImageConstraint{})

	// Force a cycle: have A "read" the version B produced by modifying the
	// image it itself created, using ModifyImage on the read usage from B.
	_, xPrime := b.ModifyImage(nodeB, read, ImageConstraint{})
	b.ReadImage(nodeA, xPrime, ImageConstraint{}, gpu.LayoutGeneral)
	b.SetOutputImage(xPrime, gpu.Image{}, gpu.ImageView{}, gpu.LayoutGeneral)

	_, err := b.Build(dev, gpu.Extent3D{})
	if err == nil {
		t.Fatalf("expected a CycleDetectedError")
	}
	var cycleErr *CycleDetectedError
	if !isCycleDetected(err, &cycleErr) {
		t.Fatalf("Build() error = %v, want *CycleDetectedError", err)
	}
}

func isCycleDetected(err error, target **CycleDetectedError) bool {
	if ce, ok := err.(*CycleDetectedError); ok {
		*target = ce
		return true
	}
	return false
}

func TestConstraintConflict(t *testing.T) {
	b := NewBuilder()
	dev := &fakeDevice{}

	n := b.AddNode(gpu.QueueGraphics, func(gpu.Recorder) error { return nil })
	usage := b.CreateUnattachedImage(n, ImageConstraint{Format: gpu.FormatRGBA8Unorm})

	// n2 both reads X (with a conflicting format constraint) and produces
	// the graph's output, so the live-set traversal pulls both X and its
	// conflicting read into the constraint merge.
	n2 := b.AddNode(gpu.QueueGraphics, func(gpu.Recorder) error { return nil })
	b.SampleImage(n2, usage, ImageConstraint{Format: gpu.FormatBGRA8UnormSRGB})
	out := b.CreateColorAttachment(n2, 0, ImageConstraint{Format: gpu.FormatRGBA8Unorm}, gpu.ClearValue{}, false)
	b.SetOutputImage(out, gpu.Image{}, gpu.ImageView{}, gpu.LayoutPresent)

	_, err := b.Build(dev, gpu.Extent3D{})
	if err == nil {
		t.Fatalf("expected a ConstraintConflictError")
	}
	if _, ok := err.(*ConstraintConflictError); !ok {
		t.Fatalf("Build() error = %v (%T), want *ConstraintConflictError", err, err)
	}
}
