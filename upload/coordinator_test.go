package upload

import (
	"context"
	"testing"

	"github.com/oxyrender/core/gpu"
)

// fakeDevice is a minimal gpu.Device sufficient to drive the coordinator's
// enqueue path without touching a real GPU.
type fakeDevice struct{}

func (fakeDevice) CreateImage(gpu.ImageDesc) (gpu.Image, error) { return gpu.Image{}, nil }
func (fakeDevice) DestroyImage(gpu.Image) error                { return nil }
func (fakeDevice) CreateImageView(gpu.Image, gpu.ImageViewDesc) (gpu.ImageView, error) {
	return gpu.ImageView{}, nil
}
func (fakeDevice) DestroyImageView(gpu.ImageView) error { return nil }
func (fakeDevice) CreateBuffer(gpu.BufferDesc) (gpu.Buffer, error) {
	return gpu.Buffer{}, nil
}
func (fakeDevice) DestroyBuffer(gpu.Buffer) error                   { return nil }
func (fakeDevice) CreateSampler(gpu.SamplerDesc) (gpu.Sampler, error) { return gpu.Sampler{}, nil }
func (fakeDevice) DestroySampler(gpu.Sampler) error                 { return nil }
func (fakeDevice) CreateShaderModule(gpu.ShaderModuleDesc) (gpu.ShaderModule, error) {
	return gpu.ShaderModule{}, nil
}
func (fakeDevice) DestroyShaderModule(gpu.ShaderModule) error { return nil }
func (fakeDevice) CreateDescriptorSetLayout(gpu.DescriptorSetLayoutDesc) (gpu.DescriptorSetLayout, error) {
	return gpu.DescriptorSetLayout{}, nil
}
func (fakeDevice) DestroyDescriptorSetLayout(gpu.DescriptorSetLayout) error { return nil }
func (fakeDevice) CreatePipelineLayout(gpu.PipelineLayoutDesc) (gpu.PipelineLayout, error) {
	return gpu.PipelineLayout{}, nil
}
func (fakeDevice) DestroyPipelineLayout(gpu.PipelineLayout) error { return nil }
func (fakeDevice) CreatePipeline(gpu.PipelineDesc) (gpu.Pipeline, error) {
	return gpu.Pipeline{}, nil
}
func (fakeDevice) DestroyPipeline(gpu.Pipeline) error { return nil }
func (fakeDevice) CreateRenderPass(gpu.RenderPassDesc) (gpu.RenderPass, error) {
	return gpu.RenderPass{}, nil
}
func (fakeDevice) DestroyRenderPass(gpu.RenderPass) error { return nil }
func (fakeDevice) CreateFramebuffer(gpu.RenderPass, gpu.FramebufferDesc) (gpu.Framebuffer, error) {
	return gpu.Framebuffer{}, nil
}
func (fakeDevice) DestroyFramebuffer(gpu.Framebuffer) error { return nil }
func (fakeDevice) CreateDescriptorPool(gpu.DescriptorPoolSizes) (gpu.DescriptorPool, error) {
	return gpu.DescriptorPool{}, nil
}
func (fakeDevice) AllocateDescriptorSet(gpu.DescriptorPool, gpu.DescriptorSetLayout) (gpu.DescriptorSet, error) {
	return gpu.DescriptorSet{}, nil
}
func (fakeDevice) ResetPool(gpu.DescriptorPool) error { return nil }
func (fakeDevice) UpdateDescriptorSet(gpu.DescriptorSet, []gpu.DescriptorWrite) error {
	return nil
}
func (fakeDevice) AllocateCommandBuffer(gpu.QueueFamily) (gpu.CommandBuffer, error) {
	return gpu.CommandBuffer{}, nil
}
func (fakeDevice) Record(gpu.CommandBuffer, func(gpu.Recorder) error) error { return nil }
func (fakeDevice) Submit(gpu.QueueFamily, []gpu.CommandBuffer, []gpu.Semaphore, []gpu.Semaphore, *gpu.Fence) error {
	return nil
}
func (fakeDevice) DeviceWaitIdle(context.Context) error { return nil }
func (fakeDevice) Capabilities() gpu.Capabilities       { return gpu.Capabilities{} }

func TestUploadCompletionOrderingIndependentOfSubmitOrder(t *testing.T) {
	c := NewCoordinator(fakeDevice{}, gpu.QueueTransfer)

	resultA := c.EnqueueBuffer([]byte("a"), gpu.Buffer{}, 0)
	resultB := c.EnqueueBuffer([]byte("b"), gpu.Buffer{}, 0)

	if c.Pending() != 2 {
		t.Fatalf("Pending() = %d, want 2", c.Pending())
	}

	// B's fence signals first; A is still pending.
	c.PollSignaled(2, nil)

	select {
	case res := <-resultB:
		if !res.Completed() {
			t.Fatalf("result for B: err = %v, want nil", res.Err)
		}
	default:
		t.Fatalf("expected a completion for B, got none")
	}

	select {
	case <-resultA:
		t.Fatalf("did not expect a completion for A yet")
	default:
	}

	// A's fence signals afterward.
	c.PollSignaled(1, nil)
	select {
	case res := <-resultA:
		if !res.Completed() {
			t.Fatalf("result for A: err = %v, want nil", res.Err)
		}
	default:
		t.Fatalf("expected a completion for A, got none")
	}

	if c.Pending() != 0 {
		t.Fatalf("Pending() = %d, want 0", c.Pending())
	}
}

func TestPollSignaledUnknownIDIsSilentlyAbsorbed(t *testing.T) {
	c := NewCoordinator(fakeDevice{}, gpu.QueueTransfer)
	c.PollSignaled(999, nil)
}

func TestEnqueueBufferDataReinterpretsTypedSlice(t *testing.T) {
	c := NewCoordinator(fakeDevice{}, gpu.QueueTransfer)

	type vertex struct {
		X, Y, Z float32
	}
	verts := []vertex{{1, 2, 3}, {4, 5, 6}}

	result := EnqueueBufferData(c, verts, gpu.Buffer{}, 0)
	if c.Pending() != 1 {
		t.Fatalf("Pending() = %d, want 1", c.Pending())
	}

	c.PollSignaled(1, nil)
	res := <-result
	if !res.Completed() {
		t.Fatalf("result: err = %v, want nil", res.Err)
	}
	if len(res.Request.Bytes) != len(verts)*12 {
		t.Fatalf("Bytes length = %d, want %d", len(res.Request.Bytes), len(verts)*12)
	}
}

func TestEnqueueUniformReinterpretsStruct(t *testing.T) {
	c := NewCoordinator(fakeDevice{}, gpu.QueueTransfer)

	type frameUniform struct {
		ViewProj [16]float32
		Time     float32
	}
	u := frameUniform{Time: 1.5}

	result := EnqueueUniform(c, &u, gpu.Buffer{}, 0)
	c.PollSignaled(1, nil)
	res := <-result
	if !res.Completed() {
		t.Fatalf("result: err = %v, want nil", res.Err)
	}
	if len(res.Request.Bytes) != 16*4+4 {
		t.Fatalf("Bytes length = %d, want %d", len(res.Request.Bytes), 16*4+4)
	}
}
