package resource

import (
	"testing"

	"github.com/oxyrender/core/gpu"
)

func TestDescriptorSetLayoutKeyEqualForEqualBindings(t *testing.T) {
	bindings := []gpu.DescriptorSetLayoutBinding{
		{Binding: 0, Type: gpu.BindingUniformBuffer, Visibility: gpu.StageVertex, Count: 1},
		{Binding: 1, Type: gpu.BindingSampledImage, Visibility: gpu.StageFragment, Count: 1},
	}

	a, err := NewDescriptorSetLayoutKey("material", bindings)
	if err != nil {
		t.Fatalf("NewDescriptorSetLayoutKey() error = %v", err)
	}
	b, err := NewDescriptorSetLayoutKey("material", bindings)
	if err != nil {
		t.Fatalf("NewDescriptorSetLayoutKey() error = %v", err)
	}
	if a != b {
		t.Fatalf("keys built from identical bindings differ: %+v vs %+v", a, b)
	}

	reordered := []gpu.DescriptorSetLayoutBinding{bindings[1], bindings[0]}
	c, err := NewDescriptorSetLayoutKey("material", reordered)
	if err != nil {
		t.Fatalf("NewDescriptorSetLayoutKey() error = %v", err)
	}
	if a == c {
		t.Fatalf("keys with reordered bindings should not be equal")
	}
}

func TestDescriptorSetLayoutKeyRejectsTooManyBindings(t *testing.T) {
	bindings := make([]gpu.DescriptorSetLayoutBinding, maxSetBindings+1)
	if _, err := NewDescriptorSetLayoutKey("too-big", bindings); err == nil {
		t.Fatalf("expected an error exceeding maxSetBindings")
	}
}

func TestPipelineLayoutKeyEqualForEqualSetLayouts(t *testing.T) {
	a, err := NewPipelineLayoutKey([]uint64{1, 2}, 64)
	if err != nil {
		t.Fatalf("NewPipelineLayoutKey() error = %v", err)
	}
	b, err := NewPipelineLayoutKey([]uint64{1, 2}, 64)
	if err != nil {
		t.Fatalf("NewPipelineLayoutKey() error = %v", err)
	}
	if a != b {
		t.Fatalf("keys built from identical set layouts differ: %+v vs %+v", a, b)
	}

	c, err := NewPipelineLayoutKey([]uint64{2, 1}, 64)
	if err != nil {
		t.Fatalf("NewPipelineLayoutKey() error = %v", err)
	}
	if a == c {
		t.Fatalf("keys with set layouts bound in a different order should not be equal")
	}
}

func TestRenderPassKeyDistinguishesAttachmentSets(t *testing.T) {
	single := gpu.RenderPassDesc{
		Label:            "single",
		ColorAttachments: []gpu.AttachmentDesc{{Format: gpu.FormatRGBA8Unorm, SampleCount: 1, LoadClear: true, FinalLayout: gpu.LayoutPresent}},
	}
	withDepth := single
	withDepth.DepthAttachment = &gpu.AttachmentDesc{Format: gpu.FormatDepth32Float, SampleCount: 1, FinalLayout: gpu.LayoutDepthStencilAttachment}

	a, err := NewRenderPassKey(single)
	if err != nil {
		t.Fatalf("NewRenderPassKey() error = %v", err)
	}
	b, err := NewRenderPassKey(withDepth)
	if err != nil {
		t.Fatalf("NewRenderPassKey() error = %v", err)
	}
	if a == b {
		t.Fatalf("render pass keys with and without a depth attachment should not be equal")
	}
	if !b.HasDepth {
		t.Fatalf("expected HasDepth = true for a depth-bearing render pass")
	}
}

func TestFramebufferKeyRejectsTooManyColorViews(t *testing.T) {
	views := make([]uint64, maxRenderPassColorAttachments+1)
	if _, err := NewFramebufferKey(1, views, nil, nil, 64, 64); err == nil {
		t.Fatalf("expected an error exceeding maxRenderPassColorAttachments")
	}
}
