package resource

import (
	"fmt"

	"github.com/oxyrender/core/gpu"
)

// The key types below are the hashable, comparable content-keys a cache
// dedupes on. Each mirrors the fields of the corresponding gpu *Desc type
// that affect object identity, so that two requests for an equal key always
// resolve to the same underlying resource.

type ImageKey struct {
	Label                              string
	Width, Height, DepthOrArrayLayers  uint32
	Format                             gpu.Format
	Usage                              gpu.UsageFlags
	SampleCount, MipLevels             uint32
}

type ImageViewKey struct {
	ImageID uint64
	Aspect  gpu.AspectFlags
	Format  gpu.Format
}

type BufferKey struct {
	Label string
	Size  uint64
	Usage gpu.UsageFlags
}

type SamplerKey struct {
	AddressModeU, AddressModeV, AddressModeW gpu.AddressMode
	MagFilter, MinFilter, MipmapFilter        gpu.FilterMode
	LodMinClamp, LodMaxClamp                  float32
	MaxAnisotropy                             uint16
}

type ShaderModuleKey struct {
	Label string
	Stage gpu.ShaderStage
	Hash  uint64
}

// maxSetBindings bounds how many bindings a descriptor set layout key can
// carry inline. WebGPU bind groups rarely exceed a handful of entries; 16
// covers every layout this module's loaders construct.
const maxSetBindings = 16

// maxPipelineSetLayouts mirrors WebGPU's conventional four-bind-group limit,
// the same figure gpu.Capabilities.MaxBoundDescriptors reports by default.
const maxPipelineSetLayouts = 4

// maxRenderPassColorAttachments bounds a render pass key's inline color
// attachment slots, matching the common MaxColorAttachments device limit.
const maxRenderPassColorAttachments = 8

// BindingKey is the hashable projection of a DescriptorSetLayoutBinding.
type BindingKey struct {
	Binding    uint32
	Type       gpu.BindingType
	Visibility gpu.ShaderStage
	Count      uint32
}

// bindingArray is a descriptor set layout's bindings canonicalized into a
// fixed, comparable array. Layouts with more than maxSetBindings entries are
// rejected by NewDescriptorSetLayoutKey rather than silently truncated.
type bindingArray = [maxSetBindings]BindingKey

type DescriptorSetLayoutKey struct {
	Label    string
	Bindings bindingArray
	Count    int
}

// NewDescriptorSetLayoutKey builds a DescriptorSetLayoutKey from a
// descriptor set layout description. Binding order is preserved as given,
// since two layouts that bind the same slots in a different order are not
// interchangeable.
func NewDescriptorSetLayoutKey(label string, bindings []gpu.DescriptorSetLayoutBinding) (DescriptorSetLayoutKey, error) {
	if len(bindings) > maxSetBindings {
		return DescriptorSetLayoutKey{}, fmt.Errorf("resource: descriptor set layout %q has %d bindings, exceeds max %d", label, len(bindings), maxSetBindings)
	}
	key := DescriptorSetLayoutKey{Label: label, Count: len(bindings)}
	for i, b := range bindings {
		key.Bindings[i] = BindingKey{Binding: b.Binding, Type: b.Type, Visibility: b.Visibility, Count: b.Count}
	}
	return key, nil
}

type setLayoutIDArray = [maxPipelineSetLayouts]uint64

type PipelineLayoutKey struct {
	SetLayoutIDs     setLayoutIDArray
	SetLayoutCount   int
	PushConstantSize uint32
}

// NewPipelineLayoutKey builds a PipelineLayoutKey from the resolved resource
// IDs of a pipeline layout's set layouts, in binding-set order.
func NewPipelineLayoutKey(setLayoutIDs []uint64, pushConstantSize uint32) (PipelineLayoutKey, error) {
	if len(setLayoutIDs) > maxPipelineSetLayouts {
		return PipelineLayoutKey{}, fmt.Errorf("resource: pipeline layout has %d set layouts, exceeds max %d", len(setLayoutIDs), maxPipelineSetLayouts)
	}
	key := PipelineLayoutKey{SetLayoutCount: len(setLayoutIDs), PushConstantSize: pushConstantSize}
	copy(key.SetLayoutIDs[:], setLayoutIDs)
	return key, nil
}

// PipelineKey identifies a pipeline by its Label alone; two pipeline
// descriptions that share a label map to the same key.
type PipelineKey struct {
	Label string
}

// AttachmentKey is the hashable projection of an AttachmentDesc.
type AttachmentKey struct {
	Format      gpu.Format
	SampleCount uint32
	LoadClear   bool
	FinalLayout gpu.Layout
}

type colorAttachmentArray = [maxRenderPassColorAttachments]AttachmentKey

type RenderPassKey struct {
	Label             string
	ColorAttachments  colorAttachmentArray
	ColorCount        int
	HasDepth          bool
	DepthAttachment   AttachmentKey
	HasResolve        bool
	ResolveAttachment AttachmentKey
}

// NewRenderPassKey builds a RenderPassKey from a render pass description.
func NewRenderPassKey(desc gpu.RenderPassDesc) (RenderPassKey, error) {
	if len(desc.ColorAttachments) > maxRenderPassColorAttachments {
		return RenderPassKey{}, fmt.Errorf("resource: render pass %q has %d color attachments, exceeds max %d", desc.Label, len(desc.ColorAttachments), maxRenderPassColorAttachments)
	}
	key := RenderPassKey{Label: desc.Label, ColorCount: len(desc.ColorAttachments)}
	for i, a := range desc.ColorAttachments {
		key.ColorAttachments[i] = attachmentKeyOf(a)
	}
	if desc.DepthAttachment != nil {
		key.HasDepth = true
		key.DepthAttachment = attachmentKeyOf(*desc.DepthAttachment)
	}
	if desc.ResolveAttachment != nil {
		key.HasResolve = true
		key.ResolveAttachment = attachmentKeyOf(*desc.ResolveAttachment)
	}
	return key, nil
}

func attachmentKeyOf(a gpu.AttachmentDesc) AttachmentKey {
	return AttachmentKey{Format: a.Format, SampleCount: a.SampleCount, LoadClear: a.LoadClear, FinalLayout: a.FinalLayout}
}

type colorViewIDArray = [maxRenderPassColorAttachments]uint64

type FramebufferKey struct {
	RenderPassID  uint64
	ColorViewIDs  colorViewIDArray
	ColorCount    int
	HasDepth      bool
	DepthViewID   uint64
	HasResolve    bool
	ResolveViewID uint64
	Width, Height uint32
}

// NewFramebufferKey builds a FramebufferKey from a framebuffer description
// and the resolved resource IDs of its bound views.
func NewFramebufferKey(renderPassID uint64, colorViewIDs []uint64, depthViewID *uint64, resolveViewID *uint64, width, height uint32) (FramebufferKey, error) {
	if len(colorViewIDs) > maxRenderPassColorAttachments {
		return FramebufferKey{}, fmt.Errorf("resource: framebuffer has %d color views, exceeds max %d", len(colorViewIDs), maxRenderPassColorAttachments)
	}
	key := FramebufferKey{RenderPassID: renderPassID, ColorCount: len(colorViewIDs), Width: width, Height: height}
	copy(key.ColorViewIDs[:], colorViewIDs)
	if depthViewID != nil {
		key.HasDepth = true
		key.DepthViewID = *depthViewID
	}
	if resolveViewID != nil {
		key.HasResolve = true
		key.ResolveViewID = *resolveViewID
	}
	return key, nil
}
