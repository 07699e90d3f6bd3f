package graph

import "github.com/oxyrender/core/gpu"

// Builder records nodes and their virtual image usage edges. Nothing is
// validated or scheduled until Build is called; recording is cheap append-
// only bookkeeping, mirroring the teacher's deferred-build patterns
// elsewhere in this module (the resource cache's lazy builder, the
// descriptor set's edit-then-flush pattern).
type Builder struct {
	nodes          []*node
	imageResources []*imageResource
	imageUsages    []*imageUsage
	outputs        map[int]*outputBinding
}

// NewBuilder returns an empty render graph recording.
func NewBuilder() *Builder {
	return &Builder{outputs: make(map[int]*outputBinding)}
}

// AddNode records a new node targeting queue, whose commands are recorded
// by callback once the planner has begun its render pass (or, for a node
// with no attachments, once a bare command buffer recording has started).
func (b *Builder) AddNode(queue gpu.QueueFamily, callback NodeCallback) NodeID {
	id := NodeID(len(b.nodes))
	b.nodes = append(b.nodes, &node{id: id, queue: queue, callback: callback})
	return id
}

func (b *Builder) addUsage(n NodeID, version ImageVersionID, kind usageKind, constraint ImageConstraint, layout gpu.Layout) ImageUsageID {
	id := ImageUsageID(len(b.imageUsages))
	b.imageUsages = append(b.imageUsages, &imageUsage{
		node:            n,
		version:         version,
		kind:            kind,
		constraint:      constraint,
		preferredLayout: layout,
	})
	return id
}

// CreateImage records createNode as the sole creator of a brand new virtual
// image, returning a usage id naming its first version.
func (b *Builder) CreateImage(createNode NodeID, constraint ImageConstraint, preferredLayout gpu.Layout) ImageUsageID {
	versionID := ImageVersionID{Index: len(b.imageResources)}
	usage := b.addUsage(createNode, versionID, usageCreate, constraint, preferredLayout)
	b.imageResources = append(b.imageResources, &imageResource{
		versions: []imageVersionInfo{{creator: createNode, createUsage: usage}},
	})
	b.nodes[createNode].imageCreates = append(b.nodes[createNode].imageCreates, imageEdge{usage: usage, constraint: constraint})
	return usage
}

// CreateColorAttachment is CreateImage plus registration of the resulting
// usage as color attachment slot index of node, with load/clear semantics.
func (b *Builder) CreateColorAttachment(node_ NodeID, index int, constraint ImageConstraint, clear gpu.ClearValue, hasClear bool) ImageUsageID {
	constraint.Usage |= gpu.UsageColorAttachment
	constraint.Aspect |= gpu.AspectColor
	usage := b.CreateImage(node_, constraint, gpu.LayoutColorAttachment)

	n := b.nodes[node_]
	for len(n.colorAttachments) <= index {
		n.colorAttachments = append(n.colorAttachments, nil)
	}
	n.colorAttachments[index] = &attachmentSlot{usage: usage, clear: clear, hasClear: hasClear}
	return usage
}

// CreateDepthAttachment is CreateImage plus registration as node's depth
// attachment.
func (b *Builder) CreateDepthAttachment(node_ NodeID, constraint ImageConstraint, clear gpu.ClearValue, hasClear bool) ImageUsageID {
	constraint.Usage |= gpu.UsageDepthStencilAttachment
	constraint.Aspect |= gpu.AspectDepth
	usage := b.CreateImage(node_, constraint, gpu.LayoutDepthStencilAttachment)

	b.nodes[node_].depthAttachment = &attachmentSlot{usage: usage, clear: clear, hasClear: hasClear}
	return usage
}

// CreateUnattachedImage records a virtual image created by createNode for
// storage/transfer purposes (not bound as an attachment).
func (b *Builder) CreateUnattachedImage(createNode NodeID, constraint ImageConstraint) ImageUsageID {
	return b.CreateImage(createNode, constraint, gpu.LayoutUndefined)
}

// ReadImage records readNode reading the version named by usage (e.g. a
// sampled-image binding), without creating a new version.
func (b *Builder) ReadImage(readNode NodeID, usage ImageUsageID, constraint ImageConstraint, preferredLayout gpu.Layout) ImageUsageID {
	versionID := b.imageUsages[usage].version
	readUsage := b.addUsage(readNode, versionID, usageRead, constraint, preferredLayout)

	res := b.imageResources[versionID.Index]
	res.versions[versionID.Version].readUsages = append(res.versions[versionID.Version].readUsages, readUsage)

	b.nodes[readNode].imageReads = append(b.nodes[readNode].imageReads, imageEdge{usage: readUsage, constraint: constraint})
	return readUsage
}

// SampleImage is ReadImage with the shader-read-only layout and sampled
// usage flag implied; the common case for a fragment shader texture
// binding.
func (b *Builder) SampleImage(readNode NodeID, usage ImageUsageID, constraint ImageConstraint) ImageUsageID {
	constraint.Usage |= gpu.UsageSampled
	constraint.Aspect |= gpu.AspectColor
	return b.ReadImage(readNode, usage, constraint, gpu.LayoutShaderReadOnly)
}

// ModifyImage records modifyNode reading the version named by usage and
// producing a new version of the same virtual image, returning both the
// read-side and write-side usage ids.
func (b *Builder) ModifyImage(modifyNode NodeID, usage ImageUsageID, constraint ImageConstraint) (ImageUsageID, ImageUsageID) {
	readVersion := b.imageUsages[usage].version
	readUsage := b.addUsage(modifyNode, readVersion, usageModifyRead, constraint, gpu.LayoutGeneral)

	res := b.imageResources[readVersion.Index]
	res.versions[readVersion.Version].readUsages = append(res.versions[readVersion.Version].readUsages, readUsage)

	writeVersion := ImageVersionID{Index: readVersion.Index, Version: len(res.versions)}
	writeUsage := b.addUsage(modifyNode, writeVersion, usageModifyWrite, constraint, gpu.LayoutGeneral)
	res.versions = append(res.versions, imageVersionInfo{creator: modifyNode, createUsage: writeUsage})

	b.nodes[modifyNode].imageModifies = append(b.nodes[modifyNode].imageModifies, imageModifyEdge{
		input: readUsage, output: writeUsage, constraint: constraint,
	})
	return readUsage, writeUsage
}

// SetOutputImage pins the version named by usage to a concrete, externally
// owned image (typically a swapchain back-buffer), with finalLayout as the
// layout the plan must leave it in. Pinned images are never aliased.
func (b *Builder) SetOutputImage(usage ImageUsageID, image gpu.Image, view gpu.ImageView, finalLayout gpu.Layout) {
	versionID := b.imageUsages[usage].version
	b.outputs[versionID.Index] = &outputBinding{usage: usage, image: image, view: view, finalLayout: finalLayout}
}

// Build runs the planner over the recorded graph against swapchainExtent
// (used to resolve any constraint marked MatchSwapchain) and device (used
// to allocate concrete images/views/render passes/framebuffers for the
// resulting plan).
func (b *Builder) Build(device gpu.Device, swapchainExtent gpu.Extent3D) (*Plan, error) {
	p := &planner{b: b, device: device, swapchainExtent: swapchainExtent}
	return p.build()
}
