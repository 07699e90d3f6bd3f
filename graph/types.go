// Package graph records a render graph as nodes and versioned virtual image
// usages, then compiles it into a concrete ordered plan of render passes,
// barriers and framebuffers, adapted from the node/edge recording and
// planner structure in rafx-resources' graph builder but restated over this
// module's own gpu.Device abstraction (which, unlike Vulkan, has no
// first-class render pass or subpass concept).
package graph

import "github.com/oxyrender/core/gpu"

// NodeID identifies one recorded graph node.
type NodeID int

// ImageUsageID identifies one recorded read/write/create edge against a
// virtual image. It is the handle callers pass between builder calls; the
// version it refers to is implicit.
type ImageUsageID int

// ImageVersionID names one logical state of a virtual image: the state
// produced by a specific writer.
type ImageVersionID struct {
	Index   int
	Version int
}

type usageKind int

const (
	usageCreate usageKind = iota
	usageRead
	usageModifyRead
	usageModifyWrite
)

// ImageConstraint is the set of requirements a usage places on the virtual
// image it touches. A zero value for any field means "unconstrained by this
// usage"; constraint propagation merges these across every usage of an
// image.
type ImageConstraint struct {
	Format         gpu.Format
	Extent         gpu.Extent3D
	MatchSwapchain bool
	Usage          gpu.UsageFlags
	Aspect         gpu.AspectFlags
	SampleCount    uint32
}

func mergeConstraint(dst ImageConstraint, src ImageConstraint, image int) (ImageConstraint, error) {
	dst.Usage |= src.Usage
	dst.Aspect |= src.Aspect
	if src.MatchSwapchain {
		dst.MatchSwapchain = true
	}

	if src.Format != gpu.FormatUndefined {
		if dst.Format != gpu.FormatUndefined && dst.Format != src.Format {
			return dst, &ConstraintConflictError{Image: image, Reason: "format mismatch between usages"}
		}
		dst.Format = src.Format
	}

	zeroExtent := gpu.Extent3D{}
	if src.Extent != zeroExtent {
		if dst.Extent != zeroExtent && dst.Extent != src.Extent && !dst.MatchSwapchain {
			return dst, &ConstraintConflictError{Image: image, Reason: "extent mismatch between usages"}
		}
		dst.Extent = src.Extent
	}

	if src.SampleCount != 0 {
		if dst.SampleCount != 0 && dst.SampleCount != src.SampleCount {
			return dst, &ConstraintConflictError{Image: image, Reason: "sample count mismatch between usages"}
		}
		dst.SampleCount = src.SampleCount
	}

	return dst, nil
}

// NodeCallback records the GPU commands for one node once its render pass
// (if any) has begun.
type NodeCallback func(rec gpu.Recorder) error

type attachmentSlot struct {
	usage    ImageUsageID
	clear    gpu.ClearValue
	hasClear bool
}

type imageEdge struct {
	usage      ImageUsageID
	constraint ImageConstraint
}

type imageModifyEdge struct {
	input, output ImageUsageID
	constraint    ImageConstraint
}

type node struct {
	id       NodeID
	queue    gpu.QueueFamily
	callback NodeCallback

	colorAttachments []*attachmentSlot
	depthAttachment  *attachmentSlot

	imageCreates  []imageEdge
	imageReads    []imageEdge
	imageModifies []imageModifyEdge
}

// isGraphicsPass reports whether this node has any attachments and so needs
// a render pass rather than a bare command recording.
func (n *node) isGraphicsPass() bool {
	return len(n.colorAttachments) > 0 || n.depthAttachment != nil
}

type imageVersionInfo struct {
	creator     NodeID
	createUsage ImageUsageID
	readUsages  []ImageUsageID
}

type imageResource struct {
	versions []imageVersionInfo
}

type imageUsage struct {
	node            NodeID
	version         ImageVersionID
	kind            usageKind
	constraint      ImageConstraint
	preferredLayout gpu.Layout
}

type outputBinding struct {
	usage       ImageUsageID
	image       gpu.Image
	view        gpu.ImageView
	finalLayout gpu.Layout
}
