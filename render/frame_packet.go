package render

import (
	"fmt"
	"sync"
)

// FrameNodeIndex identifies one entry in a feature's per-frame render-node
// list.
type FrameNodeIndex uint32

// RenderNodeHandle names one engine-side render node (e.g. one sprite, one
// mesh instance) belonging to a feature.
type RenderNodeHandle struct {
	Feature         FeatureIndex
	RenderNodeIndex uint32
}

// ViewNode is the per-view record of one render node's participation: it
// says "this view touches the render node identified by frameNodeIndex
// within this feature's frame-node list".
type ViewNode struct {
	View            ViewIndex
	Feature         FeatureIndex
	FrameNodeIndex  FrameNodeIndex
	RenderNodeIndex uint32
}

// FramePacketBuilder deduplicates render-node visibility results into one
// frame-node list per feature and one view-node list per view, adapted from
// rafx-framework's frame packet construction.
type FramePacketBuilder struct {
	mu sync.Mutex

	maxNodesPerFeature uint32
	frameNodes         map[FeatureIndex][]RenderNodeHandle
	frameNodeIndex     map[FeatureIndex]map[uint32]FrameNodeIndex
	viewNodes          map[ViewIndex][]ViewNode
	built              bool
}

// NewFramePacketBuilder returns a builder capping each feature's frame-node
// list at maxNodesPerFeature (0 means unbounded).
func NewFramePacketBuilder(maxNodesPerFeature uint32) *FramePacketBuilder {
	return &FramePacketBuilder{
		maxNodesPerFeature: maxNodesPerFeature,
		frameNodes:         make(map[FeatureIndex][]RenderNodeHandle),
		frameNodeIndex:     make(map[FeatureIndex]map[uint32]FrameNodeIndex),
		viewNodes:          make(map[ViewIndex][]ViewNode),
	}
}

// AppendFrameNode assigns handle a frame-node index within its feature's
// list, reusing the existing index if this render node was already
// appended this frame.
func (fb *FramePacketBuilder) AppendFrameNode(handle RenderNodeHandle) (FrameNodeIndex, error) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.built {
		return 0, fmt.Errorf("render: frame packet already built")
	}

	byNode := fb.frameNodeIndex[handle.Feature]
	if byNode == nil {
		byNode = make(map[uint32]FrameNodeIndex)
		fb.frameNodeIndex[handle.Feature] = byNode
	}
	if idx, ok := byNode[handle.RenderNodeIndex]; ok {
		return idx, nil
	}

	list := fb.frameNodes[handle.Feature]
	if fb.maxNodesPerFeature != 0 && uint32(len(list)) >= fb.maxNodesPerFeature {
		return 0, fmt.Errorf("render: feature %d exceeded max frame nodes (%d)", handle.Feature, fb.maxNodesPerFeature)
	}
	idx := FrameNodeIndex(len(list))
	fb.frameNodes[handle.Feature] = append(list, handle)
	byNode[handle.RenderNodeIndex] = idx
	return idx, nil
}

// AppendViewNode records that view touches the render node named by handle,
// already assigned frameNodeIndex within its feature's frame-node list.
func (fb *FramePacketBuilder) AppendViewNode(view ViewIndex, handle RenderNodeHandle, frameNodeIndex FrameNodeIndex) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.built {
		return fmt.Errorf("render: frame packet already built")
	}
	fb.viewNodes[view] = append(fb.viewNodes[view], ViewNode{
		View:            view,
		Feature:         handle.Feature,
		FrameNodeIndex:  frameNodeIndex,
		RenderNodeIndex: handle.RenderNodeIndex,
	})
	return nil
}

// Build freezes the packet. The builder cannot be used again afterward.
func (fb *FramePacketBuilder) Build() *FramePacket {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.built = true

	frameNodes := make(map[FeatureIndex][]RenderNodeHandle, len(fb.frameNodes))
	for k, v := range fb.frameNodes {
		cp := make([]RenderNodeHandle, len(v))
		copy(cp, v)
		frameNodes[k] = cp
	}
	viewNodes := make(map[ViewIndex][]ViewNode, len(fb.viewNodes))
	for k, v := range fb.viewNodes {
		cp := make([]ViewNode, len(v))
		copy(cp, v)
		viewNodes[k] = cp
	}

	return &FramePacket{frameNodes: frameNodes, viewNodes: viewNodes}
}

// FramePacket is the frozen, deduplicated per-feature, per-frame, per-view
// record of render-node participation.
type FramePacket struct {
	frameNodes map[FeatureIndex][]RenderNodeHandle
	viewNodes  map[ViewIndex][]ViewNode
}

// FrameNodes returns feature's frame-node list, in assignment order.
func (p *FramePacket) FrameNodes(feature FeatureIndex) []RenderNodeHandle {
	return p.frameNodes[feature]
}

// FrameNode looks up one entry of feature's frame-node list by index.
func (p *FramePacket) FrameNode(feature FeatureIndex, idx FrameNodeIndex) (RenderNodeHandle, bool) {
	list := p.frameNodes[feature]
	if int(idx) < 0 || int(idx) >= len(list) {
		return RenderNodeHandle{}, false
	}
	return list[idx], true
}

// ViewNodes returns view's per-view-node list.
func (p *FramePacket) ViewNodes(view ViewIndex) []ViewNode {
	return p.viewNodes[view]
}
