package render

import "testing"

func TestFramePacketNoDuplicateRenderNodes(t *testing.T) {
	fb := NewFramePacketBuilder(0)
	handle := RenderNodeHandle{Feature: 1, RenderNodeIndex: 5}

	idx1, err := fb.AppendFrameNode(handle)
	if err != nil {
		t.Fatalf("AppendFrameNode() error = %v", err)
	}
	idx2, err := fb.AppendFrameNode(handle)
	if err != nil {
		t.Fatalf("AppendFrameNode() error = %v", err)
	}
	if idx1 != idx2 {
		t.Fatalf("AppendFrameNode() returned different indices for the same handle: %d, %d", idx1, idx2)
	}

	packet := fb.Build()
	nodes := packet.FrameNodes(1)
	if len(nodes) != 1 {
		t.Fatalf("FrameNodes(1) = %v, want exactly one entry", nodes)
	}
}

func TestViewNodeFrameNodeIndexIsValid(t *testing.T) {
	fb := NewFramePacketBuilder(0)
	handle := RenderNodeHandle{Feature: 2, RenderNodeIndex: 9}

	idx, err := fb.AppendFrameNode(handle)
	if err != nil {
		t.Fatalf("AppendFrameNode() error = %v", err)
	}
	if err := fb.AppendViewNode(0, handle, idx); err != nil {
		t.Fatalf("AppendViewNode() error = %v", err)
	}

	packet := fb.Build()
	viewNodes := packet.ViewNodes(0)
	if len(viewNodes) != 1 {
		t.Fatalf("ViewNodes(0) = %v, want exactly one entry", viewNodes)
	}

	vn := viewNodes[0]
	frameNode, ok := packet.FrameNode(vn.Feature, vn.FrameNodeIndex)
	if !ok {
		t.Fatalf("FrameNode(%d, %d) not found", vn.Feature, vn.FrameNodeIndex)
	}
	if frameNode.RenderNodeIndex != vn.RenderNodeIndex {
		t.Fatalf("frameNode.RenderNodeIndex = %d, want %d", frameNode.RenderNodeIndex, vn.RenderNodeIndex)
	}
}

func TestFramePacketRespectsMaxNodesPerFeature(t *testing.T) {
	fb := NewFramePacketBuilder(1)
	if _, err := fb.AppendFrameNode(RenderNodeHandle{Feature: 0, RenderNodeIndex: 1}); err != nil {
		t.Fatalf("AppendFrameNode() error = %v", err)
	}
	if _, err := fb.AppendFrameNode(RenderNodeHandle{Feature: 0, RenderNodeIndex: 2}); err == nil {
		t.Fatalf("expected an error once the per-feature cap is exceeded")
	}
}
