package graph

import (
	"fmt"
	"sort"

	"github.com/oxyrender/core/common"
	"github.com/oxyrender/core/gpu"
)

// planner executes the seven build steps against one Builder recording.
// It is created fresh for every Build call and discarded afterward.
type planner struct {
	b               *Builder
	device          gpu.Device
	swapchainExtent gpu.Extent3D

	order    []NodeID
	nodePos  map[NodeID]int
	live     map[NodeID]bool
	resLive  map[int]bool
	mergedC  map[int]ImageConstraint
	allocs   map[int]allocation
}

type allocation struct {
	image gpu.Image
	view  gpu.ImageView
}

func (p *planner) build() (*Plan, error) {
	if err := p.determineLiveSet(); err != nil {
		return nil, err
	}
	if err := p.topoOrder(); err != nil {
		return nil, err
	}
	if err := p.propagateConstraints(); err != nil {
		return nil, err
	}
	if err := p.planAliases(); err != nil {
		return nil, err
	}
	barriersBefore, finalLayouts := p.synthesizeBarriers()
	return p.compileRenderPasses(barriersBefore, finalLayouts)
}

// determineLiveSet reverse-traverses from every output binding's version,
// marking its creator node live and recursively marking every version that
// node itself reads or modifies.
func (p *planner) determineLiveSet() error {
	p.live = make(map[NodeID]bool)
	p.resLive = make(map[int]bool)

	if len(p.b.outputs) == 0 {
		return &OutputUnreachableError{Output: -1}
	}

	type queued struct{ resIdx, version int }
	var queue []queued
	seen := make(map[queued]bool)

	for resIdx, out := range p.b.outputs {
		v := p.b.imageUsages[out.usage].version
		q := queued{v.Index, v.Version}
		if !seen[q] {
			seen[q] = true
			queue = append(queue, q)
		}
		_ = resIdx
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		res := p.b.imageResources[cur.resIdx]
		if cur.version < 0 || cur.version >= len(res.versions) {
			return &OutputUnreachableError{Output: cur.resIdx}
		}
		info := res.versions[cur.version]
		p.resLive[cur.resIdx] = true
		if p.live[info.creator] {
			continue
		}
		p.live[info.creator] = true

		n := p.b.nodes[info.creator]
		for _, edge := range n.imageReads {
			up := p.b.imageUsages[edge.usage].version
			q := queued{up.Index, up.Version}
			if !seen[q] {
				seen[q] = true
				queue = append(queue, q)
			}
		}
		for _, edge := range n.imageModifies {
			up := p.b.imageUsages[edge.input].version
			q := queued{up.Index, up.Version}
			if !seen[q] {
				seen[q] = true
				queue = append(queue, q)
			}
		}
	}

	return nil
}

// topoOrder computes a linear order of live nodes consistent with
// producer-before-reader and reader-before-next-writer (WAR) edges,
// breaking ties by lowest node id.
func (p *planner) topoOrder() error {
	succ := make(map[NodeID]map[NodeID]bool)
	indeg := make(map[NodeID]int)

	addEdge := func(from, to NodeID) {
		if from == to || !p.live[from] || !p.live[to] {
			return
		}
		if succ[from] == nil {
			succ[from] = make(map[NodeID]bool)
		}
		if !succ[from][to] {
			succ[from][to] = true
			indeg[to]++
		}
	}

	for _, id := range sortedLiveNodeIDs(p.live) {
		indeg[id] += 0
	}

	for _, res := range p.b.imageResources {
		for vi, v := range res.versions {
			for _, readUsage := range v.readUsages {
				reader := p.b.imageUsages[readUsage].node
				addEdge(v.creator, reader)
			}
			if vi+1 < len(res.versions) {
				nextCreator := res.versions[vi+1].creator
				addEdge(v.creator, nextCreator)
				for _, readUsage := range v.readUsages {
					reader := p.b.imageUsages[readUsage].node
					addEdge(reader, nextCreator)
				}
			}
		}
	}

	var ready []NodeID
	for _, id := range sortedLiveNodeIDs(p.live) {
		if indeg[id] == 0 {
			ready = append(ready, id)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })

	var order []NodeID
	remaining := 0
	for id := range p.live {
		_ = id
		remaining++
	}

	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)
		remaining--

		var next []NodeID
		for to := range succ[n] {
			indeg[to]--
			if indeg[to] == 0 {
				next = append(next, to)
			}
		}
		sort.Slice(next, func(i, j int) bool { return next[i] < next[j] })
		ready = append(ready, next...)
	}

	if remaining != 0 {
		var stuck []NodeID
		for id := range p.live {
			if indeg[id] > 0 {
				stuck = append(stuck, id)
			}
		}
		sort.Slice(stuck, func(i, j int) bool { return stuck[i] < stuck[j] })
		return &CycleDetectedError{Nodes: stuck}
	}

	p.order = order
	p.nodePos = make(map[NodeID]int, len(order))
	for i, id := range order {
		p.nodePos[id] = i
	}
	return nil
}

func sortedLiveNodeIDs(live map[NodeID]bool) []NodeID {
	ids := make([]NodeID, 0, len(live))
	for id := range live {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// propagateConstraints merges every live usage's constraint into one
// ImageConstraint per virtual image (not per version: all versions of one
// resource share the same physical specification).
func (p *planner) propagateConstraints() error {
	p.mergedC = make(map[int]ImageConstraint)

	for idx := range p.resLive {
		var merged ImageConstraint
		var err error
		res := p.b.imageResources[idx]
		for _, v := range res.versions {
			usage := p.b.imageUsages[v.createUsage]
			if !p.live[usage.node] {
				continue
			}
			merged, err = mergeConstraint(merged, usage.constraint, idx)
			if err != nil {
				return err
			}
			for _, ru := range v.readUsages {
				ruUsage := p.b.imageUsages[ru]
				if !p.live[ruUsage.node] {
					continue
				}
				merged, err = mergeConstraint(merged, ruUsage.constraint, idx)
				if err != nil {
					return err
				}
			}
		}
		if merged.MatchSwapchain {
			merged.Extent = p.swapchainExtent
		}
		p.mergedC[idx] = merged
	}

	return nil
}

// planAliases computes each live resource's [firstUse, lastUse] interval in
// the linear order and greedily packs disjoint, compatible intervals into
// shared physical allocations. Output-pinned resources are never aliased:
// they use their supplied concrete image directly.
func (p *planner) planAliases() error {
	p.allocs = make(map[int]allocation)

	pinned := make(map[int]*outputBinding, len(p.b.outputs))
	for idx, out := range p.b.outputs {
		pinned[idx] = out
	}

	type interval struct {
		idx               int
		firstUse, lastUse int
	}
	var toPack []interval

	for idx := range p.resLive {
		if _, isPinned := pinned[idx]; isPinned {
			continue
		}
		first, last := -1, -1
		res := p.b.imageResources[idx]
		for _, v := range res.versions {
			usages := append([]ImageUsageID{v.createUsage}, v.readUsages...)
			for _, u := range usages {
				usage := p.b.imageUsages[u]
				if !p.live[usage.node] {
					continue
				}
				pos, ok := p.nodePos[usage.node]
				if !ok {
					continue
				}
				if first == -1 || pos < first {
					first = pos
				}
				if last == -1 || pos > last {
					last = pos
				}
			}
		}
		if first == -1 {
			continue
		}
		toPack = append(toPack, interval{idx: idx, firstUse: first, lastUse: last})
	}

	sort.Slice(toPack, func(i, j int) bool { return toPack[i].firstUse < toPack[j].firstUse })

	type bucketState struct {
		constraint ImageConstraint
		freeAt     int
		members    []int
	}
	var buckets []*bucketState

	for _, iv := range toPack {
		c := p.mergedC[iv.idx]
		assigned := false
		for _, bk := range buckets {
			if bk.freeAt >= iv.firstUse {
				continue
			}
			if !constraintsShareAllocation(bk.constraint, c) {
				continue
			}
			bk.freeAt = iv.lastUse
			bk.constraint.Usage |= c.Usage
			bk.constraint.Aspect |= c.Aspect
			bk.members = append(bk.members, iv.idx)
			assigned = true
			break
		}
		if !assigned {
			buckets = append(buckets, &bucketState{constraint: c, freeAt: iv.lastUse, members: []int{iv.idx}})
		}
	}

	for _, bk := range buckets {
		img, view, err := p.createConcreteImage(bk.constraint)
		if err != nil {
			return err
		}
		for _, idx := range bk.members {
			p.allocs[idx] = allocation{image: img, view: view}
		}
	}

	for idx, out := range pinned {
		p.allocs[idx] = allocation{image: out.image, view: out.view}
	}

	return nil
}

func constraintsShareAllocation(a, b ImageConstraint) bool {
	if a.Format != gpu.FormatUndefined && b.Format != gpu.FormatUndefined && a.Format != b.Format {
		return false
	}
	if a.Extent != (gpu.Extent3D{}) && b.Extent != (gpu.Extent3D{}) && a.Extent != b.Extent {
		return false
	}
	if a.SampleCount != 0 && b.SampleCount != 0 && a.SampleCount != b.SampleCount {
		return false
	}
	return true
}

func (p *planner) createConcreteImage(c ImageConstraint) (gpu.Image, gpu.ImageView, error) {
	extent := common.Coalesce(c.Extent, gpu.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1})
	format := common.Coalesce(c.Format, gpu.FormatRGBA8Unorm)
	sampleCount := common.Coalesce(c.SampleCount, 1)

	img, err := p.device.CreateImage(gpu.ImageDesc{
		Label:       "graph-allocation",
		Extent:      extent,
		Format:      format,
		Usage:       c.Usage,
		SampleCount: sampleCount,
		MipLevels:   1,
	})
	if err != nil {
		return gpu.Image{}, gpu.ImageView{}, &ErrAllocationFailed{Reason: "create image", Err: err}
	}

	view, err := p.device.CreateImageView(img, gpu.ImageViewDesc{Label: "graph-allocation-view", Aspect: c.Aspect, Format: format})
	if err != nil {
		return gpu.Image{}, gpu.ImageView{}, &ErrAllocationFailed{Reason: "create image view", Err: err}
	}
	return img, view, nil
}

// synthesizeBarriers walks the order tracking each resource's current
// (layout, access, stage), inserting a barrier wherever a usage requires a
// different state than the resource is currently in, including the implied
// Undefined -> creator-layout transition on first use. Queue transitions
// collapse the release/acquire pair into the single barrier recorded before
// the consumer, since every plan here is recorded into one command buffer
// (see Plan.Execute); multi-queue submission would need the release half
// recorded separately.
func (p *planner) synthesizeBarriers() (map[NodeID][]gpu.Barrier, map[int]gpu.Layout) {
	type state struct {
		layout gpu.Layout
		access gpu.AccessFlags
		stage  gpu.StageFlags
		queue  gpu.QueueFamily
		known  bool
	}

	current := make(map[int]state)
	before := make(map[NodeID][]gpu.Barrier)

	transitionFor := func(idx int, usageNode NodeID, layout gpu.Layout, access gpu.AccessFlags, stage gpu.StageFlags, queue gpu.QueueFamily) {
		cur := current[idx]
		alloc := p.allocs[idx]
		needsBarrier := !cur.known || cur.layout != layout || cur.queue != queue
		if needsBarrier {
			b := gpu.Barrier{
				Image:     &alloc.image,
				OldLayout: gpu.LayoutUndefined,
				NewLayout: layout,
				DstAccess: access,
				DstStage:  stage,
			}
			if cur.known {
				b.OldLayout = cur.layout
				b.SrcAccess = cur.access
				b.SrcStage = cur.stage
			}
			if cur.known && cur.queue != queue {
				b.QueueRelease = true
				b.QueueAcquire = true
			}
			before[usageNode] = append(before[usageNode], b)
		}
		current[idx] = state{layout: layout, access: access, stage: stage, queue: queue, known: true}
	}

	layoutAccessStage := func(layout gpu.Layout) (gpu.AccessFlags, gpu.StageFlags) {
		switch layout {
		case gpu.LayoutColorAttachment:
			return gpu.AccessColorAttachmentRead | gpu.AccessColorAttachmentWrite, gpu.StageColorAttachmentOutput
		case gpu.LayoutDepthStencilAttachment:
			return gpu.AccessDepthStencilAttachmentRead | gpu.AccessDepthStencilAttachmentWrite, gpu.StageEarlyFragmentTests | gpu.StageLateFragmentTests
		case gpu.LayoutShaderReadOnly:
			return gpu.AccessShaderRead, gpu.StageFragmentShader
		case gpu.LayoutTransferSrc:
			return gpu.AccessTransferRead, gpu.StageTransfer
		case gpu.LayoutTransferDst:
			return gpu.AccessTransferWrite, gpu.StageTransfer
		default:
			return gpu.AccessShaderRead | gpu.AccessShaderWrite, gpu.StageComputeShader
		}
	}

	for _, nodeID := range p.order {
		n := p.b.nodes[nodeID]

		for _, edge := range n.imageCreates {
			usage := p.b.imageUsages[edge.usage]
			idx := usage.version.Index
			access, stage := layoutAccessStage(usage.preferredLayout)
			transitionFor(idx, nodeID, usage.preferredLayout, access, stage, n.queue)
		}
		for _, edge := range n.imageReads {
			usage := p.b.imageUsages[edge.usage]
			idx := usage.version.Index
			access, stage := layoutAccessStage(usage.preferredLayout)
			transitionFor(idx, nodeID, usage.preferredLayout, access, stage, n.queue)
		}
		for _, edge := range n.imageModifies {
			inUsage := p.b.imageUsages[edge.input]
			idx := inUsage.version.Index
			access, stage := layoutAccessStage(inUsage.preferredLayout)
			transitionFor(idx, nodeID, inUsage.preferredLayout, access, stage, n.queue)

			outUsage := p.b.imageUsages[edge.output]
			outAccess, outStage := layoutAccessStage(outUsage.preferredLayout)
			transitionFor(idx, nodeID, outUsage.preferredLayout, outAccess, outStage, n.queue)
		}
	}

	finalLayouts := make(map[int]gpu.Layout, len(current))
	for idx, st := range current {
		finalLayouts[idx] = st.layout
	}
	return before, finalLayouts
}

// compileRenderPasses groups each live node with attachments into its own
// render pass (this module's only backend, WebGPU, has no subpass concept,
// so the "compatible consecutive nodes share subpasses" half of the
// original design collapses to one pass per node) and leaves nodes with no
// attachments as bare command recordings.
func (p *planner) compileRenderPasses(barriersBefore map[NodeID][]gpu.Barrier, finalLayouts map[int]gpu.Layout) (*Plan, error) {
	plan := &Plan{}

	for _, nodeID := range p.order {
		n := p.b.nodes[nodeID]
		pass := PlannedPass{
			Barriers:  barriersBefore[nodeID],
			Callbacks: []NodeCallback{n.callback},
			Queue:     n.queue,
		}

		if n.isGraphicsPass() {
			desc := gpu.RenderPassDesc{Label: fmt.Sprintf("node-%d-pass", nodeID)}
			fbDesc := gpu.FramebufferDesc{Label: fmt.Sprintf("node-%d-fb", nodeID)}
			var width, height uint32

			for _, slot := range n.colorAttachments {
				if slot == nil {
					continue
				}
				idx := p.b.imageUsages[slot.usage].version.Index
				c := p.mergedC[idx]
				desc.ColorAttachments = append(desc.ColorAttachments, gpu.AttachmentDesc{
					Format:      c.Format,
					SampleCount: maxu32(c.SampleCount, 1),
					LoadClear:   slot.hasClear,
					FinalLayout: resolveFinalLayout(idx, p.b, finalLayouts),
				})
				alloc := p.allocs[idx]
				fbDesc.ColorViews = append(fbDesc.ColorViews, alloc.view)
				pass.ClearValues = append(pass.ClearValues, slot.clear)
				if c.Extent.Width > width {
					width = c.Extent.Width
				}
				if c.Extent.Height > height {
					height = c.Extent.Height
				}
			}

			if n.depthAttachment != nil {
				idx := p.b.imageUsages[n.depthAttachment.usage].version.Index
				c := p.mergedC[idx]
				desc.DepthAttachment = &gpu.AttachmentDesc{
					Format:      c.Format,
					SampleCount: maxu32(c.SampleCount, 1),
					LoadClear:   n.depthAttachment.hasClear,
					FinalLayout: resolveFinalLayout(idx, p.b, finalLayouts),
				}
				alloc := p.allocs[idx]
				fbDesc.DepthView = &alloc.view
				pass.ClearValues = append(pass.ClearValues, n.depthAttachment.clear)
				if c.Extent.Width > width {
					width = c.Extent.Width
				}
				if c.Extent.Height > height {
					height = c.Extent.Height
				}
			}

			fbDesc.Width, fbDesc.Height = width, height

			renderPass, err := p.device.CreateRenderPass(desc)
			if err != nil {
				return nil, &ErrAllocationFailed{Reason: "create render pass", Err: err}
			}
			framebuffer, err := p.device.CreateFramebuffer(renderPass, fbDesc)
			if err != nil {
				return nil, &ErrAllocationFailed{Reason: "create framebuffer", Err: err}
			}

			pass.HasPass = true
			pass.RenderPass = renderPass
			pass.Framebuffer = framebuffer
		}

		plan.Passes = append(plan.Passes, pass)
	}

	if trailing := p.finalOutputBarriers(finalLayouts); len(trailing) > 0 {
		plan.Passes = append(plan.Passes, PlannedPass{Barriers: trailing})
	}

	return plan, nil
}

// finalOutputBarriers transitions every output-pinned image from whatever
// layout it held after its last in-graph use to the layout SetOutputImage
// declared (e.g. the present layout), so the caller never has to reason
// about it after the plan completes.
func (p *planner) finalOutputBarriers(finalLayouts map[int]gpu.Layout) []gpu.Barrier {
	var barriers []gpu.Barrier
	for idx, out := range p.b.outputs {
		if !p.resLive[idx] {
			continue
		}
		cur, ok := finalLayouts[idx]
		if !ok || cur == out.finalLayout {
			continue
		}
		alloc := p.allocs[idx]
		barriers = append(barriers, gpu.Barrier{
			Image:     &alloc.image,
			OldLayout: cur,
			NewLayout: out.finalLayout,
		})
	}
	return barriers
}

func resolveFinalLayout(idx int, b *Builder, finalLayouts map[int]gpu.Layout) gpu.Layout {
	if out, ok := b.outputs[idx]; ok {
		return out.finalLayout
	}
	return finalLayouts[idx]
}

func maxu32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
