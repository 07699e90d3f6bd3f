package graph

import "github.com/oxyrender/core/gpu"

// PlannedPass is one entry of an emitted Plan: a render pass (or, for a
// node with no attachments, a bare command recording with no
// pass/framebuffer) plus the barriers that must be recorded immediately
// before it and the callbacks to invoke once recording has begun.
type PlannedPass struct {
	RenderPass  gpu.RenderPass
	Framebuffer gpu.Framebuffer
	HasPass     bool
	Barriers    []gpu.Barrier
	ClearValues []gpu.ClearValue
	Callbacks   []NodeCallback
	Queue       gpu.QueueFamily
}

// Plan is the planner's output: an ordered list of passes ready to be
// recorded into command buffers and submitted, in order, by the render
// package's write phase.
type Plan struct {
	Passes []PlannedPass
}

// Execute records every pass of the plan into a single command buffer
// allocated from device on queue and submits it. Multi-queue plans (mixed
// graphics/compute/transfer nodes) are outside this helper's scope; callers
// needing per-queue submission should walk Passes directly instead.
func (p *Plan) Execute(device gpu.Device, queue gpu.QueueFamily) error {
	cb, err := device.AllocateCommandBuffer(queue)
	if err != nil {
		return err
	}
	err = device.Record(cb, func(rec gpu.Recorder) error {
		for _, pass := range p.Passes {
			for _, barrier := range pass.Barriers {
				if err := rec.PipelineBarrier(barrier); err != nil {
					return err
				}
			}
			if pass.HasPass {
				if err := rec.BeginRenderPass(pass.RenderPass, pass.Framebuffer, pass.ClearValues); err != nil {
					return err
				}
			}
			for _, cb := range pass.Callbacks {
				if err := cb(rec); err != nil {
					return err
				}
			}
			if pass.HasPass {
				if err := rec.EndRenderPass(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return device.Submit(queue, []gpu.CommandBuffer{cb}, nil, nil, nil)
}
