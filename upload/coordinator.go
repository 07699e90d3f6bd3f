// Package upload stages CPU bytes to GPU resources via a transfer queue and
// reports completion asynchronously, adapted from the staging pattern the
// teacher's loader uses to populate textures before creating bind groups,
// generalized into a standalone coordinator that the resource and asset
// layers can share.
package upload

import (
	"fmt"
	"sync"

	"github.com/oxyrender/core/common"
	"github.com/oxyrender/core/gpu"
)

// Result is delivered to a requester once an upload's fence has signaled.
type Result struct {
	Request Request
	Err     error
}

// Completed reports whether the upload succeeded.
func (r Result) Completed() bool { return r.Err == nil }

// Request describes one pending (bytes, destination) upload.
type Request struct {
	ID          uint64
	Bytes       []byte
	DestBuffer  *gpu.Buffer
	DestImage   *gpu.Image
	DestRegion  gpu.ImageCopyRegion
	DestOffset  uint64
	resultCh    chan Result
}

// Coordinator accepts (bytes, destination) pairs, stages them through a
// staging buffer, and appends a copy command to a transfer command buffer
// submitted with a fence. Waiting is bounded and always polled: PollSignaled
// never blocks.
type Coordinator struct {
	mu       sync.Mutex
	device   gpu.Device
	nextID   uint64
	inFlight map[uint64]*inFlightUpload
	queue    gpu.QueueFamily
}

type inFlightUpload struct {
	req     Request
	staging gpu.Buffer
	fence   gpu.Fence
	cb      gpu.CommandBuffer
	signaled bool
	err      error
}

// NewCoordinator builds an upload Coordinator issuing transfer work on
// queue.
func NewCoordinator(device gpu.Device, queue gpu.QueueFamily) *Coordinator {
	return &Coordinator{
		device:   device,
		inFlight: make(map[uint64]*inFlightUpload),
		queue:    queue,
	}
}

// EnqueueBuffer stages bytes into dest starting at destOffset. The returned
// channel receives exactly one Result once the upload's fence has signaled,
// or immediately if enqueueing itself failed.
func (c *Coordinator) EnqueueBuffer(bytesData []byte, dest gpu.Buffer, destOffset uint64) <-chan Result {
	req := Request{Bytes: bytesData, DestBuffer: &dest, DestOffset: destOffset}
	return c.enqueue(req)
}

// EnqueueImage stages bytesData into dest at region.
func (c *Coordinator) EnqueueImage(bytesData []byte, dest gpu.Image, region gpu.ImageCopyRegion) <-chan Result {
	req := Request{Bytes: bytesData, DestImage: &dest, DestRegion: region}
	return c.enqueue(req)
}

// EnqueueBufferData is EnqueueBuffer for typed data, reinterpreting data as
// raw bytes without a copy. Go forbids generic methods, so this is a
// standalone function rather than a Coordinator method.
func EnqueueBufferData[T any](c *Coordinator, data []T, dest gpu.Buffer, destOffset uint64) <-chan Result {
	return c.EnqueueBuffer(common.SliceToBytes(data), dest, destOffset)
}

// EnqueueUniform is EnqueueBuffer for a single struct, such as a per-frame
// uniform block, reinterpreted as raw bytes without a copy.
func EnqueueUniform[T any](c *Coordinator, data *T, dest gpu.Buffer, destOffset uint64) <-chan Result {
	return c.EnqueueBuffer(common.StructToBytes(data), dest, destOffset)
}

func (c *Coordinator) enqueue(req Request) <-chan Result {
	resultCh := make(chan Result, 1)
	req.resultCh = resultCh

	c.mu.Lock()
	c.nextID++
	req.ID = c.nextID
	c.mu.Unlock()

	staging, err := c.device.CreateBuffer(gpu.BufferDesc{
		Label: "upload-staging",
		Size:  uint64(len(req.Bytes)),
		Usage: gpu.UsageTransferSrc,
	})
	if err != nil {
		resultCh <- Result{Request: req, Err: fmt.Errorf("upload: create staging buffer: %w", err)}
		return resultCh
	}

	cb, err := c.device.AllocateCommandBuffer(c.queue)
	if err != nil {
		resultCh <- Result{Request: req, Err: fmt.Errorf("upload: allocate command buffer: %w", err)}
		return resultCh
	}

	recordErr := c.device.Record(cb, func(rec gpu.Recorder) error {
		switch {
		case req.DestBuffer != nil:
			return rec.CopyBufferToBuffer(staging, *req.DestBuffer, 0, req.DestOffset, uint64(len(req.Bytes)))
		case req.DestImage != nil:
			return rec.CopyBufferToImage(staging, 0, *req.DestImage, req.DestRegion)
		default:
			return fmt.Errorf("upload: request has no destination")
		}
	})
	if recordErr != nil {
		resultCh <- Result{Request: req, Err: fmt.Errorf("upload: record: %w", recordErr)}
		return resultCh
	}

	fence := gpu.Fence{}
	if err := c.device.Submit(c.queue, []gpu.CommandBuffer{cb}, nil, nil, &fence); err != nil {
		resultCh <- Result{Request: req, Err: fmt.Errorf("upload: submit: %w", err)}
		return resultCh
	}

	c.mu.Lock()
	c.inFlight[req.ID] = &inFlightUpload{req: req, staging: staging, fence: fence, cb: cb}
	c.mu.Unlock()

	return resultCh
}

// PollSignaled is called by the owner once it has observed (by whatever
// fence-signal mechanism the backend provides) that the upload identified
// by id has completed. It delivers the completion result to the requester's
// channel. Cancellation by requester drop (the channel going unread) is
// silently absorbed: PollSignaled never blocks on a full channel because
// every result channel is created with capacity 1.
func (c *Coordinator) PollSignaled(id uint64, err error) {
	c.mu.Lock()
	up, ok := c.inFlight[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.inFlight, id)
	c.mu.Unlock()

	up.req.resultCh <- Result{Request: up.req, Err: err}
}

// Pending reports how many uploads have been submitted but not yet
// resolved via PollSignaled.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inFlight)
}
