// Package asset routes asset-loader events (load/commit/free) to
// kind-specific handlers, adapted from the teacher's Loader (extension-
// based backend dispatch, mutex-guarded cache, NewX(options...) builder)
// generalized to the spec's asset kinds: shader, pipeline-spec,
// render-pass-spec, material, material-instance, image, buffer.
package asset

import (
	"fmt"
	"sync"
)

// Kind identifies which asset-specific handler an event is routed to.
type Kind int

const (
	KindShader Kind = iota
	KindPipelineSpec
	KindRenderPassSpec
	KindMaterial
	KindMaterialInstance
	KindImage
	KindBuffer
)

// Handle identifies one asset instance across its Load/Commit/Free
// lifecycle.
type Handle struct {
	Kind Kind
	ID   uint64
}

// CompletionToken is reported back to the loader for one Load event, either
// on success (the resulting resource is opaque to this package; the
// framework's resource registry produced it) or on failure.
type CompletionToken struct {
	Handle Handle
	Err    error
}

// Handler translates the raw bytes of one asset kind into GPU resources via
// the driver and reports success or failure.
type Handler interface {
	// Load decodes bytes for handle and creates backing GPU resources.
	// Returning an error marks the asset failed; its handle yields no
	// resource.
	Load(handle Handle, data []byte) error
	// Commit finalizes a previously loaded asset (e.g. promoting staged
	// uploads) so it is safe to reference from a frame.
	Commit(handle Handle) error
	// Free releases any resources associated with handle.
	Free(handle Handle) error
}

// Queue routes Load/Commit/Free events for each registered Kind to its
// Handler, and reports completion back to the loader via result channels.
type Queue struct {
	mu       sync.RWMutex
	handlers map[Kind]Handler
	results  chan CompletionToken
}

// QueueOption configures a Queue at construction.
type QueueOption func(*Queue)

// WithHandler registers handler for kind.
func WithHandler(kind Kind, handler Handler) QueueOption {
	return func(q *Queue) { q.handlers[kind] = handler }
}

// NewQueue builds an asset Queue with the given handler registrations.
func NewQueue(opts ...QueueOption) *Queue {
	q := &Queue{
		handlers: make(map[Kind]Handler),
		results:  make(chan CompletionToken, 64),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Results returns the channel completion tokens are delivered on.
func (q *Queue) Results() <-chan CompletionToken { return q.results }

// Load routes a Load event to handle's kind handler and posts a
// CompletionToken once it resolves. Load does not block on GPU work beyond
// whatever the handler itself performs synchronously; asynchronous upload
// completion is a concern of the upload package, not this one.
func (q *Queue) Load(handle Handle, data []byte) {
	h, err := q.handlerFor(handle.Kind)
	if err != nil {
		q.results <- CompletionToken{Handle: handle, Err: err}
		return
	}
	err = h.Load(handle, data)
	q.results <- CompletionToken{Handle: handle, Err: err}
}

// Commit routes a Commit event to handle's kind handler.
func (q *Queue) Commit(handle Handle) error {
	h, err := q.handlerFor(handle.Kind)
	if err != nil {
		return err
	}
	return h.Commit(handle)
}

// Free routes a Free event to handle's kind handler.
func (q *Queue) Free(handle Handle) error {
	h, err := q.handlerFor(handle.Kind)
	if err != nil {
		return err
	}
	return h.Free(handle)
}

func (q *Queue) handlerFor(kind Kind) (Handler, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	h, ok := q.handlers[kind]
	if !ok {
		return nil, fmt.Errorf("asset: no handler registered for kind %d", kind)
	}
	return h, nil
}
