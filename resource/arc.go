// Package resource implements reference-counted GPU resource caches with
// frame-bounded deferred destruction. A Cache deduplicates resources by a
// content-derived key and hands out Arc handles; when the last Arc for a key
// is dropped, the payload is posted to a DropSink that destroys it only after
// the caller has advanced past every frame that might still reference it.
package resource

import (
	"sync"
	"sync/atomic"
)

// nextID is the monotonic source of unique Arc ids, shared across every cache.
var nextID uint64

// Destroyer is implemented by a resource payload that knows how to release
// its underlying GPU object. It is invoked by a DropSink once a resource's
// retirement deadline has passed.
type Destroyer interface {
	Destroy() error
}

// Arc is a shared, reference-counted handle to a cached resource of type T.
// Cloning an Arc increments its reference count; dropping it decrements the
// count and, on reaching zero, posts the payload back to the owning cache's
// drop channel. Equality and hashing are by id, not by payload value.
type Arc[T any] struct {
	id      uint64
	payload T
	count   *int64
	drop    chan<- dropped[T]
	once    *sync.Once
}

// dropped is what an Arc posts to its cache's drop channel on final release.
type dropped[T any] struct {
	id      uint64
	payload T
}

// newArc wraps payload in a fresh Arc stamped with a unique id, backed by a
// reference count of one and a channel that receives the payload on release.
func newArc[T any](payload T, drop chan<- dropped[T]) Arc[T] {
	count := int64(1)
	return Arc[T]{
		id:      atomic.AddUint64(&nextID, 1),
		payload: payload,
		count:   &count,
		drop:    drop,
		once:    &sync.Once{},
	}
}

// ID returns the stable identity of the resource. Two Arcs with the same ID
// refer to the same underlying resource.
func (a Arc[T]) ID() uint64 { return a.id }

// Get returns the resource payload.
func (a Arc[T]) Get() T { return a.payload }

// Clone returns a new strong handle to the same resource, incrementing the
// reference count.
func (a Arc[T]) Clone() Arc[T] {
	atomic.AddInt64(a.count, 1)
	return Arc[T]{id: a.id, payload: a.payload, count: a.count, drop: a.drop, once: a.once}
}

// Downgrade returns a WeakArc that observes the resource without keeping it
// alive.
func (a Arc[T]) Downgrade() WeakArc[T] {
	return WeakArc[T]{id: a.id, payload: a.payload, count: a.count, drop: a.drop, once: a.once}
}

// Release decrements the reference count. On reaching zero it posts the
// payload to the owning cache's drop channel exactly once; subsequent
// Release calls on clones of an already-fully-released Arc are no-ops other
// than decrementing (callers must not call Release more than once per Clone
// they made, matching ordinary refcount discipline).
func (a Arc[T]) Release() {
	if atomic.AddInt64(a.count, -1) > 0 {
		return
	}
	a.once.Do(func() {
		if a.drop != nil {
			a.drop <- dropped[T]{id: a.id, payload: a.payload}
		}
	})
}

// WeakArc observes a resource without keeping it alive. A cache stores
// WeakArcs in its key→handle map so that a resource's last strong Arc can be
// released independently of the cache's bookkeeping entry.
type WeakArc[T any] struct {
	id      uint64
	payload T
	count   *int64
	drop    chan<- dropped[T]
	once    *sync.Once
}

// ID returns the resource identity this weak handle observes.
func (w WeakArc[T]) ID() uint64 { return w.id }

// Upgrade attempts to produce a strong Arc from the weak handle. It succeeds
// only if the resource has not yet been fully released (count > 0).
func (w WeakArc[T]) Upgrade() (Arc[T], bool) {
	for {
		cur := atomic.LoadInt64(w.count)
		if cur <= 0 {
			return Arc[T]{}, false
		}
		if atomic.CompareAndSwapInt64(w.count, cur, cur+1) {
			return Arc[T]{id: w.id, payload: w.payload, count: w.count, drop: w.drop, once: w.once}, true
		}
	}
}
