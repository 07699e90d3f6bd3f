package resource

import (
	"fmt"
	"sync"
)

// BuildFunc constructs the payload for a cache miss. It must be side-effect
// free with respect to the owning cache: it must not reentrantly call back
// into the same cache for the same key.
type BuildFunc[T any] func() (T, error)

// Stats reports cache bookkeeping, restored from the create-count
// diagnostics the original resource lookup kept for the current and
// previous frame.
type Stats struct {
	CreateCount              uint64
	CreateCountPreviousFrame uint64
}

// CacheOption configures a Cache at construction time.
type CacheOption[K comparable, T Destroyer] func(*Cache[K, T])

// WithKeyValidation enables a debug-mode consistency check: on every
// resolved lookup the cache asserts the key stored at insertion time still
// equals the key passed in, guarding against hash collisions between
// distinct keys. Panics on mismatch, matching the debug_assert this is
// grounded on.
func WithKeyValidation[K comparable, T Destroyer]() CacheOption[K, T] {
	return func(c *Cache[K, T]) { c.validateKeys = true }
}

// Cache is a keyed, deduplicating cache of one GPU resource kind. At most
// one live handle exists per key; resources that drop to zero references
// are retired into a DropSink and destroyed only once OnFrameComplete has
// aged them out.
type Cache[K comparable, T Destroyer] struct {
	mu           sync.Mutex
	entries      map[K]WeakArc[T]
	keys         map[K]K
	validateKeys bool
	dropSink     *DropSink[T]
	dropCh       chan dropped[T]
	createCount     uint64
	createCountPrev uint64
}

// NewCache builds a Cache whose retired resources are destroyed after
// maxInFlightFrames subsequent OnFrameComplete calls.
func NewCache[K comparable, T Destroyer](maxInFlightFrames uint32, opts ...CacheOption[K, T]) *Cache[K, T] {
	c := &Cache[K, T]{
		entries: make(map[K]WeakArc[T]),
		keys:    make(map[K]K),
		dropCh:  make(chan dropped[T], 256),
	}
	c.dropSink = NewDropSink(maxInFlightFrames, func(t T) error { return t.Destroy() })
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the live resource for key if one exists, without invoking a
// builder.
func (c *Cache[K, T]) Get(key K) (Arc[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drainLocked()
	return c.doGetLocked(key)
}

// Create invokes build only when no live resource exists for key; if one
// does, it returns an error without invoking build. GetOrCreate is the
// deduplicating path.
func (c *Cache[K, T]) Create(key K, build BuildFunc[T]) (Arc[T], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drainLocked()
	if _, ok := c.doGetLocked(key); ok {
		return Arc[T]{}, fmt.Errorf("resource: key already has a live resource")
	}
	return c.doCreateLocked(key, build)
}

// GetOrCreate drains any pending drops, looks up key, upgrades the weak
// handle if the resource is still alive, and otherwise invokes build and
// inserts the result. The arc returned from two GetOrCreate calls with equal
// keys is the same resource, absent an intervening final drop and cache
// flush.
func (c *Cache[K, T]) GetOrCreate(key K, build BuildFunc[T]) (Arc[T], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drainLocked()
	if arc, ok := c.doGetLocked(key); ok {
		return arc, nil
	}
	return c.doCreateLocked(key, build)
}

func (c *Cache[K, T]) doGetLocked(key K) (Arc[T], bool) {
	weak, ok := c.entries[key]
	if !ok {
		return Arc[T]{}, false
	}
	arc, ok := weak.Upgrade()
	if !ok {
		return Arc[T]{}, false
	}
	if c.validateKeys {
		if stored, ok := c.keys[key]; ok && stored != key {
			panic("resource: key hash collision detected")
		}
	}
	return arc, true
}

func (c *Cache[K, T]) doCreateLocked(key K, build BuildFunc[T]) (Arc[T], error) {
	payload, err := build()
	if err != nil {
		return Arc[T]{}, err
	}
	c.createCount++

	arc := newArc(payload, c.dropCh)
	if _, exists := c.entries[key]; exists {
		panic("resource: duplicate insert for key that should have been drained")
	}
	c.entries[key] = arc.Downgrade()
	if c.validateKeys {
		c.keys[key] = key
	}
	return arc, nil
}

// drainLocked processes any resources dropped since the last access,
// removing their key→weak entries before a new strong handle can be
// created for the same key.
func (c *Cache[K, T]) drainLocked() {
	for {
		select {
		case d := <-c.dropCh:
			c.removeByID(d.id)
			c.dropSink.Retire(d.payload)
		default:
			return
		}
	}
}

func (c *Cache[K, T]) removeByID(id uint64) {
	for k, weak := range c.entries {
		if weak.ID() == id {
			delete(c.entries, k)
			delete(c.keys, k)
			return
		}
	}
}

// OnFrameComplete drains pending drops and then ages the drop sink by one
// frame, destroying anything whose deadline has passed. Draining occurs
// before aging so a resource dropped this frame is not destroyed a frame
// early.
func (c *Cache[K, T]) OnFrameComplete() error {
	c.mu.Lock()
	c.drainLocked()
	c.createCountPrev = c.createCount
	c.mu.Unlock()
	return c.dropSink.OnFrameComplete()
}

// Destroy immediately destroys every resource still retired in the drop
// sink. The caller must have ensured GPU idleness and that all Arcs for this
// cache have been released; behavior is otherwise unspecified.
func (c *Cache[K, T]) Destroy() error {
	c.mu.Lock()
	c.drainLocked()
	c.mu.Unlock()
	return c.dropSink.Destroy()
}

// Stats reports current and previous-frame create counts for diagnostics.
func (c *Cache[K, T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{CreateCount: c.createCount, CreateCountPreviousFrame: c.createCountPrev}
}
