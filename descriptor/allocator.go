// Package descriptor implements per-frame descriptor-set pool rotation and
// write-flush, adapted from the teacher's BindGroupProvider (binding-keyed
// maps, Set*/Get* accessor pattern, explicit Release) generalized to the
// allocator-owned ring-of-pools model described by the render graph's
// resource lifetime rules: a descriptor set issued in frame F remains valid
// for GPU reads until OnFrameComplete has been called maxFramesInFlight
// times after F.
package descriptor

import (
	"fmt"
	"sync"

	"github.com/oxyrender/core/gpu"
)

// pool is one ring slot: a device descriptor pool plus the layout it was
// sized against, reset when the ring rotates back to it.
type pool struct {
	handle gpu.DescriptorPool
	sizes  gpu.DescriptorPoolSizes
}

// Allocator maintains, per descriptor-set-layout, a ring of
// maxFramesInFlight+1 pools. Allocation always draws from the current frame's
// pool; OnFrameComplete advances the ring and resets the now-oldest pool.
type Allocator struct {
	mu                sync.Mutex
	device            gpu.Device
	maxFramesInFlight uint32
	current           uint32
	poolSizes         gpu.DescriptorPoolSizes
	rings             map[gpu.DescriptorSetLayout][]pool
}

// AllocatorOption configures an Allocator at construction.
type AllocatorOption func(*Allocator)

// WithPoolSizes overrides the default per-pool descriptor type budget.
func WithPoolSizes(sizes gpu.DescriptorPoolSizes) AllocatorOption {
	return func(a *Allocator) { a.poolSizes = sizes }
}

// NewAllocator builds an Allocator whose pool ring has maxFramesInFlight+1
// slots per layout.
func NewAllocator(device gpu.Device, maxFramesInFlight uint32, opts ...AllocatorOption) *Allocator {
	a := &Allocator{
		device:            device,
		maxFramesInFlight: maxFramesInFlight,
		rings:             make(map[gpu.DescriptorSetLayout][]pool),
		poolSizes: gpu.DescriptorPoolSizes{
			MaxSets: 256,
			PerType: map[gpu.BindingType]uint32{
				gpu.BindingUniformBuffer: 256,
				gpu.BindingStorageBuffer: 64,
				gpu.BindingSampledImage:  256,
				gpu.BindingStorageImage:  64,
				gpu.BindingSampler:       256,
			},
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Allocator) ringFor(layout gpu.DescriptorSetLayout) ([]pool, error) {
	ring, ok := a.rings[layout]
	if ok {
		return ring, nil
	}
	ring = make([]pool, a.maxFramesInFlight+1)
	for i := range ring {
		p, err := a.device.CreateDescriptorPool(a.poolSizes)
		if err != nil {
			return nil, fmt.Errorf("descriptor: create pool: %w", err)
		}
		ring[i] = pool{handle: p, sizes: a.poolSizes}
	}
	a.rings[layout] = ring
	return ring, nil
}

// Allocate draws a descriptor set for layout from the current frame's pool.
func (a *Allocator) Allocate(layout gpu.DescriptorSetLayout) (gpu.DescriptorSet, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ring, err := a.ringFor(layout)
	if err != nil {
		return gpu.DescriptorSet{}, err
	}
	return a.device.AllocateDescriptorSet(ring[a.current].handle, layout)
}

// NewDynamicSet issues a DynamicDescriptorSet over layout, bound to the
// current frame's pool. Callers edit bindings via the returned handle and
// call Flush before any command that references it.
func (a *Allocator) NewDynamicSet(layout gpu.DescriptorSetLayout) *DynamicSet {
	return &DynamicSet{allocator: a, layout: layout}
}

// OnFrameComplete advances every layout's ring by one slot and resets the
// pool that is now the oldest (and therefore due for reuse), matching the
// spec's invariant that a set issued in frame F stays valid for
// maxFramesInFlight subsequent completions.
func (a *Allocator) OnFrameComplete() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.current = (a.current + 1) % (a.maxFramesInFlight + 1)
	for _, ring := range a.rings {
		if err := a.device.ResetPool(ring[a.current].handle); err != nil {
			return fmt.Errorf("descriptor: reset pool: %w", err)
		}
	}
	return nil
}
