package descriptor

import (
	"sync"

	"github.com/oxyrender/core/gpu"
)

// Provider hands out thread-local allocator views from a shared factory, so
// that each worker-pool goroutine allocates descriptor sets without
// contending on a single allocator's mutex more than necessary.
type Provider struct {
	mu                sync.Mutex
	device            gpu.Device
	maxFramesInFlight uint32
	opts              []AllocatorOption
	perGoroutine      map[int64]*Allocator
}

// NewProvider builds a Provider that constructs Allocators with the given
// configuration on demand, one per distinct worker id requested.
func NewProvider(device gpu.Device, maxFramesInFlight uint32, opts ...AllocatorOption) *Provider {
	return &Provider{
		device:            device,
		maxFramesInFlight: maxFramesInFlight,
		opts:              opts,
		perGoroutine:      make(map[int64]*Allocator),
	}
}

// AllocatorFor returns the Allocator assigned to workerID, creating one on
// first use. workerID is caller-supplied (e.g. a prepare job's worker-pool
// slot index) rather than derived from the runtime goroutine id, since Go
// does not expose the latter.
func (p *Provider) AllocatorFor(workerID int64) *Allocator {
	p.mu.Lock()
	defer p.mu.Unlock()

	a, ok := p.perGoroutine[workerID]
	if !ok {
		a = NewAllocator(p.device, p.maxFramesInFlight, p.opts...)
		p.perGoroutine[workerID] = a
	}
	return a
}

// OnFrameComplete advances every per-worker allocator's pool ring.
func (p *Provider) OnFrameComplete() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, a := range p.perGoroutine {
		if err := a.OnFrameComplete(); err != nil {
			return err
		}
	}
	return nil
}
