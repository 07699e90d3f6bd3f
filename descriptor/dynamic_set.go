package descriptor

import (
	"fmt"
	"sync"

	"github.com/oxyrender/core/gpu"
)

// DynamicSet is an allocator-issued handle over which callers edit bindings
// and call Flush. Flush allocates a concrete descriptor set for the current
// frame and records all buffered writes into it, following the teacher's
// binding-keyed-map pattern (SetBuffer/SetTextureView/SetSampler) rather than
// an immediate per-write GPU call.
type DynamicSet struct {
	mu        sync.Mutex
	allocator *Allocator
	layout    gpu.DescriptorSetLayout

	buffers      map[uint32]gpu.Buffer
	textureViews map[uint32]gpu.ImageView
	samplers     map[uint32]gpu.Sampler

	dirty bool
	set   gpu.DescriptorSet
}

// SetBuffer stages a uniform or storage buffer write for binding.
func (s *DynamicSet) SetBuffer(binding uint32, buf gpu.Buffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buffers == nil {
		s.buffers = make(map[uint32]gpu.Buffer)
	}
	s.buffers[binding] = buf
	s.dirty = true
}

// SetTextureView stages a sampled/storage image write for binding.
func (s *DynamicSet) SetTextureView(binding uint32, view gpu.ImageView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.textureViews == nil {
		s.textureViews = make(map[uint32]gpu.ImageView)
	}
	s.textureViews[binding] = view
	s.dirty = true
}

// SetSampler stages a sampler write for binding.
func (s *DynamicSet) SetSampler(binding uint32, samp gpu.Sampler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.samplers == nil {
		s.samplers = make(map[uint32]gpu.Sampler)
	}
	s.samplers[binding] = samp
	s.dirty = true
}

// Flush allocates a concrete descriptor set for the current frame (if one
// has not already been allocated and nothing has changed since) and records
// every staged write into it. Callers must flush before the first draw that
// consumes the set; the framework does not enforce this ordering and leaves
// it as a caller contract.
func (s *DynamicSet) Flush() (gpu.DescriptorSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return s.set, nil
	}

	set, err := s.allocator.Allocate(s.layout)
	if err != nil {
		return gpu.DescriptorSet{}, fmt.Errorf("descriptor: flush: allocate: %w", err)
	}

	writes := make([]gpu.DescriptorWrite, 0, len(s.buffers)+len(s.textureViews)+len(s.samplers))
	for binding, buf := range s.buffers {
		b := buf
		writes = append(writes, gpu.DescriptorWrite{Binding: binding, Type: gpu.BindingUniformBuffer, Buffer: &b})
	}
	for binding, view := range s.textureViews {
		v := view
		writes = append(writes, gpu.DescriptorWrite{Binding: binding, Type: gpu.BindingSampledImage, View: &v})
	}
	for binding, samp := range s.samplers {
		sm := samp
		writes = append(writes, gpu.DescriptorWrite{Binding: binding, Type: gpu.BindingSampler, Sampler: &sm})
	}

	if err := s.allocator.device.UpdateDescriptorSet(set, writes); err != nil {
		return gpu.DescriptorSet{}, fmt.Errorf("descriptor: flush: update: %w", err)
	}

	s.set = set
	s.dirty = false
	return s.set, nil
}
