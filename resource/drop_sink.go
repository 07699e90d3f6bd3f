package resource

// DropSink is a FIFO of retired resources awaiting destruction. A resource
// retired during frame F is destroyed on the OnFrameComplete call whose
// post-increment frame counter equals F + maxInFlightFrames + 1, never
// before. The deadline comparison wraps modulo 2^32, matching the wrapping
// u32 frame counter this is grounded on.
type DropSink[T any] struct {
	entries           []dropSinkEntry[T]
	maxInFlightFrames uint32
	frameIndex        uint32
	destroy           func(T) error
}

type dropSinkEntry[T any] struct {
	resource  T
	liveUntil uint32
}

// NewDropSink builds a drop sink that destroys retired resources via destroy
// after maxInFlightFrames subsequent frame completions.
func NewDropSink[T any](maxInFlightFrames uint32, destroy func(T) error) *DropSink[T] {
	return &DropSink[T]{maxInFlightFrames: maxInFlightFrames, destroy: destroy}
}

// Retire schedules resource to be destroyed after maxInFlightFrames further
// calls to OnFrameComplete.
func (s *DropSink[T]) Retire(resource T) {
	s.entries = append(s.entries, dropSinkEntry[T]{
		resource:  resource,
		liveUntil: s.frameIndex + s.maxInFlightFrames + 1,
	})
}

// OnFrameComplete advances the frame counter by one and destroys every entry
// whose deadline has now passed. Entries are stored in arrival order, so they
// are always destroyable as a contiguous prefix.
func (s *DropSink[T]) OnFrameComplete() error {
	s.frameIndex++

	drop := 0
	for _, e := range s.entries {
		if wrappedPast(e.liveUntil, s.frameIndex) {
			drop++
		} else {
			break
		}
	}
	if drop == 0 {
		return nil
	}
	toDestroy := s.entries[:drop]
	s.entries = append(s.entries[:0:0], s.entries[drop:]...)
	for _, e := range toDestroy {
		if err := s.destroy(e.resource); err != nil {
			return err
		}
	}
	return nil
}

// wrappedPast reports whether frameIndex has reached or passed liveUntil,
// using the same wraparound-safe comparison as the drop sink this is
// grounded on: frameIndex - liveUntil, interpreted as a signed delta, is
// non-negative once frameIndex has caught up to or passed the deadline.
func wrappedPast(liveUntil, frameIndex uint32) bool {
	return int32(frameIndex-liveUntil) >= 0
}

// Destroy immediately destroys every entry still in flight. The caller must
// have ensured GPU idleness; calling this while the device is still
// referencing these resources is undefined behavior, matching the contract
// this is grounded on.
func (s *DropSink[T]) Destroy() error {
	entries := s.entries
	s.entries = nil
	for _, e := range entries {
		if err := s.destroy(e.resource); err != nil {
			return err
		}
	}
	return nil
}

// Len reports how many resources are currently awaiting destruction.
func (s *DropSink[T]) Len() int { return len(s.entries) }
