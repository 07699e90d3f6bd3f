package resource

import "testing"

type destroyCounter struct {
	name string
	n    *int
}

func (d destroyCounter) Destroy() error {
	*d.n++
	return nil
}

func TestDropSinkRetirementTiming(t *testing.T) {
	destroyed := 0
	sink := NewDropSink(2, func(d destroyCounter) error { return d.Destroy() })

	sink.Retire(destroyCounter{name: "sampler", n: &destroyed})

	sink.OnFrameComplete()
	if destroyed != 0 {
		t.Fatalf("after 1 OnFrameComplete: destroyed = %d, want 0", destroyed)
	}

	sink.OnFrameComplete()
	if destroyed != 0 {
		t.Fatalf("after 2 OnFrameComplete: destroyed = %d, want 0", destroyed)
	}

	sink.OnFrameComplete()
	if destroyed != 1 {
		t.Fatalf("after 3 OnFrameComplete: destroyed = %d, want 1", destroyed)
	}
}

func TestDropSinkOrderedDestruction(t *testing.T) {
	var order []string
	sink := NewDropSink(0, func(name string) error {
		order = append(order, name)
		return nil
	})

	sink.Retire("a")
	sink.Retire("b")
	sink.OnFrameComplete()

	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("destruction order = %v, want [a b]", order)
	}
}

func TestWrappedPast(t *testing.T) {
	tests := []struct {
		name      string
		liveUntil uint32
		frame     uint32
		want      bool
	}{
		{"not yet due", 5, 3, false},
		{"exactly due", 5, 5, true},
		{"past due", 5, 10, true},
		{"wraps around", 2, ^uint32(0) - 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := wrappedPast(tt.liveUntil, tt.frame); got != tt.want {
				t.Errorf("wrappedPast(%d, %d) = %v, want %v", tt.liveUntil, tt.frame, got, tt.want)
			}
		})
	}
}

func TestDropSinkDestroyImmediate(t *testing.T) {
	destroyed := 0
	sink := NewDropSink(5, func(d destroyCounter) error { return d.Destroy() })
	sink.Retire(destroyCounter{n: &destroyed})
	sink.Retire(destroyCounter{n: &destroyed})

	if err := sink.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if destroyed != 2 {
		t.Fatalf("destroyed = %d, want 2", destroyed)
	}
	if sink.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", sink.Len())
	}
}
