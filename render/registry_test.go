package render

import "testing"

func TestRegisterFeatureIsIdempotentByName(t *testing.T) {
	r := NewRegistry()
	a := r.RegisterFeature("sprites")
	b := r.RegisterFeature("sprites")
	if a != b {
		t.Fatalf("RegisterFeature returned different indices for the same name: %d, %d", a, b)
	}
	if r.FeatureCount() != 1 {
		t.Fatalf("FeatureCount() = %d, want 1", r.FeatureCount())
	}
}

func TestFeatureIndexLookupRoundTrips(t *testing.T) {
	r := NewRegistry()
	idx := r.RegisterFeature("meshes")

	got, ok := r.FeatureIndex("meshes")
	if !ok || got != idx {
		t.Fatalf("FeatureIndex(%q) = (%d, %v), want (%d, true)", "meshes", got, ok, idx)
	}
	if _, ok := r.FeatureIndex("unknown"); ok {
		t.Fatalf("FeatureIndex(%q) found, want not found", "unknown")
	}
	if name := r.FeatureName(idx); name != "meshes" {
		t.Fatalf("FeatureName(%d) = %q, want %q", idx, name, "meshes")
	}
}

func TestRegisterPhaseBoundedAt32(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 32; i++ {
		if _, err := r.RegisterPhase(string(rune('a' + i))); err != nil {
			t.Fatalf("RegisterPhase(%d) error = %v", i, err)
		}
	}
	if _, err := r.RegisterPhase("one-too-many"); err == nil {
		t.Fatalf("expected an error registering a 33rd phase")
	}
}

func TestPhaseIndexLookupRoundTrips(t *testing.T) {
	r := NewRegistry()
	idx, err := r.RegisterPhase("Opaque")
	if err != nil {
		t.Fatalf("RegisterPhase() error = %v", err)
	}

	got, ok := r.PhaseIndex("Opaque")
	if !ok || got != idx {
		t.Fatalf("PhaseIndex(%q) = (%d, %v), want (%d, true)", "Opaque", got, ok, idx)
	}
	if name := r.PhaseName(idx); name != "Opaque" {
		t.Fatalf("PhaseName(%d) = %q, want %q", idx, name, "Opaque")
	}
}
