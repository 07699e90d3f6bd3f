package render

import (
	"math"
	"testing"
)

func TestPhaseMaskEmptyQueriesFalse(t *testing.T) {
	mask := NewPhaseMaskBuilder().Build()
	for p := PhaseIndex(0); p < 32; p++ {
		if mask.Contains(p) {
			t.Fatalf("empty mask.Contains(%d) = true, want false", p)
		}
	}
}

func TestPhaseMaskAddAndQuery(t *testing.T) {
	mask := NewPhaseMaskBuilder().Add(3).Build()
	if !mask.Contains(3) {
		t.Fatalf("mask.Contains(3) = false, want true")
	}
	if mask.Contains(4) {
		t.Fatalf("mask.Contains(4) = true, want false")
	}
}

func TestDepthRangeLogicalAndPhysical(t *testing.T) {
	far := float32(100)
	d := DepthRange{Near: 1, Far: &far, Reversed: true}

	near, farOut := d.Logical()
	if near != 1 || farOut != 100 {
		t.Fatalf("Logical() = (%v, %v), want (1, 100)", near, farOut)
	}

	physNear, physFar := d.Physical()
	if physNear != 100 || physFar != 1 {
		t.Fatalf("Physical() = (%v, %v), want (100, 1) when reversed", physNear, physFar)
	}
}

func TestDepthRangeInfiniteFar(t *testing.T) {
	d := DepthRange{Near: 0.1}
	_, far := d.Logical()
	if far <= 1e30 {
		t.Fatalf("Logical() far = %v, want +Inf for an absent far plane", far)
	}
}

func TestCreateViewBuildsMatrices(t *testing.T) {
	vs := NewViewSet()
	far := float32(100)
	v := vs.CreateView(ViewParams{
		Name:   "main",
		Eye:    [3]float32{0, 0, 5},
		Target: [3]float32{0, 0, 0},
		Up:     [3]float32{0, 1, 0},
		FovY:   float32(math.Pi) / 3,
		Aspect: 16.0 / 9.0,
		Depth:  DepthRange{Near: 0.1, Far: &far},
	})

	if v.Index != 0 {
		t.Fatalf("Index = %d, want 0", v.Index)
	}
	// A camera looking down -Z from (0,0,5) at the origin keeps the
	// translation in the view matrix's third row at -5 (eye distance along
	// the look direction), matching LookAt's convention.
	if got := v.View[14]; got != -5 {
		t.Fatalf("View[14] = %v, want -5", got)
	}
	// Perspective projection always clears w from x/y rows and sets -1 into
	// the clip-space w row.
	if v.Projection[11] != -1 {
		t.Fatalf("Projection[11] = %v, want -1", v.Projection[11])
	}
	allZero := true
	for _, f := range v.ViewProj {
		if f != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		t.Fatalf("ViewProj was never populated")
	}
}

func TestCreateViewInfiniteFarAvoidsNaN(t *testing.T) {
	vs := NewViewSet()
	v := vs.CreateView(ViewParams{
		Eye:    [3]float32{0, 0, 5},
		Up:     [3]float32{0, 1, 0},
		FovY:   float32(math.Pi) / 3,
		Aspect: 1,
		Depth:  DepthRange{Near: 0.1},
	})
	for i, f := range v.Projection {
		if math.IsNaN(float64(f)) {
			t.Fatalf("Projection[%d] is NaN with an infinite far plane", i)
		}
	}
}
