package render

import (
	"errors"
	"math"
	"testing"

	"github.com/oxyrender/core/gpu"
)

func TestBinsSortOrdering(t *testing.T) {
	bins := NewBins()
	view, phase := ViewIndex(0), PhaseIndex(0)

	// Two nodes share a sort key: feature index breaks the tie. A third
	// node has a lower sort key and should sort first regardless of
	// insertion order.
	bins.Deposit(view, phase, SubmitNode{Feature: 2, SortKey: 5, Handle: 1})
	bins.Deposit(view, phase, SubmitNode{Feature: 1, SortKey: 5, Handle: 2})
	bins.Deposit(view, phase, SubmitNode{Feature: 0, SortKey: 1, Handle: 3})
	// Same (SortKey, Feature) as an earlier entry: insertion order must win.
	bins.Deposit(view, phase, SubmitNode{Feature: 1, SortKey: 5, Handle: 4})

	bins.SortAll()
	got := bins.Bin(view, phase)

	want := []uint64{3, 2, 4, 1}
	if len(got) != len(want) {
		t.Fatalf("Bin() length = %d, want %d", len(got), len(want))
	}
	for i, h := range want {
		if got[i].Handle != h {
			t.Fatalf("Bin()[%d].Handle = %d, want %d (full: %+v)", i, got[i].Handle, h, got)
		}
	}
}

type fakeFeature struct {
	index      FeatureIndex
	extractErr error
	nodes      []SubmitNode
	view       ViewIndex
	phase      PhaseIndex
}

func (f *fakeFeature) Index() FeatureIndex { return f.index }

func (f *fakeFeature) Extract(ExtractContext) (PrepareJob, error) {
	if f.extractErr != nil {
		return nil, f.extractErr
	}
	return &fakePrepareJob{feature: f}, nil
}

type fakePrepareJob struct {
	feature *fakeFeature
}

func (j *fakePrepareJob) Prepare(bins *Bins) error {
	for _, n := range j.feature.nodes {
		bins.Deposit(j.feature.view, j.feature.phase, n)
	}
	return nil
}

func TestViewPhaseFiltering(t *testing.T) {
	registry := NewRegistry()
	registry.RegisterFeature("opaque-dummy")
	opaquePhase, _ := registry.RegisterPhase("Opaque")
	transparentPhase, _ := registry.RegisterPhase("Transparent")

	viewSet := NewViewSet()
	far := float32(100)
	v1 := viewSet.CreateView(ViewParams{
		Name:   "V1",
		Eye:    [3]float32{0, 0, 5},
		Up:     [3]float32{0, 1, 0},
		FovY:   float32(math.Pi) / 4,
		Aspect: 1,
		Depth:  DepthRange{Near: 0.1, Far: &far},
		Mask:   NewPhaseMaskBuilder().Add(opaquePhase).Build(),
	})
	v2 := viewSet.CreateView(ViewParams{
		Name:   "V2",
		Eye:    [3]float32{0, 0, 5},
		Up:     [3]float32{0, 1, 0},
		FovY:   float32(math.Pi) / 4,
		Aspect: 1,
		Depth:  DepthRange{Near: 0.1, Far: &far},
		Mask:   NewPhaseMaskBuilder().Add(opaquePhase).Add(transparentPhase).Build(),
	})

	pipeline := NewPipeline(registry)
	var writesV1Opaque, writesV1Transparent, writesV2Opaque, writesV2Transparent int
	pipeline.SetWriteCallback(0, func(rec gpu.Recorder, handle uint64, view *RenderView, phase PhaseIndex) error {
		switch {
		case view.Index == v1.Index && phase == opaquePhase:
			writesV1Opaque++
		case view.Index == v1.Index && phase == transparentPhase:
			writesV1Transparent++
		case view.Index == v2.Index && phase == opaquePhase:
			writesV2Opaque++
		case view.Index == v2.Index && phase == transparentPhase:
			writesV2Transparent++
		}
		return nil
	})

	bins := NewBins()
	const n, m = 3, 2
	for i := 0; i < n; i++ {
		bins.Deposit(v1.Index, opaquePhase, SubmitNode{Feature: 0, SortKey: uint64(i), Handle: uint64(i)})
		bins.Deposit(v2.Index, opaquePhase, SubmitNode{Feature: 0, SortKey: uint64(i), Handle: uint64(i)})
	}
	for i := 0; i < m; i++ {
		bins.Deposit(v2.Index, transparentPhase, SubmitNode{Feature: 0, SortKey: uint64(i), Handle: uint64(100 + i)})
	}
	bins.SortAll()

	phases := []PhaseIndex{opaquePhase, transparentPhase}
	if err := pipeline.Write(nil, v1, phases, bins); err != nil {
		t.Fatalf("Write(V1) error = %v", err)
	}
	if err := pipeline.Write(nil, v2, phases, bins); err != nil {
		t.Fatalf("Write(V2) error = %v", err)
	}

	if writesV1Opaque != n {
		t.Fatalf("writesV1Opaque = %d, want %d", writesV1Opaque, n)
	}
	if writesV1Transparent != 0 {
		t.Fatalf("writesV1Transparent = %d, want 0 (V1's mask excludes Transparent)", writesV1Transparent)
	}
	if writesV2Opaque != n {
		t.Fatalf("writesV2Opaque = %d, want %d", writesV2Opaque, n)
	}
	if writesV2Transparent != m {
		t.Fatalf("writesV2Transparent = %d, want %d", writesV2Transparent, m)
	}
}

func TestExtractPropagatesFeatureError(t *testing.T) {
	registry := NewRegistry()
	f := &fakeFeature{index: 0, extractErr: errors.New("boom")}
	pipeline := NewPipeline(registry)
	pipeline.RegisterFeature(f)

	_, err := pipeline.Extract(ExtractContext{})
	if err == nil {
		t.Fatalf("expected an error from Extract")
	}
}
