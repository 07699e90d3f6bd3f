// Package render implements the view/phase model, frame packet builder, and
// extract/prepare/write job pipeline: the per-frame draw-call production
// half of the framework, sitting on top of the render graph's compiled
// Plan and the gpu.Device driver.
package render

import (
	"fmt"
	"sync"
)

// FeatureIndex identifies a registered renderer feature (sprites, meshes,
// debug lines). Indices are allocated monotonically from zero at
// registration time.
type FeatureIndex int

// PhaseIndex identifies a registered named ordering bucket (Opaque,
// Transparent, Debug). Indices are allocated monotonically from zero, and
// are bound to 32 by the PhaseMask bitset.
type PhaseIndex int

// Registry assigns feature and phase indices at startup and resolves names
// back from indices for diagnostics.
type Registry struct {
	mu sync.Mutex

	featureNames []string
	featureByName map[string]FeatureIndex

	phaseNames []string
	phaseByName map[string]PhaseIndex
}

// NewRegistry returns an empty feature/phase Registry.
func NewRegistry() *Registry {
	return &Registry{
		featureByName: make(map[string]FeatureIndex),
		phaseByName:   make(map[string]PhaseIndex),
	}
}

// RegisterFeature assigns name the next feature index. Registering the same
// name twice returns its existing index rather than allocating a new one.
func (r *Registry) RegisterFeature(name string) FeatureIndex {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx, ok := r.featureByName[name]; ok {
		return idx
	}
	idx := FeatureIndex(len(r.featureNames))
	r.featureNames = append(r.featureNames, name)
	r.featureByName[name] = idx
	return idx
}

// RegisterPhase assigns name the next phase index. The bitset backing
// PhaseMask bounds this at 32 registrations.
func (r *Registry) RegisterPhase(name string) (PhaseIndex, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx, ok := r.phaseByName[name]; ok {
		return idx, nil
	}
	if len(r.phaseNames) >= 32 {
		return 0, fmt.Errorf("render: cannot register phase %q: phase mask is bounded at 32 phases", name)
	}
	idx := PhaseIndex(len(r.phaseNames))
	r.phaseNames = append(r.phaseNames, name)
	r.phaseByName[name] = idx
	return idx, nil
}

// FeatureIndex looks up a previously registered feature by name.
func (r *Registry) FeatureIndex(name string) (FeatureIndex, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx, ok := r.featureByName[name]
	return idx, ok
}

// PhaseIndex looks up a previously registered phase by name.
func (r *Registry) PhaseIndex(name string) (PhaseIndex, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx, ok := r.phaseByName[name]
	return idx, ok
}

// FeatureName resolves idx back to its registration name.
func (r *Registry) FeatureName(idx FeatureIndex) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if int(idx) < 0 || int(idx) >= len(r.featureNames) {
		return ""
	}
	return r.featureNames[idx]
}

// PhaseName resolves idx back to its registration name.
func (r *Registry) PhaseName(idx PhaseIndex) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if int(idx) < 0 || int(idx) >= len(r.phaseNames) {
		return ""
	}
	return r.phaseNames[idx]
}

// FeatureCount reports how many features have been registered.
func (r *Registry) FeatureCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.featureNames)
}

// PhaseCount reports how many phases have been registered.
func (r *Registry) PhaseCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.phaseNames)
}
