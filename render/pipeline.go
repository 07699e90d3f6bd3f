package render

import (
	"fmt"
	"sort"
	"sync"

	"github.com/oxyrender/core/gpu"
)

// SubmitNode is a prepared, sortable per-draw record emitted by a prepare
// job and later consumed by a write callback. Handle is opaque to the
// framework; each feature interprets its own handles.
type SubmitNode struct {
	Feature FeatureIndex
	SortKey uint64
	Handle  uint64
}

type binKey struct {
	View  ViewIndex
	Phase PhaseIndex
}

// Bins holds submit-nodes deposited by prepare jobs, keyed by (view,
// phase), until Write consumes them in sorted order.
type Bins struct {
	mu   sync.Mutex
	data map[binKey][]SubmitNode
}

// NewBins returns an empty set of submission bins.
func NewBins() *Bins {
	return &Bins{data: make(map[binKey][]SubmitNode)}
}

// Deposit appends node to the (view, phase) bin. Concurrent deposits from
// different feature prepare jobs are safe.
func (b *Bins) Deposit(view ViewIndex, phase PhaseIndex, node SubmitNode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := binKey{View: view, Phase: phase}
	b.data[key] = append(b.data[key], node)
}

// SortAll sorts every bin by sort-key ascending, tie-broken by feature
// index ascending, tie-broken by insertion order (sort.SliceStable
// preserves insertion order for keys the comparator treats as equal).
func (b *Bins) SortAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, nodes := range b.data {
		sort.SliceStable(nodes, func(i, j int) bool {
			if nodes[i].SortKey != nodes[j].SortKey {
				return nodes[i].SortKey < nodes[j].SortKey
			}
			return nodes[i].Feature < nodes[j].Feature
		})
	}
}

// Bin returns the (view, phase) bin's contents. Call after SortAll for the
// write phase's ordering guarantee to hold.
func (b *Bins) Bin(view ViewIndex, phase PhaseIndex) []SubmitNode {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data[binKey{View: view, Phase: phase}]
}

// ExtractContext is handed to each feature's Extract call: the frame packet
// built for this frame and the view set it was built against.
type ExtractContext struct {
	Packet *FramePacket
	Views  *ViewSet
}

// PrepareJob is the opaque per-feature result of extraction. The framework
// never inspects it; it only calls Prepare once, from whatever goroutine
// the prepare phase assigns it.
type PrepareJob interface {
	Prepare(bins *Bins) error
}

// Feature is a self-contained renderer module registered with a Pipeline.
type Feature interface {
	Index() FeatureIndex
	Extract(ctx ExtractContext) (PrepareJob, error)
}

// WriteCallback records the draw commands for one submit-node.
type WriteCallback func(rec gpu.Recorder, handle uint64, view *RenderView, phase PhaseIndex) error

// Pipeline runs the extract/prepare/write sequence across every registered
// feature for one frame.
type Pipeline struct {
	registry       *Registry
	mu             sync.Mutex
	features       []Feature
	writeCallbacks map[FeatureIndex]WriteCallback
}

// NewPipeline builds a Pipeline reading feature/phase indices from
// registry.
func NewPipeline(registry *Registry) *Pipeline {
	return &Pipeline{registry: registry, writeCallbacks: make(map[FeatureIndex]WriteCallback)}
}

// RegisterFeature adds f to the set run every frame, in registry order
// during Extract.
func (p *Pipeline) RegisterFeature(f Feature) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.features = append(p.features, f)
}

// SetWriteCallback binds feature's write callback, invoked once per
// submit-node it emitted during Prepare.
func (p *Pipeline) SetWriteCallback(feature FeatureIndex, cb WriteCallback) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeCallbacks[feature] = cb
}

// Extract runs every registered feature's extraction in registry order,
// single-threaded and cooperative. Extract does not run until the previous
// feature's Extract call has returned.
func (p *Pipeline) Extract(ctx ExtractContext) ([]PrepareJob, error) {
	p.mu.Lock()
	features := make([]Feature, len(p.features))
	copy(features, p.features)
	p.mu.Unlock()

	sort.Slice(features, func(i, j int) bool { return features[i].Index() < features[j].Index() })

	jobs := make([]PrepareJob, len(features))
	for i, f := range features {
		job, err := f.Extract(ctx)
		if err != nil {
			return nil, fmt.Errorf("render: extract feature %d: %w", f.Index(), err)
		}
		jobs[i] = job
	}
	return jobs, nil
}

// Prepare runs every feature's prepare job concurrently (one goroutine per
// job; single-threaded within each job, per the framework's contract) and
// collects submit-nodes into bins. The first error from any job is
// returned after every job has finished; a failing frame still drains the
// others so no goroutine is left running past Prepare's return.
func (p *Pipeline) Prepare(jobs []PrepareJob, bins *Bins) error {
	var wg sync.WaitGroup
	errs := make([]error, len(jobs))

	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job PrepareJob) {
			defer wg.Done()
			if job == nil {
				return
			}
			errs[i] = job.Prepare(bins)
		}(i, job)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return fmt.Errorf("render: prepare: %w", err)
		}
	}
	bins.SortAll()
	return nil
}

// Write iterates, for view, every phase in phases that the view's mask
// marks relevant, and invokes each submit-node's owning feature's write
// callback in sorted bin order.
func (p *Pipeline) Write(rec gpu.Recorder, view *RenderView, phases []PhaseIndex, bins *Bins) error {
	for _, phase := range phases {
		if !view.PhaseIsRelevant(phase) {
			continue
		}
		for _, node := range bins.Bin(view.Index, phase) {
			p.mu.Lock()
			cb := p.writeCallbacks[node.Feature]
			p.mu.Unlock()
			if cb == nil {
				return fmt.Errorf("render: no write callback registered for feature %d", node.Feature)
			}
			if err := cb(rec, node.Handle, view, phase); err != nil {
				return fmt.Errorf("render: write feature %d: %w", node.Feature, err)
			}
		}
	}
	return nil
}
