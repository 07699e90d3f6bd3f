package render

import (
	"math"
	"sync"

	"github.com/oxyrender/core/common"
)

// ViewIndex identifies one view handed out by a ViewSet, in allocation
// order.
type ViewIndex int

// PhaseMask is a 32-bit bitset of which phases a view includes. Raising the
// phase count bound beyond 32 only changes this type's width.
type PhaseMask uint32

// Contains reports whether phase is set in the mask.
func (m PhaseMask) Contains(phase PhaseIndex) bool {
	if phase < 0 || phase >= 32 {
		return false
	}
	return m&(1<<uint(phase)) != 0
}

// PhaseMaskBuilder accumulates phases into a PhaseMask.
type PhaseMaskBuilder struct {
	mask PhaseMask
}

// NewPhaseMaskBuilder returns a builder for the empty mask.
func NewPhaseMaskBuilder() *PhaseMaskBuilder {
	return &PhaseMaskBuilder{}
}

// Add includes phase in the mask being built.
func (b *PhaseMaskBuilder) Add(phase PhaseIndex) *PhaseMaskBuilder {
	if phase >= 0 && phase < 32 {
		b.mask |= 1 << uint(phase)
	}
	return b
}

// Build finalizes the mask.
func (b *PhaseMaskBuilder) Build() PhaseMask { return b.mask }

// DepthRange carries a view's near plane and an optional far plane; a nil
// Far means an infinite projection. Reversed indicates depth values
// increase toward the camera (reversed-Z), common for precision reasons on
// floating point depth buffers.
type DepthRange struct {
	Near     float32
	Far      *float32
	Reversed bool
}

// Logical returns (near, far) in the conventional (near < far) sense
// regardless of Reversed, with an absent Far reported as +Inf.
func (d DepthRange) Logical() (near, far float32) {
	if d.Far == nil {
		return d.Near, float32(math.Inf(1))
	}
	return d.Near, *d.Far
}

// Physical returns (near, far) in the order the depth buffer actually
// stores them: swapped relative to Logical when Reversed is set.
func (d DepthRange) Physical() (near, far float32) {
	logicalNear, logicalFar := d.Logical()
	if d.Reversed {
		return logicalFar, logicalNear
	}
	return logicalNear, logicalFar
}

// Viewport describes the pixel rectangle a view renders into.
type Viewport struct {
	X, Y, Width, Height float32
}

// ViewParams is the caller-supplied configuration CreateView freezes into an
// immutable RenderView. Eye, Target and Up feed the view matrix; FovY and
// Aspect feed the projection matrix, evaluated against Depth's near plane
// (and far plane when finite).
type ViewParams struct {
	Name     string
	Eye      [3]float32
	Target   [3]float32
	Up       [3]float32
	FovY     float32
	Aspect   float32
	Viewport Viewport
	Depth    DepthRange
	Mask     PhaseMask
}

// RenderView is a camera with a viewport, a phase mask, and a depth range.
// Views are cheap, immutable handles: construct once per frame (or reuse
// across frames for a static camera) and share the pointer. Unlike a mutable
// scene camera, a RenderView never recomputes its matrices after creation —
// a moving camera gets a freshly built view each frame.
type RenderView struct {
	Index      ViewIndex
	Name       string
	Mask       PhaseMask
	Depth      DepthRange
	Viewport   Viewport
	Eye        [3]float32
	View       [16]float32
	Projection [16]float32
	ViewProj   [16]float32
}

// PhaseIsRelevant consults the view's phase mask.
func (v *RenderView) PhaseIsRelevant(phase PhaseIndex) bool {
	return v.Mask.Contains(phase)
}

// ViewSet hands out sequential view indices.
type ViewSet struct {
	mu    sync.Mutex
	views []*RenderView
}

// NewViewSet returns an empty ViewSet.
func NewViewSet() *ViewSet {
	return &ViewSet{}
}

// CreateView allocates the next view index and builds its view, projection
// and view-projection matrices from params.
func (vs *ViewSet) CreateView(params ViewParams) *RenderView {
	v := &RenderView{
		Name:     params.Name,
		Mask:     params.Mask,
		Depth:    params.Depth,
		Viewport: params.Viewport,
		Eye:      params.Eye,
	}

	common.LookAt(v.View[:],
		params.Eye[0], params.Eye[1], params.Eye[2],
		params.Target[0], params.Target[1], params.Target[2],
		params.Up[0], params.Up[1], params.Up[2],
	)
	buildProjection(v.Projection[:], params.FovY, params.Aspect, params.Depth)
	common.Mul4(v.ViewProj[:], v.Projection[:], v.View[:])

	vs.mu.Lock()
	defer vs.mu.Unlock()
	v.Index = ViewIndex(len(vs.views))
	vs.views = append(vs.views, v)
	return v
}

// buildProjection fills out with a right-handed perspective projection for
// depth's near plane (and far plane, when finite). An absent far plane uses
// the standard infinite-far-plane limit of the same matrix form rather than
// common.Perspective's finite-far division, which would divide Inf by Inf.
func buildProjection(out []float32, fovY, aspect float32, depth DepthRange) {
	near, far := depth.Logical()
	if depth.Far == nil {
		f := float32(1.0 / math.Tan(float64(fovY)/2.0))
		common.Identity(out)
		out[0] = f / aspect
		out[5] = f
		out[10] = -1
		out[11] = -1
		out[14] = -near
		out[15] = 0
		return
	}
	common.Perspective(out, fovY, aspect, near, far)
}

// Views returns every view created so far, in allocation order.
func (vs *ViewSet) Views() []*RenderView {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	out := make([]*RenderView, len(vs.views))
	copy(out, vs.views)
	return out
}
