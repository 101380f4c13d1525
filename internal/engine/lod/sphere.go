package lod

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/quadsphere/internal/engine/quadtree"
	"github.com/Faultbox/quadsphere/internal/engine/terrain"
	"github.com/Faultbox/quadsphere/internal/jobs"
	"github.com/Faultbox/quadsphere/internal/logger"
	"github.com/Faultbox/quadsphere/pkg/cubesphere"
	"github.com/Faultbox/quadsphere/pkg/math"
)

var (
	// ErrMergeRoot is returned when a level-0 patch is asked to merge.
	ErrMergeRoot = errors.New("lod: root patch cannot merge")

	// ErrPatchBusy is returned when destroying a patch with a mesh task in flight.
	ErrPatchBusy = errors.New("lod: patch is generating a mesh")

	// ErrGenerationFailed wraps the error of a failed mesh task.
	ErrGenerationFailed = errors.New("lod: mesh generation failed")

	// ErrClosed is returned by Update after Close or after a fatal error.
	ErrClosed = errors.New("lod: sphere is closed")

	// ErrInvalidOptions is returned by New for unusable options.
	ErrInvalidOptions = errors.New("lod: invalid options")
)

// Body is the celestial body the terrain is built on.
type Body interface {
	Radius() float64
	// LocalToAbsolute maps a body-local point into the frame POIs are given in.
	LocalToAbsolute(local math.Vec3d) math.Vec3d
}

// Options tunes the subdivision behavior.
type Options struct {
	// EdgeSubdivisions is the per-patch mesh resolution exponent E.
	EdgeSubdivisions int
	// HardLimitLevel is the deepest level a patch may split to.
	HardLimitLevel int
	// RangeMultiplier scales the radius into the root split distance.
	RangeMultiplier float64
	// MergeMultiplier scales the parent split distance into the merge distance.
	MergeMultiplier float64
	// SyncGeneration makes every Update wait for all outstanding mesh tasks.
	SyncGeneration bool
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		EdgeSubdivisions: 4,
		HardLimitLevel:   18,
		RangeMultiplier:  2.0,
		MergeMultiplier:  2.0,
		SyncGeneration:   true,
	}
}

func (o Options) validate() error {
	if o.EdgeSubdivisions < 0 || o.EdgeSubdivisions > 16 ||
		terrain.VertexCount(o.EdgeSubdivisions) > terrain.MaxVertices {
		return fmt.Errorf("%w: %d edge subdivisions: %w", ErrInvalidOptions, o.EdgeSubdivisions, terrain.ErrTooManyVertices)
	}
	if o.HardLimitLevel < 0 || o.HardLimitLevel > 62 {
		return fmt.Errorf("%w: hard limit level %d", ErrInvalidOptions, o.HardLimitLevel)
	}
	if o.RangeMultiplier <= 0 {
		return fmt.Errorf("%w: range multiplier %g", ErrInvalidOptions, o.RangeMultiplier)
	}
	if o.MergeMultiplier <= 0 {
		return fmt.Errorf("%w: merge multiplier %g", ErrInvalidOptions, o.MergeMultiplier)
	}
	return nil
}

// Stats is a snapshot of the sphere for logging and tests.
type Stats struct {
	Tick        uint64
	Patches     int
	Active      int
	Generating  int
	MaxLevel    int
	Splits      uint64
	Merges      uint64
	MergeVetoes uint64
	PerFace     [cubesphere.FaceCount]int
}

type buildFunc func(terrain.QuadParams) (*terrain.QuadMesh, error)

// Sphere owns the six face quadtrees and every patch on them. All methods
// must be called from a single control goroutine; only mesh builds run
// concurrently.
type Sphere struct {
	body  Body
	opts  Options
	sched *jobs.Scheduler
	build buildFunc
	log   *zap.Logger

	roots   [cubesphere.FaceCount]*quadtree.Node[PatchID]
	patches map[PatchID]*Patch
	lastID  PatchID
	pois    []math.Vec3d

	tick        uint64
	splits      uint64
	merges      uint64
	mergeVetoes uint64

	err    error
	closed bool
}

// New creates the six level-0 patches and dispatches their mesh tasks.
func New(body Body, opts Options, sched *jobs.Scheduler) (*Sphere, error) {
	return newSphere(body, opts, sched, terrain.BuildQuadMesh)
}

func newSphere(body Body, opts Options, sched *jobs.Scheduler, build buildFunc) (*Sphere, error) {
	if body == nil || body.Radius() <= 0 {
		return nil, fmt.Errorf("%w: body needs a positive radius", ErrInvalidOptions)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if sched == nil {
		sched = jobs.NewScheduler(0)
	}

	s := &Sphere{
		body:    body,
		opts:    opts,
		sched:   sched,
		build:   build,
		log:     logger.Named("lod"),
		patches: make(map[PatchID]*Patch),
	}

	trigger := body.Radius() * opts.RangeMultiplier
	for _, face := range cubesphere.Faces {
		root := quadtree.New[PatchID](quadtree.Rect{MinX: -1, MinY: -1, MaxX: 1, MaxY: 1})
		s.roots[face] = root
		s.spawn(face, root, 0, trigger)
	}

	s.log.Info("sphere created",
		zap.Float64("radius", body.Radius()),
		zap.Float64("root_trigger", trigger),
		zap.Int("edge_subdivisions", opts.EdgeSubdivisions),
		zap.Int("hard_limit_level", opts.HardLimitLevel),
		zap.Bool("sync_generation", opts.SyncGeneration))

	return s, nil
}

// Options returns the options the sphere was created with.
func (s *Sphere) Options() Options { return s.opts }

// Patch looks up a live patch.
func (s *Sphere) Patch(id PatchID) (*Patch, bool) {
	p, ok := s.patches[id]
	return p, ok
}

// Neighbor resolves the link of patch id in direction d. It reports false
// when the link is unset or its target has been destroyed.
func (s *Sphere) Neighbor(id PatchID, d cubesphere.Direction) (*Patch, bool) {
	p, ok := s.patches[id]
	if !ok {
		return nil, false
	}
	return s.Patch(p.neighbors[d])
}

// Root returns the quadtree of a face.
func (s *Sphere) Root(face cubesphere.Face) *quadtree.Node[PatchID] {
	return s.roots[face]
}

// Leaves returns the patches of a face in quadtree order.
func (s *Sphere) Leaves(face cubesphere.Face) []*Patch {
	ids := s.roots[face].OccupiedLeaves()
	out := make([]*Patch, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.patches[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Update runs one LOD tick against the given points of interest, expressed
// in the same frame as Body.LocalToAbsolute. A failed mesh task is fatal:
// the error is returned and every later call returns ErrClosed.
func (s *Sphere) Update(pois []math.Vec3d) error {
	if s.closed {
		if s.err != nil {
			return fmt.Errorf("%w: %w", ErrClosed, s.err)
		}
		return ErrClosed
	}
	s.tick++

	s.pois = append(s.pois[:0:0], pois...)
	for _, p := range s.patches {
		p.pois = s.pois
	}

	for _, face := range cubesphere.Faces {
		for _, id := range s.roots[face].OccupiedLeaves() {
			p, ok := s.patches[id]
			if !ok || p.state != StateActive {
				continue
			}
			if err := s.evaluate(p); err != nil {
				return s.fail(err)
			}
		}
	}

	if err := s.collect(s.opts.SyncGeneration); err != nil {
		return s.fail(err)
	}
	return nil
}

func (s *Sphere) fail(err error) error {
	s.err = err
	s.closed = true
	s.log.Error("lod tick failed", zap.Uint64("tick", s.tick), zap.Error(err))
	return err
}

// Err returns the fatal error that closed the sphere, if any.
func (s *Sphere) Err() error { return s.err }

// Close waits for every outstanding mesh task. It is safe to call more
// than once.
func (s *Sphere) Close() error {
	var errs []error
	for _, p := range s.patches {
		if p.state != StateGeneratingMesh {
			continue
		}
		if err := s.adopt(p); err != nil {
			errs = append(errs, err)
		}
	}
	s.closed = true
	return errors.Join(errs...)
}

// RenderPatches returns every active patch ordered by face then ID.
func (s *Sphere) RenderPatches() []RenderPatch {
	out := make([]RenderPatch, 0, len(s.patches))
	for _, p := range s.patches {
		if p.state == StateActive && p.mesh != nil {
			out = append(out, p.renderView())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Face != out[j].Face {
			return out[i].Face < out[j].Face
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Stats returns counters describing the current structure.
func (s *Sphere) Stats() Stats {
	st := Stats{
		Tick:        s.tick,
		Patches:     len(s.patches),
		Splits:      s.splits,
		Merges:      s.merges,
		MergeVetoes: s.mergeVetoes,
	}
	for _, p := range s.patches {
		switch p.state {
		case StateActive:
			st.Active++
		case StateGeneratingMesh:
			st.Generating++
		}
		if p.level > st.MaxLevel {
			st.MaxLevel = p.level
		}
		st.PerFace[p.face]++
	}
	return st
}

// spawn creates a patch on an empty leaf and starts its mesh generation.
func (s *Sphere) spawn(face cubesphere.Face, node *quadtree.Node[PatchID], level int, trigger float64) *Patch {
	s.lastID++
	center := node.Center()
	p := &Patch{
		id:                  s.lastID,
		face:                face,
		level:               level,
		node:                node,
		rect:                node.Rect,
		center:              center,
		origin:              face.SpherePointAt(center).Scale(s.body.Radius()),
		subdivisionDistance: trigger,
		state:               StateIdle,
		pois:                s.pois,
	}
	node.Value = p.id
	s.patches[p.id] = p
	instrumentPatchCreated(face, level)

	s.generate(p)
	return p
}

// destroy removes a patch from the registry. Links pointing at it go stale
// and resolve as unset.
func (s *Sphere) destroy(id PatchID) error {
	p, ok := s.patches[id]
	if !ok {
		return nil
	}
	if p.state == StateGeneratingMesh {
		return fmt.Errorf("destroy patch %d: %w", id, ErrPatchBusy)
	}
	if p.node != nil && p.node.Value == id {
		p.node.Value = 0
	}
	p.node = nil
	p.mesh = nil
	delete(s.patches, id)
	instrumentPatchDestroyed(p.face, p.level)
	return nil
}

// generate dispatches the mesh task of p. The parameters are captured by
// value so the task never touches the patch.
func (s *Sphere) generate(p *Patch) {
	params := terrain.QuadParams{
		Face:             p.face,
		Level:            p.level,
		Center:           p.center,
		Origin:           p.origin,
		Radius:           s.body.Radius(),
		EdgeSubdivisions: s.opts.EdgeSubdivisions,
	}
	build := s.build

	p.state = StateGeneratingMesh
	outstandingTasks.Inc()
	p.task = jobs.Submit(s.sched, func() (*terrain.QuadMesh, error) {
		start := time.Now()
		defer instrumentMeshBuild(start)
		return build(params)
	})
}

// collect adopts finished mesh tasks. With wait set it blocks until every
// outstanding task is done.
func (s *Sphere) collect(wait bool) error {
	ids := make([]PatchID, 0, len(s.patches))
	for id, p := range s.patches {
		if p.state == StateGeneratingMesh {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		p := s.patches[id]
		if !wait && !p.task.Ready() {
			continue
		}
		if err := s.adopt(p); err != nil {
			return err
		}
	}
	return nil
}

// adopt joins the task of p, blocking until it finishes, and makes p active.
func (s *Sphere) adopt(p *Patch) error {
	if p.task == nil {
		return nil
	}
	mesh, err := p.task.Join()
	p.task = nil
	outstandingTasks.Dec()
	if err != nil {
		p.state = StateIdle
		return fmt.Errorf("%w: patch %d (%s level %d): %w", ErrGenerationFailed, p.id, p.face, p.level, err)
	}
	p.mesh = mesh
	p.state = StateActive
	return nil
}

// LeafAt returns the leaf patch whose face region contains the body-local
// direction dir. Points on a shared edge resolve to the first leaf in
// quadtree order.
func (s *Sphere) LeafAt(dir math.Vec3d) (*Patch, bool) {
	if dir.Length() == 0 {
		return nil, false
	}
	face, pt := cubesphere.FaceCoords(dir)
	for _, leaf := range s.roots[face].QueryOverlappingLeaves(quadtree.RectAround(pt, 0)) {
		if p, ok := s.occupant(leaf); ok {
			return p, true
		}
	}
	return nil, false
}
