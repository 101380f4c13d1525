package lod

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Faultbox/quadsphere/internal/engine/celestial"
	"github.com/Faultbox/quadsphere/internal/engine/quadtree"
	"github.com/Faultbox/quadsphere/internal/engine/terrain"
	"github.com/Faultbox/quadsphere/internal/jobs"
	"github.com/Faultbox/quadsphere/pkg/cubesphere"
	"github.com/Faultbox/quadsphere/pkg/math"
)

const testRadius = 1000.0

func testOptions() Options {
	opts := DefaultOptions()
	opts.EdgeSubdivisions = 2
	return opts
}

func newTestSphere(t *testing.T, opts Options) *Sphere {
	t.Helper()
	body := celestial.NewBody("test", testRadius, math.Vec3d{})
	s, err := New(body, opts, jobs.NewScheduler(2))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func tick(t *testing.T, s *Sphere, pois ...math.Vec3d) {
	t.Helper()
	require.NoError(t, s.Update(pois))
}

func rootPatch(t *testing.T, s *Sphere, face cubesphere.Face) *Patch {
	t.Helper()
	p, ok := s.Patch(s.Root(face).Value)
	require.True(t, ok)
	return p
}

func TestNewCreatesSixRoots(t *testing.T) {
	s := newTestSphere(t, testOptions())

	st := s.Stats()
	require.Equal(t, 6, st.Patches)
	require.Equal(t, 6, st.Generating)

	for _, face := range cubesphere.Faces {
		p := rootPatch(t, s, face)
		require.Equal(t, 0, p.Level())
		require.Equal(t, StateGeneratingMesh, p.State())
		require.InDelta(t, 2*testRadius, p.SubdivisionDistance(), 1e-9)
		require.InDelta(t, 0, p.Origin().Distance(face.Normal().Scale(testRadius)), 1e-9)
	}

	tick(t, s)
	st = s.Stats()
	require.Equal(t, 6, st.Active)
	require.Len(t, s.RenderPatches(), 6)
	for _, rp := range s.RenderPatches() {
		require.Equal(t, terrain.VertexCount(2), rp.Mesh.VertexCount())
	}
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	body := celestial.NewBody("test", testRadius, math.Vec3d{})

	opts := testOptions()
	opts.EdgeSubdivisions = 8
	_, err := New(body, opts, nil)
	require.ErrorIs(t, err, ErrInvalidOptions)
	require.ErrorIs(t, err, terrain.ErrTooManyVertices)

	opts = testOptions()
	opts.MergeMultiplier = 0
	_, err = New(body, opts, nil)
	require.ErrorIs(t, err, ErrInvalidOptions)

	_, err = New(celestial.NewBody("flat", 0, math.Vec3d{}), testOptions(), nil)
	require.ErrorIs(t, err, ErrInvalidOptions)
}

func TestSplitAndMergeFollowPOI(t *testing.T) {
	s := newTestSphere(t, testOptions())
	d := 2 * testRadius
	near := math.Vec3d{X: testRadius + d/2}

	// Roots are still generating during the first tick.
	tick(t, s, near)
	require.Equal(t, 6, s.Stats().Patches)

	tick(t, s, near)
	leaves := s.Leaves(cubesphere.FaceXP)
	require.Len(t, leaves, 4)
	for _, p := range leaves {
		require.Equal(t, 1, p.Level())
		require.InDelta(t, d/2, p.SubdivisionDistance(), 1e-9)
		require.Equal(t, StateActive, p.State())
	}
	for _, face := range cubesphere.Faces[1:] {
		require.Len(t, s.Leaves(face), 1)
	}
	require.Equal(t, uint64(1), s.Stats().Splits)

	// Children stay put while the POI remains inside the parent's range.
	tick(t, s, near)
	require.Len(t, s.Leaves(cubesphere.FaceXP), 4)

	tick(t, s, math.Vec3d{X: 10 * testRadius})
	leaves = s.Leaves(cubesphere.FaceXP)
	require.Len(t, leaves, 1)
	require.Equal(t, 0, leaves[0].Level())
	require.InDelta(t, d, leaves[0].SubdivisionDistance(), 1e-9)
	require.Equal(t, StateActive, leaves[0].State())
	require.Equal(t, uint64(1), s.Stats().Merges)
	require.Equal(t, 6, s.Stats().Patches)
}

func TestSplitThenMergeRestoresStructure(t *testing.T) {
	s := newTestSphere(t, testOptions())
	tick(t, s)

	root := rootPatch(t, s, cubesphere.FaceXP)
	rect := root.Rect()
	require.NoError(t, s.split(root))
	require.NoError(t, s.collect(true))
	require.False(t, s.Root(cubesphere.FaceXP).IsLeaf())

	// No POIs: every non-root patch wants to merge.
	tick(t, s)

	require.True(t, s.Root(cubesphere.FaceXP).IsLeaf())
	merged := rootPatch(t, s, cubesphere.FaceXP)
	require.NotEqual(t, root.ID(), merged.ID())
	require.Equal(t, rect, merged.Rect())
	require.Equal(t, 0, merged.Level())
	require.InDelta(t, root.SubdivisionDistance(), merged.SubdivisionDistance(), 1e-9)
	require.Equal(t, root.Origin(), merged.Origin())
	require.Equal(t, 6, s.Stats().Patches)
}

func TestSiblingNeighborsAreSymmetric(t *testing.T) {
	s := newTestSphere(t, testOptions())
	tick(t, s)
	require.NoError(t, s.split(rootPatch(t, s, cubesphere.FaceXP)))

	c := s.Leaves(cubesphere.FaceXP)
	require.Len(t, c, 4)

	pairs := []struct {
		from, to int
		dir      cubesphere.Direction
	}{
		{0, 1, cubesphere.East},
		{1, 0, cubesphere.West},
		{0, 2, cubesphere.North},
		{2, 0, cubesphere.South},
		{1, 3, cubesphere.North},
		{3, 1, cubesphere.South},
		{2, 3, cubesphere.East},
		{3, 2, cubesphere.West},
	}
	for _, pair := range pairs {
		n, ok := s.Neighbor(c[pair.from].ID(), pair.dir)
		require.True(t, ok, "child %d %s", pair.from, pair.dir)
		require.Equal(t, c[pair.to].ID(), n.ID(), "child %d %s", pair.from, pair.dir)
	}

	// Outer edges have no same-face neighbor.
	_, ok := s.Neighbor(c[0].ID(), cubesphere.West)
	require.False(t, ok)
	_, ok = s.Neighbor(c[0].ID(), cubesphere.South)
	require.False(t, ok)
}

func TestNeighborOfDestroyedPatchIsUnset(t *testing.T) {
	s := newTestSphere(t, testOptions())
	tick(t, s)
	require.NoError(t, s.split(rootPatch(t, s, cubesphere.FaceXP)))
	require.NoError(t, s.collect(true))

	c := s.Leaves(cubesphere.FaceXP)
	c0, c1 := c[0], c[1]
	require.Equal(t, c0.ID(), c1.NeighborID(cubesphere.West))

	require.NoError(t, s.split(c0))
	require.NoError(t, s.collect(true))

	// Finer patches never overwrite the link of a coarser one.
	require.Equal(t, c0.ID(), c1.NeighborID(cubesphere.West))
	_, ok := s.Neighbor(c1.ID(), cubesphere.West)
	require.False(t, ok)

	// The finer patches still link to the coarse one.
	for _, g := range s.Leaves(cubesphere.FaceXP) {
		if g.Level() != 2 || g.Rect().MaxX != 0 {
			continue
		}
		n, ok := s.Neighbor(g.ID(), cubesphere.East)
		require.True(t, ok)
		require.Equal(t, c1.ID(), n.ID())
	}
}

func TestMergeVetoedBySubdividedSibling(t *testing.T) {
	s := newTestSphere(t, testOptions())
	tick(t, s)
	require.NoError(t, s.split(rootPatch(t, s, cubesphere.FaceXP)))
	require.NoError(t, s.collect(true))
	c := s.Leaves(cubesphere.FaceXP)
	require.NoError(t, s.split(c[0]))
	require.NoError(t, s.collect(true))

	before := s.Stats()
	merged, err := s.merge(c[1])
	require.NoError(t, err)
	require.False(t, merged)

	after := s.Stats()
	require.Equal(t, before.Patches, after.Patches)
	require.Equal(t, before.MergeVetoes+1, after.MergeVetoes)
	require.Len(t, s.Leaves(cubesphere.FaceXP), 7)
	require.False(t, s.Root(cubesphere.FaceXP).Child(0).IsLeaf())
}

func TestMergeVetoedByGeneratingSibling(t *testing.T) {
	s := newTestSphere(t, testOptions())
	tick(t, s)
	require.NoError(t, s.split(rootPatch(t, s, cubesphere.FaceXP)))

	c := s.Leaves(cubesphere.FaceXP)
	require.NoError(t, s.adopt(c[0]))
	require.Equal(t, StateActive, c[0].State())
	require.Equal(t, StateGeneratingMesh, c[1].State())

	merged, err := s.merge(c[0])
	require.NoError(t, err)
	require.False(t, merged)
	require.Len(t, s.Leaves(cubesphere.FaceXP), 4)
}

func TestMergeRootFails(t *testing.T) {
	s := newTestSphere(t, testOptions())
	tick(t, s)

	_, err := s.merge(rootPatch(t, s, cubesphere.FaceZN))
	require.ErrorIs(t, err, ErrMergeRoot)
}

func TestDestroyGeneratingPatchFails(t *testing.T) {
	s := newTestSphere(t, testOptions())

	p := rootPatch(t, s, cubesphere.FaceYP)
	require.ErrorIs(t, s.destroy(p.ID()), ErrPatchBusy)

	_, ok := s.Patch(p.ID())
	require.True(t, ok)
}

func TestHardLimitStopsSplitting(t *testing.T) {
	opts := testOptions()
	opts.HardLimitLevel = 0
	s := newTestSphere(t, opts)

	for i := 0; i < 5; i++ {
		tick(t, s, math.Vec3d{X: testRadius})
	}
	require.Equal(t, 6, s.Stats().Patches)
	require.Equal(t, 0, s.Stats().MaxLevel)
}

func TestDeepSubdivisionKeepsInvariants(t *testing.T) {
	opts := testOptions()
	opts.HardLimitLevel = 3
	s := newTestSphere(t, opts)

	poi := math.Vec3d{X: testRadius}
	for i := 0; i < 10; i++ {
		tick(t, s, poi)
	}
	require.Equal(t, 3, s.Stats().MaxLevel)

	for _, face := range cubesphere.Faces {
		for _, p := range s.Leaves(face) {
			require.LessOrEqual(t, p.Level(), opts.HardLimitLevel)
			require.Equal(t, StateActive, p.State())
			require.Equal(t, p.Level(), p.node.Depth)
			require.InDelta(t, cubesphere.NodeSize(p.Level()), p.Rect().Size(), 1e-12)
			require.InDelta(t, 2*testRadius/float64(uint64(1)<<uint(p.Level())), p.SubdivisionDistance(), 1e-9)

			for _, d := range cubesphere.Directions {
				n, ok := s.Neighbor(p.ID(), d)
				if !ok {
					continue
				}
				require.Equal(t, face, n.Face())
				to := n.Center().Sub(p.Center()).Normalize()
				require.Greater(t, to.Dot(d.Vector()), alignThreshold)
				if n.Level() == p.Level() {
					back, ok := s.Neighbor(n.ID(), d.Inverse())
					require.True(t, ok)
					require.Equal(t, p.ID(), back.ID())
				}
			}
		}
	}
}

func TestGenerationFailureIsFatal(t *testing.T) {
	boom := errors.New("boom")
	body := celestial.NewBody("test", testRadius, math.Vec3d{})
	s, err := newSphere(body, testOptions(), jobs.NewScheduler(1), func(terrain.QuadParams) (*terrain.QuadMesh, error) {
		return nil, boom
	})
	require.NoError(t, err)

	err = s.Update(nil)
	require.ErrorIs(t, err, ErrGenerationFailed)
	require.ErrorIs(t, err, boom)

	err = s.Update(nil)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, s.Err(), ErrGenerationFailed)

	require.Error(t, s.Close())
}

func TestAsyncGenerationAdoptsWhenReady(t *testing.T) {
	opts := testOptions()
	opts.SyncGeneration = false

	release := make(chan struct{})
	body := celestial.NewBody("test", testRadius, math.Vec3d{})
	s, err := newSphere(body, opts, jobs.NewScheduler(2), func(p terrain.QuadParams) (*terrain.QuadMesh, error) {
		<-release
		return terrain.BuildQuadMesh(p)
	})
	require.NoError(t, err)
	defer s.Close()

	tick(t, s)
	require.Equal(t, 6, s.Stats().Generating)
	require.Empty(t, s.RenderPatches())

	close(release)
	deadline := time.Now().Add(5 * time.Second)
	for s.Stats().Active < 6 {
		require.True(t, time.Now().Before(deadline), "meshes never adopted")
		time.Sleep(time.Millisecond)
		tick(t, s)
	}
	require.Len(t, s.RenderPatches(), 6)
}

func TestCloseJoinsOutstandingTasks(t *testing.T) {
	opts := testOptions()
	opts.SyncGeneration = false
	s := newTestSphere(t, opts)

	require.NoError(t, s.Close())
	require.Equal(t, 6, s.Stats().Active)
	require.ErrorIs(t, s.Update(nil), ErrClosed)
}

func TestMergeRelinksFinerNeighbors(t *testing.T) {
	s := newTestSphere(t, testOptions())
	tick(t, s)
	require.NoError(t, s.split(rootPatch(t, s, cubesphere.FaceXP)))
	require.NoError(t, s.collect(true))

	c := s.Leaves(cubesphere.FaceXP)
	require.NoError(t, s.split(c[0]))
	require.NoError(t, s.split(c[1]))
	require.NoError(t, s.collect(true))

	root := s.Root(cubesphere.FaceXP)
	occupant := func(n *quadtree.Node[PatchID]) *Patch {
		t.Helper()
		p, ok := s.occupant(n)
		require.True(t, ok)
		return p
	}

	g0 := occupant(root.Child(0).Child(0))
	merged, err := s.merge(g0)
	require.NoError(t, err)
	require.True(t, merged)
	require.NoError(t, s.collect(true))

	m := occupant(root.Child(0))
	require.Equal(t, 1, m.Level())

	h := make([]*Patch, 4)
	for i := range h {
		h[i] = occupant(root.Child(1).Child(i))
	}

	// The finer patches along the shared edge now point at the merged patch.
	require.Equal(t, m.ID(), h[0].NeighborID(cubesphere.West))
	require.Equal(t, m.ID(), h[2].NeighborID(cubesphere.West))
	require.Equal(t, h[0].ID(), h[1].NeighborID(cubesphere.West))
	require.Equal(t, h[2].ID(), h[3].NeighborID(cubesphere.West))

	// Two finer candidates to the east leave the merged patch's link unset.
	require.Equal(t, PatchID(0), m.NeighborID(cubesphere.East))

	c2 := c[2]
	require.Equal(t, c2.ID(), m.NeighborID(cubesphere.North))
	require.Equal(t, m.ID(), c2.NeighborID(cubesphere.South))
}

func TestRectSurvivesDestroy(t *testing.T) {
	s := newTestSphere(t, testOptions())
	tick(t, s)

	root := rootPatch(t, s, cubesphere.FaceZP)
	require.NoError(t, s.split(root))

	_, ok := s.Patch(root.ID())
	require.False(t, ok)
	require.Equal(t, quadtree.Rect{MinX: -1, MinY: -1, MaxX: 1, MaxY: 1}, root.Rect())
}
