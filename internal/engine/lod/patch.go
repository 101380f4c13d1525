// Package lod maintains adaptive level-of-detail terrain on a cube sphere.
//
// Each of the six cube faces is a quadtree whose leaves hold patches. Every
// tick, patches close to a point of interest split into four finer patches
// and groups of four distant siblings merge back into their parent. Patch
// meshes are generated off the control thread and adopted at the end of a
// tick. Directional neighbor links are repaired after every topology change.
package lod

import (
	"github.com/Faultbox/quadsphere/internal/engine/quadtree"
	"github.com/Faultbox/quadsphere/internal/engine/terrain"
	"github.com/Faultbox/quadsphere/internal/jobs"
	"github.com/Faultbox/quadsphere/pkg/cubesphere"
	"github.com/Faultbox/quadsphere/pkg/math"
)

// State describes what a patch is currently doing.
type State int

const (
	// StateIdle is a freshly created patch whose mesh was not requested yet.
	StateIdle State = iota
	// StateActive patches have a mesh and take part in split/merge decisions.
	StateActive
	// StateGeneratingMesh patches have a mesh task outstanding.
	StateGeneratingMesh
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateGeneratingMesh:
		return "generating"
	}
	return "unknown"
}

// PatchID identifies a patch for its whole lifetime. IDs are never reused;
// the zero ID means "no patch".
type PatchID uint64

// Patch is one subdivisible terrain quad occupying a quadtree leaf.
//
// A *Patch is owned by its Sphere and is only valid until the next Update;
// collaborators should keep PatchIDs or RenderPatch values instead.
type Patch struct {
	id    PatchID
	face  cubesphere.Face
	level int
	node  *quadtree.Node[PatchID]
	rect  quadtree.Rect

	center math.Vec2d // face-local
	origin math.Vec3d // body-local mesh origin

	subdivisionDistance float64

	state     State
	neighbors [4]PatchID
	task      *jobs.Future[*terrain.QuadMesh]
	mesh      *terrain.QuadMesh

	pois []math.Vec3d
}

// ID returns the patch identifier.
func (p *Patch) ID() PatchID { return p.id }

// Face returns the cube face the patch lies on.
func (p *Patch) Face() cubesphere.Face { return p.face }

// Level returns the subdivision level.
func (p *Patch) Level() int { return p.level }

// State returns the lifecycle state.
func (p *Patch) State() State { return p.state }

// Center returns the face-local center.
func (p *Patch) Center() math.Vec2d { return p.center }

// Origin returns the body-local origin the mesh vertices are relative to.
func (p *Patch) Origin() math.Vec3d { return p.origin }

// Rect returns the face-local rectangle covered by the patch. It stays
// readable after the patch is destroyed.
func (p *Patch) Rect() quadtree.Rect { return p.rect }

// SubdivisionDistance returns the distance within which a point of interest
// makes the patch split.
func (p *Patch) SubdivisionDistance() float64 { return p.subdivisionDistance }

// Mesh returns the adopted mesh, or nil before the first generation completes.
func (p *Patch) Mesh() *terrain.QuadMesh { return p.mesh }

// NeighborID returns the link in direction d. The linked patch may have been
// destroyed since; resolve it with Sphere.Neighbor.
func (p *Patch) NeighborID(d cubesphere.Direction) PatchID {
	return p.neighbors[d]
}

// RenderPatch is a plain-data view of an active patch for renderers and
// collision builders. It stays valid after the patch is gone.
type RenderPatch struct {
	ID     PatchID
	Face   cubesphere.Face
	Level  int
	Center math.Vec2d
	Origin math.Vec3d
	Mesh   *terrain.QuadMesh
}

func (p *Patch) renderView() RenderPatch {
	return RenderPatch{
		ID:     p.id,
		Face:   p.face,
		Level:  p.level,
		Center: p.center,
		Origin: p.origin,
		Mesh:   p.mesh,
	}
}
