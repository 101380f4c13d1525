// Package picking provides ray casting against bodies and terrain patches.
package picking

import (
	gomath "math"

	"github.com/Faultbox/quadsphere/internal/engine/lod"
	"github.com/Faultbox/quadsphere/internal/engine/terrain"
	"github.com/Faultbox/quadsphere/pkg/math"
)

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    math.Vec3d
	Direction math.Vec3d // Normalized direction
}

// NewRay creates a ray, normalizing dir.
func NewRay(origin, dir math.Vec3d) Ray {
	return Ray{Origin: origin, Direction: dir.Normalize()}
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float64) math.Vec3d {
	return r.Origin.Add(r.Direction.Scale(t))
}

// IntersectSphere tests ray intersection with a sphere.
// Returns the distance to the nearest hit in front of the origin, or the exit
// distance if the ray starts inside.
func (r Ray) IntersectSphere(center math.Vec3d, radius float64) (t float64, hit bool) {
	// |O + tD - C|^2 = r^2 with |D| = 1
	oc := r.Origin.Sub(center)
	b := oc.Dot(r.Direction)
	c := oc.Dot(oc) - radius*radius
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}

	sq := gomath.Sqrt(disc)
	t = -b - sq
	if t < 0 {
		t = -b + sq
	}
	if t < 0 {
		return 0, false
	}
	return t, true
}

// IntersectBounds tests ray intersection with a mesh bounding box whose
// coordinates are relative to origin.
// If the ray starts inside the box, returns the exit distance.
func (r Ray) IntersectBounds(b terrain.Bounds, origin math.Vec3d) (t float64, hit bool) {
	tmin := -gomath.MaxFloat64
	tmax := gomath.MaxFloat64

	o := [3]float64{r.Origin.X - origin.X, r.Origin.Y - origin.Y, r.Origin.Z - origin.Z}
	d := [3]float64{r.Direction.X, r.Direction.Y, r.Direction.Z}

	for axis := 0; axis < 3; axis++ {
		lo, hi := float64(b.Min[axis]), float64(b.Max[axis])
		if d[axis] == 0 {
			if o[axis] < lo || o[axis] > hi {
				return 0, false
			}
			continue
		}
		t1 := (lo - o[axis]) / d[axis]
		t2 := (hi - o[axis]) / d[axis]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
	}

	// Check if intersection is valid
	if tmax < tmin || tmax < 0 {
		return 0, false
	}

	// Return entry point, or exit point if starting inside
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}

// Body is the part of a celestial body picking needs.
type Body interface {
	Radius() float64
	LocalToAbsolute(local math.Vec3d) math.Vec3d
	AbsoluteToLocal(abs math.Vec3d) math.Vec3d
}

// Hit is the result of picking the terrain.
type Hit struct {
	Distance float64
	Point    math.Vec3d // absolute
	Patch    *lod.Patch

	// OnMesh is set when the patch has a mesh and the ray enters its bounds,
	// MeshDistance along the ray.
	OnMesh       bool
	MeshDistance float64
}

// PickSurface casts r, given in the absolute frame, against the body's
// surface and returns the leaf patch containing the hit point. When the
// patch has a mesh the ray is also tested against the mesh bounds.
func PickSurface(s *lod.Sphere, body Body, r Ray) (Hit, bool) {
	center := body.LocalToAbsolute(math.Vec3d{})
	t, ok := r.IntersectSphere(center, body.Radius())
	if !ok {
		return Hit{}, false
	}

	point := r.At(t)
	p, ok := s.LeafAt(body.AbsoluteToLocal(point))
	if !ok {
		return Hit{}, false
	}
	hit := Hit{Distance: t, Point: point, Patch: p}

	if mesh := p.Mesh(); mesh != nil {
		origin := body.AbsoluteToLocal(r.Origin)
		local := NewRay(origin, body.AbsoluteToLocal(r.At(1)).Sub(origin))
		if d, ok := local.IntersectBounds(mesh.Bounds, mesh.Origin); ok {
			hit.OnMesh = true
			hit.MeshDistance = d
		}
	}
	return hit, true
}

// Nadir returns the patch directly below an absolute position.
func Nadir(s *lod.Sphere, body Body, pos math.Vec3d) (Hit, bool) {
	center := body.LocalToAbsolute(math.Vec3d{})
	return PickSurface(s, body, NewRay(pos, center.Sub(pos)))
}
