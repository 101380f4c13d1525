// Package celestial models the body a cube-sphere terrain is wrapped around.
package celestial

import (
	gomath "math"

	"github.com/Faultbox/quadsphere/pkg/math"
)

// Body is a spherical celestial body placed in the absolute reference frame.
// All math is double precision; single-precision coordinates are not enough
// at planetary distances.
type Body struct {
	Name     string
	radius   float64
	Position math.Vec3d

	// Tilt is the fixed orientation of the rotation axis. Spin is the
	// current rotation about the body's local Y axis, in radians.
	Tilt math.Quatd
	Spin float64
}

// NewBody creates a body at the given absolute position.
func NewBody(name string, radius float64, position math.Vec3d) *Body {
	return &Body{
		Name:     name,
		radius:   radius,
		Position: position,
		Tilt:     math.QuatIdentity(),
	}
}

// Radius returns the body radius.
func (b *Body) Radius() float64 {
	return b.radius
}

// Orientation returns the current body orientation.
func (b *Body) Orientation() math.Quatd {
	spin := math.QuatFromAxisAngle(math.Vec3d{Y: 1}, b.Spin)
	return b.Tilt.Mul(spin).Normalize()
}

// LocalToAbsolute converts a body-local position into the absolute frame.
func (b *Body) LocalToAbsolute(local math.Vec3d) math.Vec3d {
	return b.Orientation().Rotate(local).Add(b.Position)
}

// AbsoluteToLocal converts an absolute position into body-local coordinates.
func (b *Body) AbsoluteToLocal(abs math.Vec3d) math.Vec3d {
	return b.Orientation().Conjugate().Rotate(abs.Sub(b.Position))
}

// Rotate advances the spin by angle radians, wrapping at a full turn.
func (b *Body) Rotate(angle float64) {
	b.Spin = gomath.Mod(b.Spin+angle, 2*gomath.Pi)
}

// SurfacePoint returns the absolute position of the point at the given
// altitude above the surface along the body-local direction dir.
func (b *Body) SurfacePoint(dir math.Vec3d, altitude float64) math.Vec3d {
	return b.LocalToAbsolute(dir.Normalize().Scale(b.radius + altitude))
}
