// Package math provides vector and rotation types for planet-scale geometry.
//
// Single-precision types are used for mesh buffers handed to the renderer.
// Double-precision types carry face-local and body-local coordinates, where
// float32 is not enough at planetary scale.
package math

import "math"

// Vec2 is a single-precision 2D vector, used for UVs.
type Vec2 struct {
	X, Y float32
}

// Add returns v + other.
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{v.X + other.X, v.Y + other.Y}
}

// Sub returns v - other.
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{v.X - other.X, v.Y - other.Y}
}

// Vec2d is a double-precision 2D vector, used for cube-face coordinates.
type Vec2d struct {
	X, Y float64
}

// Add returns v + other.
func (v Vec2d) Add(other Vec2d) Vec2d {
	return Vec2d{v.X + other.X, v.Y + other.Y}
}

// Sub returns v - other.
func (v Vec2d) Sub(other Vec2d) Vec2d {
	return Vec2d{v.X - other.X, v.Y - other.Y}
}

// Scale returns v * scalar.
func (v Vec2d) Scale(s float64) Vec2d {
	return Vec2d{v.X * s, v.Y * s}
}

// Dot returns the dot product.
func (v Vec2d) Dot(other Vec2d) float64 {
	return v.X*other.X + v.Y*other.Y
}

// Length returns the magnitude.
func (v Vec2d) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// Normalize returns a unit vector.
func (v Vec2d) Normalize() Vec2d {
	l := v.Length()
	if l == 0 {
		return Vec2d{}
	}
	return Vec2d{v.X / l, v.Y / l}
}

// Distance returns the distance to another point.
func (v Vec2d) Distance(other Vec2d) float64 {
	return v.Sub(other).Length()
}
