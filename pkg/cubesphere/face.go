// Package cubesphere maps cube-face coordinates onto the unit sphere.
//
// A sphere is approximated by six cube faces. Each face is addressed with a
// 2D coordinate in [-1, 1] x [-1, 1]; the face's tangent (X) and bitangent (Y)
// axes are chosen so that tangent x bitangent equals the outward face normal.
package cubesphere

import (
	gomath "math"

	"github.com/Faultbox/quadsphere/pkg/math"
)

// Face identifies one of the six cube faces.
type Face int

// Faces, named after the axis their outward normal points along.
const (
	FaceXP Face = iota
	FaceXN
	FaceYP
	FaceYN
	FaceZP
	FaceZN
)

// FaceCount is the number of cube faces.
const FaceCount = 6

// Faces lists every face in index order.
var Faces = [FaceCount]Face{FaceXP, FaceXN, FaceYP, FaceYN, FaceZP, FaceZN}

type basis struct {
	normal, tangent, bitangent math.Vec3d
}

var bases = [FaceCount]basis{
	FaceXP: {math.Vec3d{X: 1}, math.Vec3d{Y: 1}, math.Vec3d{Z: 1}},
	FaceXN: {math.Vec3d{X: -1}, math.Vec3d{Z: 1}, math.Vec3d{Y: 1}},
	FaceYP: {math.Vec3d{Y: 1}, math.Vec3d{Z: 1}, math.Vec3d{X: 1}},
	FaceYN: {math.Vec3d{Y: -1}, math.Vec3d{X: 1}, math.Vec3d{Z: 1}},
	FaceZP: {math.Vec3d{Z: 1}, math.Vec3d{X: 1}, math.Vec3d{Y: 1}},
	FaceZN: {math.Vec3d{Z: -1}, math.Vec3d{Y: 1}, math.Vec3d{X: 1}},
}

// Valid reports whether f is one of the six faces.
func (f Face) Valid() bool {
	return f >= FaceXP && f <= FaceZN
}

func (f Face) String() string {
	switch f {
	case FaceXP:
		return "+X"
	case FaceXN:
		return "-X"
	case FaceYP:
		return "+Y"
	case FaceYN:
		return "-Y"
	case FaceZP:
		return "+Z"
	case FaceZN:
		return "-Z"
	}
	return "invalid"
}

// Normal returns the outward unit normal of the face.
func (f Face) Normal() math.Vec3d {
	return bases[f].normal
}

// CubePoint returns the point on the surface of the [-1, 1] cube for the
// face-local coordinate (x, y).
func (f Face) CubePoint(x, y float64) math.Vec3d {
	b := bases[f]
	return b.normal.Add(b.tangent.Scale(x)).Add(b.bitangent.Scale(y))
}

// SpherePoint projects the face-local coordinate (x, y) onto the unit sphere.
func (f Face) SpherePoint(x, y float64) math.Vec3d {
	return f.CubePoint(x, y).Normalize()
}

// SpherePointAt is SpherePoint for a face-local vector.
func (f Face) SpherePointAt(p math.Vec2d) math.Vec3d {
	return f.SpherePoint(p.X, p.Y)
}

// FaceFromVector returns the face whose region of the sphere contains the
// direction dir. Ties between axes resolve towards X, then Y.
func FaceFromVector(dir math.Vec3d) Face {
	ax, ay, az := gomath.Abs(dir.X), gomath.Abs(dir.Y), gomath.Abs(dir.Z)

	switch {
	case ax >= ay && ax >= az:
		if dir.X >= 0 {
			return FaceXP
		}
		return FaceXN
	case ay >= az:
		if dir.Y >= 0 {
			return FaceYP
		}
		return FaceYN
	default:
		if dir.Z >= 0 {
			return FaceZP
		}
		return FaceZN
	}
}

// FaceCoords returns the face containing dir and the face-local coordinate of
// the point where dir pierces the cube. It is the inverse of SpherePoint.
func FaceCoords(dir math.Vec3d) (Face, math.Vec2d) {
	f := FaceFromVector(dir)
	b := bases[f]
	n := dir.Dot(b.normal)
	if n == 0 {
		return f, math.Vec2d{}
	}
	return f, math.Vec2d{X: dir.Dot(b.tangent) / n, Y: dir.Dot(b.bitangent) / n}
}

// NodeSize returns the edge length, in face-local units, of a quad at the
// given subdivision level. The level-0 quad spans the whole [-1, 1] face.
func NodeSize(level int) float64 {
	return 2.0 / float64(uint64(1)<<uint(level))
}
