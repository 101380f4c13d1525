// Package terrain builds the base meshes of cube-sphere terrain patches.
package terrain

import "github.com/Faultbox/quadsphere/pkg/math"

// MaxVertices is the largest vertex count addressable by a 16-bit index buffer.
const MaxVertices = 65535

// QuadMesh holds the finished buffers of one patch, ready for upload.
// Positions are relative to Origin so they keep single-precision accuracy
// near the patch rather than near the body center.
type QuadMesh struct {
	Vertices []math.Vec3
	Normals  []math.Vec3
	UVs      []math.Vec2
	Indices  []uint16
	Bounds   Bounds

	// Origin is the body-local point the vertices are expressed against.
	Origin math.Vec3d
}

// VertexCount returns the number of vertices.
func (m *QuadMesh) VertexCount() int {
	return len(m.Vertices)
}

// TriangleCount returns the number of triangles.
func (m *QuadMesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Bounds holds the axis-aligned bounding box of a mesh.
type Bounds struct {
	Min [3]float32
	Max [3]float32
}

func emptyBounds() Bounds {
	return Bounds{
		Min: [3]float32{1e30, 1e30, 1e30},
		Max: [3]float32{-1e30, -1e30, -1e30},
	}
}
