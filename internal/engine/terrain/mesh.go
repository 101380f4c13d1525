package terrain

import (
	"errors"
	"fmt"

	"github.com/Faultbox/quadsphere/pkg/cubesphere"
	"github.com/Faultbox/quadsphere/pkg/math"
)

var (
	// ErrTooManyVertices is returned when a patch grid would not fit a 16-bit index buffer.
	ErrTooManyVertices = errors.New("terrain: vertex count exceeds 16-bit index range")

	// ErrInvalidParams is returned for malformed geometry parameters.
	ErrInvalidParams = errors.New("terrain: invalid mesh parameters")
)

// maxEdgeSubdivisions bounds the shift in GridSize before any allocation.
const maxEdgeSubdivisions = 16

// QuadParams is everything needed to build one patch mesh. It is captured by
// value when generation is dispatched, so a build never reads live patch state.
type QuadParams struct {
	Face   cubesphere.Face
	Level  int
	Center math.Vec2d // face-local center of the patch
	Origin math.Vec3d // body-local point the vertices are relative to
	Radius float64

	// EdgeSubdivisions is the number of binary subdivisions per patch edge,
	// on top of and regardless of Level.
	EdgeSubdivisions int
}

// GridSize returns the number of cells along one edge (2^E).
func GridSize(edgeSubdivisions int) int {
	return 1 << uint(edgeSubdivisions)
}

// VertexCount returns (2^E + 1)^2.
func VertexCount(edgeSubdivisions int) int {
	n := GridSize(edgeSubdivisions) + 1
	return n * n
}

// TriangleCount returns 2 * 4^E.
func TriangleCount(edgeSubdivisions int) int {
	n := GridSize(edgeSubdivisions)
	return 2 * n * n
}

// Validate checks the parameters without building anything.
func (p QuadParams) Validate() error {
	if !p.Face.Valid() {
		return fmt.Errorf("%w: face %d", ErrInvalidParams, p.Face)
	}
	if p.Level < 0 {
		return fmt.Errorf("%w: level %d", ErrInvalidParams, p.Level)
	}
	if p.Radius <= 0 {
		return fmt.Errorf("%w: radius %g", ErrInvalidParams, p.Radius)
	}
	if p.EdgeSubdivisions < 0 {
		return fmt.Errorf("%w: edge subdivisions %d", ErrInvalidParams, p.EdgeSubdivisions)
	}
	if p.EdgeSubdivisions > maxEdgeSubdivisions || VertexCount(p.EdgeSubdivisions) > MaxVertices {
		return fmt.Errorf("%w: %d edge subdivisions", ErrTooManyVertices, p.EdgeSubdivisions)
	}
	return nil
}

// BuildQuadMesh generates the grid mesh of one patch projected onto a sphere
// of the given radius. It only touches buffers it allocates itself and is safe
// to run concurrently.
func BuildQuadMesh(p QuadParams) (*QuadMesh, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	edges := GridSize(p.EdgeSubdivisions)
	verts := edges + 1
	size := cubesphere.NodeSize(p.Level)
	step := size / float64(edges)
	minX := p.Center.X - size/2
	minY := p.Center.Y - size/2

	count := verts * verts
	mesh := &QuadMesh{
		Vertices: make([]math.Vec3, count),
		Normals:  make([]math.Vec3, count),
		UVs:      make([]math.Vec2, count),
		Indices:  make([]uint16, edges*edges*6),
		Bounds:   emptyBounds(),
		Origin:   p.Origin,
	}

	for i := 0; i < verts; i++ {
		for j := 0; j < verts; j++ {
			idx := i*verts + j

			quadX := minX + float64(i)*step
			quadY := minY + float64(j)*step
			unit := p.Face.SpherePoint(quadX, quadY)

			pos := unit.Scale(p.Radius).Sub(p.Origin).Vec3()
			mesh.Vertices[idx] = pos
			// Pre-displacement normals: the sphere direction itself.
			mesh.Normals[idx] = unit.Vec3()
			mesh.UVs[idx] = math.Vec2{
				X: float32(i) / float32(edges),
				Y: float32(j) / float32(edges),
			}
			updateBounds(&mesh.Bounds, pos)
		}
	}

	// Cell corners, i along the face tangent and j along the bitangent:
	//
	//   B - D
	//   | / |
	//   A - C
	//
	// Both triangles wind counter-clockwise seen from outside the sphere.
	t := 0
	for i := 0; i < edges; i++ {
		for j := 0; j < edges; j++ {
			a := uint16(i*verts + j)
			b := a + 1
			c := a + uint16(verts)
			d := c + 1

			mesh.Indices[t] = a
			mesh.Indices[t+1] = c
			mesh.Indices[t+2] = d

			mesh.Indices[t+3] = a
			mesh.Indices[t+4] = d
			mesh.Indices[t+5] = b
			t += 6
		}
	}

	return mesh, nil
}

func updateBounds(b *Bounds, p math.Vec3) {
	if p.X < b.Min[0] {
		b.Min[0] = p.X
	}
	if p.Y < b.Min[1] {
		b.Min[1] = p.Y
	}
	if p.Z < b.Min[2] {
		b.Min[2] = p.Z
	}
	if p.X > b.Max[0] {
		b.Max[0] = p.X
	}
	if p.Y > b.Max[1] {
		b.Max[1] = p.Y
	}
	if p.Z > b.Max[2] {
		b.Max[2] = p.Z
	}
}

// ComputeBounds returns the bounding box of the given positions.
func ComputeBounds(vertices []math.Vec3) Bounds {
	b := emptyBounds()
	for _, v := range vertices {
		updateBounds(&b, v)
	}
	return b
}
