package meshdump

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/quadsphere/internal/engine/terrain"
	"github.com/Faultbox/quadsphere/pkg/cubesphere"
	"github.com/Faultbox/quadsphere/pkg/math"
)

func buildPatch(t *testing.T, face cubesphere.Face, level int, center math.Vec2d) Patch {
	t.Helper()
	const radius = 500.0
	origin := face.SpherePointAt(center).Scale(radius)
	mesh, err := terrain.BuildQuadMesh(terrain.QuadParams{
		Face:             face,
		Level:            level,
		Center:           center,
		Origin:           origin,
		Radius:           radius,
		EdgeSubdivisions: 3,
	})
	require.NoError(t, err)
	return Patch{Face: face, Level: level, Center: center, Mesh: mesh}
}

func TestWriteRead(t *testing.T) {
	in := Dump{
		Radius: 500,
		Patches: []Patch{
			buildPatch(t, cubesphere.FaceXP, 0, math.Vec2d{}),
			buildPatch(t, cubesphere.FaceZN, 2, math.Vec2d{X: -0.75, Y: 0.25}),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, in))

	out, err := Read(&buf)
	require.NoError(t, err)
	require.Equal(t, in.Radius, out.Radius)
	require.Len(t, out.Patches, len(in.Patches))

	for i := range in.Patches {
		want, got := in.Patches[i], out.Patches[i]
		require.Equal(t, want.Face, got.Face)
		require.Equal(t, want.Level, got.Level)
		require.Equal(t, want.Center, got.Center)
		require.Equal(t, want.Mesh.Origin, got.Mesh.Origin)
		require.Equal(t, want.Mesh.Vertices, got.Mesh.Vertices)
		require.Equal(t, want.Mesh.Indices, got.Mesh.Indices)
		require.Equal(t, want.Mesh.Bounds, got.Mesh.Bounds)
	}
}

func TestReadRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = enc.Write([]byte("NOPE0000000000000000"))
	require.NoError(t, err)
	require.NoError(t, enc.Close())

	_, err = Read(&buf)
	require.ErrorIs(t, err, ErrBadFormat)
}

func TestWriteRejectsMissingMesh(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, Dump{Radius: 1, Patches: []Patch{{Face: cubesphere.FaceXP}}})
	require.Error(t, err)
}

func TestReadRejectsUnknownFace(t *testing.T) {
	p := buildPatch(t, cubesphere.FaceZP, 1, math.Vec2d{X: 0.5, Y: 0.5})
	p.Face = cubesphere.Face(cubesphere.FaceCount + 3)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Dump{Radius: 500, Patches: []Patch{p}}))

	_, err := Read(&buf)
	require.ErrorIs(t, err, ErrBadFormat)
}
