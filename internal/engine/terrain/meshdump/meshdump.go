// Package meshdump writes and reads snapshots of finished patch meshes.
//
// File layout (little-endian, whole stream zstd-compressed):
//
//	magic "QSMD" | version u16 | radius f64 | patch count u32
//	per patch:
//	  face u8 | level u8 | center 2*f64 | origin 3*f64
//	  vertex count u32 | index count u32
//	  positions 3*f32 | normals 3*f32 | uvs 2*f32 (per vertex)
//	  indices u16
package meshdump

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/Faultbox/quadsphere/internal/engine/terrain"
	"github.com/Faultbox/quadsphere/pkg/cubesphere"
	"github.com/Faultbox/quadsphere/pkg/math"
)

const (
	magic   = "QSMD"
	version = 1
)

// ErrBadFormat is returned for streams that are not mesh dumps.
var ErrBadFormat = errors.New("meshdump: bad format")

// Patch is one dumped patch mesh.
type Patch struct {
	Face   cubesphere.Face
	Level  int
	Center math.Vec2d
	Mesh   *terrain.QuadMesh
}

// Dump is the content of one mesh dump.
type Dump struct {
	Radius  float64
	Patches []Patch
}

// Write encodes d to w.
func Write(w io.Writer, d Dump) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("creating zstd writer: %w", err)
	}
	bw := bufio.NewWriter(enc)

	if err := writeDump(bw, d); err != nil {
		enc.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func writeDump(w io.Writer, d Dump) error {
	if _, err := io.WriteString(w, magic); err != nil {
		return err
	}
	header := struct {
		Version uint16
		Radius  float64
		Count   uint32
	}{version, d.Radius, uint32(len(d.Patches))}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}

	for i, p := range d.Patches {
		if p.Mesh == nil {
			return fmt.Errorf("patch %d has no mesh", i)
		}
		if err := writePatch(w, p); err != nil {
			return fmt.Errorf("writing patch %d: %w", i, err)
		}
	}
	return nil
}

type patchHeader struct {
	Face        uint8
	Level       uint8
	Center      math.Vec2d
	Origin      math.Vec3d
	VertexCount uint32
	IndexCount  uint32
}

func writePatch(w io.Writer, p Patch) error {
	m := p.Mesh
	h := patchHeader{
		Face:        uint8(p.Face),
		Level:       uint8(p.Level),
		Center:      p.Center,
		Origin:      m.Origin,
		VertexCount: uint32(len(m.Vertices)),
		IndexCount:  uint32(len(m.Indices)),
	}
	for _, v := range []any{h, m.Vertices, m.Normals, m.UVs, m.Indices} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

// Read decodes a dump from r.
func Read(r io.Reader) (Dump, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return Dump{}, fmt.Errorf("creating zstd reader: %w", err)
	}
	defer dec.Close()
	br := bufio.NewReader(dec)

	var m [4]byte
	if _, err := io.ReadFull(br, m[:]); err != nil {
		return Dump{}, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	if string(m[:]) != magic {
		return Dump{}, fmt.Errorf("%w: magic %q", ErrBadFormat, m[:])
	}

	var header struct {
		Version uint16
		Radius  float64
		Count   uint32
	}
	if err := binary.Read(br, binary.LittleEndian, &header); err != nil {
		return Dump{}, fmt.Errorf("%w: header: %v", ErrBadFormat, err)
	}
	if header.Version != version {
		return Dump{}, fmt.Errorf("%w: unsupported version %d", ErrBadFormat, header.Version)
	}

	d := Dump{Radius: header.Radius, Patches: make([]Patch, 0, header.Count)}
	for i := uint32(0); i < header.Count; i++ {
		p, err := readPatch(br)
		if err != nil {
			return Dump{}, fmt.Errorf("reading patch %d: %w", i, err)
		}
		d.Patches = append(d.Patches, p)
	}
	return d, nil
}

func readPatch(r io.Reader) (Patch, error) {
	var h patchHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return Patch{}, err
	}
	if !cubesphere.Face(h.Face).Valid() {
		return Patch{}, fmt.Errorf("%w: face %d", ErrBadFormat, h.Face)
	}
	if h.VertexCount > terrain.MaxVertices {
		return Patch{}, fmt.Errorf("%w: %d vertices", ErrBadFormat, h.VertexCount)
	}
	if h.IndexCount%3 != 0 || h.IndexCount > 6*terrain.MaxVertices*2 {
		return Patch{}, fmt.Errorf("%w: %d indices", ErrBadFormat, h.IndexCount)
	}

	m := &terrain.QuadMesh{
		Vertices: make([]math.Vec3, h.VertexCount),
		Normals:  make([]math.Vec3, h.VertexCount),
		UVs:      make([]math.Vec2, h.VertexCount),
		Indices:  make([]uint16, h.IndexCount),
		Origin:   h.Origin,
	}
	for _, v := range []any{m.Vertices, m.Normals, m.UVs, m.Indices} {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return Patch{}, err
		}
	}
	m.Bounds = terrain.ComputeBounds(m.Vertices)

	return Patch{
		Face:   cubesphere.Face(h.Face),
		Level:  int(h.Level),
		Center: h.Center,
		Mesh:   m,
	}, nil
}
