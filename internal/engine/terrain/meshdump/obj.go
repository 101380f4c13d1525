package meshdump

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// WriteOBJ writes one patch as a Wavefront OBJ mesh. Positions are offset by
// the mesh origin so they are body-local.
func WriteOBJ(w io.Writer, p Patch) error {
	if p.Mesh == nil {
		return errors.New("meshdump: patch has no mesh")
	}
	m := p.Mesh
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# face %s level %d center %g %g\n", p.Face, p.Level, p.Center.X, p.Center.Y)
	fmt.Fprintf(bw, "o %s_%d_%g_%g\n", p.Face, p.Level, p.Center.X, p.Center.Y)
	for _, v := range m.Vertices {
		fmt.Fprintf(bw, "v %.6f %.6f %.6f\n",
			m.Origin.X+float64(v.X), m.Origin.Y+float64(v.Y), m.Origin.Z+float64(v.Z))
	}
	for _, uv := range m.UVs {
		fmt.Fprintf(bw, "vt %.6f %.6f\n", uv.X, uv.Y)
	}
	for _, n := range m.Normals {
		fmt.Fprintf(bw, "vn %.6f %.6f %.6f\n", n.X, n.Y, n.Z)
	}
	for i := 0; i+2 < len(m.Indices); i += 3 {
		a, b, c := int(m.Indices[i])+1, int(m.Indices[i+1])+1, int(m.Indices[i+2])+1
		fmt.Fprintf(bw, "f %d/%d/%d %d/%d/%d %d/%d/%d\n", a, a, a, b, b, b, c, c, c)
	}
	return bw.Flush()
}
