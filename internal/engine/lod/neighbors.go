package lod

import (
	gomath "math"

	"github.com/Faultbox/quadsphere/pkg/cubesphere"
)

// alignThreshold is the minimum cosine between a direction and the vector to
// a candidate's center. The small bias over cos 45° rejects diagonal
// neighbors that touch only at a corner.
var alignThreshold = gomath.Cos(gomath.Pi/4) + 0.025

// stitchAll links a newly created patch in all four directions.
func (s *Sphere) stitchAll(p *Patch) {
	leaves := s.roots[p.face].QueryOverlappingLeaves(p.rect)
	candidates := make([]*Patch, 0, len(leaves))
	for _, leaf := range leaves {
		q, ok := s.occupant(leaf)
		if !ok || q == p {
			continue
		}
		candidates = append(candidates, q)
	}
	for _, d := range cubesphere.Directions {
		s.stitch(p, d, candidates)
	}
}

// stitch links p toward d. Every aligned candidate no coarser than p gets its
// inverse link pointed back at p. p itself only links when exactly one
// candidate is aligned, so a coarse patch facing several finer ones keeps
// its previous link.
func (s *Sphere) stitch(p *Patch, d cubesphere.Direction, candidates []*Patch) {
	dir := d.Vector()
	var aligned []*Patch
	for _, q := range candidates {
		to := q.center.Sub(p.center)
		if to.Length() == 0 {
			continue
		}
		if to.Normalize().Dot(dir) > alignThreshold {
			aligned = append(aligned, q)
		}
	}

	inv := d.Inverse()
	for _, q := range aligned {
		if p.level > q.level {
			continue
		}
		q.neighbors[inv] = p.id
	}

	if len(aligned) == 1 {
		p.neighbors[d] = aligned[0].id
	}
}
