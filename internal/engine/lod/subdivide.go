package lod

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/quadsphere/internal/engine/quadtree"
)

// evaluate splits or merges an active patch. Splitting wins when both apply.
func (s *Sphere) evaluate(p *Patch) error {
	if s.shouldSplit(p) {
		return s.split(p)
	}
	if s.wantsMerge(p) {
		_, err := s.merge(p)
		return err
	}
	return nil
}

func (s *Sphere) shouldSplit(p *Patch) bool {
	if p.level >= s.opts.HardLimitLevel {
		return false
	}
	pos := s.body.LocalToAbsolute(p.origin)
	for _, poi := range p.pois {
		if poi.Distance(pos) < p.subdivisionDistance {
			return true
		}
	}
	return false
}

// wantsMerge reports whether every POI is far enough from the parent. It
// does not look at siblings; merge applies the vetoes.
func (s *Sphere) wantsMerge(p *Patch) bool {
	if p.level == 0 {
		return false
	}
	if len(p.pois) == 0 {
		return true
	}
	parent := p.node.Parent()
	origin := p.face.SpherePointAt(parent.Center()).Scale(s.body.Radius())
	pos := s.body.LocalToAbsolute(origin)
	threshold := s.opts.MergeMultiplier * p.subdivisionDistance * 2
	for _, poi := range p.pois {
		if poi.Distance(pos) <= threshold {
			return false
		}
	}
	return true
}

// mergeVeto returns why the sibling group of p cannot merge, or "".
func (s *Sphere) mergeVeto(p *Patch) string {
	for _, sib := range p.node.Siblings() {
		if !sib.IsLeaf() {
			return vetoSubdividedSibling
		}
		if q, ok := s.patches[sib.Value]; ok && q.state == StateGeneratingMesh {
			return vetoGeneratingSibling
		}
	}
	return ""
}

// split replaces p with four children at the next level.
func (s *Sphere) split(p *Patch) error {
	node := p.node
	if _, err := node.MakeChildren(); err != nil {
		return fmt.Errorf("split patch %d: %w", p.id, err)
	}
	face, level, trigger := p.face, p.level+1, p.subdivisionDistance/2
	if err := s.destroy(p.id); err != nil {
		return fmt.Errorf("split patch %d: %w", p.id, err)
	}

	children := make([]*Patch, 0, 4)
	for _, child := range node.Children() {
		children = append(children, s.spawn(face, child, level, trigger))
	}
	for _, c := range children {
		s.stitchAll(c)
	}

	s.splits++
	instrumentSplit(face)
	s.log.Debug("patch split",
		zap.Uint64("tick", s.tick),
		zap.Uint64("patch", uint64(p.id)),
		zap.Stringer("face", face),
		zap.Int("level", level),
		zap.Float64("trigger", trigger))
	return nil
}

// merge collapses the sibling group of p into a single patch on the parent
// node. It reports false without error when a veto applies.
func (s *Sphere) merge(p *Patch) (bool, error) {
	if p.level == 0 {
		return false, fmt.Errorf("merge patch %d: %w", p.id, ErrMergeRoot)
	}
	if reason := s.mergeVeto(p); reason != "" {
		s.mergeVetoes++
		instrumentMergeVeto(reason)
		s.log.Debug("merge vetoed",
			zap.Uint64("tick", s.tick),
			zap.Uint64("patch", uint64(p.id)),
			zap.String("reason", reason))
		return false, nil
	}

	parent := p.node.Parent()
	face, level, trigger := p.face, p.level-1, p.subdivisionDistance*2

	released, err := parent.MakeLeaf(func(id PatchID) bool {
		q, ok := s.patches[id]
		return !ok || q.state != StateGeneratingMesh
	})
	if err != nil {
		return false, fmt.Errorf("merge patch %d: %w", p.id, err)
	}
	for _, id := range released {
		if err := s.destroy(id); err != nil {
			return false, fmt.Errorf("merge patch %d: %w", p.id, err)
		}
	}

	merged := s.spawn(face, parent, level, trigger)
	s.stitchAll(merged)

	s.merges++
	instrumentMerge(face)
	s.log.Debug("patches merged",
		zap.Uint64("tick", s.tick),
		zap.Uint64("patch", uint64(merged.id)),
		zap.Stringer("face", face),
		zap.Int("level", level),
		zap.Float64("trigger", trigger))
	return true, nil
}

// occupant returns the patch on a leaf node, if any.
func (s *Sphere) occupant(n *quadtree.Node[PatchID]) (*Patch, bool) {
	if n.IsEmpty() {
		return nil, false
	}
	return s.Patch(n.Value)
}
