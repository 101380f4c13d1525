// Package quadtree provides a region quadtree over a square domain.
//
// Every leaf can hold one occupant value. Internal nodes always have exactly
// four children that quarter their rectangle.
package quadtree

import (
	"errors"
	"fmt"

	"github.com/Faultbox/quadsphere/pkg/math"
)

var (
	// ErrNotLeaf is returned when splitting a node that already has children.
	ErrNotLeaf = errors.New("quadtree: node is not a leaf")

	// ErrOccupantBusy is returned when collapsing a subtree whose occupant
	// refuses to be released.
	ErrOccupantBusy = errors.New("quadtree: occupant cannot be released")
)

// Rect is an axis-aligned rectangle. Edges are inclusive, so rectangles that
// share an edge or a corner overlap.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// RectAround returns the square of the given edge length centered on c.
func RectAround(c math.Vec2d, size float64) Rect {
	h := size / 2
	return Rect{MinX: c.X - h, MinY: c.Y - h, MaxX: c.X + h, MaxY: c.Y + h}
}

// Center returns the center point.
func (r Rect) Center() math.Vec2d {
	return math.Vec2d{X: (r.MinX + r.MaxX) / 2, Y: (r.MinY + r.MaxY) / 2}
}

// Size returns the edge length along X.
func (r Rect) Size() float64 {
	return r.MaxX - r.MinX
}

// Overlaps reports whether r and other touch or intersect.
func (r Rect) Overlaps(other Rect) bool {
	return r.MinX <= other.MaxX && r.MaxX >= other.MinX &&
		r.MinY <= other.MaxY && r.MaxY >= other.MinY
}

// Node is a quadtree node. The zero value of T marks an empty leaf.
type Node[T comparable] struct {
	Rect  Rect
	Depth int

	// Value is the occupant of a leaf. Internal nodes always hold the zero value.
	Value T

	parent   *Node[T]
	index    int
	children *[4]*Node[T]
}

// New creates a root node covering rect.
func New[T comparable](rect Rect) *Node[T] {
	return &Node[T]{Rect: rect}
}

// Center returns the center of the node's rectangle.
func (n *Node[T]) Center() math.Vec2d {
	return n.Rect.Center()
}

// Size returns the edge length of the node's rectangle.
func (n *Node[T]) Size() float64 {
	return n.Rect.Size()
}

// IsLeaf reports whether the node has no children.
func (n *Node[T]) IsLeaf() bool {
	return n.children == nil
}

// IsEmpty reports whether the node holds no occupant.
func (n *Node[T]) IsEmpty() bool {
	var zero T
	return n.Value == zero
}

// Parent returns the parent node, or nil for the root.
func (n *Node[T]) Parent() *Node[T] {
	return n.parent
}

// Root walks up to the root of the tree.
func (n *Node[T]) Root() *Node[T] {
	for n.parent != nil {
		n = n.parent
	}
	return n
}

// Index returns the node's position among its siblings.
// Children are ordered (minX,minY), (maxX,minY), (minX,maxY), (maxX,maxY).
func (n *Node[T]) Index() int {
	return n.index
}

// Child returns the i-th child, or nil for a leaf.
func (n *Node[T]) Child(i int) *Node[T] {
	if n.children == nil {
		return nil
	}
	return n.children[i]
}

// Children returns the four children of an internal node, or nil for a leaf.
func (n *Node[T]) Children() []*Node[T] {
	if n.children == nil {
		return nil
	}
	return n.children[:]
}

// Siblings returns all children of the node's parent, including n itself.
// It returns nil for the root.
func (n *Node[T]) Siblings() []*Node[T] {
	if n.parent == nil {
		return nil
	}
	return n.parent.Children()
}

// ChildOffset returns the (x, y) cell of child index i within its parent.
func ChildOffset(i int) (x, y int) {
	return i % 2, i / 2
}

// MakeChildren splits a leaf into four children that quarter its rectangle.
// The leaf's occupant is left in place; callers move it out themselves.
func (n *Node[T]) MakeChildren() ([]*Node[T], error) {
	if n.children != nil {
		return nil, fmt.Errorf("make children at depth %d: %w", n.Depth, ErrNotLeaf)
	}

	half := n.Size() / 2
	var children [4]*Node[T]
	for i := range children {
		x, y := ChildOffset(i)
		minX := n.Rect.MinX + float64(x)*half
		minY := n.Rect.MinY + float64(y)*half
		children[i] = &Node[T]{
			Rect:   Rect{MinX: minX, MinY: minY, MaxX: minX + half, MaxY: minY + half},
			Depth:  n.Depth + 1,
			parent: n,
			index:  i,
		}
	}

	var zero T
	n.Value = zero
	n.children = &children
	return children[:], nil
}

// MakeLeaf discards every descendant of n. Before anything is changed,
// canRelease is asked about each occupied descendant leaf; if it refuses any,
// the tree is left untouched and ErrOccupantBusy is returned. On success the
// released occupants are returned and n is an empty leaf.
func (n *Node[T]) MakeLeaf(canRelease func(T) bool) ([]T, error) {
	if n.children == nil {
		return nil, nil
	}

	var released []T
	for _, leaf := range n.Leaves() {
		if leaf.IsEmpty() {
			continue
		}
		if canRelease != nil && !canRelease(leaf.Value) {
			return nil, fmt.Errorf("make leaf at depth %d: %w", n.Depth, ErrOccupantBusy)
		}
		released = append(released, leaf.Value)
	}

	for _, c := range n.children {
		c.detach()
	}
	n.children = nil
	var zero T
	n.Value = zero
	return released, nil
}

// detach severs the subtree so stale pointers into it cannot reach the tree.
func (n *Node[T]) detach() {
	if n.children != nil {
		for _, c := range n.children {
			c.detach()
		}
		n.children = nil
	}
	n.parent = nil
	var zero T
	n.Value = zero
}

// Leaves returns every leaf in the subtree rooted at n, n included.
func (n *Node[T]) Leaves() []*Node[T] {
	var out []*Node[T]
	n.walkLeaves(func(leaf *Node[T]) {
		out = append(out, leaf)
	})
	return out
}

// OccupiedLeaves returns the occupants of every non-empty leaf under n.
func (n *Node[T]) OccupiedLeaves() []T {
	var out []T
	n.walkLeaves(func(leaf *Node[T]) {
		if !leaf.IsEmpty() {
			out = append(out, leaf.Value)
		}
	})
	return out
}

func (n *Node[T]) walkLeaves(fn func(*Node[T])) {
	if n.children == nil {
		fn(n)
		return
	}
	for _, c := range n.children {
		c.walkLeaves(fn)
	}
}

// QueryOverlappingLeaves returns every leaf under n whose rectangle touches
// rect. Query from the root to include leaves of neighboring subtrees.
func (n *Node[T]) QueryOverlappingLeaves(rect Rect) []*Node[T] {
	var out []*Node[T]
	n.queryOverlapping(rect, &out)
	return out
}

func (n *Node[T]) queryOverlapping(rect Rect, out *[]*Node[T]) {
	if !n.Rect.Overlaps(rect) {
		return
	}
	if n.children == nil {
		*out = append(*out, n)
		return
	}
	for _, c := range n.children {
		c.queryOverlapping(rect, out)
	}
}
