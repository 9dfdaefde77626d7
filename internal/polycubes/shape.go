package polycubes

import (
	"fmt"
	"slices"
)

// Shape is an immutable polycube: a set of face-connected cells anchored at the origin.
// Bound is the far corner of the bounding box; the near corner is always (0,0,0).
type Shape struct {
	Bound Coord
	Cells []Coord
}

// Seed returns the single-cube shape every enumeration starts from.
func Seed() Shape {
	return Shape{Cells: []Coord{{}}}
}

// NewShape builds a shape from arbitrary cells, translating them so the bounding box
// starts at the origin. It rejects empty input and duplicate cells; connectivity is not
// checked here (see Validate).
func NewShape(cells []Coord) (Shape, error) {
	if len(cells) == 0 {
		return Shape{}, fmt.Errorf("%w: no cells", ErrInvalidShape)
	}
	lo := Coord{X: MaxCoord, Y: MaxCoord, Z: MaxCoord}
	var hi Coord
	seen := make(map[Coord]struct{}, len(cells))
	for _, c := range cells {
		if _, dup := seen[c]; dup {
			return Shape{}, fmt.Errorf("%w: duplicate cell %v", ErrInvalidShape, c)
		}
		seen[c] = struct{}{}
		lo = Coord{X: min(lo.X, c.X), Y: min(lo.Y, c.Y), Z: min(lo.Z, c.Z)}
		hi = Max(hi, c)
	}
	out := make([]Coord, len(cells))
	for i, c := range cells {
		out[i] = Coord{X: c.X - lo.X, Y: c.Y - lo.Y, Z: c.Z - lo.Z}
	}
	return Shape{
		Bound: Coord{X: hi.X - lo.X, Y: hi.Y - lo.Y, Z: hi.Z - lo.Z},
		Cells: out,
	}, nil
}

// Len returns the number of cells.
func (s Shape) Len() int { return len(s.Cells) }

// Contains reports whether c is occupied. Shapes are small, so this is a linear scan.
func (s Shape) Contains(c Coord) bool {
	return slices.Contains(s.Cells, c)
}

// Keys returns the packed cell keys in ascending order.
func (s Shape) Keys() []uint32 {
	keys := make([]uint32, len(s.Cells))
	for i, c := range s.Cells {
		keys[i] = c.Key()
	}
	slices.Sort(keys)
	return keys
}

// Clone returns a deep copy of s.
func (s Shape) Clone() Shape {
	return Shape{Bound: s.Bound, Cells: slices.Clone(s.Cells)}
}

// Validate checks the model invariants: at least one cell, no duplicates, every cell
// within Bound, Bound tight on every axis, and a single face-connected component.
func (s Shape) Validate() error {
	if len(s.Cells) == 0 {
		return fmt.Errorf("%w: no cells", ErrInvalidShape)
	}
	occupied := make(map[Coord]struct{}, len(s.Cells))
	lo := Coord{X: MaxCoord, Y: MaxCoord, Z: MaxCoord}
	var hi Coord
	for _, c := range s.Cells {
		if _, dup := occupied[c]; dup {
			return fmt.Errorf("%w: duplicate cell %v", ErrInvalidShape, c)
		}
		occupied[c] = struct{}{}
		if c.X > s.Bound.X || c.Y > s.Bound.Y || c.Z > s.Bound.Z {
			return fmt.Errorf("%w: cell %v outside bound %v", ErrInvalidShape, c, s.Bound)
		}
		lo = Coord{X: min(lo.X, c.X), Y: min(lo.Y, c.Y), Z: min(lo.Z, c.Z)}
		hi = Max(hi, c)
	}
	if lo != (Coord{}) || hi != s.Bound {
		return fmt.Errorf("%w: bound %v not tight (cells span %v..%v)", ErrInvalidShape, s.Bound, lo, hi)
	}

	// flood fill from the first cell
	visited := make(map[Coord]struct{}, len(s.Cells))
	stack := []Coord{s.Cells[0]}
	visited[s.Cells[0]] = struct{}{}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, d := range Directions() {
			n, ok := step(c, d)
			if !ok {
				continue
			}
			if _, occ := occupied[n]; !occ {
				continue
			}
			if _, seen := visited[n]; seen {
				continue
			}
			visited[n] = struct{}{}
			stack = append(stack, n)
		}
	}
	if len(visited) != len(s.Cells) {
		return fmt.Errorf("%w: %d of %d cells reachable", ErrInvalidShape, len(visited), len(s.Cells))
	}
	return nil
}

func (s Shape) String() string {
	return fmt.Sprintf("Shape{bound=%v cells=%v}", s.Bound, s.Cells)
}

// step moves c one unit along d, reporting false when the result leaves 0..MaxCoord.
func step(c Coord, d Direction) (Coord, bool) {
	axis := d.Axis()
	v := c.Axis(axis)
	if d.Negative() {
		if v == 0 {
			return c, false
		}
		return c.With(axis, v-1), true
	}
	if v == MaxCoord {
		return c, false
	}
	return c.With(axis, v+1), true
}
