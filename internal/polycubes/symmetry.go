package polycubes

import (
	"fmt"
	"math/bits"
	"strings"
)

// Symmetry group names accepted by ParseSymmetry.
const (
	SymmetryRotations = "rotations"
	SymmetryFull      = "full"
)

// Transform is a symmetry of the bounding box: output axis i takes input axis Perm[i],
// mirrored about the box when Flip[i] is set. Mirroring about the bound (instead of the
// origin) keeps the image anchored at the origin with the same cell count.
type Transform struct {
	Perm [3]int
	Flip [3]bool
}

// Apply maps c, a cell of a shape bounded by bound.
func (t Transform) Apply(c, bound Coord) Coord {
	var out [3]uint8
	for i := 0; i < 3; i++ {
		a := t.Perm[i]
		v := c.Axis(a)
		if t.Flip[i] {
			v = bound.Axis(a) - v
		}
		out[i] = v
	}
	return Coord{X: out[0], Y: out[1], Z: out[2]}
}

// ApplyBound returns the bound of the transformed shape.
func (t Transform) ApplyBound(bound Coord) Coord {
	return Coord{X: bound.Axis(t.Perm[0]), Y: bound.Axis(t.Perm[1]), Z: bound.Axis(t.Perm[2])}
}

// ApplyShape returns the image of s under t.
func (t Transform) ApplyShape(s Shape) Shape {
	cells := make([]Coord, len(s.Cells))
	for i, c := range s.Cells {
		cells[i] = t.Apply(c, s.Bound)
	}
	return Shape{Bound: t.ApplyBound(s.Bound), Cells: cells}
}

// Proper reports whether t is a rotation (determinant +1).
func (t Transform) Proper() bool {
	flips := 0
	for _, f := range t.Flip {
		if f {
			flips++
		}
	}
	return (permParity(t.Perm)+flips)&1 == 0
}

// Group is a named set of transforms. The first transform is always the identity.
type Group struct {
	Name       string
	Transforms []Transform
}

// Len returns the group order.
func (g Group) Len() int { return len(g.Transforms) }

// Rotations returns the 24 proper rotations of the cube (one-sided counting).
func Rotations() Group {
	return Group{Name: SymmetryRotations, Transforms: buildTransforms(true)}
}

// RotationsReflections returns all 48 symmetries of the cube (free counting).
func RotationsReflections() Group {
	return Group{Name: SymmetryFull, Transforms: buildTransforms(false)}
}

// ParseSymmetry resolves a symmetry group by name.
func ParseSymmetry(name string) (Group, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case SymmetryRotations, "one-sided", "":
		return Rotations(), nil
	case SymmetryFull, "free", "reflections":
		return RotationsReflections(), nil
	}
	return Group{}, fmt.Errorf("%w: %q", ErrUnknownSymmetry, name)
}

// buildTransforms crosses the six axis permutations with the eight sign variants,
// keeping only rotations when properOnly is set.
func buildTransforms(properOnly bool) []Transform {
	out := make([]Transform, 0, 48)
	for _, p := range perms3() {
		for s := uint(0); s < 8; s++ {
			t := Transform{Perm: p}
			for i := 0; i < 3; i++ {
				t.Flip[i] = (s>>i)&1 == 1
			}
			if properOnly && !t.Proper() {
				continue
			}
			out = append(out, t)
		}
	}
	return out
}

func perms3() [][3]int {
	return [][3]int{
		{0, 1, 2}, {0, 2, 1},
		{1, 0, 2}, {1, 2, 0},
		{2, 0, 1}, {2, 1, 0},
	}
}

// permParity returns 0 for even and 1 for odd permutations.
func permParity(p [3]int) int {
	inv := 0
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 3; j++ {
			if p[i] > p[j] {
				inv++
			}
		}
	}
	return inv & 1
}

// flipMask packs Flip into three bits; used in test names and debug output.
func (t Transform) flipMask() uint {
	var m uint
	for i, f := range t.Flip {
		if f {
			m |= 1 << i
		}
	}
	return m
}

func (t Transform) String() string {
	return fmt.Sprintf("perm=%v flips=%03b(%d)", t.Perm, t.flipMask(), bits.OnesCount(t.flipMask()))
}
