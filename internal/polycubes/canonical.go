package polycubes

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Canonicalizer names accepted by ParseCanonicalizer.
const (
	CanonicalizerBound  = "bound"
	CanonicalizerSorted = "sorted"
)

// Canonicalizer computes a fingerprint that is identical for every shape in a symmetry
// orbit. Fingerprints are not collision free: two shapes from different orbits can share
// one, so strict stores confirm a match with Equivalent before dropping a candidate.
type Canonicalizer interface {
	Fingerprint(s Shape) uint64
	Group() Group
	Name() string
}

// BoundCanonicalizer remaps cells through each transform using only the shape's bound,
// XORs the per-cell hashes into an order independent digest and keeps the minimum.
type BoundCanonicalizer struct {
	group Group
}

// NewBoundCanonicalizer returns a BoundCanonicalizer over g.
func NewBoundCanonicalizer(g Group) *BoundCanonicalizer { return &BoundCanonicalizer{group: g} }

func (b *BoundCanonicalizer) Name() string { return CanonicalizerBound }
func (b *BoundCanonicalizer) Group() Group { return b.group }

func (b *BoundCanonicalizer) Fingerprint(s Shape) uint64 {
	best := ^uint64(0)
	for _, t := range b.group.Transforms {
		var h uint64
		for _, c := range s.Cells {
			h ^= cellHash(t.Apply(c, s.Bound))
		}
		if h < best {
			best = h
		}
	}
	return best
}

// SortedCanonicalizer materializes every image of the shape, sorts its cells and hashes
// the ordered byte sequence. It re-sorts once per transform, so it is slower than
// BoundCanonicalizer, but the digest is a hash of the exact image.
type SortedCanonicalizer struct {
	group Group
}

// NewSortedCanonicalizer returns a SortedCanonicalizer over g.
func NewSortedCanonicalizer(g Group) *SortedCanonicalizer { return &SortedCanonicalizer{group: g} }

func (c *SortedCanonicalizer) Name() string { return CanonicalizerSorted }
func (c *SortedCanonicalizer) Group() Group { return c.group }

func (c *SortedCanonicalizer) Fingerprint(s Shape) uint64 {
	keys := make([]uint32, len(s.Cells))
	buf := make([]byte, 3*len(s.Cells))
	best := ^uint64(0)
	for _, t := range c.group.Transforms {
		imageKeys(t, s, keys)
		for i, k := range keys {
			buf[3*i] = byte(k)
			buf[3*i+1] = byte(k >> 8)
			buf[3*i+2] = byte(k >> 16)
		}
		if h := xxhash.Sum64(buf); h < best {
			best = h
		}
	}
	return best
}

// ParseCanonicalizer resolves a canonicalizer by name over the group g.
func ParseCanonicalizer(name string, g Group) (Canonicalizer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case CanonicalizerBound, "":
		return NewBoundCanonicalizer(g), nil
	case CanonicalizerSorted:
		return NewSortedCanonicalizer(g), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCanonicalizer, name)
}

// Equivalent reports whether a and b are the same polycube under g, comparing exact
// cell sets rather than fingerprints.
func Equivalent(g Group, a, b Shape) bool {
	if len(a.Cells) != len(b.Cells) {
		return false
	}
	want := b.Keys()
	got := make([]uint32, len(a.Cells))
	for _, t := range g.Transforms {
		if t.ApplyBound(a.Bound) != b.Bound {
			continue
		}
		imageKeys(t, a, got)
		if slices.Equal(got, want) {
			return true
		}
	}
	return false
}

// CanonicalForm returns the image of s under g with the smallest bound and, among
// those, the lexicographically smallest sorted cell list. Its cells are sorted.
func CanonicalForm(g Group, s Shape) Shape {
	var (
		best      []uint32
		bestBound Coord
		found     bool
	)
	keys := make([]uint32, len(s.Cells))
	for _, t := range g.Transforms {
		bound := t.ApplyBound(s.Bound)
		if found && bound.Key() > bestBound.Key() {
			continue
		}
		imageKeys(t, s, keys)
		if !found || bound.Key() < bestBound.Key() || slices.Compare(keys, best) < 0 {
			best = slices.Clone(keys)
			bestBound = bound
			found = true
		}
	}
	cells := make([]Coord, len(best))
	for i, k := range best {
		cells[i] = CoordFromKey(k)
	}
	return Shape{Bound: bestBound, Cells: cells}
}

// imageKeys writes the sorted keys of t(s) into dst, which must have len(s.Cells).
func imageKeys(t Transform, s Shape, dst []uint32) {
	for i, c := range s.Cells {
		dst[i] = t.Apply(c, s.Bound).Key()
	}
	slices.Sort(dst)
}
