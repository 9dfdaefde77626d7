package polycubes

import "fmt"

// MaxCoord is the largest per-axis lattice coordinate a Coord can hold.
const MaxCoord = 255

// Coord is a lattice position, one byte per axis.
type Coord struct {
	X, Y, Z uint8
}

// Axis returns the coordinate on axis i (0=X, 1=Y, 2=Z).
func (c Coord) Axis(i int) uint8 {
	switch i {
	case 0:
		return c.X
	case 1:
		return c.Y
	default:
		return c.Z
	}
}

// With returns c with axis i set to v.
func (c Coord) With(i int, v uint8) Coord {
	switch i {
	case 0:
		c.X = v
	case 1:
		c.Y = v
	default:
		c.Z = v
	}
	return c
}

// Key packs c into a uint32 ordered by (Z, Y, X).
func (c Coord) Key() uint32 { return uint32(c.X) | uint32(c.Y)<<8 | uint32(c.Z)<<16 }

// CoordFromKey is the inverse of Key.
func CoordFromKey(k uint32) Coord {
	return Coord{X: uint8(k), Y: uint8(k >> 8), Z: uint8(k >> 16)}
}

// Max returns the componentwise maximum of a and b.
func Max(a, b Coord) Coord {
	return Coord{X: max(a.X, b.X), Y: max(a.Y, b.Y), Z: max(a.Z, b.Z)}
}

func (c Coord) String() string { return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z) }
