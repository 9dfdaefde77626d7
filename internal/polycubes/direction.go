package polycubes

// Direction is one of the six face-adjacency vectors of the cubic lattice.
type Direction uint8

// The six directions, ordered by axis with the positive one first.
const (
	PosX Direction = iota
	NegX
	PosY
	NegY
	PosZ
	NegZ
	numDirections
)

var directions = [numDirections]Direction{PosX, NegX, PosY, NegY, PosZ, NegZ}

var directionNames = [numDirections]string{"+x", "-x", "+y", "-y", "+z", "-z"}

// Directions returns every face-adjacency vector in a fixed order.
func Directions() []Direction { return directions[:] }

// Axis returns the axis the direction moves along (0=X, 1=Y, 2=Z).
func (d Direction) Axis() int { return int(d) / 2 }

// Negative reports whether d points towards decreasing coordinates.
func (d Direction) Negative() bool { return d&1 == 1 }

// Delta returns the unit step of d as a signed triple.
func (d Direction) Delta() (dx, dy, dz int) {
	s := 1
	if d.Negative() {
		s = -1
	}
	switch d.Axis() {
	case 0:
		return s, 0, 0
	case 1:
		return 0, s, 0
	default:
		return 0, 0, s
	}
}

func (d Direction) String() string {
	if d >= numDirections {
		return "invalid"
	}
	return directionNames[d]
}
