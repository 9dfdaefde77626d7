package polycubes

import "fmt"

// Grow attaches one cube to the face of cell that points along d.
//
// When d is negative and cell already sits at 0 on that axis, the whole shape is shifted
// by +1 on the axis and the new cube takes cell's pre-shift coordinate, so coordinates
// never go negative. It returns false when the target is already occupied, and
// ErrLatticeExhausted when any coordinate would leave 0..MaxCoord.
func Grow(s Shape, cell Coord, d Direction) (Shape, bool, error) {
	axis := d.Axis()
	if d.Negative() && cell.Axis(axis) == 0 {
		if s.Bound.Axis(axis) == MaxCoord {
			return Shape{}, false, exhausted(s, d)
		}
		cells := make([]Coord, len(s.Cells), len(s.Cells)+1)
		for i, c := range s.Cells {
			cells[i] = c.With(axis, c.Axis(axis)+1)
		}
		// every shifted cell is >= 1 on axis, so cell's old slot is free
		cells = append(cells, cell)
		return Shape{Bound: s.Bound.With(axis, s.Bound.Axis(axis)+1), Cells: cells}, true, nil
	}

	target, ok := step(cell, d)
	if !ok {
		return Shape{}, false, exhausted(s, d)
	}
	if s.Contains(target) {
		return Shape{}, false, nil
	}
	cells := make([]Coord, len(s.Cells), len(s.Cells)+1)
	copy(cells, s.Cells)
	cells = append(cells, target)
	return Shape{Bound: Max(s.Bound, target), Cells: cells}, true, nil
}

// GrowAll calls fn for every shape produced by attaching one cube to any open face of s.
// The same polycube is typically produced many times; deduplication is the caller's job.
func GrowAll(s Shape, fn func(Shape) error) error {
	for _, cell := range s.Cells {
		for _, d := range Directions() {
			next, ok, err := Grow(s, cell, d)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if err := fn(next); err != nil {
				return err
			}
		}
	}
	return nil
}

// Successors collects the output of GrowAll into a slice.
func Successors(s Shape) ([]Shape, error) {
	out := make([]Shape, 0, len(s.Cells)*len(directions))
	err := GrowAll(s, func(n Shape) error {
		out = append(out, n)
		return nil
	})
	return out, err
}

func exhausted(s Shape, d Direction) error {
	return fmt.Errorf("%w: growing %d-cell shape with bound %v along %v", ErrLatticeExhausted, s.Len(), s.Bound, d)
}
