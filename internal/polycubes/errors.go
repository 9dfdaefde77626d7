package polycubes

import "errors"

var (
	// ErrLatticeExhausted is returned when growth would need a coordinate outside 0..MaxCoord.
	ErrLatticeExhausted = errors.New("lattice exhausted")
	// ErrInvalidShape is returned by Validate and NewShape for shapes breaking a model invariant.
	ErrInvalidShape = errors.New("invalid shape")
	// ErrUnknownSymmetry is returned for a symmetry group name that is not recognised.
	ErrUnknownSymmetry = errors.New("unknown symmetry group")
	// ErrUnknownCanonicalizer is returned for a canonicalizer name that is not recognised.
	ErrUnknownCanonicalizer = errors.New("unknown canonicalizer")
	// ErrUnknownStore is returned for a generation store name that is not recognised.
	ErrUnknownStore = errors.New("unknown generation store")
	// ErrInvalidConfig wraps every configuration validation failure.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrCellCountMismatch is returned when a builder receives a shape of the wrong size.
	ErrCellCountMismatch = errors.New("cell count mismatch")
)
