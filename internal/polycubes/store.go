package polycubes

import (
	"fmt"
	"log/slog"
	"strings"
)

// Store names accepted by OpenStore.
const (
	StoreMemory = "memory"
	StoreDisk   = "disk"
	StoreBadger = "badger"
)

// GenerationStore creates the per-generation shape sets the Engine fills.
type GenerationStore interface {
	// NewBuilder starts an empty generation whose shapes all have the given cell count.
	NewBuilder(cells int) (Builder, error)
	Name() string
	Close() error
}

// Builder collects the distinct shapes of one generation. Insert is safe for concurrent use.
type Builder interface {
	// Insert records s under fingerprint fp and reports whether it was new.
	Insert(fp uint64, s Shape) (bool, error)
	Stats() BuilderStats
	// Finish makes every write durable and returns the generation for reading.
	// The builder must not be used afterwards.
	Finish() (Generation, error)
	// Abort discards the partial generation.
	Abort() error
}

// BuilderStats counts what a builder did with the candidates it was offered.
type BuilderStats struct {
	Inserted   int64 // distinct shapes recorded
	Duplicates int64 // candidates dropped as already present
	Collisions int64 // candidates that shared a fingerprint with a different shape and were kept
}

// Generation is a finished, read-only set of distinct shapes with the same cell count.
type Generation interface {
	Cells() int
	Len() int
	// Each visits every shape once; it stops at the first error fn returns.
	Each(fn func(Shape) error) error
	Close() error
}

// OpenStore builds the store selected by cfg.
func OpenStore(cfg Config, g Group, logger *slog.Logger) (GenerationStore, error) {
	switch strings.ToLower(cfg.Store) {
	case StoreMemory, "":
		return NewMemoryStore(g, cfg.Strict), nil
	case StoreDisk:
		return NewDiskStore(cfg.Dir, g, cfg.Strict, logger), nil
	case StoreBadger:
		return OpenBadgerStore(BadgerConfig{Dir: cfg.Dir, Logger: logger}, g, cfg.Strict)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStore, cfg.Store)
}

func checkCells(want int, s Shape) error {
	if s.Len() != want {
		return fmt.Errorf("%w: got %d-cell shape, generation holds %d", ErrCellCountMismatch, s.Len(), want)
	}
	return nil
}
