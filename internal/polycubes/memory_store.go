package polycubes

import (
	"sync/atomic"
)

// MemoryStore keeps every shape of a generation resident, bucketed by fingerprint.
type MemoryStore struct {
	group  Group
	strict bool
}

// NewMemoryStore returns an in-memory store. With strict set, shapes sharing a
// fingerprint are compared exactly under g before a candidate is dropped; otherwise
// a fingerprint match alone counts as a duplicate.
func NewMemoryStore(g Group, strict bool) *MemoryStore {
	return &MemoryStore{group: g, strict: strict}
}

func (m *MemoryStore) Name() string { return StoreMemory }
func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) NewBuilder(cells int) (Builder, error) {
	b := &memoryBuilder{cells: cells, group: m.group, strict: m.strict}
	for i := range b.buckets {
		b.buckets[i] = make(map[uint64][]Shape)
	}
	return b, nil
}

type memoryBuilder struct {
	cells   int
	group   Group
	strict  bool
	locks   shardLocks
	buckets [NumShards]map[uint64][]Shape

	inserted, duplicates, collisions atomic.Int64
}

func (b *memoryBuilder) Insert(fp uint64, s Shape) (bool, error) {
	if err := checkCells(b.cells, s); err != nil {
		return false, err
	}
	b.locks.lock(fp)
	defer b.locks.unlock(fp)
	bucket := b.buckets[shardOf(fp)]
	have := bucket[fp]
	if len(have) > 0 {
		if !b.strict {
			b.duplicates.Add(1)
			return false, nil
		}
		for _, o := range have {
			if Equivalent(b.group, s, o) {
				b.duplicates.Add(1)
				return false, nil
			}
		}
		b.collisions.Add(1)
	}
	bucket[fp] = append(have, s)
	b.inserted.Add(1)
	return true, nil
}

func (b *memoryBuilder) Stats() BuilderStats {
	return BuilderStats{
		Inserted:   b.inserted.Load(),
		Duplicates: b.duplicates.Load(),
		Collisions: b.collisions.Load(),
	}
}

func (b *memoryBuilder) Finish() (Generation, error) {
	shapes := make([]Shape, 0, b.inserted.Load())
	for i := range b.buckets {
		for _, ss := range b.buckets[i] {
			shapes = append(shapes, ss...)
		}
		b.buckets[i] = nil
	}
	return &memoryGeneration{cells: b.cells, shapes: shapes}, nil
}

func (b *memoryBuilder) Abort() error {
	for i := range b.buckets {
		b.buckets[i] = nil
	}
	return nil
}

type memoryGeneration struct {
	cells  int
	shapes []Shape
}

// NewMemoryGeneration wraps already-distinct shapes as a generation, e.g. to seed a
// disk-backed run from shapes computed elsewhere.
func NewMemoryGeneration(cells int, shapes []Shape) (Generation, error) {
	for _, s := range shapes {
		if err := checkCells(cells, s); err != nil {
			return nil, err
		}
	}
	return &memoryGeneration{cells: cells, shapes: shapes}, nil
}

func (g *memoryGeneration) Cells() int { return g.cells }
func (g *memoryGeneration) Len() int   { return len(g.shapes) }
func (g *memoryGeneration) Close() error {
	g.shapes = nil
	return nil
}

func (g *memoryGeneration) Each(fn func(Shape) error) error {
	for _, s := range g.shapes {
		if err := fn(s); err != nil {
			return err
		}
	}
	return nil
}
