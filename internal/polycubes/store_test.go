package polycubes

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeCase struct {
	name string
	open func(t *testing.T, g Group, strict bool) GenerationStore
}

func storeCases() []storeCase {
	return []storeCase{
		{"memory", func(t *testing.T, g Group, strict bool) GenerationStore {
			return NewMemoryStore(g, strict)
		}},
		{"disk", func(t *testing.T, g Group, strict bool) GenerationStore {
			return NewDiskStore(t.TempDir(), g, strict, quietLogger())
		}},
		{"badger", func(t *testing.T, g Group, strict bool) GenerationStore {
			s, err := OpenBadgerStore(BadgerConfig{InMemory: true}, g, strict)
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		}},
	}
}

func TestStoresAgree(t *testing.T) {
	t.Parallel()
	g := Rotations()
	canon := NewBoundCanonicalizer(g)
	for _, strict := range []bool{true, false} {
		want := enumerate(t, canon, NewMemoryStore(g, strict), 6)
		require.Len(t, want[5], oneSided[5])
		for _, tc := range storeCases()[1:] {
			t.Run(fmt.Sprintf("%s/strict=%v", tc.name, strict), func(t *testing.T) {
				t.Parallel()
				got := enumerate(t, canon, tc.open(t, g, strict), 6)
				require.Len(t, got, len(want))
				for i := range want {
					assert.Equal(t, fingerprintSet(canon, want[i]), fingerprintSet(canon, got[i]), "generation %d", i+1)
				}
			})
		}
	}
}

func TestStoresStrictUnderTotalCollision(t *testing.T) {
	t.Parallel()
	g := Rotations()
	canon := constCanonicalizer{group: g}
	for _, tc := range storeCases() {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			gens := enumerate(t, canon, tc.open(t, g, true), 5)
			got := make([]int, len(gens))
			for i, gen := range gens {
				got[i] = len(gen)
			}
			assert.Equal(t, oneSided[:5], got)
		})
	}
}

func TestBuilderStats(t *testing.T) {
	t.Parallel()
	g := Rotations()
	a := Seed()
	b, _, err := Grow(a, a.Cells[0], PosX)
	require.NoError(t, err)
	c, _, err := Grow(a, a.Cells[0], PosY)
	require.NoError(t, err)
	for _, tc := range storeCases() {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			st := tc.open(t, g, true)
			bld, err := st.NewBuilder(2)
			require.NoError(t, err)

			added, err := bld.Insert(1, b)
			require.NoError(t, err)
			assert.True(t, added)
			added, err = bld.Insert(1, c) // same domino, rotated
			require.NoError(t, err)
			assert.False(t, added)
			_, err = bld.Insert(1, a)
			assert.ErrorIs(t, err, ErrCellCountMismatch)

			assert.Equal(t, BuilderStats{Inserted: 1, Duplicates: 1}, bld.Stats())
			gen, err := bld.Finish()
			require.NoError(t, err)
			assert.Equal(t, 2, gen.Cells())
			assert.Equal(t, 1, gen.Len())
			assert.Len(t, collect(t, gen), 1)
			require.NoError(t, gen.Close())
		})
	}
}

func TestGenerationEachStopsOnError(t *testing.T) {
	t.Parallel()
	g := Rotations()
	canon := NewBoundCanonicalizer(g)
	stop := errors.New("stop")
	for _, tc := range storeCases() {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			st := tc.open(t, g, true)
			bld, err := st.NewBuilder(4)
			require.NoError(t, err)
			for _, s := range tetracubes(t) {
				_, err := bld.Insert(canon.Fingerprint(s), s)
				require.NoError(t, err)
			}
			gen, err := bld.Finish()
			require.NoError(t, err)
			visited := 0
			err = gen.Each(func(Shape) error {
				visited++
				if visited == 3 {
					return stop
				}
				return nil
			})
			assert.ErrorIs(t, err, stop)
			assert.Equal(t, 3, visited)
		})
	}
}

func TestBuilderAbort(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	st := NewDiskStore(dir, Rotations(), true, quietLogger())
	bld, err := st.NewBuilder(1)
	require.NoError(t, err)
	_, err = bld.Insert(7, Seed())
	require.NoError(t, err)
	require.NoError(t, bld.Abort())
	assert.NoFileExists(t, StreamPath(dir, 1))
}

func TestOpenDiskGeneration(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "cubes_4.bin")
	shapes := tetracubes(t)
	writeStream(t, path, shapes)
	gen, err := OpenDiskGeneration(path, 4, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, len(shapes), gen.Len())
	assert.Equal(t, shapes, collect(t, gen))

	// a stored generation can be resumed from
	e := NewEngine(NewBoundCanonicalizer(Rotations()), NewMemoryStore(Rotations(), true), WithLogger(quietLogger()))
	next, err := e.Advance(t.Context(), gen)
	require.NoError(t, err)
	assert.Equal(t, oneSided[4], next.Len())
}

func TestNewMemoryGeneration(t *testing.T) {
	_, err := NewMemoryGeneration(2, []Shape{Seed()})
	assert.ErrorIs(t, err, ErrCellCountMismatch)
	gen, err := NewMemoryGeneration(1, []Shape{Seed()})
	require.NoError(t, err)
	assert.Equal(t, 1, gen.Len())
}

func TestOpenStore(t *testing.T) {
	t.Parallel()
	g := Rotations()
	cfg := DefaultConfig()
	for _, name := range []string{StoreMemory, StoreDisk, StoreBadger} {
		cfg.Store = name
		cfg.Dir = t.TempDir()
		st, err := OpenStore(cfg, g, quietLogger())
		require.NoError(t, err, name)
		assert.Equal(t, name, st.Name())
		require.NoError(t, st.Close())
	}
	cfg.Store = "tape"
	_, err := OpenStore(cfg, g, quietLogger())
	assert.ErrorIs(t, err, ErrUnknownStore)
}

func TestBadgerStoreNeedsDir(t *testing.T) {
	_, err := OpenBadgerStore(BadgerConfig{}, Rotations(), true)
	assert.Error(t, err)
}

func TestRetryConflict(t *testing.T) {
	calls := 0
	err := retryConflict(func() error {
		calls++
		if calls == 1 {
			return badger.ErrConflict
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	err = retryConflict(func() error {
		calls++
		return badger.ErrConflict
	})
	assert.ErrorIs(t, err, badger.ErrConflict)
	assert.Equal(t, 2, calls, "only one retry")

	calls = 0
	stop := errors.New("stop")
	assert.ErrorIs(t, retryConflict(func() error { calls++; return stop }), stop)
	assert.Equal(t, 1, calls)
}

func TestBadgerGenerationCloseDropsKeys(t *testing.T) {
	g := Rotations()
	st, err := OpenBadgerStore(BadgerConfig{InMemory: true}, g, true)
	require.NoError(t, err)
	defer st.Close()
	bld, err := st.NewBuilder(1)
	require.NoError(t, err)
	_, err = bld.Insert(1, Seed())
	require.NoError(t, err)
	gen, err := bld.Finish()
	require.NoError(t, err)
	require.Len(t, collect(t, gen), 1)
	require.NoError(t, gen.Close())
	assert.Empty(t, collect(t, gen))
}
