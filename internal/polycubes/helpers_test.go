package polycubes

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// enumerate returns the shapes of generations 1..n; index i holds the (i+1)-cell shapes.
func enumerate(t testing.TB, canon Canonicalizer, store GenerationStore, n int) [][]Shape {
	t.Helper()
	e := NewEngine(canon, store, WithLogger(quietLogger()))
	var (
		cur  Generation
		gens [][]Shape
	)
	for i := 1; i <= n; i++ {
		next, err := e.Advance(context.Background(), cur)
		if err != nil {
			t.Fatalf("advance to generation %d: %v", i, err)
		}
		if cur != nil {
			if err := cur.Close(); err != nil {
				t.Fatal(err)
			}
		}
		cur = next
		gens = append(gens, collect(t, cur))
	}
	if cur != nil {
		_ = cur.Close()
	}
	return gens
}

func collect(t testing.TB, g Generation) []Shape {
	t.Helper()
	var out []Shape
	if err := g.Each(func(s Shape) error {
		out = append(out, s)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	return out
}

func fingerprintSet(c Canonicalizer, shapes []Shape) map[uint64]int {
	set := make(map[uint64]int, len(shapes))
	for _, s := range shapes {
		set[c.Fingerprint(s)]++
	}
	return set
}

// constCanonicalizer maps every shape to the same fingerprint, forcing the exact
// comparison path on every insert.
type constCanonicalizer struct{ group Group }

func (c constCanonicalizer) Fingerprint(Shape) uint64 { return 42 }
func (c constCanonicalizer) Group() Group             { return c.group }
func (c constCanonicalizer) Name() string             { return "const" }
