package polycubes

import (
	"context"
	"log/slog"
	"time"
)

// Progress is reported once per generation.
type Progress struct {
	Generation int
	Count      int
	Duration   time.Duration
	Store      string
}

// Reported returns the count printed for a generation of n shapes; the empty
// generation 0 is conventionally reported as 1.
func Reported(n int) int { return max(n, 1) }

// Count returns the reported count of g; a nil generation counts as generation 0.
func Count(g Generation) int {
	if g == nil {
		return Reported(0)
	}
	return Reported(g.Len())
}

// Enumerate runs generations 0..limit, calling report after each. A limit of 0 runs
// until ctx is cancelled or an error occurs.
func (e *Engine) Enumerate(ctx context.Context, limit int, report func(Progress) error) (err error) {
	if err := report(Progress{Generation: 0, Count: Count(nil), Store: e.store.Name()}); err != nil {
		return err
	}
	var cur Generation
	defer func() {
		if cur != nil {
			if cerr := cur.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
	}()
	for n := 1; limit <= 0 || n <= limit; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		next, err := e.Advance(ctx, cur)
		if err != nil {
			return err
		}
		if cur != nil {
			if err := cur.Close(); err != nil {
				_ = next.Close()
				cur = nil
				return err
			}
		}
		cur = next
		p := Progress{Generation: n, Count: Count(next), Duration: time.Since(start), Store: e.store.Name()}
		e.logger.Info("generation",
			slog.Int("n", p.Generation),
			slog.Int("count", p.Count),
			slog.Duration("took", p.Duration),
		)
		if err := report(p); err != nil {
			return err
		}
	}
	return nil
}

// Counts runs generations 1..limit and returns their sizes, index 0 holding
// generation 1. It is a convenience for tests and small runs.
func (e *Engine) Counts(ctx context.Context, limit int) ([]int, error) {
	counts := make([]int, 0, limit)
	err := e.Enumerate(ctx, limit, func(p Progress) error {
		if p.Generation > 0 {
			counts = append(counts, p.Count)
		}
		return nil
	})
	return counts, err
}
