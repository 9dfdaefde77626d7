package polycubes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Engine advances polycube generations: it grows every shape of a generation by one
// cube, fingerprints the candidates and inserts them into the next generation's store.
type Engine struct {
	canon   Canonicalizer
	store   GenerationStore
	workers int
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets the number of grow-and-fingerprint goroutines; n < 1 means NumCPU.
func WithWorkers(n int) Option { return func(e *Engine) { e.workers = n } }

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithMetrics sets the metrics sink.
func WithMetrics(m *Metrics) Option { return func(e *Engine) { e.metrics = m } }

// NewEngine returns an engine deduplicating with canon into store.
func NewEngine(canon Canonicalizer, store GenerationStore, opts ...Option) *Engine {
	e := &Engine{canon: canon, store: store}
	for _, o := range opts {
		o(e)
	}
	if e.workers < 1 {
		e.workers = runtime.NumCPU()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Canonicalizer returns the engine's canonicalizer.
func (e *Engine) Canonicalizer() Canonicalizer { return e.canon }

// Store returns the engine's generation store.
func (e *Engine) Store() GenerationStore { return e.store }

// Close closes the underlying store.
func (e *Engine) Close() error { return e.store.Close() }

// Advance builds the generation after prev. A nil or empty prev yields the generation
// holding only the single-cube seed.
func (e *Engine) Advance(ctx context.Context, prev Generation) (Generation, error) {
	if prev == nil || prev.Len() == 0 {
		return e.seed()
	}
	cells := prev.Cells() + 1
	b, err := e.store.NewBuilder(cells)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	if err := e.expand(ctx, prev, b); err != nil {
		if aerr := b.Abort(); aerr != nil {
			e.logger.Warn("abort generation", slog.Int("cells", cells), slog.Any("error", aerr))
		}
		return nil, err
	}
	next, err := b.Finish()
	if err != nil {
		return nil, err
	}
	st := b.Stats()
	e.metrics.observeGeneration(cells, next.Len(), st, time.Since(start))
	e.logger.Debug("generation built",
		slog.Int("cells", cells),
		slog.Int("shapes", next.Len()),
		slog.Int64("duplicates", st.Duplicates),
		slog.Int64("collisions", st.Collisions),
	)
	return next, nil
}

func (e *Engine) seed() (Generation, error) {
	b, err := e.store.NewBuilder(1)
	if err != nil {
		return nil, err
	}
	s := Seed()
	if _, err := b.Insert(e.canon.Fingerprint(s), s); err != nil {
		_ = b.Abort()
		return nil, err
	}
	g, err := b.Finish()
	if err != nil {
		return nil, err
	}
	e.metrics.observeGeneration(1, g.Len(), b.Stats(), 0)
	return g, nil
}

// expand feeds prev's shapes to the workers. Each worker grows a shape in every
// direction and inserts every fingerprinted candidate into b.
func (e *Engine) expand(ctx context.Context, prev Generation, b Builder) error {
	total := int64(prev.Len())
	nextPrint := max(total/progressSteps, 1)
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	work := make(chan Shape, workQueueDepth)
	g.Go(func() error {
		defer close(work)
		return prev.Each(func(s Shape) error {
			select {
			case work <- s:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	})
	for w := 0; w < e.workers; w++ {
		g.Go(func() error {
			var candidates, occupied int64
			defer func() { e.metrics.observeGrowth(candidates, occupied) }()
			for s := range work {
				produced := int64(0)
				err := GrowAll(s, func(n Shape) error {
					produced++
					if checkInvariants {
						if err := n.Validate(); err != nil {
							return fmt.Errorf("grown from %s: %w", s, err)
						}
					}
					_, err := b.Insert(e.canon.Fingerprint(n), n)
					return err
				})
				if err != nil {
					return err
				}
				candidates += produced
				occupied += int64(s.Len()*len(directions)) - produced
				if n := done.Add(1); n%nextPrint == 0 {
					e.logger.Debug("progress",
						slog.Int("cells", prev.Cells()+1),
						slog.String("percent", fmt.Sprintf("%.2f", float64(n)*100/float64(total))),
					)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}
