package polycubes

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// DiskStore is the bounded-memory store: only fingerprints (plus record offsets in
// strict mode) stay resident while full cell data streams through one record file per
// generation.
type DiskStore struct {
	dir    string
	group  Group
	strict bool
	logger *slog.Logger
}

// NewDiskStore writes generation streams under dir. Existing streams for the same
// generation are overwritten; stale streams are never removed.
func NewDiskStore(dir string, g Group, strict bool, logger *slog.Logger) *DiskStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &DiskStore{dir: dir, group: g, strict: strict, logger: logger}
}

func (d *DiskStore) Name() string { return StoreDisk }
func (d *DiskStore) Close() error { return nil }

func (d *DiskStore) NewBuilder(cells int) (Builder, error) {
	w, err := CreateStream(StreamPath(d.dir, cells), cells)
	if err != nil {
		return nil, fmt.Errorf("create generation %d stream: %w", cells, err)
	}
	return &diskBuilder{
		w:      w,
		cells:  cells,
		group:  d.group,
		strict: d.strict,
		index:  make(map[uint64][]int64),
		logger: d.logger,
	}, nil
}

type diskBuilder struct {
	mu     sync.Mutex
	w      *StreamWriter
	cells  int
	group  Group
	strict bool
	// fingerprint -> record offsets; offsets are only kept in strict mode
	index  map[uint64][]int64
	stats  BuilderStats
	logger *slog.Logger
}

func (b *diskBuilder) Insert(fp uint64, s Shape) (bool, error) {
	if err := checkCells(b.cells, s); err != nil {
		return false, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	offsets, seen := b.index[fp]
	if seen {
		if !b.strict {
			b.stats.Duplicates++
			return false, nil
		}
		for _, off := range offsets {
			o, err := b.w.ReadRecord(off)
			if err != nil {
				return false, err
			}
			if Equivalent(b.group, s, o) {
				b.stats.Duplicates++
				return false, nil
			}
		}
		b.stats.Collisions++
	}
	off, err := b.w.Append(s)
	if err != nil {
		return false, err
	}
	if b.strict {
		b.index[fp] = append(offsets, off)
	} else {
		b.index[fp] = nil
	}
	b.stats.Inserted++
	return true, nil
}

func (b *diskBuilder) Stats() BuilderStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

func (b *diskBuilder) Finish() (Generation, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.w.Close(); err != nil {
		return nil, fmt.Errorf("finish generation %d: %w", b.cells, err)
	}
	b.index = nil
	b.logger.Debug("generation stream written",
		slog.String("path", b.w.Path()),
		slog.Int64("records", b.stats.Inserted),
	)
	return &diskGeneration{path: b.w.Path(), cells: b.cells, count: int(b.stats.Inserted), logger: b.logger}, nil
}

func (b *diskBuilder) Abort() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.index = nil
	return b.w.Abort()
}

type diskGeneration struct {
	path   string
	cells  int
	count  int
	logger *slog.Logger
}

// OpenDiskGeneration exposes an existing stream of count records as a generation.
func OpenDiskGeneration(path string, cells int, logger *slog.Logger) (Generation, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	count := int(fi.Size() / int64(recordSize(cells)))
	return &diskGeneration{path: path, cells: cells, count: count, logger: logger}, nil
}

func (g *diskGeneration) Cells() int   { return g.cells }
func (g *diskGeneration) Len() int     { return g.count }
func (g *diskGeneration) Close() error { return nil }

func (g *diskGeneration) Each(fn func(Shape) error) error {
	sr, err := OpenStream(g.path, g.cells)
	if err != nil {
		return fmt.Errorf("open generation %d stream: %w", g.cells, err)
	}
	defer sr.Close()
	for {
		s, ok, err := sr.Next()
		if err != nil {
			return fmt.Errorf("read generation %d stream: %w", g.cells, err)
		}
		if !ok {
			break
		}
		if err := fn(s); err != nil {
			return err
		}
	}
	if sr.Partial() {
		g.logger.Warn("stream ended inside a record", slog.String("path", g.path), slog.Int("cells", g.cells))
	}
	return nil
}
