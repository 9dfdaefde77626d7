package polycubes

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
)

// BadgerConfig holds configuration for the BadgerDB-backed store.
type BadgerConfig struct {
	// Dir is the database directory. Ignored when InMemory is true.
	Dir string
	// InMemory keeps the database off disk; meant for tests.
	InMemory bool
	// SyncWrites fsyncs every commit.
	SyncWrites bool
	// Logger receives BadgerDB's internal logging. Nil disables it.
	Logger *slog.Logger
}

// BadgerStore spills both fingerprints and shapes to an embedded BadgerDB, so neither
// has to stay resident. Keys are generation (uint32 BE) followed by fingerprint
// (uint64 BE); the value concatenates the records of every distinct shape sharing that
// fingerprint.
type BadgerStore struct {
	db       *badger.DB
	inMemory bool
	group    Group
	strict   bool
	logger   *slog.Logger
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// OpenBadgerStore opens (or creates) the database described by cfg.
func OpenBadgerStore(cfg BadgerConfig, g Group, strict bool) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Dir == "" {
		return nil, errors.New("badger store: dir is required for a persistent database")
	}
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("create badger directory %s: %w", cfg.Dir, err)
		}
		opts = badger.DefaultOptions(cfg.Dir)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &BadgerStore{db: db, inMemory: cfg.InMemory, group: g, strict: strict, logger: logger}, nil
}

func (bs *BadgerStore) Name() string { return StoreBadger }
func (bs *BadgerStore) Close() error { return bs.db.Close() }

func (bs *BadgerStore) NewBuilder(cells int) (Builder, error) {
	prefix := generationPrefix(cells)
	// a previous run may have left this generation behind
	if err := bs.db.DropPrefix(prefix); err != nil {
		return nil, fmt.Errorf("drop stale generation %d: %w", cells, err)
	}
	return &badgerBuilder{db: bs.db, inMemory: bs.inMemory, prefix: prefix, cells: cells, group: bs.group, strict: bs.strict, logger: bs.logger}, nil
}

func generationPrefix(cells int) []byte {
	p := make([]byte, 4)
	binary.BigEndian.PutUint32(p, uint32(cells))
	return p
}

func fingerprintKey(prefix []byte, fp uint64) []byte {
	k := make([]byte, len(prefix)+8)
	copy(k, prefix)
	binary.BigEndian.PutUint64(k[len(prefix):], fp)
	return k
}

type badgerBuilder struct {
	db       *badger.DB
	inMemory bool
	prefix   []byte
	cells    int
	group    Group
	strict   bool
	logger   *slog.Logger
	// each fingerprint key is read, compared and rewritten under its shard lock,
	// so concurrent transactions never touch the same key
	locks    shardLocks

	inserted, duplicates, collisions atomic.Int64
}

func (b *badgerBuilder) Insert(fp uint64, s Shape) (bool, error) {
	if err := checkCells(b.cells, s); err != nil {
		return false, err
	}
	key := fingerprintKey(b.prefix, fp)
	size := recordSize(b.cells)

	b.locks.lock(fp)
	defer b.locks.unlock(fp)

	var added, collided bool
	err := retryConflict(func() error {
		added, collided = false, false
		return b.db.Update(func(txn *badger.Txn) error {
			var val []byte
			item, err := txn.Get(key)
			switch {
			case errors.Is(err, badger.ErrKeyNotFound):
			case err != nil:
				return err
			default:
				if val, err = item.ValueCopy(nil); err != nil {
					return err
				}
				if !b.strict {
					return nil
				}
				for off := 0; off+size <= len(val); off += size {
					if Equivalent(b.group, s, decodeRecord(val[off:off+size], b.cells)) {
						return nil
					}
				}
				collided = true
			}
			rec := make([]byte, size)
			encodeRecord(rec, s)
			if err := txn.Set(key, append(val, rec...)); err != nil {
				return err
			}
			added = true
			return nil
		})
	})
	if err != nil {
		return false, fmt.Errorf("badger insert generation %d: %w", b.cells, err)
	}
	if collided {
		b.collisions.Add(1)
	}
	if added {
		b.inserted.Add(1)
	} else {
		b.duplicates.Add(1)
	}
	return added, nil
}

// retryConflict runs fn again once when it fails with badger.ErrConflict. Keys are
// guarded by shard locks, but conflict detection works on key hashes, so two distinct
// fingerprint keys can still clash.
func retryConflict(fn func() error) error {
	err := fn()
	if errors.Is(err, badger.ErrConflict) {
		err = fn()
	}
	return err
}

func (b *badgerBuilder) Stats() BuilderStats {
	return BuilderStats{
		Inserted:   b.inserted.Load(),
		Duplicates: b.duplicates.Load(),
		Collisions: b.collisions.Load(),
	}
}

func (b *badgerBuilder) Finish() (Generation, error) {
	if !b.inMemory {
		if err := b.db.Sync(); err != nil {
			return nil, fmt.Errorf("sync generation %d: %w", b.cells, err)
		}
	}
	return &badgerGeneration{db: b.db, prefix: b.prefix, cells: b.cells, count: int(b.inserted.Load())}, nil
}

func (b *badgerBuilder) Abort() error {
	return b.db.DropPrefix(b.prefix)
}

type badgerGeneration struct {
	db     *badger.DB
	prefix []byte
	cells  int
	count  int
}

func (g *badgerGeneration) Cells() int { return g.cells }
func (g *badgerGeneration) Len() int   { return g.count }

// Close drops the generation's keys; a generation is only needed until its successor exists.
func (g *badgerGeneration) Close() error {
	return g.db.DropPrefix(g.prefix)
}

func (g *badgerGeneration) Each(fn func(Shape) error) error {
	size := recordSize(g.cells)
	return g.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = g.prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(g.prefix); it.ValidForPrefix(g.prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				if len(val)%size != 0 {
					return fmt.Errorf("generation %d: value of %d bytes is not a whole number of %d-byte records", g.cells, len(val), size)
				}
				for off := 0; off < len(val); off += size {
					if err := fn(decodeRecord(val[off:off+size], g.cells)); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}
