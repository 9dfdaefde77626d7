package polycubes

import "sync"

type shardLocks struct{ mu [NumShards]sync.Mutex }

// shardOf uses the low bits: fingerprints are minima, so their high bits skew towards zero.
func shardOf(fp uint64) int { return int(fp & (NumShards - 1)) }

func (sl *shardLocks) lock(fp uint64)   { sl.mu[shardOf(fp)].Lock() }
func (sl *shardLocks) unlock(fp uint64) { sl.mu[shardOf(fp)].Unlock() }
