package polycubes

const (
	NumShards      = 256 // power of two; fingerprint shards for store locking
	DefaultStore   = StoreMemory
	DefaultDir     = "polycubes-data"
	recordAxes     = 3 // bytes per cell in a record stream
	workQueueDepth = 64
	progressSteps  = 100 // ~1% progress log granularity
)
