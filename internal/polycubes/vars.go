package polycubes

var (
	// Compile time checks to ensure that the strategy interfaces are implemented by all required types
	_ Canonicalizer   = (*BoundCanonicalizer)(nil)
	_ Canonicalizer   = (*SortedCanonicalizer)(nil)
	_ GenerationStore = (*MemoryStore)(nil)
	_ GenerationStore = (*DiskStore)(nil)
	_ GenerationStore = (*BadgerStore)(nil)
	_ Builder         = (*memoryBuilder)(nil)
	_ Builder         = (*diskBuilder)(nil)
	_ Builder         = (*badgerBuilder)(nil)
	_ Generation      = (*memoryGeneration)(nil)
	_ Generation      = (*diskGeneration)(nil)
	_ Generation      = (*badgerGeneration)(nil)
)
