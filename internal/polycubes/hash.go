package polycubes

// mix64 is the splitmix64 finalizer: a fast avalanche over one packed cell key.
// It must stay stable across versions because fingerprints are compared across runs.
func mix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// cellHash hashes a single lattice cell.
func cellHash(c Coord) uint64 { return mix64(uint64(c.Key())) }
