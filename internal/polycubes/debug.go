//go:build debug

package polycubes

// checkInvariants makes the workers validate every grown candidate before it is
// fingerprinted. Build with -tags debug.
const checkInvariants = true
