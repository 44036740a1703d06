// Package replay implements the probabilistic salt-replay guard described
// in spec section 4.7: a server-role-only, process-wide set that rejects
// any AEAD salt it has already seen.
package replay

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// defaultExpectedSalts and defaultFalsePositiveRate size the underlying
// bloom filter. A false positive here means an honest, never-before-seen
// connection gets rejected as a replay — rare enough at 1e-6 to be
// negligible against the set sizes a single proxy process will see
// between restarts.
const (
	defaultExpectedSalts     = 1_000_000
	defaultFalsePositiveRate = 1e-6
)

// Guard is a concurrency-safe implementation of aead.SaltGuard backed by a
// bloom filter, matching the probabilistic-set shape spec 4.7 calls for
// rather than an exact (and unboundedly growing) set.
type Guard struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
}

// New builds a guard sized for the default expected salt count. Use
// NewWithEstimates to size it for a specific deployment's expected
// connection volume.
func New() *Guard {
	return NewWithEstimates(defaultExpectedSalts, defaultFalsePositiveRate)
}

// NewWithEstimates builds a guard sized for n expected salts at false
// positive rate p, per github.com/bits-and-blooms/bloom/v3's sizing
// formula.
func NewWithEstimates(n uint, p float64) *Guard {
	return &Guard{filter: bloom.NewWithEstimates(n, p)}
}

// Check reports whether salt has already been recorded by Add. It does
// not itself record salt; the caller decides when to call Add. In
// internal/aead, DecryptAll calls Add only after the datagram has been
// authenticated, while SessionCipherContext.installSalt calls it as soon
// as a TCP stream's salt is installed, before any chunk is authenticated.
func (g *Guard) Check(salt []byte) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.filter.Test(salt)
}

// Add records salt as seen.
func (g *Guard) Add(salt []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.filter.Add(salt)
}
