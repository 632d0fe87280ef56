package internal

import "sync"

const (
	// DefaultNFCapacity is how many nonces the process-wide filter
	// remembers before the oldest slot is recycled.
	DefaultNFCapacity = 1e6
	// DefaultNFFPR is the false positive rate of the filter.
	DefaultNFFPR = 1e-6
	// DefaultNFSlot is the number of ring slots.
	DefaultNFSlot = 10
)

var (
	nonceFilter *NonceRing
	filterOnce  sync.Once
)

func filter() *NonceRing {
	filterOnce.Do(func() {
		nonceFilter = NewNonceRing(DefaultNFSlot, int(DefaultNFCapacity), DefaultNFFPR)
	})
	return nonceFilter
}

// TestNonce reports whether the nonce has (probably) been seen before in
// this process.
func TestNonce(b []byte) bool { return filter().Test(b) }

// AddNonce remembers a nonce for reuse detection.
func AddNonce(b []byte) { filter().Add(b) }
