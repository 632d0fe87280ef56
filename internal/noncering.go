package internal

import (
	"hash/fnv"
	"sync"

	"github.com/riobard/go-bloom"
)

// simply use Double FNV here as our Bloom Filter hash
func doubleFNV(b []byte) (uint64, uint64) {
	hx := fnv.New64()
	hx.Write(b)
	x := hx.Sum64()
	hy := fnv.New64a()
	hy.Write(b)
	y := hy.Sum64()
	return x, y
}

// NonceRing remembers recently seen nonces in a ring of bloom filters so
// that reuse of a nonce under the process lifetime can be flagged. False
// positives are possible at the configured rate; false negatives only
// once the ring has cycled past old entries.
type NonceRing struct {
	slotCapacity int
	slotPosition int
	slotCount    int
	entryCounter int
	slots        []bloom.Filter
	mutex        sync.RWMutex
}

func NewNonceRing(slot, capacity int, falsePositiveRate float64) *NonceRing {
	// Calculate entries for each slot
	r := &NonceRing{
		slotCapacity: capacity / slot,
		slotCount:    slot,
		slots:        make([]bloom.Filter, slot),
	}
	for i := 0; i < slot; i++ {
		r.slots[i] = bloom.New(r.slotCapacity, falsePositiveRate, doubleFNV)
	}
	return r
}

func (r *NonceRing) Add(b []byte) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	slot := r.slots[r.slotPosition]
	if r.entryCounter > r.slotCapacity {
		// Move to next slot and reset
		r.slotPosition = (r.slotPosition + 1) % r.slotCount
		slot = r.slots[r.slotPosition]
		slot.Reset()
		r.entryCounter = 0
	}
	r.entryCounter++
	slot.Add(b)
}

func (r *NonceRing) Test(b []byte) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	for _, s := range r.slots {
		if s.Test(b) {
			return true
		}
	}
	return false
}
