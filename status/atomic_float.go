package status

import (
	"math"
	"sync/atomic"
)

// AtomicFloat stores a float64 as its bit pattern
// Zero value is ready to use (represents 0.0)
type AtomicFloat struct {
	bits atomic.Uint64
}

// Store sets the value
func (f *AtomicFloat) Store(val float64) {
	f.bits.Store(math.Float64bits(val))
}

// Load returns the value
func (f *AtomicFloat) Load() float64 {
	return math.Float64frombits(f.bits.Load())
}
