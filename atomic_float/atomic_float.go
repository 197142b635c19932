package atomic_float

import (
	"math"
	"sync/atomic"
	"unsafe"
)

/*
Float64 cells are reinterpreted as uint64 for the duration of a single atomic op.
No unsafe pointer outlives the call that creates it, so the gc is free to move the
backing array between calls.
*/

// AtomicRead atomically reads a float64.
func AtomicRead(val *float64) float64 {
	return math.Float64frombits(atomic.LoadUint64((*uint64)(unsafe.Pointer(val))))
}

// AtomicSet atomically stores a float64.
func AtomicSet(val *float64, newVal float64) {
	atomic.StoreUint64((*uint64)(unsafe.Pointer(val)), math.Float64bits(newVal))
}

// AtomicAdd atomically adds to a float64, retrying until no other writer intervenes,
// and returns the new value.
func AtomicAdd(val *float64, addend float64) (newVal float64) {
	for {
		old := AtomicRead(val)
		newVal = old + addend
		if atomic.CompareAndSwapUint64(
			(*uint64)(unsafe.Pointer(val)),
			math.Float64bits(old),
			math.Float64bits(newVal),
		) {
			return
		}
	}
}

// Slice is a fixed-length array of float64 cells with atomic element access.
// A single writer and any number of readers may use it concurrently; readers always
// observe whole values, never torn ones.
type Slice struct {
	vals []float64
}

// NewSlice returns a zero-initialized slice of n cells.
func NewSlice(n int) *Slice {
	return &Slice{vals: make([]float64, n)}
}

// Len is the number of cells.
func (s *Slice) Len() int {
	return len(s.vals)
}

// Load atomically reads cell i.
func (s *Slice) Load(i int) float64 {
	return AtomicRead(&s.vals[i])
}

// Store atomically writes cell i.
func (s *Slice) Store(i int, v float64) {
	AtomicSet(&s.vals[i], v)
}

// Add atomically adds to cell i and returns its new value.
func (s *Slice) Add(i int, addend float64) float64 {
	return AtomicAdd(&s.vals[i], addend)
}

// LoadRange copies cells [from, from+len(dst)) into dst.
func (s *Slice) LoadRange(from int, dst []float64) {
	for i := range dst {
		dst[i] = AtomicRead(&s.vals[from+i])
	}
}

// Snapshot returns a copy of every cell.
func (s *Slice) Snapshot() []float64 {
	out := make([]float64, len(s.vals))
	s.LoadRange(0, out)
	return out
}

// StoreAll overwrites every cell from src, which must have the same length.
func (s *Slice) StoreAll(src []float64) {
	for i, v := range src {
		AtomicSet(&s.vals[i], v)
	}
}
