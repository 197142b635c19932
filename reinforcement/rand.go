package reinforcement

import (
	"math/rand"
	"time"
)

// newRand returns a private random source; seed zero selects a time-based seed.
func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
