package community

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Rand is the random source every scheduling decision draws from.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// Weighted is one option of a categorical draw
type Weighted[T any] struct {
	Value  T
	Weight float64
}

// Roll returns true with probability p
func Roll(r Rand, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return r.Float64() < p
}

// Choose performs a weighted categorical draw. Options with non-positive
// weight are never selected. It panics on an empty option list.
func Choose[T any](r Rand, options []Weighted[T]) T {
	var total float64
	for _, o := range options {
		if o.Weight > 0 {
			total += o.Weight
		}
	}
	if total == 0 {
		return options[0].Value
	}
	u := r.Float64() * total
	for _, o := range options {
		if o.Weight <= 0 {
			continue
		}
		if u < o.Weight {
			return o.Value
		}
		u -= o.Weight
	}
	// float rounding can leave u just past the last bucket
	for i := len(options) - 1; i >= 0; i-- {
		if options[i].Weight > 0 {
			return options[i].Value
		}
	}
	return options[0].Value
}

// Pick returns one element chosen uniformly at random
func Pick[T any](r Rand, items []T) T {
	return items[r.IntN(len(items))]
}

// Sample returns k distinct elements chosen uniformly at random, in draw
// order. k is clamped to [0, len(items)]. items is not modified.
func Sample[T any](r Rand, items []T, k int) []T {
	if k > len(items) {
		k = len(items)
	}
	if k <= 0 {
		return nil
	}
	pool := make([]T, len(items))
	copy(pool, items)
	for i := 0; i < k; i++ {
		j := i + r.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}

// lockedRand makes a *rand.Rand safe for the HTTP and ticker goroutines
// that share one room.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRand returns a goroutine-safe Rand seeded from the clock
func NewRand() Rand {
	seed := uint64(time.Now().UnixNano())
	return &lockedRand{r: rand.New(rand.NewPCG(seed, seed>>17|1))}
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}
