package domain

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Random is a goroutine-safe uniform source in [0, 1).
type Random interface {
	Float64() float64
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandom returns a Random seeded with seed. A zero seed uses the current time.
func NewRandom(seed uint64) Random {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &lockedRand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// Jitter scales value by a uniform factor in [1-fraction, 1+fraction).
// A nil source returns value unchanged.
func Jitter(src Random, value, fraction float64) float64 {
	if src == nil || fraction <= 0 {
		return value
	}
	return value * (1 + (src.Float64()*2-1)*fraction)
}
