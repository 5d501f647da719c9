package sim

import (
	"math/rand"
	"sync"
	"time"
)

// Rand is the random source used for every perturbation. Float64 must
// return values in [0, 1).
type Rand interface {
	Float64() float64
}

// Clock supplies wall-clock time for sample labels.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// lockedRand makes a *rand.Rand safe to share between the tick loop and
// request handlers.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// NewRand returns a math/rand backed source. A zero seed is replaced by
// the current time so runs differ unless a seed is configured.
func NewRand(seed int64) Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

// uniform maps a [0,1) draw onto [lo, hi).
func uniform(r Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

// jitter returns a draw in [-spread/2, spread/2), the same shape as
// (random-0.5)*spread.
func jitter(r Rand, spread float64) float64 {
	return (r.Float64() - 0.5) * spread
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
