package service

import (
	"math/rand"
	"sync"
)

// lockedSource serializes draws from a rand.Source. The resolver, wager
// engine, and raffle service each share one generator across concurrent
// requests, and rand.Rand itself is not safe for concurrent use.
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source
}

func (s *lockedSource) Int63() int64 {
	s.mu.Lock()
	n := s.src.Int63()
	s.mu.Unlock()
	return n
}

func (s *lockedSource) Seed(seed int64) {
	s.mu.Lock()
	s.src.Seed(seed)
	s.mu.Unlock()
}

// newLockedRand wraps src so the returned generator is safe for concurrent
// draws. Draw sequences match rand.New(src) for the same seed.
func newLockedRand(src rand.Source) *rand.Rand {
	return rand.New(&lockedSource{src: src})
}
