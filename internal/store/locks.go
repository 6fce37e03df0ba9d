package store

import (
	"sync"

	"github.com/yourusername/datacollector/internal/models"
)

// pairLocks serializes Merge calls on the same (symbol, timeframe) pair
// while letting distinct pairs proceed concurrently, per the Store
// contract's concurrency requirement.
type pairLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPairLocks() *pairLocks {
	return &pairLocks{locks: make(map[string]*sync.Mutex)}
}

func (p *pairLocks) lock(symbol string, timeframe models.Timeframe) func() {
	key := symbol + "|" + string(timeframe)

	p.mu.Lock()
	m, ok := p.locks[key]
	if !ok {
		m = &sync.Mutex{}
		p.locks[key] = m
	}
	p.mu.Unlock()

	m.Lock()
	return m.Unlock
}
