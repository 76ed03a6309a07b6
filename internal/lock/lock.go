// Package lock implements the per-series advisory lock that manual edit and
// delete take before mutating an entry, so a recompute never races a
// failed edit.
package lock

import (
	"sync"

	"github.com/GreonXpert/netreduction-engine/internal/domain/entry"
)

// SeriesLocker hands out one mutex per (client, project, methodology)
// series, created lazily and kept for the process lifetime.
type SeriesLocker struct {
	mu     sync.Mutex
	series map[entry.SeriesKey]*sync.Mutex
}

// NewSeriesLocker returns a ready-to-use locker.
func NewSeriesLocker() *SeriesLocker {
	return &SeriesLocker{series: make(map[entry.SeriesKey]*sync.Mutex)}
}

func (l *SeriesLocker) mutexFor(key entry.SeriesKey) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.series[key]
	if !ok {
		m = &sync.Mutex{}
		l.series[key] = m
	}
	return m
}

// Lock blocks until the advisory lock for key is held and returns an
// unlock function. Callers should defer the returned function.
func (l *SeriesLocker) Lock(key entry.SeriesKey) func() {
	m := l.mutexFor(key)
	m.Lock()
	return m.Unlock
}
