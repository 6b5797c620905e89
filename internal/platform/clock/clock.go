package clock

import (
	"sync"
	"time"
)

// Clock abstracts time to keep usecases deterministic in tests.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// Instant is a point on a monotonic timeline. It carries no wall-clock meaning
// and is only comparable with instants from the same Monotonic source.
type Instant struct {
	offset time.Duration
}

// Sub returns the duration elapsed from earlier to i.
func (i Instant) Sub(earlier Instant) time.Duration {
	return i.offset - earlier.offset
}

// Monotonic yields instants that never jump with wall-clock adjustments.
type Monotonic interface {
	Now() Instant
}

// SystemMonotonic reads the runtime monotonic clock through time.Since.
type SystemMonotonic struct {
	origin time.Time
}

func NewSystemMonotonic() *SystemMonotonic {
	return &SystemMonotonic{origin: time.Now()}
}

func (m *SystemMonotonic) Now() Instant {
	return Instant{offset: time.Since(m.origin)}
}

// Manual is a settable wall clock for tests.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// ManualMonotonic is a monotonic source that only moves when advanced.
type ManualMonotonic struct {
	mu     sync.Mutex
	offset time.Duration
}

func (m *ManualMonotonic) Now() Instant {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Instant{offset: m.offset}
}

func (m *ManualMonotonic) Advance(d time.Duration) {
	m.mu.Lock()
	m.offset += d
	m.mu.Unlock()
}
