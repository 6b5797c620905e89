package service

import (
	"sync"

	"focustrail/internal/modules/capture/domain"
)

const recentTicks = 20

type metrics struct {
	mu     sync.Mutex
	stats  domain.Stats
	recent []domain.TickTiming
	next   int
}

func newMetrics() *metrics {
	return &metrics{recent: make([]domain.TickTiming, 0, recentTicks)}
}

func (m *metrics) reset(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = domain.Stats{SessionID: sessionID, Running: true}
	m.recent = m.recent[:0]
	m.next = 0
}

func (m *metrics) stopped() {
	m.mu.Lock()
	m.stats.Running = false
	m.mu.Unlock()
}

func (m *metrics) record(t domain.TickTiming) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Ticks++
	if t.Err != "" {
		m.stats.LastError = t.Err
	}
	switch t.Outcome {
	case domain.TickHidden:
		m.stats.Hidden++
	case domain.TickFailed:
		m.stats.Failures++
	case domain.TickTimeout:
		m.stats.Timeouts++
	}
	if len(m.recent) < recentTicks {
		m.recent = append(m.recent, t)
		return
	}
	m.recent[m.next] = t
	m.next = (m.next + 1) % recentTicks
}

func (m *metrics) readingWritten(metadataOnly bool) {
	m.mu.Lock()
	m.stats.Readings++
	if metadataOnly {
		m.stats.MetadataOnly++
	}
	m.mu.Unlock()
}

func (m *metrics) writeFailed() {
	m.mu.Lock()
	m.stats.WriteFailures++
	m.mu.Unlock()
}

func (m *metrics) recognitionRun() {
	m.mu.Lock()
	m.stats.RecognitionRuns++
	m.mu.Unlock()
}

func (m *metrics) recognitionSkipped() {
	m.mu.Lock()
	m.stats.RecognitionSkips++
	m.mu.Unlock()
}

func (m *metrics) recognitionFailed() {
	m.mu.Lock()
	m.stats.RecognitionFailures++
	m.mu.Unlock()
}

// snapshot returns a copy with Recent ordered oldest first.
func (m *metrics) snapshot() domain.Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.stats
	out.Recent = make([]domain.TickTiming, 0, len(m.recent))
	out.Recent = append(out.Recent, m.recent[m.next:]...)
	out.Recent = append(out.Recent, m.recent[:m.next]...)
	return out
}
