package clock

import (
	"sync"
	"time"
)

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates tickers so loops can be driven by hand in tests.
type TickerFactory interface {
	NewTicker(d time.Duration) Ticker
}

type SystemTickers struct{}

func (SystemTickers) NewTicker(d time.Duration) Ticker {
	return systemTicker{t: time.NewTicker(d)}
}

type systemTicker struct {
	t *time.Ticker
}

func (s systemTicker) C() <-chan time.Time { return s.t.C }
func (s systemTicker) Stop()               { s.t.Stop() }

// ManualTickers hands out tickers that only fire through Fire.
type ManualTickers struct {
	mu      sync.Mutex
	tickers []*ManualTicker
	created chan struct{}
}

func NewManualTickers() *ManualTickers {
	return &ManualTickers{created: make(chan struct{}, 16)}
}

func (f *ManualTickers) NewTicker(time.Duration) Ticker {
	t := &ManualTicker{c: make(chan time.Time)}
	f.mu.Lock()
	f.tickers = append(f.tickers, t)
	f.mu.Unlock()
	select {
	case f.created <- struct{}{}:
	default:
	}
	return t
}

// Created signals each time a ticker is handed out.
func (f *ManualTickers) Created() <-chan struct{} {
	return f.created
}

// Last returns the most recently created ticker, or nil.
func (f *ManualTickers) Last() *ManualTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tickers) == 0 {
		return nil
	}
	return f.tickers[len(f.tickers)-1]
}

type ManualTicker struct {
	c       chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (t *ManualTicker) C() <-chan time.Time { return t.c }

func (t *ManualTicker) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (t *ManualTicker) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// Fire delivers one tick and blocks until the consumer receives it.
// It returns false if the ticker was stopped or the consumer does not read
// within a second.
func (t *ManualTicker) Fire(at time.Time) bool {
	if t.Stopped() {
		return false
	}
	select {
	case t.c <- at:
		return true
	case <-time.After(time.Second):
		return false
	}
}
