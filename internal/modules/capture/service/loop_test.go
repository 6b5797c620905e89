package service_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"focustrail/internal/modules/capture/domain"
	"focustrail/internal/modules/capture/service"
	"focustrail/internal/platform/clock"
	apperrors "focustrail/internal/platform/errors"
	"focustrail/internal/platform/logging"
)

type fakeProvider struct {
	mu           sync.Mutex
	window       *domain.WindowInfo
	shot         []byte
	block        bool
	windowCalls  int
	shotCalls    int
	recognitions int
	recognizeErr error
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) ActiveWindow(ctx context.Context) (*domain.WindowInfo, error) {
	p.mu.Lock()
	p.windowCalls++
	block := p.block
	win := p.window
	p.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return win, nil
}

func (p *fakeProvider) CaptureScreenshot(context.Context, uint32) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shotCalls++
	return p.shot, nil
}

func (p *fakeProvider) RunRecognition(context.Context, []byte) (domain.Recognition, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recognitions++
	if p.recognizeErr != nil {
		return domain.Recognition{}, p.recognizeErr
	}
	return domain.Recognition{Text: "hello world", Confidence: 0.9, WordCount: 2}, nil
}

func (p *fakeProvider) setShot(shot []byte) {
	p.mu.Lock()
	p.shot = shot
	p.mu.Unlock()
}

func (p *fakeProvider) windowCallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.windowCalls
}

func (p *fakeProvider) counts() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shotCalls, p.recognitions
}

type fakeReadingStore struct {
	mu       sync.Mutex
	readings []domain.Reading
	inserted chan struct{}
	fail     error
}

func newFakeReadingStore() *fakeReadingStore {
	return &fakeReadingStore{inserted: make(chan struct{}, 16)}
}

func (s *fakeReadingStore) InsertReading(_ context.Context, r domain.Reading) (int64, error) {
	s.mu.Lock()
	if s.fail != nil {
		s.mu.Unlock()
		s.inserted <- struct{}{}
		return 0, s.fail
	}
	s.readings = append(s.readings, r)
	id := int64(len(s.readings))
	s.mu.Unlock()
	s.inserted <- struct{}{}
	return id, nil
}

func (s *fakeReadingStore) ReadingsForSession(context.Context, string) ([]domain.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Reading(nil), s.readings...), nil
}

func (s *fakeReadingStore) AssignSegments(context.Context, string, []domain.SegmentSpan) error {
	return nil
}

func (s *fakeReadingStore) AppUsage(context.Context, []string) ([]domain.AppUsage, error) {
	return nil, nil
}

func (s *fakeReadingStore) all() []domain.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Reading(nil), s.readings...)
}

func noisePNG(t *testing.T) []byte {
	t.Helper()
	return seededNoisePNG(t, 1)
}

func seededNoisePNG(t *testing.T, seed uint64) []byte {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, 2))
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(rng.IntN(256)), G: uint8(rng.IntN(256)), B: uint8(rng.IntN(256)), A: 255})
		}
	}
	buf := &bytes.Buffer{}
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

type harness struct {
	loop    *service.Loop
	mono    *clock.ManualMonotonic
	wall    *clock.Manual
	tickers *clock.ManualTickers
	store   *fakeReadingStore
}

func newHarness(t *testing.T, cfg service.Config, p *fakeProvider) *harness {
	t.Helper()
	h := &harness{
		mono:    &clock.ManualMonotonic{},
		wall:    clock.NewManual(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)),
		tickers: clock.NewManualTickers(),
		store:   newFakeReadingStore(),
	}
	h.loop = service.NewLoop(cfg, p, h.store, h.wall, h.mono, h.tickers, logging.Discard())
	t.Cleanup(func() {
		_ = h.loop.Stop(context.Background())
	})
	return h
}

func waitInsert(t *testing.T, s *fakeReadingStore) {
	t.Helper()
	select {
	case <-s.inserted:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for reading insert")
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func (h *harness) fire(t *testing.T) {
	t.Helper()
	var tk *clock.ManualTicker
	waitFor(t, "ticker", func() bool { tk = h.tickers.Last(); return tk != nil })
	if !tk.Fire(h.wall.Now()) {
		t.Fatalf("ticker fire was not received")
	}
}

func TestIdenticalFrameWithinCooldownSkipsRecognition(t *testing.T) {
	t.Parallel()
	p := &fakeProvider{
		window: &domain.WindowInfo{WindowID: 7, AppID: "org.editor", Title: "main.go", Owner: "editor"},
		shot:   noisePNG(t),
	}
	h := newHarness(t, service.DefaultConfig(), p)

	if err := h.loop.Start(context.Background(), "sess-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitInsert(t, h.store)

	h.mono.Advance(time.Second)
	h.wall.Advance(time.Second)
	h.fire(t)
	waitInsert(t, h.store)

	shots, recs := p.counts()
	if shots != 2 {
		t.Fatalf("expected two screenshots, got %d", shots)
	}
	if recs != 1 {
		t.Fatalf("expected exactly one recognition call, got %d", recs)
	}
	readings := h.store.all()
	if len(readings) != 2 {
		t.Fatalf("expected two readings, got %d", len(readings))
	}
	if readings[0].Recognition == nil || readings[0].Recognition.Text != "hello world" {
		t.Fatalf("first reading must carry recognition, got %+v", readings[0].Recognition)
	}
	if readings[1].Recognition != nil {
		t.Fatalf("gated reading must not carry recognition")
	}
	if readings[0].Fingerprint == "" || readings[0].Fingerprint != readings[1].Fingerprint {
		t.Fatalf("identical frames must share a fingerprint")
	}
	if !readings[1].Timestamp.After(readings[0].Timestamp) {
		t.Fatalf("readings must be timestamp ordered")
	}

	if err := h.loop.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	stats := h.loop.Stats()
	if stats.Running || stats.Ticks != 2 || stats.RecognitionRuns != 1 || stats.RecognitionSkips != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(stats.Recent) != 2 || stats.Recent[0].Outcome != domain.TickRecorded {
		t.Fatalf("unexpected recent ticks: %+v", stats.Recent)
	}
}

func TestNoWindowRecordsSystemSurface(t *testing.T) {
	t.Parallel()
	p := &fakeProvider{}
	h := newHarness(t, service.DefaultConfig(), p)

	if err := h.loop.Start(context.Background(), "sess-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitInsert(t, h.store)
	readings := h.store.all()
	if readings[0].Window.AppID != domain.SystemSurfaceAppID || !readings[0].MetadataOnly() {
		t.Fatalf("expected metadata-only system surface reading, got %+v", readings[0])
	}
	if shots, _ := p.counts(); shots != 0 {
		t.Fatalf("no screenshot expected without a window, got %d", shots)
	}
}

func TestTinyScreenshotIsSkippedAsHidden(t *testing.T) {
	t.Parallel()
	p := &fakeProvider{
		window: &domain.WindowInfo{WindowID: 3, AppID: "org.secret"},
		shot:   []byte("tiny"),
	}
	h := newHarness(t, service.DefaultConfig(), p)

	if err := h.loop.Start(context.Background(), "sess-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, "hidden tick", func() bool { return h.loop.Stats().Hidden == 1 })
	if len(h.store.all()) != 0 {
		t.Fatalf("hidden window must not produce a reading")
	}
}

func TestTickTimeoutIsCountedAndLoopContinues(t *testing.T) {
	t.Parallel()
	p := &fakeProvider{block: true}
	cfg := service.DefaultConfig()
	cfg.TickTimeout = 20 * time.Millisecond
	h := newHarness(t, cfg, p)

	if err := h.loop.Start(context.Background(), "sess-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, "timeout", func() bool { return h.loop.Stats().Timeouts == 1 })

	p.mu.Lock()
	p.block = false
	p.mu.Unlock()
	h.fire(t)
	waitInsert(t, h.store)
	waitFor(t, "second tick", func() bool { return h.loop.Stats().Ticks == 2 })
}

func TestRecognitionFailureKeepsReading(t *testing.T) {
	t.Parallel()
	p := &fakeProvider{
		window:       &domain.WindowInfo{WindowID: 9, AppID: "org.term"},
		shot:         noisePNG(t),
		recognizeErr: errors.New("engine crashed"),
	}
	h := newHarness(t, service.DefaultConfig(), p)

	if err := h.loop.Start(context.Background(), "sess-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitInsert(t, h.store)
	r := h.store.all()[0]
	if r.Fingerprint == "" || r.Recognition != nil {
		t.Fatalf("expected fingerprint without recognition, got %+v", r)
	}
	waitFor(t, "recognition failure", func() bool { return h.loop.Stats().RecognitionFailures == 1 })
}

func TestWriteFailureIsNotFatal(t *testing.T) {
	t.Parallel()
	p := &fakeProvider{}
	h := newHarness(t, service.DefaultConfig(), p)
	h.store.fail = errors.New("disk full")

	if err := h.loop.Start(context.Background(), "sess-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitInsert(t, h.store)
	waitFor(t, "write failure", func() bool { return h.loop.Stats().WriteFailures == 1 })
	if !h.loop.Stats().Running {
		t.Fatalf("loop must survive write failures")
	}
}

func TestStartTwiceAndStopIdle(t *testing.T) {
	t.Parallel()
	h := newHarness(t, service.DefaultConfig(), &fakeProvider{})

	if err := h.loop.Stop(context.Background()); err != nil {
		t.Fatalf("stop idle: %v", err)
	}
	if err := h.loop.Start(context.Background(), ""); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if err := h.loop.Start(context.Background(), "sess-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := h.loop.Start(context.Background(), "sess-2"); !errors.Is(err, apperrors.ErrCaptureRunning) {
		t.Fatalf("expected capture running, got %v", err)
	}
	waitInsert(t, h.store)
	if err := h.loop.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	tk := h.tickers.Last()
	if tk == nil || !tk.Stopped() {
		t.Fatalf("ticker must be stopped with the loop")
	}
	if h.loop.Stats().Running {
		t.Fatalf("loop must report stopped")
	}
}

func TestStopWaitsForInFlightTick(t *testing.T) {
	t.Parallel()
	p := &fakeProvider{block: true}
	cfg := service.DefaultConfig()
	cfg.TickTimeout = 200 * time.Millisecond
	h := newHarness(t, cfg, p)

	if err := h.loop.Start(context.Background(), "sess-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, "tick in flight", func() bool { return p.windowCallCount() == 1 })

	began := time.Now()
	if err := h.loop.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if elapsed := time.Since(began); elapsed > 2*time.Second {
		t.Fatalf("stop must be bounded by the tick timeout, took %s", elapsed)
	}

	stats := h.loop.Stats()
	if stats.Ticks != 1 || stats.Timeouts != 1 {
		t.Fatalf("stop must return after the in-flight tick finished, got %+v", stats)
	}
	if !strings.Contains(stats.LastError, apperrors.ErrTickTimeout.Error()) {
		t.Fatalf("timeout must be reported as a tick timeout, got %q", stats.LastError)
	}
	if stats.Running {
		t.Fatalf("loop must report stopped")
	}

	if h.tickers.Last().Fire(h.wall.Now()) {
		t.Fatalf("no tick may be consumed after stop")
	}
	if got := p.windowCallCount(); got != 1 {
		t.Fatalf("no tick may start after stop, got %d window calls", got)
	}
}

func TestRecognitionRerunsAfterCooldownOnChangedFrame(t *testing.T) {
	t.Parallel()
	p := &fakeProvider{
		window: &domain.WindowInfo{WindowID: 7, AppID: "org.editor", Title: "main.go"},
		shot:   seededNoisePNG(t, 1),
	}
	cfg := service.DefaultConfig()
	h := newHarness(t, cfg, p)

	if err := h.loop.Start(context.Background(), "sess-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitInsert(t, h.store)

	// Changed frame inside the cooldown stays gated.
	p.setShot(seededNoisePNG(t, 99))
	h.mono.Advance(cfg.Interval)
	h.wall.Advance(cfg.Interval)
	h.fire(t)
	waitInsert(t, h.store)
	if _, recs := p.counts(); recs != 1 {
		t.Fatalf("recognition must wait for the cooldown, got %d calls", recs)
	}

	h.mono.Advance(cfg.RecognitionCooldown)
	h.wall.Advance(cfg.RecognitionCooldown)
	h.fire(t)
	waitInsert(t, h.store)
	if _, recs := p.counts(); recs != 2 {
		t.Fatalf("recognition must rerun once the cooldown passed on a changed frame, got %d calls", recs)
	}

	readings := h.store.all()
	if len(readings) != 3 || readings[1].Recognition != nil || readings[2].Recognition == nil {
		t.Fatalf("unexpected recognition pattern: %+v", readings)
	}
	stats := h.loop.Stats()
	if stats.RecognitionRuns != 2 || stats.RecognitionSkips != 1 {
		t.Fatalf("unexpected recognition counters: %+v", stats)
	}
}
