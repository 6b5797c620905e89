package domain_test

import (
	"math"
	"testing"

	"focustrail/internal/modules/segmentation/domain"
)

func TestDurationScoreIsLogisticAroundTwoMinutes(t *testing.T) {
	t.Parallel()
	if got := domain.DurationScore(120); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("expected 0.5 at 120s, got %.4f", got)
	}
	prev := -1.0
	for _, secs := range []float64{0, 30, 60, 120, 300, 3600} {
		got := domain.DurationScore(secs)
		if got <= prev {
			t.Fatalf("duration score must increase, %.0fs gave %.4f after %.4f", secs, got, prev)
		}
		prev = got
	}
	if domain.DurationScore(300) < 0.95 {
		t.Fatalf("five minutes should score high, got %.4f", domain.DurationScore(300))
	}
}

func TestFallbackScores(t *testing.T) {
	t.Parallel()
	if domain.StabilityScore(nil, "app") != 0.5 {
		t.Fatalf("empty stability must fall back to 0.5")
	}
	if domain.VisualScore(0, 0) != 0.5 {
		t.Fatalf("empty visual must fall back to 0.5")
	}
	if domain.RecognitionScore([]domain.Reading{{AppID: "a"}}) != 0.5 {
		t.Fatalf("unrecognized readings must fall back to 0.5")
	}
}

func TestVisualAndRecognitionScores(t *testing.T) {
	t.Parallel()
	if got := domain.VisualScore(2, 10); math.Abs(got-0.8) > 1e-9 {
		t.Fatalf("expected 0.8, got %.4f", got)
	}
	if got := domain.VisualScore(12, 10); got != 0 {
		t.Fatalf("expected clamp to 0, got %.4f", got)
	}
	readings := []domain.Reading{
		{HasRecognition: true, RecognitionConfidence: 0.9},
		{HasRecognition: true, RecognitionConfidence: 0.5},
		{HasRecognition: false, RecognitionConfidence: 0},
		{HasRecognition: true, RecognitionConfidence: 3},
	}
	if got := domain.RecognitionScore(readings); math.Abs(got-0.8) > 1e-9 {
		t.Fatalf("expected mean of clamped confidences 0.8, got %.4f", got)
	}
}

func TestCombineClampsToUnitInterval(t *testing.T) {
	t.Parallel()
	heavy := domain.Weights{Duration: 2, Stability: 2, Visual: 2, Recognition: 2}
	if got := heavy.Combine(domain.Scores{Duration: 1, Stability: 1, Visual: 1, Recognition: 1}); got != 1 {
		t.Fatalf("expected clamp to 1, got %.4f", got)
	}
	w := domain.DefaultConfig().Weights
	got := w.Combine(domain.Scores{Duration: 1, Stability: 0.5, Visual: 0, Recognition: 0.5})
	if math.Abs(got-(0.30+0.20+0.075)) > 1e-9 {
		t.Fatalf("unexpected weighted sum %.4f", got)
	}
}
