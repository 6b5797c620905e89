package domain

import "math"

// DurationScore is a logistic curve centred on two minutes.
func DurationScore(secs float64) float64 {
	return clamp01(1 / (1 + math.Exp(-0.02*(secs-120))))
}

// StabilityScore is the share of readings whose app id is appID.
func StabilityScore(readings []Reading, appID string) float64 {
	if len(readings) == 0 {
		return 0.5
	}
	match := 0
	for _, r := range readings {
		if r.AppID == appID {
			match++
		}
	}
	return clamp01(float64(match) / float64(len(readings)))
}

// VisualScore falls as the number of distinct screen states grows.
func VisualScore(uniqueFingerprints, readingCount int) float64 {
	if readingCount == 0 {
		return 0.5
	}
	return clamp01(1 - math.Min(1, float64(uniqueFingerprints)/float64(readingCount)))
}

// RecognitionScore is the mean recognition confidence, 0.5 when nothing was recognized.
func RecognitionScore(readings []Reading) float64 {
	sum := 0.0
	n := 0
	for _, r := range readings {
		if !r.HasRecognition {
			continue
		}
		sum += clamp01(r.RecognitionConfidence)
		n++
	}
	if n == 0 {
		return 0.5
	}
	return clamp01(sum / float64(n))
}

func (w Weights) Combine(s Scores) float64 {
	return clamp01(w.Duration*s.Duration + w.Stability*s.Stability + w.Visual*s.Visual + w.Recognition*s.Recognition)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
