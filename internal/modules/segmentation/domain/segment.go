// Package domain folds one session's ordered readings into scored activity
// segments. Every function here is pure: the same readings and Config always
// produce the same Result.
//
// Time convention: a segment covers the half-open interval [Start, End).
// Start is the timestamp of its first reading; End is the Start of the next
// segment, or the last reading plus one capture interval for the final
// segment. DurationSecs is (LastReadingAt - Start) plus one interval, which
// credits the trailing reading with its capture window.
package domain

import "time"

// Reading is the slice of a captured reading the engine needs.
type Reading struct {
	ID                    int64
	Timestamp             time.Time
	AppID                 string
	Owner                 string
	Title                 string
	Fingerprint           string
	HasRecognition        bool
	RecognitionConfidence float64
	RecognizedText        string
}

// SegmentType is derived from the transition flag after merging.
type SegmentType string

const (
	SegmentStable        SegmentType = "stable"
	SegmentTransitioning SegmentType = "transitioning"
	// SegmentDistracted is a transitioning segment that lasted at least
	// Config.DistractedAfter.
	SegmentDistracted SegmentType = "distracted"
)

type Scores struct {
	Duration    float64
	Stability   float64
	Visual      float64
	Recognition float64
}

type Segment struct {
	ID                 string
	SessionID          string
	Start              time.Time
	End                time.Time
	LastReadingAt      time.Time
	DurationSecs       float64
	AppID              string
	Owner              string
	WindowTitle        string
	ReadingCount       int
	UniqueFingerprints int
	Scores             Scores
	Confidence         float64
	Transitioning      bool
	Type               SegmentType
	Summary            string
}

// Interruption is a short foreign-app excursion folded into a host segment.
type Interruption struct {
	ID           string
	SegmentID    string
	AppID        string
	Owner        string
	Timestamp    time.Time
	DurationSecs float64
}

type Result struct {
	Segments      []Segment
	Interruptions []Interruption
}

type Weights struct {
	Duration    float64
	Stability   float64
	Visual      float64
	Recognition float64
}

type Config struct {
	Interval           time.Duration
	MinSegmentDuration time.Duration
	SandwichMax        time.Duration
	TransitionWindow   time.Duration
	TransitionSwitches int
	DistractedAfter    time.Duration
	Weights            Weights
	// SinglePrior is the confidence assigned when the whole session folds
	// into one segment.
	SinglePrior float64
}

func DefaultConfig() Config {
	return Config{
		Interval:           5 * time.Second,
		MinSegmentDuration: 30 * time.Second,
		SandwichMax:        12 * time.Second,
		TransitionWindow:   60 * time.Second,
		TransitionSwitches: 3,
		DistractedAfter:    3 * time.Minute,
		Weights:            Weights{Duration: 0.30, Stability: 0.40, Visual: 0.15, Recognition: 0.15},
		SinglePrior:        0.95,
	}
}

func spanSecs(first, last time.Time, interval time.Duration) float64 {
	return last.Sub(first).Seconds() + interval.Seconds()
}
