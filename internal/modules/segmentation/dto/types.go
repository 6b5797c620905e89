package dto

import "time"

type SegmentOutput struct {
	ID                 string    `json:"id"`
	SessionID          string    `json:"session_id"`
	Start              time.Time `json:"start"`
	End                time.Time `json:"end"`
	DurationSecs       float64   `json:"duration_secs"`
	AppID              string    `json:"app_id"`
	Owner              string    `json:"owner"`
	WindowTitle        string    `json:"window_title"`
	ReadingCount       int       `json:"reading_count"`
	UniqueFingerprints int       `json:"unique_fingerprints"`
	DurationScore      float64   `json:"duration_score"`
	StabilityScore     float64   `json:"stability_score"`
	VisualScore        float64   `json:"visual_score"`
	RecognitionScore   float64   `json:"recognition_score"`
	Confidence         float64   `json:"confidence"`
	Transitioning      bool      `json:"transitioning"`
	Type               string    `json:"type" jsonschema:"enum=stable,enum=transitioning,enum=distracted"`
	Summary            string    `json:"summary,omitempty"`
}

type InterruptionOutput struct {
	ID           string    `json:"id"`
	SegmentID    string    `json:"segment_id"`
	AppID        string    `json:"app_id"`
	Owner        string    `json:"owner"`
	Timestamp    time.Time `json:"timestamp"`
	DurationSecs float64   `json:"duration_secs"`
}

type SessionSegmentsOutput struct {
	SessionID     string
	Segments      []SegmentOutput
	Interruptions []InterruptionOutput
}

type TitleOutput struct {
	Title    string
	Readings int
	Secs     float64
}

type SummarizeOutput struct {
	SessionID  string
	Summarized int
	Skipped    int
}
