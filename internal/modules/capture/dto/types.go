package dto

import "time"

type ReadingOutput struct {
	ID                    int64
	SessionID             string
	Timestamp             time.Time
	WindowID              uint32
	AppID                 string
	Title                 string
	Owner                 string
	Fingerprint           string
	HasRecognition        bool
	RecognizedText        string
	RecognitionConfidence float64
	WordCount             int
	SegmentID             string
}

type SegmentSpan struct {
	SegmentID string
	Start     time.Time
	End       time.Time
}

type TickOutput struct {
	At          time.Time     `json:"at"`
	Outcome     string        `json:"outcome"`
	Total       time.Duration `json:"total"`
	Window      time.Duration `json:"window"`
	Screenshot  time.Duration `json:"screenshot"`
	Hash        time.Duration `json:"hash"`
	Recognition time.Duration `json:"recognition"`
	Recognized  bool          `json:"recognized"`
	Err         string        `json:"error,omitempty"`
}

type StatsOutput struct {
	SessionID           string       `json:"session_id"`
	Running             bool         `json:"running"`
	Ticks               int64        `json:"ticks"`
	Readings            int64        `json:"readings"`
	MetadataOnly        int64        `json:"metadata_only"`
	Hidden              int64        `json:"hidden"`
	Failures            int64        `json:"failures"`
	Timeouts            int64        `json:"timeouts"`
	WriteFailures       int64        `json:"write_failures"`
	RecognitionRuns     int64        `json:"recognition_runs"`
	RecognitionSkips    int64        `json:"recognition_skips"`
	RecognitionFailures int64        `json:"recognition_failures"`
	LastError           string       `json:"last_error,omitempty"`
	Recent              []TickOutput `json:"recent"`
}

type SampleOutput struct {
	Provider        string
	HasWindow       bool
	AppID           string
	Title           string
	Owner           string
	ScreenshotBytes int
	Fingerprint     string
	Recognition     string
}

type AppUsageOutput struct {
	AppID        string  `json:"app_id"`
	Owner        string  `json:"owner"`
	DurationSecs float64 `json:"duration_secs"`
	Percentage   float64 `json:"percentage"`
}
