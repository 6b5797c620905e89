package domain

import "time"

type TickOutcome string

const (
	TickRecorded     TickOutcome = "recorded"
	TickMetadataOnly TickOutcome = "metadata_only"
	TickHidden       TickOutcome = "hidden"
	TickFailed       TickOutcome = "failed"
	TickTimeout      TickOutcome = "timeout"
)

type TickTiming struct {
	At          time.Time
	Outcome     TickOutcome
	Total       time.Duration
	Window      time.Duration
	Screenshot  time.Duration
	Hash        time.Duration
	Recognition time.Duration
	Recognized  bool
	Err         string
}

type Stats struct {
	SessionID           string
	Running             bool
	Ticks               int64
	Readings            int64
	MetadataOnly        int64
	Hidden              int64
	Failures            int64
	Timeouts            int64
	WriteFailures       int64
	RecognitionRuns     int64
	RecognitionSkips    int64
	RecognitionFailures int64
	LastError           string
	Recent              []TickTiming
}
