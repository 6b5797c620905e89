package domain

import "time"

// SystemSurfaceAppID stands in for foreground surfaces that belong to no
// application, such as panels, docks and the desktop.
const SystemSurfaceAppID = "system.surface"

type Bounds struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type WindowInfo struct {
	WindowID uint32 `json:"window_id"`
	AppID    string `json:"app_id"`
	Title    string `json:"title"`
	Owner    string `json:"owner"`
	Bounds   Bounds `json:"bounds"`
}

type Recognition struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	WordCount  int     `json:"word_count"`
}

type Reading struct {
	ID          int64
	SessionID   string
	Timestamp   time.Time
	Window      WindowInfo
	Fingerprint string
	Recognition *Recognition
	SegmentID   string
}

// MetadataOnly reports whether the reading carries no screenshot-derived data.
func (r Reading) MetadataOnly() bool {
	return r.Fingerprint == "" && r.Recognition == nil
}

// SegmentSpan assigns the readings in [Start, End) to SegmentID.
type SegmentSpan struct {
	SegmentID string
	Start     time.Time
	End       time.Time
}

// AppUsage counts one session's readings for one app.
type AppUsage struct {
	SessionID string
	AppID     string
	Owner     string
	Readings  int
}
