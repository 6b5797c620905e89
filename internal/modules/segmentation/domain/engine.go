package domain

import (
	"sort"
	"strconv"
	"time"

	"focustrail/internal/platform/id"
)

// Run segments one session. readings must be in strictly increasing
// timestamp order.
func Run(sessionID string, readings []Reading, cfg Config) Result {
	if len(readings) == 0 {
		return Result{}
	}
	first := readings[0].Timestamp
	last := readings[len(readings)-1].Timestamp
	if last.Sub(first) < cfg.MinSegmentDuration || singleApp(readings) {
		return Result{Segments: []Segment{wholeSession(sessionID, readings, cfg)}}
	}

	groups := GroupReadings(readings)
	FlagTransitions(groups, cfg.TransitionWindow, cfg.TransitionSwitches)
	initial := InitialSegments(sessionID, readings, groups, cfg.Interval)
	merged, interruptions := MergeSandwiches(initial, cfg.SandwichMax, cfg.Interval)
	segments := Aggregate(merged, readings, cfg)
	Classify(segments, cfg.DistractedAfter)
	return Result{Segments: segments, Interruptions: interruptions}
}

// Classify sets each segment's Type. A merged host that absorbed rapid
// switching for at least distractedAfter counts as distracted.
func Classify(segments []Segment, distractedAfter time.Duration) {
	for i := range segments {
		switch {
		case !segments[i].Transitioning:
			segments[i].Type = SegmentStable
		case distractedAfter > 0 && segments[i].DurationSecs >= distractedAfter.Seconds():
			segments[i].Type = SegmentDistracted
		default:
			segments[i].Type = SegmentTransitioning
		}
	}
}

// InitialSegments produces one candidate segment per group.
func InitialSegments(sessionID string, readings []Reading, groups []Group, interval time.Duration) []Segment {
	out := make([]Segment, 0, len(groups))
	for i, g := range groups {
		end := g.LastAt.Add(interval)
		if i+1 < len(groups) {
			end = groups[i+1].Start
		}
		out = append(out, Segment{
			ID:            segmentID(sessionID, g.Start),
			SessionID:     sessionID,
			Start:         g.Start,
			End:           end,
			LastReadingAt: g.LastAt,
			DurationSecs:  spanSecs(g.Start, g.LastAt, interval),
			AppID:         g.AppID,
			Owner:         g.Owner,
			WindowTitle:   mostFrequentTitle(readings[g.From:g.To], g.AppID),
			ReadingCount:  g.To - g.From,
			Transitioning: g.Transitioning,
		})
	}
	return out
}

// Aggregate recomputes counts, title and scores of each segment from the
// readings inside [Start, End).
func Aggregate(segments []Segment, readings []Reading, cfg Config) []Segment {
	out := make([]Segment, len(segments))
	for i, seg := range segments {
		inside := within(readings, seg.Start, seg.End)
		seg.ReadingCount = len(inside)
		seg.UniqueFingerprints = uniqueFingerprints(inside)
		if title := mostFrequentTitle(inside, seg.AppID); title != "" {
			seg.WindowTitle = title
		}
		seg.Scores = Scores{
			Duration:    DurationScore(seg.DurationSecs),
			Stability:   StabilityScore(inside, seg.AppID),
			Visual:      VisualScore(seg.UniqueFingerprints, seg.ReadingCount),
			Recognition: RecognitionScore(inside),
		}
		seg.Confidence = cfg.Weights.Combine(seg.Scores)
		out[i] = seg
	}
	return out
}

func wholeSession(sessionID string, readings []Reading, cfg Config) Segment {
	first := readings[0].Timestamp
	last := readings[len(readings)-1].Timestamp
	app, owner := dominantApp(readings)
	seg := Segment{
		ID:                 segmentID(sessionID, first),
		SessionID:          sessionID,
		Start:              first,
		End:                last.Add(cfg.Interval),
		LastReadingAt:      last,
		DurationSecs:       spanSecs(first, last, cfg.Interval),
		AppID:              app,
		Owner:              owner,
		WindowTitle:        mostFrequentTitle(readings, app),
		ReadingCount:       len(readings),
		UniqueFingerprints: uniqueFingerprints(readings),
		Type:               SegmentStable,
	}
	seg.Scores = Scores{
		Duration:    DurationScore(seg.DurationSecs),
		Stability:   StabilityScore(readings, app),
		Visual:      VisualScore(seg.UniqueFingerprints, seg.ReadingCount),
		Recognition: RecognitionScore(readings),
	}
	seg.Confidence = clamp01(cfg.SinglePrior)
	return seg
}

func segmentID(sessionID string, start time.Time) string {
	return id.Derive(sessionID, "segment", strconv.FormatInt(start.UnixMilli(), 10))
}

func within(readings []Reading, start, end time.Time) []Reading {
	lo := sort.Search(len(readings), func(i int) bool { return !readings[i].Timestamp.Before(start) })
	hi := sort.Search(len(readings), func(i int) bool { return !readings[i].Timestamp.Before(end) })
	if hi < lo {
		return nil
	}
	return readings[lo:hi]
}

func singleApp(readings []Reading) bool {
	for _, r := range readings[1:] {
		if r.AppID != readings[0].AppID {
			return false
		}
	}
	return true
}

func uniqueFingerprints(readings []Reading) int {
	seen := map[string]struct{}{}
	for _, r := range readings {
		if r.Fingerprint != "" {
			seen[r.Fingerprint] = struct{}{}
		}
	}
	return len(seen)
}

// dominantApp returns the most frequent app id; ties go to the one seen first.
func dominantApp(readings []Reading) (string, string) {
	counts := map[string]int{}
	owners := map[string]string{}
	var order []string
	for _, r := range readings {
		if _, ok := counts[r.AppID]; !ok {
			order = append(order, r.AppID)
			owners[r.AppID] = r.Owner
		}
		counts[r.AppID]++
	}
	best := order[0]
	for _, app := range order[1:] {
		if counts[app] > counts[best] {
			best = app
		}
	}
	return best, owners[best]
}

// mostFrequentTitle picks the most common non-empty title among readings of
// appID; ties go to the title seen first.
func mostFrequentTitle(readings []Reading, appID string) string {
	counts := map[string]int{}
	var order []string
	for _, r := range readings {
		if r.AppID != appID || r.Title == "" {
			continue
		}
		if _, ok := counts[r.Title]; !ok {
			order = append(order, r.Title)
		}
		counts[r.Title]++
	}
	if len(order) == 0 {
		return ""
	}
	best := order[0]
	for _, title := range order[1:] {
		if counts[title] > counts[best] {
			best = title
		}
	}
	return best
}
