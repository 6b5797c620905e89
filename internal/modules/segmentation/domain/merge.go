package domain

import (
	"strconv"
	"time"

	"focustrail/internal/platform/id"
)

type hosted struct {
	seg           Segment
	interruptions []Interruption
}

// MergeSandwiches folds every A,B,C run where A and C share an app id and B
// lasts at most maxB into one segment spanning A.Start..C.End, recording B as
// an interruption of it. It repeats until no run qualifies, so rapid
// A,B,A,B,A switching collapses into one host. Interruption ids are stable;
// their SegmentID is the id of the final host.
func MergeSandwiches(segments []Segment, maxB time.Duration, interval time.Duration) ([]Segment, []Interruption) {
	work := make([]hosted, len(segments))
	for i, s := range segments {
		work[i] = hosted{seg: s}
	}
	limit := maxB.Seconds()

	for merged := true; merged; {
		merged = false
		for i := 0; i+2 < len(work); i++ {
			a, b, c := work[i], work[i+1], work[i+2]
			if a.seg.AppID != c.seg.AppID || b.seg.DurationSecs > limit {
				continue
			}
			host := a.seg
			host.End = c.seg.End
			host.LastReadingAt = c.seg.LastReadingAt
			host.DurationSecs = spanSecs(host.Start, host.LastReadingAt, interval)
			host.ReadingCount = a.seg.ReadingCount + c.seg.ReadingCount
			host.Transitioning = a.seg.Transitioning || b.seg.Transitioning || c.seg.Transitioning

			notes := make([]Interruption, 0, len(a.interruptions)+len(b.interruptions)+len(c.interruptions)+1)
			notes = append(notes, a.interruptions...)
			notes = append(notes, b.interruptions...)
			notes = append(notes, Interruption{
				ID:           id.Derive(b.seg.SessionID, "interruption", strconv.FormatInt(b.seg.Start.UnixMilli(), 10)),
				AppID:        b.seg.AppID,
				Owner:        b.seg.Owner,
				Timestamp:    b.seg.Start,
				DurationSecs: b.seg.DurationSecs,
			})
			notes = append(notes, c.interruptions...)

			next := make([]hosted, 0, len(work)-2)
			next = append(next, work[:i]...)
			next = append(next, hosted{seg: host, interruptions: notes})
			next = append(next, work[i+3:]...)
			work = next
			merged = true
			break
		}
	}

	outSegs := make([]Segment, 0, len(work))
	var outNotes []Interruption
	for _, h := range work {
		outSegs = append(outSegs, h.seg)
		for _, n := range h.interruptions {
			n.SegmentID = h.seg.ID
			outNotes = append(outNotes, n)
		}
	}
	return outSegs, outNotes
}
