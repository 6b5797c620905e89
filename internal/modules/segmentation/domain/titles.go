package domain

import (
	"sort"
	"time"
)

type TitleUsage struct {
	Title    string
	Readings int
	Secs     float64
}

// Titles lists window titles seen inside seg, most used first. Each reading
// is credited one capture interval.
func Titles(seg Segment, readings []Reading, interval time.Duration) []TitleUsage {
	inside := within(readings, seg.Start, seg.End)
	index := map[string]int{}
	var out []TitleUsage
	for _, r := range inside {
		if r.Title == "" {
			continue
		}
		i, ok := index[r.Title]
		if !ok {
			i = len(out)
			index[r.Title] = i
			out = append(out, TitleUsage{Title: r.Title})
		}
		out[i].Readings++
		out[i].Secs += interval.Seconds()
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Readings > out[b].Readings })
	return out
}

// RecognizedTexts returns the non-empty recognized texts inside seg, in order.
func RecognizedTexts(seg Segment, readings []Reading) []string {
	var out []string
	for _, r := range within(readings, seg.Start, seg.End) {
		if r.HasRecognition && r.RecognizedText != "" {
			out = append(out, r.RecognizedText)
		}
	}
	return out
}
