package domain

import "time"

// Group is a maximal run of consecutive readings sharing one app id. Reading
// indexes are [From, To).
type Group struct {
	AppID         string
	Owner         string
	Start         time.Time
	LastAt        time.Time
	From          int
	To            int
	Transitioning bool
}

func GroupReadings(readings []Reading) []Group {
	var groups []Group
	for i, r := range readings {
		if n := len(groups); n > 0 && groups[n-1].AppID == r.AppID {
			groups[n-1].LastAt = r.Timestamp
			groups[n-1].To = i + 1
			continue
		}
		groups = append(groups, Group{
			AppID:  r.AppID,
			Owner:  r.Owner,
			Start:  r.Timestamp,
			LastAt: r.Timestamp,
			From:   i,
			To:     i + 1,
		})
	}
	return groups
}

// FlagTransitions marks every group that falls inside a window (anchored at
// some group's start) containing at least minSwitches app switches.
func FlagTransitions(groups []Group, window time.Duration, minSwitches int) {
	if minSwitches <= 0 {
		return
	}
	for i := range groups {
		windowEnd := groups[i].Start.Add(window)
		j := i
		for j < len(groups) && !groups[j].Start.After(windowEnd) {
			j++
		}
		// adjacent groups always differ in app id
		if j-i-1 < minSwitches {
			continue
		}
		for k := i; k < j; k++ {
			groups[k].Transitioning = true
		}
	}
}
