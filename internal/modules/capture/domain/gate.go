package domain

import (
	"time"

	"focustrail/internal/platform/clock"
	"focustrail/internal/platform/phash"
)

type GateDecision string

const (
	GateFirst     GateDecision = "first"
	GateChanged   GateDecision = "changed"
	GateCooldown  GateDecision = "cooldown"
	GateUnchanged GateDecision = "unchanged"
)

// RecognitionGate decides when the expensive recognition step runs. The
// first attempt always runs. Later attempts need the cooldown to have passed
// since the previous attempt and the fingerprint to have drifted more than
// Threshold bits from the last successfully recognized one.
type RecognitionGate struct {
	Cooldown  time.Duration
	Threshold int

	attempted   bool
	lastAttempt clock.Instant
	lastHash    phash.Fingerprint
}

func NewRecognitionGate(cooldown time.Duration, threshold int) *RecognitionGate {
	return &RecognitionGate{Cooldown: cooldown, Threshold: threshold}
}

func (g *RecognitionGate) Decide(now clock.Instant, fp phash.Fingerprint) (bool, GateDecision) {
	if !g.attempted {
		return true, GateFirst
	}
	if now.Sub(g.lastAttempt) < g.Cooldown {
		return false, GateCooldown
	}
	if g.lastHash == "" {
		return true, GateChanged
	}
	d, err := phash.Distance(g.lastHash, fp)
	if err != nil || d > g.Threshold {
		return true, GateChanged
	}
	return false, GateUnchanged
}

// Attempted starts the cooldown whether or not recognition succeeds.
func (g *RecognitionGate) Attempted(now clock.Instant) {
	g.attempted = true
	g.lastAttempt = now
}

// Succeeded makes fp the reference for later change checks.
func (g *RecognitionGate) Succeeded(fp phash.Fingerprint) {
	g.lastHash = fp
}
