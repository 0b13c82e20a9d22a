package geolocation

import (
	"github.com/opentravelmate/bridge-go/internal/platform/native"
	"github.com/opentravelmate/bridge-go/pkg/config"
)

// IsBetterFix reports whether candidate should replace current as the best
// known position. Recency wins outright beyond the two-minute window; inside
// it the decision weighs accuracy, with a tolerance for same-provider fixes
// that got slightly worse.
func IsBetterFix(candidate native.Fix, current *native.Fix) bool {
	if current == nil {
		return true
	}

	timeDelta := candidate.Time.Sub(current.Time)
	switch {
	case timeDelta > config.MaxFixAge:
		return true
	case timeDelta < -config.MaxFixAge:
		return false
	}

	accuracyDelta := candidate.AccuracyM - current.AccuracyM
	newer := timeDelta > 0
	sameProvider := candidate.Provider == current.Provider

	switch {
	case accuracyDelta < 0:
		return true
	case newer && accuracyDelta == 0:
		return true
	case newer && accuracyDelta <= config.AccuracyDegradationMargin && sameProvider:
		return true
	}
	return false
}
