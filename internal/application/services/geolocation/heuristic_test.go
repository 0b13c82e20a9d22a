package geolocation

import (
	"testing"
	"time"

	"github.com/opentravelmate/bridge-go/internal/platform/native"
)

func fixAt(provider string, accuracy float64, at time.Time) native.Fix {
	return native.Fix{Provider: provider, AccuracyM: accuracy, Time: at}
}

func TestIsBetterFix(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		candidate native.Fix
		current   *native.Fix
		want      bool
	}{
		{
			name:      "first fix always wins",
			candidate: fixAt(native.ProviderNetwork, 1000, now),
			current:   nil,
			want:      true,
		},
		{
			name:      "significantly newer wins regardless of accuracy",
			candidate: fixAt(native.ProviderNetwork, 900, now),
			current:   ptr(fixAt(native.ProviderGPS, 5, now.Add(-3*time.Minute))),
			want:      true,
		},
		{
			name:      "significantly older loses regardless of accuracy",
			candidate: fixAt(native.ProviderGPS, 1, now.Add(-3*time.Minute)),
			current:   ptr(fixAt(native.ProviderNetwork, 900, now)),
			want:      false,
		},
		{
			name:      "more accurate wins inside the window",
			candidate: fixAt(native.ProviderNetwork, 20, now.Add(-time.Minute)),
			current:   ptr(fixAt(native.ProviderGPS, 50, now)),
			want:      true,
		},
		{
			name:      "newer with equal accuracy wins",
			candidate: fixAt(native.ProviderGPS, 50, now),
			current:   ptr(fixAt(native.ProviderGPS, 50, now.Add(-time.Minute))),
			want:      true,
		},
		{
			name:      "newer slightly less accurate same provider wins",
			candidate: fixAt(native.ProviderGPS, 150, now),
			current:   ptr(fixAt(native.ProviderGPS, 50, now.Add(-time.Minute))),
			want:      true,
		},
		{
			name:      "newer slightly less accurate different provider loses",
			candidate: fixAt(native.ProviderNetwork, 150, now),
			current:   ptr(fixAt(native.ProviderGPS, 50, now.Add(-time.Minute))),
			want:      false,
		},
		{
			name:      "newer but hugely less accurate loses even same provider",
			candidate: fixAt(native.ProviderGPS, 300, now),
			current:   ptr(fixAt(native.ProviderGPS, 50, now.Add(-time.Minute))),
			want:      false,
		},
		{
			name:      "older and less accurate loses",
			candidate: fixAt(native.ProviderGPS, 100, now.Add(-time.Minute)),
			current:   ptr(fixAt(native.ProviderGPS, 50, now)),
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBetterFix(tt.candidate, tt.current); got != tt.want {
				t.Fatalf("IsBetterFix = %v, want %v", got, tt.want)
			}
		})
	}
}

func ptr(f native.Fix) *native.Fix { return &f }
