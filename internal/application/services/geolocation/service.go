// Package geolocation exposes W3C-style positioning on top of the platform
// location provider.
package geolocation

import (
	"fmt"
	"sync"
	"time"

	"github.com/opentravelmate/bridge-go/internal/infrastructure/observability/logging"
	"github.com/opentravelmate/bridge-go/internal/infrastructure/observability/report"
	"github.com/opentravelmate/bridge-go/internal/platform/native"
	"github.com/opentravelmate/bridge-go/pkg/config"
)

// Position error codes, mirroring the W3C geolocation API.
const (
	ErrPermissionDenied    = 1
	ErrPositionUnavailable = 2
	ErrTimeout             = 3
)

// Options tunes a position request.
type Options struct {
	EnableHighAccuracy bool          `json:"enableHighAccuracy"`
	Timeout            time.Duration `json:"-"`
	MaximumAge         time.Duration `json:"-"`
}

// Coords is the coordinate part of a position.
type Coords struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	Altitude         float64 `json:"altitude"`
	Accuracy         float64 `json:"accuracy"`
	AltitudeAccuracy float64 `json:"altitudeAccuracy"`
	Heading          float64 `json:"heading"`
	Speed            float64 `json:"speed"`
}

// Position is a located fix with its timestamp in milliseconds since epoch.
type Position struct {
	Coords    Coords `json:"coords"`
	Timestamp int64  `json:"timestamp"`
}

// PositionError mirrors the W3C PositionError shape.
type PositionError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func positionFromFix(fix native.Fix) Position {
	return Position{
		Coords: Coords{
			Latitude:  fix.Latitude,
			Longitude: fix.Longitude,
			Altitude:  fix.Altitude,
			Accuracy:  fix.AccuracyM,
			Heading:   fix.Heading,
			Speed:     fix.SpeedMS,
		},
		Timestamp: fix.Time.UnixMilli(),
	}
}

// Service answers one-shot and continuous position requests. It keeps the
// best fix seen so far and filters incoming fixes through IsBetterFix, so
// a stale-but-precise GPS fix is not displaced by a fresh coarse one.
type Service struct {
	provider native.LocationProvider
	logger   *logging.ChanneledLogger
	reporter report.Listener

	mu        sync.Mutex
	bestFix   *native.Fix
	watches   map[int]*watch
	nextWatch int
}

type watch struct {
	cancels []func()
	timer   *time.Timer
	done    bool
}

// NewService creates a geolocation service over the platform provider.
func NewService(provider native.LocationProvider, logger *logging.ChanneledLogger, reporter report.Listener) *Service {
	return &Service{
		provider: provider,
		logger:   logger,
		reporter: reporter,
		watches:  make(map[int]*watch),
	}
}

// CurrentPosition resolves one position. A cached fix no older than
// MaximumAge answers immediately; otherwise the provider is subscribed until
// an acceptably accurate fix or the timeout, whichever comes first. Fixes
// coarser than AcceptableAccuracyM do not resolve the request; the best one
// is held back and delivered at the timeout when nothing better arrived.
// Exactly one of success or failure is invoked, from a provider or timer
// goroutine.
func (s *Service) CurrentPosition(opts Options, success func(Position), failure func(PositionError)) {
	if fix := s.cachedFix(opts.MaximumAge); fix != nil {
		success(positionFromFix(*fix))
		return
	}

	var once sync.Once
	var mu sync.Mutex
	var cancels []func()
	var coarse *native.Fix
	cancelAll := func() {
		mu.Lock()
		defer mu.Unlock()
		for _, cancel := range cancels {
			cancel()
		}
		cancels = nil
	}

	timer := time.AfterFunc(opts.Timeout, func() {
		once.Do(func() {
			cancelAll()
			mu.Lock()
			held := coarse
			mu.Unlock()
			if held != nil {
				s.acceptFix(*held)
				success(positionFromFix(*held))
				return
			}
			s.logger.Geolocation().Warn("Position request timed out", "timeout", opts.Timeout)
			failure(PositionError{Code: ErrTimeout, Message: "position request timed out"})
		})
	})

	onFix := func(fix native.Fix) {
		if fix.AccuracyM > config.AcceptableAccuracyM {
			mu.Lock()
			if coarse == nil || IsBetterFix(fix, coarse) {
				fixCopy := fix
				coarse = &fixCopy
			}
			mu.Unlock()
			return
		}
		once.Do(func() {
			timer.Stop()
			cancelAll()
			s.acceptFix(fix)
			success(positionFromFix(fix))
		})
	}

	subscribed := s.subscribe(opts.EnableHighAccuracy, onFix, &mu, &cancels)
	if !subscribed {
		timer.Stop()
		once.Do(func() {
			failure(PositionError{Code: ErrPositionUnavailable, Message: "no location provider available"})
		})
	}
}

// WatchPosition starts continuous position delivery and returns the watch
// handle. Fixes pass the better-fix filter before reaching success; a quiet
// period longer than the timeout reports a timeout error and keeps
// watching.
func (s *Service) WatchPosition(opts Options, success func(Position), failure func(PositionError)) (int, error) {
	w := &watch{}

	if opts.Timeout > 0 {
		w.timer = time.AfterFunc(opts.Timeout, func() {
			s.mu.Lock()
			expired := !w.done
			if expired {
				w.timer.Reset(opts.Timeout)
			}
			s.mu.Unlock()
			if expired {
				failure(PositionError{Code: ErrTimeout, Message: "no position update within timeout"})
			}
		})
	}

	onFix := func(fix native.Fix) {
		s.mu.Lock()
		if w.done {
			s.mu.Unlock()
			return
		}
		better := IsBetterFix(fix, s.bestFix)
		if better {
			fixCopy := fix
			s.bestFix = &fixCopy
		}
		if w.timer != nil {
			w.timer.Reset(opts.Timeout)
		}
		s.mu.Unlock()
		if better {
			success(positionFromFix(fix))
		}
	}

	var mu sync.Mutex
	if !s.subscribe(opts.EnableHighAccuracy, onFix, &mu, &w.cancels) {
		if w.timer != nil {
			w.timer.Stop()
		}
		return 0, fmt.Errorf("no location provider available")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextWatch++
	handle := s.nextWatch
	s.watches[handle] = w
	return handle, nil
}

// ClearWatch stops a watch. Unknown handles are ignored.
func (s *Service) ClearWatch(handle int) {
	s.mu.Lock()
	w, ok := s.watches[handle]
	if ok {
		delete(s.watches, handle)
		w.done = true
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	for _, cancel := range w.cancels {
		cancel()
	}
}

// subscribe attaches onFix to the network provider and, for high accuracy
// requests, to GPS as well. It reports whether at least one subscription
// succeeded.
func (s *Service) subscribe(highAccuracy bool, onFix func(native.Fix), mu *sync.Mutex, cancels *[]func()) bool {
	providers := []string{native.ProviderNetwork}
	if highAccuracy {
		providers = append(providers, native.ProviderGPS)
	}

	subscribed := false
	for _, provider := range providers {
		cancel, err := s.provider.Subscribe(provider, config.LocationUpdateMinTime, config.LocationUpdateMinDistance, onFix)
		if err != nil {
			s.logger.Geolocation().Warn("Location provider unavailable",
				"provider", provider, "error", err.Error())
			s.reporter.OnException(true, err)
			continue
		}
		mu.Lock()
		*cancels = append(*cancels, cancel)
		mu.Unlock()
		subscribed = true
	}
	return subscribed
}

// cachedFix returns the freshest acceptable fix within maxAge, consulting
// the service's best fix and the provider's last known fixes.
func (s *Service) cachedFix(maxAge time.Duration) *native.Fix {
	if maxAge <= 0 {
		return nil
	}
	now := time.Now()

	s.mu.Lock()
	best := s.bestFix
	s.mu.Unlock()

	candidates := []*native.Fix{
		best,
		s.provider.LastKnownFix(native.ProviderGPS),
		s.provider.LastKnownFix(native.ProviderNetwork),
	}
	var freshest *native.Fix
	for _, fix := range candidates {
		if fix == nil || now.Sub(fix.Time) > maxAge {
			continue
		}
		if freshest == nil || IsBetterFix(*fix, freshest) {
			fixCopy := *fix
			freshest = &fixCopy
		}
	}
	return freshest
}

// acceptFix records a fix as the best known when the filter agrees.
func (s *Service) acceptFix(fix native.Fix) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if IsBetterFix(fix, s.bestFix) {
		fixCopy := fix
		s.bestFix = &fixCopy
	}
}
