// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package locate requests a single location fix from the device's location subsystem and
// classifies its precision.
package locate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/district-locator/internal/geo"
)

const (
	// GPSAccuracyLimit is the largest accuracy in meters still classified as a GPS fix.
	GPSAccuracyLimit = 50.0
	DefaultTimeout   = time.Second * 15
)

var (
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrTimeout             = errors.New("location request timed out")
	ErrUnsupported         = errors.New("location capability not supported")
)

// Tier classifies the precision of a location reading.
type Tier int

const (
	TierGPS Tier = iota
	TierWIFI
	TierIP
)

// String implements the fmt.Stringer interface.
func (t Tier) String() string {
	switch t {
	case TierGPS:
		return "GPS"
	case TierWIFI:
		return "WIFI"
	case TierIP:
		return "IP"
	default:
		return "unknown"
	}
}

// Options controls a single location request.
type Options struct {
	// HighAccuracy allows power hungry sources like a GPS receiver.
	HighAccuracy bool
	Timeout      time.Duration
	// MaxAge is the maximum age of an acceptable fix. A zero MaxAge only accepts fixes taken
	// after the request started.
	MaxAge time.Duration
}

// DefaultOptions returns high accuracy, a 15 seconds timeout and no cached fixes.
func DefaultOptions() Options {
	return Options{
		HighAccuracy: true,
		Timeout:      DefaultTimeout,
		MaxAge:       0,
	}
}

// Fix is a raw position reported by a Capability.
type Fix struct {
	Coordinate     geo.Coordinate
	AccuracyMeters float64
	At             time.Time
	Source         string
}

// Reading is a classified location fix.
type Reading struct {
	Coordinate     geo.Coordinate
	AccuracyMeters float64
	Tier           Tier
	Source         string
}

// Capability is a device location source. Implementations report failures with the sentinel
// errors of this package.
type Capability interface {
	Name() string
	RequestFix(ctx context.Context, opts Options) (Fix, error)
}

// Detect performs a single location request against capability. It does not retry. The
// returned error always matches one of ErrPermissionDenied, ErrPositionUnavailable, ErrTimeout,
// ErrUnsupported or the context error of ctx.
func Detect(ctx context.Context, capability Capability, opts Options) (Reading, error) {
	if capability == nil {
		return Reading{}, ErrUnsupported
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	started := time.Now()
	ctxFix, cancelFix := context.WithTimeout(ctx, opts.Timeout)
	defer cancelFix()

	fix, err := capability.RequestFix(ctxFix, opts)
	if err != nil {
		return Reading{}, classifyError(ctx, ctxFix, err)
	}
	if ctxFix.Err() != nil {
		return Reading{}, classifyError(ctx, ctxFix, ctxFix.Err())
	}
	if !fix.Coordinate.Valid() || fix.AccuracyMeters < 0 {
		return Reading{}, fmt.Errorf("%w: invalid fix %s", ErrPositionUnavailable, fix.Coordinate)
	}
	if isStale(fix, started, opts.MaxAge) {
		return Reading{}, fmt.Errorf("%w: fix from %s is too old", ErrPositionUnavailable,
			fix.At.Format(time.RFC3339))
	}

	source := fix.Source
	if source == "" {
		source = capability.Name()
	}
	return Reading{
		Coordinate:     fix.Coordinate,
		AccuracyMeters: fix.AccuracyMeters,
		Tier:           ClassifyAccuracy(fix.AccuracyMeters),
		Source:         source,
	}, nil
}

// ClassifyAccuracy returns TierGPS for accuracies up to GPSAccuracyLimit and TierWIFI otherwise.
func ClassifyAccuracy(accuracy float64) Tier {
	if accuracy <= GPSAccuracyLimit {
		return TierGPS
	}
	return TierWIFI
}

func isStale(fix Fix, started time.Time, maxAge time.Duration) bool {
	if fix.At.IsZero() {
		return false
	}
	if maxAge <= 0 {
		return fix.At.Before(started.Truncate(time.Second))
	}
	return started.Sub(fix.At) > maxAge
}

// classifyError maps errors of a capability to the failure taxonomy. Cancellation of the parent
// context is passed through so callers can tell an abandoned request from a timeout.
func classifyError(parent, fixCtx context.Context, err error) error {
	switch {
	case parent.Err() != nil:
		return parent.Err()
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, ErrPositionUnavailable),
		errors.Is(err, ErrTimeout), errors.Is(err, ErrUnsupported):
		return err
	case errors.Is(err, context.DeadlineExceeded), fixCtx.Err() != nil:
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %w", ErrPositionUnavailable, err)
	}
}

// Detector binds a Capability to fixed Options.
type Detector struct {
	capability Capability
	opts       Options
}

// NewDetector returns a Detector for capability and opts.
func NewDetector(capability Capability, opts Options) *Detector {
	return &Detector{capability: capability, opts: opts}
}

// Acquire performs a single Detect with the options of the Detector.
func (d *Detector) Acquire(ctx context.Context) (Reading, error) {
	return Detect(ctx, d.capability, d.opts)
}
