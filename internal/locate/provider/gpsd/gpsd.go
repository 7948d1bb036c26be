// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package gpsd provides a location capability backed by a local gpsd daemon.
package gpsd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/district-locator/internal/geo"
	"github.com/wneessen/district-locator/internal/gpspoll"
	"github.com/wneessen/district-locator/internal/locate"
)

const (
	DefaultHost = "localhost"
	DefaultPort = "2947"
	name        = "gpsd"
)

// Capability requests a single TPV report from gpsd.
type Capability struct {
	name   string
	client *gpspoll.Client
	pollFn func(ctx context.Context) (gpspoll.Fix, error)
	nowFn  func() time.Time
}

// New returns a Capability for the gpsd daemon at host and port. Empty values fall back to
// the gpsd defaults.
func New(host, port string) *Capability {
	if host == "" {
		host = DefaultHost
	}
	if port == "" {
		port = DefaultPort
	}
	capability := &Capability{
		name:   name,
		client: gpspoll.New(host, port),
		nowFn:  time.Now,
	}
	capability.pollFn = capability.client.Poll
	return capability
}

func (c *Capability) Name() string {
	return c.name
}

// RequestFix implements the locate.Capability interface. gpsd has no permission model, so the
// only failures are an unreachable daemon, a missing fix or the deadline. A receiver is the
// high accuracy source, so a request without HighAccuracy leaves it to the next capability.
func (c *Capability) RequestFix(ctx context.Context, opts locate.Options) (locate.Fix, error) {
	if !opts.HighAccuracy {
		return locate.Fix{}, fmt.Errorf("%w: %s is only used for high accuracy requests",
			locate.ErrUnsupported, c.name)
	}
	fix, err := c.pollFn(ctx)
	switch {
	case err == nil:
	case errors.Is(err, gpspoll.ErrDial):
		return locate.Fix{}, fmt.Errorf("%w: %w", locate.ErrUnsupported, err)
	case errors.Is(err, context.DeadlineExceeded):
		return locate.Fix{}, fmt.Errorf("%w: %w", locate.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return locate.Fix{}, err
	default:
		return locate.Fix{}, fmt.Errorf("%w: %w", locate.ErrPositionUnavailable, err)
	}

	if !fix.Has2DFix() {
		return locate.Fix{}, fmt.Errorf("%w: receiver %q has no 2D fix (mode %d)",
			locate.ErrPositionUnavailable, fix.Device, fix.Mode)
	}

	at := fix.Time
	if at.IsZero() {
		at = c.nowFn()
	}
	return locate.Fix{
		Coordinate: geo.Coordinate{
			Lat: geo.Truncate(fix.Lat, geo.TruncPrecision),
			Lon: geo.Truncate(fix.Lon, geo.TruncPrecision),
		},
		AccuracyMeters: fix.Accuracy,
		At:             at,
		Source:         c.name,
	}, nil
}
