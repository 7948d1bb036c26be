// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package ipfallback resolves district candidates from the public IP address of the device. It
// is used when no device location fix could be obtained.
package ipfallback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wneessen/district-locator/internal/district"
	"github.com/wneessen/district-locator/internal/geo"
	"github.com/wneessen/district-locator/internal/locate"
	"github.com/wneessen/district-locator/internal/logger"
	"github.com/wneessen/district-locator/internal/resolve"
)

// ErrUnavailable is returned if no locator could geolocate the public IP address.
var ErrUnavailable = errors.New("IP geolocation unavailable")

// Locator geolocates the public IP address of the device.
type Locator interface {
	Name() string
	LocateIP(ctx context.Context) (locate.Fix, error)
}

// Service ranks the district index against the first successful IP geolocation.
type Service struct {
	index    *district.Index
	limit    int
	locators []Locator
	logger   *logger.Logger
}

// New returns a Service over the given locators. limit caps the number of candidates in a
// result.
func New(index *district.Index, limit int, log *logger.Logger, locators ...Locator) (*Service, error) {
	if index == nil || index.Len() == 0 {
		return nil, district.ErrEmptyIndex
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}
	if limit <= 0 {
		limit = resolve.DefaultMaxCandidates
	}
	return &Service{
		index:    index,
		limit:    limit,
		locators: locators,
		logger:   log,
	}, nil
}

// ResolveByIP tries the locators in order. Containment is always false and no district is
// matched, since an IP position is never precise enough to prove membership.
func (s *Service) ResolveByIP(ctx context.Context) (resolve.Result, error) {
	for _, locator := range s.locators {
		if err := ctx.Err(); err != nil {
			return resolve.Result{}, err
		}
		fix, err := locator.LocateIP(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return resolve.Result{}, ctx.Err()
			}
			s.logger.Warn("IP geolocation failed", logger.Err(err), slog.String("source", locator.Name()))
			continue
		}
		if !fix.Coordinate.Valid() {
			s.logger.Warn("IP geolocation returned an invalid coordinate", slog.String("source", locator.Name()),
				slog.String("coordinate", fix.Coordinate.String()))
			continue
		}

		s.logger.Debug("resolved public IP to coordinate", slog.String("source", locator.Name()),
			slog.String("coordinate", fix.Coordinate.String()), slog.Float64("accuracy", fix.AccuracyMeters))
		result, err := resolve.NewResult(resolve.Rank(fix.Coordinate, s.index.List()), s.limit, false)
		if err != nil {
			return resolve.Result{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return result, nil
	}
	return resolve.Result{}, ErrUnavailable
}

// AccuracyFor estimates the accuracy of an IP position from the finest granularity the
// geolocation database could resolve.
func AccuracyFor(country, region, city, zip string) float64 {
	switch {
	case zip != "":
		return geo.AccuracyZip
	case city != "":
		return geo.AccuracyCity
	case region != "":
		return geo.AccuracyRegion
	case country != "":
		return geo.AccuracyCountry
	default:
		return geo.AccuracyUnknown
	}
}
