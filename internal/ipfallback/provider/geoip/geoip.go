// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package geoip geolocates the public IP address through a freegeoip compatible JSON API.
package geoip

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/wneessen/district-locator/internal/geo"
	internalhttp "github.com/wneessen/district-locator/internal/http"
	"github.com/wneessen/district-locator/internal/ipfallback"
	"github.com/wneessen/district-locator/internal/locate"
)

const (
	APIEndpoint   = "https://reallyfreegeoip.org/json/"
	LookupTimeout = time.Second * 5
	name          = "geoip"
)

// Locator queries the geoip API for the public IP address of the request.
type Locator struct {
	name     string
	endpoint string
	http     *internalhttp.Client
	nowFn    func() time.Time
}

type APIResult struct {
	IP          string  `json:"ip"`
	CountryCode string  `json:"country_code"`
	Country     string  `json:"country_name"`
	RegionCode  string  `json:"region_code,omitempty"`
	Region      string  `json:"region_name,omitempty"`
	City        string  `json:"city,omitempty"`
	ZipCode     string  `json:"zip_code,omitempty"`
	TimeZone    string  `json:"time_zone"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	MetroCode   int     `json:"metro_code"`
}

// New returns a Locator using the given HTTP client.
func New(client *internalhttp.Client) (*Locator, error) {
	if client == nil {
		return nil, errors.New("http client is required")
	}
	return &Locator{
		name:     name,
		endpoint: APIEndpoint,
		http:     client,
		nowFn:    time.Now,
	}, nil
}

func (l *Locator) Name() string {
	return l.name
}

// LocateIP implements the ipfallback.Locator interface.
func (l *Locator) LocateIP(ctx context.Context) (locate.Fix, error) {
	result := new(APIResult)
	code, err := l.http.GetWithTimeout(ctx, l.endpoint, result, nil, nil, LookupTimeout)
	if err != nil {
		return locate.Fix{}, fmt.Errorf("%w: failed to get geolocation data from API: %w",
			ipfallback.ErrUnavailable, err)
	}
	if code != http.StatusOK {
		return locate.Fix{}, fmt.Errorf("%w: API returned status %d", ipfallback.ErrUnavailable, code)
	}
	if result.CountryCode == "" && result.Latitude == 0 && result.Longitude == 0 {
		return locate.Fix{}, fmt.Errorf("%w: API could not locate %s", ipfallback.ErrUnavailable, result.IP)
	}

	return locate.Fix{
		Coordinate: geo.Coordinate{
			Lat: geo.Truncate(result.Latitude, geo.TruncPrecision),
			Lon: geo.Truncate(result.Longitude, geo.TruncPrecision),
		},
		AccuracyMeters: ipfallback.AccuracyFor(result.CountryCode, result.RegionCode, result.City, result.ZipCode),
		At:             l.nowFn(),
		Source:         l.name,
	}, nil
}
