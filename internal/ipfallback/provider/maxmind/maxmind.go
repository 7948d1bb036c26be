// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package maxmind geolocates the public IP address with a local GeoLite2 City database.
package maxmind

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/oschwald/geoip2-golang"

	"github.com/wneessen/district-locator/internal/geo"
	internalhttp "github.com/wneessen/district-locator/internal/http"
	"github.com/wneessen/district-locator/internal/ipfallback"
	"github.com/wneessen/district-locator/internal/locate"
)

const (
	// PublicIPEndpoint answers with the public IP address of the request as plain text.
	PublicIPEndpoint = "https://api.ipify.org"
	lookupTimeout    = time.Second * 5
	name             = "maxmind"
)

var ErrInvalidAddress = errors.New("invalid public IP address")

// Locator looks up the public IP address in a GeoLite2 City database. The address is either
// fixed by configuration or discovered through PublicIPEndpoint.
type Locator struct {
	name     string
	db       *geoip2.Reader
	http     *internalhttp.Client
	publicIP net.IP
	endpoint string
	lookupFn func(net.IP) (*geoip2.City, error)
	nowFn    func() time.Time
}

// New opens the database at path. publicIP may be empty, in which case client is used to
// discover the address on every lookup.
func New(path, publicIP string, client *internalhttp.Client) (*Locator, error) {
	var addr net.IP
	if publicIP != "" {
		if addr = net.ParseIP(publicIP); addr == nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, publicIP)
		}
	}
	if addr == nil && client == nil {
		return nil, errors.New("http client is required without a configured public IP")
	}

	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open GeoLite2 database %q: %w", path, err)
	}
	locator := &Locator{
		name:     name,
		db:       db,
		http:     client,
		publicIP: addr,
		endpoint: PublicIPEndpoint,
		nowFn:    time.Now,
	}
	locator.lookupFn = db.City
	return locator, nil
}

func (l *Locator) Name() string {
	return l.name
}

// Close closes the database.
func (l *Locator) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

// LocateIP implements the ipfallback.Locator interface.
func (l *Locator) LocateIP(ctx context.Context) (locate.Fix, error) {
	addr, err := l.address(ctx)
	if err != nil {
		return locate.Fix{}, fmt.Errorf("%w: %w", ipfallback.ErrUnavailable, err)
	}

	record, err := l.lookupFn(addr)
	if err != nil {
		return locate.Fix{}, fmt.Errorf("%w: failed to look up %s: %w", ipfallback.ErrUnavailable, addr, err)
	}
	if record == nil || (record.Location.Latitude == 0 && record.Location.Longitude == 0) {
		return locate.Fix{}, fmt.Errorf("%w: %s not found in database", ipfallback.ErrUnavailable, addr)
	}

	return locate.Fix{
		Coordinate: geo.Coordinate{
			Lat: geo.Truncate(record.Location.Latitude, geo.TruncPrecision),
			Lon: geo.Truncate(record.Location.Longitude, geo.TruncPrecision),
		},
		AccuracyMeters: accuracy(record),
		At:             l.nowFn(),
		Source:         l.name,
	}, nil
}

func (l *Locator) address(ctx context.Context) (net.IP, error) {
	if l.publicIP != nil {
		return l.publicIP, nil
	}
	if l.http == nil {
		return nil, errors.New("no public IP configured")
	}

	code, body, err := l.http.GetText(ctx, l.endpoint, lookupTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to discover public IP: %w", err)
	}
	if code != http.StatusOK {
		return nil, fmt.Errorf("failed to discover public IP: status %d", code)
	}
	addr := net.ParseIP(strings.TrimSpace(body))
	if addr == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, strings.TrimSpace(body))
	}
	return addr, nil
}

// accuracy prefers the accuracy radius of the record, which GeoLite2 reports in kilometers.
func accuracy(record *geoip2.City) float64 {
	if record.Location.AccuracyRadius > 0 {
		return float64(record.Location.AccuracyRadius) * 1000
	}
	region := ""
	if len(record.Subdivisions) > 0 {
		region = record.Subdivisions[0].IsoCode
	}
	return ipfallback.AccuracyFor(record.Country.IsoCode, region, record.City.Names["en"], record.Postal.Code)
}
