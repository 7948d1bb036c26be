// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package ichnaea provides a WiFi location capability. Nearby access points are scanned with
// nl80211 and resolved by an Ichnaea compatible geolocation API such as beacondb.
package ichnaea

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mdlayher/wifi"

	"github.com/wneessen/district-locator/internal/geo"
	internalhttp "github.com/wneessen/district-locator/internal/http"
	"github.com/wneessen/district-locator/internal/locate"
)

const (
	DefaultEndpoint = "https://api.beacondb.net/v1/geolocate"
	lookupTimeout   = time.Second * 5
	name            = "ichnaea"
)

var ErrNoAccessPoints = errors.New("no usable WiFi access points in range")

// Capability locates the device by the WiFi access points in range.
type Capability struct {
	name     string
	endpoint string
	http     *internalhttp.Client
	scanFn   func(ctx context.Context) ([]WirelessNetwork, error)
	nowFn    func() time.Time
}

// APIResult is the answer of the geolocate API.
type APIResult struct {
	Location struct {
		Latitude  float64 `json:"lat"`
		Longitude float64 `json:"lng"`
	} `json:"location"`
	Accuracy float64 `json:"accuracy"`
}

// WirelessNetwork is a single access point as submitted to the geolocate API.
type WirelessNetwork struct {
	LastSeen       int64  `json:"age"`
	MACAddress     string `json:"macAddress"`
	SignalStrength int32  `json:"signalStrength"`
}

type request struct {
	ConsiderIP   bool              `json:"considerIp"`
	Accesspoints []WirelessNetwork `json:"wifiAccessPoints"`
}

// New returns a Capability that posts to endpoint. An empty endpoint falls back to beacondb.
func New(client *internalhttp.Client, endpoint string) (*Capability, error) {
	if client == nil {
		return nil, fmt.Errorf("http client is required")
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	capability := &Capability{
		name:     name,
		endpoint: endpoint,
		http:     client,
		nowFn:    time.Now,
	}
	capability.scanFn = capability.wifiAccessPoints
	return capability, nil
}

func (c *Capability) Name() string {
	return c.name
}

// RequestFix implements the locate.Capability interface. The API is asked not to consider
// the client IP, since an IP based guess is not a WiFi fix.
func (c *Capability) RequestFix(ctx context.Context, _ locate.Options) (locate.Fix, error) {
	aps, err := c.scanFn(ctx)
	if err != nil {
		return locate.Fix{}, err
	}
	if len(aps) == 0 {
		return locate.Fix{}, fmt.Errorf("%w: %w", locate.ErrPositionUnavailable, ErrNoAccessPoints)
	}

	result := new(APIResult)
	code, err := c.http.PostJSON(ctx, c.endpoint, result, request{ConsiderIP: false, Accesspoints: aps},
		lookupTimeout)
	switch {
	case err != nil && ctx.Err() != nil:
		return locate.Fix{}, ctx.Err()
	case err != nil && errors.Is(err, context.DeadlineExceeded):
		return locate.Fix{}, fmt.Errorf("%w: %w", locate.ErrTimeout, err)
	case code == http.StatusNotFound:
		return locate.Fix{}, fmt.Errorf("%w: API has no location for %d access points",
			locate.ErrPositionUnavailable, len(aps))
	case err != nil:
		return locate.Fix{}, fmt.Errorf("%w: failed to get geolocation data from API: %w",
			locate.ErrPositionUnavailable, err)
	case code != http.StatusOK:
		return locate.Fix{}, fmt.Errorf("%w: API returned status %d", locate.ErrPositionUnavailable, code)
	}

	coord := geo.Coordinate{
		Lat: geo.Truncate(result.Location.Latitude, geo.TruncPrecision),
		Lon: geo.Truncate(result.Location.Longitude, geo.TruncPrecision),
	}
	if result.Accuracy <= 0 || (coord.Lat == 0 && coord.Lon == 0) {
		return locate.Fix{}, fmt.Errorf("%w: API returned an empty location", locate.ErrPositionUnavailable)
	}
	return locate.Fix{
		Coordinate:     coord,
		AccuracyMeters: geo.Truncate(result.Accuracy, geo.TruncPrecision),
		At:             c.nowFn(),
		Source:         c.name,
	}, nil
}

// wifiAccessPoints lists the access points seen by all station interfaces. Networks that opted
// out of mapping with the _nomap suffix and hidden networks are skipped.
func (c *Capability) wifiAccessPoints(ctx context.Context) ([]WirelessNetwork, error) {
	wlan, err := wifi.New()
	if err != nil {
		return nil, wifiError("failed to create wifi client", err)
	}
	defer func() {
		_ = wlan.Close()
	}()

	ifaces, err := wlan.Interfaces()
	if err != nil {
		return nil, wifiError("failed to list interfaces", err)
	}

	var list []WirelessNetwork
	stations := 0
	for _, iface := range ifaces {
		if iface.Type != wifi.InterfaceTypeStation {
			continue
		}
		stations++
		if err = ctx.Err(); err != nil {
			return nil, err
		}

		aps, err := wlan.AccessPoints(iface)
		if err != nil {
			if errors.Is(err, os.ErrPermission) {
				return nil, fmt.Errorf("%w: %w", locate.ErrPermissionDenied, err)
			}
			continue
		}
		for _, ap := range aps {
			if ap.SSID == "" || ap.SSID[0] == '\x00' || strings.HasSuffix(ap.SSID, "_nomap") {
				continue
			}
			list = append(list, WirelessNetwork{
				SignalStrength: ap.Signal / 100,
				MACAddress:     ap.BSSID.String(),
				LastSeen:       ap.LastSeen.Milliseconds(),
			})
		}
	}
	if stations == 0 {
		return nil, fmt.Errorf("%w: no WiFi station interface found", locate.ErrUnsupported)
	}

	return list, nil
}

func wifiError(msg string, err error) error {
	if errors.Is(err, os.ErrPermission) {
		return fmt.Errorf("%w: %s: %w", locate.ErrPermissionDenied, msg, err)
	}
	return fmt.Errorf("%w: %s: %w", locate.ErrUnsupported, msg, err)
}
