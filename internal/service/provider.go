// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"errors"
	"fmt"
	"io"

	"github.com/wneessen/district-locator/internal/district"
	"github.com/wneessen/district-locator/internal/http"
	"github.com/wneessen/district-locator/internal/ipfallback"
	"github.com/wneessen/district-locator/internal/ipfallback/provider/geoip"
	"github.com/wneessen/district-locator/internal/ipfallback/provider/maxmind"
	"github.com/wneessen/district-locator/internal/locate"
	"github.com/wneessen/district-locator/internal/locate/provider/file"
	"github.com/wneessen/district-locator/internal/locate/provider/gpsd"
	"github.com/wneessen/district-locator/internal/locate/provider/ichnaea"
	"github.com/wneessen/district-locator/internal/logger"
)

var ErrNoCapabilities = errors.New("no location capabilities enabled")

// loadIndex returns the configured district index, or the embedded one.
func (s *Service) loadIndex() (*district.Index, error) {
	if s.config.Districts.File != "" {
		return district.LoadFile(s.config.Districts.File)
	}
	return district.Default()
}

// selectCapabilities returns the enabled location capabilities, most precise first.
func (s *Service) selectCapabilities(httpClient *http.Client) ([]locate.Capability, error) {
	var capabilities []locate.Capability

	if !s.config.Acquisition.DisableGPSD {
		capabilities = append(capabilities, gpsd.New(s.config.Acquisition.GPSDHost, s.config.Acquisition.GPSDPort))
	}

	if !s.config.Acquisition.DisableICHNAEA {
		wifi, err := ichnaea.New(httpClient, s.config.Acquisition.IchnaeaEndpoint)
		if err != nil {
			s.logger.Error("failed to create ICHNAEA capability", logger.Err(err))
		} else {
			capabilities = append(capabilities, wifi)
		}
	}

	if !s.config.Acquisition.DisableGeolocationFile {
		capabilities = append(capabilities, file.New(s.config.Acquisition.File))
	}

	if len(capabilities) == 0 {
		return nil, ErrNoCapabilities
	}
	return capabilities, nil
}

// selectIPLocators returns the enabled IP locators. A local GeoLite2 database is preferred
// over the online service. The returned closers must be closed on shutdown.
func (s *Service) selectIPLocators(httpClient *http.Client) ([]ipfallback.Locator, []io.Closer, error) {
	var locators []ipfallback.Locator
	var closers []io.Closer

	if s.config.IPFallback.MaxMindDB != "" {
		mm, err := maxmind.New(s.config.IPFallback.MaxMindDB, s.config.IPFallback.PublicIP, httpClient)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create MaxMind IP locator: %w", err)
		}
		locators = append(locators, mm)
		closers = append(closers, mm)
	}

	if !s.config.IPFallback.DisableGeoIP {
		gip, err := geoip.New(httpClient)
		if err != nil {
			closeAll(closers)
			return nil, nil, fmt.Errorf("failed to create GeoIP locator: %w", err)
		}
		locators = append(locators, gip)
	}

	return locators, closers, nil
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		_ = c.Close()
	}
}
