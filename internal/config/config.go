// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kkyr/fig"
)

const (
	configEnv        = "DISTRICTLOCATOR"
	appName          = "district-locator"
	DefaultResultTpl = "{{.Name}}, {{.Region}} ({{.Code}})"
	// MaxCandidates is the largest number of candidates a confirmation dialog can show.
	MaxCandidates = 5
)

// Config represents the application's configuration structure.
type Config struct {
	Locale   string     `fig:"locale"`
	LogLevel slog.Level `fig:"loglevel" default:"0"`

	Districts struct {
		// GeoJSON file with the district reference points. The embedded districts are used if empty.
		File string `fig:"file"`
	} `fig:"districts"`

	// A value of 0 in this section uses the default.
	Resolution struct {
		ContainmentRadius  float64 `fig:"containment_radius" default:"2000"`
		AutoAcceptDistance float64 `fig:"auto_accept_distance" default:"2000"`
		AutoAcceptAccuracy float64 `fig:"auto_accept_accuracy" default:"50"`
		// Allowed value: 1 to 5, 0 uses the default
		MaxCandidates int `fig:"max_candidates" default:"5"`
	} `fig:"resolution"`

	Acquisition struct {
		Timeout                time.Duration `fig:"timeout" default:"15s"`
		MaxAge                 time.Duration `fig:"max_age"`
		GPSDHost               string        `fig:"gpsd_host" default:"localhost"`
		GPSDPort               string        `fig:"gpsd_port" default:"2947"`
		IchnaeaEndpoint        string        `fig:"ichnaea_endpoint" default:"https://api.beacondb.net/v1/geolocate"`
		File                   string        `fig:"file"`
		DisableGPSD            bool          `fig:"disable_gpsd"`
		DisableICHNAEA         bool          `fig:"disable_ichnaea"`
		DisableGeolocationFile bool          `fig:"disable_geolocation_file"`
	} `fig:"acquisition"`

	IPFallback struct {
		DisableGeoIP bool   `fig:"disable_geoip"`
		MaxMindDB    string `fig:"maxmind_db"`
		PublicIP     string `fig:"public_ip"`
	} `fig:"ipfallback"`

	Audio struct {
		Disable bool   `fig:"disable"`
		Command string `fig:"command" default:"espeak-ng"`
		Voice   string `fig:"voice" default:"hi"`
	} `fig:"audio"`

	Templates struct {
		Result string `fig:"result"`
	} `fig:"templates"`
}

func NewFromFile(path, file string) (*Config, error) {
	conf := new(Config)
	_, err := os.Stat(filepath.Join(path, file))
	if err != nil {
		return conf, fmt.Errorf("failed to read Config: %w", err)
	}
	if err = fig.Load(conf, fig.Dirs(path), fig.File(file), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func New() (*Config, error) {
	conf := new(Config)
	if err := fig.Load(conf, fig.AllowNoFile(), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func (c *Config) Validate() error {
	if c.Locale == "" {
		c.Locale = getLocale()
	}
	if c.Resolution.ContainmentRadius <= 0 {
		return fmt.Errorf("invalid containment radius: %f", c.Resolution.ContainmentRadius)
	}
	if c.Resolution.AutoAcceptDistance <= 0 {
		return fmt.Errorf("invalid auto accept distance: %f", c.Resolution.AutoAcceptDistance)
	}
	if c.Resolution.AutoAcceptAccuracy <= 0 {
		return fmt.Errorf("invalid auto accept accuracy: %f", c.Resolution.AutoAcceptAccuracy)
	}
	if c.Resolution.MaxCandidates < 1 || c.Resolution.MaxCandidates > MaxCandidates {
		return fmt.Errorf("invalid max candidates: %d", c.Resolution.MaxCandidates)
	}
	if c.Acquisition.Timeout <= 0 {
		return fmt.Errorf("invalid acquisition timeout: %s", c.Acquisition.Timeout)
	}
	if c.Acquisition.MaxAge < 0 {
		return fmt.Errorf("invalid maximum fix age: %s", c.Acquisition.MaxAge)
	}
	if c.Acquisition.File == "" {
		home, _ := os.UserHomeDir()
		c.Acquisition.File = filepath.Join(home, ".config", appName, "geolocation")
	}
	if !c.Audio.Disable && c.Audio.Command == "" {
		return fmt.Errorf("audio command must not be empty")
	}
	if c.Templates.Result == "" {
		c.Templates.Result = DefaultResultTpl
	}

	return nil
}

func getLocale() string {
	locale := os.Getenv("LC_MESSAGES")
	if idx := strings.Index(locale, "."); idx != -1 {
		lang := locale[:idx]
		return strings.ReplaceAll(lang, "_", "-")
	}
	return locale
}
