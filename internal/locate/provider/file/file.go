// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package file provides a location capability that reads a fixed position from a local file.
// It serves stationary kiosk devices without a positioning receiver.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wneessen/district-locator/internal/geo"
	"github.com/wneessen/district-locator/internal/locate"
)

const name = "geolocation_file"

// DefaultAccuracy is used for lines that carry no accuracy column.
const DefaultAccuracy = geo.AccuracyZip

var ErrNoCoordinates = errors.New("no valid coordinates found in geolocation file")

// Capability reads "lat,lon[,accuracy]" from the first usable line of a file. Lines starting
// with # are comments.
type Capability struct {
	name   string
	path   string
	readFn func() ([]byte, error)
	nowFn  func() time.Time
}

// New returns a Capability for the file at path.
func New(path string) *Capability {
	capability := &Capability{
		name:  name,
		path:  path,
		nowFn: time.Now,
	}
	capability.readFn = func() ([]byte, error) { return os.ReadFile(capability.path) }
	return capability
}

func (c *Capability) Name() string {
	return c.name
}

// RequestFix implements the locate.Capability interface. A missing file means the device has
// no fixed position configured and is reported as unsupported.
func (c *Capability) RequestFix(ctx context.Context, _ locate.Options) (locate.Fix, error) {
	if err := ctx.Err(); err != nil {
		return locate.Fix{}, err
	}
	if c.path == "" {
		return locate.Fix{}, locate.ErrUnsupported
	}

	data, err := c.readFn()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return locate.Fix{}, fmt.Errorf("%w: %w", locate.ErrUnsupported, err)
		}
		return locate.Fix{}, fmt.Errorf("%w: failed to read geolocation file %q: %w",
			locate.ErrPositionUnavailable, c.path, err)
	}

	coord, acc, err := parse(data)
	if err != nil {
		return locate.Fix{}, fmt.Errorf("%w: %q: %w", locate.ErrPositionUnavailable, c.path, err)
	}
	return locate.Fix{
		Coordinate:     coord,
		AccuracyMeters: acc,
		At:             c.nowFn(),
		Source:         c.name,
	}, nil
}

func parse(data []byte) (geo.Coordinate, float64, error) {
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != 2 && len(fields) != 3 {
			continue
		}
		values := make([]float64, len(fields))
		valid := true
		for i, field := range fields {
			value, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				valid = false
				break
			}
			values[i] = value
		}
		if !valid {
			continue
		}

		coord := geo.Coordinate{Lat: values[0], Lon: values[1]}
		if !coord.Valid() {
			continue
		}
		acc := float64(DefaultAccuracy)
		if len(values) == 3 {
			if values[2] < 0 {
				continue
			}
			acc = values[2]
		}
		return coord, acc, nil
	}
	return geo.Coordinate{}, 0, ErrNoCoordinates
}
