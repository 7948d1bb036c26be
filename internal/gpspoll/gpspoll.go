// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package gpspoll implements a minimal gpsd client that reads a single TPV report.
package gpspoll

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"time"
)

const (
	fallbackAccuracy3DFix = 10  // ~10 m typical consumer GPS in open sky
	fallbackAccuracy2DFix = 25  // worse than 3D, but still accurate enough
	fallbackAccuracyNoFix = 1e6 // effectively unusable
	watchTimeout          = time.Second * 2
	watchCommand          = `?WATCH={"enable":true,"json":true}`
)

var (
	// ErrDial is returned if gpsd can not be reached.
	ErrDial = errors.New("failed to connect to gpsd")
	// ErrNoReport is returned if gpsd closed the stream without a TPV report.
	ErrNoReport = errors.New("no TPV report received from gpsd")
)

// Client is a minimal gpsd client
type Client struct {
	Addr string
}

// Fix represents a single TPV report from gpsd.
type Fix struct {
	Lat      float64
	Lon      float64
	Alt      float64
	Accuracy float64
	Mode     int
	Device   string
	// Time is the time of the fix as reported by the receiver. It is zero if the receiver did
	// not report one.
	Time time.Time
}

// tpvReport matches the subset of gpsd's TPV report we care about.
type tpvReport struct {
	Class  string  `json:"class"`
	Device string  `json:"device"`
	Time   string  `json:"time"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Alt    float64 `json:"alt"`
	Mode   int     `json:"mode"`
	Epx    float64 `json:"epx"`
	Epy    float64 `json:"epy"`
	Eph    float64 `json:"eph"`
}

// New constructs a new Client for the given host and port.
func New(host, port string) *Client {
	return &Client{
		Addr: net.JoinHostPort(host, port),
	}
}

// Poll connects to gpsd, enables watch mode and returns the first TPV report. The connection
// is closed before returning.
func (c *Client) Poll(ctx context.Context) (Fix, error) {
	var zero Fix

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, fmt.Errorf("%w: %w", ErrDial, err)
	}
	defer func() {
		_ = conn.Close()
	}()

	// Without a deadline on ctx we still must not block forever on a silent gpsd.
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(watchTimeout))
	}

	if _, err = fmt.Fprint(conn, watchCommand+"\n"); err != nil {
		return zero, fmt.Errorf("gpspoll: write WATCH: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		if err = ctx.Err(); err != nil {
			return zero, err
		}

		var report tpvReport
		if err = json.Unmarshal(scanner.Bytes(), &report); err != nil {
			continue
		}
		if report.Class != "TPV" {
			continue
		}
		return report.fix(), nil
	}

	if err = scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return zero, fmt.Errorf("gpspoll: waiting for TPV report: %w", context.DeadlineExceeded)
		}
		return zero, fmt.Errorf("failed to scan gpsd response: %w", err)
	}

	return zero, ErrNoReport
}

// Has2DFix reports whether the fix has at least a 2D fix.
func (f Fix) Has2DFix() bool {
	return f.Mode >= 2
}

func (r tpvReport) fix() Fix {
	fix := Fix{
		Lat:      r.Lat,
		Lon:      r.Lon,
		Alt:      r.Alt,
		Accuracy: r.horizontalAccuracy(),
		Mode:     r.Mode,
		Device:   r.Device,
	}
	if r.Time != "" {
		if ts, err := time.Parse(time.RFC3339Nano, r.Time); err == nil {
			fix.Time = ts
		}
	}
	return fix
}

func (r tpvReport) horizontalAccuracy() float64 {
	switch {
	case r.Eph > 0:
		return r.Eph
	case r.Epx > 0 && r.Epy > 0:
		return math.Hypot(r.Epx, r.Epy)
	}
	switch r.Mode {
	case 3:
		return fallbackAccuracy3DFix
	case 2:
		return fallbackAccuracy2DFix
	default:
		return fallbackAccuracyNoFix
	}
}
