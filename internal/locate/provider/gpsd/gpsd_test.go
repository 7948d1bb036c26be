// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package gpsd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wneessen/district-locator/internal/gpspoll"
	"github.com/wneessen/district-locator/internal/locate"
)

func TestNew(t *testing.T) {
	capability := New("", "")
	if capability == nil {
		t.Fatal("expected capability to be non-nil")
	}
	if capability.Name() != "gpsd" {
		t.Errorf("expected name to be gpsd, got %s", capability.Name())
	}
	if capability.client.Addr != "localhost:2947" {
		t.Errorf("expected default address, got %s", capability.client.Addr)
	}
}

func TestCapability_RequestFix(t *testing.T) {
	now := time.Date(2025, 11, 24, 10, 44, 41, 0, time.UTC)
	newCapability := func(fix gpspoll.Fix, err error) *Capability {
		capability := New("localhost", "2947")
		capability.pollFn = func(context.Context) (gpspoll.Fix, error) { return fix, err }
		capability.nowFn = func() time.Time { return now }
		return capability
	}

	t.Run("3D fix is reported", func(t *testing.T) {
		at := now.Add(-time.Second)
		capability := newCapability(gpspoll.Fix{Lat: 26.846712, Lon: 80.946199, Accuracy: 8.5, Mode: 3, Time: at}, nil)
		fix, err := capability.RequestFix(t.Context(), locate.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to request fix: %s", err)
		}
		if fix.Coordinate.Lat != 26.8467 || fix.Coordinate.Lon != 80.9461 {
			t.Errorf("expected truncated coordinate, got %s", fix.Coordinate)
		}
		if fix.AccuracyMeters != 8.5 {
			t.Errorf("expected accuracy to be 8.5, got %f", fix.AccuracyMeters)
		}
		if !fix.At.Equal(at) {
			t.Errorf("expected fix time to be %s, got %s", at, fix.At)
		}
		if fix.Source != "gpsd" {
			t.Errorf("expected source to be gpsd, got %s", fix.Source)
		}
	})
	t.Run("low accuracy request skips the receiver", func(t *testing.T) {
		polled := false
		capability := New("localhost", "2947")
		capability.pollFn = func(context.Context) (gpspoll.Fix, error) {
			polled = true
			return gpspoll.Fix{Lat: 26.8, Lon: 80.9, Accuracy: 5, Mode: 3}, nil
		}
		opts := locate.DefaultOptions()
		opts.HighAccuracy = false
		if _, err := capability.RequestFix(t.Context(), opts); !errors.Is(err, locate.ErrUnsupported) {
			t.Errorf("expected error to be %s, got %v", locate.ErrUnsupported, err)
		}
		if polled {
			t.Error("expected gpsd not to be polled")
		}
	})
	t.Run("missing receiver time falls back to now", func(t *testing.T) {
		capability := newCapability(gpspoll.Fix{Lat: 26.8, Lon: 80.9, Accuracy: 25, Mode: 2}, nil)
		fix, err := capability.RequestFix(t.Context(), locate.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to request fix: %s", err)
		}
		if !fix.At.Equal(now) {
			t.Errorf("expected fix time to be %s, got %s", now, fix.At)
		}
	})
	t.Run("errors are mapped", func(t *testing.T) {
		tests := []struct {
			name string
			fix  gpspoll.Fix
			err  error
			want error
		}{
			{"no daemon", gpspoll.Fix{}, gpspoll.ErrDial, locate.ErrUnsupported},
			{"deadline", gpspoll.Fix{}, context.DeadlineExceeded, locate.ErrTimeout},
			{"canceled", gpspoll.Fix{}, context.Canceled, context.Canceled},
			{"no report", gpspoll.Fix{}, gpspoll.ErrNoReport, locate.ErrPositionUnavailable},
			{"no 2D fix", gpspoll.Fix{Lat: 26.8, Lon: 80.9, Mode: 1}, nil, locate.ErrPositionUnavailable},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				capability := newCapability(tc.fix, tc.err)
				_, err := capability.RequestFix(t.Context(), locate.DefaultOptions())
				if !errors.Is(err, tc.want) {
					t.Errorf("expected error %q, got %v", tc.want, err)
				}
			})
		}
	})
}
