// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/wneessen/district-locator/internal/config"
	"github.com/wneessen/district-locator/internal/i18n"
	"github.com/wneessen/district-locator/internal/logger"
	"github.com/wneessen/district-locator/internal/orchestrator"
)

func TestNew(t *testing.T) {
	t.Run("new service succeeds", func(t *testing.T) {
		conf := testConfig(t, "")
		if _, err := testService(t, conf, strings.NewReader(""), io.Discard, io.Discard); err != nil {
			t.Fatalf("failed to create service: %s", err)
		}
	})
	t.Run("new service with default capabilities succeeds", func(t *testing.T) {
		conf, err := config.New()
		if err != nil {
			t.Fatalf("failed to create config: %s", err)
		}
		conf.Audio.Disable = true
		lang, err := i18n.New("en")
		if err != nil {
			t.Fatalf("failed to create i18n provider: %s", err)
		}
		serv, err := New(conf, logger.NewLogger(slog.LevelError, io.Discard), lang)
		if err != nil {
			t.Fatalf("failed to create service: %s", err)
		}
		if serv.index.Len() == 0 {
			t.Error("expected embedded district index to be loaded")
		}
	})
	t.Run("all capabilities disabled fails", func(t *testing.T) {
		conf := testConfig(t, "")
		conf.Acquisition.DisableGeolocationFile = true
		_, err := testService(t, conf, strings.NewReader(""), io.Discard, io.Discard)
		if !errors.Is(err, ErrNoCapabilities) {
			t.Errorf("expected error to be %s, got %v", ErrNoCapabilities, err)
		}
	})
	t.Run("missing district file fails", func(t *testing.T) {
		conf := testConfig(t, "")
		conf.Districts.File = filepath.Join(t.TempDir(), "missing.geojson")
		_, err := testService(t, conf, strings.NewReader(""), io.Discard, io.Discard)
		if err == nil {
			t.Fatal("expected service creation to fail")
		}
		wantErr := "failed to load district index"
		if !strings.Contains(err.Error(), wantErr) {
			t.Errorf("expected error to contain %q, got %q", wantErr, err)
		}
	})
	t.Run("custom district file is loaded", func(t *testing.T) {
		conf := testConfig(t, "")
		conf.Districts.File = "../../testdata/districts.geojson"
		if _, err := testService(t, conf, strings.NewReader(""), io.Discard, io.Discard); err != nil {
			t.Fatalf("failed to create service: %s", err)
		}
	})
	t.Run("invalid maxmind database fails", func(t *testing.T) {
		conf := testConfig(t, "")
		conf.IPFallback.MaxMindDB = filepath.Join(t.TempDir(), "missing.mmdb")
		_, err := testService(t, conf, strings.NewReader(""), io.Discard, io.Discard)
		if err == nil {
			t.Fatal("expected service creation to fail")
		}
		wantErr := "failed to create MaxMind IP locator"
		if !strings.Contains(err.Error(), wantErr) {
			t.Errorf("expected error to contain %q, got %q", wantErr, err)
		}
	})
	t.Run("invalid result template fails", func(t *testing.T) {
		conf := testConfig(t, "")
		conf.Templates.Result = "{{invalid"
		if _, err := testService(t, conf, strings.NewReader(""), io.Discard, io.Discard); err == nil {
			t.Error("expected service creation to fail")
		}
	})
}

func TestService_Run(t *testing.T) {
	methodLabels := map[string]string{"gps": "GPS", "wifi": "WiFi", "ip": "IP address", "manual": "manual selection"}
	tests := []struct {
		name          string
		geolocation   string
		input         string
		wantID        int
		wantMethod    string
		wantConfirmed bool
		wantDialog    string
	}{
		{
			"precise position inside a district is accepted",
			"26.8467,80.9462,10",
			"y\n",
			1, "gps", false,
			"Your district: लखनऊ (Lucknow), Uttar Pradesh (UP_LKO)",
		},
		{
			"imprecise position is confirmed by the user",
			"26.7,80.7",
			"y\n2\n",
			3, "wifi", true,
			"Is this your district?",
		},
		{
			"declined permission continues manually",
			"26.8467,80.9462,10",
			"n\npatna\n1\n",
			4, "manual", false,
			"Search for your district",
		},
		{
			"rejected candidates continue manually",
			"26.7,80.7",
			"y\n0\njaipur\n1\n",
			7, "manual", true,
			"None of these",
		},
		{
			"unavailable position without IP fallback continues manually",
			"",
			"y\nbihar\n2\n",
			5, "manual", false,
			"Approximate location failed. Please choose your district manually.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := testConfig(t, tt.geolocation)
			dialogs := bytes.NewBuffer(nil)
			output := bytes.NewBuffer(nil)
			serv, err := testService(t, conf, strings.NewReader(tt.input), dialogs, output)
			if err != nil {
				t.Fatalf("failed to create service: %s", err)
			}
			if err = serv.Run(t.Context()); err != nil {
				t.Fatalf("failed to run service: %s", err)
			}

			var result Output
			if err = json.Unmarshal(output.Bytes(), &result); err != nil {
				t.Fatalf("failed to decode output %q: %s", output.String(), err)
			}
			if result.DistrictID != tt.wantID {
				t.Errorf("expected district %d, got %d", tt.wantID, result.DistrictID)
			}
			if result.Method != tt.wantMethod {
				t.Errorf("expected method %q, got %q", tt.wantMethod, result.Method)
			}
			if tt.wantMethod != "manual" && result.Confirmed != tt.wantConfirmed {
				t.Errorf("expected confirmed to be %t, got %t", tt.wantConfirmed, result.Confirmed)
			}
			if result.Attempt == "" {
				t.Error("expected attempt id to be set")
			}
			if !strings.Contains(dialogs.String(), tt.wantDialog) {
				t.Errorf("expected dialog output to contain %q, got %q", tt.wantDialog, dialogs.String())
			}
			wantVia := "Detected via " + methodLabels[tt.wantMethod]
			if !strings.Contains(dialogs.String(), wantVia) {
				t.Errorf("expected dialog output to contain %q, got %q", wantVia, dialogs.String())
			}
		})
	}
	t.Run("dismissed permission dialog abandons the attempt", func(t *testing.T) {
		conf := testConfig(t, "26.8467,80.9462,10")
		output := bytes.NewBuffer(nil)
		serv, err := testService(t, conf, strings.NewReader("q\n"), io.Discard, output)
		if err != nil {
			t.Fatalf("failed to create service: %s", err)
		}
		err = serv.Run(t.Context())
		if !errors.Is(err, orchestrator.ErrAbandoned) {
			t.Errorf("expected error to be %s, got %v", orchestrator.ErrAbandoned, err)
		}
		if output.Len() != 0 {
			t.Errorf("expected no output, got %q", output.String())
		}
	})
	t.Run("dismissed manual selection fails", func(t *testing.T) {
		conf := testConfig(t, "")
		serv, err := testService(t, conf, strings.NewReader("n\nq\n"), io.Discard, io.Discard)
		if err != nil {
			t.Fatalf("failed to create service: %s", err)
		}
		err = serv.Run(t.Context())
		if err == nil {
			t.Fatal("expected run to fail")
		}
		wantErr := "manual district selection failed"
		if !strings.Contains(err.Error(), wantErr) {
			t.Errorf("expected error to contain %q, got %q", wantErr, err)
		}
	})
	t.Run("failing output writer fails", func(t *testing.T) {
		conf := testConfig(t, "26.8467,80.9462,10")
		serv, err := testService(t, conf, strings.NewReader("y\n"), io.Discard, failWriter{})
		if err != nil {
			t.Fatalf("failed to create service: %s", err)
		}
		err = serv.Run(t.Context())
		if err == nil {
			t.Fatal("expected run to fail")
		}
		wantErr := "failed to encode result"
		if !strings.Contains(err.Error(), wantErr) {
			t.Errorf("expected error to contain %q, got %q", wantErr, err)
		}
	})
	t.Run("cancelled context stops the attempt", func(t *testing.T) {
		conf := testConfig(t, "26.8467,80.9462,10")
		reader, writer := io.Pipe()
		defer func() { _ = writer.Close() }()
		serv, err := testService(t, conf, reader, io.Discard, io.Discard)
		if err != nil {
			t.Fatalf("failed to create service: %s", err)
		}
		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()
		go func() {
			for serv.orchestrator.State() != orchestrator.AwaitingPermission {
				time.Sleep(time.Millisecond * 5)
			}
			cancel()
		}()
		if err = serv.Run(ctx); err == nil {
			t.Error("expected run to fail")
		}
		if serv.orchestrator.State() != orchestrator.Idle {
			t.Errorf("expected orchestrator to be idle, got %s", serv.orchestrator.State())
		}
	})
}

func TestService_HandleAbortSignal(t *testing.T) {
	t.Run("USR1 signal aborts the attempt in flight", func(t *testing.T) {
		conf := testConfig(t, "26.8467,80.9462,10")
		reader, writer := io.Pipe()
		defer func() { _ = writer.Close() }()
		serv, err := testService(t, conf, reader, io.Discard, io.Discard)
		if err != nil {
			t.Fatalf("failed to create service: %s", err)
		}
		src := &fakeSignalSource{}
		serv.signals = src

		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()
		serv.WatchAbortSignal(ctx, syscall.SIGUSR1)

		errChan := make(chan error, 1)
		go func() { errChan <- serv.Run(ctx) }()
		for serv.orchestrator.State() != orchestrator.AwaitingPermission {
			time.Sleep(time.Millisecond * 5)
		}
		src.send(syscall.SIGUSR1)

		select {
		case err = <-errChan:
			if !errors.Is(err, orchestrator.ErrAborted) {
				t.Errorf("expected error to be %s, got %v", orchestrator.ErrAborted, err)
			}
		case <-time.After(time.Second * 2):
			t.Fatal("expected run to return after abort signal")
		}
		cancel()
		src.waitStopped(t)
	})
	t.Run("signal without attempt is ignored", func(t *testing.T) {
		conf := testConfig(t, "")
		buf := &syncBuffer{buf: bytes.NewBuffer(nil)}
		serv, err := testService(t, conf, strings.NewReader(""), io.Discard, io.Discard)
		if err != nil {
			t.Fatalf("failed to create service: %s", err)
		}
		serv.logger = logger.NewLogger(slog.LevelDebug, buf)

		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()
		sigChan := make(chan os.Signal, 1)
		go serv.HandleAbortSignal(ctx, sigChan)
		sigChan <- syscall.SIGUSR1

		wantLog := `msg="received abort signal" signal="user defined signal 1" aborted=false`
		deadline := time.Now().Add(time.Second)
		for !strings.Contains(buf.String(), wantLog) && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond * 10)
		}
		if !strings.Contains(buf.String(), wantLog) {
			t.Errorf("expected log to contain %q, got %q", wantLog, buf.String())
		}
	})
}

func testConfig(t *testing.T, geolocation string) *config.Config {
	t.Helper()
	conf, err := config.New()
	if err != nil {
		t.Fatalf("failed to create config: %s", err)
	}
	conf.Acquisition.DisableGPSD = true
	conf.Acquisition.DisableICHNAEA = true
	conf.Acquisition.File = filepath.Join(t.TempDir(), "geolocation")
	conf.IPFallback.DisableGeoIP = true
	conf.Audio.Disable = true
	if geolocation != "" {
		if err = os.WriteFile(conf.Acquisition.File, []byte(geolocation+"\n"), 0o600); err != nil {
			t.Fatalf("failed to write geolocation file: %s", err)
		}
	}
	return conf
}

func testService(t *testing.T, conf *config.Config, in io.Reader, dialogs, output io.Writer) (*Service, error) {
	t.Helper()
	lang, err := i18n.New("en")
	if err != nil {
		return nil, err
	}
	return newService(conf, logger.NewLogger(slog.LevelError, io.Discard), lang, in, dialogs, output)
}

type (
	failWriter       struct{}
	fakeSignalSource struct {
		mu      sync.Mutex
		c       chan<- os.Signal
		stopped chan struct{}
	}
	syncBuffer struct {
		mu  sync.Mutex
		buf *bytes.Buffer
	}
)

func (f failWriter) Write([]byte) (int, error) { return 0, errors.New("failed to write") }

func (f *fakeSignalSource) Notify(c chan<- os.Signal, _ ...os.Signal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.c = c
	f.stopped = make(chan struct{})
}

func (f *fakeSignalSource) Stop(chan<- os.Signal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	close(f.stopped)
}

func (f *fakeSignalSource) send(sig os.Signal) {
	f.mu.Lock()
	c := f.c
	f.mu.Unlock()
	c <- sig
}

func (f *fakeSignalSource) waitStopped(t *testing.T) {
	t.Helper()
	f.mu.Lock()
	stopped := f.stopped
	f.mu.Unlock()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Error("expected signal source to be stopped")
	}
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}
