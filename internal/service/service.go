// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/vorlif/spreak"

	"github.com/wneessen/district-locator/internal/audio"
	"github.com/wneessen/district-locator/internal/config"
	"github.com/wneessen/district-locator/internal/console"
	"github.com/wneessen/district-locator/internal/district"
	"github.com/wneessen/district-locator/internal/http"
	"github.com/wneessen/district-locator/internal/ipfallback"
	"github.com/wneessen/district-locator/internal/locate"
	"github.com/wneessen/district-locator/internal/logger"
	"github.com/wneessen/district-locator/internal/orchestrator"
	"github.com/wneessen/district-locator/internal/presenter"
	"github.com/wneessen/district-locator/internal/resolve"
)

// Output is the machine readable result printed on stdout.
type Output struct {
	DistrictID int    `json:"district_id"`
	Name       string `json:"name"`
	Region     string `json:"region"`
	Code       string `json:"code"`
	Method     string `json:"method"`
	Confirmed  bool   `json:"confirmed"`
	Attempt    string `json:"attempt"`
}

type Service struct {
	config       *config.Config
	logger       *logger.Logger
	index        *district.Index
	presenter    *presenter.Presenter
	console      *console.Console
	player       audio.Player
	orchestrator *orchestrator.Orchestrator
	closers      []io.Closer
	output       io.Writer
	signals      signalSource
}

// New wires the service to the terminal. Dialogs are written to stderr so that stdout only
// carries the JSON result.
func New(conf *config.Config, log *logger.Logger, loc *spreak.Localizer) (*Service, error) {
	return newService(conf, log, loc, os.Stdin, os.Stderr, os.Stdout)
}

func newService(conf *config.Config, log *logger.Logger, loc *spreak.Localizer, in io.Reader,
	dialogs, output io.Writer,
) (*Service, error) {
	service := &Service{
		config:  conf,
		logger:  log,
		output:  output,
		signals: stdLibSignalSource{},
	}

	index, err := service.loadIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to load district index: %w", err)
	}
	service.index = index
	log.Debug("district index loaded", slog.Int("districts", index.Len()))

	pres, err := presenter.New(conf, loc)
	if err != nil {
		return nil, fmt.Errorf("failed to create presenter: %w", err)
	}
	service.presenter = pres

	player, err := audio.New(conf, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio player: %w", err)
	}
	service.player = player

	con, err := console.New(in, dialogs, pres, index, player)
	if err != nil {
		return nil, fmt.Errorf("failed to create console: %w", err)
	}
	service.console = con

	thresholds := resolve.Thresholds{
		ContainmentRadius:  conf.Resolution.ContainmentRadius,
		AutoAcceptDistance: conf.Resolution.AutoAcceptDistance,
		AutoAcceptAccuracy: conf.Resolution.AutoAcceptAccuracy,
		MaxCandidates:      conf.Resolution.MaxCandidates,
	}
	engine, err := resolve.NewCentroidEngine(index, thresholds)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolution engine: %w", err)
	}

	httpClient := http.New(log)
	capabilities, err := service.selectCapabilities(httpClient)
	if err != nil {
		return nil, err
	}
	detector := locate.NewDetector(locate.NewChain(capabilities...), locate.Options{
		HighAccuracy: true,
		Timeout:      conf.Acquisition.Timeout,
		MaxAge:       conf.Acquisition.MaxAge,
	})

	collab := orchestrator.Collaborators{
		Permission: con,
		Acquirer:   detector,
		Engine:     engine,
		Confirmer:  con,
		Notifier:   con,
	}

	locators, closers, err := service.selectIPLocators(httpClient)
	if err != nil {
		return nil, err
	}
	service.closers = closers
	if len(locators) > 0 {
		ipService, err := ipfallback.New(index, conf.Resolution.MaxCandidates, log, locators...)
		if err != nil {
			closeAll(closers)
			return nil, fmt.Errorf("failed to create IP fallback: %w", err)
		}
		collab.IP = ipService
	} else {
		log.Warn("all IP locators are disabled, IP fallback is not available")
	}

	orch, err := orchestrator.New(collab, thresholds, log)
	if err != nil {
		closeAll(closers)
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}
	orch.SetObserver(service.logTransition)
	service.orchestrator = orch

	return service, nil
}

// Run performs a single resolution attempt. A manual fallback continues with the manual
// district selection. Cancelling ctx aborts the attempt in flight.
func (s *Service) Run(ctx context.Context) error {
	defer closeAll(s.closers)
	stop := context.AfterFunc(ctx, func() { s.orchestrator.Abort() })
	defer stop()

	outcome, err := s.orchestrator.Start(ctx)
	if err != nil {
		return fmt.Errorf("district resolution failed: %w", err)
	}

	var dist district.District
	switch {
	case outcome.Manual:
		dist, err = s.console.SelectManually(ctx)
		if err != nil {
			return fmt.Errorf("manual district selection failed: %w", err)
		}
		outcome.DistrictID.Set(dist.ID)
	default:
		var ok bool
		id := outcome.DistrictID.Value()
		if dist, ok = s.index.ByID(id); !ok {
			return fmt.Errorf("resolved district %d is not part of the index", id)
		}
	}
	return s.present(dist, outcome)
}

// Abort aborts the attempt in flight, if any.
func (s *Service) Abort() bool {
	return s.orchestrator.Abort()
}

// present announces the district on the console and the audio player and prints the JSON
// result.
func (s *Service) present(dist district.District, outcome orchestrator.Outcome) error {
	line, err := s.presenter.ResultLine(dist, outcome)
	if err != nil {
		return fmt.Errorf("failed to render result: %w", err)
	}
	s.console.Println(s.presenter.ResultText(line))
	s.console.Println(s.presenter.MethodText(outcome))
	s.player.Play(s.presenter.SpokenText(dist), audio.SpokenLanguage)

	method := string(outcome.Method)
	if outcome.Manual {
		method = "manual"
	}
	result := Output{
		DistrictID: dist.ID,
		Name:       dist.Name,
		Region:     dist.Region,
		Code:       dist.Code,
		Method:     method,
		Confirmed:  outcome.Confirmed,
		Attempt:    outcome.AttemptID.String(),
	}
	if err = json.NewEncoder(s.output).Encode(result); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	if waiter, ok := s.player.(interface{ Wait() }); ok {
		waiter.Wait()
	}
	return nil
}

func (s *Service) logTransition(tr orchestrator.Transition) {
	s.logger.Debug("resolution state changed", slog.String("attempt", tr.AttemptID.String()),
		slog.String("from", tr.From.String()), slog.String("to", tr.To.String()))
}
