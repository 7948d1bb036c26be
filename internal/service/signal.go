// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
)

type signalSource interface {
	Notify(c chan<- os.Signal, sig ...os.Signal)
	Stop(c chan<- os.Signal)
}

// stdLibSignalSource is the production implementation.
type stdLibSignalSource struct{}

func (stdLibSignalSource) Notify(c chan<- os.Signal, sig ...os.Signal) {
	signal.Notify(c, sig...)
}

func (stdLibSignalSource) Stop(c chan<- os.Signal) {
	signal.Stop(c)
}

// WatchAbortSignal aborts the attempt in flight whenever one of sig is received, until ctx is
// done.
func (s *Service) WatchAbortSignal(ctx context.Context, sig ...os.Signal) {
	sigChan := make(chan os.Signal, 1)
	s.signals.Notify(sigChan, sig...)
	go func() {
		defer s.signals.Stop(sigChan)
		s.HandleAbortSignal(ctx, sigChan)
	}()
}

// HandleAbortSignal aborts the attempt in flight when a signal is received
func (s *Service) HandleAbortSignal(ctx context.Context, sigChan chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigChan:
			aborted := s.orchestrator.Abort()
			s.logger.Debug("received abort signal", slog.String("signal", sig.String()),
				slog.Bool("aborted", aborted))
		}
	}
}
