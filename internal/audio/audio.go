// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package audio reads short texts out loud through an external text-to-speech command.
package audio

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/wneessen/district-locator/internal/config"
	"github.com/wneessen/district-locator/internal/logger"
)

// PlayTimeout bounds a single playback.
const PlayTimeout = time.Second * 30

// SpokenLanguage is the language announcements are read out in.
var SpokenLanguage = language.MustParse("hi-IN")

var ErrNoCommand = errors.New("no text-to-speech command configured")

// Player reads text out loud. Play must not block the caller.
type Player interface {
	Play(text string, lang language.Tag)
}

// Nop is a Player that does nothing.
type Nop struct{}

func (Nop) Play(string, language.Tag) {}

// CommandPlayer runs a text-to-speech command per playback, e.g. "espeak-ng -v hi <text>".
type CommandPlayer struct {
	command string
	voice   string
	log     *logger.Logger
	runFn   func(ctx context.Context, name string, args ...string) error
	wg      sync.WaitGroup
}

// New returns the Player configured in conf. A disabled audio section yields Nop.
func New(conf *config.Config, log *logger.Logger) (Player, error) {
	if conf.Audio.Disable {
		return Nop{}, nil
	}
	player, err := NewCommandPlayer(conf.Audio.Command, conf.Audio.Voice, log)
	if err != nil {
		return nil, err
	}
	return player, nil
}

// NewCommandPlayer returns a CommandPlayer for command. An empty voice is derived from the
// language of each playback.
func NewCommandPlayer(command, voice string, log *logger.Logger) (*CommandPlayer, error) {
	if command == "" {
		return nil, ErrNoCommand
	}
	if log == nil {
		return nil, errors.New("logger must not be nil")
	}
	return &CommandPlayer{
		command: command,
		voice:   voice,
		log:     log,
		runFn:   runCommand,
	}, nil
}

// Play starts the playback in the background. Failures are logged and otherwise ignored.
func (p *CommandPlayer) Play(text string, lang language.Tag) {
	if text == "" {
		return
	}
	args := []string{"-v", p.voiceFor(lang), text}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), PlayTimeout)
		defer cancel()
		if err := p.runFn(ctx, p.command, args...); err != nil {
			p.log.Warn("audio playback failed", slog.String("command", p.command), logger.Err(err))
		}
	}()
}

// Wait blocks until all started playbacks have finished.
func (p *CommandPlayer) Wait() {
	p.wg.Wait()
}

func (p *CommandPlayer) voiceFor(lang language.Tag) string {
	if p.voice != "" {
		return p.voice
	}
	base, _ := lang.Base()
	return base.String()
}

func runCommand(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}
