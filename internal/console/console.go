// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package console implements the interactive dialogs of a resolution attempt on a terminal.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/wneessen/district-locator/internal/audio"
	"github.com/wneessen/district-locator/internal/district"
	"github.com/wneessen/district-locator/internal/orchestrator"
	"github.com/wneessen/district-locator/internal/presenter"
	"github.com/wneessen/district-locator/internal/resolve"
	"github.com/wneessen/district-locator/internal/vartype"
)

// ErrDismissed is returned when the user cancels a dialog or the input ends. It matches
// context.Canceled, which the orchestrator treats as an abandoned attempt.
var ErrDismissed = fmt.Errorf("dialog dismissed: %w", context.Canceled)

const quit = "q"

var (
	affirmative = []string{"y", "yes", "haan", "ha", "हाँ", "हां"}
	negative    = []string{"n", "no", "nahin", "nahi", "नहीं"}
)

type line struct {
	text string
	err  error
}

// Console reads answers from an input and writes dialogs to an output. The input is consumed
// by a single background reader, so a blocked read never outlives the context of a dialog.
// The permission and confirmation dialogs are also read out by the player.
type Console struct {
	in     io.Reader
	out    io.Writer
	pres   *presenter.Presenter
	index  *district.Index
	player audio.Player

	mu    sync.Mutex
	once  sync.Once
	lines chan line
}

// New returns a Console. A nil player disables read-aloud.
func New(in io.Reader, out io.Writer, pres *presenter.Presenter, index *district.Index,
	player audio.Player,
) (*Console, error) {
	if in == nil || out == nil {
		return nil, errors.New("console input and output must not be nil")
	}
	if pres == nil {
		return nil, errors.New("presenter must not be nil")
	}
	if index == nil || index.Len() == 0 {
		return nil, district.ErrEmptyIndex
	}
	if player == nil {
		player = audio.Nop{}
	}
	return &Console{
		in:     in,
		out:    out,
		pres:   pres,
		index:  index,
		player: player,
		lines:  make(chan line),
	}, nil
}

// RequestPermission implements orchestrator.PermissionPrompter.
func (c *Console) RequestPermission(ctx context.Context) (bool, error) {
	c.println(c.pres.PermissionText())
	c.player.Play(c.pres.SpokenPermissionText(), audio.SpokenLanguage)
	for {
		c.print(c.pres.PermissionPrompt())
		answer, err := c.readLine(ctx)
		if err != nil {
			return false, err
		}
		switch {
		case answer == quit:
			return false, ErrDismissed
		case slices.Contains(affirmative, answer):
			return true, nil
		case slices.Contains(negative, answer):
			return false, nil
		}
		c.println(c.pres.InvalidSelectionText())
	}
}

// Confirm implements orchestrator.Confirmer. 0 rejects all candidates.
func (c *Console) Confirm(ctx context.Context, candidates []resolve.Candidate,
	accuracy vartype.VarFloat64,
) (orchestrator.Choice, error) {
	c.print(c.pres.CandidateList(candidates, accuracy))
	if len(candidates) > 0 {
		c.player.Play(c.pres.SpokenCandidatesText(candidates[0]), audio.SpokenLanguage)
	}
	for {
		c.print(c.pres.ConfirmPrompt(len(candidates)))
		answer, err := c.readLine(ctx)
		if err != nil {
			return orchestrator.Choice{}, err
		}
		if answer == quit {
			return orchestrator.Choice{}, ErrDismissed
		}
		num, ok := parseSelection(answer, 0, len(candidates))
		if !ok {
			c.println(c.pres.InvalidSelectionText())
			continue
		}
		if num == 0 {
			return orchestrator.Choice{RejectAll: true}, nil
		}
		return orchestrator.Choice{DistrictID: candidates[num-1].District.ID}, nil
	}
}

// Notify implements orchestrator.Notifier.
func (c *Console) Notify(notice orchestrator.Notice) {
	c.println(c.pres.NoticeText(notice))
}

// SelectManually runs the manual selection flow: a search query narrows the index, the
// matches are listed grouped by region and the user picks one by number.
func (c *Console) SelectManually(ctx context.Context) (district.District, error) {
	for {
		c.print(c.pres.SearchPrompt())
		query, err := c.readLine(ctx)
		if err != nil {
			return district.District{}, err
		}
		if query == quit {
			return district.District{}, ErrDismissed
		}
		matches := c.index.Search(query)
		if len(matches) == 0 {
			c.println(c.pres.NoMatchText(query))
			continue
		}

		list, order := c.pres.RegionList(district.GroupByRegion(matches))
		c.print(list)
		for {
			c.print(c.pres.SelectPrompt(len(order)))
			answer, err := c.readLine(ctx)
			if err != nil {
				return district.District{}, err
			}
			if answer == quit {
				return district.District{}, ErrDismissed
			}
			if num, ok := parseSelection(answer, 1, len(order)); ok {
				return order[num-1], nil
			}
			c.println(c.pres.InvalidSelectionText())
		}
	}
}

// Println writes a line to the console output.
func (c *Console) Println(text string) {
	c.println(text)
}

func (c *Console) readLine(ctx context.Context) (string, error) {
	c.once.Do(func() { go c.scan() })
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l, ok := <-c.lines:
		if !ok {
			return "", ErrDismissed
		}
		if l.err != nil {
			return "", fmt.Errorf("failed to read input: %w", l.err)
		}
		return strings.ToLower(strings.TrimSpace(l.text)), nil
	}
}

func (c *Console) scan() {
	defer close(c.lines)
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		c.lines <- line{text: scanner.Text()}
	}
	if err := scanner.Err(); err != nil {
		c.lines <- line{err: err}
	}
}

func (c *Console) print(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.out, text)
}

func (c *Console) println(text string) {
	c.print(text + "\n")
}

func parseSelection(answer string, lowest, highest int) (int, bool) {
	num, err := strconv.Atoi(answer)
	if err != nil || num < lowest || num > highest {
		return 0, false
	}
	return num, true
}
