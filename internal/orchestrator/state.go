// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"github.com/google/uuid"
)

// State is the current step of a resolution attempt.
type State int

const (
	Idle State = iota
	AwaitingPermission
	Acquiring
	Ranking
	IPFallback
	AutoAccepted
	AwaitingConfirmation
	Resolved
	ManualFallback
)

// String implements the fmt.Stringer interface.
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case AwaitingPermission:
		return "AwaitingPermission"
	case Acquiring:
		return "Acquiring"
	case Ranking:
		return "Ranking"
	case IPFallback:
		return "IPFallback"
	case AutoAccepted:
		return "AutoAccepted"
	case AwaitingConfirmation:
		return "AwaitingConfirmation"
	case Resolved:
		return "Resolved"
	case ManualFallback:
		return "ManualFallback"
	default:
		return "Unknown"
	}
}

// Busy reports whether an attempt is in flight. A UI disables the detection trigger while
// the orchestrator is busy.
func (s State) Busy() bool {
	return s != Idle && !s.Terminal()
}

// Terminal reports whether the state ends an attempt.
func (s State) Terminal() bool {
	return s == Resolved || s == ManualFallback
}

// Transition is reported to the Observer on every state change.
type Transition struct {
	AttemptID uuid.UUID
	From      State
	To        State
}

// Observer is notified about every Transition. It is called synchronously and must not call
// back into the orchestrator.
type Observer func(Transition)
