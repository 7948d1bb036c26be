// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package orchestrator drives a single district resolution attempt from the permission prompt
// through location acquisition, ranking and confirmation, with an IP based fallback and a manual
// fallback as the terminal exit.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/wneessen/district-locator/internal/locate"
	"github.com/wneessen/district-locator/internal/logger"
	"github.com/wneessen/district-locator/internal/resolve"
	"github.com/wneessen/district-locator/internal/vartype"
)

// presentLimit is the maximum number of candidates shown to the user.
const presentLimit = 5

var (
	ErrAttemptInFlight = errors.New("a resolution attempt is already in flight")
	// ErrAborted is returned by Start if the attempt was aborted with Abort.
	ErrAborted = errors.New("resolution attempt aborted")
	// ErrAbandoned is returned by Start if the user dismissed a dialog.
	ErrAbandoned = errors.New("resolution attempt abandoned")

	ErrPermissionDeclined = errors.New("user declined location detection")
	ErrRejected           = errors.New("user rejected all candidates")
	ErrUnknownChoice      = errors.New("chosen district was not among the presented candidates")
	ErrNoFallback         = errors.New("no IP fallback configured")
)

// Method names the kind of position the resolved candidates were derived from.
type Method string

const (
	MethodNone Method = ""
	MethodGPS  Method = "gps"
	MethodWIFI Method = "wifi"
	MethodIP   Method = "ip"
)

func methodFor(tier locate.Tier) Method {
	switch tier {
	case locate.TierGPS:
		return MethodGPS
	case locate.TierWIFI:
		return MethodWIFI
	default:
		return MethodIP
	}
}

// Outcome is the result of a completed attempt. Either DistrictID is set, or Manual is true and
// Reason holds the cause for the manual fallback.
type Outcome struct {
	AttemptID  uuid.UUID
	DistrictID vartype.VarInt
	Method     Method
	Confirmed  bool
	Manual     bool
	Reason     error
}

// Resolved reports whether the attempt produced a district.
func (o Outcome) Resolved() bool {
	return o.DistrictID.IsSet()
}

// Orchestrator runs resolution attempts. Only one attempt may be in flight at a time.
type Orchestrator struct {
	collab     Collaborators
	thresholds resolve.Thresholds
	logger     *logger.Logger

	mu       sync.Mutex
	state    State
	active   uuid.UUID
	cancel   context.CancelFunc
	observer Observer
}

// New returns an Orchestrator in state Idle.
func New(collab Collaborators, thresholds resolve.Thresholds, log *logger.Logger) (*Orchestrator, error) {
	switch {
	case collab.Permission == nil:
		return nil, errors.New("permission prompter is required")
	case collab.Acquirer == nil:
		return nil, errors.New("location acquirer is required")
	case collab.Engine == nil:
		return nil, errors.New("resolution engine is required")
	case collab.Confirmer == nil:
		return nil, errors.New("confirmer is required")
	case log == nil:
		return nil, errors.New("logger is required")
	}
	return &Orchestrator{
		collab:     collab,
		thresholds: thresholds,
		logger:     log,
		state:      Idle,
	}, nil
}

// SetObserver registers fn to be notified about every state transition.
func (o *Orchestrator) SetObserver(fn Observer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observer = fn
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Abort cancels the attempt in flight and returns to Idle. Results that arrive for the aborted
// attempt afterwards are discarded. It reports whether an attempt was aborted.
func (o *Orchestrator) Abort() bool {
	o.mu.Lock()
	if !o.state.Busy() {
		o.mu.Unlock()
		return false
	}
	id, from, observer := o.active, o.state, o.observer
	o.cancel()
	o.state = Idle
	o.active = uuid.Nil
	o.mu.Unlock()

	o.logger.Debug("resolution attempt aborted", slogAttempt(id), slog.String("state", from.String()))
	if observer != nil {
		observer(Transition{AttemptID: id, From: from, To: Idle})
	}
	return true
}

// Start runs a complete attempt and blocks until it reaches Resolved or ManualFallback. It
// returns ErrAttemptInFlight while another attempt is running, ErrAborted if the attempt was
// aborted and ErrAbandoned if the user dismissed a dialog.
func (o *Orchestrator) Start(ctx context.Context) (Outcome, error) {
	o.mu.Lock()
	if o.state.Busy() {
		o.mu.Unlock()
		return Outcome{}, ErrAttemptInFlight
	}
	id := uuid.New()
	ctxAttempt, cancel := context.WithCancel(ctx)
	from, observer := o.state, o.observer
	o.active = id
	o.cancel = cancel
	o.state = AwaitingPermission
	o.mu.Unlock()
	defer cancel()

	o.logger.Debug("starting resolution attempt", slogAttempt(id))
	if observer != nil {
		observer(Transition{AttemptID: id, From: from, To: AwaitingPermission})
	}
	run := &attempt{Orchestrator: o, id: id, ctx: ctxAttempt}
	return run.run()
}

// attempt carries the identity of a single run. Every collaborator result is checked against
// the active attempt id before it is acted upon.
type attempt struct {
	*Orchestrator
	id  uuid.UUID
	ctx context.Context
}

func (a *attempt) run() (Outcome, error) {
	granted, err := a.collab.Permission.RequestPermission(a.ctx)
	if !a.current() {
		return a.aborted()
	}
	switch {
	case isDismissed(err):
		return a.abandon(err)
	case err != nil:
		return a.manual(fmt.Errorf("permission prompt failed: %w", err))
	case !granted:
		return a.manual(ErrPermissionDeclined)
	}

	if !a.transition(Acquiring) {
		return a.aborted()
	}
	reading, err := a.collab.Acquirer.Acquire(a.ctx)
	if !a.current() {
		return a.aborted()
	}
	switch {
	case err == nil:
	case errors.Is(err, locate.ErrPermissionDenied):
		a.logger.Warn("location access denied", slogAttempt(a.id), logger.Err(err))
		a.notify(NoticeLocationDenied)
		return a.manual(err)
	case isDismissed(err):
		return a.abandon(err)
	default:
		a.logger.Warn("location acquisition failed, falling back to IP geolocation", slogAttempt(a.id),
			logger.Err(err))
		a.notify(NoticeLocationUnavailable)
		return a.fallback()
	}

	a.logger.Debug("location acquired", slogAttempt(a.id), slog.String("tier", reading.Tier.String()),
		slog.String("coordinate", reading.Coordinate.String()),
		slog.Float64("accuracy", reading.AccuracyMeters), slog.String("source", reading.Source))
	if !a.transition(Ranking) {
		return a.aborted()
	}
	result, err := a.collab.Engine.Resolve(a.ctx, reading.Coordinate)
	if !a.current() {
		return a.aborted()
	}
	if err != nil {
		if isDismissed(err) {
			return a.abandon(err)
		}
		a.logger.Error("failed to resolve district candidates", slogAttempt(a.id), logger.Err(err),
			slog.String("engine", a.collab.Engine.Name()))
		a.notify(NoticeResolutionFailed)
		return a.manual(err)
	}

	method := methodFor(reading.Tier)
	accuracy := vartype.NewVariable(reading.AccuracyMeters)
	if resolve.ShouldAutoAccept(result, accuracy, a.thresholds) {
		if !a.transition(AutoAccepted) {
			return a.aborted()
		}
		id := result.Top.District.ID
		if matched, ok := result.MatchedID.Get(); ok {
			id = matched
		}
		return a.resolved(id, method, false)
	}
	return a.confirm(result, accuracy, method)
}

// fallback resolves candidates from the public IP address. IP candidates always need a
// confirmation, since an IP position carries no usable accuracy.
func (a *attempt) fallback() (Outcome, error) {
	if !a.transition(IPFallback) {
		return a.aborted()
	}
	if a.collab.IP == nil {
		a.notify(NoticeFallbackFailed)
		return a.manual(ErrNoFallback)
	}

	result, err := a.collab.IP.ResolveByIP(a.ctx)
	if !a.current() {
		return a.aborted()
	}
	if err != nil {
		if isDismissed(err) {
			return a.abandon(err)
		}
		a.logger.Warn("IP fallback failed", slogAttempt(a.id), logger.Err(err))
		a.notify(NoticeFallbackFailed)
		return a.manual(err)
	}
	return a.confirm(result, vartype.Absent[float64](), MethodIP)
}

func (a *attempt) confirm(result resolve.Result, accuracy vartype.VarFloat64, method Method) (Outcome, error) {
	if !a.transition(AwaitingConfirmation) {
		return a.aborted()
	}
	candidates := result.Candidates
	if len(candidates) > presentLimit {
		candidates = candidates[:presentLimit]
	}

	choice, err := a.collab.Confirmer.Confirm(a.ctx, candidates, accuracy)
	if !a.current() {
		return a.aborted()
	}
	switch {
	case isDismissed(err):
		return a.abandon(err)
	case err != nil:
		return a.manual(fmt.Errorf("confirmation failed: %w", err))
	case choice.RejectAll:
		return a.manual(ErrRejected)
	}

	presented := resolve.Result{Candidates: candidates}
	if !presented.Contains(choice.DistrictID) {
		a.logger.Warn("confirmation returned an unknown district", slogAttempt(a.id),
			slog.Int("district_id", choice.DistrictID))
		return a.manual(fmt.Errorf("%w: %d", ErrUnknownChoice, choice.DistrictID))
	}
	return a.resolved(choice.DistrictID, method, true)
}

func (a *attempt) resolved(id int, method Method, confirmed bool) (Outcome, error) {
	if !a.transition(Resolved) {
		return a.aborted()
	}
	a.logger.Info("district resolved", slogAttempt(a.id), slog.Int("district_id", id),
		slog.String("method", string(method)), slog.Bool("confirmed", confirmed))
	return Outcome{
		AttemptID:  a.id,
		DistrictID: vartype.NewVariable(id),
		Method:     method,
		Confirmed:  confirmed,
	}, nil
}

func (a *attempt) manual(reason error) (Outcome, error) {
	if !a.transition(ManualFallback) {
		return a.aborted()
	}
	a.logger.Info("automatic detection ended, manual selection required", slogAttempt(a.id),
		logger.Err(reason))
	return Outcome{
		AttemptID: a.id,
		Manual:    true,
		Reason:    reason,
	}, nil
}

// abandon returns to Idle after the user dismissed a dialog.
func (a *attempt) abandon(err error) (Outcome, error) {
	if !a.transition(Idle) {
		return a.aborted()
	}
	a.logger.Debug("resolution attempt abandoned", slogAttempt(a.id))
	return Outcome{AttemptID: a.id}, fmt.Errorf("%w: %w", ErrAbandoned, err)
}

func (a *attempt) aborted() (Outcome, error) {
	a.logger.Debug("discarding result of inactive attempt", slogAttempt(a.id))
	return Outcome{AttemptID: a.id}, ErrAborted
}

// current reports whether the attempt is still the active one.
func (a *attempt) current() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active == a.id
}

// transition moves the active attempt to state to. It returns false without changing anything
// if the attempt is no longer active.
func (a *attempt) transition(to State) bool {
	a.mu.Lock()
	if a.active != a.id {
		a.mu.Unlock()
		return false
	}
	from, observer := a.state, a.observer
	a.state = to
	if to == Idle {
		a.active = uuid.Nil
	}
	a.mu.Unlock()

	a.logger.Debug("state transition", slogAttempt(a.id), slog.String("from", from.String()),
		slog.String("to", to.String()))
	if observer != nil {
		observer(Transition{AttemptID: a.id, From: from, To: to})
	}
	return true
}

func (a *attempt) notify(notice Notice) {
	if a.collab.Notifier == nil {
		return
	}
	a.collab.Notifier.Notify(notice)
}

func isDismissed(err error) bool {
	return errors.Is(err, context.Canceled)
}

func slogAttempt(id uuid.UUID) slog.Attr {
	return slog.String("attempt", id.String())
}
