// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"context"

	"github.com/wneessen/district-locator/internal/locate"
	"github.com/wneessen/district-locator/internal/resolve"
	"github.com/wneessen/district-locator/internal/vartype"
)

// PermissionPrompter asks the user whether location detection may proceed. Returning an error
// matching context.Canceled means the user dismissed the dialog.
type PermissionPrompter interface {
	RequestPermission(ctx context.Context) (bool, error)
}

// Acquirer performs a single location acquisition.
type Acquirer interface {
	Acquire(ctx context.Context) (locate.Reading, error)
}

// IPResolver resolves candidates from the public IP address.
type IPResolver interface {
	ResolveByIP(ctx context.Context) (resolve.Result, error)
}

// Choice is the answer of a Confirmer.
type Choice struct {
	DistrictID int
	RejectAll  bool
}

// Confirmer presents candidates to the user. accuracy is absent for IP based candidates.
// Returning an error matching context.Canceled means the user dismissed the dialog.
type Confirmer interface {
	Confirm(ctx context.Context, candidates []resolve.Candidate, accuracy vartype.VarFloat64) (Choice, error)
}

// Notice is a short user facing notification.
type Notice int

const (
	NoticeLocationDenied Notice = iota
	NoticeLocationUnavailable
	NoticeFallbackFailed
	NoticeResolutionFailed
)

// String implements the fmt.Stringer interface.
func (n Notice) String() string {
	switch n {
	case NoticeLocationDenied:
		return "location denied"
	case NoticeLocationUnavailable:
		return "location unavailable"
	case NoticeFallbackFailed:
		return "fallback failed"
	case NoticeResolutionFailed:
		return "resolution failed"
	default:
		return "unknown"
	}
}

// Notifier shows a Notice to the user. It must not block.
type Notifier interface {
	Notify(notice Notice)
}

// Collaborators bundles the external parts of a resolution attempt. IP and Notifier are
// optional.
type Collaborators struct {
	Permission PermissionPrompter
	Acquirer   Acquirer
	Engine     resolve.Engine
	IP         IPResolver
	Confirmer  Confirmer
	Notifier   Notifier
}
