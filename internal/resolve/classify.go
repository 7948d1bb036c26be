// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package resolve

import "github.com/wneessen/district-locator/internal/vartype"

const (
	DefaultContainmentRadius  = 2000.0
	DefaultAutoAcceptDistance = 2000.0
	DefaultAutoAcceptAccuracy = 50.0
	DefaultMaxCandidates      = 5
)

// Thresholds holds the tunables of the centroid approximation and the auto-accept decision.
type Thresholds struct {
	// ContainmentRadius is the distance to the nearest centroid in meters up to which the
	// centroid engine asserts containment.
	ContainmentRadius float64
	// AutoAcceptDistance is the maximum distance in meters of the top candidate for an
	// auto-accept without containment.
	AutoAcceptDistance float64
	// AutoAcceptAccuracy is the maximum reported device accuracy in meters for an auto-accept
	// without containment.
	AutoAcceptAccuracy float64
	MaxCandidates      int
}

// DefaultThresholds returns the default Thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ContainmentRadius:  DefaultContainmentRadius,
		AutoAcceptDistance: DefaultAutoAcceptDistance,
		AutoAcceptAccuracy: DefaultAutoAcceptAccuracy,
		MaxCandidates:      DefaultMaxCandidates,
	}
}

// ShouldAutoAccept decides if the top candidate of result can be accepted without user
// confirmation. Containment always wins. Without containment, both a precise device fix and a
// close centroid are required, since centroid distance alone cannot prove that the user is
// inside the district.
func ShouldAutoAccept(result Result, accuracy vartype.VarFloat64, t Thresholds) bool {
	if result.Containment {
		return true
	}
	acc, ok := accuracy.Get()
	if !ok {
		return false
	}
	return acc <= t.AutoAcceptAccuracy && result.Top.DistanceMeters <= t.AutoAcceptDistance
}
