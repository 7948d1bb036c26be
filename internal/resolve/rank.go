// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package resolve turns a coordinate into ranked district candidates and decides whether the
// best candidate can be accepted without asking the user.
package resolve

import (
	"sort"

	"github.com/wneessen/district-locator/internal/district"
	"github.com/wneessen/district-locator/internal/geo"
)

// Candidate is a district together with its distance to the query coordinate.
type Candidate struct {
	District       district.District
	DistanceMeters float64
}

// Rank computes the distance from query to the reference coordinate of every district and
// returns all of them ordered by ascending distance. Districts with equal distance keep the
// order of refs. Rank only returns an empty slice if refs is empty.
func Rank(query geo.Coordinate, refs []district.District) []Candidate {
	candidates := make([]Candidate, len(refs))
	for i, ref := range refs {
		candidates[i] = Candidate{
			District:       ref,
			DistanceMeters: geo.Distance(query, ref.Ref),
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].DistanceMeters < candidates[j].DistanceMeters
	})
	return candidates
}
