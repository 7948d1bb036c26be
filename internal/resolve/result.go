// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package resolve

import (
	"errors"

	"github.com/wneessen/district-locator/internal/vartype"
)

var ErrNoCandidates = errors.New("no district candidates")

// Result is the outcome of resolving a coordinate against the reference index.
type Result struct {
	// MatchedID is only set if Containment is true.
	MatchedID   vartype.VarInt
	Containment bool
	Top         Candidate
	Candidates  []Candidate
}

// NewResult builds a Result from candidates that are already sorted by ascending distance. At
// most limit candidates are kept. If containment is true, the top candidate is the match.
func NewResult(candidates []Candidate, limit int, containment bool) (Result, error) {
	if len(candidates) == 0 {
		return Result{}, ErrNoCandidates
	}
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	result := Result{
		Containment: containment,
		Top:         candidates[0],
		Candidates:  candidates,
	}
	if containment {
		result.MatchedID.Set(candidates[0].District.ID)
	}
	return result, nil
}

// Contains reports whether the district with the given id is one of the candidates.
func (r Result) Contains(id int) bool {
	for _, c := range r.Candidates {
		if c.District.ID == id {
			return true
		}
	}
	return false
}
