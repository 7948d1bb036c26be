// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package resolve

import (
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/district-locator/internal/district"
	"github.com/wneessen/district-locator/internal/geo"
)

var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Engine resolves a coordinate to district candidates. Engines backed by real boundary data
// may assert containment authoritatively; the orchestrator treats the result opaquely.
type Engine interface {
	Name() string
	Resolve(ctx context.Context, coord geo.Coordinate) (Result, error)
}

// CentroidEngine approximates containment by the distance to the nearest district reference
// coordinate.
type CentroidEngine struct {
	index      *district.Index
	thresholds Thresholds
}

// NewCentroidEngine returns a CentroidEngine for the given index.
func NewCentroidEngine(index *district.Index, thresholds Thresholds) (*CentroidEngine, error) {
	if index == nil || index.Len() == 0 {
		return nil, district.ErrEmptyIndex
	}
	return &CentroidEngine{index: index, thresholds: thresholds}, nil
}

// Name returns the name of the engine.
func (e *CentroidEngine) Name() string {
	return "centroid"
}

// Resolve ranks all districts against coord and keeps the nearest ones. Containment is asserted
// if the nearest reference coordinate is within the containment radius.
func (e *CentroidEngine) Resolve(ctx context.Context, coord geo.Coordinate) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if !coord.Valid() {
		return Result{}, fmt.Errorf("%w: %s", ErrInvalidCoordinate, coord)
	}
	candidates := Rank(coord, e.index.List())
	if len(candidates) == 0 {
		return Result{}, ErrNoCandidates
	}
	containment := candidates[0].DistanceMeters <= e.thresholds.ContainmentRadius
	return NewResult(candidates, e.thresholds.MaxCandidates, containment)
}
