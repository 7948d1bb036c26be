// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package district holds the immutable district reference index the resolver ranks against.
package district

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wneessen/district-locator/internal/geo"
)

var (
	ErrEmptyIndex   = errors.New("district reference index is empty")
	ErrInvalidID    = errors.New("district id must be positive")
	ErrDuplicateID  = errors.New("duplicate district id")
	ErrInvalidCoord = errors.New("invalid district reference coordinate")
)

// District is a single entry of the reference index.
type District struct {
	ID     int
	Name   string
	Region string
	Code   string
	Ref    geo.Coordinate
}

// Index maps district ids to their reference data. It keeps the order of the supplier.
type Index struct {
	districts []District
	byID      map[int]int
}

// NewIndex validates the given districts and returns an Index. Errors returned here are
// configuration errors and are meant to be fatal at startup.
func NewIndex(districts []District) (*Index, error) {
	if len(districts) == 0 {
		return nil, ErrEmptyIndex
	}
	idx := &Index{
		districts: make([]District, len(districts)),
		byID:      make(map[int]int, len(districts)),
	}
	copy(idx.districts, districts)
	for i, d := range idx.districts {
		if d.ID <= 0 {
			return nil, fmt.Errorf("%w: %q has id %d", ErrInvalidID, d.Name, d.ID)
		}
		if _, ok := idx.byID[d.ID]; ok {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, d.ID)
		}
		if !d.Ref.Valid() {
			return nil, fmt.Errorf("%w: %q at %s", ErrInvalidCoord, d.Name, d.Ref)
		}
		idx.byID[d.ID] = i
	}
	return idx, nil
}

// List returns a copy of all districts in supplier order.
func (i *Index) List() []District {
	list := make([]District, len(i.districts))
	copy(list, i.districts)
	return list
}

// Len returns the number of districts in the index.
func (i *Index) Len() int {
	return len(i.districts)
}

// ByID looks up a district by its id.
func (i *Index) ByID(id int) (District, bool) {
	pos, ok := i.byID[id]
	if !ok {
		return District{}, false
	}
	return i.districts[pos], true
}

// Search returns all districts whose name or region contains query, ignoring case. An empty
// query matches every district.
func (i *Index) Search(query string) []District {
	query = strings.ToLower(strings.TrimSpace(query))
	var list []District
	for _, d := range i.districts {
		if query == "" || strings.Contains(strings.ToLower(d.Name), query) ||
			strings.Contains(strings.ToLower(d.Region), query) {
			list = append(list, d)
		}
	}
	return list
}

// RegionGroup is a region and its districts.
type RegionGroup struct {
	Region    string
	Districts []District
}

// GroupByRegion groups districts by region, keeping regions in first-seen order.
func GroupByRegion(districts []District) []RegionGroup {
	var groups []RegionGroup
	pos := make(map[string]int)
	for _, d := range districts {
		idx, ok := pos[d.Region]
		if !ok {
			idx = len(groups)
			pos[d.Region] = idx
			groups = append(groups, RegionGroup{Region: d.Region})
		}
		groups[idx].Districts = append(groups[idx].Districts, d)
	}
	return groups
}
