// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package district

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/wneessen/district-locator/internal/geo"
)

//go:embed data/districts.geojson
var defaultData embed.FS

var ErrMissingProperty = errors.New("missing or invalid feature property")

// Default returns the index built from the embedded reference dataset.
func Default() (*Index, error) {
	file, err := defaultData.Open("data/districts.geojson")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded district data: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()
	return LoadGeoJSON(file)
}

// LoadFile reads a GeoJSON FeatureCollection from path and returns the index built from it.
func LoadFile(path string) (*Index, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open district file %q: %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()
	return LoadGeoJSON(file)
}

// LoadGeoJSON parses a GeoJSON FeatureCollection. Every feature needs the properties id, name,
// region and code. Point geometries are used as reference coordinate as-is, polygons are
// reduced to their area centroid.
func LoadGeoJSON(r io.Reader) (*Index, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read district data: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse district GeoJSON: %w", err)
	}

	districts := make([]District, 0, len(fc.Features))
	for n, feature := range fc.Features {
		d, err := districtFromFeature(feature)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", n, err)
		}
		districts = append(districts, d)
	}
	return NewIndex(districts)
}

func districtFromFeature(feature *geojson.Feature) (District, error) {
	var d District
	id, ok := feature.Properties["id"].(float64)
	if !ok || id != float64(int(id)) {
		return d, fmt.Errorf("%w: id", ErrMissingProperty)
	}
	d.ID = int(id)
	for key, target := range map[string]*string{"name": &d.Name, "region": &d.Region, "code": &d.Code} {
		val, ok := feature.Properties[key].(string)
		if !ok || val == "" {
			return d, fmt.Errorf("%w: %s", ErrMissingProperty, key)
		}
		*target = val
	}

	var point orb.Point
	switch geom := feature.Geometry.(type) {
	case orb.Point:
		point = geom
	case orb.Polygon, orb.MultiPolygon:
		point, _ = planar.CentroidArea(geom)
	default:
		return d, fmt.Errorf("unsupported geometry for district %q", d.Name)
	}
	d.Ref = geo.Coordinate{Lat: point.Lat(), Lon: point.Lon()}
	return d, nil
}
