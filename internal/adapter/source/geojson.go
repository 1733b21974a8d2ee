// Package source loads the raw region inputs: a GeoJSON geometry layer and a
// CSV table of exposure, vulnerability and adaptation factors.
package source

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/island-resilience-service/internal/domain"
	geojson "github.com/paulmach/go.geojson"
)

// LoadGeometry reads a GeoJSON FeatureCollection of region polygons.
//
// When no feature carries a region_id, every feature gets a generated
// placeholder id (TEMP_00, TEMP_01, ...) and a "Region N" name so the
// assembler can fall back to a positional merge. Features with a null
// geometry are returned with HasGeometry unset.
func LoadGeometry(path string) ([]domain.GeometryRow, error) {
	fc, err := readFeatureCollection(path)
	if err != nil {
		return nil, err
	}

	generate := true
	for _, f := range fc.Features {
		if propString(f.Properties, "region_id") != "" {
			generate = false
			break
		}
	}

	rows := make([]domain.GeometryRow, 0, len(fc.Features))
	for i, f := range fc.Features {
		row := domain.GeometryRow{
			RegionID:    propString(f.Properties, "region_id"),
			RegionName:  firstNonEmpty(propString(f.Properties, "region_name"), propString(f.Properties, "name")),
			Population:  propInt(f.Properties, "population"),
			HasGeometry: f.Geometry != nil,
		}
		if generate {
			row.RegionID = fmt.Sprintf("%s%02d", domain.PlaceholderIDPrefix, i)
			row.RegionName = fmt.Sprintf("Region %d", i+1)
		}
		if row.RegionName == "" {
			row.RegionName = row.RegionID
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// CountHazardZones returns the number of features in a hazard-zone layer.
// An empty path means no layer is configured and yields zero.
func CountHazardZones(path string) (int, error) {
	if path == "" {
		return 0, nil
	}
	fc, err := readFeatureCollection(path)
	if err != nil {
		return 0, err
	}
	return len(fc.Features), nil
}

func readFeatureCollection(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read geojson %s: %w", path, err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode geojson %s: %v", domain.ErrSchema, path, err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("%w: %s is a %q, want FeatureCollection", domain.ErrSchema, path, fc.Type)
	}
	return fc, nil
}

// propString renders a scalar property as text. Numeric ids are common in
// exported layers, so numbers are formatted without a trailing ".0".
func propString(props map[string]any, key string) string {
	switch v := props[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func propInt(props map[string]any, key string) int {
	switch v := props[key].(type) {
	case float64:
		return int(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
