package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/couchcryptid/island-resilience-service/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed regions.yaml
var defaultRegions []byte

type regionTable struct {
	Regions []domain.Coordinate `yaml:"regions"`
}

// LoadRegions returns the region coordinate table from path, or the built-in
// Mauritius table when path is empty. Entry order is preserved.
func LoadRegions(path string) ([]domain.Coordinate, error) {
	data := defaultRegions
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read regions file: %w", err)
		}
		data = b
	}
	return parseRegions(data)
}

func parseRegions(data []byte) ([]domain.Coordinate, error) {
	var table regionTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("decode regions: %w", err)
	}
	if len(table.Regions) == 0 {
		return nil, fmt.Errorf("%w: region table is empty", domain.ErrValidation)
	}

	seen := make(map[string]bool, len(table.Regions))
	for i, c := range table.Regions {
		id := domain.NormalizeRegionID(c.RegionID)
		if id == "" {
			return nil, fmt.Errorf("%w: region %d has no region_id", domain.ErrValidation, i)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: duplicate region_id %s", domain.ErrValidation, id)
		}
		if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
			return nil, fmt.Errorf("%w: region %s has coordinates out of range", domain.ErrValidation, id)
		}
		seen[id] = true
		table.Regions[i].RegionID = id
		if c.Name == "" {
			table.Regions[i].Name = id
		}
	}
	return table.Regions, nil
}
