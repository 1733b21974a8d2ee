package domain

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/golang/geo/r2"
)

const (
	// KmPerDegree converts planar degree distances to approximate kilometers.
	KmPerDegree = 111.0

	// SafeZoneMinIndex is the lowest resilience index a region can have and still be a safe zone.
	SafeZoneMinIndex = 60.0

	// RiskZoneMaxIndex is the exclusive upper bound on the index of a risk zone.
	RiskZoneMaxIndex = 40.0
)

// NearestRegion is the scored region closest to a query point.
type NearestRegion struct {
	RegionScore
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	DistanceKm float64 `json:"distance_km"`
}

// SafeZone is a candidate shelter region ranked by distance.
type SafeZone struct {
	RegionID        string  `json:"region_id"`
	RegionName      string  `json:"region_name"`
	ResilienceIndex float64 `json:"resilience_index"`
	DistanceKm      float64 `json:"distance_km"`
	Lat             float64 `json:"lat"`
	Lon             float64 `json:"lon"`
}

// Resolver answers proximity queries over a static coordinate table and one scored batch.
// It is read-only after construction and safe for concurrent use.
type Resolver struct {
	coords  []Coordinate
	points  map[string]r2.Point
	regions []RegionScore
	byID    map[string]int
}

// NewResolver indexes coords in the given order, which breaks distance ties.
// Later duplicates of a region ID are ignored.
func NewResolver(coords []Coordinate, regions []RegionScore) *Resolver {
	r := &Resolver{
		points:  make(map[string]r2.Point, len(coords)),
		regions: slices.Clone(regions),
		byID:    make(map[string]int, len(regions)),
	}
	for _, c := range coords {
		if _, dup := r.points[c.RegionID]; dup {
			continue
		}
		r.coords = append(r.coords, c)
		r.points[c.RegionID] = point(c.Lat, c.Lon)
	}
	for i, s := range r.regions {
		if _, dup := r.byID[s.RegionID]; !dup {
			r.byID[s.RegionID] = i
		}
	}
	return r
}

// Regions returns the scored batch the resolver was built with.
func (r *Resolver) Regions() []RegionScore {
	return slices.Clone(r.regions)
}

// Nearest returns the region whose coordinate is closest to (lat, lon).
// Ties go to the coordinate listed first. Returns ErrNotFound if the table is
// empty or the nearest region has no score.
func (r *Resolver) Nearest(lat, lon float64) (NearestRegion, error) {
	if err := validatePoint(lat, lon); err != nil {
		return NearestRegion{}, err
	}
	if len(r.coords) == 0 {
		return NearestRegion{}, fmt.Errorf("%w: no region coordinates configured", ErrNotFound)
	}

	q := point(lat, lon)
	best, bestDist := 0, math.Inf(1)
	for i, c := range r.coords {
		if d := q.Sub(r.points[c.RegionID]).Norm(); d < bestDist {
			best, bestDist = i, d
		}
	}

	c := r.coords[best]
	idx, ok := r.byID[c.RegionID]
	if !ok {
		return NearestRegion{}, fmt.Errorf("%w: nearest region %q has no score", ErrNotFound, c.RegionID)
	}
	return NearestRegion{
		RegionScore: r.regions[idx],
		Lat:         c.Lat,
		Lon:         c.Lon,
		DistanceKm:  bestDist * KmPerDegree,
	}, nil
}

// SafeZones ranks regions with an index of at least SafeZoneMinIndex by
// distance from (lat, lon), skipping excludeID and regions without a coordinate.
// An empty result is not an error.
func (r *Resolver) SafeZones(lat, lon float64, excludeID string, topN int) ([]SafeZone, error) {
	if err := validatePoint(lat, lon); err != nil {
		return nil, err
	}

	q := point(lat, lon)
	zones := []SafeZone{}
	for _, s := range r.regions {
		if s.ResilienceIndex < SafeZoneMinIndex || s.RegionID == excludeID {
			continue
		}
		p, ok := r.points[s.RegionID]
		if !ok {
			continue
		}
		zones = append(zones, SafeZone{
			RegionID:        s.RegionID,
			RegionName:      s.RegionName,
			ResilienceIndex: s.ResilienceIndex,
			DistanceKm:      q.Sub(p).Norm() * KmPerDegree,
			Lat:             p.Y,
			Lon:             p.X,
		})
	}
	slices.SortStableFunc(zones, func(a, b SafeZone) int {
		return cmp.Compare(a.DistanceKm, b.DistanceKm)
	})
	return head(zones, topN), nil
}

// RiskZones returns regions with an index below RiskZoneMaxIndex, lowest first.
func (r *Resolver) RiskZones(topN int) []RegionScore {
	zones := []RegionScore{}
	for _, s := range r.regions {
		if s.ResilienceIndex < RiskZoneMaxIndex {
			zones = append(zones, s)
		}
	}
	slices.SortStableFunc(zones, func(a, b RegionScore) int {
		return cmp.Compare(a.ResilienceIndex, b.ResilienceIndex)
	})
	return head(zones, topN)
}

func point(lat, lon float64) r2.Point {
	return r2.Point{X: lon, Y: lat}
}

func validatePoint(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return fmt.Errorf("%w: coordinates must be finite", ErrValidation)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("%w: coordinate (%v, %v) out of range", ErrValidation, lat, lon)
	}
	return nil
}

func head[T any](s []T, n int) []T {
	if n < 0 {
		n = 0
	}
	if len(s) > n {
		return s[:n]
	}
	return s
}
