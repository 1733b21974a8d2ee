package domain

import "fmt"

// evacuationSpeedKmh is the assumed average road speed for travel-time estimates.
const evacuationSpeedKmh = 50.0

// RiskLevel is the location-specific urgency shown with safety advice.
type RiskLevel string

const (
	RiskCritical RiskLevel = "critical"
	RiskVeryHigh RiskLevel = "very_high"
	RiskHigh     RiskLevel = "high"
	RiskModerate RiskLevel = "moderate"
	RiskLow      RiskLevel = "low"
	RiskMinimal  RiskLevel = "minimal"
)

// ShelterOption is a safe zone with a travel estimate.
type ShelterOption struct {
	SafeZone
	TravelMinutes int `json:"travel_minutes"`
}

// LocationAdvice is deterministic safety guidance for a point on the island.
type LocationAdvice struct {
	Location        NearestRegion   `json:"location"`
	Severity        int             `json:"severity"`
	RiskLevel       RiskLevel       `json:"risk_level"`
	ImmediateAction string          `json:"immediate_action"`
	SafeZones       []ShelterOption `json:"safe_zones"`
	RiskZones       []RegionScore   `json:"risk_zones"`
	Evacuate        bool            `json:"evacuate"`
}

// AdviseLocation resolves the region at (lat, lon) and ranks nearby shelters.
// The resolver must already hold the batch scored under severity. Severity
// bands take precedence over the local index: a strong enough storm calls for
// evacuation even in a resilient region.
func AdviseLocation(r *Resolver, lat, lon float64, severity, topN int) (LocationAdvice, error) {
	if err := ValidateSeverity(severity); err != nil {
		return LocationAdvice{}, err
	}
	nearest, err := r.Nearest(lat, lon)
	if err != nil {
		return LocationAdvice{}, err
	}
	safe, err := r.SafeZones(lat, lon, nearest.RegionID, topN)
	if err != nil {
		return LocationAdvice{}, err
	}

	shelters := make([]ShelterOption, len(safe))
	for i, z := range safe {
		shelters[i] = ShelterOption{SafeZone: z, TravelMinutes: int(z.DistanceKm / evacuationSpeedKmh * 60)}
	}

	level, action := riskFor(severity, nearest.ResilienceIndex)
	return LocationAdvice{
		Location:        nearest,
		Severity:        severity,
		RiskLevel:       level,
		ImmediateAction: action,
		SafeZones:       shelters,
		RiskZones:       r.RiskZones(topN),
		Evacuate:        level == RiskCritical || level == RiskVeryHigh,
	}, nil
}

func riskFor(severity int, resilience float64) (RiskLevel, string) {
	switch {
	case severity > 80:
		return RiskCritical, fmt.Sprintf("Evacuate immediately to a safe zone. Extreme cyclone detected (intensity %d/100).", severity)
	case severity > 50:
		return RiskVeryHigh, fmt.Sprintf("Prepare to evacuate. Severe cyclone approaching (intensity %d/100).", severity)
	case severity > 20:
		return RiskHigh, fmt.Sprintf("Stay indoors and follow official instructions. Moderate cyclone (intensity %d/100).", severity)
	case resilience < RiskZoneMaxIndex:
		return RiskModerate, "Stay alert. Your area has low resilience. Prepare an emergency kit."
	case resilience < SafeZoneMinIndex:
		return RiskLow, "Follow the news and stay informed about the weather."
	default:
		return RiskMinimal, "You are in a high-resilience area. Stay informed; no evacuation needed."
	}
}
