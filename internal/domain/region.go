package domain

// Category is the severity tier derived from a resilience index.
type Category string

const (
	CategoryCritical Category = "critical"
	CategoryLow      Category = "low"
	CategoryMedium   Category = "medium"
	CategoryHigh     Category = "high"
)

// RegionInput is a region record as produced by the batch assembler, before scoring.
// Factor fields are optional so that a batch missing a factor entirely can be
// rejected as a schema error rather than silently scored as zero.
type RegionInput struct {
	RegionID      string
	RegionName    string
	Population    int
	Exposure      *float64
	Vulnerability *float64
	Adaptation    *float64
}

// RegionScore is the scored record consumed by rendering, export, and publishing.
type RegionScore struct {
	RegionID        string   `json:"region_id"`
	RegionName      string   `json:"region_name"`
	Exposure        float64  `json:"exposure"`
	Vulnerability   float64  `json:"vulnerability"`
	Adaptation      float64  `json:"adaptation"`
	ResilienceIndex float64  `json:"resilience_index"`
	Category        Category `json:"category"`
	Population      int      `json:"population,omitempty"`
}

// Coordinate is the representative point of a region in decimal degrees.
type Coordinate struct {
	RegionID string  `yaml:"region_id" json:"region_id"`
	Name     string  `yaml:"name" json:"name"`
	Lat      float64 `yaml:"lat" json:"lat"`
	Lon      float64 `yaml:"lon" json:"lon"`
}

// Factor returns a pointer to v, for building RegionInput literals.
func Factor(v float64) *float64 {
	return &v
}
