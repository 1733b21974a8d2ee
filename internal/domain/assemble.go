package domain

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

const (
	// PlaceholderIDPrefix marks region IDs generated for geometry features that carried none.
	PlaceholderIDPrefix = "TEMP_"

	// DefaultPopulation is assumed for regions whose sources carry no population.
	DefaultPopulation = 50000
)

// MergeStrategy is how geometry and score rows were paired.
type MergeStrategy string

const (
	MergeByIdentifier MergeStrategy = "identifier"
	MergeByPosition   MergeStrategy = "positional"
)

// GeometryRow is one region feature from the geometry source.
type GeometryRow struct {
	RegionID    string
	RegionName  string
	Population  int
	HasGeometry bool
}

// ScoreRow is one raw row of the tabular factor source. Values are kept as
// text so the assembler can count unparseable rows instead of failing.
type ScoreRow struct {
	RegionID      string
	RegionName    string
	Exposure      string
	Vulnerability string
	Adaptation    string
	Population    string
}

// MergeReport carries the diagnostics of one merge.
type MergeReport struct {
	Strategy               MergeStrategy `json:"strategy"`
	GeometryRows           int           `json:"geometry_rows"`
	ScoreRows              int           `json:"score_rows"`
	Merged                 int           `json:"merged"`
	DroppedInvalidScores   int           `json:"dropped_invalid_scores"`
	DroppedMissingGeometry int           `json:"dropped_missing_geometry"`
	DroppedDuplicates      int           `json:"dropped_duplicates"`
	DroppedGeometryOnly    int           `json:"dropped_geometry_only"`
	DroppedScoresOnly      int           `json:"dropped_scores_only"`
	Truncated              int           `json:"truncated"`
}

// Assembler reconciles a geometry source with a score source into scoreable region inputs.
type Assembler struct {
	logger *slog.Logger
}

// NewAssembler returns an assembler that logs row-level drops to logger.
func NewAssembler(logger *slog.Logger) *Assembler {
	return &Assembler{logger: logger}
}

type cleanScore struct {
	id, name   string
	e, v, a    float64
	population int
}

// Merge pairs geometry rows with score rows. When every geometry ID is blank
// or a generated placeholder, rows are paired by position after truncating
// both sides to the shorter length. Otherwise rows are joined on the trimmed,
// upper-cased region ID and unmatched rows are dropped. Row-level problems are
// counted in the report; ErrEmptySource is returned only when a side has no
// usable rows or nothing pairs up.
func (a *Assembler) Merge(geometry []GeometryRow, scores []ScoreRow) ([]RegionInput, MergeReport, error) {
	report := MergeReport{GeometryRows: len(geometry), ScoreRows: len(scores)}

	geo := make([]GeometryRow, 0, len(geometry))
	for _, g := range geometry {
		if !g.HasGeometry {
			report.DroppedMissingGeometry++
			continue
		}
		geo = append(geo, g)
	}

	clean := make([]cleanScore, 0, len(scores))
	for _, s := range scores {
		c, ok := parseScoreRow(s)
		if !ok {
			report.DroppedInvalidScores++
			continue
		}
		clean = append(clean, c)
	}

	if report.DroppedMissingGeometry > 0 {
		a.logger.Warn("dropped geometry rows without a geometry", "count", report.DroppedMissingGeometry)
	}
	if report.DroppedInvalidScores > 0 {
		a.logger.Warn("dropped score rows with missing or non-numeric factors", "count", report.DroppedInvalidScores)
	}

	if len(geo) == 0 {
		return nil, report, fmt.Errorf("%w: geometry source has no usable rows", ErrEmptySource)
	}
	if len(clean) == 0 {
		return nil, report, fmt.Errorf("%w: score source has no usable rows", ErrEmptySource)
	}

	var out []RegionInput
	if hasPlaceholderIDs(geo) {
		out = a.mergeByPosition(geo, clean, &report)
	} else {
		out = a.mergeByIdentifier(geo, clean, &report)
	}
	report.Merged = len(out)

	if len(out) == 0 {
		return nil, report, fmt.Errorf("%w: no region matched between geometry and score sources", ErrEmptySource)
	}
	return out, report, nil
}

func (a *Assembler) mergeByPosition(geo []GeometryRow, scores []cleanScore, report *MergeReport) []RegionInput {
	report.Strategy = MergeByPosition

	n := min(len(geo), len(scores))
	if len(geo) != len(scores) {
		report.Truncated = max(len(geo), len(scores)) - n
		a.logger.Warn("geometry and score row counts differ, pairing by position",
			"geometry_rows", len(geo),
			"score_rows", len(scores),
			"paired", n,
		)
	}

	out := make([]RegionInput, 0, n)
	for i := range n {
		out = append(out, scores[i].input(geo[i]))
	}
	return out
}

func (a *Assembler) mergeByIdentifier(geo []GeometryRow, scores []cleanScore, report *MergeReport) []RegionInput {
	report.Strategy = MergeByIdentifier

	byID := make(map[string]cleanScore, len(scores))
	for _, s := range scores {
		if _, dup := byID[s.id]; dup {
			report.DroppedDuplicates++
			continue
		}
		byID[s.id] = s
	}

	matched := make(map[string]bool, len(byID))
	out := make([]RegionInput, 0, len(geo))
	for _, g := range geo {
		id := NormalizeRegionID(g.RegionID)
		if matched[id] {
			report.DroppedDuplicates++
			continue
		}
		s, ok := byID[id]
		if !ok {
			report.DroppedGeometryOnly++
			continue
		}
		matched[id] = true
		out = append(out, s.input(g))
	}
	report.DroppedScoresOnly = len(byID) - len(matched)

	if report.DroppedGeometryOnly > 0 || report.DroppedScoresOnly > 0 || report.DroppedDuplicates > 0 {
		a.logger.Warn("dropped unmatched regions during merge",
			"geometry_only", report.DroppedGeometryOnly,
			"scores_only", report.DroppedScoresOnly,
			"duplicates", report.DroppedDuplicates,
		)
	}
	return out
}

// input builds the region record. Score-side ID and name win; geometry
// supplies the name and population when the score row has none.
func (s cleanScore) input(g GeometryRow) RegionInput {
	name := s.name
	if name == "" {
		name = strings.TrimSpace(g.RegionName)
	}
	if name == "" {
		name = s.id
	}

	population := s.population
	if population <= 0 {
		population = g.Population
	}
	if population <= 0 {
		population = DefaultPopulation
	}

	return RegionInput{
		RegionID:      s.id,
		RegionName:    name,
		Population:    population,
		Exposure:      Factor(s.e),
		Vulnerability: Factor(s.v),
		Adaptation:    Factor(s.a),
	}
}

// NormalizeRegionID trims and upper-cases a region identifier.
func NormalizeRegionID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

func hasPlaceholderIDs(geo []GeometryRow) bool {
	for _, g := range geo {
		id := strings.TrimSpace(g.RegionID)
		if id != "" && !strings.HasPrefix(strings.ToUpper(id), PlaceholderIDPrefix) {
			return false
		}
	}
	return true
}

func parseScoreRow(s ScoreRow) (cleanScore, bool) {
	id := NormalizeRegionID(s.RegionID)
	if id == "" {
		return cleanScore{}, false
	}
	e, okE := parseFactor(s.Exposure)
	v, okV := parseFactor(s.Vulnerability)
	a, okA := parseFactor(s.Adaptation)
	if !okE || !okV || !okA {
		return cleanScore{}, false
	}
	return cleanScore{
		id:         id,
		name:       strings.TrimSpace(s.RegionName),
		e:          e,
		v:          v,
		a:          a,
		population: parsePopulation(s.Population),
	}, true
}

func parseFactor(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// parsePopulation accepts integer or float text ("12000", "12000.0"); anything else is 0.
func parsePopulation(s string) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(f)
}
