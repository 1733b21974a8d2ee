package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/couchcryptid/island-resilience-service/internal/domain"
)

var requiredColumns = []string{"region_id", "exposure", "vulnerability", "adaptation"}

// LoadScores reads the factor table from a CSV file with a header row.
func LoadScores(path string) ([]domain.ScoreRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scores %s: %w", path, err)
	}
	defer f.Close()

	rows, err := ReadScores(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// ReadScores parses factor rows from r. A header missing any of region_id,
// exposure, vulnerability or adaptation is a schema error; region_name and
// population are optional. Cell values are returned as trimmed text.
func ReadScores(r io.Reader) ([]domain.ScoreRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: scores table has no header", domain.ErrSchema)
	}
	if err != nil {
		return nil, fmt.Errorf("read scores header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: scores table missing columns %s", domain.ErrSchema, strings.Join(missing, ", "))
	}

	cell := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []domain.ScoreRow
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read scores row: %w", err)
		}
		rows = append(rows, domain.ScoreRow{
			RegionID:      cell(rec, "region_id"),
			RegionName:    cell(rec, "region_name"),
			Exposure:      cell(rec, "exposure"),
			Vulnerability: cell(rec, "vulnerability"),
			Adaptation:    cell(rec, "adaptation"),
			Population:    cell(rec, "population"),
		})
	}
	return rows, nil
}
