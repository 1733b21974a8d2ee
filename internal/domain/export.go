package domain

import "strconv"

// RescueReportHeader names the columns of the rescue report export.
var RescueReportHeader = []string{
	"region_id", "region_name", "resilience_index", "category",
	"danger_count", "safe_count", "danger_pct",
	"exposure", "vulnerability", "adaptation",
}

// RescueReportRows renders every region of the evaluation as one row under
// RescueReportHeader, in evaluation order.
func (e Evaluation) RescueReportRows() [][]string {
	rows := make([][]string, len(e.Regions))
	for i, r := range e.Regions {
		rows[i] = []string{
			r.RegionID,
			r.RegionName,
			formatFixed(r.ResilienceIndex),
			string(r.Category),
			strconv.Itoa(r.Reports.DangerCount),
			strconv.Itoa(r.Reports.SafeCount),
			formatFixed(r.Reports.DangerRatio * 100),
			formatFixed(r.Exposure),
			formatFixed(r.Vulnerability),
			formatFixed(r.Adaptation),
		}
	}
	return rows
}

// RescueReportFilename is the download name for an export at the given severity.
func RescueReportFilename(severity int) string {
	return "rescue_report_cyclone" + strconv.Itoa(severity) + ".csv"
}

func formatFixed(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
