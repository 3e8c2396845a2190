package report

import (
	"context"
	"path"
)

// WriteRun writes every top-level and per-region artifact for a completed
// run: tcs_params.json, tcs_report.json, tcs_report_summary.csv,
// raw_sequence_invalid_reasons.csv, and each region's files.
func WriteRun(ctx context.Context, outputRoot string, r *RunReport) error {
	if err := ensureDir(outputRoot); err != nil {
		return err
	}
	if err := writeJSON(ctx, path.Join(outputRoot, "tcs_params.json"), r.InputParams); err != nil {
		return err
	}

	summary := FromRunReport(r)
	if err := writeJSON(ctx, path.Join(outputRoot, "tcs_report.json"), summary); err != nil {
		return err
	}
	if err := WriteReportSummaryCSV(ctx, outputRoot, summary); err != nil {
		return err
	}
	if err := WriteRawSequenceInvalidReasonsCSV(ctx, outputRoot, r.FailedMatchReasons); err != nil {
		return err
	}
	for _, rr := range r.RegionReports {
		if err := WriteRegionFiles(ctx, outputRoot, rr); err != nil {
			return err
		}
	}
	return nil
}
