package report

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/grailbio/tcs/qc"
)

// RegionReportSummary is the derived, serialized view of one RegionReport.
type RegionReportSummary struct {
	RegionName             string  `json:"region_name"`
	FilteredReadsForRegion int     `json:"filtered_reads_for_region"`
	PassedUMIs             int     `json:"passed_umis"`
	TCSNumber              int     `json:"tcs_number"`
	UMICutOff              *int    `json:"umi_cut_off,omitempty"`
	DistinctToRawRatio     *float64 `json:"distinct_to_raw_ratio,omitempty"`
	ResamplingIndex        *float64 `json:"resampling_index,omitempty"`
	JoinedTCSNumber        int     `json:"joined_tcs_number"`
	TCSPassedQCNumber      int     `json:"tcs_passed_qc_number"`
}

// fromRegionReport derives a RegionReportSummary. distinct_to_raw_ratio and
// resampling_index are only computable once UMI selection has produced at
// least one passed family.
func fromRegionReport(rr RegionReport) RegionReportSummary {
	s := RegionReportSummary{
		RegionName:             rr.RegionName,
		FilteredReadsForRegion: rr.FilteredReadsForRegion,
		TCSNumber:              len(rr.Consensus),
	}
	for _, c := range rr.Consensus {
		if c.Joined != nil {
			s.JoinedTCSNumber++
		}
		if c.QC.Status == qc.Passed {
			s.TCSPassedQCNumber++
		}
	}
	if rr.UMISummary != nil {
		cutoff := rr.UMISummary.Cutoff
		s.UMICutOff = &cutoff

		passed := 0
		for _, n := range rr.UMISummary.Freq {
			if n > cutoff {
				passed++
			}
		}
		s.PassedUMIs = passed
		if rr.FilteredReadsForRegion > 0 {
			ratio := float64(passed) / float64(rr.FilteredReadsForRegion)
			s.DistinctToRawRatio = &ratio
		} else {
			zero := 0.0
			s.DistinctToRawRatio = &zero
		}
		if passed > 0 {
			idx := float64(s.TCSNumber) / float64(passed)
			s.ResamplingIndex = &idx
		}
	}
	return s
}

// RunReportSummary is the RegionReportSummary-shaped view of a run: the
// on-disk tcs_report.json shape, not the full in-memory RunReport.
type RunReportSummary struct {
	ProcessStartTime time.Time              `json:"process_start_time"`
	ProcessEndTime   time.Time              `json:"process_end_time"`
	CurrentVersion   string                 `json:"current_version"`
	InputDirectory   string                 `json:"input_directory"`
	AdvancedSettings AdvancedSettings       `json:"advanced_settings"`
	TotalReads       int                    `json:"total_reads"`
	Warnings         []string               `json:"warnings"`
	RegionSummaries  []RegionReportSummary  `json:"region_summaries"`
}

// FromRunReport derives the serializable summary from a full run report.
func FromRunReport(r *RunReport) RunReportSummary {
	s := RunReportSummary{
		ProcessStartTime: r.ProcessStartTime,
		ProcessEndTime:   r.ProcessEndTime,
		CurrentVersion:   r.CurrentVersion,
		InputDirectory:   r.InputDirectory,
		AdvancedSettings: r.AdvancedSettings,
		TotalReads:       r.TotalReads,
	}
	for _, w := range r.Warnings {
		s.Warnings = append(s.Warnings, w.String())
	}
	for _, rr := range r.RegionReports {
		s.RegionSummaries = append(s.RegionSummaries, fromRegionReport(rr))
	}
	return s
}

// csvHeader is tcs_report_summary.csv's fixed column order.
var csvHeader = []string{
	"lib_name",
	"region_name",
	"total_reads",
	"filtered_reads_for_region",
	"passed_umis",
	"tcs_number",
	"umi_cut_off",
	"distinct_to_raw_ratio",
	"resampling_index",
	"joined_tcs_number",
	"tcs_passed_qc_number",
}

// csvRows renders one row per region, in RegionSummaries order
// (orchestrator.Run sorts region reports by region name).
func (s RunReportSummary) csvRows() [][]string {
	libName := filepath.Base(s.InputDirectory)
	rows := make([][]string, 0, len(s.RegionSummaries))
	for _, rs := range s.RegionSummaries {
		rows = append(rows, []string{
			libName,
			rs.RegionName,
			fmt.Sprintf("%d", s.TotalReads),
			fmt.Sprintf("%d", rs.FilteredReadsForRegion),
			fmt.Sprintf("%d", rs.PassedUMIs),
			fmt.Sprintf("%d", rs.TCSNumber),
			intPtrString(rs.UMICutOff),
			floatPtrString(rs.DistinctToRawRatio),
			floatPtrString(rs.ResamplingIndex),
			fmt.Sprintf("%d", rs.JoinedTCSNumber),
			fmt.Sprintf("%d", rs.TCSPassedQCNumber),
		})
	}
	return rows
}

func intPtrString(p *int) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%d", *p)
}

func floatPtrString(p *float64) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%.4f", *p)
}
