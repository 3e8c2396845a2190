// Package report assembles a run's structured results and writes every
// on-disk artifact: per-region FASTQ/FASTA, JSON/CSV summaries, and the
// append-only run log.
package report

import (
	"fmt"
	"time"

	"github.com/grailbio/tcs/encoding/fastq"
	"github.com/grailbio/tcs/params"
	"github.com/grailbio/tcs/qc"
	"github.com/grailbio/tcs/umi"
)

// AdvancedSettings surfaces the logistic-consensus parameters for override
// and whether intermediate per-pair files are retained across reruns.
type AdvancedSettings struct {
	KeepOriginal bool
	Steepness    float64
	Midpoint     float64
}

// DefaultAdvancedSettings matches consensus.DefaultParams.
func DefaultAdvancedSettings() AdvancedSettings {
	return AdvancedSettings{KeepOriginal: false, Steepness: 0.2, Midpoint: 30.0}
}

// WarningKind distinguishes the fixed set of non-fatal conditions a run can
// accumulate. It is deliberately not a closed Go type switch (a plain string
// constant set): new kinds can be added without touching every switch that
// renders one.
type WarningKind string

const (
	WarnR1R2Filtering  WarningKind = "r1r2_filtering"
	WarnUMIDistError   WarningKind = "umi_distribution"
	WarnConsensusError WarningKind = "consensus_error"
)

// Warning is one non-fatal, regionalized event recorded during a run.
type Warning struct {
	Kind    WarningKind
	Region  string
	Message string
}

func (w Warning) String() string {
	switch w.Kind {
	case WarnR1R2Filtering:
		return fmt.Sprintf("R1/R2 filtering warning: %s", w.Message)
	case WarnUMIDistError:
		return fmt.Sprintf("UMI distribution error for region %s: %s", w.Region, w.Message)
	case WarnConsensusError:
		return fmt.Sprintf("encountered error processing region %s for consensus calling, individual consensus aborted, with following error messages: %s", w.Region, w.Message)
	default:
		return w.Message
	}
}

// ConsensusRecord is one UMI family's final state after consensus calling,
// end-joining, and QC/trim. R1Consensus and R2Consensus always exist;
// Joined exists iff end-joining was configured and succeeded; Trimmed
// exists only if QC.Status == qc.Passed and trimming was requested.
type ConsensusRecord struct {
	UMIInformationBlock string
	UMIFamilySize        int
	R1Consensus          fastq.Read
	R2Consensus          fastq.Read
	Joined               *fastq.Read
	QC                   qc.Result
	Trimmed              *fastq.Read
}

// RegionReport is one primer region's full results for a run.
type RegionReport struct {
	RegionName             string
	FilteredReadsForRegion int
	Consensus              []ConsensusRecord
	UMISummary             *umi.Summary
}

// RunReport is the in-memory, programmatically accessible result of one
// orchestrator run. The on-disk tcs_report.json is a smaller, derived
// RunReportSummary (see summary.go); RunReport itself is never serialized.
type RunReport struct {
	ProcessStartTime   time.Time
	ProcessEndTime     time.Time
	CurrentVersion     string
	InputDirectory     string
	AdvancedSettings   AdvancedSettings
	InputParams        params.Params
	TotalReads         int
	FailedMatchReasons []string
	RegionReports      []RegionReport
	Errors             []string
	Warnings           []Warning
}

// NewRunReport starts a report for a run rooted at inputDir.
func NewRunReport(inputDir string, p params.Params, adv AdvancedSettings, version string) *RunReport {
	now := time.Now()
	return &RunReport{
		ProcessStartTime: now,
		CurrentVersion:   version,
		InputDirectory:   inputDir,
		AdvancedSettings: adv,
		InputParams:      p,
	}
}

// IsSuccessful reports whether the run accumulated no fatal errors.
func (r *RunReport) IsSuccessful() bool { return len(r.Errors) == 0 }

func (r *RunReport) AddError(err string)                  { r.Errors = append(r.Errors, err) }
func (r *RunReport) AddFailedMatchReason(reason string)    { r.FailedMatchReasons = append(r.FailedMatchReasons, reason) }
func (r *RunReport) AddWarning(w Warning)                  { r.Warnings = append(r.Warnings, w) }
func (r *RunReport) AddRegionReport(rr RegionReport)       { r.RegionReports = append(r.RegionReports, rr) }

// Finish stamps the end time. Call once all region work has completed.
func (r *RunReport) Finish() { r.ProcessEndTime = time.Now() }
