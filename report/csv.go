package report

import (
	"context"
	"encoding/csv"
	"path"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/pkg/errors"
)

func writeCSV(ctx context.Context, p string, header []string, rows [][]string) error {
	f, err := file.Create(ctx, p)
	if err != nil {
		return errors.Wrapf(err, "creating %s", p)
	}
	w := csv.NewWriter(f.Writer(ctx))
	if err := w.Write(header); err != nil {
		f.Close(ctx)
		return errors.Wrapf(err, "writing %s header", p)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			f.Close(ctx)
			return errors.Wrapf(err, "writing %s row", p)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close(ctx)
		return errors.Wrapf(err, "flushing %s", p)
	}
	return f.Close(ctx)
}

// WriteReportSummaryCSV writes tcs_report_summary.csv: one row per region.
func WriteReportSummaryCSV(ctx context.Context, outputRoot string, s RunReportSummary) error {
	return writeCSV(ctx, path.Join(outputRoot, "tcs_report_summary.csv"), csvHeader, s.csvRows())
}

// failureReason is one (main, sub) category pair a raw pair's rejection
// reason is classified into, for raw_sequence_invalid_reasons.csv's
// two-level tabulation.
type failureReason struct {
	Main string
	Sub  string
}

// classifyFailureReason buckets a demux rejection reason string into a
// (main, sub) pair. The category names are this module's own invention:
// the original tabulation function's body never appears in the filtered
// source pack, only its call site and output shape (one main category
// summing several sub-category counts).
func classifyFailureReason(reason string) failureReason {
	switch {
	case strings.Contains(reason, "header mismatch"):
		return failureReason{"structural", "header_mismatch"}
	case strings.Contains(reason, "empty"):
		return failureReason{"structural", "empty_record"}
	case strings.Contains(reason, "shorter than platform format"):
		return failureReason{"length", "short_read"}
	case strings.Contains(reason, "general filter") || strings.Contains(reason, "homopolymer") || strings.Contains(reason, "N bases"):
		return failureReason{"quality", "general_filter"}
	case strings.Contains(reason, "R1 matches but R2 does not"):
		return failureReason{"primer", "r2_mismatch"}
	case strings.Contains(reason, "R2 matches but R1 does not"):
		return failureReason{"primer", "r1_mismatch"}
	case strings.Contains(reason, "neither R1 nor R2 matched"):
		return failureReason{"primer", "no_match"}
	case strings.Contains(reason, "cross-region mismatch"):
		return failureReason{"primer", "cross_region"}
	default:
		return failureReason{"other", reason}
	}
}

// WriteRawSequenceInvalidReasonsCSV tabulates reasons into
// raw_sequence_invalid_reasons.csv, with count_sub per (main, sub) pair and
// count_main summed across every sub-category sharing a main category.
func WriteRawSequenceInvalidReasonsCSV(ctx context.Context, outputRoot string, reasons []string) error {
	subCounts := make(map[failureReason]int)
	mainCounts := make(map[string]int)
	var order []failureReason
	for _, reason := range reasons {
		fr := classifyFailureReason(reason)
		if _, ok := subCounts[fr]; !ok {
			order = append(order, fr)
		}
		subCounts[fr]++
		mainCounts[fr.Main]++
	}

	header := []string{"main_category", "sub_category", "count_sub", "count_main"}
	var rows [][]string
	for _, fr := range order {
		rows = append(rows, []string{
			fr.Main,
			fr.Sub,
			strconv.Itoa(subCounts[fr]),
			strconv.Itoa(mainCounts[fr.Main]),
		})
	}
	return writeCSV(ctx, path.Join(outputRoot, "raw_sequence_invalid_reasons.csv"), header, rows)
}
