package qc

import (
	"github.com/pkg/errors"

	"github.com/grailbio/tcs/params"
)

// Status is the outcome of running QC on one joined contig.
type Status int

const (
	// Uninitialized means QC has not yet run for this record.
	Uninitialized Status = iota
	// NoJoined means end-joining never produced a contig to check.
	NoJoined
	// NotRequired means the region has no QC window configured.
	NotRequired
	// Passed means the contig satisfied every configured side and the
	// indel rule.
	Passed
	// NotPassed means QC ran but the contig failed; Report explains why.
	NotPassed
	// LocatorError means the locator call or trim coordinate mapping
	// failed; Err explains why.
	LocatorError
)

// FailureReport records both the configured QC window and what the locator
// actually observed, for a NotPassed result.
type FailureReport struct {
	ConfiguredStart *params.Range
	ConfiguredEnd   *params.Range
	IndelAllowed    bool
	ObservedStart   int
	ObservedEnd     int
	ObservedIndel   bool
}

// Result is the outcome of Evaluate.
type Result struct {
	Status Status
	Report *FailureReport
	Err    error
}

// Evaluate applies cfg's QC predicate to one locator alignment. cfg == nil
// means the region has no QC window configured (NotRequired).
func Evaluate(cfg *params.QcConfig, lr *LocatorResult) Result {
	if cfg == nil || (cfg.Start == nil && cfg.End == nil) {
		return Result{Status: NotRequired}
	}

	startOK := cfg.Start == nil || cfg.Start.Contains(lr.RefStart)
	endOK := cfg.End == nil || cfg.End.Contains(lr.RefEnd)
	indelOK := cfg.Indel || !lr.Indel

	if startOK && endOK && indelOK {
		return Result{Status: Passed}
	}
	return Result{Status: NotPassed, Report: &FailureReport{
		ConfiguredStart: cfg.Start,
		ConfiguredEnd:   cfg.End,
		IndelAllowed:    cfg.Indel,
		ObservedStart:   lr.RefStart,
		ObservedEnd:     lr.RefEnd,
		ObservedIndel:   lr.Indel,
	}}
}

// TrimResult is a trimmed contig together with the index range in the
// original ungapped query it came from, so callers can slice a parallel
// quality string without re-aligning.
type TrimResult struct {
	Seq             string
	QueryStartIndex int
	QueryEndIndex   int
}

// Trim cuts lr's aligned query down to cfg's reference window. It requires
// QC to have already passed; callers must not call Trim on a NotPassed or
// NotRequired result.
func Trim(cfg *params.TrimConfig, lr *LocatorResult) (TrimResult, error) {
	g1, err := leftGapOffset(lr.RefAligned, lr.RefStart, cfg.Start)
	if err != nil {
		return TrimResult{}, errors.Wrap(err, "locating trim start")
	}
	g2, err := rightGapOffset(lr.RefAligned, lr.RefEnd, cfg.End)
	if err != nil {
		return TrimResult{}, errors.Wrap(err, "locating trim end")
	}
	n := len(lr.RefAligned)
	if g1+g2 > n {
		return TrimResult{}, errors.Errorf("trim window overflows aligned length: g1=%d g2=%d aligned_len=%d", g1, g2, n)
	}

	aligned := lr.QueryAligned
	window := aligned[g1 : len(aligned)-g2]
	return TrimResult{
		Seq:             stripGaps(window),
		QueryStartIndex: ungappedIndex(aligned, g1),
		QueryEndIndex:   ungappedIndex(aligned, len(aligned)-g2),
	}, nil
}

// leftGapOffset returns the number of aligned-string positions, counting
// gaps, to skip from the left before the reference coordinate reaches
// trimStart.
func leftGapOffset(refAligned string, refStart, trimStart int) (int, error) {
	pos := refStart
	for i := 0; i < len(refAligned); i++ {
		if pos == trimStart {
			return i, nil
		}
		if refAligned[i] != '-' {
			pos++
		}
	}
	if pos == trimStart {
		return len(refAligned), nil
	}
	return 0, errors.Errorf("trim_start %d not reached (aligned reference ends at %d)", trimStart, pos)
}

// rightGapOffset is the symmetric walk from the right end toward trimEnd.
func rightGapOffset(refAligned string, refEnd, trimEnd int) (int, error) {
	pos := refEnd
	for i := len(refAligned) - 1; i >= 0; i-- {
		if pos == trimEnd {
			return len(refAligned) - 1 - i, nil
		}
		if refAligned[i] != '-' {
			pos--
		}
	}
	if pos == trimEnd {
		return len(refAligned), nil
	}
	return 0, errors.Errorf("trim_end %d not reached (aligned reference starts at %d)", trimEnd, pos)
}

func stripGaps(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '-' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

// ungappedIndex counts the non-gap characters in s[:alignedIdx], i.e. maps
// an index into the gapped alignment to an index into the ungapped query.
func ungappedIndex(s string, alignedIdx int) int {
	count := 0
	for i := 0; i < alignedIdx && i < len(s); i++ {
		if s[i] != '-' {
			count++
		}
	}
	return count
}
