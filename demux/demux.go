// Package demux de-multiplexes paired-end FASTQ reads into per-region
// filtered pairs by matching each pair's forward and cDNA primers against
// every configured region in declaration order.
package demux

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/grailbio/tcs/biosimd"
	"github.com/grailbio/tcs/encoding/fastq"
	"github.com/grailbio/tcs/iupac"
	"github.com/grailbio/tcs/params"
	"github.com/grailbio/tcs/umi"
)

var (
	// ErrEmptyRecord is returned when either read of a pair has an empty
	// sequence.
	ErrEmptyRecord = errors.New("empty fastq record")
	// ErrHeaderMismatch is returned when the R1/R2 header tokens disagree.
	ErrHeaderMismatch = errors.New("R1/R2 header mismatch")
	// ErrInvalidReadLength is returned when a read is shorter than the
	// configured platform format length.
	ErrInvalidReadLength = errors.New("read shorter than platform format")
)

// maxMismatches is the primer-match tolerance: fewer than 3 IUPAC mismatches
// between the observed and expected primer region counts as a match.
const maxMismatches = 3

// generalFilterRe flags N content or homopolymer runs of 11 or more bases,
// a cheap quality proxy applied before primer matching.
var generalFilterRe = regexp.MustCompile(`N|A{11,}|C{11,}|T{11,}|G{11,}`)

// generalFilterSkip is the number of leading R1 bases exempt from the general
// filter: the platform's first positions carry no biological information
// and may legitimately be N. R2 is checked from its first base.
const generalFilterSkip = 4

// FilteredPair is a read pair that matched one configured region's primers,
// trimmed of its primer sequence and ready for UMI-family binning.
type FilteredPair struct {
	Region   string
	UMI      umi.UMI
	UMIBlock string // the observed UMI bases at UMI.InformationIndex within R2
	R1, R2   fastq.Read
}

// FilterPair matches one read pair against every region in cfg, in
// declaration order, returning the first region whose forward and cDNA
// primers both match. If no region matches, only one side of a pair
// matches, or R1 and R2 match only different regions, ok is false and
// reason explains why.
func FilterPair(r1, r2 fastq.Read, cfg params.ValidatedParams) (pair FilteredPair, ok bool, reason string, err error) {
	if err := validatePair(r1, r2); err != nil {
		return FilteredPair{}, false, err.Error(), nil
	}

	if len(cfg.PrimerPairs) == 0 {
		return FilteredPair{}, false, "no configured regions", nil
	}
	platformFormat := cfg.PrimerPairs[0].PlatformFormat
	if len(r1.Seq) < platformFormat || len(r2.Seq) < platformFormat {
		return FilteredPair{}, false, "", errors.Wrapf(ErrInvalidReadLength,
			"platform format %d, r1 len %d, r2 len %d", platformFormat, len(r1.Seq), len(r2.Seq))
	}
	r1t := truncate(r1, platformFormat-1)
	r2t := truncate(r2, platformFormat-1)

	if msg, bad := generalFilter(r1t.Seq, r2t.Seq); bad {
		return FilteredPair{}, false, msg, nil
	}

	var r1Regions, r2Regions []string
	for _, region := range cfg.PrimerPairs {
		r1Out, r1ok := matchR1(r1t, region.ForwardMatching)
		r2Out, r2u, r2umiBlock, r2ok := matchR2(r2t, region.CDNAMatching)
		if r1ok {
			r1Regions = append(r1Regions, region.Region)
		}
		if r2ok {
			r2Regions = append(r2Regions, region.Region)
		}
		if r1ok && r2ok {
			r2Out = reverseComplement(r2Out)
			return FilteredPair{
				Region:   region.Region,
				UMI:      r2u,
				UMIBlock: r2umiBlock,
				R1:       r1Out,
				R2:       r2Out,
			}, true, "", nil
		}
	}

	switch {
	case len(r1Regions) > 0 && len(r2Regions) > 0:
		return FilteredPair{}, false, "cross-region mismatch: R1 matches " + strings.Join(r1Regions, ",") + ", R2 matches " + strings.Join(r2Regions, ","), nil
	case len(r1Regions) > 0:
		return FilteredPair{}, false, "R1 matches but R2 does not", nil
	case len(r2Regions) > 0:
		return FilteredPair{}, false, "R2 matches but R1 does not", nil
	default:
		return FilteredPair{}, false, "neither R1 nor R2 matched any region", nil
	}
}

// ValidatePair exposes the structural pre-check (non-empty, matching
// headers) so callers can gate cheaper short-circuits on it before running
// the full FilterPair match.
func ValidatePair(r1, r2 fastq.Read) error {
	return validatePair(r1, r2)
}

func validatePair(r1, r2 fastq.Read) error {
	if r1.Seq == "" || r2.Seq == "" {
		return ErrEmptyRecord
	}
	h1 := firstToken(r1.ID)
	h2 := firstToken(r2.ID)
	if h1 == "" || h2 == "" || h1 != h2 {
		return errors.Wrapf(ErrHeaderMismatch, "r1=%q r2=%q", h1, h2)
	}
	return nil
}

func firstToken(id string) string {
	id = strings.TrimPrefix(id, "@")
	fields := strings.Fields(id)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func truncate(r fastq.Read, n int) fastq.Read {
	r.Seq = r.Seq[:n]
	if len(r.Qual) >= n {
		r.Qual = r.Qual[:n]
	}
	return r
}

// GeneralFilterVerdict exposes the general quality gate on its own so
// callers can memoize it by raw prefix before paying for a full FilterPair
// call (repeated PCR duplicates share the same leading bases).
func GeneralFilterVerdict(r1Trunc, r2Trunc string) (reason string, bad bool) {
	return generalFilter(r1Trunc, r2Trunc)
}

// generalFilter reports whether either trimmed sequence fails the N/
// homopolymer filter, and a human-readable reason if so.
func generalFilter(r1Seq, r2Seq string) (reason string, bad bool) {
	r1Body := r1Seq
	if len(r1Body) > generalFilterSkip {
		r1Body = r1Body[generalFilterSkip:]
	}
	r1Bad := generalFilterRe.MatchString(r1Body)
	r2Bad := generalFilterRe.MatchString(r2Seq)
	switch {
	case r1Bad && r2Bad:
		return "general filter (N content or long homopolymers) failed for both R1 and R2", true
	case r1Bad:
		return "general filter (N content or long homopolymers) failed for R1", true
	case r2Bad:
		return "general filter (N content or long homopolymers) failed for R2", true
	default:
		return "", false
	}
}

// matchR1 checks the leading-N-stripped prefix of r against the region's
// biological forward primer, returning the remainder trimmed of primer.
func matchR1(r fastq.Read, fm params.ForwardMatching) (fastq.Read, bool) {
	leading := fm.LeadingNNumber
	end := leading + len(fm.BioForward)
	if end > len(r.Seq) {
		return fastq.Read{}, false
	}
	observed := r.Seq[leading:end]
	if iupac.MismatchCount(observed, fm.BioForward) >= maxMismatches {
		return fastq.Read{}, false
	}
	return fastq.Read{ID: r.ID, Seq: r.Seq[end:], Unk: r.Unk, Qual: qualSlice(r.Qual, end, len(r.Seq))}, true
}

// matchR2 checks the cDNA primer against the UMI-block-prefixed read,
// returning the remainder trimmed of UMI block and primer, the UMI
// descriptor bound to this read's observed bases, and the UMI's information
// block content.
func matchR2(r fastq.Read, cm params.CDNAMatching) (fastq.Read, umi.UMI, string, bool) {
	umiLen := len(cm.UMI.Block)
	primerEnd := umiLen + len(cm.BioCDNA)
	if primerEnd > len(r.Seq) {
		return fastq.Read{}, umi.UMI{}, "", false
	}
	umiBlock := r.Seq[:umiLen]
	observedPrimer := r.Seq[umiLen:primerEnd]
	if iupac.MismatchCount(observedPrimer, cm.BioCDNA) >= maxMismatches {
		return fastq.Read{}, umi.UMI{}, "", false
	}
	observedUMI := umi.UMI{
		Layout:           cm.UMI.Layout,
		Block:            umiBlock,
		InformationIndex: cm.UMI.InformationIndex,
		Start:            cm.UMI.Start,
		End:              cm.UMI.End,
	}
	out := fastq.Read{ID: r.ID, Seq: r.Seq[primerEnd:], Unk: r.Unk, Qual: qualSlice(r.Qual, primerEnd, len(r.Seq))}
	return out, observedUMI, observedUMI.ExtractBlock(umiBlock), true
}

func qualSlice(qual string, start, end int) string {
	if len(qual) < end {
		return ""
	}
	return qual[start:end]
}

// reverseComplement returns r with its sequence reverse-complemented and its
// quality string reversed to match, per the requirement that R2 is stored in
// the same orientation as R1's template strand.
func reverseComplement(r fastq.Read) fastq.Read {
	seq := make([]byte, len(r.Seq))
	biosimd.ReverseComp8NoValidate(seq, []byte(r.Seq))
	qual := []byte(r.Qual)
	for i, j := 0, len(qual)-1; i < j; i, j = i+1, j-1 {
		qual[i], qual[j] = qual[j], qual[i]
	}
	r.Seq = string(seq)
	r.Qual = string(qual)
	return r
}
