package params

import (
	"regexp"

	"github.com/pkg/errors"

	"github.com/grailbio/tcs/iupac"
	"github.com/grailbio/tcs/refdata"
	"github.com/grailbio/tcs/umi"
)

// leadingNRunRe locates the first run of 3 or more N's anywhere in a forward
// primer, dropping any adapter sequence that precedes it.
var leadingNRunRe = regexp.MustCompile(`N{3,}`)

// Validation error sentinels, matching the taxonomy fixed names so callers
// can distinguish kinds with errors.Is/errors.As rather than string match.
var (
	ErrInvalidErrorRate        = errors.New("platform error rate out of supported range [0, 0.1]")
	ErrShortBiologicalPrimer   = errors.New("biological primer sequence too short, must be at least 6 characters long")
	ErrEmptySequence           = errors.New("empty primer sequence")
	ErrInvalidNucleotideWord   = errors.New("invalid nucleotide word, must use IUPAC alphabet")
	ErrInvalidEndJoinOption    = errors.New("invalid end-join option, must be between 1 and 4")
	ErrInvalidQCCoordinates    = errors.New("invalid reference genome QC coordinates")
	ErrQCCoordinatesNotGiven   = errors.New("TCS QC enabled but no reference coordinates provided for start or end")
	ErrTrimCoordinatesNotGiven = errors.New("trimming enabled but reference coordinates not provided")
	ErrInvalidTrimCoordinates  = errors.New("invalid trim reference coordinates")
	ErrTrimOutsideQC           = errors.New("trim window falls outside the configured QC window")
	ErrNoUMIInCDNAPrimer       = errors.New("no UMI found in cDNA primer")
)

// ForwardMatching is the parsed split of a forward primer into its leading-N
// prefix and biological remainder.
type ForwardMatching struct {
	Forward        string
	LeadingNNumber int
	BioForward     string
}

// CDNAMatching is the parsed split of a cDNA primer into its UMI layout and
// biological remainder.
type CDNAMatching struct {
	CDNA    string
	UMI     umi.UMI
	BioCDNA string
}

// Range is a half-open [Start, End) reference coordinate range.
type Range struct {
	Start, End int
}

func (r Range) Contains(x int) bool {
	return x >= r.Start && x < r.End
}

// QcConfig is a validated region's QC window, or nil if QC is not enabled.
type QcConfig struct {
	Reference string
	Start     *Range
	End       *Range
	Indel     bool
}

// TrimConfig is a validated region's trim window, or nil if trimming is not
// enabled.
type TrimConfig struct {
	Reference string
	Start     int
	End       int
}

// ValidatedRegionParams is one region's configuration after validation.
type ValidatedRegionParams struct {
	PlatformErrorRate float64
	PlatformFormat    int
	Region            string
	ForwardMatching   ForwardMatching
	CDNAMatching      CDNAMatching
	Majority          float64
	EndJoin           bool
	EndJoinOption     int
	Overlap           int
	TcsQC             bool
	QcConfig          *QcConfig
	Trim              bool
	TrimConfig        *TrimConfig
}

// ValidatedParams is the full, immutable, region-keyed configuration.
type ValidatedParams struct {
	PrimerPairs []ValidatedRegionParams
}

// Region looks up a validated region by name.
func (v ValidatedParams) Region(name string) (ValidatedRegionParams, bool) {
	for _, r := range v.PrimerPairs {
		if r.Region == name {
			return r, true
		}
	}
	return ValidatedRegionParams{}, false
}

// Validate enforces every invariant in the parameter model and produces an
// immutable, region-keyed configuration. Region declaration order in
// PrimerPairs is preserved; it is the deterministic tie-break used by the
// primer de-multiplexer when multiple regions share near-identical primers.
func (p Params) Validate() (ValidatedParams, error) {
	if p.PlatformErrorRate < 0 || p.PlatformErrorRate > 0.1 {
		return ValidatedParams{}, errors.Wrapf(ErrInvalidErrorRate, "got %v", p.PlatformErrorRate)
	}

	var out ValidatedParams
	for _, rp := range p.PrimerPairs {
		v, err := validateRegion(rp, p.PlatformErrorRate, p.PlatformFormat)
		if err != nil {
			return ValidatedParams{}, errors.Wrapf(err, "region %q", rp.Region)
		}
		out.PrimerPairs = append(out.PrimerPairs, v)
	}
	return out, nil
}

func validateRegion(rp RegionParams, errorRate float64, platformFormat int) (ValidatedRegionParams, error) {
	fwd, err := ValidateForwardPrimer(rp.Forward)
	if err != nil {
		return ValidatedRegionParams{}, err
	}
	cdna, err := ValidateCDNAPrimer(rp.CDNA)
	if err != nil {
		return ValidatedRegionParams{}, err
	}
	if rp.EndJoinOption < 1 || rp.EndJoinOption > 4 {
		return ValidatedRegionParams{}, errors.Wrapf(ErrInvalidEndJoinOption, "got %d", rp.EndJoinOption)
	}

	v := ValidatedRegionParams{
		PlatformErrorRate: errorRate,
		PlatformFormat:    platformFormat,
		Region:            rp.Region,
		ForwardMatching:   fwd,
		CDNAMatching:      cdna,
		Majority:          rp.Majority,
		EndJoin:           rp.EndJoin,
		EndJoinOption:     rp.EndJoinOption,
		Overlap:           rp.Overlap,
		TcsQC:             rp.TcsQC,
		Trim:              rp.Trim,
	}

	if rp.TcsQC {
		refGenome := refdata.Resolve(rp.RefGenome)
		start := processQCRefNumber(rp.RefStart, rp.RefStartLower)
		end := processQCRefNumber(rp.RefEnd, rp.RefEndLower)
		if start == nil && end == nil {
			return ValidatedRegionParams{}, ErrQCCoordinatesNotGiven
		}
		if start != nil && end != nil && start.End >= end.Start {
			return ValidatedRegionParams{}, errors.Wrapf(ErrInvalidQCCoordinates, "start=%v end=%v", *start, *end)
		}
		v.QcConfig = &QcConfig{Reference: refGenome, Start: start, End: end, Indel: rp.Indel}
	}

	if rp.Trim {
		refGenome := refdata.Resolve(rp.RefGenome)
		if rp.TrimRefStart == nil || rp.TrimRefEnd == nil {
			return ValidatedRegionParams{}, ErrTrimCoordinatesNotGiven
		}
		start, end := *rp.TrimRefStart, *rp.TrimRefEnd
		if start >= end {
			return ValidatedRegionParams{}, errors.Wrapf(ErrInvalidTrimCoordinates, "start=%d end=%d", start, end)
		}
		if v.QcConfig != nil {
			if !qcWindowContains(v.QcConfig, start, end) {
				return ValidatedRegionParams{}, ErrTrimOutsideQC
			}
		}
		v.TrimConfig = &TrimConfig{Reference: refGenome, Start: start, End: end}
	}

	return v, nil
}

// qcWindowContains reports whether [start, end) falls within the region
// spanned by the QC window's configured sides.
func qcWindowContains(qc *QcConfig, start, end int) bool {
	lo, hi := start, end
	if qc.Start != nil && start < qc.Start.Start {
		lo = qc.Start.Start
	}
	if qc.End != nil && end > qc.End.End {
		hi = qc.End.End
	}
	return lo == start && hi == end
}

// processQCRefNumber mirrors the original's process_qc_ref_number: a single
// coordinate n1 with no lower bound becomes the unit range [n1, n1+1); n1
// with a lower bound n2 becomes [n1, n2) if n1 < n2, else no range; n1 == 0
// means "not configured".
func processQCRefNumber(n1 int, n2 *int) *Range {
	if n1 == 0 {
		return nil
	}
	if n2 != nil {
		if n1 < *n2 {
			return &Range{Start: n1, End: *n2}
		}
		return nil
	}
	return &Range{Start: n1, End: n1 + 1}
}

// ValidateNucleotideWord checks seq is non-empty and every byte is a valid
// IUPAC code.
func ValidateNucleotideWord(seq string) error {
	if seq == "" {
		return ErrEmptySequence
	}
	if !iupac.ValidWord(seq) {
		return errors.Wrapf(ErrInvalidNucleotideWord, "%q", seq)
	}
	return nil
}

// ValidateForwardPrimer locates the first run of 3 or more N's anywhere in
// seq and splits it into that run's length and the biological remainder
// after it, requiring the remainder be at least 6 characters. Any adapter
// sequence preceding the N run (e.g. an Illumina adapter prefix) is
// dropped along with it.
func ValidateForwardPrimer(seq string) (ForwardMatching, error) {
	if err := ValidateNucleotideWord(seq); err != nil {
		return ForwardMatching{}, err
	}
	leading := 0
	bioForward := seq
	if loc := leadingNRunRe.FindStringIndex(seq); loc != nil {
		leading = loc[1] - loc[0]
		bioForward = seq[loc[1]:]
	}
	if len(bioForward) < 6 {
		return ForwardMatching{}, ErrShortBiologicalPrimer
	}
	return ForwardMatching{Forward: seq, LeadingNNumber: leading, BioForward: bioForward}, nil
}

// ValidateCDNAPrimer locates the UMI layout within seq and requires the
// biological remainder after the UMI block be at least 6 characters.
func ValidateCDNAPrimer(seq string) (CDNAMatching, error) {
	if err := ValidateNucleotideWord(seq); err != nil {
		return CDNAMatching{}, err
	}
	u, err := umi.Identify(seq)
	if err != nil {
		return CDNAMatching{}, errors.Wrapf(ErrNoUMIInCDNAPrimer, "%q", seq)
	}
	bioCDNA := seq[u.End:]
	if len(bioCDNA) < 6 {
		return CDNAMatching{}, ErrShortBiologicalPrimer
	}
	return CDNAMatching{CDNA: seq, UMI: u, BioCDNA: bioCDNA}, nil
}
