// Package consensus computes per-UMI-family consensus sequences from
// aligned-length read sets, by one of three column-wise voting strategies.
package consensus

import (
	"math"

	"github.com/pkg/errors"

	"github.com/grailbio/base/traverse"
)

// Strategy selects how each consensus column is resolved.
type Strategy int

const (
	// Weighted uses a logistic transform of each base call's Phred quality
	// score as its vote weight; requires quality strings.
	Weighted Strategy = iota
	// Supermajority requires a base to exceed a configurable fraction of
	// votes in a column, otherwise the column calls 'N'.
	Supermajority
	// SimpleMajority calls the most frequent base in a column, or 'N' on a
	// tie.
	SimpleMajority
)

// Params configures the Weighted strategy's logistic quality transform.
// Steepness and Midpoint mirror an advanced-settings override; the defaults
// (0.2, 30.0) reproduce the fixed constants of a plain quality-weighted
// majority vote.
type Params struct {
	Steepness float64
	Midpoint  float64
}

// DefaultParams returns the standard Weighted-strategy logistic parameters.
func DefaultParams() Params {
	return Params{Steepness: 0.2, Midpoint: 30.0}
}

var (
	// ErrTooFewRecords is returned when fewer than 2 sequences are supplied.
	ErrTooFewRecords = errors.New("at least 2 records are required to compute a consensus")
	// ErrMismatchedLength is returned when the input sequences are not all
	// the same length (callers are expected to have end-joined or padded
	// reads to a common length beforehand).
	ErrMismatchedLength = errors.New("all sequences must be the same length")
	// ErrMissingQuality is returned when the Weighted strategy is requested
	// without quality strings.
	ErrMissingQuality = errors.New("missing quality scores for the weighted strategy")
)

// Result is a computed consensus: Seq always, Qual only for Weighted.
type Result struct {
	Seq  string
	Qual string // Phred+33; empty unless the strategy was Weighted
}

// Call computes a consensus sequence over seqs using strategy. quals is
// required (len(quals) == len(seqs), each the same length as its sequence)
// for Weighted, and ignored otherwise. cutoff is the Supermajority
// threshold, clamped to [0.5, 1.0]; it is ignored by the other strategies.
// Columns are resolved in parallel.
func Call(strategy Strategy, seqs, quals []string, cutoff float64, params Params) (Result, error) {
	if len(seqs) < 2 {
		return Result{}, ErrTooFewRecords
	}
	n := len(seqs[0])
	for _, s := range seqs {
		if len(s) != n {
			return Result{}, ErrMismatchedLength
		}
	}
	if strategy == Weighted {
		if len(quals) != len(seqs) {
			return Result{}, ErrMissingQuality
		}
		for _, q := range quals {
			if len(q) != n {
				return Result{}, ErrMismatchedLength
			}
		}
	}
	if cutoff < 0.5 {
		cutoff = 0.5
	}
	if cutoff > 1.0 {
		cutoff = 1.0
	}

	seqOut := make([]byte, n)
	qualOut := make([]byte, n)
	err := traverse.Each(n, func(i int) error {
		col := make([]byte, len(seqs))
		for r, s := range seqs {
			col[r] = s[i]
		}
		switch strategy {
		case Weighted:
			qcol := make([]byte, len(quals))
			for r, q := range quals {
				qcol[r] = q[i]
			}
			base, qual := weightedColumn(col, qcol, params)
			seqOut[i] = base
			qualOut[i] = qual
		case Supermajority:
			seqOut[i] = supermajorityColumn(col, cutoff)
		default:
			seqOut[i] = simpleMajorityColumn(col)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	res := Result{Seq: string(seqOut)}
	if strategy == Weighted {
		res.Qual = string(qualOut)
	}
	return res, nil
}

// logisticQualityProb maps a Phred quality score to a confidence weight in
// (0, 1) via a logistic curve centered at midpoint with the given
// steepness.
func logisticQualityProb(q, steepness, midpoint float64) float64 {
	return 1.0 / (1.0 + math.Exp(-steepness*(q-midpoint)))
}

const maxConsensusQuality = 60.0

// weightedColumn resolves one column by summing each base's logistic
// quality weight and taking the base with the largest total; ties call 'N'
// at quality '!' (Phred 0).
func weightedColumn(bases, quals []byte, params Params) (byte, byte) {
	weights := make(map[byte]float64, 4)
	for i, b := range bases {
		q := float64(quals[i]) - 33
		weights[b] += logisticQualityProb(q, params.Steepness, params.Midpoint)
	}
	maxWeight := math.Inf(-1)
	for _, w := range weights {
		if w > maxWeight {
			maxWeight = w
		}
	}
	var top byte
	nTop := 0
	for b, w := range weights {
		if math.Abs(w-maxWeight) < 1e-6 {
			top = b
			nTop++
		}
	}
	if nTop != 1 {
		return 'N', '!'
	}

	total := 0.0
	for _, w := range weights {
		total += w
	}
	pError := 1.0
	if total > 0 {
		pError = 1.0 - maxWeight/total
	}
	if pError < 1e-10 {
		pError = 1e-10
	}
	qConsensus := -10.0 * math.Log10(pError)
	if qConsensus > maxConsensusQuality {
		qConsensus = maxConsensusQuality
	}
	return top, byte(math.Round(qConsensus)) + 33
}

// supermajorityColumn returns the base whose count exceeds cutoff of the
// column, or 'N' if none does. Call clamps cutoff to at least 0.5 and the
// comparison is strict, so at most one base can qualify and the result does
// not depend on map iteration order.
func supermajorityColumn(bases []byte, cutoff float64) byte {
	counts := make(map[byte]int, 4)
	for _, b := range bases {
		counts[b]++
	}
	total := float64(len(bases))
	for b, c := range counts {
		if float64(c)/total > cutoff {
			return b
		}
	}
	return 'N'
}

// simpleMajorityColumn returns the most frequent base in the column, or 'N'
// on a tie for the maximum count.
func simpleMajorityColumn(bases []byte) byte {
	counts := make(map[byte]int, 4)
	for _, b := range bases {
		counts[b]++
	}
	maxCount := 0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}
	var top byte
	nTop := 0
	for b, c := range counts {
		if c == maxCount {
			top = b
			nTop++
		}
	}
	if nTop != 1 {
		return 'N'
	}
	return top
}
