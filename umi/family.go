package umi

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// ErrTooFewRecords is returned when a region has fewer than 5 filtered
// pairs, before any UMI distinctness is considered.
var ErrTooFewRecords = errors.New("too few records to determine UMI distribution")

// ErrTooFewUMIs is returned when a region has fewer than 5 distinct UMI
// information blocks.
var ErrTooFewUMIs = errors.New("too few distinct UMIs to determine distribution")

// Family is a UMI information block together with the number of filtered
// pairs observed with that identity.
type Family struct {
	UMI       string
	Frequency int
}

// Summary records the full UMI abundance landscape for one region,
// independent of which families survived the cutoff.
type Summary struct {
	Cutoff   int            `json:"umi_cut_off"`
	Freq     map[string]int `json:"umi_freq"`
	FreqDist map[int]int    `json:"umi_freq_distribution"`
}

// SelectFamilies bins umis (one entry per filtered pair, duplicates
// expected) by value, computes the abundance cutoff from the rounded mean
// of the top 5 family sizes, and returns the families whose frequency
// exceeds that cutoff (strictly greater than, not >=) along with the full
// distribution summary.
func SelectFamilies(umis []string, errorRate float64) ([]Family, Summary, error) {
	if len(umis) < 5 {
		return nil, Summary{}, ErrTooFewRecords
	}

	counts := make(map[string]int, len(umis))
	for _, u := range umis {
		counts[u]++
	}
	if len(counts) < 5 {
		return nil, Summary{}, ErrTooFewUMIs
	}

	sorted := make([]string, 0, len(counts))
	for u := range counts {
		sorted = append(sorted, u)
	}
	sort.Strings(sorted)

	sizes := make([]int, 0, len(counts))
	for _, u := range sorted {
		sizes = append(sizes, counts[u])
	}
	top5 := append([]int(nil), sizes...)
	sort.Sort(sort.Reverse(sort.IntSlice(top5)))
	top5 = top5[:5]

	top5f := make([]float64, 5)
	for i, v := range top5 {
		top5f[i] = float64(v)
	}
	peak := int(math.Round(stat.Mean(top5f, nil)))

	cutoff := Cutoff(peak, errorRate)

	freqDist := make(map[int]int)
	for _, n := range sizes {
		freqDist[n]++
	}

	var families []Family
	for _, u := range sorted {
		n := counts[u]
		if n > cutoff {
			families = append(families, Family{UMI: u, Frequency: n})
		}
	}

	return families, Summary{Cutoff: cutoff, Freq: counts, FreqDist: freqDist}, nil
}
