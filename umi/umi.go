// Package umi recognizes Unique Molecular Identifier layouts embedded in
// primer sequences and selects the UMI families that survive an
// abundance-cutoff filter.
package umi

import (
	"regexp"

	"github.com/pkg/errors"
)

// Layout is the shape of UMI embedded in a primer.
type Layout int

const (
	// Plain is a single contiguous run of N of length >= 8.
	Plain Layout = iota
	// Patterned is 2-5 N-blocks of length 3-4 separated by non-N spacers of
	// length 2-3.
	Patterned
)

func (l Layout) String() string {
	if l == Patterned {
		return "patterned"
	}
	return "plain"
}

var (
	plainRe     = regexp.MustCompile(`N{8,}`)
	patternedRe = regexp.MustCompile(`(N{3,4}[^N]{2,3}){2,5}N{3,4}`)

	// ErrNoUMI is returned when neither layout matches the primer string.
	ErrNoUMI = errors.New("no UMI found")
	// ErrAmbiguousUMI is returned when more than one plain run is found and
	// the patterned layout also fails to match.
	ErrAmbiguousUMI = errors.New("more than one plain UMI run found, and it does not fit the patterned UMI format")
)

// UMI describes a recognized UMI layout within a primer string.
type UMI struct {
	Layout Layout
	// Block is the matched substring containing the UMI.
	Block string
	// InformationIndex lists 0-based offsets within Block that are 'N' -
	// the positions carrying randomness. len(InformationIndex) <= len(Block);
	// for Plain layouts they are equal.
	InformationIndex []int
	// Start, End is the half-open byte range Block occupies within the
	// input primer string.
	Start, End int
}

// Identify scans primer for a UMI layout. It prefers a single Plain run; if
// none or more than one is found it falls back to the Patterned layout.
func Identify(primer string) (UMI, error) {
	plainMatches := plainRe.FindAllStringIndex(primer, -1)
	switch len(plainMatches) {
	case 1:
		m := plainMatches[0]
		block := primer[m[0]:m[1]]
		return UMI{
			Layout:           Plain,
			Block:            block,
			InformationIndex: informationIndex(block),
			Start:            m[0],
			End:              m[1],
		}, nil
	case 0:
		if m := patternedRe.FindStringIndex(primer); m != nil {
			block := primer[m[0]:m[1]]
			return UMI{
				Layout:           Patterned,
				Block:            block,
				InformationIndex: informationIndex(block),
				Start:            m[0],
				End:              m[1],
			}, nil
		}
		return UMI{}, ErrNoUMI
	default:
		return UMI{}, ErrAmbiguousUMI
	}
}

// informationIndex returns the 0-based positions within block that are 'N'.
func informationIndex(block string) []int {
	var idx []int
	for i := 0; i < len(block); i++ {
		if block[i] == 'N' {
			idx = append(idx, i)
		}
	}
	return idx
}

// ExtractBlock pulls the characters of seq at InformationIndex, forming the
// observed UMI identity used for family binning.
func (u UMI) ExtractBlock(seq string) string {
	buf := make([]byte, 0, len(u.InformationIndex))
	for _, i := range u.InformationIndex {
		if i < len(seq) {
			buf = append(buf, seq[i])
		}
	}
	return string(buf)
}
