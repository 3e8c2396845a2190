// Package iupac implements ambiguity-aware nucleotide comparison over the
// IUPAC nucleotide code alphabet.
package iupac

// bases maps each IUPAC code (uppercase) to the set of unambiguous
// nucleotides it represents.
var bases = map[byte]uint8{
	'A': bitA,
	'C': bitC,
	'G': bitG,
	'T': bitT,
	'R': bitA | bitG,
	'Y': bitC | bitT,
	'S': bitG | bitC,
	'W': bitA | bitT,
	'K': bitG | bitT,
	'M': bitA | bitC,
	'B': bitC | bitG | bitT,
	'D': bitA | bitG | bitT,
	'H': bitA | bitC | bitT,
	'V': bitA | bitC | bitG,
	'N': bitA | bitC | bitG | bitT,
}

const (
	bitA uint8 = 1 << iota
	bitC
	bitG
	bitT
)

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}

// Set returns the bitset of unambiguous nucleotides a code represents, and
// whether c is a recognized IUPAC code.
func Set(c byte) (uint8, bool) {
	s, ok := bases[upper(c)]
	return s, ok
}

// Valid reports whether c is a recognized IUPAC nucleotide code.
func Valid(c byte) bool {
	_, ok := bases[upper(c)]
	return ok
}

// ValidWord reports whether every byte of s is a recognized IUPAC code.
func ValidWord(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !Valid(s[i]) {
			return false
		}
	}
	return true
}

// Matches reports whether a and b can denote the same nucleotide under
// IUPAC ambiguity, i.e. whether their base sets intersect. Unrecognized
// codes never match.
func Matches(a, b byte) bool {
	if upper(a) == upper(b) {
		return true
	}
	as, aok := Set(a)
	bs, bok := Set(b)
	if !aok || !bok {
		return false
	}
	return as&bs != 0
}

// MismatchCount returns the number of positions in [0, min(len(a), len(b)))
// at which a and b do not Match, compared byte-for-byte from the start of
// each string.
func MismatchCount(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	count := 0
	for i := 0; i < n; i++ {
		if !Matches(a[i], b[i]) {
			count++
		}
	}
	return count
}

// MismatchPositions is like MismatchCount but returns the offending indices,
// grounded on the original source's diff_by_iupac.
func MismatchPositions(a, b string) []int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var diffs []int
	for i := 0; i < n; i++ {
		if !Matches(a[i], b[i]) {
			diffs = append(diffs, i)
		}
	}
	return diffs
}
