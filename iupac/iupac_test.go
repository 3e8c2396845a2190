package iupac

import "testing"

func TestMatches(t *testing.T) {
	cases := []struct {
		a, b byte
		want bool
	}{
		{'A', 'A', true},
		{'R', 'A', true},
		{'A', 'C', false},
		{'N', 'T', true},
		{'a', 'A', true},
	}
	for _, c := range cases {
		if got := Matches(c.a, c.b); got != c.want {
			t.Errorf("Matches(%c, %c) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestMismatchPositions(t *testing.T) {
	diff := MismatchPositions("ACGTRC", "AGCTGW")
	want := []int{1, 2, 5}
	if len(diff) != len(want) {
		t.Fatalf("got %v, want %v", diff, want)
	}
	for i := range want {
		if diff[i] != want[i] {
			t.Fatalf("got %v, want %v", diff, want)
		}
	}
}

func TestValidWord(t *testing.T) {
	if !ValidWord("ACGTRYSWKMBDHVN") {
		t.Error("expected all IUPAC codes to validate")
	}
	if ValidWord("ACGTX") {
		t.Error("X is not an IUPAC code")
	}
	if ValidWord("") {
		t.Error("empty word must not validate")
	}
}
