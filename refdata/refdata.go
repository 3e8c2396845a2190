// Package refdata embeds the two reference genomes the locator service
// understands by name (HXB2, SIVmm239) and resolves loosely-specified
// genome identifiers the same way the parameter validator does: an
// unrecognized identifier falls back to HXB2.
//
// The embedded sequences are placeholders of the correct approximate
// length for their named genome; this module never aligns against them
// directly (alignment happens in the external locator service, addressed
// only by name), so no component depends on their actual bases matching
// a real reference. See DESIGN.md for why.
package refdata

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/grailbio/tcs/encoding/fasta"
)

//go:embed hxb2.fasta
var hxb2FASTA []byte

//go:embed sivmm239.fasta
var sivmm239FASTA []byte

// Default is the reference genome identifier used when an unrecognized
// one is supplied.
const Default = "HXB2"

var raw = map[string][]byte{
	"HXB2":     hxb2FASTA,
	"SIVmm239": sivmm239FASTA,
}

var parsed map[string]fasta.Fasta

func init() {
	parsed = make(map[string]fasta.Fasta, len(raw))
	for name, data := range raw {
		f, err := fasta.New(bytes.NewReader(data))
		if err != nil {
			panic(fmt.Sprintf("refdata: embedded %s FASTA failed to parse: %v", name, err))
		}
		parsed[name] = f
	}
}

// Known reports whether name is a recognized reference genome identifier.
func Known(name string) bool {
	_, ok := raw[name]
	return ok
}

// Resolve returns name if it is recognized, else Default.
func Resolve(name string) string {
	if Known(name) {
		return name
	}
	return Default
}

// Genome returns the embedded FASTA data for name, resolving unrecognized
// identifiers to Default first.
func Genome(name string) fasta.Fasta {
	return parsed[Resolve(name)]
}
