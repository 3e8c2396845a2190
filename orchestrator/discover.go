// Package orchestrator drives a full run over one input directory: file
// discovery, parameter loading, paired-end de-multiplexing, per-region UMI
// family selection, consensus calling, end-joining, QC/trim, and report
// output.
package orchestrator

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrInputNotDirectory is returned when the input path is not a directory.
	ErrInputNotDirectory = errors.New("input path is not a directory")
	// ErrNoMatch is returned when a read's file could not be found in the
	// input directory.
	ErrNoMatch = errors.New("no matching FASTQ file found")
	// ErrAmbiguous is returned when more than one file matches a read's
	// pattern.
	ErrAmbiguous = errors.New("more than one matching FASTQ file found")
	// ErrCompressionMismatch is returned when R1 is gzipped and R2 is not, or
	// vice versa.
	ErrCompressionMismatch = errors.New("R1 and R2 have mismatched compression")
)

var (
	r1Re = regexp.MustCompile(`(?i)(^|[_\-.])r1([_\-.]\d+)?\.f(ast)?q(\.gz)?$`)
	r2Re = regexp.MustCompile(`(?i)(^|[_\-.])r2([_\-.]\d+)?\.f(ast)?q(\.gz)?$`)
)

// DiscoverPair locates the single R1 and single R2 FASTQ file under dir.
func DiscoverPair(dir string) (r1Path, r2Path string, err error) {
	info, err := os.Stat(dir)
	if err != nil {
		return "", "", errors.Wrapf(err, "stat %s", dir)
	}
	if !info.IsDir() {
		return "", "", errors.Wrapf(ErrInputNotDirectory, "%s", dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", "", errors.Wrapf(err, "reading %s", dir)
	}

	var r1Matches, r2Matches []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if r1Re.MatchString(name) {
			r1Matches = append(r1Matches, name)
		}
		if r2Re.MatchString(name) {
			r2Matches = append(r2Matches, name)
		}
	}

	if r1Path, err = pickOne(r1Matches, "r1"); err != nil {
		return "", "", err
	}
	if r2Path, err = pickOne(r2Matches, "r2"); err != nil {
		return "", "", err
	}
	if strings.HasSuffix(r1Path, ".gz") != strings.HasSuffix(r2Path, ".gz") {
		return "", "", errors.Wrapf(ErrCompressionMismatch, "r1=%s r2=%s", r1Path, r2Path)
	}
	return filepath.Join(dir, r1Path), filepath.Join(dir, r2Path), nil
}

func pickOne(matches []string, side string) (string, error) {
	switch len(matches) {
	case 0:
		return "", errors.Wrapf(ErrNoMatch, "%s", side)
	case 1:
		return matches[0], nil
	default:
		return "", errors.Wrapf(ErrAmbiguous, "%s: %v", side, matches)
	}
}
