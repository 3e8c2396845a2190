package report

import "io"

// fastaWriter writes single-line FASTA records (no sequence wrapping). The
// teacher's encoding/fasta package only reads (eager or indexed); it has no
// writer, so output needs this minimal one.
type fastaWriter struct {
	w   io.Writer
	err error
}

func newFastaWriter(w io.Writer) *fastaWriter {
	return &fastaWriter{w: w}
}

func (f *fastaWriter) Write(id, seq string) error {
	if f.err != nil {
		return f.err
	}
	if _, f.err = io.WriteString(f.w, ">"+id+"\n"+seq+"\n"); f.err != nil {
		return f.err
	}
	return nil
}
