package report

import (
	"bufio"
	"context"
	"encoding/json"
	"path"

	"github.com/golang/snappy"
	"github.com/pkg/errors"

	"github.com/grailbio/base/file"
	"github.com/grailbio/tcs/demux"
)

// spillFileName is where a region's filtered pairs are written when
// AdvancedSettings.KeepOriginal is set. ReadOriginalSpill loads them back;
// orchestrator.Run does not, and always re-scans the FASTQ input.
func spillFileName(regionDir string) string {
	return path.Join(regionDir, "fastq_files", ".filtered_pairs.snappy")
}

// WriteOriginalSpill snappy-compresses pairs as newline-delimited JSON,
// mirroring the teacher's encoding/bampair disk-shard spill convention
// (snappy.NewBufferedWriter over a plain file writer).
func WriteOriginalSpill(ctx context.Context, regionDir string, pairs []demux.FilteredPair) error {
	f, err := file.Create(ctx, spillFileName(regionDir))
	if err != nil {
		return errors.Wrapf(err, "creating spill file under %s", regionDir)
	}
	sw := snappy.NewBufferedWriter(f.Writer(ctx))
	enc := json.NewEncoder(sw)
	for _, p := range pairs {
		if err := enc.Encode(p); err != nil {
			sw.Close()
			f.Close(ctx)
			return errors.Wrap(err, "encoding spilled pair")
		}
	}
	if err := sw.Close(); err != nil {
		f.Close(ctx)
		return errors.Wrap(err, "closing snappy spill writer")
	}
	return f.Close(ctx)
}

// ReadOriginalSpill reads back a spill file written by WriteOriginalSpill.
// It returns (nil, nil) if no spill file exists for regionDir, so callers
// can fall back to a full FASTQ re-scan.
func ReadOriginalSpill(ctx context.Context, regionDir string) ([]demux.FilteredPair, error) {
	f, err := file.Open(ctx, spillFileName(regionDir))
	if err != nil {
		return nil, nil
	}
	defer f.Close(ctx)

	sr := snappy.NewReader(f.Reader(ctx))
	dec := json.NewDecoder(bufio.NewReader(sr))
	var pairs []demux.FilteredPair
	for {
		var p demux.FilteredPair
		if err := dec.Decode(&p); err != nil {
			break
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}
