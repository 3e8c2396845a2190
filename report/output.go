package report

import (
	"context"
	"encoding/json"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/pkg/errors"

	"github.com/grailbio/tcs/encoding/fastq"
	"github.com/grailbio/tcs/params"
	"github.com/grailbio/tcs/qc"
)

func isLocalPath(p string) bool {
	return !strings.Contains(p, "://")
}

// ensureDir creates dir and its parents when p is a local path; remote
// (e.g. s3://) destinations are addressed directly by file.Create and need
// no directory to pre-exist.
func ensureDir(dir string) error {
	if !isLocalPath(dir) {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func writeJSON(ctx context.Context, p string, v interface{}) error {
	f, err := file.Create(ctx, p)
	if err != nil {
		return errors.Wrapf(err, "creating %s", p)
	}
	enc := json.NewEncoder(f.Writer(ctx))
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		f.Close(ctx)
		return errors.Wrapf(err, "encoding %s", p)
	}
	return f.Close(ctx)
}

func writeRaw(ctx context.Context, p string, data []byte) error {
	f, err := file.Create(ctx, p)
	if err != nil {
		return errors.Wrapf(err, "creating %s", p)
	}
	if _, err := f.Writer(ctx).Write(data); err != nil {
		f.Close(ctx)
		return errors.Wrapf(err, "writing %s", p)
	}
	return f.Close(ctx)
}

// WriteFastqAndFasta writes records (in order) as both {prefix}.fastq under
// fastq_files/ and {prefix}.fasta under fasta_files/ within regionDir.
func WriteFastqAndFasta(ctx context.Context, regionDir, prefix string, records []fastq.Read) error {
	fastqPath := path.Join(regionDir, "fastq_files", prefix+".fastq")
	fastaPath := path.Join(regionDir, "fasta_files", prefix+".fasta")

	fqFile, err := file.Create(ctx, fastqPath)
	if err != nil {
		return errors.Wrapf(err, "creating %s", fastqPath)
	}
	faFile, err := file.Create(ctx, fastaPath)
	if err != nil {
		fqFile.Close(ctx)
		return errors.Wrapf(err, "creating %s", fastaPath)
	}

	fqWriter := fastq.NewWriter(fqFile.Writer(ctx))
	faWriter := newFastaWriter(faFile.Writer(ctx))
	for _, r := range records {
		rr := r
		if err := fqWriter.Write(&rr); err != nil {
			fqFile.Close(ctx)
			faFile.Close(ctx)
			return errors.Wrapf(err, "writing %s", fastqPath)
		}
		if err := faWriter.Write(strings.TrimPrefix(rr.ID, "@"), rr.Seq); err != nil {
			fqFile.Close(ctx)
			faFile.Close(ctx)
			return errors.Wrapf(err, "writing %s", fastaPath)
		}
	}
	if err := fqFile.Close(ctx); err != nil {
		return errors.Wrapf(err, "closing %s", fastqPath)
	}
	return faFile.Close(ctx)
}

// WriteRegionFiles writes every on-disk artifact for one region: the always
// present r1/r2 FASTQ+FASTA pairs, the joined/passed-QC/trimmed variants
// when applicable, the UMI summary JSON, and the per-record QC failure CSV.
func WriteRegionFiles(ctx context.Context, outputRoot string, rr RegionReport) error {
	regionDir := path.Join(outputRoot, rr.RegionName)
	if err := ensureDir(path.Join(regionDir, "fastq_files")); err != nil {
		return err
	}
	if err := ensureDir(path.Join(regionDir, "fasta_files")); err != nil {
		return err
	}

	var r1, r2, joined, joinedPassed, joinedTrimmed []fastq.Read
	for _, c := range rr.Consensus {
		r1 = append(r1, c.R1Consensus)
		r2 = append(r2, c.R2Consensus)
		if c.Joined != nil {
			joined = append(joined, *c.Joined)
			if c.QC.Status == qc.Passed {
				joinedPassed = append(joinedPassed, *c.Joined)
			}
		}
		if c.Trimmed != nil {
			joinedTrimmed = append(joinedTrimmed, *c.Trimmed)
		}
	}

	if err := WriteFastqAndFasta(ctx, regionDir, "r1", r1); err != nil {
		return err
	}
	if err := WriteFastqAndFasta(ctx, regionDir, "r2", r2); err != nil {
		return err
	}
	if len(joined) > 0 {
		if err := WriteFastqAndFasta(ctx, regionDir, "joined", joined); err != nil {
			return err
		}
	}
	if len(joinedPassed) > 0 {
		if err := WriteFastqAndFasta(ctx, regionDir, "joined_passed_qc", joinedPassed); err != nil {
			return err
		}
	}
	if len(joinedTrimmed) > 0 {
		if err := WriteFastqAndFasta(ctx, regionDir, "joined_passed_qc_trimmed", joinedTrimmed); err != nil {
			return err
		}
	}

	umiSummaryPath := path.Join(regionDir, "umi_summary.json")
	if rr.UMISummary != nil {
		if err := writeJSON(ctx, umiSummaryPath, rr.UMISummary); err != nil {
			return err
		}
	} else if err := writeRaw(ctx, umiSummaryPath, []byte("{}")); err != nil {
		return err
	}

	return writeQCFailedReasonsCSV(ctx, path.Join(regionDir, "qc_failed_reasons.csv"), rr.Consensus)
}

var qcFailedCSVHeader = []string{
	"umi_information_block",
	"configured_start",
	"configured_end",
	"indel_allowed",
	"observed_start",
	"observed_end",
	"observed_indel",
}

func writeQCFailedReasonsCSV(ctx context.Context, p string, records []ConsensusRecord) error {
	var rows [][]string
	for _, c := range records {
		if c.QC.Status != qc.NotPassed || c.QC.Report == nil {
			continue
		}
		rep := c.QC.Report
		rows = append(rows, []string{
			c.UMIInformationBlock,
			rangeString(rep.ConfiguredStart),
			rangeString(rep.ConfiguredEnd),
			strconv.FormatBool(rep.IndelAllowed),
			strconv.Itoa(rep.ObservedStart),
			strconv.Itoa(rep.ObservedEnd),
			strconv.FormatBool(rep.ObservedIndel),
		})
	}
	return writeCSV(ctx, p, qcFailedCSVHeader, rows)
}

func rangeString(r *params.Range) string {
	if r == nil {
		return ""
	}
	return strconv.Itoa(r.Start) + ".." + strconv.Itoa(r.End)
}
