package orchestrator

import (
	"context"
	"io/ioutil"
	"path"
	"sort"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"

	"github.com/grailbio/tcs/demux"
	"github.com/grailbio/tcs/params"
	"github.com/grailbio/tcs/qc"
	"github.com/grailbio/tcs/report"
)

// Options configures one orchestrator run.
type Options struct {
	InputDir     string
	ParamFile    string
	OutputDir    string
	KeepOriginal bool
	Locator      qc.Locator
	Version      string
}

// Run drives a full pipeline pass over one input directory: discovery,
// parameter loading, de-multiplexing, per-region UMI selection, consensus,
// end-joining, QC/trim, and report output. It returns the assembled report
// even when the run recorded fatal errors; callers should check
// RunReport.IsSuccessful.
func Run(ctx context.Context, opts Options) (*report.RunReport, error) {
	rawParams, err := ioutil.ReadFile(opts.ParamFile)
	if err != nil {
		return nil, errors.Wrapf(err, "reading parameter file %s", opts.ParamFile)
	}
	p, err := params.ParseJSON(rawParams)
	if err != nil {
		return nil, errors.Wrap(err, "parsing parameter file")
	}
	vp, err := p.Validate()
	if err != nil {
		return nil, errors.Wrap(err, "validating parameters")
	}

	adv := report.DefaultAdvancedSettings()
	adv.KeepOriginal = opts.KeepOriginal

	rr := report.NewRunReport(opts.InputDir, p, adv, opts.Version)

	r1Path, r2Path, err := DiscoverPair(opts.InputDir)
	if err != nil {
		rr.AddError(err.Error())
		rr.Finish()
		return rr, nil
	}
	log.Printf("discovered input pair %s / %s", r1Path, r2Path)

	totals, err := scanAndDemux(ctx, r1Path, r2Path, vp)
	if err != nil {
		rr.AddError(err.Error())
		rr.Finish()
		return rr, nil
	}
	rr.TotalReads = totals.totalReads
	for _, reason := range totals.failedReasons {
		rr.AddFailedMatchReason(reason)
	}

	for _, region := range vp.PrimerPairs {
		pairs := totals.byRegion[region.Region]
		result := processRegion(ctx, region, pairs, adv, opts.Locator)
		rr.AddRegionReport(result.report)
		for _, w := range result.warnings {
			rr.AddWarning(w)
		}
		log.Printf("region %s: %d filtered reads, %d TCS records", region.Region, result.report.FilteredReadsForRegion, len(result.report.Consensus))
	}

	sort.Slice(rr.RegionReports, func(i, j int) bool {
		return rr.RegionReports[i].RegionName < rr.RegionReports[j].RegionName
	})

	rr.Finish()

	if opts.OutputDir != "" {
		if err := report.WriteRun(ctx, opts.OutputDir, rr); err != nil {
			return rr, errors.Wrap(err, "writing report")
		}
		if adv.KeepOriginal {
			if err := spillOriginals(ctx, opts.OutputDir, totals.byRegion); err != nil {
				return rr, errors.Wrap(err, "spilling original pairs")
			}
		}
	}
	return rr, nil
}

// spillOriginals writes each region's filtered pairs to its snappy-compressed
// spill file, readable with report.ReadOriginalSpill. Run itself never reads
// a spill file back; every run scans the FASTQ input.
func spillOriginals(ctx context.Context, outputDir string, byRegion map[string][]demux.FilteredPair) error {
	for region, pairs := range byRegion {
		if err := report.WriteOriginalSpill(ctx, path.Join(outputDir, region), pairs); err != nil {
			return errors.Wrapf(err, "region %s", region)
		}
	}
	return nil
}
