package orchestrator

import (
	"context"
	"fmt"
	"sort"

	"github.com/grailbio/base/traverse"

	"github.com/grailbio/tcs/consensus"
	"github.com/grailbio/tcs/demux"
	"github.com/grailbio/tcs/encoding/fastq"
	"github.com/grailbio/tcs/endjoin"
	"github.com/grailbio/tcs/params"
	"github.com/grailbio/tcs/qc"
	"github.com/grailbio/tcs/report"
	"github.com/grailbio/tcs/umi"
)

// regionResult is one region's finished work, plus any warnings raised
// along the way. Warnings never abort the region.
type regionResult struct {
	report   report.RegionReport
	warnings []report.Warning
}

// processRegion selects surviving UMI families, calls consensus for each,
// end-joins, and QC/trims. It never returns an error: region-level failures
// (too few records, too few UMIs) degrade to a warning and an empty result.
func processRegion(ctx context.Context, vp params.ValidatedRegionParams, pairs []demux.FilteredPair, adv report.AdvancedSettings, locator qc.Locator) regionResult {
	rr := report.RegionReport{RegionName: vp.Region, FilteredReadsForRegion: len(pairs)}

	umiBlocks := make([]string, len(pairs))
	for i, p := range pairs {
		umiBlocks[i] = p.UMIBlock
	}
	families, summary, err := umi.SelectFamilies(umiBlocks, vp.PlatformErrorRate)
	if err != nil {
		return regionResult{
			report: rr,
			warnings: []report.Warning{{
				Kind: report.WarnUMIDistError, Region: vp.Region, Message: err.Error(),
			}},
		}
	}
	rr.UMISummary = &summary

	byUMI := make(map[string][]demux.FilteredPair, len(families))
	for _, p := range pairs {
		byUMI[p.UMIBlock] = append(byUMI[p.UMIBlock], p)
	}

	consensusParams := consensus.Params{Steepness: adv.Steepness, Midpoint: adv.Midpoint}

	records := make([]*report.ConsensusRecord, len(families))
	warnings := make([][]report.Warning, len(families))
	_ = traverse.Each(len(families), func(i int) error {
		fam := families[i]
		rec, warn := callFamilyConsensus(vp, fam, byUMI[fam.UMI], consensusParams)
		records[i] = rec
		if warn != nil {
			warnings[i] = []report.Warning{*warn}
		}
		return nil
	})

	for i := range records {
		if records[i] != nil {
			rr.Consensus = append(rr.Consensus, *records[i])
		}
	}
	sort.Slice(rr.Consensus, func(i, j int) bool {
		return rr.Consensus[i].UMIInformationBlock < rr.Consensus[j].UMIInformationBlock
	})

	if vp.EndJoin {
		endJoinRegion(vp, rr.Consensus)
	}
	if vp.QcConfig != nil {
		qcRegion(ctx, vp, rr.Consensus, locator)
	}

	var allWarnings []report.Warning
	for _, ws := range warnings {
		allWarnings = append(allWarnings, ws...)
	}
	return regionResult{report: rr, warnings: allWarnings}
}

// callFamilyConsensus computes R1/R2 consensus for one surviving family. A
// length mismatch within the family is reported as a warning and the family
// is dropped, per the non-fatal per-family failure policy.
func callFamilyConsensus(vp params.ValidatedRegionParams, fam umi.Family, pairs []demux.FilteredPair, cp consensus.Params) (*report.ConsensusRecord, *report.Warning) {
	if len(pairs) < 2 {
		return nil, &report.Warning{Kind: report.WarnConsensusError, Region: vp.Region, Message: fmt.Sprintf("umi %s: fewer than 2 records", fam.UMI)}
	}
	r1Seqs := make([]string, len(pairs))
	r1Quals := make([]string, len(pairs))
	r2Seqs := make([]string, len(pairs))
	r2Quals := make([]string, len(pairs))
	for i, p := range pairs {
		r1Seqs[i], r1Quals[i] = p.R1.Seq, p.R1.Qual
		r2Seqs[i], r2Quals[i] = p.R2.Seq, p.R2.Qual
	}

	r1Res, err := consensus.Call(consensus.Weighted, r1Seqs, r1Quals, 0, cp)
	if err != nil {
		return nil, &report.Warning{Kind: report.WarnConsensusError, Region: vp.Region, Message: fmt.Sprintf("umi %s r1: %v", fam.UMI, err)}
	}
	r2Res, err := consensus.Call(consensus.Weighted, r2Seqs, r2Quals, 0, cp)
	if err != nil {
		return nil, &report.Warning{Kind: report.WarnConsensusError, Region: vp.Region, Message: fmt.Sprintf("umi %s r2: %v", fam.UMI, err)}
	}

	idBase := fmt.Sprintf("%s_%d", fam.UMI, fam.Frequency)
	rec := &report.ConsensusRecord{
		UMIInformationBlock: fam.UMI,
		UMIFamilySize:       fam.Frequency,
		R1Consensus:         fastq.Read{ID: "@" + idBase + "_r1", Seq: r1Res.Seq, Unk: "+", Qual: r1Res.Qual},
		R2Consensus:         fastq.Read{ID: "@" + idBase + "_r2", Seq: r2Res.Seq, Unk: "+", Qual: r2Res.Qual},
	}
	return rec, nil
}

// endJoinRegion joins every family's R1/R2 consensus in place. Mode 3
// (sample-wide overlap) discovers one offset from a consensus-of-consensuses
// over the whole region and reuses it for every family; mode 4 discovers the
// overlap independently per family.
func endJoinRegion(vp params.ValidatedRegionParams, records []report.ConsensusRecord) {
	if len(records) == 0 {
		return
	}

	var sharedOverlap *endjoin.Overlap
	if vp.EndJoinOption == 3 && len(records) >= 2 {
		r1Seqs := make([]string, len(records))
		r1Quals := make([]string, len(records))
		r2Seqs := make([]string, len(records))
		r2Quals := make([]string, len(records))
		ok := true
		for i, r := range records {
			if len(r.R1Consensus.Seq) != len(records[0].R1Consensus.Seq) || len(r.R2Consensus.Seq) != len(records[0].R2Consensus.Seq) {
				ok = false
				break
			}
			r1Seqs[i], r1Quals[i] = r.R1Consensus.Seq, r.R1Consensus.Qual
			r2Seqs[i], r2Quals[i] = r.R2Consensus.Seq, r.R2Consensus.Qual
		}
		if ok {
			sampleParams := consensus.DefaultParams()
			r1Sample, err1 := consensus.Call(consensus.Weighted, r1Seqs, r1Quals, 0, sampleParams)
			r2Sample, err2 := consensus.Call(consensus.Weighted, r2Seqs, r2Quals, 0, sampleParams)
			if err1 == nil && err2 == nil {
				ov := endjoin.FindBestOverlap(r1Sample.Seq, r2Sample.Seq, endjoin.DefaultMinOverlap, endjoin.DefaultErrorRate)
				sharedOverlap = &ov
			}
		}
	}

	for i := range records {
		r := &records[i]
		var joined endjoin.Result
		var err error
		switch {
		case vp.EndJoinOption == 1:
			joined, err = endjoin.Join(endjoin.Simple, r.R1Consensus.Seq, r.R1Consensus.Qual, r.R2Consensus.Seq, r.R2Consensus.Qual, 0)
		case vp.EndJoinOption == 2:
			joined, err = endjoin.Join(endjoin.FixedOverlap, r.R1Consensus.Seq, r.R1Consensus.Qual, r.R2Consensus.Seq, r.R2Consensus.Qual, vp.Overlap)
		case vp.EndJoinOption == 3 && sharedOverlap != nil:
			joined, err = joinWithSharedOverlap(*r, *sharedOverlap)
		default:
			joined, err = endjoin.Join(endjoin.AutoOverlap, r.R1Consensus.Seq, r.R1Consensus.Qual, r.R2Consensus.Seq, r.R2Consensus.Qual, 0)
		}
		if err != nil {
			continue
		}
		idBase := fmt.Sprintf("%s_%d", r.UMIInformationBlock, r.UMIFamilySize)
		jr := fastq.Read{ID: "@" + idBase + "_joined", Seq: joined.Seq, Unk: "+", Qual: joined.Qual}
		r.Joined = &jr
	}
}

// joinWithSharedOverlap applies a pre-computed overlap length to one
// family's own R1/R2 bases and qualities, per mode 3's resolved semantics:
// every family in the region shares the same R1/R2 consensus length, so the
// sample-wide overlap length reproduces the same offset for each of them.
func joinWithSharedOverlap(r report.ConsensusRecord, shared endjoin.Overlap) (endjoin.Result, error) {
	if shared.Offset < 0 {
		// r2 hangs off the left of r1; fixed-overlap join can't express a
		// negative offset, so fall back to per-family discovery for this
		// one family rather than mis-assemble it.
		return endjoin.Join(endjoin.AutoOverlap, r.R1Consensus.Seq, r.R1Consensus.Qual, r.R2Consensus.Seq, r.R2Consensus.Qual, 0)
	}
	return endjoin.Join(endjoin.FixedOverlap, r.R1Consensus.Seq, r.R1Consensus.Qual, r.R2Consensus.Seq, r.R2Consensus.Qual, shared.Len)
}

// qcRegion runs the locator once per distinct joined contig in the region,
// then applies the QC predicate and optional trim to every record.
func qcRegion(ctx context.Context, vp params.ValidatedRegionParams, records []report.ConsensusRecord, locator qc.Locator) {
	if vp.QcConfig == nil || locator == nil {
		return
	}
	var joinedSeqs []string
	var idx []int
	for i, r := range records {
		if r.Joined != nil {
			joinedSeqs = append(joinedSeqs, r.Joined.Seq)
			idx = append(idx, i)
		}
	}
	if len(joinedSeqs) == 0 {
		return
	}

	batch := qc.Dedup(joinedSeqs)
	results, err := locator.Locate(ctx, batch.Distinct, vp.QcConfig.Reference, qc.SemiGlobal)
	if err != nil {
		for _, i := range idx {
			records[i].QC = qc.Result{Status: qc.LocatorError, Err: err}
		}
		return
	}
	expanded := qc.Expand(batch.Indices, len(joinedSeqs), results)

	for j, i := range idx {
		lr := expanded[j]
		if lr == nil {
			records[i].QC = qc.Result{Status: qc.LocatorError}
			continue
		}
		verdict := qc.Evaluate(vp.QcConfig, lr)
		records[i].QC = verdict
		if verdict.Status == qc.Passed && vp.Trim && vp.TrimConfig != nil {
			trimmed, err := qc.Trim(vp.TrimConfig, lr)
			if err != nil {
				records[i].QC = qc.Result{Status: qc.LocatorError, Err: err}
				continue
			}
			idBase := fmt.Sprintf("%s_%d", records[i].UMIInformationBlock, records[i].UMIFamilySize)
			tr := fastq.Read{ID: "@" + idBase + "_trimmed", Seq: trimmed.Seq, Unk: "+"}
			if records[i].Joined.Qual != "" && trimmed.QueryEndIndex <= len(records[i].Joined.Qual) {
				tr.Qual = records[i].Joined.Qual[trimmed.QueryStartIndex:trimmed.QueryEndIndex]
			}
			records[i].Trimmed = &tr
		}
	}
}
