package orchestrator

import (
	"context"
	"io"
	"runtime"
	"sync"

	"github.com/grailbio/base/compress"
	grailerrors "github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/pkg/errors"

	"github.com/grailbio/tcs/demux"
	"github.com/grailbio/tcs/encoding/fastq"
	"github.com/grailbio/tcs/params"
)

// pairReq is one raw read pair awaiting de-multiplexing.
type pairReq struct {
	r1, r2 fastq.Read
}

// pairRes is a worker's verdict for one pair.
type pairRes struct {
	pair   demux.FilteredPair
	ok     bool
	reason string
	err    error
}

// demuxTotals accumulates the collector's merged state across all workers.
type demuxTotals struct {
	totalReads     int
	byRegion       map[string][]demux.FilteredPair
	failedReasons  []string
}

func newDemuxTotals() *demuxTotals {
	return &demuxTotals{byRegion: make(map[string][]demux.FilteredPair)}
}

// scanAndDemux streams r1Path/r2Path, de-multiplexes every pair against vp
// using a bounded producer/worker/collector topology (modeled on the
// teacher's cmd/bio-fusion pipeline), and returns the merged per-region
// results.
func scanAndDemux(ctx context.Context, r1Path, r2Path string, vp params.ValidatedParams) (*demuxTotals, error) {
	reqCh := make(chan pairReq, 1024*64)
	resCh := make(chan pairRes, 1024)

	cache := newGeneralFilterCache()

	var wg sync.WaitGroup
	parallelism := runtime.NumCPU()
	for i := 0; i < parallelism; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for req := range reqCh {
				pair, ok, reason, err := processPair(req.r1, req.r2, vp, cache)
				resCh <- pairRes{pair: pair, ok: ok, reason: reason, err: err}
			}
		}()
	}

	totals := newDemuxTotals()
	collectDone := make(chan struct{})
	go func() {
		defer close(collectDone)
		for res := range resCh {
			totals.totalReads++
			switch {
			case res.err != nil:
				totals.failedReasons = append(totals.failedReasons, res.err.Error())
			case res.ok:
				totals.byRegion[res.pair.Region] = append(totals.byRegion[res.pair.Region], res.pair)
			default:
				totals.failedReasons = append(totals.failedReasons, res.reason)
			}
		}
	}()

	if err := readPairs(ctx, r1Path, r2Path, reqCh); err != nil {
		close(reqCh)
		wg.Wait()
		close(resCh)
		<-collectDone
		return nil, err
	}
	close(reqCh)
	wg.Wait()
	close(resCh)
	<-collectDone
	return totals, nil
}

// processPair applies the general-quality-gate cache short-circuit before
// falling through to a full demux.FilterPair match.
func processPair(r1, r2 fastq.Read, vp params.ValidatedParams, cache *generalFilterCache) (demux.FilteredPair, bool, string, error) {
	if err := demux.ValidatePair(r1, r2); err == nil && len(vp.PrimerPairs) > 0 {
		pf := vp.PrimerPairs[0].PlatformFormat
		if len(r1.Seq) >= pf && len(r2.Seq) >= pf {
			if reason, bad := cache.verdict(r1.Seq[:pf-1], r2.Seq[:pf-1]); bad {
				return demux.FilteredPair{}, false, reason, nil
			}
		}
	}
	return demux.FilterPair(r1, r2, vp)
}

// readPairs scans r1Path/r2Path (transparently gzip-decompressed) and pushes
// every pair onto reqCh, in file order.
func readPairs(ctx context.Context, r1Path, r2Path string, reqCh chan<- pairReq) error {
	in1, err := file.Open(ctx, r1Path)
	if err != nil {
		return errors.Wrapf(err, "open %v", r1Path)
	}
	in2, err := file.Open(ctx, r2Path)
	if err != nil {
		in1.Close(ctx)
		return errors.Wrapf(err, "open %v", r2Path)
	}

	var inr1, inr2 io.Reader = in1.Reader(ctx), in2.Reader(ctx)
	if u1 := compress.NewReaderPath(inr1, in1.Name()); u1 != nil {
		inr1 = u1
	}
	if u2 := compress.NewReaderPath(inr2, in2.Name()); u2 != nil {
		inr2 = u2
	}

	sc := fastq.NewPairScanner(inr1, inr2, fastq.ID|fastq.Seq|fastq.Qual)
	var r1R, r2R fastq.Read
	var nRead int
	for sc.Scan(&r1R, &r2R) {
		nRead++
		if nRead%(1024*1024) == 0 {
			log.Printf("%s: %dMi read pairs", r1Path, nRead/(1024*1024))
		}
		reqCh <- pairReq{r1: r1R, r2: r2R}
	}

	once := grailerrors.Once{}
	once.Set(sc.Err())
	once.Set(in1.Close(ctx))
	once.Set(in2.Close(ctx))
	return once.Err()
}
