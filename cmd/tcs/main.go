// Command tcs reconstructs viral consensus sequences from paired-end,
// UMI-tagged FASTQ reads.
//
// Usage:
//
//	tcs run --input DIR --param FILE [--output DIR] [--keep-original]
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"

	"github.com/grailbio/tcs/orchestrator"
	"github.com/grailbio/tcs/qc"
)

// version is set by the release build; left as a placeholder for
// development builds run from source.
var version = "dev"

func usage() {
	fmt.Fprint(os.Stderr, `tcs reconstructs viral consensus sequences from paired-end, UMI-tagged
FASTQ reads.

Usage:
  tcs run --input DIR --param FILE [--output DIR] [--keep-original] [--locator URL]
  tcs dr --input DIR --version --keep-original
  tcs dr-params --version
  tcs sdrm --input DIR --version
  tcs log --input DIR
  tcs generate

Subcommands:
  run         De-multiplex, call consensus, end-join, QC/trim, and write a report.

Subcommands dr, dr-params, sdrm, log, and generate are accepted for
command-line compatibility but are not implemented in this core.
`)
}

func main() {
	flag.Usage = usage
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	sub := os.Args[1]
	args := os.Args[2:]

	cleanup := grail.Init()
	defer cleanup()
	ctx := vcontext.Background()

	switch sub {
	case "run":
		fs := flag.NewFlagSet("run", flag.ExitOnError)
		input := fs.String("input", "", "input directory containing one R1/R2 FASTQ pair")
		param := fs.String("param", "", "path to a TCS parameter JSON file")
		output := fs.String("output", "", "output directory for the report and sequence files")
		keepOriginal := fs.Bool("keep-original", false, "spill each region's filtered original pairs for reuse by a later run")
		locatorURL := fs.String("locator", "", "URL of the external semi-global locator service used for QC/trim")
		if err := fs.Parse(args); err != nil {
			log.Panicf("parsing flags: %v", err)
		}
		if *input == "" || *param == "" {
			fs.Usage()
			log.Fatal("--input and --param are required")
		}

		var locator qc.Locator
		if *locatorURL != "" {
			locator = qc.NewHTTPLocator(*locatorURL)
		}

		rr, err := orchestrator.Run(ctx, orchestrator.Options{
			InputDir:     *input,
			ParamFile:    *param,
			OutputDir:    *output,
			KeepOriginal: *keepOriginal,
			Locator:      locator,
			Version:      version,
		})
		if err != nil {
			log.Panicf("run: %v", err)
		}
		for _, w := range rr.Warnings {
			log.Printf("warning [%s] %s: %s", w.Kind, w.Region, w.Message)
		}
		if !rr.IsSuccessful() {
			for _, e := range rr.Errors {
				log.Printf("error: %s", e)
			}
			os.Exit(1)
		}
		log.Printf("done: %d total reads, %d regions", rr.TotalReads, len(rr.RegionReports))

	case "dr", "dr-params", "sdrm", "log", "generate":
		log.Fatalf("%s: not implemented in this core", sub)

	default:
		usage()
		os.Exit(1)
	}
}
