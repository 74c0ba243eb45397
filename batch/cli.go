package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/znavezz/ASD-ADAR-Correction/models"
	assid "github.com/znavezz/ASD-ADAR-Correction/models/constants/assembly-id"
)

// ExitError carries the process exit code for a failed invocation.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

type Options struct {
	PostProcess bool
	SkipMerge   bool
}

// Parse applies command line overrides on top of the environment derived
// configuration. The boolean is true when the program should exit cleanly.
func Parse(args []string, output io.Writer, cfg *models.Config) (*Options, bool, error) {
	flagSet := flag.NewFlagSet("varmerge-batch", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
varmerge-batch - merge the variant DBs into the extended table, once.

Usage:
  varmerge-batch [options]

Options:
`)
		flagSet.PrintDefaults()
	}

	dbsFlag := flagSet.String("dbs", cfg.Merge.DbsPath, "Path to the DBs tree (optionally holding one directory per genome).")
	assemblyFlag := flagSet.String("assembly", cfg.Merge.AssemblyId, "Assembly of the DBs: GRCh38 or GRCh37.")
	outputFlag := flagSet.String("output", cfg.Merge.OutputPath, "Path of the merged table.")
	seedFlag := flagSet.String("seed", cfg.Merge.SeedTablePath, "Previously merged table to extend.")
	annotationsFlag := flagSet.String("annotations", cfg.Merge.AnnotationsCommaSep, "Comma separated annotation columns or functions to compute; empty computes all.")
	concurrencyFlag := flagSet.Int("concurrency", cfg.Merge.AnnotationConcurrency, "Concurrent annotation computations per source.")
	postProcessFlag := flagSet.Bool("postprocess", false, "Run the post-processing pass on the merged table.")
	skipMergeFlag := flagSet.Bool("skip-merge", false, "Only post-process the existing table at -output.")
	fastaFlag := flagSet.String("fasta", cfg.PostProcess.FastaPath, "Reference FASTA for post-processing.")
	outDirFlag := flagSet.String("postprocess-dir", cfg.PostProcess.OutputDirectory, "Output directory of the post-processing pass.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if flagSet.NArg() > 0 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unexpected arguments: %v", flagSet.Args())}
	}

	if !assid.IsKnownAssemblyId(*assemblyFlag) {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unknown assembly %q", *assemblyFlag)}
	}
	if *concurrencyFlag < 1 {
		return nil, false, &ExitError{Code: 2, Message: "concurrency must be at least 1"}
	}
	opts := &Options{PostProcess: *postProcessFlag || *skipMergeFlag, SkipMerge: *skipMergeFlag}
	if opts.PostProcess && *fastaFlag == "" {
		return nil, false, &ExitError{Code: 2, Message: "post-processing needs a reference FASTA (-fasta)"}
	}

	cfg.Merge.DbsPath = *dbsFlag
	cfg.Merge.AssemblyId = *assemblyFlag
	cfg.Merge.OutputPath = *outputFlag
	cfg.Merge.SeedTablePath = *seedFlag
	cfg.Merge.AnnotationsCommaSep = *annotationsFlag
	cfg.Merge.AnnotationConcurrency = *concurrencyFlag
	cfg.PostProcess.FastaPath = *fastaFlag
	cfg.PostProcess.OutputDirectory = *outDirFlag

	return opts, false, nil
}
