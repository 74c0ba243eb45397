package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/znavezz/ASD-ADAR-Correction/models"
	assid "github.com/znavezz/ASD-ADAR-Correction/models/constants/assembly-id"
	"github.com/znavezz/ASD-ADAR-Correction/models/runs"
	"github.com/znavezz/ASD-ADAR-Correction/repositories/artifacts"
	"github.com/znavezz/ASD-ADAR-Correction/services"
	"github.com/znavezz/ASD-ADAR-Correction/services/merge"
	"github.com/znavezz/ASD-ADAR-Correction/utils"
	"github.com/znavezz/ASD-ADAR-Correction/utils/ctxlog"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	// a missing .env is fine, the environment may be set otherwise
	_ = godotenv.Load()

	var cfg models.Config
	if err := envconfig.Process("", &cfg); err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}

	opts, exit, err := Parse(args, stdout, &cfg)
	if err != nil || exit {
		return err
	}

	logger, err := ctxlog.New(os.Stderr, cfg.Debug, cfg.LogFormat)
	if err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}
	ctx = ctxlog.WithLogger(ctx, logger)

	es, err := utils.CreateEsConnection(&cfg)
	if err != nil {
		return err
	}
	var store artifacts.Store
	if s3, err := artifacts.NewS3Store(&cfg); err != nil {
		return err
	} else if s3 != nil {
		store = s3
	}

	rs := services.NewRunService(ctx, es, store, &cfg)
	assembly := assid.CastToAssemblyId(cfg.Merge.AssemblyId)

	if !opts.SkipMerge {
		req := rs.NewMergeRequest(assembly)
		if err := rs.Execute(ctx, &req); err != nil {
			return err
		}
		report(stdout, req)
	}

	if opts.PostProcess {
		req := rs.NewPostProcessRequest(assembly, cfg.Merge.OutputPath)
		if err := rs.Execute(ctx, &req); err != nil {
			return err
		}
		report(stdout, req)
	}
	return nil
}

func report(w io.Writer, req runs.RunRequest) {
	fmt.Fprintf(w, "%s run %s wrote %s\n", req.Kind, req.Id, req.Output)
	if s, ok := req.Summary.(*merge.RunSummary); ok {
		fmt.Fprintf(w, "\trows: %d, columns: %d, sources merged: %d, skipped: %d\n",
			s.Rows, s.Columns, len(s.SourcesMerged), len(s.SourcesSkipped))
		for _, skipped := range s.SourcesSkipped {
			fmt.Fprintf(w, "\tskipped %s: %s\n", skipped.Source, skipped.Reason)
		}
	}
	if req.Indexed > 0 {
		fmt.Fprintf(w, "\tindexed %d documents\n", req.Indexed)
	}
	for _, key := range req.Artifacts {
		fmt.Fprintf(w, "\tpublished %s\n", key)
	}
}
