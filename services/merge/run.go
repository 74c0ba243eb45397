package merge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/znavezz/ASD-ADAR-Correction/models/constants"
	merrors "github.com/znavezz/ASD-ADAR-Correction/models/errors"
	"github.com/znavezz/ASD-ADAR-Correction/models/table"
	"github.com/znavezz/ASD-ADAR-Correction/registry"
	"github.com/znavezz/ASD-ADAR-Correction/repositories/tsv"
	"github.com/znavezz/ASD-ADAR-Correction/services/annotation"
	"github.com/znavezz/ASD-ADAR-Correction/services/contracts"
	"github.com/znavezz/ASD-ADAR-Correction/services/discovery"
	"github.com/znavezz/ASD-ADAR-Correction/services/records"
	"github.com/znavezz/ASD-ADAR-Correction/utils/ctxlog"
)

// Options configure a full merge run.
type Options struct {
	// Root holds the variants/ and validation/ categories.
	Root     string
	Assembly constants.AssemblyId
	Registry *registry.Registry

	// Seed, when set, is the master table the run starts from.
	Seed *table.Master

	// Annotations restricts the computed annotations by column or function
	// name; empty computes all declared annotations.
	Annotations []string
	Concurrency int
}

// Run discovers every source under the root and folds them, in discovery
// order, into a master table. Discovery errors and fatal contract errors
// abort the run; any other source level failure skips the source and is
// reported in the summary.
func Run(ctx context.Context, opts Options) (*table.Master, *RunSummary, error) {
	logger := ctxlog.FromContext(ctx)
	summary := &RunSummary{Root: opts.Root, Assembly: opts.Assembly, StartedAt: time.Now()}

	sources, err := discovery.Discover(opts.Root)
	if err != nil {
		return nil, summary, err
	}
	logger.Info("Sources discovered.", "root", opts.Root, "count", len(sources))

	loader := contracts.NewLoader(opts.Registry, opts.Assembly)
	dispatcher := annotation.NewDispatcher(opts.Concurrency, opts.Annotations)

	var engine *Engine
	if opts.Seed != nil {
		loader.SetKeyColumns(opts.Seed.KeyCols(), "seed table")
		engine = NewEngine(opts.Seed, dispatcher)
	}

	for _, dir := range sources {
		if err := ctx.Err(); err != nil {
			return nil, summary, err
		}
		slogger := logger.With("source", dir.Name, "kind", dir.Kind)

		contract, err := loader.Load(ctx, dir)
		if err != nil {
			var ce *merrors.ContractError
			if errors.As(err, &ce) && ce.Fatal {
				slogger.Error("Aborting run on contract error.", "error", err)
				return nil, summary, err
			}
			slogger.Warn("Skipping source.", "error", err)
			summary.skip(dir.Name, err)
			continue
		}

		src := records.NewSource(contract)
		frame, err := records.LoadNormalized(ctx, src)
		if err != nil {
			if contract.Required {
				slogger.Error("Aborting run, required source failed to load.", "error", err)
				return nil, summary, err
			}
			slogger.Warn("Skipping source.", "error", err)
			summary.skip(contract.Name, err)
			continue
		}

		if engine == nil {
			if contract.IsValidation() {
				err := fmt.Errorf("no master table to validate against")
				slogger.Warn("Skipping source.", "error", err)
				summary.skip(contract.Name, err)
				continue
			}
			engine = NewEngine(table.NewMaster(contract.KeyCols), dispatcher)
		}
		ss, err := engine.Fold(ctx, frame, contract)
		if err != nil {
			var ce *merrors.ContractError
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
				(errors.As(err, &ce) && ce.Fatal) || contract.Required {
				return nil, summary, err
			}
			slogger.Warn("Skipping source.", "error", err)
			summary.skip(contract.Name, err)
			continue
		}
		summary.add(ss)
	}

	if engine == nil {
		return nil, summary, fmt.Errorf("no variant source could be merged under %s", opts.Root)
	}
	master := engine.Master()
	summary.Rows = master.Len()
	summary.Columns = len(master.Columns())
	summary.FinishedAt = time.Now()

	logger.Info("Merge run finished.",
		"rows", summary.Rows,
		"columns", summary.Columns,
		"sources_merged", len(summary.SourcesMerged),
		"sources_skipped", len(summary.SourcesSkipped))
	return master, summary, nil
}

// Persist writes the master table, its schema sidecar and the run summary.
func Persist(path string, master *table.Master, summary *RunSummary) error {
	if err := tsv.WriteMaster(path, master); err != nil {
		return fmt.Errorf("writing master table: %w", err)
	}
	if summary == nil {
		return nil
	}
	if err := tsv.WriteYAML(path+tsv.SummarySuffix, summary); err != nil {
		return fmt.Errorf("writing run summary: %w", err)
	}
	return nil
}
