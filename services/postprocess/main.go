// Package postprocess enriches a persisted master table with the reference
// sequence at each variant, the strand-aware ADAR/APOBEC editing flags and the
// number of sources reporting the variant.
package postprocess

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/znavezz/ASD-ADAR-Correction/models/constants"
	"github.com/znavezz/ASD-ADAR-Correction/models/constants/chromosome"
	"github.com/znavezz/ASD-ADAR-Correction/models/constants/strand"
	merrors "github.com/znavezz/ASD-ADAR-Correction/models/errors"
	"github.com/znavezz/ASD-ADAR-Correction/models/table"
	"github.com/znavezz/ASD-ADAR-Correction/repositories/tsv"
	"github.com/znavezz/ASD-ADAR-Correction/services/editing"
	"github.com/znavezz/ASD-ADAR-Correction/services/reference"
	"github.com/znavezz/ASD-ADAR-Correction/utils/ctxlog"

	"github.com/ahmetb/go-linq"
	"golang.org/x/sync/errgroup"
)

// OutputSuffix is appended to the input table's name to form the output name.
const OutputSuffix = "_postprocessed"

var requiredColumns = []string{"chr", "pos", "ref", "alt", constants.StrandColumn}

type Options struct {
	// Genome names the reference sequence column (hg38 or hg19).
	Genome constants.GenomeVersion
	// IndicatorColumns counted by dbs_count. Empty means the indicator
	// columns recorded in the table's schema sidecar.
	IndicatorColumns []string
	Workers          int
}

type Summary struct {
	Input            string                 `yaml:"input" json:"input"`
	Output           string                 `yaml:"output" json:"output"`
	Rows             int                    `yaml:"rows" json:"rows"`
	SequenceColumn   string                 `yaml:"sequence_column" json:"sequenceColumn"`
	IndicatorColumns []string               `yaml:"indicator_columns" json:"indicatorColumns"`
	LookupErrors     []*merrors.LookupError `yaml:"lookup_errors,omitempty" json:"lookupErrors,omitempty"`
}

// DerivedColumns lists the columns the pass writes, in output order.
func DerivedColumns(genome constants.GenomeVersion) []string {
	return []string{string(genome), constants.AdarFixableColumn, constants.ApobecFixableColumn, constants.DbsCountColumn}
}

// Process adds (or overwrites) the derived columns of every record in place.
// Lookup failures are row scoped: the sequence cell is left empty and the
// failure is reported in the summary.
func Process(ctx context.Context, frame *table.Frame, ref reference.Provider, indicators []string, opts Options) (*Summary, error) {
	if missing := frame.MissingColumns(requiredColumns); len(missing) > 0 {
		return nil, &merrors.MissingColumns{Columns: missing}
	}
	if len(indicators) == 0 {
		return nil, fmt.Errorf("no indicator columns to count")
	}
	if missing := frame.MissingColumns(indicators); len(missing) > 0 {
		return nil, &merrors.MissingColumns{Columns: missing}
	}
	genome := opts.Genome
	if genome == "" {
		genome = "hg38"
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	summary := &Summary{
		Rows:             frame.Len(),
		SequenceColumn:   string(genome),
		IndicatorColumns: indicators,
	}
	for _, c := range DerivedColumns(genome) {
		frame.AddColumn(c)
	}

	sequences := make([]string, frame.Len())
	failures := make([]*merrors.LookupError, frame.Len())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range frame.Records {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sequences[i], failures[i] = lookup(ref, i+1, frame.Records[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger := ctxlog.FromContext(ctx)
	for i, rec := range frame.Records {
		if failures[i] != nil {
			logger.Warn("Reference lookup failed.", "row", failures[i].Row, "region", failures[i].Region, "reason", failures[i].Reason)
			summary.LookupErrors = append(summary.LookupErrors, failures[i])
		}
		rec[string(genome)] = sequences[i]

		s := strand.CastToStrand(rec[constants.StrandColumn])
		rec[constants.AdarFixableColumn] = strconv.FormatBool(editing.IsAdarFixable(rec["ref"], rec["alt"], s))
		rec[constants.ApobecFixableColumn] = strconv.FormatBool(editing.IsApobecFixable(rec["ref"], rec["alt"], s))
		rec[constants.DbsCountColumn] = strconv.Itoa(countIndicators(rec, indicators))
	}
	return summary, nil
}

func lookup(ref reference.Provider, row int, rec table.Record) (string, *merrors.LookupError) {
	chrom := chromosome.WithPrefix(rec["chr"])
	allele := strings.TrimSpace(rec["ref"])
	region := fmt.Sprintf("%s:%s", chrom, rec["pos"])

	pos, err := strconv.ParseInt(strings.TrimSpace(rec["pos"]), 10, 64)
	if err != nil || pos < 1 {
		return "", &merrors.LookupError{Row: row, Region: region, Reason: "unparseable position"}
	}
	if allele == "" || allele == "-" {
		return "", &merrors.LookupError{Row: row, Region: region, Reason: "empty reference allele"}
	}
	seq, err := ref.Fetch(chrom, pos-1, pos-1+int64(len(allele)))
	if err != nil {
		return "", &merrors.LookupError{Row: row, Region: region, Reason: err.Error()}
	}
	return seq, nil
}

func countIndicators(rec table.Record, indicators []string) int {
	n := 0
	for _, c := range indicators {
		if table.Truthy(rec[c]) {
			n++
		}
	}
	return n
}

// indicatorColumns picks the columns counted by dbs_count: the explicit list
// when given, otherwise the indicators of the schema sidecar that the table
// still carries.
func indicatorColumns(frame *table.Frame, schema table.Schema, hasSchema bool, explicit []string) ([]string, error) {
	if len(explicit) > 0 {
		return explicit, nil
	}
	if !hasSchema {
		return nil, fmt.Errorf("table has no schema sidecar, indicator columns must be given explicitly")
	}
	var cols []string
	linq.From(schema.Indicators).
		WhereT(func(c string) bool { return frame.HasColumn(c) }).
		ToSlice(&cols)
	return cols, nil
}

// OutputPath names the output of the pass for an input table.
func OutputPath(input string, outDir string) string {
	base := filepath.Base(input)
	ext := filepath.Ext(base)
	if ext == ".gz" {
		base = strings.TrimSuffix(base, ext)
		ext = filepath.Ext(base)
	}
	name := strings.TrimSuffix(base, ext)
	name = strings.TrimSuffix(name, OutputSuffix)
	return filepath.Join(outDir, name+OutputSuffix+".tsv")
}

// Run reads a persisted table, processes it and writes the result with an
// updated schema sidecar into outDir.
func Run(ctx context.Context, input string, outDir string, ref reference.Provider, opts Options) (*Summary, error) {
	logger := ctxlog.FromContext(ctx)

	frame, err := tsv.ReadFrame(input, tsv.DelimiterFor(input))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", input, err)
	}
	schema, hasSchema, err := tsv.ReadSchema(input)
	if err != nil {
		return nil, err
	}
	indicators, err := indicatorColumns(frame, schema, hasSchema, opts.IndicatorColumns)
	if err != nil {
		return nil, err
	}
	logger.Info("Post-processing table.", "input", input, "rows", frame.Len(), "indicators", len(indicators))

	summary, err := Process(ctx, frame, ref, indicators, opts)
	if err != nil {
		return nil, err
	}
	summary.Input = input
	summary.Output = OutputPath(input, outDir)

	if err := tsv.WriteFrame(summary.Output, frame); err != nil {
		return nil, fmt.Errorf("writing %s: %w", summary.Output, err)
	}
	if hasSchema {
		for _, c := range DerivedColumns(constants.GenomeVersion(summary.SequenceColumn)) {
			if schema.Role(c) == table.RoleNone {
				schema.Annotations = append(schema.Annotations, c)
			}
		}
		if err := tsv.WriteYAML(summary.Output+tsv.SchemaSuffix, schema); err != nil {
			return nil, err
		}
	}
	if err := tsv.WriteYAML(summary.Output+tsv.SummarySuffix, summary); err != nil {
		return nil, err
	}

	logger.Info("Post-processing finished.", "output", summary.Output, "lookup_errors", len(summary.LookupErrors))
	return summary, nil
}
