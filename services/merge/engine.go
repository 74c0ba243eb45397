// Package merge folds normalized source tables into the master table.
package merge

import (
	"context"
	"fmt"

	"github.com/znavezz/ASD-ADAR-Correction/models/constants"
	"github.com/znavezz/ASD-ADAR-Correction/models/constants/policy"
	mc "github.com/znavezz/ASD-ADAR-Correction/models/contracts"
	merrors "github.com/znavezz/ASD-ADAR-Correction/models/errors"
	"github.com/znavezz/ASD-ADAR-Correction/models/table"
	"github.com/znavezz/ASD-ADAR-Correction/services/annotation"
	"github.com/znavezz/ASD-ADAR-Correction/utils/ctxlog"
)

// Engine owns the master table for the duration of a run. Sources are folded
// one at a time; only annotation computation runs concurrently, and its
// results are written back serially.
type Engine struct {
	master     *table.Master
	dispatcher *annotation.Dispatcher
}

func NewEngine(master *table.Master, dispatcher *annotation.Dispatcher) *Engine {
	if dispatcher == nil {
		dispatcher = annotation.NewDispatcher(1, nil)
	}
	return &Engine{master: master, dispatcher: dispatcher}
}

func (e *Engine) Master() *table.Master {
	return e.master
}

// pending is an annotation job whose results still have to be written back.
type pending struct {
	row   *table.Row
	isNew bool
}

// Fold merges one normalized source table into the master table. Variant
// sources mark the rows they share with the table, append the rows they
// introduce and annotate per each annotation's policy; validation sources
// are handed to Validate.
func (e *Engine) Fold(ctx context.Context, frame *table.Frame, c *mc.Contract) (SourceSummary, error) {
	if c.IsValidation() {
		return e.Validate(ctx, frame, c)
	}
	logger := ctxlog.FromContext(ctx).With("source", c.Name)
	summary := SourceSummary{Source: c.Name, Kind: c.Kind, RowsRead: frame.Len()}

	if err := e.checkKeys(c); err != nil {
		return summary, err
	}

	indicator := c.IndicatorColumn()
	specs := e.dispatcher.Filter(c.Annotations)
	if err := e.checkColumns(c, indicator, specs); err != nil {
		return summary, err
	}
	if _, err := e.master.AddIndicator(indicator); err != nil {
		return summary, &merrors.ContractError{Source: c.Name, Field: "name", Err: err}
	}
	for _, spec := range specs {
		if _, err := e.master.AddAnnotation(spec.Name); err != nil {
			return summary, &merrors.ContractError{Source: c.Name, Field: "annotation." + spec.Name, Err: err}
		}
	}

	var (
		jobs    []annotation.Job
		targets []pending
		seen    = make(map[string]bool, frame.Len())
	)
	for i, rec := range frame.Records {
		key, err := canonicalKey(rec, c.KeyCols)
		if err != nil {
			re := &merrors.RowError{Source: c.Name, Row: i + 1, Key: rawKey(rec, c.KeyCols), Reason: err.Error()}
			logger.Warn("Skipping malformed row.", "row", re.Row, "key", re.Key, "reason", re.Reason)
			summary.RowErrors = append(summary.RowErrors, re)
			continue
		}
		if seen[key.Id()] {
			summary.RowsDuplicated++
			continue
		}
		seen[key.Id()] = true

		input := rec.Clone()
		for j, col := range c.KeyCols {
			input[col] = key.Values[j]
		}

		if row, ok := e.master.Lookup(key); ok {
			row.Set(indicator, true)
			summary.RowsMatched++
			if reannotate := reannotated(specs, row); len(reannotate) > 0 {
				jobs = append(jobs, annotation.Job{Key: key, Record: input, Specs: reannotate})
				targets = append(targets, pending{row: row})
			}
			continue
		}

		row, err := e.master.Append(key)
		if err != nil {
			// only reachable on arity mismatch, which checkKeys rules out
			return summary, err
		}
		row.Set(indicator, true)
		summary.RowsAppended++
		if len(specs) > 0 {
			jobs = append(jobs, annotation.Job{Key: key, Record: input, Specs: specs})
			targets = append(targets, pending{row: row, isNew: true})
		}
	}

	results, err := e.dispatcher.DispatchAll(ctx, c.Name, jobs)
	if err != nil {
		return summary, err
	}
	for i, res := range results {
		t := targets[i]
		for col, v := range res.Values {
			if !t.isNew && policyOf(specs, col) == policy.Fill {
				if _, present := t.row.Get(col); present {
					continue
				}
			}
			t.row.Set(col, v)
		}
		if !t.isNew && len(res.Values) > 0 {
			summary.RowsReannotated++
		}
		summary.AnnotationErrors = append(summary.AnnotationErrors, res.Errors...)
	}

	logger.Info("Source merged.",
		"rows_read", summary.RowsRead,
		"rows_appended", summary.RowsAppended,
		"rows_matched", summary.RowsMatched,
		"row_errors", len(summary.RowErrors),
		"annotation_errors", len(summary.AnnotationErrors))
	return summary, nil
}

// checkColumns makes sure every column a source migrates into the master
// table can be added, so a clash leaves the schema untouched.
func (e *Engine) checkColumns(c *mc.Contract, indicator string, specs []mc.AnnotationSpec) error {
	schema := e.master.Schema()
	if err := schema.CheckRole(indicator, table.RoleIndicator); err != nil {
		return &merrors.ContractError{Source: c.Name, Field: "name", Err: err}
	}
	for _, spec := range specs {
		err := schema.CheckRole(spec.Name, table.RoleAnnotation)
		if err == nil && spec.Name == indicator {
			err = fmt.Errorf("annotation column %q collides with the source's indicator column", spec.Name)
		}
		if err != nil {
			return &merrors.ContractError{Source: c.Name, Field: "annotation." + spec.Name, Err: err}
		}
	}
	return nil
}

// reannotated selects the annotations an already present row gets
// recomputed: every override annotation and every fill annotation whose cell
// is still missing. Keep annotations are never touched again.
func reannotated(specs []mc.AnnotationSpec, row *table.Row) []mc.AnnotationSpec {
	var out []mc.AnnotationSpec
	for _, s := range specs {
		switch s.Policy {
		case policy.Override:
			out = append(out, s)
		case policy.Fill:
			if _, present := row.Get(s.Name); !present {
				out = append(out, s)
			}
		}
	}
	return out
}

func policyOf(specs []mc.AnnotationSpec, column string) constants.AnnotationPolicy {
	for _, s := range specs {
		if s.Name == column {
			return s.Policy
		}
	}
	return policy.Keep
}

// Validate checks the master rows matching each record of a validation
// source. Every checked row gets a true/false result in the source's
// validation column; a row found inconsistent by any record stays false.
// Validation sources never add rows or indicator columns.
func (e *Engine) Validate(ctx context.Context, frame *table.Frame, c *mc.Contract) (SourceSummary, error) {
	logger := ctxlog.FromContext(ctx).With("source", c.Name)
	summary := SourceSummary{Source: c.Name, Kind: c.Kind, RowsRead: frame.Len()}

	if c.Validator == nil {
		return summary, &merrors.ContractError{Source: c.Name, Field: "validator", Err: fmt.Errorf("validation source without validator")}
	}
	for _, k := range c.KeyCols {
		if !contains(e.master.KeyCols(), k) {
			return summary, &merrors.ContractError{
				Source: c.Name,
				Field:  "key_cols",
				Err:    fmt.Errorf("key column %q is not a master key column", k),
			}
		}
	}

	column := c.ValidationColumn()
	if _, err := e.master.AddValidation(column); err != nil {
		return summary, &merrors.ContractError{Source: c.Name, Field: "name", Err: err}
	}

	index := e.master.IndexBy(c.KeyCols)
	checked := map[*table.Row]bool{}
	for i, rec := range frame.Records {
		key, err := canonicalKey(rec, c.KeyCols)
		if err != nil {
			re := &merrors.RowError{Source: c.Name, Row: i + 1, Key: rawKey(rec, c.KeyCols), Reason: err.Error()}
			logger.Warn("Skipping malformed row.", "row", re.Row, "key", re.Key, "reason", re.Reason)
			summary.RowErrors = append(summary.RowErrors, re)
			continue
		}
		positions, ok := index[key.Id()]
		if !ok {
			summary.RowsUnmatched++
			continue
		}
		for _, p := range positions {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			row := e.master.Row(p)
			consistent, detail, err := c.Validator(ctx, row, rec, c.Options)
			if err != nil {
				detail = fmt.Sprintf("validator failed: %v", err)
			}
			checked[row] = true

			if err == nil && consistent {
				if _, present := row.Get(column); !present {
					row.Set(column, true)
				}
				continue
			}
			if err == nil {
				row.Set(column, false)
			}
			finding := &merrors.ValidationMismatch{Source: c.Name, Key: row.Key.String(), Detail: detail}
			logger.Warn("Validation mismatch.", "key", finding.Key, "detail", finding.Detail)
			summary.ValidationFindings = append(summary.ValidationFindings, finding)
		}
	}

	summary.RowsChecked = len(checked)
	for row := range checked {
		if v, ok := row.Get(column); ok && table.Truthy(v) {
			summary.RowsConfirmed++
		}
	}
	logger.Info("Source validated.",
		"rows_checked", summary.RowsChecked,
		"rows_confirmed", summary.RowsConfirmed,
		"rows_unmatched", summary.RowsUnmatched,
		"mismatches", len(summary.ValidationFindings))
	return summary, nil
}

// checkKeys guards the join: a variant source must key on exactly the
// master's key columns.
func (e *Engine) checkKeys(c *mc.Contract) error {
	master := e.master.KeyCols()
	if len(master) != len(c.KeyCols) {
		return keyMismatch(c, master)
	}
	for i := range master {
		if master[i] != c.KeyCols[i] {
			return keyMismatch(c, master)
		}
	}
	return nil
}

func keyMismatch(c *mc.Contract, master []string) error {
	return &merrors.ContractError{
		Source: c.Name,
		Field:  "key_cols",
		Err:    fmt.Errorf("key columns %v differ from the master key columns %v", c.KeyCols, master),
		Fatal:  true,
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
