// Package annotation invokes the compute functions declared by a source's
// contract for the rows it contributes.
package annotation

import (
	"context"
	"fmt"

	mc "github.com/znavezz/ASD-ADAR-Correction/models/contracts"
	merrors "github.com/znavezz/ASD-ADAR-Correction/models/errors"
	"github.com/znavezz/ASD-ADAR-Correction/models/table"
	"github.com/znavezz/ASD-ADAR-Correction/utils/ctxlog"

	"golang.org/x/sync/errgroup"
)

type Dispatcher struct {
	concurrency int
	allow       map[string]bool
}

// NewDispatcher creates a dispatcher computing at most concurrency rows at a
// time. A non-empty allow list restricts annotations to those whose column or
// function name it contains.
func NewDispatcher(concurrency int, allow []string) *Dispatcher {
	if concurrency < 1 {
		concurrency = 1
	}
	d := &Dispatcher{concurrency: concurrency}
	if len(allow) > 0 {
		d.allow = make(map[string]bool, len(allow))
		for _, a := range allow {
			d.allow[a] = true
		}
	}
	return d
}

// Filter returns the specs the dispatcher will run, in declaration order.
func (d *Dispatcher) Filter(specs []mc.AnnotationSpec) []mc.AnnotationSpec {
	if d.allow == nil {
		return specs
	}
	out := make([]mc.AnnotationSpec, 0, len(specs))
	for _, s := range specs {
		if d.allow[s.Name] || d.allow[s.Function] {
			out = append(out, s)
		}
	}
	return out
}

// Job is one row to annotate.
type Job struct {
	Key    table.Key
	Record table.Record
	Specs  []mc.AnnotationSpec
}

// Result holds the computed values of a job by column name. A failed
// annotation has no entry in Values and one in Errors.
type Result struct {
	Values map[string]interface{}
	Errors []*merrors.AnnotationError
}

// Dispatch computes every spec for a single row. Failures are row scoped:
// the value is left missing and the error is logged with the row key.
func (d *Dispatcher) Dispatch(ctx context.Context, source string, key table.Key, record table.Record, specs []mc.AnnotationSpec) Result {
	logger := ctxlog.FromContext(ctx)
	res := Result{Values: make(map[string]interface{}, len(specs))}

	for _, spec := range d.Filter(specs) {
		value, err := compute(ctx, spec, record)
		if err != nil {
			ae := &merrors.AnnotationError{
				Source:     source,
				Annotation: spec.Name,
				Key:        key.String(),
				Reason:     err.Error(),
				Err:        err,
			}
			logger.Warn("Annotation failed.", "source", source, "annotation", spec.Name, "key", key.String(), "error", err)
			res.Errors = append(res.Errors, ae)
			continue
		}
		if value != nil {
			res.Values[spec.Name] = value
		}
	}
	return res
}

// DispatchAll computes many rows concurrently. Results line up with jobs.
// Only cancellation of ctx is returned as an error.
func (d *Dispatcher) DispatchAll(ctx context.Context, source string, jobs []Job) ([]Result, error) {
	results := make([]Result, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i := range jobs {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = d.Dispatch(gctx, source, jobs[i].Key, jobs[i].Record, jobs[i].Specs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func compute(ctx context.Context, spec mc.AnnotationSpec, record table.Record) (value interface{}, err error) {
	if spec.Compute == nil {
		return nil, fmt.Errorf("annotation %s has no compute function", spec.Name)
	}
	defer func() {
		if r := recover(); r != nil {
			value, err = nil, fmt.Errorf("panic in %s: %v", spec.Function, r)
		}
	}()
	return spec.Compute(ctx, record, spec.Options)
}
