package errors

import (
	"fmt"
	"strings"
)

/*
	Error taxonomy of a merge run. Discovery and contract errors
	abort a run; load and normalize errors drop a single source;
	row, annotation, lookup errors and validation mismatches are
	recorded in the run summary and never abort anything.
*/

type DiscoveryError struct {
	Root string
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery error at %s: %v", e.Root, e.Err)
}
func (e *DiscoveryError) Unwrap() error { return e.Err }

type ContractError struct {
	Source string
	Field  string
	Err    error
	// Fatal is set for errors that must abort the whole run: key
	// convention mismatches and errors in sources declared required.
	Fatal bool
}

func (e *ContractError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("contract error in source %s (%s): %v", e.Source, e.Field, e.Err)
	}
	return fmt.Sprintf("contract error in source %s: %v", e.Source, e.Err)
}
func (e *ContractError) Unwrap() error { return e.Err }

type LoadError struct {
	Source string
	Path   string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load error in source %s (%s): %v", e.Source, e.Path, e.Err)
}
func (e *LoadError) Unwrap() error { return e.Err }

type NormalizeError struct {
	Source string
	Err    error
}

func (e *NormalizeError) Error() string {
	return fmt.Sprintf("normalize error in source %s: %v", e.Source, e.Err)
}
func (e *NormalizeError) Unwrap() error { return e.Err }

type RowError struct {
	Source string `yaml:"source"`
	Row    int    `yaml:"row"`
	Key    string `yaml:"key"`
	Reason string `yaml:"reason"`
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row error in source %s at row %d [%s]: %s", e.Source, e.Row, e.Key, e.Reason)
}

type AnnotationError struct {
	Source     string `yaml:"source"`
	Annotation string `yaml:"annotation"`
	Key        string `yaml:"key"`
	Reason     string `yaml:"reason"`
	Err        error  `yaml:"-"`
}

func (e *AnnotationError) Error() string {
	return fmt.Sprintf("annotation %s failed for [%s] (source %s): %s", e.Annotation, e.Key, e.Source, e.Reason)
}
func (e *AnnotationError) Unwrap() error { return e.Err }

type ValidationMismatch struct {
	Source string `yaml:"source"`
	Key    string `yaml:"key"`
	Detail string `yaml:"detail"`
}

func (e *ValidationMismatch) Error() string {
	return fmt.Sprintf("validation mismatch in source %s for [%s]: %s", e.Source, e.Key, e.Detail)
}

type LookupError struct {
	Row    int    `yaml:"row"`
	Region string `yaml:"region"`
	Reason string `yaml:"reason"`
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("reference lookup failed at row %d (%s): %s", e.Row, e.Region, e.Reason)
}

// MissingColumns is returned when a table lacks columns required by an operation.
type MissingColumns struct {
	Columns []string
}

func (e *MissingColumns) Error() string {
	return fmt.Sprintf("missing columns: %s", strings.Join(e.Columns, ", "))
}
