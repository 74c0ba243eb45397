package merge

import (
	"time"

	"github.com/znavezz/ASD-ADAR-Correction/models/constants"
	sk "github.com/znavezz/ASD-ADAR-Correction/models/constants/source-kind"
	merrors "github.com/znavezz/ASD-ADAR-Correction/models/errors"
)

// SourceSummary reports what folding a single source did to the master table.
type SourceSummary struct {
	Source string               `yaml:"source" json:"source"`
	Kind   constants.SourceKind `yaml:"kind" json:"kind"`

	RowsRead        int `yaml:"rows_read" json:"rowsRead"`
	RowsAppended    int `yaml:"rows_appended" json:"rowsAppended"`
	RowsMatched     int `yaml:"rows_matched" json:"rowsMatched"`
	RowsDuplicated  int `yaml:"rows_duplicated" json:"rowsDuplicated"`
	RowsReannotated int `yaml:"rows_reannotated,omitempty" json:"rowsReannotated,omitempty"`

	// validation sources only
	RowsChecked   int `yaml:"rows_checked,omitempty" json:"rowsChecked,omitempty"`
	RowsConfirmed int `yaml:"rows_confirmed,omitempty" json:"rowsConfirmed,omitempty"`
	RowsUnmatched int `yaml:"rows_unmatched,omitempty" json:"rowsUnmatched,omitempty"`

	RowErrors          []*merrors.RowError           `yaml:"row_errors,omitempty" json:"rowErrors,omitempty"`
	AnnotationErrors   []*merrors.AnnotationError    `yaml:"annotation_errors,omitempty" json:"annotationErrors,omitempty"`
	ValidationFindings []*merrors.ValidationMismatch `yaml:"validation_findings,omitempty" json:"validationFindings,omitempty"`
}

// SkippedSource is a source left out of the run and why.
type SkippedSource struct {
	Source string `yaml:"source" json:"source"`
	Reason string `yaml:"reason" json:"reason"`
}

// RunSummary is the per-run report persisted next to the master table.
type RunSummary struct {
	Root       string               `yaml:"root" json:"root"`
	Assembly   constants.AssemblyId `yaml:"assembly" json:"assembly"`
	StartedAt  time.Time            `yaml:"started_at" json:"startedAt"`
	FinishedAt time.Time            `yaml:"finished_at" json:"finishedAt"`

	SourcesMerged    []string        `yaml:"sources_merged" json:"sourcesMerged"`
	SourcesValidated []string        `yaml:"sources_validated,omitempty" json:"sourcesValidated,omitempty"`
	SourcesSkipped   []SkippedSource `yaml:"sources_skipped,omitempty" json:"sourcesSkipped,omitempty"`

	Rows         int `yaml:"rows" json:"rows"`
	Columns      int `yaml:"columns" json:"columns"`
	RowsAppended int `yaml:"rows_appended" json:"rowsAppended"`
	RowsMatched  int `yaml:"rows_matched" json:"rowsMatched"`
	RowErrors    int `yaml:"row_errors" json:"rowErrors"`

	AnnotationErrors int `yaml:"annotation_errors" json:"annotationErrors"`
	Mismatches       int `yaml:"validation_mismatches" json:"validationMismatches"`

	Sources []SourceSummary `yaml:"sources" json:"sources"`
}

func (s *RunSummary) add(ss SourceSummary) {
	s.Sources = append(s.Sources, ss)
	if ss.Kind == sk.Validation {
		s.SourcesValidated = append(s.SourcesValidated, ss.Source)
	} else {
		s.SourcesMerged = append(s.SourcesMerged, ss.Source)
	}
	s.RowsAppended += ss.RowsAppended
	s.RowsMatched += ss.RowsMatched
	s.RowErrors += len(ss.RowErrors)
	s.AnnotationErrors += len(ss.AnnotationErrors)
	s.Mismatches += len(ss.ValidationFindings)
}

func (s *RunSummary) skip(source string, err error) {
	s.SourcesSkipped = append(s.SourcesSkipped, SkippedSource{Source: source, Reason: err.Error()})
}
