package contracts

import (
	"context"

	"github.com/znavezz/ASD-ADAR-Correction/models/constants"
	sk "github.com/znavezz/ASD-ADAR-Correction/models/constants/source-kind"
	"github.com/znavezz/ASD-ADAR-Correction/models/table"
)

// Options are free-form string settings declared in a contract and handed to
// the functions it references.
type Options map[string]string

func (o Options) Get(key string, fallback string) string {
	if v, ok := o[key]; ok && v != "" {
		return v
	}
	return fallback
}

type (
	// UploadFunc parses a raw input file into a frame.
	UploadFunc func(ctx context.Context, path string, opts Options) (*table.Frame, error)

	// PreProcessFunc normalizes column names and values so the frame carries
	// the contract's key columns.
	PreProcessFunc func(ctx context.Context, frame *table.Frame, c *Contract) (*table.Frame, error)

	// ComputeFunc is an annotation: an opaque row -> value function.
	ComputeFunc func(ctx context.Context, row table.Record, opts Options) (interface{}, error)

	// ValidatorFunc checks a master row against the matching record of a
	// validation source. It returns whether they are consistent and, when
	// they are not, a human readable detail.
	ValidatorFunc func(ctx context.Context, row *table.Row, record table.Record, opts Options) (bool, string, error)
)

type AnnotationSpec struct {
	Name        string                     `yaml:"name"`
	Function    string                     `yaml:"function"`
	DataType    string                     `yaml:"data_type"`
	Description string                     `yaml:"description"`
	Policy      constants.AnnotationPolicy `yaml:"policy"`
	Options     Options                    `yaml:"options"`

	Compute ComputeFunc `yaml:"-"`
}

// Contract is the resolved declaration of a single source: its identity, its
// join key and the registered functions used to load, normalize, annotate or
// validate its records.
type Contract struct {
	Name        string               `yaml:"name"`
	Description string               `yaml:"description"`
	Kind        constants.SourceKind `yaml:"kind"`
	Dir         string               `yaml:"dir"`
	KeyCols     []string             `yaml:"key_cols"`
	Input       string               `yaml:"input"`
	Required    bool                 `yaml:"required"`
	Options     Options              `yaml:"options"`

	UploadName       string           `yaml:"upload"`
	PreProcessorName string           `yaml:"pre_processor"`
	ValidatorName    string           `yaml:"validator,omitempty"`
	Annotations      []AnnotationSpec `yaml:"annotations"`

	Upload       UploadFunc     `yaml:"-"`
	PreProcessor PreProcessFunc `yaml:"-"`
	Validator    ValidatorFunc  `yaml:"-"`
}

func (c *Contract) IsValidation() bool {
	return c.Kind == sk.Validation
}

// IndicatorColumn is the master-table column recording support by this source.
func (c *Contract) IndicatorColumn() string {
	return c.Name
}

// ValidationColumn is the master-table column holding this validation
// source's per-row consistency result.
func (c *Contract) ValidationColumn() string {
	return c.Name + constants.ValidationColumnSuffix
}

// VariantSource is the capability a merge run needs from a source,
// independent of how the source is declared.
type VariantSource interface {
	Name() string
	Kind() constants.SourceKind
	KeyColumns() []string
	Contract() *Contract
	Load(ctx context.Context) (*table.Frame, error)
	Normalize(ctx context.Context, raw *table.Frame) (*table.Frame, error)
	Annotations() []AnnotationSpec
}

// ValidationSource is a VariantSource that checks rows instead of adding them.
type ValidationSource interface {
	VariantSource
	Validator() ValidatorFunc
}
