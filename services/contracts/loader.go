// Package contracts loads the instructions.hcl contract of a source directory
// and resolves the function names it references against a registry.
package contracts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/znavezz/ASD-ADAR-Correction/models/constants"
	assemblyId "github.com/znavezz/ASD-ADAR-Correction/models/constants/assembly-id"
	"github.com/znavezz/ASD-ADAR-Correction/models/constants/policy"
	sk "github.com/znavezz/ASD-ADAR-Correction/models/constants/source-kind"
	mc "github.com/znavezz/ASD-ADAR-Correction/models/contracts"
	merrors "github.com/znavezz/ASD-ADAR-Correction/models/errors"
	"github.com/znavezz/ASD-ADAR-Correction/registry"
	"github.com/znavezz/ASD-ADAR-Correction/registry/builtin"
	"github.com/znavezz/ASD-ADAR-Correction/services/discovery"
	"github.com/znavezz/ASD-ADAR-Correction/utils/ctxlog"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// contractFile is the decoding target of an instructions.hcl file. Required
// attributes are decoded as optional so that their absence surfaces as a
// ContractError naming the field rather than a raw diagnostic.
type contractFile struct {
	Name         string            `hcl:"name,optional"`
	Description  string            `hcl:"description,optional"`
	KeyCols      []string          `hcl:"key_cols,optional"`
	Input        string            `hcl:"input,optional"`
	Upload       string            `hcl:"upload,optional"`
	PreProcessor string            `hcl:"pre_processor,optional"`
	Validator    string            `hcl:"validator,optional"`
	Required     bool              `hcl:"required,optional"`
	Options      map[string]string `hcl:"options,optional"`

	Annotations []*annotationBlock `hcl:"annotation,block"`
}

type annotationBlock struct {
	Name        string            `hcl:"name,label"`
	Function    string            `hcl:"function"`
	DataType    string            `hcl:"data_type,optional"`
	Description string            `hcl:"description,optional"`
	Policy      string            `hcl:"policy,optional"`
	Options     map[string]string `hcl:"options,optional"`
}

// Loader turns source directories into resolved contracts. It remembers the
// key convention of the first variant source it accepts so every later
// variant source of the run can be held to it, and the source names it has
// accepted so no two directories of a run share an output column.
type Loader struct {
	registry *registry.Registry
	assembly constants.AssemblyId
	parser   *hclparse.Parser

	keyCols   []string
	keySource string
	names     map[string]string
}

func NewLoader(reg *registry.Registry, assembly constants.AssemblyId) *Loader {
	if reg == nil {
		reg = builtin.NewRegistry()
	}
	return &Loader{
		registry: reg,
		assembly: assembly,
		parser:   hclparse.NewParser(),
		names:    map[string]string{},
	}
}

// KeyColumns returns the key convention of the run, nil until established.
func (l *Loader) KeyColumns() []string {
	return append([]string(nil), l.keyCols...)
}

// SetKeyColumns establishes the key convention up front, e.g. from a seed
// table.
func (l *Loader) SetKeyColumns(keyCols []string, origin string) {
	l.keyCols = append([]string(nil), keyCols...)
	l.keySource = origin
}

func (l *Loader) evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"assembly": cty.StringVal(string(l.assembly)),
			"genome":   cty.StringVal(string(assemblyId.ToGenomeVersion(l.assembly))),
		},
	}
}

// Load reads and resolves the contract of a source directory. The returned
// ContractError is Fatal when the run must abort: on a key convention
// mismatch between variant sources, or on any error in a contract declared
// required.
func (l *Loader) Load(ctx context.Context, src discovery.SourceDir) (*mc.Contract, error) {
	logger := ctxlog.FromContext(ctx).With("source", src.Name)
	path := filepath.Join(src.Path, constants.InstructionsFilename)

	if _, err := os.Stat(path); err != nil {
		return nil, &merrors.ContractError{Source: src.Name, Field: constants.InstructionsFilename, Err: err}
	}

	file, diags := l.parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, &merrors.ContractError{Source: src.Name, Err: fmt.Errorf("failed to parse %s: %w", path, diags)}
	}
	var decoded contractFile
	if diags := gohcl.DecodeBody(file.Body, l.evalContext(), &decoded); diags.HasErrors() {
		return nil, &merrors.ContractError{Source: src.Name, Err: fmt.Errorf("failed to decode %s: %w", path, diags)}
	}
	logger.Debug("Decoded contract.", "path", path, "annotations", len(decoded.Annotations))

	name := decoded.Name
	if name == "" {
		name = src.Name
	}
	fail := func(field string, err error) error {
		return &merrors.ContractError{Source: name, Field: field, Err: err, Fatal: decoded.Required}
	}

	contract := &mc.Contract{
		Name:             decoded.Name,
		Description:      decoded.Description,
		Kind:             src.Kind,
		Dir:              src.Path,
		KeyCols:          decoded.KeyCols,
		Input:            decoded.Input,
		Required:         decoded.Required,
		Options:          mc.Options(decoded.Options),
		UploadName:       decoded.Upload,
		PreProcessorName: decoded.PreProcessor,
		ValidatorName:    decoded.Validator,
	}
	if contract.Options == nil {
		contract.Options = mc.Options{}
	}

	for _, required := range [][2]string{
		{"name", decoded.Name},
		{"upload", decoded.Upload},
		{"pre_processor", decoded.PreProcessor},
	} {
		if required[1] == "" {
			return nil, fail(required[0], fmt.Errorf("required attribute is missing"))
		}
	}
	if dir, taken := l.names[decoded.Name]; taken {
		return nil, fail("name", fmt.Errorf("name already declared by source directory %s", dir))
	}
	if len(decoded.KeyCols) == 0 {
		return nil, fail("key_cols", fmt.Errorf("required attribute is missing or empty"))
	}
	if err := checkDistinct(decoded.KeyCols); err != nil {
		return nil, fail("key_cols", err)
	}

	if err := l.checkKeyConvention(contract); err != nil {
		if decoded.Required {
			err.Fatal = true
		}
		return nil, err
	}

	var ok bool
	if contract.Upload, ok = l.registry.Uploader(decoded.Upload); !ok {
		return nil, fail("upload", fmt.Errorf("unknown upload function %q", decoded.Upload))
	}
	if contract.PreProcessor, ok = l.registry.PreProcessor(decoded.PreProcessor); !ok {
		return nil, fail("pre_processor", fmt.Errorf("unknown pre-processor %q", decoded.PreProcessor))
	}

	switch contract.Kind {
	case sk.Validation:
		if decoded.Validator == "" {
			return nil, fail("validator", fmt.Errorf("required attribute is missing"))
		}
		if contract.Validator, ok = l.registry.Validator(decoded.Validator); !ok {
			return nil, fail("validator", fmt.Errorf("unknown validator %q", decoded.Validator))
		}
	default:
		if decoded.Validator != "" {
			return nil, fail("validator", fmt.Errorf("only validation sources may declare a validator"))
		}
	}

	seen := map[string]bool{}
	for _, block := range decoded.Annotations {
		field := "annotation." + block.Name
		if seen[block.Name] {
			return nil, fail(field, fmt.Errorf("annotation declared twice"))
		}
		seen[block.Name] = true

		compute, ok := l.registry.Annotator(block.Function)
		if !ok {
			return nil, fail(field, fmt.Errorf("unknown annotation function %q", block.Function))
		}
		p, err := policy.CastToPolicy(block.Policy)
		if err != nil {
			return nil, fail(field, err)
		}
		opts := mc.Options{
			builtin.SourceDirOption:      src.Path,
			builtin.AnnotationNameOption: block.Name,
		}
		for k, v := range block.Options {
			opts[k] = v
		}
		contract.Annotations = append(contract.Annotations, mc.AnnotationSpec{
			Name:        block.Name,
			Function:    block.Function,
			DataType:    block.DataType,
			Description: block.Description,
			Policy:      p,
			Options:     opts,
			Compute:     compute,
		})
	}

	if contract.Kind != sk.Validation && l.keyCols == nil {
		l.SetKeyColumns(contract.KeyCols, contract.Name)
		logger.Info("Key convention established.", "key_cols", contract.KeyCols)
	}
	l.names[contract.Name] = src.Path
	return contract, nil
}

// checkKeyConvention holds variant sources to the run's key columns and
// validation sources to a subset of them. A variant mismatch is fatal to the
// run.
func (l *Loader) checkKeyConvention(c *mc.Contract) *merrors.ContractError {
	if l.keyCols == nil {
		if c.Kind == sk.Validation {
			return &merrors.ContractError{
				Source: c.Name,
				Field:  "key_cols",
				Err:    fmt.Errorf("no variant source established a key convention"),
			}
		}
		return nil
	}

	if c.Kind == sk.Validation {
		for _, k := range c.KeyCols {
			if !contains(l.keyCols, k) {
				return &merrors.ContractError{
					Source: c.Name,
					Field:  "key_cols",
					Err:    fmt.Errorf("key column %q is not one of the master key columns %v", k, l.keyCols),
				}
			}
		}
		return nil
	}

	if !equal(l.keyCols, c.KeyCols) {
		return &merrors.ContractError{
			Source: c.Name,
			Field:  "key_cols",
			Err:    fmt.Errorf("key columns %v differ from %v established by %s", c.KeyCols, l.keyCols, l.keySource),
			Fatal:  true,
		}
	}
	return nil
}

func checkDistinct(cols []string) error {
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		if c == "" {
			return fmt.Errorf("empty key column name")
		}
		if seen[c] {
			return fmt.Errorf("key column %q listed twice", c)
		}
		seen[c] = true
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
