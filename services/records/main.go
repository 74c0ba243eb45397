// Package records loads the raw input of a source through its contract's
// upload function and normalizes it with the contract's pre-processor.
package records

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/znavezz/ASD-ADAR-Correction/models/constants"
	mc "github.com/znavezz/ASD-ADAR-Correction/models/contracts"
	merrors "github.com/znavezz/ASD-ADAR-Correction/models/errors"
	"github.com/znavezz/ASD-ADAR-Correction/models/table"
	"github.com/znavezz/ASD-ADAR-Correction/utils/ctxlog"
)

// Source adapts a resolved contract to the VariantSource and
// ValidationSource capabilities used by the merge engine.
type Source struct {
	contract *mc.Contract
}

var (
	_ mc.VariantSource    = (*Source)(nil)
	_ mc.ValidationSource = (*Source)(nil)
)

func NewSource(c *mc.Contract) *Source {
	return &Source{contract: c}
}

func (s *Source) Name() string                     { return s.contract.Name }
func (s *Source) Kind() constants.SourceKind       { return s.contract.Kind }
func (s *Source) KeyColumns() []string             { return append([]string(nil), s.contract.KeyCols...) }
func (s *Source) Contract() *mc.Contract           { return s.contract }
func (s *Source) Annotations() []mc.AnnotationSpec { return s.contract.Annotations }
func (s *Source) Validator() mc.ValidatorFunc      { return s.contract.Validator }

// InputPath locates the raw input file: the contract's input when declared,
// otherwise the first conventional name present in the source directory.
func (s *Source) InputPath() (string, error) {
	if s.contract.Input != "" {
		p := s.contract.Input
		if !filepath.IsAbs(p) {
			p = filepath.Join(s.contract.Dir, p)
		}
		if _, err := os.Stat(p); err != nil {
			return p, err
		}
		return p, nil
	}
	for _, name := range constants.ConventionalInputFilenames {
		p := filepath.Join(s.contract.Dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return s.contract.Dir, fmt.Errorf("no input file found (tried %v)", constants.ConventionalInputFilenames)
}

// Load runs the contract's upload function on the raw input.
func (s *Source) Load(ctx context.Context) (*table.Frame, error) {
	path, err := s.InputPath()
	if err != nil {
		return nil, &merrors.LoadError{Source: s.Name(), Path: path, Err: err}
	}
	ctxlog.FromContext(ctx).Debug("Uploading source input.", "source", s.Name(), "path", path, "upload", s.contract.UploadName)

	frame, err := s.contract.Upload(ctx, path, s.contract.Options)
	if err != nil {
		return nil, &merrors.LoadError{Source: s.Name(), Path: path, Err: err}
	}
	if frame == nil {
		return nil, &merrors.LoadError{Source: s.Name(), Path: path, Err: fmt.Errorf("upload function returned no table")}
	}
	return frame, nil
}

// Normalize runs the contract's pre-processor and checks the result carries
// every key column.
func (s *Source) Normalize(ctx context.Context, raw *table.Frame) (*table.Frame, error) {
	frame, err := s.contract.PreProcessor(ctx, raw, s.contract)
	if err != nil {
		return nil, &merrors.NormalizeError{Source: s.Name(), Err: err}
	}
	if frame == nil {
		return nil, &merrors.NormalizeError{Source: s.Name(), Err: fmt.Errorf("pre-processor returned no table")}
	}
	if missing := frame.MissingColumns(s.contract.KeyCols); len(missing) > 0 {
		return nil, &merrors.NormalizeError{Source: s.Name(), Err: &merrors.MissingColumns{Columns: missing}}
	}
	return frame, nil
}

// LoadNormalized is Load followed by Normalize.
func LoadNormalized(ctx context.Context, src mc.VariantSource) (*table.Frame, error) {
	raw, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	return src.Normalize(ctx, raw)
}
