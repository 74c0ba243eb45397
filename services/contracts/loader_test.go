package contracts

import (
	"context"
	"errors"
	"testing"

	"github.com/znavezz/ASD-ADAR-Correction/models/constants"
	assemblyId "github.com/znavezz/ASD-ADAR-Correction/models/constants/assembly-id"
	"github.com/znavezz/ASD-ADAR-Correction/models/constants/policy"
	sk "github.com/znavezz/ASD-ADAR-Correction/models/constants/source-kind"
	merrors "github.com/znavezz/ASD-ADAR-Correction/models/errors"
	"github.com/znavezz/ASD-ADAR-Correction/registry/builtin"
	"github.com/znavezz/ASD-ADAR-Correction/services/discovery"
	"github.com/znavezz/ASD-ADAR-Correction/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sourceDir(t *testing.T, root string, category string, name string, instructions string) discovery.SourceDir {
	dir := testutil.WriteSource(t, root, testutil.Source{Category: category, Name: name, Instructions: instructions})
	return discovery.SourceDir{Name: name, Path: dir, Kind: sk.FromCategory(category)}
}

func contractError(t *testing.T, err error) *merrors.ContractError {
	t.Helper()
	var ce *merrors.ContractError
	require.True(t, errors.As(err, &ce), "expected a ContractError, got %v", err)
	return ce
}

func TestLoadResolvesContract(t *testing.T) {
	root := t.TempDir()
	src := sourceDir(t, root, constants.VariantsCategory, "db1", `
name          = "db1_TableS1"
description   = "Table S1 (${genome})"
key_cols      = ["chr", "pos", "ref", "alt"]
input         = "table_s1.csv"
upload        = "csv"
pre_processor = "standard"
required      = true
options       = { column_map = "Chrom:chr,Position:pos", strip_chr = false }

annotation "is_ADAR_fixable" {
  function  = "is_adar_fixable"
  data_type = "bool"
}

annotation "substitution" {
  function = "substitution"
  policy   = "override"
  options  = { ref_column = "ref" }
}
`)

	loader := NewLoader(builtin.NewRegistry(), assemblyId.GRCh38)
	c, err := loader.Load(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, "db1_TableS1", c.Name)
	assert.Equal(t, "Table S1 (hg38)", c.Description)
	assert.Equal(t, sk.Variant, c.Kind)
	assert.Equal(t, "table_s1.csv", c.Input)
	assert.True(t, c.Required)
	assert.Equal(t, "false", c.Options["strip_chr"])
	assert.NotNil(t, c.Upload)
	assert.NotNil(t, c.PreProcessor)

	require.Len(t, c.Annotations, 2)
	assert.Equal(t, "is_ADAR_fixable", c.Annotations[0].Name)
	assert.Equal(t, policy.Keep, c.Annotations[0].Policy)
	assert.Equal(t, policy.Override, c.Annotations[1].Policy)
	assert.Equal(t, src.Path, c.Annotations[1].Options[builtin.SourceDirOption])
	assert.Equal(t, "ref", c.Annotations[1].Options["ref_column"])

	assert.Equal(t, []string{"chr", "pos", "ref", "alt"}, loader.KeyColumns())
}

func TestLoadMissingRequiredField(t *testing.T) {
	root := t.TempDir()
	src := sourceDir(t, root, constants.VariantsCategory, "db1", `
name     = "db1"
key_cols = ["chr", "pos", "ref", "alt"]
upload   = "tsv"
`)
	_, err := NewLoader(nil, assemblyId.GRCh38).Load(context.Background(), src)
	ce := contractError(t, err)
	assert.Equal(t, "pre_processor", ce.Field)
	assert.False(t, ce.Fatal)
}

func TestLoadUnknownFunction(t *testing.T) {
	root := t.TempDir()
	src := sourceDir(t, root, constants.VariantsCategory, "db1",
		testutil.VariantInstructions("db1", `
annotation "x" {
  function = "does_not_exist"
}`))
	_, err := NewLoader(nil, assemblyId.GRCh38).Load(context.Background(), src)
	ce := contractError(t, err)
	assert.Equal(t, "annotation.x", ce.Field)
	assert.Contains(t, ce.Error(), "does_not_exist")
}

func TestLoadMissingInstructions(t *testing.T) {
	root := t.TempDir()
	src := sourceDir(t, root, constants.VariantsCategory, "db1", "")
	_, err := NewLoader(nil, assemblyId.GRCh38).Load(context.Background(), src)
	contractError(t, err)
}

func TestKeyMismatchIsFatal(t *testing.T) {
	root := t.TempDir()
	loader := NewLoader(nil, assemblyId.GRCh38)

	_, err := loader.Load(context.Background(),
		sourceDir(t, root, constants.VariantsCategory, "db1", testutil.VariantInstructions("db1", "")))
	require.NoError(t, err)

	_, err = loader.Load(context.Background(), sourceDir(t, root, constants.VariantsCategory, "db2", `
name          = "db2"
key_cols      = ["chr", "pos"]
upload        = "tsv"
pre_processor = "standard"
`))
	ce := contractError(t, err)
	assert.True(t, ce.Fatal)
	assert.Equal(t, "key_cols", ce.Field)
}

func TestValidationContract(t *testing.T) {
	root := t.TempDir()
	loader := NewLoader(nil, assemblyId.GRCh38)

	// no convention yet
	_, err := loader.Load(context.Background(), sourceDir(t, root, constants.ValidationCategory, "v0",
		testutil.ValidationInstructions("v0", `["chr", "pos"]`, "presence")))
	contractError(t, err)

	loader.SetKeyColumns(constants.DefaultKeyColumns, "seed")

	c, err := loader.Load(context.Background(), sourceDir(t, root, constants.ValidationCategory, "v1",
		testutil.ValidationInstructions("v1", `["chr", "pos", "ref"]`, "reference_allele")))
	require.NoError(t, err)
	assert.True(t, c.IsValidation())
	assert.NotNil(t, c.Validator)
	assert.Equal(t, "v1_validated", c.ValidationColumn())

	_, err = loader.Load(context.Background(), sourceDir(t, root, constants.ValidationCategory, "v2",
		testutil.ValidationInstructions("v2", `["chr", "start"]`, "presence")))
	ce := contractError(t, err)
	assert.False(t, ce.Fatal)

	_, err = loader.Load(context.Background(), sourceDir(t, root, constants.ValidationCategory, "v3", `
name          = "v3"
key_cols      = ["chr", "pos"]
upload        = "tsv"
pre_processor = "standard"
`))
	ce = contractError(t, err)
	assert.Equal(t, "validator", ce.Field)
}

func TestVariantSourceRejectsValidator(t *testing.T) {
	root := t.TempDir()
	_, err := NewLoader(nil, assemblyId.GRCh38).Load(context.Background(),
		sourceDir(t, root, constants.VariantsCategory, "db1",
			testutil.VariantInstructions("db1", `validator = "presence"`)))
	ce := contractError(t, err)
	assert.Equal(t, "validator", ce.Field)
}

func TestRequiredSourceErrorsAreFatal(t *testing.T) {
	root := t.TempDir()
	_, err := NewLoader(nil, assemblyId.GRCh38).Load(context.Background(),
		sourceDir(t, root, constants.VariantsCategory, "db1", `
name          = "db1"
key_cols      = ["chr", "pos", "ref", "alt"]
upload        = "parquet"
pre_processor = "standard"
required      = true
`))
	ce := contractError(t, err)
	assert.Equal(t, "upload", ce.Field)
	assert.True(t, ce.Fatal)
}

func TestAnnotationNameIsInjected(t *testing.T) {
	root := t.TempDir()
	c, err := NewLoader(nil, assemblyId.GRCh38).Load(context.Background(),
		sourceDir(t, root, constants.VariantsCategory, "db1", testutil.VariantInstructions("db1", `
annotation "STRAND" {
  function = "copy_column"
}`)))
	require.NoError(t, err)
	require.Len(t, c.Annotations, 1)
	assert.Equal(t, "STRAND", c.Annotations[0].Options[builtin.AnnotationNameOption])
}

func TestLoadRejectsRepeatedName(t *testing.T) {
	root := t.TempDir()
	loader := NewLoader(builtin.NewRegistry(), assemblyId.GRCh38)

	_, err := loader.Load(context.Background(), sourceDir(t, root, constants.VariantsCategory, "dbA", testutil.VariantInstructions("db1", "")))
	require.NoError(t, err)

	_, err = loader.Load(context.Background(), sourceDir(t, root, constants.VariantsCategory, "dbB", testutil.VariantInstructions("db1", "")))
	ce := contractError(t, err)
	assert.Equal(t, "name", ce.Field)
	assert.False(t, ce.Fatal)
}
