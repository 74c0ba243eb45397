package builtin

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/znavezz/ASD-ADAR-Correction/models/contracts"
	"github.com/znavezz/ASD-ADAR-Correction/models/table"
	"github.com/znavezz/ASD-ADAR-Correction/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	names := NewRegistry().Names()
	assert.Equal(t, []string{"csv", "tsv", "vcf", "vep"}, names["upload"])
	assert.Equal(t, []string{"default", "split_alleles", "standard"}, names["pre_processor"])
	assert.Contains(t, names["annotation"], "copy_column")
	assert.Equal(t, []string{"presence", "reference_allele"}, names["validator"])
}

func TestEditingAnnotators(t *testing.T) {
	ctx := context.Background()

	v, err := IsAdarFixable(ctx, table.Record{"ref": "A", "alt": "G"}, contracts.Options{})
	require.NoError(t, err)
	assert.Equal(t, true, v, "strand defaults to plus")

	v, err = IsAdarFixable(ctx, table.Record{"ref": "A", "alt": "G", "STRAND": "-1"}, contracts.Options{})
	require.NoError(t, err)
	assert.Equal(t, false, v)

	v, err = IsApobecFixable(ctx, table.Record{"REF": "G", "ALT": "A"}, contracts.Options{
		"ref_column": "REF", "alt_column": "ALT", "default_strand": "-",
	})
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = Substitution(ctx, table.Record{"ref": "c", "alt": "t"}, contracts.Options{})
	require.NoError(t, err)
	assert.Equal(t, "C>T", v)
	_, err = Substitution(ctx, table.Record{"ref": "C"}, contracts.Options{})
	assert.Error(t, err)

	v, err = VariantClass(ctx, table.Record{"ref": "A", "alt": "AT"}, contracts.Options{})
	require.NoError(t, err)
	assert.Equal(t, "insertion", v)
}

func TestCopyColumn(t *testing.T) {
	ctx := context.Background()
	row := table.Record{"STRAND": "+", "gene": ""}

	v, err := CopyColumn(ctx, row, contracts.Options{AnnotationNameOption: "STRAND"})
	require.NoError(t, err)
	assert.Equal(t, "+", v)

	v, err = CopyColumn(ctx, row, contracts.Options{AnnotationNameOption: "x", "column": "gene"})
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = CopyColumn(ctx, row, contracts.Options{})
	assert.Error(t, err)
}

func TestVepField(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(dir, "vep.txt"),
		"## ENSEMBL VARIANT EFFECT PREDICTOR\n"+
			"#Uploaded_variation\tLocation\tAllele\tGene\tConsequence\tExtra\n"+
			"1:100:A:G\t1:100\tG\tENSG1\tmissense_variant\tSTRAND=1;SYMBOL=ABC\n"+
			"1:100:A:G\t1:100\tG\tENSG2\tintron_variant\tSTRAND=-1;SYMBOL=XYZ\n"+
			"1:200:C:T\t1:200\tT\t-\tintergenic_variant\t-\n")
	ctx := context.Background()
	opts := contracts.Options{SourceDirOption: dir, "results": "vep.txt", "field": "SYMBOL"}

	v, err := VepField(ctx, table.Record{"chr": "chr1", "pos": "100", "ref": "A", "alt": "G"}, opts)
	require.NoError(t, err)
	assert.Equal(t, "ABC", v, "first transcript wins")

	v, err = VepField(ctx, table.Record{"chr": "1", "pos": "200", "ref": "C", "alt": "T"}, opts)
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = VepField(ctx, table.Record{"chr": "1", "pos": "999", "ref": "C", "alt": "T"}, opts)
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = VepField(ctx, table.Record{}, contracts.Options{"results": "vep.txt"})
	assert.Error(t, err)
}

func TestValidators(t *testing.T) {
	ctx := context.Background()
	m := table.NewMaster([]string{"chr", "pos", "ref"})
	row, err := m.Append(table.NewKey("1", "100", "A"))
	require.NoError(t, err)

	ok, _, err := ValidatePresence(ctx, row, table.Record{}, contracts.Options{})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _, err = ValidateReferenceAllele(ctx, row, table.Record{"ref": "a"}, contracts.Options{})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, detail, err := ValidateReferenceAllele(ctx, row, table.Record{"REF": "G"}, contracts.Options{"record_ref_column": "REF"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "reference allele G does not match A", detail)

	_, _, err = ValidateReferenceAllele(ctx, row, table.Record{}, contracts.Options{})
	assert.Error(t, err)
}

func TestPreProcessors(t *testing.T) {
	ctx := context.Background()
	c := &contracts.Contract{
		KeyCols: []string{"chr", "pos", "ref", "alt"},
		Options: contracts.Options{"column_map": "CHROM:chr, POS:pos"},
	}
	f := table.NewFrame("CHROM", "POS", "ref", "alt")
	f.Append(table.Record{"CHROM": " chr2 ", "POS": "5", "ref": "a", "alt": "g,t"})

	out, err := PreProcessSplitAlleles(ctx, f, c)
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, table.Record{"chr": "2", "pos": "5", "ref": "A", "alt": "G"}, out.Records[0])
	assert.Equal(t, "T", out.Records[1]["alt"])

	c.Options["column_map"] = "CHROM"
	_, err = PreProcessStandard(ctx, table.NewFrame("CHROM"), c)
	assert.Error(t, err)
}

func TestVepFieldRereadsRegeneratedResults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vep.txt")
	header := "#Uploaded_variation\tLocation\tAllele\tExtra\n"
	testutil.WriteFile(t, path, header+"1:100:A:G\t1:100\tG\tSYMBOL=OLD\n")

	ctx := context.Background()
	rec := table.Record{"chr": "1", "pos": "100", "ref": "A", "alt": "G"}
	opts := contracts.Options{SourceDirOption: dir, "results": "vep.txt", "field": "SYMBOL"}

	v, err := VepField(ctx, rec, opts)
	require.NoError(t, err)
	assert.Equal(t, "OLD", v)

	testutil.WriteFile(t, path, header+"1:100:A:G\t1:100\tG\tSYMBOL=RENAMED\n")
	v, err = VepField(ctx, rec, opts)
	require.NoError(t, err)
	assert.Equal(t, "RENAMED", v)
}
