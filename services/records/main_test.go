package records

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/znavezz/ASD-ADAR-Correction/models/constants"
	sk "github.com/znavezz/ASD-ADAR-Correction/models/constants/source-kind"
	mc "github.com/znavezz/ASD-ADAR-Correction/models/contracts"
	merrors "github.com/znavezz/ASD-ADAR-Correction/models/errors"
	"github.com/znavezz/ASD-ADAR-Correction/models/table"
	"github.com/znavezz/ASD-ADAR-Correction/registry/builtin"
	"github.com/znavezz/ASD-ADAR-Correction/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContract(dir string, upload mc.UploadFunc, pre mc.PreProcessFunc) *mc.Contract {
	return &mc.Contract{
		Name:         filepath.Base(dir),
		Kind:         sk.Variant,
		Dir:          dir,
		KeyCols:      constants.DefaultKeyColumns,
		Options:      mc.Options{},
		Upload:       upload,
		PreProcessor: pre,
	}
}

func keys(f *table.Frame) []string {
	var out []string
	for _, r := range f.Records {
		out = append(out, table.NewKey(r["chr"], r["pos"], r["ref"], r["alt"]).String())
	}
	return out
}

func TestLoadNormalizedTsv(t *testing.T) {
	dir := testutil.WriteSource(t, t.TempDir(), testutil.Source{
		Name:  "db1",
		Input: "Chrom\tPosition\tref\talt\tscore\nchr1 \t100\ta\tg\t0.5\n2\t200\tC\tT\t\n",
	})
	c := newContract(dir, builtin.UploadTsv, builtin.PreProcessStandard)
	c.Options["column_map"] = "Chrom:chr,Position:pos"

	frame, err := LoadNormalized(context.Background(), NewSource(c))
	require.NoError(t, err)
	assert.Equal(t, []string{"1:100:A:G", "2:200:C:T"}, keys(frame))
	assert.Equal(t, "0.5", frame.Records[0]["score"])
}

func TestConventionalInputLookupOrder(t *testing.T) {
	dir := testutil.WriteSource(t, t.TempDir(), testutil.Source{
		Name:      "db1",
		InputName: "input.csv",
		Input:     "chr,pos,ref,alt\n1,5,A,G\n",
		Extra:     map[string]string{"input.txt": "ignored"},
	})
	path, err := NewSource(newContract(dir, builtin.UploadCsv, builtin.PreProcessDefault)).InputPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "input.csv"), path)
}

func TestGzippedInput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db1")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, _ = zw.Write([]byte("chr\tpos\tref\talt\n3\t30\tT\tC\n"))
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "input.tsv.gz"), buf.Bytes(), 0o644))

	frame, err := LoadNormalized(context.Background(), NewSource(newContract(dir, builtin.UploadTsv, builtin.PreProcessStandard)))
	require.NoError(t, err)
	assert.Equal(t, []string{"3:30:T:C"}, keys(frame))
}

func TestVcfInputWithSplitAlleles(t *testing.T) {
	vcf := "##fileformat=VCFv4.2\n" +
		"##INFO=<ID=DP,Number=1,Type=Integer,Description=\"Depth\">\n" +
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n" +
		"chr1\t100\trs1\tA\tG,T\t50\tPASS\tDP=10;SOMATIC\n" +
		"chrX\t5\t.\tC\tT\t.\tPASS\t.\n"
	dir := testutil.WriteSource(t, t.TempDir(), testutil.Source{Name: "vcf", InputName: "input.vcf", Input: vcf})

	frame, err := LoadNormalized(context.Background(), NewSource(newContract(dir, builtin.UploadVcf, builtin.PreProcessSplitAlleles)))
	require.NoError(t, err)
	assert.Equal(t, []string{"1:100:A:G", "1:100:A:T", "X:5:C:T"}, keys(frame))
	assert.Equal(t, "10", frame.Records[1]["DP"])
	assert.Equal(t, "true", frame.Records[0]["SOMATIC"])
	assert.Equal(t, "rs1", frame.Records[0]["id"])
}

func TestVepInput(t *testing.T) {
	vep := "## ENSEMBL VARIANT EFFECT PREDICTOR v110\n" +
		"#Uploaded_variation\tLocation\tAllele\tGene\tConsequence\tExtra\n" +
		"1:100:A:G\t1:100\tG\tENSG1\tmissense_variant\tSTRAND=-1;IMPACT=MODERATE\n"
	dir := testutil.WriteSource(t, t.TempDir(), testutil.Source{Name: "vep", Input: vep})

	frame, err := LoadNormalized(context.Background(), NewSource(newContract(dir, builtin.UploadVep, builtin.PreProcessStandard)))
	require.NoError(t, err)
	require.Equal(t, 1, frame.Len())
	assert.Equal(t, []string{"1:100:A:G"}, keys(frame))
	assert.Equal(t, "-1", frame.Records[0]["STRAND"])
	assert.Equal(t, "MODERATE", frame.Records[0]["IMPACT"])
}

func TestLoadErrors(t *testing.T) {
	var le *merrors.LoadError

	empty := testutil.WriteSource(t, t.TempDir(), testutil.Source{Name: "empty"})
	_, err := NewSource(newContract(empty, builtin.UploadTsv, builtin.PreProcessDefault)).Load(context.Background())
	assert.True(t, errors.As(err, &le))

	c := newContract(empty, builtin.UploadTsv, builtin.PreProcessDefault)
	c.Input = "declared.tsv"
	_, err = NewSource(c).Load(context.Background())
	assert.True(t, errors.As(err, &le))
	assert.Equal(t, filepath.Join(empty, "declared.tsv"), le.Path)

	failing := func(ctx context.Context, path string, opts mc.Options) (*table.Frame, error) {
		return nil, errors.New("boom")
	}
	dir := testutil.WriteSource(t, t.TempDir(), testutil.Source{Name: "db", Input: "chr\n"})
	_, err = NewSource(newContract(dir, failing, builtin.PreProcessDefault)).Load(context.Background())
	assert.True(t, errors.As(err, &le))
}

func TestNormalizeErrors(t *testing.T) {
	var ne *merrors.NormalizeError
	var mcols *merrors.MissingColumns

	dir := testutil.WriteSource(t, t.TempDir(), testutil.Source{Name: "db", Input: "chr\tpos\tref\n1\t2\tA\n"})
	_, err := LoadNormalized(context.Background(), NewSource(newContract(dir, builtin.UploadTsv, builtin.PreProcessStandard)))
	require.True(t, errors.As(err, &ne))
	require.True(t, errors.As(err, &mcols))
	assert.Equal(t, []string{"alt"}, mcols.Columns)

	c := newContract(dir, builtin.UploadTsv, builtin.PreProcessStandard)
	c.Options["column_map"] = "broken"
	_, err = LoadNormalized(context.Background(), NewSource(c))
	assert.True(t, errors.As(err, &ne))
}
