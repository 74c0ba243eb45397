package tsv

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/znavezz/ASD-ADAR-Correction/models/table"
	"github.com/znavezz/ASD-ADAR-Correction/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadDelimitedSkipsMeta(t *testing.T) {
	in := "##fileformat=VCFv4.2\n##INFO=<ID=DP>\n#CHROM\tPOS\tREF\n1\t10\tA\n\n2\t20\tC\n"

	f, err := ReadDelimited(strings.NewReader(in), '\t', true)
	require.NoError(t, err)
	assert.Equal(t, []string{"#CHROM", "POS", "REF"}, f.Columns)
	require.Equal(t, 2, f.Len())
	assert.Equal(t, "20", f.Records[1]["POS"])
}

func TestReadDelimitedEmpty(t *testing.T) {
	_, err := ReadDelimited(strings.NewReader(""), '\t', false)
	assert.Error(t, err)
}

func TestDelimiterFor(t *testing.T) {
	assert.Equal(t, ',', DelimiterFor("a/input.csv.gz"))
	assert.Equal(t, ',', DelimiterFor("a/INPUT.CSV"))
	assert.Equal(t, '\t', DelimiterFor("a/input.tsv"))
}

func TestMasterRoundTripGzip(t *testing.T) {
	m := table.NewMaster([]string{"chr", "pos"})
	_, err := m.AddIndicator("db1")
	require.NoError(t, err)
	_, err = m.AddAnnotation("note")
	require.NoError(t, err)
	r, err := m.Append(table.NewKey("1", "10"))
	require.NoError(t, err)
	r.Set("db1", true)
	r.Set("note", "x,y")
	_, err = m.Append(table.NewKey("2", "20"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "master.csv.gz")
	require.NoError(t, WriteMaster(path, m))

	back, err := ReadMaster(path)
	require.NoError(t, err)
	assert.Equal(t, m.Schema(), back.Schema())
	require.Equal(t, 2, back.Len())
	assert.True(t, back.Row(0).Indicator("db1"))
	assert.False(t, back.Row(1).Indicator("db1"))
	v, _ := back.Row(0).Get("note")
	assert.Equal(t, "x,y", v)
	_, ok := back.Row(1).Get("note")
	assert.False(t, ok)
}

func TestReadMasterNeedsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.tsv")
	testutil.WriteFile(t, path, "chr\tpos\n1\t10\n")

	_, err := ReadMaster(path)
	assert.Error(t, err)

	_, ok, err := ReadSchema(path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDropMetaLinesStopsOnClose(t *testing.T) {
	before := runtime.NumGoroutine()
	pr := dropMetaLines(strings.NewReader("##meta\n" + strings.Repeat("1\t10\tA\n", 100000)))

	buf := make([]byte, 16)
	n, err := pr.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "1\t10\tA\n", string(buf[:n]))
	require.NoError(t, pr.Close())

	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, 2*time.Second, 10*time.Millisecond)
}
