package discovery

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	assemblyId "github.com/znavezz/ASD-ADAR-Correction/models/constants/assembly-id"
	sk "github.com/znavezz/ASD-ADAR-Correction/models/constants/source-kind"
	merrors "github.com/znavezz/ASD-ADAR-Correction/models/errors"

	"github.com/ahmetb/go-linq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkdirs(t *testing.T, root string, dirs ...string) {
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0o755))
	}
}

func TestDiscoverListsVariantsThenValidation(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root,
		"variants/db1", "variants/db2", "variants/.hidden", "variants/_disabled",
		"validation/clinvar",
	)
	require.NoError(t, os.WriteFile(filepath.Join(root, "variants", "README"), []byte("x"), 0o644))

	sources, err := Discover(root)
	require.NoError(t, err)

	var names []string
	linq.From(sources).SelectT(func(s SourceDir) string { return s.Name }).ToSlice(&names)
	assert.Equal(t, []string{"db1", "db2", "clinvar"}, names)

	assert.Equal(t, sk.Variant, sources[0].Kind)
	assert.Equal(t, sk.Validation, sources[2].Kind)
	assert.Equal(t, filepath.Join(root, "validation", "clinvar"), sources[2].Path)
}

func TestDiscoverOnlyVariants(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "variants/db1")

	sources, err := Discover(root)
	require.NoError(t, err)
	assert.Len(t, sources, 1)
}

func TestDiscoverErrors(t *testing.T) {
	var de *merrors.DiscoveryError

	_, err := Discover(filepath.Join(t.TempDir(), "missing"))
	assert.True(t, errors.As(err, &de))

	empty := t.TempDir()
	_, err = Discover(empty)
	assert.True(t, errors.As(err, &de))
	assert.Equal(t, empty, de.Root)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = Discover(file)
	assert.True(t, errors.As(err, &de))
}

func TestResolveRoot(t *testing.T) {
	dbs := t.TempDir()
	assert.Equal(t, dbs, ResolveRoot(dbs, assemblyId.GRCh38))

	mkdirs(t, dbs, "hg38/variants", "hg37/variants")
	assert.Equal(t, filepath.Join(dbs, "hg38"), ResolveRoot(dbs, assemblyId.GRCh38))
	assert.Equal(t, filepath.Join(dbs, "hg37"), ResolveRoot(dbs, assemblyId.GRCh37))

	mkdirs(t, dbs, "hg19")
	assert.Equal(t, filepath.Join(dbs, "hg19"), ResolveRoot(dbs, assemblyId.GRCh37))
}
