// Package testutil holds fixtures shared by the package tests: the test
// configuration and helpers laying out on-disk DB trees.
package testutil

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/znavezz/ASD-ADAR-Correction/models"
	"github.com/znavezz/ASD-ADAR-Correction/models/constants"

	"github.com/stretchr/testify/require"
	yaml "gopkg.in/yaml.v2"
)

func InitConfig() *models.Config {
	var cfg models.Config

	// get this file's path
	_, filename, _, _ := runtime.Caller(0)
	folderpath := path.Dir(filename)

	f, err := os.Open(fmt.Sprintf("%s/test.config.yml", folderpath))
	if err != nil {
		processError(err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		processError(err)
	}
	return &cfg
}

func processError(err error) {
	fmt.Println(err)
	os.Exit(2)
}

// Source describes a DB directory to lay out under a test root.
type Source struct {
	Category     string
	Name         string
	Instructions string
	// InputName defaults to input.tsv
	InputName string
	Input     string
	Extra     map[string]string
}

// WriteSource creates root/<category>/<name> with its instructions.hcl and
// raw input, returning the directory.
func WriteSource(t *testing.T, root string, s Source) string {
	t.Helper()
	if s.Category == "" {
		s.Category = constants.VariantsCategory
	}
	dir := filepath.Join(root, s.Category, s.Name)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	if s.Instructions != "" {
		WriteFile(t, filepath.Join(dir, constants.InstructionsFilename), s.Instructions)
	}
	if s.Input != "" {
		name := s.InputName
		if name == "" {
			name = "input.tsv"
		}
		WriteFile(t, filepath.Join(dir, name), s.Input)
	}
	for name, content := range s.Extra {
		WriteFile(t, filepath.Join(dir, name), content)
	}
	return dir
}

func WriteFile(t *testing.T, p string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

// VariantInstructions renders a minimal variant source contract keyed on
// chr/pos/ref/alt, with optional extra HCL appended.
func VariantInstructions(name string, extra string) string {
	return fmt.Sprintf(`name          = %q
key_cols      = ["chr", "pos", "ref", "alt"]
upload        = "tsv"
pre_processor = "standard"
%s
`, name, extra)
}

// ValidationInstructions renders a validation source contract.
func ValidationInstructions(name string, keyCols string, validator string) string {
	return fmt.Sprintf(`name          = %q
key_cols      = %s
upload        = "tsv"
pre_processor = "standard"
validator     = %q
`, name, keyCols, validator)
}
