// Package discovery enumerates the source directories of a DBs root.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/znavezz/ASD-ADAR-Correction/models/constants"
	assemblyId "github.com/znavezz/ASD-ADAR-Correction/models/constants/assembly-id"
	sk "github.com/znavezz/ASD-ADAR-Correction/models/constants/source-kind"
	merrors "github.com/znavezz/ASD-ADAR-Correction/models/errors"
)

// SourceDir is a discovered source: its directory name, full path and the
// category it was found under.
type SourceDir struct {
	Name string               `json:"name"`
	Path string               `json:"path"`
	Kind constants.SourceKind `json:"kind"`
}

// Discover lists the immediate subdirectories of root/variants followed by
// those of root/validation, each in directory listing order. Hidden and
// underscore-prefixed directories are skipped. A root that holds neither
// category is an error.
func Discover(root string) ([]SourceDir, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &merrors.DiscoveryError{Root: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &merrors.DiscoveryError{Root: root, Err: fmt.Errorf("not a directory")}
	}

	var (
		sources []SourceDir
		found   int
	)
	for _, category := range []string{constants.VariantsCategory, constants.ValidationCategory} {
		dir := filepath.Join(root, category)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, &merrors.DiscoveryError{Root: root, Err: err}
		}
		found++

		for _, e := range entries {
			if !e.IsDir() || skipped(e.Name()) {
				continue
			}
			sources = append(sources, SourceDir{
				Name: e.Name(),
				Path: filepath.Join(dir, e.Name()),
				Kind: sk.FromCategory(category),
			})
		}
	}
	if found == 0 {
		return nil, &merrors.DiscoveryError{
			Root: root,
			Err:  fmt.Errorf("neither %s/ nor %s/ found", constants.VariantsCategory, constants.ValidationCategory),
		}
	}
	return sources, nil
}

// ResolveRoot picks the per-assembly subdirectory of dbsPath when there is
// one (resources/DBs/hg38), otherwise dbsPath itself.
func ResolveRoot(dbsPath string, assembly constants.AssemblyId) string {
	candidates := []string{string(assemblyId.ToGenomeVersion(assembly))}
	if assembly == assemblyId.GRCh37 {
		candidates = append(candidates, "hg37")
	}
	for _, c := range candidates {
		p := filepath.Join(dbsPath, c)
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			return p
		}
	}
	return dbsPath
}

func skipped(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}
