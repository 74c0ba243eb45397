package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/znavezz/ASD-ADAR-Correction/models/constants"
	"github.com/znavezz/ASD-ADAR-Correction/models/constants/chromosome"
	"github.com/znavezz/ASD-ADAR-Correction/models/constants/strand"
	"github.com/znavezz/ASD-ADAR-Correction/models/contracts"
	"github.com/znavezz/ASD-ADAR-Correction/models/table"
	"github.com/znavezz/ASD-ADAR-Correction/services/editing"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Options injected into every annotation's options by the contract loader:
// the source directory, against which relative file options resolve, and
// the annotation's own column name.
const (
	SourceDirOption      = "source_dir"
	AnnotationNameOption = "annotation"
)

func IsAdarFixable(ctx context.Context, row table.Record, opts contracts.Options) (interface{}, error) {
	ref, alt, s := editingInputs(row, opts)
	return editing.IsAdarFixable(ref, alt, s), nil
}

func IsApobecFixable(ctx context.Context, row table.Record, opts contracts.Options) (interface{}, error) {
	ref, alt, s := editingInputs(row, opts)
	return editing.IsApobecFixable(ref, alt, s), nil
}

// editingInputs pulls the alleles and strand out of a record. Sources without a
// strand column fall back to default_strand, "+" unless configured.
func editingInputs(row table.Record, opts contracts.Options) (string, string, constants.Strand) {
	ref := row.Get(opts.Get("ref_column", "ref"))
	alt := row.Get(opts.Get("alt_column", "alt"))
	strandCol := opts.Get("strand_column", constants.StrandColumn)
	raw := opts.Get("default_strand", "+")
	if row.Has(strandCol) && row.Get(strandCol) != "" {
		raw = row.Get(strandCol)
	}
	return ref, alt, strand.CastToStrand(raw)
}

func Substitution(ctx context.Context, row table.Record, opts contracts.Options) (interface{}, error) {
	ref := row.Get(opts.Get("ref_column", "ref"))
	alt := row.Get(opts.Get("alt_column", "alt"))
	if ref == "" || alt == "" {
		return nil, fmt.Errorf("missing ref or alt allele")
	}
	return editing.Substitution(ref, alt), nil
}

func VariantClass(ctx context.Context, row table.Record, opts contracts.Options) (interface{}, error) {
	ref := row.Get(opts.Get("ref_column", "ref"))
	alt := row.Get(opts.Get("alt_column", "alt"))
	if ref == "" && alt == "" {
		return nil, fmt.Errorf("missing ref and alt allele")
	}
	return editing.VariantClass(ref, alt), nil
}

// CopyColumn carries a column of the source record into the master table,
// e.g. the STRAND reported by a source. The column option defaults to the
// annotation's own column name.
func CopyColumn(ctx context.Context, row table.Record, opts contracts.Options) (interface{}, error) {
	col := opts.Get("column", opts.Get(AnnotationNameOption, ""))
	if col == "" {
		return nil, fmt.Errorf("copy_column requires a column option")
	}
	v, ok := row[col]
	if !ok || v == "" {
		return nil, nil
	}
	return v, nil
}

// VEP result files are parsed once per version of the file: the cache key
// carries the file's modification time and size next to its path.
var (
	vepCache, _ = lru.New[string, map[string]table.Record](16)
	vepLoadMu   sync.Mutex
)

// VepField returns the value of the field option for the row's variant as
// found in the VEP results file named by the results option. Variants that
// VEP did not report yield no value.
func VepField(ctx context.Context, row table.Record, opts contracts.Options) (interface{}, error) {
	field := opts.Get("field", "")
	if field == "" {
		return nil, fmt.Errorf("vep_field requires a field option")
	}
	results := opts.Get("results", "")
	if results == "" {
		return nil, fmt.Errorf("vep_field requires a results option")
	}
	if !filepath.IsAbs(results) {
		results = filepath.Join(opts.Get(SourceDirOption, "."), results)
	}

	byKey, err := loadVepResults(ctx, results)
	if err != nil {
		return nil, err
	}
	hit, ok := byKey[vepKey(row.Get("chr"), row.Get("pos"), row.Get("ref"), row.Get("alt"))]
	if !ok {
		return nil, nil
	}
	v, ok := hit[field]
	if !ok || v == "" || v == "-" {
		return nil, nil
	}
	return v, nil
}

func loadVepResults(ctx context.Context, path string) (map[string]table.Record, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	cacheKey := fmt.Sprintf("%s|%d|%d", path, info.ModTime().UnixNano(), info.Size())
	if byKey, ok := vepCache.Get(cacheKey); ok {
		return byKey, nil
	}
	vepLoadMu.Lock()
	defer vepLoadMu.Unlock()
	if byKey, ok := vepCache.Get(cacheKey); ok {
		return byKey, nil
	}

	frame, err := UploadVep(ctx, path, contracts.Options{})
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]table.Record, frame.Len())
	for _, rec := range frame.Records {
		id := vepKey(rec["chr"], rec["pos"], rec["ref"], rec["alt"])
		// VEP emits one line per transcript; the first one wins
		if _, seen := byKey[id]; !seen {
			byKey[id] = rec
		}
	}
	vepCache.Add(cacheKey, byKey)
	return byKey, nil
}

func vepKey(chr, pos, ref, alt string) string {
	return table.NewKey(chromosome.StripPrefix(chr), pos, ref, alt).Id()
}
