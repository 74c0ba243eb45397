package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/znavezz/ASD-ADAR-Correction/models/contracts"
	"github.com/znavezz/ASD-ADAR-Correction/models/table"
	"github.com/znavezz/ASD-ADAR-Correction/repositories/tsv"
)

// VCF columns, lowercased the way the original DB loaders expect them.
var vcfHeaders = []string{"chrom", "pos", "id", "ref", "alt", "qual", "filter", "info", "format"}

// Column names of the VEP default (tab) output.
var vepHeaders = []string{"#Uploaded_variation", "Location", "Allele", "Gene", "Feature",
	"Feature_type", "Consequence", "cDNA_position", "CDS_position",
	"Protein_position", "Amino_acids", "Codons", "Existing_variation", "Extra"}

func UploadTsv(ctx context.Context, path string, opts contracts.Options) (*table.Frame, error) {
	return uploadDelimited(path, '\t', opts)
}

func UploadCsv(ctx context.Context, path string, opts contracts.Options) (*table.Frame, error) {
	return uploadDelimited(path, ',', opts)
}

func uploadDelimited(path string, delim rune, opts contracts.Options) (*table.Frame, error) {
	if d := opts.Get("delimiter", ""); d != "" {
		switch d {
		case "tab", `\t`:
			delim = '\t'
		default:
			delim = []rune(d)[0]
		}
	}
	rc, err := tsv.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return tsv.ReadDelimited(rc, delim, opts.Get("skip_meta", "false") == "true")
}

// UploadVcf reads a (possibly gzipped) VCF: meta lines are skipped, #CHROM
// becomes chr, the other fixed columns are lowercased and INFO KEY=VALUE pairs
// are expanded into their own columns unless expand_info is "false".
func UploadVcf(ctx context.Context, path string, opts contracts.Options) (*table.Frame, error) {
	rc, err := tsv.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	frame, err := tsv.ReadDelimited(rc, '\t', true)
	if err != nil {
		return nil, err
	}
	if !frame.HasColumn("#CHROM") {
		return nil, fmt.Errorf("%s: no #CHROM header line found", path)
	}
	frame.Rename("#CHROM", "chr")
	for _, c := range append([]string(nil), frame.Columns...) {
		lower := strings.ToLower(c)
		if lower != c && isVcfHeader(lower) {
			frame.Rename(c, lower)
		}
	}
	if opts.Get("expand_info", "true") == "true" && frame.HasColumn("info") {
		expandPairs(frame, "info", ";")
	}
	return frame, nil
}

// UploadVep reads VEP tab output. The uploaded variation identifier is
// expected as chr:pos:ref:alt and is split into those columns; the Extra
// column is expanded into one column per tag.
func UploadVep(ctx context.Context, path string, opts contracts.Options) (*table.Frame, error) {
	rc, err := tsv.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	frame, err := tsv.ReadDelimited(rc, '\t', true)
	if err != nil {
		return nil, err
	}
	if !frame.HasColumn(vepHeaders[0]) {
		return nil, fmt.Errorf("%s: missing %s column", path, vepHeaders[0])
	}
	for _, c := range []string{"chr", "pos", "ref", "alt"} {
		frame.AddColumn(c)
	}
	for _, rec := range frame.Records {
		parts := strings.Split(rec[vepHeaders[0]], ":")
		if len(parts) != 4 {
			continue
		}
		rec["chr"], rec["pos"], rec["ref"], rec["alt"] = parts[0], parts[1], parts[2], parts[3]
	}
	if frame.HasColumn("Extra") {
		expandPairs(frame, "Extra", ";")
	}
	return frame, nil
}

// expandPairs splits KEY=VALUE items of a column into columns named by KEY.
// Flags without a value are stored as "true". Existing columns are never
// overwritten.
func expandPairs(frame *table.Frame, column string, sep string) {
	base := make(map[string]bool, len(frame.Columns))
	for _, c := range frame.Columns {
		base[c] = true
	}
	for _, rec := range frame.Records {
		raw := strings.TrimSpace(rec[column])
		if raw == "" || raw == "." || raw == "-" {
			continue
		}
		for _, item := range strings.Split(raw, sep) {
			if item == "" {
				continue
			}
			key, value, found := strings.Cut(item, "=")
			if !found {
				value = "true"
			}
			if key == "" || base[key] {
				continue
			}
			frame.AddColumn(key)
			rec[key] = value
		}
	}
}

func isVcfHeader(c string) bool {
	for _, h := range vcfHeaders {
		if h == c {
			return true
		}
	}
	return false
}
