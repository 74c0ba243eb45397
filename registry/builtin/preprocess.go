package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/znavezz/ASD-ADAR-Correction/models/constants/chromosome"
	"github.com/znavezz/ASD-ADAR-Correction/models/contracts"
	"github.com/znavezz/ASD-ADAR-Correction/models/table"
)

// PreProcessDefault hands the uploaded frame back untouched.
func PreProcessDefault(ctx context.Context, frame *table.Frame, c *contracts.Contract) (*table.Frame, error) {
	return frame, nil
}

// PreProcessStandard renames columns according to the column_map option
// ("From:to,From2:to2"), trims every key value, strips the "chr" prefix from
// the chromosome column (unless strip_chr is "false") and upper-cases alleles.
func PreProcessStandard(ctx context.Context, frame *table.Frame, c *contracts.Contract) (*table.Frame, error) {
	mapping, err := parseColumnMap(c.Options.Get("column_map", ""))
	if err != nil {
		return nil, err
	}
	for _, m := range mapping {
		frame.Rename(m[0], m[1])
	}

	chromCol := c.Options.Get("chr_column", "chr")
	stripChr := c.Options.Get("strip_chr", "true") == "true"
	alleleCols := map[string]bool{
		c.Options.Get("ref_column", "ref"): true,
		c.Options.Get("alt_column", "alt"): true,
	}

	for _, rec := range frame.Records {
		for _, k := range c.KeyCols {
			v, ok := rec[k]
			if !ok {
				continue
			}
			v = strings.TrimSpace(v)
			if k == chromCol && stripChr {
				v = chromosome.StripPrefix(v)
			}
			if alleleCols[k] {
				v = strings.ToUpper(v)
			}
			rec[k] = v
		}
	}
	return frame, nil
}

// PreProcessSplitAlleles applies the standard normalization and then emits
// one record per comma separated alternate allele, as found in multi-allelic
// VCF lines.
func PreProcessSplitAlleles(ctx context.Context, frame *table.Frame, c *contracts.Contract) (*table.Frame, error) {
	frame, err := PreProcessStandard(ctx, frame, c)
	if err != nil {
		return nil, err
	}
	altCol := c.Options.Get("alt_column", "alt")
	if !frame.HasColumn(altCol) {
		return frame, nil
	}

	out := table.NewFrame(frame.Columns...)
	for _, rec := range frame.Records {
		alts := strings.Split(rec[altCol], ",")
		if len(alts) == 1 {
			out.Records = append(out.Records, rec)
			continue
		}
		for _, alt := range alts {
			split := rec.Clone()
			split[altCol] = strings.TrimSpace(alt)
			out.Records = append(out.Records, split)
		}
	}
	return out, nil
}

func parseColumnMap(raw string) ([][2]string, error) {
	var mapping [][2]string
	if strings.TrimSpace(raw) == "" {
		return mapping, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		from, to, ok := strings.Cut(pair, ":")
		from, to = strings.TrimSpace(from), strings.TrimSpace(to)
		if !ok || from == "" || to == "" {
			return nil, fmt.Errorf("invalid column_map entry %q, expected From:to", pair)
		}
		mapping = append(mapping, [2]string{from, to})
	}
	return mapping, nil
}
