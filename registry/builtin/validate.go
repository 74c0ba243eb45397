package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/znavezz/ASD-ADAR-Correction/models/contracts"
	"github.com/znavezz/ASD-ADAR-Correction/models/table"
)

// ValidatePresence accepts every master row the validation source reports.
func ValidatePresence(ctx context.Context, row *table.Row, record table.Record, opts contracts.Options) (bool, string, error) {
	return true, "", nil
}

// ValidateReferenceAllele checks that the reference allele reported by the
// validation source agrees with the master row's. Comparison ignores case.
func ValidateReferenceAllele(ctx context.Context, row *table.Row, record table.Record, opts contracts.Options) (bool, string, error) {
	masterCol := opts.Get("ref_column", "ref")
	recordCol := opts.Get("record_ref_column", masterCol)

	v, ok := row.Get(masterCol)
	if !ok {
		return false, "", fmt.Errorf("master row has no %s value", masterCol)
	}
	if !record.Has(recordCol) {
		return false, "", fmt.Errorf("validation record has no %s column", recordCol)
	}
	want := strings.TrimSpace(table.FormatCell(v))
	got := strings.TrimSpace(record.Get(recordCol))
	if !strings.EqualFold(want, got) {
		return false, fmt.Sprintf("reference allele %s does not match %s", got, want), nil
	}
	return true, "", nil
}
