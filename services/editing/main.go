// Package editing classifies base changes against the signatures of the RNA
// editing enzymes, taking the transcript strand into account.
package editing

import (
	"strings"

	"github.com/znavezz/ASD-ADAR-Correction/models/constants"
	"github.com/znavezz/ASD-ADAR-Correction/models/constants/strand"
)

// normalizeBase upper-cases a single-base allele and reads RNA uracil as T.
func normalizeBase(allele string) string {
	b := strings.ToUpper(strings.TrimSpace(allele))
	if b == "U" {
		return "T"
	}
	return b
}

// senseChange expresses a genomic ref>alt change on the transcript's sense
// strand. Only single-base substitutions on a known strand qualify.
func senseChange(ref, alt string, s constants.Strand) (string, string, bool) {
	ref, alt = normalizeBase(ref), normalizeBase(alt)
	if len(ref) != 1 || len(alt) != 1 || ref == alt {
		return "", "", false
	}
	switch s {
	case strand.Plus:
		return ref, alt, true
	case strand.Minus:
		return strand.Complement(ref), strand.Complement(alt), true
	default:
		return "", "", false
	}
}

// IsAdarFixable reports whether the change is the A>G (A-to-I) edit on the
// sense strand: A>G on the plus strand, T>C on the minus strand.
func IsAdarFixable(ref, alt string, s constants.Strand) bool {
	r, a, ok := senseChange(ref, alt, s)
	return ok && r == "A" && a == "G"
}

// IsApobecFixable reports whether the change is the C>T (C-to-U) edit on the
// sense strand: C>T on the plus strand, G>A on the minus strand.
func IsApobecFixable(ref, alt string, s constants.Strand) bool {
	r, a, ok := senseChange(ref, alt, s)
	return ok && r == "C" && a == "T"
}

// Substitution renders a change as REF>ALT.
func Substitution(ref, alt string) string {
	return normalizeBase(ref) + ">" + normalizeBase(alt)
}

// VariantClass gives a coarse class of the change: SNV, MNV, insertion or
// deletion. "-" stands for an empty allele.
func VariantClass(ref, alt string) string {
	ref, alt = strings.TrimSpace(ref), strings.TrimSpace(alt)
	if ref == "-" {
		ref = ""
	}
	if alt == "-" {
		alt = ""
	}
	switch {
	case len(ref) == 1 && len(alt) == 1:
		return "SNV"
	case len(ref) == len(alt):
		return "MNV"
	case len(ref) < len(alt):
		return "insertion"
	default:
		return "deletion"
	}
}
