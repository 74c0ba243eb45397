package strand

import (
	"strings"

	"github.com/znavezz/ASD-ADAR-Correction/models/constants"
)

const (
	Unknown constants.Strand = iota
	Plus
	Minus
)

// CastToStrand accepts both the symbolic ("+"/"-") and the VEP numeric
// ("1"/"-1") strand notations.
func CastToStrand(text string) constants.Strand {
	switch strings.TrimSpace(text) {
	case "+", "1", "+1", "1.0":
		return Plus
	case "-", "-1", "-1.0":
		return Minus
	default:
		return Unknown
	}
}

func StrandToString(s constants.Strand) string {
	switch s {
	case Plus:
		return "+"
	case Minus:
		return "-"
	default:
		return "UNKNOWN"
	}
}

// Complement returns the complementary base of a single nucleotide; RNA
// uracil is treated as thymine. Anything else maps to N.
func Complement(base string) string {
	switch strings.ToUpper(base) {
	case "A":
		return "T"
	case "T", "U":
		return "A"
	case "C":
		return "G"
	case "G":
		return "C"
	default:
		return "N"
	}
}
