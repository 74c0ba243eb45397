package sourceKind

import (
	"strings"

	"github.com/znavezz/ASD-ADAR-Correction/models/constants"
)

const (
	Unknown    constants.SourceKind = "UNKNOWN"
	Variant    constants.SourceKind = "VARIANT"
	Validation constants.SourceKind = "VALIDATION"
)

// FromCategory maps a DB category directory onto the kind of the
// sources found beneath it.
func FromCategory(category string) constants.SourceKind {
	switch strings.ToLower(category) {
	case constants.VariantsCategory:
		return Variant
	case constants.ValidationCategory:
		return Validation
	default:
		return Unknown
	}
}
