package policy

import (
	"fmt"
	"strings"

	"github.com/znavezz/ASD-ADAR-Correction/models/constants"
)

const (
	// Keep: first writer wins; rows that already exist are never re-annotated.
	Keep constants.AnnotationPolicy = "keep"
	// Override: the newest computed value replaces the prior one.
	Override constants.AnnotationPolicy = "override"
	// Fill: existing rows are annotated only where the cell is still missing.
	Fill constants.AnnotationPolicy = "fill"
)

func CastToPolicy(text string) (constants.AnnotationPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "", "keep":
		return Keep, nil
	case "override":
		return Override, nil
	case "fill":
		return Fill, nil
	default:
		return Keep, fmt.Errorf("unknown annotation policy %q", text)
	}
}
