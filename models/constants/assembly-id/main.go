package assemblyId

import (
	"strings"

	"github.com/znavezz/ASD-ADAR-Correction/models/constants"
)

const (
	Unknown constants.AssemblyId = "Unknown"

	GRCh38 constants.AssemblyId = "GRCh38"
	GRCh37 constants.AssemblyId = "GRCh37"
	Other  constants.AssemblyId = "Other"
)

func CastToAssemblyId(text string) constants.AssemblyId {
	switch strings.ToLower(text) {
	case "grch38", "hg38":
		return GRCh38
	case "grch37", "hg19", "hg37":
		return GRCh37
	case "other":
		return Other
	default:
		return Unknown
	}
}

func IsKnownAssemblyId(text string) bool {
	// attempt to cast to assemblyId and
	// return if unknown assemblyId
	return CastToAssemblyId(text) != Unknown
}

// ToGenomeVersion maps an assembly onto the UCSC name used for reference
// FASTA files, DB directories and the post-processing sequence column.
func ToGenomeVersion(assembly constants.AssemblyId) constants.GenomeVersion {
	switch assembly {
	case GRCh37:
		return "hg19"
	default:
		return "hg38"
	}
}
