package constants

/*
	Defines a set of base level
	constants and enums to be used
	throughout the merger and its
	associated services.
*/
type AssemblyId string
type GenomeVersion string
type SourceKind string
type Strand int
type AnnotationPolicy string

// Default key convention shared by every variant source of the original DBs.
var DefaultKeyColumns = []string{"chr", "pos", "ref", "alt"}

// Column names recognised as the genomic position within a key tuple.
var PositionColumns = []string{"pos", "position", "start"}

// Values treated as "no value" when they appear in a key column.
var MissingValueTokens = []string{"", ".", "na", "nan", "null", "none", "<na>"}

// Conventional raw input file names, in lookup order.
var ConventionalInputFilenames = []string{
	"input.tsv", "input.tsv.gz",
	"input.csv", "input.csv.gz",
	"input.vcf", "input.vcf.gz",
	"input.txt",
}

const (
	InstructionsFilename = "instructions.hcl"

	VariantsCategory   = "variants"
	ValidationCategory = "validation"

	StrandColumn           = "STRAND"
	AdarFixableColumn      = "is_ADAR_fixable"
	ApobecFixableColumn    = "is_APOBEC_fixable"
	DbsCountColumn         = "dbs_count"
	ValidationColumnSuffix = "_validated"
)
