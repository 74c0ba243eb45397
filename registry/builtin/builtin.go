// Package builtin contributes the stock upload, pre-processing, annotation
// and validation functions that source contracts can reference by name.
package builtin

import (
	"github.com/znavezz/ASD-ADAR-Correction/registry"
)

type Module struct{}

func (Module) Register(r *registry.Registry) {
	r.RegisterUploader("tsv", UploadTsv)
	r.RegisterUploader("csv", UploadCsv)
	r.RegisterUploader("vcf", UploadVcf)
	r.RegisterUploader("vep", UploadVep)

	r.RegisterPreProcessor("default", PreProcessDefault)
	r.RegisterPreProcessor("standard", PreProcessStandard)
	r.RegisterPreProcessor("split_alleles", PreProcessSplitAlleles)

	r.RegisterAnnotator("is_adar_fixable", IsAdarFixable)
	r.RegisterAnnotator("is_apobec_fixable", IsApobecFixable)
	r.RegisterAnnotator("substitution", Substitution)
	r.RegisterAnnotator("variant_class", VariantClass)
	r.RegisterAnnotator("vep_field", VepField)
	r.RegisterAnnotator("copy_column", CopyColumn)

	r.RegisterValidator("presence", ValidatePresence)
	r.RegisterValidator("reference_allele", ValidateReferenceAllele)
}

// NewRegistry returns a registry populated with every builtin function.
func NewRegistry() *registry.Registry {
	return registry.NewWithModules(Module{})
}
