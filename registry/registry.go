// Package registry holds the explicit registration tables mapping the function
// names used in source contracts to their Go implementations. Tables are
// populated once at process start; contracts can only reference functions
// registered here.
package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/znavezz/ASD-ADAR-Correction/models/contracts"
)

// Module is implemented by packages contributing functions to a Registry.
type Module interface {
	Register(r *Registry)
}

type Registry struct {
	Uploaders     map[string]contracts.UploadFunc
	PreProcessors map[string]contracts.PreProcessFunc
	Annotators    map[string]contracts.ComputeFunc
	Validators    map[string]contracts.ValidatorFunc
}

func New() *Registry {
	return &Registry{
		Uploaders:     make(map[string]contracts.UploadFunc),
		PreProcessors: make(map[string]contracts.PreProcessFunc),
		Annotators:    make(map[string]contracts.ComputeFunc),
		Validators:    make(map[string]contracts.ValidatorFunc),
	}
}

// NewWithModules creates a registry populated by the given modules.
func NewWithModules(modules ...Module) *Registry {
	r := New()
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

func (r *Registry) RegisterUploader(name string, fn contracts.UploadFunc) {
	if _, exists := r.Uploaders[name]; exists {
		panic(fmt.Sprintf("upload function with name '%s' already registered", name))
	}
	slog.Debug("Registering upload function.", "name", name)
	r.Uploaders[name] = fn
}

func (r *Registry) RegisterPreProcessor(name string, fn contracts.PreProcessFunc) {
	if _, exists := r.PreProcessors[name]; exists {
		panic(fmt.Sprintf("pre-processor with name '%s' already registered", name))
	}
	slog.Debug("Registering pre-processor.", "name", name)
	r.PreProcessors[name] = fn
}

func (r *Registry) RegisterAnnotator(name string, fn contracts.ComputeFunc) {
	if _, exists := r.Annotators[name]; exists {
		panic(fmt.Sprintf("annotation function with name '%s' already registered", name))
	}
	slog.Debug("Registering annotation function.", "name", name)
	r.Annotators[name] = fn
}

func (r *Registry) RegisterValidator(name string, fn contracts.ValidatorFunc) {
	if _, exists := r.Validators[name]; exists {
		panic(fmt.Sprintf("validator with name '%s' already registered", name))
	}
	slog.Debug("Registering validator.", "name", name)
	r.Validators[name] = fn
}

func (r *Registry) Uploader(name string) (contracts.UploadFunc, bool) {
	fn, ok := r.Uploaders[name]
	return fn, ok
}

func (r *Registry) PreProcessor(name string) (contracts.PreProcessFunc, bool) {
	fn, ok := r.PreProcessors[name]
	return fn, ok
}

func (r *Registry) Annotator(name string) (contracts.ComputeFunc, bool) {
	fn, ok := r.Annotators[name]
	return fn, ok
}

func (r *Registry) Validator(name string) (contracts.ValidatorFunc, bool) {
	fn, ok := r.Validators[name]
	return fn, ok
}

// Names lists every registered function name per kind, sorted.
func (r *Registry) Names() map[string][]string {
	return map[string][]string{
		"upload":        sortedKeys(r.Uploaders),
		"pre_processor": sortedKeys(r.PreProcessors),
		"annotation":    sortedKeys(r.Annotators),
		"validator":     sortedKeys(r.Validators),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
