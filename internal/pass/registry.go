package pass

import (
	"sort"
	"sync"
)

// Factory creates a fresh pass instance with default options.
type Factory func() Pass

// Registration is one registry entry: either a pass factory or a pipeline.
type Registration struct {
	// Argument is the mnemonic used in pipeline text.
	Argument string

	// Description is a one-line human description.
	Description string

	// Factory creates the pass. Nil for pipelines.
	Factory Factory

	// Pipeline is the element list a pipeline mnemonic expands into,
	// e.g. "canonicalize,func.func(cse)". Empty for passes.
	Pipeline string
}

// IsPipeline reports whether the entry expands into a pipeline.
func (r Registration) IsPipeline() bool {
	return r.Factory == nil
}

// Registry maps mnemonics to pass factories and pipelines.
// Safe for concurrent registration and lookup.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Registration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Registration)}
}

// RegisterPass associates argument with factory. It returns false, leaving
// the existing entry in place, when argument is already registered.
func (r *Registry) RegisterPass(argument, description string, factory Factory) bool {
	if argument == "" || factory == nil {
		return false
	}
	return r.register(Registration{
		Argument:    argument,
		Description: description,
		Factory:     factory,
	})
}

// RegisterPipeline associates argument with an element list. The text is
// resolved when the mnemonic is used, so it may name passes registered later.
func (r *Registry) RegisterPipeline(argument, description, elements string) bool {
	if argument == "" {
		return false
	}
	return r.register(Registration{
		Argument:    argument,
		Description: description,
		Pipeline:    elements,
	})
}

func (r *Registry) register(reg Registration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[reg.Argument]; exists {
		return false
	}
	r.entries[reg.Argument] = reg
	return true
}

// Lookup returns the entry registered under argument.
func (r *Registry) Lookup(argument string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[argument]
	return reg, ok
}

// Entries returns every registration sorted by argument.
func (r *Registry) Entries() []Registration {
	r.mu.RLock()
	out := make([]Registration, 0, len(r.entries))
	for _, reg := range r.entries {
		out = append(out, reg)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Argument < out[j].Argument
	})
	return out
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// RegisterPass registers a pass factory in the default registry.
func RegisterPass(argument, description string, factory Factory) bool {
	return defaultRegistry.RegisterPass(argument, description, factory)
}

// RegisterPipeline registers a pipeline in the default registry.
func RegisterPipeline(argument, description, elements string) bool {
	return defaultRegistry.RegisterPipeline(argument, description, elements)
}

// Lookup looks argument up in the default registry.
func Lookup(argument string) (Registration, bool) {
	return defaultRegistry.Lookup(argument)
}
