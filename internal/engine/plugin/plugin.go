// Package plugin implements the plug-in registry (spec.md §4.2): the
// canonical, process-lifetime descriptors that name a computation —
// its typed input slots, optional private state, and compute
// entrypoint. The factory/registration shape mirrors
// internal/service/workflow.RegisterNodeType's global map, generalized
// to carry a full descriptor instead of a bare constructor.
package plugin

import (
	"context"
	"fmt"
	"sync"

	"github.com/rakunlabs/purple/internal/engine/port"
	"github.com/rakunlabs/purple/internal/engine/value"
)

// Status is the result of a single compute call (spec.md §4.3).
type Status int

const (
	StatusDone Status = iota
	StatusAgain
	StatusInputMissing
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusDone:
		return "done"
	case StatusAgain:
		return "again"
	case StatusInputMissing:
		return "input-missing"
	case StatusFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// InputSpec describes one typed input slot.
type InputSpec struct {
	Name        string
	Type        value.Kind
	Required    bool
	Default     *value.Value
	Min         *float64
	Max         *float64
	EnumValues  map[string]string
	Description string
}

// ComputeFunc is a plug-in's entrypoint. inputs is index-aligned with
// the descriptor's InputSpecs, with module-reference inputs already
// resolved to the referenced module's output port by the caller
// (spec.md §4.3). state is the instance's private blob (nil if the
// plug-in declared no state). Returning Status other than StatusDone
// or StatusAgain indicates compute could not run or failed; the
// scheduler (package scheduler) interprets the return value.
type ComputeFunc func(ctx context.Context, inputs []*port.Port, output *port.Port, state any) (Status, error)

// StateFactory allocates a fresh private state blob for a new module
// instance. Dtor is called once on instance destruction.
type StateFactory struct {
	New func() any
	Dtor func(any)
}

// Descriptor is a plug-in's canonical, immutable definition.
type Descriptor struct {
	ID      int
	Name    string
	Library string // on-disk library path; empty for built-ins
	Inputs  []InputSpec
	Meta    map[string]string
	State   *StateFactory
	Compute ComputeFunc
}

// Builder incrementally composes a Descriptor the way spec.md §4.2
// describes: create(name) -> set-input(...) * -> set-meta(...) * ->
// set-state(...)? -> set-compute(fn). Only a Descriptor with both a
// name and a compute function is eligible for registration.
type Builder struct {
	d Descriptor
}

// NewBuilder starts building a descriptor named name.
func NewBuilder(name string) *Builder {
	return &Builder{d: Descriptor{Name: name, Meta: map[string]string{}}}
}

// Input appends an input slot and returns the builder for chaining.
func (b *Builder) Input(spec InputSpec) *Builder {
	b.d.Inputs = append(b.d.Inputs, spec)
	return b
}

// Meta records a (category, text) metadata pair.
func (b *Builder) Meta(category, text string) *Builder {
	b.d.Meta[category] = text
	return b
}

// State declares the plug-in's private state lifecycle.
func (b *Builder) State(factory StateFactory) *Builder {
	b.d.State = &factory
	return b
}

// Compute sets the compute entrypoint.
func (b *Builder) Compute(fn ComputeFunc) *Builder {
	b.d.Compute = fn
	return b
}

// Build finalizes the descriptor. Returns an error if name or compute
// is missing — only whole descriptors are registrable (spec.md §4.2).
func (b *Builder) Build() (*Descriptor, error) {
	if b.d.Name == "" {
		return nil, fmt.Errorf("plugin: descriptor has no name")
	}
	if b.d.Compute == nil {
		return nil, fmt.Errorf("plugin: descriptor %q has no compute function", b.d.Name)
	}
	d := b.d
	return &d, nil
}

// Registry holds every registered plug-in descriptor, keyed by its
// process-unique name and by the id assigned at registration time.
type Registry struct {
	mu      sync.RWMutex
	nextID  int
	byName  map[string]*Descriptor
	byID    map[int]*Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*Descriptor),
		byID:   make(map[int]*Descriptor),
	}
}

// Register adds a built descriptor. Names are process-unique; a
// duplicate name is rejected (spec.md §4.2).
func (r *Registry) Register(d *Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[d.Name]; exists {
		return fmt.Errorf("plugin: name %q already registered", d.Name)
	}

	r.nextID++
	d.ID = r.nextID
	r.byName[d.Name] = d
	r.byID[d.ID] = d
	return nil
}

// ByName looks up a descriptor by name.
func (r *Registry) ByName(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[name]
	return d, ok
}

// ByID looks up a descriptor by id.
func (r *Registry) ByID(id int) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	return d, ok
}

// List returns every registered descriptor, for catalog
// enumeration (spec.md §6 persistence: the plug-in catalog).
func (r *Registry) List() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Descriptor, 0, len(r.byName))
	for _, d := range r.byName {
		out = append(out, d)
	}
	return out
}
