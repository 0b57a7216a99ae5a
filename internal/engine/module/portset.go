// Package module implements the per-module port set and instance
// (spec.md §4.3): an indexed bundle of input ports with a companion
// "explicitly set" bitmap, a private state blob, a single output
// port, and the dependency bookkeeping the graph and scheduler need.
package module

import (
	"github.com/rakunlabs/purple/internal/engine/plugin"
	"github.com/rakunlabs/purple/internal/engine/port"
	"github.com/rakunlabs/purple/internal/engine/value"
)

// PortSet is an indexed array of input ports sized to the plug-in's
// input count, with a bitmap marking which have been explicitly set.
type PortSet struct {
	specs []plugin.InputSpec
	ports []port.Port
	set   []bool
	// moduleRef holds, for each module-reference input index, the
	// referenced module id (spec.md §3: "module-reference m").
	moduleRef []string
}

// NewPortSet builds a PortSet sized to specs, initializing every port
// that has a declared default to that default, marked set (spec.md §4.3).
func NewPortSet(specs []plugin.InputSpec) *PortSet {
	ps := &PortSet{
		specs:     specs,
		ports:     make([]port.Port, len(specs)),
		set:       make([]bool, len(specs)),
		moduleRef: make([]string, len(specs)),
	}
	for i, spec := range specs {
		if spec.Default != nil {
			ps.ports[i].Set(*spec.Default)
			ps.set[i] = true
		}
	}
	return ps
}

// Size returns the number of input slots.
func (ps *PortSet) Size() int { return len(ps.ports) }

// Set writes a literal value into slot i and marks it explicitly set.
// Clears any module-reference previously held there.
func (ps *PortSet) Set(i int, v value.Value) {
	ps.ports[i].Set(v)
	ps.set[i] = true
	ps.moduleRef[i] = ""
}

// SetFromString parses text as the input's declared type and sets it.
func (ps *PortSet) SetFromString(i int, text string) {
	ps.ports[i].SetFromString(ps.specs[i].Type, text)
	ps.set[i] = true
	ps.moduleRef[i] = ""
}

// SetModuleReference records that slot i now links to module id m.
// Resolution to the referenced module's output port happens at
// compute time (spec.md §4.3), not here.
func (ps *PortSet) SetModuleReference(i int, m string) {
	ps.ports[i].Set(value.ModuleReference(value.ModuleRef(m)))
	ps.moduleRef[i] = m
	ps.set[i] = true
}

// Clear reverts slot i to its declared default if any, else to unset,
// and removes any module-reference link (spec.md §4.3/§4.4).
func (ps *PortSet) Clear(i int) {
	ps.ports[i].Clear()
	ps.moduleRef[i] = ""
	if spec := ps.specs[i]; spec.Default != nil {
		ps.ports[i].Set(*spec.Default)
		ps.set[i] = true
	} else {
		ps.set[i] = false
	}
}

// IsSet reports whether slot i has been explicitly set (including by
// a declared default at construction time).
func (ps *PortSet) IsSet(i int) bool { return ps.set[i] }

// ModuleReference returns the module id referenced by slot i, if any.
func (ps *PortSet) ModuleReference(i int) (string, bool) {
	if ps.moduleRef[i] == "" {
		return "", false
	}
	return ps.moduleRef[i], true
}

// Port returns the port at index i for direct reading (resolvers
// substitute a different port only at compute time, see Instance.ResolvedInputs).
func (ps *PortSet) Port(i int) *port.Port { return &ps.ports[i] }

// Spec returns the declared InputSpec for slot i.
func (ps *PortSet) Spec(i int) plugin.InputSpec { return ps.specs[i] }

// AllRequiredSatisfied reports whether every required input is set,
// the gate for whether compute may run at all (spec.md §4.3).
func (ps *PortSet) AllRequiredSatisfied() bool {
	for i, spec := range ps.specs {
		if spec.Required && !ps.set[i] {
			return false
		}
	}
	return true
}

// ModuleReferences returns every (index, moduleID) pair currently
// linking this port set to another module, for dependency-graph
// maintenance in package graph.
func (ps *PortSet) ModuleReferences() map[int]string {
	out := make(map[int]string)
	for i, m := range ps.moduleRef {
		if m != "" {
			out[i] = m
		}
	}
	return out
}
