package module

import (
	"context"
	"fmt"

	"github.com/rakunlabs/purple/internal/engine/node"
	"github.com/rakunlabs/purple/internal/engine/nodefactory"
	"github.com/rakunlabs/purple/internal/engine/plugin"
	"github.com/rakunlabs/purple/internal/engine/port"
)

// Resolver maps a module id to the module's current output port, used
// to substitute module-reference inputs at compute time (spec.md
// §4.3). The graph (which owns the module table) implements this.
type Resolver func(moduleID string) (*port.Port, bool)

// Instance is a plug-in instantiated into a graph (spec.md §3's
// "Module"). It owns an input port set, a private state blob, one
// output port, and a labelled-node table.
type Instance struct {
	ID       string
	GraphID  string
	Plugin   *plugin.Descriptor
	Ports    *PortSet
	State    any
	Output   port.Port
	Nodes    *nodefactory.Factory
	// Dependants holds the ids of modules whose inputs currently
	// reference this instance's output (spec.md §4.4).
	Dependants map[string]struct{}
	// Changed is set by Run when a compute returns StatusDone with a
	// non-empty output port; the scheduler only notifies Dependants
	// when this is true (spec.md §4.5).
	Changed bool
}

// New constructs an instance from a descriptor, running the plug-in's
// ctor if one was declared, else zeroing the state (spec.md §4.3).
func New(id, graphID string, desc *plugin.Descriptor, nodes *nodefactory.Factory) *Instance {
	inst := &Instance{
		ID:         id,
		GraphID:    graphID,
		Plugin:     desc,
		Ports:      NewPortSet(desc.Inputs),
		Nodes:      nodes,
		Dependants: make(map[string]struct{}),
	}
	if desc.State != nil && desc.State.New != nil {
		inst.State = desc.State.New()
	}
	return inst
}

// Destroy runs the plug-in's dtor if declared and releases the
// instance's labelled nodes (spec.md §3 Module lifecycle), returning
// the nodes that reached a zero ref count as a result.
func (inst *Instance) Destroy() []*node.Node {
	if inst.Plugin.State != nil && inst.Plugin.State.Dtor != nil {
		inst.Plugin.State.Dtor(inst.State)
	}
	return inst.Nodes.Destroy()
}

// ResolvedInputs builds the port slice passed to Compute: a copy of
// the port-set's own ports, with module-reference slots substituted
// for the referenced module's live output port (spec.md §4.3). If any
// required module-reference target cannot be resolved, ok is false and
// the caller should treat this as INPUT_MISSING.
func (inst *Instance) ResolvedInputs(resolve Resolver) (ports []*port.Port, ok bool) {
	n := inst.Ports.Size()
	out := make([]*port.Port, n)
	for i := 0; i < n; i++ {
		if modID, isRef := inst.Ports.ModuleReference(i); isRef {
			p, found := resolve(modID)
			if !found {
				if inst.Ports.Spec(i).Required {
					return nil, false
				}
				out[i] = inst.Ports.Port(i)
				continue
			}
			out[i] = p
			continue
		}
		out[i] = inst.Ports.Port(i)
	}
	return out, true
}

// OutputBegin clears the output port and resets Changed, run once per
// fresh compute cycle (run-count == 0) per spec.md §4.5.
func (inst *Instance) OutputBegin() {
	inst.Output.Clear()
	inst.Changed = false
}

// Run invokes the plug-in's compute function with resolved inputs. It
// does not itself implement the scheduler's run-count/output-begin
// protocol — package scheduler drives that state machine and calls
// this once per slice tick. On StatusDone, Changed is derived from
// whether the output port differs from empty, since no plug-in kind
// has a handle on the owning Instance to flag it directly (spec.md
// §4.5/§5's output-begin/output-end atomicity).
func (inst *Instance) Run(ctx context.Context, resolve Resolver) (plugin.Status, error) {
	if !inst.Ports.AllRequiredSatisfied() {
		return plugin.StatusInputMissing, nil
	}

	inputs, ok := inst.ResolvedInputs(resolve)
	if !ok {
		return plugin.StatusInputMissing, nil
	}

	status, err := inst.Plugin.Compute(ctx, inputs, &inst.Output, inst.State)
	if err != nil {
		return plugin.StatusFailure, fmt.Errorf("module %s (%s): compute: %w", inst.ID, inst.Plugin.Name, err)
	}
	if status == plugin.StatusDone {
		inst.Changed = !inst.Output.IsEmpty()
	}
	return status, nil
}
