// Package builtin implements the two plug-ins the engine registers
// before any on-disk library is loaded (spec.md §4.2): node-input,
// which watches a named remote node and re-emits it, and node-output,
// which enqueues its module-reference inputs into the synchronizer.
package builtin

import (
	"context"

	"github.com/rakunlabs/purple/internal/engine/node"
	"github.com/rakunlabs/purple/internal/engine/plugin"
	"github.com/rakunlabs/purple/internal/engine/port"
	"github.com/rakunlabs/purple/internal/engine/value"
)

// NodeLookup resolves a node by name for the node-input plug-in. The
// node database itself is an external collaborator (spec.md §1); the
// engine only needs this narrow lookup contract.
type NodeLookup func(name string) (*node.Node, bool)

// SyncEnqueuer is the synchronizer's enqueue operation (spec.md §4.7),
// narrowed to what node-output needs.
type SyncEnqueuer func(n *node.Node)

// RegisterNodeInput registers the "node-input" plug-in: one required
// string input naming a remote node, re-emitted on the output port as
// a node set of size one (or zero if not found).
func RegisterNodeInput(reg *plugin.Registry, lookup NodeLookup) error {
	b := plugin.NewBuilder("node-input").
		Input(plugin.InputSpec{Name: "name", Type: value.KindString, Required: true}).
		Meta("category", "io").
		Compute(func(ctx context.Context, inputs []*port.Port, output *port.Port, state any) (plugin.Status, error) {
			name := inputs[0].Get(value.KindString).String()
			n, ok := lookup(name)
			if !ok {
				output.SetNodes(node.Set{})
				return plugin.StatusDone, nil
			}
			output.SetNodes(node.NewSet(n))
			return plugin.StatusDone, nil
		})

	d, err := b.Build()
	if err != nil {
		return err
	}
	return reg.Register(d)
}

// RegisterNodeOutput registers the "node-output" plug-in: a single
// module-reference input whose upstream node-set payload is enqueued
// into the synchronizer on every compute.
func RegisterNodeOutput(reg *plugin.Registry, enqueue SyncEnqueuer) error {
	b := plugin.NewBuilder("node-output").
		Input(plugin.InputSpec{Name: "source", Type: value.KindModuleRef, Required: true}).
		Meta("category", "io").
		Compute(func(ctx context.Context, inputs []*port.Port, output *port.Port, state any) (plugin.Status, error) {
			if inputs[0].HasNodes() {
				inputs[0].Nodes().Iterate(func(n *node.Node) bool {
					enqueue(n)
					return true
				})
			}
			return plugin.StatusDone, nil
		})

	d, err := b.Build()
	if err != nil {
		return err
	}
	return reg.Register(d)
}
