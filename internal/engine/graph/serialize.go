package graph

import (
	"fmt"
	"strings"
)

// Delta describes a rebuild of one module's region within the
// anchor's textual buffer: delete the bytes currently at
// [Start, Start+OldLength), then insert Text at Start.
type Delta struct {
	Start     int
	OldLength int
	Text      string
}

// describeModule renders the structured description spec.md §4.4
// names: module id, plug-in id, each set input (type + value), and
// each named output label.
func describeModule(id string, pluginName string, inputs []string, outputLabels []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "module %s plugin=%s\n", id, pluginName)
	for _, in := range inputs {
		fmt.Fprintf(&b, "  input %s\n", in)
	}
	for _, out := range outputLabels {
		fmt.Fprintf(&b, "  output %s\n", out)
	}
	return b.String()
}

// Describe renders module id's current description: each set input as
// "name type=value" (or "name -> moduleID" for a link) and each
// labelled output node's remote name.
func (g *Graph) Describe(id string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.describeLocked(id)
}

// renumberRegions rebuilds every module's [start, length) region from
// scratch after any edit, in graph.order. This is the literal O(n)
// rebuild confirmed against original_source/purple/graph.c: a single
// module's description change can still move every later region's
// start, producing a storm of delete/insert deltas for large graphs.
// This is a known perf corner (spec.md §9), not a bug — reproduced
// deliberately rather than optimized away.
func (g *Graph) renumberRegions() []Delta {
	var deltas []Delta
	offset := 0
	for _, id := range g.order {
		text, err := g.describeLocked(id)
		if err != nil {
			continue
		}
		old := g.regions[id]
		if old.start != offset || old.length != len(text) {
			deltas = append(deltas, Delta{Start: offset, OldLength: old.length, Text: text})
		}
		g.regions[id] = region{start: offset, length: len(text)}
		offset += len(text)
	}
	return deltas
}

// describeLocked is Describe without acquiring g.mu (caller must hold it).
func (g *Graph) describeLocked(id string) (string, error) {
	inst, ok := g.modules[id]
	if !ok {
		return "", ErrUnknownModule
	}
	var inputs []string
	for i := 0; i < inst.Ports.Size(); i++ {
		if !inst.Ports.IsSet(i) {
			continue
		}
		spec := inst.Ports.Spec(i)
		if ref, isRef := inst.Ports.ModuleReference(i); isRef {
			inputs = append(inputs, fmt.Sprintf("%s -> %s", spec.Name, ref))
			continue
		}
		inputs = append(inputs, fmt.Sprintf("%s %s=%s", spec.Name, spec.Type, inst.Ports.Port(i).Get(spec.Type).FormatString()))
	}
	var outputs []string
	for label, n := range inst.Nodes.Slots() {
		outputs = append(outputs, fmt.Sprintf("%d=%s", label, n.Name))
	}
	return describeModule(id, inst.Plugin.Name, inputs, outputs), nil
}

// Regions returns a snapshot of every module's current serialization
// region, for tests asserting the renumbering invariant.
func (g *Graph) Regions() map[string][2]int {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string][2]int, len(g.regions))
	for id, r := range g.regions {
		out[id] = [2]int{r.start, r.length}
	}
	return out
}
