// Package graph implements the named container of module instances
// (spec.md §4.4): module create/destroy, input assignment with cycle
// rejection, dependant tracking, and the textual serialization region
// bookkeeping used to mirror a graph onto its persistence anchor.
package graph

import (
	"fmt"
	"sync"

	"github.com/rakunlabs/purple/internal/engine/module"
	"github.com/rakunlabs/purple/internal/engine/node"
	"github.com/rakunlabs/purple/internal/engine/nodefactory"
	"github.com/rakunlabs/purple/internal/engine/plugin"
	"github.com/rakunlabs/purple/internal/engine/port"
	"github.com/rakunlabs/purple/internal/engine/value"
)

// Anchor is the (node-id, buffer-id) pair naming a graph's remote
// persistence location (spec.md §3, §6).
type Anchor struct {
	NodeID   node.ID
	BufferID int
}

// Scheduled is called whenever a module needs to be (re)scheduled —
// package scheduler's Add, narrowed to the one method graph needs.
type Scheduled func(moduleID string)

// ErrCycle is returned when an edit would create a module-reference
// cycle (spec.md §3 invariant, §4.4 cycle check).
var ErrCycle = fmt.Errorf("graph: edit would create a dependency cycle")

// ErrUnknownModule / ErrUnknownPlugin are rejected-edit sentinels
// (spec.md §7 "Edit-rejected").
var (
	ErrUnknownModule = fmt.Errorf("graph: unknown module id")
	ErrUnknownPlugin = fmt.Errorf("graph: unknown plugin id")
	ErrNameTaken     = fmt.Errorf("graph: name already in use")
	ErrAnchorTaken   = fmt.Errorf("graph: anchor already holds another graph")
)

// Graph is a named container of module instances and their wiring.
type Graph struct {
	mu sync.Mutex

	ID     string
	Name   string
	Anchor Anchor

	registry  *plugin.Registry
	onChanged Scheduled
	onDelta   func([]Delta)
	lookup    nodefactory.RemoteLookup

	modules  map[string]*module.Instance
	order    []string // insertion order, for deterministic serialization regions
	regions  map[string]region
	nextMod  int
}

type region struct {
	start  int
	length int
}

// New creates an empty graph bound to a persistence anchor. It never
// rejects: cross-graph name/anchor uniqueness is enforced by
// Catalog.Create (see catalog.go); this constructor only initializes
// per-graph state.
func New(id, name string, anchor Anchor, registry *plugin.Registry, onChanged Scheduled, lookup nodefactory.RemoteLookup) *Graph {
	return &Graph{
		ID:        id,
		Name:      name,
		Anchor:    anchor,
		registry:  registry,
		onChanged: onChanged,
		lookup:    lookup,
		modules:   make(map[string]*module.Instance),
		regions:   make(map[string]region),
	}
}

// ModuleCreate instantiates pluginID into the graph under a fresh id.
func (g *Graph) ModuleCreate(pluginID int, newID func() string) (*module.Instance, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	desc, ok := g.registry.ByID(pluginID)
	if !ok {
		return nil, ErrUnknownPlugin
	}

	id := newID()
	creator := node.Creator{GraphID: g.ID, ModuleID: id}
	factory := nodefactory.New(creator, nil, g.lookup)
	inst := module.New(id, g.ID, desc, factory)

	g.modules[id] = inst
	g.order = append(g.order, id)
	g.renumberAndEmit()

	return inst, nil
}

// ModuleDestroy removes a module, clearing incoming links from its
// dependants and releasing its labelled nodes (spec.md §3).
func (g *Graph) ModuleDestroy(id string) ([]*node.Node, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	inst, ok := g.modules[id]
	if !ok {
		return nil, ErrUnknownModule
	}

	// Clear any dependant's input that referenced this module.
	for depID := range inst.Dependants {
		dep, ok := g.modules[depID]
		if !ok {
			continue
		}
		for i := 0; i < dep.Ports.Size(); i++ {
			if ref, isRef := dep.Ports.ModuleReference(i); isRef && ref == id {
				dep.Ports.Clear(i)
			}
		}
	}

	// Remove this module from any upstream's dependant set.
	for i := 0; i < inst.Ports.Size(); i++ {
		if ref, isRef := inst.Ports.ModuleReference(i); isRef {
			if upstream, ok := g.modules[ref]; ok {
				delete(upstream.Dependants, id)
			}
		}
	}

	destroyed := inst.Destroy()

	delete(g.modules, id)
	for i, mid := range g.order {
		if mid == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	// Delete the destroyed module's own text first; renumbering then
	// shifts every later region down over the gap.
	removed, hadRegion := g.regions[id]
	delete(g.regions, id)
	deltas := g.renumberRegions()
	if hadRegion && removed.length > 0 {
		deltas = append([]Delta{{Start: removed.start, OldLength: removed.length}}, deltas...)
	}
	if len(deltas) > 0 && g.onDelta != nil {
		g.onDelta(deltas)
	}

	return destroyed, nil
}

// Module returns a module instance by id.
func (g *Graph) Module(id string) (*module.Instance, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	inst, ok := g.modules[id]
	return inst, ok
}

// SetOnDelta installs the callback that receives the serialization
// deltas produced by every description rebuild (module create/destroy,
// and any input edit that changes a module's rendered description),
// so a caller can actually mirror them onto the persistence anchor
// instead of them being computed and discarded (spec.md §4.4).
func (g *Graph) SetOnDelta(fn func([]Delta)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onDelta = fn
}

// renumberAndEmit renumbers serialization regions and forwards any
// resulting deltas to onDelta, if one is installed. Caller must hold
// g.mu.
func (g *Graph) renumberAndEmit() {
	deltas := g.renumberRegions()
	if len(deltas) > 0 && g.onDelta != nil {
		g.onDelta(deltas)
	}
}

// Resolver returns a module.Resolver bound to this graph, for
// compute-time module-reference substitution (spec.md §4.3).
func (g *Graph) Resolver() module.Resolver {
	return func(moduleID string) (*port.Port, bool) {
		g.mu.Lock()
		defer g.mu.Unlock()
		inst, ok := g.modules[moduleID]
		if !ok {
			return nil, false
		}
		return &inst.Output, true
	}
}

// InputSet assigns a literal value to module m's input i, scheduling m
// on success (spec.md §4.4).
func (g *Graph) InputSet(moduleID string, i int, v value.Value) error {
	g.mu.Lock()
	inst, ok := g.modules[moduleID]
	if !ok {
		g.mu.Unlock()
		return ErrUnknownModule
	}
	if ref, isRef := inst.Ports.ModuleReference(i); isRef {
		if up, ok := g.modules[ref]; ok {
			delete(up.Dependants, moduleID)
		}
	}
	inst.Ports.Set(i, v)
	g.renumberAndEmit()
	g.mu.Unlock()

	if g.onChanged != nil {
		g.onChanged(moduleID)
	}
	return nil
}

// InputSetModuleReference links module m's input i to module target's
// output, rejecting the edit if it would create a cycle (spec.md §4.4).
func (g *Graph) InputSetModuleReference(moduleID string, i int, target string) error {
	g.mu.Lock()

	inst, ok := g.modules[moduleID]
	if !ok {
		g.mu.Unlock()
		return ErrUnknownModule
	}
	if _, ok := g.modules[target]; !ok {
		g.mu.Unlock()
		return ErrUnknownModule
	}

	if g.wouldCycle(target, moduleID) {
		g.mu.Unlock()
		return ErrCycle
	}

	// Remove prior dependency, if any.
	if prevRef, isRef := inst.Ports.ModuleReference(i); isRef {
		if up, ok := g.modules[prevRef]; ok {
			delete(up.Dependants, moduleID)
		}
	}

	inst.Ports.SetModuleReference(i, target)
	g.modules[target].Dependants[moduleID] = struct{}{}
	g.renumberAndEmit()
	g.mu.Unlock()

	if g.onChanged != nil {
		g.onChanged(moduleID)
	}
	return nil
}

// InputClear reverts module m's input i to its default if declared,
// else to unset, removing any module-reference link (spec.md §4.4).
// Schedules m if its required inputs remain satisfied.
func (g *Graph) InputClear(moduleID string, i int) error {
	g.mu.Lock()
	inst, ok := g.modules[moduleID]
	if !ok {
		g.mu.Unlock()
		return ErrUnknownModule
	}
	if ref, isRef := inst.Ports.ModuleReference(i); isRef {
		if up, ok := g.modules[ref]; ok {
			delete(up.Dependants, moduleID)
		}
	}
	inst.Ports.Clear(i)
	satisfied := inst.Ports.AllRequiredSatisfied()
	g.renumberAndEmit()
	g.mu.Unlock()

	if satisfied && g.onChanged != nil {
		g.onChanged(moduleID)
	}
	return nil
}

// wouldCycle walks outgoing module-reference edges from target back
// toward source; true if source is reachable (spec.md §4.4 cycle
// check: "naive DFS, bounded by the module count; acceptable since
// edits are low-frequency").
func (g *Graph) wouldCycle(target, source string) bool {
	visited := make(map[string]bool)
	var visit func(id string) bool
	visit = func(id string) bool {
		if id == source {
			return true
		}
		if visited[id] {
			return false
		}
		visited[id] = true
		inst, ok := g.modules[id]
		if !ok {
			return false
		}
		for i := 0; i < inst.Ports.Size(); i++ {
			if ref, isRef := inst.Ports.ModuleReference(i); isRef {
				if visit(ref) {
					return true
				}
			}
		}
		return false
	}
	return visit(target)
}

// Modules returns every module instance, for enumeration by the
// synchronizer bootstrap and the serializer.
func (g *Graph) Modules() []*module.Instance {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*module.Instance, 0, len(g.modules))
	for _, id := range g.order {
		out = append(out, g.modules[id])
	}
	return out
}
