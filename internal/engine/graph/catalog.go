package graph

import (
	"sync"

	"github.com/rakunlabs/purple/internal/engine/nodefactory"
	"github.com/rakunlabs/purple/internal/engine/plugin"
)

// Catalog holds every live graph in the process, enforcing the
// cross-graph name and anchor uniqueness Graph.New's own doc comment
// defers to it (spec.md §3's "Named container", generalized to many
// concurrently open graphs rather than just one).
type Catalog struct {
	mu sync.Mutex

	byID     map[string]*Graph
	byName   map[string]*Graph
	byAnchor map[Anchor]*Graph
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		byID:     make(map[string]*Graph),
		byName:   make(map[string]*Graph),
		byAnchor: make(map[Anchor]*Graph),
	}
}

// Create instantiates and registers a new graph, rejecting a duplicate
// id, name, or anchor (spec.md §6's graph index implies both the name
// and the anchor identify a graph uniquely).
func (c *Catalog) Create(id, name string, anchor Anchor, registry *plugin.Registry, onChanged Scheduled, lookup nodefactory.RemoteLookup) (*Graph, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.byID[id]; exists {
		return nil, ErrNameTaken
	}
	if _, exists := c.byName[name]; exists {
		return nil, ErrNameTaken
	}
	if _, exists := c.byAnchor[anchor]; exists {
		return nil, ErrAnchorTaken
	}

	g := New(id, name, anchor, registry, onChanged, lookup)

	c.byID[id] = g
	c.byName[name] = g
	c.byAnchor[anchor] = g

	return g, nil
}

// Remove drops a graph from the catalog. It does not touch the
// graph's own modules; callers destroy those first if needed.
func (c *Catalog) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, ok := c.byID[id]
	if !ok {
		return
	}
	delete(c.byID, id)
	delete(c.byName, g.Name)
	delete(c.byAnchor, g.Anchor)
}

// ByID looks up a graph by id.
func (c *Catalog) ByID(id string) (*Graph, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.byID[id]
	return g, ok
}

// ByName looks up a graph by name.
func (c *Catalog) ByName(name string) (*Graph, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.byName[name]
	return g, ok
}

// ByAnchor looks up the graph occupying a persistence anchor.
func (c *Catalog) ByAnchor(anchor Anchor) (*Graph, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.byAnchor[anchor]
	return g, ok
}

// List returns every registered graph, for the debug/health server's
// graph listing endpoint and for startup catalog-index replay.
func (c *Catalog) List() []*Graph {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Graph, 0, len(c.byID))
	for _, g := range c.byID {
		out = append(out, g)
	}
	return out
}
