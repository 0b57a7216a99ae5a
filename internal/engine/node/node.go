// Package node implements the engine's node abstraction: an opaque,
// reference-counted, polymorphic record shared between the engine, the
// per-instance labelled-node tables, and the synchronizer queues.
//
// A node is deliberately "dumb" at this layer — type-specific content
// (geometry layers, bitmap tiles, curve keys, ...) lives in the node
// database collaborators named in spec.md §6. This package only owns
// identity, ownership bookkeeping, and the observer list plug-ins use
// to watch a node by name.
package node

import (
	"fmt"
	"sync"
)

// Kind is the closed set of node types the synchronizer understands.
type Kind int

const (
	KindObject Kind = iota
	KindGeometry
	KindBitmap
	KindCurve
	KindText
	KindMaterial
	KindAudio
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindGeometry:
		return "geometry"
	case KindBitmap:
		return "bitmap"
	case KindCurve:
		return "curve"
	case KindText:
		return "text"
	case KindMaterial:
		return "material"
	case KindAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// ID is a process-wide node identifier assigned by the remote. Locally
// created nodes carry UnknownID until the remote acknowledges creation.
type ID string

// UnknownID is the sentinel for a node the remote has not yet assigned
// an id to.
const UnknownID ID = ""

// Creator identifies which module created a node, for diagnostics and
// for the synchronizer's per-type queues.
type Creator struct {
	GraphID  string
	ModuleID string
	Label    int
}

// Observer is notified when a node it watches changes. Used by the
// node-input built-in plug-in and by the synchronizer to learn a
// node's remote id once bound.
type Observer interface {
	NodeChanged(n *Node)
}

// TagGroup is a named collection of tags on a node (used by the Head
// differ, §4.7).
type TagGroup struct {
	Name string
	Tags []Tag
}

// Tag is a single (name, type, value) triple within a tag group.
type Tag struct {
	Name  string
	Type  string
	Value any
}

// Node is the opaque polymorphic record described in spec.md §3.
//
// Mutex protects RefCount and the notify list only; type-specific
// content fields are owned by the node database collaborator and are
// not synchronized here (the engine is single-threaded per §5, so
// plain fields suffice for everything else).
type Node struct {
	mu sync.Mutex

	ID         ID
	Type       Kind
	Name       string
	Owner      Creator
	TagGroups  []TagGroup
	// Content holds the node's type-specific structural data — one of
	// the structs in package content, populated by output-writer
	// helpers (spec.md §6) or, on the remote side, by the node
	// database collaborator translating incoming updates. The engine
	// itself never interprets Content; only the per-kind differs do.
	Content    any
	refCount   int
	notifyList []Observer
}

// New allocates a node with RefCount zero. Callers must call Ref
// immediately after creation per the invariant in spec.md §3.
func New(kind Kind, name string, owner Creator) *Node {
	return &Node{
		Type:  kind,
		Name:  name,
		Owner: owner,
	}
}

// Ref increments the reference count.
func (n *Node) Ref() {
	n.mu.Lock()
	n.refCount++
	n.mu.Unlock()
}

// Unref decrements the reference count and reports whether it reached
// zero. Callers that observe true are responsible for destroying the
// node (removing it from any database / queue that still names it).
func (n *Node) Unref() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.refCount <= 0 {
		panic(fmt.Sprintf("node %s: unref with refcount already %d", n.Name, n.refCount))
	}
	n.refCount--
	return n.refCount == 0
}

// RefCount returns the current reference count (for tests and
// invariant checks per spec.md §8).
func (n *Node) RefCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.refCount
}

// Notify registers an observer that wants to learn about future
// changes to this node (renames, remote-id binding, ...).
func (n *Node) Notify(o Observer) {
	n.mu.Lock()
	n.notifyList = append(n.notifyList, o)
	n.mu.Unlock()
}

// fireChanged calls every registered observer. Must be called without
// holding n.mu.
func (n *Node) fireChanged() {
	n.mu.Lock()
	observers := append([]Observer(nil), n.notifyList...)
	n.mu.Unlock()
	for _, o := range observers {
		o.NodeChanged(n)
	}
}

// BindRemoteID assigns the remote-acknowledged id to a locally-created
// node and notifies observers (used by the synchronizer's create
// acknowledgement handling, §4.7).
func (n *Node) BindRemoteID(id ID) {
	n.mu.Lock()
	n.ID = id
	n.mu.Unlock()
	n.fireChanged()
}

// SetName renames the node and notifies observers (the Head differ
// emits a name-set command when this causes a local/remote mismatch).
func (n *Node) SetName(name string) {
	n.mu.Lock()
	n.Name = name
	n.mu.Unlock()
	n.fireChanged()
}

// HasRemoteID reports whether the remote has acknowledged this node.
func (n *Node) HasRemoteID() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ID != UnknownID
}

// TagGroupByName returns the tag group with the given name, or nil.
func (n *Node) TagGroupByName(name string) *TagGroup {
	for i := range n.TagGroups {
		if n.TagGroups[i].Name == name {
			return &n.TagGroups[i]
		}
	}
	return nil
}

// EnsureTagGroup returns the existing group by name or appends a new
// empty one. The zero-length-name sentinel from the original source's
// free-list scheme (spec.md §9) is not reproduced here — destroy uses
// an explicit slice removal instead, see DestroyTagGroup.
func (n *Node) EnsureTagGroup(name string) *TagGroup {
	if g := n.TagGroupByName(name); g != nil {
		return g
	}
	n.TagGroups = append(n.TagGroups, TagGroup{Name: name})
	return &n.TagGroups[len(n.TagGroups)-1]
}

// DestroyTagGroup removes a tag group by name in O(n), avoiding the
// zero-name-sentinel pattern the original C implementation used.
func (n *Node) DestroyTagGroup(name string) {
	for i := range n.TagGroups {
		if n.TagGroups[i].Name == name {
			n.TagGroups = append(n.TagGroups[:i], n.TagGroups[i+1:]...)
			return
		}
	}
}
