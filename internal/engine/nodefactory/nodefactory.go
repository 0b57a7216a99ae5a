// Package nodefactory implements the per-instance labelled-output node
// table described in spec.md §4.6: a sparse table a plug-in's compute
// call uses to name the nodes it creates, so re-computations reuse the
// same node rather than allocating anew every pass.
package nodefactory

import (
	"fmt"

	"github.com/rakunlabs/purple/internal/engine/node"
)

// ResumeHint maps a label to a remote node a restarted graph should
// adopt instead of creating a fresh one (spec.md §4.6, §6 persistence).
type ResumeHint struct {
	Label      int
	RemoteName string
	Type       node.Kind
}

// RemoteLookup finds an existing remote node matching a resume hint's
// name and type. The node database itself is an external collaborator
// (spec.md §1); this is the narrow contract the factory needs from it.
type RemoteLookup func(name string, kind node.Kind) (node.ID, bool)

// Factory is the per-module labelled-node table.
type Factory struct {
	slots      map[int]*node.Node
	nextLabel  int
	resumeHint map[int]ResumeHint
	lookup     RemoteLookup
	creator    node.Creator
}

// New creates an empty factory for the given owning module, with
// resume hints indexed by label (spec.md §4.6 "label -> remote-name").
func New(creator node.Creator, hints []ResumeHint, lookup RemoteLookup) *Factory {
	f := &Factory{
		slots:      make(map[int]*node.Node),
		resumeHint: make(map[int]ResumeHint, len(hints)),
		lookup:     lookup,
		creator:    creator,
	}
	for _, h := range hints {
		f.resumeHint[h.Label] = h
	}
	return f
}

// ErrMismatchedLabel is returned when a compute call names a label
// that is neither a previously-allocated slot nor the next fresh one.
var ErrMismatchedLabel = fmt.Errorf("nodefactory: mismatched label")

// Create implements spec.md §4.6's create(port, type, label):
//   - label < nextLabel: must be a previously-allocated node; returned
//     as-is (content is the plug-in's responsibility).
//   - label == nextLabel: allocates a fresh node, consulting resume
//     hints to adopt an existing remote id if one matches.
//   - otherwise: ErrMismatchedLabel.
func (f *Factory) Create(kind node.Kind, label int) (*node.Node, error) {
	if label < f.nextLabel {
		n, ok := f.slots[label]
		if !ok {
			return nil, fmt.Errorf("nodefactory: label %d below next-label %d has no prior allocation", label, f.nextLabel)
		}
		return n, nil
	}
	if label != f.nextLabel {
		return nil, ErrMismatchedLabel
	}

	creator := f.creator
	creator.Label = label
	n := node.New(kind, "", creator)
	n.Ref()

	if hint, ok := f.resumeHint[label]; ok && hint.Type == kind && f.lookup != nil {
		if remoteID, found := f.lookup(hint.RemoteName, kind); found {
			n.BindRemoteID(remoteID)
			n.SetName(hint.RemoteName)
		}
	}

	f.slots[label] = n
	f.nextLabel++
	return n, nil
}

// Copy clones source's content into a slot under label, following the
// same label-discipline as Create (spec.md §4.6). Re-sets the static
// content fields on every call, including when label reuses a
// previously-allocated slot — matching a re-copy onto an already-copied
// node, not just a fresh allocation.
func (f *Factory) Copy(source *node.Node, label int) (*node.Node, error) {
	n, err := f.Create(source.Type, label)
	if err != nil {
		return nil, err
	}
	// Tag groups and name are the only generic content this layer owns;
	// type-specific content (geometry/bitmap/...) is copied by the
	// node-database collaborator named in spec.md §1.
	n.TagGroups = append([]node.TagGroup(nil), source.TagGroups...)
	n.SetName(source.Name)
	return n, nil
}

// Slots returns every node currently held by this factory, for
// destruction bookkeeping when the owning module is destroyed.
func (f *Factory) Slots() map[int]*node.Node {
	out := make(map[int]*node.Node, len(f.slots))
	for k, v := range f.slots {
		out[k] = v
	}
	return out
}

// NextLabel returns the next label this factory expects Create to be
// called with; used by tests and diagnostics.
func (f *Factory) NextLabel() int { return f.nextLabel }

// Destroy unrefs every labelled node this factory holds, returning the
// ones that reached a zero ref count (for the caller to destroy).
func (f *Factory) Destroy() []*node.Node {
	var destroyed []*node.Node
	for label, n := range f.slots {
		if n.Unref() {
			destroyed = append(destroyed, n)
		}
		delete(f.slots, label)
	}
	return destroyed
}
