// Package sync implements the synchronizer (spec.md §4.7): the
// collaborator that reconciles locally-computed node content against
// a remote's acknowledged state, driving node creation and per-kind
// incremental diffs.
//
// The synchronizer never talks to a wire directly. It is handed a
// Transport to emit outgoing commands on and a RemoteView to read the
// remote's last-known state from; both are expected to be backed by
// the node database collaborators named in spec.md §1/§6.
package sync

import (
	"context"

	"github.com/rakunlabs/purple/internal/engine/clock"
	"github.com/rakunlabs/purple/internal/engine/node"
)

// Command is one outgoing wire operation produced by a differ. Op
// names the opcode (e.g. "name-set", "vertex-set", "tile-set");
// Fields carries its opcode-specific payload. Keeping this a single
// generic shape (rather than one Go type per opcode) mirrors how the
// engine's plug-in outputs are themselves untyped until a node
// database collaborator interprets them.
type Command struct {
	NodeID node.ID
	Kind   node.Kind
	Op     string
	Fields map[string]any
}

// Transport sends outgoing synchronizer commands and issues node
// creation. Node creation is split out from Send because its
// acknowledgement binds a remote id asynchronously (OnCreateAck),
// whereas every other command is fire-and-forget from the
// synchronizer's point of view.
type Transport interface {
	CreateNode(n *node.Node)
	Send(cmd Command)
}

// RemoteView is a read-only snapshot of the remote's last-acknowledged
// state for a node, maintained by the node database layer from
// incoming updates (spec.md §4.7: "a read-only representation of the
// remote ... maintained by the node database layer").
type RemoteView interface {
	Head(id node.ID) (name string, tagGroups []node.TagGroup, ok bool)
	Content(id node.ID) (any, bool)
}

// Synchronizer holds the three queues described in spec.md §4.7.
type Synchronizer struct {
	toCreate      []*node.Node
	createPending map[node.Kind][]*node.Node // FIFO per type, oldest first
	toSync        []*node.Node
	toSyncIndex   map[node.ID]int // node.ID -> index in toSync, for O(1) membership checks once bound

	differs map[node.Kind]Differ
}

// Differ compares a node's locally-computed content against its
// remote view and returns the commands needed to reconcile them. An
// empty Commands result (and inSync == true) means the node is fully in
// sync and can be dropped from to-sync.
type Differ func(n *node.Node, remote RemoteView) (cmds []Command, inSync bool)

// New builds a Synchronizer with the standard per-kind differs
// (spec.md §4.7) plus the Head differ, which runs unconditionally
// before a node's kind-specific differ.
func New() *Synchronizer {
	return &Synchronizer{
		createPending: make(map[node.Kind][]*node.Node),
		toSyncIndex:   make(map[node.ID]int),
		differs: map[node.Kind]Differ{
			node.KindObject:   DiffObject,
			node.KindGeometry: DiffGeometry,
			node.KindBitmap:   DiffBitmap,
			node.KindText:     DiffText,
			node.KindCurve:    DiffCurve,
			node.KindMaterial: DiffMaterial,
		},
	}
}

// Enqueue admits a node into to-create (if it has no remote id yet)
// or to-sync (if it does), taking a ref per spec.md §4.7.
func (s *Synchronizer) Enqueue(n *node.Node) {
	n.Ref()
	if n.HasRemoteID() {
		s.addToSync(n)
		return
	}
	s.toCreate = append(s.toCreate, n)
}

func (s *Synchronizer) addToSync(n *node.Node) {
	if _, exists := s.toSyncIndex[n.ID]; exists {
		return
	}
	s.toSyncIndex[n.ID] = len(s.toSync)
	s.toSync = append(s.toSync, n)
}

// OnCreateAck binds the oldest create-pending entry of the given kind
// to the newly assigned remote id and moves it to to-sync (spec.md
// §4.7: "identification by type-and-order is fragile; see §9" — the
// ordering invariant this relies on is the FIFO create-pending queue
// plus the at-most-one-in-flight-per-type note in §4.7).
func (s *Synchronizer) OnCreateAck(kind node.Kind, id node.ID) bool {
	queue := s.createPending[kind]
	if len(queue) == 0 {
		return false
	}
	n := queue[0]
	s.createPending[kind] = queue[1:]
	n.BindRemoteID(id)
	s.addToSync(n)
	return true
}

// ToCreateLen, CreatePendingLen and ToSyncLen expose queue depths for
// diagnostics and tests.
func (s *Synchronizer) ToCreateLen() int { return len(s.toCreate) }
func (s *Synchronizer) CreatePendingLen(kind node.Kind) int {
	return len(s.createPending[kind])
}
func (s *Synchronizer) ToSyncLen() int { return len(s.toSync) }

// Update drains to-create by issuing a create command per node and
// moving it to create-pending, then iterates to-sync, running each
// node's differs and dropping entries a differ reports as in sync
// (spec.md §4.7). Bounded by deadline; a pass may leave entries in
// either queue for the next call.
func (s *Synchronizer) Update(ctx context.Context, deadline clock.Deadline, transport Transport, remote RemoteView) {
	for len(s.toCreate) > 0 {
		if deadline.Elapsed() {
			return
		}
		n := s.toCreate[0]
		s.toCreate = s.toCreate[1:]
		transport.CreateNode(n)
		s.createPending[n.Type] = append(s.createPending[n.Type], n)
	}

	kept := s.toSync[:0]
	for i, n := range s.toSync {
		if deadline.Elapsed() {
			kept = append(kept, s.toSync[i:]...)
			break
		}

		inSync := true

		if cmds, headInSync := DiffHead(n, remote); !headInSync {
			inSync = false
			for _, c := range cmds {
				transport.Send(c)
			}
		}

		if differ, ok := s.differs[n.Type]; ok {
			cmds, kindInSync := differ(n, remote)
			if !kindInSync {
				inSync = false
				for _, c := range cmds {
					transport.Send(c)
				}
			}
		}

		if inSync {
			if n.Unref() {
				// zero-refcount: caller's node database owns destroying it.
			}
			delete(s.toSyncIndex, n.ID)
			continue
		}
		kept = append(kept, n)
	}
	s.rebuildToSync(kept)
}

func (s *Synchronizer) rebuildToSync(kept []*node.Node) {
	s.toSync = kept
	s.toSyncIndex = make(map[node.ID]int, len(kept))
	for i, n := range kept {
		s.toSyncIndex[n.ID] = i
	}
}
