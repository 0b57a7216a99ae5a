package verse

import (
	"testing"

	"github.com/rakunlabs/purple/internal/engine/node"
	purplesync "github.com/rakunlabs/purple/internal/sync"
)

func TestCreateNodeAcknowledgesSynchronously(t *testing.T) {
	var ackKind node.Kind
	var ackID node.ID
	var ackCalled bool

	l := NewLoopback(func(kind node.Kind, id node.ID) bool {
		ackKind, ackID, ackCalled = kind, id, true
		return true
	}, nil)

	n := node.New(node.KindObject, "root", node.Creator{})
	n.Content = "object-content"

	l.CreateNode(n)

	if !ackCalled {
		t.Fatal("ack was not called")
	}
	if ackKind != node.KindObject {
		t.Fatalf("ack kind = %v, want %v", ackKind, node.KindObject)
	}
	if ackID == "" {
		t.Fatal("ack id is empty")
	}

	name, _, ok := l.Head(ackID)
	if !ok {
		t.Fatalf("Head(%q) not found", ackID)
	}
	if name != "root" {
		t.Fatalf("Head name = %q, want %q", name, "root")
	}

	content, ok := l.Content(ackID)
	if !ok {
		t.Fatalf("Content(%q) not found", ackID)
	}
	if content != "object-content" {
		t.Fatalf("Content = %v, want %q", content, "object-content")
	}
}

func TestCreateNodeAssignsDistinctIDs(t *testing.T) {
	var ids []node.ID
	l := NewLoopback(func(kind node.Kind, id node.ID) bool {
		ids = append(ids, id)
		return true
	}, nil)

	l.CreateNode(node.New(node.KindObject, "a", node.Creator{}))
	l.CreateNode(node.New(node.KindObject, "b", node.Creator{}))

	if len(ids) != 2 || ids[0] == ids[1] {
		t.Fatalf("expected two distinct ids, got %v", ids)
	}
}

func TestHeadAndContentMissingNode(t *testing.T) {
	l := NewLoopback(func(node.Kind, node.ID) bool { return true }, nil)

	if _, _, ok := l.Head("missing"); ok {
		t.Fatal("Head reported ok for a node it never saw")
	}
	if _, ok := l.Content("missing"); ok {
		t.Fatal("Content reported ok for a node it never saw")
	}
}

func TestSendAccumulatesCommands(t *testing.T) {
	l := NewLoopback(func(node.Kind, node.ID) bool { return true }, nil)

	l.Send(purplesync.Command{NodeID: "n1", Kind: node.KindObject, Op: "name-set"})
	l.Send(purplesync.Command{NodeID: "n1", Kind: node.KindObject, Op: "tag-set"})

	sent := l.Sent()
	if len(sent) != 2 {
		t.Fatalf("Sent() len = %d, want 2", len(sent))
	}
	if sent[0].Op != "name-set" || sent[1].Op != "tag-set" {
		t.Fatalf("Sent() = %+v, unexpected order", sent)
	}

	sent[0].Op = "mutated"
	if l.Sent()[0].Op == "mutated" {
		t.Fatal("Sent() must return a copy, not the internal slice")
	}
}
