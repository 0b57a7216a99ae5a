package sync

import (
	"context"
	"testing"
	"time"

	"github.com/rakunlabs/purple/internal/engine/clock"
	"github.com/rakunlabs/purple/internal/engine/node"
	"github.com/rakunlabs/purple/internal/sync/content"
)

type fakeTransport struct {
	created []*node.Node
	sent    []Command
}

func (f *fakeTransport) CreateNode(n *node.Node) { f.created = append(f.created, n) }
func (f *fakeTransport) Send(cmd Command)        { f.sent = append(f.sent, cmd) }

type fakeRemote struct {
	heads    map[node.ID]fakeHead
	contents map[node.ID]any
}

type fakeHead struct {
	name   string
	groups []node.TagGroup
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{heads: make(map[node.ID]fakeHead), contents: make(map[node.ID]any)}
}

func (f *fakeRemote) Head(id node.ID) (string, []node.TagGroup, bool) {
	h, ok := f.heads[id]
	return h.name, h.groups, ok
}

func (f *fakeRemote) Content(id node.ID) (any, bool) {
	c, ok := f.contents[id]
	return c, ok
}

const longBudget = time.Second

func TestEnqueueRoutesByRemoteID(t *testing.T) {
	s := New()
	withoutRemote := node.New(node.KindObject, "a", node.Creator{})
	withRemote := node.New(node.KindObject, "b", node.Creator{})
	withRemote.BindRemoteID("remote-1")

	s.Enqueue(withoutRemote)
	s.Enqueue(withRemote)

	if s.ToCreateLen() != 1 {
		t.Fatalf("ToCreateLen() = %d, want 1", s.ToCreateLen())
	}
	if s.ToSyncLen() != 1 {
		t.Fatalf("ToSyncLen() = %d, want 1", s.ToSyncLen())
	}
}

func TestUpdateDrainsToCreateAndAcknowledges(t *testing.T) {
	s := New()
	n := node.New(node.KindObject, "a", node.Creator{})
	s.Enqueue(n)

	transport := &fakeTransport{}
	remote := newFakeRemote()
	s.Update(context.Background(), clock.NewDeadline(longBudget), transport, remote)

	if len(transport.created) != 1 || transport.created[0] != n {
		t.Fatalf("expected node to be sent for creation, got %v", transport.created)
	}
	if s.CreatePendingLen(node.KindObject) != 1 {
		t.Fatalf("CreatePendingLen() = %d, want 1", s.CreatePendingLen(node.KindObject))
	}

	if !s.OnCreateAck(node.KindObject, "remote-1") {
		t.Fatal("expected OnCreateAck to find the pending entry")
	}
	if !n.HasRemoteID() {
		t.Fatal("expected node to be bound to the acknowledged remote id")
	}
	if s.CreatePendingLen(node.KindObject) != 0 {
		t.Fatal("expected create-pending to be drained after ack")
	}
	if s.ToSyncLen() != 1 {
		t.Fatal("expected node moved to to-sync after ack")
	}
}

func TestUpdateDropsInSyncEntries(t *testing.T) {
	s := New()
	n := node.New(node.KindObject, "a", node.Creator{})
	n.BindRemoteID("remote-1")
	n.Content = content.Object{LightColor: [3]float64{1, 0, 0}}
	s.Enqueue(n)

	transport := &fakeTransport{}
	remote := newFakeRemote()
	remote.heads["remote-1"] = fakeHead{name: "a"}
	remote.contents["remote-1"] = content.Object{LightColor: [3]float64{1, 0, 0}}

	s.Update(context.Background(), clock.NewDeadline(longBudget), transport, remote)

	if len(transport.sent) != 0 {
		t.Fatalf("expected no commands for an already-synced node, got %v", transport.sent)
	}
	if s.ToSyncLen() != 0 {
		t.Fatal("expected in-sync node dropped from to-sync")
	}
}

func TestUpdateRetainsOutOfSyncEntries(t *testing.T) {
	s := New()
	n := node.New(node.KindObject, "a", node.Creator{})
	n.BindRemoteID("remote-1")
	n.Content = content.Object{LightColor: [3]float64{1, 0, 0}}
	s.Enqueue(n)

	transport := &fakeTransport{}
	remote := newFakeRemote()
	remote.heads["remote-1"] = fakeHead{name: "a"}
	remote.contents["remote-1"] = content.Object{LightColor: [3]float64{0, 0, 0}}

	s.Update(context.Background(), clock.NewDeadline(longBudget), transport, remote)

	found := false
	for _, c := range transport.sent {
		if c.Op == "light-color-set" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a light-color-set command, got %v", transport.sent)
	}
	if s.ToSyncLen() != 1 {
		t.Fatal("expected node to remain in to-sync until it matches remote")
	}
}

// slowRemote sleeps on the first Content lookup for a chosen node id,
// letting a test force the deadline to elapse strictly between two
// to-sync entries rather than before the pass starts.
type slowRemote struct {
	*fakeRemote
	sleepAfter node.ID
	slept      bool
}

func (s *slowRemote) Content(id node.ID) (any, bool) {
	v, ok := s.fakeRemote.Content(id)
	if id == s.sleepAfter && !s.slept {
		s.slept = true
		time.Sleep(20 * time.Millisecond)
	}
	return v, ok
}

func TestUpdateMidPassDeadlineDoesNotReprocessDroppedEntries(t *testing.T) {
	s := New()

	a := node.New(node.KindObject, "a", node.Creator{})
	a.BindRemoteID("ra")
	a.Content = content.Object{LightColor: [3]float64{1, 0, 0}}

	b := node.New(node.KindObject, "b", node.Creator{})
	b.BindRemoteID("rb")
	b.Content = content.Object{LightColor: [3]float64{0, 1, 0}}

	c := node.New(node.KindObject, "c", node.Creator{})
	c.BindRemoteID("rc")
	c.Content = content.Object{LightColor: [3]float64{0, 0, 1}}

	s.Enqueue(a)
	s.Enqueue(b)
	s.Enqueue(c)

	base := newFakeRemote()
	base.heads["ra"] = fakeHead{name: "a"}
	base.contents["ra"] = content.Object{LightColor: [3]float64{1, 0, 0}} // in sync, dropped first
	base.heads["rb"] = fakeHead{name: "b"}
	base.contents["rb"] = content.Object{LightColor: [3]float64{9, 9, 9}} // out of sync, retained
	base.heads["rc"] = fakeHead{name: "c"}
	base.contents["rc"] = content.Object{LightColor: [3]float64{9, 9, 9}} // out of sync, retained

	remote := &slowRemote{fakeRemote: base, sleepAfter: "ra"}
	transport := &fakeTransport{}

	s.Update(context.Background(), clock.NewDeadline(10*time.Millisecond), transport, remote)

	if s.ToSyncLen() != 2 {
		t.Fatalf("ToSyncLen() = %d, want 2 (a dropped as in-sync, b and c retained, not re-added)", s.ToSyncLen())
	}

	// A second pass with ample budget must settle b and c without
	// reprocessing a (which would indicate the fallback re-appended an
	// already-unref'd, already-dropped entry).
	remote.slept = true
	base.contents["rb"] = content.Object{LightColor: [3]float64{0, 1, 0}}
	base.contents["rc"] = content.Object{LightColor: [3]float64{0, 0, 1}}
	s.Update(context.Background(), clock.NewDeadline(longBudget), transport, remote)

	if s.ToSyncLen() != 0 {
		t.Fatalf("ToSyncLen() = %d, want 0 after both remaining entries settle", s.ToSyncLen())
	}
}

func TestZeroBudgetUpdateDoesNothing(t *testing.T) {
	s := New()
	n := node.New(node.KindObject, "a", node.Creator{})
	s.Enqueue(n)

	transport := &fakeTransport{}
	remote := newFakeRemote()
	s.Update(context.Background(), clock.NewDeadline(0), transport, remote)

	if len(transport.created) != 0 {
		t.Fatal("a zero-budget deadline must not issue any create commands")
	}
	if s.ToCreateLen() != 1 {
		t.Fatal("expected the entry to remain in to-create")
	}
}
