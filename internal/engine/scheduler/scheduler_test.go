package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/rakunlabs/purple/internal/engine/clock"
	"github.com/rakunlabs/purple/internal/engine/module"
	"github.com/rakunlabs/purple/internal/engine/node"
	"github.com/rakunlabs/purple/internal/engine/nodefactory"
	"github.com/rakunlabs/purple/internal/engine/plugin"
	"github.com/rakunlabs/purple/internal/engine/port"
	"github.com/rakunlabs/purple/internal/engine/value"
)

// longBudget is large enough that a single Update call drains the
// whole ready list in these tests without hitting the deadline.
const longBudget = time.Second

func newAgainThenDonePlugin(t *testing.T, again int) *plugin.Descriptor {
	t.Helper()
	calls := 0
	d, err := plugin.NewBuilder("again-then-done").
		Compute(func(ctx context.Context, inputs []*port.Port, output *port.Port, state any) (plugin.Status, error) {
			calls++
			if calls <= again {
				return plugin.StatusAgain, nil
			}
			output.Set(value.Bool(true))
			return plugin.StatusDone, nil
		}).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return d
}

func TestAgainRetainsUntilDone(t *testing.T) {
	desc := newAgainThenDonePlugin(t, 5)
	inst := module.New("m1", "g1", desc, nodefactory.New(nodeCreator(), nil, nil))

	var notified []string
	sched := New(noResolve, func(i *module.Instance) { notified = append(notified, i.ID) }, nil)
	sched.Add(inst)

	for i := 0; i < 5; i++ {
		sched.Update(context.Background(), clock.NewDeadline(longBudget))
		if !sched.Contains(inst.ID) {
			t.Fatalf("expected instance to remain ready after AGAIN call %d", i+1)
		}
		if len(notified) != 0 {
			t.Fatalf("dependants notified before DONE, at call %d", i+1)
		}
	}

	// Sixth call returns DONE.
	sched.Update(context.Background(), clock.NewDeadline(longBudget))
	if sched.Contains(inst.ID) {
		t.Fatal("expected instance removed from ready list after DONE")
	}
	if !inst.Changed {
		t.Fatal("expected Changed to be set after a successful compute that wrote output")
	}
	if len(notified) != 1 || notified[0] != inst.ID {
		t.Fatalf("expected exactly one notification for %s, got %v", inst.ID, notified)
	}
}

func TestZeroBudgetAdvancesNothing(t *testing.T) {
	desc := newAgainThenDonePlugin(t, 5)
	inst := module.New("m1", "g1", desc, nodefactory.New(nodeCreator(), nil, nil))

	sched := New(noResolve, nil, nil)
	sched.Add(inst)

	sched.Update(context.Background(), clock.NewDeadline(0))
	if !sched.Contains(inst.ID) {
		t.Fatal("a zero-budget deadline must not advance the cursor")
	}
}

func TestComputeFailureDoesNotNotify(t *testing.T) {
	d, err := plugin.NewBuilder("always-fails").
		Compute(func(ctx context.Context, inputs []*port.Port, output *port.Port, state any) (plugin.Status, error) {
			output.Set(value.Bool(true))
			return plugin.StatusFailure, nil
		}).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	inst := module.New("m1", "g1", d, nodefactory.New(nodeCreator(), nil, nil))

	var notified bool
	sched := New(noResolve, func(i *module.Instance) { notified = true }, nil)
	sched.Add(inst)
	sched.Update(context.Background(), clock.NewDeadline(longBudget))

	if sched.Contains(inst.ID) {
		t.Fatal("failed compute should be removed from the ready list")
	}
	if notified {
		t.Fatal("compute-failure must never notify dependants, per spec")
	}
}

func TestAddIsIdempotent(t *testing.T) {
	desc := newAgainThenDonePlugin(t, 0)
	inst := module.New("m1", "g1", desc, nodefactory.New(nodeCreator(), nil, nil))

	sched := New(noResolve, nil, nil)
	sched.Add(inst)
	sched.Add(inst)
	if sched.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after duplicate Add", sched.Len())
	}
}

func noResolve(moduleID string) (*port.Port, bool) { return nil, false }

func nodeCreator() node.Creator {
	return node.Creator{GraphID: "g1", ModuleID: "m1"}
}
