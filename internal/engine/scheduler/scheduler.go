// Package scheduler implements the cooperative ready-list executor
// described in spec.md §4.5: a doubly-linked list of instances whose
// inputs changed, driven by a soft wall-clock deadline per slice, with
// an iterator cursor remembered across slices so a long pass resumes
// instead of rescanning from the head.
package scheduler

import (
	"container/list"
	"context"
	"log/slog"

	"github.com/rakunlabs/purple/internal/engine/clock"
	"github.com/rakunlabs/purple/internal/engine/module"
	"github.com/rakunlabs/purple/internal/engine/plugin"
)

// Notifier is called once a terminal instance's compute set Changed,
// so the caller can enqueue every element of Dependants (spec.md §4.4/§4.5).
type Notifier func(inst *module.Instance)

// entry is one ready-list node.
type entry struct {
	inst     *module.Instance
	runCount int
}

// Scheduler holds the ready list and the cursor a slice resumes from.
type Scheduler struct {
	ready    *list.List
	index    map[string]*list.Element // moduleID -> element, for idempotent Add
	cursor   *list.Element
	resolve  module.Resolver
	notify   Notifier
	logger   *slog.Logger
}

// New creates an empty scheduler bound to the graph's module resolver
// (for compute-time module-reference substitution) and a notifier
// called when a terminal instance's output changed.
func New(resolve module.Resolver, notify Notifier, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		ready:   list.New(),
		index:   make(map[string]*list.Element),
		resolve: resolve,
		notify:  notify,
		logger:  logger,
	}
}

// Add appends inst to the ready list if it is not already present
// (idempotent — map lookup, spec.md §4.5).
func (s *Scheduler) Add(inst *module.Instance) {
	if _, exists := s.index[inst.ID]; exists {
		return
	}
	el := s.ready.PushBack(&entry{inst: inst})
	s.index[inst.ID] = el
}

// Len reports how many instances are currently ready.
func (s *Scheduler) Len() int { return s.ready.Len() }

// Contains reports whether moduleID is currently on the ready list,
// for tests asserting spec.md §8's "exactly once" property.
func (s *Scheduler) Contains(moduleID string) bool {
	_, ok := s.index[moduleID]
	return ok
}

// Update drains the ready list until deadline elapses or the list is
// exhausted, implementing the full state machine in spec.md §4.5:
//   - run-count 0: output-begin, then compute, increment run-count.
//   - terminal result: remove, output-end (notify dependants iff
//     Changed), drop from index.
//   - AGAIN: retain, advance cursor.
//
// Resumes from the saved cursor across calls; a nil cursor restarts
// from the head. The deadline is soft: a compute call already in
// flight is never preempted (spec.md §5).
func (s *Scheduler) Update(ctx context.Context, deadline clock.Deadline) {
	el := s.cursor
	if el == nil {
		el = s.ready.Front()
	}

	for el != nil {
		if deadline.Elapsed() {
			s.cursor = el
			return
		}

		next := el.Next()
		e := el.Value.(*entry)

		if e.runCount == 0 {
			e.inst.OutputBegin()
		}

		status, err := e.inst.Run(ctx, s.resolve)
		if err != nil {
			s.logger.Error("compute failed", "module", e.inst.ID, "plugin", e.inst.Plugin.Name, "error", err)
		}
		e.runCount++

		switch status {
		case plugin.StatusAgain:
			el = next
			continue
		case plugin.StatusDone, plugin.StatusInputMissing, plugin.StatusFailure:
			s.ready.Remove(el)
			delete(s.index, e.inst.ID)

			if status == plugin.StatusDone && e.inst.Changed && s.notify != nil {
				s.notify(e.inst)
			}
			// spec.md §7: compute-failure removes from ready list and
			// does NOT notify dependants, even if Changed happened to
			// be set before the failing return.
			el = next
		default:
			s.ready.Remove(el)
			delete(s.index, e.inst.ID)
			el = next
		}
	}

	s.cursor = nil
}
