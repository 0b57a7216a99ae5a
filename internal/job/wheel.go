// Package job implements the periodic job wheel the main loop advances
// once per iteration (spec.md §5): reconnection attempts and
// plug-in-scheduled timers. Firing is synchronous with the engine loop
// — no job callback runs concurrently with scheduler or synchronizer
// work — matching the single-threaded cooperative model.
package job

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Fire is a job's callback. A non-nil error is logged but never stops
// the wheel (spec.md §5: "the runtime never retries automatically
// except for reconnection" — reconnection jobs reschedule themselves
// regardless of outcome).
type Fire func(ctx context.Context) error

type entry struct {
	id       string
	next     time.Time
	interval time.Duration // 0 means oneshot
	fire     Fire
}

// Wheel holds timed jobs (periodic or oneshot), cancellable by id
// (spec.md §5: "Timed jobs (periodic / oneshot) can be cancelled by
// id").
type Wheel struct {
	mu      sync.Mutex
	entries map[string]*entry
	logger  *slog.Logger

	cron *cronFeed
}

// New builds an empty Wheel. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Wheel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Wheel{entries: make(map[string]*entry), logger: logger}
}

// Schedule installs a job that first fires after delay, then (if
// interval > 0) every interval thereafter. A zero interval is a
// oneshot: the job is removed from the wheel after firing once.
func (w *Wheel) Schedule(id string, delay, interval time.Duration, fire Fire) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries[id] = &entry{id: id, next: time.Now().Add(delay), interval: interval, fire: fire}
}

// Cancel removes a job by id. Reports whether a job was present.
func (w *Wheel) Cancel(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.entries[id]; !ok {
		return false
	}
	delete(w.entries, id)
	return true
}

// Contains reports whether a job with the given id is still scheduled.
func (w *Wheel) Contains(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.entries[id]
	return ok
}

// Advance fires every due job and drains any pending cron ticks
// registered via ScheduleCron. Call once per main-loop iteration.
func (w *Wheel) Advance(ctx context.Context, now time.Time) {
	w.drainCron(ctx)

	w.mu.Lock()
	var due []*entry
	for _, e := range w.entries {
		if !e.next.After(now) {
			due = append(due, e)
		}
	}
	w.mu.Unlock()

	for _, e := range due {
		if err := e.fire(ctx); err != nil {
			w.logger.Error("job failed", "job_id", e.id, "error", err)
		}

		w.mu.Lock()
		if e.interval > 0 {
			if cur, ok := w.entries[e.id]; ok && cur == e {
				e.next = now.Add(e.interval)
			}
		} else {
			if cur, ok := w.entries[e.id]; ok && cur == e {
				delete(w.entries, e.id)
			}
		}
		w.mu.Unlock()
	}
}
