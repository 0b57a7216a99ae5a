package job

import (
	"context"
	"fmt"
	"sync"

	"github.com/worldline-go/hardloop"
)

// cronRunner is satisfied by hardloop's unexported *cronJob type
// (returned by hardloop.NewCron), letting Wheel hold it without
// naming the unexported struct.
type cronRunner interface {
	Start(ctx context.Context) error
	Stop()
}

// cronFeed bridges hardloop's own goroutine-driven firing into the
// wheel's cooperative Advance loop: a cron tick only enqueues a
// notification, and Advance drains the channel on the engine's own
// goroutine so the fire callback never races scheduler or
// synchronizer work.
type cronFeed struct {
	mu      sync.Mutex
	runners map[string]cronRunner
	ticks   chan tick
}

type tick struct {
	id   string
	fire Fire
}

func newCronFeed() *cronFeed {
	return &cronFeed{runners: make(map[string]cronRunner), ticks: make(chan tick, 64)}
}

// ScheduleCron installs a cron-spec driven job (used for plug-in
// timers expressed as a schedule rather than a fixed delay). The fire
// callback still only ever runs from within Advance.
func (w *Wheel) ScheduleCron(ctx context.Context, id, spec string, fire Fire) error {
	w.mu.Lock()
	if w.cron == nil {
		w.cron = newCronFeed()
	}
	feed := w.cron
	w.mu.Unlock()

	feed.mu.Lock()
	if _, exists := feed.runners[id]; exists {
		feed.mu.Unlock()
		return fmt.Errorf("job: cron id %q already scheduled", id)
	}
	feed.mu.Unlock()

	cronJob, err := hardloop.NewCron(hardloop.Cron{
		Name:  id,
		Specs: []string{spec},
		Func: func(ctx context.Context) error {
			feed.ticks <- tick{id: id, fire: fire}
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("job: build cron %q: %w", id, err)
	}

	if err := cronJob.Start(ctx); err != nil {
		return fmt.Errorf("job: start cron %q: %w", id, err)
	}

	feed.mu.Lock()
	feed.runners[id] = cronJob
	feed.mu.Unlock()
	return nil
}

// CancelCron stops and removes a cron-spec job by id.
func (w *Wheel) CancelCron(id string) bool {
	w.mu.Lock()
	feed := w.cron
	w.mu.Unlock()
	if feed == nil {
		return false
	}

	feed.mu.Lock()
	defer feed.mu.Unlock()
	runner, ok := feed.runners[id]
	if !ok {
		return false
	}
	runner.Stop()
	delete(feed.runners, id)
	return true
}

// drainCron runs every pending cron-triggered fire callback
// non-blockingly.
func (w *Wheel) drainCron(ctx context.Context) {
	w.mu.Lock()
	feed := w.cron
	w.mu.Unlock()
	if feed == nil {
		return
	}

	for {
		select {
		case t := <-feed.ticks:
			if err := t.fire(ctx); err != nil {
				w.logger.Error("cron job failed", "job_id", t.id, "error", err)
			}
		default:
			return
		}
	}
}
