package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rakunlabs/into"
	"github.com/rakunlabs/logi"
	"golang.org/x/sync/errgroup"

	"github.com/rakunlabs/purple/internal/config"
	"github.com/rakunlabs/purple/internal/engine/clock"
	"github.com/rakunlabs/purple/internal/engine/graph"
	"github.com/rakunlabs/purple/internal/engine/ids"
	"github.com/rakunlabs/purple/internal/engine/module"
	"github.com/rakunlabs/purple/internal/engine/node"
	"github.com/rakunlabs/purple/internal/engine/plugin"
	"github.com/rakunlabs/purple/internal/engine/plugin/builtin"
	"github.com/rakunlabs/purple/internal/engine/scheduler"
	"github.com/rakunlabs/purple/internal/fixture"
	"github.com/rakunlabs/purple/internal/job"
	"github.com/rakunlabs/purple/internal/resumecache"
	"github.com/rakunlabs/purple/internal/server"
	purplesync "github.com/rakunlabs/purple/internal/sync"
	"github.com/rakunlabs/purple/internal/verse"
)

var (
	name    = "purple"
	version = "v0.0.0"
)

func main() {
	config.Service = name + "/" + version

	into.Init(run,
		into.WithLogger(logi.InitializeLog(logi.WithCaller(false))),
		into.WithMsgf("%s [%s]", name, version),
	)
}

// engine bundles the one process-wide synchronizer and job wheel with
// a per-graph scheduler (spec.md §4.4, §4.5, §4.7); §5 describes the
// loop shape this assembles.
type engine struct {
	catalog      *graph.Catalog
	registry     *plugin.Registry
	schedulers   map[string]*scheduler.Scheduler
	synchronizer *purplesync.Synchronizer
	transport    *verse.Loopback
	cache        *resumecache.Cache
	sliceBudget  time.Duration
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	registry := plugin.NewRegistry()
	if err := builtin.RegisterNodeInput(registry, func(string) (*node.Node, bool) { return nil, false }); err != nil {
		return fmt.Errorf("register node-input: %w", err)
	}

	synchronizer := purplesync.New()
	if err := builtin.RegisterNodeOutput(registry, synchronizer.Enqueue); err != nil {
		return fmt.Errorf("register node-output: %w", err)
	}

	transport := verse.NewLoopback(synchronizer.OnCreateAck, logi.Ctx(ctx))

	eng := &engine{
		catalog:      graph.NewCatalog(),
		registry:     registry,
		schedulers:   make(map[string]*scheduler.Scheduler),
		synchronizer: synchronizer,
		transport:    transport,
		sliceBudget:  cfg.Engine.SliceBudget,
	}

	if cfg.ResumeCache.Datasource != "" {
		eng.cache, err = resumecache.Open(ctx, &cfg.ResumeCache)
		if err != nil {
			return fmt.Errorf("open resume cache: %w", err)
		}
		defer eng.cache.Close()
	}

	if cfg.FixturePath != "" {
		if _, err := eng.loadFixture(ctx, cfg.FixturePath); err != nil {
			return fmt.Errorf("load fixture %q: %w", cfg.FixturePath, err)
		}
	}

	srv, err := server.New(cfg.Server, eng.catalog, registry)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	g.Go(func() error {
		return eng.loop(gctx)
	})

	return g.Wait()
}

// loadFixture applies a local YAML graph to a freshly-catalogued graph
// and returns it, standing in for a graph arriving over Verse (spec.md
// §6's remote persistence format stays an external collaborator; this
// is the local development substitute package fixture's own doc
// comment names).
func (e *engine) loadFixture(ctx context.Context, path string) (*graph.Graph, error) {
	fx, err := fixture.LoadFile(path)
	if err != nil {
		return nil, err
	}

	var g *graph.Graph
	var sched *scheduler.Scheduler
	onChanged := func(moduleID string) {
		if g == nil || sched == nil {
			return
		}
		if inst, ok := g.Module(moduleID); ok {
			sched.Add(inst)
		}
	}

	anchor := graph.Anchor{NodeID: node.ID(fx.Anchor.NodeID), BufferID: fx.Anchor.BufferID}
	g, err = e.catalog.Create(ids.GraphID(), fx.Name, anchor, e.registry, onChanged, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog graph %q: %w", fx.Name, err)
	}

	sched = scheduler.New(g.Resolver(), e.dependantNotifier(g), logi.Ctx(ctx))
	e.schedulers[g.ID] = sched

	logger := logi.Ctx(ctx)
	g.SetOnDelta(func(deltas []graph.Delta) {
		logger.Debug("serialization regions rebuilt", "graph", g.ID, "deltas", len(deltas))
	})

	if err := fx.Apply(g, e.registry); err != nil {
		return nil, fmt.Errorf("apply fixture: %w", err)
	}

	for _, m := range g.Modules() {
		sched.Add(m)
	}

	if e.cache != nil {
		if err := e.cache.SaveAnchor(ctx, g.ID, g.Name, struct {
			NodeID   node.ID
			BufferID int
		}{NodeID: g.Anchor.NodeID, BufferID: g.Anchor.BufferID}); err != nil {
			logi.Ctx(ctx).Warn("save graph anchor to resume cache", "graph", g.ID, "error", err)
		}
	}

	return g, nil
}

// dependantNotifier builds a scheduler.Notifier that re-adds every
// dependant of a terminal instance whose output changed (spec.md
// §4.4/§4.5's fan-out step).
func (e *engine) dependantNotifier(g *graph.Graph) scheduler.Notifier {
	return func(inst *module.Instance) {
		if !inst.Changed {
			return
		}
		sched := e.schedulers[g.ID]
		if sched == nil {
			return
		}
		for depID := range inst.Dependants {
			if dep, ok := g.Module(depID); ok {
				sched.Add(dep)
			}
		}
	}
}

// loop runs the cooperative engine passes (spec.md §4.8, §5) until ctx
// is cancelled: each tick advances every graph's scheduler, the
// synchronizer, and the job wheel by one slice.
func (e *engine) loop(ctx context.Context) error {
	wheel := job.New(logi.Ctx(ctx))

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			deadline := clock.NewDeadline(e.sliceBudget)
			for _, sched := range e.schedulers {
				sched.Update(ctx, deadline)
			}
			e.synchronizer.Update(ctx, deadline, e.transport, e.transport)
			wheel.Advance(ctx, now)
		}
	}
}
