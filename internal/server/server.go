// Package server exposes a debug/health HTTP surface over the running
// engine: graph and plug-in introspection for operators, plus a
// liveness probe. It is not the Verse wire transport (spec.md §1's
// transport library stays an external collaborator) — just the same
// kind of small ada-based admin surface other rakunlabs services run
// alongside their own gateways.
package server

import (
	"context"
	"net"

	"github.com/rakunlabs/ada"

	mcors "github.com/rakunlabs/ada/middleware/cors"
	mlog "github.com/rakunlabs/ada/middleware/log"
	mrecover "github.com/rakunlabs/ada/middleware/recover"
	mrequestid "github.com/rakunlabs/ada/middleware/requestid"
	mserver "github.com/rakunlabs/ada/middleware/server"
	mtelemetry "github.com/rakunlabs/ada/middleware/telemetry"

	"github.com/rakunlabs/purple/internal/config"
	"github.com/rakunlabs/purple/internal/engine/graph"
	"github.com/rakunlabs/purple/internal/engine/plugin"
)

// Server is the debug/health HTTP surface.
type Server struct {
	config config.Server

	server *ada.Server

	catalog  *graph.Catalog
	registry *plugin.Registry
}

// New builds the server's route table over a running engine's catalog
// and plug-in registry.
func New(cfg config.Server, catalog *graph.Catalog, registry *plugin.Registry) (*Server, error) {
	mux := ada.New()
	mux.Use(
		mrecover.Middleware(),
		mserver.Middleware(config.Service),
		mcors.Middleware(),
		mrequestid.Middleware(),
		mlog.Middleware(),
		mtelemetry.Middleware(),
	)

	s := &Server{
		config:   cfg,
		server:   mux,
		catalog:  catalog,
		registry: registry,
	}

	baseGroup := mux.Group(cfg.BasePath)
	baseGroup.GET("/healthz", s.Health)

	apiGroup := baseGroup.Group("/api/v1")
	apiGroup.GET("/graphs", s.ListGraphs)
	apiGroup.GET("/graphs/*", s.GetGraph)
	apiGroup.GET("/plugins", s.ListPlugins)

	return s, nil
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	return s.server.StartWithContext(ctx, net.JoinHostPort(s.config.Host, s.config.Port))
}
