// Package config loads the engine's process configuration via chu's
// struct-tag layering (file + env overrides), the same mechanism the
// teacher repo uses for its own config surface.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/rakunlabs/chu/loader/external/loaderconsul"
	_ "github.com/rakunlabs/chu/loader/external/loadervault"
	"github.com/rakunlabs/chu/loader/loaderenv"
	"github.com/rakunlabs/logi"
	str2duration "github.com/xhit/go-str2duration/v2"

	"github.com/rakunlabs/chu"
	"github.com/rakunlabs/tell"
)

// Service identifies this process for telemetry and the HTTP server
// middleware stack; set from cmd/purple/main.go's name/version.
var Service = ""

type Config struct {
	LogLevel string `cfg:"log_level,no_prefix" default:"info"`

	// PluginPath lists directories for on-disk plug-in libraries
	// (spec.md §4.2). It is loaded and carried only: nothing in this
	// repository searches these directories or loads libraries from them.
	PluginPath []string `cfg:"plugin_path" default:"[\"./plugins\"]"`

	// FixturePath, if set, loads a local YAML graph (package fixture)
	// at startup instead of waiting for a graph to arrive over Verse.
	// Intended for development and tests.
	FixturePath string `cfg:"fixture_path"`

	Engine      Engine      `cfg:"engine"`
	Verse       Verse       `cfg:"verse"`
	ResumeCache ResumeCache `cfg:"resume_cache"`
	Server      Server      `cfg:"server"`
	Telemetry   tell.Config `cfg:"telemetry,noprefix"`
}

// Engine configures the cooperative scheduler loop (spec.md §4.5).
type Engine struct {
	// SliceBudgetRaw is how long one scheduler pass may run before
	// yielding, in str2duration's relaxed syntax ("2ms", "1s500ms").
	// Parsed into SliceBudget by Load.
	SliceBudgetRaw string `cfg:"slice_budget" default:"2ms"`
	SliceBudget    time.Duration
}

// Verse configures the connection to the remote node database (spec.md
// §1, §6). The engine treats Verse purely as an external collaborator;
// this struct only carries what's needed to dial and retry it.
type Verse struct {
	Address string `cfg:"address"`

	ReconnectMinBackoffRaw string `cfg:"reconnect_min_backoff" default:"500ms"`
	ReconnectMinBackoff    time.Duration

	ReconnectMaxBackoffRaw string `cfg:"reconnect_max_backoff" default:"30s"`
	ReconnectMaxBackoff    time.Duration
}

// ResumeCache configures the optional local SQLite resume-hint store
// (package resumecache).
type ResumeCache struct {
	TablePrefix *string `cfg:"table_prefix"`
	Datasource  string  `cfg:"datasource" default:"purple-resume.db"`

	Migrate Migrate `cfg:"migrate"`
}

type Migrate struct {
	Datasource string            `cfg:"datasource" log:"-"`
	Table      string            `cfg:"table"`
	Values     map[string]string `cfg:"values"`
}

// Server configures the debug/health HTTP surface (package server);
// it is not the Verse wire transport.
type Server struct {
	BasePath string `cfg:"base_path"`
	Port     string `cfg:"port" default:"8080"`
	Host     string `cfg:"host"`
}

func Load(ctx context.Context, name string) (*Config, error) {
	var cfg Config
	if err := chu.Load(ctx, name, &cfg, chu.WithLoaderOption(loaderenv.New(loaderenv.WithPrefix("PURPLE_")))); err != nil {
		return nil, err
	}

	if err := logi.SetLogLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("set log level %s: %w", cfg.LogLevel, err)
	}

	var err error
	if cfg.Engine.SliceBudget, err = str2duration.ParseDuration(cfg.Engine.SliceBudgetRaw); err != nil {
		return nil, fmt.Errorf("parse engine.slice_budget %q: %w", cfg.Engine.SliceBudgetRaw, err)
	}
	if cfg.Verse.ReconnectMinBackoff, err = str2duration.ParseDuration(cfg.Verse.ReconnectMinBackoffRaw); err != nil {
		return nil, fmt.Errorf("parse verse.reconnect_min_backoff %q: %w", cfg.Verse.ReconnectMinBackoffRaw, err)
	}
	if cfg.Verse.ReconnectMaxBackoff, err = str2duration.ParseDuration(cfg.Verse.ReconnectMaxBackoffRaw); err != nil {
		return nil, fmt.Errorf("parse verse.reconnect_max_backoff %q: %w", cfg.Verse.ReconnectMaxBackoffRaw, err)
	}

	slog.Info("loaded configuration", "config", chu.MarshalMap(cfg))

	return &cfg, nil
}
