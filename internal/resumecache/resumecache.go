// Package resumecache is an optional local SQLite-backed cache of the
// resume hints a graph needs to adopt its remote nodes after a restart
// instead of recreating them (spec.md §4.6, §6). It is a convenience
// cache, not the persistence contract itself: losing it only costs a
// round of node recreation, never correctness.
package resumecache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/rakunlabs/purple/internal/config"
	"github.com/rakunlabs/purple/internal/engine/node"
	"github.com/rakunlabs/purple/internal/engine/nodefactory"
)

var DefaultTablePrefix = "purple_"

// Cache is the resume-hint store for one local database file.
type Cache struct {
	db   *sql.DB
	goqu *goqu.Database

	tableHints   exp.IdentifierExpression
	tableAnchors exp.IdentifierExpression
}

// Open runs pending migrations and opens the resume cache database.
func Open(ctx context.Context, cfg *config.ResumeCache) (*Cache, error) {
	if cfg == nil {
		return nil, errors.New("resume cache configuration is nil")
	}
	if cfg.Datasource == "" {
		return nil, errors.New("resume cache datasource is required")
	}

	tablePrefix := DefaultTablePrefix
	if cfg.TablePrefix != nil {
		tablePrefix = *cfg.TablePrefix
	}

	migrate := cfg.Migrate
	if migrate.Table == "" {
		migrate.Table = "migrations"
	}
	if migrate.Datasource == "" {
		migrate.Datasource = cfg.Datasource
	}
	migrate.Table = tablePrefix + migrate.Table
	if migrate.Values == nil {
		migrate.Values = make(map[string]string)
	}
	migrate.Values["TABLE_PREFIX"] = tablePrefix

	if err := migrateDB(ctx, &migrate); err != nil {
		return nil, fmt.Errorf("migrate resume cache: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.Datasource)
	if err != nil {
		return nil, fmt.Errorf("open resume cache: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping resume cache: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	slog.Info("opened resume cache", "datasource", cfg.Datasource)

	return &Cache{
		db:           db,
		goqu:         goqu.New("sqlite3", db),
		tableHints:   goqu.T(tablePrefix + "resume_hints"),
		tableAnchors: goqu.T(tablePrefix + "graph_anchors"),
	}, nil
}

func (c *Cache) Close() {
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			slog.Error("close resume cache", "error", err)
		}
	}
}

// SaveHint records the remote node a (module, label) pair resolved to,
// replacing any prior hint for the same key.
func (c *Cache) SaveHint(ctx context.Context, graphID, moduleID string, hint nodefactory.ResumeHint) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	delQuery, _, err := c.goqu.Delete(c.tableHints).
		Where(
			goqu.I("graph_id").Eq(graphID),
			goqu.I("module_id").Eq(moduleID),
			goqu.I("label").Eq(hint.Label),
		).ToSQL()
	if err != nil {
		return fmt.Errorf("build delete query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, delQuery); err != nil {
		return fmt.Errorf("clear prior hint: %w", err)
	}

	insQuery, _, err := c.goqu.Insert(c.tableHints).Rows(
		goqu.Record{
			"graph_id":    graphID,
			"module_id":   moduleID,
			"label":       hint.Label,
			"remote_name": hint.RemoteName,
			"kind":        int(hint.Type),
			"updated_at":  time.Now().UTC().Format(time.RFC3339),
		},
	).ToSQL()
	if err != nil {
		return fmt.Errorf("build insert query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insQuery); err != nil {
		return fmt.Errorf("save hint: %w", err)
	}

	return tx.Commit()
}

// Hints returns every resume hint recorded for a module, for use as
// nodefactory.New's hints argument when a graph is re-created after a
// restart.
func (c *Cache) Hints(ctx context.Context, graphID, moduleID string) ([]nodefactory.ResumeHint, error) {
	query, _, err := c.goqu.From(c.tableHints).
		Select("label", "remote_name", "kind").
		Where(
			goqu.I("graph_id").Eq(graphID),
			goqu.I("module_id").Eq(moduleID),
		).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build hints query: %w", err)
	}

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query hints: %w", err)
	}
	defer rows.Close()

	var hints []nodefactory.ResumeHint
	for rows.Next() {
		var (
			h    nodefactory.ResumeHint
			kind int
		)
		if err := rows.Scan(&h.Label, &h.RemoteName, &kind); err != nil {
			return nil, fmt.Errorf("scan hint row: %w", err)
		}
		h.Type = node.Kind(kind)
		hints = append(hints, h)
	}

	return hints, rows.Err()
}

// SaveAnchor records which (node, buffer) a graph currently occupies.
func (c *Cache) SaveAnchor(ctx context.Context, graphID, name string, anchor struct {
	NodeID   node.ID
	BufferID int
}) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	delQuery, _, err := c.goqu.Delete(c.tableAnchors).
		Where(goqu.I("graph_id").Eq(graphID)).ToSQL()
	if err != nil {
		return fmt.Errorf("build delete query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, delQuery); err != nil {
		return fmt.Errorf("clear prior anchor: %w", err)
	}

	insQuery, _, err := c.goqu.Insert(c.tableAnchors).Rows(
		goqu.Record{
			"graph_id":   graphID,
			"node_id":    string(anchor.NodeID),
			"buffer_id":  anchor.BufferID,
			"name":       name,
			"updated_at": time.Now().UTC().Format(time.RFC3339),
		},
	).ToSQL()
	if err != nil {
		return fmt.Errorf("build insert query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insQuery); err != nil {
		return fmt.Errorf("save anchor: %w", err)
	}

	return tx.Commit()
}

// DeleteGraph removes every hint and anchor recorded for a graph,
// for use once the graph is permanently closed.
func (c *Cache) DeleteGraph(ctx context.Context, graphID string) error {
	hintsQuery, _, err := c.goqu.Delete(c.tableHints).
		Where(goqu.I("graph_id").Eq(graphID)).ToSQL()
	if err != nil {
		return fmt.Errorf("build delete query: %w", err)
	}
	if _, err := c.db.ExecContext(ctx, hintsQuery); err != nil {
		return fmt.Errorf("delete hints: %w", err)
	}

	anchorQuery, _, err := c.goqu.Delete(c.tableAnchors).
		Where(goqu.I("graph_id").Eq(graphID)).ToSQL()
	if err != nil {
		return fmt.Errorf("build delete query: %w", err)
	}
	if _, err := c.db.ExecContext(ctx, anchorQuery); err != nil {
		return fmt.Errorf("delete anchor: %w", err)
	}

	return nil
}
