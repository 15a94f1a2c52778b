// Package clindocs assembles the versioned clinical document store: the
// resource service, bundle import/export, history reads, and their SQLite
// persistence. A thin API layer is expected to consume Core; no protocol
// surface is provided here.
package clindocs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/medforge/clindocs/internal/config"
	"github.com/medforge/clindocs/internal/domain/bundle"
	"github.com/medforge/clindocs/internal/domain/history"
	"github.com/medforge/clindocs/internal/domain/resource"
	"github.com/medforge/clindocs/internal/schema"
	"github.com/medforge/clindocs/internal/sqlite"
)

// Core exposes the operations of the document store.
type Core struct {
	Resources *resource.Service
	Importer  *bundle.Importer
	Exporter  *bundle.Exporter
	History   *history.Service

	db *sqlite.DB
}

// Open connects the store, runs migrations, and wires the services.
func Open(cfg config.Config, logger *slog.Logger) (*Core, error) {
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	validator, err := schema.NewValidator()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("compiling schemas: %w", err)
	}

	resourceRepo := sqlite.NewResourceRepository(db)
	auditRepo := sqlite.NewAuditRepository(db)

	resourceSvc := resource.NewService(resourceRepo, auditRepo, logger)

	return &Core{
		Resources: resourceSvc,
		Importer:  bundle.NewImporter(resourceSvc, auditRepo, validator, logger, cfg.Limits.MaxImportEntries),
		Exporter:  bundle.NewExporter(resourceRepo, logger, cfg.Limits.MaxExportResources),
		History:   history.NewService(resourceRepo, logger, cfg.Limits.MaxHistoryVersions),
		db:        db,
	}, nil
}

// Ping verifies store connectivity.
func (c *Core) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close releases the store connection.
func (c *Core) Close() error {
	return c.db.Close()
}
