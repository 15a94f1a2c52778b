package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}

// RunMigrations runs the migrations directly (for testing)
// In production, migrations should be run via the migrate CLI or embed package
func (db *DB) RunMigrations() error {
	migration := `
-- Resource versions: one immutable row per version. The primary key is the
-- uniqueness constraint that serializes concurrent writers per key.
CREATE TABLE resource_versions (
    tenant_id TEXT NOT NULL,
    resource_type TEXT NOT NULL,
    resource_id TEXT NOT NULL,
    version_id INTEGER NOT NULL CHECK(version_id >= 1),
    status TEXT NOT NULL CHECK(status IN ('active', 'deleted')),
    document TEXT NOT NULL,
    search_identifier TEXT NOT NULL DEFAULT '',
    search_code TEXT NOT NULL DEFAULT '',
    search_subject TEXT NOT NULL DEFAULT '',
    search_name TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL DEFAULT '[]',
    security_labels TEXT NOT NULL DEFAULT '[]',
    last_updated TIMESTAMP NOT NULL,
    deleted_at TIMESTAMP,
    deleted_by TEXT,
    PRIMARY KEY (tenant_id, resource_type, resource_id, version_id)
);
CREATE INDEX idx_versions_updated ON resource_versions(tenant_id, resource_type, last_updated);
CREATE INDEX idx_versions_subject ON resource_versions(tenant_id, resource_type, search_subject);

-- Audit log (append-only)
CREATE TABLE audit_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    tenant_id TEXT NOT NULL,
    resource_type TEXT NOT NULL,
    resource_id TEXT NOT NULL,
    action TEXT NOT NULL,
    actor TEXT NOT NULL,
    detail TEXT,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX idx_audit_tenant ON audit_log(tenant_id, created_at);
CREATE INDEX idx_audit_resource ON audit_log(tenant_id, resource_type, resource_id);
`

	_, err := db.Exec(migration)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
