package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/medforge/clindocs/internal/domain/audit"
	"github.com/medforge/clindocs/internal/repository"
)

// AuditRepository implements repository.AuditRepository for SQLite
type AuditRepository struct {
	db *DB
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(db *DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Record inserts a new audit entry
func (r *AuditRepository) Record(ctx context.Context, tenantID string, entry *audit.Entry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO audit_log (
			tenant_id, resource_type, resource_id, action, actor, detail, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		tenantID,
		entry.ResourceType,
		entry.ResourceID,
		entry.Action,
		entry.Actor,
		entry.Detail,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		entry.ID = id
	}

	entry.TenantID = tenantID
	entry.CreatedAt = createdAt

	return nil
}

// List returns audit entries matching the given filters, newest first
func (r *AuditRepository) List(ctx context.Context, tenantID string, opts repository.ListAuditOptions) ([]audit.Entry, error) {
	query := `
		SELECT id, tenant_id, resource_type, resource_id, action, actor, detail, created_at
		FROM audit_log
		WHERE tenant_id = ?
	`

	args := []interface{}{tenantID}
	conditions := []string{}

	if opts.ResourceType != "" {
		conditions = append(conditions, "resource_type = ?")
		args = append(args, opts.ResourceType)
	}
	if opts.ResourceID != "" {
		conditions = append(conditions, "resource_id = ?")
		args = append(args, opts.ResourceID)
	}
	if opts.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, opts.Action)
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY id DESC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var e audit.Entry
		err := rows.Scan(
			&e.ID,
			&e.TenantID,
			&e.ResourceType,
			&e.ResourceID,
			&e.Action,
			&e.Actor,
			&e.Detail,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit rows: %w", err)
	}

	return entries, nil
}
