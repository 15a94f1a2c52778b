package repository

import (
	"context"

	"github.com/medforge/clindocs/internal/domain/audit"
)

// AuditRepository manages append-only audit record persistence
type AuditRepository interface {
	Record(ctx context.Context, tenantID string, entry *audit.Entry) error
	List(ctx context.Context, tenantID string, opts ListAuditOptions) ([]audit.Entry, error)
}

// ListAuditOptions provides filtering options for listing audit records
type ListAuditOptions struct {
	ResourceType string
	ResourceID   string
	Action       audit.Action
	Limit        int
	Offset       int
}
