package audit

import (
	"context"
	"time"
)

// Action identifies what happened to a resource.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionImport Action = "import"
	ActionExport Action = "export"
)

// Entry is one append-only audit record.
type Entry struct {
	ID           int64     `json:"id"`
	TenantID     string    `json:"tenant_id"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	Action       Action    `json:"action"`
	Actor        string    `json:"actor"`
	Detail       string    `json:"detail,omitempty"` // JSON string
	CreatedAt    time.Time `json:"created_at"`
}

// Sink accepts audit records. Callers treat it as fire-and-forget: a sink
// failure is logged, never propagated.
type Sink interface {
	Record(ctx context.Context, tenantID string, entry *Entry) error
}
