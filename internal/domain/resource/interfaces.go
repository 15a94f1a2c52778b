package resource

import "context"

// Repository provides version-row persistence for resources.
type Repository interface {
	// Insert appends one version row. A duplicate
	// (tenant, type, id, version) insert fails with repository.ErrConflict;
	// this is the per-key write serialization point.
	Insert(ctx context.Context, v *Version) error
	// Latest returns the highest version row for the key regardless of
	// status, or repository.ErrNotFound.
	Latest(ctx context.Context, tenantID, resourceType, id string) (*Version, error)
	// Search returns current versions matching opts, ordered lastUpdated
	// desc with ties broken by resource id asc.
	Search(ctx context.Context, tenantID, resourceType string, opts SearchOptions) ([]Version, error)
	// History returns up to limit versions for the key, newest first.
	History(ctx context.Context, tenantID, resourceType, id string, limit int) ([]Version, error)
}
