package resource

import "time"

// SearchOptions filters a type-scoped search over current versions.
type SearchOptions struct {
	// IDs restricts results to an explicit id list.
	IDs []string
	// Filters are search-parameter predicates matched against the projected
	// search fields (identifier, code, subject, name). The subject predicate
	// additionally falls back to a raw-document substring probe.
	Filters map[string]string
	// Since/Until bound lastUpdated (inclusive start, exclusive end).
	Since *time.Time
	Until *time.Time
	// IncludeDeleted admits keys whose latest version is a delete.
	IncludeDeleted bool
	Limit          int
	Offset         int
}
