// Package history is a thin read over the resource version store that
// annotates each version with its inferred operation.
package history

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/medforge/clindocs/internal/domain/resource"
)

// DefaultMaxVersions bounds a history read when the caller gives no cap.
const DefaultMaxVersions = 100

// ResourceRepository is the slice of the resource repository history reads.
type ResourceRepository interface {
	History(ctx context.Context, tenantID, resourceType, id string, limit int) ([]resource.Version, error)
}

// Entry is one version plus the operation that produced it.
type Entry struct {
	resource.Version
	Operation resource.Operation `json:"operation"`
}

// Service handles history reads.
type Service struct {
	resources   ResourceRepository
	logger      *slog.Logger
	maxVersions int
}

// NewService creates a new history service. maxVersions caps reads that give
// no explicit cap; 0 falls back to DefaultMaxVersions.
func NewService(resources ResourceRepository, logger *slog.Logger, maxVersions int) *Service {
	return &Service{resources: resources, logger: logger, maxVersions: maxVersions}
}

// Get returns up to maxVersions versions for the key, newest first,
// including soft-deleted ones. A key with no versions at all is not found.
func (s *Service) Get(ctx context.Context, tenantID, resourceType, id string, maxVersions int) ([]Entry, error) {
	if tenantID == "" || resourceType == "" || id == "" {
		return nil, resource.ErrInvalidInput
	}
	if maxVersions <= 0 {
		maxVersions = s.maxVersions
	}
	if maxVersions <= 0 {
		maxVersions = DefaultMaxVersions
	}

	versions, err := s.resources.History(ctx, tenantID, resourceType, id, maxVersions)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	if len(versions) == 0 {
		return nil, resource.ErrNotFound
	}

	entries := make([]Entry, 0, len(versions))
	for _, v := range versions {
		entries = append(entries, Entry{Version: v, Operation: resource.InferOperation(&v)})
	}
	return entries, nil
}
