package resource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/medforge/clindocs/internal/domain/audit"
	"github.com/medforge/clindocs/internal/metrics"
	"github.com/medforge/clindocs/internal/repository"
)

// Service handles versioned resource business logic.
type Service struct {
	resources Repository
	audit     audit.Sink
	logger    *slog.Logger
}

// NewService creates a new resource service.
func NewService(resources Repository, sink audit.Sink, logger *slog.Logger) *Service {
	return &Service{resources: resources, audit: sink, logger: logger}
}

// WriteRequest describes a create or update of one resource.
type WriteRequest struct {
	Type     string
	ID       string // optional for create; server-generated when empty
	Document Document
	Actor    string
}

// Create writes version 1 of a new resource. When no id is supplied one is
// generated. Supplying an id that already has versions fails with
// ErrConflict.
func (s *Service) Create(ctx context.Context, tenantID string, req WriteRequest) (*Version, error) {
	if tenantID == "" || req.Type == "" || req.Document == nil {
		return nil, ErrInvalidInput
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	v := s.newVersion(tenantID, req.Type, id, 1, StatusActive, req.Document)
	if err := s.resources.Insert(ctx, v); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	s.recordAudit(ctx, tenantID, v, audit.ActionCreate, req.Actor)
	metrics.ResourceWrites.WithLabelValues(string(OperationCreate)).Inc()
	return v, nil
}

// Update appends a new active version on top of the current one. Updating a
// missing or deleted key fails with ErrNotFound; losing a concurrent race
// for the next version id fails with ErrConflict.
func (s *Service) Update(ctx context.Context, tenantID string, req WriteRequest) (*Version, error) {
	if tenantID == "" || req.Type == "" || req.ID == "" || req.Document == nil {
		return nil, ErrInvalidInput
	}

	latest, err := s.current(ctx, tenantID, req.Type, req.ID)
	if err != nil {
		return nil, err
	}

	v := s.newVersion(tenantID, req.Type, req.ID, latest.VersionID+1, StatusActive, req.Document)
	if err := s.resources.Insert(ctx, v); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("updating resource: %w", err)
	}

	s.recordAudit(ctx, tenantID, v, audit.ActionUpdate, req.Actor)
	metrics.ResourceWrites.WithLabelValues(string(OperationUpdate)).Inc()
	return v, nil
}

// Delete soft-deletes a resource by appending a deleted version that carries
// the prior document, so history stays readable. The key then reads as not
// found outside of history.
func (s *Service) Delete(ctx context.Context, tenantID, resourceType, id, actor string) (*Version, error) {
	if tenantID == "" || resourceType == "" || id == "" {
		return nil, ErrInvalidInput
	}

	latest, err := s.current(ctx, tenantID, resourceType, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	v := &Version{
		TenantID:       tenantID,
		Type:           resourceType,
		ID:             id,
		VersionID:      latest.VersionID + 1,
		Status:         StatusDeleted,
		Document:       latest.Document,
		Search:         latest.Search,
		Tags:           latest.Tags,
		SecurityLabels: latest.SecurityLabels,
		LastUpdated:    now,
		DeletedAt:      &now,
		DeletedBy:      &actor,
	}
	if err := s.resources.Insert(ctx, v); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("deleting resource: %w", err)
	}

	s.recordAudit(ctx, tenantID, v, audit.ActionDelete, actor)
	metrics.ResourceWrites.WithLabelValues(string(OperationDelete)).Inc()
	return v, nil
}

// Get returns the current version for the key, or ErrNotFound when the key
// is absent or its latest version is a delete.
func (s *Service) Get(ctx context.Context, tenantID, resourceType, id string) (*Version, error) {
	return s.current(ctx, tenantID, resourceType, id)
}

// Search returns a page of current, non-deleted versions.
func (s *Service) Search(ctx context.Context, tenantID, resourceType string, opts SearchOptions) ([]Version, error) {
	if tenantID == "" || resourceType == "" {
		return nil, ErrInvalidInput
	}
	versions, err := s.resources.Search(ctx, tenantID, resourceType, opts)
	if err != nil {
		return nil, fmt.Errorf("searching resources: %w", err)
	}
	return versions, nil
}

func (s *Service) current(ctx context.Context, tenantID, resourceType, id string) (*Version, error) {
	latest, err := s.resources.Latest(ctx, tenantID, resourceType, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading resource: %w", err)
	}
	if latest.Status == StatusDeleted {
		return nil, ErrNotFound
	}
	return latest, nil
}

func (s *Service) newVersion(tenantID, resourceType, id string, versionID int64, status Status, doc Document) *Version {
	tags, labels := ProjectMeta(doc)
	return &Version{
		TenantID:       tenantID,
		Type:           resourceType,
		ID:             id,
		VersionID:      versionID,
		Status:         status,
		Document:       doc,
		Search:         Project(resourceType, doc),
		Tags:           tags,
		SecurityLabels: labels,
		LastUpdated:    time.Now(),
	}
}

func (s *Service) recordAudit(ctx context.Context, tenantID string, v *Version, action audit.Action, actor string) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, tenantID, &audit.Entry{
		ResourceType: v.Type,
		ResourceID:   v.ID,
		Action:       action,
		Actor:        actor,
		Detail:       fmt.Sprintf(`{"version_id":%d}`, v.VersionID),
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit record failed", "type", v.Type, "id", v.ID, "error", err)
	}
}
