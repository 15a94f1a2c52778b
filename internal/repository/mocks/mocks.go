package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/medforge/clindocs/internal/domain/audit"
	"github.com/medforge/clindocs/internal/domain/resource"
	"github.com/medforge/clindocs/internal/repository"
)

// ResourceRepository is a mock for repository.ResourceRepository.
type ResourceRepository struct {
	mock.Mock
}

func (m *ResourceRepository) Insert(ctx context.Context, v *resource.Version) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func (m *ResourceRepository) Latest(ctx context.Context, tenantID, resourceType, id string) (*resource.Version, error) {
	args := m.Called(ctx, tenantID, resourceType, id)
	if v, ok := args.Get(0).(*resource.Version); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ResourceRepository) Search(ctx context.Context, tenantID, resourceType string, opts resource.SearchOptions) ([]resource.Version, error) {
	args := m.Called(ctx, tenantID, resourceType, opts)
	if list, ok := args.Get(0).([]resource.Version); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ResourceRepository) History(ctx context.Context, tenantID, resourceType, id string, limit int) ([]resource.Version, error) {
	args := m.Called(ctx, tenantID, resourceType, id, limit)
	if list, ok := args.Get(0).([]resource.Version); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// AuditRepository is a mock for repository.AuditRepository.
type AuditRepository struct {
	mock.Mock
}

func (m *AuditRepository) Record(ctx context.Context, tenantID string, entry *audit.Entry) error {
	args := m.Called(ctx, tenantID, entry)
	return args.Error(0)
}

func (m *AuditRepository) List(ctx context.Context, tenantID string, opts repository.ListAuditOptions) ([]audit.Entry, error) {
	args := m.Called(ctx, tenantID, opts)
	if list, ok := args.Get(0).([]audit.Entry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
