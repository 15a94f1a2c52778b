package bundle_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/medforge/clindocs/internal/domain/bundle"
	"github.com/medforge/clindocs/internal/domain/resource"
	"github.com/medforge/clindocs/internal/repository"
	"github.com/medforge/clindocs/internal/schema"
	"github.com/medforge/clindocs/internal/sqlite"
)

type importHarness struct {
	db        *sqlite.DB
	resources *resource.Service
	repo      *sqlite.ResourceRepository
	audit     *sqlite.AuditRepository
	validator *schema.Validator
	logger    *slog.Logger
}

func newImportHarness(t *testing.T) *importHarness {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })

	validator, err := schema.NewValidator()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := sqlite.NewResourceRepository(db)
	auditRepo := sqlite.NewAuditRepository(db)

	return &importHarness{
		db:        db,
		resources: resource.NewService(repo, auditRepo, logger),
		repo:      repo,
		audit:     auditRepo,
		validator: validator,
		logger:    logger,
	}
}

func (h *importHarness) importer(t *testing.T) *bundle.Importer {
	t.Helper()
	return bundle.NewImporter(h.resources, h.audit, h.validator, h.logger, 0)
}

// flakyService fails the nth dispatch, simulating a store failure mid-batch.
type flakyService struct {
	inner  bundle.ResourceService
	failOn int
	calls  int
}

func (f *flakyService) next() error {
	f.calls++
	if f.calls == f.failOn {
		return errors.New("simulated store failure")
	}
	return nil
}

func (f *flakyService) Create(ctx context.Context, tenantID string, req resource.WriteRequest) (*resource.Version, error) {
	if err := f.next(); err != nil {
		return nil, err
	}
	return f.inner.Create(ctx, tenantID, req)
}

func (f *flakyService) Update(ctx context.Context, tenantID string, req resource.WriteRequest) (*resource.Version, error) {
	if err := f.next(); err != nil {
		return nil, err
	}
	return f.inner.Update(ctx, tenantID, req)
}

func (f *flakyService) Delete(ctx context.Context, tenantID, resourceType, id, actor string) (*resource.Version, error) {
	if err := f.next(); err != nil {
		return nil, err
	}
	return f.inner.Delete(ctx, tenantID, resourceType, id, actor)
}

func TestImporter_OrderingAllowsForwardReferences(t *testing.T) {
	h := newImportHarness(t)
	ctx := context.Background()

	// The observation appears before the patient it references; ordering
	// promotes the patient entry first.
	raw := []byte(`{
		"resourceType": "Bundle",
		"type": "transaction",
		"entry": [
			{"resource": {
				"resourceType": "Observation",
				"id": "obs-local",
				"subject": {"reference": "Patient/pat-local"}
			}},
			{"resource": {"resourceType": "Patient", "id": "pat-local"}}
		]
	}`)

	job, err := h.importer(t).Import(ctx, "tenant1", "loader", raw)
	require.NoError(t, err)
	require.Equal(t, 2, job.Processed)
	require.Equal(t, 2, job.Succeeded)
	require.Equal(t, 0, job.Failed)

	require.Equal(t, "Patient", job.Outcomes[0].ResourceType, "patient dispatched first")
	require.Equal(t, "Observation", job.Outcomes[1].ResourceType)

	observations, err := h.repo.Search(ctx, "tenant1", "Observation", resource.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, observations, 1)
}

func TestImporter_InvalidReferenceIsolated(t *testing.T) {
	h := newImportHarness(t)
	ctx := context.Background()

	raw := []byte(`{
		"resourceType": "Bundle",
		"type": "transaction",
		"entry": [
			{"resource": {"resourceType": "Patient", "id": "pat-local"}},
			{"resource": {
				"resourceType": "Observation",
				"id": "obs-bad",
				"subject": {"reference": "Patient/not-in-bundle"}
			}},
			{"resource": {
				"resourceType": "Observation",
				"id": "obs-good",
				"subject": {"reference": "Patient/pat-local"}
			}}
		]
	}`)

	job, err := h.importer(t).Import(ctx, "tenant1", "loader", raw)
	require.NoError(t, err)
	require.Equal(t, 3, job.Processed)
	require.Equal(t, 2, job.Succeeded)
	require.Equal(t, 1, job.Failed)

	var failed *bundle.EntryOutcome
	for i := range job.Outcomes {
		if job.Outcomes[i].Status == bundle.OutcomeFailed {
			failed = &job.Outcomes[i]
		}
	}
	require.NotNil(t, failed)
	require.Equal(t, bundle.CodeInvalidReferences, failed.ErrorCode)
	require.Equal(t, "obs-bad", failed.OriginalID)
	require.Contains(t, failed.Message, "Patient/not-in-bundle")

	observations, err := h.repo.Search(ctx, "tenant1", "Observation", resource.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, observations, 1, "invalid entry must not be dispatched")
}

func TestImporter_StoreErrorIsolated(t *testing.T) {
	h := newImportHarness(t)
	ctx := context.Background()

	raw := []byte(`{
		"resourceType": "Bundle",
		"type": "transaction",
		"entry": [
			{"resource": {"resourceType": "Patient", "id": "p1"}},
			{"resource": {"resourceType": "Patient", "id": "p2"}},
			{"resource": {"resourceType": "Patient", "id": "p3"}},
			{"resource": {"resourceType": "Patient", "id": "p4"}},
			{"resource": {"resourceType": "Patient", "id": "p5"}}
		]
	}`)

	flaky := &flakyService{inner: h.resources, failOn: 3}
	imp := bundle.NewImporter(flaky, h.audit, h.validator, h.logger, 0)

	job, err := imp.Import(ctx, "tenant1", "loader", raw)
	require.NoError(t, err)
	require.Equal(t, 5, job.Processed)
	require.Equal(t, 4, job.Succeeded)
	require.Equal(t, 1, job.Failed)
	require.Equal(t, bundle.CodeStoreError, job.Outcomes[2].ErrorCode)

	patients, err := h.repo.Search(ctx, "tenant1", "Patient", resource.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, patients, 4, "entries around the failure must persist")
}

func TestImporter_MalformedBundleAborts(t *testing.T) {
	h := newImportHarness(t)
	ctx := context.Background()

	_, err := h.importer(t).Import(ctx, "tenant1", "loader", []byte(`{"resourceType": "Patient"}`))
	require.ErrorIs(t, err, bundle.ErrMalformedBundle)

	patients, err := h.repo.Search(ctx, "tenant1", "Patient", resource.SearchOptions{})
	require.NoError(t, err)
	require.Empty(t, patients)
}

func TestImporter_ReimportCreatesNewIDs(t *testing.T) {
	h := newImportHarness(t)
	ctx := context.Background()

	raw := []byte(`{
		"resourceType": "Bundle",
		"type": "transaction",
		"entry": [
			{"resource": {"resourceType": "Patient", "id": "pat-local"}}
		]
	}`)

	imp := h.importer(t)
	first, err := imp.Import(ctx, "tenant1", "loader", raw)
	require.NoError(t, err)
	second, err := imp.Import(ctx, "tenant1", "loader", raw)
	require.NoError(t, err)

	require.Equal(t, 1, first.Succeeded)
	require.Equal(t, 1, second.Succeeded)
	require.NotEqual(t, first.Outcomes[0].FinalID, second.Outcomes[0].FinalID)

	patients, err := h.repo.Search(ctx, "tenant1", "Patient", resource.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, patients, 2)
}

func TestImporter_UpdateSemanticsAppendsOneVersion(t *testing.T) {
	h := newImportHarness(t)
	ctx := context.Background()

	_, err := h.resources.Create(ctx, "tenant1", resource.WriteRequest{
		Type:     "Patient",
		ID:       "p1",
		Document: resource.Document{"resourceType": "Patient", "id": "p1"},
		Actor:    "seed",
	})
	require.NoError(t, err)

	raw := []byte(`{
		"resourceType": "Bundle",
		"type": "transaction",
		"entry": [
			{"request": {"method": "PUT", "url": "Patient/p1"},
			 "resource": {"resourceType": "Patient", "id": "p1", "active": true}}
		]
	}`)

	job, err := h.importer(t).Import(ctx, "tenant1", "loader", raw)
	require.NoError(t, err)
	require.Equal(t, 1, job.Succeeded)

	versions, err := h.repo.History(ctx, "tenant1", "Patient", "p1", 10)
	require.NoError(t, err)
	require.Len(t, versions, 2, "exactly one new version per re-import")
	require.Equal(t, int64(2), versions[0].VersionID)
}

func TestImporter_UpdateMissingKeyFailsEntryOnly(t *testing.T) {
	h := newImportHarness(t)
	ctx := context.Background()

	raw := []byte(`{
		"resourceType": "Bundle",
		"type": "transaction",
		"entry": [
			{"request": {"method": "PUT", "url": "Patient/ghost"},
			 "resource": {"resourceType": "Patient", "id": "ghost"}},
			{"resource": {"resourceType": "Patient", "id": "pat-local"}}
		]
	}`)

	job, err := h.importer(t).Import(ctx, "tenant1", "loader", raw)
	require.NoError(t, err)
	require.Equal(t, 2, job.Processed)
	require.Equal(t, 1, job.Succeeded)
	require.Equal(t, 1, job.Failed)

	var failed *bundle.EntryOutcome
	for i := range job.Outcomes {
		if job.Outcomes[i].Status == bundle.OutcomeFailed {
			failed = &job.Outcomes[i]
		}
	}
	require.NotNil(t, failed)
	require.Equal(t, bundle.CodeNotFound, failed.ErrorCode)
}

func TestImporter_DeleteEntry(t *testing.T) {
	h := newImportHarness(t)
	ctx := context.Background()

	_, err := h.resources.Create(ctx, "tenant1", resource.WriteRequest{
		Type:     "Patient",
		ID:       "p1",
		Document: resource.Document{"resourceType": "Patient", "id": "p1"},
		Actor:    "seed",
	})
	require.NoError(t, err)

	raw := []byte(`{
		"resourceType": "Bundle",
		"type": "transaction",
		"entry": [
			{"request": {"method": "DELETE", "url": "Patient/p1"}}
		]
	}`)

	job, err := h.importer(t).Import(ctx, "tenant1", "loader", raw)
	require.NoError(t, err)
	require.Equal(t, 1, job.Succeeded)

	_, err = h.resources.Get(ctx, "tenant1", "Patient", "p1")
	require.ErrorIs(t, err, resource.ErrNotFound)
}

func TestImporter_EntryCap(t *testing.T) {
	h := newImportHarness(t)
	ctx := context.Background()

	raw := []byte(`{
		"resourceType": "Bundle",
		"type": "transaction",
		"entry": [
			{"resource": {"resourceType": "Patient", "id": "p1"}},
			{"resource": {"resourceType": "Patient", "id": "p2"}}
		]
	}`)

	imp := bundle.NewImporter(h.resources, h.audit, h.validator, h.logger, 1)
	_, err := imp.Import(ctx, "tenant1", "loader", raw)
	require.ErrorIs(t, err, bundle.ErrTooManyEntries)
}

func TestImporter_AuditTrail(t *testing.T) {
	h := newImportHarness(t)
	ctx := context.Background()

	raw := []byte(`{
		"resourceType": "Bundle",
		"type": "transaction",
		"entry": [
			{"resource": {"resourceType": "Patient", "id": "pat-local"}}
		]
	}`)

	job, err := h.importer(t).Import(ctx, "tenant1", "loader", raw)
	require.NoError(t, err)

	entries, err := h.audit.List(ctx, "tenant1", repository.ListAuditOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 2, "one per-write record plus one import record")
	require.Equal(t, "Bundle", entries[0].ResourceType)
	require.Equal(t, job.ID, entries[0].ResourceID)
	require.Equal(t, "Patient", entries[1].ResourceType)
}
