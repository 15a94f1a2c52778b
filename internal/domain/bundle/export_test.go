package bundle_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/medforge/clindocs/internal/domain/bundle"
	"github.com/medforge/clindocs/internal/domain/resource"
	"github.com/medforge/clindocs/internal/sqlite"
)

func newExportHarness(t *testing.T) (*sqlite.ResourceRepository, *bundle.Exporter) {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })

	repo := sqlite.NewResourceRepository(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return repo, bundle.NewExporter(repo, logger, 0)
}

func seedVersion(t *testing.T, repo *sqlite.ResourceRepository, resourceType, id string, versionID int64, status resource.Status, updated time.Time) {
	t.Helper()
	err := repo.Insert(context.Background(), &resource.Version{
		TenantID:    "tenant1",
		Type:        resourceType,
		ID:          id,
		VersionID:   versionID,
		Status:      status,
		Document:    resource.Document{"resourceType": resourceType, "id": id, "versionTag": fmt.Sprintf("v%d", versionID)},
		LastUpdated: updated,
	})
	require.NoError(t, err)
}

func entryIDs(t *testing.T, doc resource.Document) []string {
	t.Helper()
	var ids []string
	for _, el := range doc.ListAt("entry") {
		ids = append(ids, el.StringAt("resource", "id"))
	}
	return ids
}

func TestExporter_TimeWindow(t *testing.T) {
	repo, exp := newExportHarness(t)
	now := time.Now()

	seedVersion(t, repo, "Patient", "p-old", 1, resource.StatusActive, now.AddDate(0, 0, -40))
	seedVersion(t, repo, "Patient", "p-mid", 1, resource.StatusActive, now.AddDate(0, 0, -10))
	seedVersion(t, repo, "Patient", "p-new", 1, resource.StatusActive, now.AddDate(0, 0, -1))

	doc, meta, err := exp.Export(context.Background(), "tenant1", bundle.Query{
		Type:       "Patient",
		LastPeriod: "30d",
	})
	require.NoError(t, err)
	require.Equal(t, 2, meta.Count)
	require.Equal(t, []string{"p-new", "p-mid"}, entryIDs(t, doc), "most recent first")
}

func TestExporter_ResultCap(t *testing.T) {
	repo, exp := newExportHarness(t)
	now := time.Now()

	for i := 1; i <= 5; i++ {
		seedVersion(t, repo, "Patient", fmt.Sprintf("p%d", i), 1, resource.StatusActive, now.Add(-time.Duration(i)*time.Hour))
	}

	doc, meta, err := exp.Export(context.Background(), "tenant1", bundle.Query{
		Type:         "Patient",
		MaxResources: 2,
	})
	require.NoError(t, err)
	require.Equal(t, 2, meta.Count)
	require.Equal(t, []string{"p1", "p2"}, entryIDs(t, doc), "cap keeps the most recently updated")
}

func TestExporter_InvalidQuery(t *testing.T) {
	_, exp := newExportHarness(t)
	start := time.Now()
	end := start.AddDate(0, 0, -1)

	cases := map[string]bundle.Query{
		"missing type":  {},
		"bad period":    {Type: "Patient", LastPeriod: "soon"},
		"zero period":   {Type: "Patient", LastPeriod: "0d"},
		"unknown param": {Type: "Patient", Params: map[string]string{"birthdate": "1990"}},
		"inverted window": {
			Type:  "Patient",
			Start: &start,
			End:   &end,
		},
	}

	for name, q := range cases {
		_, _, err := exp.Export(context.Background(), "tenant1", q)
		require.ErrorIs(t, err, bundle.ErrInvalidQuery, name)
	}
}

func TestExporter_EmptyResultIsNotAnError(t *testing.T) {
	_, exp := newExportHarness(t)

	doc, meta, err := exp.Export(context.Background(), "tenant1", bundle.Query{Type: "Patient"})
	require.NoError(t, err)
	require.Equal(t, 0, meta.Count)
	require.Equal(t, "Bundle", doc.StringAt("resourceType"))
	require.Equal(t, "collection", doc.StringAt("type"))
}

func TestExporter_HistoryUnion(t *testing.T) {
	repo, exp := newExportHarness(t)
	now := time.Now()

	seedVersion(t, repo, "Patient", "p1", 1, resource.StatusActive, now.Add(-3*time.Hour))
	seedVersion(t, repo, "Patient", "p1", 2, resource.StatusActive, now.Add(-2*time.Hour))
	seedVersion(t, repo, "Patient", "p1", 3, resource.StatusActive, now.Add(-time.Hour))

	doc, meta, err := exp.Export(context.Background(), "tenant1", bundle.Query{
		Type:           "Patient",
		IncludeHistory: true,
		MaxVersions:    2,
	})
	require.NoError(t, err)
	require.Equal(t, 3, meta.Count, "current plus two older versions")

	var tags []string
	for _, el := range doc.ListAt("entry") {
		tags = append(tags, el.StringAt("resource", "versionTag"))
	}
	require.Equal(t, []string{"v3", "v2", "v1"}, tags)
}

func TestExporter_HistoryDoesNotCountAgainstCap(t *testing.T) {
	repo, exp := newExportHarness(t)
	now := time.Now()

	seedVersion(t, repo, "Patient", "p1", 1, resource.StatusActive, now.Add(-4*time.Hour))
	seedVersion(t, repo, "Patient", "p1", 2, resource.StatusActive, now.Add(-2*time.Hour))
	seedVersion(t, repo, "Patient", "p2", 1, resource.StatusActive, now.Add(-time.Hour))

	_, meta, err := exp.Export(context.Background(), "tenant1", bundle.Query{
		Type:           "Patient",
		MaxResources:   2,
		IncludeHistory: true,
		MaxVersions:    5,
	})
	require.NoError(t, err)
	require.Equal(t, 3, meta.Count, "two current resources plus p1's older version")
}

func TestExporter_DeletedExcludedByDefault(t *testing.T) {
	repo, exp := newExportHarness(t)
	now := time.Now()

	seedVersion(t, repo, "Patient", "p1", 1, resource.StatusActive, now.Add(-2*time.Hour))
	seedVersion(t, repo, "Patient", "p1", 2, resource.StatusDeleted, now.Add(-time.Hour))
	seedVersion(t, repo, "Patient", "p2", 1, resource.StatusActive, now.Add(-time.Hour))

	doc, _, err := exp.Export(context.Background(), "tenant1", bundle.Query{Type: "Patient"})
	require.NoError(t, err)
	require.Equal(t, []string{"p2"}, entryIDs(t, doc))

	doc, _, err = exp.Export(context.Background(), "tenant1", bundle.Query{
		Type:           "Patient",
		IncludeDeleted: true,
	})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"p1", "p2"}, entryIDs(t, doc))
}

func TestExporter_SearchParamFilter(t *testing.T) {
	repo, exp := newExportHarness(t)
	now := time.Now()
	ctx := context.Background()

	err := repo.Insert(ctx, &resource.Version{
		TenantID: "tenant1", Type: "Observation", ID: "o1", VersionID: 1,
		Status:      resource.StatusActive,
		Document:    resource.Document{"resourceType": "Observation", "id": "o1"},
		Search:      resource.SearchFields{Code: "http://loinc.org|8867-4"},
		LastUpdated: now,
	})
	require.NoError(t, err)
	err = repo.Insert(ctx, &resource.Version{
		TenantID: "tenant1", Type: "Observation", ID: "o2", VersionID: 1,
		Status:      resource.StatusActive,
		Document:    resource.Document{"resourceType": "Observation", "id": "o2"},
		Search:      resource.SearchFields{Code: "http://loinc.org|2345-7"},
		LastUpdated: now,
	})
	require.NoError(t, err)

	doc, meta, err := exp.Export(ctx, "tenant1", bundle.Query{
		Type:   "Observation",
		Params: map[string]string{"code": "http://loinc.org|8867-4"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, meta.Count)
	require.Equal(t, []string{"o1"}, entryIDs(t, doc))
}

func TestExporter_Metadata(t *testing.T) {
	repo, exp := newExportHarness(t)
	now := time.Now()

	seedVersion(t, repo, "Patient", "p1", 1, resource.StatusActive, now)
	seedVersion(t, repo, "Patient", "p2", 1, resource.StatusActive, now)

	_, meta, err := exp.Export(context.Background(), "tenant1", bundle.Query{Type: "Patient"})
	require.NoError(t, err)
	require.Equal(t, 2, meta.Count)
	require.Equal(t, map[string]int{"Patient": 2}, meta.ByType)
	require.Positive(t, meta.Bytes)
	require.False(t, meta.GeneratedAt.IsZero())
}
