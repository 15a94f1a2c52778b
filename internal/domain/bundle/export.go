package bundle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/medforge/clindocs/internal/domain/resource"
	"github.com/medforge/clindocs/internal/metrics"
)

// ResourceReader is the slice of the resource repository the exporter reads.
type ResourceReader interface {
	Search(ctx context.Context, tenantID, resourceType string, opts resource.SearchOptions) ([]resource.Version, error)
	History(ctx context.Context, tenantID, resourceType, id string, limit int) ([]resource.Version, error)
}

// Query describes one bundle export.
type Query struct {
	// Type is required; search indexes are type-scoped.
	Type string
	// IDs optionally restricts the export to explicit resources.
	IDs []string
	// IncludeDeleted admits keys whose latest version is a delete.
	IncludeDeleted bool
	// Start/End bound lastUpdated. LastPeriod ("30d", "4w", "6m", "1y")
	// resolves to an absolute Start relative to now and overrides it.
	Start      *time.Time
	End        *time.Time
	LastPeriod string
	// Params are search-parameter predicates over the projected fields.
	Params map[string]string
	// MaxResources caps the current-version slice; excess silently
	// truncates. 0 takes the default cap.
	MaxResources int
	// IncludeHistory unions up to MaxVersions older versions per matched
	// resource into the output. History rows do not count against
	// MaxResources, so total output may exceed it.
	IncludeHistory bool
	MaxVersions    int
	// BundleType labels the output bundle; defaults to "collection".
	BundleType string
}

// DefaultMaxResources caps the current-version slice when the query gives
// no explicit cap.
const DefaultMaxResources = 1000

var searchParams = map[string]struct{}{
	"identifier": {},
	"code":       {},
	"subject":    {},
	"name":       {},
}

var periodPattern = regexp.MustCompile(`^(\d+)([dwmy])$`)

// Exporter serializes filtered store contents into a bundle.
type Exporter struct {
	resources    ResourceReader
	logger       *slog.Logger
	maxResources int
}

// NewExporter creates a bundle exporter. maxResources caps queries that give
// no explicit cap; 0 falls back to DefaultMaxResources.
func NewExporter(resources ResourceReader, logger *slog.Logger, maxResources int) *Exporter {
	return &Exporter{resources: resources, logger: logger, maxResources: maxResources}
}

// Export filters current versions, optionally unions bounded history, and
// wraps the stored documents in a bundle. Empty results are not an error;
// malformed filters are rejected before any store access.
func (e *Exporter) Export(ctx context.Context, tenantID string, q Query) (resource.Document, *Metadata, error) {
	start := time.Now()

	if q.Type == "" {
		return nil, nil, fmt.Errorf("%w: resource type is required", ErrInvalidQuery)
	}
	for key := range q.Params {
		if _, ok := searchParams[key]; !ok {
			return nil, nil, fmt.Errorf("%w: unknown search parameter %q", ErrInvalidQuery, key)
		}
	}

	since, until, err := resolveWindow(q, time.Now())
	if err != nil {
		return nil, nil, err
	}

	limit := q.MaxResources
	if limit <= 0 {
		limit = e.maxResources
	}
	if limit <= 0 {
		limit = DefaultMaxResources
	}

	current, err := e.resources.Search(ctx, tenantID, q.Type, resource.SearchOptions{
		IDs:            q.IDs,
		Filters:        q.Params,
		Since:          since,
		Until:          until,
		IncludeDeleted: q.IncludeDeleted,
		Limit:          limit,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("exporting resources: %w", err)
	}

	versions := current
	if q.IncludeHistory && q.MaxVersions > 0 {
		for _, v := range current {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
			older, err := e.history(ctx, tenantID, v, q.MaxVersions)
			if err != nil {
				return nil, nil, err
			}
			versions = append(versions, older...)
		}
	}

	bundleType := q.BundleType
	if bundleType == "" {
		bundleType = "collection"
	}

	entries := make([]any, 0, len(versions))
	byType := make(map[string]int)
	for _, v := range versions {
		entries = append(entries, map[string]any{"resource": map[string]any(v.Document)})
		byType[v.Type]++
	}
	doc := resource.Document{
		"resourceType": "Bundle",
		"type":         bundleType,
		"total":        len(entries),
		"entry":        entries,
	}

	serialized, err := json.Marshal(doc)
	if err != nil {
		return nil, nil, fmt.Errorf("serializing bundle: %w", err)
	}

	meta := &Metadata{
		Count:       len(entries),
		ByType:      byType,
		GeneratedAt: time.Now(),
		Duration:    time.Since(start),
		Bytes:       len(serialized),
	}
	metrics.ExportDuration.Observe(meta.Duration.Seconds())
	e.logger.Info("bundle export finished",
		"type", q.Type, "count", meta.Count, "bytes", meta.Bytes)
	return doc, meta, nil
}

// history returns up to max versions older than the given current version.
func (e *Exporter) history(ctx context.Context, tenantID string, v resource.Version, max int) ([]resource.Version, error) {
	all, err := e.resources.History(ctx, tenantID, v.Type, v.ID, max+1)
	if err != nil {
		return nil, fmt.Errorf("loading history for %s/%s: %w", v.Type, v.ID, err)
	}
	var older []resource.Version
	for _, h := range all {
		if h.VersionID < v.VersionID {
			older = append(older, h)
		}
		if len(older) == max {
			break
		}
	}
	return older, nil
}

func resolveWindow(q Query, now time.Time) (*time.Time, *time.Time, error) {
	since, until := q.Start, q.End

	if q.LastPeriod != "" {
		m := periodPattern.FindStringSubmatch(q.LastPeriod)
		if m == nil {
			return nil, nil, fmt.Errorf("%w: unparseable period %q", ErrInvalidQuery, q.LastPeriod)
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n == 0 {
			return nil, nil, fmt.Errorf("%w: unparseable period %q", ErrInvalidQuery, q.LastPeriod)
		}
		var start time.Time
		switch m[2] {
		case "d":
			start = now.AddDate(0, 0, -n)
		case "w":
			start = now.AddDate(0, 0, -7*n)
		case "m":
			start = now.AddDate(0, -n, 0)
		case "y":
			start = now.AddDate(-n, 0, 0)
		}
		since = &start
	}

	if since != nil && until != nil && since.After(*until) {
		return nil, nil, fmt.Errorf("%w: window start after end", ErrInvalidQuery)
	}
	return since, until, nil
}
