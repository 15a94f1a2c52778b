package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/medforge/clindocs/internal/domain/resource"
	"github.com/medforge/clindocs/internal/repository"
)

// ResourceRepository implements repository.ResourceRepository for SQLite
type ResourceRepository struct {
	db *DB
}

// NewResourceRepository creates a new ResourceRepository
func NewResourceRepository(db *DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

const versionColumns = `
	tenant_id, resource_type, resource_id, version_id, status, document,
	search_identifier, search_code, search_subject, search_name,
	tags, security_labels, last_updated, deleted_at, deleted_by
`

// Insert appends one version row. The primary key on
// (tenant, type, id, version) rejects the loser of a concurrent write.
func (r *ResourceRepository) Insert(ctx context.Context, v *resource.Version) error {
	document, err := json.Marshal(v.Document)
	if err != nil {
		return fmt.Errorf("failed to serialize document: %w", err)
	}
	tags, err := json.Marshal(stringsOrEmpty(v.Tags))
	if err != nil {
		return fmt.Errorf("failed to serialize tags: %w", err)
	}
	labels, err := json.Marshal(stringsOrEmpty(v.SecurityLabels))
	if err != nil {
		return fmt.Errorf("failed to serialize security labels: %w", err)
	}

	query := `
		INSERT INTO resource_versions (` + versionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		v.TenantID,
		v.Type,
		v.ID,
		v.VersionID,
		v.Status,
		string(document),
		v.Search.Identifier,
		v.Search.Code,
		v.Search.Subject,
		v.Search.Name,
		string(tags),
		string(labels),
		v.LastUpdated,
		v.DeletedAt,
		v.DeletedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to insert version: %w", err)
	}

	return nil
}

// Latest returns the highest version row for the key regardless of status
func (r *ResourceRepository) Latest(ctx context.Context, tenantID, resourceType, id string) (*resource.Version, error) {
	query := `
		SELECT ` + versionColumns + `
		FROM resource_versions
		WHERE tenant_id = ? AND resource_type = ? AND resource_id = ?
		ORDER BY version_id DESC
		LIMIT 1
	`

	v, err := scanVersion(r.db.QueryRowContext(ctx, query, tenantID, resourceType, id))
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest version: %w", err)
	}
	return v, nil
}

// Search returns current versions matching the options, ordered by
// last_updated descending with ties broken by resource id ascending.
// Deleted keys are excluded unless IncludeDeleted is set.
func (r *ResourceRepository) Search(ctx context.Context, tenantID, resourceType string, opts resource.SearchOptions) ([]resource.Version, error) {
	query := `
		SELECT ` + versionColumns + `
		FROM resource_versions v
		WHERE v.tenant_id = ? AND v.resource_type = ?
		AND v.version_id = (
			SELECT MAX(version_id) FROM resource_versions
			WHERE tenant_id = v.tenant_id
			  AND resource_type = v.resource_type
			  AND resource_id = v.resource_id
		)
	`

	args := []interface{}{tenantID, resourceType}
	conditions := []string{}

	if !opts.IncludeDeleted {
		conditions = append(conditions, "v.status = 'active'")
	}

	if len(opts.IDs) > 0 {
		placeholders := make([]string, len(opts.IDs))
		for i, id := range opts.IDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		conditions = append(conditions, fmt.Sprintf("v.resource_id IN (%s)", strings.Join(placeholders, ",")))
	}

	for param, value := range opts.Filters {
		switch param {
		case "identifier":
			conditions = append(conditions, "v.search_identifier = ?")
			args = append(args, value)
		case "code":
			conditions = append(conditions, "v.search_code = ?")
			args = append(args, value)
		case "name":
			conditions = append(conditions, "v.search_name = ?")
			args = append(args, value)
		case "subject":
			// Raw-document substring fallback for documents whose subject
			// was not projected.
			conditions = append(conditions, "(v.search_subject = ? OR v.document LIKE ?)")
			args = append(args, value, "%"+value+"%")
		}
	}

	if opts.Since != nil {
		conditions = append(conditions, "v.last_updated >= ?")
		args = append(args, *opts.Since)
	}
	if opts.Until != nil {
		conditions = append(conditions, "v.last_updated < ?")
		args = append(args, *opts.Until)
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY v.last_updated DESC, v.resource_id ASC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search versions: %w", err)
	}
	defer rows.Close()

	return collectVersions(rows)
}

// History returns up to limit versions for the key, newest first
func (r *ResourceRepository) History(ctx context.Context, tenantID, resourceType, id string, limit int) ([]resource.Version, error) {
	query := `
		SELECT ` + versionColumns + `
		FROM resource_versions
		WHERE tenant_id = ? AND resource_type = ? AND resource_id = ?
		ORDER BY version_id DESC
	`

	args := []interface{}{tenantID, resourceType, id}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	return collectVersions(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVersion(row rowScanner) (*resource.Version, error) {
	var v resource.Version
	var document, tags, labels string
	var deletedAt sql.NullTime
	var deletedBy sql.NullString

	err := row.Scan(
		&v.TenantID,
		&v.Type,
		&v.ID,
		&v.VersionID,
		&v.Status,
		&document,
		&v.Search.Identifier,
		&v.Search.Code,
		&v.Search.Subject,
		&v.Search.Name,
		&tags,
		&labels,
		&v.LastUpdated,
		&deletedAt,
		&deletedBy,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(document), &v.Document); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &v.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	if err := json.Unmarshal([]byte(labels), &v.SecurityLabels); err != nil {
		return nil, fmt.Errorf("failed to decode security labels: %w", err)
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		v.DeletedAt = &t
	}
	if deletedBy.Valid {
		s := deletedBy.String
		v.DeletedBy = &s
	}

	return &v, nil
}

func collectVersions(rows *sql.Rows) ([]resource.Version, error) {
	var versions []resource.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating version rows: %w", err)
	}
	return versions, nil
}

func stringsOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
