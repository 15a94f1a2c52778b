package resource

import "time"

// Status marks whether a version represents live content or a soft delete.
type Status string

const (
	StatusActive  Status = "active"
	StatusDeleted Status = "deleted"
)

// Operation is the write kind that produced a version.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Document is the decoded JSON content of a clinical resource.
type Document map[string]any

// ResourceType returns the document's declared type, or "".
func (d Document) ResourceType() string {
	s, _ := d["resourceType"].(string)
	return s
}

// ID returns the document's declared id, or "".
func (d Document) ID() string {
	s, _ := d["id"].(string)
	return s
}

// StringAt walks nested objects along path and returns the string value at
// the end, or "" if any step is missing or not an object.
func (d Document) StringAt(path ...string) string {
	var cur any = map[string]any(d)
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = m[key]
	}
	s, _ := cur.(string)
	return s
}

// ListAt returns the object elements of the array at path. Non-object
// elements are skipped.
func (d Document) ListAt(path ...string) []Document {
	var cur any = map[string]any(d)
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[key]
	}
	arr, ok := cur.([]any)
	if !ok {
		return nil
	}
	docs := make([]Document, 0, len(arr))
	for _, el := range arr {
		if m, ok := el.(map[string]any); ok {
			docs = append(docs, Document(m))
		}
	}
	return docs
}

// StringsAt returns the string elements of the array at path.
func (d Document) StringsAt(path ...string) []string {
	var cur any = map[string]any(d)
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[key]
	}
	arr, ok := cur.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, el := range arr {
		if s, ok := el.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// SearchFields is the projected, queryable summary of a document. It is
// derived state, never authoritative.
type SearchFields struct {
	Identifier string `json:"identifier,omitempty"`
	Code       string `json:"code,omitempty"`
	Subject    string `json:"subject,omitempty"`
	Name       string `json:"name,omitempty"`
}

// Version is one immutable row in a resource's version chain. The chain for
// a (tenant, type, id) key is append-only and gapless, starting at 1.
type Version struct {
	TenantID       string       `json:"tenant_id"`
	Type           string       `json:"resource_type"`
	ID             string       `json:"resource_id"`
	VersionID      int64        `json:"version_id"`
	Status         Status       `json:"status"`
	Document       Document     `json:"document"`
	Search         SearchFields `json:"search,omitempty"`
	Tags           []string     `json:"tags,omitempty"`
	SecurityLabels []string     `json:"security_labels,omitempty"`
	LastUpdated    time.Time    `json:"last_updated"`
	DeletedAt      *time.Time   `json:"deleted_at,omitempty"`
	DeletedBy      *string      `json:"deleted_by,omitempty"`
}

// InferOperation reports the write that produced a version: the first
// version is a create, a deleted version is a delete, anything else an
// update.
func InferOperation(v *Version) Operation {
	switch {
	case v.Status == StatusDeleted:
		return OperationDelete
	case v.VersionID == 1:
		return OperationCreate
	default:
		return OperationUpdate
	}
}
