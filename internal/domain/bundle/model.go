package bundle

import (
	"time"

	"github.com/medforge/clindocs/internal/domain/reference"
	"github.com/medforge/clindocs/internal/domain/resource"
)

// Operation is one parsed bundle entry, ready for ordering and dispatch.
type Operation struct {
	Kind     resource.Operation
	Type     string
	ID       string // bundle-local id; empty for id-less creates
	FinalID  string // id the store will end up with, assigned pre-dispatch
	Document resource.Document
	// References are the declared references extracted from the document.
	References []reference.Reference
}

// OutcomeStatus is the per-entry result of an import.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailed  OutcomeStatus = "failed"
)

// Per-entry failure classification codes.
const (
	CodeInvalidReferences = "INVALID_REFERENCES"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeParseError        = "PARSE_ERROR"
	CodeStoreError        = "STORE_ERROR"
)

// EntryOutcome is the result of one bundle entry.
type EntryOutcome struct {
	ResourceType string        `json:"resource_type"`
	OriginalID   string        `json:"original_id,omitempty"`
	FinalID      string        `json:"final_id,omitempty"`
	Status       OutcomeStatus `json:"status"`
	ErrorCode    string        `json:"error_code,omitempty"`
	Message      string        `json:"message,omitempty"`
}

// ImportJob is the aggregate result of one bundle import. It is returned to
// the caller and logged, never versioned.
type ImportJob struct {
	ID        string         `json:"job_id"`
	Outcomes  []EntryOutcome `json:"outcomes"`
	Processed int            `json:"processed"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
}

// Metadata describes an exported bundle.
type Metadata struct {
	Count       int            `json:"count"`
	ByType      map[string]int `json:"by_type"`
	GeneratedAt time.Time      `json:"generated_at"`
	Duration    time.Duration  `json:"duration"`
	Bytes       int            `json:"bytes"`
}
