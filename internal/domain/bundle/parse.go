package bundle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/medforge/clindocs/internal/domain/reference"
	"github.com/medforge/clindocs/internal/domain/resource"
	"github.com/medforge/clindocs/internal/schema"
)

type rawBundle struct {
	ResourceType string     `json:"resourceType"`
	Type         string     `json:"type"`
	Entries      []rawEntry `json:"entry"`
}

type rawEntry struct {
	Resource map[string]any `json:"resource"`
	Request  *rawRequest    `json:"request"`
}

type rawRequest struct {
	Method string `json:"method"`
	URL    string `json:"url"`
}

// Parse validates a raw bundle payload and decodes it into operations. The
// operation kind defaults to create when no request method is given.
// References are extracted per entry via the type registry.
func Parse(validator *schema.Validator, raw []byte) ([]Operation, error) {
	if err := validator.ValidateBundle(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBundle, err)
	}

	var b rawBundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBundle, err)
	}

	ops := make([]Operation, 0, len(b.Entries))
	for _, entry := range b.Entries {
		op := Operation{Kind: resource.OperationCreate}
		if entry.Request != nil {
			switch entry.Request.Method {
			case "PUT":
				op.Kind = resource.OperationUpdate
			case "DELETE":
				op.Kind = resource.OperationDelete
			}
			if entry.Request.URL != "" {
				if t, id, ok := splitTypeID(entry.Request.URL); ok {
					op.Type, op.ID = t, id
				}
			}
		}
		if entry.Resource != nil {
			doc := resource.Document(entry.Resource)
			op.Document = doc
			if op.Type == "" {
				op.Type = doc.ResourceType()
			}
			if op.ID == "" {
				op.ID = doc.ID()
			}
			op.References = reference.Extract(op.Type, doc)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// splitTypeID parses a request URL of the form "Type" or "Type/id".
func splitTypeID(url string) (string, string, bool) {
	url = strings.TrimPrefix(url, "/")
	if url == "" {
		return "", "", false
	}
	parts := strings.SplitN(url, "/", 2)
	if len(parts) == 1 {
		return parts[0], "", true
	}
	return parts[0], parts[1], true
}
