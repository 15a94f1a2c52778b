package bundle

import (
	"github.com/medforge/clindocs/internal/domain/reference"
	"github.com/medforge/clindocs/internal/domain/resource"
)

// KeySet collects the "Type/id" keys a batch introduces, post id-generation.
// Both the bundle-local ids (which documents reference) and the final store
// ids are included.
func KeySet(ops []Operation) map[string]struct{} {
	keys := make(map[string]struct{})
	for _, op := range ops {
		if op.Kind == resource.OperationDelete {
			continue
		}
		if op.ID != "" {
			keys[op.Type+"/"+op.ID] = struct{}{}
		}
		if op.FinalID != "" {
			keys[op.Type+"/"+op.FinalID] = struct{}{}
		}
	}
	return keys
}

// ValidateReferences flags create/update operations whose local references
// do not resolve within the batch key set. The result maps the operation
// index to its unresolved reference strings. Delete entries are never
// checked, and contained or external references always pass. References to
// resources outside the batch are not checked against the store.
func ValidateReferences(ops []Operation, keys map[string]struct{}) map[int][]string {
	unresolved := make(map[int][]string)
	for i, op := range ops {
		if op.Kind == resource.OperationDelete {
			continue
		}
		for _, ref := range op.References {
			if ref.Kind != reference.KindLocal {
				continue
			}
			if _, ok := keys[ref.Key()]; !ok {
				unresolved[i] = append(unresolved[i], ref.Raw)
			}
		}
	}
	return unresolved
}
