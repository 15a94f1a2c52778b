package bundle

import "sort"

// Type priority for dispatch ordering: identity and foundation resources
// before encounter-level resources, before clinical events, before
// document-level resources. Unknown types sort last. This is a heuristic,
// not a dependency-graph sort; it cannot untangle same-type or
// reverse-priority chains within one bundle.
const (
	priorityFoundation = iota
	priorityEncounter
	priorityEvent
	priorityDocument
	priorityUnknown
)

var typePriority = map[string]int{
	"Patient":       priorityFoundation,
	"Organization":  priorityFoundation,
	"Practitioner":  priorityFoundation,
	"Location":      priorityFoundation,
	"RelatedPerson": priorityFoundation,

	"Encounter":     priorityEncounter,
	"EpisodeOfCare": priorityEncounter,

	"Observation":        priorityEvent,
	"Condition":          priorityEvent,
	"Procedure":          priorityEvent,
	"MedicationRequest":  priorityEvent,
	"AllergyIntolerance": priorityEvent,
	"Immunization":       priorityEvent,
	"DiagnosticReport":   priorityEvent,

	"DocumentReference": priorityDocument,
	"Composition":       priorityDocument,
}

func priorityOf(resourceType string) int {
	if p, ok := typePriority[resourceType]; ok {
		return p
	}
	return priorityUnknown
}

// Order sorts operations by type priority, preserving the original order
// within each priority class.
func Order(ops []Operation) []Operation {
	ordered := make([]Operation, len(ops))
	copy(ordered, ops)
	sort.SliceStable(ordered, func(i, j int) bool {
		return priorityOf(ordered[i].Type) < priorityOf(ordered[j].Type)
	})
	return ordered
}
