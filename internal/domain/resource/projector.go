package resource

import "strings"

// ProjectFunc maps a document onto its queryable summary fields.
type ProjectFunc func(doc Document) SearchFields

var projectors = map[string]ProjectFunc{}

// RegisterProjector installs the projection for a resource type, replacing
// any previous registration.
func RegisterProjector(resourceType string, fn ProjectFunc) {
	projectors[resourceType] = fn
}

// Project derives the search fields for a document. Types without a
// registered projection get the default identifier-only projection.
func Project(resourceType string, doc Document) SearchFields {
	if fn, ok := projectors[resourceType]; ok {
		return fn(doc)
	}
	return SearchFields{Identifier: firstIdentifier(doc)}
}

// ProjectMeta extracts tag and security label codes from the document's
// meta block.
func ProjectMeta(doc Document) (tags, securityLabels []string) {
	for _, t := range doc.ListAt("meta", "tag") {
		if code := t.StringAt("code"); code != "" {
			tags = append(tags, code)
		}
	}
	for _, s := range doc.ListAt("meta", "security") {
		if code := s.StringAt("code"); code != "" {
			securityLabels = append(securityLabels, code)
		}
	}
	return tags, securityLabels
}

func firstIdentifier(doc Document) string {
	for _, id := range doc.ListAt("identifier") {
		if v := id.StringAt("value"); v != "" {
			return v
		}
	}
	return ""
}

func firstCode(doc Document, path ...string) string {
	for _, coding := range doc.ListAt(append(path, "coding")...) {
		if c := coding.StringAt("code"); c != "" {
			return c
		}
	}
	return ""
}

func humanName(doc Document) string {
	for _, n := range doc.ListAt("name") {
		family := n.StringAt("family")
		given := strings.Join(n.StringsAt("given"), " ")
		full := strings.TrimSpace(given + " " + family)
		if full != "" {
			return full
		}
	}
	return ""
}

func projectPerson(doc Document) SearchFields {
	return SearchFields{
		Identifier: firstIdentifier(doc),
		Name:       humanName(doc),
	}
}

func projectNamedOrg(doc Document) SearchFields {
	return SearchFields{
		Identifier: firstIdentifier(doc),
		Name:       doc.StringAt("name"),
	}
}

func projectEvent(subjectField string) ProjectFunc {
	return func(doc Document) SearchFields {
		return SearchFields{
			Identifier: firstIdentifier(doc),
			Code:       firstCode(doc, "code"),
			Subject:    doc.StringAt(subjectField, "reference"),
		}
	}
}

func init() {
	RegisterProjector("Patient", projectPerson)
	RegisterProjector("Practitioner", projectPerson)
	RegisterProjector("RelatedPerson", projectPerson)
	RegisterProjector("Organization", projectNamedOrg)
	RegisterProjector("Location", projectNamedOrg)
	RegisterProjector("Encounter", func(doc Document) SearchFields {
		return SearchFields{
			Identifier: firstIdentifier(doc),
			Code:       doc.StringAt("class", "code"),
			Subject:    doc.StringAt("subject", "reference"),
		}
	})
	RegisterProjector("Observation", projectEvent("subject"))
	RegisterProjector("Condition", projectEvent("subject"))
	RegisterProjector("Procedure", projectEvent("subject"))
	RegisterProjector("DiagnosticReport", projectEvent("subject"))
	RegisterProjector("AllergyIntolerance", projectEvent("patient"))
	RegisterProjector("MedicationRequest", func(doc Document) SearchFields {
		return SearchFields{
			Identifier: firstIdentifier(doc),
			Code:       firstCode(doc, "medicationCodeableConcept"),
			Subject:    doc.StringAt("subject", "reference"),
		}
	})
	RegisterProjector("DocumentReference", func(doc Document) SearchFields {
		return SearchFields{
			Identifier: firstIdentifier(doc),
			Code:       firstCode(doc, "type"),
			Subject:    doc.StringAt("subject", "reference"),
		}
	})
}
