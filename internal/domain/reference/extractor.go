// Package reference extracts and classifies the references a clinical
// document points at. Extraction never fails: unregistered types yield no
// references and malformed reference strings are dropped.
package reference

import (
	"regexp"
	"strings"

	"github.com/medforge/clindocs/internal/domain/resource"
)

// Kind classifies how a reference should be resolved.
type Kind string

const (
	// KindLocal is a "Type/id" reference expected to resolve within the
	// same bundle.
	KindLocal Kind = "local"
	// KindContained is a "#..." reference into the document itself; always
	// valid, never checked.
	KindContained Kind = "contained"
	// KindExternal is an absolute URL or URN; always valid, never checked.
	KindExternal Kind = "external"
)

// Reference is one classified reference string.
type Reference struct {
	Raw  string
	Kind Kind
	// Type and ID are set for local references only.
	Type string
	ID   string
}

// Key returns the "Type/id" form for local references.
func (r Reference) Key() string {
	return r.Type + "/" + r.ID
}

var localRef = regexp.MustCompile(`^[A-Za-z]+/[A-Za-z0-9\-\.]{1,64}$`)

// Classify parses a raw reference string. The second return is false for
// malformed strings, which callers silently drop.
func Classify(raw string) (Reference, bool) {
	switch {
	case raw == "":
		return Reference{}, false
	case strings.HasPrefix(raw, "#"):
		return Reference{Raw: raw, Kind: KindContained}, true
	case strings.Contains(raw, "://") || strings.HasPrefix(raw, "urn:"):
		return Reference{Raw: raw, Kind: KindExternal}, true
	case localRef.MatchString(raw):
		parts := strings.SplitN(raw, "/", 2)
		return Reference{Raw: raw, Kind: KindLocal, Type: parts[0], ID: parts[1]}, true
	default:
		return Reference{}, false
	}
}

// ExtractFunc gathers the raw reference strings of one resource type.
type ExtractFunc func(doc resource.Document) []string

var extractors = map[string]ExtractFunc{}

// Register installs the extraction function for a resource type, replacing
// any previous registration.
func Register(resourceType string, fn ExtractFunc) {
	extractors[resourceType] = fn
}

// Extract returns the classified references a document declares. Types
// without a registered extractor declare none.
func Extract(resourceType string, doc resource.Document) []Reference {
	fn, ok := extractors[resourceType]
	if !ok || doc == nil {
		return nil
	}
	var refs []Reference
	for _, raw := range fn(doc) {
		if ref, ok := Classify(raw); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

func refAt(doc resource.Document, path ...string) []string {
	if raw := doc.StringAt(append(path, "reference")...); raw != "" {
		return []string{raw}
	}
	return nil
}

func refsAt(doc resource.Document, path ...string) []string {
	var out []string
	for _, el := range doc.ListAt(path...) {
		if raw := el.StringAt("reference"); raw != "" {
			out = append(out, raw)
		}
	}
	return out
}

func collect(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func init() {
	Register("Patient", func(doc resource.Document) []string {
		return collect(
			refAt(doc, "managingOrganization"),
			refsAt(doc, "generalPractitioner"),
		)
	})
	Register("Encounter", func(doc resource.Document) []string {
		refs := collect(
			refAt(doc, "subject"),
			refAt(doc, "serviceProvider"),
		)
		for _, p := range doc.ListAt("participant") {
			refs = append(refs, p.StringAt("individual", "reference"))
		}
		return refs
	})
	Register("Observation", func(doc resource.Document) []string {
		return collect(
			refAt(doc, "subject"),
			refAt(doc, "encounter"),
			refsAt(doc, "performer"),
		)
	})
	Register("Condition", func(doc resource.Document) []string {
		return collect(
			refAt(doc, "subject"),
			refAt(doc, "encounter"),
		)
	})
	Register("Procedure", func(doc resource.Document) []string {
		refs := collect(
			refAt(doc, "subject"),
			refAt(doc, "encounter"),
		)
		for _, p := range doc.ListAt("performer") {
			refs = append(refs, p.StringAt("actor", "reference"))
		}
		return refs
	})
	Register("MedicationRequest", func(doc resource.Document) []string {
		return collect(
			refAt(doc, "subject"),
			refAt(doc, "encounter"),
			refAt(doc, "requester"),
		)
	})
	Register("AllergyIntolerance", func(doc resource.Document) []string {
		return collect(
			refAt(doc, "patient"),
			refAt(doc, "encounter"),
		)
	})
	Register("DiagnosticReport", func(doc resource.Document) []string {
		return collect(
			refAt(doc, "subject"),
			refAt(doc, "encounter"),
			refsAt(doc, "result"),
		)
	})
	Register("DocumentReference", func(doc resource.Document) []string {
		return collect(
			refAt(doc, "subject"),
			refsAt(doc, "author"),
		)
	})
}
