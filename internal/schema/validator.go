// Package schema provides structural validation of raw payloads before the
// domain layer interprets them. Structural failure is distinct from
// business-rule failure: a payload that fails here has nothing to partially
// apply.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalid indicates a payload that does not match the expected structure.
var ErrInvalid = errors.New("payload failed structural validation")

const bundleSchema = `{
	"type": "object",
	"required": ["resourceType", "entry"],
	"properties": {
		"resourceType": {"const": "Bundle"},
		"type": {"type": "string"},
		"entry": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"resource": {
						"type": "object",
						"required": ["resourceType"],
						"properties": {
							"resourceType": {"type": "string", "minLength": 1},
							"id": {"type": "string"}
						}
					},
					"request": {
						"type": "object",
						"properties": {
							"method": {"enum": ["POST", "PUT", "DELETE"]},
							"url": {"type": "string"}
						}
					}
				},
				"anyOf": [
					{"required": ["resource"]},
					{"required": ["request"]}
				]
			}
		}
	}
}`

const resourceSchema = `{
	"type": "object",
	"required": ["resourceType"],
	"properties": {
		"resourceType": {"type": "string", "minLength": 1},
		"id": {"type": "string"}
	}
}`

// Validator checks raw payloads against the embedded JSON schemas.
type Validator struct {
	bundle   *gojsonschema.Schema
	resource *gojsonschema.Schema
}

// NewValidator compiles the embedded schemas.
func NewValidator() (*Validator, error) {
	bundle, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(bundleSchema))
	if err != nil {
		return nil, fmt.Errorf("compiling bundle schema: %w", err)
	}
	res, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(resourceSchema))
	if err != nil {
		return nil, fmt.Errorf("compiling resource schema: %w", err)
	}
	return &Validator{bundle: bundle, resource: res}, nil
}

// ValidateBundle checks a raw bundle payload. Invalid JSON and schema
// violations both fail with ErrInvalid.
func (v *Validator) ValidateBundle(raw []byte) error {
	return v.validate(v.bundle, raw)
}

// ValidateResource checks a raw standalone resource document.
func (v *Validator) ValidateResource(raw []byte) error {
	return v.validate(v.resource, raw)
}

func (v *Validator) validate(schema *gojsonschema.Schema, raw []byte) error {
	if !json.Valid(raw) {
		return fmt.Errorf("%w: not valid JSON", ErrInvalid)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(issues, "; "))
	}
	return nil
}
