package estimate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const inputSchemaURL = "https://schemas.nordflytt.local/estimate/input.schema.json"

// inputSchema constrains the shape of an EstimationInput document.
const inputSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["volume", "teamSize", "distance"],
  "properties": {
    "volume":          {"type": "number", "exclusiveMinimum": 0},
    "teamSize":        {"type": "integer", "minimum": 1},
    "distance":        {"type": "number", "minimum": 0},
    "category":        {"type": "string", "maxLength": 64},
    "propertyType":    {"type": "string", "maxLength": 64},
    "fromFloor":       {"type": "integer", "minimum": -5, "maximum": 100},
    "toFloor":         {"type": "integer", "minimum": -5, "maximum": 100},
    "elevatorFrom":    {"type": "boolean"},
    "elevatorTo":      {"type": "boolean"},
    "roomBreakdown":   {"type": "object", "additionalProperties": {"type": "integer", "minimum": 0}},
    "specialItems":    {"type": "array", "items": {"type": "string"}},
    "parkingDistance": {"type": "number", "minimum": 0},
    "customerName":    {"type": "string"},
    "customerEmail":   {"type": "string"},
    "customerPhone":   {"type": "string"},
    "fromAddress":     {"type": "string"},
    "toAddress":       {"type": "string"}
  }
}`

var compiledInputSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(inputSchemaURL, strings.NewReader(inputSchema)); err != nil {
		return nil, fmt.Errorf("input schema load failed: %w", err)
	}
	schema, err := c.Compile(inputSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("input schema compile failed: %w", err)
	}
	return schema, nil
})

// FieldError describes one rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when an input is malformed or incomplete.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Field == "" {
			parts = append(parts, f.Message)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "invalid estimation input: " + strings.Join(parts, "; ")
}

// IsValidationError reports whether err is (or wraps) a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Validate checks that in carries the required fields with sane values.
func Validate(in EstimationInput) error {
	var nonFinite []FieldError
	if !finite(in.Volume) {
		nonFinite = append(nonFinite, FieldError{Field: "volume", Message: "must be a finite number"})
	}
	if !finite(in.Distance) {
		nonFinite = append(nonFinite, FieldError{Field: "distance", Message: "must be a finite number"})
	}
	if in.ParkingDistance != nil && !finite(*in.ParkingDistance) {
		nonFinite = append(nonFinite, FieldError{Field: "parkingDistance", Message: "must be a finite number"})
	}
	if len(nonFinite) > 0 {
		return &ValidationError{Fields: nonFinite}
	}

	data, err := json.Marshal(in)
	if err != nil {
		return &ValidationError{Fields: []FieldError{{Message: err.Error()}}}
	}
	return validateDocument(data)
}

// ParseInput validates a raw JSON document and decodes it.
// Unlike Validate, it detects required fields that are absent rather than zero.
func ParseInput(data []byte) (EstimationInput, error) {
	if err := validateDocument(data); err != nil {
		return EstimationInput{}, err
	}
	var in EstimationInput
	if err := json.Unmarshal(data, &in); err != nil {
		return EstimationInput{}, &ValidationError{Fields: []FieldError{{Message: err.Error()}}}
	}
	return in, nil
}

func validateDocument(data []byte) error {
	schema, err := compiledInputSchema()
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return &ValidationError{Fields: []FieldError{{Message: fmt.Sprintf("malformed JSON: %v", err)}}}
	}

	if err := schema.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return &ValidationError{Fields: flattenSchemaErrors(verr)}
		}
		return &ValidationError{Fields: []FieldError{{Message: err.Error()}}}
	}
	return nil
}

// flattenSchemaErrors collects the leaf causes of a schema failure.
func flattenSchemaErrors(verr *jsonschema.ValidationError) []FieldError {
	var out []FieldError
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			out = append(out, FieldError{
				Field:   strings.TrimPrefix(e.InstanceLocation, "/"),
				Message: e.Message,
			})
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(verr)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
