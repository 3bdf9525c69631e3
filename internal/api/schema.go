package api

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

type rawJSON = json.RawMessage

// SolutionResponseSchema describes what the diff engine needs from a
// generate-solution response. Extra fields are allowed.
const SolutionResponseSchema = `{
  "type": "object",
  "required": ["solution"],
  "properties": {
    "solution": {
      "type": "object",
      "required": ["filesChanged"],
      "properties": {
        "analysis": {"type": "string"},
        "proposedSolution": {"type": "string"},
        "confidence": {"type": "number"},
        "aiModel": {"type": "string"},
        "filesChanged": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["filename", "action"],
            "properties": {
              "filename": {"type": "string", "minLength": 1},
              "action": {"enum": ["create", "modify", "delete"]},
              "originalContent": {"type": ["string", "null"]},
              "content": {"type": ["string", "null"]}
            }
          }
        }
      }
    },
    "credits": {"type": ["object", "number", "null"]}
  }
}`

var solutionSchemaLoader = gojsonschema.NewStringLoader(SolutionResponseSchema)

// SchemaError lists every violation found in a response body.
type SchemaError struct {
	Errors []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%v: %s", ErrMalformedResponse, strings.Join(e.Errors, "; "))
}

func (e *SchemaError) Unwrap() error {
	return ErrMalformedResponse
}

// decodeValidated validates raw against schema and then decodes it into out.
func decodeValidated(raw rawJSON, schema string, out any) error {
	loader := solutionSchemaLoader
	if schema != SolutionResponseSchema {
		loader = gojsonschema.NewStringLoader(schema)
	}

	result, err := gojsonschema.Validate(loader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return &SchemaError{Errors: msgs}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
