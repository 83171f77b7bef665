package tariff

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// documentSchema describes the JSON:API envelope the compiler relies on:
// typed resources with string ids, relationship linkage and an optional
// included side-table.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "definitions": {
    "identifier": {
      "type": "object",
      "required": ["type", "id"],
      "properties": {
        "type": {"type": "string"},
        "id": {"type": "string"}
      }
    },
    "relationship": {
      "type": "object",
      "properties": {
        "data": {
          "oneOf": [
            {"type": "null"},
            {"$ref": "#/definitions/identifier"},
            {"type": "array", "items": {"$ref": "#/definitions/identifier"}}
          ]
        }
      }
    },
    "resource": {
      "type": "object",
      "required": ["type", "id"],
      "properties": {
        "type": {"type": "string"},
        "id": {"type": "string"},
        "attributes": {"type": "object"},
        "relationships": {
          "type": "object",
          "additionalProperties": {"$ref": "#/definitions/relationship"}
        }
      }
    }
  },
  "type": "object",
  "required": ["data"],
  "properties": {
    "data": {
      "oneOf": [
        {"type": "null"},
        {"$ref": "#/definitions/resource"},
        {"type": "array", "items": {"$ref": "#/definitions/resource"}}
      ]
    },
    "included": {
      "type": "array",
      "items": {"$ref": "#/definitions/resource"}
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func loadDocumentSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("document.json", strings.NewReader(documentSchema)); err != nil {
			schemaErr = fmt.Errorf("failed to load document schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile("document.json")
		if schemaErr != nil {
			schemaErr = fmt.Errorf("failed to compile document schema: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// ValidateDocument checks that body is a well-formed JSON:API document.
func ValidateDocument(body []byte) error {
	schema, err := loadDocumentSchema()
	if err != nil {
		return err
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("failed to decode document for validation: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return nil
}
