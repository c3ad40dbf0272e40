package validation

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"
)

// LoadSchema loads a JSON schema from a file
func LoadSchema(schemaPath string) (*gojsonschema.Schema, error) {
	schemaData, err := os.ReadFile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}

	schemaLoader := gojsonschema.NewBytesLoader(schemaData)
	schema, err := gojsonschema.NewSchema(schemaLoader)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	return schema, nil
}

// ValidateTask validates a task JSON string against a schema
func ValidateTask(taskJSON string, schema *gojsonschema.Schema) error {
	documentLoader := gojsonschema.NewStringLoader(taskJSON)
	result, err := schema.Validate(documentLoader)
	if err != nil {
		return fmt.Errorf("failed to validate: %w", err)
	}

	if !result.Valid() {
		var errors []string
		for _, desc := range result.Errors() {
			errors = append(errors, desc.String())
		}
		return fmt.Errorf("validation failed: %v", errors)
	}

	return nil
}

// ValidateAndParseTask validates a task JSON string against the schema at
// schemaPath and unmarshals it into a generic payload map.
func ValidateAndParseTask(taskJSON string, schemaPath string) (map[string]interface{}, error) {
	schema, err := LoadSchema(schemaPath)
	if err != nil {
		return nil, err
	}

	if err := ValidateTask(taskJSON, schema); err != nil {
		return nil, err
	}

	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(taskJSON), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return payload, nil
}
