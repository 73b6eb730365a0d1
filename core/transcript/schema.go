package transcript

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/opal-lang/grnconv/core/invariant"
	"github.com/opal-lang/grnconv/core/value"
)

const versionedSchemaURL = "grnconv://response/versioned.json"

// versionedSchema describes command_version 3 responses.
const versionedSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["header", "body"],
  "properties": {
    "header": {
      "type": "object",
      "required": ["return_code", "start_time", "elapsed_time"],
      "properties": {
        "return_code": {"type": "integer"},
        "start_time": {"type": "number"},
        "elapsed_time": {"type": "number"},
        "error": {
          "type": "object",
          "required": ["message"],
          "properties": {
            "message": {"type": "string"},
            "function": {"type": "string"},
            "file": {"type": "string"},
            "line": {"type": "integer"}
          }
        }
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func versioned() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(versionedSchemaURL, strings.NewReader(versionedSchema)); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = compiler.Compile(versionedSchemaURL)
	})
	return compiledSchema, schemaErr
}

func validateVersioned(obj *value.Object) error {
	schema, err := versioned()
	invariant.ExpectNoError(err, "compiling the response schema")
	if err := schema.Validate(value.Plain(obj)); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
