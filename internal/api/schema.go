package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// extractTextSchema describes the POST /extract-text body.
// Unknown properties are tolerated.
var extractTextSchema = map[string]any{
	"type":     "object",
	"required": []string{"file_url"},
	"properties": map[string]any{
		"file_url":     map[string]any{"type": "string"},
		"song_id":      map[string]any{"type": []string{"string", "null"}},
		"content_type": map[string]any{"type": "string"},
	},
}

var extractTextValidator = mustCompileSchema("extract-text.json", extractTextSchema)

func mustCompileSchema(name string, schemaMap map[string]any) *jsonschema.Schema {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		panic(fmt.Sprintf("marshal schema %s: %v", name, err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", name, err))
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("compile schema %s: %v", name, err))
	}
	return schema
}

// validateBody checks raw JSON against schema. Malformed JSON yields a
// BAD_REQUEST error, a schema mismatch a VALIDATION_ERROR naming the
// first offending location.
func validateBody(schema *jsonschema.Schema, raw []byte) *APIError {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return NewBadRequestError("request body must be a JSON object", err)
	}
	err := schema.Validate(v)
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return NewBadRequestError("request body could not be validated", err)
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	field := strings.TrimPrefix(ve.InstanceLocation, "/")
	if field == "" {
		return NewValidationError("body", "request body: "+ve.Message)
	}
	return NewValidationError(field, field+": "+ve.Message)
}
