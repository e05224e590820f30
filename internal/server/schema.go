package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// toolSchemas compiles the input schema of every tool once per process.
var toolSchemas = sync.OnceValues(compileToolSchemas)

func compileToolSchemas() (map[string]*jsonschema.Schema, error) {
	schemas := make(map[string]*jsonschema.Schema)
	for _, tool := range GetToolDefinitions() {
		schema, err := compileSchema(tool.Name+".json", tool.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", tool.Name, err)
		}
		schemas[tool.Name] = schema
	}
	return schemas, nil
}

func compileSchema(name string, raw map[string]interface{}) (*jsonschema.Schema, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(string(data))); err != nil {
		return nil, err
	}
	return compiler.Compile(name)
}

// validateArguments checks tool arguments against the tool's input schema.
// Unknown tools pass; dispatch reports them.
func validateArguments(name string, args json.RawMessage) error {
	schemas, err := toolSchemas()
	if err != nil {
		return err
	}
	schema, ok := schemas[name]
	if !ok {
		return nil
	}

	if len(bytes.TrimSpace(args)) == 0 || string(bytes.TrimSpace(args)) == "null" {
		args = json.RawMessage(`{}`)
	}
	var doc interface{}
	if err := json.Unmarshal(args, &doc); err != nil {
		return fmt.Errorf("arguments: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("arguments: %w", err)
	}
	return nil
}
