package shortcuts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// FormatVersion is the current exchange file version.
const FormatVersion = 1

// exchangeFile is the shared shape of YAML and JSON shortcut files.
type exchangeFile struct {
	Version   int        `json:"version" yaml:"version"`
	Shortcuts []Shortcut `json:"shortcuts" yaml:"shortcuts"`
}

// importSchema validates JSON imports before they touch the store or the
// engine.
const importSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["version", "shortcuts"],
  "additionalProperties": false,
  "properties": {
    "version": {"type": "integer", "minimum": 1, "maximum": 1},
    "shortcuts": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["trigger", "replacement"],
        "additionalProperties": false,
        "properties": {
          "trigger": {"type": "string", "minLength": 1, "maxLength": 64},
          "replacement": {"type": "string", "maxLength": 4096}
        }
      }
    }
  }
}`

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("shortcuts.schema.json", strings.NewReader(importSchema)); err != nil {
		return nil, err
	}
	return compiler.Compile("shortcuts.schema.json")
})

// ImportJSON parses and validates a JSON shortcut file.
func ImportJSON(data []byte) ([]Shortcut, error) {
	schema, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compile import schema: %w", err)
	}

	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		return nil, fmt.Errorf("validate shortcut file: %w", err)
	}

	var file exchangeFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode shortcut file: %w", err)
	}
	return file.Shortcuts, nil
}

// ImportYAML parses a YAML shortcut file.
func ImportYAML(data []byte) ([]Shortcut, error) {
	var file exchangeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	if file.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported shortcut file version %d", file.Version)
	}
	for _, sc := range file.Shortcuts {
		if sc.Trigger == "" {
			return nil, fmt.Errorf("shortcut with empty trigger")
		}
	}
	return file.Shortcuts, nil
}

// ExportYAML renders shortcuts as a YAML shortcut file.
func ExportYAML(list []Shortcut) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(exchangeFile{Version: FormatVersion, Shortcuts: list}); err != nil {
		return nil, fmt.Errorf("encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close encoder: %w", err)
	}
	return buf.Bytes(), nil
}
