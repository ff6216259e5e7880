package tools

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"pkdindustries/switchboard/internal/messages"
)

// NormalizeInput repairs tool arguments that backend SDKs over-eagerly
// deep-parsed. When a schema declares a property as a plain string but the
// decoded arguments carry an object or array there (common for tools taking
// raw file content that happens to look like JSON), the value is
// re-serialized to a JSON string so the tool sees what the model wrote.
func NormalizeInput(schema *jsonschema.Schema, args map[string]any) map[string]any {
	if schema == nil || len(schema.Properties) == 0 || len(args) == 0 {
		return args
	}
	var fixed map[string]any
	for name, prop := range schema.Properties {
		if prop == nil || prop.Type != "string" {
			continue
		}
		v, ok := args[name]
		if !ok {
			continue
		}
		switch v.(type) {
		case map[string]any, []any:
			b, err := json.Marshal(v)
			if err != nil {
				continue
			}
			if fixed == nil {
				fixed = make(map[string]any, len(args))
				for k, val := range args {
					fixed[k] = val
				}
			}
			fixed[name] = string(b)
		}
	}
	if fixed != nil {
		return fixed
	}
	return args
}

// StringifyResult renders a tool result of any shape to text, since
// providers only accept string tool outputs. Precedence: string passthrough,
// then a "value" field (recursing), then a "text" field, then full JSON.
// Arrays are stringified element-wise and joined with newlines. Total over
// all inputs; it sits on the hot path of every tool-result turn.
func StringifyResult(content any) string {
	switch v := content.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case messages.Part:
		return messages.FallbackText(v)
	case map[string]any:
		if inner, ok := v["value"]; ok {
			return StringifyResult(inner)
		}
		if text, ok := v["text"].(string); ok {
			return text
		}
		return jsonFallback(v)
	}

	// Any other slice type joins element-wise, covering []any, []string,
	// and typed part slices alike.
	rv := reflect.ValueOf(content)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		parts := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			parts = append(parts, StringifyResult(rv.Index(i).Interface()))
		}
		return strings.Join(parts, "\n")
	}

	return jsonFallback(content)
}

func jsonFallback(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
