package llm

import (
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/jsonschema-go/jsonschema"
	ollamaapi "github.com/ollama/ollama/api"
	openai "github.com/sashabaranov/go-openai"
	openaijsonschema "github.com/sashabaranov/go-openai/jsonschema"
	"google.golang.org/genai"

	"pkdindustries/switchboard/internal/tools"
)

// Tool schemas are declared once in JSON Schema and lowered here into each
// SDK's native declaration type. Unknown or missing types lower to strings
// so a sloppy schema degrades instead of failing the request.

func schemaToOpenAIDefinition(schema *jsonschema.Schema) openaijsonschema.Definition {
	def := openaijsonschema.Definition{
		Type:        openaijsonschema.DataType(schema.Type),
		Description: schema.Description,
	}
	if schema.Type == "" {
		def.Type = openaijsonschema.String
	}
	if len(schema.Properties) > 0 {
		def.Properties = make(map[string]openaijsonschema.Definition, len(schema.Properties))
		for name, prop := range schema.Properties {
			def.Properties[name] = schemaToOpenAIDefinition(prop)
		}
	}
	if schema.Items != nil {
		items := schemaToOpenAIDefinition(schema.Items)
		def.Items = &items
	}
	if len(schema.Required) > 0 {
		def.Required = schema.Required
	}
	if len(schema.Enum) > 0 {
		enums := make([]string, 0, len(schema.Enum))
		for _, e := range schema.Enum {
			if s, ok := e.(string); ok {
				enums = append(enums, s)
			}
		}
		def.Enum = enums
	}
	return def
}

// ToOpenAITools converts registered tools to OpenAI function declarations.
func ToOpenAITools(ts []tools.Tool) []openai.Tool {
	out := make([]openai.Tool, 0, len(ts))
	for _, t := range ts {
		schema := tools.SchemaOf(t)
		params := schemaToOpenAIDefinition(schema)
		params.Type = openaijsonschema.Object
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.GetName(),
				Description: schema.Description,
				Parameters:  params,
			},
		})
	}
	return out
}

func schemaToAnthropicMap(schema *jsonschema.Schema) map[string]any {
	m := map[string]any{}
	if schema.Type != "" {
		m["type"] = schema.Type
	} else {
		m["type"] = "string"
	}
	if schema.Description != "" {
		m["description"] = schema.Description
	}
	if len(schema.Enum) > 0 {
		m["enum"] = schema.Enum
	}
	switch schema.Type {
	case "array":
		if schema.Items != nil {
			m["items"] = schemaToAnthropicMap(schema.Items)
		} else {
			m["items"] = map[string]any{"type": "string"}
		}
	case "object":
		props := map[string]any{}
		for name, prop := range schema.Properties {
			props[name] = schemaToAnthropicMap(prop)
		}
		m["properties"] = props
		if len(schema.Required) > 0 {
			m["required"] = schema.Required
		}
	}
	return m
}

// ToAnthropicTools converts registered tools to Anthropic tool params.
func ToAnthropicTools(ts []tools.Tool) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(ts))
	for _, t := range ts {
		schema := tools.SchemaOf(t)
		properties := map[string]any{}
		for name, prop := range schema.Properties {
			properties[name] = schemaToAnthropicMap(prop)
		}
		tool := anthropic.ToolParam{
			Name:        t.GetName(),
			Description: anthropic.String(schema.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Type:       "object",
				Properties: properties,
			},
		}
		if len(schema.Required) > 0 {
			tool.InputSchema.Required = schema.Required
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &tool})
	}
	return out
}

func schemaToGeminiSchema(schema *jsonschema.Schema) *genai.Schema {
	out := &genai.Schema{Description: schema.Description}
	switch schema.Type {
	case "number":
		out.Type = genai.TypeNumber
	case "integer":
		out.Type = genai.TypeInteger
	case "boolean":
		out.Type = genai.TypeBoolean
	case "array":
		out.Type = genai.TypeArray
		if schema.Items != nil {
			out.Items = schemaToGeminiSchema(schema.Items)
		}
	case "object":
		out.Type = genai.TypeObject
		if len(schema.Properties) > 0 {
			out.Properties = make(map[string]*genai.Schema, len(schema.Properties))
			for name, prop := range schema.Properties {
				out.Properties[name] = schemaToGeminiSchema(prop)
			}
		}
		if len(schema.Required) > 0 {
			out.Required = schema.Required
		}
	default:
		out.Type = genai.TypeString
	}
	if len(schema.Enum) > 0 {
		for _, e := range schema.Enum {
			if s, ok := e.(string); ok {
				out.Enum = append(out.Enum, s)
			}
		}
	}
	return out
}

// ToGeminiTools converts registered tools to Gemini function declarations.
// Gemini takes one Tool holding every declaration.
func ToGeminiTools(ts []tools.Tool) []*genai.Tool {
	if len(ts) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(ts))
	for _, t := range ts {
		schema := tools.SchemaOf(t)
		params := schemaToGeminiSchema(schema)
		params.Type = genai.TypeObject
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.GetName(),
			Description: schema.Description,
			Parameters:  params,
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// ToOllamaTools converts registered tools to Ollama tool declarations.
func ToOllamaTools(ts []tools.Tool) []ollamaapi.Tool {
	out := make([]ollamaapi.Tool, 0, len(ts))
	for _, t := range ts {
		schema := tools.SchemaOf(t)
		var fn ollamaapi.ToolFunction
		fn.Name = t.GetName()
		fn.Description = schema.Description
		fn.Parameters.Type = "object"
		if len(schema.Required) > 0 {
			fn.Parameters.Required = schema.Required
		}
		props := map[string]ollamaapi.ToolProperty{}
		for name, prop := range schema.Properties {
			propType := prop.Type
			if propType == "" {
				propType = "string"
			}
			p := ollamaapi.ToolProperty{
				Type:        ollamaapi.PropertyType{propType},
				Description: prop.Description,
			}
			if prop.Items != nil {
				itemType := prop.Items.Type
				if itemType == "" {
					itemType = "string"
				}
				p.Items = map[string]any{"type": itemType}
			}
			if len(prop.Enum) > 0 {
				p.Enum = prop.Enum
			}
			props[name] = p
		}
		fn.Parameters.Properties = props
		out = append(out, ollamaapi.Tool{Type: "function", Function: fn})
	}
	return out
}
