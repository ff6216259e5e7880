package llm

import (
	"context"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	openaijsonschema "github.com/sashabaranov/go-openai/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"pkdindustries/switchboard/internal/tools"
)

type weatherSchemaTool struct{}

func (weatherSchemaTool) GetName() string { return "get_weather" }

func (weatherSchemaTool) GetSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "object",
		Description: "look up current conditions",
		Properties: map[string]*jsonschema.Schema{
			"location": {Type: "string", Description: "city name"},
			"unit":     {Type: "string", Enum: []any{"celsius", "fahrenheit"}},
			"days":     {Type: "integer"},
			"alerts":   {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
		},
		Required: []string{"location"},
	}
}

func (weatherSchemaTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	return "", nil
}

var schemaTools = []tools.Tool{weatherSchemaTool{}}

func TestSchemaLoweringOpenAI(t *testing.T) {
	out := ToOpenAITools(schemaTools)
	require.Len(t, out, 1)
	assert.Equal(t, "get_weather", out[0].Function.Name)

	def, ok := out[0].Function.Parameters.(openaijsonschema.Definition)
	require.True(t, ok)
	assert.Equal(t, openaijsonschema.Object, def.Type)
	assert.Equal(t, []string{"location"}, def.Required)
	assert.Equal(t, openaijsonschema.DataType("string"), def.Properties["location"].Type)
	assert.Equal(t, []string{"celsius", "fahrenheit"}, def.Properties["unit"].Enum)
	require.NotNil(t, def.Properties["alerts"].Items)
	assert.Equal(t, openaijsonschema.DataType("string"), def.Properties["alerts"].Items.Type)
}

func TestSchemaLoweringAnthropic(t *testing.T) {
	out := ToAnthropicTools(schemaTools)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].OfTool)

	tool := out[0].OfTool
	assert.Equal(t, "get_weather", tool.Name)
	assert.EqualValues(t, "object", tool.InputSchema.Type)
	assert.Equal(t, []string{"location"}, tool.InputSchema.Required)

	props, ok := tool.InputSchema.Properties.(map[string]any)
	require.True(t, ok)
	loc, ok := props["location"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "string", loc["type"])
}

func TestSchemaLoweringGemini(t *testing.T) {
	out := ToGeminiTools(schemaTools)
	require.Len(t, out, 1)
	require.Len(t, out[0].FunctionDeclarations, 1)

	decl := out[0].FunctionDeclarations[0]
	assert.Equal(t, "get_weather", decl.Name)
	require.NotNil(t, decl.Parameters)
	assert.Equal(t, genai.TypeObject, decl.Parameters.Type)
	assert.Equal(t, genai.TypeInteger, decl.Parameters.Properties["days"].Type)
	assert.Equal(t, genai.TypeArray, decl.Parameters.Properties["alerts"].Type)
	assert.Equal(t, []string{"celsius", "fahrenheit"}, decl.Parameters.Properties["unit"].Enum)
	assert.Equal(t, []string{"location"}, decl.Parameters.Required)
}

func TestSchemaLoweringGeminiEmptyToolList(t *testing.T) {
	assert.Nil(t, ToGeminiTools(nil))
}

func TestSchemaLoweringOllama(t *testing.T) {
	out := ToOllamaTools(schemaTools)
	require.Len(t, out, 1)
	assert.Equal(t, "function", out[0].Type)

	fn := out[0].Function
	assert.Equal(t, "get_weather", fn.Name)
	assert.Equal(t, "object", fn.Parameters.Type)
	assert.Equal(t, []string{"location"}, fn.Parameters.Required)
	assert.Contains(t, fn.Parameters.Properties["location"].Type, "string")
	assert.Equal(t, []any{"celsius", "fahrenheit"}, fn.Parameters.Properties["unit"].Enum)
}
