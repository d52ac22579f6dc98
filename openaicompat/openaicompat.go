// Package openaicompat reuses derived schemas against OpenAI-compatible
// endpoints: it converts a schema value into the JSON-Schema map shape the
// OpenAI SDK's function tools accept.
package openaicompat

import (
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/responses"

	"github.com/google-ai-go/googleai/schema"
)

// jsonSchemaTypes maps schema types to their JSON-Schema spellings. The
// unspecified type has no spelling and is omitted.
var jsonSchemaTypes = map[schema.Type]string{
	schema.TypeString:  "string",
	schema.TypeNumber:  "number",
	schema.TypeInteger: "integer",
	schema.TypeBoolean: "boolean",
	schema.TypeArray:   "array",
	schema.TypeObject:  "object",
}

// JSONSchemaMap converts a schema to a JSON-Schema map. The enum format is
// dropped: JSON Schema expresses enumerations through the enum list alone.
func JSONSchemaMap(s *schema.Schema) map[string]any {
	if s == nil {
		return nil
	}
	out := make(map[string]any)
	if name, ok := jsonSchemaTypes[s.Type]; ok {
		out["type"] = name
	}
	if s.Format != schema.FormatNone && s.Format != schema.FormatEnum {
		out["format"] = string(s.Format)
	}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if s.Nullable != nil {
		out["nullable"] = *s.Nullable
	}
	if len(s.Enum) > 0 {
		values := make([]any, len(s.Enum))
		for i, v := range s.Enum {
			values[i] = v
		}
		out["enum"] = values
	}
	if s.Items != nil {
		out["items"] = JSONSchemaMap(s.Items)
	}
	if s.MinItems != 0 {
		out["minItems"] = s.MinItems
	}
	if s.MaxItems != 0 {
		out["maxItems"] = s.MaxItems
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = JSONSchemaMap(p)
		}
		out["properties"] = props
	}
	if len(s.Required) > 0 {
		required := make([]any, len(s.Required))
		for i, name := range s.Required {
			required[i] = name
		}
		out["required"] = required
	}
	return out
}

// FunctionTool builds a function tool whose parameters are the given schema.
func FunctionTool(name, description string, params *schema.Schema) responses.ToolUnionParam {
	parameters := JSONSchemaMap(params)
	if parameters == nil {
		parameters = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	ft := responses.FunctionToolParam{
		Name:       name,
		Parameters: parameters,
		Strict:     openai.Bool(false),
	}
	if description != "" {
		ft.Description = openai.String(description)
	}
	return responses.ToolUnionParam{OfFunction: &ft}
}
