package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/adpilot-ai/adpilot/internal/fault"
	"github.com/adpilot-ai/adpilot/pkg/models"
)

// paramSchema validates invocation parameters against a tool's declared
// parameter list using a compiled JSON schema.
type paramSchema struct {
	specs    []models.ParamSpec
	compiled *jsonschema.Schema
}

// compileParams builds and compiles the JSON schema for a parameter list.
func compileParams(toolName string, specs []models.ParamSpec) (*paramSchema, error) {
	doc := map[string]any{
		"type":                 "object",
		"additionalProperties": true,
	}

	properties := make(map[string]any, len(specs))
	var required []string
	for _, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("tool %q: parameter with empty name", toolName)
		}
		if !validParamType(spec.Type) {
			return nil, fmt.Errorf("tool %q: parameter %q has unknown type %q", toolName, spec.Name, spec.Type)
		}
		prop := map[string]any{"type": string(spec.Type)}
		if spec.Description != "" {
			prop["description"] = spec.Description
		}
		if len(spec.Enum) > 0 {
			if spec.Type != models.ParamString {
				return nil, fmt.Errorf("tool %q: parameter %q: enum requires string type", toolName, spec.Name)
			}
			values := make([]any, len(spec.Enum))
			for i, v := range spec.Enum {
				values[i] = v
			}
			prop["enum"] = values
		}
		if spec.Default != nil {
			prop["default"] = spec.Default
		}
		properties[spec.Name] = prop
		if spec.Required {
			required = append(required, spec.Name)
		}
	}
	doc["properties"] = properties
	if len(required) > 0 {
		doc["required"] = required
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("tool %q: encode schema: %w", toolName, err)
	}
	compiled, err := jsonschema.CompileString(toolName+".schema.json", string(raw))
	if err != nil {
		return nil, fmt.Errorf("tool %q: compile schema: %w", toolName, err)
	}
	return &paramSchema{specs: specs, compiled: compiled}, nil
}

func validParamType(t models.ParamType) bool {
	switch t {
	case models.ParamString, models.ParamNumber, models.ParamInteger,
		models.ParamBoolean, models.ParamObject, models.ParamArray:
		return true
	}
	return false
}

// prepare applies defaults, coerces loosely typed values, and validates
// the result. It returns a new map; the input is not modified.
func (s *paramSchema) prepare(params map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}

	for _, spec := range s.specs {
		v, present := out[spec.Name]
		if !present || v == nil {
			if spec.Default != nil {
				out[spec.Name] = spec.Default
			}
			continue
		}
		out[spec.Name] = coerceValue(spec.Type, v)
	}

	// Round-trip through JSON so validation sees canonical types
	// regardless of how the planner or a resume input produced the map.
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, fault.Wrap(fault.CodeValidation, err)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fault.Wrap(fault.CodeValidation, err)
	}
	if err := s.compiled.Validate(decoded); err != nil {
		return nil, fault.Wrap(fault.CodeValidation, err)
	}
	return out, nil
}

// missingRequired returns the name of the first required parameter that is
// absent or empty, or "" when all are present.
func (s *paramSchema) missingRequired(params map[string]any) string {
	for _, spec := range s.specs {
		if !spec.Required || spec.Default != nil {
			continue
		}
		v, ok := params[spec.Name]
		if !ok || v == nil {
			return spec.Name
		}
		if str, ok := v.(string); ok && strings.TrimSpace(str) == "" {
			return spec.Name
		}
	}
	return ""
}

// coerceValue converts loosely typed planner output toward the declared
// type. Values that cannot be converted pass through unchanged and are
// rejected by schema validation instead.
func coerceValue(t models.ParamType, v any) any {
	switch t {
	case models.ParamInteger:
		switch n := v.(type) {
		case float64:
			if n == math.Trunc(n) {
				return int64(n)
			}
		case string:
			if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
				return i
			}
		}
	case models.ParamNumber:
		if s, ok := v.(string); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return f
			}
		}
	case models.ParamBoolean:
		if s, ok := v.(string); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
				return b
			}
		}
	case models.ParamString:
		switch n := v.(type) {
		case float64:
			return strconv.FormatFloat(n, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(n)
		}
	}
	return v
}

// ParamsFromStruct reflects a Go struct into a parameter list. Struct
// fields use json tags for names and jsonschema tags for description,
// required, enum, and default, the same conventions the AI-assisted tool
// argument structs follow.
func ParamsFromStruct(v any) ([]models.ParamSpec, error) {
	reflector := &invopop.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}
	schema := reflector.Reflect(v)

	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	var specs []models.ParamSpec
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		prop := pair.Value
		spec := models.ParamSpec{
			Name:        pair.Key,
			Type:        models.ParamType(prop.Type),
			Required:    required[pair.Key],
			Description: prop.Description,
			Default:     defaultValue(models.ParamType(prop.Type), prop.Default),
		}
		for _, e := range prop.Enum {
			if s, ok := e.(string); ok {
				spec.Enum = append(spec.Enum, s)
			}
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// defaultValue unwraps the json.Number the reflector produces for numeric
// defaults so specs carry plain Go values.
func defaultValue(t models.ParamType, v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	switch t {
	case models.ParamInteger:
		if i, err := strconv.Atoi(n.String()); err == nil {
			return i
		}
	case models.ParamNumber:
		if f, err := n.Float64(); err == nil {
			return f
		}
	}
	return n.String()
}

// MustParams is ParamsFromStruct for descriptor literals. Argument structs
// are fixed at compile time, so a reflection failure is a programming error.
func MustParams(v any) []models.ParamSpec {
	specs, err := ParamsFromStruct(v)
	if err != nil {
		panic(fmt.Sprintf("tools: reflecting %T: %v", v, err))
	}
	return specs
}
