// Package openapi derives form configurations from OpenAPI 3 documents, so
// designer tooling that already maintains an API spec can hand the engine a
// config without re-describing every section by hand.
//
// Mapping rules: the selected operation's JSON request body must be an object
// schema. Object-typed properties become sections (nested objects become
// subsections); scalar properties at the root are grouped into an integral
// "general" section so the structured output keeps the original shape.
// Recognised extensions on object properties:
//
//	x-formstate-id           section id (defaults to the property name)
//	x-formstate-integral     bool, merge fields into the parent object
//	x-formstate-visible-when visibility condition expression
package openapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formstate/pkg/formconfig"
)

const (
	extSectionID   = "x-formstate-id"
	extIntegral    = "x-formstate-integral"
	extVisibleWhen = "x-formstate-visible-when"

	rootSectionID   = "general"
	rootSectionName = "general"
)

// Import loads an OpenAPI document and builds a validated FormConfig from the
// request body of the operation with the given id.
func Import(ctx context.Context, data []byte, operationID string) (*formconfig.FormConfig, error) {
	if len(data) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}

	loader := &openapi3.Loader{Context: ctx}
	spec, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}

	operation := findOperation(spec, operationID)
	if operation == nil {
		return nil, fmt.Errorf("openapi: operation %q not found", operationID)
	}

	root := requestBodySchema(operation)
	if root == nil {
		return nil, fmt.Errorf("openapi: operation %q has no object request body", operationID)
	}

	cfg := &formconfig.FormConfig{}
	general := formconfig.Section{
		ID:         rootSectionID,
		ObjectName: rootSectionName,
		Integral:   true,
	}

	for _, name := range sortedPropertyNames(root) {
		prop := root.Properties[name]
		if prop == nil || prop.Value == nil {
			continue
		}
		if isObject(prop.Value) {
			sec, err := buildSection(name, prop.Value, root.Required)
			if err != nil {
				return nil, err
			}
			cfg.Sections = append(cfg.Sections, sec)
			continue
		}
		general.Fields = append(general.Fields, buildField(name, prop.Value, root.Required))
	}

	if len(general.Fields) > 0 {
		cfg.Sections = append([]formconfig.Section{general}, cfg.Sections...)
	}
	if len(cfg.Sections) == 0 {
		return nil, fmt.Errorf("openapi: operation %q request body has no usable properties", operationID)
	}
	if err := formconfig.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findOperation(spec *openapi3.T, operationID string) *openapi3.Operation {
	if spec.Paths == nil {
		return nil
	}
	for _, item := range spec.Paths.Map() {
		if item == nil {
			continue
		}
		for _, op := range []*openapi3.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Patch, item.Head, item.Options, item.Trace,
		} {
			if op != nil && op.OperationID == operationID {
				return op
			}
		}
	}
	return nil
}

func requestBodySchema(op *openapi3.Operation) *openapi3.Schema {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	content := op.RequestBody.Value.Content
	mt, ok := content["application/json"]
	if !ok {
		for _, candidate := range content {
			mt = candidate
			break
		}
	}
	if mt == nil || mt.Schema == nil || mt.Schema.Value == nil {
		return nil
	}
	if !isObject(mt.Schema.Value) {
		return nil
	}
	return mt.Schema.Value
}

func buildSection(name string, schema *openapi3.Schema, _ []string) (formconfig.Section, error) {
	sec := formconfig.Section{
		ID:          stringExtension(schema, extSectionID, name),
		ObjectName:  name,
		Title:       schema.Title,
		Integral:    boolExtension(schema, extIntegral),
		VisibleWhen: stringExtension(schema, extVisibleWhen, ""),
	}

	for _, propName := range sortedPropertyNames(schema) {
		prop := schema.Properties[propName]
		if prop == nil || prop.Value == nil {
			continue
		}
		if isObject(prop.Value) {
			child, err := buildSection(propName, prop.Value, schema.Required)
			if err != nil {
				return formconfig.Section{}, err
			}
			sec.Sections = append(sec.Sections, child)
			continue
		}
		sec.Fields = append(sec.Fields, buildField(propName, prop.Value, schema.Required))
	}
	return sec, nil
}

func buildField(name string, schema *openapi3.Schema, required []string) formconfig.Field {
	field := formconfig.Field{
		ID:          name,
		Name:        name,
		Type:        fieldTypeFor(schema),
		Label:       schema.Title,
		Description: schema.Description,
		Default:     schema.Default,
		Required:    contains(required, name),
	}

	for _, v := range schema.Enum {
		field.Options = append(field.Options, fmt.Sprint(v))
	}
	field.Validations = rulesFor(schema)
	return field
}

func fieldTypeFor(schema *openapi3.Schema) formconfig.FieldType {
	if len(schema.Enum) > 0 {
		return formconfig.FieldTypeSelect
	}
	switch firstType(schema.Type) {
	case "integer", "number":
		return formconfig.FieldTypeNumber
	case "boolean":
		return formconfig.FieldTypeBoolean
	case "string":
		if schema.Format == "date" || schema.Format == "date-time" {
			return formconfig.FieldTypeDate
		}
		return formconfig.FieldTypeText
	default:
		return formconfig.FieldTypeText
	}
}

func rulesFor(schema *openapi3.Schema) []formconfig.ValidationRule {
	var rules []formconfig.ValidationRule
	if schema.Pattern != "" {
		rules = append(rules, formconfig.ValidationRule{
			Kind:   formconfig.RulePattern,
			Params: map[string]string{"pattern": schema.Pattern},
		})
	}
	if schema.Min != nil {
		rules = append(rules, formconfig.ValidationRule{
			Kind:   formconfig.RuleMin,
			Params: map[string]string{"value": strconv.FormatFloat(*schema.Min, 'f', -1, 64)},
		})
	}
	if schema.Max != nil {
		rules = append(rules, formconfig.ValidationRule{
			Kind:   formconfig.RuleMax,
			Params: map[string]string{"value": strconv.FormatFloat(*schema.Max, 'f', -1, 64)},
		})
	}
	if schema.MinLength != 0 {
		rules = append(rules, formconfig.ValidationRule{
			Kind:   formconfig.RuleMinLength,
			Params: map[string]string{"value": strconv.FormatUint(schema.MinLength, 10)},
		})
	}
	if schema.MaxLength != nil {
		rules = append(rules, formconfig.ValidationRule{
			Kind:   formconfig.RuleMaxLength,
			Params: map[string]string{"value": strconv.FormatUint(*schema.MaxLength, 10)},
		})
	}
	return rules
}

func isObject(schema *openapi3.Schema) bool {
	return firstType(schema.Type) == "object" || len(schema.Properties) > 0
}

func firstType(types *openapi3.Types) string {
	if types == nil {
		return ""
	}
	values := types.Slice()
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func sortedPropertyNames(schema *openapi3.Schema) []string {
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func stringExtension(schema *openapi3.Schema, key, fallback string) string {
	if raw, ok := schema.Extensions[key]; ok {
		if s, ok := raw.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return fallback
}

func boolExtension(schema *openapi3.Schema, key string) bool {
	raw, ok := schema.Extensions[key]
	if !ok {
		return false
	}
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		parsed, err := strconv.ParseBool(v)
		return err == nil && parsed
	default:
		return false
	}
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
