package formconfig

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var knownFieldTypes = map[FieldType]struct{}{
	FieldTypeText:    {},
	FieldTypeNumber:  {},
	FieldTypeDate:    {},
	FieldTypeBoolean: {},
	FieldTypeSelect:  {},
}

// Validate checks the structural invariants of a configuration: globally
// unique section ids and object names, per-section unique field names, known
// field types, well-formed validation rules, and resolvable cross-field
// references. Visibility dependency checks (dangling references, cycles) are
// the visibility planner's responsibility since they need the expression
// grammar.
func Validate(cfg *FormConfig) error {
	if cfg == nil || len(cfg.Sections) == 0 {
		return errNoSections
	}

	seenIDs := make(map[string]struct{})
	seenObjects := make(map[string]struct{})
	var firstErr error

	cfg.Walk(func(sec *Section, _ *Section) bool {
		if err := validateSection(sec, seenIDs, seenObjects); err != nil {
			firstErr = err
			return false
		}
		return true
	})
	if firstErr != nil {
		return firstErr
	}

	// Cross-field references resolve against the finished id/object tables,
	// so they need a second pass.
	cfg.Walk(func(sec *Section, _ *Section) bool {
		for i := range sec.Fields {
			if err := validateCrossFieldRules(cfg, sec, &sec.Fields[i]); err != nil {
				firstErr = err
				return false
			}
		}
		return true
	})
	return firstErr
}

func validateSection(sec *Section, seenIDs, seenObjects map[string]struct{}) error {
	if strings.TrimSpace(sec.ID) == "" {
		return &ConfigError{Message: "section id is required"}
	}
	if strings.TrimSpace(sec.ObjectName) == "" {
		return &ConfigError{SectionID: sec.ID, Message: "objectName is required"}
	}
	if _, dup := seenIDs[sec.ID]; dup {
		return &ConfigError{SectionID: sec.ID, Message: "duplicate section id"}
	}
	seenIDs[sec.ID] = struct{}{}
	if _, dup := seenObjects[sec.ObjectName]; dup {
		return &ConfigError{SectionID: sec.ID, Message: fmt.Sprintf("duplicate objectName %q", sec.ObjectName)}
	}
	seenObjects[sec.ObjectName] = struct{}{}

	seenFields := make(map[string]struct{}, len(sec.Fields))
	for i := range sec.Fields {
		field := &sec.Fields[i]
		if strings.TrimSpace(field.Name) == "" {
			return &ConfigError{SectionID: sec.ID, Message: "field name is required"}
		}
		if _, dup := seenFields[field.Name]; dup {
			return &ConfigError{SectionID: sec.ID, Field: field.Name, Message: "duplicate field name"}
		}
		seenFields[field.Name] = struct{}{}
		if _, ok := knownFieldTypes[field.Type]; !ok {
			return &ConfigError{SectionID: sec.ID, Field: field.Name, Message: fmt.Sprintf("unknown field type %q", field.Type)}
		}
		if err := validateRules(sec, field); err != nil {
			return err
		}
	}
	return nil
}

func validateRules(sec *Section, field *Field) error {
	for _, rule := range field.Validations {
		switch rule.Kind {
		case RuleMin, RuleMax:
			if _, err := strconv.ParseFloat(rule.Params["value"], 64); err != nil {
				return &ConfigError{SectionID: sec.ID, Field: field.Name, Message: fmt.Sprintf("rule %s: invalid numeric bound %q", rule.Kind, rule.Params["value"])}
			}
		case RuleMinLength, RuleMaxLength:
			if _, err := strconv.Atoi(rule.Params["value"]); err != nil {
				return &ConfigError{SectionID: sec.ID, Field: field.Name, Message: fmt.Sprintf("rule %s: invalid length %q", rule.Kind, rule.Params["value"])}
			}
		case RulePattern:
			if _, err := regexp.Compile(rule.Params["pattern"]); err != nil {
				return &ConfigError{SectionID: sec.ID, Field: field.Name, Message: fmt.Sprintf("rule pattern: %v", err)}
			}
		case RuleMatchesField:
			if strings.TrimSpace(rule.Params["field"]) == "" {
				return &ConfigError{SectionID: sec.ID, Field: field.Name, Message: "rule matchesField: target field is required"}
			}
		default:
			return &ConfigError{SectionID: sec.ID, Field: field.Name, Message: fmt.Sprintf("unknown validation rule %q", rule.Kind)}
		}
	}
	return nil
}

func validateCrossFieldRules(cfg *FormConfig, sec *Section, field *Field) error {
	for _, rule := range field.Validations {
		if rule.Kind != RuleMatchesField {
			continue
		}
		target := strings.TrimSpace(rule.Params["field"])
		if objectName, fieldName, ok := strings.Cut(target, "."); ok {
			other := cfg.SectionByObjectName(objectName)
			if other == nil {
				return &ConfigError{SectionID: sec.ID, Field: field.Name, Message: fmt.Sprintf("rule matchesField: unknown section %q", objectName)}
			}
			if other.FieldByName(fieldName) == nil {
				return &ConfigError{SectionID: sec.ID, Field: field.Name, Message: fmt.Sprintf("rule matchesField: section %q has no field %q", objectName, fieldName)}
			}
			continue
		}
		if sec.FieldByName(target) == nil {
			return &ConfigError{SectionID: sec.ID, Field: field.Name, Message: fmt.Sprintf("rule matchesField: no sibling field %q", target)}
		}
	}
	return nil
}
