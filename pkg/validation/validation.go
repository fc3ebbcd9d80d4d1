// Package validation runs field, section, and form level checks against the
// flat snapshot and the current visible set. Rule failures are data, returned
// in a Report; the only error path is a malformed configuration, which the
// loader normally rejects before a validator exists.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goliatone/go-formstate/pkg/formconfig"
	"github.com/goliatone/go-formstate/pkg/formdata"
	"github.com/goliatone/go-formstate/pkg/store"
)

// Kind classifies a field error.
type Kind string

const (
	KindRequired     Kind = "required"
	KindPattern      Kind = "pattern"
	KindMin          Kind = "min"
	KindMax          Kind = "max"
	KindMinLength    Kind = "minLength"
	KindMaxLength    Kind = "maxLength"
	KindMatchesField Kind = "matchesField"
	KindType         Kind = "type"
)

// FieldError is a single rule failure on one field.
type FieldError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Report is the structured outcome of a validation pass. Hidden sections are
// not validated; their fields never appear in the report.
type Report struct {
	Valid    bool                        `json:"valid"`
	Fields   map[store.Key][]FieldError  `json:"-"`
	Sections map[string]bool             `json:"-"`
}

// FieldErrors returns the errors recorded for one field.
func (r Report) FieldErrors(sectionID, fieldName string) []FieldError {
	return r.Fields[store.Key{SectionID: sectionID, FieldName: fieldName}]
}

// SectionValid reports whether a section and its visible subsections passed.
// Sections that were hidden during the pass report true.
func (r Report) SectionValid(sectionID string) bool {
	valid, ok := r.Sections[sectionID]
	if !ok {
		return true
	}
	return valid
}

// Validator applies the configuration's rules to snapshots.
type Validator struct {
	config *formconfig.FormConfig
}

// New binds a validator to a validated configuration.
func New(cfg *formconfig.FormConfig) *Validator {
	return &Validator{config: cfg}
}

// Validate checks every visible section bottom-up. The form is valid iff all
// visible top-level sections are valid; a section is valid iff its own fields
// pass and all its visible subsections are valid.
func (v *Validator) Validate(flat formdata.FlatFormData, visible []*formconfig.Section) (Report, error) {
	visibleIDs := make(map[string]bool, len(visible))
	for _, sec := range visible {
		visibleIDs[sec.ID] = true
	}

	report := Report{
		Valid:    true,
		Fields:   make(map[store.Key][]FieldError),
		Sections: make(map[string]bool),
	}

	for i := range v.config.Sections {
		sec := &v.config.Sections[i]
		if !visibleIDs[sec.ID] {
			continue
		}
		ok, err := v.validateSection(sec, flat, visibleIDs, &report)
		if err != nil {
			return Report{}, err
		}
		if !ok {
			report.Valid = false
		}
	}
	return report, nil
}

func (v *Validator) validateSection(sec *formconfig.Section, flat formdata.FlatFormData, visibleIDs map[string]bool, report *Report) (bool, error) {
	valid := true
	for i := range sec.Fields {
		errs, err := v.validateField(sec, &sec.Fields[i], flat)
		if err != nil {
			return false, err
		}
		if len(errs) > 0 {
			valid = false
			key := store.Key{SectionID: sec.ID, FieldName: sec.Fields[i].Name}
			report.Fields[key] = errs
		}
	}
	for i := range sec.Sections {
		child := &sec.Sections[i]
		if !visibleIDs[child.ID] {
			continue
		}
		ok, err := v.validateSection(child, flat, visibleIDs, report)
		if err != nil {
			return false, err
		}
		if !ok {
			valid = false
		}
	}
	report.Sections[sec.ID] = valid
	return valid, nil
}

func (v *Validator) validateField(sec *formconfig.Section, field *formconfig.Field, flat formdata.FlatFormData) ([]FieldError, error) {
	value, _ := flat.Value(sec.ObjectName, field.Name)
	var errs []FieldError

	if field.Required && isEmpty(value) {
		errs = append(errs, FieldError{Kind: KindRequired, Message: fmt.Sprintf("%s is required", displayName(field))})
	}

	for _, rule := range field.Validations {
		fieldErr, err := v.applyRule(sec, field, rule, value, flat)
		if err != nil {
			return nil, err
		}
		if fieldErr != nil {
			errs = append(errs, *fieldErr)
		}
	}
	return errs, nil
}

func (v *Validator) applyRule(sec *formconfig.Section, field *formconfig.Field, rule formconfig.ValidationRule, value any, flat formdata.FlatFormData) (*FieldError, error) {
	// Optional empty values only answer to the required flag.
	if isEmpty(value) && rule.Kind != formconfig.RuleMatchesField {
		return nil, nil
	}

	switch rule.Kind {
	case formconfig.RuleMin, formconfig.RuleMax:
		bound, err := strconv.ParseFloat(rule.Params["value"], 64)
		if err != nil {
			return nil, &formconfig.ConfigError{SectionID: sec.ID, Field: field.Name, Message: fmt.Sprintf("rule %s: invalid bound", rule.Kind)}
		}
		num, ok := toNumber(value)
		if !ok {
			return &FieldError{Kind: KindType, Message: fmt.Sprintf("%s must be a number", displayName(field))}, nil
		}
		if rule.Kind == formconfig.RuleMin && num < bound {
			return &FieldError{Kind: KindMin, Message: fmt.Sprintf("%s must be at least %v", displayName(field), bound)}, nil
		}
		if rule.Kind == formconfig.RuleMax && num > bound {
			return &FieldError{Kind: KindMax, Message: fmt.Sprintf("%s must be at most %v", displayName(field), bound)}, nil
		}
	case formconfig.RuleMinLength, formconfig.RuleMaxLength:
		limit, err := strconv.Atoi(rule.Params["value"])
		if err != nil {
			return nil, &formconfig.ConfigError{SectionID: sec.ID, Field: field.Name, Message: fmt.Sprintf("rule %s: invalid length", rule.Kind)}
		}
		text := toString(value)
		if rule.Kind == formconfig.RuleMinLength && len(text) < limit {
			return &FieldError{Kind: KindMinLength, Message: fmt.Sprintf("%s must be at least %d characters", displayName(field), limit)}, nil
		}
		if rule.Kind == formconfig.RuleMaxLength && len(text) > limit {
			return &FieldError{Kind: KindMaxLength, Message: fmt.Sprintf("%s must be at most %d characters", displayName(field), limit)}, nil
		}
	case formconfig.RulePattern:
		re, err := regexp.Compile(rule.Params["pattern"])
		if err != nil {
			return nil, &formconfig.ConfigError{SectionID: sec.ID, Field: field.Name, Message: "rule pattern: invalid expression"}
		}
		if !re.MatchString(toString(value)) {
			return &FieldError{Kind: KindPattern, Message: fmt.Sprintf("%s does not match the required format", displayName(field))}, nil
		}
	case formconfig.RuleMatchesField:
		other, err := v.resolveCrossField(sec, field, rule.Params["field"], flat)
		if err != nil {
			return nil, err
		}
		if toString(value) != toString(other) {
			return &FieldError{Kind: KindMatchesField, Message: fmt.Sprintf("%s must match %s", displayName(field), rule.Params["field"])}, nil
		}
	default:
		return nil, &formconfig.ConfigError{SectionID: sec.ID, Field: field.Name, Message: fmt.Sprintf("unknown validation rule %q", rule.Kind)}
	}
	return nil, nil
}

func (v *Validator) resolveCrossField(sec *formconfig.Section, field *formconfig.Field, target string, flat formdata.FlatFormData) (any, error) {
	target = strings.TrimSpace(target)
	if objectName, fieldName, ok := strings.Cut(target, "."); ok {
		other := v.config.SectionByObjectName(objectName)
		if other == nil || other.FieldByName(fieldName) == nil {
			return nil, &formconfig.ConfigError{SectionID: sec.ID, Field: field.Name, Message: fmt.Sprintf("rule matchesField: unresolvable target %q", target)}
		}
		value, _ := flat.Value(objectName, fieldName)
		return value, nil
	}
	if sec.FieldByName(target) == nil {
		return nil, &formconfig.ConfigError{SectionID: sec.ID, Field: field.Name, Message: fmt.Sprintf("rule matchesField: unresolvable target %q", target)}
	}
	value, _ := flat.Value(sec.ObjectName, target)
	return value, nil
}

func displayName(field *formconfig.Field) string {
	if field.Label != "" {
		return field.Label
	}
	return field.Name
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	default:
		return false
	}
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(value)
	}
}
