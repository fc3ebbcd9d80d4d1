package formconfig

// FieldType is the simplified enum for form-friendly field kinds.
type FieldType string

const (
	FieldTypeText    FieldType = "text"
	FieldTypeNumber  FieldType = "number"
	FieldTypeDate    FieldType = "date"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeSelect  FieldType = "select"
)

const (
	RuleMin          = "min"
	RuleMax          = "max"
	RuleMinLength    = "minLength"
	RuleMaxLength    = "maxLength"
	RulePattern      = "pattern"
	RuleMatchesField = "matchesField"
)

// ValidationRule represents a single validation constraint applied to a field.
// Use the Rule* constants for canonical kinds. Numeric bounds and length limits
// encode their threshold in Params["value"], pattern rules keep the expression
// in Params["pattern"], and cross-field rules name their target in
// Params["field"] either as "objectName.fieldName" or as a bare sibling name.
type ValidationRule struct {
	Kind   string            `json:"kind" yaml:"kind" mapstructure:"kind"`
	Params map[string]string `json:"params,omitempty" yaml:"params,omitempty" mapstructure:"params"`
}

// Field models an individual input inside a section. Names are unique within
// their owning section; the (section id, field name) pair addresses a value in
// the store.
type Field struct {
	ID          string           `json:"id" yaml:"id" mapstructure:"id"`
	Name        string           `json:"name" yaml:"name" mapstructure:"name"`
	Type        FieldType        `json:"type" yaml:"type" mapstructure:"type"`
	Label       string           `json:"label,omitempty" yaml:"label,omitempty" mapstructure:"label"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Required    bool             `json:"required" yaml:"required" mapstructure:"required"`
	Default     any              `json:"default,omitempty" yaml:"default,omitempty" mapstructure:"default"`
	Options     []string         `json:"options,omitempty" yaml:"options,omitempty" mapstructure:"options"`
	Validations []ValidationRule `json:"validations,omitempty" yaml:"validations,omitempty" mapstructure:"validations"`
}

// Section groups fields under an object name and may nest further sections.
// Integral sections contribute their fields to the parent object in the
// structured output instead of opening a nested object of their own.
// VisibleWhen holds a boolean expression over other sections' data; an empty
// expression means the section is always visible.
type Section struct {
	ID          string    `json:"id" yaml:"id" mapstructure:"id"`
	ObjectName  string    `json:"objectName" yaml:"objectName" mapstructure:"objectName"`
	Title       string    `json:"title,omitempty" yaml:"title,omitempty" mapstructure:"title"`
	Integral    bool      `json:"integral" yaml:"integral" mapstructure:"integral"`
	Fields      []Field   `json:"fields,omitempty" yaml:"fields,omitempty" mapstructure:"fields"`
	Sections    []Section `json:"sections,omitempty" yaml:"sections,omitempty" mapstructure:"sections"`
	VisibleWhen string    `json:"visibleWhen,omitempty" yaml:"visibleWhen,omitempty" mapstructure:"visibleWhen"`
}

// FormConfig is the root document the designer hands to the engine. It is
// immutable once loaded; the designer mutates its own copy and reloads.
type FormConfig struct {
	RenderTarget string    `json:"renderTarget,omitempty" yaml:"renderTarget,omitempty" mapstructure:"renderTarget"`
	Sections     []Section `json:"sections" yaml:"sections" mapstructure:"sections"`
}

// Walk visits every section depth-first in declaration order, parents before
// children. The callback receives the section and its parent (nil for
// top-level sections). Returning false stops the walk.
func (c *FormConfig) Walk(fn func(sec *Section, parent *Section) bool) {
	var visit func(secs []Section, parent *Section) bool
	visit = func(secs []Section, parent *Section) bool {
		for i := range secs {
			if !fn(&secs[i], parent) {
				return false
			}
			if !visit(secs[i].Sections, &secs[i]) {
				return false
			}
		}
		return true
	}
	visit(c.Sections, nil)
}

// SectionByID returns the section with the given id, or nil.
func (c *FormConfig) SectionByID(id string) *Section {
	var found *Section
	c.Walk(func(sec *Section, _ *Section) bool {
		if sec.ID == id {
			found = sec
			return false
		}
		return true
	})
	return found
}

// SectionByObjectName returns the section keyed by the given object name, or
// nil. Object names are unique across the config (enforced at load).
func (c *FormConfig) SectionByObjectName(name string) *Section {
	var found *Section
	c.Walk(func(sec *Section, _ *Section) bool {
		if sec.ObjectName == name {
			found = sec
			return false
		}
		return true
	})
	return found
}

// FieldByName returns the field with the given name, or nil.
func (s *Section) FieldByName(name string) *Field {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i]
		}
	}
	return nil
}

// HasField reports whether the config defines a field addressed by section id
// and field name.
func (c *FormConfig) HasField(sectionID, fieldName string) bool {
	sec := c.SectionByID(sectionID)
	if sec == nil {
		return false
	}
	return sec.FieldByName(fieldName) != nil
}
