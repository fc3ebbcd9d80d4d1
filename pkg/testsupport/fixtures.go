// Package testsupport provides canonical configurations shared by the test
// suites. Helpers take testing.T and fail fast to keep the tests concise.
package testsupport

import (
	"testing"

	"github.com/goliatone/go-formstate/pkg/engine"
	"github.com/goliatone/go-formstate/pkg/formconfig"
)

// ProfileConfig is the reference config used across the suites: a
// non-integral personalInfo section with an integral address subsection, plus
// a billing-driven conditional shipping section.
func ProfileConfig() *formconfig.FormConfig {
	return &formconfig.FormConfig{
		Sections: []formconfig.Section{
			{
				ID:         "personalInfo",
				ObjectName: "personalInfo",
				Title:      "Personal Info",
				Fields: []formconfig.Field{
					{ID: "firstName", Name: "firstName", Type: formconfig.FieldTypeText, Required: true},
					{ID: "lastName", Name: "lastName", Type: formconfig.FieldTypeText, Required: true},
				},
				Sections: []formconfig.Section{
					{
						ID:         "address",
						ObjectName: "address",
						Integral:   true,
						Fields: []formconfig.Field{
							{ID: "street", Name: "street", Type: formconfig.FieldTypeText},
							{ID: "city", Name: "city", Type: formconfig.FieldTypeText},
						},
					},
				},
			},
			{
				ID:         "billing",
				ObjectName: "billing",
				Fields: []formconfig.Field{
					{ID: "billingType", Name: "billingType", Type: formconfig.FieldTypeSelect, Options: []string{"same", "different"}},
				},
			},
			{
				ID:          "shipping",
				ObjectName:  "shipping",
				VisibleWhen: `billing.billingType == "different"`,
				Fields: []formconfig.Field{
					{ID: "street", Name: "street", Type: formconfig.FieldTypeText},
					{ID: "city", Name: "city", Type: formconfig.FieldTypeText},
				},
			},
		},
	}
}

// CyclicConfig returns a config whose two sections depend on each other's
// data, which must be rejected at load time.
func CyclicConfig() *formconfig.FormConfig {
	return &formconfig.FormConfig{
		Sections: []formconfig.Section{
			{
				ID:          "a",
				ObjectName:  "a",
				VisibleWhen: "b.flag == true",
				Fields:      []formconfig.Field{{ID: "flag", Name: "flag", Type: formconfig.FieldTypeBoolean}},
			},
			{
				ID:          "b",
				ObjectName:  "b",
				VisibleWhen: "a.flag == true",
				Fields:      []formconfig.Field{{ID: "flag", Name: "flag", Type: formconfig.FieldTypeBoolean}},
			},
		},
	}
}

// MustEngine builds an engine from the config or fails the test.
func MustEngine(t *testing.T, cfg *formconfig.FormConfig, options ...engine.Option) *engine.Engine {
	t.Helper()
	eng, err := engine.New(cfg, options...)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return eng
}

// MustWrite writes a field value or fails the test.
func MustWrite(t *testing.T, eng *engine.Engine, sectionID, fieldName string, value any) {
	t.Helper()
	if err := eng.WriteField(sectionID, fieldName, value); err != nil {
		t.Fatalf("WriteField(%s, %s): %v", sectionID, fieldName, err)
	}
}
