package validation_test

import (
	"testing"

	"github.com/goliatone/go-formstate/pkg/formconfig"
	"github.com/goliatone/go-formstate/pkg/formdata"
	"github.com/goliatone/go-formstate/pkg/validation"
)

func allSections(cfg *formconfig.FormConfig) []*formconfig.Section {
	var out []*formconfig.Section
	cfg.Walk(func(sec *formconfig.Section, _ *formconfig.Section) bool {
		out = append(out, sec)
		return true
	})
	return out
}

func accountConfig() *formconfig.FormConfig {
	return &formconfig.FormConfig{
		Sections: []formconfig.Section{
			{
				ID:         "account",
				ObjectName: "account",
				Fields: []formconfig.Field{
					{ID: "email", Name: "email", Type: formconfig.FieldTypeText, Required: true, Validations: []formconfig.ValidationRule{
						{Kind: formconfig.RulePattern, Params: map[string]string{"pattern": `^[^@\s]+@[^@\s]+$`}},
					}},
					{ID: "password", Name: "password", Type: formconfig.FieldTypeText, Required: true, Validations: []formconfig.ValidationRule{
						{Kind: formconfig.RuleMinLength, Params: map[string]string{"value": "8"}},
					}},
					{ID: "confirm", Name: "confirm", Type: formconfig.FieldTypeText, Validations: []formconfig.ValidationRule{
						{Kind: formconfig.RuleMatchesField, Params: map[string]string{"field": "password"}},
					}},
					{ID: "age", Name: "age", Type: formconfig.FieldTypeNumber, Validations: []formconfig.ValidationRule{
						{Kind: formconfig.RuleMin, Params: map[string]string{"value": "18"}},
						{Kind: formconfig.RuleMax, Params: map[string]string{"value": "130"}},
					}},
				},
			},
		},
	}
}

func validate(t *testing.T, cfg *formconfig.FormConfig, flat formdata.FlatFormData) validation.Report {
	t.Helper()
	report, err := validation.New(cfg).Validate(flat, allSections(cfg))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return report
}

func kinds(errs []validation.FieldError) []validation.Kind {
	out := make([]validation.Kind, len(errs))
	for i, e := range errs {
		out[i] = e.Kind
	}
	return out
}

func TestValidInput(t *testing.T) {
	t.Parallel()

	report := validate(t, accountConfig(), formdata.FlatFormData{
		"account": {
			"email":    "ada@example.com",
			"password": "correcthorse",
			"confirm":  "correcthorse",
			"age":      30,
		},
	})
	if !report.Valid {
		t.Fatalf("expected valid report, got %+v", report.Fields)
	}
	if !report.SectionValid("account") {
		t.Fatal("section should be valid")
	}
}

func TestRequiredAndPattern(t *testing.T) {
	t.Parallel()

	report := validate(t, accountConfig(), formdata.FlatFormData{
		"account": {"email": "not-an-email", "password": nil, "confirm": nil, "age": nil},
	})
	if report.Valid {
		t.Fatal("expected invalid report")
	}

	emailKinds := kinds(report.FieldErrors("account", "email"))
	if len(emailKinds) != 1 || emailKinds[0] != validation.KindPattern {
		t.Fatalf("expected pattern error for email, got %v", emailKinds)
	}
	passwordKinds := kinds(report.FieldErrors("account", "password"))
	if len(passwordKinds) != 1 || passwordKinds[0] != validation.KindRequired {
		t.Fatalf("expected required error for password, got %v", passwordKinds)
	}
	// Optional empty age triggers nothing.
	if errs := report.FieldErrors("account", "age"); len(errs) != 0 {
		t.Fatalf("unexpected errors for age: %v", errs)
	}
}

func TestNumericRange(t *testing.T) {
	t.Parallel()

	report := validate(t, accountConfig(), formdata.FlatFormData{
		"account": {"email": "a@b.c", "password": "longenough", "confirm": "longenough", "age": 12},
	})
	ageKinds := kinds(report.FieldErrors("account", "age"))
	if len(ageKinds) != 1 || ageKinds[0] != validation.KindMin {
		t.Fatalf("expected min error for age, got %v", ageKinds)
	}

	report = validate(t, accountConfig(), formdata.FlatFormData{
		"account": {"email": "a@b.c", "password": "longenough", "confirm": "longenough", "age": "200"},
	})
	ageKinds = kinds(report.FieldErrors("account", "age"))
	if len(ageKinds) != 1 || ageKinds[0] != validation.KindMax {
		t.Fatalf("expected max error for age via string coercion, got %v", ageKinds)
	}
}

func TestCrossFieldMismatch(t *testing.T) {
	t.Parallel()

	report := validate(t, accountConfig(), formdata.FlatFormData{
		"account": {"email": "a@b.c", "password": "longenough", "confirm": "different", "age": 30},
	})
	confirmKinds := kinds(report.FieldErrors("account", "confirm"))
	if len(confirmKinds) != 1 || confirmKinds[0] != validation.KindMatchesField {
		t.Fatalf("expected matchesField error, got %v", confirmKinds)
	}
}

func TestCrossSectionReference(t *testing.T) {
	t.Parallel()

	cfg := &formconfig.FormConfig{
		Sections: []formconfig.Section{
			{
				ID:         "primary",
				ObjectName: "primary",
				Fields:     []formconfig.Field{{ID: "code", Name: "code", Type: formconfig.FieldTypeText}},
			},
			{
				ID:         "secondary",
				ObjectName: "secondary",
				Fields: []formconfig.Field{
					{ID: "codeCopy", Name: "codeCopy", Type: formconfig.FieldTypeText, Validations: []formconfig.ValidationRule{
						{Kind: formconfig.RuleMatchesField, Params: map[string]string{"field": "primary.code"}},
					}},
				},
			},
		},
	}

	report := validate(t, cfg, formdata.FlatFormData{
		"primary":   {"code": "alpha"},
		"secondary": {"codeCopy": "beta"},
	})
	if report.Valid {
		t.Fatal("expected mismatch to fail")
	}

	report = validate(t, cfg, formdata.FlatFormData{
		"primary":   {"code": "alpha"},
		"secondary": {"codeCopy": "alpha"},
	})
	if !report.Valid {
		t.Fatalf("expected match to pass, got %+v", report.Fields)
	}
}

func TestHiddenSectionsSkipped(t *testing.T) {
	t.Parallel()

	cfg := accountConfig()
	report, err := validation.New(cfg).Validate(formdata.FlatFormData{
		"account": {"email": nil, "password": nil, "confirm": nil, "age": nil},
	}, nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !report.Valid {
		t.Fatal("hidden sections must not be validated")
	}
	if len(report.Fields) != 0 {
		t.Fatalf("hidden section produced field errors: %v", report.Fields)
	}
}

func TestSectionRollup(t *testing.T) {
	t.Parallel()

	cfg := &formconfig.FormConfig{
		Sections: []formconfig.Section{
			{
				ID:         "outer",
				ObjectName: "outer",
				Fields:     []formconfig.Field{{ID: "ok", Name: "ok", Type: formconfig.FieldTypeText}},
				Sections: []formconfig.Section{
					{
						ID:         "inner",
						ObjectName: "inner",
						Fields: []formconfig.Field{
							{ID: "must", Name: "must", Type: formconfig.FieldTypeText, Required: true},
						},
					},
				},
			},
		},
	}

	report := validate(t, cfg, formdata.FlatFormData{
		"outer": {"ok": "fine"},
		"inner": {"must": nil},
	})
	if report.Valid {
		t.Fatal("form should be invalid")
	}
	if report.SectionValid("inner") {
		t.Fatal("inner section should be invalid")
	}
	if report.SectionValid("outer") {
		t.Fatal("outer section should roll up its subsection failure")
	}
}
