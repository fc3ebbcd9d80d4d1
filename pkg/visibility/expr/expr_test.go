package expr_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/pkg/visibility/expr"
)

func mustCompile(t *testing.T, rule string) *expr.Program {
	t.Helper()
	program, err := expr.Compile(rule)
	if err != nil {
		t.Fatalf("Compile(%q): %v", rule, err)
	}
	return program
}

func evalBool(t *testing.T, rule string, env expr.Env) bool {
	t.Helper()
	ok, err := mustCompile(t, rule).Eval(env)
	if err != nil {
		t.Fatalf("Eval(%q): %v", rule, err)
	}
	return ok
}

func TestEmptyRuleAlwaysTrue(t *testing.T) {
	t.Parallel()

	if !evalBool(t, "", nil) {
		t.Fatal("empty rule should be true")
	}
	if !evalBool(t, "   ", nil) {
		t.Fatal("blank rule should be true")
	}
}

func TestComparisons(t *testing.T) {
	t.Parallel()

	env := expr.Env{
		"billing": {"billingType": "different", "amount": 42.0, "express": true},
	}

	tests := []struct {
		rule string
		want bool
	}{
		{`billing.billingType == "different"`, true},
		{`billing.billingType != "different"`, false},
		{`billing.billingType == 'same'`, false},
		{`billing.amount == 42`, true},
		{`billing.amount > 40`, true},
		{`billing.amount >= 42`, true},
		{`billing.amount < 42`, false},
		{`billing.amount <= 41`, false},
		{`billing.express == true`, true},
		{`billing.express != false`, true},
		{`billing.missing == null`, true},
		{`billing.missing != null`, false},
	}
	for _, tt := range tests {
		if got := evalBool(t, tt.rule, env); got != tt.want {
			t.Errorf("Eval(%q) = %v, want %v", tt.rule, got, tt.want)
		}
	}
}

func TestBooleanComposition(t *testing.T) {
	t.Parallel()

	env := expr.Env{
		"a": {"x": true},
		"b": {"y": "no"},
	}

	tests := []struct {
		rule string
		want bool
	}{
		{`a.x && b.y == "no"`, true},
		{`a.x && b.y == "yes"`, false},
		{`a.x || b.y == "yes"`, true},
		{`!a.x || b.y == "no"`, true},
		{`!(a.x && b.y == "no")`, false},
	}
	for _, tt := range tests {
		if got := evalBool(t, tt.rule, env); got != tt.want {
			t.Errorf("Eval(%q) = %v, want %v", tt.rule, got, tt.want)
		}
	}
}

func TestTruthiness(t *testing.T) {
	t.Parallel()

	env := expr.Env{
		"form": {"name": "Ada", "blank": "  ", "zero": 0, "count": 3},
	}

	tests := []struct {
		rule string
		want bool
	}{
		{"form.name", true},
		{"form.blank", false},
		{"form.zero", false},
		{"form.count", true},
		{"form.unset", false},
	}
	for _, tt := range tests {
		if got := evalBool(t, tt.rule, env); got != tt.want {
			t.Errorf("Eval(%q) = %v, want %v", tt.rule, got, tt.want)
		}
	}
}

func TestStringCoercion(t *testing.T) {
	t.Parallel()

	env := expr.Env{"form": {"flag": "true", "count": "3"}}
	if !evalBool(t, "form.flag == true", env) {
		t.Fatal("string \"true\" should compare equal to bool true")
	}
	if !evalBool(t, "form.count == 3", env) {
		t.Fatal("string \"3\" should compare equal to number 3")
	}
}

func TestIdentifiers(t *testing.T) {
	t.Parallel()

	program := mustCompile(t, `a.x == 1 && (b.y || a.x != 2) && !c.z`)
	want := []string{"a.x", "b.y", "c.z"}
	if diff := cmp.Diff(want, program.Identifiers()); diff != "" {
		t.Fatalf("identifiers mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	bad := []string{
		`a.x = 1`,
		`a.x &&`,
		`(a.x`,
		`a.x == `,
		`"unterminated`,
		`a.x & b.y`,
	}
	for _, rule := range bad {
		if _, err := expr.Compile(rule); err == nil {
			t.Errorf("Compile(%q) succeeded, want error", rule)
		}
	}
}

func TestUnqualifiedIdentifierResolvesToNil(t *testing.T) {
	t.Parallel()

	// Identifiers must be objectName.fieldName; a bare name reads nothing.
	if evalBool(t, "standalone", expr.Env{"standalone": {"standalone": true}}) {
		t.Fatal("bare identifier should not resolve")
	}
}
