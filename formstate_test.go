package formstate_test

import (
	"os"
	"path/filepath"
	"testing"

	formstate "github.com/goliatone/go-formstate"
)

const configYAML = `
sections:
  - id: contact
    objectName: contact
    title: Contact
    fields:
      - id: email
        name: email
        type: text
        required: true
  - id: newsletter
    objectName: newsletter
    visibleWhen: contact.email != ""
    fields:
      - id: frequency
        name: frequency
        type: select
        options: [daily, weekly]
`

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "form.yaml")
	if err := os.WriteFile(path, []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	eng, err := formstate.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	visible, err := eng.VisibleSections()
	if err != nil {
		t.Fatalf("VisibleSections: %v", err)
	}
	if len(visible) != 1 || visible[0].ID != "contact" {
		t.Fatalf("only contact should start visible, got %v", visible)
	}

	if err := eng.WriteField("contact", "email", "ada@example.com"); err != nil {
		t.Fatalf("WriteField: %v", err)
	}
	visible, err = eng.VisibleSections()
	if err != nil {
		t.Fatalf("VisibleSections: %v", err)
	}
	if len(visible) != 2 {
		t.Fatalf("newsletter should appear once email is set, got %v", visible)
	}
}

func TestParseJSONRejectsBrokenConfig(t *testing.T) {
	t.Parallel()

	if _, err := formstate.ParseJSON([]byte(`{"sections": [{"id": ""}]}`)); err == nil {
		t.Fatal("expected error for invalid configuration")
	}
}
