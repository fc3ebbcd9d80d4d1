package formdata_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/pkg/formconfig"
	"github.com/goliatone/go-formstate/pkg/formdata"
	"github.com/goliatone/go-formstate/pkg/store"
)

func newFixture() (*formconfig.FormConfig, *store.Store, *formdata.Aggregator) {
	cfg := &formconfig.FormConfig{
		Sections: []formconfig.Section{
			{
				ID:         "profile",
				ObjectName: "profile",
				Fields: []formconfig.Field{
					{ID: "name", Name: "name", Type: formconfig.FieldTypeText},
				},
				Sections: []formconfig.Section{
					{
						ID:         "contact",
						ObjectName: "contact",
						Fields: []formconfig.Field{
							{ID: "email", Name: "email", Type: formconfig.FieldTypeText},
						},
					},
				},
			},
		},
	}
	st := store.New(cfg)
	return cfg, st, formdata.New(cfg, st)
}

func TestSnapshotIsFlatBySection(t *testing.T) {
	t.Parallel()

	_, st, agg := newFixture()
	if err := st.Write("profile", "name", "Ada"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := st.Write("contact", "email", "ada@example.com"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	want := formdata.FlatFormData{
		"profile": {"name": "Ada"},
		"contact": {"email": "ada@example.com"},
	}
	if diff := cmp.Diff(want, agg.Snapshot()); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshotMemoized(t *testing.T) {
	t.Parallel()

	_, st, agg := newFixture()
	first := agg.Snapshot()
	second := agg.Snapshot()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("repeated snapshots differ (-first +second):\n%s", diff)
	}
	if agg.Recomputes() != 1 {
		t.Fatalf("expected a single recompute, got %d", agg.Recomputes())
	}

	if err := st.Write("profile", "name", "Grace"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	_ = agg.Snapshot()
	if agg.Recomputes() != 2 {
		t.Fatalf("expected recompute after write, got %d", agg.Recomputes())
	}
}

func TestSetSnapshotHydrates(t *testing.T) {
	t.Parallel()

	_, st, agg := newFixture()
	err := agg.SetSnapshot(formdata.FlatFormData{
		"profile": {"name": "Ada"},
		"contact": {"email": "ada@example.com"},
	})
	if err != nil {
		t.Fatalf("SetSnapshot: %v", err)
	}

	value, err := st.Read("profile", "name")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if value != "Ada" {
		t.Fatalf("expected hydrated value, got %v", value)
	}
}

func TestSetSnapshotReportsUnknownKeys(t *testing.T) {
	t.Parallel()

	_, st, agg := newFixture()
	err := agg.SetSnapshot(formdata.FlatFormData{
		"profile": {"name": "Ada", "ghost": "boo"},
		"phantom": {"x": 1},
	})
	if err == nil {
		t.Fatal("expected error for unknown keys")
	}
	if !errors.Is(err, store.ErrUnknownField) {
		t.Fatalf("expected unknown-field error in the chain, got %v", err)
	}

	// Recognised values are still applied.
	value, readErr := st.Read("profile", "name")
	if readErr != nil {
		t.Fatalf("Read: %v", readErr)
	}
	if value != "Ada" {
		t.Fatalf("expected partial hydration to keep valid values, got %v", value)
	}
}
