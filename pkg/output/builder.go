// Package output transforms the flat section-keyed snapshot into the nested
// document handed to submission pipelines. Non-integral sections open a nested
// object under their objectName; integral sections merge their fields into the
// object their parent is building.
package output

import (
	"fmt"

	"github.com/goliatone/go-formstate/pkg/formconfig"
	"github.com/goliatone/go-formstate/pkg/formdata"
)

// Document is the nested submission payload. It is ephemeral: built on
// demand and never retained by the engine.
type Document = map[string]any

// CollisionWarning reports an integral merge writing a key that the target
// object already holds. The later-declared value wins; the warning is
// advisory and never blocks the build.
type CollisionWarning struct {
	SectionID string
	Key       string
}

func (w CollisionWarning) String() string {
	return fmt.Sprintf("output: section %q overwrote key %q during integral merge", w.SectionID, w.Key)
}

// Build assembles the structured document from the flat data, including only
// sections in the visible set. Hidden sections' values stay behind in the
// flat data and the store, so restoring visibility restores prior input. The
// function is pure: same inputs, same document, no side effects.
func Build(cfg *formconfig.FormConfig, flat formdata.FlatFormData, visible []*formconfig.Section) (Document, []CollisionWarning) {
	visibleIDs := make(map[string]bool, len(visible))
	for _, sec := range visible {
		visibleIDs[sec.ID] = true
	}

	b := &builder{flat: flat, visible: visibleIDs}
	doc := make(Document)
	for i := range cfg.Sections {
		b.buildInto(doc, &cfg.Sections[i])
	}
	return doc, b.warnings
}

type builder struct {
	flat     formdata.FlatFormData
	visible  map[string]bool
	warnings []CollisionWarning
}

func (b *builder) buildInto(target map[string]any, sec *formconfig.Section) {
	if !b.visible[sec.ID] {
		return
	}

	if sec.Integral {
		b.mergeFields(target, sec)
		for i := range sec.Sections {
			b.buildInto(target, &sec.Sections[i])
		}
		return
	}

	obj := make(map[string]any, len(sec.Fields))
	b.mergeFields(obj, sec)
	for i := range sec.Sections {
		b.buildInto(obj, &sec.Sections[i])
	}
	if _, exists := target[sec.ObjectName]; exists {
		b.warnings = append(b.warnings, CollisionWarning{SectionID: sec.ID, Key: sec.ObjectName})
	}
	target[sec.ObjectName] = obj
}

// mergeFields copies the section's set values into target in declaration
// order, recording a warning for every key it overwrites.
func (b *builder) mergeFields(target map[string]any, sec *formconfig.Section) {
	values := b.flat.Section(sec.ObjectName)
	if values == nil {
		return
	}
	for i := range sec.Fields {
		name := sec.Fields[i].Name
		value, ok := values[name]
		if !ok || value == nil {
			continue
		}
		if _, exists := target[name]; exists {
			b.warnings = append(b.warnings, CollisionWarning{SectionID: sec.ID, Key: name})
		}
		target[name] = value
	}
}
