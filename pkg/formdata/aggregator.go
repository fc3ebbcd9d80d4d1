// Package formdata assembles the flat, section-keyed view of the value store
// that the visibility evaluator, validator, and output builder consume.
package formdata

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-formstate/pkg/formconfig"
	"github.com/goliatone/go-formstate/pkg/store"
)

// FlatFormData maps section objectName -> fieldName -> current value. The
// structure is flat by depth: subsections appear as their own top-level keys,
// never nested inside their parent's map.
type FlatFormData map[string]map[string]any

// Section returns the value map for an objectName, or nil.
func (d FlatFormData) Section(objectName string) map[string]any {
	return d[objectName]
}

// Value returns the value under objectName.fieldName and whether it exists.
func (d FlatFormData) Value(objectName, fieldName string) (any, bool) {
	sec, ok := d[objectName]
	if !ok {
		return nil, false
	}
	v, ok := sec[fieldName]
	return v, ok
}

// Aggregator derives FlatFormData from the store, caching the result until
// the store's generation moves.
type Aggregator struct {
	config     *formconfig.FormConfig
	store      *store.Store
	cached     FlatFormData
	cachedGen  uint64
	hasCache   bool
	recomputes uint64
}

// New binds an aggregator to a configuration and its store.
func New(cfg *formconfig.FormConfig, st *store.Store) *Aggregator {
	return &Aggregator{config: cfg, store: st}
}

// Snapshot returns the flat view of every configured field. Repeated calls
// between writes return the same cached map in O(1); callers must treat it as
// read-only.
func (a *Aggregator) Snapshot() FlatFormData {
	gen := a.store.Generation()
	if a.hasCache && a.cachedGen == gen {
		return a.cached
	}

	flat := make(FlatFormData)
	a.config.Walk(func(sec *formconfig.Section, _ *formconfig.Section) bool {
		values := make(map[string]any, len(sec.Fields))
		for i := range sec.Fields {
			// Keys come straight from the config, so reads cannot miss.
			v, _ := a.store.Read(sec.ID, sec.Fields[i].Name)
			values[sec.Fields[i].Name] = v
		}
		flat[sec.ObjectName] = values
		return true
	})

	a.cached = flat
	a.cachedGen = gen
	a.hasCache = true
	a.recomputes++
	return flat
}

// SetSnapshot hydrates the store from a previously saved flat state, e.g. a
// draft resume. Per-keystroke updates go through store.Write directly; this
// bulk path exists only for initialisation. Values addressing sections or
// fields the configuration does not define are skipped and reported in the
// returned error; all recognised values are still applied.
func (a *Aggregator) SetSnapshot(data FlatFormData) error {
	var errs []error
	for objectName, values := range data {
		sec := a.config.SectionByObjectName(objectName)
		if sec == nil {
			errs = append(errs, fmt.Errorf("formdata: snapshot references unknown section %q", objectName))
			continue
		}
		for fieldName, value := range values {
			if err := a.store.Write(sec.ID, fieldName, value); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Recomputes counts full snapshot rebuilds, observable so tests can assert
// that cached reads do not recompute.
func (a *Aggregator) Recomputes() uint64 {
	return a.recomputes
}
