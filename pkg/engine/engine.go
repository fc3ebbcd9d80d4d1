// Package engine wires the value store, aggregator, visibility planner,
// validator, and output builder behind the surface renderers and submission
// pipelines consume. Construction performs every load-time check: a config
// that reaches a running Engine has unique ids, resolvable references, and an
// acyclic visibility graph.
package engine

import (
	"log/slog"

	"github.com/goliatone/go-formstate/internal/logging"
	"github.com/goliatone/go-formstate/pkg/formconfig"
	"github.com/goliatone/go-formstate/pkg/formdata"
	"github.com/goliatone/go-formstate/pkg/output"
	"github.com/goliatone/go-formstate/pkg/store"
	"github.com/goliatone/go-formstate/pkg/validation"
	"github.com/goliatone/go-formstate/pkg/visibility"
	"github.com/goliatone/go-formstate/pkg/visibility/expr"
)

// Option customises engine construction.
type Option func(*Engine)

// WithLogger attaches a logger. The default discards everything.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithEvaluator substitutes the visibility condition evaluator.
func WithEvaluator(ev visibility.Evaluator) Option {
	return func(e *Engine) {
		e.evaluator = ev
	}
}

// Engine is the form-state core. It follows a cooperative single-goroutine
// model: one logical turn per input event, synchronous writes, pull-based and
// memoized derived views.
type Engine struct {
	config    *formconfig.FormConfig
	store     *store.Store
	data      *formdata.Aggregator
	planner   *visibility.Planner
	validator *validation.Validator
	evaluator visibility.Evaluator
	log       *slog.Logger

	visCached  []*formconfig.Section
	visCacheAt uint64
	visCacheOK bool
}

// New validates the configuration, builds the visibility plan (failing fast
// on cycles and dangling references), and returns a ready engine.
func New(cfg *formconfig.FormConfig, options ...Option) (*Engine, error) {
	if err := formconfig.Validate(cfg); err != nil {
		return nil, err
	}

	e := &Engine{
		config: cfg,
		log:    logging.NewNop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(e)
		}
	}

	var plannerOpts []visibility.Option
	if e.evaluator != nil {
		plannerOpts = append(plannerOpts, visibility.WithEvaluator(e.evaluator))
	}
	planner, err := visibility.New(cfg, plannerOpts...)
	if err != nil {
		return nil, err
	}

	e.planner = planner
	e.store = store.New(cfg)
	e.data = formdata.New(cfg, e.store)
	e.validator = validation.New(cfg)
	e.log.Debug("engine initialised", "sections", len(planner.Order()))
	return e, nil
}

// Config returns the loaded configuration. Callers must treat it as
// read-only; the designer mutates its own copy and reloads.
func (e *Engine) Config() *formconfig.FormConfig {
	return e.config
}

// ReadField returns the current value for a field, nil when unset.
func (e *Engine) ReadField(sectionID, fieldName string) (any, error) {
	return e.store.Read(sectionID, fieldName)
}

// WriteField replaces one field's value. The write completes — value stored,
// caches invalidated, subscribers notified — before WriteField returns.
func (e *Engine) WriteField(sectionID, fieldName string, value any) error {
	if err := e.store.Write(sectionID, fieldName, value); err != nil {
		e.log.Error("write rejected", "section", sectionID, "field", fieldName, "err", err)
		return err
	}
	e.log.Debug("field written", "section", sectionID, "field", fieldName)
	return nil
}

// SubscribeField registers a callback for writes to one field and returns a
// cancel function. Writes to other fields never reach the callback.
func (e *Engine) SubscribeField(sectionID, fieldName string, fn store.Subscriber) (func(), error) {
	return e.store.Subscribe(sectionID, fieldName, fn)
}

// Snapshot returns the memoized flat view of all field values.
func (e *Engine) Snapshot() formdata.FlatFormData {
	return e.data.Snapshot()
}

// LoadSnapshot hydrates the store from a saved flat state, e.g. a draft
// resume before first render. Unknown keys are reported in the returned
// error; recognised values are still applied.
func (e *Engine) LoadSnapshot(data formdata.FlatFormData) error {
	if err := e.data.SetSnapshot(data); err != nil {
		e.log.Warn("snapshot hydration reported problems", "err", err)
		return err
	}
	return nil
}

// VisibleSections computes the currently active sections in dependency
// order, memoized against the store generation.
func (e *Engine) VisibleSections() ([]*formconfig.Section, error) {
	gen := e.store.Generation()
	if e.visCacheOK && e.visCacheAt == gen {
		return e.visCached, nil
	}
	visible, err := e.planner.Compute(e.envFromSnapshot())
	if err != nil {
		return nil, err
	}
	e.visCached = visible
	e.visCacheAt = gen
	e.visCacheOK = true
	return visible, nil
}

// Validate runs the multi-level validation pass over the visible sections.
// User-input failures come back inside the report, never as an error.
func (e *Engine) Validate() (validation.Report, error) {
	visible, err := e.VisibleSections()
	if err != nil {
		return validation.Report{}, err
	}
	return e.validator.Validate(e.data.Snapshot(), visible)
}

// BuildOutput produces the nested submission document from the current state,
// excluding hidden sections. Merge collisions are returned as warnings and
// logged; they never block the build.
func (e *Engine) BuildOutput() (output.Document, []output.CollisionWarning, error) {
	visible, err := e.VisibleSections()
	if err != nil {
		return nil, nil, err
	}
	doc, warnings := output.Build(e.config, e.data.Snapshot(), visible)
	for _, w := range warnings {
		e.log.Warn("merge collision", "section", w.SectionID, "key", w.Key)
	}
	return doc, warnings, nil
}

// Generation exposes the store's write counter for consumers that memoize
// their own derived state.
func (e *Engine) Generation() uint64 {
	return e.store.Generation()
}

func (e *Engine) envFromSnapshot() expr.Env {
	return expr.Env(e.data.Snapshot())
}
