package visibility

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-formstate/pkg/formconfig"
	"github.com/goliatone/go-formstate/pkg/visibility/expr"
)

// Option customises planner construction.
type Option func(*Planner)

// WithEvaluator substitutes the condition evaluator used at compute time.
func WithEvaluator(ev Evaluator) Option {
	return func(p *Planner) {
		if ev != nil {
			p.evaluator = ev
		}
	}
}

// Planner holds the compiled conditions and the fixed topological evaluation
// order for one configuration. It is immutable after New and safe to reuse
// across snapshots.
type Planner struct {
	config    *formconfig.FormConfig
	evaluator Evaluator

	order    []*formconfig.Section       // topological, stable by declaration
	programs map[string]*expr.Program    // section id -> compiled condition
	deps     map[string][]string         // section id -> ids it depends on
	parents  map[string]string           // section id -> parent section id
	declared []*formconfig.Section       // declaration (depth-first) order
	byID     map[string]*formconfig.Section
}

// New compiles every section condition, builds the dependency graph, and
// fixes the evaluation order. It fails with a ConfigError for dangling
// references and with a CyclicDependencyError when the graph is not a DAG,
// before any field can be read or written.
func New(cfg *formconfig.FormConfig, options ...Option) (*Planner, error) {
	p := &Planner{
		config:   cfg,
		programs: make(map[string]*expr.Program),
		deps:     make(map[string][]string),
		parents:  make(map[string]string),
		byID:     make(map[string]*formconfig.Section),
	}
	for _, opt := range options {
		if opt != nil {
			opt(p)
		}
	}

	cfg.Walk(func(sec *formconfig.Section, parent *formconfig.Section) bool {
		p.declared = append(p.declared, sec)
		p.byID[sec.ID] = sec
		if parent != nil {
			p.parents[sec.ID] = parent.ID
		}
		return true
	})

	for _, sec := range p.declared {
		if err := p.compileSection(sec); err != nil {
			return nil, err
		}
	}

	order, err := p.sortTopologically()
	if err != nil {
		return nil, err
	}
	p.order = order
	return p, nil
}

func (p *Planner) compileSection(sec *formconfig.Section) error {
	program, err := expr.Compile(sec.VisibleWhen)
	if err != nil {
		return &formconfig.ConfigError{SectionID: sec.ID, Message: fmt.Sprintf("visibility condition: %v", err)}
	}
	p.programs[sec.ID] = program

	seen := make(map[string]struct{})
	for _, ident := range program.Identifiers() {
		objectName, fieldName, ok := strings.Cut(ident, ".")
		if !ok {
			return &formconfig.ConfigError{SectionID: sec.ID, Message: fmt.Sprintf("visibility condition references %q; expected objectName.fieldName", ident)}
		}
		target := p.config.SectionByObjectName(objectName)
		if target == nil {
			return &formconfig.ConfigError{SectionID: sec.ID, Message: fmt.Sprintf("visibility condition references unknown section %q", objectName)}
		}
		if target.FieldByName(fieldName) == nil {
			return &formconfig.ConfigError{SectionID: sec.ID, Message: fmt.Sprintf("visibility condition references unknown field %q in section %q", fieldName, objectName)}
		}
		if target.ID == sec.ID || p.isDescendant(target.ID, sec.ID) {
			return &formconfig.ConfigError{SectionID: sec.ID, Message: fmt.Sprintf("visibility condition may not reference own section or descendants (references %q)", objectName)}
		}
		if _, dup := seen[target.ID]; !dup {
			seen[target.ID] = struct{}{}
			p.deps[sec.ID] = append(p.deps[sec.ID], target.ID)
		}
	}
	sort.Strings(p.deps[sec.ID])
	return nil
}

// isDescendant reports whether candidate sits below ancestor in the tree.
func (p *Planner) isDescendant(candidate, ancestor string) bool {
	for id := candidate; id != ""; id = p.parents[id] {
		if p.parents[id] == ancestor {
			return true
		}
	}
	return false
}

// sortTopologically runs Kahn's algorithm, keeping declaration order among
// unconstrained sections so the result is deterministic.
func (p *Planner) sortTopologically() ([]*formconfig.Section, error) {
	placed := make(map[string]bool, len(p.declared))
	order := make([]*formconfig.Section, 0, len(p.declared))

	for len(order) < len(p.declared) {
		progressed := false
		for _, sec := range p.declared {
			if placed[sec.ID] {
				continue
			}
			ready := true
			for _, dep := range p.deps[sec.ID] {
				if !placed[dep] {
					ready = false
					break
				}
			}
			if ready {
				placed[sec.ID] = true
				order = append(order, sec)
				progressed = true
			}
		}
		if !progressed {
			return nil, &CyclicDependencyError{SectionIDs: p.cycleParticipants(placed)}
		}
	}
	return order, nil
}

// cycleParticipants trims the unplaced set down to the sections actually on a
// cycle, dropping nodes that merely depend on one.
func (p *Planner) cycleParticipants(placed map[string]bool) []string {
	remaining := make(map[string]bool)
	for _, sec := range p.declared {
		if !placed[sec.ID] {
			remaining[sec.ID] = true
		}
	}

	for {
		trimmed := false
		for id := range remaining {
			dependsOnRemaining := false
			for _, dep := range p.deps[id] {
				if remaining[dep] {
					dependsOnRemaining = true
					break
				}
			}
			dependedOnByRemaining := false
			for other := range remaining {
				if other == id {
					continue
				}
				for _, dep := range p.deps[other] {
					if dep == id {
						dependedOnByRemaining = true
						break
					}
				}
				if dependedOnByRemaining {
					break
				}
			}
			if !dependsOnRemaining || !dependedOnByRemaining {
				delete(remaining, id)
				trimmed = true
			}
		}
		if !trimmed {
			break
		}
	}

	ids := make([]string, 0, len(remaining))
	for id := range remaining {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Order returns the section ids in evaluation order. Exposed for tests and
// diagnostics.
func (p *Planner) Order() []string {
	out := make([]string, len(p.order))
	for i, sec := range p.order {
		out[i] = sec.ID
	}
	return out
}

// DependenciesOf returns the section ids a section's condition reads.
func (p *Planner) DependenciesOf(sectionID string) []string {
	return p.deps[sectionID]
}

// Compute evaluates every condition in topological order against the given
// environment and returns the visible sections. A section without a condition
// is visible; a hidden section hides all of its descendants regardless of
// their own conditions, since their data was never presented for input.
// Compute is a pure function of its input; memoization belongs to the caller.
func (p *Planner) Compute(env expr.Env) ([]*formconfig.Section, error) {
	visible := make(map[string]bool, len(p.declared))

	for _, sec := range p.order {
		rule := strings.TrimSpace(sec.VisibleWhen)
		if rule == "" {
			visible[sec.ID] = true
			continue
		}
		var (
			ok  bool
			err error
		)
		if p.evaluator != nil {
			ok, err = p.evaluator.Eval(sec.ID, rule, env)
		} else {
			ok, err = p.programs[sec.ID].Eval(env)
		}
		if err != nil {
			return nil, fmt.Errorf("visibility: section %q: %w", sec.ID, err)
		}
		visible[sec.ID] = ok
	}

	// Declaration order visits parents first, so one pass suffices to
	// propagate hiding downward.
	for _, sec := range p.declared {
		if parent, ok := p.parents[sec.ID]; ok && !visible[parent] {
			visible[sec.ID] = false
		}
	}

	out := make([]*formconfig.Section, 0, len(p.order))
	for _, sec := range p.order {
		if visible[sec.ID] {
			out = append(out, sec)
		}
	}
	return out, nil
}
