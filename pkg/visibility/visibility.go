// Package visibility decides which sections of a form are currently active.
// At configuration load it compiles every section's condition, extracts the
// cross-section dependency graph, and fixes a topological evaluation order;
// a cycle in that graph is a load-time failure because it would make the
// visible set depend on evaluation order.
package visibility

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-formstate/pkg/visibility/expr"
)

// ErrCyclicDependency tags cycle failures for errors.Is checks.
var ErrCyclicDependency = errors.New("visibility: cyclic dependency")

// CyclicDependencyError reports the sections participating in a visibility
// dependency cycle.
type CyclicDependencyError struct {
	SectionIDs []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("visibility: cyclic dependency between sections [%s]", strings.Join(e.SectionIDs, ", "))
}

// Is makes every CyclicDependencyError match ErrCyclicDependency.
func (e *CyclicDependencyError) Is(target error) bool {
	return target == ErrCyclicDependency
}

// Evaluator decides whether a single section's condition holds against the
// current flat data. The default implementation runs the compiled expression;
// callers can substitute their own (e.g. to consult feature flags), but
// conditions must stay parseable by the expr grammar since the dependency
// graph is extracted statically from it.
type Evaluator interface {
	Eval(sectionID, rule string, env expr.Env) (bool, error)
}

// EvaluatorFunc adapts a plain function into an Evaluator.
type EvaluatorFunc func(sectionID, rule string, env expr.Env) (bool, error)

// Eval delegates to the wrapped function.
func (fn EvaluatorFunc) Eval(sectionID, rule string, env expr.Env) (bool, error) {
	return fn(sectionID, rule, env)
}
