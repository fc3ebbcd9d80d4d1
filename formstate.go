// Package formstate is the convenience surface over the form-state engine:
// load a configuration, get a running engine, and hand its output to your
// submission pipeline. The heavy lifting lives in pkg/engine and friends;
// this package only re-exports the common entry points.
package formstate

import (
	"github.com/goliatone/go-formstate/pkg/engine"
	"github.com/goliatone/go-formstate/pkg/formconfig"
	"github.com/goliatone/go-formstate/pkg/formdata"
)

// Engine re-exports the engine type for callers that only import the root.
type Engine = engine.Engine

// Option re-exports engine options.
type Option = engine.Option

// FlatFormData re-exports the flat snapshot type used for drafts.
type FlatFormData = formdata.FlatFormData

// WithLogger re-exports the logger option.
var WithLogger = engine.WithLogger

// WithEvaluator re-exports the visibility evaluator option.
var WithEvaluator = engine.WithEvaluator

// New builds an engine from an already-decoded configuration.
func New(cfg *formconfig.FormConfig, options ...Option) (*Engine, error) {
	return engine.New(cfg, options...)
}

// Load reads a configuration file (JSON or YAML by extension) and builds an
// engine from it, failing fast on any configuration error.
func Load(path string, options ...Option) (*Engine, error) {
	cfg, err := formconfig.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return engine.New(cfg, options...)
}

// ParseJSON builds an engine from a JSON configuration document.
func ParseJSON(data []byte, options ...Option) (*Engine, error) {
	cfg, err := formconfig.ParseJSON(data)
	if err != nil {
		return nil, err
	}
	return engine.New(cfg, options...)
}
