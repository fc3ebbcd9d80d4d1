// Package store holds the single source of truth for field values: one
// reactive cell per (section id, field name) pair. Every derived view in the
// engine is a pure function of this store's current contents plus the static
// configuration.
//
// The store follows the engine's cooperative single-goroutine model: writes
// are synchronous and complete (value replaced, generation bumped, subscribers
// notified) before control returns to the caller.
package store

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-formstate/pkg/formconfig"
)

// ErrUnknownField tags writes and reads that address a (section id, field
// name) pair absent from the loaded configuration.
var ErrUnknownField = errors.New("store: unknown field")

// UnknownFieldError reports a configuration-mismatch access. It is never
// swallowed; a renderer addressing a key the config does not define is a bug
// on the caller's side.
type UnknownFieldError struct {
	SectionID string
	FieldName string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("store: no field %q in section %q", e.FieldName, e.SectionID)
}

// Is makes every UnknownFieldError match ErrUnknownField.
func (e *UnknownFieldError) Is(target error) bool {
	return target == ErrUnknownField
}

// Key addresses a single value cell.
type Key struct {
	SectionID string
	FieldName string
}

// Subscriber receives the new value after a write to the subscribed key.
type Subscriber func(value any)

type cell struct {
	value any
	set   bool
	subs  map[int]Subscriber
}

// Store is the keyed collection of value cells. Cells are created lazily on
// first read or write and live for the lifetime of the configuration.
type Store struct {
	config     *formconfig.FormConfig
	cells      map[Key]*cell
	generation uint64
	nextSubID  int
}

// New builds an empty store bound to a validated configuration.
func New(cfg *formconfig.FormConfig) *Store {
	return &Store{
		config: cfg,
		cells:  make(map[Key]*cell),
	}
}

// Generation counts successful writes. Derived views memoize against it: two
// reads at the same generation may share a cached result.
func (s *Store) Generation() uint64 {
	return s.generation
}

// Read returns the current value for the key, or nil when the field has never
// been written. Reading a key outside the configuration is an
// UnknownFieldError.
func (s *Store) Read(sectionID, fieldName string) (any, error) {
	c, err := s.cellFor(sectionID, fieldName)
	if err != nil {
		return nil, err
	}
	return c.value, nil
}

// Write replaces the value for exactly one key and notifies that key's
// subscribers. No other cell is touched. Writing a key outside the
// configuration is an UnknownFieldError.
func (s *Store) Write(sectionID, fieldName string, value any) error {
	c, err := s.cellFor(sectionID, fieldName)
	if err != nil {
		return err
	}
	c.value = value
	c.set = true
	s.generation++
	for _, fn := range c.subs {
		fn(value)
	}
	return nil
}

// Subscribe registers a callback for writes to one key and returns a cancel
// function. Subscribers of other keys are never invoked; granularity is the
// point of keying by field rather than by section or form.
func (s *Store) Subscribe(sectionID, fieldName string, fn Subscriber) (func(), error) {
	if fn == nil {
		return nil, errors.New("store: subscriber is required")
	}
	c, err := s.cellFor(sectionID, fieldName)
	if err != nil {
		return nil, err
	}
	if c.subs == nil {
		c.subs = make(map[int]Subscriber)
	}
	id := s.nextSubID
	s.nextSubID++
	c.subs[id] = fn
	return func() { delete(c.subs, id) }, nil
}

func (s *Store) cellFor(sectionID, fieldName string) (*cell, error) {
	key := Key{SectionID: sectionID, FieldName: fieldName}
	if c, ok := s.cells[key]; ok {
		return c, nil
	}
	if !s.config.HasField(sectionID, fieldName) {
		return nil, &UnknownFieldError{SectionID: sectionID, FieldName: fieldName}
	}
	c := &cell{}
	s.cells[key] = c
	return c, nil
}
