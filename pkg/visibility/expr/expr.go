// Package expr implements the boolean expression grammar used by section
// visibility conditions.
//
// Supported forms:
//   - truthiness: `newsletter.optIn`
//   - comparisons: `billing.billingType == "different"`, `order.count >= 3`
//   - composition: `a.x == true && (b.y != "no" || !c.z)`
//
// Identifiers are dot paths whose first segment names a section's objectName
// and whose second segment names a field. Expressions are compiled once at
// configuration load; the compiled Program exposes the identifiers it reads so
// the visibility planner can build its dependency graph without evaluating
// anything.
package expr

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Env supplies values for identifier lookup: objectName -> fieldName -> value.
type Env map[string]map[string]any

// Program is a compiled visibility condition.
type Program struct {
	source string
	root   node
	idents []string
}

// Compile parses a condition. An empty or blank rule compiles to a program
// that is always true and reads no identifiers.
func Compile(rule string) (*Program, error) {
	trimmed := strings.TrimSpace(rule)
	p := &Program{source: trimmed}
	if trimmed == "" {
		return p, nil
	}

	tokens, err := scan(trimmed)
	if err != nil {
		return nil, err
	}
	root, err := parse(tokens)
	if err != nil {
		return nil, err
	}
	p.root = root
	p.idents = collectIdents(root)
	return p, nil
}

// Source returns the original (trimmed) rule text.
func (p *Program) Source() string {
	return p.source
}

// Identifiers lists every dot-path the program reads, sorted and de-duplicated.
func (p *Program) Identifiers() []string {
	return p.idents
}

// Eval runs the program against an environment. Missing identifiers resolve
// to nil, which compares equal to null and is falsy.
func (p *Program) Eval(env Env) (bool, error) {
	if p.root == nil {
		return true, nil
	}
	return p.root.eval(env)
}

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokNumber
	tokBool
	tokNull
	tokEq
	tokNeq
	tokLT
	tokLTE
	tokGT
	tokGTE
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	raw  string
}

func scan(input string) ([]token, error) {
	var out []token
	i := 0
	for i < len(input) {
		ch := input[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			i++
		case ch == '(':
			out = append(out, token{kind: tokLParen, raw: "("})
			i++
		case ch == ')':
			out = append(out, token{kind: tokRParen, raw: ")"})
			i++
		case ch == '!':
			if i+1 < len(input) && input[i+1] == '=' {
				out = append(out, token{kind: tokNeq, raw: "!="})
				i += 2
			} else {
				out = append(out, token{kind: tokNot, raw: "!"})
				i++
			}
		case ch == '=':
			if i+1 >= len(input) || input[i+1] != '=' {
				return nil, errors.New("expr: unexpected '='; use '=='")
			}
			out = append(out, token{kind: tokEq, raw: "=="})
			i += 2
		case ch == '<':
			if i+1 < len(input) && input[i+1] == '=' {
				out = append(out, token{kind: tokLTE, raw: "<="})
				i += 2
			} else {
				out = append(out, token{kind: tokLT, raw: "<"})
				i++
			}
		case ch == '>':
			if i+1 < len(input) && input[i+1] == '=' {
				out = append(out, token{kind: tokGTE, raw: ">="})
				i += 2
			} else {
				out = append(out, token{kind: tokGT, raw: ">"})
				i++
			}
		case ch == '&':
			if i+1 >= len(input) || input[i+1] != '&' {
				return nil, errors.New("expr: unexpected '&'; use '&&'")
			}
			out = append(out, token{kind: tokAnd, raw: "&&"})
			i += 2
		case ch == '|':
			if i+1 >= len(input) || input[i+1] != '|' {
				return nil, errors.New("expr: unexpected '|'; use '||'")
			}
			out = append(out, token{kind: tokOr, raw: "||"})
			i += 2
		case ch == '"' || ch == '\'':
			lit, next, err := scanString(input, i)
			if err != nil {
				return nil, err
			}
			out = append(out, token{kind: tokString, raw: lit})
			i = next
		default:
			raw, next := scanWord(input, i)
			if raw == "" {
				return nil, fmt.Errorf("expr: unexpected character %q", string(ch))
			}
			i = next
			switch strings.ToLower(raw) {
			case "true", "false":
				out = append(out, token{kind: tokBool, raw: strings.ToLower(raw)})
			case "null", "nil":
				out = append(out, token{kind: tokNull, raw: "null"})
			default:
				if looksNumeric(raw) {
					out = append(out, token{kind: tokNumber, raw: raw})
				} else {
					out = append(out, token{kind: tokIdent, raw: raw})
				}
			}
		}
	}
	return out, nil
}

func scanString(input string, start int) (string, int, error) {
	quote := input[start]
	i := start + 1
	var b strings.Builder
	for i < len(input) {
		c := input[i]
		if c == '\\' && i+1 < len(input) {
			b.WriteByte(input[i+1])
			i += 2
			continue
		}
		if c == quote {
			return b.String(), i + 1, nil
		}
		b.WriteByte(c)
		i++
	}
	return "", 0, errors.New("expr: unterminated string literal")
}

func scanWord(input string, start int) (string, int) {
	i := start
	for i < len(input) {
		c := input[i]
		if strings.ContainsRune(" \t\n\r()!=<>&|", rune(c)) {
			break
		}
		i++
	}
	return input[start:i], i
}

func looksNumeric(raw string) bool {
	if raw == "" {
		return false
	}
	c := raw[0]
	if c == '-' || c == '+' {
		return len(raw) > 1 && raw[1] >= '0' && raw[1] <= '9'
	}
	return c >= '0' && c <= '9'
}

type node interface {
	eval(env Env) (bool, error)
}

type orNode struct{ left, right node }

func (n orNode) eval(env Env) (bool, error) {
	ok, err := n.left.eval(env)
	if err != nil || ok {
		return ok, err
	}
	return n.right.eval(env)
}

type andNode struct{ left, right node }

func (n andNode) eval(env Env) (bool, error) {
	ok, err := n.left.eval(env)
	if err != nil || !ok {
		return ok, err
	}
	return n.right.eval(env)
}

type notNode struct{ inner node }

func (n notNode) eval(env Env) (bool, error) {
	ok, err := n.inner.eval(env)
	return !ok, err
}

type truthyNode struct{ ident string }

func (n truthyNode) eval(env Env) (bool, error) {
	return truthy(lookup(env, n.ident)), nil
}

type literalKind int

const (
	litString literalKind = iota
	litNumber
	litBool
	litNull
)

type literal struct {
	kind literalKind
	raw  string
}

type compareNode struct {
	ident string
	op    tokenKind
	lit   literal
}

func (n compareNode) eval(env Env) (bool, error) {
	value := lookup(env, n.ident)

	switch n.lit.kind {
	case litNull:
		switch n.op {
		case tokEq:
			return value == nil, nil
		case tokNeq:
			return value != nil, nil
		}
		return false, fmt.Errorf("expr: null supports only == and !=")
	case litBool:
		want := n.lit.raw == "true"
		got := coerceBool(value)
		switch n.op {
		case tokEq:
			return got == want, nil
		case tokNeq:
			return got != want, nil
		}
		return false, fmt.Errorf("expr: bool supports only == and !=")
	case litNumber:
		want, err := strconv.ParseFloat(n.lit.raw, 64)
		if err != nil {
			return false, fmt.Errorf("expr: invalid number literal %q", n.lit.raw)
		}
		got, ok := coerceNumber(value)
		if !ok {
			// Unset or non-numeric values never satisfy a numeric comparison
			// except explicit inequality.
			return n.op == tokNeq, nil
		}
		return compareFloats(got, want, n.op)
	default:
		want := n.lit.raw
		got := coerceString(value)
		switch n.op {
		case tokEq:
			return got == want, nil
		case tokNeq:
			return got != want, nil
		case tokLT:
			return got < want, nil
		case tokLTE:
			return got <= want, nil
		case tokGT:
			return got > want, nil
		case tokGTE:
			return got >= want, nil
		}
		return false, fmt.Errorf("expr: unsupported operator")
	}
}

func compareFloats(got, want float64, op tokenKind) (bool, error) {
	switch op {
	case tokEq:
		return got == want, nil
	case tokNeq:
		return got != want, nil
	case tokLT:
		return got < want, nil
	case tokLTE:
		return got <= want, nil
	case tokGT:
		return got > want, nil
	case tokGTE:
		return got >= want, nil
	}
	return false, fmt.Errorf("expr: unsupported operator")
}

type stream struct {
	tokens []token
	pos    int
}

func parse(tokens []token) (node, error) {
	s := &stream{tokens: tokens}
	root, err := parseOr(s)
	if err != nil {
		return nil, err
	}
	if s.pos < len(s.tokens) {
		return nil, fmt.Errorf("expr: unexpected token %q", s.tokens[s.pos].raw)
	}
	return root, nil
}

func parseOr(s *stream) (node, error) {
	left, err := parseAnd(s)
	if err != nil {
		return nil, err
	}
	for s.match(tokOr) {
		right, err := parseAnd(s)
		if err != nil {
			return nil, err
		}
		left = orNode{left: left, right: right}
	}
	return left, nil
}

func parseAnd(s *stream) (node, error) {
	left, err := parseUnary(s)
	if err != nil {
		return nil, err
	}
	for s.match(tokAnd) {
		right, err := parseUnary(s)
		if err != nil {
			return nil, err
		}
		left = andNode{left: left, right: right}
	}
	return left, nil
}

func parseUnary(s *stream) (node, error) {
	if s.match(tokNot) {
		inner, err := parseUnary(s)
		if err != nil {
			return nil, err
		}
		return notNode{inner: inner}, nil
	}
	return parsePrimary(s)
}

var comparisonOps = []tokenKind{tokEq, tokNeq, tokLTE, tokLT, tokGTE, tokGT}

func parsePrimary(s *stream) (node, error) {
	if s.match(tokLParen) {
		inner, err := parseOr(s)
		if err != nil {
			return nil, err
		}
		if !s.match(tokRParen) {
			return nil, errors.New("expr: missing closing ')'")
		}
		return inner, nil
	}

	ident, ok := s.consume(tokIdent)
	if !ok {
		if s.pos >= len(s.tokens) {
			return nil, errors.New("expr: empty expression")
		}
		return nil, fmt.Errorf("expr: expected identifier, got %q", s.tokens[s.pos].raw)
	}

	for _, op := range comparisonOps {
		if s.match(op) {
			lit, err := s.consumeLiteral()
			if err != nil {
				return nil, err
			}
			return compareNode{ident: ident.raw, op: op, lit: lit}, nil
		}
	}
	return truthyNode{ident: ident.raw}, nil
}

func (s *stream) match(kind tokenKind) bool {
	if s.pos >= len(s.tokens) || s.tokens[s.pos].kind != kind {
		return false
	}
	s.pos++
	return true
}

func (s *stream) consume(kind tokenKind) (token, bool) {
	if s.pos >= len(s.tokens) || s.tokens[s.pos].kind != kind {
		return token{}, false
	}
	out := s.tokens[s.pos]
	s.pos++
	return out, true
}

func (s *stream) consumeLiteral() (literal, error) {
	if s.pos >= len(s.tokens) {
		return literal{}, errors.New("expr: missing literal after operator")
	}
	tok := s.tokens[s.pos]
	s.pos++
	switch tok.kind {
	case tokString:
		return literal{kind: litString, raw: tok.raw}, nil
	case tokNumber:
		return literal{kind: litNumber, raw: tok.raw}, nil
	case tokBool:
		return literal{kind: litBool, raw: tok.raw}, nil
	case tokNull:
		return literal{kind: litNull, raw: "null"}, nil
	default:
		return literal{}, fmt.Errorf("expr: expected literal, got %q", tok.raw)
	}
}

func collectIdents(root node) []string {
	seen := make(map[string]struct{})
	var walk func(n node)
	walk = func(n node) {
		switch t := n.(type) {
		case orNode:
			walk(t.left)
			walk(t.right)
		case andNode:
			walk(t.left)
			walk(t.right)
		case notNode:
			walk(t.inner)
		case truthyNode:
			seen[t.ident] = struct{}{}
		case compareNode:
			seen[t.ident] = struct{}{}
		}
	}
	if root != nil {
		walk(root)
	}
	out := make([]string, 0, len(seen))
	for ident := range seen {
		out = append(out, ident)
	}
	sort.Strings(out)
	return out
}

func lookup(env Env, ident string) any {
	objectName, fieldName, ok := strings.Cut(ident, ".")
	if !ok {
		return nil
	}
	section, ok := env[objectName]
	if !ok {
		return nil
	}
	return section[fieldName]
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return strings.TrimSpace(v) != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case float32:
		return v != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}

func coerceBool(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err == nil {
			return parsed
		}
		return strings.TrimSpace(v) != ""
	default:
		return truthy(value)
	}
}

func coerceNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func coerceString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(value)
	}
}
