// Package annotation represents type references found on parameters,
// return values and attributes.
//
// A reference is either a Name (a possibly dotted identifier with the full
// path it resolves to), an Expression (a sequence of names and literal
// tokens such as "list[int]" or "map[string]*fs.PathError"), or Raw text
// kept verbatim because it could not be parsed.
package annotation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Expr is a parsed or raw type reference.
type Expr interface {
	// String renders the reference back to source form.
	String() string
	isExpr()
}

// Name is a dotted identifier. Full is the resolved path, or the source
// itself when nothing better is known.
type Name struct {
	Source string `json:"source"`
	Full   string `json:"full"`
}

func (n Name) String() string { return n.Source }
func (Name) isExpr()          {}

// Token is a literal piece of an expression: punctuation, keywords,
// numbers, string literals.
type Token string

func (t Token) String() string { return string(t) }
func (Token) isExpr()          {}

// Raw is text that could not be parsed.
type Raw string

func (r Raw) String() string { return string(r) }
func (Raw) isExpr()          {}

// Expression is an ordered sequence of names and tokens.
type Expression struct {
	Parts []Expr
	// spaced[i] reports whether a blank separated Parts[i] from its predecessor.
	spaced []bool
}

func (Expression) isExpr() {}

func (e Expression) String() string {
	var b strings.Builder
	for i, p := range e.Parts {
		if i > 0 && i < len(e.spaced) && e.spaced[i] {
			b.WriteByte(' ')
		}
		b.WriteString(p.String())
	}
	return b.String()
}

// Names returns every Name in the expression, in order.
func (e Expression) Names() []Name {
	var names []Name
	for _, p := range e.Parts {
		if n, ok := p.(Name); ok {
			names = append(names, n)
		}
	}
	return names
}

// MarshalJSON encodes an expression as an array of parts.
func (e Expression) MarshalJSON() ([]byte, error) {
	parts := make([]any, len(e.Parts))
	for i, p := range e.Parts {
		switch v := p.(type) {
		case Token:
			parts[i] = string(v)
		case Raw:
			parts[i] = string(v)
		default:
			parts[i] = v
		}
	}
	return json.Marshal(parts)
}

// Decode rebuilds a reference from its JSON form: a string is Raw, an object
// is a Name, an array is an Expression whose strings are tokens.
func Decode(data json.RawMessage) (Expr, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return Raw(s), nil
	case '{':
		var n Name
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, err
		}
		return n, nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, err
		}
		e := Expression{Parts: make([]Expr, 0, len(items)), spaced: make([]bool, 0, len(items))}
		for _, item := range items {
			part, err := Decode(item)
			if err != nil {
				return nil, err
			}
			if r, ok := part.(Raw); ok {
				part = Token(r)
			}
			e.Parts = append(e.Parts, part)
		}
		e.spaced = defaultSpacing(e.Parts)
		return e, nil
	default:
		return nil, fmt.Errorf("annotation: unexpected JSON %s", trimmed)
	}
}

// defaultSpacing restores readable spacing for decoded expressions, where
// the original whitespace is not stored.
func defaultSpacing(parts []Expr) []bool {
	spaced := make([]bool, len(parts))
	for i := 1; i < len(parts); i++ {
		prev := parts[i-1].String()
		cur := parts[i].String()
		switch {
		case prev == "," || prev == "|" || cur == "|":
			spaced[i] = true
		case isWordPart(parts[i-1]) && isWordPart(parts[i]):
			spaced[i] = true
		}
	}
	return spaced
}

func isWordPart(e Expr) bool {
	s := e.String()
	if s == "" {
		return false
	}
	c := s[0]
	return c == '_' || c == '"' || c == '\'' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
