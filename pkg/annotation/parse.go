package annotation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Resolver maps the first segment of a name to a full path.
type Resolver interface {
	ResolveName(name string) (full string, ok bool)
}

// ParseError reports text that is not a valid type reference.
type ParseError struct {
	Text    string
	Offset  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("annotation %q at offset %d: %s", e.Text, e.Offset, e.Message)
}

const punctuation = "[](){},|*&:=;<>-?~"

var closers = map[byte]byte{')': '(', ']': '[', '}': '{'}

// Parse turns text into a Name (single dotted identifier) or an Expression.
// Names are resolved through r when it is not nil.
func Parse(text string, r Resolver) (Expr, error) {
	src := strings.TrimSpace(text)
	if src == "" {
		return nil, &ParseError{Text: text, Message: "empty annotation"}
	}

	var (
		parts  []Expr
		spaced []bool
		stack  []byte
		blank  bool
	)
	emit := func(e Expr) {
		parts = append(parts, e)
		spaced = append(spaced, blank && len(parts) > 1)
		blank = false
	}

	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			blank = true
			i++

		case isIdentStart(src, i):
			end := scanDotted(src, i)
			emit(resolve(src[i:end], r))
			i = end

		case c >= '0' && c <= '9':
			end := i
			for end < len(src) && (isDigit(src[end]) || src[end] == '.' || src[end] == '_') {
				end++
			}
			emit(Token(src[i:end]))
			i = end

		case c == '"' || c == '\'':
			end, ok := scanString(src, i)
			if !ok {
				return nil, &ParseError{Text: text, Offset: i, Message: "unterminated string"}
			}
			emit(Token(src[i:end]))
			i = end

		case strings.HasPrefix(src[i:], "..."):
			emit(Token("..."))
			i += 3

		case strings.HasPrefix(src[i:], "<-"), strings.HasPrefix(src[i:], "->"):
			emit(Token(src[i : i+2]))
			i += 2

		case strings.IndexByte(punctuation, c) >= 0:
			switch c {
			case '(', '[', '{':
				stack = append(stack, c)
			case ')', ']', '}':
				if len(stack) == 0 || stack[len(stack)-1] != closers[c] {
					return nil, &ParseError{Text: text, Offset: i, Message: fmt.Sprintf("unbalanced %q", c)}
				}
				stack = stack[:len(stack)-1]
			}
			emit(Token(string(c)))
			i++

		default:
			return nil, &ParseError{Text: text, Offset: i, Message: fmt.Sprintf("unexpected character %q", c)}
		}
	}

	if len(stack) > 0 {
		return nil, &ParseError{Text: text, Offset: len(src), Message: fmt.Sprintf("unclosed %q", stack[len(stack)-1])}
	}

	if len(parts) == 1 {
		if n, ok := parts[0].(Name); ok {
			return n, nil
		}
	}
	return Expression{Parts: parts, spaced: spaced}, nil
}

// ParseOrRaw parses text and falls back to Raw when it is malformed.
func ParseOrRaw(text string, r Resolver) Expr {
	e, err := Parse(text, r)
	if err != nil {
		return Raw(text)
	}
	return e
}

func resolve(source string, r Resolver) Name {
	if r == nil {
		return Name{Source: source, Full: source}
	}
	first, rest, dotted := strings.Cut(source, ".")
	full, ok := r.ResolveName(first)
	if !ok {
		return Name{Source: source, Full: source}
	}
	if dotted {
		full += "." + rest
	}
	return Name{Source: source, Full: full}
}

func isIdentStart(s string, i int) bool {
	r, _ := utf8.DecodeRuneInString(s[i:])
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// scanDotted returns the end of an identifier chain like "a.b.c".
func scanDotted(s string, i int) int {
	for {
		for i < len(s) {
			r, size := utf8.DecodeRuneInString(s[i:])
			if !isIdentPart(r) {
				break
			}
			i += size
		}
		if i+1 < len(s) && s[i] == '.' && isIdentStart(s, i+1) {
			i++
			continue
		}
		return i
	}
}

// scanString returns the end of the quoted literal starting at i.
func scanString(s string, i int) (int, bool) {
	quote := s[i]
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case quote:
			return j + 1, true
		}
	}
	return 0, false
}
