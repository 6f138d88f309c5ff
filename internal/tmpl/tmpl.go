// Package tmpl implements the brace placeholder templates used in message
// configuration: "Hello {name}, report for {month}". A doubled brace ("{{" or
// "}}") renders as a literal brace.
package tmpl

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSyntax is returned for unbalanced braces or empty placeholders.
var ErrSyntax = errors.New("template syntax error")

// ErrUnknownField is returned when a placeholder is not in the allowed set.
var ErrUnknownField = errors.New("unknown template field")

type segment struct {
	text  string
	field bool
}

// Template is a parsed message template.
type Template struct {
	src      string
	segments []segment
}

// Parse parses src, accepting only the placeholders listed in allowed.
func Parse(src string, allowed ...string) (*Template, error) {
	ok := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		ok[a] = true
	}

	t := &Template{src: src}
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			t.segments = append(t.segments, segment{text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch c {
		case '{':
			if i+1 < len(src) && src[i+1] == '{' {
				lit.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(src[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("%w: unclosed '{' at offset %d", ErrSyntax, i)
			}
			name := strings.TrimSpace(src[i+1 : i+1+end])
			if name == "" || strings.ContainsAny(name, "{") {
				return nil, fmt.Errorf("%w: bad placeholder at offset %d", ErrSyntax, i)
			}
			if !ok[name] {
				return nil, fmt.Errorf("%w: {%s} (allowed: %s)", ErrUnknownField, name, strings.Join(allowed, ", "))
			}
			flush()
			t.segments = append(t.segments, segment{text: name, field: true})
			i += end + 1
		case '}':
			if i+1 < len(src) && src[i+1] == '}' {
				lit.WriteByte('}')
				i++
				continue
			}
			return nil, fmt.Errorf("%w: single '}' at offset %d", ErrSyntax, i)
		default:
			lit.WriteByte(c)
		}
	}
	flush()
	return t, nil
}

// MustParse is like Parse but panics on error. Intended for tests and defaults.
func MustParse(src string, allowed ...string) *Template {
	t, err := Parse(src, allowed...)
	if err != nil {
		panic(err)
	}
	return t
}

// Execute renders the template. Missing values render as "".
func (t *Template) Execute(values map[string]string) string {
	var b strings.Builder
	for _, s := range t.segments {
		if s.field {
			b.WriteString(values[s.text])
			continue
		}
		b.WriteString(s.text)
	}
	return b.String()
}

// Fields lists the placeholders referenced by the template, in order.
func (t *Template) Fields() []string {
	var out []string
	for _, s := range t.segments {
		if s.field {
			out = append(out, s.text)
		}
	}
	return out
}

// String returns the template source.
func (t *Template) String() string {
	return t.src
}
