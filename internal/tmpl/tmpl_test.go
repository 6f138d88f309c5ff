package tmpl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		values map[string]string
		want   string
	}{
		{"plain", "no fields", nil, "no fields"},
		{"name", "Hello {name}!", map[string]string{"name": "Ana"}, "Hello Ana!"},
		{"two fields", "{name} / {month}", map[string]string{"name": "Ana", "month": "March"}, "Ana / March"},
		{"repeated", "{name}{name}", map[string]string{"name": "x"}, "xx"},
		{"escaped braces", "{{literal}} {name}", map[string]string{"name": "Ana"}, "{literal} Ana"},
		{"missing value", "Hi {name}", map[string]string{}, "Hi "},
		{"unicode text", "Olá *{name}* ✅", map[string]string{"name": "José"}, "Olá *José* ✅"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl, err := Parse(tt.src, "name", "month")
			require.NoError(t, err)
			assert.Equal(t, tt.want, tpl.Execute(tt.values))
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		src  string
		want error
	}{
		{"Hello {name", ErrSyntax},
		{"Hello name}", ErrSyntax},
		{"Hello {}", ErrSyntax},
		{"Hello {surname}", ErrUnknownField},
		{"{month}", ErrUnknownField},
	}
	for _, tt := range tests {
		_, err := Parse(tt.src, "name")
		if !errors.Is(err, tt.want) {
			t.Errorf("Parse(%q) error = %v, want %v", tt.src, err, tt.want)
		}
	}
}

func TestFields(t *testing.T) {
	tpl := MustParse("{name} in {month}, {name}", "name", "month")
	assert.Equal(t, []string{"name", "month", "name"}, tpl.Fields())
	assert.Equal(t, "{name} in {month}, {name}", tpl.String())
}
