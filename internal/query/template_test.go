package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"apim-analytics-backend/internal/query"
)

func TestSubstitute(t *testing.T) {
	tests := []struct {
		name     string
		template string
		values   map[string]string
		expected string
	}{
		{
			name:     "Plain placeholders",
			template: "from {{timeFrom}} to {{timeTo}} per {{per}}",
			values:   map[string]string{"{{timeFrom}}": "1", "{{timeTo}}": "2", "{{per}}": "day"},
			expected: "from 1 to 2 per day",
		},
		{
			name:     "Nested placeholder inside a value",
			template: "select x {{querystring}}",
			values: map[string]string{
				"{{querystring}}": "AND apiName=='{{api}}'",
				"{{api}}":         "PizzaShack",
			},
			expected: "select x AND apiName=='PizzaShack'",
		},
		{
			name:     "Unknown placeholder is kept",
			template: "limit {{limit}} {{missing}}",
			values:   map[string]string{"{{limit}}": "5"},
			expected: "limit 5 {{missing}}",
		},
		{
			name:     "Whitespace inside braces",
			template: "limit {{ limit }}",
			values:   map[string]string{"{{limit}}": "10"},
			expected: "limit 10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, query.Substitute(tt.template, tt.values))
		})
	}
}

func TestSubstitute_SelfReferenceTerminates(t *testing.T) {
	out := query.Substitute("{{a}}", map[string]string{"{{a}}": "x{{a}}"})
	assert.Contains(t, out, "x")
}

func TestEscapeLiteral(t *testing.T) {
	assert.Equal(t, `Bob\'s API`, query.EscapeLiteral("Bob's API"))
	assert.Equal(t, `a\\b`, query.EscapeLiteral(`a\b`))
}
