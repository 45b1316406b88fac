package viewmodel

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/maruel/contactcrm/internal/schema"
)

func TestNormalize(t *testing.T) {
	d, err := schema.Parse([]byte("fields: [{name: name}, {name: price}, {name: amount}, {name: tags}, {name: notes}]"))
	if err != nil {
		t.Fatal(err)
	}
	m := New(&fakeClient{}, d)
	tests := []struct {
		name string
		form map[string]string
		want map[string]any
	}{
		{
			"pipeline",
			map[string]string{"name": "  Ada ", "price": " 12.50 ", "amount": "abc", "tags": " a, ,b ,c", "notes": " x "},
			map[string]any{"name": "Ada", "price": 12.5, "amount": "abc", "tags": "a, b, c", "notes": "x"},
		},
		{
			"empty amount stays empty",
			map[string]string{"price": "   ", "amount": ""},
			map[string]any{"price": "", "amount": ""},
		},
		{
			"non finite amounts stay text",
			map[string]string{"price": "Inf", "amount": "NaN"},
			map[string]any{"price": "Inf", "amount": "NaN"},
		},
		{
			"exponent and sign",
			map[string]string{"price": "1e3", "amount": "-0.25"},
			map[string]any{"price": 1000.0, "amount": -0.25},
		},
		{
			"fields outside the descriptor use the matchers",
			map[string]string{"unit_price": "3", "city": " Paris "},
			map[string]any{"unit_price": 3.0, "city": "Paris"},
		},
		{
			"tags capped",
			map[string]string{"tags": strings.Repeat("t,", 15)},
			map[string]any{"tags": strings.TrimSuffix(strings.Repeat("t, ", 12), ", ")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, m.Normalize(tt.form)); diff != "" {
				t.Errorf("Normalize mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{12.5, "12.5"},
		{1e21, "1000000000000000000000"},
		{true, "true"},
		{[]any{"a", 1.0}, `["a",1]`},
	}
	for _, tt := range tests {
		if got := ValueString(tt.in); got != tt.want {
			t.Errorf("ValueString(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
