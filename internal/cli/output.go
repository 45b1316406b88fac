package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/maruel/contactcrm/internal/schema"
)

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// output prints v as JSON, or runs text otherwise.
func (o *RootOptions) output(w io.Writer, v any, text func(io.Writer) error) error {
	if o.Format == "json" {
		return writeJSON(w, v)
	}
	return text(w)
}

// parseAssignments turns "field=value" arguments into form values. Fields
// must exist in the descriptor.
func parseAssignments(d *schema.Descriptor, args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid assignment %q: want field=value", a)
		}
		if _, ok := d.Field(k); !ok {
			return nil, fmt.Errorf("unknown field %q", k)
		}
		out[k] = v
	}
	return out, nil
}
