package viewmodel

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/maruel/contactcrm/internal/schema"
)

// Normalizer rewrites submitted fields in place before they are sent.
type Normalizer func(d *schema.Descriptor, fields map[string]any)

// DefaultPipeline returns the submit normalization steps. Steps run in slice
// order, so a later step sees the output of an earlier one.
func DefaultPipeline() []Normalizer {
	return []Normalizer{TrimValues, CoerceAmounts, NormalizeLists}
}

// TrimValues trims surrounding whitespace from every text value.
func TrimValues(_ *schema.Descriptor, fields map[string]any) {
	for k, v := range fields {
		if s, ok := v.(string); ok {
			fields[k] = strings.TrimSpace(s)
		}
	}
}

// CoerceAmounts turns finite numeric text in amount fields into numbers.
// Other text, including the empty string, is left alone.
func CoerceAmounts(d *schema.Descriptor, fields map[string]any) {
	for k, v := range fields {
		s, ok := v.(string)
		if !ok || s == "" || !d.Has(k, schema.TagAmount) {
			continue
		}
		if f, ok := parseAmount(s); ok {
			fields[k] = f
		}
	}
}

// parseAmount parses finite numeric text.
func parseAmount(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// NormalizeLists rewrites list fields as a ", " joined list of non-empty
// trimmed entries, keeping at most d.ListMax of them.
func NormalizeLists(d *schema.Descriptor, fields map[string]any) {
	for k, v := range fields {
		if s, ok := v.(string); ok && d.Has(k, schema.TagList) {
			fields[k] = strings.Join(splitList(s, d.ListMax), ", ")
		}
	}
}

func splitList(s string, limit int) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// ValueString renders a field value the way it is shown and compared.
func ValueString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}
