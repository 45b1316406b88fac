package viewmodel

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/maruel/contactcrm/internal/schema"
	"github.com/maruel/contactcrm/internal/storage"
)

// Placeholder strings used when a record lacks a value.
const (
	UntitledRecord = "Contact"
	EmptyMeta      = "—"
	MetaSeparator  = " • "
)

// FormatDate renders an ISO-8601 timestamp as YYYY-MM-DD. Unparsable input is
// returned unchanged.
func FormatDate(s string) string {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return s
	}
	return t.UTC().Format(time.DateOnly)
}

// CountLabel returns "1 contact" or "N contacts".
func CountLabel(n int) string {
	if n == 1 {
		return "1 contact"
	}
	return strconv.Itoa(n) + " contacts"
}

// Title returns the primary field of r, or UntitledRecord.
func (m *Model) Title(r storage.Record) string {
	if v := strings.TrimSpace(ValueString(r[m.desc.Primary()])); v != "" {
		return v
	}
	return UntitledRecord
}

// Meta returns the secondary fields of r joined with MetaSeparator, or
// EmptyMeta.
func (m *Model) Meta(r storage.Record) string {
	var parts []string
	for _, f := range m.metaFields() {
		if v := strings.TrimSpace(ValueString(r[f])); v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return EmptyMeta
	}
	return strings.Join(parts, MetaSeparator)
}

// metaFields are the first three fields that are neither the title, a notes
// field nor a list.
func (m *Model) metaFields() []string {
	primary := m.desc.Primary()
	var out []string
	for _, f := range m.desc.Fields {
		if f.Name == primary || m.desc.Has(f.Name, schema.TagNotes) || m.desc.Has(f.Name, schema.TagList) {
			continue
		}
		out = append(out, f.Name)
		if len(out) == 3 {
			break
		}
	}
	return out
}

// Tags returns the entries of the first list field of r.
func (m *Model) Tags(r storage.Record) []string {
	lists := m.desc.Tagged(schema.TagList)
	if len(lists) == 0 {
		return nil
	}
	return splitList(ValueString(r[lists[0]]), 0)
}

// WriteList prints the visible records as plain text.
func (m *Model) WriteList(w io.Writer) error {
	visible := m.Visible()
	if _, err := fmt.Fprintln(w, CountLabel(len(visible))); err != nil {
		return err
	}
	for _, r := range visible {
		var b strings.Builder
		fmt.Fprintf(&b, "\n%s  [%s]\n", m.Title(r), r.ID())
		fmt.Fprintf(&b, "  %s\n", m.Meta(r))
		if tags := m.Tags(r); len(tags) != 0 {
			fmt.Fprintf(&b, "  #%s\n", strings.Join(tags, " #"))
		}
		fmt.Fprintf(&b, "  Updated %s\n", FormatDate(ValueString(r[storage.FieldUpdatedAt])))
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
	}
	return nil
}

// WriteSummary prints the summary panel as plain text.
func (m *Model) WriteSummary(w io.Writer) error {
	s := m.Summary()
	var b strings.Builder
	fmt.Fprintf(&b, "Total: %d\n", s.Total)
	fmt.Fprintf(&b, "Visible: %d\n", s.Visible)
	fmt.Fprintf(&b, "By %s:\n", s.GroupBy)
	for _, g := range s.Groups {
		fmt.Fprintf(&b, "  %-24s %d\n", g.Name, g.Count)
	}
	if s.SumField != "" {
		fmt.Fprintf(&b, "Sum of %s: %s\n", s.SumField, strconv.FormatFloat(s.Sum, 'f', 2, 64))
	}
	_, err := io.WriteString(w, b.String())
	return err
}
