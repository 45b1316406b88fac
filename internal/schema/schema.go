// Package schema describes the editable fields of a contact and the semantic
// role each field plays in normalization, filtering and the summary.
//
// A [Descriptor] lists fields in display order. A field's role comes from its
// explicit tags when it has any, otherwise from the descriptor's regular
// expression matchers applied to the field name.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"
)

// Tag is a semantic role of a field.
type Tag string

const (
	// TagPrimary marks the field used as a record title.
	TagPrimary Tag = "primary"
	// TagAmount marks fields coerced to numbers on submit.
	TagAmount Tag = "amount"
	// TagSum marks fields summed in the summary panel.
	TagSum Tag = "sum"
	// TagCategory marks fields preferred for filter options.
	TagCategory Tag = "category"
	// TagNotes marks free text fields never used for filtering.
	TagNotes Tag = "notes"
	// TagList marks comma separated list fields such as tags.
	TagList Tag = "list"
)

var allTags = []Tag{TagPrimary, TagAmount, TagSum, TagCategory, TagNotes, TagList}

// Field is one editable field.
type Field struct {
	Name  string `yaml:"name" json:"name"`
	Label string `yaml:"label,omitempty" json:"label,omitempty"`
	Tags  []Tag  `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// Matchers infer tags for fields without explicit tags. Each value is a
// regular expression matched against the field name; empty disables it.
type Matchers struct {
	Amount   string `yaml:"amount" json:"amount"`
	Sum      string `yaml:"sum" json:"sum"`
	Category string `yaml:"category" json:"category"`
	Notes    string `yaml:"notes" json:"notes"`
	List     string `yaml:"list" json:"list"`
}

// DefaultMatchers returns the name heuristics used by the contacts UI.
func DefaultMatchers() Matchers {
	return Matchers{
		Amount:   `(?i)amount|price`,
		Sum:      `(?i)amount|price|total`,
		Category: `(?i)category|type|tag|status`,
		Notes:    `(?i)note|notes|description|desc`,
		List:     `(?i)^tags$`,
	}
}

// Descriptor is the ordered set of editable fields.
type Descriptor struct {
	Fields   []Field  `yaml:"fields" json:"fields"`
	Matchers Matchers `yaml:"matchers" json:"matchers"`
	// GroupBy is the field counted in the summary histogram.
	GroupBy string `yaml:"group_by" json:"groupBy"`
	// GroupByEmpty labels records with a blank GroupBy value.
	GroupByEmpty string `yaml:"group_by_empty" json:"groupByEmpty"`
	// GroupByTop caps the number of histogram rows.
	GroupByTop int `yaml:"group_by_top" json:"groupByTop"`
	// ListMax caps the number of entries kept in list fields.
	ListMax int `yaml:"list_max" json:"listMax"`

	compiled map[Tag]*regexp.Regexp
}

// Default returns the contacts descriptor.
func Default() *Descriptor {
	d := &Descriptor{
		Fields: []Field{
			{Name: "name", Label: "Name", Tags: []Tag{TagPrimary}},
			{Name: "company", Label: "Company"},
			{Name: "email", Label: "Email"},
			{Name: "phone", Label: "Phone"},
			{Name: "tags", Label: "Tags"},
			{Name: "notes", Label: "Notes"},
		},
	}
	if err := d.init(); err != nil {
		panic(err)
	}
	return d
}

// Load reads a YAML descriptor from path.
func Load(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from a flag
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Parse decodes a YAML descriptor. Unset matchers and limits keep their
// defaults.
func Parse(data []byte) (*Descriptor, error) {
	d := &Descriptor{Matchers: DefaultMatchers()}
	if err := yaml.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

// ParseJSON decodes a descriptor in its JSON form, as served by the API.
func ParseJSON(data []byte) (*Descriptor, error) {
	d := &Descriptor{Matchers: DefaultMatchers()}
	if err := json.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

var errNoFields = errors.New("schema has no fields")

// init fills defaults, validates and compiles the matchers.
func (d *Descriptor) init() error {
	if d.Matchers == (Matchers{}) {
		d.Matchers = DefaultMatchers()
	}
	if d.GroupBy == "" {
		d.GroupBy = "company"
	}
	if d.GroupByEmpty == "" {
		d.GroupByEmpty = "No company"
	}
	if d.GroupByTop <= 0 {
		d.GroupByTop = 8
	}
	if d.ListMax <= 0 {
		d.ListMax = 12
	}
	if len(d.Fields) == 0 {
		return errNoFields
	}
	seen := map[string]bool{}
	for _, f := range d.Fields {
		switch {
		case f.Name == "":
			return errors.New("schema field has no name")
		case isReserved(f.Name):
			return fmt.Errorf("schema field %q is reserved", f.Name)
		case seen[f.Name]:
			return fmt.Errorf("schema field %q is duplicated", f.Name)
		}
		seen[f.Name] = true
		for _, t := range f.Tags {
			if !slices.Contains(allTags, t) {
				return fmt.Errorf("schema field %q has unknown tag %q", f.Name, t)
			}
		}
	}
	d.compiled = map[Tag]*regexp.Regexp{}
	for tag, expr := range map[Tag]string{
		TagAmount:   d.Matchers.Amount,
		TagSum:      d.Matchers.Sum,
		TagCategory: d.Matchers.Category,
		TagNotes:    d.Matchers.Notes,
		TagList:     d.Matchers.List,
	} {
		if expr == "" {
			continue
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return fmt.Errorf("invalid %s matcher: %w", tag, err)
		}
		d.compiled[tag] = re
	}
	return nil
}

func isReserved(name string) bool {
	return name == "id" || name == "createdAt" || name == "updatedAt"
}

// Names returns the field names in order.
func (d *Descriptor) Names() []string {
	out := make([]string, 0, len(d.Fields))
	for _, f := range d.Fields {
		out = append(out, f.Name)
	}
	return out
}

// Field returns the field with the given name.
func (d *Descriptor) Field(name string) (Field, bool) {
	i := slices.IndexFunc(d.Fields, func(f Field) bool { return f.Name == name })
	if i < 0 {
		return Field{}, false
	}
	return d.Fields[i], true
}

// Has reports whether the named field carries tag, explicitly or through the
// matchers. Fields with explicit tags ignore the matchers.
func (d *Descriptor) Has(name string, tag Tag) bool {
	if f, ok := d.Field(name); ok && len(f.Tags) != 0 {
		return slices.Contains(f.Tags, tag)
	}
	re := d.compiled[tag]
	return re != nil && re.MatchString(name)
}

// Tagged returns the names of the fields carrying tag, in order.
func (d *Descriptor) Tagged(tag Tag) []string {
	var out []string
	for _, f := range d.Fields {
		if d.Has(f.Name, tag) {
			out = append(out, f.Name)
		}
	}
	return out
}

// Primary returns the title field: the first primary field, or the first field.
func (d *Descriptor) Primary() string {
	if p := d.Tagged(TagPrimary); len(p) != 0 {
		return p[0]
	}
	return d.Fields[0].Name
}

// FilterField returns the field whose values become filter options: the first
// category field among non-notes fields, else the first non-notes field.
// Returns "" when every field is a notes field.
func (d *Descriptor) FilterField() string {
	var candidates []string
	for _, f := range d.Fields {
		if !d.Has(f.Name, TagNotes) {
			candidates = append(candidates, f.Name)
		}
	}
	for _, n := range candidates {
		if d.Has(n, TagCategory) {
			return n
		}
	}
	if len(candidates) != 0 {
		return candidates[0]
	}
	return ""
}

// SumField returns the first field summed in the summary, or "".
func (d *Descriptor) SumField() string {
	if s := d.Tagged(TagSum); len(s) != 0 {
		return s[0]
	}
	return ""
}

// Label returns the display label of a field.
func (d *Descriptor) Label(name string) string {
	if f, ok := d.Field(name); ok && f.Label != "" {
		return f.Label
	}
	return name
}
