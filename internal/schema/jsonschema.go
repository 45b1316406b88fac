package schema

import (
	"time"

	"github.com/invopop/jsonschema"
)

// reserved holds the server assigned fields present on every record.
type reserved struct {
	ID        string    `json:"id" jsonschema:"description=Opaque server assigned identifier"`
	CreatedAt time.Time `json:"createdAt" jsonschema:"description=Creation time"`
	UpdatedAt time.Time `json:"updatedAt" jsonschema:"description=Last modification time"`
}

// JSONSchema returns the JSON Schema of a stored record. Reserved fields come
// first, then the descriptor fields in order. Records may carry fields beyond
// the descriptor.
func (d *Descriptor) JSONSchema() *jsonschema.Schema {
	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	s := r.Reflect(&reserved{})
	s.Title = "Contact"
	s.AdditionalProperties = nil
	s.Definitions = nil
	for _, f := range d.Fields {
		p := &jsonschema.Schema{Title: d.Label(f.Name)}
		switch {
		case d.Has(f.Name, TagAmount):
			p.OneOf = []*jsonschema.Schema{{Type: "number"}, {Type: "string"}}
		case d.Has(f.Name, TagList):
			p.Type = "string"
			p.Description = "Comma separated list"
		default:
			p.Type = "string"
		}
		s.Properties.Set(f.Name, p)
	}
	return s
}
