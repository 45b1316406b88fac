// Defines API request types.

package dto

import (
	"bytes"
	"encoding/json"
	"errors"
)

const maxHistoryLimit = 1000

var errNotObject = errors.New("body must be a JSON object")

// Fields is a free-form field map decoded from a JSON object body.
type Fields map[string]any

// UnmarshalJSON accepts only a JSON object.
func (f *Fields) UnmarshalJSON(b []byte) error {
	if !bytes.HasPrefix(bytes.TrimSpace(b), []byte("{")) {
		return errNotObject
	}
	m := map[string]any{}
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*f = m
	return nil
}

// ListContactsRequest is a request to list every contact.
type ListContactsRequest struct{}

// Validate is a no-op.
func (r *ListContactsRequest) Validate() error {
	return nil
}

// CreateContactRequest is a request to create a contact. The whole body is
// the field map.
type CreateContactRequest struct {
	Fields Fields
}

// UnmarshalJSON decodes the body as the field map.
func (r *CreateContactRequest) UnmarshalJSON(b []byte) error {
	return r.Fields.UnmarshalJSON(b)
}

// Validate treats an empty body as an empty field map.
func (r *CreateContactRequest) Validate() error {
	if r.Fields == nil {
		r.Fields = Fields{}
	}
	return nil
}

// UpdateContactRequest is a request to shallow-merge fields into a contact.
type UpdateContactRequest struct {
	ID     string `path:"id"`
	Fields Fields
}

// UnmarshalJSON decodes the body as the field map.
func (r *UpdateContactRequest) UnmarshalJSON(b []byte) error {
	return r.Fields.UnmarshalJSON(b)
}

// Validate treats an empty body as an empty field map.
func (r *UpdateContactRequest) Validate() error {
	if r.Fields == nil {
		r.Fields = Fields{}
	}
	return nil
}

// DeleteContactRequest is a request to delete a contact.
type DeleteContactRequest struct {
	ID string `path:"id"`
}

// Validate is a no-op; an unknown id is a 404.
func (r *DeleteContactRequest) Validate() error {
	return nil
}

// DeleteAllContactsRequest is a request to delete every contact.
type DeleteAllContactsRequest struct{}

// Validate is a no-op.
func (r *DeleteAllContactsRequest) Validate() error {
	return nil
}

// HealthRequest is a request for the health status.
type HealthRequest struct{}

// Validate is a no-op.
func (r *HealthRequest) Validate() error {
	return nil
}

// SchemaRequest is a request for the field descriptor.
type SchemaRequest struct{}

// Validate is a no-op.
func (r *SchemaRequest) Validate() error {
	return nil
}

// HistoryRequest is a request for the recorded versions of the store.
type HistoryRequest struct {
	Limit int `query:"limit"`
}

// Validate checks the limit and applies the default.
func (r *HistoryRequest) Validate() error {
	if r.Limit < 0 {
		return BadRequest("limit must not be negative")
	}
	if r.Limit == 0 || r.Limit > maxHistoryLimit {
		r.Limit = maxHistoryLimit
	}
	return nil
}
