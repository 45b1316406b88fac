// Defines API response types.

package dto

import "net/http"

// Contact is a stored record: the free-form fields plus id, createdAt and
// updatedAt.
type Contact map[string]any

// CreatedContact is a Contact answered with 201 Created.
type CreatedContact Contact

// HTTPStatus implements the status override of the handler wrapper.
func (CreatedContact) HTTPStatus() int {
	return http.StatusCreated
}

// ListContactsResponse is the full store document.
type ListContactsResponse struct {
	Items []Contact `json:"items"`
}

// OKResponse acknowledges a deletion.
type OKResponse struct {
	OK bool `json:"ok"`
}

// HealthResponse is the response for health check.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// SchemaResponse describes the editable fields.
type SchemaResponse struct {
	// Descriptor is the field descriptor: fields, matchers and summary settings.
	Descriptor any `json:"descriptor"`
	// JSONSchema is the JSON Schema of a stored record.
	JSONSchema any `json:"jsonSchema"`
}

// Commit is one recorded version of the store.
type Commit struct {
	Hash    string `json:"hash"`
	Message string `json:"message"`
	Date    string `json:"date"`
}

// HistoryResponse lists recorded versions, newest first.
type HistoryResponse struct {
	Items []Commit `json:"items"`
}
