package handlers

import (
	"context"

	"github.com/maruel/contactcrm/internal/schema"
	"github.com/maruel/contactcrm/internal/server/dto"
)

// SchemaHandler serves the field descriptor.
type SchemaHandler struct {
	desc *schema.Descriptor
}

// NewSchemaHandler creates a new schema handler. A nil descriptor serves the
// default one.
func NewSchemaHandler(desc *schema.Descriptor) *SchemaHandler {
	if desc == nil {
		desc = schema.Default()
	}
	return &SchemaHandler{desc: desc}
}

// Schema returns the descriptor and the JSON Schema of a stored record.
func (h *SchemaHandler) Schema(ctx context.Context, req *dto.SchemaRequest) (*dto.SchemaResponse, error) {
	return &dto.SchemaResponse{
		Descriptor: h.desc,
		JSONSchema: h.desc.JSONSchema(),
	}, nil
}
