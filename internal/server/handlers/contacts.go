// Handles the contacts CRUD endpoints.

package handlers

import (
	"context"
	"errors"

	"github.com/maruel/contactcrm/internal/server/dto"
	"github.com/maruel/contactcrm/internal/storage"
)

// ContactHandler serves the record store.
type ContactHandler struct {
	store *storage.Store
}

// NewContactHandler creates a new contact handler.
func NewContactHandler(store *storage.Store) *ContactHandler {
	return &ContactHandler{store: store}
}

// List returns every contact, newest first.
func (h *ContactHandler) List(ctx context.Context, req *dto.ListContactsRequest) (*dto.ListContactsResponse, error) {
	items, err := h.store.List(ctx)
	if err != nil {
		return nil, dto.StorageError(err)
	}
	out := make([]dto.Contact, len(items))
	for i, it := range items {
		out[i] = dto.Contact(it)
	}
	return &dto.ListContactsResponse{Items: out}, nil
}

// Create stores a new contact.
func (h *ContactHandler) Create(ctx context.Context, req *dto.CreateContactRequest) (*dto.CreatedContact, error) {
	rec, err := h.store.Create(ctx, req.Fields)
	if err != nil {
		return nil, dto.StorageError(err)
	}
	out := dto.CreatedContact(rec)
	return &out, nil
}

// Update shallow-merges the submitted fields into a contact.
func (h *ContactHandler) Update(ctx context.Context, req *dto.UpdateContactRequest) (*dto.Contact, error) {
	rec, err := h.store.Update(ctx, req.ID, req.Fields)
	if err != nil {
		return nil, storageErr(err)
	}
	out := dto.Contact(rec)
	return &out, nil
}

// Delete removes one contact.
func (h *ContactHandler) Delete(ctx context.Context, req *dto.DeleteContactRequest) (*dto.OKResponse, error) {
	if err := h.store.Delete(ctx, req.ID); err != nil {
		return nil, storageErr(err)
	}
	return &dto.OKResponse{OK: true}, nil
}

// DeleteAll removes every contact.
func (h *ContactHandler) DeleteAll(ctx context.Context, req *dto.DeleteAllContactsRequest) (*dto.OKResponse, error) {
	if err := h.store.DeleteAll(ctx); err != nil {
		return nil, dto.StorageError(err)
	}
	return &dto.OKResponse{OK: true}, nil
}

func storageErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return dto.NotFound()
	}
	return dto.StorageError(err)
}
