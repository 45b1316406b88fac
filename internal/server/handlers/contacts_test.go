package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/maruel/contactcrm/internal/server/dto"
	"github.com/maruel/contactcrm/internal/storage"
	"github.com/maruel/contactcrm/internal/storage/history"
)

func newContactHandler(t *testing.T) *ContactHandler {
	t.Helper()
	store, err := storage.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return NewContactHandler(store)
}

func wantStatus(t *testing.T, err error, status int) {
	t.Helper()
	var ews dto.ErrorWithStatus
	if !errors.As(err, &ews) {
		t.Fatalf("error %v is not an ErrorWithStatus", err)
	}
	if ews.StatusCode() != status {
		t.Errorf("StatusCode() = %d, want %d", ews.StatusCode(), status)
	}
}

func TestContactHandler(t *testing.T) {
	ctx := context.Background()
	h := newContactHandler(t)

	created, err := h.Create(ctx, &dto.CreateContactRequest{Fields: dto.Fields{"name": "Ada"}})
	if err != nil {
		t.Fatal(err)
	}
	if created.HTTPStatus() != http.StatusCreated {
		t.Errorf("HTTPStatus() = %d", created.HTTPStatus())
	}
	id, _ := (*created)["id"].(string)
	if id == "" {
		t.Fatalf("created record has no id: %v", *created)
	}

	updated, err := h.Update(ctx, &dto.UpdateContactRequest{ID: id, Fields: dto.Fields{"email": "a@x"}})
	if err != nil {
		t.Fatal(err)
	}
	if (*updated)["name"] != "Ada" || (*updated)["email"] != "a@x" {
		t.Errorf("Update() = %v", *updated)
	}

	list, err := h.List(ctx, &dto.ListContactsRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Items) != 1 {
		t.Fatalf("len(Items) = %d, want 1", len(list.Items))
	}

	_, err = h.Update(ctx, &dto.UpdateContactRequest{ID: "missing", Fields: dto.Fields{}})
	wantStatus(t, err, http.StatusNotFound)
	_, err = h.Delete(ctx, &dto.DeleteContactRequest{ID: "missing"})
	wantStatus(t, err, http.StatusNotFound)

	ok, err := h.Delete(ctx, &dto.DeleteContactRequest{ID: id})
	if err != nil || !ok.OK {
		t.Fatalf("Delete() = %v, %v", ok, err)
	}
	for range 2 {
		if ok, err := h.DeleteAll(ctx, &dto.DeleteAllContactsRequest{}); err != nil || !ok.OK {
			t.Fatalf("DeleteAll() = %v, %v", ok, err)
		}
	}
}

func TestHistoryHandler(t *testing.T) {
	ctx := context.Background()
	_, err := NewHistoryHandler(nil).History(ctx, &dto.HistoryRequest{Limit: 10})
	wantStatus(t, err, http.StatusNotFound)

	dir := t.TempDir()
	store, err := storage.NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	rec, err := history.Open(dir, storage.DocumentFile)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Create(ctx, map[string]any{"name": "Ada"}); err != nil {
		t.Fatal(err)
	}
	if err := rec.Record(ctx, "POST /api/contacts"); err != nil {
		t.Fatal(err)
	}
	resp, err := NewHistoryHandler(rec).History(ctx, &dto.HistoryRequest{Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Message != "POST /api/contacts" {
		t.Errorf("History() = %+v", resp.Items)
	}
}

func TestSchemaHandler(t *testing.T) {
	resp, err := NewSchemaHandler(nil).Schema(context.Background(), &dto.SchemaRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Descriptor == nil || resp.JSONSchema == nil {
		t.Errorf("Schema() = %+v", resp)
	}
}
