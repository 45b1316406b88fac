package viewmodel

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/maruel/contactcrm/internal/storage"
)

var errNotFound = errors.New("Not found")

// fakeClient is an in-memory Client. When err is set every call fails with it.
type fakeClient struct {
	mu    sync.Mutex
	items []storage.Record
	next  int
	err   error
	calls []string
}

func (f *fakeClient) List(context.Context) ([]storage.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "List")
	if f.err != nil {
		return nil, f.err
	}
	out := make([]storage.Record, 0, len(f.items))
	for _, r := range f.items {
		out = append(out, r.Clone())
	}
	return out, nil
}

func (f *fakeClient) Create(_ context.Context, fields map[string]any) (storage.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "Create")
	if f.err != nil {
		return nil, f.err
	}
	f.next++
	rec := storage.Record(maps.Clone(fields))
	rec[storage.FieldID] = fmt.Sprintf("new%d", f.next)
	rec[storage.FieldCreatedAt] = "2025-03-01T12:00:00.000Z"
	rec[storage.FieldUpdatedAt] = "2025-03-01T12:00:00.000Z"
	f.items = slices.Insert(f.items, 0, rec)
	return rec.Clone(), nil
}

func (f *fakeClient) Update(_ context.Context, id string, fields map[string]any) (storage.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "Update "+id)
	if f.err != nil {
		return nil, f.err
	}
	i := slices.IndexFunc(f.items, func(r storage.Record) bool { return r.ID() == id })
	if i < 0 {
		return nil, errNotFound
	}
	maps.Copy(f.items[i], fields)
	f.items[i][storage.FieldID] = id
	return f.items[i].Clone(), nil
}

func (f *fakeClient) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "Delete "+id)
	if f.err != nil {
		return f.err
	}
	i := slices.IndexFunc(f.items, func(r storage.Record) bool { return r.ID() == id })
	if i < 0 {
		return errNotFound
	}
	f.items = slices.Delete(f.items, i, i+1)
	return nil
}

func (f *fakeClient) DeleteAll(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "DeleteAll")
	if f.err != nil {
		return f.err
	}
	f.items = nil
	return nil
}

// sampleRecords is the fixture used by the model and rendering tests.
func sampleRecords() []storage.Record {
	return []storage.Record{
		{
			"id": "a1", "name": "Ada Lovelace", "company": "Analytics Eng", "email": "ada@example.com",
			"phone": "", "tags": "math, engines", "notes": "first <programmer>",
			"createdAt": "2025-03-01T12:00:00.000Z", "updatedAt": "2025-03-02T08:30:00.000Z",
		},
		{
			"id": "b2", "name": "", "company": "", "email": "", "phone": "", "tags": "",
			"createdAt": "2025-02-20T00:00:00.000Z", "updatedAt": "garbage",
		},
		{
			"id": "c3", "name": "Grace Hopper", "company": "Navy", "email": "", "phone": "555-0100",
			"tags": "cobol", "createdAt": "2025-01-15T10:00:00.000Z", "updatedAt": "2025-01-15T23:59:59.999Z",
		},
		{
			"id": "d4", "name": "Charles", "company": "Analytics Eng", "tags": "math",
			"createdAt": "2025-02-01T00:00:00.000Z", "updatedAt": "2025-02-01T00:00:00.000Z",
		},
	}
}
