// Package storage implements the contact record store on top of a single
// JSON document.
package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/maruel/contactcrm/internal/jsondoc"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("not found")

// Reserved field names managed by the store.
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// TimeLayout is the ISO-8601 layout of createdAt and updatedAt, in UTC with
// millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// DocumentFile is the file name of the store document inside the data directory.
const DocumentFile = "db.json"

// Record is one contact: free-form fields plus the reserved fields.
type Record map[string]any

// ID returns the record id, or "" when missing.
func (r Record) ID() string {
	s, _ := r[FieldID].(string)
	return s
}

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	return maps.Clone(r)
}

// Document is the persisted store state.
type Document struct {
	Items []Record `json:"items"`
}

// Init implements jsondoc.Document.
func (d *Document) Init() {
	d.Items = []Record{}
}

// Validate implements jsondoc.Document.
//
// Any JSON object is accepted; a missing items array is empty. Null items
// are dropped. Items without a string id or sharing an id with an earlier item
// are kept as is and logged: they are listed but Update and Delete only reach
// the first item with a given id.
func (d *Document) Validate() error {
	if d.Items == nil {
		d.Items = []Record{}
	}
	seen := make(map[string]struct{}, len(d.Items))
	items := d.Items[:0]
	for i, it := range d.Items {
		if it == nil {
			slog.Warn("Dropping null item", "index", i)
			continue
		}
		items = append(items, it)
		id := it.ID()
		if id == "" {
			slog.Warn("Item has no id", "index", i)
			continue
		}
		if _, ok := seen[id]; ok {
			slog.Warn("Duplicate item id", "index", i, "id", id)
			continue
		}
		seen[id] = struct{}{}
	}
	d.Items = items
	return nil
}

// Store provides CRUD over the contacts document.
//
// Each call is a full read-modify-write of the file. Calls are serialized by
// the underlying jsondoc.File.
type Store struct {
	file *jsondoc.File[Document, *Document]

	mu      sync.Mutex
	now     func() time.Time
	lastNow time.Time
}

// NewStore opens or creates dataDir/db.json.
func NewStore(dataDir string) (*Store, error) {
	f, err := jsondoc.NewFile[Document](filepath.Join(dataDir, DocumentFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open contacts: %w", err)
	}
	return &Store{file: f, now: time.Now}, nil
}

// Path returns the path of the backing document.
func (s *Store) Path() string {
	return s.file.Path()
}

// List returns all records, newest first.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	doc, err := s.file.Read(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Items, nil
}

// Get returns the record with the given id.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	doc, err := s.file.Read(ctx)
	if err != nil {
		return nil, err
	}
	if i := indexOf(doc.Items, id); i >= 0 {
		return doc.Items[i], nil
	}
	return nil, ErrNotFound
}

// Create stores a new record built from fields and returns it.
//
// The reserved fields are always assigned by the store, whatever fields
// contains.
func (s *Store) Create(ctx context.Context, fields map[string]any) (Record, error) {
	var created Record
	err := s.file.Modify(ctx, func(doc *Document) error {
		id, err := uniqueID(doc.Items)
		if err != nil {
			return err
		}
		ts := s.timestamp(time.Time{})
		rec := make(Record, len(fields)+3)
		maps.Copy(rec, fields)
		rec[FieldID] = id
		rec[FieldCreatedAt] = ts
		rec[FieldUpdatedAt] = ts
		doc.Items = slices.Insert(doc.Items, 0, rec)
		created = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "Contact created", "id", created.ID())
	return created, nil
}

// Update shallow-merges fields over the record with the given id.
//
// id and createdAt keep their stored values and updatedAt is refreshed.
// Returns ErrNotFound if the record does not exist.
func (s *Store) Update(ctx context.Context, id string, fields map[string]any) (Record, error) {
	var updated Record
	err := s.file.Modify(ctx, func(doc *Document) error {
		i := indexOf(doc.Items, id)
		if i < 0 {
			return ErrNotFound
		}
		existing := doc.Items[i]
		rec := existing.Clone()
		maps.Copy(rec, fields)
		rec[FieldID] = existing[FieldID]
		if v, ok := existing[FieldCreatedAt]; ok {
			rec[FieldCreatedAt] = v
		} else {
			delete(rec, FieldCreatedAt)
		}
		rec[FieldUpdatedAt] = s.timestamp(parseTime(existing[FieldUpdatedAt]))
		doc.Items[i] = rec
		updated = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "Contact updated", "id", id)
	return updated, nil
}

// Delete removes the record with the given id.
// Returns ErrNotFound if the record does not exist.
func (s *Store) Delete(ctx context.Context, id string) error {
	err := s.file.Modify(ctx, func(doc *Document) error {
		i := indexOf(doc.Items, id)
		if i < 0 {
			return ErrNotFound
		}
		doc.Items = slices.Delete(doc.Items, i, i+1)
		return nil
	})
	if err != nil {
		return err
	}
	slog.DebugContext(ctx, "Contact deleted", "id", id)
	return nil
}

// DeleteAll removes every record.
func (s *Store) DeleteAll(ctx context.Context) error {
	err := s.file.Modify(ctx, func(doc *Document) error {
		doc.Items = []Record{}
		return nil
	})
	if err != nil {
		return err
	}
	slog.DebugContext(ctx, "All contacts deleted")
	return nil
}

// timestamp returns the current time formatted with TimeLayout.
//
// The result is strictly after both after and any timestamp previously
// returned by this store, so updatedAt always moves forward even when two
// writes land in the same millisecond.
func (s *Store) timestamp(after time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC().Truncate(time.Millisecond)
	if floor := s.lastNow; !now.After(floor) && !floor.IsZero() {
		now = floor.Add(time.Millisecond)
	}
	if !after.IsZero() && !now.After(after) {
		now = after.Add(time.Millisecond)
	}
	s.lastNow = now
	return now.Format(TimeLayout)
}

// parseTime parses a stored timestamp; invalid values yield the zero time.
func parseTime(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// NewID returns a random 8 hex digit token, a dash, and the current unix
// millisecond time in hex.
func NewID() (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("failed to generate id: %w", err)
	}
	return hex.EncodeToString(b[:]) + "-" + strconv.FormatInt(time.Now().UnixMilli(), 16), nil
}

// uniqueID returns an id not used by any of items.
func uniqueID(items []Record) (string, error) {
	for {
		id, err := NewID()
		if err != nil {
			return "", err
		}
		if indexOf(items, id) < 0 {
			return id, nil
		}
	}
}

func indexOf(items []Record, id string) int {
	return slices.IndexFunc(items, func(r Record) bool { return r.ID() == id })
}
