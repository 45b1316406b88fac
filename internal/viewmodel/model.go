// Package viewmodel holds the client side state of the contacts UI: the
// fetched record list, search and filter criteria, the editor and the last
// error. Every user interface (browser excluded) drives a single Model through
// its methods and renders from its accessors.
//
// Mutations go through a Client. A failed mutation sets the alert and leaves
// the rest of the state as it was; a successful one reloads the list.
package viewmodel

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/maruel/contactcrm/internal/schema"
	"github.com/maruel/contactcrm/internal/storage"
)

// Client is the record API used by the model.
type Client interface {
	List(ctx context.Context) ([]storage.Record, error)
	Create(ctx context.Context, fields map[string]any) (storage.Record, error)
	Update(ctx context.Context, id string, fields map[string]any) (storage.Record, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

// Status is the connection state shown to the user.
type Status int

const (
	// StatusOffline means the last load failed or none happened yet.
	StatusOffline Status = iota
	// StatusOnline means the last load succeeded.
	StatusOnline
)

func (s Status) String() string {
	if s == StatusOnline {
		return "Online"
	}
	return "Offline"
}

var (
	// ErrNotEditing is returned by Save and DeleteActive when the editor is
	// closed or holds an unsaved record.
	ErrNotEditing = errors.New("no record is being edited")
	// ErrUnknownRecord is returned by Open for an id not in the list.
	ErrUnknownRecord = errors.New("unknown record")
)

// Group is one row of the summary histogram.
type Group struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Summary is the aggregate panel.
type Summary struct {
	Total   int `json:"total"`
	Visible int `json:"visible"`
	// GroupBy is the label of the histogram field.
	GroupBy string  `json:"groupBy"`
	Groups  []Group `json:"groups"`
	// SumField is the label of the summed field, empty when none.
	SumField string  `json:"sumField,omitempty"`
	Sum      float64 `json:"sum,omitempty"`
}

// Model is the UI state. It is safe for concurrent use; client calls are made
// without holding the lock.
type Model struct {
	client   Client
	desc     *schema.Descriptor
	pipeline []Normalizer

	mu       sync.Mutex
	items    []storage.Record
	status   Status
	search   string
	filter   string
	editing  bool
	activeID string
	alert    string
}

// New returns a model reading and writing through c. A nil descriptor means
// schema.Default.
func New(c Client, d *schema.Descriptor) *Model {
	if d == nil {
		d = schema.Default()
	}
	return &Model{client: c, desc: d, pipeline: DefaultPipeline()}
}

// Schema returns the field descriptor.
func (m *Model) Schema() *schema.Descriptor {
	return m.desc
}

// Load fetches the full list. On failure the list is emptied and the model
// goes offline.
func (m *Model) Load(ctx context.Context) error {
	items, err := m.client.List(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.items = nil
		m.status = StatusOffline
		return fmt.Errorf("failed to load contacts: %w", err)
	}
	m.items = items
	m.status = StatusOnline
	return nil
}

// Status returns the connection state.
func (m *Model) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Alert returns the text of the last failed mutation, or "".
func (m *Model) Alert() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alert
}

// DismissAlert clears the alert.
func (m *Model) DismissAlert() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alert = ""
}

// Items returns every loaded record, newest first.
func (m *Model) Items() []storage.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.items)
}

// Search returns the current query.
func (m *Model) Search() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.search
}

// SetSearch sets the free text query.
func (m *Model) SetSearch(q string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.search = q
}

// Filter returns the selected filter value, "" meaning all.
func (m *Model) Filter() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter
}

// SetFilter selects a filter value; "" shows all records. The value is
// trimmed.
func (m *Model) SetFilter(v string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filter = strings.TrimSpace(v)
}

// FilterOptions returns the sorted distinct non-empty values of the filter
// field over all records. Values are trimmed, so " vip" and "vip" are one
// option.
func (m *Model) FilterOptions() []string {
	field := m.desc.FilterField()
	if field == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, r := range m.items {
		if v := strings.TrimSpace(ValueString(r[field])); v != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Visible returns the records matching both the filter and the search query.
// The filter compares trimmed values: a record whose filter field is " vip"
// matches the filter "vip".
func (m *Model) Visible() []storage.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visibleLocked()
}

func (m *Model) visibleLocked() []storage.Record {
	q := strings.ToLower(strings.TrimSpace(m.search))
	field := m.desc.FilterField()
	out := []storage.Record{}
	for _, r := range m.items {
		if m.filter != "" && field != "" && strings.TrimSpace(ValueString(r[field])) != m.filter {
			continue
		}
		if q != "" && !strings.Contains(searchText(r), q) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// searchText is the lower-cased JSON form of r.
func searchText(r storage.Record) string {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return ""
	}
	return strings.ToLower(b.String())
}

// Summary computes the aggregate panel. The histogram covers visible records;
// the total and the sum cover all of them.
func (m *Model) Summary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	visible := m.visibleLocked()
	s := Summary{
		Total:   len(m.items),
		Visible: len(visible),
		GroupBy: m.desc.Label(m.desc.GroupBy),
	}
	for _, r := range visible {
		name := strings.TrimSpace(ValueString(r[m.desc.GroupBy]))
		if name == "" {
			name = m.desc.GroupByEmpty
		}
		if i := slices.IndexFunc(s.Groups, func(g Group) bool { return g.Name == name }); i >= 0 {
			s.Groups[i].Count++
		} else {
			s.Groups = append(s.Groups, Group{Name: name, Count: 1})
		}
	}
	slices.SortStableFunc(s.Groups, func(a, b Group) int { return cmp.Compare(b.Count, a.Count) })
	if len(s.Groups) > m.desc.GroupByTop {
		s.Groups = s.Groups[:m.desc.GroupByTop]
	}
	if f := m.desc.SumField(); f != "" {
		s.SumField = m.desc.Label(f)
		for _, r := range m.items {
			s.Sum += amount(r[f])
		}
	}
	return s
}

func amount(v any) float64 {
	switch v := v.(type) {
	case float64:
		return v
	case string:
		if f, ok := parseAmount(strings.TrimSpace(v)); ok {
			return f
		}
	}
	return 0
}

// Editor reports whether the editor is open and which record it holds; an
// empty id means a new record.
func (m *Model) Editor() (id string, open bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeID, m.editing
}

// OpenNew opens the editor on a blank record.
func (m *Model) OpenNew() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.editing = true
	m.activeID = ""
}

// Open opens the editor on an existing record.
func (m *Model) Open(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !slices.ContainsFunc(m.items, func(r storage.Record) bool { return r.ID() == id }) {
		return fmt.Errorf("%w %q", ErrUnknownRecord, id)
	}
	m.editing = true
	m.activeID = id
	return nil
}

// Close closes the editor without saving.
func (m *Model) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.editing = false
	m.activeID = ""
}

// Form returns the editor's initial values: one entry per descriptor field,
// blank for a new record.
func (m *Model) Form() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rec storage.Record
	if m.activeID != "" {
		if i := slices.IndexFunc(m.items, func(r storage.Record) bool { return r.ID() == m.activeID }); i >= 0 {
			rec = m.items[i]
		}
	}
	form := make(map[string]string, len(m.desc.Fields))
	for _, f := range m.desc.Fields {
		form[f.Name] = ValueString(rec[f.Name])
	}
	return form
}

// Normalize runs the submit pipeline over form values.
func (m *Model) Normalize(form map[string]string) map[string]any {
	fields := make(map[string]any, len(form))
	for k, v := range form {
		fields[k] = v
	}
	for _, n := range m.pipeline {
		n(m.desc, fields)
	}
	return fields
}

// Save submits the editor: a create for a new record, a shallow-merge update
// otherwise. On success the editor closes and the list reloads; on failure the
// editor stays open.
func (m *Model) Save(ctx context.Context, form map[string]string) (storage.Record, error) {
	id, open := m.Editor()
	if !open {
		return nil, ErrNotEditing
	}
	fields := m.Normalize(form)
	var rec storage.Record
	var err error
	if id == "" {
		rec, err = m.client.Create(ctx, fields)
	} else {
		rec, err = m.client.Update(ctx, id, fields)
	}
	if err != nil {
		return nil, m.fail(err)
	}
	m.succeed(true)
	m.refresh(ctx)
	return rec, nil
}

// DeleteActive deletes the record held by the editor.
func (m *Model) DeleteActive(ctx context.Context) error {
	id, open := m.Editor()
	if !open || id == "" {
		return ErrNotEditing
	}
	return m.Delete(ctx, id)
}

// Delete removes one record. The editor closes when it held that record.
func (m *Model) Delete(ctx context.Context, id string) error {
	if err := m.client.Delete(ctx, id); err != nil {
		return m.fail(err)
	}
	active, _ := m.Editor()
	m.succeed(active == id)
	m.refresh(ctx)
	return nil
}

// DeleteAll removes every record and closes the editor.
func (m *Model) DeleteAll(ctx context.Context) error {
	if err := m.client.DeleteAll(ctx); err != nil {
		return m.fail(err)
	}
	m.succeed(true)
	m.refresh(ctx)
	return nil
}

func (m *Model) fail(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alert = err.Error()
	return err
}

func (m *Model) succeed(closeEditor bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alert = ""
	if closeEditor {
		m.editing = false
		m.activeID = ""
	}
}

// refresh reloads after a mutation. A failure is reflected by Status.
func (m *Model) refresh(ctx context.Context) {
	_ = m.Load(ctx)
}
