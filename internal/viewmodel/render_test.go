package viewmodel

import (
	"bytes"
	"testing"

	"github.com/maruel/contactcrm/internal/storage"
	"github.com/sebdah/goldie/v2"
)

func TestFormatDate(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"2025-03-02T08:30:00.000Z", "2025-03-02"},
		{"2025-03-01T23:30:00-05:00", "2025-03-02"},
		{"2025-01-15T23:59:59Z", "2025-01-15"},
		{"garbage", "garbage"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := FormatDate(tt.in); got != tt.want {
			t.Errorf("FormatDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCountLabel(t *testing.T) {
	for n, want := range map[int]string{0: "0 contacts", 1: "1 contact", 2: "2 contacts"} {
		if got := CountLabel(n); got != want {
			t.Errorf("CountLabel(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestModel_ListItem(t *testing.T) {
	m := New(&fakeClient{}, nil)
	r := storage.Record{"name": " ", "company": "Acme", "phone": 5551234.0, "tags": "a,,b"}
	if got := m.Title(r); got != UntitledRecord {
		t.Errorf("Title() = %q", got)
	}
	if got := m.Meta(r); got != "Acme • 5551234" {
		t.Errorf("Meta() = %q", got)
	}
	if got := m.Meta(storage.Record{}); got != EmptyMeta {
		t.Errorf("Meta(empty) = %q", got)
	}
	if got := m.Tags(r); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Tags() = %q", got)
	}
}

func TestModel_WriteList(t *testing.T) {
	m, _ := loadedModel(t, nil, sampleRecords())
	var buf bytes.Buffer
	if err := m.WriteList(&buf); err != nil {
		t.Fatal(err)
	}
	g := goldie.New(t)
	g.Assert(t, "list", buf.Bytes())

	m.SetFilter("math")
	buf.Reset()
	if err := m.WriteList(&buf); err != nil {
		t.Fatal(err)
	}
	g.Assert(t, "list_filtered", buf.Bytes())
}

func TestModel_WriteSummary(t *testing.T) {
	m, _ := loadedModel(t, nil, sampleRecords())
	var buf bytes.Buffer
	if err := m.WriteSummary(&buf); err != nil {
		t.Fatal(err)
	}
	goldie.New(t).Assert(t, "summary", buf.Bytes())
}
