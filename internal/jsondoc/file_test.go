package jsondoc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// testDoc is a minimal document for testing.
type testDoc struct {
	Names []string `json:"names"`
}

func (d *testDoc) Init() {
	d.Names = []string{}
}

func (d *testDoc) Validate() error {
	for _, n := range d.Names {
		if n == "" {
			return errors.New("empty name")
		}
	}
	return nil
}

func setupFile(t *testing.T) (*File[testDoc, *testDoc], string) {
	path := filepath.Join(t.TempDir(), "data", "doc.json")
	f, err := NewFile[testDoc](path)
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	return f, path
}

func TestNewFile(t *testing.T) {
	t.Run("creates directory and empty document", func(t *testing.T) {
		_, path := setupFile(t)
		raw, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile: %v", err)
		}
		if got, want := string(raw), "{\n  \"names\": []\n}"; got != want {
			t.Errorf("content = %q, want %q", got, want)
		}
	})
	t.Run("keeps existing document", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "doc.json")
		if err := os.WriteFile(path, []byte(`{"names":["a"]}`), 0o644); err != nil {
			t.Fatal(err)
		}
		f, err := NewFile[testDoc](path)
		if err != nil {
			t.Fatal(err)
		}
		doc, err := f.Read(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if len(doc.Names) != 1 || doc.Names[0] != "a" {
			t.Errorf("Names = %v, want [a]", doc.Names)
		}
	})
}

func TestFile_Modify(t *testing.T) {
	ctx := context.Background()
	t.Run("persists on success", func(t *testing.T) {
		f, path := setupFile(t)
		err := f.Modify(ctx, func(doc *testDoc) error {
			doc.Names = append(doc.Names, "x")
			return nil
		})
		if err != nil {
			t.Fatalf("Modify: %v", err)
		}
		g, err := NewFile[testDoc](path)
		if err != nil {
			t.Fatal(err)
		}
		doc, err := g.Read(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(doc.Names) != 1 || doc.Names[0] != "x" {
			t.Errorf("Names = %v, want [x]", doc.Names)
		}
	})
	t.Run("does not persist on error", func(t *testing.T) {
		f, _ := setupFile(t)
		errBoom := errors.New("boom")
		err := f.Modify(ctx, func(doc *testDoc) error {
			doc.Names = append(doc.Names, "x")
			return errBoom
		})
		if !errors.Is(err, errBoom) {
			t.Fatalf("Modify error = %v, want %v", err, errBoom)
		}
		doc, err := f.Read(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(doc.Names) != 0 {
			t.Errorf("Names = %v, want empty", doc.Names)
		}
	})
	t.Run("concurrent modifications are serialized", func(t *testing.T) {
		f, _ := setupFile(t)
		const n = 20
		var wg sync.WaitGroup
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := f.Modify(ctx, func(doc *testDoc) error {
					doc.Names = append(doc.Names, "n")
					return nil
				}); err != nil {
					t.Errorf("Modify: %v", err)
				}
			}()
		}
		wg.Wait()
		doc, err := f.Read(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(doc.Names) != n {
			t.Errorf("len(Names) = %d, want %d", len(doc.Names), n)
		}
	})
}

func TestFile_ReadRepair(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		content string
	}{
		{"invalid JSON", `{"names": [`},
		{"not an object", `["a"]`},
		{"null", `null`},
		{"empty file", ``},
		{"wrong type", `{"names": 3}`},
		{"fails validation", `{"names": [""]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, path := setupFile(t)
			f.now = func() time.Time { return time.UnixMilli(1700000000123) }
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			doc, err := f.Read(ctx)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if len(doc.Names) != 0 {
				t.Errorf("Names = %v, want empty", doc.Names)
			}
			backup := filepath.Join(filepath.Dir(path), "doc-corrupt-1700000000123.json")
			raw, err := os.ReadFile(backup)
			if err != nil {
				t.Fatalf("backup missing: %v", err)
			}
			if string(raw) != tt.content {
				t.Errorf("backup = %q, want %q", raw, tt.content)
			}
			// The repaired file now decodes cleanly.
			if _, err := f.decode(mustRead(t, path)); err != nil {
				t.Errorf("repaired file does not decode: %v", err)
			}
		})
	}
}

func TestFile_ReadRecreatesDeletedFile(t *testing.T) {
	f, path := setupFile(t)
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	doc, err := f.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if doc.Names == nil || len(doc.Names) != 0 {
		t.Errorf("Names = %#v, want empty slice", doc.Names)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("file not recreated: %v", err)
	}
}

func mustRead(t *testing.T, path string) []byte {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}
