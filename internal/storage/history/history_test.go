package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
)

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	r, err := Open(dir, "db.json")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".gitignore")); err != nil {
		t.Errorf(".gitignore not written: %v", err)
	}

	commits, err := r.Log(ctx, 10)
	if err != nil {
		t.Fatalf("Log on empty repo: %v", err)
	}
	if len(commits) != 0 {
		t.Fatalf("commits = %v, want none", commits)
	}

	write := func(s string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, "db.json"), []byte(s), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	write(`{"items":[]}`)
	if err := r.Record(ctx, "DELETE /api/contacts/_all"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	// Unchanged file: no new commit.
	if err := r.Record(ctx, "noop"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	write(`{"items":[{"id":"a"}]}`)
	if err := r.Record(ctx, "POST /api/contacts\n\nbody"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	commits, err = r.Log(ctx, 10)
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(commits) != 2 {
		t.Fatalf("len(commits) = %d, want 2", len(commits))
	}
	if commits[0].Message != "POST /api/contacts" {
		t.Errorf("commits[0].Message = %q", commits[0].Message)
	}
	if commits[1].Message != "DELETE /api/contacts/_all" {
		t.Errorf("commits[1].Message = %q", commits[1].Message)
	}
	if len(commits[0].Hash) != 40 {
		t.Errorf("hash = %q", commits[0].Hash)
	}

	commits, err = r.Log(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(commits) != 1 {
		t.Errorf("Log(1) returned %d commits", len(commits))
	}

	// Reopening an existing repository works.
	if _, err := Open(dir, "db.json"); err != nil {
		t.Errorf("reopen: %v", err)
	}
}

func TestRecorder_TrackConcurrent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	r, err := Open(dir, "db.json")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	const n = 8
	var wg sync.WaitGroup
	for i := range n {
		wg.Go(func() {
			err := r.Track(ctx, fmt.Sprintf("write %d", i), func() {
				data := fmt.Sprintf(`{"n":%d}`, i)
				if err := os.WriteFile(filepath.Join(dir, "db.json"), []byte(data), 0o644); err != nil {
					t.Error(err)
				}
			})
			if err != nil {
				t.Errorf("Track: %v", err)
			}
		})
	}
	wg.Wait()

	commits, err := r.Log(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(commits) != n {
		t.Fatalf("len(commits) = %d, want %d", len(commits), n)
	}
	// Every commit holds the content written by the mutation it names.
	for _, c := range commits {
		obj, err := r.repo.CommitObject(plumbing.NewHash(c.Hash))
		if err != nil {
			t.Fatal(err)
		}
		f, err := obj.File("db.json")
		if err != nil {
			t.Fatal(err)
		}
		got, err := f.Contents()
		if err != nil {
			t.Fatal(err)
		}
		want := fmt.Sprintf(`{"n":%s}`, strings.TrimPrefix(c.Message, "write "))
		if got != want {
			t.Errorf("commit %q holds %s, want %s", c.Message, got, want)
		}
	}
}

func TestRecorder_LogBrokenRepository(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	r, err := Open(dir, "db.json")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "db.json"), []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := r.Record(ctx, "first"); err != nil {
		t.Fatal(err)
	}
	head, err := r.repo.Head()
	if err != nil {
		t.Fatal(err)
	}
	// Point the branch at a commit that does not exist.
	ref := filepath.Join(dir, ".git", filepath.FromSlash(head.Name().String()))
	if err := os.WriteFile(ref, []byte(strings.Repeat("ab", 20)+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err = Open(dir, "db.json")
	if err != nil {
		t.Fatal(err)
	}
	if commits, err := r.Log(ctx, 10); err == nil {
		t.Errorf("Log() = %v, want an error", commits)
	}
}
