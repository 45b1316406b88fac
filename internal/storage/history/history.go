// Package history records successive versions of the contacts document as
// git commits, using go-git (pure Go, no git binary dependency).
//
// Mutations wrapped in Recorder.Track are committed one at a time, so each
// commit holds exactly the change made by the mutation named in its subject.
// Writes to the file made outside Track, for example by another process, end
// up in whichever commit comes next.
package history

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// gitignore keeps lock files, temporaries, secrets and backups out of history.
const gitignore = "*.lock\n*.tmp\n.env\n*-corrupt-*.json\n"

// Commit is one recorded version.
type Commit struct {
	Hash    string    `json:"hash"`
	Message string    `json:"message"`
	Date    time.Time `json:"date"`
}

// Recorder commits a single tracked file inside a git repository.
type Recorder struct {
	dir   string
	file  string
	name  string
	email string
	repo  *gogit.Repository
	mu    sync.Mutex

	// trackMu spans a tracked mutation and its commit.
	trackMu sync.Mutex
}

// Open opens the repository at dir, initializing it when needed, and tracks
// file (relative to dir).
func Open(dir, file string) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create repo directory: %w", err)
	}
	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		// Not a repo yet; initialize it.
		repo, err = gogit.PlainInit(dir, false)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize git repo: %w", err)
		}
	}
	ignore := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(ignore); os.IsNotExist(err) {
		if err := os.WriteFile(ignore, []byte(gitignore), 0o644); err != nil { //nolint:gosec // G306: not secret
			return nil, fmt.Errorf("failed to write .gitignore: %w", err)
		}
	}
	return &Recorder{
		dir:   dir,
		file:  filepath.ToSlash(file),
		name:  "contactcrm",
		email: "contactcrm@localhost",
		repo:  repo,
	}, nil
}

// Record stages the tracked file and commits it with msg when it changed.
// It is a no-op when the file is identical to the last commit.
func (r *Recorder) Record(ctx context.Context, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	w, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if _, err := w.Add(r.file); err != nil {
		return fmt.Errorf("failed to stage %s: %w", r.file, err)
	}
	status, err := w.Status()
	if err != nil {
		return fmt.Errorf("failed to get worktree status: %w", err)
	}
	if fs, ok := status[r.file]; !ok || fs.Staging == gogit.Unmodified {
		return nil
	}

	now := time.Now()
	sig := &object.Signature{Name: r.name, Email: r.email, When: now}
	if _, err := w.Commit(msg, &gogit.CommitOptions{Author: sig, Committer: sig}); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Track runs mutate then commits the tracked file with msg. No other tracked
// mutation runs in between.
func (r *Recorder) Track(ctx context.Context, msg string, mutate func()) error {
	r.trackMu.Lock()
	defer r.trackMu.Unlock()
	mutate()
	return r.Record(ctx, msg)
}

// Log returns up to n commits touching the tracked file, newest first.
func (r *Recorder) Log(ctx context.Context, n int) ([]*Commit, error) {
	if n <= 0 || n > 1000 {
		n = 1000
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	file := r.file
	iter, err := r.repo.Log(&gogit.LogOptions{FileName: &file})
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			// No commits yet.
			return []*Commit{}, nil
		}
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer iter.Close()

	commits := []*Commit{}
	for range n {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := iter.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to walk history: %w", err)
		}
		subject, _, _ := strings.Cut(c.Message, "\n")
		commits = append(commits, &Commit{
			Hash:    c.Hash.String(),
			Message: subject,
			Date:    c.Author.When.UTC(),
		})
	}
	return commits, nil
}
