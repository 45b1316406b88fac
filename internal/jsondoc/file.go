package jsondoc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// lockRetryDelay is the polling interval while waiting for the file lock.
const lockRetryDelay = 10 * time.Millisecond

// Document is implemented by pointer types that can be stored in a File.
type Document[T any] interface {
	*T
	// Init prepares a freshly allocated empty document.
	Init()
	// Validate reports whether a decoded document has the expected shape.
	Validate() error
}

// File handles storage of a single JSON document.
type File[T any, PT Document[T]] struct {
	path string
	mu   sync.Mutex
	lock *flock.Flock

	// now is overridable in tests to get deterministic backup names.
	now func() time.Time
}

// NewFile creates the directory and the file if missing, then returns a File.
//
// A missing file is initialized with an empty document. An existing file is
// left untouched until the first operation reads it.
func NewFile[T any, PT Document[T]](path string) (*File[T, PT], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f := &File[T, PT]{
		path: path,
		lock: flock.New(path + ".lock"),
		now:  time.Now,
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if err := f.write(f.empty()); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Path returns the document path.
func (f *File[T, PT]) Path() string {
	return f.path
}

// Read returns the current document.
func (f *File[T, PT]) Read(ctx context.Context) (PT, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.acquire(ctx); err != nil {
		return nil, err
	}
	defer f.release(ctx)
	return f.load(ctx)
}

// Modify runs fn on the current document and persists it when fn succeeds.
//
// The whole cycle runs under the document lock. When fn returns an error the
// file is not rewritten and the error is returned as is.
func (f *File[T, PT]) Modify(ctx context.Context, fn func(doc PT) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.acquire(ctx); err != nil {
		return err
	}
	defer f.release(ctx)

	doc, err := f.load(ctx)
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return f.write(doc)
}

func (f *File[T, PT]) acquire(ctx context.Context) error {
	ok, err := f.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", f.path, err)
	}
	if !ok {
		return fmt.Errorf("failed to lock %s", f.path)
	}
	return nil
}

func (f *File[T, PT]) release(ctx context.Context) {
	if err := f.lock.Unlock(); err != nil {
		slog.WarnContext(ctx, "Failed to unlock document", "path", f.path, "err", err)
	}
}

func (f *File[T, PT]) empty() PT {
	doc := PT(new(T))
	doc.Init()
	return doc
}

// load reads and decodes the file, repairing it when it is corrupt.
func (f *File[T, PT]) load(ctx context.Context) (PT, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
		}
		// Deleted behind our back; start over.
		doc := f.empty()
		if err := f.write(doc); err != nil {
			return nil, err
		}
		return doc, nil
	}
	doc, err := f.decode(raw)
	if err == nil {
		return doc, nil
	}
	return f.repair(ctx, raw, err)
}

func (f *File[T, PT]) decode(raw []byte) (PT, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errors.New("document is not a JSON object")
	}
	doc := PT(new(T))
	if err := json.Unmarshal(trimmed, doc); err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// repair moves the corrupt bytes aside and writes a fresh empty document.
func (f *File[T, PT]) repair(ctx context.Context, raw []byte, cause error) (PT, error) {
	backup := f.backupPath()
	if err := os.WriteFile(backup, raw, 0o644); err != nil { //nolint:gosec // G306: same mode as the document
		return nil, fmt.Errorf("failed to back up corrupt %s: %w", f.path, err)
	}
	slog.WarnContext(ctx, "Corrupt document replaced", "path", f.path, "backup", backup, "err", cause)
	doc := f.empty()
	if err := f.write(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// backupPath returns "<dir>/<name>-corrupt-<unix-ms>.json".
func (f *File[T, PT]) backupPath() string {
	ext := filepath.Ext(f.path)
	base := strings.TrimSuffix(f.path, ext)
	if ext == "" {
		ext = ".json"
	}
	return fmt.Sprintf("%s-corrupt-%d%s", base, f.now().UnixMilli(), ext)
}

// write replaces the file atomically through a temporary sibling.
func (f *File[T, PT]) write(doc PT) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), "."+filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close document: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil { //nolint:gosec // G302: document is not secret
		return fmt.Errorf("failed to chmod document: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", f.path, err)
	}
	return nil
}
