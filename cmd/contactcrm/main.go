// Package main is the entry point for the contactcrm server.
//
// contactcrm serves a JSON REST API over a single JSON document and the
// embedded browser shell. Configuration is read from CLI flags, a .env file
// in the data directory, and server_config.json (body size and rate limits).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/maruel/contactcrm/internal/logging"
	"github.com/maruel/contactcrm/internal/schema"
	"github.com/maruel/contactcrm/internal/server"
	"github.com/maruel/contactcrm/internal/server/handlers"
	"github.com/maruel/contactcrm/internal/server/ratelimit"
	"github.com/maruel/contactcrm/internal/storage"
	"github.com/maruel/contactcrm/internal/storage/history"
)

// schemaFile is loaded from the data directory when -schema is not set.
const schemaFile = "fields.yaml"

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "contactcrm: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	version := flag.Bool("version", false, "Print version and exit")
	port := flag.Int("port", 3000, "TCP port to listen on")
	host := flag.String("host", "", "Interface to listen on; empty means all interfaces")
	dataDir := flag.String("data-dir", "./data", "Data directory")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	schemaPath := flag.String("schema", "", "YAML field descriptor; defaults to <data-dir>/"+schemaFile+" when present")
	gitHistory := flag.Bool("git-history", false, "Record every change of the contacts document as a git commit in the data directory")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	if *version {
		printVersion()
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	ll.Set(slog.LevelInfo)
	slog.SetDefault(logging.New(os.Stderr, ll))

	if err := os.MkdirAll(*dataDir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	env, err := loadDotEnv(*dataDir)
	if err != nil {
		return err
	}
	opts := options{
		Port:       *port,
		Host:       *host,
		LogLevel:   *logLevel,
		Schema:     *schemaPath,
		GitHistory: *gitHistory,
	}
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	if err := opts.applyEnv(set, env, os.Getenv("PORT")); err != nil {
		return err
	}
	if err := logging.SetLevel(ll, opts.LogLevel); err != nil {
		return err
	}

	serverCfg, err := storage.LoadServerConfig(*dataDir)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", storage.ConfigFile, err)
	}
	desc, err := loadSchema(opts.Schema, *dataDir)
	if err != nil {
		return err
	}
	store, err := storage.NewStore(*dataDir)
	if err != nil {
		return err
	}
	svc := &handlers.Services{Store: store, Schema: desc}
	if opts.GitHistory {
		if svc.History, err = history.Open(*dataDir, storage.DocumentFile); err != nil {
			return err
		}
		// Snapshot the document as found on disk.
		if err := svc.History.Record(ctx, "startup"); err != nil {
			return err
		}
		slog.InfoContext(ctx, "Git history enabled", "dir", *dataDir)
	}

	// Watch own executable for modifications (for development restarts)
	if err := watchExecutable(ctx, stop); err != nil {
		return fmt.Errorf("failed to watch executable: %w", err)
	}

	limiters := ratelimit.NewLimiters(serverCfg.RateLimits)
	defer limiters.Close()
	buildVersion, _, _, _ := getBuildInfo()
	cfg := &handlers.Config{Version: buildVersion, ServerConfig: *serverCfg}

	addr := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.NewRouter(svc, cfg, limiters),
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Starting server", "addr", addr, "data", store.Path(), "version", buildVersion)
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.InfoContext(ctx, "Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		slog.InfoContext(ctx, "Server stopped")
	}
	return nil
}

// loadSchema loads the descriptor at path, or <dataDir>/fields.yaml when path
// is empty and the file exists, or the built-in default.
func loadSchema(path, dataDir string) (*schema.Descriptor, error) {
	if path == "" {
		p := filepath.Join(dataDir, schemaFile)
		if _, err := os.Stat(p); err != nil {
			return schema.Default(), nil
		}
		path = p
	}
	d, err := schema.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	return d, nil
}

func printVersion() {
	version, goVersion, revision, dirty := getBuildInfo()
	fmt.Printf("contactcrm %s\n", version)
	fmt.Printf("  Go version: %s\n", goVersion)
	fmt.Printf("  Revision:   %s\n", revision)
	if dirty {
		fmt.Printf("  Modified:   true\n")
	}
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "unknown"
	goVersion = "unknown"
	revision = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}

// watchExecutable watches the current executable for modifications and calls
// stop to trigger graceful shutdown when detected.
func watchExecutable(ctx context.Context, stop context.CancelFunc) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(exe); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Chmod) {
					slog.InfoContext(ctx, "Executable modified, initiating shutdown")
					stop()
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching executable", "err", err)
			}
		}
	}()
	return nil
}
