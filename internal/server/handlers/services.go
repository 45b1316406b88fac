// Defines shared service dependencies for handlers.

package handlers

import (
	"github.com/maruel/contactcrm/internal/schema"
	"github.com/maruel/contactcrm/internal/storage"
	"github.com/maruel/contactcrm/internal/storage/history"
)

// Services holds all service dependencies for handlers.
type Services struct {
	Store   *storage.Store
	History *history.Recorder // may be nil
	Schema  *schema.Descriptor
}

// Config holds configuration values needed by handlers.
type Config struct {
	Version      string
	ServerConfig storage.ServerConfig
}
