// Package store persists saved template documents. It is the save
// sink behind the editor: sessions hold the working copy in memory and
// hand finished documents to a Store on explicit save.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/livetemplate/blockdraft"
	"github.com/livetemplate/blockdraft/internal/config"
)

// ErrNotFound is returned when no template with the requested id exists.
var ErrNotFound = errors.New("template not found")

// Store provides access to saved templates. Implementations must be
// safe for concurrent use.
type Store interface {
	// List returns every saved template, most recently updated first.
	List(ctx context.Context) ([]blockdraft.Template, error)

	// Get returns the template with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (blockdraft.Template, error)

	// Put saves the template, replacing any existing document with the
	// same id.
	Put(ctx context.Context, tpl blockdraft.Template) error

	// Delete removes the template with the given id, or returns
	// ErrNotFound if it does not exist.
	Delete(ctx context.Context, id string) error

	// Close releases any resources held by the store.
	Close() error
}

// NewFromConfig builds the store selected by the storage configuration.
func NewFromConfig(cfg config.StorageConfig) (Store, error) {
	switch driver := cfg.GetDriver(); driver {
	case "sqlite":
		return NewSQLite(cfg.GetPath())
	case "postgres":
		return NewPostgres(cfg.GetDSN())
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", driver)
	}
}
