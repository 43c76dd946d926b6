package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lokalapp/notiflow/internal/colors"
	"github.com/lokalapp/notiflow/internal/config"
	"github.com/lokalapp/notiflow/internal/ports"
	"github.com/lokalapp/notiflow/internal/storage/memory"
	"github.com/lokalapp/notiflow/internal/storage/sqlite"
)

const (
	// BackendSQLite selects the SQLite key/value store.
	BackendSQLite = "sqlite"
	// BackendMemory selects the in-process store. Nothing survives the process.
	BackendMemory = "memory"

	dbFileName = "notiflow.db"
)

// Backend is a key/value store that owns resources.
type Backend interface {
	ports.KeyValueStore
	Close() error
}

var (
	_ Backend = (*sqlite.Store)(nil)
	_ Backend = (*memory.Store)(nil)
)

// NewFromConfig creates a backend from the loaded configuration.
func NewFromConfig() (Backend, error) {
	return NewForBackend(config.Get("storage_backend", BackendSQLite), config.Get("state_dir", ""))
}

// NewForBackend creates the named backend. SQLite falls back to memory when it cannot be opened.
func NewForBackend(backend, stateDir string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendSQLite:
		if stateDir == "" {
			return nil, fmt.Errorf("storage: state_dir not configured")
		}
		if err := os.MkdirAll(stateDir, config.FileModeDir); err != nil {
			return nil, fmt.Errorf("storage: create state directory: %w", err)
		}
		store, err := sqlite.New(filepath.Join(stateDir, dbFileName))
		if err != nil {
			colors.Warning(fmt.Sprintf("failed to initialize sqlite backend, falling back to memory: %v", err))
			return memory.New(), nil
		}
		return store, nil
	case BackendMemory:
		return memory.New(), nil
	default:
		colors.Warning(fmt.Sprintf("unknown storage backend '%s', falling back to sqlite", backend))
		return NewForBackend(BackendSQLite, stateDir)
	}
}
