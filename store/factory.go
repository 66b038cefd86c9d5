package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Options select and configure a backend.
type Options struct {
	Backend string
	URL     string
	Name    string
	DataDir string
}

// New creates a Store based on the backend name.
//
// Supported backends:
//
//	"mongo"    - MongoDB at URL, database Name
//	"postgres" - PostgreSQL at URL, JSONB documents table
//	"sqlite"   - SQLite database at DataDir/admissions.db
//	"json"     - JSON files in DataDir
//	"memory"   - In-memory (ephemeral, for testing)
//
// An empty backend is inferred from the URL scheme. With neither a backend
// nor a URL, New returns ErrNotConfigured.
func New(ctx context.Context, opts Options) (Store, error) {
	backend := strings.ToLower(opts.Backend)
	if backend == "" {
		backend = inferBackend(opts.URL)
	}
	switch backend {
	case "mongo", "mongodb":
		if opts.URL == "" || opts.Name == "" {
			return nil, fmt.Errorf("%w: mongo needs DATABASE_URL and DATABASE_NAME", ErrNotConfigured)
		}
		return NewMongoStore(ctx, opts.URL, opts.Name)
	case "postgres", "postgresql":
		if opts.URL == "" {
			return nil, fmt.Errorf("%w: postgres needs DATABASE_URL", ErrNotConfigured)
		}
		return NewPostgresStore(ctx, opts.URL)
	case "sqlite":
		return NewSqliteStore(filepath.Join(opts.DataDir, "admissions.db"))
	case "json":
		return NewJsonFileStore(opts.DataDir)
	case "memory":
		return NewMemoryStore(), nil
	case "":
		return nil, ErrNotConfigured
	default:
		return nil, fmt.Errorf("unknown store backend: %q (supported: mongo, postgres, sqlite, json, memory)", backend)
	}
}

func inferBackend(url string) string {
	switch {
	case strings.HasPrefix(url, "mongodb://"), strings.HasPrefix(url, "mongodb+srv://"):
		return "mongo"
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return "postgres"
	case url == "":
		return ""
	}
	return strings.SplitN(url, "://", 2)[0]
}
