// Package database is the data-access layer: it turns validated records into
// documents, hands them to the configured store and reports connectivity.
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stevemurr/kinder-admissions/store"
)

// Document is one stored record as returned by GetDocuments.
type Document = map[string]any

// StorageError wraps any failure reaching or writing to the store.
type StorageError struct {
	Op         string
	Collection string
	Err        error
}

func (e *StorageError) Error() string {
	return e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

// Client is the process-wide handle on the document store.
// A Client with a nil store is valid and reports NotConfigured.
type Client struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

// New returns a Client over s. s may be nil when no database is configured.
func New(s store.Store, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{store: s, logger: logger, now: time.Now}
}

// Configured reports whether a store is attached.
func (c *Client) Configured() bool { return c.store != nil }

// CreateDocument inserts record into collection and returns its identifier.
// record may be a struct or a map; created_at and updated_at are stamped in UTC.
func (c *Client) CreateDocument(ctx context.Context, collection string, record any) (string, error) {
	if c.store == nil {
		return "", &StorageError{Op: "insert", Collection: collection, Err: store.ErrNotConfigured}
	}
	doc, err := toDocument(record)
	if err != nil {
		return "", fmt.Errorf("encode %s document: %w", collection, err)
	}
	now := c.now().UTC()
	doc["created_at"] = now
	doc["updated_at"] = now

	id, err := c.store.Insert(ctx, collection, doc)
	if err != nil {
		c.logger.ErrorContext(ctx, "insert failed", "collection", collection, "error", err)
		return "", &StorageError{Op: "insert", Collection: collection, Err: err}
	}
	c.logger.DebugContext(ctx, "document created", "collection", collection, "id", id)
	return id, nil
}

// GetDocuments returns up to limit documents of collection equal to filter
// on every key. A nil filter matches all documents; order is store-defined.
func (c *Client) GetDocuments(ctx context.Context, collection string, filter map[string]any, limit int) ([]Document, error) {
	if c.store == nil {
		return nil, &StorageError{Op: "find", Collection: collection, Err: store.ErrNotConfigured}
	}
	docs, err := c.store.Find(ctx, collection, filter, limit)
	if err != nil {
		c.logger.ErrorContext(ctx, "find failed", "collection", collection, "error", err)
		return nil, &StorageError{Op: "find", Collection: collection, Err: err}
	}
	return docs, nil
}

// Close releases the store, if any.
func (c *Client) Close(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	return c.store.Close(ctx)
}

// toDocument converts a record to a flat map using its JSON field names.
// Maps are copied so the caller's value is never mutated.
func toDocument(record any) (map[string]any, error) {
	if m, ok := record.(map[string]any); ok {
		out := make(map[string]any, len(m)+2)
		for k, v := range m {
			out[k] = v
		}
		return out, nil
	}
	b, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, errors.New("record did not encode to an object")
	}
	return out, nil
}
