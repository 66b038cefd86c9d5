// Package store defines the document store interface and its backends.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// IDField is the key under which every returned document carries its
// store-assigned identifier, always as a string.
const IDField = "_id"

// ErrNotConfigured is returned when no backend could be selected.
var ErrNotConfigured = errors.New("database not configured")

// Store is the interface that all backing stores must implement.
// It operates on named collections of schema-less documents.
type Store interface {
	// Insert persists doc in collection and returns its new identifier.
	// Any IDField in doc is ignored.
	Insert(ctx context.Context, collection string, doc map[string]any) (string, error)

	// Find returns up to limit documents whose fields equal every entry of
	// filter. A nil or empty filter matches everything; limit <= 0 means no limit.
	Find(ctx context.Context, collection string, filter map[string]any, limit int) ([]map[string]any, error)

	// ListCollections returns the names of all collections that contain data.
	ListCollections(ctx context.Context) ([]string, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Name is the database name reported by diagnostics.
	Name() string

	// Close releases the backend.
	Close(ctx context.Context) error
}

// deepCopy returns a deep copy of a document by round-tripping through JSON.
// Values come back in their JSON shapes (numbers as float64, times as strings).
// Documents that cannot be encoded, such as ones holding NaN, are an error.
func deepCopy(src map[string]any) (map[string]any, error) {
	if src == nil {
		return nil, nil
	}
	b, err := json.Marshal(src)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var dst map[string]any
	if err := json.Unmarshal(b, &dst); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return dst, nil
}

// matches reports whether doc satisfies want, a filter already in its JSON
// shape (see normalizeFilter).
func matches(doc, want map[string]any) bool {
	for k, v := range want {
		got, ok := doc[k]
		if !ok || !reflect.DeepEqual(got, v) {
			return false
		}
	}
	return true
}

// normalizeFilter converts filter to its JSON shape so int 3 and float64 3
// compare equal.
func normalizeFilter(filter map[string]any) (map[string]any, error) {
	if len(filter) == 0 {
		return nil, nil
	}
	want, err := deepCopy(filter)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	return want, nil
}

// withoutID returns a copy of doc minus IDField.
func withoutID(doc map[string]any) (map[string]any, error) {
	out, err := deepCopy(doc)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	delete(out, IDField)
	return out, nil
}
