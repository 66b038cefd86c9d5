package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// JsonFileStore stores each collection as a separate JSON file on disk.
//
// Layout:
//
//	data_dir/
//	  application.json   # "application" collection, id -> document
//	  user.json          # "user" collection
type JsonFileStore struct {
	mu  sync.RWMutex
	dir string
}

func NewJsonFileStore(dir string) (*JsonFileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &JsonFileStore{dir: dir}, nil
}

func (s *JsonFileStore) collectionPath(collection string) (string, error) {
	if collection == "" || strings.ContainsAny(collection, `/\`) || strings.HasPrefix(collection, ".") {
		return "", fmt.Errorf("invalid collection name %q", collection)
	}
	return filepath.Join(s.dir, collection+".json"), nil
}

// loadCollection loads a file as id -> document. A missing file is an empty collection.
func (s *JsonFileStore) loadCollection(path string) (map[string]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]map[string]any{}, nil
		}
		return nil, err
	}
	var result map[string]map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("corrupt collection file %s: %w", filepath.Base(path), err)
	}
	if result == nil {
		result = map[string]map[string]any{}
	}
	return result, nil
}

func (s *JsonFileStore) saveCollection(path string, coll map[string]map[string]any) error {
	b, err := json.MarshalIndent(coll, "", "  ")
	if err != nil {
		return err
	}
	// Replace via rename; readers never see a partial file.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *JsonFileStore) Insert(_ context.Context, collection string, doc map[string]any) (string, error) {
	path, err := s.collectionPath(collection)
	if err != nil {
		return "", err
	}
	stored, err := withoutID(doc)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, err := s.loadCollection(path)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	coll[id] = stored
	if err := s.saveCollection(path, coll); err != nil {
		return "", err
	}
	return id, nil
}

func (s *JsonFileStore) Find(_ context.Context, collection string, filter map[string]any, limit int) ([]map[string]any, error) {
	path, err := s.collectionPath(collection)
	if err != nil {
		return nil, err
	}
	want, err := normalizeFilter(filter)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	coll, err := s.loadCollection(path)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(coll))
	for id := range coll {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	result := []map[string]any{}
	for _, id := range ids {
		if limit > 0 && len(result) >= limit {
			break
		}
		doc := coll[id]
		if !matches(doc, want) {
			continue
		}
		doc[IDField] = id
		result = append(result, doc)
	}
	return result, nil
}

func (s *JsonFileStore) ListCollections(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(names)
	return names, nil
}

func (s *JsonFileStore) Ping(context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.dir)
	}
	return nil
}

func (s *JsonFileStore) Name() string { return filepath.Base(s.dir) }

func (s *JsonFileStore) Close(context.Context) error { return nil }
