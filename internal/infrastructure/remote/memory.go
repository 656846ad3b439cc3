package remote

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"iotsync/internal/domain/record"
)

// MemoryFlatStore is an in-process FlatStore.
type MemoryFlatStore struct {
	mu    sync.RWMutex
	nodes map[string]map[string]any
}

func NewMemoryFlatStore() *MemoryFlatStore {
	return &MemoryFlatStore{nodes: make(map[string]map[string]any)}
}

func (s *MemoryFlatStore) GetAll(_ context.Context, path string) (map[string]any, error) {
	prefix := JoinPath(path) + "/"

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out map[string]any
	for p, v := range s.nodes {
		key, ok := strings.CutPrefix(p, prefix)
		if !ok || key == "" || strings.Contains(key, "/") {
			continue
		}
		if out == nil {
			out = make(map[string]any)
		}
		out[key] = copyMap(v)
	}
	return out, nil
}

func (s *MemoryFlatStore) Set(_ context.Context, path string, value map[string]any) error {
	path = JoinPath(path)
	if path == "" {
		return ErrEmptyPath
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[path] = copyMap(value)
	return nil
}

// Delete removes path and every path below it.
func (s *MemoryFlatStore) Delete(_ context.Context, path string) (int64, error) {
	path = JoinPath(path)
	if path == "" {
		return 0, ErrEmptyPath
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for p := range s.nodes {
		if p == path || strings.HasPrefix(p, path+"/") {
			delete(s.nodes, p)
			n++
		}
	}
	return n, nil
}

// Paths lists every stored path in sorted order.
func (s *MemoryFlatStore) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.nodes))
	for p := range s.nodes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// MemoryDocumentStore is an in-process DocumentStore.
type MemoryDocumentStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]record.Record
	order       map[string][]string
}

func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{
		collections: make(map[string]map[string]record.Record),
		order:       make(map[string][]string),
	}
}

func (s *MemoryDocumentStore) List(_ context.Context, collection string) ([]record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := s.collections[collection]
	out := make([]record.Record, 0, len(docs))
	for _, id := range s.order[collection] {
		doc := docs[id].Clone()
		doc[record.FieldID] = id
		out = append(out, doc)
	}
	return out, nil
}

func (s *MemoryDocumentStore) Get(_ context.Context, collection, id string) (record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrDocumentNotFound)
	}
	out := doc.Clone()
	out[record.FieldID] = id
	return out, nil
}

func (s *MemoryDocumentStore) Create(_ context.Context, collection string, fields record.Record) (string, error) {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(collection, id, fields)
	return id, nil
}

// Update merges fields into the document, creating it when absent.
func (s *MemoryDocumentStore) Update(_ context.Context, collection, id string, fields record.Record) error {
	if id == "" {
		return fmt.Errorf("update %s: empty id", collection)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if doc, ok := s.collections[collection][id]; ok {
		doc.Merge(documentFields(fields))
		return nil
	}
	s.put(collection, id, fields)
	return nil
}

func (s *MemoryDocumentStore) put(collection, id string, fields record.Record) {
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]record.Record)
	}
	s.collections[collection][id] = documentFields(fields)
	s.order[collection] = append(s.order[collection], id)
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
