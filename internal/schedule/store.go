package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Document is a schemaless record as the document store holds it.
type Document map[string]any

// DocumentStore is the external keyed document service. Paths look like
// "users/{uid}/schedules/{id}"; a collection is a path minus its last segment.
type DocumentStore interface {
	// Get returns the document at path or an error wrapping ErrNotFound.
	Get(ctx context.Context, path string) (Document, error)
	// MergeSet creates the document or overwrites only the given fields.
	MergeSet(ctx context.Context, path string, fields Document) error
	// QueryRange returns documents of collection whose RFC 3339 timestamp
	// field lies in [from, to], ordered by that field.
	QueryRange(ctx context.Context, collection, field string, from, to time.Time) ([]Document, error)
}

// SplitPath separates a document path into collection and id.
func SplitPath(path string) (collection, id string) {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

// FieldTime reads an RFC 3339 timestamp field from doc.
func FieldTime(doc Document, field string) (time.Time, bool) {
	s, ok := doc[field].(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// MemoryStore is an in-process DocumentStore for development and tests.
// Documents round-trip through JSON so values have the same shapes the
// networked stores return.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]Document)}
}

func (m *MemoryStore) Get(_ context.Context, path string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return clone(doc)
}

func (m *MemoryStore) MergeSet(_ context.Context, path string, fields Document) error {
	normalized, err := clone(fields)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[path]
	if !ok {
		doc = Document{}
		m.docs[path] = doc
	}
	for k, v := range normalized {
		doc[k] = v
	}
	return nil
}

func (m *MemoryStore) QueryRange(_ context.Context, collection, field string, from, to time.Time) ([]Document, error) {
	type hit struct {
		at  time.Time
		doc Document
	}

	m.mu.RLock()
	var hits []hit
	for path, doc := range m.docs {
		if c, _ := SplitPath(path); c != collection {
			continue
		}
		at, ok := FieldTime(doc, field)
		if !ok || at.Before(from) || at.After(to) {
			continue
		}
		// Copy under the lock; MergeSet mutates stored maps in place
		cp, err := clone(doc)
		if err != nil {
			m.mu.RUnlock()
			return nil, err
		}
		hits = append(hits, hit{at: at, doc: cp})
	}
	m.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool { return hits[i].at.Before(hits[j].at) })

	out := make([]Document, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.doc)
	}
	return out, nil
}

// Health reports the store as always up.
func (m *MemoryStore) Health() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return map[string]string{
		"status":    "up",
		"driver":    "memory",
		"documents": fmt.Sprint(len(m.docs)),
	}
}

func clone(doc Document) (Document, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	var out Document
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return out, nil
}
