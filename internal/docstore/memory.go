package docstore

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps documents in process memory. It backs the handler tests
// and DOCSTORE_DRIVER=memory.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]Document
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]map[string]Document),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) Get(_ context.Context, collection, id string) (Document, error) {
	if err := checkCollection(collection); err != nil {
		return Document{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return copyDocument(doc), nil
}

func (m *MemoryStore) Query(_ context.Context, collection string, filters ...Filter) ([]Document, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	if err := checkFilters(filters); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []Document{}
	for _, doc := range m.docs[collection] {
		if matches(doc.Data, filters) {
			out = append(out, copyDocument(doc))
		}
	}
	sortDocuments(out)
	return out, nil
}

func (m *MemoryStore) Create(_ context.Context, collection, id string, data map[string]any) (Document, error) {
	if err := checkCollection(collection); err != nil {
		return Document{}, err
	}
	clean, err := normalize(data)
	if err != nil {
		return Document{}, err
	}
	if id == "" {
		id = newID()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.docs[collection] == nil {
		m.docs[collection] = make(map[string]Document)
	}
	if _, exists := m.docs[collection][id]; exists {
		return Document{}, ErrAlreadyExists
	}
	now := m.now()
	doc := Document{
		ID:         id,
		Collection: collection,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
		Data:       merge(nil, clean),
	}
	m.docs[collection][id] = doc
	return copyDocument(doc), nil
}

func (m *MemoryStore) Update(_ context.Context, collection, id string, fields map[string]any, expectedVersion int64) (Document, error) {
	if err := checkCollection(collection); err != nil {
		return Document{}, err
	}
	clean, err := normalize(fields)
	if err != nil {
		return Document{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	if expectedVersion > 0 && doc.Version != expectedVersion {
		return Document{}, ErrVersionConflict
	}
	doc.Data = merge(doc.Data, clean)
	doc.Version++
	doc.UpdatedAt = m.now()
	m.docs[collection][id] = doc
	return copyDocument(doc), nil
}

func (m *MemoryStore) Delete(_ context.Context, collection, id string) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[collection][id]; !ok {
		return ErrNotFound
	}
	delete(m.docs[collection], id)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

func copyDocument(doc Document) Document {
	doc.Data = deepCopy(doc.Data).(map[string]any)
	return doc
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return v
	}
}

// sortDocuments orders by creation time then id so every backend returns
// snapshots in the same order.
func sortDocuments(docs []Document) {
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.Before(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})
}
