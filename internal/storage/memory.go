package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// ErrObjectNotFound is returned when deleting an unknown object.
var ErrObjectNotFound = errors.New("object not found")

// MemoryStore keeps objects in process memory. Used for local runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]memoryObject
}

type memoryObject struct {
	contentType string
	data        []byte
}

// NewMemoryStore creates an empty store whose URLs start with baseURL.
func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string]memoryObject),
	}
}

// Put stores the contents of r under key.
func (m *MemoryStore) Put(ctx context.Context, key, contentType string, r io.Reader, size int64) (Object, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Object{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{contentType: contentType, data: data}
	return Object{ID: key, URL: m.baseURL + "/" + key}, nil
}

// Delete removes an object.
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[id]; !ok {
		return ErrObjectNotFound
	}
	delete(m.objects, id)
	return nil
}

// Has reports whether an object exists.
func (m *MemoryStore) Has(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[id]
	return ok
}

// Len returns the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
