package annotation

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned by Store.Get for an unknown output.
var ErrNotFound = errors.New("annotation record not found")

// Record is the annotation set of one named output, together with the
// digest of the stack it describes.
type Record struct {
	Output      string
	Digest      string
	Annotations Set
}

// Store persists annotation records keyed by output name. Putting an
// existing output replaces its record.
type Store interface {
	Put(ctx context.Context, rec Record) error
	Get(ctx context.Context, output string) (Record, error)
	List(ctx context.Context) ([]Record, error)
	Close() error
}

// MemoryStore is a Store kept in a map.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (m *MemoryStore) Put(_ context.Context, rec Record) error {
	rec.Annotations = append(Set(nil), rec.Annotations...)
	m.mu.Lock()
	m.records[rec.Output] = rec
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, output string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[output]
	if !ok {
		return Record{}, ErrNotFound
	}
	rec.Annotations = append(Set(nil), rec.Annotations...)
	return rec, nil
}

// List returns every record ordered by output name.
func (m *MemoryStore) List(_ context.Context) ([]Record, error) {
	m.mu.RLock()
	out := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		rec.Annotations = append(Set(nil), rec.Annotations...)
		out = append(out, rec)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Output < out[j].Output })
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
