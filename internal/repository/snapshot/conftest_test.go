package snapshot

import (
	"context"
	"sync"
	"testing"

	"github.com/kailas-cloud/bimlink/internal/db"
	"github.com/kailas-cloud/bimlink/internal/host"
)

const sampleModel = "../../../config/models/sample.yaml"

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	hashes map[string]map[string]string
	sets   int
	setFn  func(ctx context.Context, key string, value []byte) error
	hsetFn func(ctx context.Context, key string, fields map[string]string) error
}

func newMockKVStore() *mockKVStore {
	return &mockKVStore{data: make(map[string][]byte), hashes: make(map[string]map[string]string)}
}

func (m *mockKVStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKVStore) Set(ctx context.Context, key string, value []byte) error {
	if m.setFn != nil {
		if err := m.setFn(ctx, key, value); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.data[key] = value
	return nil
}

func (m *mockKVStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *mockKVStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		if err := m.hsetFn(ctx, key, fields); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	for f, v := range fields {
		h[f] = v
	}
	return nil
}

func (m *mockKVStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.hashes[key]))
	for f, v := range m.hashes[key] {
		out[f] = v
	}
	return out, nil
}

func (m *mockKVStore) HDel(_ context.Context, key string, fields ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range fields {
		delete(m.hashes[key], f)
	}
	return nil
}

func (m *mockKVStore) setCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets
}

func loadSample(t *testing.T) *host.Document {
	t.Helper()
	doc, err := host.LoadModel(sampleModel)
	if err != nil {
		t.Fatalf("load sample model: %v", err)
	}
	return doc
}
