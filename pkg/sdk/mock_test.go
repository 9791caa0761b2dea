package bimlink

import (
	"context"
	"encoding/json"
	"path"
	"sync"
	"time"

	"github.com/kailas-cloud/bimlink/internal/db"
	domcmd "github.com/kailas-cloud/bimlink/internal/domain/command"
	healthuc "github.com/kailas-cloud/bimlink/internal/usecase/health"
)

// --- commandUseCase mock ---

type mockCommands struct {
	listFn   func() []domcmd.Info
	invokeFn func(ctx context.Context, name string, params json.RawMessage) (domcmd.Result, error)
}

func (m *mockCommands) List() []domcmd.Info { return m.listFn() }

func (m *mockCommands) Invoke(ctx context.Context, name string, params json.RawMessage) (domcmd.Result, error) {
	return m.invokeFn(ctx, name, params)
}

// --- healthUseCase mock ---

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

func newMockClient(cmds commandUseCase, obs *observer) *Client {
	return &Client{commands: cmds, healthSvc: &mockHealth{}, obs: obs}
}

// --- sharedStore mock ---

// memStore is an in-memory sharedStore that several clients can share.
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) SetWithTTL(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStore) Scan(_ context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.data {
		if ok, _ := path.Match(pattern, k); ok {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memStore) Ping(context.Context) error { return nil }

func (m *memStore) Close() {}

func (m *memStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}
