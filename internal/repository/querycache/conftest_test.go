package querycache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kailas-cloud/bimlink/internal/db"
	domcmd "github.com/kailas-cloud/bimlink/internal/domain/command"
	"github.com/kailas-cloud/bimlink/internal/domain/envelope"
)

type mockInvoker struct {
	calls   int
	version uint64
	env     envelope.Envelope[json.RawMessage]
	err     error
}

func (m *mockInvoker) Info() domcmd.Info {
	return domcmd.Info{Name: "ai_element_filter", Timeout: time.Second}
}

func (m *mockInvoker) Invoke(context.Context, json.RawMessage) (domcmd.Result, error) {
	m.calls++
	if m.err != nil {
		return domcmd.Result{}, m.err
	}
	return domcmd.Result{Envelope: m.env, Version: m.version}, nil
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	data  map[string][]byte
	ttls  map[string]time.Duration
	getFn func(ctx context.Context, key string) ([]byte, error)
}

func newMockKVStore() *mockKVStore {
	return &mockKVStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKVStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func okEnvelope(payload, message string) envelope.Envelope[json.RawMessage] {
	return envelope.OK(json.RawMessage(payload), message)
}
