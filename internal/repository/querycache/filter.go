// Package querycache caches filter command results per document version.
package querycache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bimlink/internal/db"
	"github.com/kailas-cloud/bimlink/internal/domain"
	domcmd "github.com/kailas-cloud/bimlink/internal/domain/command"
	"github.com/kailas-cloud/bimlink/internal/domain/envelope"
)

// store is the consumer interface for the query cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// VersionFunc reports the current document version from any goroutine.
type VersionFunc func() uint64

// Config holds cache settings.
type Config struct {
	Prefix string
	TTL    time.Duration
	// Session scopes entries to one host instance. Document versions restart
	// with every process, so processes sharing a store must use distinct
	// sessions.
	Session string
}

// Filter caches successful results of a read-only command. Keys include the
// host session and the document version, so a change to the document never
// serves a stale hit, in this process or another one sharing the store.
type Filter struct {
	inner      domcmd.Invoker
	store      store
	version    VersionFunc
	cfg        Config
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner domcmd.Invoker,
	s store,
	version VersionFunc,
	cfg Config,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *Filter {
	if cfg.Prefix == "" {
		cfg.Prefix = domain.KeyPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filter{
		inner:      inner,
		store:      s,
		version:    version,
		cfg:        cfg,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Info describes the wrapped command.
func (f *Filter) Info() domcmd.Info { return f.inner.Info() }

// Invoke returns a cached result or runs the inner command.
func (f *Filter) Invoke(ctx context.Context, params json.RawMessage) (domcmd.Result, error) {
	digest, ok := canonicalDigest(params)
	if !ok {
		// Let the command report the malformed parameters.
		return f.inner.Invoke(ctx, params)
	}

	if res, ok := f.getFromCache(ctx, f.key(f.version(), digest)); ok {
		f.incCache("hit")
		return res, nil
	}
	f.incCache("miss")

	res, err := f.inner.Invoke(ctx, params)
	if err != nil {
		return domcmd.Result{}, err
	}
	if res.Envelope.Success() {
		f.putToCache(ctx, f.key(res.Version, digest), res)
	}
	return res, nil
}

type entry struct {
	Envelope envelope.Envelope[json.RawMessage] `json:"envelope"`
	Version  uint64                             `json:"version"`
}

func (f *Filter) getFromCache(ctx context.Context, key string) (domcmd.Result, bool) {
	data, err := f.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			f.logger.Warn("Failed to get cached query", zap.String("key", key), zap.Error(err))
		}
		return domcmd.Result{}, false
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		f.logger.Warn("Failed to parse cached query", zap.String("key", key), zap.Error(err))
		return domcmd.Result{}, false
	}
	return domcmd.Result{Envelope: e.Envelope, Version: e.Version}, true
}

func (f *Filter) putToCache(ctx context.Context, key string, res domcmd.Result) {
	data, err := json.Marshal(entry{Envelope: res.Envelope, Version: res.Version})
	if err != nil {
		f.logger.Warn("Failed to encode query result", zap.String("key", key), zap.Error(err))
		return
	}
	if err := f.store.SetWithTTL(ctx, key, data, f.cfg.TTL); err != nil {
		f.logger.Warn("Failed to cache query", zap.String("key", key), zap.Error(err))
	}
}

func (f *Filter) incCache(result string) {
	if f.cacheTotal != nil {
		f.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (f *Filter) key(version uint64, digest string) string {
	k := f.cfg.Prefix + "query:"
	if f.cfg.Session != "" {
		k += f.cfg.Session + ":"
	}
	return k + strconv.FormatUint(version, 10) + ":" + digest
}

// canonicalDigest hashes params re-encoded with sorted keys, so requests
// that differ only in key order or whitespace share an entry. A {"data": ...}
// wrapper is removed first. Empty params hash like an empty object.
func canonicalDigest(params json.RawMessage) (string, bool) {
	var v any = map[string]any{}
	if trimmed := bytes.TrimSpace(params); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&v); err != nil {
			return "", false
		}
	}
	if m, ok := v.(map[string]any); ok {
		if inner, ok := m["data"].(map[string]any); ok {
			v = inner
		}
	}
	canon, err := json.Marshal(v)
	if err != nil {
		return "", false
	}
	h := sha256.Sum256(canon)
	return hex.EncodeToString(h[:]), true
}
