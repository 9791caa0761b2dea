package bimlink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	dbRedis "github.com/kailas-cloud/bimlink/internal/db/redis"
	domcmd "github.com/kailas-cloud/bimlink/internal/domain/command"
	"github.com/kailas-cloud/bimlink/internal/host"
	"github.com/kailas-cloud/bimlink/internal/repository/querycache"
	"github.com/kailas-cloud/bimlink/internal/usecase/classify"
	commanduc "github.com/kailas-cloud/bimlink/internal/usecase/command"
	"github.com/kailas-cloud/bimlink/internal/usecase/filter"
	healthuc "github.com/kailas-cloud/bimlink/internal/usecase/health"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultCacheTTL         = 5 * time.Minute
)

// Internal interfaces, swapped for mocks in tests.
type commandUseCase interface {
	List() []domcmd.Info
	Invoke(ctx context.Context, name string, params json.RawMessage) (domcmd.Result, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// sharedStore is the database surface the client uses for its query cache.
type sharedStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	Del(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	Close()
}

// Client is the bimlink SDK entry point.
type Client struct {
	commands  commandUseCase
	healthSvc healthUseCase
	obs       *observer
	closers   []func()
}

// New loads the model, starts the in-process host and returns a Client.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		cacheTTL:  defaultCacheTTL,
		queueSize: host.DefaultQueueSize,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	doc, err := loadModel(cfg)
	if err != nil {
		return nil, err
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	// Keep store a nil interface, not a typed nil pointer, without redis.
	var store sharedStore
	if len(cfg.addrs) > 0 {
		rs, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("bimlink: create redis store: %w", err)
		}
		if err := rs.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			rs.Close()
			return nil, fmt.Errorf("bimlink: database not ready: %w", err)
		}
		store = rs
	}

	return wireClient(ctx, doc, store, cfg, obs)
}

func loadModel(cfg *clientConfig) (*host.Document, error) {
	switch {
	case cfg.model != nil:
		doc, err := host.ParseModel(cfg.model)
		if err != nil {
			return nil, fmt.Errorf("bimlink: parse model: %w", err)
		}
		return doc, nil
	case cfg.modelPath != "":
		doc, err := host.LoadModel(cfg.modelPath)
		if err != nil {
			return nil, fmt.Errorf("bimlink: load model: %w", err)
		}
		return doc, nil
	default:
		return nil, errors.New("bimlink: model required (use WithModelFile or WithModel)")
	}
}

func wireClient(
	ctx context.Context, doc *host.Document, store sharedStore, cfg *clientConfig, obs *observer,
) (*Client, error) {
	app := host.NewApp(doc, host.WithQueueSize(cfg.queueSize))
	app.Start(context.Background())

	registry := commanduc.New(app, filter.New(nil), classify.New(nil, nil), nil,
		commanduc.WithTimeouts(cfg.timeouts))

	// Pass nil interface (not typed nil pointer) when there is no store.
	var dbPinger healthuc.DBPinger
	closers := []func(){app.Stop}
	if store != nil {
		dbPinger = store
		closers = append(closers, store.Close)
		if cfg.cacheTTL > 0 {
			if _, err := querycache.Purge(ctx, store, cfg.keyPrefix); err != nil {
				obs.warn("purge query cache", err)
			}
			err := registry.Decorate(commanduc.NameFilter, func(inner domcmd.Invoker) domcmd.Invoker {
				return querycache.New(inner, store, app.Version, querycache.Config{
					Prefix:  cfg.keyPrefix,
					TTL:     cfg.cacheTTL,
					Session: app.Session(),
				}, nil, nil)
			})
			if err != nil {
				app.Stop()
				return nil, fmt.Errorf("bimlink: enable cache: %w", err)
			}
		}
	}

	return &Client{
		commands:  registry,
		healthSvc: healthuc.New(app, dbPinger, nil, app.Version),
		obs:       obs,
		closers:   closers,
	}, nil
}

// Close stops the host and releases the store connection.
func (c *Client) Close() {
	for _, fn := range c.closers {
		fn()
	}
	c.closers = nil
}

// Call runs the named command. params is encoded as JSON unless it is
// already a json.RawMessage or []byte; nil sends no parameters. On success
// the response is decoded into out (when non-nil) and the envelope message
// is returned. A failed envelope is returned as a *CommandError.
func (c *Client) Call(ctx context.Context, name string, params, out any) (msg string, err error) {
	start := time.Now()
	defer func() { c.obs.observe(name, start, err) }()

	raw, err := encodeParams(params)
	if err != nil {
		return "", fmt.Errorf("bimlink: %s: encode params: %w", name, err)
	}

	res, err := c.commands.Invoke(ctx, name, raw)
	if err != nil {
		return "", fmt.Errorf("bimlink: %w", err)
	}
	env := res.Envelope
	if !env.Success() {
		return env.Message(), &CommandError{Command: name, Message: env.Message()}
	}
	if out != nil {
		if err := json.Unmarshal(env.Response(), out); err != nil {
			return env.Message(), fmt.Errorf("bimlink: %s: decode response: %w", name, err)
		}
	}
	return env.Message(), nil
}

func encodeParams(params any) (json.RawMessage, error) {
	switch p := params.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return p, nil
	case []byte:
		return p, nil
	}
	return json.Marshal(params)
}

// CommandInfo describes a registered command.
type CommandInfo struct {
	Name    string
	Timeout time.Duration
	Mutates bool
}

// Commands lists the registered commands in registration order.
func (c *Client) Commands() []CommandInfo {
	infos := c.commands.List()
	out := make([]CommandInfo, len(infos))
	for i, info := range infos {
		out[i] = CommandInfo{Name: info.Name, Timeout: info.Timeout, Mutates: info.Mutates}
	}
	return out
}
