package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kailas-cloud/bimlink/internal/db"
	"github.com/kailas-cloud/bimlink/internal/domain"
	"github.com/kailas-cloud/bimlink/internal/host"
)

// store is the consumer interface for snapshots (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, keys ...string) error
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HDel(ctx context.Context, key string, fields ...string) error
}

// Info describes a saved snapshot without loading it.
type Info struct {
	Name    string `json:"name"`
	Title   string `json:"title"`
	Version uint64 `json:"version"`
	SavedAt int64  `json:"saved_at"` // unix millis
}

// Repo persists document snapshots as JSON.
type Repo struct {
	store  store
	prefix string
}

// New creates a snapshot repository. An empty prefix selects domain.KeyPrefix.
func New(s store, prefix string) *Repo {
	if prefix == "" {
		prefix = domain.KeyPrefix
	}
	return &Repo{store: s, prefix: prefix}
}

// Save writes snap under name, replacing any previous snapshot.
func (r *Repo) Save(ctx context.Context, name string, snap *host.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	key := r.key(name)
	if err := r.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}

	info, err := json.Marshal(Info{
		Name: name, Title: snap.Title, Version: snap.Version, SavedAt: time.Now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("marshal snapshot info: %w", err)
	}
	if err := r.store.HSet(ctx, r.indexKey(), map[string]string{name: string(info)}); err != nil {
		return fmt.Errorf("index snapshot %q: %w", name, err)
	}
	return nil
}

// List returns the indexed snapshots ordered by name. Unreadable index
// entries are skipped.
func (r *Repo) List(ctx context.Context) ([]Info, error) {
	fields, err := r.store.HGetAll(ctx, r.indexKey())
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	out := make([]Info, 0, len(fields))
	for name, raw := range fields {
		var info Info
		if json.Unmarshal([]byte(raw), &info) != nil {
			continue
		}
		info.Name = name
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete removes the snapshot and its index entry. Deleting a missing
// snapshot is not an error.
func (r *Repo) Delete(ctx context.Context, name string) error {
	if err := r.store.Del(ctx, r.key(name)); err != nil {
		return fmt.Errorf("delete snapshot %q: %w", name, err)
	}
	if err := r.store.HDel(ctx, r.indexKey(), name); err != nil {
		return fmt.Errorf("unindex snapshot %q: %w", name, err)
	}
	return nil
}

// Load returns the snapshot saved under name, or domain.ErrNotFound.
func (r *Repo) Load(ctx context.Context, name string) (*host.Snapshot, error) {
	key := r.key(name)
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, fmt.Errorf("snapshot %q: %w", name, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	var snap host.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %q: %w", name, err)
	}
	return &snap, nil
}

// Resume restores the document saved under name. When there is none, or
// reset is set, it returns the document built by seed instead; reset also
// deletes the saved snapshot so the next save starts over. restored reports
// whether the document came from the store.
func (r *Repo) Resume(
	ctx context.Context, name string, reset bool, seed func() (*host.Document, error),
) (doc *host.Document, restored bool, err error) {
	if reset {
		if err := r.Delete(ctx, name); err != nil {
			return nil, false, err
		}
	} else {
		snap, err := r.Load(ctx, name)
		switch {
		case err == nil:
			doc, err := host.Restore(snap)
			if err != nil {
				return nil, false, fmt.Errorf("restore snapshot %q: %w", name, err)
			}
			return doc, true, nil
		case !errors.Is(err, domain.ErrNotFound):
			return nil, false, err
		}
	}
	doc, err = seed()
	if err != nil {
		return nil, false, err
	}
	return doc, false, nil
}

func (r *Repo) key(name string) string {
	return r.prefix + "snapshot:" + name
}

func (r *Repo) indexKey() string {
	return r.prefix + "snapshots"
}
