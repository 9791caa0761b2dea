package querycache

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/bimlink/internal/domain"
)

type purgeStore interface {
	Scan(ctx context.Context, pattern string) ([]string, error)
	Del(ctx context.Context, keys ...string) error
}

const purgeBatch = 500

// Purge drops every cached query under prefix and returns how many keys were
// removed. Document versions restart with the process, so entries written by
// an earlier run must not be served.
func Purge(ctx context.Context, s purgeStore, prefix string) (int, error) {
	if prefix == "" {
		prefix = domain.KeyPrefix
	}
	keys, err := s.Scan(ctx, prefix+"query:*")
	if err != nil {
		return 0, fmt.Errorf("scan cached queries: %w", err)
	}
	for start := 0; start < len(keys); start += purgeBatch {
		end := min(start+purgeBatch, len(keys))
		if err := s.Del(ctx, keys[start:end]...); err != nil {
			return start, fmt.Errorf("delete cached queries: %w", err)
		}
	}
	return len(keys), nil
}
