package reference

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/digibilling/digibilling/internal/backend"
	"github.com/digibilling/digibilling/internal/purchases"
)

// CachedSource serves supplier and product lists from Redis, loading
// them from the upstream source on a miss. Entries are scoped to the
// caller's bearer token; callers without one always go upstream. Cache
// outages degrade to direct upstream calls.
type CachedSource struct {
	upstream purchases.ReferenceSource
	cache    *Cache
	group    singleflight.Group
	logger   *slog.Logger
}

// NewCachedSource wraps upstream with cache.
func NewCachedSource(upstream purchases.ReferenceSource, cache *Cache, logger *slog.Logger) *CachedSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedSource{upstream: upstream, cache: cache, logger: logger}
}

// Suppliers implements purchases.ReferenceSource.
func (s *CachedSource) Suppliers(ctx context.Context) ([]purchases.Supplier, error) {
	return load(ctx, s, "suppliers", s.upstream.Suppliers)
}

// Products implements purchases.ReferenceSource.
func (s *CachedSource) Products(ctx context.Context) ([]purchases.Product, error) {
	return load(ctx, s, "products", s.upstream.Products)
}

func load[T any](ctx context.Context, s *CachedSource, name string, upstream func(context.Context) ([]T, error)) ([]T, error) {
	token := backend.TokenFromContext(ctx)
	if token == "" {
		return upstream(ctx)
	}
	key, err := s.cache.BuildKey(ctx, name, tokenScope(token))
	if err != nil {
		s.logger.Warn("reference cache unavailable", slog.String("list", name), slog.Any("error", err))
		return upstream(ctx)
	}
	return flight(ctx, &s.group, key, func(ctx context.Context) ([]T, error) {
		var (
			loaded  []T
			fetched bool
			loadErr error
		)
		rows, err := FetchJSON(ctx, s.cache, key, func(ctx context.Context) ([]T, error) {
			loaded, loadErr = upstream(ctx)
			fetched = true
			return loaded, loadErr
		})
		switch {
		case err == nil:
			return rows, nil
		case loadErr != nil:
			return nil, loadErr
		}
		s.logger.Warn("reference cache unavailable", slog.String("list", name), slog.Any("error", err))
		if fetched {
			return loaded, nil
		}
		return upstream(ctx)
	})
}

// tokenScope names a token without storing it in Redis.
func tokenScope(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}
