package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/campusnest/forum/pkg/logging"
	"github.com/campusnest/forum/pkg/telemetry"
)

// Pages caches rendered list pages. Each scope carries a generation number;
// invalidating a scope bumps it, which orphans every page cached under the
// previous generation until its TTL runs out. Concurrent misses on the same
// key share one fill.
type Pages struct {
	cache  *Cache
	ttl    time.Duration
	group  singleflight.Group
	logger *zap.Logger

	hits   metric.Int64Counter
	misses metric.Int64Counter
}

// NewPages builds a page cache over c.
func NewPages(c *Cache, ttl time.Duration) *Pages {
	return &Pages{
		cache:  c,
		ttl:    ttl,
		logger: logging.WithComponent("page-cache"),
		hits:   telemetry.Int64Counter("forum.cache.hits", "List pages served from Redis"),
		misses: telemetry.Int64Counter("forum.cache.misses", "List pages rebuilt from the store"),
	}
}

func generationKey(scope string) string {
	return "gen:" + scope
}

func (p *Pages) generation(ctx context.Context, scope string) (string, error) {
	data, err := p.cache.Get(ctx, generationKey(scope))
	if errors.Is(err, ErrMiss) {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Load fills dst with the cached page for (scope, key), calling fill on a
// miss. Errors from fill are returned unchanged and never cached. Redis
// failures degrade to calling fill directly.
func (p *Pages) Load(ctx context.Context, scope, key string, dst interface{}, fill func(context.Context) (interface{}, error)) error {
	if p == nil || p.cache == nil {
		return direct(ctx, dst, fill)
	}
	log := logging.FromContext(ctx, p.logger)

	gen, err := p.generation(ctx, scope)
	if err != nil {
		log.Warn("Page cache unavailable", zap.String("scope", scope), zap.Error(err))
		return direct(ctx, dst, fill)
	}
	pageKey := "page:" + scope + ":" + gen + ":" + HashKey(scope, key)

	data, err := p.cache.Get(ctx, pageKey)
	switch {
	case err == nil:
		p.hits.Add(ctx, 1, metric.WithAttributes(telemetry.Attr("scope", scope)))
		return json.Unmarshal(data, dst)
	case !errors.Is(err, ErrMiss):
		log.Warn("Page cache read failed", zap.String("scope", scope), zap.Error(err))
	}
	p.misses.Add(ctx, 1, metric.WithAttributes(telemetry.Attr("scope", scope)))

	v, err, _ := p.group.Do(pageKey, func() (interface{}, error) {
		val, err := fill(ctx)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		if err := p.cache.Set(ctx, pageKey, encoded, p.ttl); err != nil {
			log.Warn("Page cache write failed", zap.String("scope", scope), zap.Error(err))
		}
		return encoded, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(v.([]byte), dst)
}

// Invalidate orphans every cached page of scope.
func (p *Pages) Invalidate(ctx context.Context, scope string) error {
	if p == nil || p.cache == nil {
		return nil
	}
	_, err := p.cache.Incr(ctx, generationKey(scope))
	return err
}

// Generation reports the current generation of scope, for diagnostics.
func (p *Pages) Generation(ctx context.Context, scope string) (int64, error) {
	gen, err := p.generation(ctx, scope)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(gen, 10, 64)
}

func direct(ctx context.Context, dst interface{}, fill func(context.Context) (interface{}, error)) error {
	val, err := fill(ctx)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return json.Unmarshal(encoded, dst)
}
