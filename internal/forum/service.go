// Package forum implements the discussion engine on top of a storage.Store:
// groups, posts, polymorphic replies, likes, paged search and the ownership
// rules that guard every update and delete.
package forum

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/campusnest/forum/internal/storage"
	"github.com/campusnest/forum/pkg/logging"
	"github.com/campusnest/forum/pkg/telemetry"
)

// Cache scopes. A mutation invalidates every cached page of its scope.
const (
	ScopeGroups = "groups"
	ScopePosts  = "posts"
)

const (
	maxNameLength    = 255
	maxDetailsLength = 20000
	maxCommentLength = 5000
)

// PageCache memoizes list pages. Load fills dst either from the cache or by
// calling fill and storing its result.
type PageCache interface {
	Load(ctx context.Context, scope, key string, dst interface{}, fill func(context.Context) (interface{}, error)) error
	Invalidate(ctx context.Context, scope string) error
}

// Service is the forum engine.
type Service struct {
	store       storage.Store
	gate        *Gate
	cache       PageCache
	logger      *zap.Logger
	pageSize    int
	maxPageSize int

	repliesCreated metric.Int64Counter
	likesAdjusted  metric.Int64Counter
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables list page caching.
func WithCache(c PageCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithPageSize sets the default and the largest accepted page size.
func WithPageSize(size, max int) Option {
	return func(s *Service) {
		if size > 0 {
			s.pageSize = size
		}
		if max >= s.pageSize {
			s.maxPageSize = max
		}
	}
}

// WithLogger replaces the component logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates the engine over store.
func NewService(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store:       store,
		gate:        NewGate(store),
		logger:      logging.WithComponent("forum"),
		pageSize:    10,
		maxPageSize: 100,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.repliesCreated = telemetry.Int64Counter("forum.replies.created", "Replies created, by parent type")
	s.likesAdjusted = telemetry.Int64Counter("forum.likes.adjusted", "Like and unlike operations, by target kind")
	return s
}

// Gate exposes the ownership gate used by the service.
func (s *Service) Gate() *Gate {
	return s.gate
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// pageRequest coerces a caller supplied page and size. A zero size selects
// the default; larger sizes are clamped.
func (s *Service) pageRequest(page, size int) storage.PageRequest {
	if size <= 0 {
		size = s.pageSize
	}
	if size > s.maxPageSize {
		size = s.maxPageSize
	}
	return storage.NewPageRequest(page, size)
}

func (s *Service) invalidate(ctx context.Context, scopes ...string) {
	if s.cache == nil {
		return
	}
	for _, scope := range scopes {
		if err := s.cache.Invalidate(ctx, scope); err != nil {
			logging.FromContext(ctx, s.logger).Warn("Failed to invalidate page cache", zap.String("scope", scope), zap.Error(err))
		}
	}
}

// cached runs fill through the page cache when one is configured.
func cached[T any](ctx context.Context, s *Service, scope, key string, fill func(context.Context) (T, error)) (T, error) {
	if s.cache == nil {
		return fill(ctx)
	}
	var out T
	err := s.cache.Load(ctx, scope, key, &out, func(ctx context.Context) (interface{}, error) {
		return fill(ctx)
	})
	return out, err
}

func requireUID(uid string) error {
	if strings.TrimSpace(uid) == "" {
		return ErrUnauthenticated
	}
	return nil
}

func requireText(field, value string, max int) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", invalid("%s is required", field)
	}
	if utf8.RuneCountInString(value) > max {
		return "", invalid("%s must be at most %d characters", field, max)
	}
	return value, nil
}

func optionalText(field, value string, max int) (string, error) {
	value = strings.TrimSpace(value)
	if utf8.RuneCountInString(value) > max {
		return "", invalid("%s must be at most %d characters", field, max)
	}
	return value, nil
}
