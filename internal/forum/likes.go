package forum

import (
	"context"

	"go.opentelemetry.io/otel/metric"

	"github.com/campusnest/forum/internal/models"
	"github.com/campusnest/forum/pkg/telemetry"
)

// Like adds one like to a post or comment and returns the new count.
//
// Likes are raw counters: nothing records who liked what, so a client that
// calls Like twice counts twice. Clients keep their own liked state.
func (s *Service) Like(ctx context.Context, uid string, target models.Target) (int64, error) {
	return s.adjustLikes(ctx, uid, target, 1)
}

// Unlike removes one like; the count never goes below zero.
func (s *Service) Unlike(ctx context.Context, uid string, target models.Target) (int64, error) {
	return s.adjustLikes(ctx, uid, target, -1)
}

func (s *Service) adjustLikes(ctx context.Context, uid string, target models.Target, delta int) (n int64, err error) {
	ctx, span := telemetry.StartSpan(ctx, "forum.AdjustLikes")
	span.SetAttributes(telemetry.Attr("target", target.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	if err := requireUID(uid); err != nil {
		return 0, err
	}
	if !target.Likeable() {
		return 0, invalid("likes are not tracked on %s", target.Kind)
	}

	n, err = s.store.AdjustLikes(ctx, target, delta)
	if err != nil {
		return 0, classify("adjust likes", err)
	}
	s.likesAdjusted.Add(ctx, 1, metric.WithAttributes(telemetry.Attr("kind", string(target.Kind))))
	if target.Kind == models.KindPost {
		s.invalidate(ctx, ScopePosts)
	}
	return n, nil
}
