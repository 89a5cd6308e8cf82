package forum

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/campusnest/forum/internal/models"
	"github.com/campusnest/forum/internal/storage"
	"github.com/campusnest/forum/pkg/logging"
	"github.com/campusnest/forum/pkg/telemetry"
)

// ListReplies returns one level of children of parent, newest first. Deeper
// levels are fetched with further calls addressed at each comment.
func (s *Service) ListReplies(ctx context.Context, parent models.Parent, page, size int) (out storage.Page[models.Comment], err error) {
	ctx, span := telemetry.StartSpan(ctx, "forum.ListReplies")
	span.SetAttributes(telemetry.Attr("parent", parent.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	p, err := s.store.ListReplies(ctx, parent, s.pageRequest(page, size))
	return p, classify("list replies", err)
}

// Reply attaches a new comment to parent and bumps the parent's replies
// counter in the same step.
func (s *Service) Reply(ctx context.Context, uid string, parent models.Parent, text string) (out *models.Comment, err error) {
	ctx, span := telemetry.StartSpan(ctx, "forum.Reply")
	span.SetAttributes(telemetry.Attr("parent", parent.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	if err := requireUID(uid); err != nil {
		return nil, err
	}
	if !parent.Valid() {
		return nil, invalid("parent reference is invalid")
	}
	if text, err = requireText("content", text, maxCommentLength); err != nil {
		return nil, err
	}

	c := &models.Comment{Comment: text, UID: uid, ParentID: parent.ID(), ParentType: parent.Kind()}
	if err := s.store.CreateReply(ctx, c); err != nil {
		return nil, classify("create reply", err)
	}
	s.repliesCreated.Add(ctx, 1, metric.WithAttributes(telemetry.Attr("parent_type", string(parent.Kind()))))
	if parent.Kind() == models.ParentPost {
		s.invalidate(ctx, ScopePosts)
	}

	logging.FromContext(ctx, s.logger).Info("Reply created",
		zap.String("comment_id", c.CommentID),
		zap.Stringer("parent", parent),
		zap.String("uid", uid),
	)
	return c, nil
}

// UpdateComment edits the text of a comment. Only its author may.
func (s *Service) UpdateComment(ctx context.Context, uid, commentID, text string) (out *models.Comment, err error) {
	ctx, span := telemetry.StartSpan(ctx, "forum.UpdateComment")
	defer func() { telemetry.EndSpan(span, err) }()

	if err := s.gate.Authorize(ctx, uid, models.CommentTarget(commentID)); err != nil {
		return nil, err
	}
	if text, err = requireText("content", text, maxCommentLength); err != nil {
		return nil, err
	}

	c, err := s.store.UpdateComment(ctx, commentID, text)
	return c, classifyOwned("update comment", err)
}

// DeleteComment removes a comment with its replies and decrements the
// parent's replies counter. Only its author may.
func (s *Service) DeleteComment(ctx context.Context, uid, commentID string) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "forum.DeleteComment")
	defer func() { telemetry.EndSpan(span, err) }()

	if err := s.gate.Authorize(ctx, uid, models.CommentTarget(commentID)); err != nil {
		return err
	}
	c, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return classifyOwned("get comment", err)
	}
	if err := s.store.DeleteComment(ctx, commentID); err != nil {
		return classifyOwned("delete comment", err)
	}
	if c.ParentType == models.ParentPost {
		s.invalidate(ctx, ScopePosts)
	}

	logging.FromContext(ctx, s.logger).Info("Comment deleted",
		zap.String("comment_id", commentID),
		zap.Stringer("parent", c.Parent()),
		zap.String("uid", uid),
	)
	return nil
}
