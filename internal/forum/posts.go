package forum

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/campusnest/forum/internal/models"
	"github.com/campusnest/forum/internal/storage"
	"github.com/campusnest/forum/pkg/logging"
	"github.com/campusnest/forum/pkg/telemetry"
)

// GroupPosts is a page of posts of one group, labelled with the group name.
type GroupPosts struct {
	GroupName string `json:"groupName"`
	storage.Page[models.Post]
}

// SearchPosts lists posts across all groups, newest first.
func (s *Service) SearchPosts(ctx context.Context, query string, page, size int) (out storage.Page[models.Post], err error) {
	ctx, span := telemetry.StartSpan(ctx, "forum.SearchPosts")
	defer func() { telemetry.EndSpan(span, err) }()

	q := storage.PostQuery{Query: storage.NormalizeQuery(query), Page: s.pageRequest(page, size)}
	return s.searchPosts(ctx, q)
}

// SearchGroupPosts lists the posts of one group, newest first.
func (s *Service) SearchGroupPosts(ctx context.Context, groupID, query string, page, size int) (out GroupPosts, err error) {
	ctx, span := telemetry.StartSpan(ctx, "forum.SearchGroupPosts")
	defer func() { telemetry.EndSpan(span, err) }()

	g, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return GroupPosts{}, classify("get group", err)
	}
	q := storage.PostQuery{Query: storage.NormalizeQuery(query), GroupID: groupID, Page: s.pageRequest(page, size)}
	p, err := s.searchPosts(ctx, q)
	if err != nil {
		return GroupPosts{}, err
	}
	return GroupPosts{GroupName: g.GroupName, Page: p}, nil
}

func (s *Service) searchPosts(ctx context.Context, q storage.PostQuery) (storage.Page[models.Post], error) {
	key := "g=" + q.GroupID + "|" + q.Query + "|" + strconv.Itoa(q.Page.Number) + "|" + strconv.Itoa(q.Page.Size)
	return cached(ctx, s, ScopePosts, key, func(ctx context.Context) (storage.Page[models.Post], error) {
		p, err := s.store.SearchPosts(ctx, q)
		return p, classify("search posts", err)
	})
}

// MyPosts lists the posts written by uid.
func (s *Service) MyPosts(ctx context.Context, uid, query string, page, size int) (out []models.Post, err error) {
	ctx, span := telemetry.StartSpan(ctx, "forum.MyPosts")
	defer func() { telemetry.EndSpan(span, err) }()

	if err := requireUID(uid); err != nil {
		return nil, err
	}
	p, err := s.store.SearchPosts(ctx, storage.PostQuery{
		Query: storage.NormalizeQuery(query),
		UID:   uid,
		Page:  s.pageRequest(page, size),
	})
	if err != nil {
		return nil, classify("search my posts", err)
	}
	return p.Rows, nil
}

// GetPost returns a post and counts the view. Views do not invalidate the
// posts scope, so cached list pages may show an older view count until their
// entry expires after cache_ttl; likes, replies and edits do invalidate.
func (s *Service) GetPost(ctx context.Context, postID string) (out *models.Post, err error) {
	ctx, span := telemetry.StartSpan(ctx, "forum.GetPost")
	defer func() { telemetry.EndSpan(span, err) }()

	if err := s.store.IncrementViews(ctx, postID); err != nil {
		return nil, classify("count view", err)
	}
	p, err := s.store.GetPost(ctx, postID)
	return p, classify("get post", err)
}

// CreatePost adds a post to a group and bumps the group's post count.
func (s *Service) CreatePost(ctx context.Context, uid, groupID, title, details string) (out *models.Post, err error) {
	ctx, span := telemetry.StartSpan(ctx, "forum.CreatePost")
	defer func() { telemetry.EndSpan(span, err) }()

	if err := requireUID(uid); err != nil {
		return nil, err
	}
	if title, err = requireText("title", title, maxNameLength); err != nil {
		return nil, err
	}
	if details, err = optionalText("details", details, maxDetailsLength); err != nil {
		return nil, err
	}

	p := &models.Post{GroupID: groupID, Title: title, Details: details, UID: uid}
	if err := s.store.CreatePost(ctx, p); err != nil {
		return nil, classify("create post", err)
	}
	s.invalidate(ctx, ScopePosts, ScopeGroups)

	logging.FromContext(ctx, s.logger).Info("Post created",
		zap.String("post_id", p.PostID),
		zap.String("group_id", groupID),
		zap.String("uid", uid),
	)
	return p, nil
}

// UpdatePost edits a post. Only its author may.
func (s *Service) UpdatePost(ctx context.Context, uid, postID, title, details string) (out *models.Post, err error) {
	ctx, span := telemetry.StartSpan(ctx, "forum.UpdatePost")
	defer func() { telemetry.EndSpan(span, err) }()

	if err := s.gate.Authorize(ctx, uid, models.PostTarget(postID)); err != nil {
		return nil, err
	}
	if title, err = requireText("title", title, maxNameLength); err != nil {
		return nil, err
	}
	if details, err = optionalText("details", details, maxDetailsLength); err != nil {
		return nil, err
	}

	p, err := s.store.UpdatePost(ctx, postID, title, details)
	if err != nil {
		return nil, classifyOwned("update post", err)
	}
	s.invalidate(ctx, ScopePosts)
	return p, nil
}

// DeletePost removes a post and its discussion. Only its author may.
func (s *Service) DeletePost(ctx context.Context, uid, postID string) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "forum.DeletePost")
	defer func() { telemetry.EndSpan(span, err) }()

	if err := s.gate.Authorize(ctx, uid, models.PostTarget(postID)); err != nil {
		return err
	}
	if err := s.store.DeletePost(ctx, postID); err != nil {
		return classifyOwned("delete post", err)
	}
	s.invalidate(ctx, ScopePosts, ScopeGroups)

	logging.FromContext(ctx, s.logger).Info("Post deleted",
		zap.String("post_id", postID),
		zap.String("uid", uid),
	)
	return nil
}
