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

// SearchGroups lists groups whose name contains query, ordered by name.
func (s *Service) SearchGroups(ctx context.Context, query string, page, size int) (out storage.Page[models.Group], err error) {
	ctx, span := telemetry.StartSpan(ctx, "forum.SearchGroups")
	defer func() { telemetry.EndSpan(span, err) }()

	q := storage.GroupQuery{Query: storage.NormalizeQuery(query), Page: s.pageRequest(page, size)}
	key := "all|" + q.Query + "|" + strconv.Itoa(q.Page.Number) + "|" + strconv.Itoa(q.Page.Size)
	return cached(ctx, s, ScopeGroups, key, func(ctx context.Context) (storage.Page[models.Group], error) {
		p, err := s.store.SearchGroups(ctx, q)
		return p, classify("search groups", err)
	})
}

// MyGroups lists the groups owned by uid.
func (s *Service) MyGroups(ctx context.Context, uid, query string, page, size int) (out []models.Group, err error) {
	ctx, span := telemetry.StartSpan(ctx, "forum.MyGroups")
	defer func() { telemetry.EndSpan(span, err) }()

	if err := requireUID(uid); err != nil {
		return nil, err
	}
	p, err := s.store.SearchGroups(ctx, storage.GroupQuery{
		Query:   storage.NormalizeQuery(query),
		OwnerID: uid,
		Page:    s.pageRequest(page, size),
	})
	if err != nil {
		return nil, classify("search my groups", err)
	}
	return p.Rows, nil
}

// GetGroup returns a single group.
func (s *Service) GetGroup(ctx context.Context, groupID string) (out *models.Group, err error) {
	ctx, span := telemetry.StartSpan(ctx, "forum.GetGroup")
	defer func() { telemetry.EndSpan(span, err) }()

	g, err := s.store.GetGroup(ctx, groupID)
	return g, classify("get group", err)
}

// CreateGroup creates a group owned by uid.
func (s *Service) CreateGroup(ctx context.Context, uid, name, description string) (out *models.Group, err error) {
	ctx, span := telemetry.StartSpan(ctx, "forum.CreateGroup")
	defer func() { telemetry.EndSpan(span, err) }()

	if err := requireUID(uid); err != nil {
		return nil, err
	}
	if name, err = requireText("name", name, maxNameLength); err != nil {
		return nil, err
	}
	if description, err = optionalText("description", description, maxDetailsLength); err != nil {
		return nil, err
	}

	g := &models.Group{GroupName: name, Description: description, OwnerID: uid, OwnerType: models.OwnerUser}
	if err := s.store.CreateGroup(ctx, g); err != nil {
		return nil, classify("create group", err)
	}
	s.invalidate(ctx, ScopeGroups)

	logging.FromContext(ctx, s.logger).Info("Group created",
		zap.String("group_id", g.GroupID),
		zap.String("uid", uid),
	)
	return g, nil
}

// UpdateGroup renames a group. Only its owner may.
func (s *Service) UpdateGroup(ctx context.Context, uid, groupID, name, description string) (out *models.Group, err error) {
	ctx, span := telemetry.StartSpan(ctx, "forum.UpdateGroup")
	defer func() { telemetry.EndSpan(span, err) }()

	if err := s.gate.Authorize(ctx, uid, models.GroupTarget(groupID)); err != nil {
		return nil, err
	}
	if name, err = requireText("name", name, maxNameLength); err != nil {
		return nil, err
	}
	if description, err = optionalText("description", description, maxDetailsLength); err != nil {
		return nil, err
	}

	g, err := s.store.UpdateGroup(ctx, groupID, name, description)
	if err != nil {
		return nil, classifyOwned("update group", err)
	}
	s.invalidate(ctx, ScopeGroups)
	return g, nil
}

// DeleteGroup removes a group with all of its posts and comments. Only its
// owner may.
func (s *Service) DeleteGroup(ctx context.Context, uid, groupID string) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "forum.DeleteGroup")
	defer func() { telemetry.EndSpan(span, err) }()

	if err := s.gate.Authorize(ctx, uid, models.GroupTarget(groupID)); err != nil {
		return err
	}
	if err := s.store.DeleteGroup(ctx, groupID); err != nil {
		return classifyOwned("delete group", err)
	}
	s.invalidate(ctx, ScopeGroups, ScopePosts)

	logging.FromContext(ctx, s.logger).Info("Group deleted",
		zap.String("group_id", groupID),
		zap.String("uid", uid),
	)
	return nil
}
