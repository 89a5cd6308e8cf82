// Package memory is a storage.Store kept in process memory. Every mutation
// runs under one lock, so counter updates are atomic with the insert or delete
// that causes them.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campusnest/forum/internal/models"
	"github.com/campusnest/forum/internal/storage"
)

// Store implements storage.Store in memory.
type Store struct {
	mu       sync.RWMutex
	groups   map[string]*models.Group
	posts    map[string]*models.Post
	comments map[string]*models.Comment
	// children indexes comment ids by parent reference.
	children map[models.Parent][]string
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now as the source of timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		groups:   make(map[string]*models.Group),
		posts:    make(map[string]*models.Post),
		comments: make(map[string]*models.Comment),
		children: make(map[models.Parent][]string),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ storage.Store = (*Store)(nil)

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

// === Groups ===

func (s *Store) CreateGroup(ctx context.Context, g *models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g.GroupID == "" {
		g.GroupID = uuid.NewString()
	}
	if g.OwnerType == "" {
		g.OwnerType = models.OwnerUser
	}
	g.PostCount = 0
	g.CreatedAt = s.timestamp()
	g.UpdatedAt = g.CreatedAt

	stored := *g
	s.groups[g.GroupID] = &stored
	return nil
}

func (s *Store) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[groupID]
	if !ok {
		return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	out := *g
	return &out, nil
}

func (s *Store) UpdateGroup(ctx context.Context, groupID, name, description string) (*models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[groupID]
	if !ok {
		return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	g.GroupName = name
	g.Description = description
	g.UpdatedAt = s.timestamp()
	out := *g
	return &out, nil
}

func (s *Store) DeleteGroup(ctx context.Context, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[groupID]; !ok {
		return fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	for id, p := range s.posts {
		if p.GroupID == groupID {
			s.dropSubtree(models.PostParent(id))
			delete(s.posts, id)
		}
	}
	delete(s.groups, groupID)
	return nil
}

func (s *Store) SearchGroups(ctx context.Context, q storage.GroupQuery) (storage.Page[models.Group], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(storage.NormalizeQuery(q.Query))
	var matched []models.Group
	for _, g := range s.groups {
		if q.OwnerID != "" && g.OwnerID != q.OwnerID {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(g.GroupName), needle) {
			continue
		}
		matched = append(matched, *g)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].GroupName != matched[j].GroupName {
			return matched[i].GroupName < matched[j].GroupName
		}
		return matched[i].GroupID < matched[j].GroupID
	})
	return paginate(matched, q.Page), nil
}

// === Posts ===

func (s *Store) CreatePost(ctx context.Context, p *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[p.GroupID]
	if !ok {
		return fmt.Errorf("group %s: %w", p.GroupID, storage.ErrNotFound)
	}
	if p.PostID == "" {
		p.PostID = uuid.NewString()
	}
	p.Likes, p.Replies, p.Views = 0, 0, 0
	p.CreatedAt = s.timestamp()
	p.UpdatedAt = p.CreatedAt

	stored := *p
	s.posts[p.PostID] = &stored
	g.PostCount++
	return nil
}

func (s *Store) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[postID]
	if !ok {
		return nil, fmt.Errorf("post %s: %w", postID, storage.ErrNotFound)
	}
	out := *p
	return &out, nil
}

func (s *Store) UpdatePost(ctx context.Context, postID, title, details string) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[postID]
	if !ok {
		return nil, fmt.Errorf("post %s: %w", postID, storage.ErrNotFound)
	}
	p.Title = title
	p.Details = details
	p.UpdatedAt = s.timestamp()
	out := *p
	return &out, nil
}

func (s *Store) DeletePost(ctx context.Context, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[postID]
	if !ok {
		return fmt.Errorf("post %s: %w", postID, storage.ErrNotFound)
	}
	s.dropSubtree(models.PostParent(postID))
	delete(s.posts, postID)
	if g, ok := s.groups[p.GroupID]; ok {
		g.PostCount = floor(g.PostCount - 1)
	}
	return nil
}

func (s *Store) SearchPosts(ctx context.Context, q storage.PostQuery) (storage.Page[models.Post], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(storage.NormalizeQuery(q.Query))
	var matched []models.Post
	for _, p := range s.posts {
		if q.GroupID != "" && p.GroupID != q.GroupID {
			continue
		}
		if q.UID != "" && p.UID != q.UID {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(p.Title), needle) {
			continue
		}
		matched = append(matched, *p)
	}
	sort.Slice(matched, func(i, j int) bool {
		return newerFirst(matched[i].CreatedAt, matched[j].CreatedAt, matched[i].PostID, matched[j].PostID)
	})
	return paginate(matched, q.Page), nil
}

func (s *Store) IncrementViews(ctx context.Context, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[postID]
	if !ok {
		return fmt.Errorf("post %s: %w", postID, storage.ErrNotFound)
	}
	p.Views++
	return nil
}

// === Comments ===

func (s *Store) CreateReply(ctx context.Context, c *models.Comment) error {
	parent := c.Parent()
	if !parent.Valid() {
		return models.ErrInvalidParent
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.bumpReplies(parent, 1); err != nil {
		return err
	}
	if c.CommentID == "" {
		c.CommentID = uuid.NewString()
	}
	c.Replies, c.Likes = 0, 0
	c.CreatedAt = s.timestamp()
	c.UpdatedAt = c.CreatedAt

	stored := *c
	s.comments[c.CommentID] = &stored
	s.children[parent] = append(s.children[parent], c.CommentID)
	return nil
}

func (s *Store) GetComment(ctx context.Context, commentID string) (*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[commentID]
	if !ok {
		return nil, fmt.Errorf("comment %s: %w", commentID, storage.ErrNotFound)
	}
	out := *c
	return &out, nil
}

func (s *Store) UpdateComment(ctx context.Context, commentID, text string) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[commentID]
	if !ok {
		return nil, fmt.Errorf("comment %s: %w", commentID, storage.ErrNotFound)
	}
	c.Comment = text
	c.UpdatedAt = s.timestamp()
	out := *c
	return &out, nil
}

func (s *Store) DeleteComment(ctx context.Context, commentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[commentID]
	if !ok {
		return fmt.Errorf("comment %s: %w", commentID, storage.ErrNotFound)
	}
	// cascades run under the same lock, so a live comment always has a live
	// parent; a failure here means the maps are corrupt and nothing is removed
	parent := c.Parent()
	if err := s.bumpReplies(parent, -1); err != nil {
		return err
	}
	s.dropSubtree(models.CommentParent(commentID))
	delete(s.comments, commentID)
	s.children[parent] = remove(s.children[parent], commentID)
	if len(s.children[parent]) == 0 {
		delete(s.children, parent)
	}
	return nil
}

func (s *Store) ListReplies(ctx context.Context, parent models.Parent, page storage.PageRequest) (storage.Page[models.Comment], error) {
	if !parent.Valid() {
		return storage.Page[models.Comment]{}, models.ErrInvalidParent
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.exists(parent.Target()) {
		return storage.Page[models.Comment]{}, fmt.Errorf("%s: %w", parent, storage.ErrNotFound)
	}
	ids := s.children[parent]
	rows := make([]models.Comment, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, *s.comments[id])
	}
	sort.Slice(rows, func(i, j int) bool {
		return newerFirst(rows[i].CreatedAt, rows[j].CreatedAt, rows[i].CommentID, rows[j].CommentID)
	})
	return paginate(rows, page), nil
}

// === Counters and ownership ===

func (s *Store) AdjustLikes(ctx context.Context, target models.Target, delta int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch target.Kind {
	case models.KindPost:
		p, ok := s.posts[target.ID]
		if !ok {
			return 0, fmt.Errorf("%s: %w", target, storage.ErrNotFound)
		}
		p.Likes = floor(p.Likes + int64(delta))
		return p.Likes, nil
	case models.KindComment:
		c, ok := s.comments[target.ID]
		if !ok {
			return 0, fmt.Errorf("%s: %w", target, storage.ErrNotFound)
		}
		c.Likes = floor(c.Likes + int64(delta))
		return c.Likes, nil
	default:
		return 0, fmt.Errorf("likes are not tracked on %s", target.Kind)
	}
}

func (s *Store) OwnerOf(ctx context.Context, target models.Target) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch target.Kind {
	case models.KindGroup:
		if g, ok := s.groups[target.ID]; ok {
			return g.OwnerID, nil
		}
	case models.KindPost:
		if p, ok := s.posts[target.ID]; ok {
			return p.UID, nil
		}
	case models.KindComment:
		if c, ok := s.comments[target.ID]; ok {
			return c.UID, nil
		}
	}
	return "", fmt.Errorf("%s: %w", target, storage.ErrNotFound)
}

func (s *Store) RecountCounters(ctx context.Context) (storage.RecountReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var report storage.RecountReport

	postsPerGroup := make(map[string]int64, len(s.groups))
	for _, p := range s.posts {
		postsPerGroup[p.GroupID]++
	}
	for id, g := range s.groups {
		if g.PostCount != postsPerGroup[id] {
			g.PostCount = postsPerGroup[id]
			report.Groups++
		}
	}

	repliesPerParent := make(map[models.Parent]int64)
	for _, c := range s.comments {
		repliesPerParent[c.Parent()]++
	}
	for id, p := range s.posts {
		if n := repliesPerParent[models.PostParent(id)]; p.Replies != n {
			p.Replies = n
			report.Posts++
		}
	}
	for id, c := range s.comments {
		if n := repliesPerParent[models.CommentParent(id)]; c.Replies != n {
			c.Replies = n
			report.Comments++
		}
	}
	return report, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// === helpers; callers hold s.mu ===

func (s *Store) exists(t models.Target) bool {
	switch t.Kind {
	case models.KindGroup:
		_, ok := s.groups[t.ID]
		return ok
	case models.KindPost:
		_, ok := s.posts[t.ID]
		return ok
	case models.KindComment:
		_, ok := s.comments[t.ID]
		return ok
	}
	return false
}

func (s *Store) bumpReplies(parent models.Parent, delta int64) error {
	switch parent.Kind() {
	case models.ParentPost:
		p, ok := s.posts[parent.ID()]
		if !ok {
			return fmt.Errorf("%s: %w", parent, storage.ErrNotFound)
		}
		p.Replies = floor(p.Replies + delta)
	case models.ParentComment:
		c, ok := s.comments[parent.ID()]
		if !ok {
			return fmt.Errorf("%s: %w", parent, storage.ErrNotFound)
		}
		c.Replies = floor(c.Replies + delta)
	default:
		return models.ErrInvalidParent
	}
	return nil
}

// dropSubtree deletes every comment below parent. Counters of the removed
// comments disappear with them; the parent's own counter is left to the caller.
func (s *Store) dropSubtree(parent models.Parent) {
	stack := append([]string(nil), s.children[parent]...)
	delete(s.children, parent)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		key := models.CommentParent(id)
		stack = append(stack, s.children[key]...)
		delete(s.children, key)
		delete(s.comments, id)
	}
}

func paginate[T any](rows []T, req storage.PageRequest) storage.Page[T] {
	total := int64(len(rows))
	start := req.Offset()
	if start > len(rows) {
		start = len(rows)
	}
	end := start + req.Size
	if end > len(rows) {
		end = len(rows)
	}
	return storage.NewPage(rows[start:end], req, total)
}

func newerFirst(a, b time.Time, idA, idB string) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return idA < idB
}

func floor(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}

func remove(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}
