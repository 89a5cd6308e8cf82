package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/campusnest/forum/internal/models"
	"github.com/campusnest/forum/internal/storage"
)

// Store implements storage.Store on PostgreSQL. Every mutation that moves a
// counter runs in one transaction together with the row change, and the
// counter itself is moved with a single arithmetic UPDATE.
type Store struct {
	db *DB
}

var _ storage.Store = (*Store)(nil)

// NewStore wraps an open connection.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

type repos struct {
	groups   *GroupRepository
	posts    *PostRepository
	comments *CommentRepository
}

func reposFor(tx *gorm.DB) repos {
	repo := NewRepository(tx)
	return repos{
		groups:   NewGroupRepository(repo),
		posts:    NewPostRepository(repo),
		comments: NewCommentRepository(repo),
	}
}

func (s *Store) repos() repos {
	return reposFor(s.db.DB)
}

func (s *Store) tx(ctx context.Context, fn func(r repos) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(reposFor(tx))
	})
}

// === Groups ===

func (s *Store) CreateGroup(ctx context.Context, g *models.Group) error {
	if g.GroupID == "" {
		g.GroupID = uuid.NewString()
	}
	if g.OwnerType == "" {
		g.OwnerType = models.OwnerUser
	}
	g.PostCount = 0
	return s.repos().groups.Create(ctx, g)
}

func (s *Store) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	return s.repos().groups.GetByID(ctx, groupID)
}

func (s *Store) UpdateGroup(ctx context.Context, groupID, name, description string) (*models.Group, error) {
	var out *models.Group
	err := s.tx(ctx, func(r repos) error {
		if err := r.groups.Update(ctx, groupID, name, description); err != nil {
			return err
		}
		var err error
		out, err = r.groups.GetByID(ctx, groupID)
		return err
	})
	return out, err
}

func (s *Store) DeleteGroup(ctx context.Context, groupID string) error {
	return s.tx(ctx, func(r repos) error {
		postIDs, err := r.posts.IDsInGroup(ctx, groupID)
		if err != nil {
			return err
		}
		if err := r.comments.DeleteTree(ctx, models.ParentPost, postIDs); err != nil {
			return err
		}
		if err := r.posts.DeleteByGroup(ctx, groupID); err != nil {
			return err
		}
		return r.groups.Delete(ctx, groupID)
	})
}

func (s *Store) SearchGroups(ctx context.Context, q storage.GroupQuery) (storage.Page[models.Group], error) {
	return s.repos().groups.Search(ctx, q)
}

// === Posts ===

func (s *Store) CreatePost(ctx context.Context, p *models.Post) error {
	if p.PostID == "" {
		p.PostID = uuid.NewString()
	}
	p.Likes, p.Replies, p.Views = 0, 0, 0
	return s.tx(ctx, func(r repos) error {
		// bumping first takes the row lock on the group and proves it exists
		if err := r.groups.AddPostCount(ctx, p.GroupID, 1); err != nil {
			return err
		}
		return r.posts.Create(ctx, p)
	})
}

func (s *Store) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	return s.repos().posts.GetByID(ctx, postID)
}

func (s *Store) UpdatePost(ctx context.Context, postID, title, details string) (*models.Post, error) {
	var out *models.Post
	err := s.tx(ctx, func(r repos) error {
		if err := r.posts.Update(ctx, postID, title, details); err != nil {
			return err
		}
		var err error
		out, err = r.posts.GetByID(ctx, postID)
		return err
	})
	return out, err
}

func (s *Store) DeletePost(ctx context.Context, postID string) error {
	return s.tx(ctx, func(r repos) error {
		post, err := r.posts.GetByID(ctx, postID)
		if err != nil {
			return err
		}
		if err := r.comments.DeleteTree(ctx, models.ParentPost, []string{postID}); err != nil {
			return err
		}
		if err := r.posts.DeleteByID(ctx, postID); err != nil {
			return err
		}
		return ignoreNotFound(r.groups.AddPostCount(ctx, post.GroupID, -1))
	})
}

func (s *Store) SearchPosts(ctx context.Context, q storage.PostQuery) (storage.Page[models.Post], error) {
	return s.repos().posts.Search(ctx, q)
}

func (s *Store) IncrementViews(ctx context.Context, postID string) error {
	return s.repos().posts.AddCounter(ctx, postID, "views", 1)
}

// === Comments ===

func (s *Store) CreateReply(ctx context.Context, c *models.Comment) error {
	parent := c.Parent()
	if !parent.Valid() {
		return models.ErrInvalidParent
	}
	if c.CommentID == "" {
		c.CommentID = uuid.NewString()
	}
	c.Replies, c.Likes = 0, 0
	return s.tx(ctx, func(r repos) error {
		if err := bumpReplies(ctx, r, parent, 1); err != nil {
			return err
		}
		return r.comments.Create(ctx, c)
	})
}

func (s *Store) GetComment(ctx context.Context, commentID string) (*models.Comment, error) {
	return s.repos().comments.GetByID(ctx, commentID)
}

func (s *Store) UpdateComment(ctx context.Context, commentID, text string) (*models.Comment, error) {
	var out *models.Comment
	err := s.tx(ctx, func(r repos) error {
		if err := r.comments.Update(ctx, commentID, text); err != nil {
			return err
		}
		var err error
		out, err = r.comments.GetByID(ctx, commentID)
		return err
	})
	return out, err
}

func (s *Store) DeleteComment(ctx context.Context, commentID string) error {
	return s.tx(ctx, func(r repos) error {
		comment, err := r.comments.GetByID(ctx, commentID)
		if err != nil {
			return err
		}
		if err := r.comments.DeleteTree(ctx, models.ParentComment, []string{commentID}); err != nil {
			return err
		}
		if err := r.comments.DeleteByID(ctx, commentID); err != nil {
			return err
		}
		return ignoreNotFound(bumpReplies(ctx, r, comment.Parent(), -1))
	})
}

func (s *Store) ListReplies(ctx context.Context, parent models.Parent, page storage.PageRequest) (storage.Page[models.Comment], error) {
	if !parent.Valid() {
		return storage.Page[models.Comment]{}, models.ErrInvalidParent
	}
	r := s.repos()
	if err := exists(ctx, r, parent.Target()); err != nil {
		return storage.Page[models.Comment]{}, err
	}
	return r.comments.ListByParent(ctx, parent, page)
}

// === Counters and ownership ===

func (s *Store) AdjustLikes(ctx context.Context, target models.Target, delta int) (int64, error) {
	var likes int64
	err := s.tx(ctx, func(r repos) error {
		switch target.Kind {
		case models.KindPost:
			if err := r.posts.AddCounter(ctx, target.ID, "likes", delta); err != nil {
				return err
			}
			post, err := r.posts.GetByID(ctx, target.ID)
			if err != nil {
				return err
			}
			likes = post.Likes
		case models.KindComment:
			if err := r.comments.AddCounter(ctx, target.ID, "likes", delta); err != nil {
				return err
			}
			comment, err := r.comments.GetByID(ctx, target.ID)
			if err != nil {
				return err
			}
			likes = comment.Likes
		default:
			return fmt.Errorf("likes are not tracked on %s", target.Kind)
		}
		return nil
	})
	return likes, err
}

func (s *Store) OwnerOf(ctx context.Context, target models.Target) (string, error) {
	r := s.repos()
	switch target.Kind {
	case models.KindGroup:
		g, err := r.groups.GetByID(ctx, target.ID)
		if err != nil {
			return "", err
		}
		return g.OwnerID, nil
	case models.KindPost:
		p, err := r.posts.GetByID(ctx, target.ID)
		if err != nil {
			return "", err
		}
		return p.UID, nil
	case models.KindComment:
		c, err := r.comments.GetByID(ctx, target.ID)
		if err != nil {
			return "", err
		}
		return c.UID, nil
	}
	return "", errors.Wrapf(storage.ErrNotFound, "%s", target)
}

func (s *Store) RecountCounters(ctx context.Context) (storage.RecountReport, error) {
	var report storage.RecountReport
	err := s.tx(ctx, func(r repos) error {
		steps := []struct {
			sql  string
			args []interface{}
			into *int64
		}{
			{recountGroupsSQL, nil, &report.Groups},
			{recountPostsSQL, []interface{}{string(models.ParentPost)}, &report.Posts},
			{recountCommentsSQL, []interface{}{string(models.ParentComment)}, &report.Comments},
		}
		for _, step := range steps {
			res := r.groups.db.WithContext(ctx).Exec(step.sql, step.args...)
			if res.Error != nil {
				return errors.Wrap(res.Error, "recount")
			}
			*step.into = res.RowsAffected
		}
		return nil
	})
	return report, err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Health(ctx)
}

func bumpReplies(ctx context.Context, r repos, parent models.Parent, delta int) error {
	switch parent.Kind() {
	case models.ParentPost:
		return r.posts.AddCounter(ctx, parent.ID(), "replies", delta)
	case models.ParentComment:
		return r.comments.AddCounter(ctx, parent.ID(), "replies", delta)
	}
	return models.ErrInvalidParent
}

func exists(ctx context.Context, r repos, t models.Target) error {
	var err error
	switch t.Kind {
	case models.KindGroup:
		_, err = r.groups.GetByID(ctx, t.ID)
	case models.KindPost:
		_, err = r.posts.GetByID(ctx, t.ID)
	case models.KindComment:
		_, err = r.comments.GetByID(ctx, t.ID)
	default:
		err = errors.Wrapf(storage.ErrNotFound, "%s", t)
	}
	return err
}

func ignoreNotFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

const recountGroupsSQL = `
UPDATE forum_groups g SET post_count = c.n
FROM (
	SELECT g2.group_id, COUNT(p.post_id) AS n
	FROM forum_groups g2 LEFT JOIN forum_posts p ON p.group_id = g2.group_id
	GROUP BY g2.group_id
) c
WHERE g.group_id = c.group_id AND g.post_count <> c.n`

const recountPostsSQL = `
UPDATE forum_posts p SET replies = c.n
FROM (
	SELECT p2.post_id, COUNT(cm.comment_id) AS n
	FROM forum_posts p2 LEFT JOIN forum_comments cm ON cm.parent_type = ? AND cm.parent_id = p2.post_id
	GROUP BY p2.post_id
) c
WHERE p.post_id = c.post_id AND p.replies <> c.n`

const recountCommentsSQL = `
UPDATE forum_comments p SET replies = c.n
FROM (
	SELECT p2.comment_id, COUNT(cm.comment_id) AS n
	FROM forum_comments p2 LEFT JOIN forum_comments cm ON cm.parent_type = ? AND cm.parent_id = p2.comment_id
	GROUP BY p2.comment_id
) c
WHERE p.comment_id = c.comment_id AND p.replies <> c.n`
