package db

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campusnest/forum/internal/models"
	"github.com/campusnest/forum/internal/storage"
)

// Repository provides database access methods. It is bound either to the
// connection pool or to a running transaction.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Wrapf(storage.ErrNotFound, format, args...)
	}
	return errors.Wrapf(err, format, args...)
}

// bump applies "column = column + delta" to the row matched by key, floored
// at zero, and reports storage.ErrNotFound when no row matched.
func (r *Repository) bump(ctx context.Context, model interface{}, keyColumn, key, column string, delta int) error {
	var expr clause.Expr
	if delta >= 0 {
		expr = gorm.Expr(column+" + ?", delta)
	} else {
		expr = gorm.Expr("GREATEST("+column+" - ?, 0)", -delta)
	}
	res := r.db.WithContext(ctx).Model(model).Where(keyColumn+" = ?", key).UpdateColumn(column, expr)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "bump %s", column)
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(storage.ErrNotFound, "%s %s", keyColumn, key)
	}
	return nil
}

// GroupRepository provides group-related database operations
type GroupRepository struct {
	*Repository
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(repo *Repository) *GroupRepository {
	return &GroupRepository{Repository: repo}
}

// GetByID retrieves a group by ID
func (r *GroupRepository) GetByID(ctx context.Context, id string) (*models.Group, error) {
	var group models.Group
	if err := r.db.WithContext(ctx).Where("group_id = ?", id).First(&group).Error; err != nil {
		return nil, notFound(err, "group %s", id)
	}
	return &group, nil
}

// Create creates a new group
func (r *GroupRepository) Create(ctx context.Context, group *models.Group) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(group).Error, "create group")
}

// Update rewrites the name and description of a group
func (r *GroupRepository) Update(ctx context.Context, id, name, description string) error {
	res := r.db.WithContext(ctx).Model(&models.Group{}).Where("group_id = ?", id).
		Updates(map[string]interface{}{"group_name": name, "description": description})
	if res.Error != nil {
		return errors.Wrap(res.Error, "update group")
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(storage.ErrNotFound, "group %s", id)
	}
	return nil
}

// Delete removes a group row
func (r *GroupRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("group_id = ?", id).Delete(&models.Group{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete group")
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(storage.ErrNotFound, "group %s", id)
	}
	return nil
}

// AddPostCount adjusts post_count by delta
func (r *GroupRepository) AddPostCount(ctx context.Context, id string, delta int) error {
	return r.bump(ctx, &models.Group{}, "group_id", id, "post_count", delta)
}

// Search lists groups ordered by name
func (r *GroupRepository) Search(ctx context.Context, q storage.GroupQuery) (storage.Page[models.Group], error) {
	query := r.db.WithContext(ctx).Model(&models.Group{})
	if q.OwnerID != "" {
		query = query.Where("owner_id = ?", q.OwnerID)
	}
	if needle := storage.NormalizeQuery(q.Query); needle != "" {
		query = query.Where("group_name ILIKE ?", storage.ContainsPattern(needle))
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return storage.Page[models.Group]{}, errors.Wrap(err, "count groups")
	}
	var rows []models.Group
	err := query.Order("group_name ASC").Order("group_id ASC").
		Offset(q.Page.Offset()).Limit(q.Page.Size).Find(&rows).Error
	if err != nil {
		return storage.Page[models.Group]{}, errors.Wrap(err, "search groups")
	}
	return storage.NewPage(rows, q.Page, total), nil
}

// PostRepository provides post-related database operations
type PostRepository struct {
	*Repository
}

// NewPostRepository creates a new post repository
func NewPostRepository(repo *Repository) *PostRepository {
	return &PostRepository{Repository: repo}
}

// GetByID retrieves a post by ID
func (r *PostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Where("post_id = ?", id).First(&post).Error; err != nil {
		return nil, notFound(err, "post %s", id)
	}
	return &post, nil
}

// IDsInGroup lists the ids of every post in a group
func (r *PostRepository) IDsInGroup(ctx context.Context, groupID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Post{}).Where("group_id = ?", groupID).Pluck("post_id", &ids).Error
	return ids, errors.Wrap(err, "list group posts")
}

// Create creates a new post
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(post).Error, "create post")
}

// Update rewrites the title and details of a post
func (r *PostRepository) Update(ctx context.Context, id, title, details string) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("post_id = ?", id).
		Updates(map[string]interface{}{"title": title, "details": details})
	if res.Error != nil {
		return errors.Wrap(res.Error, "update post")
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(storage.ErrNotFound, "post %s", id)
	}
	return nil
}

// DeleteByID removes a post row
func (r *PostRepository) DeleteByID(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("post_id = ?", id).Delete(&models.Post{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete post")
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(storage.ErrNotFound, "post %s", id)
	}
	return nil
}

// DeleteByGroup removes every post of a group
func (r *PostRepository) DeleteByGroup(ctx context.Context, groupID string) error {
	return errors.Wrap(r.db.WithContext(ctx).Where("group_id = ?", groupID).Delete(&models.Post{}).Error, "delete group posts")
}

// AddCounter adjusts one of the post counters (likes, replies, views) by delta
func (r *PostRepository) AddCounter(ctx context.Context, id, column string, delta int) error {
	return r.bump(ctx, &models.Post{}, "post_id", id, column, delta)
}

// Search lists posts newest first
func (r *PostRepository) Search(ctx context.Context, q storage.PostQuery) (storage.Page[models.Post], error) {
	query := r.db.WithContext(ctx).Model(&models.Post{})
	if q.GroupID != "" {
		query = query.Where("group_id = ?", q.GroupID)
	}
	if q.UID != "" {
		query = query.Where("uid = ?", q.UID)
	}
	if needle := storage.NormalizeQuery(q.Query); needle != "" {
		query = query.Where("title ILIKE ?", storage.ContainsPattern(needle))
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return storage.Page[models.Post]{}, errors.Wrap(err, "count posts")
	}
	var rows []models.Post
	err := query.Order("created_at DESC").Order("post_id ASC").
		Offset(q.Page.Offset()).Limit(q.Page.Size).Find(&rows).Error
	if err != nil {
		return storage.Page[models.Post]{}, errors.Wrap(err, "search posts")
	}
	return storage.NewPage(rows, q.Page, total), nil
}

// CommentRepository provides comment-related database operations
type CommentRepository struct {
	*Repository
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(repo *Repository) *CommentRepository {
	return &CommentRepository{Repository: repo}
}

// GetByID retrieves a comment by ID
func (r *CommentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Where("comment_id = ?", id).First(&comment).Error; err != nil {
		return nil, notFound(err, "comment %s", id)
	}
	return &comment, nil
}

// Create creates a new comment
func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(comment).Error, "create comment")
}

// Update rewrites the text of a comment
func (r *CommentRepository) Update(ctx context.Context, id, text string) error {
	res := r.db.WithContext(ctx).Model(&models.Comment{}).Where("comment_id = ?", id).Update("comment", text)
	if res.Error != nil {
		return errors.Wrap(res.Error, "update comment")
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(storage.ErrNotFound, "comment %s", id)
	}
	return nil
}

// DeleteByID removes a single comment row
func (r *CommentRepository) DeleteByID(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("comment_id = ?", id).Delete(&models.Comment{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete comment")
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(storage.ErrNotFound, "comment %s", id)
	}
	return nil
}

// DeleteTree removes every comment that descends from one of the given
// parents, walking the parent chain with a recursive CTE.
func (r *CommentRepository) DeleteTree(ctx context.Context, kind models.ParentKind, parentIDs []string) error {
	if len(parentIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Exec(deleteCommentTreeSQL, string(kind), parentIDs, string(models.ParentComment)).Error
	return errors.Wrap(err, "delete comment tree")
}

// AddCounter adjusts one of the comment counters (likes, replies) by delta
func (r *CommentRepository) AddCounter(ctx context.Context, id, column string, delta int) error {
	return r.bump(ctx, &models.Comment{}, "comment_id", id, column, delta)
}

// ListByParent lists one level of children, newest first
func (r *CommentRepository) ListByParent(ctx context.Context, parent models.Parent, page storage.PageRequest) (storage.Page[models.Comment], error) {
	query := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("parent_type = ? AND parent_id = ?", string(parent.Kind()), parent.ID()).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return storage.Page[models.Comment]{}, errors.Wrap(err, "count replies")
	}
	var rows []models.Comment
	err := query.Order("created_at DESC").Order("comment_id ASC").
		Offset(page.Offset()).Limit(page.Size).Find(&rows).Error
	if err != nil {
		return storage.Page[models.Comment]{}, errors.Wrap(err, "list replies")
	}
	return storage.NewPage(rows, page, total), nil
}

const deleteCommentTreeSQL = `
WITH RECURSIVE tree AS (
	SELECT comment_id FROM forum_comments WHERE parent_type = ? AND parent_id IN ?
	UNION ALL
	SELECT c.comment_id FROM forum_comments c
	JOIN tree t ON c.parent_type = ? AND c.parent_id = t.comment_id
)
DELETE FROM forum_comments WHERE comment_id IN (SELECT comment_id FROM tree)`
