// Package storage defines the persistence contract of the forum: entity
// lifecycle for groups, posts and comments, paged search, and the counters
// that summarize them.
//
// Implementations must apply every counter adjustment as a single atomic
// step together with the insert or delete that causes it, and must never let
// a counter go below zero.
package storage

import (
	"context"
	"errors"

	"github.com/campusnest/forum/internal/models"
)

// ErrNotFound is returned when an addressed entity, or the parent of an entity
// being created, does not exist.
var ErrNotFound = errors.New("storage: not found")

// GroupQuery selects a page of groups.
type GroupQuery struct {
	Query   string
	OwnerID string
	Page    PageRequest
}

// PostQuery selects a page of posts. GroupID and UID narrow the scope and are
// ANDed with the title filter.
type PostQuery struct {
	Query   string
	GroupID string
	UID     string
	Page    PageRequest
}

// RecountReport tells how many rows had a drifted counter rewritten.
type RecountReport struct {
	Groups   int64 `json:"groups"`
	Posts    int64 `json:"posts"`
	Comments int64 `json:"comments"`
}

// Total is the number of rows repaired.
func (r RecountReport) Total() int64 {
	return r.Groups + r.Posts + r.Comments
}

// Store is the entity store of the forum.
type Store interface {
	CreateGroup(ctx context.Context, g *models.Group) error
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)
	UpdateGroup(ctx context.Context, groupID, name, description string) (*models.Group, error)
	// DeleteGroup removes the group with all of its posts and their comments.
	DeleteGroup(ctx context.Context, groupID string) error
	SearchGroups(ctx context.Context, q GroupQuery) (Page[models.Group], error)

	// CreatePost inserts p and increments the owning group's post count.
	CreatePost(ctx context.Context, p *models.Post) error
	GetPost(ctx context.Context, postID string) (*models.Post, error)
	UpdatePost(ctx context.Context, postID, title, details string) (*models.Post, error)
	// DeletePost removes the post and its comment tree and decrements the
	// group's post count.
	DeletePost(ctx context.Context, postID string) error
	SearchPosts(ctx context.Context, q PostQuery) (Page[models.Post], error)
	IncrementViews(ctx context.Context, postID string) error

	// CreateReply inserts c under c.Parent() and increments the parent's
	// replies counter.
	CreateReply(ctx context.Context, c *models.Comment) error
	GetComment(ctx context.Context, commentID string) (*models.Comment, error)
	UpdateComment(ctx context.Context, commentID, text string) (*models.Comment, error)
	// DeleteComment removes the comment and its descendants and decrements the
	// parent's replies counter.
	DeleteComment(ctx context.Context, commentID string) error
	// ListReplies returns one level of children of parent, newest first.
	ListReplies(ctx context.Context, parent models.Parent, page PageRequest) (Page[models.Comment], error)

	// AdjustLikes adds delta to the likes of a post or comment, floored at
	// zero, and returns the new value.
	AdjustLikes(ctx context.Context, target models.Target, delta int) (int64, error)
	// OwnerOf returns the recorded owner of a group, post or comment.
	OwnerOf(ctx context.Context, target models.Target) (string, error)

	// RecountCounters rebuilds post counts and replies counters from the rows.
	RecountCounters(ctx context.Context) (RecountReport, error)
	Ping(ctx context.Context) error
}
