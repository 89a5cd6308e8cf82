package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jinzhu/copier"

	"github.com/campusnest/forum/internal/forum"
	"github.com/campusnest/forum/internal/models"
	"github.com/campusnest/forum/internal/storage"
	"github.com/campusnest/forum/pkg/replytree"
)

func (r *Router) postReplies(c *gin.Context) {
	r.listReplies(c, models.PostParent(c.Param("postId")))
}

func (r *Router) commentReplies(c *gin.Context) {
	r.listReplies(c, models.CommentParent(c.Param("commentId")))
}

func (r *Router) replyToPost(c *gin.Context) {
	r.reply(c, models.PostParent(c.Param("postId")))
}

func (r *Router) replyToComment(c *gin.Context) {
	r.reply(c, models.CommentParent(c.Param("commentId")))
}

// listReplies returns one level of children as tree nodes with an empty
// Replies list, ready to be merged by the client.
func (r *Router) listReplies(c *gin.Context, parent models.Parent) {
	q := listQuery(c)
	page, err := r.service.ListReplies(c.Request.Context(), parent, q.Page, q.Size)
	if err != nil {
		abort(c, r.logger, err)
		return
	}
	rows, err := toReplies(page.Rows)
	if err != nil {
		abort(c, r.logger, err)
		return
	}
	c.JSON(http.StatusOK, storage.Page[replytree.Reply]{
		CurrentPage: page.CurrentPage,
		TotalCount:  page.TotalCount,
		TotalPages:  page.TotalPages,
		Rows:        rows,
	})
}

func (r *Router) reply(c *gin.Context, parent models.Parent) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, r.logger, bindError(err))
		return
	}
	comment, err := r.service.Reply(c.Request.Context(), uid(c), parent, req.Content)
	if err != nil {
		abort(c, r.logger, err)
		return
	}
	rows, err := toReplies([]models.Comment{*comment})
	if err != nil {
		abort(c, r.logger, err)
		return
	}
	c.JSON(http.StatusCreated, rows[0])
}

func (r *Router) updateComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, r.logger, bindError(err))
		return
	}
	comment, err := r.service.UpdateComment(c.Request.Context(), uid(c), c.Param("commentId"), req.Content)
	if err != nil {
		abort(c, r.logger, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

func (r *Router) deleteComment(c *gin.Context) {
	if err := r.service.DeleteComment(c.Request.Context(), uid(c), c.Param("commentId")); err != nil {
		abort(c, r.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *Router) likeComment(c *gin.Context) {
	r.adjustLikes(c, models.CommentTarget(c.Param("id")), true)
}

func (r *Router) unlikeComment(c *gin.Context) {
	r.adjustLikes(c, models.CommentTarget(c.Param("id")), false)
}

func (r *Router) adjustLikes(c *gin.Context, target models.Target, like bool) {
	adjust := r.service.Unlike
	if like {
		adjust = r.service.Like
	}
	n, err := adjust(c.Request.Context(), uid(c), target)
	if err != nil {
		abort(c, r.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": target.ID, "likes": n})
}

func toReplies(comments []models.Comment) ([]replytree.Reply, error) {
	rows := make([]replytree.Reply, 0, len(comments))
	if err := copier.Copy(&rows, &comments); err != nil {
		return nil, fmt.Errorf("map replies: %w", err)
	}
	for i := range rows {
		rows[i].Children = []replytree.Reply{}
	}
	return rows, nil
}

// bindError keeps validator errors as they are and turns malformed bodies
// into validation failures.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return err
	}
	return fmt.Errorf("%w: malformed request body", forum.ErrValidation)
}
