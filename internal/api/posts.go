package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusnest/forum/internal/models"
)

func (r *Router) searchPosts(c *gin.Context) {
	q := listQuery(c)
	page, err := r.service.SearchPosts(c.Request.Context(), q.Query, q.Page, q.Size)
	if err != nil {
		abort(c, r.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// groupPosts lists one group's posts; the page carries the group name.
func (r *Router) groupPosts(c *gin.Context) {
	q := listQuery(c)
	page, err := r.service.SearchGroupPosts(c.Request.Context(), c.Param("groupId"), q.Query, q.Page, q.Size)
	if err != nil {
		abort(c, r.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (r *Router) myPosts(c *gin.Context) {
	q := listQuery(c)
	posts, err := r.service.MyPosts(c.Request.Context(), uid(c), q.Query, q.Page, q.Size)
	if err != nil {
		abort(c, r.logger, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (r *Router) getPost(c *gin.Context) {
	p, err := r.service.GetPost(c.Request.Context(), c.Param("postId"))
	if err != nil {
		abort(c, r.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (r *Router) createPost(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, r.logger, bindError(err))
		return
	}
	p, err := r.service.CreatePost(c.Request.Context(), uid(c), c.Param("groupId"), req.Title, req.Details)
	if err != nil {
		abort(c, r.logger, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (r *Router) updatePost(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, r.logger, bindError(err))
		return
	}
	p, err := r.service.UpdatePost(c.Request.Context(), uid(c), c.Param("postId"), req.Title, req.Details)
	if err != nil {
		abort(c, r.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (r *Router) deletePost(c *gin.Context) {
	if err := r.service.DeletePost(c.Request.Context(), uid(c), c.Param("postId")); err != nil {
		abort(c, r.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *Router) likePost(c *gin.Context) {
	r.adjustLikes(c, models.PostTarget(c.Param("id")), true)
}

func (r *Router) unlikePost(c *gin.Context) {
	r.adjustLikes(c, models.PostTarget(c.Param("id")), false)
}
