package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (r *Router) searchGroups(c *gin.Context) {
	q := listQuery(c)
	page, err := r.service.SearchGroups(c.Request.Context(), q.Query, q.Page, q.Size)
	if err != nil {
		abort(c, r.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (r *Router) myGroups(c *gin.Context) {
	q := listQuery(c)
	groups, err := r.service.MyGroups(c.Request.Context(), uid(c), q.Query, q.Page, q.Size)
	if err != nil {
		abort(c, r.logger, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

func (r *Router) getGroup(c *gin.Context) {
	g, err := r.service.GetGroup(c.Request.Context(), c.Param("groupId"))
	if err != nil {
		abort(c, r.logger, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (r *Router) createGroup(c *gin.Context) {
	var req groupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, r.logger, bindError(err))
		return
	}
	g, err := r.service.CreateGroup(c.Request.Context(), uid(c), req.Name, req.Description)
	if err != nil {
		abort(c, r.logger, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

func (r *Router) updateGroup(c *gin.Context) {
	var req groupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, r.logger, bindError(err))
		return
	}
	g, err := r.service.UpdateGroup(c.Request.Context(), uid(c), c.Param("groupId"), req.Name, req.Description)
	if err != nil {
		abort(c, r.logger, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (r *Router) deleteGroup(c *gin.Context) {
	if err := r.service.DeleteGroup(c.Request.Context(), uid(c), c.Param("groupId")); err != nil {
		abort(c, r.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
