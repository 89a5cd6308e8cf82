package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campusnest/forum/internal/auth"
)

type groupRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description" binding:"max=20000"`
}

type postRequest struct {
	Title   string `json:"title" binding:"required,max=255"`
	Details string `json:"details" binding:"max=20000"`
}

type commentRequest struct {
	Content string `json:"content" binding:"required,max=5000"`
}

type listParams struct {
	Query string
	Page  int
	Size  int
}

// listQuery reads q, page and pageSize. Anything that is not a positive
// number falls back: page to 1, pageSize to the service default.
func listQuery(c *gin.Context) listParams {
	return listParams{
		Query: c.Query("q"),
		Page:  positive(c.Query("page"), 1),
		Size:  positive(c.Query("pageSize"), 0),
	}
}

func positive(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func uid(c *gin.Context) string {
	return auth.UID(c.Request.Context())
}
