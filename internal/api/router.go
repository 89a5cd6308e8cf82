// Package api exposes the forum engine over HTTP with gin.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/campusnest/forum/internal/auth"
	"github.com/campusnest/forum/internal/forum"
	"github.com/campusnest/forum/pkg/logging"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Router sets up API routes
type Router struct {
	service  *forum.Service
	verifier auth.Verifier
	checks   map[string]HealthCheck
	metrics  bool
	logger   *zap.Logger
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithHealthCheck adds a named dependency to the health endpoint.
func WithHealthCheck(name string, check HealthCheck) RouterOption {
	return func(r *Router) { r.checks[name] = check }
}

// WithMetrics serves the Prometheus registry on /metrics.
func WithMetrics() RouterOption {
	return func(r *Router) { r.metrics = true }
}

// NewRouter creates a new API router
func NewRouter(service *forum.Service, verifier auth.Verifier, opts ...RouterOption) *Router {
	r := &Router{
		service:  service,
		verifier: verifier,
		checks:   map[string]HealthCheck{"store": service.Ping},
		logger:   logging.WithComponent("api-router"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Engine builds a gin engine with recovery, logging and every route.
func (r *Router) Engine() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(r.logger))
	r.SetupRoutes(engine)
	return engine
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)
	if r.metrics {
		engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	f := engine.Group("/forum", r.identify)
	authed := r.requireIdentity

	f.GET("/groups", r.searchGroups)
	f.GET("/groups/:groupId", r.getGroup)
	f.POST("/groups", authed, r.createGroup)
	f.GET("/group/:groupId", r.groupPosts)
	f.POST("/group/:groupId", authed, r.createPost)
	f.PUT("/group/:groupId", authed, r.updateGroup)
	f.DELETE("/group/:groupId", authed, r.deleteGroup)

	f.GET("/posts", r.searchPosts)
	f.GET("/posts/:postId", r.getPost)
	f.GET("/post/:postId", r.postReplies)
	f.POST("/post/:postId", authed, r.replyToPost)
	f.PUT("/post/:postId", authed, r.updatePost)
	f.DELETE("/post/:postId", authed, r.deletePost)

	f.GET("/comment/:commentId", r.commentReplies)
	f.POST("/comment/:commentId", authed, r.replyToComment)
	f.PUT("/comment/:commentId", authed, r.updateComment)
	f.DELETE("/comment/:commentId", authed, r.deleteComment)

	f.POST("/likePost/:id", authed, r.likePost)
	f.DELETE("/likePost/:id", authed, r.unlikePost)
	f.POST("/likeComment/:id", authed, r.likeComment)
	f.DELETE("/likeComment/:id", authed, r.unlikeComment)

	f.GET("/myGroups", authed, r.myGroups)
	f.GET("/myPosts", authed, r.myPosts)
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := gin.H{}
	for name, check := range r.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			deps[name] = err.Error()
			continue
		}
		deps[name] = "OK"
	}

	overall := "OK"
	if status != http.StatusOK {
		overall = "DEGRADED"
	}
	c.JSON(status, gin.H{
		"status":       overall,
		"service":      "forum-api",
		"dependencies": deps,
	})
}
