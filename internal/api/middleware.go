package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/campusnest/forum/internal/auth"
	"github.com/campusnest/forum/pkg/logging"
	"github.com/campusnest/forum/pkg/telemetry"
)

// requestLogger opens a span per request and logs its outcome.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx, span := telemetry.StartSpan(c.Request.Context(), "http "+c.Request.Method)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(
			attribute.String("http.route", c.FullPath()),
			attribute.Int("http.status_code", status),
		)
		span.End()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		}
		log := logging.FromContext(ctx, logger)
		if status >= http.StatusInternalServerError {
			log.Warn("HTTP request", fields...)
		} else {
			log.Debug("HTTP request", fields...)
		}
	}
}

// identify resolves the bearer token, if any, into an identity on the
// request context. A token that fails verification is rejected even on
// routes that allow anonymous callers.
func (r *Router) identify(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.Next()
		return
	}
	token, ok := auth.BearerToken(header)
	if !ok {
		abort(c, r.logger, auth.ErrUpstreamAuth)
		return
	}
	id, err := r.verifier.Verify(c.Request.Context(), token)
	if err != nil {
		abort(c, r.logger, err)
		return
	}
	c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
	c.Next()
}

// requireIdentity rejects anonymous callers.
func (r *Router) requireIdentity(c *gin.Context) {
	if auth.UID(c.Request.Context()) == "" {
		abort(c, r.logger, NewError(http.StatusUnauthorized, "authentication required"))
		return
	}
	c.Next()
}
