package middleware

import (
	"net/http"
	"time"

	"audit-webhook-engine/pkg/apperror"
	"audit-webhook-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// HeaderOrganizationID carries the tenant identity set by the upstream
	// gateway, which owns authentication.
	HeaderOrganizationID = "X-Organization-ID"

	// CtxOrganizationID is the gin context key the resolved tenant is stored
	// under.
	CtxOrganizationID = "organization_id"
)

// OrganizationContext resolves the tenant from the X-Organization-ID header
// and rejects requests without one.
func OrganizationContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(HeaderOrganizationID)
		if raw == "" {
			response.Error(c, apperror.ErrMissingOrganization())
			c.Abort()
			return
		}
		orgID, err := uuid.Parse(raw)
		if err != nil {
			response.Error(c, apperror.ErrInvalidOrganization())
			c.Abort()
			return
		}
		c.Set(CtxOrganizationID, orgID)
		c.Next()
	}
}

// OrganizationID reads the tenant resolved by OrganizationContext.
func OrganizationID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(CtxOrganizationID)
	if !ok {
		return uuid.Nil, false
	}
	orgID, ok := v.(uuid.UUID)
	return orgID, ok
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error_code": "SYS_001",
					"message":    "Internal server error",
				})
			}
		}()
		c.Next()
	}
}

// MaxBodySize returns middleware that limits the request body size.
// Once the limit is exceeded the reader returns an error and the
// request is rejected with 413 Payload Too Large.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
