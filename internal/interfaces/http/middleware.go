package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kaizenflow/kaizen-approvals/internal/domain/entity"
)

// Identity headers set by the upstream gateway
const (
	HeaderUserID         = "X-User-ID"
	HeaderUserRole       = "X-User-Role"
	HeaderUserDepartment = "X-User-Department"
)

const actorKey = "kaizen.actor"

// actorMiddleware reads the caller identity from the gateway headers.
// Malformed role or department values are rejected; absent headers leave an anonymous actor.
func actorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := entity.Actor{
			UserID:     strings.TrimSpace(c.GetHeader(HeaderUserID)),
			Role:       entity.Role(strings.ToUpper(strings.TrimSpace(c.GetHeader(HeaderUserRole)))),
			Department: entity.Department(strings.ToUpper(strings.TrimSpace(c.GetHeader(HeaderUserDepartment)))),
		}

		if actor.Role != "" && !actor.Role.IsValid() {
			abort(c, http.StatusBadRequest, CodeValidation, "unknown role "+string(actor.Role))
			return
		}
		if actor.Department != "" && !actor.Department.IsValid() {
			abort(c, http.StatusBadRequest, CodeValidation, "unknown department "+string(actor.Department))
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// requireActor returns the caller or answers 401 when no identity was presented
func requireActor(c *gin.Context) (entity.Actor, bool) {
	actor := c.MustGet(actorKey).(entity.Actor)
	if actor.UserID == "" || actor.Role == "" {
		abort(c, http.StatusUnauthorized, CodeUnauthenticated, "identity headers are required")
		return entity.Actor{}, false
	}
	return actor, true
}

func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, Response{Success: false, Error: msg, Code: code})
}

// corsMiddleware adds CORS headers, including the identity headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers",
			"Content-Type, Authorization, "+HeaderUserID+", "+HeaderUserRole+", "+HeaderUserDepartment)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
