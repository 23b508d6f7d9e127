package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/contractledger/internal/orgcontext"
	"github.com/smallbiznis/contractledger/pkg/telemetry"
)

const (
	HeaderOrg        = "X-Org-ID"
	HeaderUser       = "X-User-ID"
	contextUserIDKey = "user_id"
)

// OrgContext resolves the organization from the X-Org-ID header and stores it
// on the request context. Requests without a valid organization are rejected.
func OrgContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderOrg))
		orgID, err := snowflake.ParseString(raw)
		if raw == "" || err != nil || orgID == 0 {
			AbortWithError(c, newValidationError("org_id", "invalid_organization", "X-Org-ID header is required"))
			return
		}

		ctx := orgcontext.WithOrgID(c.Request.Context(), orgID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// ActorContext records the acting user from X-User-ID when present.
func ActorContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderUser))
		if raw != "" {
			userID, err := snowflake.ParseString(raw)
			if err != nil || userID == 0 {
				AbortWithError(c, newValidationError("user_id", "invalid_user", "invalid X-User-ID header"))
				return
			}
			c.Set(contextUserIDKey, userID.String())
			c.Request = c.Request.WithContext(orgcontext.WithActorID(c.Request.Context(), userID))
		}
		c.Next()
	}
}

func actorID(c *gin.Context) string {
	return c.GetString(contextUserIDKey)
}

// RequestMetrics feeds the prometheus request counters.
func RequestMetrics(m *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.ObserveAPIRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
