package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	notificationdomain "github.com/smallbiznis/contractledger/internal/notification/domain"
	"github.com/smallbiznis/contractledger/pkg/db/pagination"
)

type listNotificationsQuery struct {
	pagination.Pagination
	UnreadOnly string `form:"unread_only"`
}

// ListNotifications returns the inbox of the acting user.
func (s *Server) ListNotifications(c *gin.Context) {
	var query listNotificationsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	userID := actorID(c)
	if userID == "" {
		AbortWithError(c, newValidationError("user_id", "invalid_user", "X-User-ID header is required"))
		return
	}

	unreadOnly := false
	if raw := strings.TrimSpace(query.UnreadOnly); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			AbortWithError(c, newValidationError("unread_only", "invalid_unread_only", "invalid unread_only"))
			return
		}
		unreadOnly = parsed
	}

	resp, err := s.notifySvc.List(c.Request.Context(), notificationdomain.ListNotificationRequest{
		Pagination: query.Pagination,
		UserID:     userID,
		UnreadOnly: unreadOnly,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Notifications, "page_info": resp.PageInfo})
}

func (s *Server) MarkNotificationRead(c *gin.Context) {
	if err := s.notifySvc.MarkRead(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
