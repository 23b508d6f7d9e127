package domain

import (
	"context"

	"github.com/smallbiznis/contractledger/pkg/apperror"
	"github.com/smallbiznis/contractledger/pkg/db/pagination"
)

// Notifier is the outbound port used by the contract, installment and
// commission workflows. Callers log a returned error and carry on.
type Notifier interface {
	Send(ctx context.Context, event Event) error
}

type ListNotificationRequest struct {
	pagination.Pagination
	UserID     string
	UnreadOnly bool
}

type ListNotificationResponse struct {
	pagination.PageInfo
	Notifications []Notification `json:"notifications"`
}

type Service interface {
	Notifier
	List(ctx context.Context, req ListNotificationRequest) (ListNotificationResponse, error)
	MarkRead(ctx context.Context, id string) error
}

var (
	ErrInvalidOrganization  = apperror.Validation("invalid_organization")
	ErrInvalidUser          = apperror.Validation("invalid_user")
	ErrInvalidEvent         = apperror.Validation("invalid_notification_event")
	ErrNotificationNotFound = apperror.NotFound("notification_not_found")
)
