package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/contractledger/pkg/apperror"
	"github.com/smallbiznis/contractledger/pkg/db/pagination"
)

// Service records and lists state changes made to contracts, installments
// and commission requests.
type Service interface {
	AuditLog(ctx context.Context, entry Entry) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

type ListAuditLogRequest struct {
	pagination.Pagination
	Action     string
	TargetType string
	TargetID   string
	ActorID    string
	From       *time.Time
	To         *time.Time
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

var (
	ErrInvalidOrganization = apperror.Validation("invalid_organization")
	ErrInvalidAction       = apperror.Validation("invalid_action")
	ErrInvalidTarget       = apperror.Validation("invalid_target")
	ErrInvalidActor        = apperror.Validation("invalid_actor")
	ErrInvalidRange        = apperror.Validation("invalid_range")
)
