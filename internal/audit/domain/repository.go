package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/contractledger/pkg/db/pagination"
)

// ListQuery narrows an org's audit trail. Nil and empty fields match all.
type ListQuery struct {
	OrgID      snowflake.ID
	Action     string
	TargetType string
	TargetID   *snowflake.ID
	ActorID    *snowflake.ID
	From       *time.Time
	To         *time.Time
	Page       pagination.Pagination
}

type Repository interface {
	Insert(ctx context.Context, entry *AuditLog) error
	List(ctx context.Context, q ListQuery) ([]*AuditLog, error)
}
