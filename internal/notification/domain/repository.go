package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/contractledger/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	InsertBatch(ctx context.Context, db *gorm.DB, items []*Notification) error
	ListByUser(ctx context.Context, db *gorm.DB, orgID, userID snowflake.ID, unreadOnly bool, page pagination.Pagination) ([]*Notification, error)
	MarkRead(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, at time.Time) (int64, error)
}
