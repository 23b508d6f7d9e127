package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/contractledger/internal/notification/domain"
	"github.com/smallbiznis/contractledger/pkg/db/option"
	"github.com/smallbiznis/contractledger/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertBatch(ctx context.Context, db *gorm.DB, items []*domain.Notification) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(items).Error
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, orgID, userID snowflake.ID, unreadOnly bool, page pagination.Pagination) ([]*domain.Notification, error) {
	var items []*domain.Notification
	stmt := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("org_id = ? AND target_user_id = ?", orgID, userID)
	if unreadOnly {
		stmt = stmt.Where("read_at IS NULL")
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	if err := stmt.Order("id desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) MarkRead(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, at time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE notifications SET read_at = ? WHERE org_id = ? AND id = ? AND read_at IS NULL`,
		at,
		orgID,
		id,
	)
	return result.RowsAffected, result.Error
}
