package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/contractledger/internal/installment/domain"
	"github.com/smallbiznis/contractledger/pkg/db/option"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertBatch(ctx context.Context, db *gorm.DB, items []*domain.Installment) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(items).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Installment, error) {
	return r.find(ctx, db, orgID, id, false)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Installment, error) {
	return r.find(ctx, db, orgID, id, true)
}

func (r *repo) find(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, lock bool) (*domain.Installment, error) {
	var item domain.Installment
	stmt := db.WithContext(ctx)
	if lock {
		stmt = option.ForUpdate().Apply(stmt)
	}
	err := stmt.
		Where("org_id = ? AND id = ?", orgID, id).
		Limit(1).
		Find(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ListByContract(ctx context.Context, db *gorm.DB, orgID, contractID snowflake.ID) ([]*domain.Installment, error) {
	var items []*domain.Installment
	err := db.WithContext(ctx).
		Where("org_id = ? AND contract_id = ?", orgID, contractID).
		Order("sequence asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) DeleteByContract(ctx context.Context, db *gorm.DB, orgID, contractID snowflake.ID) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`DELETE FROM installments WHERE org_id = ? AND contract_id = ?`,
		orgID,
		contractID,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) UpdateState(ctx context.Context, db *gorm.DB, item *domain.Installment) error {
	return db.WithContext(ctx).Exec(
		`UPDATE installments
		SET status = ?, due_date = ?, completed_at = ?, updated_at = ?
		WHERE org_id = ? AND id = ?`,
		item.Status,
		item.DueDate,
		item.CompletedAt,
		item.UpdatedAt,
		item.OrgID,
		item.ID,
	).Error
}

func (r *repo) CountAwaiting(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Installment{}).
		Where("org_id = ? AND kind = ? AND status = ?", orgID, domain.KindGoLive, domain.StatusAwaitingCompletion).
		Count(&count).Error
	return count, err
}
