package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/contractledger/internal/ledger/domain"
	"github.com/smallbiznis/contractledger/pkg/db/option"
	"github.com/smallbiznis/contractledger/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entries []*domain.LedgerEntry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "org_id"}, {Name: "source_type"}, {Name: "source_id"}},
			DoNothing: true,
		}).
		Create(entries)
	return result.RowsAffected, result.Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.LedgerEntry, error) {
	var entry domain.LedgerEntry
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Limit(1).
		Find(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.ID == 0 {
		return nil, nil
	}
	return &entry, nil
}

func (r *repo) ExistingIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]struct{}, error) {
	out := make(map[snowflake.ID]struct{}, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var found []snowflake.ID
	err := db.WithContext(ctx).
		Model(&domain.LedgerEntry{}).
		Where("id IN ?", ids).
		Pluck("id", &found).Error
	if err != nil {
		return nil, err
	}
	for _, id := range found {
		out[id] = struct{}{}
	}
	return out, nil
}

func (r *repo) FindBySource(ctx context.Context, db *gorm.DB, orgID snowflake.ID, source domain.Source) (*domain.LedgerEntry, error) {
	var entry domain.LedgerEntry
	err := db.WithContext(ctx).
		Where("org_id = ? AND source_type = ? AND source_id = ?", orgID, source.Type, source.ID).
		Limit(1).
		Find(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.ID == 0 {
		return nil, nil
	}
	return &entry, nil
}

func (r *repo) DeleteBySource(ctx context.Context, db *gorm.DB, orgID snowflake.ID, source domain.Source) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`DELETE FROM ledger_entries WHERE org_id = ? AND source_type = ? AND source_id = ?`,
		orgID,
		source.Type,
		source.ID,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) DeleteByContract(ctx context.Context, db *gorm.DB, orgID, contractID snowflake.ID) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`DELETE FROM ledger_entries WHERE org_id = ? AND contract_id = ?`,
		orgID,
		contractID,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, status domain.Status, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE ledger_entries SET status = ?, updated_at = ? WHERE org_id = ? AND id = ?`,
		status,
		now,
		orgID,
		id,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListFilter, page pagination.Pagination) ([]*domain.LedgerEntry, error) {
	var entries []*domain.LedgerEntry
	stmt := db.WithContext(ctx).
		Model(&domain.LedgerEntry{}).
		Where("org_id = ?", orgID)
	if filter.From != nil {
		stmt = stmt.Where("competency_date >= ?", *filter.From)
	}
	if filter.To != nil {
		stmt = stmt.Where("competency_date <= ?", *filter.To)
	}
	if filter.CostCenterID != nil {
		stmt = stmt.Where("cost_center_id = ?", *filter.CostCenterID)
	}
	if filter.ContractID != nil {
		stmt = stmt.Where("contract_id = ?", *filter.ContractID)
	}
	if filter.Direction != "" {
		stmt = stmt.Where("direction = ?", filter.Direction)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.SourceType != "" {
		stmt = stmt.Where("source_type = ?", filter.SourceType)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("id desc").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
