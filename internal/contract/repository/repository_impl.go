package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/contractledger/internal/contract/domain"
	"github.com/smallbiznis/contractledger/pkg/db/option"
	"github.com/smallbiznis/contractledger/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, contract *domain.Contract) error {
	return db.WithContext(ctx).Create(contract).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Contract, error) {
	return r.find(ctx, db, orgID, id, false)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Contract, error) {
	return r.find(ctx, db, orgID, id, true)
}

func (r *repo) find(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, lock bool) (*domain.Contract, error) {
	var contract domain.Contract
	stmt := db.WithContext(ctx)
	if lock {
		stmt = option.ForUpdate().Apply(stmt)
	}
	err := stmt.
		Where("org_id = ? AND id = ?", orgID, id).
		Limit(1).
		Find(&contract).Error
	if err != nil {
		return nil, err
	}
	if contract.ID == 0 {
		return nil, nil
	}
	return &contract, nil
}

// termColumns are rewritten on update. Identity, status and creation time
// are left alone.
var termColumns = []string{
	"kind", "client_id", "supplier_id", "start_date", "end_date",
	"is_recurring", "recurrence_period", "billing_day", "installment_count",
	"account_category_id", "cost_center_id", "quantity", "unit_value",
	"discount_mode", "discount_input", "discount_percent", "discount_amount",
	"tax_irrf", "tax_pis", "tax_cofins", "tax_csll",
	"payment_method", "bank_account_id", "gross_value", "net_value",
	"split_policy", "split_parts", "go_live_first", "notes", "updated_at",
}

func (r *repo) UpdateTerms(ctx context.Context, db *gorm.DB, contract *domain.Contract, expectedVersion int64) (int64, error) {
	contract.Version = expectedVersion + 1
	result := db.WithContext(ctx).
		Model(&domain.Contract{}).
		Where("org_id = ? AND id = ? AND version = ?", contract.OrgID, contract.ID, expectedVersion).
		Select(append(termColumns, "version")).
		Updates(contract)
	return result.RowsAffected, result.Error
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, status domain.Status, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE contracts SET status = ?, updated_at = ? WHERE org_id = ? AND id = ?`,
		status,
		now,
		orgID,
		id,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Contract, error) {
	var contracts []*domain.Contract
	stmt := db.WithContext(ctx).
		Model(&domain.Contract{}).
		Where("org_id = ?", orgID)
	if filter.Kind != "" {
		stmt = stmt.Where("kind = ?", filter.Kind)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.ClientID != nil {
		stmt = stmt.Where("client_id = ?", *filter.ClientID)
	}
	if filter.SupplierID != nil {
		stmt = stmt.Where("supplier_id = ?", *filter.SupplierID)
	}
	if filter.CostCenterID != nil {
		stmt = stmt.Where("cost_center_id = ?", *filter.CostCenterID)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	if err := stmt.Order("id desc").Find(&contracts).Error; err != nil {
		return nil, err
	}
	return contracts, nil
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []*domain.ContractItem) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(items).Error
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, orgID, contractID snowflake.ID) ([]*domain.ContractItem, error) {
	var items []*domain.ContractItem
	err := db.WithContext(ctx).
		Where("org_id = ? AND contract_id = ?", orgID, contractID).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) DeleteItems(ctx context.Context, db *gorm.DB, orgID, contractID snowflake.ID) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`DELETE FROM contract_items WHERE org_id = ? AND contract_id = ?`,
		orgID,
		contractID,
	)
	return result.RowsAffected, result.Error
}
