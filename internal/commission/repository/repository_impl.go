package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/contractledger/internal/commission/domain"
	"github.com/smallbiznis/contractledger/pkg/db/option"
	"github.com/smallbiznis/contractledger/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, req *domain.CommissionRequest) error {
	return db.WithContext(ctx).Create(req).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.CommissionRequest, error) {
	return r.first(ctx, db.WithContext(ctx).Where("org_id = ? AND id = ?", orgID, id))
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.CommissionRequest, error) {
	stmt := option.ForUpdate().Apply(db.WithContext(ctx))
	return r.first(ctx, stmt.Where("org_id = ? AND id = ?", orgID, id))
}

func (r *repo) FindByPeriod(ctx context.Context, db *gorm.DB, orgID, salespersonID snowflake.ID, year, month int) (*domain.CommissionRequest, error) {
	return r.first(ctx, db.WithContext(ctx).Where(
		"org_id = ? AND salesperson_id = ? AND period_year = ? AND period_month = ?",
		orgID, salespersonID, year, month,
	))
}

func (r *repo) first(_ context.Context, stmt *gorm.DB) (*domain.CommissionRequest, error) {
	var req domain.CommissionRequest
	if err := stmt.Limit(1).Find(&req).Error; err != nil {
		return nil, err
	}
	if req.ID == 0 {
		return nil, nil
	}
	return &req, nil
}

// UpdateDecision writes the decision columns only while the row is still in
// the from status.
func (r *repo) UpdateDecision(ctx context.Context, db *gorm.DB, req *domain.CommissionRequest, from domain.Status, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE commission_requests
		SET status = ?, approved_by = ?, approved_at = ?, rejected_by = ?, rejected_at = ?, rejection_reason = ?, updated_at = ?
		WHERE org_id = ? AND id = ? AND status = ?`,
		req.Status,
		req.ApprovedBy,
		req.ApprovedAt,
		req.RejectedBy,
		req.RejectedAt,
		req.RejectionReason,
		now,
		req.OrgID,
		req.ID,
		from,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListFilter, page pagination.Pagination) ([]*domain.CommissionRequest, error) {
	var items []*domain.CommissionRequest
	stmt := db.WithContext(ctx).
		Model(&domain.CommissionRequest{}).
		Where("org_id = ?", orgID)
	if filter.SalespersonID != nil {
		stmt = stmt.Where("salesperson_id = ?", *filter.SalespersonID)
	}
	if filter.Year > 0 {
		stmt = stmt.Where("period_year = ?", filter.Year)
	}
	if filter.Month > 0 {
		stmt = stmt.Where("period_month = ?", filter.Month)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	if err := stmt.Order("id desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
