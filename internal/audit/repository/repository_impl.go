package repository

import (
	"context"

	"github.com/smallbiznis/contractledger/internal/audit/domain"
	"github.com/smallbiznis/contractledger/pkg/db/option"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Insert(ctx context.Context, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// List returns newest first; the page carries one lookahead row.
func (r *repo) List(ctx context.Context, q domain.ListQuery) ([]*domain.AuditLog, error) {
	stmt := r.db.WithContext(ctx).
		Model(&domain.AuditLog{}).
		Where("org_id = ?", q.OrgID)

	if q.Action != "" {
		stmt = stmt.Where("action = ?", q.Action)
	}
	if q.TargetType != "" {
		stmt = stmt.Where("target_type = ?", q.TargetType)
	}
	if q.TargetID != nil {
		stmt = stmt.Where("target_id = ?", *q.TargetID)
	}
	if q.ActorID != nil {
		stmt = stmt.Where("actor_id = ?", *q.ActorID)
	}
	if q.From != nil {
		stmt = stmt.Where("created_at >= ?", q.From.UTC())
	}
	if q.To != nil {
		stmt = stmt.Where("created_at <= ?", q.To.UTC())
	}

	var logs []*domain.AuditLog
	err := option.ApplyPagination(q.Page).Apply(stmt).
		Order("id desc").
		Find(&logs).Error
	return logs, err
}
