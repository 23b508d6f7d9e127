package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertBatch(ctx context.Context, db *gorm.DB, items []*Installment) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Installment, error)
	// FindByIDForUpdate locks the row where the dialect supports it.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Installment, error)
	ListByContract(ctx context.Context, db *gorm.DB, orgID, contractID snowflake.ID) ([]*Installment, error)
	DeleteByContract(ctx context.Context, db *gorm.DB, orgID, contractID snowflake.ID) (int64, error)
	// UpdateState writes status, due date and completion time.
	UpdateState(ctx context.Context, db *gorm.DB, item *Installment) error
	CountAwaiting(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (int64, error)
}
