package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/contractledger/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	SalespersonID *snowflake.ID
	Year          int
	Month         int
	Status        Status
}

// Repository stores commission requests. Salespeople go through the generic
// store.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, req *CommissionRequest) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*CommissionRequest, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*CommissionRequest, error)
	FindByPeriod(ctx context.Context, db *gorm.DB, orgID, salespersonID snowflake.ID, year, month int) (*CommissionRequest, error)
	UpdateDecision(ctx context.Context, db *gorm.DB, req *CommissionRequest, from Status, now time.Time) (int64, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListFilter, page pagination.Pagination) ([]*CommissionRequest, error)
}
