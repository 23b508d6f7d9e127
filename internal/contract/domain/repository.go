package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/contractledger/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Kind         Kind
	Status       Status
	ClientID     *snowflake.ID
	SupplierID   *snowflake.ID
	CostCenterID *snowflake.ID
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, contract *Contract) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Contract, error)
	// FindByIDForUpdate locks the row where the dialect supports it.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Contract, error)
	// UpdateTerms rewrites the terms and bumps the version when it still
	// equals expectedVersion. It returns the number of rows changed.
	UpdateTerms(ctx context.Context, db *gorm.DB, contract *Contract, expectedVersion int64) (int64, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, status Status, now time.Time) (int64, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListFilter, page pagination.Pagination) ([]*Contract, error)

	InsertItems(ctx context.Context, db *gorm.DB, items []*ContractItem) error
	ListItems(ctx context.Context, db *gorm.DB, orgID, contractID snowflake.ID) ([]*ContractItem, error)
	DeleteItems(ctx context.Context, db *gorm.DB, orgID, contractID snowflake.ID) (int64, error)
}
