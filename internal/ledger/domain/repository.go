package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/contractledger/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	From         *time.Time
	To           *time.Time
	CostCenterID *snowflake.ID
	ContractID   *snowflake.ID
	Direction    Direction
	Status       Status
	SourceType   SourceType
}

type Repository interface {
	// Insert writes entries, skipping any whose source already has one.
	// It returns the number of rows written.
	Insert(ctx context.Context, db *gorm.DB, entries []*LedgerEntry) (int64, error)
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*LedgerEntry, error)
	// ExistingIDs returns the subset of ids that have a stored entry.
	ExistingIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]struct{}, error)
	FindBySource(ctx context.Context, db *gorm.DB, orgID snowflake.ID, source Source) (*LedgerEntry, error)
	DeleteBySource(ctx context.Context, db *gorm.DB, orgID snowflake.ID, source Source) (int64, error)
	DeleteByContract(ctx context.Context, db *gorm.DB, orgID, contractID snowflake.ID) (int64, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, status Status, now time.Time) error
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListFilter, page pagination.Pagination) ([]*LedgerEntry, error)
}
