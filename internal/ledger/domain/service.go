package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/contractledger/pkg/db/pagination"
	"gorm.io/gorm"
)

// Writer lets other contexts post and remove entries inside their own
// transaction so the aggregate and its ledger rows commit together.
type Writer interface {
	PostTx(ctx context.Context, tx *gorm.DB, entries []*LedgerEntry) error
	RemoveBySourceTx(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, source Source) (int64, error)
	RemoveByContractTx(ctx context.Context, tx *gorm.DB, orgID, contractID snowflake.ID) (int64, error)
	SettleBySourceTx(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, source Source) error
	FindBySourceTx(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, source Source) (*LedgerEntry, error)
}

type ListEntriesRequest struct {
	PageToken    string
	PageSize     int
	From         *time.Time
	To           *time.Time
	CostCenterID string
	ContractID   string
	Direction    string
	Status       string
	SourceType   string
}

type ListEntriesResponse struct {
	pagination.PageInfo
	Entries []LedgerEntry `json:"entries"`
}

type Service interface {
	Writer
	List(ctx context.Context, req ListEntriesRequest) (ListEntriesResponse, error)
	Get(ctx context.Context, id string) (LedgerEntry, error)
}
