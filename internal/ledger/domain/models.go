package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Direction says whether the entry is money owed to or by the organization.
type Direction string

const (
	DirectionReceivable Direction = "receivable"
	DirectionPayable    Direction = "payable"
)

func (d Direction) Valid() bool {
	return d == DirectionReceivable || d == DirectionPayable
}

type SourceType string

const (
	SourceTypeInstallment      SourceType = "installment"        // dated installment of a contract
	SourceTypeGoLiveCompletion SourceType = "go_live_completion" // go-live installment after completion
	SourceTypeCommission       SourceType = "commission"         // approved commission request
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusSettled  Status = "settled"
	StatusCanceled Status = "canceled"
)

// LedgerEntry is a receivable or payable derived from an installment or a
// commission approval. (OrgID, SourceType, SourceID) locates the entry again.
type LedgerEntry struct {
	ID                snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID             snowflake.ID      `gorm:"not null;index;uniqueIndex:ux_ledger_entries_source,priority:1" json:"organization_id"`
	Direction         Direction         `gorm:"type:varchar(16);not null;index" json:"direction"`
	SourceType        SourceType        `gorm:"type:varchar(32);not null;uniqueIndex:ux_ledger_entries_source,priority:2" json:"source_type"`
	SourceID          snowflake.ID      `gorm:"not null;uniqueIndex:ux_ledger_entries_source,priority:3" json:"source_id"`
	ContractID        *snowflake.ID     `gorm:"index" json:"contract_id,omitempty"`
	Amount            decimal.Decimal   `gorm:"type:numeric(18,2);not null" json:"amount"`
	DueDate           time.Time         `gorm:"not null" json:"due_date"`
	CompetencyDate    time.Time         `gorm:"not null;index" json:"competency_date"`
	ClientID          *snowflake.ID     `json:"client_id,omitempty"`
	SupplierID        *snowflake.ID     `json:"supplier_id,omitempty"`
	AccountCategoryID *snowflake.ID     `json:"account_category_id,omitempty"`
	CostCenterID      *snowflake.ID     `gorm:"index" json:"cost_center_id,omitempty"`
	BankAccountID     *snowflake.ID     `json:"bank_account_id,omitempty"`
	PaymentMethod     string            `gorm:"type:text" json:"payment_method,omitempty"`
	Description       string            `gorm:"type:text" json:"description"`
	Status            Status            `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`
	Metadata          datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt         time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (LedgerEntry) TableName() string { return "ledger_entries" }

// Source identifies the record an entry was derived from.
type Source struct {
	Type SourceType
	ID   snowflake.ID
}
