package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	ledgerdomain "github.com/smallbiznis/contractledger/internal/ledger/domain"
)

type Kind string

const (
	KindNormal Kind = "normal"
	KindGoLive Kind = "go_live"
)

func (k Kind) Valid() bool { return k == KindNormal || k == KindGoLive }

type Status string

const (
	StatusAwaitingCompletion Status = "awaiting_completion"
	StatusPending            Status = "pending"
	StatusSettled            Status = "settled"
)

// Installment is one dated (or, for go-live, deferred) slice of a contract's
// net value. DueDate stays nil until a go-live installment is completed.
type Installment struct {
	ID          snowflake.ID           `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID           `gorm:"not null;index" json:"organization_id"`
	ContractID  snowflake.ID           `gorm:"not null;uniqueIndex:ux_installments_contract_sequence,priority:1" json:"contract_id"`
	Sequence    int                    `gorm:"not null;uniqueIndex:ux_installments_contract_sequence,priority:2" json:"sequence"`
	DueDate     *time.Time             `json:"due_date"`
	Amount      decimal.Decimal        `gorm:"type:numeric(18,2);not null" json:"amount"`
	Percent     *decimal.Decimal       `gorm:"type:numeric(9,4)" json:"percent,omitempty"`
	Description string                 `gorm:"type:text" json:"description,omitempty"`
	Kind        Kind                   `gorm:"type:text;not null" json:"kind"`
	Status      Status                 `gorm:"type:text;not null" json:"status"`
	Direction   ledgerdomain.Direction `gorm:"type:text;not null" json:"direction"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	CreatedAt   time.Time              `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time              `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Installment) TableName() string { return "installments" }

// Deferred reports whether the installment still waits for its go-live event.
func (i Installment) Deferred() bool {
	return i.Kind == KindGoLive && i.Status == StatusAwaitingCompletion
}
