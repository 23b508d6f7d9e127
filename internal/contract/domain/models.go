package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	installmentdomain "github.com/smallbiznis/contractledger/internal/installment/domain"
	ledgerdomain "github.com/smallbiznis/contractledger/internal/ledger/domain"
	"github.com/smallbiznis/contractledger/internal/recurrence"
	"github.com/smallbiznis/contractledger/internal/valuation"
	"gorm.io/datatypes"
)

type Kind string

const (
	KindSale     Kind = "sale"
	KindPurchase Kind = "purchase"
)

func (k Kind) Valid() bool { return k == KindSale || k == KindPurchase }

// Direction maps a sale to a receivable and a purchase to a payable.
func (k Kind) Direction() ledgerdomain.Direction {
	if k == KindPurchase {
		return ledgerdomain.DirectionPayable
	}
	return ledgerdomain.DirectionReceivable
}

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) Valid() bool { return s == StatusActive || s == StatusInactive }

// Contract holds the commercial terms and the resolved values derived from
// them. Version increases on every update and guards concurrent edits.
type Contract struct {
	ID                snowflake.ID                                     `gorm:"primaryKey" json:"id"`
	OrgID             snowflake.ID                                     `gorm:"not null;index" json:"organization_id"`
	Kind              Kind                                             `gorm:"type:text;not null" json:"kind"`
	ClientID          *snowflake.ID                                    `gorm:"index" json:"client_id,omitempty"`
	SupplierID        *snowflake.ID                                    `gorm:"index" json:"supplier_id,omitempty"`
	StartDate         time.Time                                        `gorm:"not null" json:"start_date"`
	EndDate           *time.Time                                       `json:"end_date,omitempty"`
	IsRecurring       bool                                             `gorm:"not null;default:false" json:"is_recurring"`
	RecurrencePeriod  recurrence.Period                                `gorm:"type:text" json:"recurrence_period,omitempty"`
	BillingDay        int                                              `json:"billing_day,omitempty"`
	InstallmentCount  int                                              `json:"installment_count,omitempty"`
	AccountCategoryID snowflake.ID                                     `gorm:"not null" json:"account_category_id"`
	CostCenterID      *snowflake.ID                                    `gorm:"index" json:"cost_center_id,omitempty"`
	Quantity          decimal.Decimal                                  `gorm:"type:numeric(18,4)" json:"quantity"`
	UnitValue         decimal.Decimal                                  `gorm:"type:numeric(18,2)" json:"unit_value"`
	DiscountMode      valuation.DiscountMode                           `gorm:"type:varchar(16);not null;default:'none'" json:"discount_mode"`
	DiscountInput     decimal.Decimal                                  `gorm:"type:numeric(18,4)" json:"discount_input"`
	DiscountPercent   decimal.Decimal                                  `gorm:"type:numeric(9,4)" json:"discount_percent"`
	DiscountAmount    decimal.Decimal                                  `gorm:"type:numeric(18,2)" json:"discount_amount"`
	TaxIRRF           decimal.Decimal                                  `gorm:"column:tax_irrf;type:numeric(9,4)" json:"tax_irrf"`
	TaxPIS            decimal.Decimal                                  `gorm:"column:tax_pis;type:numeric(9,4)" json:"tax_pis"`
	TaxCOFINS         decimal.Decimal                                  `gorm:"column:tax_cofins;type:numeric(9,4)" json:"tax_cofins"`
	TaxCSLL           decimal.Decimal                                  `gorm:"column:tax_csll;type:numeric(9,4)" json:"tax_csll"`
	PaymentMethod     string                                           `gorm:"type:text;not null" json:"payment_method"`
	BankAccountID     snowflake.ID                                     `gorm:"not null" json:"bank_account_id"`
	GrossValue        decimal.Decimal                                  `gorm:"type:numeric(18,2);not null" json:"gross_value"`
	NetValue          decimal.Decimal                                  `gorm:"type:numeric(18,2);not null" json:"net_value"`
	SplitPolicy       installmentdomain.SplitPolicy                    `gorm:"type:varchar(16);not null;default:'equal'" json:"split_policy"`
	SplitParts        datatypes.JSONSlice[installmentdomain.SplitPart] `json:"split_parts,omitempty"`
	GoLiveFirst       bool                                             `gorm:"not null;default:false" json:"go_live_first"`
	Status            Status                                           `gorm:"type:varchar(16);not null;default:'active'" json:"status"`
	Version           int64                                            `gorm:"not null;default:1" json:"version"`
	Notes             string                                           `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt         time.Time                                        `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time                                        `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Contract) TableName() string { return "contracts" }

// CounterpartyID returns the client of a sale or the supplier of a purchase.
func (c Contract) CounterpartyID() *snowflake.ID {
	if c.Kind == KindPurchase {
		return c.SupplierID
	}
	return c.ClientID
}

type ContractItem struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID    `gorm:"not null;index" json:"organization_id"`
	ContractID  snowflake.ID    `gorm:"not null;index" json:"contract_id"`
	ServiceID   *snowflake.ID   `json:"service_id,omitempty"`
	Description string          `gorm:"type:text" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"quantity"`
	UnitValue   decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"unit_value"`
	LineTotal   decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"line_total"`
	CreatedAt   time.Time       `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (ContractItem) TableName() string { return "contract_items" }

// ContractAggregate is a contract with everything generated from it.
type ContractAggregate struct {
	Contract     Contract                        `json:"contract"`
	Items        []ContractItem                  `json:"items"`
	Installments []installmentdomain.Installment `json:"installments"`
}
