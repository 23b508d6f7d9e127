package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Salesperson earns commission on a monthly sales total. PayeeSupplierID is
// the supplier that receives the payable once a request is approved.
type Salesperson struct {
	ID                snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrgID             snowflake.ID    `gorm:"not null;index" json:"organization_id"`
	Name              string          `gorm:"type:text;not null" json:"name"`
	UserID            *snowflake.ID   `json:"user_id,omitempty"`
	PayeeSupplierID   *snowflake.ID   `json:"payee_supplier_id,omitempty"`
	CommissionPercent decimal.Decimal `gorm:"type:numeric(9,4);not null" json:"commission_percent"`
	CreatedAt         time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Salesperson) TableName() string { return "salespeople" }

// CommissionRequest is one salesperson's commission for a reference month.
// At most one exists per salesperson and month.
type CommissionRequest struct {
	ID                snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrgID             snowflake.ID    `gorm:"not null;uniqueIndex:ux_commission_requests_period,priority:1" json:"organization_id"`
	SalespersonID     snowflake.ID    `gorm:"not null;uniqueIndex:ux_commission_requests_period,priority:2" json:"salesperson_id"`
	PeriodYear        int             `gorm:"not null;uniqueIndex:ux_commission_requests_period,priority:3" json:"period_year"`
	PeriodMonth       int             `gorm:"not null;uniqueIndex:ux_commission_requests_period,priority:4" json:"period_month"`
	SalesTotal        decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"sales_total"`
	CommissionPercent decimal.Decimal `gorm:"type:numeric(9,4);not null" json:"commission_percent"`
	CommissionAmount  decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"commission_amount"`
	Status            Status          `gorm:"type:varchar(16);not null;index" json:"status"`
	RequestedBy       *snowflake.ID   `json:"requested_by,omitempty"`
	ApprovedBy        *snowflake.ID   `json:"approved_by,omitempty"`
	ApprovedAt        *time.Time      `json:"approved_at,omitempty"`
	RejectedBy        *snowflake.ID   `json:"rejected_by,omitempty"`
	RejectedAt        *time.Time      `json:"rejected_at,omitempty"`
	RejectionReason   string          `gorm:"type:text" json:"rejection_reason,omitempty"`
	CreatedAt         time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (CommissionRequest) TableName() string { return "commission_requests" }

// Period formats the reference month as YYYY-MM.
func (r CommissionRequest) Period() string {
	return time.Date(r.PeriodYear, time.Month(r.PeriodMonth), 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}
