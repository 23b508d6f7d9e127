package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	installmentdomain "github.com/smallbiznis/contractledger/internal/installment/domain"
	"github.com/smallbiznis/contractledger/pkg/db/pagination"
)

// DateLayout is the wire format of contract dates.
const DateLayout = time.DateOnly

type ItemInput struct {
	ServiceID   string          `json:"service_id,omitempty"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitValue   decimal.Decimal `json:"unit_value"`
}

type TaxInput struct {
	IRRF   decimal.Decimal `json:"irrf"`
	PIS    decimal.Decimal `json:"pis"`
	COFINS decimal.Decimal `json:"cofins"`
	CSLL   decimal.Decimal `json:"csll"`
}

// SplitInput selects how the net value is spread over installments.
// GoLiveFirst defers the first equal installment until go-live.
type SplitInput struct {
	Policy      installmentdomain.SplitPolicy `json:"policy"`
	Parts       []installmentdomain.SplitPart `json:"parts,omitempty"`
	GoLiveFirst bool                          `json:"go_live_first,omitempty"`
}

type SaveContractRequest struct {
	Kind              string          `json:"kind"`
	ClientID          string          `json:"client_id,omitempty"`
	SupplierID        string          `json:"supplier_id,omitempty"`
	StartDate         string          `json:"start_date"`
	EndDate           string          `json:"end_date,omitempty"`
	IsRecurring       bool            `json:"is_recurring"`
	RecurrencePeriod  string          `json:"recurrence_period,omitempty"`
	BillingDay        int             `json:"billing_day,omitempty"`
	InstallmentCount  int             `json:"installment_count,omitempty"`
	AccountCategoryID string          `json:"account_category_id"`
	CostCenterID      string          `json:"cost_center_id,omitempty"`
	Quantity          decimal.Decimal `json:"quantity"`
	UnitValue         decimal.Decimal `json:"unit_value"`
	DiscountMode      string          `json:"discount_mode,omitempty"`
	DiscountValue     decimal.Decimal `json:"discount_value"`
	Taxes             TaxInput        `json:"taxes"`
	PaymentMethod     string          `json:"payment_method"`
	BankAccountID     string          `json:"bank_account_id"`
	Items             []ItemInput     `json:"items"`
	Split             SplitInput      `json:"split"`
	Notes             string          `json:"notes,omitempty"`
	ActorID           string          `json:"-"`
}

type UpdateContractRequest struct {
	ID              string `json:"-"`
	ExpectedVersion int64  `json:"expected_version"`
	SaveContractRequest
}

type SetStatusRequest struct {
	ID      string `json:"-"`
	Status  string `json:"status"`
	ActorID string `json:"-"`
}

type ListContractRequest struct {
	pagination.Pagination
	Kind         string `form:"kind"`
	Status       string `form:"status"`
	ClientID     string `form:"client_id"`
	SupplierID   string `form:"supplier_id"`
	CostCenterID string `form:"cost_center_id"`
}

type ListContractResponse struct {
	pagination.PageInfo
	Contracts []Contract `json:"contracts"`
}

// Preview is the computed outcome of a request, without identifiers.
type Preview struct {
	GrossValue      decimal.Decimal                 `json:"gross_value"`
	DiscountPercent decimal.Decimal                 `json:"discount_percent"`
	DiscountAmount  decimal.Decimal                 `json:"discount_amount"`
	TaxAmount       decimal.Decimal                 `json:"tax_amount"`
	NetValue        decimal.Decimal                 `json:"net_value"`
	Installments    []installmentdomain.Installment `json:"installments"`
}

type Service interface {
	Create(ctx context.Context, req SaveContractRequest) (ContractAggregate, error)
	Update(ctx context.Context, req UpdateContractRequest) (ContractAggregate, error)
	Get(ctx context.Context, id string) (ContractAggregate, error)
	List(ctx context.Context, req ListContractRequest) (ListContractResponse, error)
	SetStatus(ctx context.Context, req SetStatusRequest) (Contract, error)
	Preview(ctx context.Context, req SaveContractRequest) (Preview, error)
}
