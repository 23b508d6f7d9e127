package domain

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/contractledger/pkg/db/pagination"
)

type CreateSalespersonRequest struct {
	Name              string          `json:"name"`
	UserID            string          `json:"user_id,omitempty"`
	PayeeSupplierID   string          `json:"payee_supplier_id,omitempty"`
	CommissionPercent decimal.Decimal `json:"commission_percent"`
}

type UpdateSalespersonRequest struct {
	ID                string           `json:"-"`
	Name              *string          `json:"name,omitempty"`
	UserID            *string          `json:"user_id,omitempty"`
	PayeeSupplierID   *string          `json:"payee_supplier_id,omitempty"`
	CommissionPercent *decimal.Decimal `json:"commission_percent,omitempty"`
}

type ListSalespeopleRequest struct {
	pagination.Pagination
	Name string `form:"name"`
}

type ListSalespeopleResponse struct {
	pagination.PageInfo
	Salespeople []Salesperson `json:"salespeople"`
}

// SalespersonService manages the people commission requests are raised for.
type SalespersonService interface {
	Create(ctx context.Context, req CreateSalespersonRequest) (Salesperson, error)
	Update(ctx context.Context, req UpdateSalespersonRequest) (Salesperson, error)
	Get(ctx context.Context, id string) (Salesperson, error)
	List(ctx context.Context, req ListSalespeopleRequest) (ListSalespeopleResponse, error)
}

// CreateCommissionRequest raises a commission for a reference month. A nil
// CommissionPercent takes the salesperson's configured percent.
type CreateCommissionRequest struct {
	SalespersonID     string           `json:"salesperson_id"`
	Month             int              `json:"month"`
	Year              int              `json:"year"`
	SalesTotal        decimal.Decimal  `json:"sales_total"`
	CommissionPercent *decimal.Decimal `json:"commission_percent,omitempty"`
	RequestedBy       string           `json:"-"`
}

type ApproveRequest struct {
	ID         string `json:"-"`
	ApproverID string `json:"-"`
}

type RejectRequest struct {
	ID         string `json:"-"`
	RejectedBy string `json:"-"`
	Reason     string `json:"reason"`
}

type RevertRequest struct {
	ID      string `json:"-"`
	ActorID string `json:"-"`
}

type ListCommissionRequest struct {
	pagination.Pagination
	SalespersonID string `form:"salesperson_id"`
	Year          int    `form:"year"`
	Month         int    `form:"month"`
	Status        string `form:"status"`
}

type ListCommissionResponse struct {
	pagination.PageInfo
	Requests []CommissionRequest `json:"requests"`
}

// Service runs the approval workflow. Approval posts exactly one payable
// ledger entry; revert removes it.
type Service interface {
	Create(ctx context.Context, req CreateCommissionRequest) (CommissionRequest, error)
	Approve(ctx context.Context, req ApproveRequest) (CommissionRequest, error)
	Reject(ctx context.Context, req RejectRequest) (CommissionRequest, error)
	Revert(ctx context.Context, req RevertRequest) (CommissionRequest, error)
	Get(ctx context.Context, id string) (CommissionRequest, error)
	List(ctx context.Context, req ListCommissionRequest) (ListCommissionResponse, error)
}
