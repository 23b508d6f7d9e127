package domain

import "context"

// CompleteGoLiveRequest fixes the due date of a go-live installment.
// CompletionDate uses the 2006-01-02 layout. A nil OffsetDays takes the
// configured default.
type CompleteGoLiveRequest struct {
	InstallmentID  string `json:"-"`
	CompletionDate string `json:"completion_date"`
	OffsetDays     *int   `json:"offset_days,omitempty"`
	ActorID        string `json:"-"`
}

type TransitionRequest struct {
	InstallmentID string `json:"-"`
	ActorID       string `json:"-"`
}

type Service interface {
	Complete(ctx context.Context, req CompleteGoLiveRequest) (Installment, error)
	Revert(ctx context.Context, req TransitionRequest) (Installment, error)
	Settle(ctx context.Context, req TransitionRequest) (Installment, error)
	Get(ctx context.Context, id string) (Installment, error)
	ListByContract(ctx context.Context, contractID string) ([]Installment, error)
}
