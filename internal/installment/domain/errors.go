package domain

import "github.com/smallbiznis/contractledger/pkg/apperror"

var (
	ErrInvalidOrganization = apperror.Validation("invalid_organization")
	ErrInvalidSplitPolicy  = apperror.Validation("invalid_split_policy")
	ErrNonPositiveNet      = apperror.Validation("non_positive_net_value")
	ErrSplitPartsRequired  = apperror.Validation("split_parts_required")
	ErrInvalidSplitPercent = apperror.Validation("invalid_split_percent")
	ErrInvalidSplitKind    = apperror.Validation("invalid_split_kind")
	ErrSplitSumMismatch    = apperror.Validation("split_percent_sum_mismatch")
	ErrCountRequired       = apperror.Validation("installment_count_required")
	ErrInsufficientDates   = apperror.Validation("insufficient_schedule_dates")
	ErrInvalidDirection    = apperror.Validation("invalid_direction")

	ErrInstallmentNotFound   = apperror.NotFound("installment_not_found")
	ErrNotGoLive             = apperror.Validation("installment_not_go_live")
	ErrNotAwaitingCompletion = apperror.Validation("installment_not_awaiting_completion")
	ErrNotPending            = apperror.Validation("installment_not_pending")
	ErrInstallmentSettled    = apperror.Validation("installment_settled")
	ErrInvalidCompletionDate = apperror.Validation("invalid_completion_date")
	ErrInvalidOffsetDays     = apperror.Validation("invalid_offset_days")
	ErrContractInactive      = apperror.Validation("contract_inactive")
)
