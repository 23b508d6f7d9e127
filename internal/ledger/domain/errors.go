package domain

import "github.com/smallbiznis/contractledger/pkg/apperror"

var (
	ErrInvalidOrganization = apperror.Validation("invalid_organization")
	ErrInvalidSourceType   = apperror.Validation("invalid_source_type")
	ErrInvalidSourceID     = apperror.Validation("invalid_source_id")
	ErrInvalidDirection    = apperror.Validation("invalid_direction")
	ErrInvalidAmount       = apperror.Validation("invalid_amount")
	ErrInvalidDueDate      = apperror.Validation("invalid_due_date")
	ErrInvalidStatus       = apperror.Validation("invalid_ledger_status")
	ErrInvalidDateRange    = apperror.Validation("invalid_date_range")
	ErrEntryNotFound       = apperror.NotFound("ledger_entry_not_found")
	ErrEntryExists         = apperror.Conflict("ledger_entry_exists")
)
