package domain

import "github.com/smallbiznis/contractledger/pkg/apperror"

var (
	ErrInvalidOrganization     = apperror.Validation("invalid_organization")
	ErrInvalidID               = apperror.Validation("invalid_contract_id")
	ErrInvalidKind             = apperror.Validation("invalid_contract_kind")
	ErrCounterpartyRequired    = apperror.Validation("counterparty_required")
	ErrCounterpartyMismatch    = apperror.Validation("counterparty_mismatch")
	ErrCategoryRequired        = apperror.Validation("account_category_required")
	ErrPaymentMethodRequired   = apperror.Validation("payment_method_required")
	ErrBankAccountRequired     = apperror.Validation("bank_account_required")
	ErrItemsRequired           = apperror.Validation("items_required")
	ErrInvalidItem             = apperror.Validation("invalid_contract_item")
	ErrInvalidReference        = apperror.Validation("invalid_reference_id")
	ErrInvalidStartDate        = apperror.Validation("invalid_start_date")
	ErrInvalidEndDate          = apperror.Validation("invalid_end_date")
	ErrInvalidInstallmentCount = apperror.Validation("invalid_installment_count")
	ErrInvalidStatus           = apperror.Validation("invalid_contract_status")
	ErrInvalidVersion          = apperror.Validation("invalid_contract_version")

	ErrContractNotFound = apperror.NotFound("contract_not_found")
	ErrStaleVersion     = apperror.Conflict("stale_contract_version")
	ErrContractLocked   = apperror.Conflict("contract_locked")
)
