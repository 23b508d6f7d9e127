package domain

import "github.com/smallbiznis/contractledger/pkg/apperror"

var (
	ErrInvalidOrganization     = apperror.Validation("invalid_organization")
	ErrInvalidSalesperson      = apperror.Validation("invalid_salesperson")
	ErrInvalidName             = apperror.Validation("invalid_salesperson_name")
	ErrInvalidPercent          = apperror.Validation("invalid_commission_percent")
	ErrInvalidPeriod           = apperror.Validation("invalid_commission_period")
	ErrInvalidSalesTotal       = apperror.Validation("invalid_sales_total")
	ErrInvalidReference        = apperror.Validation("invalid_reference")
	ErrInvalidStatus           = apperror.Validation("invalid_commission_status")
	ErrRejectionReasonRequired = apperror.Validation("rejection_reason_required")
	ErrInvalidTransition       = apperror.Validation("invalid_commission_transition")
	ErrSalespersonNotFound     = apperror.NotFound("salesperson_not_found")
	ErrCommissionNotFound      = apperror.NotFound("commission_request_not_found")
	ErrCommissionExists        = apperror.Conflict("commission_request_exists")
	ErrSalespersonWithoutPayee = apperror.Domain("salesperson_without_payee")
)
