package service

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/contractledger/internal/config"
	contractdomain "github.com/smallbiznis/contractledger/internal/contract/domain"
	installmentdomain "github.com/smallbiznis/contractledger/internal/installment/domain"
	"github.com/smallbiznis/contractledger/internal/recurrence"
	"github.com/smallbiznis/contractledger/internal/valuation"
	"github.com/smallbiznis/contractledger/pkg/apperror"
)

// draft is a validated request with its value and installments computed.
// Nothing in it has an identifier yet.
type draft struct {
	contract     contractdomain.Contract
	items        []contractdomain.ContractItem
	installments []installmentdomain.Installment
	value        valuation.Result
}

func buildDraft(orgID snowflake.ID, req contractdomain.SaveContractRequest, engine config.EngineConfig) (draft, error) {
	c := contractdomain.Contract{OrgID: orgID}

	c.Kind = contractdomain.Kind(strings.ToLower(strings.TrimSpace(req.Kind)))
	if !c.Kind.Valid() {
		return draft{}, contractdomain.ErrInvalidKind
	}
	if err := assignCounterparty(&c, req); err != nil {
		return draft{}, err
	}

	category, err := parseID(req.AccountCategoryID, "account_category_id")
	if err != nil {
		return draft{}, err
	}
	if category == nil {
		return draft{}, contractdomain.ErrCategoryRequired
	}
	c.AccountCategoryID = *category

	if c.CostCenterID, err = parseID(req.CostCenterID, "cost_center_id"); err != nil {
		return draft{}, err
	}

	c.PaymentMethod = strings.TrimSpace(req.PaymentMethod)
	if c.PaymentMethod == "" {
		return draft{}, contractdomain.ErrPaymentMethodRequired
	}
	bank, err := parseID(req.BankAccountID, "bank_account_id")
	if err != nil {
		return draft{}, err
	}
	if bank == nil {
		return draft{}, contractdomain.ErrBankAccountRequired
	}
	c.BankAccountID = *bank

	if len(req.Items) == 0 {
		return draft{}, contractdomain.ErrItemsRequired
	}
	items := make([]contractdomain.ContractItem, 0, len(req.Items))
	valueItems := make([]valuation.Item, 0, len(req.Items))
	for i, in := range req.Items {
		if !in.Quantity.IsPositive() {
			return draft{}, apperror.Detail(contractdomain.ErrInvalidItem, "item %d quantity must be positive", i+1)
		}
		if in.UnitValue.IsNegative() {
			return draft{}, apperror.Detail(contractdomain.ErrInvalidItem, "item %d unit value is negative", i+1)
		}
		serviceID, err := parseID(in.ServiceID, "service_id")
		if err != nil {
			return draft{}, err
		}
		item := valuation.Item{Quantity: in.Quantity, UnitValue: in.UnitValue}
		valueItems = append(valueItems, item)
		items = append(items, contractdomain.ContractItem{
			OrgID:       orgID,
			ServiceID:   serviceID,
			Description: strings.TrimSpace(in.Description),
			Quantity:    in.Quantity,
			UnitValue:   in.UnitValue,
			LineTotal:   item.LineTotal().Round(valuation.CurrencyPlaces),
		})
	}

	if c.StartDate, err = parseDate(req.StartDate); err != nil || c.StartDate.IsZero() {
		return draft{}, contractdomain.ErrInvalidStartDate
	}
	if strings.TrimSpace(req.EndDate) != "" {
		end, err := parseDate(req.EndDate)
		if err != nil || end.Before(c.StartDate) {
			return draft{}, contractdomain.ErrInvalidEndDate
		}
		c.EndDate = &end
	}

	discount, err := valuation.ParseDiscount(valuation.DiscountMode(strings.ToLower(strings.TrimSpace(req.DiscountMode))), req.DiscountValue)
	if err != nil {
		return draft{}, err
	}
	taxes := valuation.TaxRates{
		IRRF:   req.Taxes.IRRF,
		PIS:    req.Taxes.PIS,
		COFINS: req.Taxes.COFINS,
		CSLL:   req.Taxes.CSLL,
	}
	resolved, err := valuation.Resolve(valuation.Input{
		Quantity:  req.Quantity,
		UnitValue: req.UnitValue,
		Items:     valueItems,
		Discount:  discount,
		Taxes:     taxes,
	})
	if err != nil {
		return draft{}, err
	}
	value := resolved.Rounded()

	c.Quantity = req.Quantity
	c.UnitValue = req.UnitValue
	c.DiscountMode = discount.Mode()
	c.DiscountInput = discount.Input()
	c.DiscountPercent = value.DiscountPercent
	c.DiscountAmount = value.DiscountAmount
	c.TaxIRRF, c.TaxPIS, c.TaxCOFINS, c.TaxCSLL = taxes.IRRF, taxes.PIS, taxes.COFINS, taxes.CSLL
	c.GrossValue = value.Gross
	c.NetValue = value.Net
	c.Notes = strings.TrimSpace(req.Notes)

	c.SplitPolicy = req.Split.Policy
	if c.SplitPolicy == "" {
		c.SplitPolicy = installmentdomain.SplitEqual
	}
	if c.SplitPolicy == installmentdomain.SplitCustom {
		c.SplitParts = req.Split.Parts
	} else {
		c.GoLiveFirst = req.Split.GoLiveFirst
	}

	planIn := installmentdomain.PlanInput{
		Net:        value.Net,
		Policy:     c.SplitPolicy,
		Parts:      req.Split.Parts,
		DeferFirst: c.GoLiveFirst,
		Direction:  c.Kind.Direction(),
		Tolerance:  decimal.NewFromFloat(engine.Split.Tolerance),
	}
	if err := scheduleDates(&c, req, &planIn, engine); err != nil {
		return draft{}, err
	}

	installments, err := installmentdomain.Plan(planIn)
	if err != nil {
		return draft{}, err
	}

	return draft{contract: c, items: items, installments: installments, value: value}, nil
}

// scheduleDates fills planIn.Dates (and Count for one-shot equal splits).
//
// Recurring contracts run the calendar from the start date: bounded by the
// end date, or by the configured default when open-ended. A custom split
// takes one date per dated part. One-shot contracts use a monthly calendar on
// the billing day (the start day when unset) with one date per dated
// installment.
func scheduleDates(c *contractdomain.Contract, req contractdomain.SaveContractRequest, planIn *installmentdomain.PlanInput, engine config.EngineConfig) error {
	c.IsRecurring = req.IsRecurring
	c.BillingDay = req.BillingDay

	schedule := recurrence.Schedule{Anchor: c.StartDate, BillingDay: req.BillingDay}

	if req.IsRecurring {
		c.RecurrencePeriod = recurrence.Period(strings.ToLower(strings.TrimSpace(req.RecurrencePeriod)))
		schedule.Period = c.RecurrencePeriod
		schedule.End = c.EndDate
		switch {
		case c.SplitPolicy == installmentdomain.SplitCustom:
			schedule.MaxOccurrences = installmentdomain.DatedCount(*planIn)
		case c.EndDate == nil:
			schedule.MaxOccurrences = engine.Recurrence.DefaultMaxOccurrences
		}
	} else {
		if req.InstallmentCount < 0 {
			return contractdomain.ErrInvalidInstallmentCount
		}
		c.InstallmentCount = req.InstallmentCount
		if c.InstallmentCount == 0 {
			c.InstallmentCount = 1
		}
		if c.SplitPolicy != installmentdomain.SplitCustom {
			planIn.Count = c.InstallmentCount
		}
		if schedule.BillingDay == 0 {
			schedule.BillingDay = c.StartDate.Day()
			c.BillingDay = schedule.BillingDay
		}
		schedule.Period = recurrence.Monthly
		schedule.MaxOccurrences = installmentdomain.DatedCount(*planIn)
		if schedule.MaxOccurrences == 0 {
			return nil
		}
	}

	dates, err := recurrence.Dates(schedule)
	if err != nil {
		return err
	}
	planIn.Dates = dates
	return nil
}

func assignCounterparty(c *contractdomain.Contract, req contractdomain.SaveContractRequest) error {
	client, err := parseID(req.ClientID, "client_id")
	if err != nil {
		return err
	}
	supplier, err := parseID(req.SupplierID, "supplier_id")
	if err != nil {
		return err
	}

	switch c.Kind {
	case contractdomain.KindSale:
		if client == nil {
			return apperror.Detail(contractdomain.ErrCounterpartyRequired, "sale contracts need a client")
		}
		if supplier != nil {
			return contractdomain.ErrCounterpartyMismatch
		}
		c.ClientID = client
	case contractdomain.KindPurchase:
		if supplier == nil {
			return apperror.Detail(contractdomain.ErrCounterpartyRequired, "purchase contracts need a supplier")
		}
		if client != nil {
			return contractdomain.ErrCounterpartyMismatch
		}
		c.SupplierID = supplier
	}
	return nil
}

func parseID(raw, field string) (*snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id <= 0 {
		return nil, apperror.Detail(contractdomain.ErrInvalidReference, "%s", field)
	}
	return &id, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(contractdomain.DateLayout, raw, time.UTC)
}
