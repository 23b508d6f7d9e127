// Package valuation resolves contract terms into gross, discount and net values.
//
// Arithmetic keeps full decimal precision. Rounding to currency precision
// happens once, through Result.Rounded, when values are persisted.
package valuation

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/contractledger/pkg/apperror"
)

var (
	ErrNegativeQuantity     = apperror.Validation("negative_quantity")
	ErrNegativeUnitValue    = apperror.Validation("negative_unit_value")
	ErrInvalidDiscount      = apperror.Validation("invalid_discount")
	ErrDiscountExceedsGross = apperror.Validation("discount_exceeds_gross")
	ErrInvalidTaxRate       = apperror.Validation("invalid_tax_rate")
	ErrTaxRateSumExceeded   = apperror.Validation("tax_rate_sum_exceeded")
)

var hundred = decimal.NewFromInt(100)

// CurrencyPlaces is the number of decimal places of persisted money values.
const CurrencyPlaces = 2

type DiscountMode string

const (
	DiscountNone    DiscountMode = "none"
	DiscountPercent DiscountMode = "percent"
	DiscountAmount  DiscountMode = "amount"
)

// Discount is either absent, a percentage of gross or a fixed amount.
// The zero value means no discount.
type Discount struct {
	mode  DiscountMode
	value decimal.Decimal
}

func NoDiscount() Discount { return Discount{mode: DiscountNone} }

func PercentDiscount(percent decimal.Decimal) Discount {
	return Discount{mode: DiscountPercent, value: percent}
}

func AmountDiscount(amount decimal.Decimal) Discount {
	return Discount{mode: DiscountAmount, value: amount}
}

// ParseDiscount builds a discount from a stored mode and input value.
func ParseDiscount(mode DiscountMode, value decimal.Decimal) (Discount, error) {
	switch mode {
	case "", DiscountNone:
		return NoDiscount(), nil
	case DiscountPercent:
		return PercentDiscount(value), nil
	case DiscountAmount:
		return AmountDiscount(value), nil
	default:
		return Discount{}, apperror.Detail(ErrInvalidDiscount, "unknown discount mode %q", mode)
	}
}

func (d Discount) Mode() DiscountMode {
	if d.mode == "" {
		return DiscountNone
	}
	return d.mode
}

// Input is the raw value the caller supplied for the discount mode.
func (d Discount) Input() decimal.Decimal {
	if d.Mode() == DiscountNone {
		return decimal.Zero
	}
	return d.value
}

type Item struct {
	Quantity  decimal.Decimal
	UnitValue decimal.Decimal
}

func (i Item) LineTotal() decimal.Decimal {
	return i.Quantity.Mul(i.UnitValue)
}

// TaxRates are percentages stacked additively over the discounted base.
type TaxRates struct {
	IRRF   decimal.Decimal
	PIS    decimal.Decimal
	COFINS decimal.Decimal
	CSLL   decimal.Decimal
}

func (t TaxRates) all() []decimal.Decimal {
	return []decimal.Decimal{t.IRRF, t.PIS, t.COFINS, t.CSLL}
}

func (t TaxRates) Sum() decimal.Decimal {
	return decimal.Sum(decimal.Zero, t.all()...)
}

// Input describes the commercial terms of a contract. Items, when present,
// take precedence over Quantity and UnitValue.
type Input struct {
	Quantity  decimal.Decimal
	UnitValue decimal.Decimal
	Items     []Item
	Discount  Discount
	Taxes     TaxRates
}

type Result struct {
	Gross           decimal.Decimal
	Mode            DiscountMode
	DiscountPercent decimal.Decimal
	DiscountAmount  decimal.Decimal
	Base            decimal.Decimal
	TaxRate         decimal.Decimal
	TaxAmount       decimal.Decimal
	Net             decimal.Decimal
}

// Resolve computes the contract value. It is a pure function of in.
func Resolve(in Input) (Result, error) {
	gross, err := grossOf(in)
	if err != nil {
		return Result{}, err
	}
	if err := validateTaxes(in.Taxes); err != nil {
		return Result{}, err
	}

	res := Result{Gross: gross, Mode: in.Discount.Mode(), TaxRate: in.Taxes.Sum()}

	switch res.Mode {
	case DiscountNone:
		res.DiscountPercent = decimal.Zero
		res.DiscountAmount = decimal.Zero
	case DiscountPercent:
		pct := in.Discount.Input()
		if pct.IsNegative() || pct.GreaterThan(hundred) {
			return Result{}, apperror.Detail(ErrInvalidDiscount, "discount percent %s outside [0,100]", pct)
		}
		res.DiscountPercent = pct
		res.DiscountAmount = gross.Mul(pct).Div(hundred)
	case DiscountAmount:
		amount := in.Discount.Input()
		if amount.IsNegative() {
			return Result{}, apperror.Detail(ErrInvalidDiscount, "discount amount %s is negative", amount)
		}
		if amount.GreaterThan(gross) {
			return Result{}, apperror.Detail(ErrDiscountExceedsGross, "discount %s exceeds gross %s", amount, gross)
		}
		res.DiscountAmount = amount
		res.DiscountPercent = decimal.Zero
		if gross.IsPositive() {
			res.DiscountPercent = amount.Mul(hundred).DivRound(gross, 16)
		}
	default:
		return Result{}, apperror.Detail(ErrInvalidDiscount, "unknown discount mode %q", res.Mode)
	}

	if gross.IsZero() {
		res.DiscountPercent = decimal.Zero
		res.DiscountAmount = decimal.Zero
	}

	res.Base = gross.Sub(res.DiscountAmount)
	res.TaxAmount = res.Base.Mul(res.TaxRate).Div(hundred)
	res.Net = res.Base.Sub(res.TaxAmount)
	return res, nil
}

// Rounded returns the result with every money field rounded to currency precision.
func (r Result) Rounded() Result {
	out := r
	out.Gross = r.Gross.Round(CurrencyPlaces)
	out.DiscountAmount = r.DiscountAmount.Round(CurrencyPlaces)
	out.DiscountPercent = r.DiscountPercent.Round(4)
	out.Base = r.Base.Round(CurrencyPlaces)
	out.TaxAmount = r.TaxAmount.Round(CurrencyPlaces)
	out.Net = r.Net.Round(CurrencyPlaces)
	return out
}

func grossOf(in Input) (decimal.Decimal, error) {
	if len(in.Items) == 0 {
		if in.Quantity.IsNegative() {
			return decimal.Zero, ErrNegativeQuantity
		}
		if in.UnitValue.IsNegative() {
			return decimal.Zero, ErrNegativeUnitValue
		}
		return in.Quantity.Mul(in.UnitValue), nil
	}

	gross := decimal.Zero
	for i, item := range in.Items {
		if item.Quantity.IsNegative() {
			return decimal.Zero, apperror.Detail(ErrNegativeQuantity, "item %d", i+1)
		}
		if item.UnitValue.IsNegative() {
			return decimal.Zero, apperror.Detail(ErrNegativeUnitValue, "item %d", i+1)
		}
		gross = gross.Add(item.LineTotal())
	}
	return gross, nil
}

func validateTaxes(t TaxRates) error {
	for _, rate := range t.all() {
		if rate.IsNegative() || rate.GreaterThan(hundred) {
			return apperror.Detail(ErrInvalidTaxRate, "tax rate %s outside [0,100]", rate)
		}
	}
	if t.Sum().GreaterThan(hundred) {
		return ErrTaxRateSumExceeded
	}
	return nil
}
