package valuation

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/contractledger/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func standardTaxes() TaxRates {
	return TaxRates{IRRF: d("1.5"), PIS: d("0.65"), COFINS: d("3"), CSLL: d("1")}
}

func TestResolvePercentDiscountWithStackedTaxes(t *testing.T) {
	res, err := Resolve(Input{
		Quantity:  d("10"),
		UnitValue: d("100"),
		Discount:  PercentDiscount(d("10")),
		Taxes:     standardTaxes(),
	})
	require.NoError(t, err)

	assert.True(t, res.Gross.Equal(d("1000")))
	assert.True(t, res.DiscountAmount.Equal(d("100")))
	assert.True(t, res.Base.Equal(d("900")))
	assert.True(t, res.TaxRate.Equal(d("6.15")))
	assert.True(t, res.TaxAmount.Equal(d("55.35")))
	assert.True(t, res.Net.Equal(d("844.65")), "net = %s", res.Net)
	assert.Equal(t, DiscountPercent, res.Mode)
}

func TestResolveItemsTakePrecedence(t *testing.T) {
	res, err := Resolve(Input{
		Quantity:  d("1"),
		UnitValue: d("1"),
		Items: []Item{
			{Quantity: d("2"), UnitValue: d("150")},
			{Quantity: d("1"), UnitValue: d("700")},
		},
	})
	require.NoError(t, err)
	assert.True(t, res.Gross.Equal(d("1000")))
	assert.True(t, res.Net.Equal(d("1000")))
	assert.Equal(t, DiscountNone, res.Mode)
}

func TestResolveAmountDiscountDerivesPercent(t *testing.T) {
	res, err := Resolve(Input{Quantity: d("4"), UnitValue: d("50"), Discount: AmountDiscount(d("50"))})
	require.NoError(t, err)
	assert.True(t, res.DiscountAmount.Equal(d("50")))
	assert.True(t, res.DiscountPercent.Equal(d("25")))
	assert.True(t, res.Net.Equal(d("150")))
}

func TestResolveZeroGross(t *testing.T) {
	for _, discount := range []Discount{PercentDiscount(d("15")), AmountDiscount(d("0")), NoDiscount()} {
		res, err := Resolve(Input{Quantity: d("0"), UnitValue: d("100"), Discount: discount, Taxes: standardTaxes()})
		require.NoError(t, err)
		assert.True(t, res.DiscountAmount.IsZero())
		assert.True(t, res.DiscountPercent.IsZero())
		assert.True(t, res.Net.IsZero())
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	in := Input{Quantity: d("3"), UnitValue: d("333.33"), Discount: PercentDiscount(d("7.5")), Taxes: standardTaxes()}
	first, err := Resolve(in)
	require.NoError(t, err)
	second, err := Resolve(in)
	require.NoError(t, err)
	assert.True(t, first.Net.Equal(second.Net))
	assert.True(t, first.DiscountAmount.Equal(second.DiscountAmount))
}

func TestResolveTaxesNeverExceedBase(t *testing.T) {
	rates := []TaxRates{
		{},
		standardTaxes(),
		{IRRF: d("25"), PIS: d("25"), COFINS: d("25"), CSLL: d("25")},
	}
	for _, r := range rates {
		res, err := Resolve(Input{Quantity: d("7"), UnitValue: d("13.37"), Discount: AmountDiscount(d("10")), Taxes: r})
		require.NoError(t, err)
		assert.True(t, res.Net.LessThanOrEqual(res.Base))
		assert.False(t, res.Net.IsNegative())
	}
}

func TestResolveValidation(t *testing.T) {
	cases := []struct {
		name string
		in   Input
		want error
	}{
		{"negative quantity", Input{Quantity: d("-1"), UnitValue: d("1")}, ErrNegativeQuantity},
		{"negative item value", Input{Items: []Item{{Quantity: d("1"), UnitValue: d("-5")}}}, ErrNegativeUnitValue},
		{"percent above 100", Input{Quantity: d("1"), UnitValue: d("1"), Discount: PercentDiscount(d("101"))}, ErrInvalidDiscount},
		{"amount above gross", Input{Quantity: d("1"), UnitValue: d("10"), Discount: AmountDiscount(d("11"))}, ErrDiscountExceedsGross},
		{"negative amount", Input{Quantity: d("1"), UnitValue: d("10"), Discount: AmountDiscount(d("-1"))}, ErrInvalidDiscount},
		{"tax above 100", Input{Quantity: d("1"), UnitValue: d("10"), Taxes: TaxRates{IRRF: d("120")}}, ErrInvalidTaxRate},
		{"tax sum above 100", Input{Quantity: d("1"), UnitValue: d("10"), Taxes: TaxRates{IRRF: d("60"), PIS: d("50")}}, ErrTaxRateSumExceeded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Resolve(tc.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
			assert.True(t, apperror.IsValidation(err))
		})
	}
}

func TestParseDiscount(t *testing.T) {
	disc, err := ParseDiscount(DiscountAmount, d("12.5"))
	require.NoError(t, err)
	assert.Equal(t, DiscountAmount, disc.Mode())
	assert.True(t, disc.Input().Equal(d("12.5")))

	disc, err = ParseDiscount("", d("3"))
	require.NoError(t, err)
	assert.True(t, disc.Input().IsZero())

	_, err = ParseDiscount("bogus", decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidDiscount)
}

func TestRounded(t *testing.T) {
	res, err := Resolve(Input{Quantity: d("3"), UnitValue: d("0.335")})
	require.NoError(t, err)
	assert.Equal(t, "1.01", res.Rounded().Net.StringFixed(2))
}
