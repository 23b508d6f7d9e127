package domain

import (
	"time"

	"github.com/shopspring/decimal"
	ledgerdomain "github.com/smallbiznis/contractledger/internal/ledger/domain"
	"github.com/smallbiznis/contractledger/pkg/apperror"
)

type SplitPolicy string

const (
	SplitEqual  SplitPolicy = "equal"
	SplitCustom SplitPolicy = "custom"
)

// DefaultSplitTolerance is how far a custom split may drift from 100 percent.
var DefaultSplitTolerance = decimal.RequireFromString("0.01")

var hundred = decimal.NewFromInt(100)

// SplitPart is one caller-defined share of a custom split.
type SplitPart struct {
	Percent     decimal.Decimal `json:"percent"`
	Kind        Kind            `json:"kind"`
	Description string          `json:"description,omitempty"`
}

// PlanInput feeds Plan.
//
// For an equal split Count installments are produced, or one per date plus
// the deferred one when Count is zero. DeferFirst turns installment 1 into a
// go-live installment. For a custom split one installment per part is
// produced. In both cases dated installments consume Dates in order.
type PlanInput struct {
	Net        decimal.Decimal
	Policy     SplitPolicy
	Parts      []SplitPart
	Dates      []time.Time
	Count      int
	DeferFirst bool
	Direction  ledgerdomain.Direction
	Tolerance  decimal.Decimal
}

// Plan distributes the net value over installments. Amounts are truncated to
// cents and the last installment absorbs the remainder, so the amounts always
// add up to the rounded net value and none is negative. The whole batch is rejected on any error.
func Plan(in PlanInput) ([]Installment, error) {
	if !in.Net.IsPositive() {
		return nil, ErrNonPositiveNet
	}
	if !in.Direction.Valid() {
		return nil, ErrInvalidDirection
	}

	var shares []share
	var err error
	switch in.Policy {
	case SplitEqual, "":
		shares, err = equalShares(in)
	case SplitCustom:
		shares, err = customShares(in)
	default:
		return nil, apperror.Detail(ErrInvalidSplitPolicy, "unknown split policy %q", in.Policy)
	}
	if err != nil {
		return nil, err
	}

	dated := 0
	for _, sh := range shares {
		if sh.kind == KindNormal {
			dated++
		}
	}
	if dated > len(in.Dates) {
		return nil, apperror.Detail(ErrInsufficientDates, "need %d dates, got %d", dated, len(in.Dates))
	}

	total := in.Net.Round(2)
	allocated := decimal.Zero
	next := 0
	out := make([]Installment, 0, len(shares))
	for i, sh := range shares {
		amount := sh.amount(in.Net)
		if i == len(shares)-1 {
			amount = total.Sub(allocated)
			if amount.IsNegative() {
				return nil, apperror.Detail(ErrSplitSumMismatch, "shares exceed net value by %s", amount.Neg())
			}
		}
		allocated = allocated.Add(amount)

		inst := Installment{
			Sequence:    i + 1,
			Amount:      amount,
			Percent:     sh.percent,
			Description: sh.description,
			Kind:        sh.kind,
			Direction:   in.Direction,
		}
		if sh.kind == KindGoLive {
			inst.Status = StatusAwaitingCompletion
		} else {
			due := in.Dates[next]
			next++
			inst.DueDate = &due
			inst.Status = StatusPending
		}
		out = append(out, inst)
	}
	return out, nil
}

type share struct {
	kind        Kind
	percent     *decimal.Decimal
	weight      decimal.Decimal
	base        decimal.Decimal
	description string
}

// amount truncates to cents so the leading shares never outgrow the net
// value; the last installment picks up what truncation leaves behind.
func (s share) amount(net decimal.Decimal) decimal.Decimal {
	return net.Mul(s.weight).Div(s.base).RoundDown(2)
}

func equalShares(in PlanInput) ([]share, error) {
	count := in.Count
	if count <= 0 {
		count = len(in.Dates)
		if in.DeferFirst {
			count++
		}
	}
	if count <= 0 {
		return nil, ErrCountRequired
	}

	base := decimal.NewFromInt(int64(count))
	shares := make([]share, count)
	for i := range shares {
		shares[i] = share{kind: KindNormal, weight: decimal.NewFromInt(1), base: base}
	}
	if in.DeferFirst {
		shares[0].kind = KindGoLive
	}
	return shares, nil
}

func customShares(in PlanInput) ([]share, error) {
	if len(in.Parts) == 0 {
		return nil, ErrSplitPartsRequired
	}
	tolerance := in.Tolerance
	if !tolerance.IsPositive() {
		tolerance = DefaultSplitTolerance
	}

	sum := decimal.Zero
	shares := make([]share, 0, len(in.Parts))
	for i, part := range in.Parts {
		if !part.Percent.IsPositive() || part.Percent.GreaterThan(hundred) {
			return nil, apperror.Detail(ErrInvalidSplitPercent, "part %d percent %s", i+1, part.Percent)
		}
		kind := part.Kind
		if kind == "" {
			kind = KindNormal
		}
		if !kind.Valid() {
			return nil, apperror.Detail(ErrInvalidSplitKind, "part %d kind %q", i+1, part.Kind)
		}
		pct := part.Percent
		sum = sum.Add(pct)
		shares = append(shares, share{
			kind:        kind,
			percent:     &pct,
			weight:      pct,
			base:        hundred,
			description: part.Description,
		})
	}

	if sum.Sub(hundred).Abs().GreaterThan(tolerance) {
		return nil, apperror.Detail(ErrSplitSumMismatch, "percent sum is %s", sum)
	}
	return shares, nil
}

// DatedCount is the number of installments Plan will date for in.
func DatedCount(in PlanInput) int {
	switch in.Policy {
	case SplitCustom:
		n := 0
		for _, part := range in.Parts {
			if part.Kind != KindGoLive {
				n++
			}
		}
		return n
	default:
		n := in.Count
		if in.DeferFirst && n > 0 {
			n--
		}
		return n
	}
}
