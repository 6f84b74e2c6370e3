package service

import "github.com/shopspring/decimal"

// FeeConfig holds the platform fee schedule. Percent is expressed in percent
// points, so 5 means 5%.
type FeeConfig struct {
	Percent float64
	Min     float64
	Max     float64
}

// FeeBreakdown is exact: PlatformFee + SellerPayout == Amount, all at cent
// precision.
type FeeBreakdown struct {
	Amount       decimal.Decimal
	PlatformFee  decimal.Decimal
	SellerPayout decimal.Decimal
}

// Minor returns the breakdown in integer minor units.
func (b FeeBreakdown) Minor() (amount, fee, payout int64) {
	return ToMinorUnits(b.Amount), ToMinorUnits(b.PlatformFee), ToMinorUnits(b.SellerPayout)
}

// ToMinorUnits converts a cent-precision amount to paise/cents.
func ToMinorUnits(d decimal.Decimal) int64 {
	return d.Round(2).Shift(2).IntPart()
}

type FeeCalculator interface {
	CalculateFee(amount float64) FeeBreakdown
}

type percentageFeeCalculator struct {
	percent decimal.Decimal
	min     decimal.Decimal
	max     decimal.Decimal
}

func NewFeeCalculator(cfg FeeConfig) FeeCalculator {
	return &percentageFeeCalculator{
		percent: decimal.NewFromFloat(cfg.Percent),
		min:     decimal.NewFromFloat(cfg.Min),
		max:     decimal.NewFromFloat(cfg.Max),
	}
}

// CalculateFee clamps amount*percent into [min, max] and rounds half-up to
// cents. Amounts are taken at cent precision. The fee never exceeds the amount itself, so the payout is never
// negative. Callers validate amount > 0.
func (c *percentageFeeCalculator) CalculateFee(amount float64) FeeBreakdown {
	amt := decimal.NewFromFloat(amount).Round(2)

	fee := amt.Mul(c.percent).Div(decimal.NewFromInt(100))
	if fee.LessThan(c.min) {
		fee = c.min
	}
	if c.max.IsPositive() && fee.GreaterThan(c.max) {
		fee = c.max
	}
	fee = fee.Round(2)
	if fee.GreaterThan(amt) {
		fee = amt
	}

	return FeeBreakdown{
		Amount:       amt,
		PlatformFee:  fee,
		SellerPayout: amt.Sub(fee),
	}
}
