package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCalculateFee(t *testing.T) {
	calc := NewFeeCalculator(FeeConfig{Percent: 5, Min: 100, Max: 5000})

	tests := []struct {
		name   string
		amount float64
		fee    string
		payout string
	}{
		{"below minimum", 1000, "100.00", "900.00"},
		{"percentage", 10000, "500.00", "9500.00"},
		{"rounds half up", 2345.5, "117.28", "2228.22"},
		{"capped at maximum", 250000, "5000.00", "245000.00"},
		{"never exceeds amount", 60, "60.00", "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.CalculateFee(tt.amount)
			assert.Equal(t, tt.fee, got.PlatformFee.StringFixed(2))
			assert.Equal(t, tt.payout, got.SellerPayout.StringFixed(2))
		})
	}
}

func TestCalculateFeeSumsToAmount(t *testing.T) {
	calc := NewFeeCalculator(FeeConfig{Percent: 7.5, Min: 10, Max: 900})

	for _, amount := range []float64{10.01, 99.99, 133.33, 1000, 4321.09, 12000.5, 99999.99} {
		got := calc.CalculateFee(amount)
		assert.True(t, got.PlatformFee.Add(got.SellerPayout).Equal(got.Amount), "amount %v", amount)
		assert.True(t, got.PlatformFee.GreaterThanOrEqual(decimal.NewFromInt(10)))
		assert.True(t, got.PlatformFee.LessThanOrEqual(decimal.NewFromInt(900)))
	}
}

func TestCalculateFeeMinorUnitsAreExact(t *testing.T) {
	calc := NewFeeCalculator(FeeConfig{Percent: 5, Min: 100, Max: 5000})

	// Every cent amount in [1000, 3000), where float sums used to drift.
	for cents := int64(100000); cents < 300000; cents++ {
		amount, _ := decimal.New(cents, -2).Float64()
		minorAmount, minorFee, minorPayout := calc.CalculateFee(amount).Minor()
		if !assert.Equal(t, cents, minorAmount) || !assert.Equal(t, minorAmount, minorFee+minorPayout) {
			t.Fatalf("breakdown of %d cents does not balance", cents)
		}
	}

	minorAmount, minorFee, minorPayout := calc.CalculateFee(1024.07).Minor()
	assert.Equal(t, int64(102407), minorAmount)
	assert.Equal(t, int64(10000), minorFee)
	assert.Equal(t, int64(92407), minorPayout)
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(50050), ToMinorUnits(decimal.NewFromFloat(500.5)))
	assert.Equal(t, int64(1), ToMinorUnits(decimal.NewFromFloat(0.005)))
}
