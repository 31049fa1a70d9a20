package retention

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simatecve/reten-facil-sub000/internal/domain/shared"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestCalculate(t *testing.T) {
	t.Run("reference case 116 at 16 percent and 75 percent retention", func(t *testing.T) {
		result, err := Calculate(CalculationInput{
			TotalAmount:   d("116.00"),
			TaxRate:       d("16"),
			RetentionRate: d("75"),
		})
		require.NoError(t, err)

		rounded := result.RoundForStorage()
		assert.True(t, rounded.TaxBase.Equal(d("100.00")), "base = %s", rounded.TaxBase)
		assert.True(t, rounded.TaxAmount.Equal(d("16.00")), "tax = %s", rounded.TaxAmount)
		assert.True(t, rounded.RetainedAmount.Equal(d("12.00")), "retained = %s", rounded.RetainedAmount)
	})

	t.Run("100 percent retention retains the full tax", func(t *testing.T) {
		result, err := Calculate(CalculationInput{
			TotalAmount:   d("116.00"),
			TaxRate:       d("16"),
			RetentionRate: d("100"),
		})
		require.NoError(t, err)
		assert.True(t, result.RoundForStorage().RetainedAmount.Equal(d("16.00")))
	})

	t.Run("zero total yields all zeros", func(t *testing.T) {
		result, err := Calculate(CalculationInput{
			TotalAmount:   decimal.Zero,
			TaxRate:       d("16"),
			RetentionRate: d("75"),
		})
		require.NoError(t, err)
		assert.True(t, result.TaxBase.IsZero())
		assert.True(t, result.TaxAmount.IsZero())
		assert.True(t, result.RetainedAmount.IsZero())
	})

	t.Run("explicit tax base overrides derivation", func(t *testing.T) {
		base := d("50.00")
		result, err := Calculate(CalculationInput{
			TotalAmount:   d("116.00"),
			TaxRate:       d("16"),
			RetentionRate: d("75"),
			TaxBase:       &base,
		})
		require.NoError(t, err)
		rounded := result.RoundForStorage()
		assert.True(t, rounded.TaxBase.Equal(d("50.00")))
		assert.True(t, rounded.TaxAmount.Equal(d("66.00")))
		assert.True(t, rounded.RetainedAmount.Equal(d("49.50")))
	})

	t.Run("negative total is rejected", func(t *testing.T) {
		_, err := Calculate(CalculationInput{
			TotalAmount:   d("-10"),
			TaxRate:       d("16"),
			RetentionRate: d("75"),
		})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "NEGATIVE_AMOUNT", domainErr.Code)
	})

	t.Run("explicit base above the total is rejected", func(t *testing.T) {
		base := d("200")
		_, err := Calculate(CalculationInput{
			TotalAmount:   d("116"),
			TaxRate:       d("16"),
			RetentionRate: d("75"),
			TaxBase:       &base,
		})
		require.Error(t, err)
	})

	t.Run("rates outside 0..100 are rejected", func(t *testing.T) {
		_, err := Calculate(CalculationInput{
			TotalAmount:   d("116"),
			TaxRate:       d("116"),
			RetentionRate: d("75"),
		})
		assert.Error(t, err)

		_, err = Calculate(CalculationInput{
			TotalAmount:   d("116"),
			TaxRate:       d("16"),
			RetentionRate: d("-5"),
		})
		assert.Error(t, err)
	})
}

func TestCalculateBasePlusTaxEqualsTotal(t *testing.T) {
	totals := []string{"0.01", "1", "99.99", "116.00", "1234.56", "1000000"}
	taxRates := []string{"8", "16", "31"}
	retentionRates := []string{"75", "100"}

	tolerance := d("0.01")
	for _, total := range totals {
		for _, taxRate := range taxRates {
			for _, retRate := range retentionRates {
				result, err := Calculate(CalculationInput{
					TotalAmount:   d(total),
					TaxRate:       d(taxRate),
					RetentionRate: d(retRate),
				})
				require.NoError(t, err)

				rounded := result.RoundForStorage()
				sum := rounded.TaxBase.Add(rounded.TaxAmount)
				diff := sum.Sub(d(total)).Abs()
				assert.True(t, diff.LessThanOrEqual(tolerance),
					"total=%s tax=%s ret=%s: base+tax=%s", total, taxRate, retRate, sum)

				expectedRetained := rounded.TaxAmount.Mul(d(retRate)).Div(d("100"))
				retDiff := rounded.RetainedAmount.Sub(expectedRetained).Abs()
				assert.True(t, retDiff.LessThanOrEqual(tolerance))
			}
		}
	}
}
