package finance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dquevedo/aportaciones-go/finance"
)

func TestSplitInstallments(t *testing.T) {
	t.Run("100 into 3 puts the remainder on the last installment", func(t *testing.T) {
		amounts, err := finance.SplitInstallments(finance.CentsFromFloat(100.00), 3)
		require.NoError(t, err)
		assert.Equal(t, []finance.Cents{
			finance.CentsFromFloat(33.33),
			finance.CentsFromFloat(33.33),
			finance.CentsFromFloat(33.34),
		}, amounts)
	})

	t.Run("single installment carries the full share", func(t *testing.T) {
		amounts, err := finance.SplitInstallments(finance.CentsFromFloat(611.11), 1)
		require.NoError(t, err)
		assert.Equal(t, []finance.Cents{finance.CentsFromFloat(611.11)}, amounts)
	})

	t.Run("sum equals the share exactly for a range of inputs", func(t *testing.T) {
		shares := []finance.Cents{1, 99, 100, 10001, 61111, 38889, 123457}
		for _, share := range shares {
			for n := 1; n <= 12; n++ {
				amounts, err := finance.SplitInstallments(share, n)
				require.NoError(t, err, "share=%d n=%d", share, n)
				require.Len(t, amounts, n)

				var sum finance.Cents
				for _, a := range amounts {
					sum += a
				}
				assert.Equal(t, share, sum, "share=%d n=%d", share, n)

				// First n-1 installments are equal; the last absorbs the rest.
				for i := 0; i < n-1; i++ {
					assert.Equal(t, amounts[0], amounts[i], "share=%d n=%d", share, n)
				}
			}
		}
	})

	t.Run("rejects non-positive installment count", func(t *testing.T) {
		_, err := finance.SplitInstallments(finance.CentsFromFloat(100.00), 0)
		assert.ErrorIs(t, err, finance.ErrInvalidInput)

		_, err = finance.SplitInstallments(finance.CentsFromFloat(100.00), -2)
		assert.ErrorIs(t, err, finance.ErrInvalidInput)
	})

	t.Run("rejects non-positive share", func(t *testing.T) {
		_, err := finance.SplitInstallments(0, 3)
		assert.ErrorIs(t, err, finance.ErrInvalidInput)

		_, err = finance.SplitInstallments(finance.CentsFromFloat(-5.00), 3)
		assert.ErrorIs(t, err, finance.ErrInvalidInput)
	})
}
