package finance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dquevedo/aportaciones-go/finance"
)

func TestCalculateQuotas_Equal(t *testing.T) {
	t.Run("splits evenly across members", func(t *testing.T) {
		members := []finance.QuotaMember{
			{ID: "a", Category: finance.CategorySmall, Cages: 4},
			{ID: "b", Category: finance.CategoryMedium, Cages: 12},
			{ID: "c", Category: finance.CategoryLarge, Cages: 30},
			{ID: "d", Category: finance.CategorySmall, Cages: 2},
		}
		res, err := finance.CalculateQuotas(finance.CentsFromFloat(100.00), finance.DistributionEqual, members)
		require.NoError(t, err)

		require.Len(t, res.Shares, 4)
		for _, s := range res.Shares {
			assert.Equal(t, finance.CentsFromFloat(25.00), s.Amount)
		}

		require.Len(t, res.Summary, 1)
		assert.Equal(t, "all", res.Summary[0].Label)
		assert.Equal(t, 4, res.Summary[0].Count)
		assert.Equal(t, finance.CentsFromFloat(100.00), res.Summary[0].Total)
	})

	t.Run("eleven members over 1000 round to 90.91 each", func(t *testing.T) {
		members := make([]finance.QuotaMember, 11)
		for i := range members {
			members[i] = finance.QuotaMember{ID: string(rune('a' + i)), Category: finance.CategorySmall, Cages: 1}
		}
		res, err := finance.CalculateQuotas(finance.CentsFromFloat(1000.00), finance.DistributionEqual, members)
		require.NoError(t, err)

		var sum finance.Cents
		for _, s := range res.Shares {
			assert.Equal(t, finance.CentsFromFloat(90.91), s.Amount)
			sum += s.Amount
		}
		// Per-member rounding may drift by up to a cent per member.
		assert.InDelta(t, 1000.00, sum.Float(), 0.11)
	})

	t.Run("rejects empty roster", func(t *testing.T) {
		_, err := finance.CalculateQuotas(finance.CentsFromFloat(100.00), finance.DistributionEqual, nil)
		assert.ErrorIs(t, err, finance.ErrInvalidInput)
	})
}

func TestCalculateQuotas_ByCategory(t *testing.T) {
	t.Run("one large one small splits 11 to 7", func(t *testing.T) {
		members := []finance.QuotaMember{
			{ID: "big", Category: finance.CategoryLarge, Cages: 40},
			{ID: "small", Category: finance.CategorySmall, Cages: 3},
		}
		res, err := finance.CalculateQuotas(finance.CentsFromFloat(1000.00), finance.DistributionByCategory, members)
		require.NoError(t, err)

		assert.Equal(t, finance.CentsFromFloat(611.11), res.Shares[0].Amount)
		assert.Equal(t, finance.CentsFromFloat(388.89), res.Shares[1].Amount)
		assert.Equal(t, finance.CentsFromFloat(1000.00), res.Shares[0].Amount+res.Shares[1].Amount)

		require.Len(t, res.Summary, 2)
		assert.Equal(t, "large", res.Summary[0].Label)
		assert.Equal(t, finance.CentsFromFloat(611.11), res.Summary[0].UnitAmount)
		assert.Equal(t, "small", res.Summary[1].Label)
		assert.Equal(t, finance.CentsFromFloat(388.89), res.Summary[1].UnitAmount)
	})

	t.Run("summary buckets aggregate per category", func(t *testing.T) {
		members := []finance.QuotaMember{
			{ID: "m1", Category: finance.CategoryMedium},
			{ID: "m2", Category: finance.CategoryMedium},
			{ID: "s1", Category: finance.CategorySmall},
		}
		// weights: 9 + 9 + 7 = 25
		res, err := finance.CalculateQuotas(finance.CentsFromFloat(250.00), finance.DistributionByCategory, members)
		require.NoError(t, err)

		assert.Equal(t, finance.CentsFromFloat(90.00), res.Shares[0].Amount)
		assert.Equal(t, finance.CentsFromFloat(90.00), res.Shares[1].Amount)
		assert.Equal(t, finance.CentsFromFloat(70.00), res.Shares[2].Amount)

		require.Len(t, res.Summary, 2)
		assert.Equal(t, "medium", res.Summary[0].Label)
		assert.Equal(t, 2, res.Summary[0].Count)
		assert.Equal(t, finance.CentsFromFloat(180.00), res.Summary[0].Total)
		assert.Equal(t, "small", res.Summary[1].Label)
		assert.Equal(t, finance.CentsFromFloat(70.00), res.Summary[1].Total)
	})

	t.Run("rejects unrecognized category", func(t *testing.T) {
		members := []finance.QuotaMember{{ID: "x", Category: "gigantic"}}
		_, err := finance.CalculateQuotas(finance.CentsFromFloat(100.00), finance.DistributionByCategory, members)
		assert.ErrorIs(t, err, finance.ErrInvalidInput)
	})
}

func TestCalculateQuotas_ByCages(t *testing.T) {
	t.Run("splits proportionally to cage count", func(t *testing.T) {
		members := []finance.QuotaMember{
			{ID: "a", Category: finance.CategoryLarge, Cages: 30},
			{ID: "b", Category: finance.CategorySmall, Cages: 10},
		}
		res, err := finance.CalculateQuotas(finance.CentsFromFloat(400.00), finance.DistributionByCages, members)
		require.NoError(t, err)

		assert.Equal(t, finance.CentsFromFloat(300.00), res.Shares[0].Amount)
		assert.Equal(t, finance.CentsFromFloat(100.00), res.Shares[1].Amount)

		require.Len(t, res.Summary, 1)
		assert.Equal(t, "per_cage", res.Summary[0].Label)
		assert.Equal(t, 40, res.Summary[0].Count)
		assert.Equal(t, finance.CentsFromFloat(10.00), res.Summary[0].UnitAmount)
	})

	t.Run("rejects member without cages", func(t *testing.T) {
		members := []finance.QuotaMember{
			{ID: "a", Cages: 5},
			{ID: "b", Cages: 0},
		}
		_, err := finance.CalculateQuotas(finance.CentsFromFloat(100.00), finance.DistributionByCages, members)
		assert.ErrorIs(t, err, finance.ErrInvalidInput)
	})
}

func TestCalculateQuotas_General(t *testing.T) {
	t.Run("rejects non-positive total", func(t *testing.T) {
		_, err := finance.CalculateQuotas(0, finance.DistributionEqual, []finance.QuotaMember{{ID: "a"}})
		assert.ErrorIs(t, err, finance.ErrInvalidInput)
	})

	t.Run("rejects unknown policy", func(t *testing.T) {
		_, err := finance.CalculateQuotas(finance.CentsFromFloat(10.00), "lottery", []finance.QuotaMember{{ID: "a"}})
		assert.ErrorIs(t, err, finance.ErrInvalidInput)
	})

	t.Run("is deterministic", func(t *testing.T) {
		members := []finance.QuotaMember{
			{ID: "a", Category: finance.CategoryLarge, Cages: 27},
			{ID: "b", Category: finance.CategoryMedium, Cages: 14},
		}
		first, err := finance.CalculateQuotas(finance.CentsFromFloat(333.33), finance.DistributionByCategory, members)
		require.NoError(t, err)
		second, err := finance.CalculateQuotas(finance.CentsFromFloat(333.33), finance.DistributionByCategory, members)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func TestCategoryForCages(t *testing.T) {
	cases := []struct {
		cages int
		want  finance.Category
	}{
		{0, finance.CategorySmall},
		{1, finance.CategorySmall},
		{10, finance.CategorySmall},
		{11, finance.CategoryMedium},
		{25, finance.CategoryMedium},
		{26, finance.CategoryLarge},
		{100, finance.CategoryLarge},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, finance.CategoryForCages(tc.cages), "cages=%d", tc.cages)
	}
}
