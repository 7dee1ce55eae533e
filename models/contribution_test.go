package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dquevedo/aportaciones-go/finance"
	"github.com/dquevedo/aportaciones-go/models"
)

func TestNewSchedule(t *testing.T) {
	amounts, err := finance.SplitInstallments(finance.CentsFromFloat(100), 3)
	require.NoError(t, err)

	schedule := models.NewSchedule(amounts)
	require.Len(t, schedule, 3)

	assert.Equal(t, 1, schedule[0].Number)
	assert.Equal(t, 3, schedule[2].Number)
	assert.Equal(t, 33.33, schedule[0].Amount)
	assert.Equal(t, 33.34, schedule[2].Amount)
	for _, inst := range schedule {
		assert.Equal(t, finance.StatusPending, inst.Status)
		assert.Zero(t, inst.AmountPaid)
	}
}

func TestInstallmentRoundTrip(t *testing.T) {
	doc := models.Installment{
		Number:     2,
		Amount:     33.34,
		AmountPaid: 10.00,
		Status:     finance.StatusPartiallyPaid,
		Method:     "cash",
		RecordedBy: "Ana",
	}

	engine := doc.Engine()
	assert.Equal(t, finance.Cents(3334), engine.Amount)
	assert.Equal(t, finance.Cents(1000), engine.Paid)
	assert.Equal(t, finance.Cents(2334), engine.Remaining())

	back := models.InstallmentFromEngine(engine)
	assert.Equal(t, doc, back)
}

func TestSummaryFromEngine(t *testing.T) {
	buckets := []finance.SummaryBucket{
		{Label: "large", Count: 1, UnitAmount: finance.Cents(61111), Total: finance.Cents(61111)},
		{Label: "small", Count: 1, UnitAmount: finance.Cents(38889), Total: finance.Cents(38889)},
	}

	out := models.SummaryFromEngine(buckets)
	require.Len(t, out, 2)
	assert.Equal(t, "large", out[0].Label)
	assert.Equal(t, 611.11, out[0].UnitAmount)
	assert.Equal(t, 388.89, out[1].Total)
}
