package finance_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dquevedo/aportaciones-go/finance"
)

func pendingSchedule(amounts ...float64) []finance.Installment {
	out := make([]finance.Installment, len(amounts))
	for i, a := range amounts {
		out[i] = finance.Installment{
			Number: i + 1,
			Amount: finance.CentsFromFloat(a),
			Status: finance.StatusPending,
		}
	}
	return out
}

func meta(amount float64) finance.PaymentMeta {
	return finance.PaymentMeta{
		Amount:     finance.CentsFromFloat(amount),
		Method:     "cash",
		Date:       time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		RecordedBy: "treasurer",
		RecordedAt: time.Date(2025, 3, 10, 12, 0, 5, 0, time.UTC),
	}
}

func TestAllocateExplicit(t *testing.T) {
	t.Run("partial payment leaves the installment partially paid", func(t *testing.T) {
		schedule := pendingSchedule(50.00, 50.00)

		updated, err := finance.AllocateExplicit(schedule, 0, meta(20.00))
		require.NoError(t, err)

		assert.Equal(t, finance.CentsFromFloat(20.00), updated[0].Paid)
		assert.Equal(t, finance.StatusPartiallyPaid, updated[0].Status)
		assert.Equal(t, "cash", updated[0].Method)
		require.NotNil(t, updated[0].PaidAt)
		assert.Equal(t, "treasurer", updated[0].RecordedBy)

		// Untouched sibling and original slice stay as they were.
		assert.Equal(t, finance.StatusPending, updated[1].Status)
		assert.Equal(t, finance.Cents(0), schedule[0].Paid)
	})

	t.Run("full payment marks the installment paid", func(t *testing.T) {
		schedule := pendingSchedule(30.00)
		updated, err := finance.AllocateExplicit(schedule, 0, meta(30.00))
		require.NoError(t, err)
		assert.Equal(t, finance.StatusPaid, updated[0].Status)
		assert.Equal(t, finance.Cents(0), updated[0].Remaining())
	})

	t.Run("rejects a payment a cent over the remaining balance", func(t *testing.T) {
		schedule := pendingSchedule(30.00)
		_, err := finance.AllocateExplicit(schedule, 0, meta(30.01))
		assert.ErrorIs(t, err, finance.ErrExceedsPending)
	})

	t.Run("re-payment overwrites prior metadata", func(t *testing.T) {
		schedule := pendingSchedule(40.00)
		updated, err := finance.AllocateExplicit(schedule, 0, meta(10.00))
		require.NoError(t, err)

		second := meta(30.00)
		second.Method = "transfer"
		second.RecordedBy = "admin"
		updated, err = finance.AllocateExplicit(updated, 0, second)
		require.NoError(t, err)

		assert.Equal(t, finance.StatusPaid, updated[0].Status)
		assert.Equal(t, "transfer", updated[0].Method)
		assert.Equal(t, "admin", updated[0].RecordedBy)
	})

	t.Run("unknown installment index is not found", func(t *testing.T) {
		_, err := finance.AllocateExplicit(pendingSchedule(30.00), 3, meta(10.00))
		assert.ErrorIs(t, err, finance.ErrNotFound)
	})

	t.Run("rejects malformed payments", func(t *testing.T) {
		schedule := pendingSchedule(30.00)

		p := meta(0)
		_, err := finance.AllocateExplicit(schedule, 0, p)
		assert.ErrorIs(t, err, finance.ErrInvalidInput)

		p = meta(10.00)
		p.Method = ""
		_, err = finance.AllocateExplicit(schedule, 0, p)
		assert.ErrorIs(t, err, finance.ErrInvalidInput)

		p = meta(10.00)
		p.Date = time.Time{}
		_, err = finance.AllocateExplicit(schedule, 0, p)
		assert.ErrorIs(t, err, finance.ErrInvalidInput)
	})
}

func TestAllocateSequential(t *testing.T) {
	t.Run("walks installments oldest first", func(t *testing.T) {
		schedule := pendingSchedule(50.00, 50.00)

		updated, err := finance.AllocateSequential(schedule, meta(70.00))
		require.NoError(t, err)

		assert.Equal(t, finance.StatusPaid, updated[0].Status)
		assert.Equal(t, finance.CentsFromFloat(50.00), updated[0].Paid)
		assert.Equal(t, finance.StatusPartiallyPaid, updated[1].Status)
		assert.Equal(t, finance.CentsFromFloat(20.00), updated[1].Paid)
		assert.Equal(t, finance.StatusPartiallyPaid, finance.MemberStatus(updated))
	})

	t.Run("skips installments that are already settled", func(t *testing.T) {
		schedule := pendingSchedule(25.00, 25.00, 25.00)
		schedule[0].Paid = schedule[0].Amount
		schedule[0].Status = finance.StatusPaid

		updated, err := finance.AllocateSequential(schedule, meta(30.00))
		require.NoError(t, err)

		assert.Equal(t, finance.CentsFromFloat(25.00), updated[1].Paid)
		assert.Equal(t, finance.StatusPaid, updated[1].Status)
		assert.Equal(t, finance.CentsFromFloat(5.00), updated[2].Paid)
		assert.Equal(t, finance.StatusPartiallyPaid, updated[2].Status)
	})

	t.Run("respects stored sequence numbers over slice order", func(t *testing.T) {
		schedule := []finance.Installment{
			{Number: 2, Amount: finance.CentsFromFloat(40.00), Status: finance.StatusPending},
			{Number: 1, Amount: finance.CentsFromFloat(40.00), Status: finance.StatusPending},
		}
		updated, err := finance.AllocateSequential(schedule, meta(40.00))
		require.NoError(t, err)

		// Installment number 1 (second slice position) settles first.
		assert.Equal(t, finance.StatusPaid, updated[1].Status)
		assert.Equal(t, finance.StatusPending, updated[0].Status)
	})

	t.Run("exact total payment completes the schedule", func(t *testing.T) {
		schedule := pendingSchedule(33.33, 33.33, 33.34)
		updated, err := finance.AllocateSequential(schedule, meta(100.00))
		require.NoError(t, err)

		assert.Equal(t, finance.StatusComplete, finance.MemberStatus(updated))
		assert.Equal(t, finance.CentsFromFloat(100.00), finance.TotalPaid(updated))
	})

	t.Run("rejects a payment above the total outstanding balance", func(t *testing.T) {
		schedule := pendingSchedule(50.00, 50.00)
		schedule[0].Paid = finance.CentsFromFloat(10.00)
		schedule[0].Status = finance.StatusPartiallyPaid

		_, err := finance.AllocateSequential(schedule, meta(90.01))
		assert.ErrorIs(t, err, finance.ErrExceedsPending)
	})
}

func TestMemberStatus(t *testing.T) {
	t.Run("empty schedule is pending", func(t *testing.T) {
		assert.Equal(t, finance.StatusPending, finance.MemberStatus(nil))
	})

	t.Run("untouched schedule is pending", func(t *testing.T) {
		assert.Equal(t, finance.StatusPending, finance.MemberStatus(pendingSchedule(10.00, 10.00)))
	})

	t.Run("any credit makes it partially paid", func(t *testing.T) {
		schedule := pendingSchedule(10.00, 10.00)
		schedule[1].Paid = finance.CentsFromFloat(1.00)
		schedule[1].Status = finance.StatusPartiallyPaid
		assert.Equal(t, finance.StatusPartiallyPaid, finance.MemberStatus(schedule))
	})

	t.Run("all paid is complete", func(t *testing.T) {
		schedule := pendingSchedule(10.00, 10.00)
		for i := range schedule {
			schedule[i].Paid = schedule[i].Amount
			schedule[i].Status = finance.StatusPaid
		}
		assert.Equal(t, finance.StatusComplete, finance.MemberStatus(schedule))
	})
}

func TestContributionStatus(t *testing.T) {
	t.Run("all members complete completes the contribution", func(t *testing.T) {
		got := finance.ContributionStatus(finance.StatusPending,
			[]string{finance.StatusComplete, finance.StatusComplete})
		assert.Equal(t, finance.StatusCompleted, got)
	})

	t.Run("one complete one untouched leaves the parent where it was", func(t *testing.T) {
		got := finance.ContributionStatus(finance.StatusPending,
			[]string{finance.StatusComplete, finance.StatusPending})
		assert.Equal(t, finance.StatusPending, got)
	})

	t.Run("a partially paid member moves pending to partially paid", func(t *testing.T) {
		got := finance.ContributionStatus(finance.StatusPending,
			[]string{finance.StatusPartiallyPaid, finance.StatusPending})
		assert.Equal(t, finance.StatusPartiallyPaid, got)
	})

	t.Run("complete plus partially paid also moves the parent", func(t *testing.T) {
		got := finance.ContributionStatus(finance.StatusPending,
			[]string{finance.StatusComplete, finance.StatusPartiallyPaid})
		assert.Equal(t, finance.StatusPartiallyPaid, got)
	})

	t.Run("all pending stays pending", func(t *testing.T) {
		got := finance.ContributionStatus(finance.StatusPending,
			[]string{finance.StatusPending, finance.StatusPending})
		assert.Equal(t, finance.StatusPending, got)
	})

	t.Run("completed is never downgraded", func(t *testing.T) {
		got := finance.ContributionStatus(finance.StatusCompleted,
			[]string{finance.StatusPartiallyPaid, finance.StatusPending})
		assert.Equal(t, finance.StatusCompleted, got)
	})

	t.Run("partially paid does not regress on later pending reads", func(t *testing.T) {
		got := finance.ContributionStatus(finance.StatusPartiallyPaid,
			[]string{finance.StatusPending, finance.StatusPending})
		assert.Equal(t, finance.StatusPartiallyPaid, got)
	})
}

func TestSettlementStatus(t *testing.T) {
	total := finance.CentsFromFloat(120.00)
	assert.Equal(t, finance.StatusPending, finance.SettlementStatus(0, total))
	assert.Equal(t, finance.StatusPartiallyPaid, finance.SettlementStatus(finance.CentsFromFloat(60.00), total))
	assert.Equal(t, finance.StatusPaid, finance.SettlementStatus(total, total))
}

func TestCents(t *testing.T) {
	assert.Equal(t, finance.Cents(3334), finance.CentsFromFloat(33.34))
	assert.Equal(t, finance.Cents(30), finance.CentsFromFloat(0.1+0.2)) // float noise rounds away
	assert.Equal(t, 33.34, finance.Cents(3334).Float())
	assert.Equal(t, "Q611.11", finance.CentsFromFloat(611.11).String())
	assert.Equal(t, "-Q0.05", finance.Cents(-5).String())
}
