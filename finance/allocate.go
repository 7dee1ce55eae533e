package finance

import (
	"fmt"
	"time"
)

// Installment payment statuses, also stored verbatim in documents.
const (
	StatusPending       = "pending"
	StatusPartiallyPaid = "partially_paid"
	StatusPaid          = "paid"
)

// Member-contribution level statuses.
const (
	StatusComplete = "complete"
)

// Contribution level statuses.
const (
	StatusCompleted = "completed"
)

// Installment is one scheduled partial payment inside a member contribution.
// The engine works on this view; models convert to and from their document
// representation.
type Installment struct {
	Number     int
	Amount     Cents
	Paid       Cents
	Status     string
	PaidAt     *time.Time
	Method     string
	RecordedBy string
	RecordedAt *time.Time
}

// Remaining is the unpaid balance of the installment.
func (i Installment) Remaining() Cents {
	return i.Amount - i.Paid
}

// PaymentMeta describes one incoming payment event.
type PaymentMeta struct {
	Amount     Cents
	Method     string
	Date       time.Time
	RecordedBy string
	RecordedAt time.Time
}

func (p PaymentMeta) validate() error {
	if p.Amount <= 0 {
		return invalidInputf("payment amount must be greater than zero")
	}
	if p.Method == "" {
		return invalidInputf("payment method is required")
	}
	if p.Date.IsZero() {
		return invalidInputf("payment date is required")
	}
	return nil
}

// apply credits amount against the installment and stamps the payment
// metadata, overwriting whatever a prior payment recorded.
func (i *Installment) apply(amount Cents, p PaymentMeta) {
	i.Paid += amount
	if i.Paid >= i.Amount {
		i.Status = StatusPaid
	} else {
		i.Status = StatusPartiallyPaid
	}
	date := p.Date
	recorded := p.RecordedAt
	i.PaidAt = &date
	i.Method = p.Method
	i.RecordedBy = p.RecordedBy
	i.RecordedAt = &recorded
}

// AllocateExplicit applies the whole payment to the single installment at
// index (0-based). It fails with ErrExceedsPending when the payment is larger
// than that installment's remaining balance.
func AllocateExplicit(installments []Installment, index int, p PaymentMeta) ([]Installment, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(installments) {
		return nil, fmt.Errorf("%w: installment %d", ErrNotFound, index)
	}

	out := make([]Installment, len(installments))
	copy(out, installments)

	target := &out[index]
	if remaining := target.Remaining(); p.Amount > remaining {
		return nil, fmt.Errorf("%w: %s pending on installment %d", ErrExceedsPending, remaining, target.Number)
	}
	target.apply(p.Amount, p)
	return out, nil
}

// AllocateSequential walks the installments in ascending sequence order and
// applies the payment against each outstanding one until the amount is
// exhausted. A payment larger than the total outstanding balance is rejected
// up front rather than silently capped.
func AllocateSequential(installments []Installment, p PaymentMeta) ([]Installment, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	var totalRemaining Cents
	for _, inst := range installments {
		if r := inst.Remaining(); r > 0 {
			totalRemaining += r
		}
	}
	if p.Amount > totalRemaining {
		return nil, fmt.Errorf("%w: %s pending in total", ErrExceedsPending, totalRemaining)
	}

	out := make([]Installment, len(installments))
	copy(out, installments)

	// Documents keep installments in sequence order already; walk by the
	// stored sequence number anyway in case an older client shuffled them.
	order := make([]int, len(out))
	for i := range out {
		order[i] = i
	}
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && out[order[j]].Number < out[order[j-1]].Number; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}

	left := p.Amount
	for _, idx := range order {
		if left <= 0 {
			break
		}
		inst := &out[idx]
		remaining := inst.Remaining()
		if remaining <= 0 {
			continue
		}
		pay := remaining
		if left < pay {
			pay = left
		}
		inst.apply(pay, p)
		left -= pay
	}
	return out, nil
}

// TotalPaid sums the paid amounts across the installment list.
func TotalPaid(installments []Installment) Cents {
	var sum Cents
	for _, inst := range installments {
		sum += inst.Paid
	}
	return sum
}

// TotalScheduled sums the scheduled amounts across the installment list.
func TotalScheduled(installments []Installment) Cents {
	var sum Cents
	for _, inst := range installments {
		sum += inst.Amount
	}
	return sum
}

// MemberStatus derives a member contribution's payment status from its
// installments: complete when every installment is paid, partially paid when
// anything has been credited, pending otherwise.
func MemberStatus(installments []Installment) string {
	if len(installments) == 0 {
		return StatusPending
	}
	allPaid := true
	anyPaid := false
	for _, inst := range installments {
		if inst.Status != StatusPaid {
			allPaid = false
		}
		if inst.Paid > 0 {
			anyPaid = true
		}
	}
	switch {
	case allPaid:
		return StatusComplete
	case anyPaid:
		return StatusPartiallyPaid
	default:
		return StatusPending
	}
}

// ContributionStatus folds the statuses of every member contribution under a
// contribution into the parent's overall status. "completed" is terminal and
// never downgraded. A pending contribution moves to partially paid only when
// some member is partially paid; a member jumping straight to complete leaves
// the parent where it was until everyone is complete.
func ContributionStatus(current string, memberStatuses []string) string {
	if current == StatusCompleted {
		return current
	}
	if len(memberStatuses) == 0 {
		return current
	}
	allComplete := true
	anyPartial := false
	for _, s := range memberStatuses {
		if s != StatusComplete {
			allComplete = false
		}
		if s == StatusPartiallyPaid {
			anyPartial = true
		}
	}
	if allComplete {
		return StatusCompleted
	}
	if anyPartial && current == StatusPending {
		return StatusPartiallyPaid
	}
	return current
}

// SettlementStatus is the expense-level rollup: an expense carries a single
// implicit installment list against one total amount.
func SettlementStatus(totalPaid, total Cents) string {
	switch {
	case totalPaid >= total:
		return StatusPaid
	case totalPaid > 0:
		return StatusPartiallyPaid
	default:
		return StatusPending
	}
}
