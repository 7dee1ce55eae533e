package finance

// SplitInstallments partitions a member's share into n installment amounts
// that sum back to the share exactly. The first n-1 installments get the
// share truncated to whole cents divided by n; the last one absorbs the
// remainder. Spreading the remainder any other way changes observable totals,
// so the last-installment rule is load-bearing.
func SplitInstallments(share Cents, n int) ([]Cents, error) {
	if n <= 0 {
		return nil, invalidInputf("installment count must be at least 1")
	}
	if share <= 0 {
		return nil, invalidInputf("share must be greater than zero")
	}
	if n == 1 {
		return []Cents{share}, nil
	}

	base := share / Cents(n) // truncates toward zero
	amounts := make([]Cents, n)
	for i := 0; i < n-1; i++ {
		amounts[i] = base
	}
	amounts[n-1] = share - base*Cents(n-1)
	return amounts, nil
}
