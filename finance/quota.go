package finance

import "math"

// DistributionPolicy selects how a contribution's total cost is split among
// the participating members.
type DistributionPolicy string

const (
	DistributionEqual      DistributionPolicy = "equal"
	DistributionByCategory DistributionPolicy = "category"
	DistributionByCages    DistributionPolicy = "cages"
)

// Category is a member's size tier, derived from cage count.
type Category string

const (
	CategoryLarge  Category = "large"
	CategoryMedium Category = "medium"
	CategorySmall  Category = "small"
)

// categoryWeights are the fixed distribution weights per tier.
var categoryWeights = map[Category]int{
	CategoryLarge:  11,
	CategoryMedium: 9,
	CategorySmall:  7,
}

// CategoryWeight returns the distribution weight for a tier.
func CategoryWeight(c Category) (int, bool) {
	w, ok := categoryWeights[c]
	return w, ok
}

// CategoryForCages maps a cage count to its tier: 1-10 small, 11-25 medium,
// 26 and above large. Zero or negative counts fall back to small.
func CategoryForCages(cages int) Category {
	switch {
	case cages >= 26:
		return CategoryLarge
	case cages >= 11:
		return CategoryMedium
	default:
		return CategorySmall
	}
}

// QuotaMember is the roster entry the calculator needs: who, which tier, and
// how many cages.
type QuotaMember struct {
	ID       string
	Category Category
	Cages    int
}

// Quota is one member's computed share of the total cost.
type Quota struct {
	MemberID string
	Amount   Cents
}

// SummaryBucket is one row of the audit summary persisted on the
// contribution: how many units paid which per-unit amount, and the bucket
// total. For the category policy the label is the category name; for the
// cages policy the count is the total cage count and the unit amount is the
// per-cage value.
type SummaryBucket struct {
	Label      string
	Count      int
	UnitAmount Cents
	Total      Cents
}

// QuotaResult holds the per-member shares (same order as the input roster)
// and the grouped summary.
type QuotaResult struct {
	Shares  []Quota
	Summary []SummaryBucket
}

// CalculateQuotas computes each member's share of total under the given
// policy. Intermediate division is kept at full precision; rounding to whole
// cents happens once per share, so the shares sum back to the total within a
// cent of drift per bucket.
func CalculateQuotas(total Cents, policy DistributionPolicy, members []QuotaMember) (*QuotaResult, error) {
	if total <= 0 {
		return nil, invalidInputf("total cost must be greater than zero")
	}
	if len(members) == 0 {
		return nil, invalidInputf("at least one member must be selected")
	}

	switch policy {
	case DistributionEqual:
		return equalQuotas(total, members), nil
	case DistributionByCategory:
		return categoryQuotas(total, members)
	case DistributionByCages:
		return cageQuotas(total, members)
	default:
		return nil, invalidInputf("unknown distribution policy %q", policy)
	}
}

func roundCents(v float64) Cents {
	return Cents(math.Round(v))
}

func equalQuotas(total Cents, members []QuotaMember) *QuotaResult {
	perMember := roundCents(float64(total) / float64(len(members)))

	shares := make([]Quota, len(members))
	for i, m := range members {
		shares[i] = Quota{MemberID: m.ID, Amount: perMember}
	}

	return &QuotaResult{
		Shares: shares,
		Summary: []SummaryBucket{{
			Label:      "all",
			Count:      len(members),
			UnitAmount: perMember,
			Total:      total,
		}},
	}
}

func categoryQuotas(total Cents, members []QuotaMember) (*QuotaResult, error) {
	counts := map[Category]int{}
	totalWeight := 0
	for _, m := range members {
		w, ok := categoryWeights[m.Category]
		if !ok {
			return nil, invalidInputf("member %s has no recognized category", m.ID)
		}
		counts[m.Category]++
		totalWeight += w
	}
	if totalWeight == 0 {
		return nil, invalidInputf("total category weight is zero")
	}

	unitValue := float64(total) / float64(totalWeight)

	shares := make([]Quota, len(members))
	for i, m := range members {
		w := categoryWeights[m.Category]
		shares[i] = Quota{MemberID: m.ID, Amount: roundCents(unitValue * float64(w))}
	}

	// Stable bucket order: large, medium, small.
	var summary []SummaryBucket
	for _, cat := range []Category{CategoryLarge, CategoryMedium, CategorySmall} {
		n := counts[cat]
		if n == 0 {
			continue
		}
		w := categoryWeights[cat]
		summary = append(summary, SummaryBucket{
			Label:      string(cat),
			Count:      n,
			UnitAmount: roundCents(unitValue * float64(w)),
			Total:      roundCents(unitValue * float64(w) * float64(n)),
		})
	}

	return &QuotaResult{Shares: shares, Summary: summary}, nil
}

func cageQuotas(total Cents, members []QuotaMember) (*QuotaResult, error) {
	totalCages := 0
	for _, m := range members {
		if m.Cages <= 0 {
			return nil, invalidInputf("member %s has no valid cage count", m.ID)
		}
		totalCages += m.Cages
	}
	if totalCages == 0 {
		return nil, invalidInputf("total cage count is zero")
	}

	perCage := float64(total) / float64(totalCages)

	shares := make([]Quota, len(members))
	for i, m := range members {
		shares[i] = Quota{MemberID: m.ID, Amount: roundCents(perCage * float64(m.Cages))}
	}

	return &QuotaResult{
		Shares: shares,
		Summary: []SummaryBucket{{
			Label:      "per_cage",
			Count:      totalCages,
			UnitAmount: roundCents(perCage),
			Total:      total,
		}},
	}, nil
}
