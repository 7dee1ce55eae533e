package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dquevedo/aportaciones-go/finance"
)

type Contribution struct {
	ID               primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title            string               `bson:"title" json:"title"`
	Description      string               `bson:"description,omitempty" json:"description,omitempty"`
	TotalCost        float64              `bson:"total_cost" json:"total_cost"`
	Distribution     string               `bson:"distribution" json:"distribution"` // equal, category, cages
	MemberIDs        []primitive.ObjectID `bson:"member_ids" json:"member_ids"`
	InstallmentCount int                  `bson:"installment_count" json:"installment_count"`
	DueDate          time.Time            `bson:"due_date" json:"due_date"`
	Status           string               `bson:"status" json:"status"` // pending, partially_paid, completed
	Summary          []SummaryBucket      `bson:"calculation_summary" json:"calculation_summary"`
	CreatedBy        string               `bson:"created_by" json:"created_by"`
	CreatedAt        time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time            `bson:"updated_at" json:"updated_at"`
}

// SummaryBucket is the persisted audit trail of the quota calculation: one
// row per policy bucket (category, per-cage, or everyone). Retroactive member
// assignment reads the quota back from here.
type SummaryBucket struct {
	Label      string  `bson:"label" json:"label"`
	Count      int     `bson:"count" json:"count"`
	UnitAmount float64 `bson:"unit_amount" json:"unit_amount"`
	Total      float64 `bson:"total" json:"total"`
}

func SummaryFromEngine(buckets []finance.SummaryBucket) []SummaryBucket {
	out := make([]SummaryBucket, len(buckets))
	for i, b := range buckets {
		out[i] = SummaryBucket{
			Label:      b.Label,
			Count:      b.Count,
			UnitAmount: b.UnitAmount.Float(),
			Total:      b.Total.Float(),
		}
	}
	return out
}

type MemberContribution struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ContributionID primitive.ObjectID `bson:"contribution_id" json:"contribution_id"`
	MemberID       primitive.ObjectID `bson:"member_id" json:"member_id"`

	// Denormalized for list views, like the source documents.
	MemberName          string    `bson:"member_name" json:"member_name"`
	MemberCategory      string    `bson:"member_category" json:"member_category"`
	MemberCages         int       `bson:"member_cages" json:"member_cages"`
	ContributionTitle   string    `bson:"contribution_title" json:"contribution_title"`
	ContributionDueDate time.Time `bson:"contribution_due_date" json:"contribution_due_date"`

	TotalAmount  float64       `bson:"total_amount" json:"total_amount"`
	TotalPaid    float64       `bson:"total_paid" json:"total_paid"`
	TotalPending float64       `bson:"total_pending" json:"total_pending"`
	Status       string        `bson:"status" json:"status"` // pending, partially_paid, complete
	Installments []Installment `bson:"installments" json:"installments"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

type Installment struct {
	Number     int        `bson:"number" json:"number"`
	Amount     float64    `bson:"amount" json:"amount"`
	AmountPaid float64    `bson:"amount_paid" json:"amount_paid"`
	Status     string     `bson:"status" json:"status"` // pending, partially_paid, paid
	PaidAt     *time.Time `bson:"paid_at,omitempty" json:"paid_at,omitempty"`
	Method     string     `bson:"method,omitempty" json:"method,omitempty"`
	RecordedBy string     `bson:"recorded_by,omitempty" json:"recorded_by,omitempty"`
	RecordedAt *time.Time `bson:"recorded_at,omitempty" json:"recorded_at,omitempty"`
}

func (i Installment) Engine() finance.Installment {
	return finance.Installment{
		Number:     i.Number,
		Amount:     finance.CentsFromFloat(i.Amount),
		Paid:       finance.CentsFromFloat(i.AmountPaid),
		Status:     i.Status,
		PaidAt:     i.PaidAt,
		Method:     i.Method,
		RecordedBy: i.RecordedBy,
		RecordedAt: i.RecordedAt,
	}
}

func InstallmentFromEngine(e finance.Installment) Installment {
	return Installment{
		Number:     e.Number,
		Amount:     e.Amount.Float(),
		AmountPaid: e.Paid.Float(),
		Status:     e.Status,
		PaidAt:     e.PaidAt,
		Method:     e.Method,
		RecordedBy: e.RecordedBy,
		RecordedAt: e.RecordedAt,
	}
}

func InstallmentsToEngine(in []Installment) []finance.Installment {
	out := make([]finance.Installment, len(in))
	for i, inst := range in {
		out[i] = inst.Engine()
	}
	return out
}

func InstallmentsFromEngine(in []finance.Installment) []Installment {
	out := make([]Installment, len(in))
	for i, inst := range in {
		out[i] = InstallmentFromEngine(inst)
	}
	return out
}

// NewSchedule builds the initial pending installment list for a share.
func NewSchedule(amounts []finance.Cents) []Installment {
	out := make([]Installment, len(amounts))
	for i, a := range amounts {
		out[i] = Installment{
			Number: i + 1,
			Amount: a.Float(),
			Status: finance.StatusPending,
		}
	}
	return out
}
