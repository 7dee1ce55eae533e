package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payment is one registered payment event, kept as history alongside the
// installment updates it produced.
type Payment struct {
	ID                   primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	MemberID             primitive.ObjectID  `bson:"member_id" json:"member_id"`
	MemberName           string              `bson:"member_name" json:"member_name"`
	MemberContributionID *primitive.ObjectID `bson:"member_contribution_id,omitempty" json:"member_contribution_id,omitempty"`
	InstallmentNumber    int                 `bson:"installment_number,omitempty" json:"installment_number,omitempty"`
	Amount               float64             `bson:"amount" json:"amount"`
	Method               string              `bson:"method" json:"method"`
	Date                 time.Time           `bson:"date" json:"date"`
	Concept              string              `bson:"concept,omitempty" json:"concept,omitempty"`
	ReceiptURL           string              `bson:"receipt_url,omitempty" json:"receipt_url,omitempty"`
	RecordedBy           string              `bson:"recorded_by" json:"recorded_by"`
	RecordedAt           time.Time           `bson:"recorded_at" json:"recorded_at"`
}
