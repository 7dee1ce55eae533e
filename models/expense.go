package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Expense struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Type        string               `bson:"type" json:"type"` // operating, professional_fee
	Description string               `bson:"description" json:"description"`
	Supplier    string               `bson:"supplier,omitempty" json:"supplier,omitempty"`
	Amount      float64              `bson:"amount" json:"amount"`
	ExpenseDate time.Time            `bson:"expense_date" json:"expense_date"`
	DocumentURL string               `bson:"document_url,omitempty" json:"document_url,omitempty"`
	ApprovedBy  []primitive.ObjectID `bson:"approved_by" json:"approved_by"`
	Status      string               `bson:"status" json:"status"` // pending, partially_paid, paid
	// An expense settles like a single-member contribution: one implicit
	// installment list against the total amount.
	Installments []Installment `bson:"installments" json:"installments"`
	CreatedBy    string        `bson:"created_by" json:"created_by"`
	CreatedAt    time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `bson:"updated_at" json:"updated_at"`
}
