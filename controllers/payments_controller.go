package controllers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	config "github.com/dquevedo/aportaciones-go/config"
	"github.com/dquevedo/aportaciones-go/finance"
	models "github.com/dquevedo/aportaciones-go/models"
	utils "github.com/dquevedo/aportaciones-go/utils"
)

type paymentInput struct {
	MemberContributionID string
	InstallmentNumber    *int
	MemberID             string
	Amount               float64
	Method               string
	Date                 string
}

// bindPaymentInput reads the JSON body API clients send, or the multipart
// form the web client uses when a receipt image rides along with the payment.
// A receipt, when present, is uploaded and its URL returned.
func bindPaymentInput(c *gin.Context) (paymentInput, string, error) {
	var input paymentInput

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		input.MemberContributionID = c.PostForm("member_contribution_id")
		input.MemberID = c.PostForm("member_id")
		input.Method = c.PostForm("method")
		input.Date = c.PostForm("date")

		amount, err := strconv.ParseFloat(c.PostForm("amount"), 64)
		if err != nil {
			return input, "", fmt.Errorf("amount must be a number")
		}
		input.Amount = amount

		if raw := c.PostForm("installment_number"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return input, "", fmt.Errorf("installment_number must be an integer")
			}
			input.InstallmentNumber = &n
		}

		if input.Method == "" || input.Date == "" {
			return input, "", fmt.Errorf("method and date are required")
		}

		receiptURL := ""
		if file, fileHeader, err := c.Request.FormFile("receipt"); err == nil {
			defer file.Close()
			receiptURL, err = utils.UploadPaymentReceipt(file, fileHeader)
			if err != nil {
				return input, "", fmt.Errorf("failed to upload receipt")
			}
		}
		return input, receiptURL, nil
	}

	var body struct {
		MemberContributionID string  `json:"member_contribution_id"`
		InstallmentNumber    *int    `json:"installment_number"`
		MemberID             string  `json:"member_id"`
		Amount               float64 `json:"amount" binding:"required"`
		Method               string  `json:"method" binding:"required"`
		Date                 string  `json:"date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		return input, "", err
	}
	input = paymentInput{
		MemberContributionID: body.MemberContributionID,
		InstallmentNumber:    body.InstallmentNumber,
		MemberID:             body.MemberID,
		Amount:               body.Amount,
		Method:               body.Method,
		Date:                 body.Date,
	}
	return input, "", nil
}

// ---------------- REGISTER ----------------
// RegisterPayment applies one payment event. Three shapes, per the request
// body:
//   - member_contribution_id + installment_number: the whole amount goes to
//     that one installment (explicit mode).
//   - member_contribution_id alone: the amount walks that schedule's
//     installments oldest first (sequential mode).
//   - member_id alone: the amount walks every open member contribution of
//     the member, oldest first (general payment).
//
// The installment updates, the member-contribution rollup, the parent
// contribution's status and the payment history record commit as one Mongo
// transaction so the documents are never observable half-updated.
func RegisterPayment(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := c.GetString("user_name")
		if actor == "" {
			actor = "unknown"
		}

		input, receiptURL, err := bindPaymentInput(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		paymentDate, err := parseDateTime(input.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date format, use RFC3339 or YYYY-MM-DD"})
			return
		}

		meta := finance.PaymentMeta{
			Amount:     finance.CentsFromFloat(input.Amount),
			Method:     input.Method,
			Date:       paymentDate,
			RecordedBy: actor,
			RecordedAt: time.Now(),
		}
		if meta.Amount <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be greater than zero"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		session, err := cfg.MongoClient.StartSession()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start transaction"})
			return
		}
		defer session.EndSession(ctx)

		var completed []models.Contribution
		var payment models.Payment

		_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
			completed = completed[:0]

			switch {
			case input.MemberContributionID != "":
				mcID, err := primitive.ObjectIDFromHex(input.MemberContributionID)
				if err != nil {
					return nil, fmt.Errorf("%w: invalid member contribution id", finance.ErrInvalidInput)
				}
				return nil, applyToMemberContribution(sc, cfg, mcID, input.InstallmentNumber, meta, receiptURL, &payment, &completed)
			case input.MemberID != "":
				memberID, err := primitive.ObjectIDFromHex(input.MemberID)
				if err != nil {
					return nil, fmt.Errorf("%w: invalid member id", finance.ErrInvalidInput)
				}
				return nil, applyGeneralPayment(sc, cfg, memberID, meta, receiptURL, &payment, &completed)
			default:
				return nil, fmt.Errorf("%w: member_contribution_id or member_id is required", finance.ErrInvalidInput)
			}
		})
		if err != nil {
			status := statusForEngineError(err)
			if status == http.StatusInternalServerError {
				log.Printf("payment transaction failed: %v", err)
				c.JSON(status, gin.H{"error": "could not register payment"})
				return
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		// Best-effort completion notices, outside the transaction.
		for _, contribution := range completed {
			notifyContributionCompleted(contribution)
		}

		c.JSON(http.StatusCreated, gin.H{
			"message": "payment registered",
			"payment": payment,
		})
	}
}

// applyToMemberContribution handles explicit and single-schedule sequential
// payments.
func applyToMemberContribution(sc mongo.SessionContext, cfg *config.Config, mcID primitive.ObjectID, installmentNumber *int, meta finance.PaymentMeta, receiptURL string, payment *models.Payment, completed *[]models.Contribution) error {
	var mc models.MemberContribution
	err := cfg.Collection("member_contributions").FindOne(sc, bson.M{"_id": mcID}).Decode(&mc)
	if err != nil {
		return fmt.Errorf("%w: member contribution %s", finance.ErrNotFound, mcID.Hex())
	}

	schedule := models.InstallmentsToEngine(mc.Installments)

	var updated []finance.Installment
	if installmentNumber != nil {
		index := -1
		for i, inst := range schedule {
			if inst.Number == *installmentNumber {
				index = i
				break
			}
		}
		if index == -1 {
			return fmt.Errorf("%w: installment %d", finance.ErrNotFound, *installmentNumber)
		}
		updated, err = finance.AllocateExplicit(schedule, index, meta)
	} else {
		updated, err = finance.AllocateSequential(schedule, meta)
	}
	if err != nil {
		return err
	}

	if err := persistMemberContribution(sc, cfg, mc, updated, completed); err != nil {
		return err
	}

	number := 0
	if installmentNumber != nil {
		number = *installmentNumber
	}
	*payment = models.Payment{
		ID:                   primitive.NewObjectID(),
		MemberID:             mc.MemberID,
		MemberName:           mc.MemberName,
		MemberContributionID: &mcID,
		InstallmentNumber:    number,
		Amount:               meta.Amount.Float(),
		Method:               meta.Method,
		Date:                 meta.Date,
		Concept:              fmt.Sprintf("Payment on %q", mc.ContributionTitle),
		ReceiptURL:           receiptURL,
		RecordedBy:           meta.RecordedBy,
		RecordedAt:           meta.RecordedAt,
	}
	_, err = cfg.Collection("payments").InsertOne(sc, *payment)
	return err
}

// applyGeneralPayment distributes one amount across every open member
// contribution of a member, oldest assignment first.
func applyGeneralPayment(sc mongo.SessionContext, cfg *config.Config, memberID primitive.ObjectID, meta finance.PaymentMeta, receiptURL string, payment *models.Payment, completed *[]models.Contribution) error {
	var member models.Member
	if err := cfg.Collection("members").FindOne(sc, bson.M{"_id": memberID}).Decode(&member); err != nil {
		return fmt.Errorf("%w: member %s", finance.ErrNotFound, memberID.Hex())
	}

	opts := options.Find().SetSort(bson.M{"created_at": 1})
	cursor, err := cfg.Collection("member_contributions").Find(sc, bson.M{
		"member_id": memberID,
		"status":    bson.M{"$in": []string{finance.StatusPending, finance.StatusPartiallyPaid}},
	}, opts)
	if err != nil {
		return err
	}
	var open []models.MemberContribution
	if err := cursor.All(sc, &open); err != nil {
		return err
	}
	if len(open) == 0 {
		return fmt.Errorf("%w: member has no pending contributions", finance.ErrInvalidInput)
	}

	// Reject up front rather than silently dropping the excess.
	var totalRemaining finance.Cents
	for _, mc := range open {
		for _, inst := range models.InstallmentsToEngine(mc.Installments) {
			if r := inst.Remaining(); r > 0 {
				totalRemaining += r
			}
		}
	}
	if meta.Amount > totalRemaining {
		return fmt.Errorf("%w: %s pending in total", finance.ErrExceedsPending, totalRemaining)
	}

	left := meta.Amount
	for _, mc := range open {
		if left <= 0 {
			break
		}
		schedule := models.InstallmentsToEngine(mc.Installments)
		var remaining finance.Cents
		for _, inst := range schedule {
			if r := inst.Remaining(); r > 0 {
				remaining += r
			}
		}
		if remaining <= 0 {
			continue
		}

		portion := remaining
		if left < portion {
			portion = left
		}
		portionMeta := meta
		portionMeta.Amount = portion

		updated, err := finance.AllocateSequential(schedule, portionMeta)
		if err != nil {
			return err
		}
		if err := persistMemberContribution(sc, cfg, mc, updated, completed); err != nil {
			return err
		}
		left -= portion
	}

	*payment = models.Payment{
		ID:         primitive.NewObjectID(),
		MemberID:   member.ID,
		MemberName: member.FullName(),
		Amount:     meta.Amount.Float(),
		Method:     meta.Method,
		Date:       meta.Date,
		Concept:    fmt.Sprintf("General payment from %s", member.FullName()),
		ReceiptURL: receiptURL,
		RecordedBy: meta.RecordedBy,
		RecordedAt: meta.RecordedAt,
	}
	_, err = cfg.Collection("payments").InsertOne(sc, *payment)
	return err
}

// persistMemberContribution writes the updated schedule and rollup, then
// recomputes the parent contribution's status from all of its member
// contributions. Appends to completed when the parent just finished.
func persistMemberContribution(sc mongo.SessionContext, cfg *config.Config, mc models.MemberContribution, updated []finance.Installment, completed *[]models.Contribution) error {
	newStatus := finance.MemberStatus(updated)
	totalPaid := finance.TotalPaid(updated)
	totalPending := finance.CentsFromFloat(mc.TotalAmount) - totalPaid
	if totalPending < 0 {
		totalPending = 0
	}

	_, err := cfg.Collection("member_contributions").UpdateOne(sc,
		bson.M{"_id": mc.ID},
		bson.M{"$set": bson.M{
			"installments":  models.InstallmentsFromEngine(updated),
			"total_paid":    totalPaid.Float(),
			"total_pending": totalPending.Float(),
			"status":        newStatus,
			"updated_at":    time.Now(),
		}},
	)
	if err != nil {
		return err
	}

	// Fold every sibling's status into the parent contribution.
	var contribution models.Contribution
	if err := cfg.Collection("contributions").FindOne(sc, bson.M{"_id": mc.ContributionID}).Decode(&contribution); err != nil {
		return fmt.Errorf("%w: contribution %s", finance.ErrNotFound, mc.ContributionID.Hex())
	}

	cursor, err := cfg.Collection("member_contributions").Find(sc, bson.M{"contribution_id": mc.ContributionID})
	if err != nil {
		return err
	}
	var siblings []models.MemberContribution
	if err := cursor.All(sc, &siblings); err != nil {
		return err
	}

	statuses := make([]string, 0, len(siblings))
	for _, sibling := range siblings {
		if sibling.ID == mc.ID {
			statuses = append(statuses, newStatus)
			continue
		}
		statuses = append(statuses, sibling.Status)
	}

	overall := finance.ContributionStatus(contribution.Status, statuses)
	if overall != contribution.Status {
		_, err := cfg.Collection("contributions").UpdateOne(sc,
			bson.M{"_id": contribution.ID},
			bson.M{"$set": bson.M{"status": overall, "updated_at": time.Now()}},
		)
		if err != nil {
			return err
		}
		if overall == finance.StatusCompleted {
			contribution.Status = overall
			*completed = append(*completed, contribution)
		}
	}
	return nil
}

func notifyContributionCompleted(contribution models.Contribution) {
	to := os.Getenv("NOTIFY_EMAIL")
	if to == "" {
		return
	}
	subject := fmt.Sprintf("Contribution %q fully collected", contribution.Title)
	body := fmt.Sprintf("<p>Every member quota for <b>%s</b> has been settled. Total collected: Q%.2f.</p>",
		contribution.Title, contribution.TotalCost)
	if err := utils.SendEmail(to, subject, body); err != nil {
		log.Printf("completion email failed: %v", err)
	}
}

// ---------------- LIST ----------------
func ListPayments(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// --- Build filter ---
		filter := bson.M{}
		if memberID := c.Query("member_id"); memberID != "" {
			if oid, err := primitive.ObjectIDFromHex(memberID); err == nil {
				filter["member_id"] = oid
			}
		}
		if method := c.Query("method"); method != "" {
			filter["method"] = method
		}

		opts := options.Find().SetSort(bson.M{"date": -1})
		cursor, err := cfg.Collection("payments").Find(ctx, filter, opts)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch payments"})
			return
		}

		var payments []models.Payment
		if err := cursor.All(ctx, &payments); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not decode payments"})
			return
		}

		if payments == nil {
			payments = []models.Payment{}
		}
		c.JSON(http.StatusOK, payments)
	}
}
