package controllers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	config "github.com/dquevedo/aportaciones-go/config"
	"github.com/dquevedo/aportaciones-go/finance"
	models "github.com/dquevedo/aportaciones-go/models"
	utils "github.com/dquevedo/aportaciones-go/utils"
)

// ---------------- CREATE ----------------
// CreateExpense takes a multipart form so a scanned invoice can ride along
// with the expense data.
func CreateExpense(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		expenseType := c.PostForm("type")
		description := c.PostForm("description")
		supplier := c.PostForm("supplier")
		amountStr := c.PostForm("amount")
		dateStr := c.PostForm("expense_date")

		if expenseType == "" || description == "" || amountStr == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "type, description and amount are required"})
			return
		}

		amount, err := strconv.ParseFloat(amountStr, 64)
		if err != nil || amount <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a positive number"})
			return
		}

		expenseDate := time.Now()
		if dateStr != "" {
			expenseDate, err = parseDateTime(dateStr)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expense_date format"})
				return
			}
		}

		var approvedBy []primitive.ObjectID
		for _, idHex := range c.PostFormArray("approved_by") {
			oid, err := primitive.ObjectIDFromHex(idHex)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid approver id " + idHex})
				return
			}
			approvedBy = append(approvedBy, oid)
		}
		if approvedBy == nil {
			approvedBy = []primitive.ObjectID{}
		}

		// Optional document upload.
		documentURL := ""
		file, fileHeader, err := c.Request.FormFile("document")
		if err == nil {
			defer file.Close()
			documentURL, err = utils.UploadExpenseDocument(file, fileHeader)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upload document"})
				return
			}
		}

		cents := finance.CentsFromFloat(amount)
		now := time.Now()
		expense := models.Expense{
			ID:          primitive.NewObjectID(),
			Type:        expenseType,
			Description: description,
			Supplier:    supplier,
			Amount:      cents.Float(),
			ExpenseDate: expenseDate,
			DocumentURL: documentURL,
			ApprovedBy:  approvedBy,
			Status:      finance.StatusPending,
			// One implicit installment; partial settlements chip away at it.
			Installments: models.NewSchedule([]finance.Cents{cents}),
			CreatedBy:    c.GetString("user_name"),
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if _, err := cfg.Collection("expenses").InsertOne(ctx, expense); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create expense"})
			return
		}

		c.JSON(http.StatusCreated, expense)
	}
}

// ---------------- LIST ----------------
func ListExpenses(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// --- Build filter ---
		filter := bson.M{}
		if expenseType := c.Query("type"); expenseType != "" {
			filter["type"] = expenseType
		}
		if status := c.Query("status"); status != "" {
			filter["status"] = status
		}

		opts := options.Find().SetSort(bson.M{"expense_date": -1})
		cursor, err := cfg.Collection("expenses").Find(ctx, filter, opts)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch expenses"})
			return
		}

		var expenses []models.Expense
		if err := cursor.All(ctx, &expenses); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not decode expenses"})
			return
		}

		if len(expenses) == 0 {
			c.JSON(http.StatusOK, []models.Expense{})
			return
		}

		// --- Pick the most recently updated expense ---
		latest := expenses[0]
		for _, e := range expenses {
			if e.UpdatedAt.After(latest.UpdatedAt) {
				latest = e
			}
		}

		etag := utils.GenerateETag(latest.ID, latest.UpdatedAt)
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Header("ETag", etag)
		c.Header("Last-Modified", latest.UpdatedAt.UTC().Format(http.TimeFormat))

		c.JSON(http.StatusOK, expenses)
	}
}

// ---------------- GET ----------------
func GetExpense(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expense id"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var expense models.Expense
		err = cfg.Collection("expenses").FindOne(ctx, bson.M{"_id": oid}).Decode(&expense)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "expense not found"})
			return
		}

		etag := utils.GenerateETag(expense.ID, expense.UpdatedAt)
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Header("ETag", etag)

		c.JSON(http.StatusOK, expense)
	}
}

// ---------------- REGISTER PAYMENT ----------------
// RegisterExpensePayment settles an expense the same way a member quota is
// settled: the amount walks the installment list, and the expense status
// follows total paid vs total owed.
func RegisterExpensePayment(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expense id"})
			return
		}

		var input struct {
			Amount float64 `json:"amount" binding:"required"`
			Method string  `json:"method" binding:"required"`
			Date   string  `json:"date" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		paymentDate, err := parseDateTime(input.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date format, use RFC3339 or YYYY-MM-DD"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var expense models.Expense
		if err := cfg.Collection("expenses").FindOne(ctx, bson.M{"_id": oid}).Decode(&expense); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "expense not found"})
			return
		}

		meta := finance.PaymentMeta{
			Amount:     finance.CentsFromFloat(input.Amount),
			Method:     input.Method,
			Date:       paymentDate,
			RecordedBy: c.GetString("user_name"),
			RecordedAt: time.Now(),
		}

		updated, err := finance.AllocateSequential(models.InstallmentsToEngine(expense.Installments), meta)
		if err != nil {
			c.JSON(statusForEngineError(err), gin.H{"error": err.Error()})
			return
		}

		totalPaid := finance.TotalPaid(updated)
		status := finance.SettlementStatus(totalPaid, finance.CentsFromFloat(expense.Amount))

		_, err = cfg.Collection("expenses").UpdateOne(ctx,
			bson.M{"_id": oid},
			bson.M{"$set": bson.M{
				"installments": models.InstallmentsFromEngine(updated),
				"status":       status,
				"updated_at":   time.Now(),
			}},
		)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update expense"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":    "expense payment registered",
			"id":         oid.Hex(),
			"status":     status,
			"total_paid": totalPaid.Float(),
		})
	}
}

// ---------------- DELETE ----------------
func DeleteExpense(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expense id"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var expense models.Expense
		if err := cfg.Collection("expenses").FindOne(ctx, bson.M{"_id": oid}).Decode(&expense); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "expense not found"})
			return
		}

		if finance.TotalPaid(models.InstallmentsToEngine(expense.Installments)) > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "expense has registered payments"})
			return
		}

		if _, err := cfg.Collection("expenses").DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete expense"})
			return
		}

		// The stored document is gone either way; a stale upload is tolerable.
		if expense.DocumentURL != "" {
			if err := utils.DeleteFromCloudinary(expense.DocumentURL); err != nil {
				log.Printf("could not delete expense document: %v", err)
			}
		}

		c.JSON(http.StatusOK, gin.H{"message": "expense deleted", "id": oid.Hex()})
	}
}
