package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	config "github.com/dquevedo/aportaciones-go/config"
	"github.com/dquevedo/aportaciones-go/finance"
	models "github.com/dquevedo/aportaciones-go/models"
	utils "github.com/dquevedo/aportaciones-go/utils"
)

// ---------------- CREATE ----------------
func CreateContribution(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		creator := c.GetString("user_name")

		var input struct {
			Title            string   `json:"title" binding:"required"`
			Description      string   `json:"description"`
			TotalCost        float64  `json:"total_cost" binding:"required"`
			Distribution     string   `json:"distribution" binding:"required"`
			MemberIDs        []string `json:"member_ids" binding:"required"`
			InstallmentCount int      `json:"installment_count"`
			DueDate          string   `json:"due_date" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if input.InstallmentCount == 0 {
			input.InstallmentCount = 1
		}
		if input.InstallmentCount < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "installment_count must be at least 1"})
			return
		}

		dueDate, err := parseDateTime(input.DueDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid due_date format, use RFC3339 or YYYY-MM-DD"})
			return
		}

		memberIDs := make([]primitive.ObjectID, 0, len(input.MemberIDs))
		for _, idHex := range input.MemberIDs {
			oid, err := primitive.ObjectIDFromHex(idHex)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id " + idHex})
				return
			}
			memberIDs = append(memberIDs, oid)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// --- Load the selected roster ---
		cursor, err := cfg.Collection("members").Find(ctx, bson.M{
			"_id":    bson.M{"$in": memberIDs},
			"active": true,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch members"})
			return
		}
		var members []models.Member
		if err := cursor.All(ctx, &members); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not decode members"})
			return
		}
		if len(members) != len(memberIDs) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "some selected members were not found or are inactive"})
			return
		}

		// --- Quota calculation ---
		roster := make([]finance.QuotaMember, len(members))
		for i, m := range members {
			roster[i] = finance.QuotaMember{
				ID:       m.ID.Hex(),
				Category: finance.Category(m.Category),
				Cages:    m.Cages,
			}
		}
		total := finance.CentsFromFloat(input.TotalCost)
		quotas, err := finance.CalculateQuotas(total, finance.DistributionPolicy(input.Distribution), roster)
		if err != nil {
			c.JSON(statusForEngineError(err), gin.H{"error": err.Error()})
			return
		}

		now := time.Now()
		contribution := models.Contribution{
			ID:               primitive.NewObjectID(),
			Title:            input.Title,
			Description:      input.Description,
			TotalCost:        total.Float(),
			Distribution:     input.Distribution,
			MemberIDs:        memberIDs,
			InstallmentCount: input.InstallmentCount,
			DueDate:          dueDate,
			Status:           finance.StatusPending,
			Summary:          models.SummaryFromEngine(quotas.Summary),
			CreatedBy:        creator,
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		// --- Installment schedule per member ---
		memberContribs := make([]interface{}, len(members))
		for i, m := range members {
			share := quotas.Shares[i].Amount
			amounts, err := finance.SplitInstallments(share, input.InstallmentCount)
			if err != nil {
				c.JSON(statusForEngineError(err), gin.H{"error": err.Error()})
				return
			}
			memberContribs[i] = models.MemberContribution{
				ID:                  primitive.NewObjectID(),
				ContributionID:      contribution.ID,
				MemberID:            m.ID,
				MemberName:          m.FullName(),
				MemberCategory:      m.Category,
				MemberCages:         m.Cages,
				ContributionTitle:   contribution.Title,
				ContributionDueDate: contribution.DueDate,
				TotalAmount:         share.Float(),
				TotalPending:        share.Float(),
				Status:              finance.StatusPending,
				Installments:        models.NewSchedule(amounts),
				CreatedAt:           now,
				UpdatedAt:           now,
			}
		}

		// The contribution and its schedules land together or not at all.
		session, err := cfg.MongoClient.StartSession()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start transaction"})
			return
		}
		defer session.EndSession(ctx)

		_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
			if _, err := cfg.Collection("contributions").InsertOne(sc, contribution); err != nil {
				return nil, err
			}
			if _, err := cfg.Collection("member_contributions").InsertMany(sc, memberContribs); err != nil {
				return nil, err
			}
			return nil, nil
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create contribution"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"id":      contribution.ID.Hex(),
			"message": "contribution created",
			"summary": contribution.Summary,
		})
	}
}

// ---------------- LIST ----------------
func ListContributions(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		col := cfg.Collection("contributions")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// --- Build filter ---
		filter := bson.M{}
		if status := c.Query("status"); status != "" {
			filter["status"] = status
		}
		if dist := c.Query("distribution"); dist != "" {
			filter["distribution"] = dist
		}

		// --- Fetch data ---
		cursor, err := col.Find(ctx, filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch contributions"})
			return
		}

		var contributions []models.Contribution
		if err := cursor.All(ctx, &contributions); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not decode contributions"})
			return
		}

		if len(contributions) == 0 {
			c.JSON(http.StatusOK, []models.Contribution{})
			return
		}

		// --- Pick the most recently updated contribution ---
		latest := contributions[0]
		for _, ctn := range contributions {
			if ctn.UpdatedAt.After(latest.UpdatedAt) {
				latest = ctn
			}
		}

		etag := utils.GenerateETag(latest.ID, latest.UpdatedAt)
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Header("ETag", etag)
		c.Header("Last-Modified", latest.UpdatedAt.UTC().Format(http.TimeFormat))

		c.JSON(http.StatusOK, contributions)
	}
}

// ---------------- GET ----------------
func GetContribution(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contribution id"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var contribution models.Contribution
		err = cfg.Collection("contributions").FindOne(ctx, bson.M{"_id": oid}).Decode(&contribution)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "contribution not found"})
			return
		}

		cursor, err := cfg.Collection("member_contributions").Find(ctx, bson.M{"contribution_id": oid})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch member contributions"})
			return
		}
		var memberContribs []models.MemberContribution
		if err := cursor.All(ctx, &memberContribs); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not decode member contributions"})
			return
		}

		etag := utils.GenerateETag(contribution.ID, contribution.UpdatedAt)
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Header("ETag", etag)

		c.JSON(http.StatusOK, gin.H{
			"contribution":         contribution,
			"member_contributions": memberContribs,
		})
	}
}

// ---------------- UPDATE ----------------
func UpdateContribution(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contribution id"})
			return
		}

		var input struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			DueDate     string `json:"due_date"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		// Cost, policy and roster are frozen once the schedules exist;
		// only descriptive fields can change.
		update := bson.M{"updated_at": time.Now()}
		if input.Title != "" {
			update["title"] = input.Title
		}
		if input.Description != "" {
			update["description"] = input.Description
		}
		if input.DueDate != "" {
			dueDate, err := parseDateTime(input.DueDate)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid due_date format, use RFC3339 or YYYY-MM-DD"})
				return
			}
			update["due_date"] = dueDate
		}

		if len(update) == 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		res, err := cfg.Collection("contributions").UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": update})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update contribution"})
			return
		}
		if res.MatchedCount == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "contribution not found"})
			return
		}

		if title, ok := update["title"]; ok {
			// Keep the denormalized title on member contributions in sync.
			_, _ = cfg.Collection("member_contributions").UpdateMany(ctx,
				bson.M{"contribution_id": oid},
				bson.M{"$set": bson.M{"contribution_title": title, "updated_at": time.Now()}},
			)
		}

		c.JSON(http.StatusOK, gin.H{"message": "contribution updated", "id": oid.Hex()})
	}
}

// ---------------- DELETE ----------------
func DeleteContribution(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contribution id"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// A contribution with recorded payments is history, not a draft.
		paid, err := cfg.Collection("member_contributions").CountDocuments(ctx, bson.M{
			"contribution_id": oid,
			"total_paid":      bson.M{"$gt": 0},
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not check payments"})
			return
		}
		if paid > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "contribution has recorded payments and cannot be deleted"})
			return
		}

		res, err := cfg.Collection("contributions").DeleteOne(ctx, bson.M{"_id": oid})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete contribution"})
			return
		}
		if res.DeletedCount == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "contribution not found"})
			return
		}

		if _, err := cfg.Collection("member_contributions").DeleteMany(ctx, bson.M{"contribution_id": oid}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete member contributions"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "contribution deleted", "id": oid.Hex()})
	}
}

// assignMemberToContribution attaches a member to an existing contribution,
// deriving the quota from the persisted calculation summary the way the
// registration flow does for late joiners.
func assignMemberToContribution(ctx context.Context, cfg *config.Config, member models.Member, contributionID primitive.ObjectID) (*models.MemberContribution, error) {
	var contribution models.Contribution
	err := cfg.Collection("contributions").FindOne(ctx, bson.M{"_id": contributionID}).Decode(&contribution)
	if err != nil {
		return nil, fmt.Errorf("%w: contribution %s", finance.ErrNotFound, contributionID.Hex())
	}

	var share finance.Cents
	switch finance.DistributionPolicy(contribution.Distribution) {
	case finance.DistributionEqual:
		for _, b := range contribution.Summary {
			if b.Label == "all" {
				share = finance.CentsFromFloat(b.UnitAmount)
			}
		}
	case finance.DistributionByCategory:
		for _, b := range contribution.Summary {
			if b.Label == member.Category {
				share = finance.CentsFromFloat(b.UnitAmount)
			}
		}
	case finance.DistributionByCages:
		for _, b := range contribution.Summary {
			if b.Label == "per_cage" {
				share = finance.CentsFromFloat(b.UnitAmount) * finance.Cents(member.Cages)
			}
		}
	}
	if share <= 0 {
		return nil, fmt.Errorf("no quota could be derived for member %s on contribution %q", member.FullName(), contribution.Title)
	}

	amounts, err := finance.SplitInstallments(share, contribution.InstallmentCount)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	mc := models.MemberContribution{
		ID:                  primitive.NewObjectID(),
		ContributionID:      contribution.ID,
		MemberID:            member.ID,
		MemberName:          member.FullName(),
		MemberCategory:      member.Category,
		MemberCages:         member.Cages,
		ContributionTitle:   contribution.Title,
		ContributionDueDate: contribution.DueDate,
		TotalAmount:         share.Float(),
		TotalPending:        share.Float(),
		Status:              finance.StatusPending,
		Installments:        models.NewSchedule(amounts),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	session, err := cfg.MongoClient.StartSession()
	if err != nil {
		return nil, fmt.Errorf("could not assign member to contribution: %v", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := cfg.Collection("member_contributions").InsertOne(sc, mc); err != nil {
			return nil, err
		}
		if _, err := cfg.Collection("contributions").UpdateOne(sc,
			bson.M{"_id": contribution.ID},
			bson.M{
				"$addToSet": bson.M{"member_ids": member.ID},
				"$set":      bson.M{"updated_at": now},
			},
		); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not assign member to contribution: %v", err)
	}

	return &mc, nil
}

// parseDateTime accepts RFC3339 plus the relaxed formats the web client sends.
func parseDateTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	layouts := []string{"2006-01-02", "2006-01-02 15:04", "2006-01-02T15:04", "2006-01-02 15:04:05"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format %q", value)
}
