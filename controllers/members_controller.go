package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	config "github.com/dquevedo/aportaciones-go/config"
	"github.com/dquevedo/aportaciones-go/finance"
	models "github.com/dquevedo/aportaciones-go/models"
	utils "github.com/dquevedo/aportaciones-go/utils"
)

// ---------------- CREATE ----------------
func CreateMember(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			FirstName string `json:"first_name" binding:"required"`
			LastName  string `json:"last_name"`
			Phone     string `json:"phone"`
			Cages     int    `json:"cages"`
			// Existing contributions the new member should be assigned to
			// retroactively; quota comes from each contribution's persisted
			// calculation summary.
			ContributionIDs []string `json:"contribution_ids"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if input.Cages < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cages must not be negative"})
			return
		}

		now := time.Now()
		member := models.Member{
			ID:        primitive.NewObjectID(),
			FirstName: input.FirstName,
			LastName:  input.LastName,
			Phone:     input.Phone,
			Category:  string(finance.CategoryForCages(input.Cages)),
			Cages:     input.Cages,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if _, err := cfg.Collection("members").InsertOne(ctx, member); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create member"})
			return
		}

		var assigned []models.MemberContribution
		for _, idHex := range input.ContributionIDs {
			oid, err := primitive.ObjectIDFromHex(idHex)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contribution id " + idHex})
				return
			}
			mc, err := assignMemberToContribution(ctx, cfg, member, oid)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			assigned = append(assigned, *mc)
		}

		c.JSON(http.StatusCreated, gin.H{
			"member":               member,
			"member_contributions": assigned,
		})
	}
}

// ---------------- LIST ----------------
func ListMembers(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		col := cfg.Collection("members")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// --- Build filter ---
		filter := bson.M{}
		switch c.Query("active") {
		case "true":
			filter["active"] = true
		case "false":
			filter["active"] = false
		}
		if category := c.Query("category"); category != "" {
			filter["category"] = category
		}

		// --- Fetch data ---
		cursor, err := col.Find(ctx, filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch members"})
			return
		}

		var members []models.Member
		if err := cursor.All(ctx, &members); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not decode members"})
			return
		}

		if len(members) == 0 {
			c.JSON(http.StatusOK, []models.Member{})
			return
		}

		// --- Pick the most recently updated member ---
		latest := members[0]
		for _, m := range members {
			if m.UpdatedAt.After(latest.UpdatedAt) {
				latest = m
			}
		}

		etag := utils.GenerateETag(latest.ID, latest.UpdatedAt)
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Header("ETag", etag)
		c.Header("Last-Modified", latest.UpdatedAt.UTC().Format(http.TimeFormat))

		c.JSON(http.StatusOK, members)
	}
}

// ---------------- GET ----------------
func GetMember(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var member models.Member
		err = cfg.Collection("members").FindOne(ctx, bson.M{"_id": oid}).Decode(&member)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "member not found"})
			return
		}

		etag := utils.GenerateETag(member.ID, member.UpdatedAt)
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Header("ETag", etag)

		c.JSON(http.StatusOK, member)
	}
}

// ---------------- UPDATE ----------------
func UpdateMember(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
			return
		}

		var input struct {
			FirstName *string `json:"first_name"`
			LastName  *string `json:"last_name"`
			Phone     *string `json:"phone"`
			Cages     *int    `json:"cages"`
			Active    *bool   `json:"active"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		update := bson.M{"updated_at": time.Now()}
		if input.FirstName != nil {
			update["first_name"] = *input.FirstName
		}
		if input.LastName != nil {
			update["last_name"] = *input.LastName
		}
		if input.Phone != nil {
			update["phone"] = *input.Phone
		}
		if input.Cages != nil {
			if *input.Cages < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "cages must not be negative"})
				return
			}
			// Category follows the cage count.
			update["cages"] = *input.Cages
			update["category"] = string(finance.CategoryForCages(*input.Cages))
		}
		if input.Active != nil {
			update["active"] = *input.Active
		}

		if len(update) == 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		res, err := cfg.Collection("members").UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": update})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update member"})
			return
		}
		if res.MatchedCount == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "member not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "member updated", "id": oid.Hex()})
	}
}

// ---------------- DEACTIVATE ----------------
// Members are never hard-deleted; their contribution history must survive.
func DeactivateMember(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		res, err := cfg.Collection("members").UpdateOne(ctx,
			bson.M{"_id": oid},
			bson.M{"$set": bson.M{"active": false, "updated_at": time.Now()}},
		)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to deactivate member"})
			return
		}
		if res.MatchedCount == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "member not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "member deactivated", "id": oid.Hex()})
	}
}
