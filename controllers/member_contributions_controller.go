package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	config "github.com/dquevedo/aportaciones-go/config"
	models "github.com/dquevedo/aportaciones-go/models"
	utils "github.com/dquevedo/aportaciones-go/utils"
)

// ---------------- LIST ----------------
func ListMemberContributions(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// --- Build filter ---
		filter := bson.M{}
		if memberID := c.Query("member_id"); memberID != "" {
			oid, err := primitive.ObjectIDFromHex(memberID)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
				return
			}
			filter["member_id"] = oid
		}
		if contributionID := c.Query("contribution_id"); contributionID != "" {
			oid, err := primitive.ObjectIDFromHex(contributionID)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contribution id"})
				return
			}
			filter["contribution_id"] = oid
		}
		if status := c.Query("status"); status != "" {
			filter["status"] = status
		}

		opts := options.Find().SetSort(bson.M{"created_at": 1})
		cursor, err := cfg.Collection("member_contributions").Find(ctx, filter, opts)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch member contributions"})
			return
		}

		var mcs []models.MemberContribution
		if err := cursor.All(ctx, &mcs); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not decode member contributions"})
			return
		}

		if len(mcs) == 0 {
			c.JSON(http.StatusOK, []models.MemberContribution{})
			return
		}

		// --- Pick the most recently updated record ---
		latest := mcs[0]
		for _, mc := range mcs {
			if mc.UpdatedAt.After(latest.UpdatedAt) {
				latest = mc
			}
		}

		etag := utils.GenerateETag(latest.ID, latest.UpdatedAt)
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Header("ETag", etag)
		c.Header("Last-Modified", latest.UpdatedAt.UTC().Format(http.TimeFormat))

		c.JSON(http.StatusOK, mcs)
	}
}

// ---------------- GET ----------------
func GetMemberContribution(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member contribution id"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var mc models.MemberContribution
		err = cfg.Collection("member_contributions").FindOne(ctx, bson.M{"_id": oid}).Decode(&mc)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "member contribution not found"})
			return
		}

		etag := utils.GenerateETag(mc.ID, mc.UpdatedAt)
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Header("ETag", etag)

		c.JSON(http.StatusOK, mc)
	}
}
