package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"

	config "github.com/dquevedo/aportaciones-go/config"
)

// ---------------- SUMMARY ----------------
// DashboardSummary aggregates the treasurer's home-screen numbers: how much
// has been asked of members, how much has come in, how much has gone out,
// and the resulting cash position.
func DashboardSummary(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		collected, pending, err := sumMemberContributions(ctx, cfg)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not aggregate contributions"})
			return
		}

		expensesTotal, expensesPaid, err := sumExpenses(ctx, cfg)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not aggregate expenses"})
			return
		}

		contributionCounts, err := countByStatus(ctx, cfg, "contributions")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not count contributions"})
			return
		}
		expenseCounts, err := countByStatus(ctx, cfg, "expenses")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not count expenses"})
			return
		}

		activeMembers, err := cfg.Collection("members").CountDocuments(ctx, bson.M{"active": true})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not count members"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"active_members":         activeMembers,
			"total_collected":        collected,
			"total_pending":          pending,
			"total_expenses":         expensesTotal,
			"total_expenses_paid":    expensesPaid,
			"balance":                collected - expensesPaid,
			"contributions_by_state": contributionCounts,
			"expenses_by_state":      expenseCounts,
		})
	}
}

func sumMemberContributions(ctx context.Context, cfg *config.Config) (collected, pending float64, err error) {
	pipeline := []bson.M{
		{"$group": bson.M{
			"_id":       nil,
			"collected": bson.M{"$sum": "$total_paid"},
			"pending":   bson.M{"$sum": "$total_pending"},
		}},
	}
	cursor, err := cfg.Collection("member_contributions").Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, err
	}
	var rows []struct {
		Collected float64 `bson:"collected"`
		Pending   float64 `bson:"pending"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, 0, err
	}
	if len(rows) == 0 {
		return 0, 0, nil
	}
	return rows[0].Collected, rows[0].Pending, nil
}

func sumExpenses(ctx context.Context, cfg *config.Config) (total, paid float64, err error) {
	pipeline := []bson.M{
		{"$group": bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$amount"},
			"paid":  bson.M{"$sum": bson.M{"$sum": "$installments.amount_paid"}},
		}},
	}
	cursor, err := cfg.Collection("expenses").Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, err
	}
	var rows []struct {
		Total float64 `bson:"total"`
		Paid  float64 `bson:"paid"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, 0, err
	}
	if len(rows) == 0 {
		return 0, 0, nil
	}
	return rows[0].Total, rows[0].Paid, nil
}

func countByStatus(ctx context.Context, cfg *config.Config, collection string) (map[string]int64, error) {
	pipeline := []bson.M{
		{"$group": bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}},
	}
	cursor, err := cfg.Collection(collection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
