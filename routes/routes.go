package routes

import (
	"github.com/gin-gonic/gin"

	config "github.com/dquevedo/aportaciones-go/config"
	controllers "github.com/dquevedo/aportaciones-go/controllers"
	middleware "github.com/dquevedo/aportaciones-go/middleware"
)

func SetupRoutes(r *gin.Engine, cfg *config.Config) {
	// public
	r.POST("/auth/register", controllers.Register(cfg))
	r.POST("/auth/login", controllers.Login(cfg))
	r.POST("/auth/refresh", controllers.RefreshToken(cfg))

	// otp
	r.POST("/auth/request-otp", controllers.RequestOTP(cfg))
	r.POST("/auth/verify-otp", controllers.VerifyOTP(cfg))

	// protected
	auth := middleware.AuthMiddleware(cfg)

	members := r.Group("/members")
	members.Use(auth)
	{
		members.POST("", controllers.CreateMember(cfg))
		members.GET("", controllers.ListMembers(cfg))
		members.GET("/:id", controllers.GetMember(cfg))
		members.PATCH("/:id", controllers.UpdateMember(cfg))
		members.DELETE("/:id", controllers.DeactivateMember(cfg))
	}

	contributions := r.Group("/contributions")
	contributions.Use(auth)
	{
		contributions.POST("", controllers.CreateContribution(cfg))
		contributions.GET("", controllers.ListContributions(cfg))
		contributions.GET("/:id", controllers.GetContribution(cfg))
		contributions.PATCH("/:id", controllers.UpdateContribution(cfg))
		contributions.DELETE("/:id", controllers.DeleteContribution(cfg))
	}

	memberContributions := r.Group("/member-contributions")
	memberContributions.Use(auth)
	{
		memberContributions.GET("", controllers.ListMemberContributions(cfg))
		memberContributions.GET("/:id", controllers.GetMemberContribution(cfg))
	}

	payments := r.Group("/payments")
	payments.Use(auth)
	{
		payments.POST("", controllers.RegisterPayment(cfg))
		payments.GET("", controllers.ListPayments(cfg))
	}

	expenses := r.Group("/expenses")
	expenses.Use(auth)
	{
		expenses.POST("", controllers.CreateExpense(cfg))
		expenses.GET("", controllers.ListExpenses(cfg))
		expenses.GET("/:id", controllers.GetExpense(cfg))
		expenses.POST("/:id/payments", controllers.RegisterExpensePayment(cfg))
		expenses.DELETE("/:id", controllers.DeleteExpense(cfg))
	}

	dashboard := r.Group("/dashboard")
	dashboard.Use(auth)
	{
		dashboard.GET("/summary", controllers.DashboardSummary(cfg))
	}
}
