package routes

import (
	"database/sql"

	"github.com/gin-gonic/gin"

	"github.com/cashwise/cashwise-api/billing"
	"github.com/cashwise/cashwise-api/handlers"
	"github.com/cashwise/cashwise-api/services"
)

// SetupAuthRoutes sets up public authentication routes.
func SetupAuthRoutes(rg *gin.RouterGroup, db *sql.DB) {
	authHandler := &handlers.AuthHandler{DB: db}

	rg.POST("/auth/signup", authHandler.Signup)
	rg.POST("/auth/login", authHandler.Login)
}

// SetupUserRoutes sets up protected user profile routes.
func SetupUserRoutes(rg *gin.RouterGroup, db *sql.DB) {
	userHandler := &handlers.UserHandler{DB: db}

	rg.GET("/user/profile", userHandler.GetProfile)
	rg.PUT("/user/profile", userHandler.UpdateProfile)
	rg.POST("/user/password", userHandler.ChangePassword)
	rg.POST("/user/2fa/setup", userHandler.SetupTOTP)
	rg.POST("/user/2fa/verify", userHandler.VerifyTOTP)
	rg.POST("/user/2fa/disable", userHandler.DisableTOTP)
}

// SetupHouseholdRoutes sets up household and membership routes.
func SetupHouseholdRoutes(rg *gin.RouterGroup, db *sql.DB) {
	householdHandler := &handlers.HouseholdHandler{DB: db, Email: services.NewEmailService()}

	rg.POST("/households", householdHandler.CreateHousehold)
	rg.GET("/households/mine", householdHandler.GetMyHousehold)
	rg.POST("/households/invitations", householdHandler.InviteMember)
	rg.POST("/households/invitations/accept", householdHandler.AcceptInvitation)
	rg.DELETE("/households/members/:member_id", householdHandler.RemoveMember)
}

// SetupSubscriptionRoutes sets up subscription CRUD plus the on-demand
// billing trigger.
func SetupSubscriptionRoutes(rg *gin.RouterGroup, db *sql.DB, processor *billing.Processor, ws *handlers.WSHandler) {
	subscriptionHandler := &handlers.SubscriptionHandler{DB: db, Processor: processor, WS: ws}

	rg.GET("/subscriptions", subscriptionHandler.GetSubscriptions)
	rg.POST("/subscriptions", subscriptionHandler.CreateSubscription)
	rg.PUT("/subscriptions/:id", subscriptionHandler.UpdateSubscription)
	rg.DELETE("/subscriptions/:id", subscriptionHandler.DeleteSubscription)
	rg.POST("/subscriptions/:id/toggle", subscriptionHandler.ToggleActive)
	rg.POST("/subscriptions/process", subscriptionHandler.ProcessSubscriptions)
}

// SetupExpenseRoutes sets up expense CRUD.
func SetupExpenseRoutes(rg *gin.RouterGroup, db *sql.DB, ws *handlers.WSHandler) {
	expenseHandler := &handlers.ExpenseHandler{DB: db, WS: ws}

	rg.GET("/expenses", expenseHandler.GetExpenses)
	rg.POST("/expenses", expenseHandler.CreateExpense)
	rg.PUT("/expenses/:id", expenseHandler.UpdateExpense)
	rg.DELETE("/expenses/:id", expenseHandler.DeleteExpense)
}

// SetupIncomeRoutes sets up income CRUD.
func SetupIncomeRoutes(rg *gin.RouterGroup, db *sql.DB) {
	incomeHandler := &handlers.IncomeHandler{DB: db}

	rg.GET("/incomes", incomeHandler.GetIncomes)
	rg.POST("/incomes", incomeHandler.CreateIncome)
	rg.PUT("/incomes/:id", incomeHandler.UpdateIncome)
	rg.DELETE("/incomes/:id", incomeHandler.DeleteIncome)
}

// SetupBudgetRoutes sets up per-category budget routes.
func SetupBudgetRoutes(rg *gin.RouterGroup, db *sql.DB) {
	budgetHandler := &handlers.BudgetHandler{DB: db}

	rg.GET("/budgets", budgetHandler.GetBudgets)
	rg.POST("/budgets", budgetHandler.CreateBudget)
	rg.PUT("/budgets/:id", budgetHandler.UpdateBudget)
	rg.DELETE("/budgets/:id", budgetHandler.DeleteBudget)
}

// SetupAIRoutes sets up AI-assisted categorization and parsing.
func SetupAIRoutes(rg *gin.RouterGroup) {
	aiHandler := &handlers.AIHandler{AI: services.NewAIService()}

	rg.POST("/ai/categorize", aiHandler.SuggestCategory)
	rg.POST("/ai/parse-expense", aiHandler.ParseExpense)
}
