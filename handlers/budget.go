package handlers

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"

	"github.com/cashwise/cashwise-api/middleware"
	"github.com/cashwise/cashwise-api/models"
)

type BudgetHandler struct {
	DB *sql.DB
}

// GetBudgets lists per-category budgets with the current month's spend.
func (h *BudgetHandler) GetBudgets(c *gin.Context) {
	userID := middleware.GetUserID(c)

	householdID, err := getHouseholdID(h.DB, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	rows, err := h.DB.Query(`
		SELECT b.id, b.category, b.monthly_limit, b.currency, b.household_id,
		       b.created_at, b.updated_at,
		       COALESCE((
		           SELECT SUM(e.amount) FROM expenses e
		           WHERE e.household_id = b.household_id
		             AND e.category = b.category
		             AND date_trunc('month', e.date) = date_trunc('month', CURRENT_DATE)
		       ), 0) AS spent
		FROM budgets b
		WHERE b.household_id = $1
		ORDER BY b.category
	`, householdID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch budgets"})
		return
	}
	defer rows.Close()

	budgets := []models.Budget{}
	for rows.Next() {
		var budget models.Budget
		if err := rows.Scan(&budget.ID, &budget.Category, &budget.MonthlyLimit,
			&budget.Currency, &budget.HouseholdID, &budget.CreatedAt,
			&budget.UpdatedAt, &budget.Spent); err != nil {
			continue
		}
		budgets = append(budgets, budget)
	}

	c.JSON(http.StatusOK, budgets)
}

func (h *BudgetHandler) CreateBudget(c *gin.Context) {
	userID := middleware.GetUserID(c)

	householdID, err := getHouseholdID(h.DB, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var req models.BudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var budget models.Budget
	err = h.DB.QueryRow(`
		INSERT INTO budgets (category, monthly_limit, currency, household_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, category, monthly_limit, currency, household_id, created_at, updated_at
	`, req.Category, req.MonthlyLimit, req.Currency, householdID).
		Scan(&budget.ID, &budget.Category, &budget.MonthlyLimit, &budget.Currency,
			&budget.HouseholdID, &budget.CreatedAt, &budget.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			c.JSON(http.StatusConflict, gin.H{"error": "Budget already exists for this category"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create budget"})
		return
	}

	c.JSON(http.StatusCreated, budget)
}

func (h *BudgetHandler) UpdateBudget(c *gin.Context) {
	userID := middleware.GetUserID(c)
	budgetID := c.Param("id")

	householdID, err := getHouseholdID(h.DB, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var req models.BudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var budget models.Budget
	err = h.DB.QueryRow(`
		UPDATE budgets
		SET category = $1, monthly_limit = $2, currency = $3, updated_at = NOW()
		WHERE id = $4 AND household_id = $5
		RETURNING id, category, monthly_limit, currency, household_id, created_at, updated_at
	`, req.Category, req.MonthlyLimit, req.Currency, budgetID, householdID).
		Scan(&budget.ID, &budget.Category, &budget.MonthlyLimit, &budget.Currency,
			&budget.HouseholdID, &budget.CreatedAt, &budget.UpdatedAt)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Budget not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update budget"})
		return
	}

	c.JSON(http.StatusOK, budget)
}

func (h *BudgetHandler) DeleteBudget(c *gin.Context) {
	userID := middleware.GetUserID(c)
	budgetID := c.Param("id")

	householdID, err := getHouseholdID(h.DB, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	result, err := h.DB.Exec(`
		DELETE FROM budgets WHERE id = $1 AND household_id = $2
	`, budgetID, householdID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete budget"})
		return
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Budget not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Budget deleted successfully"})
}
