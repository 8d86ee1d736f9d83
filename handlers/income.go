package handlers

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cashwise/cashwise-api/middleware"
	"github.com/cashwise/cashwise-api/models"
)

type IncomeHandler struct {
	DB *sql.DB
}

const incomeColumns = `id, description, amount, currency, date, user_id, household_id, created_at`

func scanIncome(row interface{ Scan(...interface{}) error }) (models.Income, error) {
	var income models.Income
	err := row.Scan(&income.ID, &income.Description, &income.Amount, &income.Currency,
		&income.Date, &income.UserID, &income.HouseholdID, &income.CreatedAt)
	return income, err
}

func (h *IncomeHandler) GetIncomes(c *gin.Context) {
	userID := middleware.GetUserID(c)

	householdID, err := getHouseholdID(h.DB, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	rows, err := h.DB.Query(`
		SELECT `+incomeColumns+` FROM incomes
		WHERE household_id = $1
		ORDER BY date DESC, created_at DESC
	`, householdID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch incomes"})
		return
	}
	defer rows.Close()

	incomes := []models.Income{}
	for rows.Next() {
		income, err := scanIncome(rows)
		if err != nil {
			continue
		}
		incomes = append(incomes, income)
	}

	c.JSON(http.StatusOK, incomes)
}

func (h *IncomeHandler) CreateIncome(c *gin.Context) {
	userID := middleware.GetUserID(c)

	householdID, err := getHouseholdID(h.DB, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var req models.CreateIncomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	incomeDate, err := parseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
		return
	}

	row := h.DB.QueryRow(`
		INSERT INTO incomes (description, amount, currency, date, user_id, household_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+incomeColumns+`
	`, req.Description, req.Amount, req.Currency, incomeDate, userID, householdID)

	income, err := scanIncome(row)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create income"})
		return
	}

	c.JSON(http.StatusCreated, income)
}

func (h *IncomeHandler) UpdateIncome(c *gin.Context) {
	userID := middleware.GetUserID(c)
	incomeID := c.Param("id")

	householdID, err := getHouseholdID(h.DB, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var req models.UpdateIncomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	incomeDate, err := parseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
		return
	}

	var entryUserID string
	err = h.DB.QueryRow(`
		SELECT user_id FROM incomes WHERE id = $1 AND household_id = $2
	`, incomeID, householdID).Scan(&entryUserID)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Income not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch income"})
		return
	}

	allowed, err := canEdit(h.DB, userID, entryUserID)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only modify your own entries"})
		return
	}

	row := h.DB.QueryRow(`
		UPDATE incomes
		SET description = $1, amount = $2, currency = $3, date = $4
		WHERE id = $5 AND household_id = $6
		RETURNING `+incomeColumns+`
	`, req.Description, req.Amount, req.Currency, incomeDate, incomeID, householdID)

	income, err := scanIncome(row)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update income"})
		return
	}

	c.JSON(http.StatusOK, income)
}

func (h *IncomeHandler) DeleteIncome(c *gin.Context) {
	userID := middleware.GetUserID(c)
	incomeID := c.Param("id")

	householdID, err := getHouseholdID(h.DB, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var entryUserID string
	err = h.DB.QueryRow(`
		SELECT user_id FROM incomes WHERE id = $1 AND household_id = $2
	`, incomeID, householdID).Scan(&entryUserID)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Income not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch income"})
		return
	}

	allowed, err := canEdit(h.DB, userID, entryUserID)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only modify your own entries"})
		return
	}

	_, err = h.DB.Exec(`DELETE FROM incomes WHERE id = $1`, incomeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete income"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Income deleted successfully"})
}
