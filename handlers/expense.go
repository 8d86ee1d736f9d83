package handlers

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cashwise/cashwise-api/billing"
	"github.com/cashwise/cashwise-api/middleware"
	"github.com/cashwise/cashwise-api/models"
)

// ErrSubscriptionAutoCreate marks the best-effort derivation of a
// subscription from a recurring expense. The expense itself always succeeds;
// this failure is logged and reported as a warning, never as an error.
var ErrSubscriptionAutoCreate = errors.New("failed to auto-create subscription from recurring expense")

type ExpenseHandler struct {
	DB *sql.DB
	WS *WSHandler
}

const expenseColumns = `id, description, amount, currency, category, date,
	COALESCE(group_id, ''), user_id, household_id, created_at`

func scanExpense(row interface{ Scan(...interface{}) error }) (models.Expense, error) {
	var exp models.Expense
	err := row.Scan(&exp.ID, &exp.Description, &exp.Amount, &exp.Currency, &exp.Category,
		&exp.Date, &exp.GroupID, &exp.UserID, &exp.HouseholdID, &exp.CreatedAt)
	return exp, err
}

// GetExpenses lists the household's expenses, optionally bounded with
// ?from=YYYY-MM-DD&to=YYYY-MM-DD.
func (h *ExpenseHandler) GetExpenses(c *gin.Context) {
	userID := middleware.GetUserID(c)

	householdID, err := getHouseholdID(h.DB, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	query := `
		SELECT e.id, e.description, e.amount, e.currency, e.category, e.date,
		       COALESCE(e.group_id, ''), e.user_id, e.household_id, e.created_at, u.name
		FROM expenses e
		INNER JOIN users u ON u.id = e.user_id
		WHERE e.household_id = $1`
	args := []interface{}{householdID}

	if from := c.Query("from"); from != "" {
		fromDate, err := parseDate(from)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from date, expected YYYY-MM-DD"})
			return
		}
		args = append(args, fromDate)
		query += ` AND e.date >= $2`
	}
	if to := c.Query("to"); to != "" {
		toDate, err := parseDate(to)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to date, expected YYYY-MM-DD"})
			return
		}
		args = append(args, toDate)
		if len(args) == 3 {
			query += ` AND e.date <= $3`
		} else {
			query += ` AND e.date <= $2`
		}
	}
	query += ` ORDER BY e.date DESC, e.created_at DESC`

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch expenses"})
		return
	}
	defer rows.Close()

	expenses := []models.Expense{}
	for rows.Next() {
		var exp models.Expense
		if err := rows.Scan(&exp.ID, &exp.Description, &exp.Amount, &exp.Currency, &exp.Category,
			&exp.Date, &exp.GroupID, &exp.UserID, &exp.HouseholdID, &exp.CreatedAt,
			&exp.AddedByName); err != nil {
			continue
		}
		expenses = append(expenses, exp)
	}

	c.JSON(http.StatusOK, expenses)
}

// CreateExpense records a manual expense. With recurring=true it also
// derives a subscription so future periods post automatically; that side
// effect is best effort and surfaces only as subscription_warning.
func (h *ExpenseHandler) CreateExpense(c *gin.Context) {
	userID := middleware.GetUserID(c)

	householdID, err := getHouseholdID(h.DB, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var req models.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	expenseDate, err := parseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
		return
	}

	row := h.DB.QueryRow(`
		INSERT INTO expenses (description, amount, currency, category, date, user_id, household_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+expenseColumns+`
	`, req.Description, req.Amount, req.Currency, req.Category, expenseDate, userID, householdID)

	expense, err := scanExpense(row)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create expense"})
		return
	}

	response := gin.H{"expense": expense}

	if req.Recurring {
		if err := h.autoCreateSubscription(req, expenseDate, userID, householdID); err != nil {
			log.Printf("⚠️ %v", err)
			response["subscription_warning"] = ErrSubscriptionAutoCreate.Error()
		}
	}

	h.WS.BroadcastEvent(householdID, "expenses_updated")

	c.JSON(http.StatusCreated, response)
}

func (h *ExpenseHandler) autoCreateSubscription(req models.CreateExpenseRequest, expenseDate time.Time, userID, householdID string) error {
	frequency := req.Frequency
	if frequency == "" {
		frequency = billing.FrequencyMonthly
	}
	dayOfMonth := req.DayOfMonth
	if dayOfMonth == 0 {
		dayOfMonth = expenseDate.Day()
	}

	nextDueDate, err := billing.InitialDueDate(frequency, dayOfMonth, time.Now().UTC())
	if err != nil {
		return errors.Join(ErrSubscriptionAutoCreate, err)
	}

	_, err = h.DB.Exec(`
		INSERT INTO subscriptions (description, amount, currency, category, frequency,
			day_of_month, active, next_due_date, user_id, household_id)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $8, $9)
	`, req.Description, req.Amount, req.Currency, req.Category, frequency,
		dayOfMonth, nextDueDate, userID, householdID)
	if err != nil {
		return errors.Join(ErrSubscriptionAutoCreate, err)
	}

	return nil
}

func (h *ExpenseHandler) UpdateExpense(c *gin.Context) {
	userID := middleware.GetUserID(c)
	expenseID := c.Param("id")

	householdID, err := getHouseholdID(h.DB, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var req models.UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	expenseDate, err := parseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
		return
	}

	var entryUserID string
	err = h.DB.QueryRow(`
		SELECT user_id FROM expenses WHERE id = $1 AND household_id = $2
	`, expenseID, householdID).Scan(&entryUserID)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Expense not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch expense"})
		return
	}

	allowed, err := canEdit(h.DB, userID, entryUserID)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only modify your own entries"})
		return
	}

	row := h.DB.QueryRow(`
		UPDATE expenses
		SET description = $1, amount = $2, currency = $3, category = $4, date = $5
		WHERE id = $6 AND household_id = $7
		RETURNING `+expenseColumns+`
	`, req.Description, req.Amount, req.Currency, req.Category, expenseDate, expenseID, householdID)

	expense, err := scanExpense(row)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update expense"})
		return
	}

	h.WS.BroadcastEvent(householdID, "expenses_updated")

	c.JSON(http.StatusOK, expense)
}

func (h *ExpenseHandler) DeleteExpense(c *gin.Context) {
	userID := middleware.GetUserID(c)
	expenseID := c.Param("id")

	householdID, err := getHouseholdID(h.DB, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var entryUserID string
	err = h.DB.QueryRow(`
		SELECT user_id FROM expenses WHERE id = $1 AND household_id = $2
	`, expenseID, householdID).Scan(&entryUserID)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Expense not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch expense"})
		return
	}

	allowed, err := canEdit(h.DB, userID, entryUserID)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only modify your own entries"})
		return
	}

	_, err = h.DB.Exec(`DELETE FROM expenses WHERE id = $1`, expenseID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete expense"})
		return
	}

	h.WS.BroadcastEvent(householdID, "expenses_updated")

	c.JSON(http.StatusOK, gin.H{"message": "Expense deleted successfully"})
}
