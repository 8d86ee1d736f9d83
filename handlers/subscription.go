package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cashwise/cashwise-api/billing"
	"github.com/cashwise/cashwise-api/middleware"
	"github.com/cashwise/cashwise-api/models"
)

type SubscriptionHandler struct {
	DB        *sql.DB
	Processor *billing.Processor
	WS        *WSHandler
}

const subscriptionColumns = `id, description, amount, currency, category, frequency,
	day_of_month, active, next_due_date, user_id, household_id, created_at, updated_at`

func scanSubscription(row interface{ Scan(...interface{}) error }) (models.Subscription, error) {
	var sub models.Subscription
	err := row.Scan(&sub.ID, &sub.Description, &sub.Amount, &sub.Currency, &sub.Category,
		&sub.Frequency, &sub.DayOfMonth, &sub.Active, &sub.NextDueDate,
		&sub.UserID, &sub.HouseholdID, &sub.CreatedAt, &sub.UpdatedAt)
	return sub, err
}

// GetSubscriptions lists the household's subscriptions. ?active=true narrows
// to active ones.
func (h *SubscriptionHandler) GetSubscriptions(c *gin.Context) {
	userID := middleware.GetUserID(c)

	householdID, err := getHouseholdID(h.DB, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	query := `
		SELECT s.id, s.description, s.amount, s.currency, s.category, s.frequency,
		       s.day_of_month, s.active, s.next_due_date, s.user_id, s.household_id,
		       s.created_at, s.updated_at, u.name
		FROM subscriptions s
		INNER JOIN users u ON u.id = s.user_id
		WHERE s.household_id = $1`
	if c.Query("active") == "true" {
		query += ` AND s.active = TRUE`
	}
	query += ` ORDER BY s.next_due_date`

	rows, err := h.DB.Query(query, householdID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch subscriptions"})
		return
	}
	defer rows.Close()

	subscriptions := []models.Subscription{}
	for rows.Next() {
		var sub models.Subscription
		if err := rows.Scan(&sub.ID, &sub.Description, &sub.Amount, &sub.Currency, &sub.Category,
			&sub.Frequency, &sub.DayOfMonth, &sub.Active, &sub.NextDueDate,
			&sub.UserID, &sub.HouseholdID, &sub.CreatedAt, &sub.UpdatedAt,
			&sub.AddedByName); err != nil {
			continue
		}
		subscriptions = append(subscriptions, sub)
	}

	c.JSON(http.StatusOK, subscriptions)
}

// CreateSubscription creates a subscription with its first due date computed
// from today.
func (h *SubscriptionHandler) CreateSubscription(c *gin.Context) {
	userID := middleware.GetUserID(c)

	householdID, err := getHouseholdID(h.DB, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var req models.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	nextDueDate, err := billing.InitialDueDate(req.Frequency, req.DayOfMonth, time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	row := h.DB.QueryRow(`
		INSERT INTO subscriptions (description, amount, currency, category, frequency,
			day_of_month, active, next_due_date, user_id, household_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+subscriptionColumns+`
	`, req.Description, req.Amount, req.Currency, req.Category, req.Frequency,
		req.DayOfMonth, active, nextDueDate, userID, householdID)

	sub, err := scanSubscription(row)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create subscription"})
		return
	}

	c.JSON(http.StatusCreated, sub)
}

// UpdateSubscription edits a subscription. The next due date is recomputed
// when the schedule changes or the subscription is reactivated; deactivation
// freezes it.
func (h *SubscriptionHandler) UpdateSubscription(c *gin.Context) {
	userID := middleware.GetUserID(c)
	subscriptionID := c.Param("id")

	householdID, err := getHouseholdID(h.DB, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var req models.UpdateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	row := h.DB.QueryRow(`
		SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE id = $1 AND household_id = $2
	`, subscriptionID, householdID)
	current, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subscription not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch subscription"})
		return
	}

	allowed, err := canEdit(h.DB, userID, current.UserID)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only modify your own entries"})
		return
	}

	active := current.Active
	if req.Active != nil {
		active = *req.Active
	}

	scheduleChanged := req.Frequency != current.Frequency || req.DayOfMonth != current.DayOfMonth
	reactivated := !current.Active && active

	nextDueDate := current.NextDueDate
	if active && (scheduleChanged || reactivated) {
		nextDueDate, err = billing.InitialDueDate(req.Frequency, req.DayOfMonth, time.Now().UTC())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	row = h.DB.QueryRow(`
		UPDATE subscriptions
		SET description = $1, amount = $2, currency = $3, category = $4, frequency = $5,
			day_of_month = $6, active = $7, next_due_date = $8, updated_at = NOW()
		WHERE id = $9 AND household_id = $10
		RETURNING `+subscriptionColumns+`
	`, req.Description, req.Amount, req.Currency, req.Category, req.Frequency,
		req.DayOfMonth, active, nextDueDate, subscriptionID, householdID)

	sub, err := scanSubscription(row)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update subscription"})
		return
	}

	c.JSON(http.StatusOK, sub)
}

// ToggleActive flips the active flag. Reactivation recomputes the next due
// date from today, discarding anything accrued while inactive.
func (h *SubscriptionHandler) ToggleActive(c *gin.Context) {
	userID := middleware.GetUserID(c)
	subscriptionID := c.Param("id")

	householdID, err := getHouseholdID(h.DB, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	row := h.DB.QueryRow(`
		SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE id = $1 AND household_id = $2
	`, subscriptionID, householdID)
	current, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subscription not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch subscription"})
		return
	}

	allowed, err := canEdit(h.DB, userID, current.UserID)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only modify your own entries"})
		return
	}

	active := !current.Active
	nextDueDate := current.NextDueDate
	if active {
		nextDueDate, err = billing.InitialDueDate(current.Frequency, current.DayOfMonth, time.Now().UTC())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute next due date"})
			return
		}
	}

	row = h.DB.QueryRow(`
		UPDATE subscriptions
		SET active = $1, next_due_date = $2, updated_at = NOW()
		WHERE id = $3 AND household_id = $4
		RETURNING `+subscriptionColumns+`
	`, active, nextDueDate, subscriptionID, householdID)

	sub, err := scanSubscription(row)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to toggle subscription"})
		return
	}

	c.JSON(http.StatusOK, sub)
}

// DeleteSubscription removes a subscription from future scheduling
// immediately. Already-posted expenses are untouched.
func (h *SubscriptionHandler) DeleteSubscription(c *gin.Context) {
	userID := middleware.GetUserID(c)
	subscriptionID := c.Param("id")

	householdID, err := getHouseholdID(h.DB, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var entryUserID string
	err = h.DB.QueryRow(`
		SELECT user_id FROM subscriptions WHERE id = $1 AND household_id = $2
	`, subscriptionID, householdID).Scan(&entryUserID)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subscription not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch subscription"})
		return
	}

	allowed, err := canEdit(h.DB, userID, entryUserID)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only modify your own entries"})
		return
	}

	_, err = h.DB.Exec(`DELETE FROM subscriptions WHERE id = $1`, subscriptionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete subscription"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Subscription deleted successfully"})
}

// ProcessSubscriptions runs the billing processor for the caller's household
// and returns the expenses created by this invocation. Repeat calls before
// the next due date create nothing further.
func (h *SubscriptionHandler) ProcessSubscriptions(c *gin.Context) {
	userID := middleware.GetUserID(c)

	householdID, err := getHouseholdID(h.DB, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Processor.Run(c.Request.Context(), billing.ForHousehold(householdID), time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process subscriptions"})
		return
	}

	if len(result.Created) > 0 {
		h.WS.BroadcastEvent(householdID, "expenses_updated")
	}

	c.JSON(http.StatusCreated, gin.H{
		"created": result.Created,
		"skipped": result.Skipped,
		"failed":  result.Failed,
	})
}
