package models

import "time"

// Expense is a single posting. GroupID is set only on expenses generated by
// the billing processor and carries the idempotency key; manual expenses
// leave it empty.
type Expense struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Category    string    `json:"category"`
	Date        time.Time `json:"date"`
	GroupID     string    `json:"group_id,omitempty"`
	UserID      string    `json:"user_id"`
	HouseholdID string    `json:"household_id"`
	CreatedAt   time.Time `json:"created_at"`
	AddedByName string    `json:"added_by_name,omitempty"`
}

type CreateExpenseRequest struct {
	Description string  `json:"description" binding:"required,max=255"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Currency    string  `json:"currency" binding:"required,len=3"`
	Category    string  `json:"category" binding:"required,max=50"`
	Date        string  `json:"date" binding:"required,datetime=2006-01-02"`
	// Recurring derives a subscription from this expense (best effort).
	Recurring  bool   `json:"recurring,omitempty"`
	Frequency  string `json:"frequency,omitempty" binding:"omitempty,oneof=MONTHLY YEARLY WEEKLY"`
	DayOfMonth int    `json:"day_of_month,omitempty" binding:"omitempty,min=1,max=31"`
}

type UpdateExpenseRequest struct {
	Description string  `json:"description" binding:"required,max=255"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Currency    string  `json:"currency" binding:"required,len=3"`
	Category    string  `json:"category" binding:"required,max=50"`
	Date        string  `json:"date" binding:"required,datetime=2006-01-02"`
}
