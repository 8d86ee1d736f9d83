package models

import "time"

// Subscription is a recurring charge template. The billing processor turns it
// into concrete expenses each time next_due_date comes around.
type Subscription struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Category    string    `json:"category"`
	Frequency   string    `json:"frequency"` // MONTHLY, YEARLY or WEEKLY
	DayOfMonth  int       `json:"day_of_month"`
	Active      bool      `json:"active"`
	NextDueDate time.Time `json:"next_due_date"`
	UserID      string    `json:"user_id"`
	HouseholdID string    `json:"household_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	AddedByName string    `json:"added_by_name,omitempty"`
}

type CreateSubscriptionRequest struct {
	Description string  `json:"description" binding:"required,max=255"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Currency    string  `json:"currency" binding:"required,len=3"`
	Category    string  `json:"category" binding:"required,max=50"`
	Frequency   string  `json:"frequency" binding:"required,oneof=MONTHLY YEARLY WEEKLY"`
	DayOfMonth  int     `json:"day_of_month" binding:"required,min=1,max=31"`
	Active      *bool   `json:"active,omitempty"`
}

type UpdateSubscriptionRequest struct {
	Description string  `json:"description" binding:"required,max=255"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Currency    string  `json:"currency" binding:"required,len=3"`
	Category    string  `json:"category" binding:"required,max=50"`
	Frequency   string  `json:"frequency" binding:"required,oneof=MONTHLY YEARLY WEEKLY"`
	DayOfMonth  int     `json:"day_of_month" binding:"required,min=1,max=31"`
	Active      *bool   `json:"active,omitempty"`
}
