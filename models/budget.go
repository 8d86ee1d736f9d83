package models

import "time"

// Budget is a per-category monthly spending limit for a household.
type Budget struct {
	ID           string    `json:"id"`
	Category     string    `json:"category"`
	MonthlyLimit float64   `json:"monthly_limit"`
	Currency     string    `json:"currency"`
	HouseholdID  string    `json:"household_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Spent        float64   `json:"spent"` // Current month spend from the expenses JOIN
}

type BudgetRequest struct {
	Category     string  `json:"category" binding:"required,max=50"`
	MonthlyLimit float64 `json:"monthly_limit" binding:"required,gt=0"`
	Currency     string  `json:"currency" binding:"required,len=3"`
}
