package handlers

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/cashwise/cashwise-api/models"
)

// getHouseholdID resolves the household the user belongs to. Every
// expense/income/subscription/budget route is scoped through this.
func getHouseholdID(db *sql.DB, userID string) (string, error) {
	var householdID string
	err := db.QueryRow(`
		SELECT household_id FROM household_members WHERE user_id = $1
	`, userID).Scan(&householdID)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("you are not part of any household")
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve household: %w", err)
	}
	return householdID, nil
}

// canEdit reports whether the user may modify an entry: household owners can
// edit anything, members only their own entries.
func canEdit(db *sql.DB, userID, entryUserID string) (bool, error) {
	if userID == entryUserID {
		return true, nil
	}

	var role string
	err := db.QueryRow(`
		SELECT role FROM household_members WHERE user_id = $1
	`, userID).Scan(&role)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to resolve member role: %w", err)
	}
	return role == models.RoleOwner, nil
}

func parseDate(value string) (time.Time, error) {
	return time.Parse("2006-01-02", value)
}
