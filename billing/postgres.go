package billing

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/cashwise/cashwise-api/models"
)

// PostgresSubscriptionStore implements SubscriptionStore over the
// subscriptions table.
type PostgresSubscriptionStore struct {
	DB *sql.DB
}

func NewPostgresSubscriptionStore(db *sql.DB) *PostgresSubscriptionStore {
	return &PostgresSubscriptionStore{DB: db}
}

func (s *PostgresSubscriptionStore) FindDue(ctx context.Context, scope Scope, asOf time.Time) ([]models.Subscription, error) {
	query := `
		SELECT id, description, amount, currency, category, frequency,
		       day_of_month, active, next_due_date, user_id, household_id
		FROM subscriptions
		WHERE active = TRUE AND next_due_date <= $1`
	args := []interface{}{DateOf(asOf)}

	if !scope.All() {
		query += ` AND household_id = $2`
		args = append(args, scope.HouseholdID)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query due subscriptions: %w", err)
	}
	defer rows.Close()

	subscriptions := []models.Subscription{}
	for rows.Next() {
		var sub models.Subscription
		if err := rows.Scan(&sub.ID, &sub.Description, &sub.Amount, &sub.Currency,
			&sub.Category, &sub.Frequency, &sub.DayOfMonth, &sub.Active,
			&sub.NextDueDate, &sub.UserID, &sub.HouseholdID); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subscriptions = append(subscriptions, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read due subscriptions: %w", err)
	}

	return subscriptions, nil
}

func (s *PostgresSubscriptionStore) UpdateNextDueDate(ctx context.Context, id string, next time.Time) error {
	result, err := s.DB.ExecContext(ctx, `
		UPDATE subscriptions
		SET next_due_date = $1, updated_at = NOW()
		WHERE id = $2
	`, DateOf(next), id)
	if err != nil {
		return fmt.Errorf("failed to update next due date: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("subscription %s not found", id)
	}

	return nil
}

// PostgresExpenseStore implements ExpenseStore over the expenses table. The
// partial unique index on group_id is the durable idempotency guarantee.
type PostgresExpenseStore struct {
	DB *sql.DB
}

func NewPostgresExpenseStore(db *sql.DB) *PostgresExpenseStore {
	return &PostgresExpenseStore{DB: db}
}

func (s *PostgresExpenseStore) ExistsByGroupID(ctx context.Context, groupID string) (bool, error) {
	var exists bool
	err := s.DB.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM expenses WHERE group_id = $1)
	`, groupID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check idempotency key: %w", err)
	}
	return exists, nil
}

func (s *PostgresExpenseStore) Insert(ctx context.Context, expense *models.Expense) error {
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO expenses (description, amount, currency, category, date, group_id, user_id, household_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, expense.Description, expense.Amount, expense.Currency, expense.Category,
		DateOf(expense.Date), expense.GroupID, expense.UserID, expense.HouseholdID).
		Scan(&expense.ID, &expense.CreatedAt)

	if isUniqueViolation(err) {
		return fmt.Errorf("group_id %s: %w", expense.GroupID, ErrDuplicatePosting)
	}
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	return nil
}

func isUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == "23505"
}
