package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cashwise/cashwise-api/models"
)

func TestGetExpensesIncludesAddedByName(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectHouseholdLookup(mock)

	rows := sqlmock.NewRows([]string{"id", "description", "amount", "currency", "category",
		"date", "group_id", "user_id", "household_id", "created_at", "name"}).
		AddRow("exp-1", "Netflix (Subscription)", 15.99, "EUR", "Entertainment",
			date(2024, time.March, 15), "sub-1-2024-03-15", "user-1", "household-1",
			date(2024, time.March, 15), "Alice").
		AddRow("exp-2", "Groceries", 42.50, "EUR", "Food",
			date(2024, time.March, 14), "", "user-2", "household-1",
			date(2024, time.March, 14), "Bob")
	mock.ExpectQuery(`FROM expenses e\s+INNER JOIN users u ON u\.id = e\.user_id`).
		WithArgs("household-1").
		WillReturnRows(rows)

	c, w := testContext(t, http.MethodGet, "/expenses", nil)

	handler := &ExpenseHandler{DB: db}
	handler.GetExpenses(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())

	var got []models.Expense
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Alice", got[0].AddedByName)
	assert.Equal(t, "Bob", got[1].AddedByName)
}
