package billing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cashwise/cashwise-api/models"
)

type mockSubscriptionStore struct {
	mu       sync.Mutex
	findDue  func(scope Scope, asOf time.Time) ([]models.Subscription, error)
	updates  map[string]time.Time
	failUpdt func(id string) error
}

func newMockSubscriptionStore(subs ...models.Subscription) *mockSubscriptionStore {
	return &mockSubscriptionStore{
		findDue: func(Scope, time.Time) ([]models.Subscription, error) {
			return subs, nil
		},
		updates: make(map[string]time.Time),
	}
}

func (m *mockSubscriptionStore) FindDue(_ context.Context, scope Scope, asOf time.Time) ([]models.Subscription, error) {
	return m.findDue(scope, asOf)
}

func (m *mockSubscriptionStore) UpdateNextDueDate(_ context.Context, id string, next time.Time) error {
	if m.failUpdt != nil {
		if err := m.failUpdt(id); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates[id] = next
	return nil
}

func (m *mockSubscriptionStore) lastUpdate(id string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, ok := m.updates[id]
	return next, ok
}

type mockExpenseStore struct {
	mu         sync.Mutex
	existing   map[string]bool
	inserted   []models.Expense
	failInsert func(expense *models.Expense) error
	failExists error
}

func newMockExpenseStore() *mockExpenseStore {
	return &mockExpenseStore{existing: make(map[string]bool)}
}

func (m *mockExpenseStore) ExistsByGroupID(_ context.Context, groupID string) (bool, error) {
	if m.failExists != nil {
		return false, m.failExists
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.existing[groupID], nil
}

func (m *mockExpenseStore) Insert(_ context.Context, expense *models.Expense) error {
	if m.failInsert != nil {
		if err := m.failInsert(expense); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existing[expense.GroupID] {
		return ErrDuplicatePosting
	}
	m.existing[expense.GroupID] = true
	expense.ID = "exp-" + expense.GroupID
	m.inserted = append(m.inserted, *expense)
	return nil
}

func (m *mockExpenseStore) insertedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inserted)
}

func monthlySubscription(id string, nextDue time.Time) models.Subscription {
	return models.Subscription{
		ID:          id,
		Description: "Netflix",
		Amount:      15.99,
		Currency:    "EUR",
		Category:    "Entertainment",
		Frequency:   FrequencyMonthly,
		DayOfMonth:  15,
		Active:      true,
		NextDueDate: nextDue,
		UserID:      "user-1",
		HouseholdID: "household-1",
	}
}

func TestProcessorReleasesSubscriptionLocks(t *testing.T) {
	subs := newMockSubscriptionStore(
		monthlySubscription("7", date(2024, time.March, 15)),
		monthlySubscription("8", date(2024, time.March, 10)),
	)
	processor := NewProcessor(subs, newMockExpenseStore())

	_, err := processor.Run(context.Background(), AllHouseholds(), date(2024, time.March, 20))
	require.NoError(t, err)

	processor.mu.Lock()
	defer processor.mu.Unlock()
	assert.Empty(t, processor.locks)
}

func TestProcessorPostsDueSubscription(t *testing.T) {
	sub := monthlySubscription("7", date(2024, time.March, 15))
	subs := newMockSubscriptionStore(sub)
	expenses := newMockExpenseStore()
	processor := NewProcessor(subs, expenses)

	result, err := processor.Run(context.Background(), AllHouseholds(), date(2024, time.March, 20))
	require.NoError(t, err)

	require.Len(t, result.Created, 1)
	created := result.Created[0]
	assert.Equal(t, "Netflix (Subscription)", created.Description)
	assert.Equal(t, 15.99, created.Amount)
	assert.Equal(t, "EUR", created.Currency)
	assert.Equal(t, "Entertainment", created.Category)
	assert.Equal(t, date(2024, time.March, 15), created.Date)
	assert.Equal(t, "sub-7-2024-03-15", created.GroupID)
	assert.Equal(t, "user-1", created.UserID)
	assert.Equal(t, "household-1", created.HouseholdID)

	next, ok := subs.lastUpdate("7")
	require.True(t, ok, "due date must be advanced")
	assert.Equal(t, date(2024, time.April, 15), next)
	assert.Zero(t, result.Failed)
	assert.Zero(t, result.Skipped)
}

func TestProcessorSkipsExistingPostingButStillAdvances(t *testing.T) {
	sub := monthlySubscription("7", date(2024, time.March, 15))
	subs := newMockSubscriptionStore(sub)
	expenses := newMockExpenseStore()
	expenses.existing["sub-7-2024-03-15"] = true
	processor := NewProcessor(subs, expenses)

	result, err := processor.Run(context.Background(), AllHouseholds(), date(2024, time.March, 20))
	require.NoError(t, err)

	assert.Empty(t, result.Created)
	assert.Equal(t, 1, result.Skipped)
	assert.Zero(t, result.Failed)

	next, ok := subs.lastUpdate("7")
	require.True(t, ok, "skipped posting must still advance the due date")
	assert.Equal(t, date(2024, time.April, 15), next)
}

func TestProcessorTreatsDuplicateInsertAsAlreadyPosted(t *testing.T) {
	sub := monthlySubscription("7", date(2024, time.March, 15))
	subs := newMockSubscriptionStore(sub)
	expenses := newMockExpenseStore()
	expenses.failInsert = func(*models.Expense) error {
		return ErrDuplicatePosting
	}
	processor := NewProcessor(subs, expenses)

	result, err := processor.Run(context.Background(), AllHouseholds(), date(2024, time.March, 20))
	require.NoError(t, err)

	assert.Empty(t, result.Created)
	assert.Equal(t, 1, result.Skipped)
	assert.Zero(t, result.Failed)

	next, ok := subs.lastUpdate("7")
	require.True(t, ok)
	assert.Equal(t, date(2024, time.April, 15), next)
}

func TestProcessorCatchesUpMissedMonths(t *testing.T) {
	// Three months behind: January, February and March are all due.
	sub := monthlySubscription("7", date(2024, time.January, 15))
	subs := newMockSubscriptionStore(sub)
	expenses := newMockExpenseStore()
	processor := NewProcessor(subs, expenses)

	result, err := processor.Run(context.Background(), AllHouseholds(), date(2024, time.March, 20))
	require.NoError(t, err)

	require.Len(t, result.Created, 3)
	assert.Equal(t, "sub-7-2024-01-15", result.Created[0].GroupID)
	assert.Equal(t, "sub-7-2024-02-15", result.Created[1].GroupID)
	assert.Equal(t, "sub-7-2024-03-15", result.Created[2].GroupID)

	next, ok := subs.lastUpdate("7")
	require.True(t, ok)
	assert.Equal(t, date(2024, time.April, 15), next)
	assert.True(t, next.After(date(2024, time.March, 20)))
}

func TestProcessorCatchUpSkipsAlreadyPostedPeriods(t *testing.T) {
	sub := monthlySubscription("7", date(2024, time.January, 15))
	subs := newMockSubscriptionStore(sub)
	expenses := newMockExpenseStore()
	expenses.existing["sub-7-2024-02-15"] = true
	processor := NewProcessor(subs, expenses)

	result, err := processor.Run(context.Background(), AllHouseholds(), date(2024, time.March, 20))
	require.NoError(t, err)

	require.Len(t, result.Created, 2)
	assert.Equal(t, "sub-7-2024-01-15", result.Created[0].GroupID)
	assert.Equal(t, "sub-7-2024-03-15", result.Created[1].GroupID)
	assert.Equal(t, 1, result.Skipped)
}

func TestProcessorIsolatesFailures(t *testing.T) {
	subA := monthlySubscription("a", date(2024, time.March, 15))
	subB := monthlySubscription("b", date(2024, time.March, 15))
	subC := monthlySubscription("c", date(2024, time.March, 15))
	subs := newMockSubscriptionStore(subA, subB, subC)

	expenses := newMockExpenseStore()
	expenses.failInsert = func(expense *models.Expense) error {
		if expense.GroupID == "sub-b-2024-03-15" {
			return errors.New("connection reset")
		}
		return nil
	}
	processor := NewProcessor(subs, expenses)

	result, err := processor.Run(context.Background(), AllHouseholds(), date(2024, time.March, 20))
	require.NoError(t, err)

	require.Len(t, result.Created, 2)
	assert.Equal(t, "sub-a-2024-03-15", result.Created[0].GroupID)
	assert.Equal(t, "sub-c-2024-03-15", result.Created[1].GroupID)
	assert.Equal(t, 1, result.Failed)

	// The failed subscription keeps its prior due date for the next run.
	_, updated := subs.lastUpdate("b")
	assert.False(t, updated)
	nextA, _ := subs.lastUpdate("a")
	assert.Equal(t, date(2024, time.April, 15), nextA)
}

func TestProcessorUnsupportedFrequencySkipsSubscription(t *testing.T) {
	bad := monthlySubscription("bad", date(2024, time.March, 15))
	bad.Frequency = "FORTNIGHTLY"
	good := monthlySubscription("good", date(2024, time.March, 15))
	subs := newMockSubscriptionStore(bad, good)
	expenses := newMockExpenseStore()
	processor := NewProcessor(subs, expenses)

	result, err := processor.Run(context.Background(), AllHouseholds(), date(2024, time.March, 20))
	require.NoError(t, err)

	// The bad subscription posts nothing: the frequency is rejected before
	// any insert, so it cannot leave an expense it can never advance past.
	require.Len(t, result.Created, 1)
	assert.Equal(t, "sub-good-2024-03-15", result.Created[0].GroupID)
	assert.Equal(t, 1, result.Failed)

	_, updated := subs.lastUpdate("bad")
	assert.False(t, updated)
}

func TestProcessorIdempotencyCheckFailureLeavesSubscriptionUntouched(t *testing.T) {
	sub := monthlySubscription("7", date(2024, time.March, 15))
	subs := newMockSubscriptionStore(sub)
	expenses := newMockExpenseStore()
	expenses.failExists = errors.New("connection reset")
	processor := NewProcessor(subs, expenses)

	result, err := processor.Run(context.Background(), AllHouseholds(), date(2024, time.March, 20))
	require.NoError(t, err)

	assert.Empty(t, result.Created)
	assert.Equal(t, 1, result.Failed)
	_, updated := subs.lastUpdate("7")
	assert.False(t, updated)
}

func TestProcessorFindDueErrorAbortsRun(t *testing.T) {
	subs := newMockSubscriptionStore()
	subs.findDue = func(Scope, time.Time) ([]models.Subscription, error) {
		return nil, errors.New("connection refused")
	}
	processor := NewProcessor(subs, newMockExpenseStore())

	_, err := processor.Run(context.Background(), AllHouseholds(), date(2024, time.March, 20))
	assert.Error(t, err)
}

func TestProcessorAdvanceFailureLeavesRemainingPeriods(t *testing.T) {
	sub := monthlySubscription("7", date(2024, time.January, 15))
	subs := newMockSubscriptionStore(sub)
	calls := 0
	subs.failUpdt = func(string) error {
		calls++
		if calls == 2 {
			return errors.New("deadlock detected")
		}
		return nil
	}
	expenses := newMockExpenseStore()
	processor := NewProcessor(subs, expenses)

	result, err := processor.Run(context.Background(), AllHouseholds(), date(2024, time.March, 20))
	require.NoError(t, err)

	// January posted and advanced, February posted but the advance failed;
	// March stays for the next run.
	require.Len(t, result.Created, 2)
	assert.Equal(t, 1, result.Failed)
	next, _ := subs.lastUpdate("7")
	assert.Equal(t, date(2024, time.February, 15), next)
}

func TestProcessorConcurrentRunsCreateOnePosting(t *testing.T) {
	// The daily job and a manual run racing over the same subscription must
	// not double-post.
	sub := monthlySubscription("7", date(2024, time.March, 15))
	subs := newMockSubscriptionStore(sub)
	expenses := newMockExpenseStore()
	processor := NewProcessor(subs, expenses)
	today := date(2024, time.March, 20)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := processor.Run(context.Background(), AllHouseholds(), today)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, expenses.insertedCount())
	next, _ := subs.lastUpdate("7")
	assert.Equal(t, date(2024, time.April, 15), next)
}

func TestProcessorScopedRunPassesScopeThrough(t *testing.T) {
	var gotScope Scope
	subs := newMockSubscriptionStore()
	subs.findDue = func(scope Scope, _ time.Time) ([]models.Subscription, error) {
		gotScope = scope
		return nil, nil
	}
	processor := NewProcessor(subs, newMockExpenseStore())

	_, err := processor.Run(context.Background(), ForHousehold("household-9"), date(2024, time.March, 20))
	require.NoError(t, err)
	assert.Equal(t, "household-9", gotScope.HouseholdID)
	assert.False(t, gotScope.All())
}
