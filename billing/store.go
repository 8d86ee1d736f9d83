package billing

import (
	"context"
	"errors"
	"time"

	"github.com/cashwise/cashwise-api/models"
)

// ErrDuplicatePosting reports an insert rejected by the group_id unique
// index. The processor treats it as "already posted", never as a failure.
var ErrDuplicatePosting = errors.New("posting already exists for this due date")

// Scope limits a processing run. The zero value covers every household (the
// daily job); ForHousehold narrows to one tenant (the on-demand API).
type Scope struct {
	HouseholdID string
}

func AllHouseholds() Scope {
	return Scope{}
}

func ForHousehold(householdID string) Scope {
	return Scope{HouseholdID: householdID}
}

func (s Scope) All() bool {
	return s.HouseholdID == ""
}

// SubscriptionStore is the processor's view of the subscriptions table.
type SubscriptionStore interface {
	// FindDue returns active subscriptions with next_due_date <= asOf,
	// limited to the given scope.
	FindDue(ctx context.Context, scope Scope, asOf time.Time) ([]models.Subscription, error)
	// UpdateNextDueDate persists an advanced due date.
	UpdateNextDueDate(ctx context.Context, id string, next time.Time) error
}

// ExpenseStore is the processor's view of the expenses table.
type ExpenseStore interface {
	// ExistsByGroupID reports whether a posting with this idempotency key
	// was already created.
	ExistsByGroupID(ctx context.Context, groupID string) (bool, error)
	// Insert creates a posting. Returns ErrDuplicatePosting (wrapped) when
	// the idempotency key is already taken.
	Insert(ctx context.Context, expense *models.Expense) error
}
