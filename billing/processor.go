package billing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cashwise/cashwise-api/models"
)

// GroupID derives the idempotency key for one subscription posting. The
// format is persisted in expenses.group_id and must stay stable across
// versions so catch-up runs recognize old postings.
func GroupID(subscriptionID string, dueDate time.Time) string {
	return "sub-" + subscriptionID + "-" + DateOf(dueDate).Format("2006-01-02")
}

// RunResult summarizes one processing run. Only Created is surfaced to API
// callers; skips and failures are operational concerns.
type RunResult struct {
	Created []models.Expense
	Skipped int
	Failed  int
}

// Processor posts due subscriptions as expenses and advances their due
// dates. Safe for concurrent runs over overlapping scopes: a per-subscription
// lock keeps the daily job and a manual run from racing the same record, and
// the group_id unique index backstops everything else.
type Processor struct {
	subscriptions SubscriptionStore
	expenses      ExpenseStore

	mu    sync.Mutex
	locks map[string]*subscriptionLock
}

type subscriptionLock struct {
	mu   sync.Mutex
	refs int
}

func NewProcessor(subscriptions SubscriptionStore, expenses ExpenseStore) *Processor {
	return &Processor{
		subscriptions: subscriptions,
		expenses:      expenses,
		locks:         make(map[string]*subscriptionLock),
	}
}

// Run processes every active subscription in scope whose next due date is on
// or before today. Each missed period produces one posting, so a subscription
// three months behind catches up fully in a single run. One subscription's
// failure is logged and counted but never aborts the batch.
func (p *Processor) Run(ctx context.Context, scope Scope, today time.Time) (*RunResult, error) {
	today = DateOf(today)

	due, err := p.subscriptions.FindDue(ctx, scope, today)
	if err != nil {
		return nil, fmt.Errorf("failed to find due subscriptions: %w", err)
	}

	result := &RunResult{Created: []models.Expense{}}
	for _, sub := range due {
		created, skipped, err := p.processSubscription(ctx, sub, today)
		result.Created = append(result.Created, created...)
		result.Skipped += skipped
		if err != nil {
			result.Failed++
			log.Printf("billing: subscription %s: %v", sub.ID, err)
		}
	}

	return result, nil
}

// processSubscription posts every period from the subscription's current due
// date up to today. An error leaves the remaining periods for the next run;
// periods already advanced stay advanced.
func (p *Processor) processSubscription(ctx context.Context, sub models.Subscription, today time.Time) ([]models.Expense, int, error) {
	unlock := p.lock(sub.ID)
	defer unlock()

	created := []models.Expense{}
	skipped := 0

	// Reject unknown frequencies before posting anything, or the expense
	// would be created with no way to ever advance the due date.
	if _, err := NextDueDate(sub.Frequency, sub.DayOfMonth, sub.NextDueDate); err != nil {
		return created, skipped, err
	}

	for due := DateOf(sub.NextDueDate); !due.After(today); {
		groupID := GroupID(sub.ID, due)

		exists, err := p.expenses.ExistsByGroupID(ctx, groupID)
		if err != nil {
			return created, skipped, fmt.Errorf("idempotency check for %s: %w", groupID, err)
		}

		if exists {
			// A prior run already posted this period; advance only.
			log.Printf("billing: skipping duplicate posting for subscription %s on %s",
				sub.ID, due.Format("2006-01-02"))
			skipped++
		} else {
			expense := models.Expense{
				Description: sub.Description + " (Subscription)",
				Amount:      sub.Amount,
				Currency:    sub.Currency,
				Category:    sub.Category,
				Date:        due,
				GroupID:     groupID,
				UserID:      sub.UserID,
				HouseholdID: sub.HouseholdID,
			}

			switch err := p.expenses.Insert(ctx, &expense); {
			case err == nil:
				created = append(created, expense)
				log.Printf("billing: created expense from subscription %s: %s - %.2f %s",
					sub.ID, sub.Description, sub.Amount, sub.Currency)
			case errors.Is(err, ErrDuplicatePosting):
				// Lost a race to a concurrent run. Same as exists above.
				skipped++
			default:
				return created, skipped, fmt.Errorf("insert posting %s: %w", groupID, err)
			}
		}

		next, err := NextDueDate(sub.Frequency, sub.DayOfMonth, due)
		if err != nil {
			return created, skipped, err
		}
		if err := p.subscriptions.UpdateNextDueDate(ctx, sub.ID, next); err != nil {
			return created, skipped, fmt.Errorf("advance due date past %s: %w", due.Format("2006-01-02"), err)
		}
		due = next
	}

	return created, skipped, nil
}

// lock serializes processing per subscription. Entries are reference counted
// and removed on release so deleted subscriptions do not pin mutexes forever.
func (p *Processor) lock(id string) func() {
	p.mu.Lock()
	l, ok := p.locks[id]
	if !ok {
		l = &subscriptionLock{}
		p.locks[id] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, id)
		}
		p.mu.Unlock()
	}
}
