package billing

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule fires the daily run shortly after midnight.
const DefaultSchedule = "5 0 * * *"

// Scheduler owns the daily cross-household processing job.
type Scheduler struct {
	processor *Processor
	schedule  string
	cron      *cron.Cron

	// Notify, when set, is called once per household that received new
	// postings during a daily run.
	Notify func(householdID string)
}

func NewScheduler(processor *Processor, schedule string) *Scheduler {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Scheduler{
		processor: processor,
		schedule:  schedule,
		cron:      cron.New(),
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.runDaily); err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("Billing scheduler started (schedule: %s)", s.schedule)
	return nil
}

// Stop halts the cron loop and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Billing scheduler stopped")
}

func (s *Scheduler) runDaily() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	log.Println("Processing due subscriptions...")

	result, err := s.processor.Run(ctx, AllHouseholds(), time.Now().UTC())
	if err != nil {
		log.Printf("❌ Subscription processing failed: %v", err)
		return
	}

	log.Printf("Created %d expenses from subscriptions (%d skipped, %d failed)",
		len(result.Created), result.Skipped, result.Failed)

	if s.Notify != nil {
		notified := map[string]bool{}
		for _, expense := range result.Created {
			if !notified[expense.HouseholdID] {
				notified[expense.HouseholdID] = true
				s.Notify(expense.HouseholdID)
			}
		}
	}
}
