// Package rollover implements the daily maintenance job for recurring polls:
// closing elapsed instances, activating scheduled ones, and minting the next
// instance of each recurring poll from its base options plus approved
// suggestions.
package rollover

import (
	"context"
	"fmt"
	"log"
	"time"

	"recurring-poll-backend/models"

	"github.com/google/uuid"
)

// lookahead bounds how far ahead of its predecessor's end a next instance is
// pre-created: exactly one day.
const lookahead = 24 * time.Hour

// Store is the persistence capability the engine needs. It is injected so
// tests can run against an in-memory database.
type Store interface {
	// OpenInstances returns all instances with status Active or Scheduled.
	OpenInstances(ctx context.Context) ([]models.PollInstance, error)
	// RecurringPolls returns all polls with IsRecurring set.
	RecurringPolls(ctx context.Context) ([]models.Poll, error)
	// InstancesByPoll returns every instance of the poll, any order.
	InstancesByPoll(ctx context.Context, pollID string) ([]models.PollInstance, error)
	// ApprovedSuggestions returns the poll's suggestions with status Approved.
	ApprovedSuggestions(ctx context.Context, pollID string) ([]models.Suggestion, error)

	// CloseInstance transitions an Active instance to Closed. The write is
	// conditional on the current status so retried runs are no-ops.
	CloseInstance(ctx context.Context, instanceID string, at time.Time) error
	// ActivateInstance transitions a Scheduled instance to Active, likewise
	// conditional on the current status.
	ActivateInstance(ctx context.Context, instanceID string, at time.Time) error
	// CreateInstance persists a freshly minted instance.
	CreateInstance(ctx context.Context, inst *models.PollInstance) error
	// MarkSuggestionUsed transitions an Approved suggestion to Used.
	MarkSuggestionUsed(ctx context.Context, suggestionID string, at time.Time) error
}

// Result counts the transitions performed by one engine run.
type Result struct {
	Closed    int `json:"closed"`
	Activated int `json:"activated"`
	Created   int `json:"created"`
}

// Engine runs the daily rollover. It is safe to invoke repeatedly with the
// same clock value: close/activate transitions are conditional updates and
// instance creation is guarded by a duplicate-start check.
type Engine struct {
	store Store
}

func New(store Store) *Engine {
	return &Engine{store: store}
}

// Run executes the four stages in order: close elapsed Active instances,
// activate due Scheduled instances, then create next instances for recurring
// polls nearing rollover. Individual record failures are logged and skipped;
// only a failure to enumerate records aborts the run.
func (e *Engine) Run(ctx context.Context, now time.Time) (Result, error) {
	var res Result

	open, err := e.store.OpenInstances(ctx)
	if err != nil {
		return res, fmt.Errorf("could not list open instances: %w", err)
	}

	// Stage 1: close. Scheduled instances are never closed directly, even if
	// somehow past their end; they must pass through Active first.
	for _, inst := range open {
		if inst.Status != models.InstanceActive || inst.EndDate.After(now) {
			continue
		}
		if err := e.store.CloseInstance(ctx, inst.ID, now); err != nil {
			log.Printf("rollover: failed to close instance %s (poll %s): %v", inst.ID, inst.PollID, err)
			continue
		}
		res.Closed++
	}

	// Stage 2: activate. Runs after the closer so one pass cannot leave a
	// poll with two Active instances.
	for _, inst := range open {
		if inst.Status != models.InstanceScheduled || inst.StartDate.After(now) {
			continue
		}
		if err := e.store.ActivateInstance(ctx, inst.ID, now); err != nil {
			log.Printf("rollover: failed to activate instance %s (poll %s): %v", inst.ID, inst.PollID, err)
			continue
		}
		res.Activated++
	}

	// Stages 3 and 4: harvest suggestions and plan next instances.
	polls, err := e.store.RecurringPolls(ctx)
	if err != nil {
		return res, fmt.Errorf("could not list recurring polls: %w", err)
	}
	for _, poll := range polls {
		created, err := e.rollForward(ctx, poll, now)
		if err != nil {
			log.Printf("rollover: poll %s: %v", poll.ID, err)
			continue
		}
		if created {
			res.Created++
		}
	}

	return res, nil
}

// rollForward creates the next instance for one recurring poll if its latest
// instance ends within the lookahead window. Returns true when an instance
// was created.
func (e *Engine) rollForward(ctx context.Context, poll models.Poll, now time.Time) (bool, error) {
	// The poll's recurrence has terminated.
	if poll.EndDate != nil && poll.EndDate.Before(now) {
		return false, nil
	}

	instances, err := e.store.InstancesByPoll(ctx, poll.ID)
	if err != nil {
		return false, fmt.Errorf("could not list instances: %w", err)
	}
	// A poll's first instance is created with the poll itself; a poll with no
	// instances at all is not this engine's problem.
	if len(instances) == 0 {
		return false, nil
	}

	latest := instances[0]
	for _, inst := range instances[1:] {
		if inst.EndDate.After(latest.EndDate) {
			latest = inst
		}
	}

	if latest.EndDate.After(now.Add(lookahead)) {
		return false, nil
	}

	// Instances are contiguous with a one-second gap so their windows never
	// overlap at the boundary.
	nextStart := latest.EndDate.Add(time.Second)
	nextEnd := nextStart.AddDate(0, 0, poll.DurationDays)

	// Duplicate guard: a retried or overlapping run must not mint a second
	// next instance for the same window.
	for _, inst := range instances {
		if inst.StartDate.Equal(nextStart) {
			return false, nil
		}
	}

	suggestions, err := e.store.ApprovedSuggestions(ctx, poll.ID)
	if err != nil {
		return false, fmt.Errorf("could not fetch approved suggestions: %w", err)
	}

	options := make(models.OptionList, 0, len(latest.OptionsSnapshot)+len(suggestions))
	options = append(options, latest.OptionsSnapshot...)
	for _, s := range suggestions {
		options = append(options, models.OptionSnapshot{
			ID:    uuid.NewString(),
			Text:  s.Text,
			Votes: 0,
		})
	}

	status := models.InstanceScheduled
	if !nextStart.After(now) {
		status = models.InstanceActive
	}

	next := &models.PollInstance{
		ID:              uuid.NewString(),
		PollID:          poll.ID,
		Status:          status,
		StartDate:       nextStart,
		EndDate:         nextEnd,
		OptionsSnapshot: options,
		CreatedAt:       now,
	}
	if err := e.store.CreateInstance(ctx, next); err != nil {
		return false, fmt.Errorf("could not create next instance: %w", err)
	}
	log.Printf("rollover: created %s instance %s for poll %s (%s - %s)",
		status, next.ID, poll.ID, nextStart.Format(time.RFC3339), nextEnd.Format(time.RFC3339))

	// Consumed suggestions become Used. A failed update is logged, never fatal.
	for _, s := range suggestions {
		if err := e.store.MarkSuggestionUsed(ctx, s.ID, now); err != nil {
			log.Printf("rollover: failed to mark suggestion %s used (poll %s): %v", s.ID, poll.ID, err)
		}
	}

	return true, nil
}
