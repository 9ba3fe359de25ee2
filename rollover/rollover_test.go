package rollover

import (
	"context"
	"testing"
	"time"

	"recurring-poll-backend/database"
	"recurring-poll-backend/models"
	"recurring-poll-backend/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestEngine(t *testing.T) (*Engine, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	})

	return New(repository.NewGormStore(db)), db
}

func makePoll(t *testing.T, db *gorm.DB, recurring bool, durationDays int, endDate *time.Time) models.Poll {
	t.Helper()
	poll := models.Poll{
		ID:             uuid.NewString(),
		Title:          "Test poll",
		IsRecurring:    recurring,
		RecurrenceType: models.RecurrenceWeekly,
		DurationDays:   durationDays,
		StartDate:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        endDate,
	}
	require.NoError(t, db.Create(&poll).Error)
	return poll
}

func makeInstance(t *testing.T, db *gorm.DB, pollID, status string, start, end time.Time, options models.OptionList) models.PollInstance {
	t.Helper()
	inst := models.PollInstance{
		ID:              uuid.NewString(),
		PollID:          pollID,
		Status:          status,
		StartDate:       start,
		EndDate:         end,
		OptionsSnapshot: options,
		CreatedAt:       start,
	}
	require.NoError(t, db.Create(&inst).Error)
	return inst
}

func baseOptions() models.OptionList {
	return models.OptionList{
		{ID: uuid.NewString(), Text: "Option A", Votes: 3},
		{ID: uuid.NewString(), Text: "Option B", Votes: 1},
	}
}

func TestRunClosesExpiredActiveInstances(t *testing.T) {
	engine, db := newTestEngine(t)
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	poll := makePoll(t, db, false, 7, nil)
	expired := makeInstance(t, db, poll.ID, models.InstanceActive,
		now.AddDate(0, 0, -7), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), baseOptions())
	stillRunning := makeInstance(t, db, poll.ID, models.InstanceActive,
		now.AddDate(0, 0, -1), now.AddDate(0, 0, 6), baseOptions())

	res, err := engine.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Closed)

	var got models.PollInstance
	require.NoError(t, db.First(&got, "id = ?", expired.ID).Error)
	assert.Equal(t, models.InstanceClosed, got.Status)
	require.NotNil(t, got.ClosedAt)
	assert.True(t, got.ClosedAt.Equal(now))

	var untouched models.PollInstance
	require.NoError(t, db.First(&untouched, "id = ?", stillRunning.ID).Error)
	assert.Equal(t, models.InstanceActive, untouched.Status)
	assert.Nil(t, untouched.ClosedAt)
}

func TestRunDoesNotCloseScheduledInstances(t *testing.T) {
	engine, db := newTestEngine(t)
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	poll := makePoll(t, db, false, 7, nil)
	// Scheduled and somehow already past its end: must not jump to Closed.
	// It activates instead, because its start has also passed.
	odd := makeInstance(t, db, poll.ID, models.InstanceScheduled,
		now.AddDate(0, 0, -10), now.AddDate(0, 0, -3), baseOptions())

	res, err := engine.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Closed)
	assert.Equal(t, 1, res.Activated)

	var got models.PollInstance
	require.NoError(t, db.First(&got, "id = ?", odd.ID).Error)
	assert.Equal(t, models.InstanceActive, got.Status)
}

func TestRunActivatesDueScheduledInstances(t *testing.T) {
	engine, db := newTestEngine(t)
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	poll := makePoll(t, db, false, 7, nil)
	due := makeInstance(t, db, poll.ID, models.InstanceScheduled,
		now.Add(-time.Hour), now.AddDate(0, 0, 7), baseOptions())
	future := makeInstance(t, db, poll.ID, models.InstanceScheduled,
		now.AddDate(0, 0, 2), now.AddDate(0, 0, 9), baseOptions())

	res, err := engine.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Activated)

	var got models.PollInstance
	require.NoError(t, db.First(&got, "id = ?", due.ID).Error)
	assert.Equal(t, models.InstanceActive, got.Status)
	require.NotNil(t, got.ActivatedAt)
	assert.True(t, got.ActivatedAt.Equal(now))

	var untouched models.PollInstance
	require.NoError(t, db.First(&untouched, "id = ?", future.ID).Error)
	assert.Equal(t, models.InstanceScheduled, untouched.Status)
	assert.Nil(t, untouched.ActivatedAt)
}

func TestRunIsIdempotentForTransitions(t *testing.T) {
	engine, db := newTestEngine(t)
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	poll := makePoll(t, db, false, 7, nil)
	makeInstance(t, db, poll.ID, models.InstanceActive,
		now.AddDate(0, 0, -7), now.Add(-time.Hour), baseOptions())
	makeInstance(t, db, poll.ID, models.InstanceScheduled,
		now.Add(-time.Minute), now.AddDate(0, 0, 7), baseOptions())

	first, err := engine.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Closed)
	assert.Equal(t, 1, first.Activated)

	second, err := engine.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Closed)
	assert.Equal(t, 0, second.Activated)
}

func TestRolloverCreatesNextInstance(t *testing.T) {
	engine, db := newTestEngine(t)

	latestEnd := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	now := latestEnd.Add(-12 * time.Hour) // within the one-day lookahead

	poll := makePoll(t, db, true, 7, nil)
	latest := makeInstance(t, db, poll.ID, models.InstanceActive,
		latestEnd.AddDate(0, 0, -7), latestEnd, baseOptions())

	res, err := engine.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)

	var instances []models.PollInstance
	require.NoError(t, db.Where("poll_id = ?", poll.ID).Find(&instances).Error)
	require.Len(t, instances, 2)

	var next models.PollInstance
	for _, inst := range instances {
		if inst.ID != latest.ID {
			next = inst
		}
	}

	wantStart := latestEnd.Add(time.Second)
	assert.True(t, next.StartDate.Equal(wantStart), "start %s, want %s", next.StartDate, wantStart)
	assert.True(t, next.EndDate.Equal(wantStart.AddDate(0, 0, 7)))
	// nextStart is in the future relative to now, so the instance is Scheduled.
	assert.Equal(t, models.InstanceScheduled, next.Status)
	assert.Len(t, next.OptionsSnapshot, len(latest.OptionsSnapshot))
	assert.True(t, next.CreatedAt.Equal(now))
}

func TestRolloverActivatesNextInstanceWhenStartHasPassed(t *testing.T) {
	engine, db := newTestEngine(t)

	latestEnd := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	now := latestEnd.Add(6 * time.Hour) // the previous instance already ended

	poll := makePoll(t, db, true, 7, nil)
	makeInstance(t, db, poll.ID, models.InstanceClosed,
		latestEnd.AddDate(0, 0, -7), latestEnd, baseOptions())

	res, err := engine.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)

	var next models.PollInstance
	require.NoError(t, db.Where("poll_id = ? AND status = ?", poll.ID, models.InstanceActive).
		First(&next).Error)
	assert.True(t, next.StartDate.Equal(latestEnd.Add(time.Second)))
}

func TestRolloverSkipsWhenBeyondLookahead(t *testing.T) {
	engine, db := newTestEngine(t)
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	poll := makePoll(t, db, true, 7, nil)
	makeInstance(t, db, poll.ID, models.InstanceActive,
		now.AddDate(0, 0, -4), now.AddDate(0, 0, 3), baseOptions())

	res, err := engine.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)

	var count int64
	require.NoError(t, db.Model(&models.PollInstance{}).
		Where("poll_id = ?", poll.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRolloverMergesApprovedSuggestions(t *testing.T) {
	engine, db := newTestEngine(t)

	latestEnd := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	now := latestEnd.Add(-12 * time.Hour)

	poll := makePoll(t, db, true, 7, nil)
	base := baseOptions()
	latest := makeInstance(t, db, poll.ID, models.InstanceActive,
		latestEnd.AddDate(0, 0, -7), latestEnd, base)

	approved := models.Suggestion{
		ID: uuid.NewString(), PollID: poll.ID, Text: "Option C",
		Status: models.SuggestionApproved, CreatedAt: now,
	}
	pending := models.Suggestion{
		ID: uuid.NewString(), PollID: poll.ID, Text: "Option D",
		Status: models.SuggestionPending, CreatedAt: now,
	}
	rejected := models.Suggestion{
		ID: uuid.NewString(), PollID: poll.ID, Text: "Option E",
		Status: models.SuggestionRejected, CreatedAt: now,
	}
	require.NoError(t, db.Create(&approved).Error)
	require.NoError(t, db.Create(&pending).Error)
	require.NoError(t, db.Create(&rejected).Error)

	res, err := engine.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)

	var next models.PollInstance
	require.NoError(t, db.Where("poll_id = ? AND id <> ?", poll.ID, latest.ID).
		First(&next).Error)

	require.Len(t, next.OptionsSnapshot, 3)
	// Base options come first, votes carried from the snapshot; the merged
	// suggestion is appended with a zero count and a fresh id.
	assert.Equal(t, "Option A", next.OptionsSnapshot[0].Text)
	assert.Equal(t, "Option B", next.OptionsSnapshot[1].Text)
	merged := next.OptionsSnapshot[2]
	assert.Equal(t, "Option C", merged.Text)
	assert.EqualValues(t, 0, merged.Votes)
	assert.NotEmpty(t, merged.ID)
	assert.NotEqual(t, approved.ID, merged.ID)

	var usedInDB models.Suggestion
	require.NoError(t, db.First(&usedInDB, "id = ?", approved.ID).Error)
	assert.Equal(t, models.SuggestionUsed, usedInDB.Status)
	require.NotNil(t, usedInDB.UsedAt)
	assert.True(t, usedInDB.UsedAt.Equal(now))

	var pendingInDB models.Suggestion
	require.NoError(t, db.First(&pendingInDB, "id = ?", pending.ID).Error)
	assert.Equal(t, models.SuggestionPending, pendingInDB.Status)

	var rejectedInDB models.Suggestion
	require.NoError(t, db.First(&rejectedInDB, "id = ?", rejected.ID).Error)
	assert.Equal(t, models.SuggestionRejected, rejectedInDB.Status)
}

func TestRolloverSkipsEndedPoll(t *testing.T) {
	engine, db := newTestEngine(t)
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	pollEnd := now.AddDate(0, 0, -1)
	poll := makePoll(t, db, true, 7, &pollEnd)
	makeInstance(t, db, poll.ID, models.InstanceClosed,
		now.AddDate(0, 0, -7), now.Add(-time.Hour), baseOptions())

	res, err := engine.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
}

func TestRolloverSkipsPollWithoutInstances(t *testing.T) {
	engine, db := newTestEngine(t)
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	makePoll(t, db, true, 7, nil)

	res, err := engine.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
}

func TestRolloverDoesNotDuplicateNextInstance(t *testing.T) {
	engine, db := newTestEngine(t)

	latestEnd := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	now := latestEnd.Add(-12 * time.Hour)

	poll := makePoll(t, db, true, 7, nil)
	makeInstance(t, db, poll.ID, models.InstanceActive,
		latestEnd.AddDate(0, 0, -7), latestEnd, baseOptions())

	first, err := engine.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Created)

	// A second run inside the same lookahead window sees the freshly created
	// instance's start date and declines to mint another.
	second, err := engine.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)

	var count int64
	require.NoError(t, db.Model(&models.PollInstance{}).
		Where("poll_id = ?", poll.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestRolloverDuplicateStartGuard(t *testing.T) {
	engine, db := newTestEngine(t)

	latestEnd := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	now := latestEnd.Add(-12 * time.Hour)

	poll := makePoll(t, db, true, 7, nil)
	makeInstance(t, db, poll.ID, models.InstanceActive,
		latestEnd.AddDate(0, 0, -7), latestEnd, baseOptions())
	// An instance for the next window already exists, left behind by an
	// overlapping invocation. Its presence alone must block a second mint.
	makeInstance(t, db, poll.ID, models.InstanceScheduled,
		latestEnd.Add(time.Second), latestEnd, baseOptions())

	res, err := engine.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)

	var count int64
	require.NoError(t, db.Model(&models.PollInstance{}).
		Where("poll_id = ?", poll.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestRolloverContinuesAfterPerPollFailure(t *testing.T) {
	engine, db := newTestEngine(t)

	latestEnd := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	now := latestEnd.Add(-12 * time.Hour)

	// Two recurring polls, both due: one healthy, one degenerate (no
	// instances). The healthy one must still roll forward.
	makePoll(t, db, true, 7, nil)
	healthy := makePoll(t, db, true, 7, nil)
	makeInstance(t, db, healthy.ID, models.InstanceActive,
		latestEnd.AddDate(0, 0, -7), latestEnd, baseOptions())

	res, err := engine.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
}
