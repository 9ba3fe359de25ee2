// Package repository provides the gorm-backed implementation of the rollover
// engine's store interface.
package repository

import (
	"context"
	"errors"
	"time"

	"recurring-poll-backend/models"

	"gorm.io/gorm"
)

var (
	// ErrNotTransitioned indicates a conditional status update matched no
	// row, i.e. the record was already past the expected state.
	ErrNotTransitioned = errors.New("record not in expected state")
)

// GormStore implements rollover.Store on top of a gorm database handle.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) OpenInstances(ctx context.Context) ([]models.PollInstance, error) {
	var instances []models.PollInstance
	err := s.db.WithContext(ctx).
		Where("status IN ?", []string{models.InstanceActive, models.InstanceScheduled}).
		Find(&instances).Error
	return instances, err
}

func (s *GormStore) RecurringPolls(ctx context.Context) ([]models.Poll, error) {
	var polls []models.Poll
	err := s.db.WithContext(ctx).
		Where("is_recurring = ?", true).
		Find(&polls).Error
	return polls, err
}

func (s *GormStore) InstancesByPoll(ctx context.Context, pollID string) ([]models.PollInstance, error) {
	var instances []models.PollInstance
	err := s.db.WithContext(ctx).
		Where("poll_id = ?", pollID).
		Order("end_date DESC").
		Find(&instances).Error
	return instances, err
}

func (s *GormStore) ApprovedSuggestions(ctx context.Context, pollID string) ([]models.Suggestion, error) {
	var suggestions []models.Suggestion
	err := s.db.WithContext(ctx).
		Where("poll_id = ? AND status = ?", pollID, models.SuggestionApproved).
		Find(&suggestions).Error
	return suggestions, err
}

// CloseInstance is conditional on the instance still being Active, so a
// retried run cannot re-close or resurrect a record.
func (s *GormStore) CloseInstance(ctx context.Context, instanceID string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.PollInstance{}).
		Where("id = ? AND status = ?", instanceID, models.InstanceActive).
		Updates(map[string]interface{}{
			"status":    models.InstanceClosed,
			"closed_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotTransitioned
	}
	return nil
}

// ActivateInstance is conditional on the instance still being Scheduled.
func (s *GormStore) ActivateInstance(ctx context.Context, instanceID string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.PollInstance{}).
		Where("id = ? AND status = ?", instanceID, models.InstanceScheduled).
		Updates(map[string]interface{}{
			"status":       models.InstanceActive,
			"activated_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotTransitioned
	}
	return nil
}

func (s *GormStore) CreateInstance(ctx context.Context, inst *models.PollInstance) error {
	return s.db.WithContext(ctx).Create(inst).Error
}

// MarkSuggestionUsed is conditional on the suggestion still being Approved;
// Used suggestions are never reused.
func (s *GormStore) MarkSuggestionUsed(ctx context.Context, suggestionID string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Suggestion{}).
		Where("id = ? AND status = ?", suggestionID, models.SuggestionApproved).
		Updates(map[string]interface{}{
			"status":  models.SuggestionUsed,
			"used_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotTransitioned
	}
	return nil
}
