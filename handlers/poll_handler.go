package handlers

import (
	"errors"
	"net/http"
	"time"

	"recurring-poll-backend/database"
	"recurring-poll-backend/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateOptionInput is one option of a new poll.
type CreateOptionInput struct {
	Text string `json:"text" binding:"required"`
}

// CreatePollInput defines the expected input structure for creating a poll.
type CreatePollInput struct {
	Title            string              `json:"title" binding:"required"`
	Description      string              `json:"description"`
	Options          []CreateOptionInput `json:"options" binding:"required,min=2,dive"`
	IsRecurring      bool                `json:"is_recurring"`
	RecurrenceType   string              `json:"recurrence_type" binding:"omitempty,oneof=WEEKLY BIWEEKLY MONTHLY CUSTOM"`
	DurationDays     int                 `json:"duration_days" binding:"omitempty,min=1"`
	StartDate        *time.Time          `json:"start_date"`
	EndDate          *time.Time          `json:"end_date"`
	AllowSuggestions bool                `json:"allow_suggestions"`
}

// CreatePoll handles the creation of a new poll together with its first
// instance. The instance starts Active when the start date has already
// passed, Scheduled otherwise.
func CreatePoll(c *gin.Context) {
	var input CreatePollInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now().UTC()

	recurrenceType := input.RecurrenceType
	if recurrenceType == "" {
		recurrenceType = models.RecurrenceWeekly
	}
	durationDays := input.DurationDays
	if durationDays == 0 {
		durationDays = models.DefaultDurationDays(recurrenceType)
	}
	startDate := now
	if input.StartDate != nil {
		startDate = input.StartDate.UTC()
	}

	poll := models.Poll{
		ID:               uuid.NewString(),
		Title:            input.Title,
		Description:      input.Description,
		IsRecurring:      input.IsRecurring,
		RecurrenceType:   recurrenceType,
		DurationDays:     durationDays,
		AllowSuggestions: input.AllowSuggestions,
		StartDate:        startDate,
		EndDate:          input.EndDate,
	}

	options := make(models.OptionList, 0, len(input.Options))
	for _, opt := range input.Options {
		options = append(options, models.OptionSnapshot{
			ID:    uuid.NewString(),
			Text:  opt.Text,
			Votes: 0,
		})
	}

	status := models.InstanceScheduled
	var activatedAt *time.Time
	if !startDate.After(now) {
		status = models.InstanceActive
		activatedAt = &now
	}

	instance := models.PollInstance{
		ID:              uuid.NewString(),
		PollID:          poll.ID,
		Status:          status,
		StartDate:       startDate,
		EndDate:         startDate.AddDate(0, 0, durationDays),
		ActivatedAt:     activatedAt,
		OptionsSnapshot: options,
		CreatedAt:       now,
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&poll).Error; err != nil {
			return err
		}
		return tx.Create(&instance).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create poll"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"poll_id":     poll.ID,
		"instance_id": instance.ID,
		"status":      instance.Status,
		"start_date":  instance.StartDate,
		"end_date":    instance.EndDate,
	})
}

// GetPolls returns all polls.
func GetPolls(c *gin.Context) {
	var polls []models.Poll
	if err := database.DB.Order("created_at DESC").Find(&polls).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch polls"})
		return
	}
	c.JSON(http.StatusOK, polls)
}

// GetPoll returns a poll, its active instance (if any), and its full
// instance history, newest first.
func GetPoll(c *gin.Context) {
	pollID := c.Param("id")

	var poll models.Poll
	if err := database.DB.First(&poll, "id = ?", pollID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Poll not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch poll"})
		return
	}

	var instances []models.PollInstance
	if err := database.DB.Where("poll_id = ?", pollID).
		Order("start_date DESC").Find(&instances).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch instances"})
		return
	}

	var activeInstance *models.PollInstance
	for i := range instances {
		if instances[i].Status == models.InstanceActive {
			activeInstance = &instances[i]
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"poll":            poll,
		"active_instance": activeInstance,
		"instances":       instances,
	})
}

// UpdatePollInput covers the mutable metadata of a poll. Recurrence shape and
// options are immutable after creation.
type UpdatePollInput struct {
	Description      *string    `json:"description"`
	AllowSuggestions *bool      `json:"allow_suggestions"`
	EndDate          *time.Time `json:"end_date"`
}

// UpdatePoll updates a poll's mutable metadata.
func UpdatePoll(c *gin.Context) {
	pollID := c.Param("id")

	var input UpdatePollInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.AllowSuggestions != nil {
		updates["allow_suggestions"] = *input.AllowSuggestions
	}
	if input.EndDate != nil {
		updates["end_date"] = *input.EndDate
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No updatable fields provided"})
		return
	}

	res := database.DB.Model(&models.Poll{}).Where("id = ?", pollID).Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update poll"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Poll not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Poll updated"})
}

// DeletePoll removes a poll and everything hanging off it: instances, their
// votes, suggestions, and access keys.
func DeletePoll(c *gin.Context) {
	pollID := c.Param("id")

	var poll models.Poll
	if err := database.DB.First(&poll, "id = ?", pollID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Poll not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch poll"})
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var instanceIDs []string
		if err := tx.Model(&models.PollInstance{}).
			Where("poll_id = ?", pollID).Pluck("id", &instanceIDs).Error; err != nil {
			return err
		}
		if len(instanceIDs) > 0 {
			if err := tx.Where("instance_id IN ?", instanceIDs).Delete(&models.Vote{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("poll_id = ?", pollID).Delete(&models.PollInstance{}).Error; err != nil {
			return err
		}
		if err := tx.Where("poll_id = ?", pollID).Delete(&models.Suggestion{}).Error; err != nil {
			return err
		}
		if err := tx.Where("poll_id = ?", pollID).Delete(&models.AccessKey{}).Error; err != nil {
			return err
		}
		return tx.Delete(&poll).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete poll"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Poll deleted"})
}
