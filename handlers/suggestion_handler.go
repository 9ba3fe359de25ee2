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

// SuggestionInput is a voter-submitted option candidate.
type SuggestionInput struct {
	PollID     string `json:"poll_id" binding:"required"`
	Text       string `json:"text" binding:"required"`
	TargetWeek string `json:"target_week" binding:"omitempty,oneof=current next"`
}

// SubmitSuggestion records a new Pending suggestion for a poll that allows
// them.
func SubmitSuggestion(c *gin.Context) {
	var input SuggestionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var poll models.Poll
	if err := database.DB.First(&poll, "id = ?", input.PollID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Poll not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch poll"})
		return
	}
	if !poll.AllowSuggestions {
		c.JSON(http.StatusForbidden, gin.H{"error": "Poll does not accept suggestions"})
		return
	}

	targetWeek := input.TargetWeek
	if targetWeek == "" {
		targetWeek = models.TargetWeekNext
	}

	suggestion := models.Suggestion{
		ID:         uuid.NewString(),
		PollID:     input.PollID,
		Text:       input.Text,
		Status:     models.SuggestionPending,
		TargetWeek: targetWeek,
		CreatedAt:  time.Now().UTC(),
	}
	if err := database.DB.Create(&suggestion).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit suggestion"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":       "Suggestion submitted successfully",
		"suggestion_id": suggestion.ID,
	})
}

// ListSuggestions returns a poll's suggestions, optionally filtered by
// status.
func ListSuggestions(c *gin.Context) {
	pollID := c.Query("pollId")
	if pollID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pollId is required"})
		return
	}

	q := database.DB.Where("poll_id = ?", pollID)
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var suggestions []models.Suggestion
	if err := q.Order("created_at DESC").Find(&suggestions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch suggestions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

// ReviewSuggestionInput is the admin decision on a pending suggestion.
type ReviewSuggestionInput struct {
	PollID       string `json:"poll_id" binding:"required"`
	SuggestionID string `json:"suggestion_id" binding:"required"`
	Status       string `json:"status" binding:"required,oneof=Approved Rejected"`
}

// ReviewSuggestion approves or rejects a pending suggestion. Suggestions
// already consumed by a rollover cannot be re-reviewed.
func ReviewSuggestion(c *gin.Context) {
	var input ReviewSuggestionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res := database.DB.Model(&models.Suggestion{}).
		Where("id = ? AND poll_id = ? AND status IN ?",
			input.SuggestionID, input.PollID,
			[]string{models.SuggestionPending, models.SuggestionApproved, models.SuggestionRejected}).
		Update("status", input.Status)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update suggestion"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Suggestion not found or already used"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Suggestion updated successfully"})
}
