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

// keyInsertBatchSize mirrors the per-request item limit of batch writes in
// the original document store.
const keyInsertBatchSize = 25

// GenerateKeysInput asks for a batch of single- or limited-use access keys.
type GenerateKeysInput struct {
	PollID    string     `json:"poll_id" binding:"required"`
	Count     int        `json:"count" binding:"required,min=1,max=1000"`
	MaxUses   int        `json:"max_uses" binding:"omitempty,min=1"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// GeneratedKey is the caller-facing shape of one freshly minted key.
type GeneratedKey struct {
	KeyID     string    `json:"key_id"`
	MaxUses   int       `json:"max_uses"`
	ExpiresAt time.Time `json:"expires_at"`
}

// GenerateKeys mints a batch of access keys for a poll. Keys default to one
// use and a one-year expiry.
func GenerateKeys(c *gin.Context) {
	var input GenerateKeysInput
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

	now := time.Now().UTC()
	maxUses := input.MaxUses
	if maxUses == 0 {
		maxUses = 1
	}
	expiresAt := now.AddDate(1, 0, 0)
	if input.ExpiresAt != nil {
		expiresAt = input.ExpiresAt.UTC()
	}

	keys := make([]models.AccessKey, 0, input.Count)
	for i := 0; i < input.Count; i++ {
		keys = append(keys, models.AccessKey{
			ID:          uuid.NewString(),
			PollID:      input.PollID,
			MaxUses:     maxUses,
			CurrentUses: 0,
			ExpiresAt:   expiresAt,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	if err := database.DB.CreateInBatches(keys, keyInsertBatchSize).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate access keys"})
		return
	}

	out := make([]GeneratedKey, 0, len(keys))
	for _, k := range keys {
		out = append(out, GeneratedKey{KeyID: k.ID, MaxUses: k.MaxUses, ExpiresAt: k.ExpiresAt})
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Access keys generated successfully",
		"keys":    out,
	})
}

// ListKeys returns the access keys of a poll.
func ListKeys(c *gin.Context) {
	pollID := c.Query("pollId")
	if pollID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pollId is required"})
		return
	}

	var keys []models.AccessKey
	if err := database.DB.Where("poll_id = ?", pollID).
		Order("created_at DESC").Find(&keys).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch access keys"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"keys": keys})
}
