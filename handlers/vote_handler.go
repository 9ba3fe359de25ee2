package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"recurring-poll-backend/cache"
	"recurring-poll-backend/database"
	"recurring-poll-backend/models"
	"recurring-poll-backend/mq"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoteInput is a ballot submission through an access key.
type VoteInput struct {
	KeyID     string `json:"key_id" binding:"required"`
	PollID    string `json:"poll_id" binding:"required"`
	OptionID  string `json:"option_id" binding:"required"`
	VoterName string `json:"voter_name"`
}

// SubmitVote validates the access key against the poll's active instance and
// records the ballot. A key can vote at most once per instance.
func SubmitVote(c *gin.Context) {
	var input VoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now().UTC()

	var key models.AccessKey
	if err := database.DB.First(&key, "id = ?", input.KeyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Invalid access key"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate access key"})
		return
	}

	if key.PollID != input.PollID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access key not valid for this poll"})
		return
	}
	if key.Expired(now) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access key has expired"})
		return
	}
	if key.UsesRemaining() == 0 {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access key has no remaining uses"})
		return
	}

	var instance models.PollInstance
	err := database.DB.
		Where("poll_id = ? AND status = ?", input.PollID, models.InstanceActive).
		First(&instance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No active poll instance found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch poll instance"})
		return
	}

	var existing models.Vote
	err = database.DB.
		Where("instance_id = ? AND key_id = ?", instance.ID, input.KeyID).
		First(&existing).Error
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "You have already voted in this poll instance"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check existing vote"})
		return
	}

	optionIdx := -1
	for i, opt := range instance.OptionsSnapshot {
		if opt.ID == input.OptionID {
			optionIdx = i
			break
		}
	}
	if optionIdx < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid option ID"})
		return
	}

	vote := models.Vote{
		InstanceID: instance.ID,
		KeyID:      input.KeyID,
		OptionID:   input.OptionID,
		VoterName:  input.VoterName,
		CreatedAt:  now,
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&vote).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.AccessKey{}).Where("id = ?", key.ID).
			Updates(map[string]interface{}{
				"current_uses": gorm.Expr("current_uses + 1"),
				"updated_at":   now,
			}).Error; err != nil {
			return err
		}
		// Re-read the snapshot under a row lock so concurrent votes cannot
		// overwrite each other's counts. The sqlite driver drops the locking
		// clause; its single writer serializes the transaction anyway.
		var locked models.PollInstance
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&locked, "id = ?", instance.ID).Error; err != nil {
			return err
		}
		for i := range locked.OptionsSnapshot {
			if locked.OptionsSnapshot[i].ID == input.OptionID {
				locked.OptionsSnapshot[i].Votes++
				break
			}
		}
		return tx.Model(&models.PollInstance{}).Where("id = ?", instance.ID).
			Select("options_snapshot").
			Updates(models.PollInstance{OptionsSnapshot: locked.OptionsSnapshot}).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record vote"})
		return
	}

	cache.InvalidateResults(c.Request.Context(), instance.ID)

	if publishErr := mqAdapter.Publish(c.Request.Context(), mq.VoteEvent{
		PollID:     input.PollID,
		InstanceID: instance.ID,
		OptionID:   input.OptionID,
		VoterName:  input.VoterName,
		Timestamp:  now.Unix(),
	}); publishErr != nil {
		log.Printf("vote: failed to publish vote event: %v", publishErr)
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":        "Vote recorded successfully",
		"remaining_uses": key.UsesRemaining() - 1,
	})
}

// OptionResult is one option's aggregate in an instance's results.
type OptionResult struct {
	OptionID   string  `json:"option_id"`
	OptionText string  `json:"option_text"`
	Votes      int64   `json:"votes"`
	Percentage float64 `json:"percentage"`
}

// ResultsResponse is the aggregate result of one poll instance.
type ResultsResponse struct {
	InstanceID string         `json:"instance_id"`
	TotalVotes int64          `json:"total_votes"`
	Results    []OptionResult `json:"results"`
}

// GetResults aggregates the votes of one instance by option. Responses are
// briefly cached in Redis to absorb read bursts on live polls.
func GetResults(c *gin.Context) {
	instanceID := c.Param("instanceId")

	if payload, err := cache.GetCachedResults(c.Request.Context(), instanceID); err == nil {
		c.Data(http.StatusOK, "application/json", payload)
		return
	}

	var instance models.PollInstance
	if err := database.DB.First(&instance, "id = ?", instanceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Poll instance not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch poll instance"})
		return
	}

	var votes []models.Vote
	if err := database.DB.Where("instance_id = ?", instanceID).Find(&votes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch votes"})
		return
	}

	counts := make(map[string]int64, len(instance.OptionsSnapshot))
	for _, v := range votes {
		counts[v.OptionID]++
	}
	total := int64(len(votes))

	results := make([]OptionResult, 0, len(instance.OptionsSnapshot))
	for _, opt := range instance.OptionsSnapshot {
		r := OptionResult{
			OptionID:   opt.ID,
			OptionText: opt.Text,
			Votes:      counts[opt.ID],
		}
		if total > 0 {
			r.Percentage = float64(counts[opt.ID]) / float64(total) * 100
		}
		results = append(results, r)
	}

	resp := ResultsResponse{
		InstanceID: instanceID,
		TotalVotes: total,
		Results:    results,
	}

	if payload, err := json.Marshal(resp); err == nil {
		if cacheErr := cache.CacheResults(c.Request.Context(), instanceID, payload); cacheErr != nil && !errors.Is(cacheErr, cache.ErrRedisNotAvailable) {
			log.Printf("results: failed to cache results for %s: %v", instanceID, cacheErr)
		}
	}

	c.JSON(http.StatusOK, resp)
}
