package handlers

import (
	"net/http"
	"time"

	"recurring-poll-backend/database"
	"recurring-poll-backend/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ManageInstanceInput is an admin operation on a single poll instance.
type ManageInstanceInput struct {
	PollID     string `json:"poll_id" binding:"required"`
	InstanceID string `json:"instance_id" binding:"required"`
	Operation  string `json:"operation" binding:"required,oneof=close reopen delete"`
}

// ManageInstance closes, reopens, or deletes one instance. Deleting cascades
// to the instance's votes.
func ManageInstance(c *gin.Context) {
	var input ManageInstanceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now().UTC()

	switch input.Operation {
	case "close":
		res := database.DB.Model(&models.PollInstance{}).
			Where("id = ? AND poll_id = ?", input.InstanceID, input.PollID).
			Updates(map[string]interface{}{
				"status":    models.InstanceClosed,
				"closed_at": now,
			})
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to close instance"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Instance not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Instance closed successfully"})

	case "reopen":
		res := database.DB.Model(&models.PollInstance{}).
			Where("id = ? AND poll_id = ?", input.InstanceID, input.PollID).
			Updates(map[string]interface{}{
				"status":    models.InstanceActive,
				"closed_at": nil,
			})
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reopen instance"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Instance not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Instance reopened successfully"})

	case "delete":
		err := database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("instance_id = ?", input.InstanceID).
				Delete(&models.Vote{}).Error; err != nil {
				return err
			}
			return tx.Where("id = ? AND poll_id = ?", input.InstanceID, input.PollID).
				Delete(&models.PollInstance{}).Error
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete instance"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Instance deleted successfully"})
	}
}
