package handlers

import (
	"net/http"
	"time"

	"recurring-poll-backend/database"
	"recurring-poll-backend/repository"
	"recurring-poll-backend/rollover"

	"github.com/gin-gonic/gin"
)

// RunRollover triggers the daily rollover engine out of schedule, for
// operational use. The scheduled path lives in cmd/server and cmd/rollover.
func RunRollover(c *gin.Context) {
	engine := rollover.New(repository.NewGormStore(database.DB))

	result, err := engine.Run(c.Request.Context(), time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}
