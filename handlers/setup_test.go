package handlers

import (
	"log"
	"testing"

	"recurring-poll-backend/auth"
	"recurring-poll-backend/database"
	"recurring-poll-backend/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testJWTSecret = "handlers-test-secret"

// SetupTestEnvironment sets up the Gin router and in-memory SQLite database for testing.
func SetupTestEnvironment(t *testing.T) (*gin.Engine, *gorm.DB) {
	testing.Init()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		// Silence GORM logger for tests unless needed
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("Failed to connect to in-memory database: %v", err)
	}

	// Handlers read the package-level DB, so tests assign it directly.
	database.DB = db

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	t.Cleanup(func() {
		sqlDB, _ := database.DB.DB()
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	})

	router := gin.Default()
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	router.Use(cors.New(config))

	verifier := auth.NewJWTVerifier([]byte(testJWTSecret))

	// Same routes as routes.SetupRouter, minus the WebSocket endpoint
	api := router.Group("/api")
	{
		api.GET("/polls", GetPolls)
		api.GET("/polls/:id", GetPoll)
		api.POST("/vote", SubmitVote)
		api.GET("/results/:instanceId", GetResults)
		api.POST("/suggestions", SubmitSuggestion)
	}
	admin := router.Group("/api/admin")
	admin.Use(AdminAuth(verifier))
	{
		admin.POST("/polls", CreatePoll)
		admin.PUT("/polls/:id", UpdatePoll)
		admin.DELETE("/polls/:id", DeletePoll)
		admin.GET("/suggestions", ListSuggestions)
		admin.PUT("/suggestions", ReviewSuggestion)
		admin.POST("/keys", GenerateKeys)
		admin.GET("/keys", ListKeys)
		admin.POST("/instances", ManageInstance)
	}

	return router, db
}

// AdminToken signs a token the test router's admin group accepts.
func AdminToken(t *testing.T) string {
	token, err := auth.GenerateToken([]byte(testJWTSecret), "test-admin", "admin")
	if err != nil {
		t.Fatalf("Failed to sign admin token: %v", err)
	}
	return token
}

func authTokenForRole(role string) (string, error) {
	return auth.GenerateToken([]byte(testJWTSecret), "test-user", role)
}

// Helper function to clear tables between tests
func ClearTables(db *gorm.DB) {
	session := db.Session(&gorm.Session{AllowGlobalUpdate: true})
	session.Delete(&models.Vote{})
	session.Delete(&models.AccessKey{})
	session.Delete(&models.Suggestion{})
	session.Delete(&models.PollInstance{})
	session.Delete(&models.Poll{})
}
