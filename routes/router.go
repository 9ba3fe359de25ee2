package routes

import (
	"log"
	"net/http"
	"time"

	"recurring-poll-backend/auth"
	"recurring-poll-backend/config"
	"recurring-poll-backend/handlers"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Server wraps the HTTP server for graceful shutdown.
type Server struct {
	*http.Server
}

// SetupRouter configures the Gin router: public poll/vote endpoints and the
// admin group guarded by bearer-token auth.
func SetupRouter(verifier auth.Verifier) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	handlers.InitRateLimiters()
	handlers.GlobalHub.Run()

	api := router.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)
		api.GET("/status", handlers.SystemStatus)

		api.GET("/polls", handlers.GetPolls)
		api.GET("/polls/:id", handlers.GetPoll)

		api.POST("/vote", handlers.VoteRateLimit(), handlers.SubmitVote)
		api.GET("/results/:instanceId", handlers.GetResults)
		api.GET("/instances/:id/ws", handlers.HandleInstanceWS)

		api.POST("/suggestions", handlers.SubmitSuggestion)

		admin := api.Group("/admin")
		admin.Use(handlers.AdminAuth(verifier))
		{
			admin.POST("/polls", handlers.CreatePoll)
			admin.PUT("/polls/:id", handlers.UpdatePoll)
			admin.DELETE("/polls/:id", handlers.DeletePoll)

			admin.GET("/suggestions", handlers.ListSuggestions)
			admin.PUT("/suggestions", handlers.ReviewSuggestion)

			admin.POST("/keys", handlers.GenerateKeys)
			admin.GET("/keys", handlers.ListKeys)

			admin.POST("/instances", handlers.ManageInstance)
			admin.POST("/rollover/run", handlers.RunRollover)
		}
	}

	return router
}

// StartServer starts the HTTP server on SERVER_PORT (default 8090) in a
// background goroutine.
func StartServer(router *gin.Engine) *Server {
	addr := ":" + config.GetEnv("SERVER_PORT", "8090")

	srv := &Server{
		&http.Server{
			Addr:    addr,
			Handler: router,
		},
	}

	go func() {
		log.Printf("Server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	return srv
}
