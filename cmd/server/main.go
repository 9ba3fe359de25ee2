package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recurring-poll-backend/auth"
	"recurring-poll-backend/cache"
	"recurring-poll-backend/config"
	"recurring-poll-backend/database"
	"recurring-poll-backend/handlers"
	"recurring-poll-backend/mq"
	"recurring-poll-backend/repository"
	"recurring-poll-backend/rollover"
	"recurring-poll-backend/routes"
)

// rolloverLockName guards the scheduled rollover so overlapping instances of
// the service cannot run the engine concurrently.
const rolloverLockName = "rollover:daily"

func main() {
	config.LoadEnv()

	if err := database.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if err := cache.InitRedis(); err != nil {
		log.Printf("Warning: Redis unavailable, cache/lock/mq disabled: %v", err)
	}

	mqAdapter := mq.NewAdapter()
	if err := mqAdapter.Initialize(); err != nil {
		log.Printf("Warning: message queue disabled: %v", err)
	}
	if err := mqAdapter.StartConsumer(handlers.BroadcastVoteUpdate); err != nil {
		log.Printf("Warning: failed to start vote event consumer: %v", err)
	}
	handlers.InitHandlers(mqAdapter)

	verifier := auth.NewJWTVerifierFromEnv()
	router := routes.SetupRouter(verifier)
	srv := routes.StartServer(router)

	stopScheduler := startRolloverScheduler()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	close(stopScheduler)
	mqAdapter.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Server stopped")
}

// startRolloverScheduler periodically runs the rollover engine. The check
// interval defaults to one hour; the engine's own transitions are idempotent
// so running more often than daily is harmless.
func startRolloverScheduler() chan struct{} {
	stop := make(chan struct{})
	interval := config.GetEnvDuration("ROLLOVER_CHECK_INTERVAL", time.Hour)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				runScheduledRollover()
			}
		}
	}()

	return stop
}

func runScheduledRollover() {
	engine := rollover.New(repository.NewGormStore(database.DB))
	run := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		result, err := engine.Run(ctx, time.Now().UTC())
		if err != nil {
			return err
		}
		log.Printf("Rollover complete: closed=%d activated=%d created=%d",
			result.Closed, result.Activated, result.Created)
		return nil
	}

	if lockService, err := cache.NewLockService(); err == nil {
		err := lockService.WithLock(rolloverLockName, 10*time.Minute, run)
		if errors.Is(err, cache.ErrLockNotAcquired) {
			log.Println("Rollover skipped: another instance holds the lock")
			return
		}
		if err != nil {
			log.Printf("Rollover failed: %v", err)
		}
		return
	}

	// No Redis: single-instance deployment, run unguarded.
	if err := run(); err != nil {
		log.Printf("Rollover failed: %v", err)
	}
}
