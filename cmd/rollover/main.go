// Command rollover performs one daily rollover pass and exits, for
// invocation by an external scheduler such as cron. A non-zero exit signals
// the run failed and should be retried by the scheduler.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"recurring-poll-backend/cache"
	"recurring-poll-backend/config"
	"recurring-poll-backend/database"
	"recurring-poll-backend/repository"
	"recurring-poll-backend/rollover"
)

const rolloverLockName = "rollover:daily"

func main() {
	config.LoadEnv()

	if err := database.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	run := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		engine := rollover.New(repository.NewGormStore(database.DB))
		result, err := engine.Run(ctx, time.Now().UTC())
		if err != nil {
			return err
		}
		log.Printf("Rollover complete: closed=%d activated=%d created=%d",
			result.Closed, result.Activated, result.Created)
		return nil
	}

	// When Redis is reachable, hold the daily lock so a retried or
	// overlapping invocation cannot race this one.
	if err := cache.InitRedis(); err == nil {
		lockService, err := cache.NewLockService()
		if err == nil {
			err = lockService.WithLock(rolloverLockName, 10*time.Minute, run)
			if errors.Is(err, cache.ErrLockNotAcquired) {
				log.Println("Rollover skipped: another invocation holds the lock")
				return
			}
			if err != nil {
				log.Printf("Rollover failed: %v", err)
				os.Exit(1)
			}
			return
		}
	}

	if err := run(); err != nil {
		log.Printf("Rollover failed: %v", err)
		os.Exit(1)
	}
}
