package cache

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"recurring-poll-backend/config"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRedisNotAvailable is returned when no Redis connection was
	// established. Callers treat the cache as a best-effort layer.
	ErrRedisNotAvailable = errors.New("redis not available")

	redisClient *redis.Client
	initOnce    sync.Once
)

// InitRedis establishes the Redis connection from the environment. Failure is
// not fatal to the application: the results cache, the distributed lock and
// the Redis message queue all degrade to disabled.
func InitRedis() error {
	var initErr error

	initOnce.Do(func() {
		addr := config.GetEnv("REDIS_ADDR", "localhost:6379")
		password := config.GetEnv("REDIS_PASSWORD", "")
		db := config.GetEnvInt("REDIS_DB", 0)

		client := redis.NewClient(&redis.Options{
			Addr:        addr,
			Password:    password,
			DB:          db,
			DialTimeout: 5 * time.Second,
			ReadTimeout: 5 * time.Second,
			PoolSize:    20,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if _, err := client.Ping(ctx).Result(); err != nil {
			initErr = err
			return
		}

		redisClient = client
		log.Printf("Redis connection established: %s", addr)
	})

	return initErr
}

// GetClient returns the shared Redis client.
func GetClient() (*redis.Client, error) {
	if redisClient == nil {
		return nil, ErrRedisNotAvailable
	}
	return redisClient, nil
}

// Available reports whether Redis was successfully initialized.
func Available() bool {
	return redisClient != nil
}
