package mq

import (
	"context"
	"fmt"
	"log"
	"sync"

	"recurring-poll-backend/cache"
	"recurring-poll-backend/config"
)

// Adapter selects a vote event transport by MQ_DRIVER: "rocketmq" for a
// RocketMQ cluster, anything else for the Redis list queue. When neither
// backend is reachable the adapter stays disabled and Publish is a no-op, so
// voting keeps working without live updates.
type Adapter struct {
	rocket   *RocketMQ
	redisMQ  *RedisMQ
	initOnce sync.Once
	enabled  bool
}

func NewAdapter() *Adapter {
	return &Adapter{}
}

// Initialize picks and connects the backend. Returns the connection error,
// but the adapter itself remains usable (disabled) afterwards.
func (a *Adapter) Initialize() error {
	var initErr error

	a.initOnce.Do(func() {
		if config.GetEnv("MQ_DRIVER", "redis") == "rocketmq" {
			rocket, err := NewRocketMQ()
			if err != nil {
				initErr = err
				return
			}
			a.rocket = rocket
			a.enabled = true
			return
		}

		client, err := cache.GetClient()
		if err != nil {
			initErr = fmt.Errorf("redis mq unavailable: %w", err)
			return
		}
		a.redisMQ = NewRedisMQ(client)
		a.enabled = true
		log.Println("Redis MQ initialized")
	})

	return initErr
}

// Publish sends a vote event through the configured backend, best effort.
func (a *Adapter) Publish(ctx context.Context, ev VoteEvent) error {
	if a == nil || !a.enabled {
		return nil
	}
	if a.rocket != nil {
		return a.rocket.Publish(ctx, ev)
	}
	return a.redisMQ.Publish(ctx, ev)
}

// StartConsumer registers the handler with the configured backend.
func (a *Adapter) StartConsumer(handler Handler) error {
	if a == nil || !a.enabled {
		return nil
	}
	if a.rocket != nil {
		return a.rocket.StartConsumer(handler)
	}
	a.redisMQ.StartConsumer(handler)
	return nil
}

// Close shuts down the active backend.
func (a *Adapter) Close() {
	if a == nil || !a.enabled {
		return
	}
	if a.rocket != nil {
		a.rocket.Stop()
		return
	}
	a.redisMQ.Stop()
}
