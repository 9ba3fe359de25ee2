package mq

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// VoteQueueName is the Redis list backing the vote event queue.
const VoteQueueName = "poll_vote_events"

// RedisMQ is a minimal list-backed message queue over Redis, used when no
// RocketMQ cluster is configured.
type RedisMQ struct {
	client   *redis.Client
	handler  Handler
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

func NewRedisMQ(client *redis.Client) *RedisMQ {
	return &RedisMQ{
		client:   client,
		stopChan: make(chan struct{}),
	}
}

// Publish pushes a vote event onto the queue.
func (r *RedisMQ) Publish(ctx context.Context, ev VoteEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.client.LPush(ctx, VoteQueueName, body).Err()
}

// StartConsumer begins draining the queue in a background goroutine.
func (r *RedisMQ) StartConsumer(handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.handler = handler
	r.running = true

	r.wg.Add(1)
	go r.consumeLoop()
}

func (r *RedisMQ) consumeLoop() {
	defer r.wg.Done()
	ctx := context.Background()

	for {
		select {
		case <-r.stopChan:
			return
		default:
		}

		vals, err := r.client.BRPop(ctx, 2*time.Second, VoteQueueName).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				log.Printf("mq: redis consume error: %v", err)
				time.Sleep(time.Second)
			}
			continue
		}
		// BRPop returns [key, value].
		if len(vals) < 2 {
			continue
		}

		var ev VoteEvent
		if err := json.Unmarshal([]byte(vals[1]), &ev); err != nil {
			log.Printf("mq: dropping malformed vote event: %v", err)
			continue
		}
		if err := r.handler(ev); err != nil {
			log.Printf("mq: vote event handler failed: %v", err)
		}
	}
}

// Stop shuts down the consumer and waits for the loop to exit.
func (r *RedisMQ) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	close(r.stopChan)
	r.wg.Wait()
	r.running = false
}
