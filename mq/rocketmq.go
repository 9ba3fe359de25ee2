package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"recurring-poll-backend/config"

	"github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/apache/rocketmq-client-go/v2/producer"
)

// TopicVoteEvents is the RocketMQ topic carrying vote events.
const TopicVoteEvents = "vote_events"

// RocketMQ wraps a RocketMQ producer/consumer pair for vote events.
type RocketMQ struct {
	nameServer string
	producer   rocketmq.Producer
	consumer   rocketmq.PushConsumer
}

// NewRocketMQ connects a producer to the name server given by
// ROCKETMQ_NAMESRV_ADDR.
func NewRocketMQ() (*RocketMQ, error) {
	addr := config.GetEnv("ROCKETMQ_NAMESRV_ADDR", "localhost:9876")

	p, err := rocketmq.NewProducer(
		producer.WithNameServer([]string{addr}),
		producer.WithGroupName("poll_vote_producer"),
		producer.WithRetry(2),
	)
	if err != nil {
		return nil, fmt.Errorf("could not create rocketmq producer: %w", err)
	}
	if err := p.Start(); err != nil {
		return nil, fmt.Errorf("could not start rocketmq producer: %w", err)
	}

	log.Printf("RocketMQ producer connected: %s", addr)
	return &RocketMQ{nameServer: addr, producer: p}, nil
}

// Publish sends a vote event to the topic synchronously.
func (m *RocketMQ) Publish(ctx context.Context, ev VoteEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = m.producer.SendSync(ctx, primitive.NewMessage(TopicVoteEvents, body))
	return err
}

// StartConsumer subscribes a push consumer to the vote event topic.
func (m *RocketMQ) StartConsumer(handler Handler) error {
	c, err := rocketmq.NewPushConsumer(
		consumer.WithNameServer([]string{m.nameServer}),
		consumer.WithGroupName("poll_vote_consumer"),
	)
	if err != nil {
		return fmt.Errorf("could not create rocketmq consumer: %w", err)
	}

	err = c.Subscribe(TopicVoteEvents, consumer.MessageSelector{},
		func(ctx context.Context, msgs ...*primitive.MessageExt) (consumer.ConsumeResult, error) {
			for _, msg := range msgs {
				var ev VoteEvent
				if err := json.Unmarshal(msg.Body, &ev); err != nil {
					log.Printf("mq: dropping malformed vote event: %v", err)
					continue
				}
				if err := handler(ev); err != nil {
					log.Printf("mq: vote event handler failed: %v", err)
				}
			}
			return consumer.ConsumeSuccess, nil
		})
	if err != nil {
		return fmt.Errorf("could not subscribe to %s: %w", TopicVoteEvents, err)
	}
	if err := c.Start(); err != nil {
		return fmt.Errorf("could not start rocketmq consumer: %w", err)
	}

	m.consumer = c
	return nil
}

// Stop shuts down the producer and consumer.
func (m *RocketMQ) Stop() {
	if m.consumer != nil {
		_ = m.consumer.Shutdown()
	}
	if m.producer != nil {
		_ = m.producer.Shutdown()
	}
}
