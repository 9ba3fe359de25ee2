package handlers

import (
	"log"

	"recurring-poll-backend/mq"
)

// Shared message queue adapter, set once at startup. Nil-safe: handlers skip
// event publishing when no queue is configured.
var mqAdapter *mq.Adapter

// InitHandlers wires the message queue adapter into the handler package.
func InitHandlers(adapter *mq.Adapter) {
	mqAdapter = adapter
	if adapter != nil {
		log.Println("Message queue adapter attached to handlers")
	}
}
