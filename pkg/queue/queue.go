package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Enqueuer hands work to background workers and returns the message id.
type Enqueuer interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) (string, error)
}

// Config contains the worker and retry settings.
type Config struct {
	Workers    int           // number of workers
	RetryLimit int           // retries before a message goes to the dead-letter list
	RetryDelay time.Duration // delay between retries
}

// Message is the envelope stored in Redis.
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	Timestamp time.Time       `json:"timestamp"`
}

// Decode unmarshals a message payload into T.
func Decode[T any](payload json.RawMessage) (*T, error) {
	var result T
	if len(payload) == 0 {
		return &result, nil
	}
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &result, nil
}
