package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates published event categories.
type EventType string

const (
	TypeRunCompleted EventType = "run.completed"
)

// Event is an envelope shared by publishers and subscribers.
type Event struct {
	ID         uuid.UUID
	Type       EventType
	Payload    []byte
	OccurredAt time.Time
}

// RunCompleted describes one finished generation run. It never carries the
// credential.
type RunCompleted struct {
	RunID       uuid.UUID `json:"run_id"`
	StartPage   int       `json:"start_page"`
	EndPage     int       `json:"end_page"`
	Count       int       `json:"count"`
	Succeeded   int       `json:"succeeded"`
	Failed      int       `json:"failed"`
	OutputPath  string    `json:"output_path"`
	CompletedAt time.Time `json:"completed_at"`
}

type Handler func(context.Context, Event) error

// Bus exposes a minimal contract to publish and consume events.
type Bus interface {
	Publish(ctx context.Context, ev Event) error
	Subscribe(ctx context.Context, eventType EventType, handler Handler) error
}

// NewRunCompleted wraps a RunCompleted payload in an Event.
func NewRunCompleted(rc RunCompleted) (Event, error) {
	body, err := json.Marshal(rc)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:         uuid.New(),
		Type:       TypeRunCompleted,
		Payload:    body,
		OccurredAt: rc.CompletedAt,
	}, nil
}

// PublishWithRetry attempts to publish with retries and exponential backoff.
func PublishWithRetry(ctx context.Context, b Bus, ev Event, attempts int, base time.Duration) error {
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if err := b.Publish(ctx, ev); err == nil {
			return nil
		} else if attempt == attempts-1 {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff(attempt, base)):
		}
	}
	return nil
}
