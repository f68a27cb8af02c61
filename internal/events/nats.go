package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const subjectPrefix = "pdfq.events."

// NewNATS constructs a thin NATS-based bus.
func NewNATS(log *slog.Logger, nc *nats.Conn) Bus {
	return &natsBus{log: log, nc: nc}
}

type natsBus struct {
	log *slog.Logger
	nc  *nats.Conn
}

func subject(t EventType) string {
	return subjectPrefix + string(t)
}

func (b *natsBus) Publish(_ context.Context, ev Event) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.Type == "" {
		return errors.New("event type required")
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.nc.Publish(subject(ev.Type), body)
}

func (b *natsBus) Subscribe(ctx context.Context, eventType EventType, handler Handler) error {
	sub, err := b.nc.Subscribe(subject(eventType), func(msg *nats.Msg) {
		b.handleMessage(ctx, msg, handler)
	})
	if err != nil {
		return err
	}
	<-ctx.Done()
	return sub.Unsubscribe()
}

func (b *natsBus) handleMessage(ctx context.Context, msg *nats.Msg, handler Handler) {
	var ev Event
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		b.log.Error("failed to decode event", "err", err, "subject", msg.Subject)
		return
	}
	if err := handler(ctx, ev); err != nil {
		b.log.Error("event handler failed", "id", ev.ID, "type", ev.Type, "err", err)
	}
}
