package events

import "context"

// NoopBus drops published events. Used when EVENTS_PROVIDER=none.
type NoopBus struct{}

func NewNoopBus() *NoopBus {
	return &NoopBus{}
}

func (NoopBus) Publish(context.Context, Event) error { return nil }

// Subscribe blocks until ctx is done; nothing is ever delivered.
func (NoopBus) Subscribe(ctx context.Context, _ EventType, _ Handler) error {
	<-ctx.Done()
	return nil
}
