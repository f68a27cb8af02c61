package events

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockBus is a mock implementation of Bus using testify/mock.
type MockBus struct {
	mock.Mock
}

func (m *MockBus) Publish(ctx context.Context, ev Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func (m *MockBus) Subscribe(ctx context.Context, eventType EventType, handler Handler) error {
	args := m.Called(ctx, eventType, handler)
	return args.Error(0)
}
