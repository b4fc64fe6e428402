package notify

import "context"

// NoopPublisher drops every event. Used when no event stream is configured.
type NoopPublisher struct{}

var _ Publisher = (*NoopPublisher)(nil)

func (NoopPublisher) Publish(ctx context.Context, event OrderEvent) error { return nil }

func (NoopPublisher) Close() {}

// MockPublisher records published events for test assertions.
type MockPublisher struct {
	// PublishFunc allows customizing publish behavior
	PublishFunc func(ctx context.Context, event OrderEvent) error

	// Events stores every published event in order
	Events []OrderEvent
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{Events: []OrderEvent{}}
}

var _ Publisher = (*MockPublisher)(nil)

func (m *MockPublisher) Publish(ctx context.Context, event OrderEvent) error {
	m.Events = append(m.Events, event)
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, event)
	}
	return nil
}

func (m *MockPublisher) Close() {}
