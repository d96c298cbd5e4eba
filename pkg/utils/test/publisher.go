package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/engram/pkg/eventstream"
)

// MockPublisher is a test event publisher that records published events.
type MockPublisher struct {
	// Err, when set, is returned by every Publish call.
	Err error

	mu     sync.Mutex
	events []eventstream.Event
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(_ context.Context, evt eventstream.Event) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return nil
}

// Events returns a copy of everything published so far.
func (m *MockPublisher) Events() []eventstream.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]eventstream.Event, len(m.events))
	copy(out, m.events)
	return out
}

func (m *MockPublisher) Close() error {
	return nil
}

var _ eventstream.Publisher = (*MockPublisher)(nil)
