package testutil

import (
	"context"
	"sync"

	"github.com/byteness/detective-graph-config/logging"
	"github.com/byteness/detective-graph-config/notification"
)

// MockLogger records log entries for assertions.
type MockLogger struct {
	mu sync.Mutex

	EnablementEntries []logging.EnablementLogEntry
	LifecycleEntries  []logging.LifecycleLogEntry
}

// LogEnablement records the entry.
func (m *MockLogger) LogEnablement(entry logging.EnablementLogEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EnablementEntries = append(m.EnablementEntries, entry)
}

// LogLifecycle records the entry.
func (m *MockLogger) LogLifecycle(entry logging.LifecycleLogEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LifecycleEntries = append(m.LifecycleEntries, entry)
}

// LastEnablement returns the most recent enablement entry.
func (m *MockLogger) LastEnablement() (logging.EnablementLogEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.EnablementEntries) == 0 {
		return logging.EnablementLogEntry{}, false
	}
	return m.EnablementEntries[len(m.EnablementEntries)-1], true
}

// MockNotifier records notification events.
type MockNotifier struct {
	mu sync.Mutex

	NotifyFunc func(ctx context.Context, event *notification.Event) error
	Events     []*notification.Event
}

// Notify records the event and calls NotifyFunc if set.
func (m *MockNotifier) Notify(ctx context.Context, event *notification.Event) error {
	m.mu.Lock()
	m.Events = append(m.Events, event)
	m.mu.Unlock()

	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, event)
	}
	return nil
}

// EventTypes returns the recorded event types in order.
func (m *MockNotifier) EventTypes() []notification.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]notification.EventType, 0, len(m.Events))
	for _, e := range m.Events {
		types = append(types, e.Type)
	}
	return types
}
