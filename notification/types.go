// Package notification publishes DetectiveGraphConfig lifecycle outcomes so
// that security teams learn when a delegated administrator is registered,
// removed, or fails to configure.
//
// # Event Types
//
//   - graphconfig.created: the resource was created and the graph configured
//   - graphconfig.updated: the resource was updated
//   - graphconfig.deleted: the resource was deleted and auto-enable turned off
//   - graphconfig.failed: a lifecycle event failed
package notification

import (
	"time"
)

// EventType represents the type of notification event.
type EventType string

const (
	// EventCreated is emitted after a successful Create.
	EventCreated EventType = "graphconfig.created"
	// EventUpdated is emitted after a successful Update.
	EventUpdated EventType = "graphconfig.updated"
	// EventDeleted is emitted after a Delete, including best-effort failures.
	EventDeleted EventType = "graphconfig.deleted"
	// EventFailed is emitted when Create or Update fails.
	EventFailed EventType = "graphconfig.failed"
)

// IsValid returns true if the EventType is a known value.
func (t EventType) IsValid() bool {
	switch t {
	case EventCreated, EventUpdated, EventDeleted, EventFailed:
		return true
	}
	return false
}

// String returns the string representation of the EventType.
func (t EventType) String() string {
	return string(t)
}

// Event describes one lifecycle outcome.
type Event struct {
	Type               EventType `json:"type"`
	StackID            string    `json:"stack_id,omitempty"`
	LogicalResourceID  string    `json:"logical_resource_id,omitempty"`
	PhysicalResourceID string    `json:"physical_resource_id,omitempty"`
	Region             string    `json:"region"`
	ServicePrincipal   string    `json:"service_principal,omitempty"`
	AdminAccountID     string    `json:"admin_account_id,omitempty"`
	Status             string    `json:"status,omitempty"` // enablement status
	GraphArn           string    `json:"graph_arn,omitempty"`
	ErrorCode          string    `json:"error_code,omitempty"`
	Message            string    `json:"message,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
}

// NewEvent creates a new notification event stamped with the current time.
func NewEvent(eventType EventType, region string) *Event {
	return &Event{
		Type:      eventType,
		Region:    region,
		Timestamp: time.Now(),
	}
}
