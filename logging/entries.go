package logging

import (
	"time"
)

// Enablement operations.
const (
	OperationEnable  = "enable"
	OperationDisable = "disable"
)

// Lifecycle outcomes.
const (
	OutcomeSuccess = "SUCCESS"
	OutcomeFailed  = "FAILED"
)

// EnablementLogEntry captures the outcome of a delegated-administrator change.
type EnablementLogEntry struct {
	Timestamp        string   `json:"timestamp"`                 // RFC3339, UTC
	Operation        string   `json:"operation"`                 // "enable" or "disable"
	OrganizationID   string   `json:"organization_id,omitempty"` // Requested org id, if any
	ServicePrincipal string   `json:"service_principal"`
	AdminAccountID   string   `json:"admin_account_id"`
	Region           string   `json:"region"`
	Status           string   `json:"status"`
	Reason           string   `json:"reason,omitempty"`
	Actions          []string `json:"actions,omitempty"` // Mutating API calls performed
	ErrorCode        string   `json:"error_code,omitempty"`
	Error            string   `json:"error,omitempty"`
}

// NewEnablementLogEntry creates an EnablementLogEntry stamped with the current time.
func NewEnablementLogEntry(operation, organizationID, servicePrincipal, adminAccountID, region string) EnablementLogEntry {
	return EnablementLogEntry{
		Timestamp:        now(),
		Operation:        operation,
		OrganizationID:   organizationID,
		ServicePrincipal: servicePrincipal,
		AdminAccountID:   adminAccountID,
		Region:           region,
	}
}

// LifecycleLogEntry captures one custom-resource lifecycle event.
type LifecycleLogEntry struct {
	Timestamp          string `json:"timestamp"`
	RequestType        string `json:"request_type"` // Create, Update or Delete
	RequestID          string `json:"request_id"`
	StackID            string `json:"stack_id,omitempty"`
	LogicalResourceID  string `json:"logical_resource_id,omitempty"`
	PhysicalResourceID string `json:"physical_resource_id,omitempty"`
	Region             string `json:"region,omitempty"`
	Outcome            string `json:"outcome"`
	GraphArn           string `json:"graph_arn,omitempty"`
	MemberCount        int    `json:"member_count,omitempty"`
	DurationMS         int64  `json:"duration_ms"`
	ErrorCode          string `json:"error_code,omitempty"`
	Error              string `json:"error,omitempty"`
}

// NewLifecycleLogEntry creates a LifecycleLogEntry stamped with the current time.
func NewLifecycleLogEntry(requestType, requestID, stackID, logicalResourceID string) LifecycleLogEntry {
	return LifecycleLogEntry{
		Timestamp:         now(),
		RequestType:       requestType,
		RequestID:         requestID,
		StackID:           stackID,
		LogicalResourceID: logicalResourceID,
	}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
