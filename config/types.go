// Package config loads and validates the detective-graph CLI configuration:
// the organization the delegated administrator is registered in and the
// stack the DetectiveGraphConfig resources are synthesized into.
package config

import (
	"github.com/byteness/detective-graph-config/enablement"
	"github.com/byteness/detective-graph-config/permissions"
)

// CurrentVersion is the configuration schema version.
const CurrentVersion = "1"

// Defaults applied by WithDefaults.
const (
	DefaultKeyID              = "CustomKey"
	DefaultGraphID            = "DetectiveGraphConfig"
	DefaultLogRetentionInDays = 365
	DefaultStackDescription   = "Amazon Detective delegated administrator and behavior graph configuration"
)

// DefaultMetricNamespace is what the full starter template enables.
const DefaultMetricNamespace = "DetectiveGraphConfig"

// Config is the CLI configuration file.
type Config struct {
	Version string `yaml:"version" json:"version"`
	Region  string `yaml:"region" json:"region"`

	// ServicePrincipal the execution role policy is scoped to.
	ServicePrincipal string `yaml:"service_principal,omitempty" json:"service_principal,omitempty"`
	OrganizationID   string `yaml:"organization_id,omitempty" json:"organization_id,omitempty"`
	// AdminAccountID is the default delegated administrator for graphs that
	// do not name their own.
	AdminAccountID string `yaml:"admin_account_id,omitempty" json:"admin_account_id,omitempty"`

	Stack StackConfig `yaml:"stack" json:"stack"`
}

// StackConfig describes the synthesized stack.
type StackConfig struct {
	Description        string `yaml:"description,omitempty" json:"description,omitempty"`
	KeyID              string `yaml:"key_id,omitempty" json:"key_id,omitempty"`
	LogRetentionInDays int    `yaml:"log_retention_in_days,omitempty" json:"log_retention_in_days,omitempty"`
	HandlerAssetKey    string `yaml:"handler_asset_key,omitempty" json:"handler_asset_key,omitempty"`

	// AdminAccountParameter names the SSM parameter the handler falls back to.
	AdminAccountParameter string `yaml:"admin_account_parameter,omitempty" json:"admin_account_parameter,omitempty"`
	NotifyTopicArn        string `yaml:"notify_topic_arn,omitempty" json:"notify_topic_arn,omitempty"`
	MetricNamespace       string `yaml:"metric_namespace,omitempty" json:"metric_namespace,omitempty"`
	// Tracing turns on active X-Ray tracing for the handler.
	Tracing bool `yaml:"tracing,omitempty" json:"tracing,omitempty"`

	Graphs []GraphConfig `yaml:"graphs,omitempty" json:"graphs,omitempty"`
}

// GraphConfig is one DetectiveGraphConfig resource.
type GraphConfig struct {
	ID             string `yaml:"id" json:"id"`
	AdminAccountID string `yaml:"admin_account_id,omitempty" json:"admin_account_id,omitempty"`
}

// WithDefaults returns a copy of c with unset fields defaulted. A stack
// without graphs gets a single DetectiveGraphConfig.
func (c Config) WithDefaults() Config {
	if c.Version == "" {
		c.Version = CurrentVersion
	}
	if c.ServicePrincipal == "" {
		c.ServicePrincipal = permissions.DefaultServicePrincipal
	}
	if c.Stack.Description == "" {
		c.Stack.Description = DefaultStackDescription
	}
	if c.Stack.KeyID == "" {
		c.Stack.KeyID = DefaultKeyID
	}
	if c.Stack.LogRetentionInDays == 0 {
		c.Stack.LogRetentionInDays = DefaultLogRetentionInDays
	}
	if len(c.Stack.Graphs) == 0 {
		c.Stack.Graphs = []GraphConfig{{ID: DefaultGraphID}}
	} else {
		c.Stack.Graphs = append([]GraphConfig(nil), c.Stack.Graphs...)
	}
	for i := range c.Stack.Graphs {
		if c.Stack.Graphs[i].AdminAccountID == "" {
			c.Stack.Graphs[i].AdminAccountID = c.AdminAccountID
		}
	}
	return c
}

// Request returns the enablement request for adminAccountID, or for the
// configured default administrator when adminAccountID is empty.
func (c Config) Request(adminAccountID string) enablement.Request {
	if adminAccountID == "" {
		adminAccountID = c.AdminAccountID
	}
	return enablement.Request{
		OrganizationID: c.OrganizationID,
		ServiceName:    c.ServicePrincipal,
		AdminAccountID: adminAccountID,
		Region:         c.Region,
	}
}

// IssueSeverity indicates the severity of a validation issue.
type IssueSeverity string

const (
	// SeverityError indicates a problem that blocks loading/usage.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a suspicious pattern but works.
	SeverityWarning IssueSeverity = "warning"
)

// ValidationIssue represents a single validation problem.
type ValidationIssue struct {
	Severity   IssueSeverity `json:"severity"`
	Location   string        `json:"location"` // e.g., "stack.graphs[0].id"
	Message    string        `json:"message"`
	Suggestion string        `json:"suggestion,omitempty"`
}

// ValidationResult contains all validation findings for a single file.
type ValidationResult struct {
	Source string            `json:"source"`
	Valid  bool              `json:"valid"` // True if no errors (warnings OK)
	Issues []ValidationIssue `json:"issues"`
}

// ResultSummary provides aggregate counts.
type ResultSummary struct {
	Total    int `json:"total"`
	Valid    int `json:"valid"`
	Invalid  int `json:"invalid"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
}

// Compute populates the summary from a list of results.
func (s *ResultSummary) Compute(results []ValidationResult) {
	*s = ResultSummary{Total: len(results)}
	for _, r := range results {
		if r.Valid {
			s.Valid++
		} else {
			s.Invalid++
		}
		for _, issue := range r.Issues {
			switch issue.Severity {
			case SeverityError:
				s.Errors++
			case SeverityWarning:
				s.Warnings++
			}
		}
	}
}
