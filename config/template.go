package config

import (
	"bytes"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/byteness/detective-graph-config/validate"
)

// TemplateID identifies a starter configuration.
type TemplateID string

const (
	// TemplateGraphOnly turns on auto-enable without registering an administrator.
	TemplateGraphOnly TemplateID = "graph-only"
	// TemplateDelegatedAdmin registers a fixed delegated administrator.
	TemplateDelegatedAdmin TemplateID = "delegated-admin"
	// TemplateFull reads the administrator from SSM and publishes notifications.
	TemplateFull TemplateID = "full"
)

// IsValid returns true if the TemplateID is a known value.
func (t TemplateID) IsValid() bool {
	switch t {
	case TemplateGraphOnly, TemplateDelegatedAdmin, TemplateFull:
		return true
	}
	return false
}

// String returns the string representation of the TemplateID.
func (t TemplateID) String() string {
	return string(t)
}

// AllTemplateIDs returns all valid template ID values.
func AllTemplateIDs() []TemplateID {
	return []TemplateID{TemplateGraphOnly, TemplateDelegatedAdmin, TemplateFull}
}

// TemplateInput holds the values substituted into a template.
type TemplateInput struct {
	Region         string
	OrganizationID string
	AdminAccountID string
	// The remaining fields are used by TemplateFull.
	AdminAccountParameter string
	NotifyTopicArn        string
	MetricNamespace       string
}

// GenerateTemplate renders the starter configuration id as YAML.
func GenerateTemplate(id TemplateID, in TemplateInput) (string, error) {
	if !id.IsValid() {
		return "", fmt.Errorf("invalid template ID: %s", id)
	}
	if err := validate.ValidateRegion(in.Region); err != nil {
		return "", fmt.Errorf("region: %w", err)
	}
	if id == TemplateDelegatedAdmin && in.AdminAccountID == "" {
		return "", fmt.Errorf("an admin account id is required for the %s template", id)
	}

	cfg := Config{
		Version:        CurrentVersion,
		Region:         in.Region,
		OrganizationID: in.OrganizationID,
		Stack: StackConfig{
			LogRetentionInDays: DefaultLogRetentionInDays,
			Graphs:             []GraphConfig{{ID: DefaultGraphID}},
		},
	}

	switch id {
	case TemplateDelegatedAdmin:
		cfg.AdminAccountID = in.AdminAccountID
	case TemplateFull:
		cfg.AdminAccountID = in.AdminAccountID
		cfg.Stack.AdminAccountParameter = in.AdminAccountParameter
		if cfg.Stack.AdminAccountParameter == "" {
			cfg.Stack.AdminAccountParameter = "/org/security/detective-admin-account"
		}
		cfg.Stack.NotifyTopicArn = in.NotifyTopicArn
		cfg.Stack.MetricNamespace = in.MetricNamespace
		if cfg.Stack.MetricNamespace == "" {
			cfg.Stack.MetricNamespace = DefaultMetricNamespace
		}
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# Detective graph configuration (%s)\n", id)
	fmt.Fprintf(&buf, "# Generated: %s\n", time.Now().UTC().Format(time.RFC3339))
	buf.WriteString("# Validate with: detective-graph config validate <file>\n\n")

	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
