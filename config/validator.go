package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/byteness/detective-graph-config/infrastructure"
	"github.com/byteness/detective-graph-config/notification"
	"github.com/byteness/detective-graph-config/permissions"
	"github.com/byteness/detective-graph-config/validate"
)

// Validate parses content and checks it, returning every issue found.
// Source names the content in the result, typically a file path.
func Validate(content []byte, source string) ValidationResult {
	result := ValidationResult{
		Source: source,
		Valid:  true,
		Issues: []ValidationIssue{},
	}

	if len(bytes.TrimSpace(content)) == 0 {
		result.addError("", "empty configuration", "provide valid YAML content")
		return result
	}

	cfg, err := decode(content)
	if err != nil {
		result.addError("", fmt.Sprintf("YAML parse error: %v", err),
			"check YAML syntax and field names (indentation, colons, quoting of account ids)")
		return result
	}

	validateConfig(cfg, &result)
	return result
}

// ValidateFile validates a local YAML file.
func ValidateFile(path string) (ValidationResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		result := ValidationResult{Source: path, Valid: true}
		result.addError("", fmt.Sprintf("failed to read file: %v", err), "verify the file path exists and is readable")
		return result, err
	}
	return Validate(content, path), nil
}

// Parse decodes and validates content, returning the configuration with
// defaults applied. Warnings do not fail parsing.
func Parse(content []byte) (*Config, error) {
	result := Validate(content, "")
	if !result.Valid {
		var msgs []string
		for _, issue := range result.Issues {
			if issue.Severity != SeverityError {
				continue
			}
			if issue.Location != "" {
				msgs = append(msgs, issue.Location+": "+issue.Message)
			} else {
				msgs = append(msgs, issue.Message)
			}
		}
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}

	cfg, err := decode(content)
	if err != nil {
		return nil, err
	}
	withDefaults := cfg.WithDefaults()
	return &withDefaults, nil
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// decode rejects unknown fields so that misspelled keys surface as errors.
func decode(content []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config, result *ValidationResult) {
	if cfg.Version != "" && cfg.Version != CurrentVersion {
		result.addError("version", fmt.Sprintf("unsupported version %q", cfg.Version),
			fmt.Sprintf("set version to %q", CurrentVersion))
	}

	if err := validate.ValidateRegion(cfg.Region); err != nil {
		result.addError("region", err.Error(), "set region to the region the organization is managed from, e.g. us-east-1")
	}

	if cfg.ServicePrincipal != "" {
		if err := validate.ValidateServicePrincipal(cfg.ServicePrincipal); err != nil {
			result.addError("service_principal", err.Error(), "use a service principal such as "+permissions.DefaultServicePrincipal)
		} else if cfg.ServicePrincipal != permissions.DefaultServicePrincipal {
			result.addWarning("service_principal",
				fmt.Sprintf("execution role will be scoped to %s instead of %s", cfg.ServicePrincipal, permissions.DefaultServicePrincipal),
				"remove service_principal unless you are targeting another service")
		}
	}

	if err := validate.ValidateOrganizationID(cfg.OrganizationID); err != nil {
		result.addError("organization_id", err.Error(), "copy the id from `aws organizations describe-organization`")
	}

	if cfg.AdminAccountID != "" {
		if err := validate.ValidateAccountID(cfg.AdminAccountID); err != nil {
			result.addError("admin_account_id", err.Error(), "quote account ids so YAML keeps leading zeros")
		}
	}

	validateStack(cfg, result)
}

func validateStack(cfg Config, result *ValidationResult) {
	stack := cfg.Stack

	if stack.LogRetentionInDays != 0 && !infrastructure.IsValidLogRetention(stack.LogRetentionInDays) {
		result.addError("stack.log_retention_in_days",
			fmt.Sprintf("%d is not a retention period CloudWatch Logs accepts", stack.LogRetentionInDays),
			"use one of 1, 3, 5, 7, 14, 30, 60, 90, 120, 150, 180, 365, 400, 545, 731, 1096, 1827, 2192, 2557, 2922, 3288, 3653")
	}
	if stack.AdminAccountParameter != "" {
		if err := validate.ValidateParameterName(stack.AdminAccountParameter); err != nil {
			result.addError("stack.admin_account_parameter", err.Error(), "use an SSM parameter path like /org/security/detective-admin")
		}
	}
	for _, topic := range notification.ParseTopics(stack.NotifyTopicArn) {
		if !strings.HasPrefix(topic, "arn:") {
			result.addError("stack.notify_topic_arn", fmt.Sprintf("notify topic %q must be an ARN", topic), "use topic ARNs, not names, separated by commas")
		}
	}

	if stack.MetricNamespace != "" {
		if err := validate.ValidateMetricNamespace(stack.MetricNamespace); err != nil {
			result.addError("stack.metric_namespace", err.Error(), "use a custom namespace such as "+DefaultMetricNamespace)
		}
	}

	seen := make(map[string]int)
	hasAdmin := stack.AdminAccountParameter != ""
	for i, g := range stack.Graphs {
		loc := fmt.Sprintf("stack.graphs[%d]", i)
		switch {
		case g.ID == "":
			result.addError(loc+".id", "graph id is required", "give each graph a unique construct id")
		case g.ID == stack.KeyID || (stack.KeyID == "" && g.ID == DefaultKeyID):
			result.addError(loc+".id", fmt.Sprintf("graph id %q collides with the key id", g.ID), "rename the graph or set stack.key_id")
		default:
			if prev, ok := seen[g.ID]; ok {
				result.addError(loc+".id", fmt.Sprintf("duplicate graph id %q (also stack.graphs[%d])", g.ID, prev), "give each graph a unique construct id")
			}
			seen[g.ID] = i
		}
		if g.AdminAccountID != "" {
			hasAdmin = true
			if err := validate.ValidateAccountID(g.AdminAccountID); err != nil {
				result.addError(loc+".admin_account_id", err.Error(), "quote account ids so YAML keeps leading zeros")
			}
		}
	}

	if !hasAdmin && cfg.AdminAccountID == "" {
		result.addWarning("admin_account_id", "no delegated administrator configured; only the behavior graph will be updated",
			"set admin_account_id or stack.admin_account_parameter")
	}
}

func (r *ValidationResult) addError(location, message, suggestion string) {
	r.Valid = false
	r.Issues = append(r.Issues, ValidationIssue{
		Severity:   SeverityError,
		Location:   location,
		Message:    message,
		Suggestion: suggestion,
	})
}

func (r *ValidationResult) addWarning(location, message, suggestion string) {
	r.Issues = append(r.Issues, ValidationIssue{
		Severity:   SeverityWarning,
		Location:   location,
		Message:    message,
		Suggestion: suggestion,
	})
}
