package permissions

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// FormatJSON formats a policy document as indented JSON.
func FormatJSON(doc PolicyDocument) (string, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FormatYAML formats a policy document as YAML, the way it appears
// embedded in a CloudFormation template.
func FormatYAML(doc PolicyDocument) (string, error) {
	var sb strings.Builder
	enc := yaml.NewEncoder(&sb)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// FormatHuman formats feature permissions as a human-readable listing.
func FormatHuman(perms []FeaturePermissions, servicePrincipal string) string {
	if len(perms) == 0 {
		return "No permissions to display.\n"
	}

	var sb strings.Builder
	sb.WriteString("Detective Graph Config IAM Permissions\n")
	sb.WriteString("======================================\n")

	for _, fp := range perms {
		sb.WriteString(fmt.Sprintf("\n  Feature: %s\n", fp.Feature))
		for _, p := range fp.Permissions {
			sb.WriteString(fmt.Sprintf("    %s\n", strings.Join(p.Actions, ", ")))
			sb.WriteString(fmt.Sprintf("    Resource: %s\n", p.Resource))
			if p.PrincipalScoped {
				sb.WriteString(fmt.Sprintf("    Condition: %s = %s\n", ServicePrincipalConditionKey, servicePrincipal))
			}
		}
	}

	return sb.String()
}

// FormatCheckSummary formats permission check results for a terminal.
func FormatCheckSummary(summary *CheckSummary) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Principal: %s\n", summary.PrincipalArn))
	sb.WriteString(fmt.Sprintf("Service principal: %s\n\n", summary.ServicePrincipal))

	for _, r := range summary.Results {
		marker := "[OK]  "
		switch r.Status {
		case StatusDenied:
			marker = "[DENY]"
		case StatusError:
			marker = "[ERR] "
		}
		sb.WriteString(fmt.Sprintf("%s %-16s %s", marker, r.Feature, r.Action))
		if r.Status != StatusAllowed && r.Message != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", r.Message))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("\n%d allowed, %d denied, %d errors\n", summary.PassCount, summary.FailCount, summary.ErrorCount))
	return sb.String()
}
