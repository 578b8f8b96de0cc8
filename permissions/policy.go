package permissions

import (
	"encoding/json"
	"strings"
)

// IAM policy version required by AWS.
const PolicyVersion = "2012-10-17"

// DefaultServicePrincipal is the service the handler configures.
const DefaultServicePrincipal = "detective.amazonaws.com"

// Statement ids of the inline role policy.
const (
	SidOrganizationActions = "DetectiveConfigureOrganizationAdminAccountTaskOrganizationActions"
	SidDetectiveActions    = "DetectiveUpdateGraphTaskDetectiveActions"
)

// InlinePolicyName is the name of the role's inline policy.
const InlinePolicyName = "Inline"

// Condition operators used by the generated policies.
const (
	ConditionStringLikeIfExists = "StringLikeIfExists" // scopes organizations actions
	ConditionStringEquals       = "StringEquals"
)

// ServicePrincipalConditionKey is the request context key AWS Organizations
// populates with the service principal an action targets.
const ServicePrincipalConditionKey = "organizations:ServicePrincipal"

// Effect is the effect of a policy statement.
type Effect string

const (
	EffectAllow Effect = "Allow"
	EffectDeny  Effect = "Deny"
)

// StringOrSlice serializes as a bare string when it holds exactly one value,
// and as a list otherwise, matching how IAM documents are usually written.
type StringOrSlice []string

// MarshalJSON implements json.Marshaler.
func (s StringOrSlice) MarshalJSON() ([]byte, error) {
	if len(s) == 1 {
		return json.Marshal(s[0])
	}
	return json.Marshal([]string(s))
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *StringOrSlice) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = StringOrSlice{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*s = many
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (s StringOrSlice) MarshalYAML() (interface{}, error) {
	if len(s) == 1 {
		return s[0], nil
	}
	return []string(s), nil
}

// Principal identifies who a trust statement applies to.
type Principal struct {
	Service StringOrSlice `json:"Service,omitempty" yaml:"Service,omitempty"`
	AWS     StringOrSlice `json:"AWS,omitempty" yaml:"AWS,omitempty"`
}

// Condition maps operator -> condition key -> allowed values.
type Condition map[string]map[string][]string

// Statement is a single IAM policy statement.
type Statement struct {
	Sid       string        `json:"Sid,omitempty" yaml:"Sid,omitempty"`
	Effect    Effect        `json:"Effect" yaml:"Effect"`
	Principal *Principal    `json:"Principal,omitempty" yaml:"Principal,omitempty"`
	Action    StringOrSlice `json:"Action" yaml:"Action"`
	Resource  StringOrSlice `json:"Resource,omitempty" yaml:"Resource,omitempty"`
	Condition Condition     `json:"Condition,omitempty" yaml:"Condition,omitempty"`
}

// PolicyDocument is an IAM policy document.
type PolicyDocument struct {
	Statement []Statement `json:"Statement" yaml:"Statement"`
	Version   string      `json:"Version" yaml:"Version"`
}

// RolePolicy creates the inline policy for the handler's execution role.
// Every organizations action is narrowed with StringLikeIfExists to the
// given service principal, so the role cannot manage trusted access or
// delegated administrators of any other integrated service.
func RolePolicy(servicePrincipal string) PolicyDocument {
	if servicePrincipal == "" {
		servicePrincipal = DefaultServicePrincipal
	}

	scoped := make(map[string][]string, len(organizationActions))
	for _, action := range organizationActions {
		scoped[action] = []string{servicePrincipal}
	}

	return PolicyDocument{
		Version: PolicyVersion,
		Statement: []Statement{
			{
				Sid:       SidOrganizationActions,
				Effect:    EffectAllow,
				Action:    append(StringOrSlice{}, organizationActions...),
				Resource:  StringOrSlice{"*"},
				Condition: Condition{ConditionStringLikeIfExists: scoped},
			},
			{
				Sid:      SidDetectiveActions,
				Effect:   EffectAllow,
				Action:   append(StringOrSlice{}, detectiveActions...),
				Resource: StringOrSlice{"*"},
			},
		},
	}
}

// AssumeRolePolicy creates the trust policy allowing Lambda to assume the role.
func AssumeRolePolicy() PolicyDocument {
	return PolicyDocument{
		Version: PolicyVersion,
		Statement: []Statement{
			{
				Effect:    EffectAllow,
				Principal: &Principal{Service: StringOrSlice{"lambda.amazonaws.com"}},
				Action:    StringOrSlice{"sts:AssumeRole"},
			},
		},
	}
}

// IntegrationsPolicyName is the name of the optional inline policy for the
// handler's SSM, SNS and CloudWatch access.
const IntegrationsPolicyName = "Integrations"

// Statement ids of the integrations policy.
const (
	SidReadAdminAccountParameter = "DetectiveGraphConfigReadAdminAccountParameter"
	SidPublishNotifications      = "DetectiveGraphConfigPublishNotifications"
	SidPutMetrics                = "DetectiveGraphConfigPutMetrics"
)

// MetricNamespaceConditionKey limits cloudwatch:PutMetricData to a namespace.
const MetricNamespaceConditionKey = "cloudwatch:namespace"

// Integrations lists the optional services the handler talks to.
type Integrations struct {
	AdminAccountParameter string
	NotifyTopicARNs       []string
	MetricNamespace       string
}

// IntegrationsPolicy grants ssm:GetParameter on the admin account parameter,
// sns:Publish on each topic and cloudwatch:PutMetricData in the metric
// namespace. ok is false when there is nothing to grant.
func IntegrationsPolicy(in Integrations) (doc PolicyDocument, ok bool) {
	doc.Version = PolicyVersion
	if in.AdminAccountParameter != "" {
		doc.Statement = append(doc.Statement, Statement{
			Sid:      SidReadAdminAccountParameter,
			Effect:   EffectAllow,
			Action:   StringOrSlice{"ssm:GetParameter"},
			Resource: StringOrSlice{ParameterARNPattern(in.AdminAccountParameter)},
		})
	}
	if len(in.NotifyTopicARNs) > 0 {
		doc.Statement = append(doc.Statement, Statement{
			Sid:      SidPublishNotifications,
			Effect:   EffectAllow,
			Action:   StringOrSlice{"sns:Publish"},
			Resource: append(StringOrSlice{}, in.NotifyTopicARNs...),
		})
	}
	if in.MetricNamespace != "" {
		doc.Statement = append(doc.Statement, Statement{
			Sid:      SidPutMetrics,
			Effect:   EffectAllow,
			Action:   StringOrSlice{"cloudwatch:PutMetricData"},
			Resource: StringOrSlice{"*"},
			Condition: Condition{
				ConditionStringEquals: {MetricNamespaceConditionKey: {in.MetricNamespace}},
			},
		})
	}
	return doc, len(doc.Statement) > 0
}

// ParameterARNPattern matches the SSM parameter name in any partition,
// region and account.
func ParameterARNPattern(name string) string {
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	return "arn:*:ssm:*:*:parameter" + name
}
