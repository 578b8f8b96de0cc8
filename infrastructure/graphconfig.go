package infrastructure

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lex00/cloudformation-schema-go/intrinsics"

	"github.com/byteness/detective-graph-config/lambda"
	"github.com/byteness/detective-graph-config/notification"
	"github.com/byteness/detective-graph-config/permissions"
	"github.com/byteness/detective-graph-config/validate"
)

// CloudFormation resource types emitted by NewDetectiveGraphConfig.
const (
	ResourceTypeRole           = "AWS::IAM::Role"
	ResourceTypeFunction       = "AWS::Lambda::Function"
	ResourceTypeLogGroup       = "AWS::Logs::LogGroup"
	ResourceTypeUpdateGraph    = "Custom::DetectiveUpdateGraph"
	providerID                 = "Custom::DetectiveUpdateGraphCustomResourceProvider"
	providerLogGroupID         = "CustomDetectiveUpdateGraphCustomResourceProviderLogGroup"
	lambdaBasicExecutionPolicy = "arn:${AWS::Partition}:iam::aws:policy/service-role/AWSLambdaBasicExecutionRole"
	xrayWriteAccessPolicy      = "arn:${AWS::Partition}:iam::aws:policy/AWSXRayDaemonWriteAccess"
	assetsBucket               = "cdk-hnb659fds-assets-${AWS::AccountId}-${AWS::Region}"
)

// Handler deployment defaults.
const (
	DefaultHandlerAssetKey = "detective-graph-config-handler.zip"
	DefaultRuntime         = "provided.al2023"
	DefaultHandler         = "bootstrap"
	DefaultTimeoutSeconds  = 900
	DefaultMemorySize      = 128
)

// validRetentionDays are the retention periods CloudWatch Logs accepts.
var validRetentionDays = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 14: true, 30: true, 60: true, 90: true,
	120: true, 150: true, 180: true, 365: true, 400: true, 545: true, 731: true,
	1096: true, 1827: true, 2192: true, 2557: true, 2922: true, 3288: true, 3653: true,
}

// IsValidLogRetention reports whether CloudWatch Logs accepts days as a
// retention period.
func IsValidLogRetention(days int) bool {
	return validRetentionDays[days]
}

// DetectiveGraphConfigProps configures NewDetectiveGraphConfig.
type DetectiveGraphConfigProps struct {
	// KMSKey encrypts the handler's log group.
	KMSKey *Key
	// LogRetentionInDays for the handler's log group.
	LogRetentionInDays int

	ServicePrincipal string
	// AdminAccountID is passed to the custom resource when set.
	AdminAccountID string
	// AdminAccountParameter names an SSM parameter the handler reads the
	// admin account id from when AdminAccountID is empty.
	AdminAccountParameter string
	// NotifyTopicArn lists the topics, comma-separated, that receive
	// lifecycle notifications.
	NotifyTopicArn string
	// MetricNamespace turns on CloudWatch metrics for lifecycle events.
	MetricNamespace string
	// HandlerAssetKey is the S3 key of the handler bundle in the assets bucket.
	HandlerAssetKey string
	// Tracing turns on active X-Ray tracing for the handler.
	Tracing bool
}

// Validate checks the props for well-formedness.
func (p DetectiveGraphConfigProps) Validate() error {
	if p.KMSKey == nil {
		return fmt.Errorf("kms key is required")
	}
	if !IsValidLogRetention(p.LogRetentionInDays) {
		return fmt.Errorf("invalid log retention %d days", p.LogRetentionInDays)
	}
	if p.ServicePrincipal != "" {
		if err := validate.ValidateServicePrincipal(p.ServicePrincipal); err != nil {
			return err
		}
	}
	if p.AdminAccountID != "" {
		if err := validate.ValidateAccountID(p.AdminAccountID); err != nil {
			return err
		}
	}
	if p.AdminAccountParameter != "" {
		if err := validate.ValidateParameterName(p.AdminAccountParameter); err != nil {
			return err
		}
	}
	if p.MetricNamespace != "" {
		if err := validate.ValidateMetricNamespace(p.MetricNamespace); err != nil {
			return err
		}
	}
	return nil
}

// DetectiveGraphConfig is the synthesized custom resource and its provider.
type DetectiveGraphConfig struct {
	LogicalID         string
	ProviderRoleID    string
	ProviderHandlerID string
	LogGroupID        string
}

// ServiceToken returns the provider handler ARN as a template value.
func (c *DetectiveGraphConfig) ServiceToken() interface{} {
	return intrinsics.GetAtt{LogicalName: c.ProviderHandlerID, Attribute: "Arn"}
}

// ErrProviderConflict is returned when a graph config needs a provider
// configured differently from the one already in the stack.
var ErrProviderConflict = errors.New("conflicting provider settings")

// providerSettings are the props baked into the shared role, handler and
// log group. Every graph config in a stack must agree on them.
type providerSettings struct {
	servicePrincipal      string
	adminAccountParameter string
	notifyTopics          string
	metricNamespace       string
	handlerAssetKey       string
	kmsKeyID              string
	logRetentionInDays    int
	tracing               bool
}

func settingsFor(props DetectiveGraphConfigProps) providerSettings {
	return providerSettings{
		servicePrincipal:      props.ServicePrincipal,
		adminAccountParameter: props.AdminAccountParameter,
		notifyTopics:          strings.Join(notification.ParseTopics(props.NotifyTopicArn), ","),
		metricNamespace:       props.MetricNamespace,
		handlerAssetKey:       props.HandlerAssetKey,
		kmsKeyID:              props.KMSKey.LogicalID,
		logRetentionInDays:    props.LogRetentionInDays,
		tracing:               props.Tracing,
	}
}

// conflict names the first setting that differs, or returns "".
func (s providerSettings) conflict(o providerSettings) string {
	switch {
	case s.servicePrincipal != o.servicePrincipal:
		return "ServicePrincipal"
	case s.adminAccountParameter != o.adminAccountParameter:
		return "AdminAccountParameter"
	case s.notifyTopics != o.notifyTopics:
		return "NotifyTopicArn"
	case s.metricNamespace != o.metricNamespace:
		return "MetricNamespace"
	case s.handlerAssetKey != o.handlerAssetKey:
		return "HandlerAssetKey"
	case s.kmsKeyID != o.kmsKeyID:
		return "KMSKey"
	case s.logRetentionInDays != o.logRetentionInDays:
		return "LogRetentionInDays"
	case s.tracing != o.tracing:
		return "Tracing"
	}
	return ""
}

type graphProvider struct {
	roleID     string
	handlerID  string
	logGroupID string
	settings   providerSettings
}

// NewDetectiveGraphConfig adds a Custom::DetectiveUpdateGraph resource to
// stack. The provider role, handler and log group are created by the first
// graph config and shared by every later one, which must use the same
// provider settings.
func NewDetectiveGraphConfig(stack *Stack, id string, props DetectiveGraphConfigProps) (*DetectiveGraphConfig, error) {
	if err := props.Validate(); err != nil {
		return nil, fmt.Errorf("detective graph config %s: %w", id, err)
	}
	if props.ServicePrincipal == "" {
		props.ServicePrincipal = permissions.DefaultServicePrincipal
	}
	if props.HandlerAssetKey == "" {
		props.HandlerAssetKey = DefaultHandlerAssetKey
	}

	p, err := provider(stack, id, props)
	if err != nil {
		return nil, fmt.Errorf("detective graph config %s: %w", id, err)
	}

	properties := map[string]interface{}{
		"ServiceToken": intrinsics.GetAtt{LogicalName: p.handlerID, Attribute: "Arn"},
		"region":       intrinsics.Ref{LogicalName: "AWS::Region"},
	}
	if props.AdminAccountID != "" {
		properties["adminAccountId"] = props.AdminAccountID
	}
	if props.ServicePrincipal != permissions.DefaultServicePrincipal {
		properties["serviceName"] = props.ServicePrincipal
	}

	logicalID, err := stack.AddResource([]string{id, hiddenFromHumanID, hiddenID}, &Resource{
		Type:                ResourceTypeUpdateGraph,
		Properties:          properties,
		DependsOn:           []string{p.logGroupID},
		DeletionPolicy:      DeletionPolicyDelete,
		UpdateReplacePolicy: DeletionPolicyDelete,
	})
	if err != nil {
		return nil, err
	}

	return &DetectiveGraphConfig{
		LogicalID:         logicalID,
		ProviderRoleID:    p.roleID,
		ProviderHandlerID: p.handlerID,
		LogGroupID:        p.logGroupID,
	}, nil
}

// provider returns the stack's provider, adding its role, handler and log
// group on first use. The log group sits under the first graph config's
// construct path.
func provider(stack *Stack, id string, props DetectiveGraphConfigProps) (*graphProvider, error) {
	settings := settingsFor(props)
	if p := stack.graphProvider; p != nil {
		if field := p.settings.conflict(settings); field != "" {
			return nil, fmt.Errorf("%w: %s differs from the stack's first graph config", ErrProviderConflict, field)
		}
		return p, nil
	}

	roleID := MakeUniqueID([]string{providerID, "Role"})
	handlerID := MakeUniqueID([]string{providerID, "Handler"})

	policies := []interface{}{
		map[string]interface{}{
			"PolicyName":     permissions.InlinePolicyName,
			"PolicyDocument": permissions.RolePolicy(props.ServicePrincipal),
		},
	}
	if doc, ok := permissions.IntegrationsPolicy(permissions.Integrations{
		AdminAccountParameter: props.AdminAccountParameter,
		NotifyTopicARNs:       notification.ParseTopics(props.NotifyTopicArn),
		MetricNamespace:       props.MetricNamespace,
	}); ok {
		policies = append(policies, map[string]interface{}{
			"PolicyName":     permissions.IntegrationsPolicyName,
			"PolicyDocument": doc,
		})
	}

	managed := []interface{}{intrinsics.Sub{String: lambdaBasicExecutionPolicy}}
	if props.Tracing {
		managed = append(managed, intrinsics.Sub{String: xrayWriteAccessPolicy})
	}

	_, err := stack.AddResource([]string{providerID, "Role"}, &Resource{
		Type: ResourceTypeRole,
		Properties: map[string]interface{}{
			"AssumeRolePolicyDocument": permissions.AssumeRolePolicy(),
			"ManagedPolicyArns":        managed,
			"Policies":                 policies,
		},
	})
	if err != nil {
		return nil, err
	}

	env := map[string]interface{}{
		lambda.EnvServicePrincipal: props.ServicePrincipal,
	}
	if props.AdminAccountParameter != "" {
		env[lambda.EnvAdminAccountParameter] = props.AdminAccountParameter
	}
	if props.NotifyTopicArn != "" {
		env[lambda.EnvNotifyTopicArn] = props.NotifyTopicArn
	}
	if props.MetricNamespace != "" {
		env[lambda.EnvMetricNamespace] = props.MetricNamespace
	}
	if props.Tracing {
		env[lambda.EnvTracing] = "true"
	}

	function := map[string]interface{}{
		"Code": map[string]interface{}{
			"S3Bucket": intrinsics.Sub{String: assetsBucket},
			"S3Key":    props.HandlerAssetKey,
		},
		"Timeout":     DefaultTimeoutSeconds,
		"MemorySize":  DefaultMemorySize,
		"Handler":     DefaultHandler,
		"Role":        intrinsics.GetAtt{LogicalName: roleID, Attribute: "Arn"},
		"Runtime":     DefaultRuntime,
		"Environment": map[string]interface{}{"Variables": env},
	}
	if props.Tracing {
		function["TracingConfig"] = map[string]interface{}{"Mode": "Active"}
	}

	_, err = stack.AddResource([]string{providerID, "Handler"}, &Resource{
		Type:       ResourceTypeFunction,
		Properties: function,
		DependsOn:  []string{roleID},
	})
	if err != nil {
		return nil, err
	}

	logGroupID, err := stack.AddResource([]string{id, providerLogGroupID, hiddenFromHumanID}, &Resource{
		Type: ResourceTypeLogGroup,
		Properties: map[string]interface{}{
			"LogGroupName": intrinsics.Join{
				Delimiter: "",
				Values:    []any{"/aws/lambda/", intrinsics.Ref{LogicalName: handlerID}},
			},
			"RetentionInDays": props.LogRetentionInDays,
			"KmsKeyId":        props.KMSKey.Arn(),
		},
		DeletionPolicy:      DeletionPolicyDelete,
		UpdateReplacePolicy: DeletionPolicyDelete,
	})
	if err != nil {
		return nil, err
	}

	stack.graphProvider = &graphProvider{
		roleID:     roleID,
		handlerID:  handlerID,
		logGroupID: logGroupID,
		settings:   settings,
	}
	return stack.graphProvider, nil
}
