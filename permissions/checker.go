package permissions

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	detectiveerrors "github.com/byteness/detective-graph-config/errors"
)

// CheckStatus represents the result of a permission check.
type CheckStatus string

const (
	// StatusAllowed indicates the permission is allowed.
	StatusAllowed CheckStatus = "allowed"
	// StatusDenied indicates the permission is denied.
	StatusDenied CheckStatus = "denied"
	// StatusError indicates an error occurred during the check.
	StatusError CheckStatus = "error"
)

// CheckResult represents the result of checking a single permission.
type CheckResult struct {
	Feature  Feature     `json:"feature" yaml:"feature"`
	Action   string      `json:"action" yaml:"action"`
	Resource string      `json:"resource" yaml:"resource"`
	Status   CheckStatus `json:"status" yaml:"status"`
	Message  string      `json:"message,omitempty" yaml:"message,omitempty"`
}

// CheckSummary contains the aggregated results of permission checks.
type CheckSummary struct {
	PrincipalArn     string        `json:"principal_arn" yaml:"principal_arn"`
	ServicePrincipal string        `json:"service_principal" yaml:"service_principal"`
	Results          []CheckResult `json:"results" yaml:"results"`
	PassCount        int           `json:"pass_count" yaml:"pass_count"`
	FailCount        int           `json:"fail_count" yaml:"fail_count"`
	ErrorCount       int           `json:"error_count" yaml:"error_count"`
}

// AllPassed reports whether every checked action was allowed.
func (s *CheckSummary) AllPassed() bool {
	return s.FailCount == 0 && s.ErrorCount == 0
}

type iamCheckerAPI interface {
	SimulatePrincipalPolicy(ctx context.Context, params *iam.SimulatePrincipalPolicyInput, optFns ...func(*iam.Options)) (*iam.SimulatePrincipalPolicyOutput, error)
}

type stsCheckerAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// CheckerInterface defines the interface for permission checking.
type CheckerInterface interface {
	Check(ctx context.Context, features []Feature) (*CheckSummary, error)
}

// Checker validates a principal's live IAM permissions for the handler's
// features using iam:SimulatePrincipalPolicy. Organizations actions are
// simulated with the organizations:ServicePrincipal context key set, so the
// principal-scoped condition in the role policy is exercised.
type Checker struct {
	stsClient        stsCheckerAPI
	simClient        iamCheckerAPI
	principalArn     string
	servicePrincipal string
}

// NewChecker creates a Checker using the provided AWS configuration.
// An empty principalArn means the caller's own identity.
func NewChecker(cfg aws.Config, principalArn, servicePrincipal string) *Checker {
	return NewCheckerWithClients(sts.NewFromConfig(cfg), iam.NewFromConfig(cfg), principalArn, servicePrincipal)
}

// NewCheckerWithClients creates a Checker with custom clients.
func NewCheckerWithClients(stsClient stsCheckerAPI, iamClient iamCheckerAPI, principalArn, servicePrincipal string) *Checker {
	if servicePrincipal == "" {
		servicePrincipal = DefaultServicePrincipal
	}
	return &Checker{
		stsClient:        stsClient,
		simClient:        iamClient,
		principalArn:     principalArn,
		servicePrincipal: servicePrincipal,
	}
}

// Check simulates every action of the given features. Individual simulation
// failures are recorded in the summary rather than returned.
func (c *Checker) Check(ctx context.Context, features []Feature) (*CheckSummary, error) {
	if c.principalArn == "" {
		identity, err := c.stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
		if err != nil {
			return nil, detectiveerrors.WrapIAMError(err, "GetCallerIdentity")
		}
		c.principalArn = RoleArnFromAssumedRole(aws.ToString(identity.Arn))
	}

	summary := &CheckSummary{
		PrincipalArn:     c.principalArn,
		ServicePrincipal: c.servicePrincipal,
		Results:          []CheckResult{},
	}

	for _, feature := range features {
		fp, ok := GetFeaturePermissions(feature)
		if !ok {
			continue
		}
		for _, perm := range fp.Permissions {
			for _, action := range perm.Actions {
				result := c.checkPermission(ctx, feature, perm, action)
				summary.Results = append(summary.Results, result)

				switch result.Status {
				case StatusAllowed:
					summary.PassCount++
				case StatusDenied:
					summary.FailCount++
				case StatusError:
					summary.ErrorCount++
				}
			}
		}
	}

	return summary, nil
}

func (c *Checker) checkPermission(ctx context.Context, feature Feature, perm Permission, action string) CheckResult {
	result := CheckResult{
		Feature:  feature,
		Action:   action,
		Resource: perm.Resource,
	}

	input := &iam.SimulatePrincipalPolicyInput{
		PolicySourceArn: aws.String(c.principalArn),
		ActionNames:     []string{action},
		ResourceArns:    []string{perm.Resource},
	}
	if perm.PrincipalScoped {
		input.ContextEntries = []iamtypes.ContextEntry{
			{
				ContextKeyName:   aws.String(ServicePrincipalConditionKey),
				ContextKeyType:   iamtypes.ContextKeyTypeEnumString,
				ContextKeyValues: []string{c.servicePrincipal},
			},
		}
	}

	output, err := c.simClient.SimulatePrincipalPolicy(ctx, input)
	if err != nil {
		wrapped := detectiveerrors.WrapIAMError(err, "SimulatePrincipalPolicy")
		result.Status = StatusError
		if wrapped.Code() == detectiveerrors.ErrCodeIAMSimulateAccessDenied {
			result.Message = wrapped.Suggestion()
		} else {
			result.Message = err.Error()
		}
		return result
	}

	if len(output.EvaluationResults) == 0 {
		result.Status = StatusError
		result.Message = "no evaluation results returned"
		return result
	}

	switch decision := output.EvaluationResults[0].EvalDecision; decision {
	case iamtypes.PolicyEvaluationDecisionTypeAllowed:
		result.Status = StatusAllowed
		result.Message = "allowed"
	case iamtypes.PolicyEvaluationDecisionTypeExplicitDeny:
		result.Status = StatusDenied
		result.Message = "explicitly denied"
	case iamtypes.PolicyEvaluationDecisionTypeImplicitDeny:
		result.Status = StatusDenied
		result.Message = "implicitly denied (no matching allow)"
	default:
		result.Status = StatusDenied
		result.Message = string(decision)
	}

	return result
}

// RoleArnFromAssumedRole converts an STS assumed-role ARN
// (arn:aws:sts::123456789012:assumed-role/Name/session) into the IAM role
// ARN SimulatePrincipalPolicy accepts. Other ARNs are returned unchanged.
// Roles with a path cannot be recovered from the session ARN and keep the
// root path.
func RoleArnFromAssumedRole(arn string) string {
	parts := strings.SplitN(arn, ":", 6)
	if len(parts) != 6 || parts[2] != "sts" || !strings.HasPrefix(parts[5], "assumed-role/") {
		return arn
	}
	segments := strings.Split(strings.TrimPrefix(parts[5], "assumed-role/"), "/")
	if len(segments) < 1 || segments[0] == "" {
		return arn
	}
	return fmt.Sprintf("arn:%s:iam::%s:role/%s", parts[1], parts[4], segments[0])
}
