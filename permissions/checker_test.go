package permissions

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	detectiveerrors "github.com/byteness/detective-graph-config/errors"
)

// mockSTSCheckerClient implements stsCheckerAPI for testing.
type mockSTSCheckerClient struct {
	GetCallerIdentityFunc func(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
	calls                 int
}

func (m *mockSTSCheckerClient) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	m.calls++
	if m.GetCallerIdentityFunc != nil {
		return m.GetCallerIdentityFunc(ctx, params, optFns...)
	}
	return &sts.GetCallerIdentityOutput{
		Arn:     aws.String("arn:aws:sts::123456789012:assumed-role/DeployRole/session"),
		Account: aws.String("123456789012"),
	}, nil
}

// mockIAMCheckerClient implements iamCheckerAPI for testing.
type mockIAMCheckerClient struct {
	SimulatePrincipalPolicyFunc func(ctx context.Context, params *iam.SimulatePrincipalPolicyInput, optFns ...func(*iam.Options)) (*iam.SimulatePrincipalPolicyOutput, error)
	inputs                      []*iam.SimulatePrincipalPolicyInput
}

func (m *mockIAMCheckerClient) SimulatePrincipalPolicy(ctx context.Context, params *iam.SimulatePrincipalPolicyInput, optFns ...func(*iam.Options)) (*iam.SimulatePrincipalPolicyOutput, error) {
	m.inputs = append(m.inputs, params)
	if m.SimulatePrincipalPolicyFunc != nil {
		return m.SimulatePrincipalPolicyFunc(ctx, params, optFns...)
	}
	return &iam.SimulatePrincipalPolicyOutput{}, nil
}

func decide(decision iamtypes.PolicyEvaluationDecisionType) func(context.Context, *iam.SimulatePrincipalPolicyInput, ...func(*iam.Options)) (*iam.SimulatePrincipalPolicyOutput, error) {
	return func(ctx context.Context, params *iam.SimulatePrincipalPolicyInput, optFns ...func(*iam.Options)) (*iam.SimulatePrincipalPolicyOutput, error) {
		return &iam.SimulatePrincipalPolicyOutput{
			EvaluationResults: []iamtypes.EvaluationResult{
				{EvalActionName: aws.String(params.ActionNames[0]), EvalDecision: decision},
			},
		}, nil
	}
}

func TestChecker_Check_AllAllowed(t *testing.T) {
	stsClient := &mockSTSCheckerClient{}
	iamClient := &mockIAMCheckerClient{SimulatePrincipalPolicyFunc: decide(iamtypes.PolicyEvaluationDecisionTypeAllowed)}

	checker := NewCheckerWithClients(stsClient, iamClient, "", "")
	summary, err := checker.Check(context.Background(), AllFeatures())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !summary.AllPassed() {
		t.Errorf("expected all passed, got %d denied %d errors", summary.FailCount, summary.ErrorCount)
	}
	if summary.PassCount != len(summary.Results) || summary.PassCount == 0 {
		t.Errorf("PassCount = %d, results = %d", summary.PassCount, len(summary.Results))
	}
	if summary.PrincipalArn != "arn:aws:iam::123456789012:role/DeployRole" {
		t.Errorf("PrincipalArn = %q", summary.PrincipalArn)
	}
	if summary.ServicePrincipal != DefaultServicePrincipal {
		t.Errorf("ServicePrincipal = %q", summary.ServicePrincipal)
	}
}

func TestChecker_Check_ContextEntries(t *testing.T) {
	iamClient := &mockIAMCheckerClient{SimulatePrincipalPolicyFunc: decide(iamtypes.PolicyEvaluationDecisionTypeAllowed)}
	checker := NewCheckerWithClients(&mockSTSCheckerClient{}, iamClient, "arn:aws:iam::123456789012:role/Handler", "example-service")

	if _, err := checker.Check(context.Background(), []Feature{FeatureEnableAdmin, FeatureUpdateGraph}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, in := range iamClient.inputs {
		action := in.ActionNames[0]
		if aws.ToString(in.PolicySourceArn) != "arn:aws:iam::123456789012:role/Handler" {
			t.Errorf("PolicySourceArn = %q", aws.ToString(in.PolicySourceArn))
		}
		scoped := strings.HasPrefix(action, "organizations:")
		if scoped != (len(in.ContextEntries) == 1) {
			t.Errorf("%s: context entries = %d", action, len(in.ContextEntries))
			continue
		}
		if scoped {
			entry := in.ContextEntries[0]
			if aws.ToString(entry.ContextKeyName) != ServicePrincipalConditionKey || entry.ContextKeyValues[0] != "example-service" {
				t.Errorf("%s: context entry = %s=%v", action, aws.ToString(entry.ContextKeyName), entry.ContextKeyValues)
			}
		}
	}
}

func TestChecker_Check_ExplicitPrincipalSkipsSTS(t *testing.T) {
	stsClient := &mockSTSCheckerClient{}
	iamClient := &mockIAMCheckerClient{SimulatePrincipalPolicyFunc: decide(iamtypes.PolicyEvaluationDecisionTypeAllowed)}
	checker := NewCheckerWithClients(stsClient, iamClient, "arn:aws:iam::123456789012:role/Handler", "")

	if _, err := checker.Check(context.Background(), []Feature{FeatureDeregisterAdmin}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stsClient.calls != 0 {
		t.Errorf("GetCallerIdentity called %d times, want 0", stsClient.calls)
	}
}

func TestChecker_Check_Decisions(t *testing.T) {
	tests := []struct {
		name     string
		decision iamtypes.PolicyEvaluationDecisionType
		want     CheckStatus
		wantMsg  string
	}{
		{"explicit deny", iamtypes.PolicyEvaluationDecisionTypeExplicitDeny, StatusDenied, "explicitly denied"},
		{"implicit deny", iamtypes.PolicyEvaluationDecisionTypeImplicitDeny, StatusDenied, "implicitly denied"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iamClient := &mockIAMCheckerClient{SimulatePrincipalPolicyFunc: decide(tt.decision)}
			checker := NewCheckerWithClients(&mockSTSCheckerClient{}, iamClient, "", "")

			summary, err := checker.Check(context.Background(), []Feature{FeatureUpdateGraph})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if summary.FailCount != len(summary.Results) {
				t.Errorf("FailCount = %d, want %d", summary.FailCount, len(summary.Results))
			}
			for _, r := range summary.Results {
				if r.Status != tt.want || !strings.Contains(r.Message, tt.wantMsg) {
					t.Errorf("%s: status %s message %q", r.Action, r.Status, r.Message)
				}
			}
		})
	}
}

func TestChecker_Check_SimulateErrors(t *testing.T) {
	iamClient := &mockIAMCheckerClient{
		SimulatePrincipalPolicyFunc: func(ctx context.Context, params *iam.SimulatePrincipalPolicyInput, optFns ...func(*iam.Options)) (*iam.SimulatePrincipalPolicyOutput, error) {
			return nil, errors.New("AccessDenied: not authorized to perform iam:SimulatePrincipalPolicy")
		},
	}
	checker := NewCheckerWithClients(&mockSTSCheckerClient{}, iamClient, "", "")

	summary, err := checker.Check(context.Background(), []Feature{FeatureDeregisterAdmin})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.ErrorCount != len(summary.Results) {
		t.Errorf("ErrorCount = %d, want %d", summary.ErrorCount, len(summary.Results))
	}
	if !strings.Contains(summary.Results[0].Message, "SimulatePrincipalPolicy") {
		t.Errorf("message = %q, want suggestion", summary.Results[0].Message)
	}
}

func TestChecker_Check_EmptyEvaluation(t *testing.T) {
	checker := NewCheckerWithClients(&mockSTSCheckerClient{}, &mockIAMCheckerClient{}, "", "")
	summary, err := checker.Check(context.Background(), []Feature{FeatureUpdateGraph})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.ErrorCount == 0 || summary.Results[0].Message != "no evaluation results returned" {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

func TestChecker_Check_STSError(t *testing.T) {
	stsClient := &mockSTSCheckerClient{
		GetCallerIdentityFunc: func(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
			return nil, errors.New("no credentials")
		},
	}
	checker := NewCheckerWithClients(stsClient, &mockIAMCheckerClient{}, "", "")

	_, err := checker.Check(context.Background(), AllFeatures())
	if !detectiveerrors.HasCode(err, detectiveerrors.ErrCodeSTSError) {
		t.Errorf("err = %v, want STS_ERROR", err)
	}
}

func TestRoleArnFromAssumedRole(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"arn:aws:sts::123456789012:assumed-role/Admin/alice", "arn:aws:iam::123456789012:role/Admin"},
		{"arn:aws-us-gov:sts::123456789012:assumed-role/Admin/x", "arn:aws-us-gov:iam::123456789012:role/Admin"},
		{"arn:aws:iam::123456789012:user/bob", "arn:aws:iam::123456789012:user/bob"},
		{"arn:aws:iam::123456789012:role/Admin", "arn:aws:iam::123456789012:role/Admin"},
		{"not-an-arn", "not-an-arn"},
	}
	for _, tt := range tests {
		if got := RoleArnFromAssumedRole(tt.in); got != tt.want {
			t.Errorf("RoleArnFromAssumedRole(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatCheckSummary(t *testing.T) {
	summary := &CheckSummary{
		PrincipalArn:     "arn:aws:iam::123456789012:role/Handler",
		ServicePrincipal: DefaultServicePrincipal,
		Results: []CheckResult{
			{Feature: FeatureEnableAdmin, Action: ActionListAccounts, Status: StatusAllowed, Message: "allowed"},
			{Feature: FeatureUpdateGraph, Action: ActionDetectiveListGraphs, Status: StatusDenied, Message: "explicitly denied"},
		},
		PassCount: 1,
		FailCount: 1,
	}

	out := FormatCheckSummary(summary)
	for _, want := range []string{"[OK]", "[DENY]", "(explicitly denied)", "1 allowed, 1 denied, 0 errors"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "(allowed)") {
		t.Errorf("allowed rows should not carry a message:\n%s", out)
	}
}
