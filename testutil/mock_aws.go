package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/detective"
	detectivetypes "github.com/aws/aws-sdk-go-v2/service/detective/types"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// ============================================================================
// MockSSMClient - SSM Parameter Store operations
// ============================================================================

// MockSSMClient implements SSM GetParameter for testing. Parameters holds
// the values returned by default; missing names yield ParameterNotFound.
type MockSSMClient struct {
	mu sync.Mutex

	Parameters       map[string]string
	GetParameterFunc func(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)

	GetParameterCalls []*ssm.GetParameterInput
}

// GetParameter implements SSM GetParameter operation.
func (m *MockSSMClient) GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	m.mu.Lock()
	m.GetParameterCalls = append(m.GetParameterCalls, params)
	m.mu.Unlock()

	if m.GetParameterFunc != nil {
		return m.GetParameterFunc(ctx, params, optFns...)
	}
	name := aws.ToString(params.Name)
	value, ok := m.Parameters[name]
	if !ok {
		return nil, &ssmtypes.ParameterNotFound{Message: aws.String(fmt.Sprintf("parameter %s not found", name))}
	}
	return &ssm.GetParameterOutput{
		Parameter: &ssmtypes.Parameter{
			Name:  aws.String(name),
			Value: aws.String(value),
			Type:  ssmtypes.ParameterTypeString,
		},
	}, nil
}

// ============================================================================
// MockSNSClient - SNS operations
// ============================================================================

// MockSNSClient implements SNS Publish for testing.
type MockSNSClient struct {
	mu sync.Mutex

	PublishFunc  func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
	PublishCalls []*sns.PublishInput
}

// Publish implements SNS Publish operation.
func (m *MockSNSClient) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.mu.Lock()
	m.PublishCalls = append(m.PublishCalls, params)
	n := len(m.PublishCalls)
	m.mu.Unlock()

	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, params, optFns...)
	}
	return &sns.PublishOutput{MessageId: aws.String(fmt.Sprintf("mock-message-%d", n))}, nil
}

// PublishCallCount returns the number of Publish calls made.
func (m *MockSNSClient) PublishCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.PublishCalls)
}

// ============================================================================
// MockSTSClient - STS operations
// ============================================================================

// MockSTSClient implements STS GetCallerIdentity for testing.
type MockSTSClient struct {
	mu sync.Mutex

	GetCallerIdentityFunc  func(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
	GetCallerIdentityCalls []*sts.GetCallerIdentityInput
}

// GetCallerIdentity implements STS GetCallerIdentity operation.
func (m *MockSTSClient) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	m.mu.Lock()
	m.GetCallerIdentityCalls = append(m.GetCallerIdentityCalls, params)
	m.mu.Unlock()

	if m.GetCallerIdentityFunc != nil {
		return m.GetCallerIdentityFunc(ctx, params, optFns...)
	}
	return &sts.GetCallerIdentityOutput{
		Account: aws.String("111111111111"),
		Arn:     aws.String("arn:aws:sts::111111111111:assumed-role/MockRole/session"),
		UserId:  aws.String("AROAMOCKROLEID:session"),
	}, nil
}

// ============================================================================
// MockIAMClient - IAM policy simulation
// ============================================================================

// MockIAMClient implements IAM SimulatePrincipalPolicy for testing.
// By default every action is allowed.
type MockIAMClient struct {
	mu sync.Mutex

	SimulatePrincipalPolicyFunc  func(ctx context.Context, params *iam.SimulatePrincipalPolicyInput, optFns ...func(*iam.Options)) (*iam.SimulatePrincipalPolicyOutput, error)
	SimulatePrincipalPolicyCalls []*iam.SimulatePrincipalPolicyInput
}

// SimulatePrincipalPolicy implements IAM SimulatePrincipalPolicy operation.
func (m *MockIAMClient) SimulatePrincipalPolicy(ctx context.Context, params *iam.SimulatePrincipalPolicyInput, optFns ...func(*iam.Options)) (*iam.SimulatePrincipalPolicyOutput, error) {
	m.mu.Lock()
	m.SimulatePrincipalPolicyCalls = append(m.SimulatePrincipalPolicyCalls, params)
	m.mu.Unlock()

	if m.SimulatePrincipalPolicyFunc != nil {
		return m.SimulatePrincipalPolicyFunc(ctx, params, optFns...)
	}
	results := make([]iamtypes.EvaluationResult, 0, len(params.ActionNames))
	for _, action := range params.ActionNames {
		results = append(results, iamtypes.EvaluationResult{
			EvalActionName: aws.String(action),
			EvalDecision:   iamtypes.PolicyEvaluationDecisionTypeAllowed,
		})
	}
	return &iam.SimulatePrincipalPolicyOutput{EvaluationResults: results}, nil
}

// ============================================================================
// MockDetectiveClient - Amazon Detective operations
// ============================================================================

// MockDetectiveClient implements the Detective operations used by the graph
// configurator. Without overrides it serves GraphArns and Members, paging
// members PageSize at a time when PageSize > 0.
type MockDetectiveClient struct {
	mu sync.Mutex

	GraphArns []string
	Members   int
	PageSize  int

	ListGraphsFunc                      func(ctx context.Context, params *detective.ListGraphsInput, optFns ...func(*detective.Options)) (*detective.ListGraphsOutput, error)
	ListMembersFunc                     func(ctx context.Context, params *detective.ListMembersInput, optFns ...func(*detective.Options)) (*detective.ListMembersOutput, error)
	UpdateOrganizationConfigurationFunc func(ctx context.Context, params *detective.UpdateOrganizationConfigurationInput, optFns ...func(*detective.Options)) (*detective.UpdateOrganizationConfigurationOutput, error)

	ListGraphsCalls                      []*detective.ListGraphsInput
	ListMembersCalls                     []*detective.ListMembersInput
	UpdateOrganizationConfigurationCalls []*detective.UpdateOrganizationConfigurationInput
}

// NewMockDetectiveClient creates a MockDetectiveClient owning one graph.
func NewMockDetectiveClient(graphArn string, members int) *MockDetectiveClient {
	return &MockDetectiveClient{GraphArns: []string{graphArn}, Members: members}
}

// ListGraphs implements Detective ListGraphs operation.
func (m *MockDetectiveClient) ListGraphs(ctx context.Context, params *detective.ListGraphsInput, optFns ...func(*detective.Options)) (*detective.ListGraphsOutput, error) {
	m.mu.Lock()
	m.ListGraphsCalls = append(m.ListGraphsCalls, params)
	m.mu.Unlock()

	if m.ListGraphsFunc != nil {
		return m.ListGraphsFunc(ctx, params, optFns...)
	}
	out := &detective.ListGraphsOutput{}
	for _, arn := range m.GraphArns {
		out.GraphList = append(out.GraphList, detectivetypes.Graph{Arn: aws.String(arn)})
	}
	return out, nil
}

// ListMembers implements Detective ListMembers operation.
func (m *MockDetectiveClient) ListMembers(ctx context.Context, params *detective.ListMembersInput, optFns ...func(*detective.Options)) (*detective.ListMembersOutput, error) {
	m.mu.Lock()
	m.ListMembersCalls = append(m.ListMembersCalls, params)
	m.mu.Unlock()

	if m.ListMembersFunc != nil {
		return m.ListMembersFunc(ctx, params, optFns...)
	}

	start := parseToken(params.NextToken)
	end := m.Members
	if m.PageSize > 0 && start+m.PageSize < end {
		end = start + m.PageSize
	}
	out := &detective.ListMembersOutput{}
	for i := start; i < end; i++ {
		out.MemberDetails = append(out.MemberDetails, detectivetypes.MemberDetail{
			AccountId: aws.String(fmt.Sprintf("%012d", 300000000000+i)),
			GraphArn:  params.GraphArn,
		})
	}
	if end < m.Members {
		out.NextToken = formatToken(end)
	}
	return out, nil
}

// UpdateOrganizationConfiguration implements Detective UpdateOrganizationConfiguration operation.
func (m *MockDetectiveClient) UpdateOrganizationConfiguration(ctx context.Context, params *detective.UpdateOrganizationConfigurationInput, optFns ...func(*detective.Options)) (*detective.UpdateOrganizationConfigurationOutput, error) {
	m.mu.Lock()
	m.UpdateOrganizationConfigurationCalls = append(m.UpdateOrganizationConfigurationCalls, params)
	m.mu.Unlock()

	if m.UpdateOrganizationConfigurationFunc != nil {
		return m.UpdateOrganizationConfigurationFunc(ctx, params, optFns...)
	}
	return &detective.UpdateOrganizationConfigurationOutput{}, nil
}

// LastAutoEnable returns the AutoEnable value of the last update, and
// whether any update was made.
func (m *MockDetectiveClient) LastAutoEnable() (bool, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.UpdateOrganizationConfigurationCalls) == 0 {
		return false, false
	}
	last := m.UpdateOrganizationConfigurationCalls[len(m.UpdateOrganizationConfigurationCalls)-1]
	return aws.ToBool(last.AutoEnable), true
}
