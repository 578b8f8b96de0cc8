package enablement_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/detective"
	detectivetypes "github.com/aws/aws-sdk-go-v2/service/detective/types"
	"github.com/google/go-cmp/cmp"

	"github.com/byteness/detective-graph-config/enablement"
	detectiveerrors "github.com/byteness/detective-graph-config/errors"
	"github.com/byteness/detective-graph-config/testutil"
)

func TestUpdateGraph(t *testing.T) {
	tests := []struct {
		name       string
		autoEnable bool
		members    int
		pageSize   int
	}{
		{name: "enable with no members", autoEnable: true},
		{name: "enable with paged members", autoEnable: true, members: 7, pageSize: 3},
		{name: "disable", autoEnable: false, members: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := testutil.NewMockDetectiveClient(testutil.TestGraphArn, tt.members)
			client.PageSize = tt.pageSize
			g := enablement.NewGraphConfiguratorWithClient(client)

			got, err := g.UpdateGraph(context.Background(), testutil.TestRegion, tt.autoEnable)
			testutil.AssertNoError(t, err)

			want := &enablement.GraphResult{
				GraphArn:    testutil.TestGraphArn,
				MemberCount: tt.members,
				AutoEnable:  tt.autoEnable,
				Region:      testutil.TestRegion,
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("UpdateGraph mismatch (-want +got):\n%s", diff)
			}

			autoEnable, called := client.LastAutoEnable()
			if !called {
				t.Fatal("UpdateOrganizationConfiguration was not called")
			}
			testutil.AssertEqual(t, autoEnable, tt.autoEnable)
			testutil.AssertEqual(t, aws.ToString(client.UpdateOrganizationConfigurationCalls[0].GraphArn), testutil.TestGraphArn)
		})
	}
}

func TestUpdateGraph_FirstGraphWins(t *testing.T) {
	client := &testutil.MockDetectiveClient{}
	client.ListGraphsFunc = func(ctx context.Context, params *detective.ListGraphsInput, optFns ...func(*detective.Options)) (*detective.ListGraphsOutput, error) {
		if params.NextToken == nil {
			return &detective.ListGraphsOutput{NextToken: aws.String("1")}, nil
		}
		return &detective.ListGraphsOutput{GraphList: []detectivetypes.Graph{
			{Arn: aws.String("arn:aws:detective:us-east-1:222222222222:graph:first")},
			{Arn: aws.String("arn:aws:detective:us-east-1:222222222222:graph:second")},
		}}, nil
	}

	got, err := enablement.NewGraphConfiguratorWithClient(client).UpdateGraph(context.Background(), testutil.TestRegion, true)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got.GraphArn, "arn:aws:detective:us-east-1:222222222222:graph:first")
	testutil.AssertLen(t, client.ListGraphsCalls, 2)
}

func TestUpdateGraph_NoGraph(t *testing.T) {
	client := &testutil.MockDetectiveClient{}

	_, err := enablement.NewGraphConfiguratorWithClient(client).UpdateGraph(context.Background(), testutil.TestRegion, true)
	testutil.AssertErrorCode(t, err, detectiveerrors.ErrCodeGraphUnavailable)
	testutil.AssertLen(t, client.UpdateOrganizationConfigurationCalls, 0)
}

func TestUpdateGraph_Errors(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(c *testutil.MockDetectiveClient)
		wantCode string
	}{
		{
			name: "access denied listing graphs",
			setup: func(c *testutil.MockDetectiveClient) {
				c.ListGraphsFunc = func(ctx context.Context, params *detective.ListGraphsInput, optFns ...func(*detective.Options)) (*detective.ListGraphsOutput, error) {
					return nil, &detectivetypes.AccessDeniedException{Message: aws.String("denied")}
				}
			},
			wantCode: detectiveerrors.ErrCodePermissionDenied,
		},
		{
			name: "graph deleted between calls",
			setup: func(c *testutil.MockDetectiveClient) {
				c.ListMembersFunc = func(ctx context.Context, params *detective.ListMembersInput, optFns ...func(*detective.Options)) (*detective.ListMembersOutput, error) {
					return nil, &detectivetypes.ResourceNotFoundException{Message: aws.String("graph not found")}
				}
			},
			wantCode: detectiveerrors.ErrCodeGraphUnavailable,
		},
		{
			name: "throttled update",
			setup: func(c *testutil.MockDetectiveClient) {
				c.UpdateOrganizationConfigurationFunc = func(ctx context.Context, params *detective.UpdateOrganizationConfigurationInput, optFns ...func(*detective.Options)) (*detective.UpdateOrganizationConfigurationOutput, error) {
					return nil, &detectivetypes.TooManyRequestsException{Message: aws.String("slow down")}
				}
			},
			wantCode: detectiveerrors.ErrCodeTransientService,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := testutil.NewMockDetectiveClient(testutil.TestGraphArn, 1)
			tt.setup(client)

			_, err := enablement.NewGraphConfiguratorWithClient(client).UpdateGraph(context.Background(), testutil.TestRegion, true)
			testutil.AssertErrorCode(t, err, tt.wantCode)
		})
	}
}

func TestUpdateGraph_ErrorCarriesGraphArn(t *testing.T) {
	client := testutil.NewMockDetectiveClient(testutil.TestGraphArn, 0)
	client.UpdateOrganizationConfigurationFunc = func(ctx context.Context, params *detective.UpdateOrganizationConfigurationInput, optFns ...func(*detective.Options)) (*detective.UpdateOrganizationConfigurationOutput, error) {
		return nil, &detectivetypes.ValidationException{Message: aws.String("bad")}
	}

	_, err := enablement.NewGraphConfiguratorWithClient(client).UpdateGraph(context.Background(), testutil.TestRegion, false)
	ee, ok := detectiveerrors.IsEnablementError(err)
	if !ok {
		t.Fatalf("expected EnablementError, got %T", err)
	}
	testutil.AssertEqual(t, ee.Context()["graph_arn"], testutil.TestGraphArn)
}
