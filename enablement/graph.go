package enablement

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/detective"

	detectiveerrors "github.com/byteness/detective-graph-config/errors"
)

// GraphResult describes the behavior graph that was configured.
type GraphResult struct {
	GraphArn    string `json:"graph_arn" yaml:"graph_arn"`
	MemberCount int    `json:"member_count" yaml:"member_count"`
	AutoEnable  bool   `json:"auto_enable" yaml:"auto_enable"`
	Region      string `json:"region" yaml:"region"`
}

// GraphConfigurator toggles auto-enable of new organization accounts on the
// delegated administrator's Detective behavior graph.
type GraphConfigurator struct {
	client DetectiveAPI
}

// NewGraphConfiguratorWithClient creates a GraphConfigurator with a custom client.
func NewGraphConfiguratorWithClient(client DetectiveAPI) *GraphConfigurator {
	return &GraphConfigurator{client: client}
}

// UpdateGraph sets AutoEnable on the first behavior graph in region.
// It fails with GRAPH_UNAVAILABLE when the caller owns no graph.
func (g *GraphConfigurator) UpdateGraph(ctx context.Context, region string, autoEnable bool) (*GraphResult, error) {
	graphArn, err := g.findGraph(ctx)
	if err != nil {
		return nil, err
	}

	members, err := g.countMembers(ctx, graphArn)
	if err != nil {
		return nil, err
	}

	_, err = g.client.UpdateOrganizationConfiguration(ctx, &detective.UpdateOrganizationConfigurationInput{
		GraphArn:   aws.String(graphArn),
		AutoEnable: aws.Bool(autoEnable),
	})
	if err != nil {
		return nil, detectiveerrors.WithContext(detectiveerrors.WrapDetectiveError(err, ActionUpdateOrgGraphConfig), "graph_arn", graphArn)
	}

	return &GraphResult{
		GraphArn:    graphArn,
		MemberCount: members,
		AutoEnable:  autoEnable,
		Region:      region,
	}, nil
}

func (g *GraphConfigurator) findGraph(ctx context.Context) (string, error) {
	var nextToken *string
	for {
		out, err := g.client.ListGraphs(ctx, &detective.ListGraphsInput{NextToken: nextToken})
		if err != nil {
			return "", detectiveerrors.WrapDetectiveError(err, "ListGraphs")
		}
		for _, graph := range out.GraphList {
			if arn := aws.ToString(graph.Arn); arn != "" {
				return arn, nil
			}
		}
		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}

	return "", detectiveerrors.New(detectiveerrors.ErrCodeGraphUnavailable,
		"no Detective behavior graph found",
		detectiveerrors.GetSuggestion(detectiveerrors.ErrCodeGraphUnavailable), nil)
}

func (g *GraphConfigurator) countMembers(ctx context.Context, graphArn string) (int, error) {
	count := 0
	var nextToken *string
	for {
		out, err := g.client.ListMembers(ctx, &detective.ListMembersInput{
			GraphArn:  aws.String(graphArn),
			NextToken: nextToken,
		})
		if err != nil {
			return 0, detectiveerrors.WrapDetectiveError(err, "ListMembers")
		}
		count += len(out.MemberDetails)
		if out.NextToken == nil {
			return count, nil
		}
		nextToken = out.NextToken
	}
}
