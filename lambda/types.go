// Package lambda provides the CloudFormation custom-resource handler behind
// Custom::DetectiveUpdateGraph.
package lambda

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/detective"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/byteness/detective-graph-config/enablement"
	detectiveerrors "github.com/byteness/detective-graph-config/errors"
	"github.com/byteness/detective-graph-config/permissions"
	"github.com/byteness/detective-graph-config/validate"
)

// Resource property names.
const (
	PropRegion         = "region"
	PropAdminAccountID = "adminAccountId"
	PropOrganizationID = "organizationId"
	PropServiceName    = "serviceName"
)

// PhysicalIDPrefix prefixes physical ids assigned on Create.
const PhysicalIDPrefix = "detective-graph-config/"

// Response data keys.
const (
	DataStatus      = "Status"
	DataGraphArn    = "GraphArn"
	DataMemberCount = "MemberCount"
	DataGraphUpdate = "GraphUpdate" // "Skipped" when the caller is not the admin account
)

// GraphUpdateSkipped is the DataGraphUpdate value when the graph was left alone.
const GraphUpdateSkipped = "Skipped"

// Properties are the custom resource's properties.
type Properties struct {
	Region         string
	AdminAccountID string
	OrganizationID string
	ServiceName    string
}

// ParseProperties reads Properties from an event's ResourceProperties.
// CloudFormation delivers every scalar as a string.
func ParseProperties(raw map[string]interface{}) (Properties, error) {
	p := Properties{
		Region:         stringProp(raw, PropRegion),
		AdminAccountID: stringProp(raw, PropAdminAccountID),
		OrganizationID: stringProp(raw, PropOrganizationID),
		ServiceName:    stringProp(raw, PropServiceName),
	}
	if p.ServiceName == "" {
		p.ServiceName = permissions.DefaultServicePrincipal
	}

	if err := validate.ValidateRegion(p.Region); err != nil {
		return p, detectiveerrors.NewInvalidRequest(PropRegion, err)
	}
	if p.AdminAccountID != "" {
		if err := validate.ValidateAccountID(p.AdminAccountID); err != nil {
			return p, detectiveerrors.NewInvalidRequest(PropAdminAccountID, err)
		}
	}
	return p, nil
}

// Request converts the properties into an enablement request for admin.
func (p Properties) Request(adminAccountID string) enablement.Request {
	return enablement.Request{
		OrganizationID: p.OrganizationID,
		ServiceName:    p.ServiceName,
		AdminAccountID: adminAccountID,
		Region:         p.Region,
	}
}

func stringProp(raw map[string]interface{}, key string) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return fmt.Sprint(v)
}

// ClientFactory builds regional service clients.
type ClientFactory interface {
	Organizations(region string) enablement.OrganizationsAPI
	Detective(region string) enablement.DetectiveAPI
}

// SSMAPI defines the SSM operations used to resolve the admin account.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// IdentityAPI defines the STS operation used to find the calling account.
type IdentityAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// AWSClientFactory creates SDK clients from a base configuration.
type AWSClientFactory struct {
	cfg aws.Config
}

// NewAWSClientFactory creates a factory that copies cfg for each region.
func NewAWSClientFactory(cfg aws.Config) *AWSClientFactory {
	return &AWSClientFactory{cfg: cfg}
}

// Organizations returns an Organizations client for region.
func (f *AWSClientFactory) Organizations(region string) enablement.OrganizationsAPI {
	return organizations.NewFromConfig(f.cfg, func(o *organizations.Options) {
		o.Region = region
	})
}

// Detective returns a Detective client for region.
func (f *AWSClientFactory) Detective(region string) enablement.DetectiveAPI {
	return detective.NewFromConfig(f.cfg, func(o *detective.Options) {
		o.Region = region
	})
}
