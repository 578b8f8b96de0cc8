// Package enablement makes a member account the delegated administrator of
// an AWS service within an organization, and configures the Amazon Detective
// behavior graph owned by that administrator.
//
// Enable is idempotent: a request whose trusted access and registration are
// already in place returns StatusAlreadyEnabled without mutating anything.
// Disable is its teardown counterpart and treats an account that is no
// longer registered as success.
package enablement

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/detective"
	"github.com/aws/aws-sdk-go-v2/service/organizations"

	detectiveerrors "github.com/byteness/detective-graph-config/errors"
	"github.com/byteness/detective-graph-config/permissions"
	"github.com/byteness/detective-graph-config/validate"
)

// Status is the outcome of an enablement operation.
type Status string

const (
	StatusEnabled             Status = "Enabled"
	StatusAlreadyEnabled      Status = "AlreadyEnabled"
	StatusDeregistered        Status = "Deregistered"
	StatusAlreadyDeregistered Status = "AlreadyDeregistered"
	StatusFailed              Status = "Failed"
)

// IsValid returns true if the Status is a known value.
func (s Status) IsValid() bool {
	switch s {
	case StatusEnabled, StatusAlreadyEnabled, StatusDeregistered, StatusAlreadyDeregistered, StatusFailed:
		return true
	}
	return false
}

// String returns the string representation of the Status.
func (s Status) String() string {
	return string(s)
}

// Mutating Organizations calls, as recorded in Result.Actions.
const (
	ActionEnableServiceAccess  = "EnableAWSServiceAccess"
	ActionRegisterAdmin        = "RegisterDelegatedAdministrator"
	ActionDeregisterAdmin      = "DeregisterDelegatedAdministrator"
	ActionUpdateOrgGraphConfig = "UpdateOrganizationConfiguration"
)

// Request identifies the delegated administrator to enable or remove.
type Request struct {
	// OrganizationID, when set, must equal the caller's organization id.
	OrganizationID string `json:"organization_id,omitempty" yaml:"organization_id,omitempty"`
	// ServiceName is the service principal, e.g. detective.amazonaws.com.
	ServiceName string `json:"service_name" yaml:"service_name"`
	// AdminAccountID must be an active member of the organization.
	AdminAccountID string `json:"admin_account_id" yaml:"admin_account_id"`
	// Region the request is issued from.
	Region string `json:"region" yaml:"region"`
}

// WithDefaults returns a copy of r with ServiceName defaulted.
func (r Request) WithDefaults() Request {
	if r.ServiceName == "" {
		r.ServiceName = permissions.DefaultServicePrincipal
	}
	return r
}

// Validate checks the request fields for well-formedness.
func (r Request) Validate() error {
	if err := validate.ValidateAccountID(r.AdminAccountID); err != nil {
		return detectiveerrors.NewInvalidRequest("admin_account_id", err)
	}
	if err := validate.ValidateOrganizationID(r.OrganizationID); err != nil {
		return detectiveerrors.NewInvalidRequest("organization_id", err)
	}
	if err := validate.ValidateRegion(r.Region); err != nil {
		return detectiveerrors.NewInvalidRequest("region", err)
	}
	if err := validate.ValidateServicePrincipal(r.ServiceName); err != nil {
		return detectiveerrors.NewInvalidRequest("service_name", err)
	}
	return nil
}

// Result describes what an operation found and did.
type Result struct {
	Status Status `json:"status" yaml:"status"`
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
	// Actions lists the mutating API calls that succeeded, in order.
	Actions []string `json:"actions,omitempty" yaml:"actions,omitempty"`
}

// Mutated reports whether the operation changed any state.
func (r *Result) Mutated() bool {
	return len(r.Actions) > 0
}

// OrganizationsAPI defines the AWS Organizations operations used.
type OrganizationsAPI interface {
	DescribeOrganization(ctx context.Context, params *organizations.DescribeOrganizationInput, optFns ...func(*organizations.Options)) (*organizations.DescribeOrganizationOutput, error)
	ListAWSServiceAccessForOrganization(ctx context.Context, params *organizations.ListAWSServiceAccessForOrganizationInput, optFns ...func(*organizations.Options)) (*organizations.ListAWSServiceAccessForOrganizationOutput, error)
	EnableAWSServiceAccess(ctx context.Context, params *organizations.EnableAWSServiceAccessInput, optFns ...func(*organizations.Options)) (*organizations.EnableAWSServiceAccessOutput, error)
	ListAccounts(ctx context.Context, params *organizations.ListAccountsInput, optFns ...func(*organizations.Options)) (*organizations.ListAccountsOutput, error)
	ListDelegatedAdministrators(ctx context.Context, params *organizations.ListDelegatedAdministratorsInput, optFns ...func(*organizations.Options)) (*organizations.ListDelegatedAdministratorsOutput, error)
	RegisterDelegatedAdministrator(ctx context.Context, params *organizations.RegisterDelegatedAdministratorInput, optFns ...func(*organizations.Options)) (*organizations.RegisterDelegatedAdministratorOutput, error)
	DeregisterDelegatedAdministrator(ctx context.Context, params *organizations.DeregisterDelegatedAdministratorInput, optFns ...func(*organizations.Options)) (*organizations.DeregisterDelegatedAdministratorOutput, error)
}

// DetectiveAPI defines the Amazon Detective operations used.
type DetectiveAPI interface {
	ListGraphs(ctx context.Context, params *detective.ListGraphsInput, optFns ...func(*detective.Options)) (*detective.ListGraphsOutput, error)
	ListMembers(ctx context.Context, params *detective.ListMembersInput, optFns ...func(*detective.Options)) (*detective.ListMembersOutput, error)
	UpdateOrganizationConfiguration(ctx context.Context, params *detective.UpdateOrganizationConfigurationInput, optFns ...func(*detective.Options)) (*detective.UpdateOrganizationConfigurationOutput, error)
}
