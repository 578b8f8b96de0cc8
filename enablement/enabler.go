package enablement

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	orgtypes "github.com/aws/aws-sdk-go-v2/service/organizations/types"

	detectiveerrors "github.com/byteness/detective-graph-config/errors"
	"github.com/byteness/detective-graph-config/logging"
	"github.com/byteness/detective-graph-config/permissions"
	"github.com/byteness/detective-graph-config/ratelimit"
)

// Enabler registers and deregisters delegated administrators through
// AWS Organizations. Every action is checked against the handler's role
// policy before any call is made.
type Enabler struct {
	orgs       OrganizationsAPI
	authorizer *permissions.Authorizer
	pacer      ratelimit.Pacer
	logger     logging.Logger
}

// Option configures an Enabler.
type Option func(*Enabler)

// WithPacer sets the pacer for Organizations calls.
func WithPacer(p ratelimit.Pacer) Option {
	return func(e *Enabler) { e.pacer = p }
}

// WithLogger sets the logger receiving one entry per operation.
func WithLogger(l logging.Logger) Option {
	return func(e *Enabler) { e.logger = l }
}

// WithAuthorizer replaces the role-policy authorizer.
func WithAuthorizer(a *permissions.Authorizer) Option {
	return func(e *Enabler) { e.authorizer = a }
}

// NewEnablerWithClient creates an Enabler around an Organizations client.
// servicePrincipal is the principal the role policy is scoped to.
func NewEnablerWithClient(client OrganizationsAPI, servicePrincipal string, opts ...Option) *Enabler {
	e := &Enabler{
		orgs:       client,
		authorizer: permissions.NewRoleAuthorizer(servicePrincipal),
		pacer:      ratelimit.NewOrganizationsPacer(),
		logger:     logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// orgState is the current configuration of a service in the organization.
type orgState struct {
	organizationID  string
	trustedAccess   bool
	adminRegistered bool
	otherAdmins     []string
}

// Enable enables trusted access for req.ServiceName and registers
// req.AdminAccountID as its delegated administrator. On failure the
// returned Result has StatusFailed and lists the calls that did succeed.
func (e *Enabler) Enable(ctx context.Context, req Request) (*Result, error) {
	req = req.WithDefaults()
	result, err := e.enable(ctx, req)
	if err != nil {
		result = &Result{Status: StatusFailed, Reason: err.Error(), Actions: result.Actions}
	}
	e.log(logging.OperationEnable, req, result, err)
	return result, err
}

func (e *Enabler) enable(ctx context.Context, req Request) (*Result, error) {
	result := &Result{}

	if err := req.Validate(); err != nil {
		return result, err
	}
	fp, _ := permissions.GetFeaturePermissions(permissions.FeatureEnableAdmin)
	if err := e.authorizer.AuthorizeAll(fp.Actions(), req.ServiceName); err != nil {
		return result, err
	}

	state, err := e.inspect(ctx, req)
	if err != nil {
		return result, err
	}

	if len(state.otherAdmins) > 0 && !state.adminRegistered {
		ee := detectiveerrors.New(detectiveerrors.ErrCodeDelegatedAdminConflict,
			fmt.Sprintf("%s already has delegated administrator %s", req.ServiceName, strings.Join(state.otherAdmins, ", ")),
			detectiveerrors.GetSuggestion(detectiveerrors.ErrCodeDelegatedAdminConflict), nil)
		return result, detectiveerrors.WithContext(ee, "registered_admin", strings.Join(state.otherAdmins, ","))
	}

	if state.trustedAccess && state.adminRegistered {
		result.Status = StatusAlreadyEnabled
		result.Reason = fmt.Sprintf("account %s is already the delegated administrator for %s", req.AdminAccountID, req.ServiceName)
		return result, nil
	}

	if !state.trustedAccess {
		if err := e.pacer.Wait(ctx); err != nil {
			return result, detectiveerrors.WrapOrganizationsError(err, "EnableAWSServiceAccess")
		}
		_, err := e.orgs.EnableAWSServiceAccess(ctx, &organizations.EnableAWSServiceAccessInput{
			ServicePrincipal: aws.String(req.ServiceName),
		})
		if err != nil {
			return result, detectiveerrors.WrapOrganizationsError(err, "EnableAWSServiceAccess")
		}
		result.Actions = append(result.Actions, ActionEnableServiceAccess)
	}

	if !state.adminRegistered {
		if err := e.pacer.Wait(ctx); err != nil {
			return result, detectiveerrors.WrapOrganizationsError(err, "RegisterDelegatedAdministrator")
		}
		_, err := e.orgs.RegisterDelegatedAdministrator(ctx, &organizations.RegisterDelegatedAdministratorInput{
			AccountId:        aws.String(req.AdminAccountID),
			ServicePrincipal: aws.String(req.ServiceName),
		})
		switch {
		case err == nil:
			result.Actions = append(result.Actions, ActionRegisterAdmin)
		case isAlreadyRegistered(err):
			// Registered concurrently by another invocation.
		default:
			return result, detectiveerrors.WrapOrganizationsError(err, "RegisterDelegatedAdministrator")
		}
	}

	result.Status = StatusEnabled
	result.Reason = fmt.Sprintf("account %s is the delegated administrator for %s", req.AdminAccountID, req.ServiceName)
	return result, nil
}

// Disable deregisters req.AdminAccountID as delegated administrator of
// req.ServiceName. Trusted access is left enabled.
func (e *Enabler) Disable(ctx context.Context, req Request) (*Result, error) {
	req = req.WithDefaults()
	result, err := e.disable(ctx, req)
	if err != nil {
		result = &Result{Status: StatusFailed, Reason: err.Error(), Actions: result.Actions}
	}
	e.log(logging.OperationDisable, req, result, err)
	return result, err
}

func (e *Enabler) disable(ctx context.Context, req Request) (*Result, error) {
	result := &Result{}

	if err := req.Validate(); err != nil {
		return result, err
	}
	fp, _ := permissions.GetFeaturePermissions(permissions.FeatureDeregisterAdmin)
	if err := e.authorizer.AuthorizeAll(fp.Actions(), req.ServiceName); err != nil {
		return result, err
	}

	admins, err := e.listDelegatedAdmins(ctx, req.ServiceName)
	if err != nil {
		return result, err
	}
	if !contains(admins, req.AdminAccountID) {
		result.Status = StatusAlreadyDeregistered
		result.Reason = fmt.Sprintf("account %s is not a delegated administrator for %s", req.AdminAccountID, req.ServiceName)
		return result, nil
	}

	if err := e.pacer.Wait(ctx); err != nil {
		return result, detectiveerrors.WrapOrganizationsError(err, "DeregisterDelegatedAdministrator")
	}
	_, err = e.orgs.DeregisterDelegatedAdministrator(ctx, &organizations.DeregisterDelegatedAdministratorInput{
		AccountId:        aws.String(req.AdminAccountID),
		ServicePrincipal: aws.String(req.ServiceName),
	})
	if err != nil {
		if isNotRegistered(err) {
			result.Status = StatusAlreadyDeregistered
			result.Reason = fmt.Sprintf("account %s was deregistered concurrently", req.AdminAccountID)
			return result, nil
		}
		return result, detectiveerrors.WrapOrganizationsError(err, "DeregisterDelegatedAdministrator")
	}

	result.Actions = append(result.Actions, ActionDeregisterAdmin)
	result.Status = StatusDeregistered
	result.Reason = fmt.Sprintf("account %s is no longer the delegated administrator for %s", req.AdminAccountID, req.ServiceName)
	return result, nil
}

// inspect reads the organization, the service's trusted access, the admin
// account's membership and the service's delegated administrators.
func (e *Enabler) inspect(ctx context.Context, req Request) (*orgState, error) {
	if err := e.pacer.Wait(ctx); err != nil {
		return nil, detectiveerrors.WrapOrganizationsError(err, "DescribeOrganization")
	}
	out, err := e.orgs.DescribeOrganization(ctx, &organizations.DescribeOrganizationInput{})
	if err != nil {
		return nil, detectiveerrors.WrapOrganizationsError(err, "DescribeOrganization")
	}
	if out.Organization == nil || aws.ToString(out.Organization.Id) == "" {
		return nil, detectiveerrors.New(detectiveerrors.ErrCodeOrganizationUnavailable,
			"caller is not a member of an organization",
			detectiveerrors.GetSuggestion(detectiveerrors.ErrCodeOrganizationUnavailable), nil)
	}

	state := &orgState{organizationID: aws.ToString(out.Organization.Id)}
	if req.OrganizationID != "" && req.OrganizationID != state.organizationID {
		ee := detectiveerrors.New(detectiveerrors.ErrCodeOrganizationUnavailable,
			fmt.Sprintf("caller belongs to organization %s, not %s", state.organizationID, req.OrganizationID),
			detectiveerrors.GetSuggestion(detectiveerrors.ErrCodeOrganizationUnavailable), nil)
		return nil, detectiveerrors.WithContext(ee, "organization_id", req.OrganizationID)
	}

	state.trustedAccess, err = e.serviceAccessEnabled(ctx, req.ServiceName)
	if err != nil {
		return nil, err
	}

	if err := e.checkAccount(ctx, req.AdminAccountID); err != nil {
		return nil, err
	}

	admins, err := e.listDelegatedAdmins(ctx, req.ServiceName)
	if err != nil {
		return nil, err
	}
	for _, id := range admins {
		if id == req.AdminAccountID {
			state.adminRegistered = true
		} else {
			state.otherAdmins = append(state.otherAdmins, id)
		}
	}

	return state, nil
}

func (e *Enabler) serviceAccessEnabled(ctx context.Context, servicePrincipal string) (bool, error) {
	var nextToken *string
	for {
		if err := e.pacer.Wait(ctx); err != nil {
			return false, detectiveerrors.WrapOrganizationsError(err, "ListAWSServiceAccessForOrganization")
		}
		out, err := e.orgs.ListAWSServiceAccessForOrganization(ctx, &organizations.ListAWSServiceAccessForOrganizationInput{
			NextToken: nextToken,
		})
		if err != nil {
			return false, detectiveerrors.WrapOrganizationsError(err, "ListAWSServiceAccessForOrganization")
		}
		for _, sp := range out.EnabledServicePrincipals {
			if aws.ToString(sp.ServicePrincipal) == servicePrincipal {
				return true, nil
			}
		}
		if out.NextToken == nil {
			return false, nil
		}
		nextToken = out.NextToken
	}
}

// checkAccount verifies the account is an ACTIVE member of the organization.
func (e *Enabler) checkAccount(ctx context.Context, accountID string) error {
	var nextToken *string
	for {
		if err := e.pacer.Wait(ctx); err != nil {
			return detectiveerrors.WrapOrganizationsError(err, "ListAccounts")
		}
		out, err := e.orgs.ListAccounts(ctx, &organizations.ListAccountsInput{NextToken: nextToken})
		if err != nil {
			return detectiveerrors.WrapOrganizationsError(err, "ListAccounts")
		}
		for _, acct := range out.Accounts {
			if aws.ToString(acct.Id) != accountID {
				continue
			}
			if acct.Status != orgtypes.AccountStatusActive {
				ee := detectiveerrors.New(detectiveerrors.ErrCodeInvalidAccount,
					fmt.Sprintf("account %s is %s, not ACTIVE", accountID, acct.Status),
					detectiveerrors.GetSuggestion(detectiveerrors.ErrCodeInvalidAccount), nil)
				return detectiveerrors.WithContext(ee, "account_id", accountID)
			}
			return nil
		}
		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}

	ee := detectiveerrors.New(detectiveerrors.ErrCodeInvalidAccount,
		fmt.Sprintf("account %s is not a member of the organization", accountID),
		detectiveerrors.GetSuggestion(detectiveerrors.ErrCodeInvalidAccount), nil)
	return detectiveerrors.WithContext(ee, "account_id", accountID)
}

func (e *Enabler) listDelegatedAdmins(ctx context.Context, servicePrincipal string) ([]string, error) {
	var ids []string
	var nextToken *string
	for {
		if err := e.pacer.Wait(ctx); err != nil {
			return nil, detectiveerrors.WrapOrganizationsError(err, "ListDelegatedAdministrators")
		}
		out, err := e.orgs.ListDelegatedAdministrators(ctx, &organizations.ListDelegatedAdministratorsInput{
			ServicePrincipal: aws.String(servicePrincipal),
			NextToken:        nextToken,
		})
		if err != nil {
			return nil, detectiveerrors.WrapOrganizationsError(err, "ListDelegatedAdministrators")
		}
		for _, admin := range out.DelegatedAdministrators {
			if id := aws.ToString(admin.Id); id != "" {
				ids = append(ids, id)
			}
		}
		if out.NextToken == nil {
			return ids, nil
		}
		nextToken = out.NextToken
	}
}

func (e *Enabler) log(operation string, req Request, result *Result, err error) {
	entry := logging.NewEnablementLogEntry(operation, req.OrganizationID, req.ServiceName, req.AdminAccountID, req.Region)
	entry.Status = result.Status.String()
	entry.Reason = result.Reason
	entry.Actions = result.Actions
	if err != nil {
		entry.ErrorCode = detectiveerrors.GetCode(err)
		entry.Error = err.Error()
	}
	e.logger.LogEnablement(entry)
}

func isAlreadyRegistered(err error) bool {
	return detectiveerrors.APIErrorCode(err) == "AccountAlreadyRegisteredException" ||
		strings.Contains(strings.ToLower(err.Error()), "already registered")
}

func isNotRegistered(err error) bool {
	if detectiveerrors.APIErrorCode(err) == "AccountNotRegisteredException" {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not registered") || strings.Contains(msg, "not a registered")
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
