package testutil

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	orgtypes "github.com/aws/aws-sdk-go-v2/service/organizations/types"
)

// Organizations operation names recorded by FakeOrganization.
const (
	OpDescribeOrganization                = "DescribeOrganization"
	OpListAWSServiceAccessForOrganization = "ListAWSServiceAccessForOrganization"
	OpEnableAWSServiceAccess              = "EnableAWSServiceAccess"
	OpListAccounts                        = "ListAccounts"
	OpListDelegatedAdministrators         = "ListDelegatedAdministrators"
	OpRegisterDelegatedAdministrator      = "RegisterDelegatedAdministrator"
	OpDeregisterDelegatedAdministrator    = "DeregisterDelegatedAdministrator"
)

var mutatingOps = map[string]bool{
	OpEnableAWSServiceAccess:           true,
	OpRegisterDelegatedAdministrator:   true,
	OpDeregisterDelegatedAdministrator: true,
}

// FakeOrganization is an in-memory AWS Organizations that keeps state
// across calls, so that idempotency can be tested end to end. It enforces
// the same ordering AWS does: registering a delegated administrator
// requires trusted access for the service.
type FakeOrganization struct {
	mu sync.Mutex

	// ID is the organization id; empty means the caller has no organization.
	ID string
	// Accounts maps account id to status.
	Accounts map[string]orgtypes.AccountStatus
	// EnabledServices holds service principals with trusted access.
	EnabledServices map[string]bool
	// DelegatedAdmins maps service principal to registered account ids.
	DelegatedAdmins map[string][]string
	// PageSize bounds list results; zero returns everything at once.
	PageSize int
	// Errors forces the named operation to fail.
	Errors map[string]error

	// Calls records operation names in call order.
	Calls []string
}

// NewFakeOrganization creates an organization with the given ACTIVE accounts.
func NewFakeOrganization(id string, accounts ...string) *FakeOrganization {
	f := &FakeOrganization{
		ID:              id,
		Accounts:        make(map[string]orgtypes.AccountStatus),
		EnabledServices: make(map[string]bool),
		DelegatedAdmins: make(map[string][]string),
		Errors:          make(map[string]error),
	}
	for _, a := range accounts {
		f.Accounts[a] = orgtypes.AccountStatusActive
	}
	return f
}

// record appends op to Calls and returns its forced error, if any.
func (f *FakeOrganization) record(op string) error {
	f.Calls = append(f.Calls, op)
	if err := f.Errors[op]; err != nil {
		return err
	}
	if f.ID == "" {
		return &orgtypes.AWSOrganizationsNotInUseException{
			Message: aws.String("Your account is not a member of an organization."),
		}
	}
	return nil
}

// MutatingCalls returns the recorded calls that change state.
func (f *FakeOrganization) MutatingCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var calls []string
	for _, c := range f.Calls {
		if mutatingOps[c] {
			calls = append(calls, c)
		}
	}
	return calls
}

// CallCount returns how many times op was called.
func (f *FakeOrganization) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c == op {
			n++
		}
	}
	return n
}

// ResetCalls clears the recorded calls but keeps the state.
func (f *FakeOrganization) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = nil
}

// IsRegistered reports whether account is a delegated administrator for principal.
func (f *FakeOrganization) IsRegistered(principal, account string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return indexOf(f.DelegatedAdmins[principal], account) >= 0
}

// DescribeOrganization implements Organizations DescribeOrganization.
func (f *FakeOrganization) DescribeOrganization(ctx context.Context, params *organizations.DescribeOrganizationInput, optFns ...func(*organizations.Options)) (*organizations.DescribeOrganizationOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpDescribeOrganization); err != nil {
		return nil, err
	}
	return &organizations.DescribeOrganizationOutput{
		Organization: &orgtypes.Organization{
			Id:         aws.String(f.ID),
			FeatureSet: orgtypes.OrganizationFeatureSetAll,
		},
	}, nil
}

// ListAWSServiceAccessForOrganization implements Organizations ListAWSServiceAccessForOrganization.
func (f *FakeOrganization) ListAWSServiceAccessForOrganization(ctx context.Context, params *organizations.ListAWSServiceAccessForOrganizationInput, optFns ...func(*organizations.Options)) (*organizations.ListAWSServiceAccessForOrganizationOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpListAWSServiceAccessForOrganization); err != nil {
		return nil, err
	}

	principals := sortedKeys(f.EnabledServices)
	start, end, next := f.page(params.NextToken, len(principals))
	out := &organizations.ListAWSServiceAccessForOrganizationOutput{NextToken: next}
	for _, p := range principals[start:end] {
		out.EnabledServicePrincipals = append(out.EnabledServicePrincipals, orgtypes.EnabledServicePrincipal{
			ServicePrincipal: aws.String(p),
		})
	}
	return out, nil
}

// EnableAWSServiceAccess implements Organizations EnableAWSServiceAccess.
func (f *FakeOrganization) EnableAWSServiceAccess(ctx context.Context, params *organizations.EnableAWSServiceAccessInput, optFns ...func(*organizations.Options)) (*organizations.EnableAWSServiceAccessOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpEnableAWSServiceAccess); err != nil {
		return nil, err
	}
	f.EnabledServices[aws.ToString(params.ServicePrincipal)] = true
	return &organizations.EnableAWSServiceAccessOutput{}, nil
}

// ListAccounts implements Organizations ListAccounts.
func (f *FakeOrganization) ListAccounts(ctx context.Context, params *organizations.ListAccountsInput, optFns ...func(*organizations.Options)) (*organizations.ListAccountsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpListAccounts); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(f.Accounts))
	for id := range f.Accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	start, end, next := f.page(params.NextToken, len(ids))
	out := &organizations.ListAccountsOutput{NextToken: next}
	for _, id := range ids[start:end] {
		out.Accounts = append(out.Accounts, orgtypes.Account{
			Id:     aws.String(id),
			Status: f.Accounts[id],
		})
	}
	return out, nil
}

// ListDelegatedAdministrators implements Organizations ListDelegatedAdministrators.
func (f *FakeOrganization) ListDelegatedAdministrators(ctx context.Context, params *organizations.ListDelegatedAdministratorsInput, optFns ...func(*organizations.Options)) (*organizations.ListDelegatedAdministratorsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpListDelegatedAdministrators); err != nil {
		return nil, err
	}

	admins := f.DelegatedAdmins[aws.ToString(params.ServicePrincipal)]
	start, end, next := f.page(params.NextToken, len(admins))
	out := &organizations.ListDelegatedAdministratorsOutput{NextToken: next}
	for _, id := range admins[start:end] {
		out.DelegatedAdministrators = append(out.DelegatedAdministrators, orgtypes.DelegatedAdministrator{
			Id:     aws.String(id),
			Status: f.Accounts[id],
		})
	}
	return out, nil
}

// RegisterDelegatedAdministrator implements Organizations RegisterDelegatedAdministrator.
func (f *FakeOrganization) RegisterDelegatedAdministrator(ctx context.Context, params *organizations.RegisterDelegatedAdministratorInput, optFns ...func(*organizations.Options)) (*organizations.RegisterDelegatedAdministratorOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpRegisterDelegatedAdministrator); err != nil {
		return nil, err
	}

	principal := aws.ToString(params.ServicePrincipal)
	account := aws.ToString(params.AccountId)
	if _, ok := f.Accounts[account]; !ok {
		return nil, &orgtypes.AccountNotFoundException{
			Message: aws.String(fmt.Sprintf("account %s not found", account)),
		}
	}
	if !f.EnabledServices[principal] {
		return nil, &orgtypes.ConstraintViolationException{
			Message: aws.String(fmt.Sprintf("trusted access is not enabled for %s", principal)),
		}
	}
	if indexOf(f.DelegatedAdmins[principal], account) >= 0 {
		return nil, &orgtypes.AccountAlreadyRegisteredException{
			Message: aws.String("The provided account is already a delegated administrator for your organization."),
		}
	}
	f.DelegatedAdmins[principal] = append(f.DelegatedAdmins[principal], account)
	return &organizations.RegisterDelegatedAdministratorOutput{}, nil
}

// DeregisterDelegatedAdministrator implements Organizations DeregisterDelegatedAdministrator.
func (f *FakeOrganization) DeregisterDelegatedAdministrator(ctx context.Context, params *organizations.DeregisterDelegatedAdministratorInput, optFns ...func(*organizations.Options)) (*organizations.DeregisterDelegatedAdministratorOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpDeregisterDelegatedAdministrator); err != nil {
		return nil, err
	}

	principal := aws.ToString(params.ServicePrincipal)
	admins := f.DelegatedAdmins[principal]
	i := indexOf(admins, aws.ToString(params.AccountId))
	if i < 0 {
		return nil, &orgtypes.AccountNotRegisteredException{
			Message: aws.String("The provided account is not a registered delegated administrator for your organization."),
		}
	}
	f.DelegatedAdmins[principal] = append(admins[:i:i], admins[i+1:]...)
	return &organizations.DeregisterDelegatedAdministratorOutput{}, nil
}

// page returns the slice bounds for the page starting at token and the
// token of the following page.
func (f *FakeOrganization) page(token *string, total int) (int, int, *string) {
	start := parseToken(token)
	if start > total {
		start = total
	}
	end := total
	if f.PageSize > 0 && start+f.PageSize < total {
		end = start + f.PageSize
	}
	if end < total {
		return start, end, formatToken(end)
	}
	return start, end, nil
}

func parseToken(token *string) int {
	if token == nil {
		return 0
	}
	n, err := strconv.Atoi(*token)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func formatToken(n int) *string {
	return aws.String(strconv.Itoa(n))
}

func indexOf(values []string, v string) int {
	for i, s := range values {
		if s == v {
			return i
		}
	}
	return -1
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k, ok := range m {
		if ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
