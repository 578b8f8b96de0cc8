package permissions

import "sort"

// IAM action names used by the handler.
const (
	ActionDescribeOrganization                = "organizations:DescribeOrganization"
	ActionListAWSServiceAccessForOrganization = "organizations:ListAWSServiceAccessForOrganization"
	ActionEnableAWSServiceAccess              = "organizations:EnableAWSServiceAccess"
	ActionListAccounts                        = "organizations:ListAccounts"
	ActionListDelegatedAdministrators         = "organizations:ListDelegatedAdministrators"
	ActionRegisterDelegatedAdministrator      = "organizations:RegisterDelegatedAdministrator"
	ActionDeregisterDelegatedAdministrator    = "organizations:DeregisterDelegatedAdministrator"
	ActionOrganizationsServicePrincipal       = "organizations:ServicePrincipal"
	ActionOrganizationsUpdateConfiguration    = "organizations:UpdateOrganizationConfiguration"

	ActionDetectiveUpdateOrganizationConfiguration = "detective:UpdateOrganizationConfiguration"
	ActionDetectiveListGraphs                      = "detective:ListGraphs"
	ActionDetectiveListMembers                     = "detective:ListMembers"
)

// organizationActions is the organizations statement's action list.
var organizationActions = []string{
	ActionDeregisterDelegatedAdministrator,
	ActionDescribeOrganization,
	ActionEnableAWSServiceAccess,
	ActionListAWSServiceAccessForOrganization,
	ActionListAccounts,
	ActionListDelegatedAdministrators,
	ActionRegisterDelegatedAdministrator,
	ActionOrganizationsServicePrincipal,
	ActionOrganizationsUpdateConfiguration,
}

// detectiveActions is the detective statement's action list, in template order.
var detectiveActions = []string{
	ActionDetectiveUpdateOrganizationConfiguration,
	ActionDetectiveListGraphs,
	ActionDetectiveListMembers,
}

// registry maps features to their required AWS IAM permissions.
var registry = map[Feature]FeaturePermissions{
	FeatureEnableAdmin: {
		Feature: FeatureEnableAdmin,
		Permissions: []Permission{
			{
				Service: "organizations",
				Actions: []string{
					ActionDescribeOrganization,
					ActionListAWSServiceAccessForOrganization,
					ActionListAccounts,
					ActionListDelegatedAdministrators,
				},
				Resource:        "*",
				PrincipalScoped: true,
				Description:     "Inspect organization, trusted access and delegated administrators",
			},
			{
				Service: "organizations",
				Actions: []string{
					ActionEnableAWSServiceAccess,
					ActionRegisterDelegatedAdministrator,
				},
				Resource:        "*",
				PrincipalScoped: true,
				Description:     "Enable trusted access and register the delegated administrator",
			},
		},
	},

	FeatureDeregisterAdmin: {
		Feature: FeatureDeregisterAdmin,
		Permissions: []Permission{
			{
				Service: "organizations",
				Actions: []string{
					ActionListDelegatedAdministrators,
					ActionDeregisterDelegatedAdministrator,
				},
				Resource:        "*",
				PrincipalScoped: true,
				Description:     "Remove the delegated administrator on stack deletion",
			},
		},
	},

	FeatureUpdateGraph: {
		Feature: FeatureUpdateGraph,
		Permissions: []Permission{
			{
				Service:     "detective",
				Actions:     []string{ActionDetectiveListGraphs, ActionDetectiveListMembers},
				Resource:    "*",
				Description: "Locate the behavior graph and count its members",
			},
			{
				Service:     "detective",
				Actions:     []string{ActionDetectiveUpdateOrganizationConfiguration},
				Resource:    "*",
				Description: "Toggle auto-enable of new organization accounts",
			},
		},
	},
}

// GetFeaturePermissions returns the permissions for a feature.
func GetFeaturePermissions(f Feature) (FeaturePermissions, bool) {
	fp, ok := registry[f]
	return fp, ok
}

// GetAllPermissions returns permissions for all features in AllFeatures order.
func GetAllPermissions() []FeaturePermissions {
	result := make([]FeaturePermissions, 0, len(registry))
	for _, f := range AllFeatures() {
		result = append(result, registry[f])
	}
	return result
}

// UniqueActions returns the sorted, de-duplicated actions of perms.
func UniqueActions(perms []FeaturePermissions) []string {
	seen := make(map[string]bool)
	var actions []string
	for _, fp := range perms {
		for _, a := range fp.Actions() {
			if !seen[a] {
				seen[a] = true
				actions = append(actions, a)
			}
		}
	}
	sort.Strings(actions)
	return actions
}
