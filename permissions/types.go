// Package permissions defines the least-privilege permission set for the
// Detective graph configuration handler: the inline role policy, an
// in-process evaluator for it, and a live checker backed by
// iam:SimulatePrincipalPolicy.
package permissions

// Feature identifies a handler capability that requires AWS permissions.
type Feature string

const (
	// FeatureEnableAdmin enables trusted access and registers the delegated administrator.
	FeatureEnableAdmin Feature = "enable_admin"
	// FeatureDeregisterAdmin removes the delegated administrator during teardown.
	FeatureDeregisterAdmin Feature = "deregister_admin"
	// FeatureUpdateGraph updates the Detective organization configuration for the behavior graph.
	FeatureUpdateGraph Feature = "update_graph"
)

// IsValid returns true if the Feature is a known value.
func (f Feature) IsValid() bool {
	switch f {
	case FeatureEnableAdmin, FeatureDeregisterAdmin, FeatureUpdateGraph:
		return true
	}
	return false
}

// String returns the string representation of the Feature.
func (f Feature) String() string {
	return string(f)
}

// AllFeatures returns all valid feature values.
func AllFeatures() []Feature {
	return []Feature{
		FeatureEnableAdmin,
		FeatureDeregisterAdmin,
		FeatureUpdateGraph,
	}
}

// Permission represents a single AWS IAM permission requirement.
type Permission struct {
	// Service is the AWS service name (e.g., "organizations", "detective").
	Service string
	// Actions are the IAM actions required (e.g., "organizations:ListAccounts").
	Actions []string
	// Resource is the ARN pattern for the resource.
	Resource string
	// PrincipalScoped marks actions that are only granted for the configured
	// service principal through the organizations:ServicePrincipal condition.
	PrincipalScoped bool
	// Description provides human-readable context for this permission.
	Description string
}

// FeaturePermissions contains the permissions required for a specific feature.
type FeaturePermissions struct {
	Feature     Feature
	Permissions []Permission
}

// Actions returns every action of the feature in registry order.
func (fp FeaturePermissions) Actions() []string {
	var actions []string
	for _, p := range fp.Permissions {
		actions = append(actions, p.Actions...)
	}
	return actions
}
