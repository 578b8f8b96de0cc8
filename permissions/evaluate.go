package permissions

import (
	"strings"
	"sync"

	"github.com/gobwas/glob"

	detectiveerrors "github.com/byteness/detective-graph-config/errors"
)

// Decision is the outcome of evaluating a policy for a request.
type Decision string

const (
	DecisionAllowed      Decision = "allowed"
	DecisionExplicitDeny Decision = "explicitDeny"
	DecisionImplicitDeny Decision = "implicitDeny"
)

// RequestContext holds the condition keys present on a request.
type RequestContext map[string]string

// globCache holds compiled patterns, keyed by pattern text.
var globCache sync.Map

func compile(pattern string) (glob.Glob, error) {
	if g, ok := globCache.Load(pattern); ok {
		return g.(glob.Glob), nil
	}
	g, err := glob.Compile(globSyntax(pattern))
	if err != nil {
		return nil, err
	}
	globCache.Store(pattern, g)
	return g, nil
}

// globSyntax rewrites an IAM pattern for glob.Compile. IAM only knows '*' and
// '?', so everything else, glob's '{}', '[]' and '\' included, is quoted.
func globSyntax(pattern string) string {
	var b strings.Builder
	literal := 0
	for i := 0; i < len(pattern); i++ {
		if c := pattern[i]; c == '*' || c == '?' {
			b.WriteString(glob.QuoteMeta(pattern[literal:i]))
			b.WriteByte(c)
			literal = i + 1
		}
	}
	b.WriteString(glob.QuoteMeta(pattern[literal:]))
	return b.String()
}

// matchPattern reports whether value matches an IAM wildcard pattern
// ('*' any run of characters, '?' one character).
func matchPattern(pattern, value string) bool {
	g, err := compile(pattern)
	if err != nil {
		return false
	}
	return g.Match(value)
}

// matchAction matches action names case-insensitively, as IAM does.
func matchAction(pattern, action string) bool {
	return matchPattern(strings.ToLower(pattern), strings.ToLower(action))
}

// Evaluate decides whether doc allows action for a request with the given
// context. An explicit deny wins over any allow; no matching allow is an
// implicit deny. Resources are not evaluated: every handler action targets "*".
func Evaluate(doc PolicyDocument, action string, ctx RequestContext) Decision {
	allowed := false
	for _, stmt := range doc.Statement {
		if !statementApplies(stmt, action, ctx) {
			continue
		}
		switch stmt.Effect {
		case EffectDeny:
			return DecisionExplicitDeny
		case EffectAllow:
			allowed = true
		}
	}
	if allowed {
		return DecisionAllowed
	}
	return DecisionImplicitDeny
}

func statementApplies(stmt Statement, action string, ctx RequestContext) bool {
	matched := false
	for _, pattern := range stmt.Action {
		if matchAction(pattern, action) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	for operator, keys := range stmt.Condition {
		for key, values := range keys {
			if !evaluateCondition(operator, key, values, ctx) {
				return false
			}
		}
	}
	return true
}

// evaluateCondition evaluates one operator/key pair. Unsupported operators
// never match, so an allow guarded by one is not granted.
func evaluateCondition(operator, key string, values []string, ctx RequestContext) bool {
	ifExists := strings.HasSuffix(operator, "IfExists")
	base := strings.TrimSuffix(operator, "IfExists")

	actual, present := ctx[key]
	if !present {
		switch base {
		case "StringNotEquals", "StringNotLike":
			return true
		}
		return ifExists
	}

	switch base {
	case "StringEquals":
		return anyOf(values, func(v string) bool { return v == actual })
	case "StringNotEquals":
		return !anyOf(values, func(v string) bool { return v == actual })
	case "StringLike":
		return anyOf(values, func(v string) bool { return matchPattern(v, actual) })
	case "StringNotLike":
		return !anyOf(values, func(v string) bool { return matchPattern(v, actual) })
	}
	return false
}

func anyOf(values []string, pred func(string) bool) bool {
	for _, v := range values {
		if pred(v) {
			return true
		}
	}
	return false
}

// Authorizer checks handler actions against a policy document before any
// AWS call is made.
type Authorizer struct {
	policy PolicyDocument
}

// NewAuthorizer creates an Authorizer for the given policy document.
func NewAuthorizer(doc PolicyDocument) *Authorizer {
	return &Authorizer{policy: doc}
}

// NewRoleAuthorizer creates an Authorizer for the handler role policy
// scoped to servicePrincipal.
func NewRoleAuthorizer(servicePrincipal string) *Authorizer {
	return NewAuthorizer(RolePolicy(servicePrincipal))
}

// Authorize returns a PERMISSION_DENIED error when action is not allowed
// for a request targeting principal.
func (a *Authorizer) Authorize(action, principal string) error {
	ctx := RequestContext{ServicePrincipalConditionKey: principal}
	if Evaluate(a.policy, action, ctx) != DecisionAllowed {
		return detectiveerrors.NewPermissionDenied(action, principal)
	}
	return nil
}

// AuthorizeAll authorizes every action and returns the first denial.
func (a *Authorizer) AuthorizeAll(actions []string, principal string) error {
	for _, action := range actions {
		if err := a.Authorize(action, principal); err != nil {
			return err
		}
	}
	return nil
}
