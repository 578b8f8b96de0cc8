// Package validate provides input validation for enablement requests and
// custom-resource properties, plus log sanitization for values that arrive
// from CloudFormation events.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Validation constants for input limits.
const (
	// MaxServicePrincipalLength bounds service principal identifiers.
	MaxServicePrincipalLength = 128

	// MaxParameterNameLength is the SSM parameter name limit.
	MaxParameterNameLength = 2048

	// MaxMetricNamespaceLength is the CloudWatch namespace limit.
	MaxMetricNamespaceLength = 255
)

// Validation errors for input validation failures.
var (
	// ErrAccountIDEmpty indicates the account id is empty.
	ErrAccountIDEmpty = errors.New("account id cannot be empty")

	// ErrAccountIDFormat indicates the account id is not exactly 12 digits.
	ErrAccountIDFormat = errors.New("account id must be exactly 12 digits")

	// ErrOrganizationIDFormat indicates the organization id does not look like o-xxxx.
	ErrOrganizationIDFormat = errors.New("organization id must match o-[a-z0-9]+")

	// ErrRegionEmpty indicates the region is empty.
	ErrRegionEmpty = errors.New("region cannot be empty")

	// ErrRegionFormat indicates the region is not a valid region code.
	ErrRegionFormat = errors.New("region must look like us-east-1")

	// ErrServicePrincipalEmpty indicates the service principal is empty.
	ErrServicePrincipalEmpty = errors.New("service principal cannot be empty")

	// ErrServicePrincipalFormat indicates the service principal has invalid characters.
	ErrServicePrincipalFormat = errors.New("service principal contains invalid characters")

	// ErrParameterNameFormat indicates an invalid SSM parameter name.
	ErrParameterNameFormat = errors.New("parameter name contains invalid characters")

	// ErrMetricNamespaceFormat indicates a namespace CloudWatch would reject.
	ErrMetricNamespaceFormat = errors.New("metric namespace must be 1-255 of [A-Za-z0-9.-_/#:] and not start with AWS/")
)

var (
	accountIDRegex        = regexp.MustCompile(`^[0-9]{12}$`)
	organizationIDRegex   = regexp.MustCompile(`^o-[a-z0-9]+$`)
	regionRegex           = regexp.MustCompile(`^[a-z]{2}(-[a-z]+)+-[0-9]+$`)
	servicePrincipalRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]*$`)
	parameterNameRegex    = regexp.MustCompile(`^[a-zA-Z0-9_./-]+$`)
	metricNamespaceRegex  = regexp.MustCompile(`^[a-zA-Z0-9._/#:-]+$`)
)

// ValidateAccountID validates an AWS account id (12 decimal digits).
func ValidateAccountID(id string) error {
	if id == "" {
		return ErrAccountIDEmpty
	}
	if !accountIDRegex.MatchString(id) {
		return ErrAccountIDFormat
	}
	return nil
}

// ValidateOrganizationID validates an AWS Organizations id. An empty id is
// allowed; callers treat it as "whatever organization the caller belongs to".
func ValidateOrganizationID(id string) error {
	if id == "" {
		return nil
	}
	if !organizationIDRegex.MatchString(id) {
		return ErrOrganizationIDFormat
	}
	return nil
}

// ValidateRegion validates an AWS region code such as us-east-1 or us-gov-west-1.
func ValidateRegion(region string) error {
	if region == "" {
		return ErrRegionEmpty
	}
	if !regionRegex.MatchString(region) {
		return ErrRegionFormat
	}
	return nil
}

// ValidateServicePrincipal validates a service principal like detective.amazonaws.com.
// Short names (example-service) are accepted so that tests and private
// partitions can use their own identifiers.
func ValidateServicePrincipal(principal string) error {
	if principal == "" {
		return ErrServicePrincipalEmpty
	}
	if len(principal) > MaxServicePrincipalLength || !servicePrincipalRegex.MatchString(principal) {
		return ErrServicePrincipalFormat
	}
	return nil
}

// ValidateParameterName validates an SSM parameter name or path.
func ValidateParameterName(name string) error {
	if len(name) == 0 || len(name) > MaxParameterNameLength {
		return fmt.Errorf("%w: length %d", ErrParameterNameFormat, len(name))
	}
	if strings.Contains(name, "..") || !parameterNameRegex.MatchString(name) {
		return ErrParameterNameFormat
	}
	return nil
}

// ValidateMetricNamespace validates a custom CloudWatch metric namespace.
func ValidateMetricNamespace(ns string) error {
	if len(ns) == 0 || len(ns) > MaxMetricNamespaceLength ||
		!metricNamespaceRegex.MatchString(ns) || strings.HasPrefix(ns, "AWS/") {
		return ErrMetricNamespaceFormat
	}
	return nil
}

// SanitizeForLog sanitizes a string for safe logging.
// It replaces control characters with unicode escapes, escapes quotes and
// backslashes, and truncates to maxLen runes of output.
func SanitizeForLog(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}

	var result strings.Builder
	result.Grow(min(len(s), maxLen))

	runeCount := 0
	for _, r := range s {
		if runeCount >= maxLen {
			break
		}

		var piece string
		switch {
		case r < 32 || r == 127:
			piece = fmt.Sprintf("\\u%04x", r)
		case r == '\\':
			piece = "\\\\"
		case r == '"':
			piece = "\\\""
		case r > 127 && !unicode.IsPrint(r):
			piece = fmt.Sprintf("\\u%04x", r)
		default:
			result.WriteRune(r)
			runeCount++
			continue
		}

		if runeCount+len(piece) > maxLen {
			break
		}
		result.WriteString(piece)
		runeCount += len(piece)
	}

	return result.String()
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
