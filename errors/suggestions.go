package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"
)

// Suggestions contains default fix suggestions for each error code.
var Suggestions = map[string]string{
	ErrCodeOrganizationUnavailable: "The caller is not part of an AWS Organization, or the organization id does not match. " +
		"Run the handler from the management account of the intended organization.",
	ErrCodePermissionDenied: "The execution role is missing a required action or the service principal condition does not match. " +
		"Run: detective-graph policy --service-principal <principal>",
	ErrCodeInvalidAccount: "The delegated administrator account is not an active member of the organization. " +
		"Verify the account id with: aws organizations list-accounts",
	ErrCodeTransientService: "The AWS API was throttled or temporarily unavailable. " +
		"Let CloudFormation retry the stack operation.",
	ErrCodeInvalidRequest:         "The request is malformed. Check the account id (12 digits), organization id (o-...) and region.",
	ErrCodeDelegatedAdminConflict: "Another account is already the delegated administrator for this service. Deregister it first.",
	ErrCodeGraphUnavailable: "No Detective behavior graph exists in this region. " +
		"Enable Detective in the delegated administrator account before updating the graph.",
	ErrCodeIAMSimulateAccessDenied: "Permission checking requires iam:SimulatePrincipalPolicy. " +
		"This permission is optional - you can verify permissions manually instead.",
	ErrCodeSTSError: "Unable to determine the caller identity. Check your AWS credentials.",
}

// GetSuggestion returns the default suggestion for an error code.
// Returns empty string if no suggestion is defined.
func GetSuggestion(code string) string {
	return Suggestions[code]
}

// NewPermissionDenied creates a PERMISSION_DENIED error for an action the
// permission policy does not allow for the given service principal.
func NewPermissionDenied(action, principal string) EnablementError {
	se := New(ErrCodePermissionDenied,
		fmt.Sprintf("permission denied: %s is not allowed for service principal %s", action, principal),
		Suggestions[ErrCodePermissionDenied], nil)
	se = WithContext(se, "action", action)
	return WithContext(se, "service_principal", principal)
}

// NewInvalidRequest creates an INVALID_REQUEST error for the named field.
func NewInvalidRequest(field string, cause error) EnablementError {
	se := New(ErrCodeInvalidRequest,
		fmt.Sprintf("invalid request: %s: %v", field, cause),
		Suggestions[ErrCodeInvalidRequest], cause)
	return WithContext(se, "field", field)
}

// WrapOrganizationsError examines an AWS Organizations error and returns an EnablementError.
func WrapOrganizationsError(err error, operation string) EnablementError {
	if err == nil {
		return nil
	}
	if ee, ok := IsEnablementError(err); ok {
		return ee
	}

	var code, message string
	apiCode, errStr := classify(err)

	switch {
	case apiCode == "AWSOrganizationsNotInUseException" || isNotInOrganization(errStr):
		code = ErrCodeOrganizationUnavailable
		message = fmt.Sprintf("organization unavailable during %s", operation)
	case apiCode == "AccountNotFoundException" || strings.Contains(errStr, "account not found"):
		code = ErrCodeInvalidAccount
		message = fmt.Sprintf("account not found during %s", operation)
	case apiCode == "AccessDeniedException" || apiCode == "AccessDeniedForDependencyException" || isAccessDenied(errStr):
		code = ErrCodePermissionDenied
		message = fmt.Sprintf("access denied for organizations:%s", operation)
	case isTransientCode(apiCode) || isThrottled(errStr):
		code = ErrCodeTransientService
		message = fmt.Sprintf("transient organizations error during %s", operation)
	default:
		code = ErrCodeTransientService
		message = fmt.Sprintf("organizations error during %s: %v", operation, err)
	}

	se := New(code, message, Suggestions[code], err)
	return WithContext(se, "operation", operation)
}

// WrapDetectiveError examines an Amazon Detective error and returns an EnablementError.
func WrapDetectiveError(err error, operation string) EnablementError {
	if err == nil {
		return nil
	}
	if ee, ok := IsEnablementError(err); ok {
		return ee
	}

	var code, message string
	apiCode, errStr := classify(err)

	switch {
	case apiCode == "AccessDeniedException" || isAccessDenied(errStr):
		code = ErrCodePermissionDenied
		message = fmt.Sprintf("access denied for detective:%s", operation)
	case apiCode == "ResourceNotFoundException" || strings.Contains(errStr, "resourcenotfound"):
		code = ErrCodeGraphUnavailable
		message = fmt.Sprintf("behavior graph not found during %s", operation)
	case isTransientCode(apiCode) || isThrottled(errStr):
		code = ErrCodeTransientService
		message = fmt.Sprintf("transient detective error during %s", operation)
	default:
		code = ErrCodeTransientService
		message = fmt.Sprintf("detective error during %s: %v", operation, err)
	}

	se := New(code, message, Suggestions[code], err)
	return WithContext(se, "operation", operation)
}

// WrapIAMError examines an IAM or STS error raised while checking permissions.
func WrapIAMError(err error, operation string) EnablementError {
	if err == nil {
		return nil
	}

	var code, message string
	apiCode, errStr := classify(err)

	switch {
	case apiCode == "AccessDenied" || isAccessDenied(errStr):
		code = ErrCodeIAMSimulateAccessDenied
		message = fmt.Sprintf("access denied for %s", operation)
	case isTransientCode(apiCode) || isThrottled(errStr):
		code = ErrCodeTransientService
		message = fmt.Sprintf("transient IAM error during %s", operation)
	default:
		code = ErrCodeSTSError
		message = fmt.Sprintf("IAM error during %s: %v", operation, err)
	}

	se := New(code, message, Suggestions[code], err)
	return WithContext(se, "operation", operation)
}

// APIErrorCode returns the AWS API error code carried by err, if any.
func APIErrorCode(err error) string {
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// classify returns the API error code (if any) and the lowercased message.
func classify(err error) (string, string) {
	return APIErrorCode(err), strings.ToLower(err.Error())
}

// isTransientCode checks for API error codes that a later attempt may clear.
func isTransientCode(code string) bool {
	switch code {
	case "TooManyRequestsException", "ThrottlingException", "Throttling",
		"ServiceException", "InternalServerException", "ServiceUnavailableException",
		"ConcurrentModificationException":
		return true
	}
	return false
}

// isNotInOrganization checks if error indicates the account is not in an organization.
func isNotInOrganization(errStr string) bool {
	return strings.Contains(errStr, "awsorganizationsnotinuse") ||
		strings.Contains(errStr, "not a member of an organization")
}

// isAccessDenied checks if error contains access denied indicators.
func isAccessDenied(errStr string) bool {
	return strings.Contains(errStr, "accessdenied") ||
		strings.Contains(errStr, "access denied") ||
		strings.Contains(errStr, "unauthorized") ||
		strings.Contains(errStr, "not authorized") ||
		strings.Contains(errStr, "403")
}

// isThrottled checks if error indicates throttling.
func isThrottled(errStr string) bool {
	return strings.Contains(errStr, "throttl") ||
		strings.Contains(errStr, "rate exceeded") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "slowdown")
}
