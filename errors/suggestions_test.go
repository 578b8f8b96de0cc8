package errors

import (
	"errors"
	"strings"
	"testing"

	"github.com/aws/smithy-go"
)

func TestGetSuggestion(t *testing.T) {
	tests := []struct {
		code    string
		wantHas string
	}{
		{ErrCodeOrganizationUnavailable, "management account"},
		{ErrCodePermissionDenied, "detective-graph policy"},
		{ErrCodeInvalidAccount, "list-accounts"},
		{ErrCodeTransientService, "retry"},
		{ErrCodeGraphUnavailable, "behavior graph"},
		{ErrCodeIAMSimulateAccessDenied, "SimulatePrincipalPolicy"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got := GetSuggestion(tt.code)
			if got == "" {
				t.Fatalf("GetSuggestion(%q) = empty string", tt.code)
			}
			if !strings.Contains(strings.ToLower(got), strings.ToLower(tt.wantHas)) {
				t.Errorf("GetSuggestion(%q) = %q, want to contain %q", tt.code, got, tt.wantHas)
			}
		})
	}
}

func TestGetSuggestion_UnknownCode(t *testing.T) {
	if got := GetSuggestion("UNKNOWN_CODE"); got != "" {
		t.Errorf("GetSuggestion(UNKNOWN_CODE) = %q, want empty string", got)
	}
}

func TestWrapOrganizationsError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "not in use api error",
			err:      &smithy.GenericAPIError{Code: "AWSOrganizationsNotInUseException", Message: "Your account is not a member of an organization."},
			wantCode: ErrCodeOrganizationUnavailable,
		},
		{
			name:     "not in organization message",
			err:      errors.New("operation error: not a member of an organization"),
			wantCode: ErrCodeOrganizationUnavailable,
		},
		{
			name:     "account not found",
			err:      &smithy.GenericAPIError{Code: "AccountNotFoundException", Message: "missing"},
			wantCode: ErrCodeInvalidAccount,
		},
		{
			name:     "access denied api error",
			err:      &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "nope"},
			wantCode: ErrCodePermissionDenied,
		},
		{
			name:     "access denied message",
			err:      errors.New("User is not authorized to perform organizations:ListAccounts"),
			wantCode: ErrCodePermissionDenied,
		},
		{
			name:     "too many requests",
			err:      &smithy.GenericAPIError{Code: "TooManyRequestsException", Message: "slow down"},
			wantCode: ErrCodeTransientService,
		},
		{
			name:     "concurrent modification",
			err:      &smithy.GenericAPIError{Code: "ConcurrentModificationException", Message: "busy"},
			wantCode: ErrCodeTransientService,
		},
		{
			name:     "unknown",
			err:      errors.New("connection reset"),
			wantCode: ErrCodeTransientService,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := WrapOrganizationsError(tt.err, "ListAccounts")
			if se.Code() != tt.wantCode {
				t.Errorf("Code() = %q, want %q", se.Code(), tt.wantCode)
			}
			if se.Context()["operation"] != "ListAccounts" {
				t.Errorf("Context()[operation] = %q", se.Context()["operation"])
			}
			if se.Unwrap() != tt.err {
				t.Errorf("Unwrap() = %v, want %v", se.Unwrap(), tt.err)
			}
		})
	}
}

func TestWrapOrganizationsError_Nil(t *testing.T) {
	if WrapOrganizationsError(nil, "DescribeOrganization") != nil {
		t.Error("WrapOrganizationsError(nil) should return nil")
	}
}

func TestWrapOrganizationsError_KeepsExistingCode(t *testing.T) {
	denied := NewPermissionDenied("organizations:ListAccounts", "detective.amazonaws.com")
	if got := WrapOrganizationsError(denied, "ListAccounts"); got.Code() != ErrCodePermissionDenied {
		t.Errorf("Code() = %q, want %q", got.Code(), ErrCodePermissionDenied)
	}
}

func TestWrapDetectiveError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"access denied", &smithy.GenericAPIError{Code: "AccessDeniedException"}, ErrCodePermissionDenied},
		{"graph missing", &smithy.GenericAPIError{Code: "ResourceNotFoundException"}, ErrCodeGraphUnavailable},
		{"throttled", &smithy.GenericAPIError{Code: "TooManyRequestsException"}, ErrCodeTransientService},
		{"internal", &smithy.GenericAPIError{Code: "InternalServerException"}, ErrCodeTransientService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WrapDetectiveError(tt.err, "ListGraphs").Code(); got != tt.wantCode {
				t.Errorf("Code() = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestWrapIAMError(t *testing.T) {
	if got := WrapIAMError(errors.New("AccessDenied: not allowed"), "SimulatePrincipalPolicy").Code(); got != ErrCodeIAMSimulateAccessDenied {
		t.Errorf("Code() = %q, want %q", got, ErrCodeIAMSimulateAccessDenied)
	}
	if got := WrapIAMError(errors.New("expired token"), "GetCallerIdentity").Code(); got != ErrCodeSTSError {
		t.Errorf("Code() = %q, want %q", got, ErrCodeSTSError)
	}
}

func TestNewPermissionDenied(t *testing.T) {
	se := NewPermissionDenied("organizations:EnableAWSServiceAccess", "guardduty.amazonaws.com")
	if se.Code() != ErrCodePermissionDenied {
		t.Errorf("Code() = %q", se.Code())
	}
	if se.Context()["action"] != "organizations:EnableAWSServiceAccess" {
		t.Errorf("Context()[action] = %q", se.Context()["action"])
	}
	if !strings.Contains(se.Error(), "guardduty.amazonaws.com") {
		t.Errorf("Error() = %q, want principal in message", se.Error())
	}
}

func TestAPIErrorCode(t *testing.T) {
	if got := APIErrorCode(&smithy.GenericAPIError{Code: "ThrottlingException"}); got != "ThrottlingException" {
		t.Errorf("APIErrorCode() = %q", got)
	}
	if got := APIErrorCode(errors.New("plain")); got != "" {
		t.Errorf("APIErrorCode(plain) = %q, want empty", got)
	}
}
