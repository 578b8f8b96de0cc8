// Package testutil provides reusable test utilities: call-recording AWS
// client mocks, a stateful fake AWS Organizations, recording loggers and
// notifiers, and assertion helpers.
package testutil

import (
	"errors"
	"strings"
	"testing"

	detectiveerrors "github.com/byteness/detective-graph-config/errors"
)

// Well-known identifiers used across tests.
const (
	TestOrganizationID = "o-1"
	TestAdminAccountID = "222222222222"
	TestRegion         = "us-east-1"
	TestGraphArn       = "arn:aws:detective:us-east-1:222222222222:graph:7e2b5a6c0d1f4e3a9b8c7d6e5f4a3b2c"
)

// AssertErrorIs checks if got error matches want error using errors.Is.
//
//	AssertErrorIs(t, err, validate.ErrAccountIDFormat)
func AssertErrorIs(t *testing.T, got, want error) {
	t.Helper()
	if !errors.Is(got, want) {
		t.Errorf("error mismatch:\n  got:  %v\n  want: %v", got, want)
	}
}

// AssertErrorCode checks that err carries the given enablement error code.
//
//	AssertErrorCode(t, err, detectiveerrors.ErrCodePermissionDenied)
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	if got := detectiveerrors.GetCode(err); got != code {
		t.Errorf("error code mismatch:\n  got:  %q (%v)\n  want: %q", got, err, code)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertContains checks if got string contains substr.
func AssertContains(t *testing.T, got, substr string) {
	t.Helper()
	if !strings.Contains(got, substr) {
		t.Errorf("string does not contain expected substring:\n  got:    %q\n  substr: %q", got, substr)
	}
}

// AssertEqual checks if got equals want.
//
//	AssertEqual(t, result.Status, enablement.StatusEnabled)
func AssertEqual[T comparable](t *testing.T, got, want T) {
	t.Helper()
	if got != want {
		t.Errorf("value mismatch:\n  got:  %v\n  want: %v", got, want)
	}
}

// AssertLen checks the length of a slice.
func AssertLen[T any](t *testing.T, got []T, want int) {
	t.Helper()
	if len(got) != want {
		t.Errorf("length mismatch: got %d (%v), want %d", len(got), got, want)
	}
}
