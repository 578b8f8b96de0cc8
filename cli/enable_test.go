package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/byteness/detective-graph-config/enablement"
	detectiveerrors "github.com/byteness/detective-graph-config/errors"
	"github.com/byteness/detective-graph-config/permissions"
	"github.com/byteness/detective-graph-config/ratelimit"
	"github.com/byteness/detective-graph-config/testutil"
)

func newTestOrg() *testutil.FakeOrganization {
	return testutil.NewFakeOrganization(testutil.TestOrganizationID, "111111111111", testutil.TestAdminAccountID, "333333333333")
}

func TestEnableCommand_FreshThenIdempotent(t *testing.T) {
	org := newTestOrg()
	cfg := testConfig(t, minimalConfig)

	var stdout bytes.Buffer
	input := EnableCommandInput{Output: "human", Stdout: &stdout, Stderr: &bytes.Buffer{}, Organizations: org, Pacer: ratelimit.Unlimited()}

	result, err := EnableCommand(context.Background(), cfg, input)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, result.Status, enablement.StatusEnabled)
	testutil.AssertContains(t, stdout.String(), "Status:  Enabled")
	testutil.AssertContains(t, stdout.String(), enablement.ActionRegisterAdmin)

	stdout.Reset()
	result, err = EnableCommand(context.Background(), cfg, input)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, result.Status, enablement.StatusAlreadyEnabled)
	testutil.AssertContains(t, stdout.String(), "already in the requested state")
	testutil.AssertLen(t, org.MutatingCalls(), 2)
}

func TestEnableCommand_AdminOverride(t *testing.T) {
	org := newTestOrg()
	input := EnableCommandInput{AdminAccountID: "333333333333", Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}, Organizations: org, Pacer: ratelimit.Unlimited()}

	_, err := EnableCommand(context.Background(), testConfig(t, minimalConfig), input)
	testutil.AssertNoError(t, err)
	if !org.IsRegistered(permissions.DefaultServicePrincipal, "333333333333") {
		t.Error("override account should be registered")
	}
	if org.IsRegistered(permissions.DefaultServicePrincipal, testutil.TestAdminAccountID) {
		t.Error("configured account should not be registered")
	}
}

func TestEnableCommand_JSONAndLog(t *testing.T) {
	org := newTestOrg()
	var stdout, stderr bytes.Buffer
	input := EnableCommandInput{Output: "json", LogJSON: true, Stdout: &stdout, Stderr: &stderr, Organizations: org, Pacer: ratelimit.Unlimited()}

	_, err := EnableCommand(context.Background(), testConfig(t, minimalConfig), input)
	testutil.AssertNoError(t, err)

	var result enablement.Result
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		t.Fatalf("stdout is not a result: %v\n%s", err, stdout.String())
	}
	testutil.AssertEqual(t, result.Status, enablement.StatusEnabled)
	testutil.AssertContains(t, stderr.String(), `"admin_account_id":"222222222222"`)
}

func TestEnableCommand_Failures(t *testing.T) {
	tests := []struct {
		name     string
		config   string
		input    EnableCommandInput
		wantCode string
		wantMsg  string
	}{
		{
			name:    "no administrator",
			config:  `region: us-east-1`,
			wantMsg: "no delegated administrator",
		},
		{
			name:     "account outside the organization",
			config:   minimalConfig,
			input:    EnableCommandInput{AdminAccountID: "999999999999"},
			wantCode: detectiveerrors.ErrCodeInvalidAccount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			org := newTestOrg()
			var stdout bytes.Buffer
			tt.input.Stdout = &stdout
			tt.input.Stderr = &bytes.Buffer{}
			tt.input.Organizations = org
			tt.input.Pacer = ratelimit.Unlimited()

			_, err := EnableCommand(context.Background(), testConfig(t, tt.config), tt.input)
			testutil.AssertError(t, err)
			if tt.wantCode != "" {
				testutil.AssertErrorCode(t, err, tt.wantCode)
				testutil.AssertContains(t, stdout.String(), "Status:  Failed")
			}
			if tt.wantMsg != "" {
				testutil.AssertContains(t, err.Error(), tt.wantMsg)
			}
			testutil.AssertLen(t, org.MutatingCalls(), 0)
		})
	}
}

func TestEnableCommand_CustomServicePrincipal(t *testing.T) {
	org := newTestOrg()
	cfg := testConfig(t, `
region: us-east-1
admin_account_id: "222222222222"
service_principal: example-service
`)
	input := EnableCommandInput{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}, Organizations: org, Pacer: ratelimit.Unlimited()}

	result, err := EnableCommand(context.Background(), cfg, input)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, result.Status, enablement.StatusEnabled)
	if !org.IsRegistered("example-service", testutil.TestAdminAccountID) {
		t.Error("admin should be registered for example-service")
	}
}

func TestDisableCommand(t *testing.T) {
	org := newTestOrg()
	org.EnabledServices[permissions.DefaultServicePrincipal] = true
	org.DelegatedAdmins[permissions.DefaultServicePrincipal] = []string{testutil.TestAdminAccountID}

	var stdout bytes.Buffer
	input := EnableCommandInput{Stdout: &stdout, Stderr: &bytes.Buffer{}, Organizations: org, Pacer: ratelimit.Unlimited()}

	result, err := DisableCommand(context.Background(), testConfig(t, minimalConfig), input)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, result.Status, enablement.StatusDeregistered)
	if org.IsRegistered(permissions.DefaultServicePrincipal, testutil.TestAdminAccountID) {
		t.Error("admin should be deregistered")
	}

	result, err = DisableCommand(context.Background(), testConfig(t, minimalConfig), input)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, result.Status, enablement.StatusAlreadyDeregistered)
}

func TestUpdateGraphCommand(t *testing.T) {
	tests := []struct {
		name    string
		disable bool
		output  string
		want    []string
	}{
		{name: "enable human", output: "human", want: []string{testutil.TestGraphArn, "Members:     4", "Auto-enable: on"}},
		{name: "disable human", disable: true, output: "human", want: []string{"Auto-enable: off"}},
		{name: "json", output: "json", want: []string{`"auto_enable": true`, `"member_count": 4`, `"region": "us-east-1"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det := testutil.NewMockDetectiveClient(testutil.TestGraphArn, 4)
			var stdout bytes.Buffer

			result, err := UpdateGraphCommand(context.Background(), testConfig(t, minimalConfig), UpdateGraphCommandInput{
				Disable:   tt.disable,
				Output:    tt.output,
				Stdout:    &stdout,
				Stderr:    &bytes.Buffer{},
				Detective: det,
			})
			testutil.AssertNoError(t, err)
			testutil.AssertEqual(t, result.AutoEnable, !tt.disable)
			for _, want := range tt.want {
				if !strings.Contains(stdout.String(), want) {
					t.Errorf("output missing %q:\n%s", want, stdout.String())
				}
			}
			autoEnable, ok := det.LastAutoEnable()
			if !ok || autoEnable != !tt.disable {
				t.Errorf("LastAutoEnable() = %v, %v", autoEnable, ok)
			}
		})
	}
}

func TestUpdateGraphCommand_NoGraph(t *testing.T) {
	det := &testutil.MockDetectiveClient{}
	_, err := UpdateGraphCommand(context.Background(), testConfig(t, minimalConfig), UpdateGraphCommandInput{
		Stdout:    &bytes.Buffer{},
		Stderr:    &bytes.Buffer{},
		Detective: det,
	})
	testutil.AssertErrorCode(t, err, detectiveerrors.ErrCodeGraphUnavailable)
}
