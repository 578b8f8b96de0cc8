package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/byteness/detective-graph-config/permissions"
)

func TestPolicyCommand(t *testing.T) {
	tests := []struct {
		name     string
		input    PolicyCommandInput
		contains []string
	}{
		{
			name:     "human default",
			input:    PolicyCommandInput{},
			contains: []string{"Detective Graph Config IAM Permissions", "organizations:RegisterDelegatedAdministrator", permissions.DefaultServicePrincipal},
		},
		{
			name:     "json scoped to another principal",
			input:    PolicyCommandInput{Format: "json", ServicePrincipal: "example-service"},
			contains: []string{`"StringLikeIfExists"`, `"example-service"`, `"detective:UpdateOrganizationConfiguration"`},
		},
		{
			name:     "yaml",
			input:    PolicyCommandInput{Format: "yaml"},
			contains: []string{"Version:", "2012-10-17", "organizations:ServicePrincipal"},
		},
		{
			name:     "trust json",
			input:    PolicyCommandInput{Format: "json", Document: "trust"},
			contains: []string{"lambda.amazonaws.com", "sts:AssumeRole"},
		},
		{
			name:     "trust human",
			input:    PolicyCommandInput{Format: "human", Document: "trust"},
			contains: []string{"lambda.amazonaws.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			tt.input.Stdout = &stdout
			tt.input.Stderr = &stderr

			if err := PolicyCommand(tt.input); err != nil {
				t.Fatalf("PolicyCommand() error = %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(stdout.String(), want) {
					t.Errorf("output missing %q:\n%s", want, stdout.String())
				}
			}
		})
	}
}

func TestPolicyCommand_JSONRoundTrips(t *testing.T) {
	var stdout bytes.Buffer
	if err := PolicyCommand(PolicyCommandInput{Format: "json", Stdout: &stdout, Stderr: &bytes.Buffer{}}); err != nil {
		t.Fatal(err)
	}
	var doc permissions.PolicyDocument
	if err := json.Unmarshal(stdout.Bytes(), &doc); err != nil {
		t.Fatalf("output is not a policy document: %v", err)
	}
	if len(doc.Statement) != 2 {
		t.Errorf("statements = %d, want 2", len(doc.Statement))
	}
}

func TestPolicyCommand_Invalid(t *testing.T) {
	tests := []PolicyCommandInput{
		{Format: "xml"},
		{Document: "boundary"},
	}
	for _, input := range tests {
		var stderr bytes.Buffer
		input.Stdout = &bytes.Buffer{}
		input.Stderr = &stderr
		if err := PolicyCommand(input); err == nil {
			t.Errorf("PolicyCommand(%+v) should fail", input)
		}
		if !strings.Contains(stderr.String(), "Error:") {
			t.Errorf("stderr = %q", stderr.String())
		}
	}
}
