package cli

import (
	"fmt"
	"io"

	"github.com/alecthomas/kingpin/v2"

	"github.com/byteness/detective-graph-config/permissions"
)

// PolicyCommandInput contains the input for the policy command.
type PolicyCommandInput struct {
	Format           string // human, json, yaml
	Document         string // role, trust
	ServicePrincipal string // overrides the configured principal

	// For testing
	Stdout io.Writer
	Stderr io.Writer
}

// ConfigurePolicyCommand sets up the policy command.
func ConfigurePolicyCommand(app *kingpin.Application, d *DetectiveGraph) {
	input := PolicyCommandInput{}

	cmd := app.Command("policy", "Print the handler's IAM policy")

	cmd.Flag("format", "Output format: human (default), json, yaml").
		Default("human").
		EnumVar(&input.Format, "human", "json", "yaml")

	cmd.Flag("document", "Policy document: role (inline policy) or trust (assume-role policy)").
		Default("role").
		EnumVar(&input.Document, "role", "trust")

	cmd.Flag("service-principal", "Service principal the role policy is scoped to (default from configuration)").
		StringVar(&input.ServicePrincipal)

	cmd.Action(func(c *kingpin.ParseContext) error {
		if input.ServicePrincipal == "" {
			if cfg, err := d.LoadConfig(); err == nil {
				input.ServicePrincipal = cfg.ServicePrincipal
			}
		}
		err := PolicyCommand(input)
		app.FatalIfError(err, "policy")
		return nil
	})
}

// PolicyCommand prints the role or trust policy in the requested format.
func PolicyCommand(input PolicyCommandInput) error {
	stdout, stderr := stdio(input.Stdout, input.Stderr)

	principal := input.ServicePrincipal
	if principal == "" {
		principal = permissions.DefaultServicePrincipal
	}

	var doc permissions.PolicyDocument
	switch input.Document {
	case "", "role":
		doc = permissions.RolePolicy(principal)
	case "trust":
		doc = permissions.AssumeRolePolicy()
	default:
		err := fmt.Errorf("invalid document: %s (valid: role, trust)", input.Document)
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return err
	}

	switch input.Format {
	case "", "human":
		if input.Document == "trust" {
			fmt.Fprintln(stdout, "Trusted service: lambda.amazonaws.com (sts:AssumeRole)")
			return nil
		}
		fmt.Fprint(stdout, permissions.FormatHuman(permissions.GetAllPermissions(), principal))
	case "json":
		out, err := permissions.FormatJSON(doc)
		if err != nil {
			fmt.Fprintf(stderr, "Error formatting JSON: %v\n", err)
			return err
		}
		fmt.Fprintln(stdout, out)
	case "yaml":
		out, err := permissions.FormatYAML(doc)
		if err != nil {
			fmt.Fprintf(stderr, "Error formatting YAML: %v\n", err)
			return err
		}
		fmt.Fprint(stdout, out)
	default:
		err := fmt.Errorf("invalid format: %s (valid: human, json, yaml)", input.Format)
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
