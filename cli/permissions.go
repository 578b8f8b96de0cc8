package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	"github.com/byteness/detective-graph-config/permissions"
)

// PermissionsCheckCommandInput contains the input for permissions check.
type PermissionsCheckCommandInput struct {
	Features         string // comma-separated; all features when empty
	PrincipalArn     string // defaults to the caller
	ServicePrincipal string
	Output           string // human, json

	// For testing
	Stdout  io.Writer
	Stderr  io.Writer
	Checker permissions.CheckerInterface
}

// ConfigurePermissionsCommand sets up the permissions command and its check subcommand.
func ConfigurePermissionsCommand(app *kingpin.Application, d *DetectiveGraph) {
	input := PermissionsCheckCommandInput{}

	permissionsCmd := app.Command("permissions", "Inspect the permissions the handler needs")
	checkCmd := permissionsCmd.Command("check", "Simulate the handler's actions against a principal's live IAM policies")

	checkCmd.Flag("features", fmt.Sprintf("Check specific feature(s), comma-separated (%s)", strings.Join(featureNames(), ", "))).
		StringVar(&input.Features)

	checkCmd.Flag("principal-arn", "Role or user to simulate (default: the caller)").
		StringVar(&input.PrincipalArn)

	checkCmd.Flag("service-principal", "Service principal for the organizations:ServicePrincipal context key").
		StringVar(&input.ServicePrincipal)

	checkCmd.Flag("output", "Output format: human (default), json").
		Default("human").
		EnumVar(&input.Output, "human", "json")

	checkCmd.Action(func(c *kingpin.ParseContext) error {
		ctx := context.Background()
		region := d.Region
		if cfg, err := d.LoadConfig(); err == nil {
			region = cfg.Region
			if input.ServicePrincipal == "" {
				input.ServicePrincipal = cfg.ServicePrincipal
			}
		}
		awsCfg, err := d.AWSConfig(ctx, region)
		app.FatalIfError(err, "permissions check")
		input.Checker = permissions.NewChecker(awsCfg, input.PrincipalArn, input.ServicePrincipal)

		exitCode, err := PermissionsCheckCommand(ctx, input)
		if err != nil {
			app.FatalIfError(err, "permissions check")
		}
		if exitCode != 0 {
			os.Exit(exitCode)
		}
		return nil
	})
}

// PermissionsCheckCommand runs the check and prints the summary.
// It returns an exit code (0 = all passed, 1 = failures or errors) and any fatal error.
func PermissionsCheckCommand(ctx context.Context, input PermissionsCheckCommandInput) (int, error) {
	stdout, stderr := stdio(input.Stdout, input.Stderr)

	features, err := parseFeatures(input.Features)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1, err
	}
	if input.Checker == nil {
		err := fmt.Errorf("no permission checker configured")
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1, err
	}

	summary, err := input.Checker.Check(ctx, features)
	if err != nil {
		FormatErrorWithSuggestionTo(stderr, err)
		return 1, err
	}

	switch input.Output {
	case "json":
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return 1, err
		}
		fmt.Fprintln(stdout, string(data))
	default:
		fmt.Fprint(stdout, permissions.FormatCheckSummary(summary))
	}

	if !summary.AllPassed() {
		return 1, nil
	}
	return 0, nil
}

func parseFeatures(s string) ([]permissions.Feature, error) {
	if strings.TrimSpace(s) == "" {
		return permissions.AllFeatures(), nil
	}
	var features []permissions.Feature
	for _, name := range strings.Split(s, ",") {
		f := permissions.Feature(strings.TrimSpace(name))
		if !f.IsValid() {
			return nil, fmt.Errorf("unknown feature %q (valid: %s)", f, strings.Join(featureNames(), ", "))
		}
		features = append(features, f)
	}
	return features, nil
}

func featureNames() []string {
	var names []string
	for _, f := range permissions.AllFeatures() {
		names = append(names, f.String())
	}
	return names
}
