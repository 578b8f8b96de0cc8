package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"

	"github.com/byteness/detective-graph-config/config"
)

// ConfigValidateCommandInput contains the input for config validate.
type ConfigValidateCommandInput struct {
	Paths  []string // Local file paths to validate
	Output string   // human, json

	// For testing
	Stdout io.Writer
	Stderr io.Writer
}

// ConfigInitCommandInput contains the input for config init.
type ConfigInitCommandInput struct {
	Template string
	config.TemplateInput
	OutFile string // stdout when empty
	Force   bool

	// For testing
	Stdout io.Writer
	Stderr io.Writer
}

// ConfigureConfigCommand sets up the config command with its subcommands.
func ConfigureConfigCommand(app *kingpin.Application, d *DetectiveGraph) {
	configCmd := app.Command("config", "Configuration management commands")

	validateInput := ConfigValidateCommandInput{}
	validateCmd := configCmd.Command("validate", "Validate configuration files")

	validateCmd.Arg("paths", "Files to validate (default: --config)").
		StringsVar(&validateInput.Paths)

	validateCmd.Flag("output", "Output format: human (default), json").
		Default("human").
		EnumVar(&validateInput.Output, "human", "json")

	validateCmd.Action(func(c *kingpin.ParseContext) error {
		if len(validateInput.Paths) == 0 {
			validateInput.Paths = []string{d.ConfigFile}
		}
		exitCode, err := ConfigValidateCommand(validateInput)
		if err != nil {
			app.FatalIfError(err, "config validate")
		}
		if exitCode != 0 {
			os.Exit(exitCode)
		}
		return nil
	})

	initInput := ConfigInitCommandInput{}
	var templateNames []string
	for _, id := range config.AllTemplateIDs() {
		templateNames = append(templateNames, id.String())
	}
	initCmd := configCmd.Command("init", "Write a starter configuration for the region given by --region")

	initCmd.Flag("template", fmt.Sprintf("Starter template %v", templateNames)).
		Default(string(config.TemplateDelegatedAdmin)).
		EnumVar(&initInput.Template, templateNames...)

	initCmd.Flag("organization-id", "Organization id to pin (optional)").
		StringVar(&initInput.OrganizationID)

	initCmd.Flag("admin-account", "Delegated administrator account id").
		StringVar(&initInput.AdminAccountID)

	initCmd.Flag("admin-account-parameter", "SSM parameter holding the administrator account id").
		StringVar(&initInput.AdminAccountParameter)

	initCmd.Flag("notify-topic-arn", "SNS topic for lifecycle notifications").
		StringVar(&initInput.NotifyTopicArn)

	initCmd.Flag("metric-namespace", "CloudWatch namespace for handler metrics (full template)").
		StringVar(&initInput.MetricNamespace)

	initCmd.Flag("out", "Write to this file instead of stdout").
		Short('o').
		StringVar(&initInput.OutFile)

	initCmd.Flag("force", "Overwrite an existing file").
		BoolVar(&initInput.Force)

	initCmd.Action(func(c *kingpin.ParseContext) error {
		initInput.Region = d.Region
		err := ConfigInitCommand(initInput)
		app.FatalIfError(err, "config init")
		return nil
	})
}

// ConfigValidateCommand validates each file and prints the findings.
// It returns exit code (0=all valid, 1=errors) and any fatal error.
func ConfigValidateCommand(input ConfigValidateCommandInput) (int, error) {
	stdout, stderr := stdio(input.Stdout, input.Stderr)

	if len(input.Paths) == 0 {
		err := fmt.Errorf("no paths specified")
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1, err
	}

	var results []config.ValidationResult
	for _, path := range input.Paths {
		if path == "" {
			continue
		}
		// Read failures are reported as issues.
		result, _ := config.ValidateFile(path)
		results = append(results, result)
	}

	var summary config.ResultSummary
	summary.Compute(results)

	if input.Output == "json" {
		data, err := json.MarshalIndent(struct {
			Results []config.ValidationResult `json:"results"`
			Summary config.ResultSummary      `json:"summary"`
		}{results, summary}, "", "  ")
		if err != nil {
			return 1, err
		}
		fmt.Fprintln(stdout, string(data))
	} else {
		writeValidationHuman(stdout, results, summary)
	}

	if summary.Invalid > 0 {
		return 1, nil
	}
	return 0, nil
}

func writeValidationHuman(w io.Writer, results []config.ValidationResult, summary config.ResultSummary) {
	for _, r := range results {
		status := "OK"
		if !r.Valid {
			status = "INVALID"
		}
		fmt.Fprintf(w, "%s: %s\n", r.Source, status)
		for _, issue := range r.Issues {
			loc := issue.Location
			if loc == "" {
				loc = "(file)"
			}
			fmt.Fprintf(w, "  [%s] %s: %s\n", issue.Severity, loc, issue.Message)
			if issue.Suggestion != "" {
				fmt.Fprintf(w, "          suggestion: %s\n", issue.Suggestion)
			}
		}
	}
	fmt.Fprintf(w, "\n%d file(s): %d valid, %d invalid (%d errors, %d warnings)\n",
		summary.Total, summary.Valid, summary.Invalid, summary.Errors, summary.Warnings)
}

// ConfigInitCommand renders a starter configuration.
func ConfigInitCommand(input ConfigInitCommandInput) error {
	stdout, stderr := stdio(input.Stdout, input.Stderr)

	out, err := config.GenerateTemplate(config.TemplateID(input.Template), input.TemplateInput)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return err
	}

	if input.OutFile == "" {
		fmt.Fprint(stdout, out)
		return nil
	}
	if !input.Force {
		if _, err := os.Stat(input.OutFile); err == nil {
			err := fmt.Errorf("%s already exists (use --force to overwrite)", input.OutFile)
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return err
		}
	}
	if err := os.WriteFile(input.OutFile, []byte(out), 0o644); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return err
	}
	fmt.Fprintf(stderr, "Wrote %s\n", input.OutFile)
	return nil
}
