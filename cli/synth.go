package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"

	"github.com/byteness/detective-graph-config/config"
	"github.com/byteness/detective-graph-config/infrastructure"
)

// SynthCommandInput contains the input for the synth command.
type SynthCommandInput struct {
	Format  string // json, yaml
	Compact bool
	OutFile string // stdout when empty

	// For testing
	Stdout io.Writer
	Stderr io.Writer
}

// ConfigureSynthCommand sets up the synth command.
func ConfigureSynthCommand(app *kingpin.Application, d *DetectiveGraph) {
	input := SynthCommandInput{}

	cmd := app.Command("synth", "Synthesize the CloudFormation template for the configured stack")

	cmd.Flag("format", "Output format: json (default), yaml").
		Default("json").
		EnumVar(&input.Format, "json", "yaml")

	cmd.Flag("compact", "Emit JSON without indentation").
		BoolVar(&input.Compact)

	cmd.Flag("out", "Write the template to this file instead of stdout").
		Short('o').
		StringVar(&input.OutFile)

	cmd.Action(func(c *kingpin.ParseContext) error {
		cfg, err := d.LoadConfig()
		app.FatalIfError(err, "synth")
		err = SynthCommand(cfg, input)
		app.FatalIfError(err, "synth")
		return nil
	})
}

// BuildStack creates the stack described by cfg: one KMS key and one
// DetectiveGraphConfig per configured graph, sharing a single provider.
func BuildStack(cfg *config.Config) (*infrastructure.Stack, error) {
	c := cfg.WithDefaults()
	stack := infrastructure.NewStack(c.Stack.Description)

	key, err := infrastructure.NewKey(stack, c.Stack.KeyID)
	if err != nil {
		return nil, err
	}

	for _, g := range c.Stack.Graphs {
		_, err := infrastructure.NewDetectiveGraphConfig(stack, g.ID, infrastructure.DetectiveGraphConfigProps{
			KMSKey:                key,
			LogRetentionInDays:    c.Stack.LogRetentionInDays,
			ServicePrincipal:      c.ServicePrincipal,
			AdminAccountID:        g.AdminAccountID,
			AdminAccountParameter: c.Stack.AdminAccountParameter,
			NotifyTopicArn:        c.Stack.NotifyTopicArn,
			MetricNamespace:       c.Stack.MetricNamespace,
			HandlerAssetKey:       c.Stack.HandlerAssetKey,
			Tracing:               c.Stack.Tracing,
		})
		if err != nil {
			return nil, err
		}
	}
	return stack, nil
}

// SynthCommand renders the template for cfg.
func SynthCommand(cfg *config.Config, input SynthCommandInput) error {
	stdout, stderr := stdio(input.Stdout, input.Stderr)

	stack, err := BuildStack(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return err
	}
	tmpl := stack.Synthesize()

	var out []byte
	switch input.Format {
	case "", "json":
		out, err = tmpl.JSON(!input.Compact)
		out = append(out, '\n')
	case "yaml":
		out, err = tmpl.YAML()
	default:
		err = fmt.Errorf("invalid format: %s (valid: json, yaml)", input.Format)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return err
	}

	if input.OutFile == "" {
		_, err = stdout.Write(out)
		return err
	}
	if err := os.WriteFile(input.OutFile, out, 0o644); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return err
	}
	fmt.Fprintf(stderr, "Wrote %s (%d resources)\n", input.OutFile, len(tmpl.Resources))
	return nil
}
