// Package cli implements the detective-graph command line: synthesizing the
// DetectiveGraphConfig stack, printing the handler's policy, and running
// enablement and graph updates directly against an organization.
package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	isatty "github.com/mattn/go-isatty"

	"github.com/byteness/detective-graph-config/config"
)

// DefaultConfigFile is read when --config is not given.
const DefaultConfigFile = "detective-graph.yaml"

// DetectiveGraph holds the global flags shared by every command.
type DetectiveGraph struct {
	Debug      bool
	ConfigFile string
	Region     string
	Profile    string
}

// ConfigureGlobals registers the global flags on app.
func ConfigureGlobals(app *kingpin.Application) *DetectiveGraph {
	d := &DetectiveGraph{}

	app.Flag("debug", "Show debugging output").
		BoolVar(&d.Debug)

	app.Flag("config", "Path to the YAML configuration file").
		Short('c').
		Default(DefaultConfigFile).
		Envar("DETECTIVE_GRAPH_CONFIG").
		StringVar(&d.ConfigFile)

	app.Flag("region", "Override the region from the configuration file").
		Envar("DETECTIVE_GRAPH_REGION").
		StringVar(&d.Region)

	app.Flag("profile", "AWS shared config profile for API calls").
		Envar("AWS_PROFILE").
		StringVar(&d.Profile)

	app.PreAction(func(c *kingpin.ParseContext) error {
		if !d.Debug {
			log.SetOutput(io.Discard)
		}
		log.Printf("detective-graph %s", app.Model().Version)
		return nil
	})

	return d
}

// LoadConfig reads the configuration file and applies flag overrides.
func (d *DetectiveGraph) LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(d.ConfigFile)
	if err != nil {
		return nil, err
	}
	if d.Region != "" {
		cfg.Region = d.Region
	}
	log.Printf("Loaded %s (region: %s, service principal: %s)", d.ConfigFile, cfg.Region, cfg.ServicePrincipal)
	return cfg, nil
}

// AWSConfig loads SDK configuration for region.
func (d *DetectiveGraph) AWSConfig(ctx context.Context, region string) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if d.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(d.Profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}

func isATerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func stdio(stdout, stderr io.Writer) (io.Writer, io.Writer) {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return stdout, stderr
}
