package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/aws/aws-sdk-go-v2/service/detective"
	"github.com/aws/aws-sdk-go-v2/service/organizations"

	"github.com/byteness/detective-graph-config/config"
	"github.com/byteness/detective-graph-config/enablement"
	"github.com/byteness/detective-graph-config/logging"
	"github.com/byteness/detective-graph-config/ratelimit"
)

// EnableCommandInput contains the input for the enable and disable commands.
type EnableCommandInput struct {
	AdminAccountID string // overrides the configured administrator
	Output         string // human, json
	LogJSON        bool   // write structured enablement entries to stderr

	// For testing
	Stdout        io.Writer
	Stderr        io.Writer
	Organizations enablement.OrganizationsAPI
	Pacer         ratelimit.Pacer
}

// ConfigureEnableCommand sets up the enable and disable commands.
func ConfigureEnableCommand(app *kingpin.Application, d *DetectiveGraph) {
	enableInput := EnableCommandInput{}
	disableInput := EnableCommandInput{}

	enableCmd := app.Command("enable", "Enable trusted access and register the delegated administrator")
	disableCmd := app.Command("disable", "Deregister the delegated administrator (trusted access is left on)")

	for _, c := range []struct {
		cmd   *kingpin.CmdClause
		input *EnableCommandInput
	}{{enableCmd, &enableInput}, {disableCmd, &disableInput}} {
		c.cmd.Flag("admin-account", "Delegated administrator account id (default from configuration)").
			StringVar(&c.input.AdminAccountID)
		c.cmd.Flag("output", "Output format: human (default), json").
			Default("human").
			EnumVar(&c.input.Output, "human", "json")
		c.cmd.Flag("log-json", "Write structured log entries to stderr").
			BoolVar(&c.input.LogJSON)
	}

	enableCmd.Action(func(c *kingpin.ParseContext) error {
		return runEnablement(app, d, "enable", enableInput, EnableCommand)
	})
	disableCmd.Action(func(c *kingpin.ParseContext) error {
		return runEnablement(app, d, "disable", disableInput, DisableCommand)
	})
}

type enablementCommand func(ctx context.Context, cfg *config.Config, input EnableCommandInput) (*enablement.Result, error)

func runEnablement(app *kingpin.Application, d *DetectiveGraph, name string, input EnableCommandInput, run enablementCommand) error {
	ctx := context.Background()
	cfg, err := d.LoadConfig()
	app.FatalIfError(err, name)

	awsCfg, err := d.AWSConfig(ctx, cfg.Region)
	app.FatalIfError(err, name)
	input.Organizations = organizations.NewFromConfig(awsCfg)

	if _, err := run(ctx, cfg, input); err != nil {
		FormatErrorWithSuggestion(err)
		app.Fatalf("%s failed", name)
	}
	return nil
}

// EnableCommand registers the delegated administrator.
func EnableCommand(ctx context.Context, cfg *config.Config, input EnableCommandInput) (*enablement.Result, error) {
	e, req, err := newEnabler(cfg, input)
	if err != nil {
		return nil, err
	}
	result, err := e.Enable(ctx, req)
	return result, writeResult(input, result, err)
}

// DisableCommand deregisters the delegated administrator.
func DisableCommand(ctx context.Context, cfg *config.Config, input EnableCommandInput) (*enablement.Result, error) {
	e, req, err := newEnabler(cfg, input)
	if err != nil {
		return nil, err
	}
	result, err := e.Disable(ctx, req)
	return result, writeResult(input, result, err)
}

func newEnabler(cfg *config.Config, input EnableCommandInput) (*enablement.Enabler, enablement.Request, error) {
	req := cfg.Request(input.AdminAccountID)
	if req.AdminAccountID == "" {
		return nil, req, fmt.Errorf("no delegated administrator: set admin_account_id in the configuration or pass --admin-account")
	}
	if input.Organizations == nil {
		return nil, req, fmt.Errorf("no Organizations client configured")
	}

	_, stderr := stdio(input.Stdout, input.Stderr)
	var logger logging.Logger = logging.NewNopLogger()
	if input.LogJSON {
		logger = logging.NewJSONLogger(stderr)
	}
	pacer := input.Pacer
	if pacer == nil {
		pacer = ratelimit.NewOrganizationsPacer()
	}

	e := enablement.NewEnablerWithClient(input.Organizations, cfg.ServicePrincipal,
		enablement.WithPacer(pacer),
		enablement.WithLogger(logger),
	)
	return e, req, nil
}

// writeResult prints result and passes err through.
func writeResult(input EnableCommandInput, result *enablement.Result, err error) error {
	stdout, _ := stdio(input.Stdout, input.Stderr)
	if result == nil {
		return err
	}

	if input.Output == "json" {
		data, merr := json.MarshalIndent(result, "", "  ")
		if merr != nil {
			return merr
		}
		fmt.Fprintln(stdout, string(data))
		return err
	}

	fmt.Fprintf(stdout, "Status:  %s\n", styleStatus(result.Status, isATerminal(stdout)))
	if result.Reason != "" {
		fmt.Fprintf(stdout, "Reason:  %s\n", result.Reason)
	}
	if len(result.Actions) > 0 {
		fmt.Fprintf(stdout, "Actions: %s\n", strings.Join(result.Actions, ", "))
	} else if err == nil {
		fmt.Fprintln(stdout, "Actions: none (already in the requested state)")
	}
	return err
}

// UpdateGraphCommandInput contains the input for the update-graph command.
type UpdateGraphCommandInput struct {
	Disable bool
	Output  string // human, json

	// For testing
	Stdout    io.Writer
	Stderr    io.Writer
	Detective enablement.DetectiveAPI
}

// ConfigureUpdateGraphCommand sets up the update-graph command.
func ConfigureUpdateGraphCommand(app *kingpin.Application, d *DetectiveGraph) {
	input := UpdateGraphCommandInput{}

	cmd := app.Command("update-graph", "Turn auto-enable of new organization accounts on (or off) for the behavior graph")

	cmd.Flag("disable", "Turn auto-enable off").
		BoolVar(&input.Disable)

	cmd.Flag("output", "Output format: human (default), json").
		Default("human").
		EnumVar(&input.Output, "human", "json")

	cmd.Action(func(c *kingpin.ParseContext) error {
		ctx := context.Background()
		cfg, err := d.LoadConfig()
		app.FatalIfError(err, "update-graph")

		awsCfg, err := d.AWSConfig(ctx, cfg.Region)
		app.FatalIfError(err, "update-graph")
		input.Detective = detective.NewFromConfig(awsCfg)

		if _, err := UpdateGraphCommand(ctx, cfg, input); err != nil {
			FormatErrorWithSuggestion(err)
			app.Fatalf("update-graph failed")
		}
		return nil
	})
}

// UpdateGraphCommand updates the organization configuration of the
// caller's behavior graph.
func UpdateGraphCommand(ctx context.Context, cfg *config.Config, input UpdateGraphCommandInput) (*enablement.GraphResult, error) {
	stdout, _ := stdio(input.Stdout, input.Stderr)
	if input.Detective == nil {
		return nil, fmt.Errorf("no Detective client configured")
	}

	result, err := enablement.NewGraphConfiguratorWithClient(input.Detective).UpdateGraph(ctx, cfg.Region, !input.Disable)
	if err != nil {
		return nil, err
	}

	if input.Output == "json" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return nil, err
		}
		fmt.Fprintln(stdout, string(data))
		return result, nil
	}

	state := "on"
	if !result.AutoEnable {
		state = "off"
	}
	fmt.Fprintf(stdout, "Graph:       %s\n", result.GraphArn)
	fmt.Fprintf(stdout, "Members:     %d\n", result.MemberCount)
	fmt.Fprintf(stdout, "Auto-enable: %s\n", state)
	return result, nil
}
