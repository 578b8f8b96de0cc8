package main

import (
	"os"

	"github.com/alecthomas/kingpin/v2"

	"github.com/byteness/detective-graph-config/cli"
)

// Version is provided at compile time
var Version = "dev"

func main() {
	app := kingpin.New("detective-graph", "Amazon Detective delegated administrator and behavior graph configuration")
	app.Version(Version)

	d := cli.ConfigureGlobals(app)

	// Template commands
	cli.ConfigureSynthCommand(app, d)
	cli.ConfigurePolicyCommand(app, d)

	// Organization commands
	cli.ConfigureEnableCommand(app, d)
	cli.ConfigureUpdateGraphCommand(app, d)

	cli.ConfigurePermissionsCommand(app, d)
	cli.ConfigureConfigCommand(app, d)

	kingpin.MustParse(app.Parse(os.Args[1:]))
}
