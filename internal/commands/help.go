package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"aide/internal/config"
	"aide/internal/exitcode"
	"aide/internal/service"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string       { return "help" }
func (c *HelpCmd) Aliases() []string  { return nil }
func (c *HelpCmd) Synopsis() string   { return "Print usage" }
func (c *HelpCmd) Usage() string      { return "aide help" }
func (c *HelpCmd) NeedsBackend() bool { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  aide                                             List pending tasks
  aide todo [common flags]                         List pending tasks (alias: list)
  aide start [common flags] <n|#id>                Move a task to In Progress
  aide add [common flags] --date <date> --time <time> [--desc <text>]
           [--priority low|medium|high] [--category <name>]
           [--lat <deg> --lon <deg>] <title...>    Create a task (alias: create)
  aide sendotp [common flags] --email <email>      Email a one-time code
  aide verify [common flags] --email <email> [code]
  aide login [common flags] [--force] [token]
  aide logout [common flags]
  aide help
  aide version

Dates: dd/mm/yyyy, yyyy-mm-dd or RFC 3339. Times: 15:04 or 3:04 PM.

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr

Settings (config.env in the config directory, or AIDE_* environment variables):
  BASE_URL, LATITUDE, LONGITUDE, GEO_URL, LOG_FORMAT
`
