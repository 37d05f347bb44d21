package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"aide/internal/config"
	"aide/internal/exitcode"
	"aide/internal/flow"
	"aide/internal/output"
	"aide/internal/service"
)

var errFlagPair = errors.New("--lat and --lon must be given together")

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	form     flow.TaskForm
	lat, lon string
	loc      *time.Location
}

// SetForm sets the form fields normally filled from flags (for testing).
func (c *AddCmd) SetForm(form flow.TaskForm) {
	c.form = form
}

// SetPosition sets --lat and --lon (for testing).
func (c *AddCmd) SetPosition(lat, lon string) {
	c.lat, c.lon = lat, lon
}

// SetZone sets the zone --date and --time are read in (for testing).
func (c *AddCmd) SetZone(loc *time.Location) {
	c.loc = loc
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string {
	return "aide add [common flags] --date <date> --time <time> [--desc <text>] [--priority low|medium|high] [--category <name>] [--lat <deg> --lon <deg>] <title...>"
}
func (c *AddCmd) NeedsBackend() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.form.Date, "date", "", "")
	fs.StringVar(&c.form.Time, "time", "", "")
	fs.StringVar(&c.form.Description, "desc", "", "")
	fs.StringVar(&c.form.Priority, "priority", "", "")
	fs.StringVar(&c.form.Category, "category", "", "")
	fs.StringVar(&c.lat, "lat", "", "")
	fs.StringVar(&c.lon, "lon", "", "")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	form := c.form
	form.Title = strings.Join(args, " ")

	provider, err := locationProvider(cfg, c.lat, c.lon)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}

	log := cfg.Logger()
	list := flow.NewTodoList(svc, log, nil)
	creator := &flow.TaskCreator{
		Service:  svc,
		Location: provider,
		Log:      log,
		Loc:      c.loc,
		OnSave: func(s flow.SavedTask) {
			if !cfg.Quiet {
				output.FormatSaved(out, s)
			}
		},
		Refresh: func(ctx context.Context) error {
			if err := list.Fetch(ctx); err != nil {
				return err
			}
			if !cfg.Quiet {
				fmt.Fprintf(out, "%d pending\n", len(list.Tasks()))
			}
			return nil
		},
	}

	res, err := creator.Save(ctx, form)
	if errors.Is(err, flow.ErrLocationUnavailable) {
		// Already logged by the creator; nothing else is reported.
		return exitcode.UserError
	}
	if err != nil {
		return reportError(err, errOut)
	}
	if !res.OK() {
		return reportResult(cfg, res, out, errOut)
	}
	return exitcode.Success
}
