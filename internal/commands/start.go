package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"aide/internal/config"
	"aide/internal/exitcode"
	"aide/internal/flow"
	"aide/internal/service"
)

func init() {
	Register(&StartCmd{})
}

// StartCmd implements the start command.
type StartCmd struct {
	now func() time.Time
}

func (c *StartCmd) Name() string       { return "start" }
func (c *StartCmd) Aliases() []string  { return nil }
func (c *StartCmd) Synopsis() string   { return "Move a pending task to In Progress" }
func (c *StartCmd) Usage() string      { return "aide start [common flags] <n|#id>" }
func (c *StartCmd) NeedsBackend() bool { return true }

func (c *StartCmd) RegisterFlags(fs *flag.FlagSet) {}

// SetClock overrides the time used to drop overdue tasks (for testing).
func (c *StartCmd) SetClock(now func() time.Time) {
	c.now = now
}

func (c *StartCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	ref, err := ParseTaskRef(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}

	list := flow.NewTodoList(svc, cfg.Logger(), c.now)
	if !ref.ByID {
		// Positions refer to the list as todo prints it.
		if err := list.Fetch(ctx); err != nil {
			return reportError(err, errOut)
		}
		if list.SignedOut() {
			return reportResult(cfg, flow.Result{Outcome: flow.Transport, Message: "Authentication required", Err: service.ErrNoToken}, out, errOut)
		}
	}
	id, err := ref.Resolve(list.Tasks())
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}

	res, err := list.Start(ctx, id)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.BackendError
	}
	if code := reportResult(cfg, res, out, errOut); code != exitcode.Success {
		if msg, ok := service.APIMessage(res.Err); ok {
			cfg.Logger().WithField("task_id", id).Debugf("backend said: %s", msg)
		}
		return code
	}
	return exitcode.Success
}
