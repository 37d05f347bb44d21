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
	"aide/internal/output"
	"aide/internal/service"
)

func init() {
	Register(&TodoCmd{})
	DefaultRegistry.SetDefault("todo")
}

// TodoCmd implements the todo command.
// Handles both `aide` (no args) and `aide todo`.
type TodoCmd struct {
	now func() time.Time
}

func (c *TodoCmd) Name() string       { return "todo" }
func (c *TodoCmd) Aliases() []string  { return []string{"list"} }
func (c *TodoCmd) Synopsis() string   { return "List pending tasks" }
func (c *TodoCmd) Usage() string      { return "aide todo [common flags]" }
func (c *TodoCmd) NeedsBackend() bool { return true }

func (c *TodoCmd) RegisterFlags(fs *flag.FlagSet) {}

// SetClock overrides the time used to drop overdue tasks (for testing).
func (c *TodoCmd) SetClock(now func() time.Time) {
	c.now = now
}

func (c *TodoCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	list := flow.NewTodoList(svc, cfg.Logger(), c.now)
	if err := list.Fetch(ctx); err != nil {
		return reportError(err, errOut)
	}
	printTasks(cfg, list.Tasks(), out)
	return exitcode.Success
}

// printTasks prints the numbered list, or a notice when it is empty.
func printTasks(cfg *config.Config, tasks []service.Task, out io.Writer) {
	if len(tasks) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no pending tasks")
		}
		return
	}
	for i, task := range tasks {
		output.FormatTask(out, i+1, task)
	}
}
