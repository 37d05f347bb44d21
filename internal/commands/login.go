package commands

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"aide/internal/auth"
	"aide/internal/config"
	"aide/internal/exitcode"
	"aide/internal/service"
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command.
// The access token comes from the argument or the first line of stdin.
type LoginCmd struct {
	force bool
	in    io.Reader
	now   func() time.Time
}

// SetInput replaces stdin (for testing).
func (c *LoginCmd) SetInput(in io.Reader) {
	c.in = in
}

// SetForce sets the --force flag (for testing).
func (c *LoginCmd) SetForce(force bool) {
	c.force = force
}

// SetClock overrides the clock used for expiry checks (for testing).
func (c *LoginCmd) SetClock(now func() time.Time) {
	c.now = now
}

func (c *LoginCmd) Name() string       { return "login" }
func (c *LoginCmd) Aliases() []string  { return nil }
func (c *LoginCmd) Synopsis() string   { return "Store an access token" }
func (c *LoginCmd) Usage() string      { return "aide login [common flags] [--force] [token]" }
func (c *LoginCmd) NeedsBackend() bool { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.force, "force", false, "")
}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	now := time.Now
	if c.now != nil {
		now = c.now
	}

	if len(args) > 1 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[1])
		return exitcode.UserError
	}

	// Check if already logged in (token exists and has not expired)
	if !c.force && isTokenValid(cfg, now()) {
		if !cfg.Quiet {
			fmt.Fprintln(out, "already logged in")
		}
		return exitcode.Success
	}

	var raw string
	if len(args) == 1 {
		raw = args[0]
	} else {
		var err error
		raw, err = c.readToken()
		if err != nil {
			fmt.Fprintf(errOut, "error: failed to read token: %v\n", err)
			return exitcode.UserError
		}
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		fmt.Fprintln(errOut, "error: token required")
		return exitcode.UserError
	}

	info := auth.Inspect(raw)
	if info.Expired(now()) {
		fmt.Fprintf(errOut, "error: token expired at %s\n", info.Expiry.Format(time.RFC3339))
		return exitcode.AuthError
	}

	if err := cfg.EnsureDir(); err != nil {
		fmt.Fprintf(errOut, "error: failed to create config directory: %v\n", err)
		return exitcode.AuthError
	}
	if err := auth.Save(cfg.TokenPath(), auth.NewToken(raw)); err != nil {
		fmt.Fprintf(errOut, "error: failed to save token: %v\n", err)
		return exitcode.AuthError
	}

	if info.Subject != "" {
		cfg.Logger().WithField("sub", info.Subject).Debug("stored token")
	}
	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

func (c *LoginCmd) readToken() (string, error) {
	in := c.in
	if in == nil {
		in = os.Stdin
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return line, nil
}

// isTokenValid reports whether a stored token exists and has not expired at now.
// Opaque tokens carry no expiry and count as valid until the backend rejects them.
func isTokenValid(cfg *config.Config, now time.Time) bool {
	src := &auth.FileSource{Path: cfg.TokenPath()}
	token, err := src.Token()
	if err != nil {
		return false
	}
	return !auth.Inspect(token.AccessToken).Expired(now)
}
