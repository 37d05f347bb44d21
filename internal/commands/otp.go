package commands

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"aide/internal/config"
	"aide/internal/exitcode"
	"aide/internal/flow"
	"aide/internal/service"
)

func init() {
	Register(&VerifyCmd{})
	Register(&SendOTPCmd{})
}

// VerifyCmd implements the verify command.
// With a code argument it submits once; otherwise it reads codes from stdin
// until one is accepted, and "resend" asks for a new code.
type VerifyCmd struct {
	email string
	in    io.Reader
	now   func() time.Time
}

// SetEmail sets the email flag (for testing).
func (c *VerifyCmd) SetEmail(email string) {
	c.email = email
}

// SetInput replaces stdin (for testing).
func (c *VerifyCmd) SetInput(in io.Reader) {
	c.in = in
}

// SetClock overrides the clock driving the resend countdown (for testing).
func (c *VerifyCmd) SetClock(now func() time.Time) {
	c.now = now
}

func (c *VerifyCmd) Name() string       { return "verify" }
func (c *VerifyCmd) Aliases() []string  { return nil }
func (c *VerifyCmd) Synopsis() string   { return "Verify a one-time code" }
func (c *VerifyCmd) Usage() string      { return "aide verify [common flags] --email <email> [code]" }
func (c *VerifyCmd) NeedsBackend() bool { return true }

func (c *VerifyCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.email, "email", "", "")
}

func (c *VerifyCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 1 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[1])
		return exitcode.UserError
	}

	session, err := flow.NewOTPSession(svc, c.email, cfg.Logger(), c.now)
	if err != nil {
		return reportError(err, errOut)
	}

	if len(args) == 1 {
		code, done := c.submit(ctx, cfg, session, args[0], out, errOut)
		if !done && code == exitcode.Success {
			code = exitcode.UserError
		}
		return code
	}
	return c.interactive(ctx, cfg, session, out, errOut)
}

// interactive reads one code or command per line until a code is accepted,
// input ends, or ctx is cancelled.
func (c *VerifyCmd) interactive(ctx context.Context, cfg *config.Config, session *flow.OTPSession, out, errOut io.Writer) int {
	in := c.in
	if in == nil {
		in = os.Stdin
	}
	scanner := bufio.NewScanner(in)

	last := exitcode.UserError
	for {
		prompt(session, errOut)
		if !scanner.Scan() {
			break
		}
		if ctx.Err() != nil {
			fmt.Fprintln(errOut, "error: cancelled")
			return exitcode.UserError
		}

		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "resend":
			res, err := session.Resend(ctx)
			if errors.Is(err, flow.ErrResendDisabled) {
				fmt.Fprintf(errOut, "Resend code in %ds\n", session.ResendIn())
				continue
			}
			last = reportResult(cfg, res, out, errOut)
			continue
		}

		code, done := c.submit(ctx, cfg, session, line, out, errOut)
		if done {
			return code
		}
		last = code
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(errOut, "error: reading input: %v\n", err)
		return exitcode.UserError
	}
	if last == exitcode.Success {
		last = exitcode.UserError
	}
	fmt.Fprintln(errOut, "error: no code verified")
	return last
}

// submit enters code and submits it. done is true once the code is accepted.
func (c *VerifyCmd) submit(ctx context.Context, cfg *config.Config, session *flow.OTPSession, code string, out, errOut io.Writer) (int, bool) {
	if err := session.Enter(code); err != nil {
		return reportError(err, errOut), false
	}
	res, err := session.Submit(ctx)
	if err != nil {
		return reportError(err, errOut), false
	}
	if !res.OK() {
		return reportResult(cfg, res.Result, out, errOut), false
	}

	reportResult(cfg, res.Result, out, errOut)
	// The continuation key is the point of verifying; print it even when quiet.
	fmt.Fprintf(out, "key: %s\n", res.Next.Key)
	return exitcode.Success, true
}

func prompt(session *flow.OTPSession, errOut io.Writer) {
	if n := session.ResendIn(); n > 0 {
		fmt.Fprintf(errOut, "Enter the %d-digit code sent to %s (Resend code in %ds): ", flow.OTPLength, session.Email(), n)
		return
	}
	fmt.Fprintf(errOut, "Enter the %d-digit code sent to %s (or \"resend\"): ", flow.OTPLength, session.Email())
}

// SendOTPCmd implements the sendotp command.
type SendOTPCmd struct {
	email string
}

// SetEmail sets the email flag (for testing).
func (c *SendOTPCmd) SetEmail(email string) {
	c.email = email
}

func (c *SendOTPCmd) Name() string       { return "sendotp" }
func (c *SendOTPCmd) Aliases() []string  { return nil }
func (c *SendOTPCmd) Synopsis() string   { return "Email a one-time code" }
func (c *SendOTPCmd) Usage() string      { return "aide sendotp [common flags] --email <email>" }
func (c *SendOTPCmd) NeedsBackend() bool { return true }

func (c *SendOTPCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.email, "email", "", "")
}

func (c *SendOTPCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	res, err := flow.SendCode(ctx, svc, c.email, cfg.Logger())
	if err != nil {
		return reportError(err, errOut)
	}
	return reportResult(cfg, res, out, errOut)
}
