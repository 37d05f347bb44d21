package commands

import (
	"errors"
	"fmt"
	"io"

	"aide/internal/config"
	"aide/internal/exitcode"
	"aide/internal/flow"
	"aide/internal/service"
)

// reportResult prints a flow result and returns its exit code.
// Success messages go to out unless quiet; failures go to errOut.
func reportResult(cfg *config.Config, res flow.Result, out, errOut io.Writer) int {
	switch res.Outcome {
	case flow.Success:
		if !cfg.Quiet && res.Message != "" {
			fmt.Fprintln(out, res.Message)
		}
		return exitcode.Success
	case flow.Rejected:
		fmt.Fprintf(errOut, "error: %s\n", res.Message)
		return exitcode.Rejected
	default:
		fmt.Fprintf(errOut, "error: %s\n", res.Message)
		if isAuthError(res.Err) {
			return exitcode.AuthError
		}
		return exitcode.BackendError
	}
}

// reportError prints err and maps it to an exit code.
func reportError(err error, errOut io.Writer) int {
	var ve *flow.ValidationError
	switch {
	case errors.As(err, &ve):
		fmt.Fprintf(errOut, "error: %s\n", ve)
		return exitcode.UserError
	case errors.Is(err, service.ErrNoToken):
		fmt.Fprintln(errOut, "error: not logged in (run: aide login)")
		return exitcode.AuthError
	case errors.Is(err, service.ErrUnauthorized):
		fmt.Fprintf(errOut, "error: auth error: %v\n", service.ErrUnauthorized)
		return exitcode.AuthError
	}
	if msg, ok := service.APIMessage(err); ok {
		fmt.Fprintf(errOut, "error: backend error: %s\n", msg)
	} else {
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
	}
	return exitcode.BackendError
}

func isAuthError(err error) bool {
	return errors.Is(err, service.ErrNoToken) || errors.Is(err, service.ErrUnauthorized)
}
