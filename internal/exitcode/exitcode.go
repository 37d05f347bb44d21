// Package exitcode defines exit codes for the CLI.
package exitcode

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, missing required fields, incomplete OTP).
	UserError = 1

	// AuthError indicates a missing or unusable access token.
	AuthError = 2

	// BackendError indicates a network failure or non-success HTTP status.
	BackendError = 3

	// Rejected indicates a well-formed backend answer reporting failure (e.g. wrong OTP).
	Rejected = 4
)
