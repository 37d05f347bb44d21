// Package flow holds the UI-agnostic state behind the OTP, task creation and
// task list interactions. Commands drive these types and render their results.
package flow

import "fmt"

// Outcome classifies how a backend interaction ended.
type Outcome int

const (
	// Success means the backend accepted the request.
	Success Outcome = iota
	// Rejected means a well-formed response reported a business failure.
	Rejected
	// Transport means the request failed, returned a non-success status, or could not be decoded.
	Transport
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Rejected:
		return "rejected"
	case Transport:
		return "transport"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is what a flow reports back after one backend call.
// Message is the user-facing text; Err is set for Transport outcomes.
type Result struct {
	Outcome Outcome
	Message string
	Err     error
}

// OK reports whether r is a Success.
func (r Result) OK() bool { return r.Outcome == Success }

// ValidationError is returned when input is rejected before any network call.
type ValidationError struct {
	Title  string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return e.Title
	}
	return e.Title + ": " + e.Detail
}
