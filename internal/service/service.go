// Package service defines the backend-agnostic interface for task and auth operations.
package service

import "context"

// Service defines the interface for backend operations.
// Commands and flows never build HTTP requests directly.
type Service interface {
	// SendOTP asks the backend to send a new code to email.
	// Returns the response's success flag.
	SendOTP(ctx context.Context, email string) (bool, error)

	// ValidateOTP submits a code for email.
	// A well-formed response is returned as-is, whatever its message;
	// only transport and decoding failures are errors.
	ValidateOTP(ctx context.Context, email, otp string) (OTPValidation, error)

	// CreateTask creates a task for the authenticated user.
	CreateTask(ctx context.Context, task NewTask) error

	// ListTasks returns one page of the user's tasks in API order.
	// No server-side filtering is requested.
	ListTasks(ctx context.Context, page, perPage int) ([]Task, error)

	// UpdateTaskStatus partially updates a task's status.
	UpdateTaskStatus(ctx context.Context, id int64, status Status) error
}
