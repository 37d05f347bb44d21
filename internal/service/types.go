// Package service defines the backend-agnostic interface for task and auth operations.
package service

import "time"

// Status is the lifecycle state of a task as exposed by the backend.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

// Priority is the numeric priority returned by the backend.
type Priority int

const (
	PriorityLow    Priority = 1
	PriorityMedium Priority = 2
	PriorityHigh   Priority = 3
)

// String returns the display label for p.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "High"
	case PriorityMedium:
		return "Medium"
	case PriorityLow:
		return "Low"
	default:
		return "Unknown"
	}
}

// Task represents a single task record.
type Task struct {
	ID          int64
	Title       string
	Description string
	Priority    Priority
	Status      Status
	Due         time.Time // zero if the backend value could not be parsed
	Type        string
}

// Location is a coordinate pair attached to a new task.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewTask is the payload for creating a task.
type NewTask struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	Status      Status   `json:"status"`
	DueDate     string   `json:"due_date"`
	Type        string   `json:"type"`
	Location    Location `json:"location"`
}

// OTPValidation is the decoded body of an OTP validation response.
type OTPValidation struct {
	Message string
	Key     string
}
