// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"aide/internal/service"
)

// ErrNotFound is returned when a task is not found.
var ErrNotFound = errors.New("not found")

// FakeService is an in-memory implementation of service.Service for testing.
type FakeService struct {
	mu      sync.RWMutex
	tasks   []service.Task
	codes   map[string]string // email -> valid code
	created []service.NewTask
	nextID  int64
	calls   map[string]int

	// OTPKey is returned as the continuation key on successful validation.
	OTPKey string
	// ValidateMessage, when set, overrides the validation message for every call.
	ValidateMessage string
	// SendSuccess is the success flag SendOTP reports.
	SendSuccess bool

	// NoToken makes authorized operations fail with service.ErrNoToken.
	NoToken bool

	// Error injection for testing
	SendOTPErr     error
	ValidateOTPErr error
	CreateTaskErr  error
	ListTasksErr   error
	UpdateErr      error

	// BeforeUpdate, if set, runs inside UpdateTaskStatus before any state changes.
	BeforeUpdate func()
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{
		codes:       make(map[string]string),
		calls:       make(map[string]int),
		nextID:      1,
		OTPKey:      "continuation-key",
		SendSuccess: true,
	}
}

// SetCode makes code the valid OTP for email.
func (f *FakeService) SetCode(email, code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[email] = code
}

// AddTask adds a task and returns its ID.
func (f *FakeService) AddTask(title string, status service.Status, due time.Time) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.tasks = append(f.tasks, service.Task{
		ID:       id,
		Title:    title,
		Priority: service.PriorityMedium,
		Status:   status,
		Due:      due,
		Type:     "Errands",
	})
	return id
}

// Task returns the stored task with id.
func (f *FakeService) Task(id int64) (service.Task, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, t := range f.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return service.Task{}, false
}

// Created returns the payloads received by CreateTask.
func (f *FakeService) Created() []service.NewTask {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]service.NewTask, len(f.created))
	copy(out, f.created)
	return out
}

// Calls returns how many times the named method was invoked.
func (f *FakeService) Calls(method string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.calls[method]
}

// TotalCalls returns the number of backend calls of any kind.
func (f *FakeService) TotalCalls() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *FakeService) count(method string) {
	f.mu.Lock()
	f.calls[method]++
	f.mu.Unlock()
}

// SendOTP implements service.Service.
func (f *FakeService) SendOTP(ctx context.Context, email string) (bool, error) {
	f.count("SendOTP")
	if f.SendOTPErr != nil {
		return false, f.SendOTPErr
	}
	return f.SendSuccess, nil
}

// ValidateOTP implements service.Service.
func (f *FakeService) ValidateOTP(ctx context.Context, email, otp string) (service.OTPValidation, error) {
	f.count("ValidateOTP")
	if f.ValidateOTPErr != nil {
		return service.OTPValidation{}, f.ValidateOTPErr
	}
	if f.ValidateMessage != "" {
		return service.OTPValidation{Message: f.ValidateMessage, Key: f.OTPKey}, nil
	}
	f.mu.RLock()
	want, ok := f.codes[email]
	f.mu.RUnlock()
	if !ok || want != otp {
		return service.OTPValidation{Message: "Invalid OTP"}, nil
	}
	return service.OTPValidation{Message: "OTP verified", Key: f.OTPKey}, nil
}

// CreateTask implements service.Service.
func (f *FakeService) CreateTask(ctx context.Context, task service.NewTask) error {
	f.count("CreateTask")
	if f.NoToken {
		return service.ErrNoToken
	}
	if f.CreateTaskErr != nil {
		return f.CreateTaskErr
	}
	due, _ := time.Parse(time.RFC3339, task.DueDate)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, task)
	f.tasks = append(f.tasks, service.Task{
		ID:          f.nextID,
		Title:       task.Title,
		Description: task.Description,
		Priority:    service.PriorityMedium,
		Status:      task.Status,
		Due:         due,
		Type:        task.Type,
	})
	f.nextID++
	return nil
}

// ListTasks implements service.Service.
func (f *FakeService) ListTasks(ctx context.Context, page, perPage int) ([]service.Task, error) {
	f.count("ListTasks")
	if f.NoToken {
		return nil, service.ErrNoToken
	}
	if f.ListTasksErr != nil {
		return nil, f.ListTasksErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	start := (page - 1) * perPage
	if start >= len(f.tasks) {
		return nil, nil
	}
	end := start + perPage
	if end > len(f.tasks) {
		end = len(f.tasks)
	}
	out := make([]service.Task, end-start)
	copy(out, f.tasks[start:end])
	return out, nil
}

// UpdateTaskStatus implements service.Service.
func (f *FakeService) UpdateTaskStatus(ctx context.Context, id int64, status service.Status) error {
	f.count("UpdateTaskStatus")
	if f.BeforeUpdate != nil {
		f.BeforeUpdate()
	}
	if f.NoToken {
		return service.ErrNoToken
	}
	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks[i].Status = status
			return nil
		}
	}
	return ErrNotFound
}
