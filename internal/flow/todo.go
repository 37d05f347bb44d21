package flow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"aide/internal/service"
)

// FetchPage and FetchPageSize are the fixed list request parameters.
const (
	FetchPage     = 1
	FetchPageSize = 200
)

// ErrBusy is returned while another list operation is in flight.
// One flag covers the fetch and every per-task action.
var ErrBusy = errors.New("task list is busy")

// TodoList holds the pending tasks shown to the user.
type TodoList struct {
	svc service.Service
	log logrus.FieldLogger
	now func() time.Time

	mu        sync.Mutex
	tasks     []service.Task
	loading   bool
	signedOut bool
}

// NewTodoList returns an empty list. now defaults to time.Now.
func NewTodoList(svc service.Service, log logrus.FieldLogger, now func() time.Time) *TodoList {
	if now == nil {
		now = time.Now
	}
	return &TodoList{svc: svc, log: log, now: now}
}

// Tasks returns a copy of the current list.
func (l *TodoList) Tasks() []service.Task {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]service.Task, len(l.tasks))
	copy(out, l.tasks)
	return out
}

// Loading reports whether an operation is in flight.
func (l *TodoList) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}

// SignedOut reports whether the last Fetch found no access token.
func (l *TodoList) SignedOut() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.signedOut
}

// Fetch loads the user's tasks and keeps those that are Pending and due after now.
// A missing token leaves the list empty and is not an error. Other failures are
// logged and returned; the list keeps its previous contents.
func (l *TodoList) Fetch(ctx context.Context) error {
	if !l.begin() {
		return ErrBusy
	}
	defer l.end()

	tasks, err := l.svc.ListTasks(ctx, FetchPage, FetchPageSize)
	if errors.Is(err, service.ErrNoToken) {
		l.log.Debug("no access token; showing empty task list")
		l.mu.Lock()
		l.signedOut = true
		l.mu.Unlock()
		return nil
	}
	if err != nil {
		l.log.WithError(err).Error("error fetching tasks")
		return err
	}

	pending := FilterPending(tasks, l.now())
	l.mu.Lock()
	l.tasks = pending
	l.signedOut = false
	l.mu.Unlock()
	return nil
}

// FilterPending returns the tasks whose status is exactly Pending and whose due
// time is strictly after now, in their original order.
func FilterPending(tasks []service.Task, now time.Time) []service.Task {
	out := make([]service.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status == service.StatusPending && t.Due.After(now) {
			out = append(out, t)
		}
	}
	return out
}

// Start moves task id to In Progress. On success only that task's status changes
// in the list; on failure the list is untouched.
func (l *TodoList) Start(ctx context.Context, id int64) (Result, error) {
	if !l.begin() {
		return Result{}, ErrBusy
	}
	defer l.end()

	err := l.svc.UpdateTaskStatus(ctx, id, service.StatusInProgress)
	if errors.Is(err, service.ErrNoToken) {
		return Result{Outcome: Transport, Message: "Authentication required", Err: err}, nil
	}
	if err != nil {
		l.log.WithError(err).Error("error starting task")
		return Result{Outcome: Transport, Message: "Failed to start task", Err: err}, nil
	}

	l.mu.Lock()
	for i := range l.tasks {
		if l.tasks[i].ID == id {
			l.tasks[i].Status = service.StatusInProgress
		}
	}
	l.mu.Unlock()
	return Result{Outcome: Success, Message: "Task Started: The task is now in progress."}, nil
}

func (l *TodoList) begin() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loading {
		return false
	}
	l.loading = true
	return true
}

func (l *TodoList) end() {
	l.mu.Lock()
	l.loading = false
	l.mu.Unlock()
}
