package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"aide/internal/geo"
	"aide/internal/service"
)

const (
	// TaskType is the type label sent with every new task.
	TaskType = "Errands"

	// DefaultPriority is used when the form leaves priority empty.
	DefaultPriority = "medium"

	// DueDateLayout is the canonical timestamp format sent as due_date.
	DueDateLayout = "2006-01-02T15:04:05.000Z07:00"
)

// ErrLocationUnavailable is returned by Save when no position could be acquired.
// The task is not created.
var ErrLocationUnavailable = errors.New("location unavailable")

// ErrRequiredFields is returned by Save when title, date or time is missing.
var ErrRequiredFields = &ValidationError{Title: "Validation Error", Detail: "Please fill in all required fields."}

var (
	dateLayouts = []string{"02/01/2006", "2/1/2006", "2006-01-02"}
	timeLayouts = []string{"15:04", "3:04 PM", "03:04 PM", "3:04PM", "15:04:05"}
)

// TaskForm is the input of the task creation flow.
type TaskForm struct {
	Title       string `validate:"required"`
	Date        string `validate:"required"`
	Time        string `validate:"required"`
	Description string
	Category    string
	Priority    string `validate:"omitempty,oneof=low medium high"`
}

// SavedTask is handed to OnSave after the backend accepted a new task.
type SavedTask struct {
	Time     string
	Summary  string
	Detail   string
	Date     time.Time
	Status   service.Status
	Category string
}

// TaskCreator submits task forms.
type TaskCreator struct {
	Service  service.Service
	Location geo.Provider
	Log      logrus.FieldLogger

	// LocationOptions defaults to geo.DefaultOptions.
	LocationOptions *geo.Options

	// OnSave is called once per created task, before Refresh.
	OnSave func(SavedTask)
	// Refresh reloads the caller's task list after a successful save.
	Refresh func(ctx context.Context) error

	// Loc is the zone dates and times are entered in. Defaults to time.Local.
	Loc *time.Location
}

// Save validates form, acquires a position, and creates the task.
//
// Validation failures return ErrRequiredFields or another *ValidationError before
// anything else happens. A failed position request returns ErrLocationUnavailable
// and nothing is sent. Backend failures come back as a Transport Result.
func (c *TaskCreator) Save(ctx context.Context, form TaskForm) (Result, error) {
	form.Title = strings.TrimSpace(form.Title)
	form.Date = strings.TrimSpace(form.Date)
	form.Time = strings.TrimSpace(form.Time)
	form.Priority = strings.ToLower(strings.TrimSpace(form.Priority))

	if err := validate.Struct(form); err != nil {
		if form.Title == "" || form.Date == "" || form.Time == "" {
			return Result{}, ErrRequiredFields
		}
		return Result{}, &ValidationError{Title: "Validation Error", Detail: "Priority must be low, medium or high."}
	}
	if form.Priority == "" {
		form.Priority = DefaultPriority
	}

	due, err := c.dueDate(form.Date, form.Time)
	if err != nil {
		return Result{}, err
	}

	opts := geo.DefaultOptions
	if c.LocationOptions != nil {
		opts = *c.LocationOptions
	}
	pos, err := geo.Locate(ctx, c.Location, opts)
	if err != nil {
		// The user gets no message for this; only the log records it.
		c.Log.WithError(err).Error("error getting location")
		return Result{}, fmt.Errorf("%w: %w", ErrLocationUnavailable, err)
	}

	formatted := due.UTC().Format(DueDateLayout)
	task := service.NewTask{
		Title:       form.Title,
		Description: form.Description,
		Priority:    form.Priority,
		Status:      service.StatusPending,
		DueDate:     formatted,
		Type:        TaskType,
		Location:    service.Location{Latitude: pos.Latitude, Longitude: pos.Longitude},
	}

	if err := c.Service.CreateTask(ctx, task); err != nil {
		c.Log.WithError(err).Debug("create task failed")
		return Result{Outcome: Transport, Message: saveFailureMessage(err), Err: err}, nil
	}

	if c.OnSave != nil {
		c.OnSave(SavedTask{
			Time:     formatted,
			Summary:  form.Title,
			Detail:   form.Description,
			Date:     due.UTC(),
			Status:   service.StatusPending,
			Category: form.Category,
		})
	}
	if c.Refresh != nil {
		if err := c.Refresh(ctx); err != nil {
			c.Log.WithError(err).Warn("refreshing tasks after save failed")
		}
	}
	return Result{Outcome: Success, Message: "Task created"}, nil
}

// dueDate combines the entered date and time of day into one instant in c.Loc.
func (c *TaskCreator) dueDate(date, clock string) (time.Time, error) {
	loc := c.Loc
	if loc == nil {
		loc = time.Local
	}

	var day time.Time
	if t, err := time.Parse(time.RFC3339, date); err == nil {
		day = t.In(loc)
	} else {
		parsed := false
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, date, loc); err == nil {
				day, parsed = t, true
				break
			}
		}
		if !parsed {
			return time.Time{}, &ValidationError{Title: "Validation Error", Detail: fmt.Sprintf("Unrecognized date: %s", date)}
		}
	}

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, strings.ToUpper(clock)); err == nil {
			return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
		}
	}
	return time.Time{}, &ValidationError{Title: "Validation Error", Detail: fmt.Sprintf("Unrecognized time: %s", clock)}
}

// saveFailureMessage distinguishes a backend refusal from a request that never completed.
func saveFailureMessage(err error) string {
	if msg, ok := service.APIMessage(err); ok {
		return "Failed to save task: " + msg
	}
	return "An error occurred while saving the task."
}
