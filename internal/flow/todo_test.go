package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"aide/internal/logging"
	"aide/internal/service"
	"aide/internal/testutil"
)

func TestFilterPending(t *testing.T) {
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	tasks := []service.Task{
		{ID: 1, Status: service.StatusPending, Due: now.Add(time.Hour)},
		{ID: 2, Status: service.StatusPending, Due: now.Add(-time.Hour)},
		{ID: 3, Status: service.StatusInProgress, Due: now.Add(time.Hour)},
		{ID: 4, Status: service.StatusPending, Due: now},
		{ID: 5, Status: "pending", Due: now.Add(time.Hour)},
		{ID: 6, Status: service.StatusPending},
		{ID: 7, Status: service.StatusPending, Due: now.Add(24 * time.Hour)},
	}

	got := FilterPending(tasks, now)
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 7 {
		ids := make([]int64, len(got))
		for i, t := range got {
			ids[i] = t.ID
		}
		t.Errorf("kept %v, want [1 7]", ids)
	}
}

func TestFetch(t *testing.T) {
	clock := newFakeClock()
	svc := testutil.NewFakeService()
	svc.AddTask("future", service.StatusPending, clock.Now().Add(time.Hour))
	svc.AddTask("past", service.StatusPending, clock.Now().Add(-time.Hour))
	svc.AddTask("started", service.StatusInProgress, clock.Now().Add(time.Hour))

	l := NewTodoList(svc, logging.Discard(), clock.Now)
	if err := l.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	got := l.Tasks()
	if len(got) != 1 || got[0].Title != "future" {
		t.Errorf("tasks = %+v", got)
	}
	if l.Loading() {
		t.Error("still loading after Fetch")
	}
}

func TestFetchWithoutTokenIsSilent(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.NoToken = true
	l := NewTodoList(svc, logging.Discard(), nil)

	if err := l.Fetch(context.Background()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(l.Tasks()) != 0 {
		t.Error("expected empty list")
	}
	if !l.SignedOut() {
		t.Error("SignedOut should report the missing token")
	}

	svc.NoToken = false
	if err := l.Fetch(context.Background()); err != nil {
		t.Fatal(err)
	}
	if l.SignedOut() {
		t.Error("SignedOut still set after a successful fetch")
	}
}

func TestFetchErrorKeepsList(t *testing.T) {
	clock := newFakeClock()
	svc := testutil.NewFakeService()
	svc.AddTask("a", service.StatusPending, clock.Now().Add(time.Hour))
	l := NewTodoList(svc, logging.Discard(), clock.Now)
	if err := l.Fetch(context.Background()); err != nil {
		t.Fatal(err)
	}

	svc.ListTasksErr = errors.New("boom")
	if err := l.Fetch(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(l.Tasks()) != 1 {
		t.Error("list changed after failed fetch")
	}
}

func TestStartUpdatesOnlyTarget(t *testing.T) {
	clock := newFakeClock()
	svc := testutil.NewFakeService()
	a := svc.AddTask("a", service.StatusPending, clock.Now().Add(time.Hour))
	b := svc.AddTask("b", service.StatusPending, clock.Now().Add(2*time.Hour))
	l := NewTodoList(svc, logging.Discard(), clock.Now)
	if err := l.Fetch(context.Background()); err != nil {
		t.Fatal(err)
	}

	res, err := l.Start(context.Background(), b)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !res.OK() || res.Message != "Task Started: The task is now in progress." {
		t.Errorf("got %v %q", res.Outcome, res.Message)
	}
	for _, task := range l.Tasks() {
		switch task.ID {
		case a:
			if task.Status != service.StatusPending {
				t.Errorf("task a status = %q", task.Status)
			}
		case b:
			if task.Status != service.StatusInProgress {
				t.Errorf("task b status = %q", task.Status)
			}
		}
	}
	if stored, _ := svc.Task(b); stored.Status != service.StatusInProgress {
		t.Errorf("backend status = %q", stored.Status)
	}
}

func TestStartFailureLeavesList(t *testing.T) {
	clock := newFakeClock()
	svc := testutil.NewFakeService()
	id := svc.AddTask("a", service.StatusPending, clock.Now().Add(time.Hour))
	l := NewTodoList(svc, logging.Discard(), clock.Now)
	if err := l.Fetch(context.Background()); err != nil {
		t.Fatal(err)
	}

	svc.UpdateErr = errors.New("500")
	res, err := l.Start(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != Transport || res.Message != "Failed to start task" {
		t.Errorf("got %v %q", res.Outcome, res.Message)
	}
	if got := l.Tasks()[0].Status; got != service.StatusPending {
		t.Errorf("status = %q", got)
	}
}

func TestStartWithoutToken(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.NoToken = true
	l := NewTodoList(svc, logging.Discard(), nil)

	res, err := l.Start(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.Message != "Authentication required" {
		t.Errorf("message = %q", res.Message)
	}
}

func TestBusyWhileStarting(t *testing.T) {
	svc := testutil.NewFakeService()
	id := svc.AddTask("a", service.StatusPending, time.Now().Add(time.Hour))
	l := NewTodoList(svc, logging.Discard(), nil)

	var inner error
	svc.BeforeUpdate = func() {
		inner = l.Fetch(context.Background())
	}
	if _, err := l.Start(context.Background(), id); err != nil {
		t.Fatal(err)
	}
	if !errors.Is(inner, ErrBusy) {
		t.Errorf("nested Fetch = %v, want ErrBusy", inner)
	}
	if l.Loading() {
		t.Error("loading flag not cleared")
	}
}
