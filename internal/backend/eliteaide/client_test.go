package eliteaide

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/oauth2"

	"aide/internal/auth"
	"aide/internal/config"
	"aide/internal/service"
)

// fakeBackend records what each route received.
type fakeBackend struct {
	lastBody   map[string]any
	lastAuth   string
	lastQuery  map[string]string
	lastTaskID string
	requestIDs []string
}

func (f *fakeBackend) record(r *http.Request) {
	f.lastAuth = r.Header.Get("Authorization")
	f.requestIDs = append(f.requestIDs, r.Header.Get(RequestIDHeader))
	f.lastBody = nil
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&f.lastBody)
	}
}

func newTestClient(t *testing.T, routes func(r *mux.Router, f *fakeBackend), tokens oauth2.TokenSource) (*Client, *fakeBackend) {
	t.Helper()
	f := &fakeBackend{}
	r := mux.NewRouter()
	routes(r, f)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	// Trailing slash on purpose: joining must not double it.
	return NewWithHTTPClient(srv.URL+"/", tokens, srv.Client()), f
}

func staticToken() oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "tok-123", TokenType: "Bearer"})
}

type noToken struct{}

func (noToken) Token() (*oauth2.Token, error) { return nil, service.ErrNoToken }

func TestValidateOTP_Verified(t *testing.T) {
	c, f := newTestClient(t, func(r *mux.Router, f *fakeBackend) {
		r.HandleFunc("/v1/users/otp/validate/", func(w http.ResponseWriter, r *http.Request) {
			f.record(r)
			w.Write([]byte(`{"message": "OTP Verified", "key": "cont-42"}`))
		}).Methods(http.MethodPost)
	}, noToken{})

	got, err := c.ValidateOTP(context.Background(), "a@b.co", "1234")
	if err != nil {
		t.Fatalf("ValidateOTP: %v", err)
	}
	if got.Message != "OTP Verified" || got.Key != "cont-42" {
		t.Errorf("got %+v", got)
	}
	if f.lastBody["email"] != "a@b.co" || f.lastBody["otp"] != "1234" {
		t.Errorf("body = %v", f.lastBody)
	}
	if f.lastAuth != "" {
		t.Errorf("OTP validation must not be authorized, got %q", f.lastAuth)
	}
	if f.requestIDs[0] == "" {
		t.Error("expected a request ID header")
	}
}

func TestValidateOTP_ErrorStatusIsAResult(t *testing.T) {
	c, _ := newTestClient(t, func(r *mux.Router, f *fakeBackend) {
		r.HandleFunc("/v1/users/otp/validate/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"message": "Invalid OTP"}`))
		}).Methods(http.MethodPost)
	}, noToken{})

	got, err := c.ValidateOTP(context.Background(), "a@b.co", "0000")
	if err != nil {
		t.Fatalf("ValidateOTP: %v", err)
	}
	if got.Message != "Invalid OTP" {
		t.Errorf("Message = %q", got.Message)
	}
}

func TestValidateOTP_MalformedJSON(t *testing.T) {
	c, _ := newTestClient(t, func(r *mux.Router, f *fakeBackend) {
		r.HandleFunc("/v1/users/otp/validate/", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>bad gateway</html>`))
		}).Methods(http.MethodPost)
	}, noToken{})

	if _, err := c.ValidateOTP(context.Background(), "a@b.co", "1234"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestSendOTP(t *testing.T) {
	c, f := newTestClient(t, func(r *mux.Router, f *fakeBackend) {
		r.HandleFunc("/v1/users/otp/send/", func(w http.ResponseWriter, r *http.Request) {
			f.record(r)
			w.Write([]byte(`{"success": true}`))
		}).Methods(http.MethodPost)
	}, noToken{})

	ok, err := c.SendOTP(context.Background(), "a@b.co")
	if err != nil {
		t.Fatalf("SendOTP: %v", err)
	}
	if !ok {
		t.Error("expected success=true")
	}
	if f.lastBody["email"] != "a@b.co" {
		t.Errorf("body = %v", f.lastBody)
	}
}

func TestSendOTP_ErrorStatus(t *testing.T) {
	c, _ := newTestClient(t, func(r *mux.Router, f *fakeBackend) {
		r.HandleFunc("/v1/users/otp/send/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"success": true}`))
		}).Methods(http.MethodPost)
	}, noToken{})

	if _, err := c.SendOTP(context.Background(), "a@b.co"); err == nil {
		t.Fatal("expected error for 500 even with success=true")
	}
}

func TestCreateTask(t *testing.T) {
	c, f := newTestClient(t, func(r *mux.Router, f *fakeBackend) {
		r.HandleFunc("/v1/tasks/", func(w http.ResponseWriter, r *http.Request) {
			f.record(r)
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"message": "created"}`))
		}).Methods(http.MethodPost)
	}, staticToken())

	err := c.CreateTask(context.Background(), service.NewTask{
		Title:    "Buy milk",
		Priority: "medium",
		Status:   service.StatusPending,
		DueDate:  "2026-10-20T09:30:00.000Z",
		Type:     "Errands",
		Location: service.Location{Latitude: 1.25, Longitude: 2.5},
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if f.lastAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q", f.lastAuth)
	}
	if f.lastBody["status"] != "Pending" || f.lastBody["type"] != "Errands" || f.lastBody["due_date"] != "2026-10-20T09:30:00.000Z" {
		t.Errorf("body = %v", f.lastBody)
	}
	loc, _ := f.lastBody["location"].(map[string]any)
	if loc["latitude"] != 1.25 || loc["longitude"] != 2.5 {
		t.Errorf("location = %v", f.lastBody["location"])
	}
}

func TestCreateTask_ServerMessage(t *testing.T) {
	c, _ := newTestClient(t, func(r *mux.Router, f *fakeBackend) {
		r.HandleFunc("/v1/tasks/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"message": "due_date is in the past"}`))
		}).Methods(http.MethodPost)
	}, staticToken())

	err := c.CreateTask(context.Background(), service.NewTask{Title: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if msg, _ := service.APIMessage(err); msg != "due_date is in the past" {
		t.Errorf("message = %q", msg)
	}
}

func TestCreateTask_NoTokenSendsNothing(t *testing.T) {
	c, f := newTestClient(t, func(r *mux.Router, f *fakeBackend) {
		r.HandleFunc("/v1/tasks/", func(w http.ResponseWriter, r *http.Request) {
			f.record(r)
		})
	}, noToken{})

	err := c.CreateTask(context.Background(), service.NewTask{Title: "x"})
	if !errors.Is(err, service.ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
	if len(f.requestIDs) != 0 {
		t.Errorf("expected no request, got %d", len(f.requestIDs))
	}
}

func TestListTasks(t *testing.T) {
	c, f := newTestClient(t, func(r *mux.Router, f *fakeBackend) {
		r.HandleFunc("/v1/tasks/user-tasks", func(w http.ResponseWriter, r *http.Request) {
			f.record(r)
			f.lastQuery = map[string]string{
				"page":           r.URL.Query().Get("page"),
				"items_per_page": r.URL.Query().Get("items_per_page"),
			}
			w.Write([]byte(`{"message": {"task_details": {"data": [
				{"id": 1, "title": "A", "description": "d", "priority": 3, "status": "Pending", "due_date": "2026-10-20T09:30:00Z", "type": "Errands"},
				{"id": 2, "title": "B", "priority": "low", "status": "Completed", "due_date": "not a date"}
			]}}}`))
		}).Methods(http.MethodGet)
	}, staticToken())

	tasks, err := c.ListTasks(context.Background(), 1, 200)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if f.lastQuery["page"] != "1" || f.lastQuery["items_per_page"] != "200" {
		t.Errorf("query = %v", f.lastQuery)
	}
	if f.lastAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q", f.lastAuth)
	}
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks", len(tasks))
	}
	want := time.Date(2026, 10, 20, 9, 30, 0, 0, time.UTC)
	if tasks[0].ID != 1 || tasks[0].Priority != service.PriorityHigh || tasks[0].Status != service.StatusPending || !tasks[0].Due.Equal(want) {
		t.Errorf("task[0] = %+v", tasks[0])
	}
	if tasks[1].Priority != service.PriorityLow || !tasks[1].Due.IsZero() {
		t.Errorf("task[1] = %+v", tasks[1])
	}
}

func TestListTasks_SkipsMalformedEntry(t *testing.T) {
	c, _ := newTestClient(t, func(r *mux.Router, f *fakeBackend) {
		r.HandleFunc("/v1/tasks/user-tasks", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"message": {"task_details": {"data": [
				{"id": 1, "title": "kept", "priority": 2, "status": "Pending", "due_date": "2030-01-01T00:00:00Z"},
				{"id": "2", "title": "bad id", "status": "Pending"},
				{"id": 3, "title": "also kept", "priority": 1, "status": "Pending", "due_date": "2030-01-02T00:00:00Z"}
			]}}}`))
		}).Methods(http.MethodGet)
	}, staticToken())

	tasks, err := c.ListTasks(context.Background(), 1, 200)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 2 || tasks[0].ID != 1 || tasks[1].ID != 3 {
		t.Errorf("tasks = %+v, want IDs 1 and 3", tasks)
	}
}

func TestListTasks_NoDetails(t *testing.T) {
	c, _ := newTestClient(t, func(r *mux.Router, f *fakeBackend) {
		r.HandleFunc("/v1/tasks/user-tasks", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"message": "no tasks"}`))
		}).Methods(http.MethodGet)
	}, staticToken())

	tasks, err := c.ListTasks(context.Background(), 1, 200)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("expected no tasks, got %v", tasks)
	}
}

func TestListTasks_Unauthorized(t *testing.T) {
	c, _ := newTestClient(t, func(r *mux.Router, f *fakeBackend) {
		r.HandleFunc("/v1/tasks/user-tasks", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail": "Token expired"}`))
		}).Methods(http.MethodGet)
	}, staticToken())

	_, err := c.ListTasks(context.Background(), 1, 200)
	if !errors.Is(err, service.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if msg, ok := service.APIMessage(err); !ok || msg != "Token expired" {
		t.Errorf("message = %q, ok = %v", msg, ok)
	}
}

func TestUpdateTaskStatus(t *testing.T) {
	c, f := newTestClient(t, func(r *mux.Router, f *fakeBackend) {
		r.HandleFunc("/v1/tasks/{id}/", func(w http.ResponseWriter, r *http.Request) {
			f.record(r)
			f.lastTaskID = mux.Vars(r)["id"]
			w.Write([]byte(`{}`))
		}).Methods(http.MethodPatch)
	}, staticToken())

	if err := c.UpdateTaskStatus(context.Background(), 57, service.StatusInProgress); err != nil {
		t.Fatalf("UpdateTaskStatus: %v", err)
	}
	if f.lastTaskID != "57" {
		t.Errorf("task id = %q", f.lastTaskID)
	}
	if f.lastBody["status"] != "In Progress" {
		t.Errorf("body = %v", f.lastBody)
	}
}

func TestUpdateTaskStatus_NotFound(t *testing.T) {
	c, _ := newTestClient(t, func(r *mux.Router, f *fakeBackend) {}, staticToken())

	if err := c.UpdateTaskStatus(context.Background(), 9, service.StatusInProgress); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestTransportError(t *testing.T) {
	c := NewWithHTTPClient("http://127.0.0.1:1", staticToken(), nil)

	if _, err := c.ListTasks(context.Background(), 1, 200); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestParseDue(t *testing.T) {
	if got := ParseDue("2026-03-01"); !got.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("bare date = %v", got)
	}
	if got := ParseDue("2026-03-01T10:00:00"); !got.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local)) {
		t.Errorf("zoneless = %v", got)
	}
	if got := ParseDue("2026-03-01T10:00:00.123+02:00"); got.UTC().Hour() != 8 {
		t.Errorf("offset = %v", got)
	}
	if got := ParseDue(""); !got.IsZero() {
		t.Errorf("empty = %v", got)
	}
}

func TestNew_UsesStoredToken(t *testing.T) {
	var gotAuth string
	r := mux.NewRouter()
	r.HandleFunc("/v1/tasks/{id}/", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}).Methods(http.MethodPatch)
	srv := httptest.NewServer(r)
	defer srv.Close()

	cfg, err := config.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cfg.Settings.BaseURL = srv.URL

	c, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.UpdateTaskStatus(context.Background(), 1, service.StatusInProgress); !errors.Is(err, service.ErrNoToken) {
		t.Fatalf("before login: expected ErrNoToken, got %v", err)
	}

	if err := auth.Save(cfg.TokenPath(), auth.NewToken("stored-token")); err != nil {
		t.Fatal(err)
	}
	c, err = New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.UpdateTaskStatus(context.Background(), 1, service.StatusInProgress); err != nil {
		t.Fatalf("UpdateTaskStatus: %v", err)
	}
	if gotAuth != "Bearer stored-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}
