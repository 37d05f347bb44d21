// Package eliteaide implements the service.Service interface over the EliteAide REST API.
package eliteaide

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"aide/internal/auth"
	"aide/internal/config"
	"aide/internal/logging"
	"aide/internal/service"
)

const (
	// RequestIDHeader carries a per-request UUID for correlating client and server logs.
	RequestIDHeader = "X-Request-ID"

	pathValidateOTP = "v1/users/otp/validate/"
	pathSendOTP     = "v1/users/otp/send/"
	pathTasks       = "v1/tasks/"
	pathUserTasks   = "v1/tasks/user-tasks"
)

// Client implements service.Service.
// Requests carry no timeout of their own; cancellation comes from the caller's context.
type Client struct {
	http   *http.Client
	base   string
	tokens oauth2.TokenSource
	log    logrus.FieldLogger
}

// New creates a client for cfg's base URL, reading the bearer token from cfg's token file.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	base := cfg.Settings.BaseURL
	if base == "" {
		base = config.DefaultBaseURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	return &Client{
		http:   &http.Client{},
		base:   strings.TrimRight(base, "/"),
		tokens: auth.NewSource(cfg.TokenPath()),
		log:    cfg.Logger(),
	}, nil
}

// NewWithHTTPClient creates a client with a custom HTTP client and token source (for testing).
func NewWithHTTPClient(baseURL string, tokens oauth2.TokenSource, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		http:   httpClient,
		base:   strings.TrimRight(baseURL, "/"),
		tokens: tokens,
		log:    logging.Discard(),
	}
}

// SendOTP asks the backend to email a new code.
func (c *Client) SendOTP(ctx context.Context, email string) (bool, error) {
	res, err := c.do(ctx, http.MethodPost, pathSendOTP, nil, map[string]string{"email": email}, false)
	if err != nil {
		return false, err
	}
	defer closeBody(res)

	if err := checkResponse(res); err != nil {
		return false, wrapError(err)
	}

	var body struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("invalid response: %w", err)
	}
	return body.Success, nil
}

// ValidateOTP submits a code. Error statuses with a JSON body are returned as a
// validation result; the caller decides what the message means.
func (c *Client) ValidateOTP(ctx context.Context, email, otp string) (service.OTPValidation, error) {
	res, err := c.do(ctx, http.MethodPost, pathValidateOTP, nil, map[string]string{"email": email, "otp": otp}, false)
	if err != nil {
		return service.OTPValidation{}, err
	}
	defer closeBody(res)

	var body struct {
		Message json.RawMessage `json:"message"`
		Key     json.RawMessage `json:"key"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return service.OTPValidation{}, fmt.Errorf("invalid response: %w", err)
	}
	return service.OTPValidation{
		Message: stringValue(body.Message),
		Key:     stringValue(body.Key),
	}, nil
}

// CreateTask creates a task for the token's user.
func (c *Client) CreateTask(ctx context.Context, task service.NewTask) error {
	res, err := c.do(ctx, http.MethodPost, pathTasks, nil, task, true)
	if err != nil {
		return err
	}
	defer closeBody(res)

	return wrapError(checkResponse(res))
}

// ListTasks returns one page of the user's tasks.
func (c *Client) ListTasks(ctx context.Context, page, perPage int) ([]service.Task, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("items_per_page", strconv.Itoa(perPage))

	res, err := c.do(ctx, http.MethodGet, pathUserTasks, query, nil, true)
	if err != nil {
		return nil, err
	}
	defer closeBody(res)

	if err := checkResponse(res); err != nil {
		return nil, wrapError(err)
	}

	var envelope struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("invalid response: %w", err)
	}

	// A message that is not {task_details:{data:[...]}} means no tasks.
	var details struct {
		TaskDetails struct {
			Data []json.RawMessage `json:"data"`
		} `json:"task_details"`
	}
	if err := json.Unmarshal(envelope.Message, &details); err != nil {
		c.log.WithError(err).Debug("list response has no task details")
		return nil, nil
	}

	// One malformed entry must not hide the rest.
	result := make([]service.Task, 0, len(details.TaskDetails.Data))
	for i, raw := range details.TaskDetails.Data {
		var t taskJSON
		if err := json.Unmarshal(raw, &t); err != nil {
			c.log.WithError(err).WithField("index", i).Warn("skipping malformed task")
			continue
		}
		result = append(result, t.toTask())
	}
	return result, nil
}

// UpdateTaskStatus sets a task's status with a partial update.
func (c *Client) UpdateTaskStatus(ctx context.Context, id int64, status service.Status) error {
	path := fmt.Sprintf("%s%d/", pathTasks, id)
	res, err := c.do(ctx, http.MethodPatch, path, nil, map[string]service.Status{"status": status}, true)
	if err != nil {
		return err
	}
	defer closeBody(res)

	return wrapError(checkResponse(res))
}

// do sends one request. When authorized is set the bearer token is attached,
// and a missing token fails before anything is sent.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, authorized bool) (*http.Response, error) {
	endpoint := c.base + "/" + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)

	if authorized {
		token, err := c.tokens.Token()
		if err != nil {
			return nil, err
		}
		token.SetAuthHeader(req)
	}

	entry := c.log.WithFields(logrus.Fields{
		"method":     method,
		"path":       "/" + path,
		"request_id": requestID,
	})

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		entry.WithError(err).Debug("api request failed")
		return nil, wrapError(fmt.Errorf("request failed: %w", err))
	}
	entry.WithFields(logrus.Fields{
		"status":  res.StatusCode,
		"elapsed": time.Since(start).Round(time.Millisecond).String(),
	}).Debug("api request")
	return res, nil
}

// checkResponse returns a *googleapi.Error for non-2xx responses, taking the
// message from the backend's {"message": "..."} body when present.
func checkResponse(res *http.Response) error {
	err := googleapi.CheckResponse(res)
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	if apiErr.Message == "" {
		var body struct {
			Message json.RawMessage `json:"message"`
			Detail  string          `json:"detail"`
		}
		if json.Unmarshal([]byte(apiErr.Body), &body) == nil {
			apiErr.Message = stringValue(body.Message)
			if apiErr.Message == "" {
				apiErr.Message = body.Detail
			}
		}
	}
	return apiErr
}

// wrapError marks auth failures so callers can branch on service.ErrUnauthorized.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %w", service.ErrUnauthorized, apiErr)
		}
	}
	return err
}

type taskJSON struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    json.RawMessage `json:"priority"`
	Status      string          `json:"status"`
	DueDate     string          `json:"due_date"`
	Type        string          `json:"type"`
}

func (t taskJSON) toTask() service.Task {
	return service.Task{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    parsePriority(t.Priority),
		Status:      service.Status(t.Status),
		Due:         ParseDue(t.DueDate),
		Type:        t.Type,
	}
}

// parsePriority accepts the numeric form (1..3) and the label form sent on creation.
func parsePriority(raw json.RawMessage) service.Priority {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return service.Priority(n)
	}
	switch strings.ToLower(stringValue(raw)) {
	case "low":
		return service.PriorityLow
	case "medium":
		return service.PriorityMedium
	case "high":
		return service.PriorityHigh
	}
	return 0
}

var dueLayouts = []struct {
	layout string
	loc    *time.Location
}{
	{time.RFC3339Nano, time.UTC},
	{"2006-01-02T15:04:05.999999999", time.Local},
	{"2006-01-02 15:04:05", time.Local},
	{"2006-01-02", time.UTC},
}

// ParseDue parses the backend's due_date. Date-times without a zone are local;
// bare dates are UTC midnight. Returns the zero time if nothing matches.
func ParseDue(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, l := range dueLayouts {
		if t, err := time.ParseInLocation(l.layout, s, l.loc); err == nil {
			return t
		}
	}
	return time.Time{}
}

// stringValue returns a JSON string's contents, or the raw JSON for other non-null values.
func stringValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func closeBody(res *http.Response) {
	io.Copy(io.Discard, res.Body)
	res.Body.Close()
}
