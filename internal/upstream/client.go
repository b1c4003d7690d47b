// Package upstream is the HTTP client for the external task service: the
// system of record for tasks and their tags. Every call goes through the
// single-retry combinator in retry.go.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/tagtalk/tagtalk/internal/models"
)

// DefaultTimeout bounds a single upstream request
const DefaultTimeout = 10 * time.Second

// Client calls the upstream task service. The inbound bearer token is
// forwarded verbatim; this subsystem never mints credentials.
type Client struct {
	baseURL string
	http    *http.Client
	retrier *Retrier
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client, mainly for tests
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithRetrier overrides the retry policy, mainly for tests
func WithRetrier(r *Retrier) ClientOption {
	return func(c *Client) { c.retrier = r }
}

// NewClient creates an upstream task-service client
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: DefaultTimeout},
		retrier: NewRetrier(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListTags returns the user's distinct tags, as ordered by the upstream
func (c *Client) ListTags(ctx context.Context, token string) ([]string, error) {
	return Do(ctx, c.retrier, func(ctx context.Context) ([]string, error) {
		var tags []string
		err := c.do(ctx, http.MethodGet, "/tags", nil, nil, token, &tags)
		return tags, err
	})
}

// ListTasks returns tasks matching the filter. Tag filters use AND
// semantics: a task must carry every listed tag.
func (c *Client) ListTasks(ctx context.Context, token string, filter models.TaskFilter) ([]models.Task, error) {
	query := url.Values{}
	for _, tag := range filter.Tags {
		query.Add("tags", tag)
	}
	if filter.Completed != nil {
		query.Set("completed", fmt.Sprintf("%t", *filter.Completed))
	}

	return Do(ctx, c.retrier, func(ctx context.Context) ([]models.Task, error) {
		var tasks []models.Task
		err := c.do(ctx, http.MethodGet, "/tasks", query, nil, token, &tasks)
		return tasks, err
	})
}

// GetTask fetches a single task by id
func (c *Client) GetTask(ctx context.Context, token string, taskID uuid.UUID) (*models.Task, error) {
	return Do(ctx, c.retrier, func(ctx context.Context) (*models.Task, error) {
		var task models.Task
		if err := c.do(ctx, http.MethodGet, "/tasks/"+taskID.String(), nil, nil, token, &task); err != nil {
			return nil, err
		}
		return &task, nil
	})
}

// CreateTask creates a task and returns the persisted copy
func (c *Client) CreateTask(ctx context.Context, token string, req models.CreateTaskRequest) (*models.Task, error) {
	return Do(ctx, c.retrier, func(ctx context.Context) (*models.Task, error) {
		var task models.Task
		if err := c.do(ctx, http.MethodPost, "/tasks", nil, req, token, &task); err != nil {
			return nil, err
		}
		return &task, nil
	})
}

// UpdateTaskTags replaces the task's tag set and returns the updated task
func (c *Client) UpdateTaskTags(ctx context.Context, token string, taskID uuid.UUID, tags []string) (*models.Task, error) {
	body := models.UpdateTaskRequest{Tags: &tags}
	return Do(ctx, c.retrier, func(ctx context.Context) (*models.Task, error) {
		var task models.Task
		if err := c.do(ctx, http.MethodPut, "/tasks/"+taskID.String(), nil, body, token, &task); err != nil {
			return nil, err
		}
		return &task, nil
	})
}

// CompleteTask marks a task complete or incomplete
func (c *Client) CompleteTask(ctx context.Context, token string, taskID uuid.UUID, completed bool) (*models.Task, error) {
	body := map[string]bool{"completed": completed}
	return Do(ctx, c.retrier, func(ctx context.Context) (*models.Task, error) {
		var task models.Task
		if err := c.do(ctx, http.MethodPatch, "/tasks/"+taskID.String()+"/complete", nil, body, token, &task); err != nil {
			return nil, err
		}
		return &task, nil
	})
}

// DeleteTask deletes a task
func (c *Client) DeleteTask(ctx context.Context, token string, taskID uuid.UUID) error {
	_, err := Do(ctx, c.retrier, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.do(ctx, http.MethodDelete, "/tasks/"+taskID.String(), nil, nil, token, nil)
	})
	return err
}

// Ping probes the upstream health endpoint without the retry wrapper
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, "", nil)
}

// do executes one request and decodes the response into out (when non-nil).
// Error responses are parsed into *APIError, preserving any field detail.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, token string, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return parseAPIError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func parseAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		apiErr.Message = http.StatusText(resp.StatusCode)
		return apiErr
	}

	var payload struct {
		Error   string            `json:"error"`
		Message string            `json:"message"`
		Detail  string            `json:"detail"`
		Fields  map[string]string `json:"fields"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		switch {
		case payload.Message != "":
			apiErr.Message = payload.Message
		case payload.Detail != "":
			apiErr.Message = payload.Detail
		case payload.Error != "":
			apiErr.Message = payload.Error
		}
		apiErr.Fields = payload.Fields
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
