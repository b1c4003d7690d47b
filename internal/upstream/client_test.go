package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tagtalk/tagtalk/internal/models"
)

func fastRetrier() *Retrier {
	return NewRetrier(WithSleeper(func(_ context.Context, _ time.Duration) error { return nil }))
}

func TestListTagsForwardsBearerToken(t *testing.T) {
	t.Parallel()

	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode([]string{"home", "work"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRetrier(fastRetrier()))
	tags, err := c.ListTags(context.Background(), "caller-token")
	if err != nil {
		t.Fatalf("ListTags() error = %v", err)
	}
	if gotAuth != "Bearer caller-token" {
		t.Errorf("Authorization = %q, want the caller token forwarded", gotAuth)
	}
	if len(tags) != 2 {
		t.Errorf("expected 2 tags, got %v", tags)
	}
}

func TestListTasksBuildsFilterQuery(t *testing.T) {
	t.Parallel()

	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode([]models.Task{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRetrier(fastRetrier()))
	completed := true
	_, err := c.ListTasks(context.Background(), "tok", models.TaskFilter{
		Tags:      []string{"urgent", "work"},
		Completed: &completed,
	})
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}
	if gotQuery != "completed=true&tags=urgent&tags=work" {
		t.Errorf("query = %q, want completed=true&tags=urgent&tags=work", gotQuery)
	}
}

func TestClientRetriesServerErrorOnce(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode([]string{"work"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRetrier(fastRetrier()))
	tags, err := c.ListTags(context.Background(), "tok")
	if err != nil {
		t.Fatalf("ListTags() error = %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", calls.Load())
	}
	if len(tags) != 1 || tags[0] != "work" {
		t.Errorf("expected recovered result, got %v", tags)
	}
}

func TestClientEscalatesPersistentServerError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"down"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRetrier(fastRetrier()))
	_, err := c.ListTags(context.Background(), "tok")
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected exactly 2 attempts, got %d", calls.Load())
	}
}

func TestClientParsesValidationError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": "invalid tag",
			"fields":  map[string]string{"tags": "must match ^[a-z0-9-]{1,50}$"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRetrier(fastRetrier()))
	_, err := c.CreateTask(context.Background(), "tok", models.CreateTaskRequest{Title: "x", Tags: []string{"BAD"}})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("StatusCode = %d, want 422", apiErr.StatusCode)
	}
	if apiErr.Message != "invalid tag" {
		t.Errorf("Message = %q, want invalid tag", apiErr.Message)
	}
	if apiErr.Fields["tags"] == "" {
		t.Error("field detail should be preserved")
	}
	if calls.Load() != 1 {
		t.Errorf("validation errors must not be retried, got %d attempts", calls.Load())
	}
}

func TestClientAuthErrorPassesThrough(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "token expired"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRetrier(fastRetrier()))
	_, err := c.ListTags(context.Background(), "stale")
	if !IsAuth(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "token expired" {
		t.Errorf("Message = %q, want token expired", apiErr.Message)
	}
}

func TestUpdateTaskTagsSendsEmptyList(t *testing.T) {
	t.Parallel()

	taskID := uuid.New()
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(models.Task{ID: taskID, Title: "t"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRetrier(fastRetrier()))
	if _, err := c.UpdateTaskTags(context.Background(), "tok", taskID, []string{}); err != nil {
		t.Fatalf("UpdateTaskTags() error = %v", err)
	}

	tags, present := gotBody["tags"]
	if !present {
		t.Fatal("an explicit empty tag list must be serialized, not omitted")
	}
	if arr, ok := tags.([]any); !ok || len(arr) != 0 {
		t.Errorf("tags = %v, want empty array", tags)
	}
}
