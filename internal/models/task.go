package models

import (
	"time"

	"github.com/google/uuid"
)

// Priority represents a task priority level
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

const (
	// MaxTitleLength is the upstream cap on task titles
	MaxTitleLength = 200
	// MaxDescriptionLength is the upstream cap on task descriptions
	MaxDescriptionLength = 2000
)

// Task mirrors the task object returned by the upstream task service.
// The upstream service is the system of record; this type is transport only.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Completed   bool       `json:"completed"`
	Priority    Priority   `json:"priority,omitempty"`
	Tags        []string   `json:"tags"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateTaskRequest is the payload for creating a task upstream
type CreateTaskRequest struct {
	Title       string   `json:"title" validate:"required,min=1,max=200"`
	Description string   `json:"description,omitempty" validate:"max=2000"`
	Priority    Priority `json:"priority,omitempty" validate:"omitempty,priority"`
	Tags        []string `json:"tags,omitempty" validate:"max=10,dive,tag"`
	DueDate     string   `json:"due_date,omitempty"`
}

// UpdateTaskRequest is the payload for updating a task upstream.
// Nil fields are omitted and left unchanged by the upstream service;
// a non-nil Tags slice replaces the task's tag set wholesale.
type UpdateTaskRequest struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
}

// TaskFilter narrows an upstream task listing. Tags use AND semantics:
// a task must carry every listed tag to match.
type TaskFilter struct {
	Tags      []string
	Completed *bool
}
