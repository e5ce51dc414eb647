package models

import (
	"errors"
	"strings"
	"time"
)

// ErrTaskNotFound is returned by the store when an id matches no task
var ErrTaskNotFound = errors.New("task not found")

// TaskStatus is the lifecycle state of a task
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusArchived   TaskStatus = "archived"
)

// TaskPriority is the urgency level of a task
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// Task represents a persisted unit of work on the shared board
type Task struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Description *string      `json:"description"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	DueDate     *time.Time   `json:"due_date"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// TaskUpdate is a field mask for partial updates; nil fields are untouched
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *TaskStatus
	Priority    *TaskPriority
	DueDate     *time.Time
}

// IsEmpty reports whether the mask carries no fields at all
func (u TaskUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Status == nil &&
		u.Priority == nil && u.DueDate == nil
}

// TaskFilter narrows a listing; nil fields match everything
type TaskFilter struct {
	Status   *TaskStatus
	Priority *TaskPriority
}

// ParseStatus coerces a user-supplied status into its enum value.
// Matching is case-insensitive and tolerant of separators, so
// "In Progress", "in-progress" and "inprogress" all resolve to in_progress.
func ParseStatus(raw string) (TaskStatus, bool) {
	switch normalizeEnum(raw) {
	case "todo":
		return StatusTodo, true
	case "in_progress", "inprogress":
		return StatusInProgress, true
	case "completed":
		return StatusCompleted, true
	case "archived":
		return StatusArchived, true
	}
	return "", false
}

// ParsePriority coerces a user-supplied priority into its enum value
func ParsePriority(raw string) (TaskPriority, bool) {
	switch normalizeEnum(raw) {
	case "low":
		return PriorityLow, true
	case "medium":
		return PriorityMedium, true
	case "high":
		return PriorityHigh, true
	}
	return "", false
}

func normalizeEnum(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
