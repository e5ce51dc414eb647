package tools

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"taskmate/internal/models"
)

// TaskStore is the storage surface the task tools operate on
type TaskStore interface {
	Create(ctx context.Context, task *models.Task) error
	Update(ctx context.Context, id int64, upd models.TaskUpdate) (*models.Task, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
}

// RegisterTaskTools registers the five task operations against the given store
func RegisterTaskTools(registry *Registry, store TaskStore) error {
	for _, tool := range []*Tool{
		NewCreateTaskTool(store),
		NewUpdateTaskTool(store),
		NewDeleteTaskTool(store),
		NewListTasksTool(store),
		NewFilterTasksTool(store),
	} {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}
	return nil
}

// NewCreateTaskTool creates the create_task tool
func NewCreateTaskTool(store TaskStore) *Tool {
	return &Tool{
		Name:        "create_task",
		Description: "Create a new task with a title and optional description, priority and due date.",
		Mutating:    true,
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"title": map[string]interface{}{
					"type":        "string",
					"description": "Short task title",
				},
				"description": map[string]interface{}{
					"type":        "string",
					"description": "One or two sentences of detail",
				},
				"priority": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"low", "medium", "high"},
					"description": "Task priority, defaults to medium",
				},
				"due_date": map[string]interface{}{
					"type":        "string",
					"description": "ISO date or datetime, e.g. 2025-07-01 or 2025-07-01T23:59:59",
				},
			},
			"required": []string{"title"},
		},
		Execute: func(ctx context.Context, args map[string]interface{}) (Result, error) {
			return executeCreateTask(ctx, store, args)
		},
	}
}

func executeCreateTask(ctx context.Context, store TaskStore, args map[string]interface{}) (Result, error) {
	title, ok := stringArg(args, "title")
	if !ok {
		return Result{Text: "Error creating task: title is required"}, nil
	}

	task := &models.Task{
		Title:    title,
		Status:   models.StatusTodo,
		Priority: models.PriorityMedium,
	}

	if desc, ok := stringArg(args, "description"); ok {
		task.Description = &desc
	}
	if raw, ok := stringArg(args, "priority"); ok {
		// Unrecognized priorities fall back to medium rather than failing the call
		if priority, valid := models.ParsePriority(raw); valid {
			task.Priority = priority
		}
	}
	if raw, ok := stringArg(args, "due_date"); ok {
		due, err := parseDueDate(raw)
		if err != nil {
			return Result{Text: fmt.Sprintf("Error creating task: %v", err)}, nil
		}
		task.DueDate = &due
	}

	if err := store.Create(ctx, task); err != nil {
		return Result{}, fmt.Errorf("failed to create task: %w", err)
	}

	return Result{
		Text:    fmt.Sprintf("Task '%s' created successfully with ID %d", task.Title, task.ID),
		Payload: task,
		Mutated: true,
	}, nil
}

// NewUpdateTaskTool creates the update_task tool
func NewUpdateTaskTool(store TaskStore) *Tool {
	return &Tool{
		Name:        "update_task",
		Description: "Update an existing task. Only the provided fields change.",
		Mutating:    true,
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"task_id": map[string]interface{}{
					"type":        "integer",
					"description": "ID of the task to update",
				},
				"title": map[string]interface{}{
					"type":        "string",
					"description": "New title",
				},
				"description": map[string]interface{}{
					"type":        "string",
					"description": "New description",
				},
				"status": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"todo", "in_progress", "completed", "archived"},
					"description": "New status",
				},
				"priority": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"low", "medium", "high"},
					"description": "New priority",
				},
				"due_date": map[string]interface{}{
					"type":        "string",
					"description": "New due date in ISO format",
				},
			},
			"required": []string{"task_id"},
		},
		Execute: func(ctx context.Context, args map[string]interface{}) (Result, error) {
			return executeUpdateTask(ctx, store, args)
		},
	}
}

func executeUpdateTask(ctx context.Context, store TaskStore, args map[string]interface{}) (Result, error) {
	id, ok := taskIDArg(args)
	if !ok {
		return Result{Text: "Error updating task: task_id is required"}, nil
	}

	var upd models.TaskUpdate
	if title, ok := stringArg(args, "title"); ok {
		upd.Title = &title
	}
	if desc, ok := stringArg(args, "description"); ok {
		upd.Description = &desc
	}
	if raw, ok := stringArg(args, "status"); ok {
		status, valid := models.ParseStatus(raw)
		if !valid {
			return Result{Text: fmt.Sprintf("Error updating task: unknown status '%s', use todo, in_progress, completed or archived", raw)}, nil
		}
		upd.Status = &status
	}
	if raw, ok := stringArg(args, "priority"); ok {
		priority, valid := models.ParsePriority(raw)
		if !valid {
			return Result{Text: fmt.Sprintf("Error updating task: unknown priority '%s', use low, medium or high", raw)}, nil
		}
		upd.Priority = &priority
	}
	if raw, ok := stringArg(args, "due_date"); ok {
		due, err := parseDueDate(raw)
		if err != nil {
			return Result{Text: fmt.Sprintf("Error updating task: %v", err)}, nil
		}
		upd.DueDate = &due
	}

	task, err := store.Update(ctx, id, upd)
	if errors.Is(err, models.ErrTaskNotFound) {
		return Result{Text: fmt.Sprintf("Task with ID %d not found", id)}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to update task: %w", err)
	}

	if upd.IsEmpty() {
		return Result{
			Text:    fmt.Sprintf("Task %d unchanged, no fields were provided", id),
			Payload: task,
		}, nil
	}

	return Result{
		Text:    fmt.Sprintf("Task %d updated successfully", id),
		Payload: task,
		Mutated: true,
	}, nil
}

// NewDeleteTaskTool creates the delete_task tool
func NewDeleteTaskTool(store TaskStore) *Tool {
	return &Tool{
		Name:        "delete_task",
		Description: "Delete a task by its ID.",
		Mutating:    true,
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"task_id": map[string]interface{}{
					"type":        "integer",
					"description": "ID of the task to delete",
				},
			},
			"required": []string{"task_id"},
		},
		Execute: func(ctx context.Context, args map[string]interface{}) (Result, error) {
			return executeDeleteTask(ctx, store, args)
		},
	}
}

func executeDeleteTask(ctx context.Context, store TaskStore, args map[string]interface{}) (Result, error) {
	id, ok := taskIDArg(args)
	if !ok {
		return Result{Text: "Error deleting task: task_id is required"}, nil
	}

	err := store.Delete(ctx, id)
	if errors.Is(err, models.ErrTaskNotFound) {
		return Result{Text: fmt.Sprintf("Task with ID %d not found", id)}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to delete task: %w", err)
	}

	return Result{
		Text:    fmt.Sprintf("Task %d deleted successfully", id),
		Mutated: true,
	}, nil
}

// NewListTasksTool creates the list_tasks tool
func NewListTasksTool(store TaskStore) *Tool {
	return &Tool{
		Name:        "list_tasks",
		Description: "List all tasks, optionally restricted to one status.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"status": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"todo", "in_progress", "completed", "archived"},
					"description": "Only list tasks with this status",
				},
			},
			"required": []string{},
		},
		Execute: func(ctx context.Context, args map[string]interface{}) (Result, error) {
			return executeListTasks(ctx, store, args)
		},
	}
}

func executeListTasks(ctx context.Context, store TaskStore, args map[string]interface{}) (Result, error) {
	var filter models.TaskFilter
	if raw, ok := stringArg(args, "status"); ok {
		status, valid := models.ParseStatus(raw)
		if !valid {
			return Result{Text: fmt.Sprintf("Error listing tasks: unknown status '%s'", raw)}, nil
		}
		filter.Status = &status
	}

	tasks, err := store.List(ctx, filter)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list tasks: %w", err)
	}

	if len(tasks) == 0 {
		return Result{Text: "No tasks found", Payload: tasks}, nil
	}
	return Result{Text: formatTaskLines("Tasks:", tasks), Payload: tasks}, nil
}

// NewFilterTasksTool creates the filter_tasks tool
func NewFilterTasksTool(store TaskStore) *Tool {
	return &Tool{
		Name:        "filter_tasks",
		Description: "Filter tasks by status and/or priority.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"status": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"todo", "in_progress", "completed", "archived"},
					"description": "Status to match",
				},
				"priority": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"low", "medium", "high"},
					"description": "Priority to match",
				},
			},
			"required": []string{},
		},
		Execute: func(ctx context.Context, args map[string]interface{}) (Result, error) {
			return executeFilterTasks(ctx, store, args)
		},
	}
}

func executeFilterTasks(ctx context.Context, store TaskStore, args map[string]interface{}) (Result, error) {
	var filter models.TaskFilter
	if raw, ok := stringArg(args, "status"); ok {
		status, valid := models.ParseStatus(raw)
		if !valid {
			return Result{Text: fmt.Sprintf("Error filtering tasks: unknown status '%s'", raw)}, nil
		}
		filter.Status = &status
	}
	if raw, ok := stringArg(args, "priority"); ok {
		priority, valid := models.ParsePriority(raw)
		if !valid {
			return Result{Text: fmt.Sprintf("Error filtering tasks: unknown priority '%s'", raw)}, nil
		}
		filter.Priority = &priority
	}

	tasks, err := store.List(ctx, filter)
	if err != nil {
		return Result{}, fmt.Errorf("failed to filter tasks: %w", err)
	}

	if len(tasks) == 0 {
		return Result{Text: "No tasks found with specified filters", Payload: tasks}, nil
	}
	return Result{Text: formatTaskLines("Filtered tasks:", tasks), Payload: tasks}, nil
}

// stringArg extracts a non-empty string argument. Missing keys, nulls and
// empty strings all count as absent.
func stringArg(args map[string]interface{}, key string) (string, bool) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// taskIDArg extracts the task_id argument. Decoded JSON numbers arrive as
// float64; some models send the ID as a quoted string instead.
func taskIDArg(args map[string]interface{}) (int64, bool) {
	switch v := args["task_id"].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return id, true
	}
	return 0, false
}

func parseDueDate(raw string) (time.Time, error) {
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid due date '%s', use an ISO format like YYYY-MM-DD or YYYY-MM-DDTHH:MM:SS", raw)
}

func formatTaskLines(header string, tasks []models.Task) string {
	var b strings.Builder
	b.WriteString(header)
	for _, t := range tasks {
		b.WriteString(fmt.Sprintf("\nID: %d, Title: %s, Status: %s, Priority: %s", t.ID, t.Title, t.Status, t.Priority))
		if t.DueDate != nil {
			b.WriteString(", Due: " + t.DueDate.Format("2006-01-02"))
		}
	}
	return b.String()
}
