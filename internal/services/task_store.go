package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskmate/internal/database"
	"taskmate/internal/models"
)

// TaskStore handles SQL CRUD for tasks. Every mutation is a single
// statement, so per-record atomicity comes from the database itself.
type TaskStore struct {
	db *database.DB
}

// NewTaskStore creates a new task store
func NewTaskStore(db *database.DB) *TaskStore {
	return &TaskStore{db: db}
}

const taskColumns = "id, title, description, status, priority, due_date, created_at, updated_at"

// Create inserts a new task and fills in its id and timestamps
func (s *TaskStore) Create(ctx context.Context, task *models.Task) error {
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = models.StatusTodo
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}

	if s.db.Dialect() == database.DialectPostgres {
		query := s.db.Rebind(`INSERT INTO tasks (title, description, status, priority, due_date, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`)
		err := s.db.QueryRowContext(ctx, query,
			task.Title, task.Description, string(task.Status), string(task.Priority),
			task.DueDate, task.CreatedAt, task.UpdatedAt,
		).Scan(&task.ID)
		if err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		return nil
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (title, description, status, priority, due_date, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
		task.Title, task.Description, string(task.Status), string(task.Priority),
		task.DueDate, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read new task id: %w", err)
	}
	task.ID = id
	return nil
}

// Get retrieves a task by id
func (s *TaskStore) Get(ctx context.Context, id int64) (*models.Task, error) {
	query := s.db.Rebind("SELECT " + taskColumns + " FROM tasks WHERE id = ?")
	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// Update applies the non-nil fields of the mask and bumps updated_at.
// An empty mask is an idempotent no-op: the task is returned unchanged and
// updated_at keeps its old value.
func (s *TaskStore) Update(ctx context.Context, id int64, upd models.TaskUpdate) (*models.Task, error) {
	if upd.IsEmpty() {
		return s.Get(ctx, id)
	}

	var sets []string
	var args []interface{}
	if upd.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *upd.Title)
	}
	if upd.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *upd.Description)
	}
	if upd.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*upd.Status))
	}
	if upd.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, string(*upd.Priority))
	}
	if upd.DueDate != nil {
		sets = append(sets, "due_date = ?")
		args = append(args, *upd.DueDate)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now())
	args = append(args, id)

	query := s.db.Rebind("UPDATE tasks SET " + strings.Join(sets, ", ") + " WHERE id = ?")
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	// Re-read so the caller sees the stored row; a missing id surfaces here
	return s.Get(ctx, id)
}

// Delete removes a task by id
func (s *TaskStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM tasks WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return models.ErrTaskNotFound
	}
	return nil
}

// List returns tasks matching all provided predicates, newest first
func (s *TaskStore) List(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks"
	var conds []string
	var args []interface{}
	if filter.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.Priority != nil {
		conds = append(conds, "priority = ?")
		args = append(args, string(*filter.Priority))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]models.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tasks: %w", err)
	}
	return tasks, nil
}

// Snapshot returns the full unfiltered task list, newest first
func (s *TaskStore) Snapshot(ctx context.Context) ([]models.Task, error) {
	return s.List(ctx, models.TaskFilter{})
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var (
		task        models.Task
		description sql.NullString
		status      string
		priority    string
		dueDate     sql.NullTime
	)
	err := row.Scan(&task.ID, &task.Title, &description, &status, &priority,
		&dueDate, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if description.Valid {
		task.Description = &description.String
	}
	task.Status = models.TaskStatus(status)
	task.Priority = models.TaskPriority(priority)
	if dueDate.Valid {
		t := dueDate.Time
		task.DueDate = &t
	}
	return &task, nil
}
