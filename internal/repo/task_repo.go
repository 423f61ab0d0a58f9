package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/flowcraft-app/flowcraft/internal/model"
	"github.com/flowcraft-app/flowcraft/internal/pkg/dbutil"
	appErr "github.com/flowcraft-app/flowcraft/internal/pkg/errors"
)

type TaskRepo struct {
	db *sql.DB
}

func NewTaskRepo(db *sql.DB) *TaskRepo {
	return &TaskRepo{db: db}
}

var taskFields = []string{"id", "user_id", "title", "notes", "due_at", "done", "ctime", "mtime"}

func (r *TaskRepo) Create(ctx context.Context, task *model.Task) error {
	done := 0
	if task.Done {
		done = 1
	}
	data := map[string]interface{}{
		"id":      task.ID,
		"user_id": task.UserID,
		"title":   task.Title,
		"notes":   task.Notes,
		"due_at":  task.DueAt,
		"done":    done,
		"ctime":   task.Ctime,
		"mtime":   task.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("tasks", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *TaskRepo) Get(ctx context.Context, userID, taskID string) (*model.Task, error) {
	where := map[string]interface{}{"id": taskID, "user_id": userID}
	sqlStr, args, err := builder.BuildSelect("tasks", where, taskFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	return scanTask(rows)
}

func (r *TaskRepo) ListByUser(ctx context.Context, userID string) ([]model.Task, error) {
	where := map[string]interface{}{"user_id": userID, "_orderby": "done asc, due_at asc, ctime desc"}
	sqlStr, args, err := builder.BuildSelect("tasks", where, taskFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *task)
	}
	return out, rows.Err()
}

func (r *TaskRepo) Update(ctx context.Context, task *model.Task) error {
	done := 0
	if task.Done {
		done = 1
	}
	where := map[string]interface{}{"id": task.ID, "user_id": task.UserID}
	update := map[string]interface{}{
		"title":  task.Title,
		"notes":  task.Notes,
		"due_at": task.DueAt,
		"done":   done,
		"mtime":  task.Mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("tasks", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *TaskRepo) Delete(ctx context.Context, userID, taskID string) error {
	where := map[string]interface{}{"id": taskID, "user_id": userID}
	sqlStr, args, err := builder.BuildDelete("tasks", where)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func scanTask(rows *sql.Rows) (*model.Task, error) {
	var task model.Task
	var done int
	if err := rows.Scan(&task.ID, &task.UserID, &task.Title, &task.Notes,
		&task.DueAt, &done, &task.Ctime, &task.Mtime); err != nil {
		return nil, err
	}
	task.Done = done != 0
	return &task, nil
}
