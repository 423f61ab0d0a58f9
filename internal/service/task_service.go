package service

import (
	"context"

	"github.com/flowcraft-app/flowcraft/internal/model"
	appErr "github.com/flowcraft-app/flowcraft/internal/pkg/errors"
	"github.com/flowcraft-app/flowcraft/internal/pkg/timeutil"
	"github.com/flowcraft-app/flowcraft/internal/repo"
)

type TaskService struct {
	tasks *repo.TaskRepo
}

func NewTaskService(tasks *repo.TaskRepo) *TaskService {
	return &TaskService{tasks: tasks}
}

func (s *TaskService) Create(ctx context.Context, userID, title, notes string, dueAt int64) (*model.Task, error) {
	if title == "" {
		return nil, appErr.ErrInvalid
	}
	now := timeutil.NowUnix()
	task := &model.Task{
		ID:     newID(),
		UserID: userID,
		Title:  title,
		Notes:  notes,
		DueAt:  dueAt,
		Ctime:  now,
		Mtime:  now,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) Get(ctx context.Context, userID, taskID string) (*model.Task, error) {
	return s.tasks.Get(ctx, userID, taskID)
}

func (s *TaskService) List(ctx context.Context, userID string) ([]model.Task, error) {
	return s.tasks.ListByUser(ctx, userID)
}

func (s *TaskService) Update(ctx context.Context, userID, taskID, title, notes string, dueAt int64, done bool) (*model.Task, error) {
	task, err := s.tasks.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if title == "" {
		return nil, appErr.ErrInvalid
	}
	task.Title = title
	task.Notes = notes
	task.DueAt = dueAt
	task.Done = done
	task.Mtime = timeutil.NowUnix()
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) Toggle(ctx context.Context, userID, taskID string) (*model.Task, error) {
	task, err := s.tasks.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	task.Done = !task.Done
	task.Mtime = timeutil.NowUnix()
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, userID, taskID string) error {
	return s.tasks.Delete(ctx, userID, taskID)
}
