package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"group-planner/internal/model"
	"group-planner/internal/repository"
)

// TaskSyncer keeps per-user copies of canonical group tasks in line with
// the original.
type TaskSyncer struct {
	tasks TaskStore
}

func NewTaskSyncer(tasks TaskStore) *TaskSyncer {
	return &TaskSyncer{tasks: tasks}
}

// SyncTask creates or refreshes user's copy of canonical and records user
// as an assignee. Approval state and completion of an existing copy are
// left alone.
func (s *TaskSyncer) SyncTask(ctx context.Context, canonical *model.Task, user *model.User) (*model.Task, error) {
	linked, err := s.tasks.FindLinked(ctx, canonical.ID, user.ID)
	switch {
	case err == nil:
		copyCanonicalFields(linked, canonical)
		if err := s.tasks.Save(ctx, linked); err != nil {
			return nil, saveErr(err, "taskWasModified")
		}
	case errors.Is(err, repository.ErrNotFound):
		linked = &model.Task{
			ID:     uuid.NewString(),
			UserID: user.ID,
			Group: model.GroupLink{
				ID:     canonical.Group.ID,
				TaskID: canonical.ID,
			},
		}
		copyCanonicalFields(linked, canonical)
		if err := s.tasks.Create(ctx, linked); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("sync task: %w", err)
	}

	if !canonical.IsAssignedTo(user.ID) {
		canonical.Group.AssignedUsers = append(canonical.Group.AssignedUsers, user.ID)
		if err := s.tasks.Save(ctx, canonical); err != nil {
			return nil, saveErr(err, "taskWasModified")
		}
	}
	return linked, nil
}

// UnlinkTask deletes user's copy of canonical, if any, and drops user from
// the assignees. It returns the deleted copy, or nil when there was none.
func (s *TaskSyncer) UnlinkTask(ctx context.Context, canonical *model.Task, user *model.User) (*model.Task, error) {
	linked, err := s.tasks.FindLinked(ctx, canonical.ID, user.ID)
	switch {
	case err == nil:
		if err := s.tasks.Delete(ctx, linked.ID); err != nil {
			return nil, err
		}
	case errors.Is(err, repository.ErrNotFound):
		linked = nil
	default:
		return nil, fmt.Errorf("unlink task: %w", err)
	}

	if !canonical.IsAssignedTo(user.ID) {
		return linked, nil
	}
	kept := make([]string, 0, len(canonical.Group.AssignedUsers))
	for _, id := range canonical.Group.AssignedUsers {
		if id != user.ID {
			kept = append(kept, id)
		}
	}
	canonical.Group.AssignedUsers = kept
	if err := s.tasks.Save(ctx, canonical); err != nil {
		return linked, saveErr(err, "taskWasModified")
	}
	return linked, nil
}

func copyCanonicalFields(dst, src *model.Task) {
	dst.Type = src.Type
	dst.Text = src.Text
	dst.Notes = src.Notes
	dst.Value = src.Value
	dst.Priority = src.Priority
	dst.Group.ApprovalRequired = src.Group.ApprovalRequired
}
