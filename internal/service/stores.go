package service

import (
	"context"
	"errors"

	"group-planner/internal/apperr"
	"group-planner/internal/model"
	"group-planner/internal/repository"
)

// TaskStore persists canonical tasks and linked copies.
type TaskStore interface {
	Create(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, taskID string) (*model.Task, error)
	FindLinked(ctx context.Context, canonicalID, userID string) (*model.Task, error)
	Save(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, taskID string) error
	ListPendingApprovals(ctx context.Context, groupID string) ([]model.Task, error)
}

// GroupStore persists groups. GetGroup hides groups userID is not part of.
type GroupStore interface {
	GetGroup(ctx context.Context, userID, groupID string) (*model.Group, error)
	Save(ctx context.Context, group *model.Group) error
	ListWithChat(ctx context.Context) ([]model.Group, error)
}

// UserStore persists users.
type UserStore interface {
	FindByID(ctx context.Context, userID string) (*model.User, error)
	FindByIDs(ctx context.Context, userIDs []string) ([]*model.User, error)
	Save(ctx context.Context, user *model.User) error
}

// MessageStore persists group chat messages.
type MessageStore interface {
	Create(ctx context.Context, msg *model.ChatMessage) error
}

// lookupErr turns a missing record into a NotFound error with key.
func lookupErr(err error, key string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.Wrap(apperr.CodeNotFound, key, err)
	}
	return err
}

// saveErr turns a lost optimistic save into a Conflict error with key.
func saveErr(err error, key string) error {
	if errors.Is(err, repository.ErrConflict) {
		return apperr.Wrap(apperr.CodeConflict, key, err)
	}
	return err
}
