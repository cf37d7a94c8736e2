package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"golang.org/x/sync/errgroup"

	"group-planner/internal/model"
	"group-planner/internal/repository"
)

const maxUserSaveAttempts = 8

// UserChange edits a freshly loaded user and reports whether it changed
// anything.
type UserChange func(user *model.User) bool

// UserUpdater applies notification changes to stored users. Changes to one
// user are serialized in this process, and a save lost to another process
// is retried on a fresh copy.
type UserUpdater struct {
	users  UserStore
	locker *TaskLocker
}

func NewUserUpdater(users UserStore, locker *TaskLocker) *UserUpdater {
	return &UserUpdater{users: users, locker: locker}
}

// Update reloads userID, applies change and saves the result.
func (u *UserUpdater) Update(ctx context.Context, userID string, change UserChange) error {
	unlock, err := u.locker.Lock(ctx, userKey(userID))
	if err != nil {
		return err
	}
	defer unlock()

	for attempt := 1; ; attempt++ {
		user, err := u.users.FindByID(ctx, userID)
		if err != nil {
			return lookupErr(err, "userNotFound")
		}
		if !change(user) {
			return nil
		}
		err = u.users.Save(ctx, user)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrConflict) || attempt == maxUserSaveAttempts {
			return saveErr(fmt.Errorf("update user %s: %w", userID, err), "userWasModified")
		}
	}
}

// UpdateAll applies change to every user in userIDs concurrently. Every
// update is attempted; failures are logged and the first one is returned.
func (u *UserUpdater) UpdateAll(ctx context.Context, userIDs []string, change UserChange) error {
	var g errgroup.Group
	for _, id := range userIDs {
		id := id
		g.Go(func() error {
			if err := u.Update(ctx, id, change); err != nil {
				log.Printf("[warn] partial notification update for user %s: %v", id, err)
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// leadershipIDs lists the group's managers in id order followed by the
// leader.
func leadershipIDs(group *model.Group) []string {
	ids := make([]string, 0, len(group.Managers)+1)
	for id, ok := range group.Managers {
		if ok && id != group.LeaderID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if group.LeaderID != "" {
		ids = append(ids, group.LeaderID)
	}
	return ids
}

func userKey(userID string) string {
	return "user:" + userID
}
