package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"group-planner/internal/apperr"
	"group-planner/internal/i18n"
	"group-planner/internal/model"
)

// AssignmentLinker links canonical group tasks to members.
type AssignmentLinker struct {
	tasks      TaskStore
	groups     GroupStore
	syncer     *TaskSyncer
	chat       *ChatService
	updater    *UserUpdater
	ledger     *NotificationLedger
	locker     *TaskLocker
	translator i18n.Translator
}

func NewAssignmentLinker(tasks TaskStore, groups GroupStore, syncer *TaskSyncer, chat *ChatService, updater *UserUpdater, ledger *NotificationLedger, locker *TaskLocker, translator i18n.Translator) *AssignmentLinker {
	return &AssignmentLinker{
		tasks:      tasks,
		groups:     groups,
		syncer:     syncer,
		chat:       chat,
		updater:    updater,
		ledger:     ledger,
		locker:     locker,
		translator: translator,
	}
}

// Assign gives assignee a synchronized copy of task and returns the copy.
// A member assigning a task to themself announces the claim in group chat.
func (l *AssignmentLinker) Assign(ctx context.Context, actor *model.User, group *model.Group, task *model.Task, assignee *model.User) (*model.Task, error) {
	if err := requireGroupTask(task); err != nil {
		return nil, err
	}
	if !CanEditTasks(group, actor, assignee.ID) {
		return nil, apperr.NotAuthorized("onlyGroupLeaderCanEditTasks")
	}
	canonical, err := l.canonical(ctx, task)
	if err != nil {
		return nil, err
	}

	var linked *model.Task
	g, gctx := errgroup.WithContext(ctx)
	if actor.ID == assignee.ID {
		text := l.translator.T(actor.Language, "userIsClaimingTask", map[string]string{
			"username": displayName(actor),
			"task":     canonical.Text,
		})
		msg := l.chat.SendChat(group, actor, text, ChatInfo{
			Type: model.ChatInfoClaimTask,
			User: actor.Name,
			Task: canonical.Text,
		})
		g.Go(func() error {
			return l.chat.Save(gctx, group, msg)
		})
	}
	g.Go(func() error {
		var err error
		linked, err = l.syncer.SyncTask(gctx, canonical, assignee)
		return err
	})
	if order := group.Order(canonical.Type); order.IndexOf(canonical.ID) == -1 {
		if _, ok := group.MoveTask(canonical.Type, canonical.ID, -1); ok {
			g.Go(func() error {
				return saveErr(l.groups.Save(gctx, group), "groupWasModified")
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return linked, nil
}

// Unassign removes assignee's copy of task. A copy still waiting for
// approval takes its pending notifications with it.
func (l *AssignmentLinker) Unassign(ctx context.Context, actor *model.User, group *model.Group, task *model.Task, assignee *model.User) error {
	if err := requireGroupTask(task); err != nil {
		return err
	}
	if !CanEditTasks(group, actor, assignee.ID) {
		return apperr.NotAuthorized("onlyGroupLeaderCanEditTasks")
	}
	canonical, err := l.canonical(ctx, task)
	if err != nil {
		return err
	}

	unlock, err := l.locker.Lock(ctx, linkedTaskKey(canonical.ID, assignee.ID))
	if err != nil {
		return err
	}
	defer unlock()

	removed, err := l.syncer.UnlinkTask(ctx, canonical, assignee)
	if err != nil {
		return err
	}
	if removed == nil || !removed.Group.Approval.Requested || removed.Group.Approval.Approved {
		return nil
	}
	return l.updater.UpdateAll(ctx, leadershipIDs(group), clearPendingApproval(l.ledger, removed.ID))
}

// canonical resolves a linked copy to the task it was copied from.
func (l *AssignmentLinker) canonical(ctx context.Context, task *model.Task) (*model.Task, error) {
	if task.IsCanonical() {
		return task, nil
	}
	canonical, err := l.tasks.FindByID(ctx, task.Group.TaskID)
	if err != nil {
		return nil, lookupErr(err, "taskNotFound")
	}
	return canonical, nil
}

func requireGroupTask(task *model.Task) error {
	if task == nil || !task.IsGroupTask() {
		return apperr.NotAuthorized("onlyGroupTasksCanBeAssigned")
	}
	return nil
}

func displayName(user *model.User) string {
	if user.Username != "" {
		return "@" + user.Username
	}
	return user.Name
}
