package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"group-planner/internal/apperr"
	"group-planner/internal/i18n"
	"group-planner/internal/model"
)

// ApprovalWorkflow drives a linked task through
// unrequested -> requested -> approved, with needs-work sending a request
// back to unrequested. Approved is terminal.
//
// Each transition holds the per-task lock and re-reads the task after
// acquiring it. The task is saved first with a version check, so a writer
// in another process loses with a Conflict before any notification moves.
// Notification changes are then applied to freshly loaded users.
type ApprovalWorkflow struct {
	tasks      TaskStore
	groups     GroupStore
	users      UserStore
	updater    *UserUpdater
	ledger     *NotificationLedger
	locker     *TaskLocker
	translator i18n.Translator
	clock      func() time.Time
}

func NewApprovalWorkflow(tasks TaskStore, groups GroupStore, users UserStore, updater *UserUpdater, ledger *NotificationLedger, locker *TaskLocker, translator i18n.Translator, clock func() time.Time) *ApprovalWorkflow {
	if clock == nil {
		clock = time.Now
	}
	return &ApprovalWorkflow{
		tasks:      tasks,
		groups:     groups,
		users:      users,
		updater:    updater,
		ledger:     ledger,
		locker:     locker,
		translator: translator,
		clock:      clock,
	}
}

// RequestApproval marks actor's own linked task as waiting for approval and
// notifies the leader and managers.
func (w *ApprovalWorkflow) RequestApproval(ctx context.Context, actor *model.User, linkedTaskID string, direction model.Direction) (*model.Task, error) {
	if direction == "" {
		direction = model.DirectionUp
	}
	if !direction.Valid() {
		return nil, apperr.Validation("invalidDirection")
	}

	found, err := w.tasks.FindByID(ctx, linkedTaskID)
	if err != nil {
		return nil, lookupErr(err, "taskNotFound")
	}
	if !found.IsLinked() || found.UserID != actor.ID {
		return nil, apperr.NotFound("taskNotFound")
	}

	unlock, err := w.locker.Lock(ctx, linkedTaskKey(found.Group.TaskID, actor.ID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	task, err := w.tasks.FindByID(ctx, linkedTaskID)
	if err != nil {
		return nil, lookupErr(err, "taskNotFound")
	}
	approval := &task.Group.Approval
	switch {
	case !task.Group.ApprovalRequired:
		return nil, apperr.InvalidState("approvalNotRequired")
	case approval.Approved:
		return nil, apperr.InvalidState("canOnlyApproveTaskOnce")
	case approval.Requested:
		return nil, apperr.InvalidState("taskApprovalAlreadyRequested")
	}

	group, err := w.groups.GetGroup(ctx, actor.ID, task.Group.ID)
	if err != nil {
		return nil, lookupErr(err, "groupNotFound")
	}

	now := w.clock().UTC()
	approval.Requested = true
	approval.RequestedDate = &now
	if err := w.tasks.Save(ctx, task); err != nil {
		return nil, saveErr(err, "taskWasModified")
	}

	err = w.updater.UpdateAll(ctx, leadershipIDs(group), func(manager *model.User) bool {
		if _, ok := w.ledger.FindFirst(manager, model.NotificationGroupTaskApproval, task.ID); ok {
			return false
		}
		w.ledger.Append(manager, model.NotificationGroupTaskApproval, model.NotificationData{
			TaskID:    task.ID,
			GroupID:   group.ID,
			Direction: direction,
			Message: w.translator.T(manager.Language, "userHasRequestedTaskApproval", map[string]string{
				"userName": actor.Name,
				"taskName": task.Text,
			}),
		})
		return true
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Approve approves assignee's copy of the canonical task. It clears the
// pending approval notification from the leader and managers and tells the
// assignee to score the task in the direction it was requested with.
func (w *ApprovalWorkflow) Approve(ctx context.Context, actor *model.User, canonicalTaskID string, assignee *model.User) (*model.Task, error) {
	unlock, err := w.locker.Lock(ctx, linkedTaskKey(canonicalTaskID, assignee.ID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	task, group, err := w.resolve(ctx, actor, canonicalTaskID, assignee)
	if err != nil {
		return nil, err
	}
	if task.Group.Approval.Approved {
		return nil, apperr.InvalidState("canOnlyApproveTaskOnce")
	}
	managers, err := w.managers(ctx, group)
	if err != nil {
		return nil, err
	}
	direction := w.ledger.PendingDirection(managers, task.ID)

	now := w.clock().UTC()
	task.Group.Approval.Approved = true
	task.Group.Approval.DateApproved = &now
	task.Group.Approval.ApprovingUser = actor.ID
	if err := w.tasks.Save(ctx, task); err != nil {
		return nil, saveErr(err, "taskWasModified")
	}

	err = w.notify(ctx, group, task, assignee.ID, func(user *model.User) bool {
		message := w.translator.T(user.Language, "yourTaskHasBeenApproved", map[string]string{
			"taskText": task.Text,
		})
		w.ledger.Append(user, model.NotificationGroupTaskApproved, model.NotificationData{
			TaskID:  task.ID,
			GroupID: group.ID,
			Message: message,
		})
		w.ledger.Append(user, model.NotificationScoredTask, model.NotificationData{
			TaskID:    task.ID,
			Message:   message,
			ScoreTask: task.Snapshot(),
			Direction: direction,
		})
		return true
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// RequestNeedsWork sends a pending request back to the assignee so they can
// resubmit it.
func (w *ApprovalWorkflow) RequestNeedsWork(ctx context.Context, actor *model.User, canonicalTaskID string, assignee *model.User) (*model.Task, error) {
	unlock, err := w.locker.Lock(ctx, linkedTaskKey(canonicalTaskID, assignee.ID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	task, group, err := w.resolve(ctx, actor, canonicalTaskID, assignee)
	if err != nil {
		return nil, err
	}
	switch {
	case task.Group.Approval.Approved:
		return nil, apperr.InvalidState("canOnlyApproveTaskOnce")
	case !task.Group.Approval.Requested:
		return nil, apperr.InvalidState("approvalWasNotRequested")
	}

	task.Group.Approval.Requested = false
	task.Group.Approval.RequestedDate = nil
	if err := w.tasks.Save(ctx, task); err != nil {
		return nil, saveErr(err, "taskWasModified")
	}

	err = w.notify(ctx, group, task, assignee.ID, func(user *model.User) bool {
		w.ledger.Append(user, model.NotificationGroupTaskNeedsWork, model.NotificationData{
			TaskID: task.ID,
			Message: w.translator.T(user.Language, "taskNeedsWork", map[string]string{
				"taskText":    task.Text,
				"managerName": actor.Name,
			}),
			Task:    &model.Ref{ID: task.ID, Name: task.Text},
			Group:   &model.Ref{ID: group.ID, Name: group.Name},
			Manager: &model.Ref{ID: actor.ID, Name: actor.Name},
		})
		return true
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// ListPendingApprovals returns the group's linked tasks waiting for
// approval. Only the leader and managers may list them.
func (w *ApprovalWorkflow) ListPendingApprovals(ctx context.Context, actor *model.User, group *model.Group) ([]model.PendingApproval, error) {
	if !CanEditTasks(group, actor, "") {
		return nil, apperr.NotAuthorized("onlyGroupLeaderCanEditTasks")
	}
	return loadPendingApprovals(ctx, w.tasks, w.users, group.ID)
}

// resolve loads assignee's copy of the canonical task and its group, and
// checks that actor leads or manages the group.
func (w *ApprovalWorkflow) resolve(ctx context.Context, actor *model.User, canonicalTaskID string, assignee *model.User) (*model.Task, *model.Group, error) {
	task, err := w.tasks.FindLinked(ctx, canonicalTaskID, assignee.ID)
	if err != nil {
		return nil, nil, lookupErr(err, "taskNotFound")
	}
	group, err := w.groups.GetGroup(ctx, actor.ID, task.Group.ID)
	if err != nil {
		return nil, nil, lookupErr(err, "groupNotFound")
	}
	if !CanEditTasks(group, actor, "") {
		return nil, nil, apperr.NotAuthorized("onlyGroupLeaderCanEditTasks")
	}
	return task, group, nil
}

// managers loads the group's managers in id order followed by the leader.
func (w *ApprovalWorkflow) managers(ctx context.Context, group *model.Group) ([]*model.User, error) {
	ids := leadershipIDs(group)
	found, err := w.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load managers: %w", err)
	}
	byID := make(map[string]*model.User, len(found))
	for _, user := range found {
		byID[user.ID] = user
	}
	managers := make([]*model.User, 0, len(ids))
	for _, id := range ids {
		if user, ok := byID[id]; ok {
			managers = append(managers, user)
		}
	}
	return managers, nil
}

// notify clears the task's pending approval from the group's leadership
// and applies deliver to the assignee. Both run on freshly loaded users.
func (w *ApprovalWorkflow) notify(ctx context.Context, group *model.Group, task *model.Task, assigneeID string, deliver UserChange) error {
	var g errgroup.Group
	g.Go(func() error {
		return w.updater.UpdateAll(ctx, leadershipIDs(group), clearPendingApproval(w.ledger, task.ID))
	})
	g.Go(func() error {
		if err := w.updater.Update(ctx, assigneeID, deliver); err != nil {
			log.Printf("[warn] partial notification update after task %s: assignee %s: %v", task.ID, assigneeID, err)
			return err
		}
		return nil
	})
	return g.Wait()
}

// clearPendingApproval removes the first pending approval for taskID.
func clearPendingApproval(ledger *NotificationLedger, taskID string) UserChange {
	return func(user *model.User) bool {
		return len(ledger.RemoveAll([]*model.User{user}, model.NotificationGroupTaskApproval, taskID)) > 0
	}
}

// loadPendingApprovals lists pending tasks of a group with assignee names.
func loadPendingApprovals(ctx context.Context, tasks TaskStore, users UserStore, groupID string) ([]model.PendingApproval, error) {
	pending, err := tasks.ListPendingApprovals(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(pending))
	for _, task := range pending {
		ids = append(ids, task.UserID)
	}
	assignees, err := users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load assignees: %w", err)
	}
	names := make(map[string]string, len(assignees))
	for _, user := range assignees {
		names[user.ID] = user.Name
	}

	out := make([]model.PendingApproval, 0, len(pending))
	for _, task := range pending {
		out = append(out, model.PendingApproval{
			TaskID:        task.ID,
			GroupTaskID:   task.Group.TaskID,
			GroupID:       task.Group.ID,
			Text:          task.Text,
			UserID:        task.UserID,
			UserName:      names[task.UserID],
			RequestedDate: task.Group.Approval.RequestedDate,
		})
	}
	return out, nil
}
