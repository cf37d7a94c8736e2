package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"group-planner/internal/apperr"
	"group-planner/internal/model"
)

// GroupTaskService resolves command arguments into entities and drives the
// assignment and approval components.
type GroupTaskService struct {
	tasks    TaskStore
	groups   GroupStore
	users    UserStore
	linker   *AssignmentLinker
	approval *ApprovalWorkflow
}

func NewGroupTaskService(tasks TaskStore, groups GroupStore, users UserStore, linker *AssignmentLinker, approval *ApprovalWorkflow) *GroupTaskService {
	return &GroupTaskService{
		tasks:    tasks,
		groups:   groups,
		users:    users,
		linker:   linker,
		approval: approval,
	}
}

// assignment holds the entities an assignment-style command acts on.
type assignment struct {
	actor    *model.User
	assignee *model.User
	task     *model.Task
	group    *model.Group
}

// AssignTask assigns taskID to assigneeID and returns the assignee's copy.
func (s *GroupTaskService) AssignTask(ctx context.Context, actorID, taskID, assigneeID string) (*model.Task, error) {
	a, err := s.resolve(ctx, actorID, taskID, assigneeID)
	if err != nil {
		return nil, err
	}
	return s.linker.Assign(ctx, a.actor, a.group, a.task, a.assignee)
}

// UnassignTask removes assigneeID's copy of taskID.
func (s *GroupTaskService) UnassignTask(ctx context.Context, actorID, taskID, assigneeID string) error {
	a, err := s.resolve(ctx, actorID, taskID, assigneeID)
	if err != nil {
		return err
	}
	return s.linker.Unassign(ctx, a.actor, a.group, a.task, a.assignee)
}

// ApproveTask approves assigneeID's copy of taskID.
func (s *GroupTaskService) ApproveTask(ctx context.Context, actorID, taskID, assigneeID string) (*model.Task, error) {
	actor, assignee, task, err := s.fetch(ctx, actorID, taskID, assigneeID)
	if err != nil {
		return nil, err
	}
	return s.approval.Approve(ctx, actor, canonicalID(task), assignee)
}

// RequestNeedsWork sends assigneeID's pending request for taskID back.
func (s *GroupTaskService) RequestNeedsWork(ctx context.Context, actorID, taskID, assigneeID string) (*model.Task, error) {
	actor, assignee, task, err := s.fetch(ctx, actorID, taskID, assigneeID)
	if err != nil {
		return nil, err
	}
	return s.approval.RequestNeedsWork(ctx, actor, canonicalID(task), assignee)
}

// RequestApproval asks the group's leadership to approve actorID's copy.
// taskID may name the copy or the canonical task.
func (s *GroupTaskService) RequestApproval(ctx context.Context, actorID, taskID string, direction model.Direction) (*model.Task, error) {
	actor, err := s.user(ctx, actorID)
	if err != nil {
		return nil, err
	}
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, lookupErr(err, "taskNotFound")
	}
	if task.IsCanonical() {
		task, err = s.tasks.FindLinked(ctx, task.ID, actor.ID)
		if err != nil {
			return nil, lookupErr(err, "taskNotFound")
		}
	}
	return s.approval.RequestApproval(ctx, actor, task.ID, direction)
}

// MoveGroupTask moves a canonical task to position to within its group's
// ordering and returns the new order. A to of -1 moves it to the end.
func (s *GroupTaskService) MoveGroupTask(ctx context.Context, actorID, taskID string, to int) (model.TaskOrder, error) {
	if to < -1 {
		return nil, apperr.Validation("invalidPosition")
	}

	var (
		actor *model.User
		task  *model.Task
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		actor, err = s.user(gctx, actorID)
		return err
	})
	g.Go(func() error {
		var err error
		task, err = s.tasks.FindByID(gctx, taskID)
		return lookupErr(err, "taskNotFound")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if task.Type == model.TaskTypeTodo && task.Completed {
		return nil, apperr.InvalidState("cantMoveCompletedTodo")
	}
	if !task.IsCanonical() {
		return nil, apperr.NotAuthorized("onlyGroupTasksCanBeMoved")
	}
	group, err := s.groups.GetGroup(ctx, actor.ID, task.Group.ID)
	if err != nil {
		return nil, lookupErr(err, "groupNotFound")
	}
	if !CanReorderTasks(group, actor) {
		return nil, apperr.NotAuthorized("onlyGroupLeaderCanReorderTasks")
	}

	order, ok := group.MoveTask(task.Type, task.ID, to)
	if !ok {
		return nil, apperr.Validation("unknownTaskType").WithMetadata(map[string]string{"type": string(task.Type)})
	}
	if err := s.groups.Save(ctx, group); err != nil {
		return nil, saveErr(err, "groupWasModified")
	}
	return order, nil
}

// ListPendingApprovals lists the group's tasks waiting for approval.
func (s *GroupTaskService) ListPendingApprovals(ctx context.Context, actorID, groupID string) ([]model.PendingApproval, error) {
	actor, err := s.user(ctx, actorID)
	if err != nil {
		return nil, err
	}
	group, err := s.groups.GetGroup(ctx, actor.ID, groupID)
	if err != nil {
		return nil, lookupErr(err, "groupNotFound")
	}
	return s.approval.ListPendingApprovals(ctx, actor, group)
}

// Notifications returns actorID's notifications, oldest first.
func (s *GroupTaskService) Notifications(ctx context.Context, actorID string) ([]model.Notification, error) {
	actor, err := s.user(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return actor.Notifications, nil
}

// resolve fetches actor, assignee and task, then the task's group as seen
// by the actor.
func (s *GroupTaskService) resolve(ctx context.Context, actorID, taskID, assigneeID string) (*assignment, error) {
	actor, assignee, task, err := s.fetch(ctx, actorID, taskID, assigneeID)
	if err != nil {
		return nil, err
	}
	a := &assignment{actor: actor, assignee: assignee, task: task}
	if !task.IsGroupTask() {
		// The linker rejects personal tasks; there is no group to load.
		a.group = &model.Group{}
		return a, nil
	}
	a.group, err = s.groups.GetGroup(ctx, actor.ID, task.Group.ID)
	if err != nil {
		return nil, lookupErr(err, "groupNotFound")
	}
	return a, nil
}

// fetch loads actor, assignee and task concurrently. When actor and
// assignee are the same user a single instance is returned for both. An
// empty assigneeID names the owner of a linked task.
func (s *GroupTaskService) fetch(ctx context.Context, actorID, taskID, assigneeID string) (actor, assignee *model.User, task *model.Task, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		actor, err = s.user(gctx, actorID)
		return err
	})
	if assigneeID != "" && assigneeID != actorID {
		g.Go(func() error {
			var err error
			assignee, err = s.user(gctx, assigneeID)
			return err
		})
	}
	g.Go(func() error {
		var err error
		task, err = s.tasks.FindByID(gctx, taskID)
		return lookupErr(err, "taskNotFound")
	})
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}

	if assigneeID == "" {
		if !task.IsLinked() {
			return nil, nil, nil, apperr.NotFound("userNotFound")
		}
		assigneeID = task.UserID
		if assigneeID != actorID {
			if assignee, err = s.user(ctx, assigneeID); err != nil {
				return nil, nil, nil, err
			}
		}
	}
	if assigneeID == actorID {
		assignee = actor
	}
	return actor, assignee, task, nil
}

func (s *GroupTaskService) user(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, lookupErr(err, "userNotFound")
	}
	return user, nil
}

// canonicalID returns the id of the canonical task behind task.
func canonicalID(task *model.Task) string {
	if task.IsLinked() {
		return task.Group.TaskID
	}
	return task.ID
}
