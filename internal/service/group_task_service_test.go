package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"group-planner/internal/apperr"
	"group-planner/internal/model"
)

func TestAssignTaskCreatesLinkedCopy(t *testing.T) {
	e := newTestEnv(t)
	canonical := e.newGroupTask(t, "Wash dishes", true)

	linked, err := e.svc.AssignTask(e.ctx, e.manager.ID, canonical.ID, e.member.ID)
	require.NoError(t, err)

	assert.True(t, linked.IsLinked())
	assert.Equal(t, e.member.ID, linked.UserID)
	assert.Equal(t, canonical.ID, linked.Group.TaskID)
	assert.Equal(t, "Wash dishes", linked.Text)
	assert.True(t, linked.Group.ApprovalRequired)

	stored, err := e.tasks.FindByID(e.ctx, canonical.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{e.member.ID}, stored.Group.AssignedUsers)
	assert.Empty(t, e.publisher.messages(), "only a self-claim is announced")

	again, err := e.svc.AssignTask(e.ctx, e.leader.ID, canonical.ID, e.member.ID)
	require.NoError(t, err)
	assert.Equal(t, linked.ID, again.ID)
	stored, err = e.tasks.FindByID(e.ctx, canonical.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{e.member.ID}, stored.Group.AssignedUsers)
}

func TestAssignTaskSelfClaimPostsChat(t *testing.T) {
	e := newTestEnv(t)
	canonical := e.newGroupTask(t, "Помыть посуду", false)

	_, err := e.svc.AssignTask(e.ctx, e.member.ID, canonical.ID, e.member.ID)
	require.NoError(t, err)

	var stored []model.ChatMessage
	require.NoError(t, e.db.Where("group_id = ?", e.group.ID).Find(&stored).Error)
	require.Len(t, stored, 1)
	assert.Equal(t, model.ChatInfoClaimTask, stored[0].InfoType)
	assert.Equal(t, e.member.Name, stored[0].InfoUser)
	assert.Equal(t, "Анна берёт задачу «Помыть посуду».", stored[0].Text)

	sent := e.publisher.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, e.group.TelegramChatID, sent[0].chatID)
	assert.Equal(t, stored[0].Text, sent[0].text)
}

func TestAssignTaskRequiresStanding(t *testing.T) {
	e := newTestEnv(t)
	canonical := e.newGroupTask(t, "Wash dishes", false)

	_, err := e.svc.AssignTask(e.ctx, e.member.ID, canonical.ID, e.manager.ID)
	assert.ErrorIs(t, err, apperr.NotAuthorized("onlyGroupLeaderCanEditTasks"))

	_, err = e.svc.AssignTask(e.ctx, e.leader.ID, "missing", e.member.ID)
	assert.ErrorIs(t, err, apperr.NotFound("taskNotFound"))

	_, err = e.svc.AssignTask(e.ctx, e.leader.ID, canonical.ID, "missing")
	assert.ErrorIs(t, err, apperr.NotFound("userNotFound"))
}

func TestAssignTaskRepairsMissingOrderEntry(t *testing.T) {
	e := newTestEnv(t)
	task := &model.Task{Type: model.TaskTypeHabit, Text: "Stretch", Group: model.GroupLink{ID: e.group.ID}}
	require.NoError(t, e.tasks.Create(e.ctx, task))

	_, err := e.svc.AssignTask(e.ctx, e.leader.ID, task.ID, e.member.ID)
	require.NoError(t, err)

	group, err := e.groups.GetGroup(e.ctx, e.leader.ID, e.group.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskOrder{task.ID}, group.Order(model.TaskTypeHabit))
}

func TestUnassignNonGroupTaskIsNotAuthorized(t *testing.T) {
	e := newTestEnv(t)
	personal := &model.Task{UserID: e.member.ID, Type: model.TaskTypeTodo, Text: "Read"}
	require.NoError(t, e.tasks.Create(e.ctx, personal))

	err := e.svc.UnassignTask(e.ctx, e.leader.ID, personal.ID, e.member.ID)
	assert.ErrorIs(t, err, apperr.NotAuthorized("onlyGroupTasksCanBeAssigned"))

	_, err = e.svc.AssignTask(e.ctx, e.leader.ID, personal.ID, e.member.ID)
	assert.ErrorIs(t, err, apperr.NotAuthorized("onlyGroupTasksCanBeAssigned"))
}

func TestUnassignTaskRemovesCopy(t *testing.T) {
	e := newTestEnv(t)
	canonical := e.newGroupTask(t, "Wash dishes", false)
	linked, err := e.svc.AssignTask(e.ctx, e.leader.ID, canonical.ID, e.member.ID)
	require.NoError(t, err)

	require.NoError(t, e.svc.UnassignTask(e.ctx, e.member.ID, linked.ID, e.member.ID))

	_, err = e.tasks.FindLinked(e.ctx, canonical.ID, e.member.ID)
	assert.Error(t, err)
	stored, err := e.tasks.FindByID(e.ctx, canonical.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Group.AssignedUsers)
}

func TestUnassignRequestedTaskClearsPendingApprovals(t *testing.T) {
	e := newTestEnv(t)
	canonical, linked := e.requestedTask(t, "Wash dishes", model.DirectionUp)
	other, _ := e.requestedTask(t, "Take out trash", model.DirectionUp)

	require.NoError(t, e.svc.UnassignTask(e.ctx, e.leader.ID, canonical.ID, e.member.ID))

	for _, holder := range []*model.User{e.leader, e.manager} {
		got := e.reload(t, holder)
		require.Len(t, got.Notifications, 1, holder.Name)
		assert.NotEqual(t, linked.ID, got.Notifications[0].Data.TaskID, holder.Name)
	}

	pending, err := e.svc.ListPendingApprovals(e.ctx, e.leader.ID, e.group.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, other.ID, pending[0].GroupTaskID)
}

func TestRequestApprovalNotifiesLeadership(t *testing.T) {
	e := newTestEnv(t)
	canonical, linked := e.requestedTask(t, "Wash dishes", model.DirectionDown)

	assert.True(t, linked.Group.Approval.Requested)
	assert.Equal(t, testNow, *linked.Group.Approval.RequestedDate)

	for _, holder := range []*model.User{e.leader, e.manager} {
		got := e.reload(t, holder)
		require.Len(t, got.Notifications, 1, holder.Name)
		n := got.Notifications[0]
		assert.Equal(t, model.NotificationGroupTaskApproval, n.Type)
		assert.Equal(t, linked.ID, n.Data.TaskID)
		assert.Equal(t, e.group.ID, n.Data.GroupID)
		assert.Equal(t, model.DirectionDown, n.Data.Direction)
		assert.Equal(t, `Анна requests approval for "Wash dishes".`, n.Data.Message)
	}

	_, err := e.svc.RequestApproval(e.ctx, e.member.ID, canonical.ID, model.DirectionUp)
	assert.ErrorIs(t, err, apperr.InvalidState("taskApprovalAlreadyRequested"))
}

func TestRequestApprovalPreconditions(t *testing.T) {
	e := newTestEnv(t)
	plain := e.newGroupTask(t, "Water plants", false)
	linked, err := e.svc.AssignTask(e.ctx, e.leader.ID, plain.ID, e.member.ID)
	require.NoError(t, err)

	_, err = e.svc.RequestApproval(e.ctx, e.member.ID, linked.ID, model.DirectionUp)
	assert.ErrorIs(t, err, apperr.InvalidState("approvalNotRequired"))

	_, err = e.svc.RequestApproval(e.ctx, e.member.ID, linked.ID, "sideways")
	assert.ErrorIs(t, err, apperr.Validation("invalidDirection"))

	_, err = e.svc.RequestApproval(e.ctx, e.manager.ID, linked.ID, model.DirectionUp)
	assert.ErrorIs(t, err, apperr.NotFound("taskNotFound"))
}

func TestApproveTaskScenario(t *testing.T) {
	e := newTestEnv(t)
	canonical, linked := e.requestedTask(t, "Wash dishes", model.DirectionDown)

	approved, err := e.svc.ApproveTask(e.ctx, e.leader.ID, canonical.ID, e.member.ID)
	require.NoError(t, err)

	assert.Equal(t, linked.ID, approved.ID)
	assert.True(t, approved.Group.Approval.Approved)
	assert.Equal(t, e.leader.ID, approved.Group.Approval.ApprovingUser)
	assert.Equal(t, testNow, *approved.Group.Approval.DateApproved)

	stored, err := e.tasks.FindByID(e.ctx, linked.ID)
	require.NoError(t, err)
	assert.True(t, stored.Group.Approval.Approved)

	member := e.reload(t, e.member)
	require.Equal(t, []model.NotificationKind{model.NotificationGroupTaskApproved, model.NotificationScoredTask}, kinds(member.Notifications))
	assert.Equal(t, "Твоя задача «Wash dishes» одобрена.", member.Notifications[0].Data.Message)
	scored := member.Notifications[1].Data
	assert.Equal(t, model.DirectionDown, scored.Direction)
	require.NotNil(t, scored.ScoreTask)
	assert.Equal(t, linked.ID, scored.ScoreTask.ID)

	assert.Empty(t, e.reload(t, e.manager).Notifications)
	assert.Empty(t, e.reload(t, e.leader).Notifications)
}

func TestApproveTaskOnlyOnce(t *testing.T) {
	e := newTestEnv(t)
	canonical, _ := e.requestedTask(t, "Wash dishes", model.DirectionUp)

	_, err := e.svc.ApproveTask(e.ctx, e.manager.ID, canonical.ID, e.member.ID)
	require.NoError(t, err)

	_, err = e.svc.ApproveTask(e.ctx, e.leader.ID, canonical.ID, e.member.ID)
	assert.ErrorIs(t, err, apperr.InvalidState("canOnlyApproveTaskOnce"))
	assert.Equal(t, apperr.CodeInvalidState, apperr.CodeOf(err))

	_, err = e.svc.RequestNeedsWork(e.ctx, e.leader.ID, canonical.ID, e.member.ID)
	assert.ErrorIs(t, err, apperr.InvalidState("canOnlyApproveTaskOnce"))

	stored, err := e.tasks.FindLinked(e.ctx, canonical.ID, e.member.ID)
	require.NoError(t, err)
	assert.True(t, stored.Group.Approval.Approved)
	assert.Equal(t, e.manager.ID, stored.Group.Approval.ApprovingUser)
	require.NotNil(t, stored.Group.Approval.DateApproved)
	assert.Equal(t, testNow, stored.Group.Approval.DateApproved.UTC())

	member := e.reload(t, e.member)
	assert.Len(t, member.Notifications, 2)
}

func TestApproveTaskByLinkedIDDefaultsAssignee(t *testing.T) {
	e := newTestEnv(t)
	_, linked := e.requestedTask(t, "Wash dishes", model.DirectionUp)

	approved, err := e.svc.ApproveTask(e.ctx, e.leader.ID, linked.ID, "")
	require.NoError(t, err)
	assert.True(t, approved.Group.Approval.Approved)
}

func TestApproveTaskRequiresLeadership(t *testing.T) {
	e := newTestEnv(t)
	canonical, _ := e.requestedTask(t, "Wash dishes", model.DirectionUp)

	_, err := e.svc.ApproveTask(e.ctx, e.member.ID, canonical.ID, e.member.ID)
	assert.ErrorIs(t, err, apperr.NotAuthorized("onlyGroupLeaderCanEditTasks"))

	outsider := e.newUser(t, "Olga", "olga", "en")
	_, err = e.svc.ApproveTask(e.ctx, outsider.ID, canonical.ID, e.member.ID)
	assert.ErrorIs(t, err, apperr.NotFound("groupNotFound"))

	_, err = e.svc.ApproveTask(e.ctx, e.leader.ID, canonical.ID, e.manager.ID)
	assert.ErrorIs(t, err, apperr.NotFound("taskNotFound"))
}

func TestApproveTaskLeavesOtherNotifications(t *testing.T) {
	e := newTestEnv(t)
	first, _ := e.requestedTask(t, "Wash dishes", model.DirectionUp)
	_, second := e.requestedTask(t, "Take out trash", model.DirectionUp)

	_, err := e.svc.ApproveTask(e.ctx, e.leader.ID, first.ID, e.member.ID)
	require.NoError(t, err)

	manager := e.reload(t, e.manager)
	require.Len(t, manager.Notifications, 1)
	assert.Equal(t, second.ID, manager.Notifications[0].Data.TaskID)
}

func TestRequestNeedsWorkScenario(t *testing.T) {
	e := newTestEnv(t)
	canonical, linked := e.requestedTask(t, "Wash dishes", model.DirectionUp)

	got, err := e.svc.RequestNeedsWork(e.ctx, e.leader.ID, canonical.ID, e.member.ID)
	require.NoError(t, err)

	assert.False(t, got.Group.Approval.Requested)
	assert.Nil(t, got.Group.Approval.RequestedDate)
	assert.False(t, got.Group.Approval.Approved)

	member := e.reload(t, e.member)
	require.Equal(t, []model.NotificationKind{model.NotificationGroupTaskNeedsWork}, kinds(member.Notifications))
	data := member.Notifications[0].Data
	assert.Equal(t, "Lena вернул задачу «Wash dishes» на доработку.", data.Message)
	assert.Equal(t, &model.Ref{ID: linked.ID, Name: "Wash dishes"}, data.Task)
	assert.Equal(t, &model.Ref{ID: e.group.ID, Name: "Household"}, data.Group)
	assert.Equal(t, &model.Ref{ID: e.leader.ID, Name: "Lena"}, data.Manager)

	assert.Empty(t, e.reload(t, e.manager).Notifications)
	assert.Empty(t, e.reload(t, e.leader).Notifications)

	_, err = e.svc.RequestNeedsWork(e.ctx, e.leader.ID, canonical.ID, e.member.ID)
	assert.ErrorIs(t, err, apperr.InvalidState("approvalWasNotRequested"))

	again, err := e.svc.RequestApproval(e.ctx, e.member.ID, linked.ID, model.DirectionUp)
	require.NoError(t, err)
	assert.True(t, again.Group.Approval.Requested)
}

func TestMoveGroupTask(t *testing.T) {
	e := newTestEnv(t)
	a := e.newGroupTask(t, "a", false)
	b := e.newGroupTask(t, "b", false)
	c := e.newGroupTask(t, "c", false)

	order, err := e.svc.MoveGroupTask(e.ctx, e.leader.ID, c.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, model.TaskOrder{a.ID, b.ID, c.ID}, order)

	order, err = e.svc.MoveGroupTask(e.ctx, e.leader.ID, a.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, model.TaskOrder{b.ID, c.ID, a.ID}, order)

	group, err := e.groups.GetGroup(e.ctx, e.leader.ID, e.group.ID)
	require.NoError(t, err)
	assert.Equal(t, order, group.Order(model.TaskTypeTodo))
}

func TestMoveGroupTaskRejections(t *testing.T) {
	e := newTestEnv(t)
	task := e.newGroupTask(t, "a", false)

	_, err := e.svc.MoveGroupTask(e.ctx, e.manager.ID, task.ID, 0)
	assert.ErrorIs(t, err, apperr.NotAuthorized("onlyGroupLeaderCanReorderTasks"))

	_, err = e.svc.MoveGroupTask(e.ctx, e.leader.ID, task.ID, -2)
	assert.ErrorIs(t, err, apperr.Validation("invalidPosition"))

	linked, err := e.svc.AssignTask(e.ctx, e.leader.ID, task.ID, e.member.ID)
	require.NoError(t, err)
	_, err = e.svc.MoveGroupTask(e.ctx, e.member.ID, linked.ID, 0)
	assert.ErrorIs(t, err, apperr.NotAuthorized("onlyGroupTasksCanBeMoved"))

	done := &model.Task{Type: model.TaskTypeTodo, Completed: true, Group: model.GroupLink{ID: e.group.ID}}
	require.NoError(t, e.tasks.Create(e.ctx, done))
	_, err = e.svc.MoveGroupTask(e.ctx, e.leader.ID, done.ID, 0)
	assert.ErrorIs(t, err, apperr.InvalidState("cantMoveCompletedTodo"))

	odd := &model.Task{Type: "quest", Group: model.GroupLink{ID: e.group.ID}}
	require.NoError(t, e.tasks.Create(e.ctx, odd))
	_, err = e.svc.MoveGroupTask(e.ctx, e.leader.ID, odd.ID, 0)
	assert.ErrorIs(t, err, apperr.Validation("unknownTaskType"))
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"type": "quest"}, appErr.Metadata)
}

func TestListPendingApprovals(t *testing.T) {
	e := newTestEnv(t)
	canonical, linked := e.requestedTask(t, "Wash dishes", model.DirectionUp)
	e.newGroupTask(t, "Not requested", true)

	pending, err := e.svc.ListPendingApprovals(e.ctx, e.manager.ID, e.group.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, model.PendingApproval{
		TaskID:        linked.ID,
		GroupTaskID:   canonical.ID,
		GroupID:       e.group.ID,
		Text:          "Wash dishes",
		UserID:        e.member.ID,
		UserName:      e.member.Name,
		RequestedDate: pending[0].RequestedDate,
	}, pending[0])

	_, err = e.svc.ListPendingApprovals(e.ctx, e.member.ID, e.group.ID)
	assert.ErrorIs(t, err, apperr.NotAuthorized("onlyGroupLeaderCanEditTasks"))

	_, err = e.svc.ApproveTask(e.ctx, e.leader.ID, canonical.ID, e.member.ID)
	require.NoError(t, err)
	pending, err = e.svc.ListPendingApprovals(e.ctx, e.leader.ID, e.group.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestNotifications(t *testing.T) {
	e := newTestEnv(t)
	e.requestedTask(t, "Wash dishes", model.DirectionUp)

	got, err := e.svc.Notifications(e.ctx, e.leader.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.NotificationKind{model.NotificationGroupTaskApproval}, kinds(got))

	_, err = e.svc.Notifications(e.ctx, "missing")
	assert.ErrorIs(t, err, apperr.NotFound("userNotFound"))
}
