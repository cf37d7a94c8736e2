package service

import "group-planner/internal/model"

// CanEditTasks reports whether actor may change group's tasks. A non-empty
// targetUserID equal to the actor's id allows a member to claim a task.
func CanEditTasks(group *model.Group, actor *model.User, targetUserID string) bool {
	if group == nil || actor == nil || actor.ID == "" {
		return false
	}
	if group.LeaderID == actor.ID || group.IsManager(actor.ID) {
		return true
	}
	return targetUserID != "" && targetUserID == actor.ID
}

// CanReorderTasks reports whether actor may reorder group's tasks. Only the
// leader can.
func CanReorderTasks(group *model.Group, actor *model.User) bool {
	if group == nil || actor == nil || actor.ID == "" {
		return false
	}
	return group.LeaderID == actor.ID
}
