package service

import (
	"time"

	"github.com/google/uuid"

	"group-planner/internal/model"
)

// NotificationLedger edits users' notification lists in memory. Callers
// persist the users it reports as changed.
type NotificationLedger struct {
	clock func() time.Time
}

func NewNotificationLedger(clock func() time.Time) *NotificationLedger {
	if clock == nil {
		clock = time.Now
	}
	return &NotificationLedger{clock: clock}
}

// Append adds a notification at the end of user's list.
func (l *NotificationLedger) Append(user *model.User, kind model.NotificationKind, data model.NotificationData) model.Notification {
	n := model.Notification{
		ID:        uuid.NewString(),
		Type:      kind,
		Data:      data,
		CreatedAt: l.clock().UTC(),
	}
	user.Notifications = append(user.Notifications, n)
	return n
}

// FindFirst returns the first notification of kind about taskID.
func (l *NotificationLedger) FindFirst(user *model.User, kind model.NotificationKind, taskID string) (*model.Notification, bool) {
	i := indexOfNotification(user, kind, taskID)
	if i == -1 {
		return nil, false
	}
	return &user.Notifications[i], true
}

// RemoveAll removes the first notification of kind about taskID from each
// user and returns the users whose list changed.
func (l *NotificationLedger) RemoveAll(users []*model.User, kind model.NotificationKind, taskID string) []*model.User {
	var changed []*model.User
	for _, user := range users {
		i := indexOfNotification(user, kind, taskID)
		if i == -1 {
			continue
		}
		kept := make([]model.Notification, 0, len(user.Notifications)-1)
		kept = append(kept, user.Notifications[:i]...)
		user.Notifications = append(kept, user.Notifications[i+1:]...)
		changed = append(changed, user)
	}
	return changed
}

// PendingDirection returns the direction recorded on the first pending
// approval notification for taskID across users, or up when none has one.
func (l *NotificationLedger) PendingDirection(users []*model.User, taskID string) model.Direction {
	for _, user := range users {
		n, ok := l.FindFirst(user, model.NotificationGroupTaskApproval, taskID)
		if ok && n.Data.Direction != "" {
			return n.Data.Direction
		}
	}
	return model.DirectionUp
}

func indexOfNotification(user *model.User, kind model.NotificationKind, taskID string) int {
	if user == nil {
		return -1
	}
	for i, n := range user.Notifications {
		if n.Type == kind && n.Data.TaskID == taskID {
			return i
		}
	}
	return -1
}
