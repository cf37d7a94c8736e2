package model

import "time"

// NotificationKind identifies what a notification is about.
type NotificationKind string

const (
	NotificationGroupTaskApproval  NotificationKind = "GROUP_TASK_APPROVAL"
	NotificationGroupTaskApproved  NotificationKind = "GROUP_TASK_APPROVED"
	NotificationScoredTask         NotificationKind = "SCORED_TASK"
	NotificationGroupTaskNeedsWork NotificationKind = "GROUP_TASK_NEEDS_WORK"
)

// Direction is the score direction a pending approval was queued with.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Valid reports whether d is up or down.
func (d Direction) Valid() bool {
	return d == DirectionUp || d == DirectionDown
}

// Notification is one entry in a user's notification list.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationKind `json:"type"`
	Data      NotificationData `json:"data"`
	CreatedAt time.Time        `json:"createdAt"`
}

// NotificationData carries the kind-specific payload.
type NotificationData struct {
	TaskID    string        `json:"taskId,omitempty"`
	GroupID   string        `json:"groupId,omitempty"`
	Message   string        `json:"message,omitempty"`
	Direction Direction     `json:"direction,omitempty"`
	ScoreTask *TaskSnapshot `json:"scoreTask,omitempty"`
	Task      *Ref          `json:"task,omitempty"`
	Group     *Ref          `json:"group,omitempty"`
	Manager   *Ref          `json:"manager,omitempty"`
}

// Ref is an id/name pair shown to the recipient.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
