package model

import "time"

// Group owns canonical tasks and their ordering.
type Group struct {
	ID             string `gorm:"primaryKey"`
	Name           string
	LeaderID       string                       `gorm:"index"`
	Managers       map[string]bool              `gorm:"serializer:json;type:text"`
	TasksOrder     map[OrderBucketKey]TaskOrder `gorm:"serializer:json;type:text"`
	TelegramChatID int64
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// GroupMember records that a user belongs to a group.
type GroupMember struct {
	GroupID   string `gorm:"primaryKey"`
	UserID    string `gorm:"primaryKey"`
	CreatedAt time.Time
}

// IsManager reports whether userID is listed as a manager.
func (g *Group) IsManager(userID string) bool {
	return g.Managers[userID]
}

// Order returns the ordering of tasks of the given type.
func (g *Group) Order(t TaskType) TaskOrder {
	key, ok := OrderBucket(t)
	if !ok {
		return nil
	}
	return g.TasksOrder[key]
}

// MoveTask repositions taskID inside the bucket for t and returns the
// resulting order. ok is false for an unknown task type.
func (g *Group) MoveTask(t TaskType, taskID string, to int) (order TaskOrder, ok bool) {
	key, ok := OrderBucket(t)
	if !ok {
		return nil, false
	}
	if g.TasksOrder == nil {
		g.TasksOrder = make(map[OrderBucketKey]TaskOrder)
	}
	order = g.TasksOrder[key]
	order.Move(taskID, to)
	g.TasksOrder[key] = order
	return order, true
}
