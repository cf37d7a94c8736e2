package model

import "time"

// TaskType decides which ordering bucket a task occupies.
type TaskType string

const (
	TaskTypeHabit  TaskType = "habit"
	TaskTypeDaily  TaskType = "daily"
	TaskTypeTodo   TaskType = "todo"
	TaskTypeReward TaskType = "reward"
)

// Valid reports whether t is one of the known task types.
func (t TaskType) Valid() bool {
	_, ok := OrderBucket(t)
	return ok
}

// Task is either a canonical group task or a per-user linked copy of one.
type Task struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"index"`
	Type      TaskType
	Text      string
	Notes     string
	Value     float64
	Priority  float64   `gorm:"default:1"`
	Completed bool      `gorm:"default:false"`
	Group     GroupLink `gorm:"embedded;embeddedPrefix:group_"`
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GroupLink ties a task to its owning group. On a linked copy TaskID points
// at the canonical task; on the canonical task it is empty.
type GroupLink struct {
	ID               string   `gorm:"index"`
	TaskID           string   `gorm:"index"`
	AssignedUsers    []string `gorm:"serializer:json;type:text"`
	ApprovalRequired bool
	Approval         ApprovalState `gorm:"embedded;embeddedPrefix:approval_"`
}

// ApprovalState is only meaningful on linked copies.
type ApprovalState struct {
	Requested     bool
	RequestedDate *time.Time
	Approved      bool
	DateApproved  *time.Time
	ApprovingUser string
}

// IsGroupTask reports whether the task belongs to a group at all.
func (t *Task) IsGroupTask() bool {
	return t.Group.ID != ""
}

// IsCanonical reports whether the task is the group-owned original.
func (t *Task) IsCanonical() bool {
	return t.Group.ID != "" && t.Group.TaskID == ""
}

// IsLinked reports whether the task is a per-user copy of a group task.
func (t *Task) IsLinked() bool {
	return t.Group.ID != "" && t.Group.TaskID != ""
}

// IsAssignedTo reports whether userID is recorded on the canonical task.
func (t *Task) IsAssignedTo(userID string) bool {
	for _, id := range t.Group.AssignedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// Snapshot captures the fields a client needs to score the task.
func (t *Task) Snapshot() *TaskSnapshot {
	return &TaskSnapshot{
		ID:    t.ID,
		Type:  t.Type,
		Text:  t.Text,
		Value: t.Value,
	}
}

// TaskSnapshot is embedded in SCORED_TASK notifications.
type TaskSnapshot struct {
	ID    string   `json:"id"`
	Type  TaskType `json:"type"`
	Text  string   `json:"text"`
	Value float64  `json:"value"`
}

// PendingApproval is the listing shape of a task awaiting approval.
type PendingApproval struct {
	TaskID        string
	GroupTaskID   string
	GroupID       string
	Text          string
	UserID        string
	UserName      string
	RequestedDate *time.Time
}
