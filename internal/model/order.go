package model

// OrderBucketKey names one of a group's per-type ordering arrays.
type OrderBucketKey string

const (
	BucketHabits  OrderBucketKey = "habits"
	BucketDailys  OrderBucketKey = "dailys"
	BucketTodos   OrderBucketKey = "todos"
	BucketRewards OrderBucketKey = "rewards"
)

// OrderBucket maps a task type to the ordering bucket that holds it.
func OrderBucket(t TaskType) (OrderBucketKey, bool) {
	switch t {
	case TaskTypeHabit:
		return BucketHabits, true
	case TaskTypeDaily:
		return BucketDailys, true
	case TaskTypeTodo:
		return BucketTodos, true
	case TaskTypeReward:
		return BucketRewards, true
	default:
		return "", false
	}
}

// TaskOrder is an ordered sequence of task ids.
type TaskOrder []string

// IndexOf returns the position of taskID or -1.
func (o TaskOrder) IndexOf(taskID string) int {
	for i, id := range o {
		if id == taskID {
			return i
		}
	}
	return -1
}

// Move removes taskID from its current position, if any, and inserts it at
// index to. A to of -1, or any index past the end, appends it.
func (o *TaskOrder) Move(taskID string, to int) {
	order := *o
	if i := order.IndexOf(taskID); i != -1 {
		order = append(order[:i], order[i+1:]...)
	}
	if to == -1 || to >= len(order) {
		*o = append(order, taskID)
		return
	}
	if to < 0 {
		to = 0
	}
	order = append(order, "")
	copy(order[to+1:], order[to:])
	order[to] = taskID
	*o = order
}
