package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskOrderMove(t *testing.T) {
	tests := []struct {
		name  string
		order TaskOrder
		id    string
		to    int
		want  TaskOrder
	}{
		{name: "last to end stays", order: TaskOrder{"a", "b", "c"}, id: "c", to: -1, want: TaskOrder{"a", "b", "c"}},
		{name: "first to last index", order: TaskOrder{"a", "b", "c"}, id: "a", to: 2, want: TaskOrder{"b", "c", "a"}},
		{name: "last to front", order: TaskOrder{"a", "b", "c"}, id: "c", to: 0, want: TaskOrder{"c", "a", "b"}},
		{name: "middle", order: TaskOrder{"a", "b", "c", "d"}, id: "d", to: 1, want: TaskOrder{"a", "d", "b", "c"}},
		{name: "past the end appends", order: TaskOrder{"a", "b"}, id: "a", to: 10, want: TaskOrder{"b", "a"}},
		{name: "absent id is inserted", order: TaskOrder{"a", "b"}, id: "x", to: 1, want: TaskOrder{"a", "x", "b"}},
		{name: "absent id appended", order: TaskOrder{"a"}, id: "x", to: -1, want: TaskOrder{"a", "x"}},
		{name: "empty order", order: nil, id: "x", to: 0, want: TaskOrder{"x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := append(TaskOrder(nil), tt.order...)
			order.Move(tt.id, tt.to)
			assert.Equal(t, tt.want, order)
		})
	}
}

func TestOrderBucket(t *testing.T) {
	cases := map[TaskType]OrderBucketKey{
		TaskTypeHabit:  BucketHabits,
		TaskTypeDaily:  BucketDailys,
		TaskTypeTodo:   BucketTodos,
		TaskTypeReward: BucketRewards,
	}
	for taskType, want := range cases {
		got, ok := OrderBucket(taskType)
		assert.True(t, ok)
		assert.Equal(t, want, got)
		assert.True(t, taskType.Valid())
	}

	_, ok := OrderBucket("quest")
	assert.False(t, ok)
	assert.False(t, TaskType("quest").Valid())
}

func TestGroupMoveTaskStoresOrder(t *testing.T) {
	var group Group

	order, ok := group.MoveTask(TaskTypeDaily, "a", -1)
	assert.True(t, ok)
	assert.Equal(t, TaskOrder{"a"}, order)
	group.MoveTask(TaskTypeDaily, "b", 0)
	assert.Equal(t, TaskOrder{"b", "a"}, group.Order(TaskTypeDaily))
	assert.Empty(t, group.Order(TaskTypeTodo))

	_, ok = group.MoveTask("quest", "a", 0)
	assert.False(t, ok)
}
