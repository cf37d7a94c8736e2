package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"group-planner/internal/model"
)

func TestCanEditTasks(t *testing.T) {
	group := &model.Group{LeaderID: "leader", Managers: map[string]bool{"manager": true, "former": false}}
	user := func(id string) *model.User { return &model.User{ID: id} }

	tests := []struct {
		name   string
		group  *model.Group
		actor  *model.User
		target string
		want   bool
	}{
		{name: "leader", group: group, actor: user("leader"), want: true},
		{name: "manager", group: group, actor: user("manager"), want: true},
		{name: "manager for someone else", group: group, actor: user("manager"), target: "member", want: true},
		{name: "member claims", group: group, actor: user("member"), target: "member", want: true},
		{name: "member for someone else", group: group, actor: user("member"), target: "other", want: false},
		{name: "member without target", group: group, actor: user("member"), want: false},
		{name: "manager flag false", group: group, actor: user("former"), want: false},
		{name: "nil group", actor: user("leader"), want: false},
		{name: "nil actor", group: group, want: false},
		{name: "empty actor id with empty target", group: &model.Group{}, actor: user(""), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanEditTasks(tt.group, tt.actor, tt.target))
		})
	}
}

func TestCanReorderTasksIsLeaderOnly(t *testing.T) {
	group := &model.Group{LeaderID: "leader", Managers: map[string]bool{"manager": true}}

	assert.True(t, CanReorderTasks(group, &model.User{ID: "leader"}))
	assert.False(t, CanReorderTasks(group, &model.User{ID: "manager"}))
	assert.False(t, CanReorderTasks(group, &model.User{ID: "member"}))
	assert.False(t, CanReorderTasks(nil, &model.User{ID: "leader"}))
}
