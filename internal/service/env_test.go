package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"group-planner/internal/i18n"
	"group-planner/internal/model"
	"group-planner/internal/repository"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testClock() time.Time { return testNow }

type publishedMessage struct {
	chatID int64
	text   string
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []publishedMessage
	err  error
}

func (p *fakePublisher) PublishGroupMessage(_ context.Context, chatID int64, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, publishedMessage{chatID: chatID, text: text})
	return p.err
}

func (p *fakePublisher) messages() []publishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedMessage(nil), p.sent...)
}

// testEnv is a group with leader, manager and member A, backed by an
// in-memory database.
type testEnv struct {
	ctx       context.Context
	db        *gorm.DB
	tasks     *repository.TaskRepository
	groups    *repository.GroupRepository
	users     *repository.UserRepository
	messages  *repository.MessageRepository
	catalog   *i18n.Catalog
	publisher *fakePublisher

	ledger    *NotificationLedger
	linker    *AssignmentLinker
	approval  *ApprovalWorkflow
	svc       *GroupTaskService
	reminders *ReminderService

	leader  *model.User
	manager *model.User
	member  *model.User
	group   *model.Group
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := repository.NewDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	catalog, err := i18n.Load()
	require.NoError(t, err)

	e := &testEnv{
		ctx:       context.Background(),
		db:        db,
		tasks:     repository.NewTaskRepository(db),
		groups:    repository.NewGroupRepository(db),
		users:     repository.NewUserRepository(db),
		messages:  repository.NewMessageRepository(db),
		catalog:   catalog,
		publisher: &fakePublisher{},
	}
	e.ledger = NewNotificationLedger(testClock)
	chat := NewChatService(e.messages, e.publisher, testClock)
	locker := NewTaskLocker()
	updater := NewUserUpdater(e.users, locker)
	e.linker = NewAssignmentLinker(e.tasks, e.groups, NewTaskSyncer(e.tasks), chat, updater, e.ledger, locker, catalog)
	e.approval = NewApprovalWorkflow(e.tasks, e.groups, e.users, updater, e.ledger, locker, catalog, testClock)
	e.svc = NewGroupTaskService(e.tasks, e.groups, e.users, e.linker, e.approval)
	e.reminders = NewReminderService(e.tasks, e.groups, e.users, e.publisher, catalog, "en")

	e.leader = e.newUser(t, "Lena", "lena", "en")
	e.manager = e.newUser(t, "Max", "max", "en")
	e.member = e.newUser(t, "Анна", "", "ru")

	e.group = &model.Group{
		Name:           "Household",
		LeaderID:       e.leader.ID,
		Managers:       map[string]bool{e.manager.ID: true},
		TelegramChatID: -100,
	}
	require.NoError(t, e.groups.Create(e.ctx, e.group, e.manager.ID, e.member.ID))
	return e
}

func (e *testEnv) newUser(t *testing.T, name, username, language string) *model.User {
	t.Helper()
	user := &model.User{Name: name, Username: username, Language: language}
	require.NoError(t, e.users.Create(e.ctx, user))
	return user
}

// newGroupTask stores a canonical task and lists it in the group's order.
func (e *testEnv) newGroupTask(t *testing.T, text string, approvalRequired bool) *model.Task {
	t.Helper()
	task := &model.Task{
		Type:  model.TaskTypeTodo,
		Text:  text,
		Value: 1,
		Group: model.GroupLink{ID: e.group.ID, ApprovalRequired: approvalRequired},
	}
	require.NoError(t, e.tasks.Create(e.ctx, task))

	group, err := e.groups.GetGroup(e.ctx, e.leader.ID, e.group.ID)
	require.NoError(t, err)
	group.MoveTask(task.Type, task.ID, -1)
	require.NoError(t, e.groups.Save(e.ctx, group))
	e.group = group
	return task
}

// requestedTask assigns a new approval task to the member and requests
// approval on it with direction.
func (e *testEnv) requestedTask(t *testing.T, text string, direction model.Direction) (canonical, linked *model.Task) {
	t.Helper()
	canonical = e.newGroupTask(t, text, true)
	linked, err := e.svc.AssignTask(e.ctx, e.leader.ID, canonical.ID, e.member.ID)
	require.NoError(t, err)
	linked, err = e.svc.RequestApproval(e.ctx, e.member.ID, linked.ID, direction)
	require.NoError(t, err)
	return canonical, linked
}

func (e *testEnv) reload(t *testing.T, user *model.User) *model.User {
	t.Helper()
	got, err := e.users.FindByID(e.ctx, user.ID)
	require.NoError(t, err)
	return got
}

func kinds(notifications []model.Notification) []model.NotificationKind {
	out := make([]model.NotificationKind, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, n.Type)
	}
	return out
}
