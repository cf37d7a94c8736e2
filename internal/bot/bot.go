package bot

import (
	"context"
	"fmt"
	"html"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"group-planner/internal/apperr"
	"group-planner/internal/i18n"
	"group-planner/internal/model"
)

const (
	cbApprovePrefix   = "approve:"
	cbNeedsWorkPrefix = "needswork:"
)

const (
	iconApprove      = "✅"
	iconNeedsWork    = "↩️"
	iconPending      = "⏳"
	iconNotification = "🔔"
	buttonTitleLen   = 24
)

// Sender is the part of the Telegram API the bot talks to.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// UserDirectory maps Telegram accounts to users.
type UserDirectory interface {
	UpsertFromTelegram(ctx context.Context, telegramID int64, name, username, language string) (*model.User, error)
}

// GroupTasks is the command surface the bot exposes.
type GroupTasks interface {
	AssignTask(ctx context.Context, actorID, taskID, assigneeID string) (*model.Task, error)
	UnassignTask(ctx context.Context, actorID, taskID, assigneeID string) error
	ApproveTask(ctx context.Context, actorID, taskID, assigneeID string) (*model.Task, error)
	RequestNeedsWork(ctx context.Context, actorID, taskID, assigneeID string) (*model.Task, error)
	RequestApproval(ctx context.Context, actorID, taskID string, direction model.Direction) (*model.Task, error)
	MoveGroupTask(ctx context.Context, actorID, taskID string, to int) (model.TaskOrder, error)
	ListPendingApprovals(ctx context.Context, actorID, groupID string) ([]model.PendingApproval, error)
	Notifications(ctx context.Context, actorID string) ([]model.Notification, error)
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api        *tgbotapi.BotAPI
	sender     Sender
	users      UserDirectory
	tasks      GroupTasks
	translator i18n.Translator
}

// NewAPI authorizes token against Telegram.
func NewAPI(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	log.Printf("[info] bot authorized on account %s", api.Self.UserName)
	return api, nil
}

func New(api *tgbotapi.BotAPI, users UserDirectory, tasks GroupTasks, translator i18n.Translator) *Bot {
	b := newBot(api, users, tasks, translator)
	b.api = api
	return b
}

func newBot(sender Sender, users UserDirectory, tasks GroupTasks, translator i18n.Translator) *Bot {
	return &Bot{
		sender:     sender,
		users:      users,
		tasks:      tasks,
		translator: translator,
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("handle message: %v", err)
			}
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	if !msg.IsCommand() {
		return b.say(msg.Chat.ID, user, "botUnknownCommand", nil)
	}

	log.Printf("[info] command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())
	return b.handleCommand(ctx, msg, user)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, user *model.User) error {
	chatID := msg.Chat.ID
	args := strings.Fields(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		return b.say(chatID, user, "botHelp", nil)
	case "whoami":
		return b.say(chatID, user, "botWhoAmI", map[string]string{"id": user.ID})
	case "assign":
		if len(args) != 2 {
			return b.usage(chatID, user, "/assign <task> <user>")
		}
		task, err := b.tasks.AssignTask(ctx, user.ID, args[0], args[1])
		if err != nil {
			return b.replyError(chatID, user, err)
		}
		return b.say(chatID, user, "botAssigned", map[string]string{"text": task.Text})
	case "unassign":
		if len(args) != 2 {
			return b.usage(chatID, user, "/unassign <task> <user>")
		}
		if err := b.tasks.UnassignTask(ctx, user.ID, args[0], args[1]); err != nil {
			return b.replyError(chatID, user, err)
		}
		return b.say(chatID, user, "botUnassigned", nil)
	case "approve":
		if len(args) < 1 || len(args) > 2 {
			return b.usage(chatID, user, "/approve <task> <user>")
		}
		return b.approve(ctx, chatID, user, args[0], optionalArg(args, 1))
	case "needswork":
		if len(args) < 1 || len(args) > 2 {
			return b.usage(chatID, user, "/needswork <task> <user>")
		}
		return b.needsWork(ctx, chatID, user, args[0], optionalArg(args, 1))
	case "move":
		if len(args) != 2 {
			return b.usage(chatID, user, "/move <task> <position>")
		}
		to, err := strconv.Atoi(args[1])
		if err != nil {
			return b.replyError(chatID, user, apperr.Validation("invalidPosition"))
		}
		order, err := b.tasks.MoveGroupTask(ctx, user.ID, args[0], to)
		if err != nil {
			return b.replyError(chatID, user, err)
		}
		return b.say(chatID, user, "botMoved", map[string]string{"order": strings.Join(order, ", ")})
	case "done":
		if len(args) < 1 || len(args) > 2 {
			return b.usage(chatID, user, "/done <task> [up|down]")
		}
		direction := model.Direction(strings.ToLower(optionalArg(args, 1)))
		task, err := b.tasks.RequestApproval(ctx, user.ID, args[0], direction)
		if err != nil {
			return b.replyError(chatID, user, err)
		}
		return b.say(chatID, user, "botApprovalRequested", map[string]string{"text": task.Text})
	case "approvals":
		if len(args) != 1 {
			return b.usage(chatID, user, "/approvals <group>")
		}
		return b.sendPendingApprovals(ctx, chatID, user, args[0])
	case "notifications":
		return b.sendNotifications(ctx, chatID, user)
	default:
		return b.say(chatID, user, "botUnknownCommand", nil)
	}
}

func (b *Bot) approve(ctx context.Context, chatID int64, user *model.User, taskID, assigneeID string) error {
	task, err := b.tasks.ApproveTask(ctx, user.ID, taskID, assigneeID)
	if err != nil {
		return b.replyError(chatID, user, err)
	}
	return b.say(chatID, user, "botApproved", map[string]string{"text": task.Text})
}

func (b *Bot) needsWork(ctx context.Context, chatID int64, user *model.User, taskID, assigneeID string) error {
	task, err := b.tasks.RequestNeedsWork(ctx, user.ID, taskID, assigneeID)
	if err != nil {
		return b.replyError(chatID, user, err)
	}
	return b.say(chatID, user, "botNeedsWork", map[string]string{"text": task.Text})
}

func (b *Bot) sendPendingApprovals(ctx context.Context, chatID int64, user *model.User, groupID string) error {
	pending, err := b.tasks.ListPendingApprovals(ctx, user.ID, groupID)
	if err != nil {
		return b.replyError(chatID, user, err)
	}
	if len(pending) == 0 {
		return b.say(chatID, user, "botNoPendingApprovals", nil)
	}

	var (
		sb   strings.Builder
		rows [][]tgbotapi.InlineKeyboardButton
	)
	for _, p := range pending {
		line := b.translator.T(user.Language, "pendingApprovalLine", map[string]string{
			"text":     p.Text,
			"userName": p.UserName,
		})
		sb.WriteString(fmt.Sprintf("%s %s\n   <code>%s</code>\n", iconPending, escape(line), escape(p.TaskID)))

		title := shortTitle(p.Text, buttonTitleLen)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(iconApprove+" "+title, cbApprovePrefix+p.TaskID),
			tgbotapi.NewInlineKeyboardButtonData(iconNeedsWork+" "+title, cbNeedsWorkPrefix+p.TaskID),
		))
	}
	return b.sendWithReplyMarkup(chatID, strings.TrimSpace(sb.String()), tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) sendNotifications(ctx context.Context, chatID int64, user *model.User) error {
	notifications, err := b.tasks.Notifications(ctx, user.ID)
	if err != nil {
		return b.replyError(chatID, user, err)
	}
	if len(notifications) == 0 {
		return b.say(chatID, user, "botNoNotifications", nil)
	}

	var sb strings.Builder
	for _, n := range notifications {
		sb.WriteString(fmt.Sprintf("%s %s\n", notificationIcon(n.Type), escape(n.Data.Message)))
	}
	return b.sendText(chatID, strings.TrimSpace(sb.String()))
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	if _, err := b.sender.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("callback ack: %v", err)
	}

	data := cb.Data
	switch {
	case strings.HasPrefix(data, cbApprovePrefix):
		log.Printf("[info] callback approve user=%d task=%s", cb.From.ID, strings.TrimPrefix(data, cbApprovePrefix))
		user, err := b.ensureUser(ctx, cb.From)
		if err != nil {
			return err
		}
		return b.approve(ctx, cb.Message.Chat.ID, user, strings.TrimPrefix(data, cbApprovePrefix), "")
	case strings.HasPrefix(data, cbNeedsWorkPrefix):
		log.Printf("[info] callback needs work user=%d task=%s", cb.From.ID, strings.TrimPrefix(data, cbNeedsWorkPrefix))
		user, err := b.ensureUser(ctx, cb.From)
		if err != nil {
			return err
		}
		return b.needsWork(ctx, cb.Message.Chat.ID, user, strings.TrimPrefix(data, cbNeedsWorkPrefix), "")
	default:
		return nil
	}
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	name := strings.TrimSpace(strings.TrimSpace(from.FirstName) + " " + strings.TrimSpace(from.LastName))
	if name == "" {
		name = from.UserName
	}
	return b.users.UpsertFromTelegram(ctx, from.ID, name, from.UserName, from.LanguageCode)
}

// replyError explains err to user. Errors without a message key are logged
// and reported as internal.
func (b *Bot) replyError(chatID int64, user *model.User, err error) error {
	appErr, ok := apperr.As(err)
	if !ok || appErr.Key == "" {
		log.Printf("[warn] command failed for user %s: %v", user.ID, err)
		return b.say(chatID, user, "internalError", nil)
	}
	return b.say(chatID, user, appErr.Key, appErr.Metadata)
}

func (b *Bot) usage(chatID int64, user *model.User, usage string) error {
	return b.say(chatID, user, "botUsage", map[string]string{"usage": usage})
}

// say sends the message key rendered in user's language.
func (b *Bot) say(chatID int64, user *model.User, key string, params map[string]string) error {
	return b.sendText(chatID, escape(b.translator.T(user.Language, key, params)))
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.sender.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.sender.Send(msg)
	return err
}

func notificationIcon(kind model.NotificationKind) string {
	switch kind {
	case model.NotificationGroupTaskApproval:
		return iconPending
	case model.NotificationGroupTaskApproved, model.NotificationScoredTask:
		return iconApprove
	case model.NotificationGroupTaskNeedsWork:
		return iconNeedsWork
	default:
		return iconNotification
	}
}

func optionalArg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func shortTitle(title string, maxLen int) string {
	clean := strings.Join(strings.Fields(title), " ")
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func escape(s string) string {
	return html.EscapeString(s)
}
