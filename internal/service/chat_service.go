package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"group-planner/internal/model"
)

// ChatPublisher relays a group chat message to an external chat.
type ChatPublisher interface {
	PublishGroupMessage(ctx context.Context, chatID int64, text string) error
}

// ChatInfo describes a system message attached to a chat post.
type ChatInfo struct {
	Type string
	User string
	Task string
}

// ChatService builds and stores group chat messages.
type ChatService struct {
	messages  MessageStore
	publisher ChatPublisher
	clock     func() time.Time
}

// NewChatService wires message storage. publisher may be nil.
func NewChatService(messages MessageStore, publisher ChatPublisher, clock func() time.Time) *ChatService {
	if clock == nil {
		clock = time.Now
	}
	return &ChatService{messages: messages, publisher: publisher, clock: clock}
}

// SendChat builds a message from sender to group. It is not stored until
// Save.
func (s *ChatService) SendChat(group *model.Group, sender *model.User, text string, info ChatInfo) *model.ChatMessage {
	return &model.ChatMessage{
		ID:        uuid.NewString(),
		GroupID:   group.ID,
		UserID:    sender.ID,
		Text:      text,
		InfoType:  info.Type,
		InfoUser:  info.User,
		InfoTask:  info.Task,
		CreatedAt: s.clock().UTC(),
	}
}

// Save stores msg and relays it to the group's Telegram chat, if any.
// Relay failures are logged only.
func (s *ChatService) Save(ctx context.Context, group *model.Group, msg *model.ChatMessage) error {
	if err := s.messages.Create(ctx, msg); err != nil {
		return err
	}
	if s.publisher == nil || group.TelegramChatID == 0 {
		return nil
	}
	if err := s.publisher.PublishGroupMessage(ctx, group.TelegramChatID, msg.Text); err != nil {
		log.Printf("[warn] relay chat message %s to group %s: %v", msg.ID, group.ID, err)
	}
	return nil
}
