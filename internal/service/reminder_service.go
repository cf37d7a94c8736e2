package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"group-planner/internal/i18n"
	"group-planner/internal/model"
)

// ReminderService builds digests of approvals still waiting on a group's
// leadership and posts them to the group's chat.
type ReminderService struct {
	tasks      TaskStore
	groups     GroupStore
	users      UserStore
	publisher  ChatPublisher
	translator i18n.Translator
	locale     string
}

func NewReminderService(tasks TaskStore, groups GroupStore, users UserStore, publisher ChatPublisher, translator i18n.Translator, locale string) *ReminderService {
	return &ReminderService{
		tasks:      tasks,
		groups:     groups,
		users:      users,
		publisher:  publisher,
		translator: translator,
		locale:     locale,
	}
}

// PendingDigest renders the pending approvals of group in locale. It
// returns an empty string when nothing is pending.
func (s *ReminderService) PendingDigest(ctx context.Context, group *model.Group, locale string) (string, error) {
	pending, err := loadPendingApprovals(ctx, s.tasks, s.users, group.ID)
	if err != nil {
		return "", err
	}
	if len(pending) == 0 {
		return "", nil
	}

	var builder strings.Builder
	builder.WriteString(s.translator.T(locale, "pendingApprovalsDigest", map[string]string{
		"count":     strconv.Itoa(len(pending)),
		"groupName": strings.TrimSpace(group.Name),
	}))
	for _, p := range pending {
		builder.WriteByte('\n')
		builder.WriteString(s.translator.T(locale, "pendingApprovalLine", map[string]string{
			"text":     strings.TrimSpace(p.Text),
			"userName": p.UserName,
		}))
	}
	return builder.String(), nil
}

// SendPendingDigests posts a digest to every group that has a chat and
// something pending. A failing group is logged and skipped.
func (s *ReminderService) SendPendingDigests(ctx context.Context) error {
	if s.publisher == nil {
		return nil
	}
	groups, err := s.groups.ListWithChat(ctx)
	if err != nil {
		return fmt.Errorf("list groups: %w", err)
	}
	for i := range groups {
		group := &groups[i]
		text, err := s.PendingDigest(ctx, group, s.locale)
		if err != nil {
			log.Printf("[warn] build digest for group %s: %v", group.ID, err)
			continue
		}
		if text == "" {
			continue
		}
		if err := s.publisher.PublishGroupMessage(ctx, group.TelegramChatID, text); err != nil {
			log.Printf("[warn] send digest to group %s: %v", group.ID, err)
		}
	}
	return nil
}
