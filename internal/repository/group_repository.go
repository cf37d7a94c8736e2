package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"group-planner/internal/model"
)

// GroupRepository manages groups and their membership.
type GroupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// Create stores the group and makes the leader and memberIDs members of it.
func (r *GroupRepository) Create(ctx context.Context, group *model.Group, memberIDs ...string) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return fmt.Errorf("create group: %w", err)
		}
		members := append([]string{group.LeaderID}, memberIDs...)
		for _, userID := range members {
			if userID == "" {
				continue
			}
			if err := addMember(tx, group.ID, userID); err != nil {
				return err
			}
		}
		return nil
	})
}

func addMember(db *gorm.DB, groupID, userID string) error {
	member := model.GroupMember{GroupID: groupID, UserID: userID}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&member).Error; err != nil {
		return fmt.Errorf("add group member: %w", err)
	}
	return nil
}

// GetGroup returns the group only if userID is one of its members.
func (r *GroupRepository) GetGroup(ctx context.Context, userID, groupID string) (*model.Group, error) {
	var group model.Group
	err := r.db.WithContext(ctx).
		Joins("JOIN group_members ON group_members.group_id = groups.id AND group_members.user_id = ?", userID).
		Where("groups.id = ?", groupID).
		First(&group).Error
	if err != nil {
		return nil, fmt.Errorf("get group %s: %w", groupID, notFound(err))
	}
	return &group, nil
}

// Save writes the group if nobody saved it since it was read.
func (r *GroupRepository) Save(ctx context.Context, group *model.Group) error {
	if err := saveVersioned(ctx, r.db, group, &group.Version); err != nil {
		return fmt.Errorf("save group %s: %w", group.ID, err)
	}
	return nil
}

// ListWithChat returns groups that relay to a Telegram chat.
func (r *GroupRepository) ListWithChat(ctx context.Context) ([]model.Group, error) {
	var groups []model.Group
	if err := r.db.WithContext(ctx).Where("telegram_chat_id <> 0").Order("name ASC").Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}
