package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"group-planner/internal/model"
)

// TaskRepository handles canonical group tasks and their linked copies.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, taskID string) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("id = ?", taskID).First(&task).Error; err != nil {
		return nil, fmt.Errorf("find task %s: %w", taskID, notFound(err))
	}
	return &task, nil
}

// FindLinked returns userID's copy of the canonical task.
func (r *TaskRepository) FindLinked(ctx context.Context, canonicalID, userID string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).
		Where("group_task_id = ? AND user_id = ?", canonicalID, userID).
		First(&task).Error
	if err != nil {
		return nil, fmt.Errorf("find linked task %s/%s: %w", canonicalID, userID, notFound(err))
	}
	return &task, nil
}

// Save writes the task if nobody saved it since it was read.
func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	if err := saveVersioned(ctx, r.db, task, &task.Version); err != nil {
		return fmt.Errorf("save task %s: %w", task.ID, err)
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, taskID string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", taskID).Delete(&model.Task{}).Error; err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// ListPendingApprovals returns linked copies in the group that requested
// approval and were not approved yet, in insertion order.
func (r *TaskRepository) ListPendingApprovals(ctx context.Context, groupID string) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND group_task_id <> ''", groupID).
		Where("group_approval_approved = ? AND group_approval_requested = ?", false, true).
		Order("created_at ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("list pending approvals: %w", err)
	}
	return tasks, nil
}
