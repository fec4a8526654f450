package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/planhub/planhub_go_server/internal/model"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(task *model.Task) error {
	return r.db.Create(task).Error
}

func (r *TaskRepository) GetByID(id int64) (*model.Task, error) {
	var task model.Task
	err := r.db.Where("id = ?", id).First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepository) Update(task *model.Task) error {
	return r.db.Save(task).Error
}

func (r *TaskRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.db.Model(&model.Task{}).Where("id = ?", id).Updates(fields).Error
}

func (r *TaskRepository) Delete(id int64) error {
	return r.db.Delete(&model.Task{}, id).Error
}

// ListByUser 获取用户任务列表，completed 为 nil 时不过滤
func (r *TaskRepository) ListByUser(userID int64, completed *bool, page, pageSize int) ([]*model.Task, int64, error) {
	var tasks []*model.Task
	var total int64

	query := r.db.Model(&model.Task{}).Where("user_id = ?", userID)

	if completed != nil {
		query = query.Where("completed = ?", *completed)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	// 未完成在前，按优先级、截止时间排序
	if err := query.Order("completed ASC").Order("priority DESC").Order("due_at ASC").
		Offset(offset).Limit(pageSize).Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// ListDueBetween 查询截止时间在区间内的未完成任务
func (r *TaskRepository) ListDueBetween(userID int64, from, to time.Time) ([]*model.Task, error) {
	var tasks []*model.Task
	err := r.db.Where("user_id = ? AND completed = ? AND due_at >= ? AND due_at < ?",
		userID, false, from, to).
		Order("due_at ASC").Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}
