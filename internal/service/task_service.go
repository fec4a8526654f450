package service

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/planhub/planhub_go_server/internal/model"
	"github.com/planhub/planhub_go_server/internal/model/dto"
	"github.com/planhub/planhub_go_server/internal/repository"
)

var (
	ErrTaskNotFound = errors.New("任务不存在")
	ErrTaskNotOwned = errors.New("无权操作该任务")
)

type TaskService struct {
	taskRepo *repository.TaskRepository
	now      func() time.Time
}

func NewTaskService(taskRepo *repository.TaskRepository) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		now:      time.Now,
	}
}

// Create 创建任务
func (s *TaskService) Create(userID int64, req *dto.CreateTaskRequest) (*model.Task, error) {
	task := &model.Task{
		UserID:   userID,
		Title:    req.Title,
		Notes:    req.Notes,
		DueAt:    req.DueAt,
		Priority: req.Priority,
	}

	if err := s.taskRepo.Create(task); err != nil {
		return nil, err
	}
	return task, nil
}

// Get 获取单条任务，校验归属
func (s *TaskService) Get(userID, taskID int64) (*model.Task, error) {
	task, err := s.taskRepo.GetByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	if task.UserID != userID {
		return nil, ErrTaskNotOwned
	}
	return task, nil
}

// Update 更新任务，只更新出现的字段
func (s *TaskService) Update(userID, taskID int64, req *dto.UpdateTaskRequest) (*model.Task, error) {
	if _, err := s.Get(userID, taskID); err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	if req.Title != nil {
		fields["title"] = *req.Title
	}
	if req.Notes != nil {
		fields["notes"] = *req.Notes
	}
	if req.DueAt != nil {
		fields["due_at"] = *req.DueAt
	}
	if req.Priority != nil {
		fields["priority"] = *req.Priority
	}

	if len(fields) > 0 {
		if err := s.taskRepo.UpdateFields(taskID, fields); err != nil {
			return nil, err
		}
	}

	return s.taskRepo.GetByID(taskID)
}

// Complete 切换任务完成状态
func (s *TaskService) Complete(userID, taskID int64, completed bool) (*model.Task, error) {
	if _, err := s.Get(userID, taskID); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{"completed": completed}
	if completed {
		fields["completed_at"] = s.now()
	} else {
		fields["completed_at"] = nil
	}

	if err := s.taskRepo.UpdateFields(taskID, fields); err != nil {
		return nil, err
	}
	return s.taskRepo.GetByID(taskID)
}

// Delete 删除任务
func (s *TaskService) Delete(userID, taskID int64) error {
	if _, err := s.Get(userID, taskID); err != nil {
		return err
	}
	return s.taskRepo.Delete(taskID)
}

// List 任务列表，completed 为 nil 时返回全部
func (s *TaskService) List(userID int64, completed *bool, page, pageSize int) ([]*model.Task, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.taskRepo.ListByUser(userID, completed, page, pageSize)
}

// ListToday 今日到期的未完成任务
func (s *TaskService) ListToday(userID int64, tz *time.Location) ([]*model.Task, error) {
	if tz == nil {
		tz = time.UTC
	}
	local := s.now().In(tz)
	from := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tz)
	to := from.AddDate(0, 0, 1)
	return s.taskRepo.ListDueBetween(userID, from, to)
}
