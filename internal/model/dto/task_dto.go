package dto

import "time"

// CreateTaskRequest 创建任务请求
type CreateTaskRequest struct {
	Title    string     `json:"title" binding:"required,min=1,max=200"`
	Notes    string     `json:"notes,omitempty" binding:"omitempty,max=2000"`
	DueAt    *time.Time `json:"due_at,omitempty"`
	Priority int        `json:"priority" binding:"omitempty,min=0,max=2"`
}

// UpdateTaskRequest 更新任务请求
type UpdateTaskRequest struct {
	Title    *string    `json:"title,omitempty" binding:"omitempty,min=1,max=200"`
	Notes    *string    `json:"notes,omitempty" binding:"omitempty,max=2000"`
	DueAt    *time.Time `json:"due_at,omitempty"`
	Priority *int       `json:"priority,omitempty" binding:"omitempty,min=0,max=2"`
}
