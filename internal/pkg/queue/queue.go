package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Queue struct {
	client    *redis.Client
	queueName string
}

// ReminderMessage 日程提醒任务
type ReminderMessage struct {
	EventID    int64  `json:"event_id"`
	UserID     int64  `json:"user_id"`
	Title      string `json:"title"`
	StartAt    string `json:"start_at"`
	RemindAt   string `json:"remind_at"`
	Email      string `json:"email,omitempty"`
	Timezone   string `json:"timezone,omitempty"`
	RetryCount int    `json:"retry_count"`
}

func NewQueue(client *redis.Client, queueName string) *Queue {
	return &Queue{
		client:    client,
		queueName: queueName,
	}
}

// Push 将提醒任务加入队列
func (q *Queue) Push(ctx context.Context, msg *ReminderMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return q.client.LPush(ctx, q.queueName, data).Err()
}

// Pop 从队列获取提醒任务（阻塞）
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*ReminderMessage, error) {
	result, err := q.client.BRPop(ctx, timeout, q.queueName).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // 超时，无任务
		}
		return nil, fmt.Errorf("failed to pop from queue: %w", err)
	}

	if len(result) < 2 {
		return nil, nil
	}

	var msg ReminderMessage
	if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}

	return &msg, nil
}

// Length 获取队列长度
func (q *Queue) Length(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.queueName).Result()
}
