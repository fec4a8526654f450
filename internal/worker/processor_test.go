package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planhub/planhub_go_server/internal/pkg/pubsub"
	"github.com/planhub/planhub_go_server/internal/pkg/queue"
)

func setupProcessor(t *testing.T) (*Processor, *queue.Queue, *redis.Client, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	reminderQueue := queue.NewQueue(client, "test_reminders")
	p := NewProcessor(reminderQueue, nil, pubsub.NewPublisher(client))

	cleanup := func() {
		client.Close()
		mr.Close()
	}
	return p, reminderQueue, client, cleanup
}

func TestProcessor_Process(t *testing.T) {
	p, _, client, cleanup := setupProcessor(t)
	defer cleanup()

	ctx := context.Background()

	sub := client.Subscribe(ctx, pubsub.ChannelUserNotification)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)
	ch := sub.Channel()

	msg := &queue.ReminderMessage{
		EventID:  1,
		UserID:   42,
		Title:    "团队周会",
		StartAt:  time.Now().Add(30 * time.Minute).UTC().Format(time.RFC3339),
		Timezone: "Asia/Shanghai",
	}
	require.NoError(t, p.Process(ctx, msg))

	// 站内通知已发布
	select {
	case raw := <-ch:
		var notification pubsub.NotificationMessage
		require.NoError(t, json.Unmarshal([]byte(raw.Payload), &notification))
		assert.Equal(t, pubsub.KindEventReminder, notification.Kind)
		assert.Equal(t, int64(42), notification.UserID)
		assert.Equal(t, int64(1), notification.EventID)
		assert.Contains(t, notification.Body, "团队周会")
	case <-time.After(2 * time.Second):
		t.Fatal("Expected a notification to be published")
	}
}

func TestProcessor_Retry(t *testing.T) {
	p, reminderQueue, _, cleanup := setupProcessor(t)
	defer cleanup()

	ctx := context.Background()

	msg := &queue.ReminderMessage{EventID: 1, UserID: 1, Title: "提醒"}
	p.retry(ctx, msg)

	length, err := reminderQueue.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)

	popped, err := reminderQueue.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, popped)
	assert.Equal(t, 1, popped.RetryCount)

	// 超过重试上限后不再入队
	msg.RetryCount = maxRetries
	p.retry(ctx, msg)

	length, err = reminderQueue.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), length)
}

func TestProcessor_Run_StopsOnCancel(t *testing.T) {
	p, _, _, cleanup := setupProcessor(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Processor did not stop after context cancellation")
	}
}

func TestFormatStartAt(t *testing.T) {
	tests := []struct {
		name     string
		startAt  string
		timezone string
		want     string
	}{
		{"UTC 默认", "2024-03-15T08:00:00Z", "", "2024-03-15 08:00"},
		{"上海时区", "2024-03-15T08:00:00Z", "Asia/Shanghai", "2024-03-15 16:00"},
		{"非法时区回退 UTC", "2024-03-15T08:00:00Z", "Mars/Olympus", "2024-03-15 08:00"},
		{"非法时间原样返回", "not-a-time", "Asia/Shanghai", "not-a-time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatStartAt(tt.startAt, tt.timezone))
		})
	}
}
