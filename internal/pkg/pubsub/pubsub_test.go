package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindTitles(t *testing.T) {
	kinds := []string{KindEventReminder, KindChatMessage, KindBookingUpdate, KindBillingUpdate, KindTrialEnding}

	for _, kind := range kinds {
		title, ok := KindTitles[kind]
		assert.True(t, ok, "Kind %s should have a default title", kind)
		assert.NotEmpty(t, title, "Title for %s should not be empty", kind)
	}
}

func TestNotificationMessage_JSON(t *testing.T) {
	msg := &NotificationMessage{
		Kind:    KindEventReminder,
		UserID:  1,
		EventID: 2,
		Title:   "日程提醒",
		Body:    "周会将在 15 分钟后开始",
		StartAt: "2024-01-15T10:00:00Z",
	}

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	// Verify snake_case keys
	var raw map[string]interface{}
	err = json.Unmarshal(data, &raw)
	require.NoError(t, err)

	assert.Contains(t, raw, "user_id")
	assert.Contains(t, raw, "event_id")
	assert.Contains(t, raw, "start_at")

	var decoded NotificationMessage
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)

	assert.Equal(t, msg.Kind, decoded.Kind)
	assert.Equal(t, msg.UserID, decoded.UserID)
	assert.Equal(t, msg.EventID, decoded.EventID)
	assert.Equal(t, msg.Body, decoded.Body)
}

func TestNotificationMessage_OmitEmpty(t *testing.T) {
	msg := &NotificationMessage{
		Kind:   KindBillingUpdate,
		UserID: 1,
	}

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var raw map[string]interface{}
	err = json.Unmarshal(data, &raw)
	require.NoError(t, err)

	_, hasEvent := raw["event_id"]
	_, hasBooking := raw["booking_id"]
	_, hasBody := raw["body"]
	assert.False(t, hasEvent, "empty event_id should be omitted")
	assert.False(t, hasBooking, "empty booking_id should be omitted")
	assert.False(t, hasBody, "empty body should be omitted")
}

// Integration tests with real Redis (skip if not available)
func TestPublisherSubscriber_Integration(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis not available, skipping integration test")
	}
	defer client.Close()

	publisher := NewPublisher(client)
	subscriber := NewSubscriber(client)

	testCtx, testCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer testCancel()

	received := make(chan *NotificationMessage, 1)

	go func() {
		subscriber.Subscribe(testCtx, func(msg *NotificationMessage) {
			received <- msg
		})
	}()

	// Give subscriber time to connect
	time.Sleep(100 * time.Millisecond)

	msg := &NotificationMessage{
		Kind:    KindEventReminder,
		UserID:  123,
		EventID: 456,
		Body:    "会议将在 15 分钟后开始",
	}

	err := publisher.PublishNotification(testCtx, msg)
	require.NoError(t, err)

	select {
	case receivedMsg := <-received:
		assert.Equal(t, msg.UserID, receivedMsg.UserID)
		assert.Equal(t, msg.EventID, receivedMsg.EventID)
		assert.Equal(t, KindEventReminder, receivedMsg.Kind)
		assert.NotEmpty(t, receivedMsg.Title) // Auto-filled from kind
	case <-testCtx.Done():
		t.Fatal("Timeout waiting for message")
	}
}

func TestPublisher_AutoFillTitle(t *testing.T) {
	msg := &NotificationMessage{
		Kind:   KindTrialEnding,
		UserID: 1,
	}

	// Simulate the auto-fill logic from PublishNotification
	if msg.Title == "" && msg.Kind != "" {
		if title, ok := KindTitles[msg.Kind]; ok {
			msg.Title = title
		}
	}

	assert.Equal(t, KindTitles[KindTrialEnding], msg.Title)
}

func TestNewPublisher(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
	})
	defer client.Close()

	publisher := NewPublisher(client)
	assert.NotNil(t, publisher)
}

func TestNewSubscriber(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
	})
	defer client.Close()

	subscriber := NewSubscriber(client)
	assert.NotNil(t, subscriber)
}
