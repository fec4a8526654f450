package oauth

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStateStore(t *testing.T) (*StateStore, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cleanup := func() {
		client.Close()
		mr.Close()
	}
	return NewStateStore(client), cleanup
}

func TestStateStore_GenerateAndValidate(t *testing.T) {
	store, cleanup := setupStateStore(t)
	defer cleanup()

	ctx := context.Background()

	state, err := store.GenerateState(ctx, "http://localhost:3000/app")
	require.NoError(t, err)
	assert.Len(t, state, 64) // 32 字节 hex 编码

	redirectURI, err := store.ValidateState(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/app", redirectURI)
}

func TestStateStore_StateConsumedOnValidate(t *testing.T) {
	store, cleanup := setupStateStore(t)
	defer cleanup()

	ctx := context.Background()

	state, err := store.GenerateState(ctx, "http://localhost:3000")
	require.NoError(t, err)

	_, err = store.ValidateState(ctx, state)
	require.NoError(t, err)

	// 同一个 state 不能重放
	_, err = store.ValidateState(ctx, state)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStateStore_InvalidState(t *testing.T) {
	store, cleanup := setupStateStore(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("empty state", func(t *testing.T) {
		_, err := store.ValidateState(ctx, "")
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("unknown state", func(t *testing.T) {
		_, err := store.ValidateState(ctx, "deadbeef")
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("distinct states", func(t *testing.T) {
		s1, err := store.GenerateState(ctx, "http://a")
		require.NoError(t, err)
		s2, err := store.GenerateState(ctx, "http://b")
		require.NoError(t, err)
		assert.NotEqual(t, s1, s2)
	})
}
