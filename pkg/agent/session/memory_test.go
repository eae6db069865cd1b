package session

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CreateAssignsDefaults(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess, err := store.Create(ctx, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.False(t, sess.CreatedAt.IsZero())
	assert.Equal(t, DefaultRiskTolerance, sess.Profile[ProfileKeyRiskTolerance])
	assert.Empty(t, sess.Messages)

	// Distinct sessions get distinct ids.
	other, err := store.Create(ctx, nil)
	require.NoError(t, err)
	assert.NotEqual(t, sess.ID, other.ID)
}

func TestMemoryStore_CreateMergesProfile(t *testing.T) {
	store := NewMemoryStore()

	sess, err := store.Create(context.Background(), map[string]string{
		"risk_tolerance": "aggressive",
		"currency":       "EUR",
	})
	require.NoError(t, err)
	assert.Equal(t, "aggressive", sess.Profile[ProfileKeyRiskTolerance])
	assert.Equal(t, "EUR", sess.Profile["currency"])
}

func TestMemoryStore_GetUnknownSession(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "no-such-session")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestMemoryStore_DeleteRemovesSession(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess, err := store.Create(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, sess.ID))

	_, err = store.Get(ctx, sess.ID)
	assert.True(t, IsNotFound(err))

	// Deleting again reports not-found, not success.
	err = store.Delete(ctx, sess.ID)
	assert.True(t, IsNotFound(err))
}

func TestMemoryStore_AppendAndHistory(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess, err := store.Create(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, store.AppendMessage(ctx, sess.ID, Message{Role: "user", Content: "What is AAPL at?"}))
	require.NoError(t, store.AppendMessage(ctx, sess.ID, Message{Role: "assistant", Content: "AAPL is at $150."}))

	history, err := store.History(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "assistant", history[1].Role)
	assert.False(t, history[0].Timestamp.IsZero())

	err = store.AppendMessage(ctx, "missing", Message{Role: "user", Content: "?"})
	assert.True(t, IsNotFound(err))

	_, err = store.History(ctx, "missing")
	assert.True(t, IsNotFound(err))
}

func TestMemoryStore_HistoryIsACopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess, err := store.Create(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, store.AppendMessage(ctx, sess.ID, Message{Role: "user", Content: "original"}))

	history, err := store.History(ctx, sess.ID)
	require.NoError(t, err)
	history[0].Content = "mutated"

	fresh, err := store.History(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", fresh[0].Content)
}

func TestMemoryStore_UpdateProfile(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess, err := store.Create(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, store.UpdateProfile(ctx, sess.ID, map[string]string{"risk_tolerance": "conservative"}))

	loaded, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "conservative", loaded.Profile[ProfileKeyRiskTolerance])

	err = store.UpdateProfile(ctx, "missing", map[string]string{"k": "v"})
	assert.True(t, IsNotFound(err))
}

func TestMemoryStore_Stats(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	a, err := store.Create(ctx, nil)
	require.NoError(t, err)
	_, err = store.Create(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, store.AppendMessage(ctx, a.ID, Message{Role: "user", Content: "hi"}))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ActiveSessions)
	assert.Equal(t, 1, stats.TotalMessages)
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess, err := store.Create(ctx, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.AppendMessage(ctx, sess.ID, Message{Role: "user", Content: fmt.Sprintf("msg-%d", i)})
			_, _ = store.History(ctx, sess.ID)
		}(i)
	}
	wg.Wait()

	history, err := store.History(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, history, 20)
}
