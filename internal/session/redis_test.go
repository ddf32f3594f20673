package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiox-platform/memchat/internal/memory"
)

func setupMiniredis(t *testing.T, maxHistory int) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, time.Hour, maxHistory), mr
}

func TestRedisStore_CreateAndGet(t *testing.T) {
	store, _ := setupMiniredis(t, 20)
	ctx := context.Background()

	created, err := store.GetOrCreate(ctx, "")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Nil(t, created.State.Memory)
	assert.Empty(t, created.History)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestRedisStore_GetOrCreateKeepsExisting(t *testing.T) {
	store, _ := setupMiniredis(t, 20)
	ctx := context.Background()

	_, err := store.GetOrCreate(ctx, "abc")
	require.NoError(t, err)
	require.NoError(t, store.AppendMessages(ctx, "abc", memory.Message{Role: memory.RoleUser, Content: "Hello"}))

	again, err := store.GetOrCreate(ctx, "abc")
	require.NoError(t, err)
	assert.Len(t, again.History, 1)
}

func TestRedisStore_AppendAndGet(t *testing.T) {
	store, _ := setupMiniredis(t, 20)
	ctx := context.Background()
	_, err := store.GetOrCreate(ctx, "s1")
	require.NoError(t, err)

	err = store.AppendMessages(ctx, "s1",
		memory.Message{Role: memory.RoleUser, Content: "Hello"},
		memory.Message{Role: memory.RoleAssistant, Content: "Hi there!"},
	)
	require.NoError(t, err)

	sess, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, sess.History, 2)
	assert.Equal(t, memory.RoleUser, sess.History[0].Role)
	assert.Equal(t, "Hello", sess.History[0].Content)
	assert.Equal(t, memory.RoleAssistant, sess.History[1].Role)
	assert.Equal(t, "Hi there!", sess.History[1].Content)
}

func TestRedisStore_Trim(t *testing.T) {
	store, _ := setupMiniredis(t, 3)
	ctx := context.Background()
	_, err := store.GetOrCreate(ctx, "s1")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		err := store.AppendMessages(ctx, "s1", memory.Message{Role: memory.RoleUser, Content: string(rune('A' + i))})
		require.NoError(t, err)
	}

	sess, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, sess.History, 3)
	assert.Equal(t, "C", sess.History[0].Content)
	assert.Equal(t, "D", sess.History[1].Content)
	assert.Equal(t, "E", sess.History[2].Content)
}

func TestRedisStore_TTL(t *testing.T) {
	store, mr := setupMiniredis(t, 20)
	ctx := context.Background()
	_, err := store.GetOrCreate(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, store.AppendMessages(ctx, "s1", memory.Message{Role: memory.RoleUser, Content: "Hello"}))

	mr.FastForward(61 * time.Minute)

	_, err = store.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, mr.Exists(historyKey("s1")))
}

func TestRedisStore_SaveState(t *testing.T) {
	store, mr := setupMiniredis(t, 20)
	ctx := context.Background()
	_, err := store.GetOrCreate(ctx, "s1")
	require.NoError(t, err)

	mem := memory.Memory{
		Summary:    []memory.SummaryItem{{ID: "s1", Summary: "Likes blue"}},
		RawEntries: []memory.RawMemoryEntry{{ID: "s1", UserQuestion: "I like blue"}},
	}
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	err = store.SaveState(ctx, "s1", State{
		Memory:              &mem,
		Analysis:            json.RawMessage(`{"plan":["x"]}`),
		ClarificationNeeded: true,
		UpdatedAt:           at,
	})
	require.NoError(t, err)

	sess, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, sess.State.Memory)
	assert.Equal(t, mem, *sess.State.Memory)
	assert.JSONEq(t, `{"plan":["x"]}`, string(sess.State.Analysis))
	assert.True(t, sess.State.ClarificationNeeded)
	assert.True(t, at.Equal(sess.State.UpdatedAt))
	assert.Equal(t, time.Hour, mr.TTL(stateKey("s1")))
}

func TestRedisStore_UnknownSession(t *testing.T) {
	store, _ := setupMiniredis(t, 20)
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.AppendMessages(ctx, "missing", memory.Message{Role: memory.RoleUser, Content: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.SaveState(ctx, "missing", State{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_Delete(t *testing.T) {
	store, _ := setupMiniredis(t, 20)
	ctx := context.Background()
	_, err := store.GetOrCreate(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, store.AppendMessages(ctx, "s1", memory.Message{Role: memory.RoleUser, Content: "Hello"}))

	require.NoError(t, store.Delete(ctx, "s1"))

	_, err = store.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_IsolatedBySession(t *testing.T) {
	store, _ := setupMiniredis(t, 20)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		_, err := store.GetOrCreate(ctx, id)
		require.NoError(t, err)
		require.NoError(t, store.AppendMessages(ctx, id, memory.Message{Role: memory.RoleUser, Content: "msg-" + id}))
	}

	a, _ := store.Get(ctx, "a")
	b, _ := store.Get(ctx, "b")
	require.Len(t, a.History, 1)
	require.Len(t, b.History, 1)
	assert.Equal(t, "msg-a", a.History[0].Content)
	assert.Equal(t, "msg-b", b.History[0].Content)
}
