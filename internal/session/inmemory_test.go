package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiox-platform/memchat/internal/memory"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(ttl time.Duration, maxSessions, maxHistory int) (*MemoryStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(ttl, maxSessions, maxHistory)
	s.now = clock.now
	return s, clock
}

func TestMemoryStore_GetOrCreate(t *testing.T) {
	store, _ := newTestStore(time.Hour, 10, 10)
	ctx := context.Background()

	generated, err := store.GetOrCreate(ctx, "")
	require.NoError(t, err)
	assert.NotEmpty(t, generated.ID)

	named, err := store.GetOrCreate(ctx, "mine")
	require.NoError(t, err)
	assert.Equal(t, "mine", named.ID)
	assert.Nil(t, named.State.Memory)
	assert.Equal(t, memory.Memory{}, named.PreviousMemory())

	require.NoError(t, store.AppendMessages(ctx, "mine", memory.Message{Role: memory.RoleUser, Content: "hi"}))
	again, err := store.GetOrCreate(ctx, "mine")
	require.NoError(t, err)
	assert.Len(t, again.History, 1)
	assert.Equal(t, 2, store.Len())
}

func TestMemoryStore_HistoryCap(t *testing.T) {
	store, _ := newTestStore(time.Hour, 10, 3)
	ctx := context.Background()
	_, err := store.GetOrCreate(ctx, "s")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.AppendMessages(ctx, "s", memory.Message{Role: memory.RoleUser, Content: fmt.Sprint(i)}))
	}

	sess, err := store.Get(ctx, "s")
	require.NoError(t, err)
	require.Len(t, sess.History, 3)
	assert.Equal(t, "2", sess.History[0].Content)
	assert.Equal(t, "4", sess.History[2].Content)
}

func TestMemoryStore_TTL(t *testing.T) {
	store, clock := newTestStore(time.Hour, 10, 10)
	ctx := context.Background()
	_, err := store.GetOrCreate(ctx, "s")
	require.NoError(t, err)

	clock.advance(30 * time.Minute)
	require.NoError(t, store.AppendMessages(ctx, "s", memory.Message{Role: memory.RoleUser, Content: "keepalive"}))

	clock.advance(59 * time.Minute)
	_, err = store.Get(ctx, "s")
	require.NoError(t, err, "activity refreshes the ttl")

	clock.advance(2 * time.Minute)
	_, err = store.Get(ctx, "s")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_EvictsLeastRecentlyUpdated(t *testing.T) {
	store, clock := newTestStore(time.Hour, 2, 10)
	ctx := context.Background()

	_, err := store.GetOrCreate(ctx, "old")
	require.NoError(t, err)
	clock.advance(time.Minute)
	_, err = store.GetOrCreate(ctx, "newer")
	require.NoError(t, err)
	clock.advance(time.Minute)
	require.NoError(t, store.AppendMessages(ctx, "old", memory.Message{Role: memory.RoleUser, Content: "touch"}))
	clock.advance(time.Minute)

	_, err = store.GetOrCreate(ctx, "third")
	require.NoError(t, err)

	assert.Equal(t, 2, store.Len())
	_, err = store.Get(ctx, "newer")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(ctx, "old")
	assert.NoError(t, err)
}

func TestMemoryStore_SaveStateIsCopied(t *testing.T) {
	store, clock := newTestStore(time.Hour, 10, 10)
	ctx := context.Background()
	_, err := store.GetOrCreate(ctx, "s")
	require.NoError(t, err)

	mem := memory.Memory{
		Summary:    []memory.SummaryItem{{ID: "a", Summary: "x"}},
		RawEntries: []memory.RawMemoryEntry{{ID: "a"}},
	}
	require.NoError(t, store.SaveState(ctx, "s", State{Memory: &mem, NoNewInfo: true}))
	mem.Summary[0].Summary = "mutated after save"

	sess, err := store.Get(ctx, "s")
	require.NoError(t, err)
	require.NotNil(t, sess.State.Memory)
	assert.Equal(t, "x", sess.State.Memory.Summary[0].Summary)
	assert.True(t, sess.State.NoNewInfo)
	assert.Equal(t, clock.t, sess.State.UpdatedAt)

	sess.History = append(sess.History, memory.Message{Content: "local only"})
	fresh, _ := store.Get(ctx, "s")
	assert.Empty(t, fresh.History)
}

func TestMemoryStore_UnknownSession(t *testing.T) {
	store, _ := newTestStore(time.Hour, 10, 10)
	ctx := context.Background()

	_, err := store.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.AppendMessages(ctx, "nope"), ErrNotFound)
	assert.ErrorIs(t, store.SaveState(ctx, "nope", State{}), ErrNotFound)
	assert.NoError(t, store.Delete(ctx, "nope"))
}

func TestMemoryStore_Concurrent(t *testing.T) {
	store := NewMemoryStore(time.Hour, 100, 1000)
	ctx := context.Background()
	_, err := store.GetOrCreate(ctx, "shared")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.AppendMessages(ctx, "shared", memory.Message{Role: memory.RoleUser, Content: fmt.Sprint(i)})
			_, _ = store.GetOrCreate(ctx, fmt.Sprintf("s-%d", i))
		}(i)
	}
	wg.Wait()

	sess, err := store.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Len(t, sess.History, 50)
}
