package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/bzik/backend/internal/model/chat"
)

func TestFileStore_AppendAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat_memory.json")
	ctx := context.Background()

	store, err := OpenFile(path)
	require.NoError(t, err)

	_, err = store.Append(ctx, "u1", chat.UserTurn("hello"), chat.AssistantTurn("Hi there"))
	require.NoError(t, err)

	reopened, err := OpenFile(path)
	require.NoError(t, err)
	turns, err := reopened.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []chat.Turn{chat.UserTurn("hello"), chat.AssistantTurn("Hi there")}, turns)
}

func TestFileStore_TruncatesToLastTwenty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat_memory.json")
	ctx := context.Background()
	store, err := OpenFile(path)
	require.NoError(t, err)

	for i := 0; i < 25; i++ {
		_, err := store.Append(ctx, "u1", chat.UserTurn(fmt.Sprintf("m%d", i)))
		require.NoError(t, err)
	}

	turns, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, turns, 20)
	assert.Equal(t, "m5", turns[0].Content)
	assert.Equal(t, "m24", turns[19].Content)

	reopened, err := OpenFile(path)
	require.NoError(t, err)
	turns, err = reopened.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, turns, 20)
}

func TestFileStore_FiltersEmptyTurns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat_memory.json")
	raw := `{"u1":[{"role":"user","content":"hi"},{"role":"assistant","content":"  "},{"role":"assistant","content":"hello"}]}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	store, err := OpenFile(path)
	require.NoError(t, err)
	turns, err := store.Load(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []chat.Turn{chat.UserTurn("hi"), chat.AssistantTurn("hello")}, turns)

	stored, err := store.Append(context.Background(), "u1", chat.UserTurn(""), chat.UserTurn("next"))
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestFileStore_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat_memory.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store, err := OpenFile(path)
	require.NoError(t, err)
	turns, err := store.Load(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, turns)

	_, err = store.Append(context.Background(), "u1", chat.UserTurn("hi"))
	require.NoError(t, err)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(raw))
}

func TestFileStore_CrashBeforeRenameKeepsPreviousFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chat_memory.json")
	ctx := context.Background()

	store, err := OpenFile(path)
	require.NoError(t, err)
	_, err = store.Append(ctx, "u1", chat.UserTurn("first"))
	require.NoError(t, err)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	store.rename = func(string, string) error { return errors.New("power loss") }
	stored, err := store.Append(ctx, "u1", chat.UserTurn("second"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersist)
	assert.Len(t, stored, 2, "the in-memory view still holds the new turn")

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file is cleaned up")

	reopened, err := OpenFile(path)
	require.NoError(t, err)
	turns, err := reopened.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []chat.Turn{chat.UserTurn("first")}, turns)
}

func TestFileStore_LoadReturnsCopy(t *testing.T) {
	store, err := OpenFile(filepath.Join(t.TempDir(), "m.json"))
	require.NoError(t, err)
	ctx := context.Background()
	_, err = store.Append(ctx, "u1", chat.UserTurn("hi"))
	require.NoError(t, err)

	turns, _ := store.Load(ctx, "u1")
	turns[0].Content = "mutated"

	again, _ := store.Load(ctx, "u1")
	assert.Equal(t, "hi", again[0].Content)
}

func TestFileStore_ConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.json")
	store, err := OpenFile(path)
	require.NoError(t, err)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Append(ctx, fmt.Sprintf("u%d", i), chat.UserTurn("hi"))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	reopened, err := OpenFile(path)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		turns, err := reopened.Load(ctx, fmt.Sprintf("u%d", i))
		require.NoError(t, err)
		assert.Len(t, turns, 1)
	}
}
