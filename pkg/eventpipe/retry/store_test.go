package retry_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventpipe/pkg/eventpipe/errors"
	"github.com/randalmurphal/eventpipe/pkg/eventpipe/retry"
	"github.com/randalmurphal/eventpipe/pkg/eventpipe/value"
)

// storeFactories builds every Store implementation for contract tests.
func storeFactories(t *testing.T) map[string]func() retry.Store {
	t.Helper()
	return map[string]func() retry.Store{
		"memory": func() retry.Store {
			return retry.NewMemoryStore()
		},
		"file": func() retry.Store {
			s, err := retry.NewFileStore(filepath.Join(t.TempDir(), "nested", "queue.json"))
			require.NoError(t, err)
			return s
		},
		"sqlite": func() retry.Store {
			s, err := retry.NewSQLiteStore(":memory:", "")
			require.NoError(t, err)
			return s
		},
		"redis": func() retry.Store {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { client.Close() })
			return retry.NewRedisStore(client, "")
		},
	}
}

func TestStore_Contract(t *testing.T) {
	ctx := context.Background()

	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory()

			data, err := store.Load(ctx)
			require.NoError(t, err)
			assert.Nil(t, data, "empty store loads nothing")

			require.NoError(t, store.Save(ctx, []byte(`[{"id":"a"}]`)))
			require.NoError(t, store.Save(ctx, []byte(`[{"id":"b"}]`)))

			data, err = store.Load(ctx)
			require.NoError(t, err)
			assert.JSONEq(t, `[{"id":"b"}]`, string(data), "save replaces the document")

			require.NoError(t, store.Close())
			require.NoError(t, store.Close(), "close is idempotent")

			_, err = store.Load(ctx)
			assert.ErrorIs(t, err, errors.ErrStoreClosed)
			assert.ErrorIs(t, store.Save(ctx, nil), errors.ErrStoreClosed)
		})
	}
}

func TestMemoryStore_CopiesInput(t *testing.T) {
	ctx := context.Background()
	store := retry.NewMemoryStore()

	buf := []byte("[1]")
	require.NoError(t, store.Save(ctx, buf))
	buf[1] = '2'

	data, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "[1]", string(data))
	assert.Equal(t, 1, store.Saves())
}

func TestFileStore_LeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "queue.json")

	store, err := retry.NewFileStore(path)
	require.NoError(t, err)
	assert.Equal(t, path, store.Path())

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Save(ctx, []byte("[]")))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "queue.json", entries[0].Name())
}

func TestFileStore_EmptyPath(t *testing.T) {
	_, err := retry.NewFileStore("")
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestSQLiteStore_Persistence(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "queue.db")

	store1, err := retry.NewSQLiteStore(dbPath, "queue-a")
	require.NoError(t, err)
	require.NoError(t, store1.Save(ctx, []byte("persistent")))
	require.NoError(t, store1.Close())

	store2, err := retry.NewSQLiteStore(dbPath, "queue-a")
	require.NoError(t, err)
	defer store2.Close()

	data, err := store2.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("persistent"), data)

	other, err := retry.NewSQLiteStore(dbPath, "queue-b")
	require.NoError(t, err)
	defer other.Close()

	data, err = other.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, data, "keys are isolated")
}

func TestSQLiteStore_InvalidPath(t *testing.T) {
	_, err := retry.NewSQLiteStore("/nonexistent/path/queue.db", "")
	assert.Error(t, err)
}

func TestRedisStore_KeyAndOwnership(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	store, err := retry.DialRedisStore(ctx, mr.Addr(), "custom:queue")
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, []byte("[]")))
	got, err := mr.Get("custom:queue")
	require.NoError(t, err)
	assert.Equal(t, "[]", got)

	require.NoError(t, store.Close())

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	shared := retry.NewRedisStore(client, "")
	require.NoError(t, shared.Close())
	assert.NoError(t, client.Ping(ctx).Err(), "wrapped client stays open")
}

func TestDialRedisStore_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := retry.DialRedisStore(ctx, addr, "")
	assert.Error(t, err)
}

func TestEncodeDecode(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	events := []retry.QueuedEvent{{
		ID:          "1709294400000-abc123def",
		EventName:   "signup_completed",
		Properties:  value.Properties{"method": value.String("google"), "step": value.Int(2)},
		Timestamp:   ts,
		RetryCount:  1,
		NextRetryAt: ts.Add(2 * time.Second),
	}}

	data, err := retry.Encode(events)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"event_name":"signup_completed"`)
	assert.Contains(t, string(data), `"retry_count":1`)
	assert.Contains(t, string(data), `"next_retry_at":"2024-03-01T12:00:02Z"`)

	decoded, err := retry.Decode(data)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, events[0].ID, decoded[0].ID)
	assert.True(t, events[0].Properties.Equal(decoded[0].Properties))
	assert.True(t, events[0].NextRetryAt.Equal(decoded[0].NextRetryAt))

	empty, err := retry.Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))

	none, err := retry.Decode([]byte("  "))
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = retry.Decode([]byte("{broken"))
	assert.Error(t, err)
}
