package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/guihenriquebr/sefra/pkg/domain"
	"github.com/guihenriquebr/sefra/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract verifies that a SessionStore implementation
// adheres to the interface contract.
func RunSessionStoreContract(t *testing.T, store ports.SessionStore) {
	t.Helper()
	ctx := context.Background()
	sessionID := "contract-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewState(sessionID)
		state.Status = domain.StatusActive
		state.CurrentStep = 2
		state.Record = state.Record.Merge(map[string]string{domain.FieldName: "Maria"})
		state.Acquisition = map[string]string{"utm_source": "google"}

		require.NoError(t, store.Save(ctx, sessionID, state))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusActive, loaded.Status)
		assert.Equal(t, 2, loaded.CurrentStep)
		assert.Equal(t, "Maria", loaded.Record.Fields[domain.FieldName])
		assert.Equal(t, "google", loaded.Acquisition["utm_source"])
	})

	t.Run("Saved state is isolated from caller", func(t *testing.T) {
		state := domain.NewState(sessionID)
		state.Record = state.Record.Merge(map[string]string{domain.FieldCity: "Curitiba"})
		require.NoError(t, store.Save(ctx, sessionID, state))

		state.Record.Fields[domain.FieldCity] = "changed"

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "Curitiba", loaded.Record.Fields[domain.FieldCity])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, domain.NewState(sessionID)))
		require.NoError(t, store.Delete(ctx, sessionID))

		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Save(ctx, id1, domain.NewState(id1)))
		require.NoError(t, store.Save(ctx, id2, domain.NewState(id2)))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}

// RunCacheStoreContract verifies generation partitioning and deletion.
func RunCacheStoreContract(t *testing.T, store ports.CacheStore) {
	t.Helper()
	ctx := context.Background()

	entry := func(key, body string) domain.CachedResponse {
		return domain.CachedResponse{
			Key:      key,
			Status:   http.StatusOK,
			Header:   http.Header{"Content-Type": []string{"text/css"}},
			Body:     []byte(body),
			StoredAt: time.Now().UTC().Truncate(time.Second),
		}
	}

	t.Run("Put and Get", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "v1-static", entry("/styles.css", "body{}")))

		got, err := store.Get(ctx, "v1-static", "/styles.css")
		require.NoError(t, err)
		assert.Equal(t, []byte("body{}"), got.Body)
		assert.Equal(t, http.StatusOK, got.Status)
		assert.Equal(t, "text/css", got.Header.Get("Content-Type"))
	})

	t.Run("Put replaces", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "v1-static", entry("/styles.css", "body{color:red}")))

		got, err := store.Get(ctx, "v1-static", "/styles.css")
		require.NoError(t, err)
		assert.Equal(t, []byte("body{color:red}"), got.Body)
	})

	t.Run("Generations are isolated", func(t *testing.T) {
		_, err := store.Get(ctx, "v1-dynamic", "/styles.css")
		assert.ErrorIs(t, err, domain.ErrCacheMiss)

		_, err = store.Get(ctx, "never-created", "/styles.css")
		assert.ErrorIs(t, err, domain.ErrCacheMiss)
	})

	t.Run("List and Delete Generations", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "v1-dynamic", entry("/page", "<html>")))
		require.NoError(t, store.Put(ctx, "v2-static", entry("/", "<html>")))

		gens, err := store.Generations(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"v1-static", "v1-dynamic", "v2-static"}, gens)

		require.NoError(t, store.DeleteGeneration(ctx, "v1-static"))
		require.NoError(t, store.DeleteGeneration(ctx, "missing"))

		gens, err = store.Generations(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"v1-dynamic", "v2-static"}, gens)

		_, err = store.Get(ctx, "v1-static", "/styles.css")
		assert.ErrorIs(t, err, domain.ErrCacheMiss)

		require.NoError(t, store.DeleteGeneration(ctx, "v1-dynamic"))
		require.NoError(t, store.DeleteGeneration(ctx, "v2-static"))
	})
}

// RunPendingQueueContract verifies enqueue/list/update/remove semantics.
func RunPendingQueueContract(t *testing.T, queue ports.PendingQueue) {
	t.Helper()
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	first := domain.PendingSubmission{
		ID:       "sub-1",
		Payload:  json.RawMessage(`{"nome":"Ana"}`),
		QueuedAt: base,
	}
	second := domain.PendingSubmission{
		ID:       "sub-2",
		Payload:  json.RawMessage(`{"nome":"Bruno"}`),
		QueuedAt: base.Add(time.Second),
	}

	t.Run("Enqueue and List in order", func(t *testing.T) {
		require.NoError(t, queue.Enqueue(ctx, second))
		require.NoError(t, queue.Enqueue(ctx, first))

		items, err := queue.List(ctx)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "sub-1", items[0].ID)
		assert.Equal(t, "sub-2", items[1].ID)
		assert.JSONEq(t, `{"nome":"Ana"}`, string(items[0].Payload))
	})

	t.Run("Update", func(t *testing.T) {
		updated := first
		updated.Attempts = 2
		updated.LastError = "connection refused"
		require.NoError(t, queue.Update(ctx, updated))

		items, err := queue.List(ctx)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, 2, items[0].Attempts)
		assert.Equal(t, "connection refused", items[0].LastError)

		err = queue.Update(ctx, domain.PendingSubmission{ID: "unknown"})
		assert.ErrorIs(t, err, domain.ErrSubmissionNotFound)
	})

	t.Run("Remove", func(t *testing.T) {
		require.NoError(t, queue.Remove(ctx, "sub-1"))
		require.NoError(t, queue.Remove(ctx, "unknown"))

		items, err := queue.List(ctx)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "sub-2", items[0].ID)

		require.NoError(t, queue.Remove(ctx, "sub-2"))
		items, err = queue.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}
