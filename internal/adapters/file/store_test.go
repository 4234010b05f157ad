package file_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guihenriquebr/sefra/internal/adapters/file"
	"github.com/guihenriquebr/sefra/pkg/domain"
	"github.com/guihenriquebr/sefra/pkg/ports/tests"
)

func TestFileStore_Contract(t *testing.T) {
	tests.RunSessionStoreContract(t, file.New(t.TempDir()))
}

func TestFileCache_Contract(t *testing.T) {
	tests.RunCacheStoreContract(t, file.NewCache(t.TempDir()))
}

func TestFileQueue_Contract(t *testing.T) {
	tests.RunPendingQueueContract(t, file.NewQueue(filepath.Join(t.TempDir(), "pending.jsonl")))
}

func TestFileStore_RejectsPathTraversal(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	for _, id := range []string{"", "..", "../escape", `a\b`} {
		assert.Error(t, store.Save(ctx, id, domain.NewState(id)), "id %q", id)
		_, err := store.Load(ctx, id)
		assert.Error(t, err, "id %q", id)
	}
}

func TestFileStore_ListSkipsTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", domain.NewState("s1")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tmp-s2-123.json"), []byte("{"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)
}

func TestFileQueue_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q", "pending.jsonl")
	ctx := context.Background()

	q := file.NewQueue(path)
	require.NoError(t, q.Enqueue(ctx, domain.PendingSubmission{ID: "a", Payload: []byte(`{}`)}))
	require.NoError(t, q.Enqueue(ctx, domain.PendingSubmission{ID: "b", Payload: []byte(`{}`)}))
	require.NoError(t, q.Remove(ctx, "a"))

	items, err := file.NewQueue(path).List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].ID)
}

func TestFileQueue_TruncatesWhenDrained(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.jsonl")
	ctx := context.Background()
	q := file.NewQueue(path)

	require.NoError(t, q.Enqueue(ctx, domain.PendingSubmission{ID: "a", Payload: []byte(`{}`)}))
	require.NoError(t, q.Remove(ctx, "a"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestFileCache_RejectsBadGeneration(t *testing.T) {
	c := file.NewCache(t.TempDir())
	err := c.Put(context.Background(), "../x", domain.CachedResponse{Key: "/"})
	assert.Error(t, err)
}

func TestFileQueue_TornTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.jsonl")
	ctx := context.Background()
	q := file.NewQueue(path)
	require.NoError(t, q.Enqueue(ctx, domain.PendingSubmission{ID: "a", Payload: []byte(`{}`)}))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"op":"put","id":"b","su`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	items, err := q.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "a", items[0].ID)
}

func TestFileQueue_AppendAfterTornTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.jsonl")
	ctx := context.Background()
	require.NoError(t, os.WriteFile(path, []byte(`{"op":"put","id":"x","su`), 0o644))

	q := file.NewQueue(path)
	require.NoError(t, q.Enqueue(ctx, domain.PendingSubmission{ID: "c", Payload: []byte(`{}`)}))

	items, err := q.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "c", items[0].ID)
}

func TestFileQueue_WaitsForJournalLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.jsonl")
	q := file.NewQueue(path)
	sub := domain.PendingSubmission{ID: "a", Payload: []byte(`{}`)}

	other := flock.New(path + ".lock")
	require.NoError(t, other.Lock())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Enqueue(ctx, sub), context.DeadlineExceeded)

	require.NoError(t, other.Unlock())
	require.NoError(t, q.Enqueue(context.Background(), sub))
}

func TestFileQueue_SharedJournalKeepsEveryEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.jsonl")
	producer, consumer := file.NewQueue(path), file.NewQueue(path)
	ctx := context.Background()
	const n = 100

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range n {
			assert.NoError(t, producer.Enqueue(ctx, domain.PendingSubmission{ID: fmt.Sprintf("s%d", i), Payload: []byte(`{}`)}))
		}
	}()

	removed := map[string]bool{}
	go func() {
		defer wg.Done()
		for range n {
			items, err := consumer.List(ctx)
			if !assert.NoError(t, err) {
				return
			}
			for _, it := range items {
				assert.NoError(t, consumer.Remove(ctx, it.ID))
				removed[it.ID] = true
			}
		}
	}()
	wg.Wait()

	rest, err := consumer.List(ctx)
	require.NoError(t, err)
	for _, it := range rest {
		removed[it.ID] = true
	}
	assert.Len(t, removed, n)
}
