package sqlite_test

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/guihenriquebr/sefra/internal/adapters/sqlite"
	"github.com/guihenriquebr/sefra/pkg/domain"
	"github.com/guihenriquebr/sefra/pkg/ports/tests"
)

func openQueue(t *testing.T, path string) *sqlite.Queue {
	t.Helper()
	q, err := sqlite.Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func TestSQLiteQueue_Contract(t *testing.T) {
	tests.RunPendingQueueContract(t, openQueue(t, filepath.Join(t.TempDir(), "queue.db")))
}

func TestSQLiteQueue_Persistent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.db")
	ctx := context.Background()

	q, err := sqlite.Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(ctx, domain.PendingSubmission{
		ID:       "a",
		Payload:  []byte(`{"nome":"Ana"}`),
		QueuedAt: time.Now().UTC(),
	}))
	require.NoError(t, q.Close())

	items, err := openQueue(t, path).List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.JSONEq(t, `{"nome":"Ana"}`, string(items[0].Payload))
}

func TestSQLiteQueue_EnqueueReplaces(t *testing.T) {
	q := openQueue(t, filepath.Join(t.TempDir(), "queue.db"))
	ctx := context.Background()
	sub := domain.PendingSubmission{ID: "a", Payload: []byte(`{}`), QueuedAt: time.Now().UTC()}

	require.NoError(t, q.Enqueue(ctx, sub))
	sub.Attempts = 4
	require.NoError(t, q.Enqueue(ctx, sub))

	items, err := q.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 4, items[0].Attempts)
}

func TestGormLogger_Trace(t *testing.T) {
	var buf bytes.Buffer
	l := sqlite.NewGormLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	l.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 1 }, nil)
	assert.Empty(t, buf.String(), "fast successful queries are not logged at warn level")

	l.LogMode(logger.Info).Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 1 }, nil)
	assert.Contains(t, buf.String(), "SELECT 1")
}
