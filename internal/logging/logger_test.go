package logging_test

import (
	"bytes"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guihenriquebr/sefra/internal/logging"
)

func TestNew_RenamesErrorKey(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(slog.LevelInfo, &buf)

	logger.Info("submission failed", "error", errors.New("boom"))
	logger.Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "err=boom")
	assert.NotContains(t, out, "hidden")
}

func TestParseLevel(t *testing.T) {
	lvl, err := logging.ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	lvl, err = logging.ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)

	_, err = logging.ParseLevel("verbose")
	assert.Error(t, err)
}

func TestNewRotating(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sefra.log")
	w := logging.NewRotating(logging.FileOptions{Path: path})
	defer w.Close()

	logger := logging.New(slog.LevelInfo, w)
	logger.Info("hello")

	assert.FileExists(t, path)
}
