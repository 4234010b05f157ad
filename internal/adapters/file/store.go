package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/guihenriquebr/sefra/pkg/domain"
)

const sessionExt = ".json"

// Store implements ports.SessionStore using the local filesystem.
// Each wizard session is one JSON file in BasePath.
type Store struct {
	BasePath string
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".sefra/sessions".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".sefra", "sessions")
	}
	return &Store{BasePath: basePath}
}

// Save persists the session state atomically.
func (s *Store) Save(ctx context.Context, sessionID string, state *domain.State) error {
	if err := checkName("sessionID", sessionID); err != nil {
		return err
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	return writeAtomic(s.BasePath, sessionID+sessionExt, data)
}

// Load retrieves the session state.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	if err := checkName("sessionID", sessionID); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.BasePath, sessionID+sessionExt))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var state domain.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session state: %w", err)
	}
	return &state, nil
}

// Delete removes the session file.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := checkName("sessionID", sessionID); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.BasePath, sessionID+sessionExt))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// List returns the stored session IDs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sessions := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != sessionExt || strings.HasPrefix(name, "tmp-") {
			continue
		}
		sessions = append(sessions, strings.TrimSuffix(name, sessionExt))
	}
	return sessions, nil
}
