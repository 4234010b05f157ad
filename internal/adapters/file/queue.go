package file

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/guihenriquebr/sefra/pkg/adapters/memory"
	"github.com/guihenriquebr/sefra/pkg/domain"
)

const (
	opPut    = "put"
	opRemove = "remove"
)

type journalEntry struct {
	Op  string                    `json:"op"`
	ID  string                    `json:"id"`
	Sub *domain.PendingSubmission `json:"sub,omitempty"`
}

// lockRetryDelay is the polling interval while another process holds the journal.
const lockRetryDelay = 10 * time.Millisecond

// Queue implements ports.PendingQueue as an append-only JSON Lines journal.
// The journal is replayed on every read and truncated once the queue drains.
// Every operation holds an advisory lock on Path+".lock", so processes
// sharing the journal (serve enqueues, offline drains) do not lose entries.
type Queue struct {
	mu   sync.Mutex
	Path string
}

// NewQueue creates a journal-backed queue at path.
// If path is empty, it defaults to ".sefra/pending.jsonl".
func NewQueue(path string) *Queue {
	if path == "" {
		path = filepath.Join(".sefra", "pending.jsonl")
	}
	return &Queue{Path: path}
}

func (q *Queue) Enqueue(ctx context.Context, sub domain.PendingSubmission) error {
	if sub.ID == "" {
		return fmt.Errorf("submission id cannot be empty")
	}
	return q.locked(ctx, func() error {
		return q.append(journalEntry{Op: opPut, ID: sub.ID, Sub: &sub})
	})
}

func (q *Queue) List(ctx context.Context) ([]domain.PendingSubmission, error) {
	var live map[string]domain.PendingSubmission
	err := q.locked(ctx, func() (err error) {
		live, err = q.replay()
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.PendingSubmission, 0, len(live))
	for _, sub := range live {
		out = append(out, sub)
	}
	memory.SortByQueuedAt(out)
	return out, nil
}

func (q *Queue) Update(ctx context.Context, sub domain.PendingSubmission) error {
	return q.locked(ctx, func() error {
		live, err := q.replay()
		if err != nil {
			return err
		}
		if _, ok := live[sub.ID]; !ok {
			return domain.ErrSubmissionNotFound
		}
		return q.append(journalEntry{Op: opPut, ID: sub.ID, Sub: &sub})
	})
}

func (q *Queue) Remove(ctx context.Context, id string) error {
	return q.locked(ctx, func() error {
		live, err := q.replay()
		if err != nil {
			return err
		}
		if _, ok := live[id]; !ok {
			return nil
		}
		delete(live, id)
		if len(live) == 0 {
			return q.truncate()
		}
		return q.append(journalEntry{Op: opRemove, ID: id})
	})
}

// locked runs fn holding both the in-process mutex and the journal file lock.
func (q *Queue) locked(ctx context.Context, fn func() error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(q.Path), 0o755); err != nil {
		return fmt.Errorf("failed to ensure queue directory: %w", err)
	}
	fl := flock.New(q.Path + ".lock")
	ok, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to lock queue journal: %w", err)
	}
	if !ok {
		return fmt.Errorf("failed to lock queue journal: %s is held", fl.Path())
	}
	defer fl.Unlock()

	return fn()
}

func (q *Queue) append(entry journalEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}
	f, err := os.OpenFile(q.Path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open queue journal: %w", err)
	}
	defer f.Close()

	// Terminate a torn tail so the new entry starts on its own line.
	if info, err := f.Stat(); err == nil && info.Size() > 0 {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, info.Size()-1); err == nil && last[0] != '\n' {
			line = append([]byte{'\n'}, line...)
		}
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append to queue journal: %w", err)
	}
	return f.Sync()
}

func (q *Queue) replay() (map[string]domain.PendingSubmission, error) {
	live := map[string]domain.PendingSubmission{}

	f, err := os.Open(q.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return live, nil
		}
		return nil, fmt.Errorf("failed to open queue journal: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var entry journalEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			// Torn write from a crash mid-append.
			continue
		}
		switch entry.Op {
		case opPut:
			if entry.Sub != nil {
				live[entry.ID] = *entry.Sub
			}
		case opRemove:
			delete(live, entry.ID)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read queue journal: %w", err)
	}
	return live, nil
}

func (q *Queue) truncate() error {
	err := os.Truncate(q.Path, 0)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to truncate queue journal: %w", err)
	}
	return nil
}
