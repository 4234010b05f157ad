package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/guihenriquebr/sefra/pkg/domain"
)

// Queue implements ports.PendingQueue in memory. Entries do not survive a
// restart; use the file, redis or sqlite adapters for durability.
type Queue struct {
	mu    sync.Mutex
	items map[string]domain.PendingSubmission
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{items: make(map[string]domain.PendingSubmission)}
}

func (q *Queue) Enqueue(ctx context.Context, sub domain.PendingSubmission) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	sub.Payload = slices.Clone(sub.Payload)
	q.items[sub.ID] = sub
	return nil
}

func (q *Queue) List(ctx context.Context) ([]domain.PendingSubmission, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]domain.PendingSubmission, 0, len(q.items))
	for _, sub := range q.items {
		sub.Payload = slices.Clone(sub.Payload)
		out = append(out, sub)
	}
	SortByQueuedAt(out)
	return out, nil
}

func (q *Queue) Update(ctx context.Context, sub domain.PendingSubmission) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.items[sub.ID]; !ok {
		return domain.ErrSubmissionNotFound
	}
	sub.Payload = slices.Clone(sub.Payload)
	q.items[sub.ID] = sub
	return nil
}

func (q *Queue) Remove(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.items, id)
	return nil
}

// SortByQueuedAt orders submissions oldest first, breaking ties by ID.
func SortByQueuedAt(subs []domain.PendingSubmission) {
	slices.SortFunc(subs, func(a, b domain.PendingSubmission) int {
		if c := a.QueuedAt.Compare(b.QueuedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
}
