package redis

import (
	"context"
	"encoding/json"
	"fmt"

	backend "github.com/redis/go-redis/v9"

	"github.com/guihenriquebr/sefra/pkg/domain"
)

// updateScript replaces a hash field only when it already exists.
var updateScript = backend.NewScript(`
if redis.call("hexists", KEYS[1], ARGV[1]) == 1 then
	redis.call("hset", KEYS[1], ARGV[1], ARGV[2])
	return 1
end
return 0
`)

// Queue implements ports.PendingQueue with a hash of payloads and a sorted
// set ordering them by QueuedAt.
type Queue struct {
	client *backend.Client
	prefix string
}

// NewQueue creates a queue stored under prefix+"pending".
func NewQueue(client *backend.Client, prefix string) *Queue {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Queue{client: client, prefix: prefix}
}

func (q *Queue) itemsKey() string { return q.prefix + "pending" }
func (q *Queue) orderKey() string { return q.prefix + "pending:order" }

func (q *Queue) Enqueue(ctx context.Context, sub domain.PendingSubmission) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("failed to marshal submission: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, q.itemsKey(), sub.ID, data)
	pipe.ZAdd(ctx, q.orderKey(), backend.Z{Score: float64(sub.QueuedAt.UnixMilli()), Member: sub.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to enqueue submission: %w", err)
	}
	return nil
}

func (q *Queue) List(ctx context.Context) ([]domain.PendingSubmission, error) {
	ids, err := q.client.ZRange(ctx, q.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read queue order: %w", err)
	}
	if len(ids) == 0 {
		return []domain.PendingSubmission{}, nil
	}

	vals, err := q.client.HMGet(ctx, q.itemsKey(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read queued submissions: %w", err)
	}

	out := make([]domain.PendingSubmission, 0, len(ids))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// Removed between the two reads.
			continue
		}
		var sub domain.PendingSubmission
		if err := json.Unmarshal([]byte(raw), &sub); err != nil {
			return nil, fmt.Errorf("failed to unmarshal submission %s: %w", ids[i], err)
		}
		out = append(out, sub)
	}
	return out, nil
}

func (q *Queue) Update(ctx context.Context, sub domain.PendingSubmission) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("failed to marshal submission: %w", err)
	}
	n, err := updateScript.Run(ctx, q.client, []string{q.itemsKey()}, sub.ID, data).Int()
	if err != nil {
		return fmt.Errorf("failed to update submission: %w", err)
	}
	if n == 0 {
		return domain.ErrSubmissionNotFound
	}
	return nil
}

func (q *Queue) Remove(ctx context.Context, id string) error {
	pipe := q.client.TxPipeline()
	pipe.HDel(ctx, q.itemsKey(), id)
	pipe.ZRem(ctx, q.orderKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to remove submission: %w", err)
	}
	return nil
}
