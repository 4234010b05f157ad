package ports

import (
	"context"

	"github.com/guihenriquebr/sefra/pkg/domain"
)

// PendingQueue is a durable queue of submissions awaiting retry.
// Entries are delivered at least once: an entry stays until Remove is called.
type PendingQueue interface {
	Enqueue(ctx context.Context, sub domain.PendingSubmission) error

	// List returns the queued entries ordered by QueuedAt.
	List(ctx context.Context) ([]domain.PendingSubmission, error)

	// Update replaces the stored entry with the same ID (attempt bookkeeping).
	// Returns domain.ErrSubmissionNotFound for unknown IDs.
	Update(ctx context.Context, sub domain.PendingSubmission) error

	// Remove deletes the entry. Removing an unknown ID is not an error.
	Remove(ctx context.Context, id string) error
}
