// Package sqlite stores the pending submission queue in SQLite through gorm.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/guihenriquebr/sefra/pkg/domain"
)

// pendingRow is the table layout of a queued submission.
type pendingRow struct {
	ID        string    `gorm:"primaryKey"`
	Payload   []byte    `gorm:"not null"`
	Attempts  int       `gorm:"not null;default:0"`
	QueuedAt  time.Time `gorm:"index;not null"`
	LastError string
}

func (pendingRow) TableName() string { return "pending_submissions" }

func (r pendingRow) toDomain() domain.PendingSubmission {
	return domain.PendingSubmission{
		ID:        r.ID,
		Payload:   r.Payload,
		Attempts:  r.Attempts,
		QueuedAt:  r.QueuedAt.UTC(),
		LastError: r.LastError,
	}
}

func fromDomain(sub domain.PendingSubmission) pendingRow {
	return pendingRow{
		ID:        sub.ID,
		Payload:   sub.Payload,
		Attempts:  sub.Attempts,
		QueuedAt:  sub.QueuedAt.UTC(),
		LastError: sub.LastError,
	}
}

// Queue implements ports.PendingQueue on a SQLite database.
type Queue struct {
	db *gorm.DB
}

// Open opens (or creates) the database at path and migrates the schema.
func Open(path string, logger *slog.Logger) (*Queue, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: NewGormLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	return New(db)
}

// New wraps an existing gorm handle and migrates the schema.
func New(db *gorm.DB) (*Queue, error) {
	if err := db.AutoMigrate(&pendingRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate pending queue: %w", err)
	}
	return &Queue{db: db}, nil
}

func (q *Queue) Enqueue(ctx context.Context, sub domain.PendingSubmission) error {
	row := fromDomain(sub)
	err := q.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to enqueue submission: %w", err)
	}
	return nil
}

func (q *Queue) List(ctx context.Context) ([]domain.PendingSubmission, error) {
	var rows []pendingRow
	if err := q.db.WithContext(ctx).Order("queued_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	out := make([]domain.PendingSubmission, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (q *Queue) Update(ctx context.Context, sub domain.PendingSubmission) error {
	row := fromDomain(sub)
	res := q.db.WithContext(ctx).
		Model(&pendingRow{}).
		Where("id = ?", sub.ID).
		Select("payload", "attempts", "queued_at", "last_error").
		Updates(&row)
	if res.Error != nil {
		return fmt.Errorf("failed to update submission: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrSubmissionNotFound
	}
	return nil
}

func (q *Queue) Remove(ctx context.Context, id string) error {
	err := q.db.WithContext(ctx).Delete(&pendingRow{}, "id = ?", id).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to remove submission: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (q *Queue) Close() error {
	sqlDB, err := q.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
