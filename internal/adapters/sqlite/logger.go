package sqlite

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/guihenriquebr/sefra/internal/logging"
)

const slowQuery = time.Second

// GormLogger routes gorm logs to slog.
type GormLogger struct {
	Logger   *slog.Logger
	LogLevel logger.LogLevel
}

// NewGormLogger logs warnings and errors by default. A nil logger discards.
func NewGormLogger(l *slog.Logger) *GormLogger {
	if l == nil {
		l = logging.NewNop()
	}
	return &GormLogger{Logger: l, LogLevel: logger.Warn}
}

func (l *GormLogger) LogMode(level logger.LogLevel) logger.Interface {
	next := *l
	next.LogLevel = level
	return &next
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.LogLevel >= logger.Info {
		l.Logger.InfoContext(ctx, msg, "data", data)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.LogLevel >= logger.Warn {
		l.Logger.WarnContext(ctx, msg, "data", data)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.LogLevel >= logger.Error {
		l.Logger.ErrorContext(ctx, msg, "data", data)
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	attrs := []any{
		"sql", sql,
		"rows", rows,
		"elapsed_ms", float64(elapsed.Nanoseconds()) / 1e6,
	}

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.LogLevel >= logger.Error:
		l.Logger.ErrorContext(ctx, "sql query failed", append(attrs, "error", err)...)
	case elapsed > slowQuery && l.LogLevel >= logger.Warn:
		l.Logger.WarnContext(ctx, "slow sql query", append(attrs, "threshold", slowQuery.String())...)
	case l.LogLevel == logger.Info:
		l.Logger.DebugContext(ctx, "sql query", attrs...)
	}
}
