package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ideaboard/internal/middleware"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// gormLogger routes GORM output through the correlating slog logger so SQL
// errors carry the request and trace IDs of the call that issued them.
type gormLogger struct {
	level logger.LogLevel
	slow  time.Duration
}

// NewGormLogger logs failed statements and statements slower than 200ms.
func NewGormLogger() logger.Interface {
	return gormLogger{level: logger.Warn, slow: slowQueryThreshold}
}

func (l gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	l.level = level
	return l
}

func (l gormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	l.printf(ctx, logger.Info, slog.LevelInfo, msg, args)
}

func (l gormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	l.printf(ctx, logger.Warn, slog.LevelWarn, msg, args)
}

func (l gormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	l.printf(ctx, logger.Error, slog.LevelError, msg, args)
}

func (l gormLogger) printf(ctx context.Context, floor logger.LogLevel, lvl slog.Level, msg string, args []interface{}) {
	if l.level >= floor {
		middleware.Logger.Log(ctx, lvl, fmt.Sprintf(msg, args...))
	}
}

// Trace is called after every statement. Missing rows are an expected
// outcome for lookups and never logged as errors.
func (l gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level == logger.Silent {
		return
	}
	took := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := l.slow > 0 && took > l.slow

	var lvl slog.Level
	switch {
	case failed && l.level >= logger.Error:
		lvl = slog.LevelError
	case slow && l.level >= logger.Warn:
		lvl = slog.LevelWarn
	case l.level >= logger.Info:
		lvl = slog.LevelInfo
	default:
		return
	}

	sql, rows := fc()
	attrs := []any{"sql", sql, "rows", rows, "took_ms", took.Milliseconds()}
	if failed {
		attrs = append(attrs, "error", err.Error())
	}
	middleware.Logger.Log(ctx, lvl, "sql", attrs...)
}
