// Package middleware provides the request pipeline: structured logging,
// session authentication, role gates, rate limiting and tracing.
package middleware

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Logger is shared by every layer. ConfigureLogger replaces it once the
// configuration is known; until then it writes text at info level.
var Logger = NewLogger(os.Stdout, false, "info")

// requestFields travel in the request context so log lines emitted deep in
// the service layer carry the same correlation data as the access log.
type requestFields struct {
	requestID string
	traceID   string
	userID    uint
}

type fieldsKey struct{}

func fieldsFrom(ctx context.Context) requestFields {
	f, _ := ctx.Value(fieldsKey{}).(requestFields)
	return f
}

func withFields(ctx context.Context, update func(*requestFields)) context.Context {
	f := fieldsFrom(ctx)
	update(&f)
	return context.WithValue(ctx, fieldsKey{}, f)
}

// WithUserID tags ctx with the authenticated user for log correlation.
func WithUserID(ctx context.Context, id uint) context.Context {
	return withFields(ctx, func(f *requestFields) { f.userID = id })
}

type correlatingHandler struct {
	next slog.Handler
}

func (h correlatingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h correlatingHandler) Handle(ctx context.Context, r slog.Record) error {
	f := fieldsFrom(ctx)
	if f.requestID != "" {
		r.AddAttrs(slog.String("request_id", f.requestID))
	}
	if f.traceID != "" {
		r.AddAttrs(slog.String("trace_id", f.traceID))
	}
	if f.userID != 0 {
		r.AddAttrs(slog.Uint64("user_id", uint64(f.userID)))
	}
	return h.next.Handle(ctx, r)
}

func (h correlatingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return correlatingHandler{h.next.WithAttrs(attrs)}
}

func (h correlatingHandler) WithGroup(name string) slog.Handler {
	return correlatingHandler{h.next.WithGroup(name)}
}

// NewLogger builds a correlating logger. JSON output is used in production
// so log shippers can parse it.
func NewLogger(w io.Writer, jsonOutput bool, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var base slog.Handler = slog.NewTextHandler(w, opts)
	if jsonOutput {
		base = slog.NewJSONHandler(w, opts)
	}
	return slog.New(correlatingHandler{base})
}

// ConfigureLogger swaps the shared logger and makes it the slog default.
func ConfigureLogger(production bool, level string) {
	Logger = NewLogger(os.Stdout, production, level)
	slog.SetDefault(Logger)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ContextMiddleware copies the request and trace IDs into the user context.
// Session adds the user ID later in the chain.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid, _ := c.Locals("requestid").(string)
		tid, _ := c.Locals(traceLocal).(string)
		c.SetUserContext(withFields(c.UserContext(), func(f *requestFields) {
			f.requestID = rid
			f.traceID = tid
		}))
		return c.Next()
	}
}

// StructuredLogger writes one access line per request. Server errors log at
// error level, client errors at warn.
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		began := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		attrs := []any{
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration_ms", time.Since(began).Milliseconds(),
			"ip", c.IP(),
		}
		if err != nil {
			attrs = append(attrs, "error", err.Error())
		}

		ctx := c.UserContext()
		switch {
		case err != nil || status >= fiber.StatusInternalServerError:
			Logger.ErrorContext(ctx, "request", attrs...)
		case status >= fiber.StatusBadRequest:
			Logger.WarnContext(ctx, "request", attrs...)
		default:
			Logger.InfoContext(ctx, "request", attrs...)
		}
		return err
	}
}
